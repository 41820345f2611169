//go:build linux

package can

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/pkg/errors"
	einride "go.einride.tech/can"
	"go.einride.tech/can/pkg/socketcan"
)

type socketCANBus struct {
	conn   net.Conn
	tx     *socketcan.Transmitter
	logger Logger

	rxMu sync.Mutex
	rx   *socketcan.Receiver
}

// DialSocketCAN opens a raw CAN socket on the named Linux network
// interface, e.g. "can0" or "vcan0".
func DialSocketCAN(ctx context.Context, iface string, l Logger) (Bus, error) {
	if l == nil {
		l = NopLogger
	}
	conn, err := socketcan.DialContext(ctx, "can", iface)
	if err != nil {
		return nil, errors.Wrapf(err, "dialing socketcan interface '%s'", iface)
	}
	l.Debugf("opened socketcan interface %s", iface)
	return &socketCANBus{
		conn:   conn,
		tx:     socketcan.NewTransmitter(conn),
		rx:     socketcan.NewReceiver(conn),
		logger: l,
	}, nil
}

func (b *socketCANBus) Send(ctx context.Context, f Frame) error {
	if err := f.Validate(); err != nil {
		return err
	}
	err := b.tx.TransmitFrame(ctx, einride.Frame{
		ID:         f.ID,
		Length:     f.Len,
		Data:       einride.Data(f.Data),
		IsRemote:   f.RTR,
		IsExtended: f.Extended,
	})
	return errors.Wrap(err, "transmitting socketcan frame")
}

func (b *socketCANBus) Receive(ctx context.Context) (Frame, error) {
	b.rxMu.Lock()
	defer b.rxMu.Unlock()

	// a past read deadline unblocks the receiver when ctx is done
	stop := context.AfterFunc(ctx, func() {
		b.conn.SetReadDeadline(time.Now())
	})
	defer stop()

	for b.rx.Receive() {
		if b.rx.HasErrorFrame() {
			b.logger.Debugf("socketcan error frame: %v", b.rx.ErrorFrame())
			continue
		}
		ef := b.rx.Frame()
		return Frame{
			ID:       ef.ID,
			Extended: ef.IsExtended,
			RTR:      ef.IsRemote,
			Len:      ef.Length,
			Data:     [MaxDataLength]byte(ef.Data),
		}, nil
	}

	err := b.rx.Err()
	if ctxErr := ctx.Err(); ctxErr != nil {
		// the receiver is unusable after a timeout
		b.conn.SetReadDeadline(time.Time{})
		b.rx = socketcan.NewReceiver(b.conn)
		return Frame{}, ctxErr
	}
	if err == nil {
		return Frame{}, ErrClosed
	}
	return Frame{}, errors.Wrap(err, "receiving socketcan frame")
}

func (b *socketCANBus) Close() error {
	return errors.Wrap(b.conn.Close(), "closing socketcan connection")
}
