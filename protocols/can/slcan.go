package can

import (
	"bufio"
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"go.bug.st/serial"
)

const (
	// SLCANBaudRate is the serial baud rate used to talk to SLCAN adapters.
	SLCANBaudRate int = 115200
	// SLCANDataBits is the data bit setting used for the serial connection.
	SLCANDataBits int = 8
)

var slcanBitrates = map[int]byte{
	10000:   '0',
	20000:   '1',
	50000:   '2',
	100000:  '3',
	125000:  '4',
	250000:  '5',
	500000:  '6',
	800000:  '7',
	1000000: '8',
}

// ErrUnsupportedBitrate is returned for a CAN bitrate SLCAN has no setup code for.
var ErrUnsupportedBitrate = errors.New("unsupported bitrate")

// SLCANBus talks the Lawicel ASCII protocol to a USB-serial CAN adapter.
type SLCANBus struct {
	port   io.ReadWriteCloser
	logger Logger

	writeMu sync.Mutex
	frames  chan Frame
	done    chan struct{}
	once    sync.Once
	err     error // set by the reader before frames is closed
}

// OpenSLCAN opens the serial port and starts an SLCAN channel at the given
// CAN bitrate.
func OpenSLCAN(portName string, bitrate int, l Logger) (*SLCANBus, error) {
	sp, err := serial.Open(portName, &serial.Mode{
		BaudRate: SLCANBaudRate,
		DataBits: SLCANDataBits,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "opening serial port '%s'", portName)
	}

	b, err := NewSLCANBus(sp, bitrate, l)
	if err != nil {
		sp.Close()
		return nil, err
	}
	return b, nil
}

// NewSLCANBus configures an SLCAN adapter already connected through port and
// opens its CAN channel.
func NewSLCANBus(port io.ReadWriteCloser, bitrate int, l Logger) (*SLCANBus, error) {
	if l == nil {
		l = NopLogger
	}
	code, ok := slcanBitrates[bitrate]
	if !ok {
		return nil, errors.Wrapf(ErrUnsupportedBitrate, "%d bit/s", bitrate)
	}

	b := &SLCANBus{
		port:   port,
		logger: l,
		frames: make(chan Frame, 64),
		done:   make(chan struct{}),
	}
	// close first in case the channel was left open by an earlier session
	for _, cmd := range []string{"C\r", "S" + string(code) + "\r", "O\r"} {
		if err := b.write(cmd); err != nil {
			return nil, errors.Wrap(err, "initializing slcan adapter")
		}
	}

	go b.readFrames()
	return b, nil
}

func (b *SLCANBus) write(cmd string) error {
	b.writeMu.Lock()
	defer b.writeMu.Unlock()

	logBytes(b.logger, []byte(cmd), "slcan write: ")
	n, err := io.WriteString(b.port, cmd)
	if err != nil {
		return errors.Wrap(err, "writing slcan command")
	}
	if n != len(cmd) {
		return errors.Errorf("only wrote %d bytes (command had %d bytes)", n, len(cmd))
	}
	return nil
}

func (b *SLCANBus) Send(ctx context.Context, f Frame) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case <-b.done:
		return ErrClosed
	default:
	}
	if err := f.Validate(); err != nil {
		return err
	}
	return b.write(encodeSLCAN(f))
}

func (b *SLCANBus) Receive(ctx context.Context) (Frame, error) {
	select {
	case f, ok := <-b.frames:
		if !ok {
			if b.err != nil {
				return Frame{}, b.err
			}
			return Frame{}, ErrClosed
		}
		return f, nil
	case <-b.done:
		return Frame{}, ErrClosed
	case <-ctx.Done():
		return Frame{}, ctx.Err()
	}
}

// Close closes the CAN channel and the serial port.
func (b *SLCANBus) Close() error {
	var err error
	b.once.Do(func() {
		close(b.done)
		if werr := b.write("C\r"); werr != nil {
			b.logger.Debugf("closing slcan channel: %v", werr)
		}
		if err = b.port.Close(); err != nil {
			err = errors.Wrap(err, "closing serial port")
		}
	})
	return err
}

func (b *SLCANBus) readFrames() {
	defer close(b.frames)

	r := bufio.NewReader(b.port)
	var line []byte
	for {
		c, err := r.ReadByte()
		if err != nil {
			select {
			case <-b.done:
			default:
				b.err = errors.Wrap(err, "reading from slcan adapter")
			}
			return
		}

		switch c {
		case '\r':
			if len(line) == 0 {
				continue // command acknowledged
			}
			f, err := decodeSLCAN(string(line))
			line = line[:0]
			if err != nil {
				b.logger.Debugf("dropping slcan line: %v", err)
				continue
			}
			select {
			case b.frames <- f:
			case <-b.done:
				return
			}
		case '\a':
			b.logger.Debug("slcan adapter rejected a command")
			line = line[:0]
		default:
			line = append(line, c)
		}
	}
}

// encodeSLCAN returns the t/T/r/R transmit command for f, including the
// terminating carriage return.
func encodeSLCAN(f Frame) string {
	var sb strings.Builder
	switch {
	case f.RTR && f.Extended:
		sb.WriteByte('R')
	case f.RTR:
		sb.WriteByte('r')
	case f.Extended:
		sb.WriteByte('T')
	default:
		sb.WriteByte('t')
	}

	if f.Extended {
		fmt.Fprintf(&sb, "%08X", f.ID&MaxExtendedID)
	} else {
		fmt.Fprintf(&sb, "%03X", f.ID&MaxStandardID)
	}
	sb.WriteByte('0' + f.Len)
	if !f.RTR {
		sb.WriteString(strings.ToUpper(hex.EncodeToString(f.Payload())))
	}
	sb.WriteByte('\r')
	return sb.String()
}

// decodeSLCAN parses a received t/T/r/R line without its carriage return.
// Adapters may append a 4 digit timestamp, which is ignored.
func decodeSLCAN(line string) (Frame, error) {
	var f Frame
	if line == "" {
		return f, errors.New("empty slcan line")
	}

	idLen := 3
	switch line[0] {
	case 't':
	case 'T':
		f.Extended = true
		idLen = 8
	case 'r':
		f.RTR = true
	case 'R':
		f.Extended, f.RTR = true, true
		idLen = 8
	default:
		return f, errors.Errorf("slcan line %q: unknown command '%c'", line, line[0])
	}
	if len(line) < 1+idLen+1 {
		return f, errors.Errorf("slcan line %q: too short", line)
	}

	id, err := strconv.ParseUint(line[1:1+idLen], 16, 32)
	if err != nil {
		return f, errors.Wrapf(err, "slcan line %q: parsing id", line)
	}
	f.ID = uint32(id)

	dlc := line[1+idLen]
	if dlc < '0' || dlc > '8' {
		return f, errors.Wrapf(ErrInvalidLength, "slcan line %q", line)
	}
	f.Len = dlc - '0'

	if !f.RTR {
		start := 2 + idLen
		end := start + 2*int(f.Len)
		if len(line) < end {
			return f, errors.Errorf("slcan line %q: expected %d data bytes", line, f.Len)
		}
		if _, err := hex.Decode(f.Data[:], []byte(line[start:end])); err != nil {
			return f, errors.Wrapf(err, "slcan line %q: parsing data", line)
		}
	}
	return f, f.Validate()
}
