package logging

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/gavinwade12/canLogger/protocols/can"
)

var captureEncMode cbor.EncMode
var captureDecMode cbor.DecMode

func init() {
	var err error

	encOpts := cbor.EncOptions{
		Sort:          cbor.SortCanonical,
		IndefLength:   cbor.IndefLengthForbidden,
		NilContainers: cbor.NilContainerAsNull,
		Time:          cbor.TimeRFC3339Nano,
	}
	captureEncMode, err = encOpts.EncMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create capture CBOR encoder mode: %v", err))
	}

	decOpts := cbor.DecOptions{
		DupMapKey:         cbor.DupMapKeyQuiet,
		IndefLength:       cbor.IndefLengthAllowed,
		ExtraReturnErrors: cbor.ExtraDecErrorNone,
	}
	captureDecMode, err = decOpts.DecMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create capture CBOR decoder mode: %v", err))
	}
}

// CaptureEntry is one frame in a capture file.
type CaptureEntry struct {
	Session  string    `cbor:"1,keyasint"`
	Time     time.Time `cbor:"2,keyasint"`
	ID       uint32    `cbor:"3,keyasint"`
	Extended bool      `cbor:"4,keyasint,omitempty"`
	RTR      bool      `cbor:"5,keyasint,omitempty"`
	Len      uint8     `cbor:"6,keyasint"`
	Data     []byte    `cbor:"7,keyasint,omitempty"`
}

// Frame returns the entry as a CAN frame.
func (e CaptureEntry) Frame() (can.Frame, error) {
	f := can.Frame{ID: e.ID, Extended: e.Extended, RTR: e.RTR, Len: e.Len}
	if len(e.Data) > can.MaxDataLength {
		return f, can.ErrInvalidLength
	}
	copy(f.Data[:], e.Data)
	return f, f.Validate()
}

// CaptureSink appends every received frame to a CBOR stream so a session
// can be replayed later. It is safe for concurrent use.
type CaptureSink struct {
	session string
	c       io.Closer
	enc     *cbor.Encoder
	mu      sync.Mutex
	closed  bool
}

// NewCaptureSink returns a sink writing to w under a new session id. If w is
// an io.Closer it's closed with the sink.
func NewCaptureSink(w io.Writer) *CaptureSink {
	s := &CaptureSink{session: uuid.New().String(), enc: captureEncMode.NewEncoder(w)}
	s.c, _ = w.(io.Closer)
	return s
}

// CreateCapture opens path for appending, creating it if needed.
func CreateCapture(path string) (*CaptureSink, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, errors.Wrap(err, "opening capture file")
	}
	return NewCaptureSink(f), nil
}

// Session returns the id tagged on every entry this sink writes.
func (s *CaptureSink) Session() string {
	return s.session
}

func (s *CaptureSink) Write(r Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return wrapSink(os.ErrClosed, "capture")
	}
	f := r.Frame
	e := CaptureEntry{
		Session:  s.session,
		Time:     r.Time,
		ID:       f.ID,
		Extended: f.Extended,
		RTR:      f.RTR,
		Len:      f.Len,
		Data:     append([]byte(nil), f.Payload()...),
	}
	return wrapSink(s.enc.Encode(e), "capture")
}

// Close closes the underlying writer. It is safe to call more than once.
func (s *CaptureSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	if s.c != nil {
		return wrapSink(s.c.Close(), "capture")
	}
	return nil
}

// ReadCapture decodes every entry in r.
func ReadCapture(r io.Reader) ([]CaptureEntry, error) {
	dec := captureDecMode.NewDecoder(r)
	var entries []CaptureEntry
	for {
		var e CaptureEntry
		if err := dec.Decode(&e); err != nil {
			if err == io.EOF {
				return entries, nil
			}
			return entries, errors.Wrap(err, "decoding capture")
		}
		entries = append(entries, e)
	}
}

// ReplayBus is a read-only Bus that re-emits the frames of a capture. Once
// the capture is exhausted Receive returns can.ErrClosed.
type ReplayBus struct {
	dec  *cbor.Decoder
	c    io.Closer
	pace bool
	last time.Time

	mu     sync.Mutex
	closed bool
}

// NewReplayBus replays the capture read from r. With pace set, Receive waits
// out the recorded gap between consecutive frames.
func NewReplayBus(r io.Reader, pace bool) *ReplayBus {
	b := &ReplayBus{dec: captureDecMode.NewDecoder(r), pace: pace}
	b.c, _ = r.(io.Closer)
	return b
}

// OpenReplay replays the capture file at path.
func OpenReplay(path string, pace bool) (*ReplayBus, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "opening capture file")
	}
	return NewReplayBus(f, pace), nil
}

func (b *ReplayBus) Send(ctx context.Context, f can.Frame) error {
	return errors.New("replay bus is read-only")
}

func (b *ReplayBus) Receive(ctx context.Context) (can.Frame, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return can.Frame{}, can.ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return can.Frame{}, err
	}

	var e CaptureEntry
	if err := b.dec.Decode(&e); err != nil {
		if err == io.EOF {
			return can.Frame{}, can.ErrClosed
		}
		return can.Frame{}, errors.Wrap(err, "decoding capture")
	}

	if b.pace && !b.last.IsZero() {
		if gap := e.Time.Sub(b.last); gap > 0 {
			t := time.NewTimer(gap)
			select {
			case <-t.C:
			case <-ctx.Done():
				t.Stop()
				return can.Frame{}, ctx.Err()
			}
		}
	}
	b.last = e.Time

	return e.Frame()
}

func (b *ReplayBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true
	if b.c != nil {
		return b.c.Close()
	}
	return nil
}
