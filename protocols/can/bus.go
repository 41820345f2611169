package can

import (
	"context"

	"github.com/pkg/errors"
)

// Bus sends and receives CAN frames. Implementations are safe for concurrent
// use by one sender and one receiver.
type Bus interface {
	// Send transmits a frame, blocking until it's handed to the interface
	// or ctx is done.
	Send(ctx context.Context, f Frame) error

	// Receive blocks until a frame arrives or ctx is done.
	Receive(ctx context.Context) (Frame, error)

	// Close releases the bus. Pending and later calls return ErrClosed.
	Close() error
}

// ErrClosed is returned by a Bus that has been closed.
var ErrClosed = errors.New("bus closed")
