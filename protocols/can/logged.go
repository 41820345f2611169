package can

import "context"

// LogOption selects which bus operations NewLoggedBus logs.
type LogOption uint8

const (
	LogNone  LogOption = 0
	LogRead  LogOption = 1 << iota
	LogWrite
	LogAll = LogRead | LogWrite
)

type loggedBus struct {
	inner  Bus
	logger Logger
	opts   LogOption
	filter func(Frame) bool
}

// NewLoggedBus wraps inner and logs the selected operations. When filter is
// non-nil only frames it accepts are logged.
func NewLoggedBus(inner Bus, l Logger, opts LogOption, filter func(Frame) bool) Bus {
	if l == nil {
		l = NopLogger
	}
	return &loggedBus{inner: inner, logger: l, opts: opts, filter: filter}
}

func (b *loggedBus) accept(f Frame) bool {
	return b.filter == nil || b.filter(f)
}

func (b *loggedBus) Send(ctx context.Context, f Frame) error {
	if b.opts&LogWrite != 0 && b.accept(f) {
		logBytes(b.logger, f.Payload(), "send "+f.String()+": ")
	}
	err := b.inner.Send(ctx, f)
	if err != nil && b.opts&LogWrite != 0 {
		b.logger.Debugf("send %s failed: %v", f.String(), err)
	}
	return err
}

func (b *loggedBus) Receive(ctx context.Context) (Frame, error) {
	f, err := b.inner.Receive(ctx)
	if b.opts&LogRead == 0 {
		return f, err
	}
	if err != nil {
		b.logger.Debugf("receive failed: %v", err)
	} else if b.accept(f) {
		logBytes(b.logger, f.Payload(), "receive "+f.String()+": ")
	}
	return f, err
}

func (b *loggedBus) Close() error {
	return b.inner.Close()
}
