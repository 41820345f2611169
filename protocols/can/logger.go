package can

import (
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
)

type Logger interface {
	Debug(message string)
	Debugf(message string, args ...interface{})
}

type nopLogger struct{}

func (l nopLogger) Debug(message string) {}

func (l nopLogger) Debugf(message string, args ...interface{}) {}

var NopLogger Logger = nopLogger{}

// TimestampFormat is used by the text formatter of DefaultLogger.
const TimestampFormat = "2006-01-02T15:04:05.000000Z07:00"

type logrusLogger struct {
	l logrus.FieldLogger
}

func (l *logrusLogger) Debug(message string) {
	l.l.Debug(message)
}

func (l *logrusLogger) Debugf(message string, args ...interface{}) {
	l.l.Debugf(message, args...)
}

// NewLogrusLogger adapts a logrus logger or entry.
func NewLogrusLogger(l logrus.FieldLogger) Logger {
	return &logrusLogger{l}
}

var DefaultLogger = func(out io.Writer) Logger {
	l := logrus.New()
	l.SetOutput(out)
	l.SetLevel(logrus.DebugLevel)
	l.SetFormatter(&logrus.TextFormatter{
		TimestampFormat: TimestampFormat,
		DisableColors:   true,
		FullTimestamp:   true,
	})
	return NewLogrusLogger(l.WithField("component", "can"))
}

func logBytes(l Logger, b []byte, prefix string) {
	s := prefix
	for _, bb := range b {
		s += fmt.Sprintf("0x%x ", bb)
	}
	l.Debug(s)
}
