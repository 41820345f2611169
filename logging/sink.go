package logging

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/gavinwade12/canLogger/protocols/can"
)

// Sink consumes decoded records.
type Sink interface {
	Write(Record) error
	Close() error
}

// Run writes every record to each sink until records is closed, then closes
// the sinks. A failing sink is closed and dropped; the others keep going.
// The first error encountered is returned.
func Run(records <-chan Record, sinks ...Sink) error {
	var first error
	live := append([]Sink(nil), sinks...)
	for rec := range records {
		for i := 0; i < len(live); i++ {
			if err := live[i].Write(rec); err != nil {
				if first == nil {
					first = err
				}
				live[i].Close()
				live = append(live[:i], live[i+1:]...)
				i--
			}
		}
	}
	for _, s := range live {
		if err := s.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// messageName returns the record's message name, or "" for unknown frames.
func (r Record) messageName() string {
	if r.Message == nil {
		return ""
	}
	return r.Message.Name
}

func formatPhysical(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// frameID formats the identifier the way candump does.
func frameID(f can.Frame) string {
	id, _, _ := strings.Cut(f.String(), "#")
	return id
}

func wrapSink(err error, sink string) error {
	if err == nil {
		return nil
	}
	return errors.Wrapf(err, "%s sink", strings.ToLower(sink))
}
