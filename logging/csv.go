package logging

import (
	"encoding/csv"
	"io"

	"github.com/gavinwade12/canLogger/protocols/can"
)

// CSVSink writes one row per decoded signal value:
// time, id, message, signal, raw, physical, unit, label.
// Unknown frames are written with the raw frame in place of the signal.
type CSVSink struct {
	w       *csv.Writer
	c       io.Closer
	started bool
}

var csvHeader = []string{"time", "id", "message", "signal", "raw", "physical", "unit", "label"}

// NewCSVSink returns a sink writing to w. If w is an io.Closer it's closed
// with the sink.
func NewCSVSink(w io.Writer) *CSVSink {
	s := &CSVSink{w: csv.NewWriter(w)}
	s.c, _ = w.(io.Closer)
	return s
}

func (s *CSVSink) Write(r Record) error {
	if !s.started {
		if err := s.w.Write(csvHeader); err != nil {
			return wrapSink(err, "csv")
		}
		s.started = true
	}

	ts := r.Time.Format(can.TimestampFormat)
	id := frameID(r.Frame)

	if r.Message == nil {
		if err := s.w.Write([]string{ts, id, "", "", r.Frame.String(), "", "", ""}); err != nil {
			return wrapSink(err, "csv")
		}
	}
	for _, v := range r.Values {
		row := []string{ts, id, r.Message.Name, v.Signal.Name, v.Raw.String(),
			formatPhysical(v.Physical), string(v.Unit), v.Label}
		if err := s.w.Write(row); err != nil {
			return wrapSink(err, "csv")
		}
	}
	s.w.Flush()
	return wrapSink(s.w.Error(), "csv")
}

func (s *CSVSink) Close() error {
	s.w.Flush()
	err := s.w.Error()
	if s.c != nil {
		if cerr := s.c.Close(); err == nil {
			err = cerr
		}
	}
	return wrapSink(err, "csv")
}
