package logging

import (
	"bufio"
	"encoding/hex"
	"io"
	"time"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type jsonValue struct {
	Signal   string  `json:"signal"`
	Raw      string  `json:"raw"`
	Physical float64 `json:"physical"`
	Unit     string  `json:"unit,omitempty"`
	Label    string  `json:"label,omitempty"`
}

type jsonRecord struct {
	Time     time.Time   `json:"time"`
	ID       uint32      `json:"id"`
	Extended bool        `json:"extended,omitempty"`
	RTR      bool        `json:"rtr,omitempty"`
	Data     string      `json:"data"`
	Message  string      `json:"message,omitempty"`
	Values   []jsonValue `json:"values,omitempty"`
}

func newJSONRecord(r Record) jsonRecord {
	jr := jsonRecord{
		Time:     r.Time,
		ID:       r.Frame.ID,
		Extended: r.Frame.Extended,
		RTR:      r.Frame.RTR,
		Data:     hex.EncodeToString(r.Frame.Payload()),
		Message:  r.messageName(),
	}
	for _, v := range r.Values {
		jr.Values = append(jr.Values, jsonValue{
			Signal:   v.Signal.Name,
			Raw:      v.Raw.String(),
			Physical: v.Physical,
			Unit:     string(v.Unit),
			Label:    v.Label,
		})
	}
	return jr
}

// MarshalRecord returns the JSON form of a record, as written by JSONSink and
// published by MQTTSink.
func MarshalRecord(r Record) ([]byte, error) {
	return json.Marshal(newJSONRecord(r))
}

// JSONSink writes records as newline-delimited JSON.
type JSONSink struct {
	w *bufio.Writer
	c io.Closer
}

// NewJSONSink returns a sink writing to w. If w is an io.Closer it's closed
// with the sink.
func NewJSONSink(w io.Writer) *JSONSink {
	s := &JSONSink{w: bufio.NewWriter(w)}
	s.c, _ = w.(io.Closer)
	return s
}

func (s *JSONSink) Write(r Record) error {
	b, err := MarshalRecord(r)
	if err != nil {
		return wrapSink(err, "json")
	}
	b = append(b, '\n')
	if _, err = s.w.Write(b); err != nil {
		return wrapSink(err, "json")
	}
	return wrapSink(s.w.Flush(), "json")
}

func (s *JSONSink) Close() error {
	err := s.w.Flush()
	if s.c != nil {
		if cerr := s.c.Close(); err == nil {
			err = cerr
		}
	}
	return wrapSink(err, "json")
}
