package dbc

import (
	"sort"

	"github.com/pkg/errors"
)

// ValueKind is the numeric interpretation of a signal's raw bits.
type ValueKind int

// The supported value kinds. They are mutually exclusive.
const (
	Unsigned ValueKind = iota
	Signed
	Float32
	Float64
)

func (k ValueKind) String() string {
	switch k {
	case Unsigned:
		return "unsigned"
	case Signed:
		return "signed"
	case Float32:
		return "float32"
	case Float64:
		return "float64"
	}
	return "unknown"
}

// ValueDescription maps one raw signal value to a display label.
type ValueDescription struct {
	Value int64
	Label string
}

// Signal is a bit-addressed field within a message's payload.
type Signal struct {
	Name string

	// Multiplex holds the multiplexer indicator ("M", "m3") when present.
	Multiplex string

	BitStart     uint // 0-based offset into the message's bit space
	BitLength    uint // 1-64
	LittleEndian bool
	Kind         ValueKind

	// Physical-unit metadata. The codec doesn't apply any of these.
	Factor float64
	Offset float64
	Min    float64
	Max    float64
	Unit   string

	Receivers         []string
	ValueDescriptions []ValueDescription
	Comment           string
}

// SetValueDescriptions replaces the signal's value-enumeration.
func (s *Signal) SetValueDescriptions(vd []ValueDescription) {
	s.ValueDescriptions = vd
}

// ValueDescription returns the label for the given raw value. ok is false
// when the value has no mapping.
func (s *Signal) ValueDescription(raw int64) (label string, ok bool) {
	for _, vd := range s.ValueDescriptions {
		if vd.Value == raw {
			return vd.Label, true
		}
	}
	return "", false
}

// Message is the schema of a single CAN frame.
type Message struct {
	ID      uint32
	Name    string
	Length  int // payload bytes
	Sender  string
	Comment string

	// Signals are kept in ascending BitStart order.
	Signals []*Signal
}

const (
	extendedIDFlag = 0x80000000
	extendedIDMask = 0x1FFFFFFF
	standardIDMask = 0x7FF
)

// IsExtended reports whether the DBC id denotes a 29-bit identifier.
func (m *Message) IsExtended() bool {
	return m.ID&extendedIDFlag != 0
}

// CANID returns the identifier as it appears on the bus.
func (m *Message) CANID() uint32 {
	if m.IsExtended() {
		return m.ID & extendedIDMask
	}
	return m.ID & standardIDMask
}

// AddSignal inserts the signal after any signals with a lower or equal BitStart.
func (m *Message) AddSignal(s *Signal) {
	i := sort.Search(len(m.Signals), func(i int) bool {
		return m.Signals[i].BitStart > s.BitStart
	})
	m.Signals = append(m.Signals, nil)
	copy(m.Signals[i+1:], m.Signals[i:])
	m.Signals[i] = s
}

// Signal returns the first signal with the given name.
func (m *Message) Signal(name string) (*Signal, error) {
	for _, s := range m.Signals {
		if s.Name == name {
			return s, nil
		}
	}
	return nil, errors.Wrapf(ErrSignalNotFound, "%s in message %s", name, m.Name)
}

// Database is a parsed DBC file. It is built once by Parse and only read
// afterwards, so lookups and codec calls may run concurrently.
type Database struct {
	Version string
	Nodes   []string

	// NodeComments holds CM_ BU_ comments keyed by node name.
	NodeComments map[string]string

	// Messages are kept in ascending ID order.
	Messages []*Message
}

// AddMessage inserts the message after any messages with a lower or equal ID.
func (db *Database) AddMessage(m *Message) {
	i := sort.Search(len(db.Messages), func(i int) bool {
		return db.Messages[i].ID > m.ID
	})
	db.Messages = append(db.Messages, nil)
	copy(db.Messages[i+1:], db.Messages[i:])
	db.Messages[i] = m
}

// MessageByID returns the message with the given DBC id.
func (db *Database) MessageByID(id uint32) (*Message, error) {
	i := sort.Search(len(db.Messages), func(i int) bool {
		return db.Messages[i].ID >= id
	})
	if i == len(db.Messages) || db.Messages[i].ID != id {
		return nil, errors.Wrapf(ErrMessageNotFound, "id %d", id)
	}
	return db.Messages[i], nil
}

// MessageByName returns the first message with the given name.
func (db *Database) MessageByName(name string) (*Message, error) {
	for _, m := range db.Messages {
		if m.Name == name {
			return m, nil
		}
	}
	return nil, errors.Wrapf(ErrMessageNotFound, "name %s", name)
}

// MessageByFrameID finds the message for an identifier read off the bus.
func (db *Database) MessageByFrameID(id uint32, extended bool) (*Message, error) {
	if extended {
		id |= extendedIDFlag
	}
	return db.MessageByID(id)
}
