package codec

import (
	"encoding/binary"
	"math"

	"github.com/pkg/errors"

	"github.com/gavinwade12/canLogger/dbc"
	"github.com/gavinwade12/canLogger/protocols/can"
)

var (
	// ErrPlatformCapability is returned when the host can't represent a
	// signal's value kind natively. Nothing is written when it's returned.
	ErrPlatformCapability = errors.New("platform capability")

	// ErrValueCount is returned when the number of values doesn't match the
	// number of signals in the message.
	ErrValueCount = errors.New("value count doesn't match signal count")

	// ErrKindMismatch is returned when a value's kind differs from its signal's.
	ErrKindMismatch = errors.New("value kind doesn't match signal kind")

	// ErrSignalLayout is returned when a signal doesn't fit the payload or its
	// bit length doesn't suit its kind.
	ErrSignalLayout = errors.New("invalid signal layout")

	// ErrFrameLength is returned for messages longer than a classical CAN frame.
	ErrFrameLength = errors.New("message length exceeds 8 bytes")
)

// Pack encodes values into a frame for m. There must be exactly one value per
// signal, in the order of m.Signals, and each value's kind must match its
// signal's kind.
//
// Integers are laid out in the signal's byte order. Floats are copied as the
// host's raw bit pattern and are never byte-swapped.
//
// Every check runs before anything is written, and the frame's payload always
// starts zeroed.
func Pack(m *dbc.Message, values []Value) (can.Frame, error) {
	if err := checkPlatform(m); err != nil {
		return can.Frame{}, err
	}
	if m.Length < 0 || m.Length > can.MaxDataLength {
		return can.Frame{}, errors.Wrapf(ErrFrameLength, "message %s is %d bytes", m.Name, m.Length)
	}
	if len(values) != len(m.Signals) {
		return can.Frame{}, errors.Wrapf(ErrValueCount, "message %s has %d signals, got %d values",
			m.Name, len(m.Signals), len(values))
	}
	for i, s := range m.Signals {
		if err := checkSignal(s, m.Length); err != nil {
			return can.Frame{}, err
		}
		if values[i].Kind() != s.Kind {
			return can.Frame{}, errors.Wrapf(ErrKindMismatch, "signal %s is %s, got %s",
				s.Name, s.Kind, values[i].Kind())
		}
	}

	f := can.Frame{ID: m.CANID(), Extended: m.IsExtended(), Len: uint8(m.Length)}
	payload := f.Payload()
	for i, s := range m.Signals {
		packSignal(payload, s, values[i])
	}
	return f, nil
}

// Unpack decodes one value per signal of m from data, in the order of
// m.Signals.
func Unpack(m *dbc.Message, data []byte) ([]Value, error) {
	if err := checkPlatform(m); err != nil {
		return nil, err
	}
	for _, s := range m.Signals {
		if err := checkSignal(s, len(data)); err != nil {
			return nil, err
		}
	}

	values := make([]Value, len(m.Signals))
	for i, s := range m.Signals {
		values[i] = unpackSignal(data, s)
	}
	return values, nil
}

// UnpackFrame decodes the payload of f.
func UnpackFrame(m *dbc.Message, f can.Frame) ([]Value, error) {
	if f.RTR {
		return nil, errors.Errorf("frame %s is a remote request and has no payload", f)
	}
	return Unpack(m, f.Payload())
}

// RequestFrame returns a remote transmission request for m.
func RequestFrame(m *dbc.Message) (can.Frame, error) {
	if m.Length < 0 || m.Length > can.MaxDataLength {
		return can.Frame{}, errors.Wrapf(ErrFrameLength, "message %s is %d bytes", m.Name, m.Length)
	}
	return can.Frame{ID: m.CANID(), Extended: m.IsExtended(), RTR: true, Len: uint8(m.Length)}, nil
}

// Label returns the value-enumeration label for v. ok is false when v is a
// float or has no mapping.
func Label(s *dbc.Signal, v Value) (label string, ok bool) {
	raw, ok := v.Raw()
	if !ok {
		return "", false
	}
	return s.ValueDescription(raw)
}

// Physical scales v by the signal's factor and offset.
func Physical(s *dbc.Signal, v Value) float64 {
	return v.Number()*s.Factor + s.Offset
}

// FromPhysical converts a physical quantity back into a raw value of the
// signal's kind, rounding to the nearest integer for integer kinds.
func FromPhysical(s *dbc.Signal, phys float64) (Value, error) {
	if s.Factor == 0 {
		return Value{}, errors.Errorf("signal %s has a zero factor", s.Name)
	}
	raw := (phys - s.Offset) / s.Factor
	switch s.Kind {
	case dbc.Unsigned:
		if raw < 0 {
			return Value{}, errors.Errorf("signal %s: %v is below the unsigned range", s.Name, phys)
		}
		return Unsigned(uint64(math.Round(raw))), nil
	case dbc.Signed:
		return Signed(int64(math.Round(raw))), nil
	case dbc.Float32:
		return Float32(float32(raw)), nil
	case dbc.Float64:
		return Float64(raw), nil
	}
	return Value{}, errors.Wrapf(ErrKindMismatch, "signal %s", s.Name)
}

func checkSignal(s *dbc.Signal, length int) error {
	if s.BitLength < 1 || s.BitLength > 64 {
		return errors.Wrapf(ErrSignalLayout, "signal %s is %d bits", s.Name, s.BitLength)
	}
	if s.BitStart+s.BitLength > uint(8*length) {
		return errors.Wrapf(ErrSignalLayout, "signal %s needs bits %d-%d of a %d byte payload",
			s.Name, s.BitStart, s.BitStart+s.BitLength-1, length)
	}
	switch {
	case s.Kind == dbc.Float32 && s.BitLength != 32,
		s.Kind == dbc.Float64 && s.BitLength != 64:
		return errors.Wrapf(ErrSignalLayout, "signal %s is %s but %d bits", s.Name, s.Kind, s.BitLength)
	}
	return nil
}

func byteLen(s *dbc.Signal) int {
	return int(s.BitLength+7) / 8
}

func packSignal(payload []byte, s *dbc.Signal, v Value) {
	var native [8]byte
	var src []byte
	switch s.Kind {
	case dbc.Float32:
		hostByteOrder.PutUint32(native[:], uint32(v.bits))
		src = native[:4]
	case dbc.Float64:
		hostByteOrder.PutUint64(native[:], v.bits)
		src = native[:]
	default:
		hostByteOrder.PutUint64(native[:], v.bits)
		src = lowBytes(native[:], byteLen(s))
		if s.LittleEndian != (hostByteOrder == binary.LittleEndian) {
			reverse(src)
		}
	}
	PackBits(payload, src, int(s.BitStart/8), int(s.BitStart%8), int(s.BitLength))
}

func unpackSignal(data []byte, s *dbc.Signal) Value {
	var native [8]byte
	sbyte, sbit, blen := int(s.BitStart/8), int(s.BitStart%8), int(s.BitLength)
	switch s.Kind {
	case dbc.Float32:
		UnpackBits(native[:4], data, sbyte, sbit, blen)
		return Float32(math.Float32frombits(hostByteOrder.Uint32(native[:4])))
	case dbc.Float64:
		UnpackBits(native[:], data, sbyte, sbit, blen)
		return Float64(math.Float64frombits(hostByteOrder.Uint64(native[:])))
	}

	dst := lowBytes(native[:], byteLen(s))
	UnpackBits(dst, data, sbyte, sbit, blen)
	if s.LittleEndian != (hostByteOrder == binary.LittleEndian) {
		reverse(dst)
	}
	raw := hostByteOrder.Uint64(native[:])

	if s.Kind == dbc.Signed {
		shift := 64 - blen
		return Signed(int64(raw<<shift) >> shift)
	}
	return Unsigned(raw)
}

// lowBytes returns the n least significant bytes of a host-ordered 8 byte
// integer.
func lowBytes(b []byte, n int) []byte {
	if hostByteOrder == binary.BigEndian {
		return b[8-n:]
	}
	return b[:n]
}

func reverse(b []byte) {
	for i, j := 0, len(b)-1; i < j; i, j = i+1, j-1 {
		b[i], b[j] = b[j], b[i]
	}
}
