package codec

import (
	"math"
	"strconv"

	"github.com/gavinwade12/canLogger/dbc"
)

// Value is one signal value tagged with its numeric kind. The zero Value is
// Unsigned(0).
type Value struct {
	kind dbc.ValueKind
	bits uint64
}

func Unsigned(v uint64) Value {
	return Value{kind: dbc.Unsigned, bits: v}
}

func Signed(v int64) Value {
	return Value{kind: dbc.Signed, bits: uint64(v)}
}

func Float32(v float32) Value {
	return Value{kind: dbc.Float32, bits: uint64(math.Float32bits(v))}
}

func Float64(v float64) Value {
	return Value{kind: dbc.Float64, bits: math.Float64bits(v)}
}

// Kind returns the variant held by v.
func (v Value) Kind() dbc.ValueKind {
	return v.kind
}

// Uint64 returns the value of an Unsigned. It panics for any other kind.
func (v Value) Uint64() uint64 {
	v.must(dbc.Unsigned)
	return v.bits
}

// Int64 returns the value of a Signed. It panics for any other kind.
func (v Value) Int64() int64 {
	v.must(dbc.Signed)
	return int64(v.bits)
}

// Float32 returns the value of a Float32. It panics for any other kind.
func (v Value) Float32() float32 {
	v.must(dbc.Float32)
	return math.Float32frombits(uint32(v.bits))
}

// Float64 returns the value of a Float64. It panics for any other kind.
func (v Value) Float64() float64 {
	v.must(dbc.Float64)
	return math.Float64frombits(v.bits)
}

// Raw returns an integer value as the int64 that value-enumerations are
// keyed by. ok is false for floats.
func (v Value) Raw() (raw int64, ok bool) {
	switch v.kind {
	case dbc.Unsigned, dbc.Signed:
		return int64(v.bits), true
	}
	return 0, false
}

// Number converts any kind to float64.
func (v Value) Number() float64 {
	switch v.kind {
	case dbc.Signed:
		return float64(int64(v.bits))
	case dbc.Float32:
		return float64(math.Float32frombits(uint32(v.bits)))
	case dbc.Float64:
		return math.Float64frombits(v.bits)
	}
	return float64(v.bits)
}

func (v Value) String() string {
	switch v.kind {
	case dbc.Signed:
		return strconv.FormatInt(int64(v.bits), 10)
	case dbc.Float32:
		return strconv.FormatFloat(float64(v.Float32()), 'g', -1, 32)
	case dbc.Float64:
		return strconv.FormatFloat(v.Float64(), 'g', -1, 64)
	}
	return strconv.FormatUint(v.bits, 10)
}

// ParseValue parses s as a value of the given kind.
func ParseValue(s string, kind dbc.ValueKind) (Value, error) {
	switch kind {
	case dbc.Unsigned:
		u, err := strconv.ParseUint(s, 0, 64)
		return Unsigned(u), err
	case dbc.Signed:
		i, err := strconv.ParseInt(s, 0, 64)
		return Signed(i), err
	case dbc.Float32:
		f, err := strconv.ParseFloat(s, 32)
		return Float32(float32(f)), err
	case dbc.Float64:
		f, err := strconv.ParseFloat(s, 64)
		return Float64(f), err
	}
	return Value{}, ErrKindMismatch
}

func (v Value) must(k dbc.ValueKind) {
	if v.kind != k {
		panic("codec: " + k.String() + " accessor called on " + v.kind.String() + " value")
	}
}
