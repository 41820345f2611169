package codec_test

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gavinwade12/canLogger/codec"
	"github.com/gavinwade12/canLogger/dbc"
	"github.com/gavinwade12/canLogger/protocols/can"
)

func message(length int, signals ...*dbc.Signal) *dbc.Message {
	m := &dbc.Message{ID: 0x100, Name: "Test", Length: length}
	for _, s := range signals {
		m.AddSignal(s)
	}
	return m
}

func TestPackUnpackIntegers(t *testing.T) {
	m := message(2,
		&dbc.Signal{Name: "U", BitStart: 0, BitLength: 8, LittleEndian: true, Kind: dbc.Unsigned},
		&dbc.Signal{Name: "S", BitStart: 8, BitLength: 8, LittleEndian: true, Kind: dbc.Signed},
	)

	f, err := codec.Pack(m, []codec.Value{codec.Unsigned(200), codec.Signed(-5)})
	require.NoError(t, err)
	assert.Equal(t, uint32(0x100), f.ID)
	assert.False(t, f.Extended)
	assert.Equal(t, []byte{200, 0xFB}, f.Payload())

	values, err := codec.Unpack(m, f.Payload())
	require.NoError(t, err)
	require.Len(t, values, 2)
	assert.Equal(t, uint64(200), values[0].Uint64())
	assert.Equal(t, int64(-5), values[1].Int64())
}

func TestPackBigEndian(t *testing.T) {
	m := message(4, &dbc.Signal{Name: "BE", BitStart: 16, BitLength: 16, Kind: dbc.Unsigned})

	f, err := codec.Pack(m, []codec.Value{codec.Unsigned(0x1234)})
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 0, 0x12, 0x34}, f.Payload())

	values, err := codec.Unpack(m, f.Payload())
	require.NoError(t, err)
	assert.Equal(t, uint64(0x1234), values[0].Uint64())

	le := message(4, &dbc.Signal{Name: "LE", BitStart: 16, BitLength: 16, LittleEndian: true, Kind: dbc.Unsigned})
	f, err = codec.Pack(le, []codec.Value{codec.Unsigned(0x1234)})
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 0, 0x34, 0x12}, f.Payload())
}

func TestPackBigEndianSigned(t *testing.T) {
	m := message(8, &dbc.Signal{Name: "BE", BitStart: 0, BitLength: 32, Kind: dbc.Signed})

	f, err := codec.Pack(m, []codec.Value{codec.Signed(-2)})
	require.NoError(t, err)
	assert.Equal(t, []byte{0xFF, 0xFF, 0xFF, 0xFE, 0, 0, 0, 0}, f.Payload())

	values, err := codec.Unpack(m, f.Payload())
	require.NoError(t, err)
	assert.Equal(t, int64(-2), values[0].Int64())
}

func TestSignExtension(t *testing.T) {
	m := message(8,
		&dbc.Signal{Name: "A", BitStart: 4, BitLength: 12, LittleEndian: true, Kind: dbc.Signed},
		&dbc.Signal{Name: "B", BitStart: 16, BitLength: 12, LittleEndian: true, Kind: dbc.Signed},
		&dbc.Signal{Name: "C", BitStart: 29, BitLength: 35, LittleEndian: true, Kind: dbc.Signed},
	)
	in := []codec.Value{codec.Signed(-100), codec.Signed(2047), codec.Signed(-(1 << 34))}

	f, err := codec.Pack(m, in)
	require.NoError(t, err)
	out, err := codec.Unpack(m, f.Payload())
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestPackUnpackFloats(t *testing.T) {
	m := message(8, &dbc.Signal{Name: "F", BitStart: 8, BitLength: 32, LittleEndian: true, Kind: dbc.Float32})

	f, err := codec.Pack(m, []codec.Value{codec.Float32(345.125)})
	require.NoError(t, err)
	assert.Equal(t, byte(0), f.Data[0])

	values, err := codec.Unpack(m, f.Payload())
	require.NoError(t, err)
	assert.Equal(t, float32(345.125), values[0].Float32())

	m = message(8, &dbc.Signal{Name: "D", BitStart: 0, BitLength: 64, LittleEndian: true, Kind: dbc.Float64})
	f, err = codec.Pack(m, []codec.Value{codec.Float64(-1.0e-300)})
	require.NoError(t, err)
	values, err = codec.Unpack(m, f.Payload())
	require.NoError(t, err)
	assert.Equal(t, -1.0e-300, values[0].Float64())

	f, err = codec.Pack(m, []codec.Value{codec.Float64(math.Inf(1))})
	require.NoError(t, err)
	values, err = codec.Unpack(m, f.Payload())
	require.NoError(t, err)
	assert.True(t, math.IsInf(values[0].Float64(), 1))
}

func TestPackFloatUnaligned(t *testing.T) {
	m := message(8,
		&dbc.Signal{Name: "Flag", BitStart: 0, BitLength: 3, LittleEndian: true, Kind: dbc.Unsigned},
		&dbc.Signal{Name: "F", BitStart: 3, BitLength: 32, LittleEndian: true, Kind: dbc.Float32},
	)
	in := []codec.Value{codec.Unsigned(5), codec.Float32(-0.15625)}
	f, err := codec.Pack(m, in)
	require.NoError(t, err)
	out, err := codec.Unpack(m, f.Payload())
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestPackErrors(t *testing.T) {
	u8 := &dbc.Signal{Name: "U", BitStart: 0, BitLength: 8, LittleEndian: true, Kind: dbc.Unsigned}

	tests := []struct {
		name   string
		m      *dbc.Message
		values []codec.Value
		err    error
	}{
		{"TooFewValues", message(1, u8), nil, codec.ErrValueCount},
		{"TooManyValues", message(1, u8), []codec.Value{codec.Unsigned(1), codec.Unsigned(2)}, codec.ErrValueCount},
		{"WrongKind", message(1, u8), []codec.Value{codec.Signed(1)}, codec.ErrKindMismatch},
		{"PastPayload", message(1, &dbc.Signal{Name: "X", BitStart: 4, BitLength: 8, Kind: dbc.Unsigned}),
			[]codec.Value{codec.Unsigned(1)}, codec.ErrSignalLayout},
		{"ZeroLength", message(1, &dbc.Signal{Name: "X", BitLength: 0}), []codec.Value{codec.Unsigned(1)}, codec.ErrSignalLayout},
		{"ShortFloat", message(8, &dbc.Signal{Name: "X", BitLength: 16, Kind: dbc.Float32}),
			[]codec.Value{codec.Float32(1)}, codec.ErrSignalLayout},
		{"LongFrame", message(9), nil, codec.ErrFrameLength},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := codec.Pack(tt.m, tt.values)
			assert.True(t, errors.Is(err, tt.err), "got %v", err)
			assert.Equal(t, can.Frame{}, f)
		})
	}
}

func TestUnpackErrors(t *testing.T) {
	m := message(8, &dbc.Signal{Name: "X", BitStart: 32, BitLength: 32, LittleEndian: true, Kind: dbc.Unsigned})
	_, err := codec.Unpack(m, []byte{1, 2, 3})
	assert.True(t, errors.Is(err, codec.ErrSignalLayout))

	_, err = codec.UnpackFrame(m, can.Frame{ID: 0x100, RTR: true, Len: 8})
	assert.Error(t, err)

	values, err := codec.UnpackFrame(m, can.Frame{ID: 0x100, Len: 8, Data: [8]byte{4: 0x78, 5: 0x56, 6: 0x34, 7: 0x12}})
	require.NoError(t, err)
	assert.Equal(t, uint64(0x12345678), values[0].Uint64())
}

func TestExtendedAndRequestFrames(t *testing.T) {
	m := &dbc.Message{ID: 0x80000000 | 0x18FEF100, Name: "Ext", Length: 8}

	f, err := codec.Pack(m, nil)
	require.NoError(t, err)
	assert.True(t, f.Extended)
	assert.Equal(t, uint32(0x18FEF100), f.ID)
	assert.NoError(t, f.Validate())

	r, err := codec.RequestFrame(m)
	require.NoError(t, err)
	assert.Equal(t, can.Frame{ID: 0x18FEF100, Extended: true, RTR: true, Len: 8}, r)

	_, err = codec.RequestFrame(&dbc.Message{Length: 12})
	assert.True(t, errors.Is(err, codec.ErrFrameLength))
}

func TestValueDescriptionLookup(t *testing.T) {
	db, err := dbc.ParseString(`BO_ 100 Axis0_Heartbeat: 8 ODrive
 SG_ Axis_State : 32|8@1+ (1,0) [0|255] "" ODrive
VAL_ 100 Axis_State 1 "IDLE" 2 "MOTOR_CALIBRATION"
`)
	require.NoError(t, err)
	m, err := db.MessageByID(100)
	require.NoError(t, err)
	s := m.Signals[0]

	values, err := codec.Unpack(m, []byte{0, 0, 0, 0, 1, 0, 0, 0})
	require.NoError(t, err)
	label, ok := codec.Label(s, values[0])
	assert.True(t, ok)
	assert.Equal(t, "IDLE", label)

	values, err = codec.Unpack(m, []byte{0, 0, 0, 0, 9, 0, 0, 0})
	require.NoError(t, err)
	label, ok = codec.Label(s, values[0])
	assert.False(t, ok)
	assert.Empty(t, label)

	_, ok = codec.Label(s, codec.Float32(1))
	assert.False(t, ok)
}

func TestPhysical(t *testing.T) {
	s := &dbc.Signal{Name: "Temp", BitLength: 8, Kind: dbc.Unsigned, Factor: 0.5, Offset: -40}
	assert.Equal(t, 10.0, codec.Physical(s, codec.Unsigned(100)))

	v, err := codec.FromPhysical(s, 10)
	require.NoError(t, err)
	assert.Equal(t, codec.Unsigned(100), v)

	_, err = codec.FromPhysical(s, -50)
	assert.Error(t, err)

	signed := &dbc.Signal{Name: "S", Kind: dbc.Signed, Factor: 0.1}
	v, err = codec.FromPhysical(signed, -1.26)
	require.NoError(t, err)
	assert.Equal(t, codec.Signed(-13), v)

	_, err = codec.FromPhysical(&dbc.Signal{Name: "Z"}, 1)
	assert.Error(t, err)
}
