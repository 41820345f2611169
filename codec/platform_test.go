package codec

import (
	"encoding/binary"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gavinwade12/canLogger/dbc"
)

func withHost(t *testing.T, order binary.ByteOrder, f32, f64 bool) {
	t.Helper()
	prevOrder, prev32, prev64 := hostByteOrder, float32IEEE, float64IEEE
	hostByteOrder, float32IEEE, float64IEEE = order, f32, f64
	t.Cleanup(func() {
		hostByteOrder, float32IEEE, float64IEEE = prevOrder, prev32, prev64
	})
}

func testMessage() *dbc.Message {
	m := &dbc.Message{ID: 1, Name: "M", Length: 8}
	m.AddSignal(&dbc.Signal{Name: "LE", BitStart: 0, BitLength: 12, LittleEndian: true, Kind: dbc.Signed})
	m.AddSignal(&dbc.Signal{Name: "BE", BitStart: 16, BitLength: 16, Kind: dbc.Unsigned})
	m.AddSignal(&dbc.Signal{Name: "F", BitStart: 32, BitLength: 32, LittleEndian: true, Kind: dbc.Float32})
	return m
}

var testValues = []Value{Signed(-3), Unsigned(0xBEEF), Float32(1.5)}

func TestHostDetection(t *testing.T) {
	require.NotNil(t, HostByteOrder())
	assert.True(t, float32IEEE)
	assert.True(t, float64IEEE)
}

func TestIntegerLayoutIsHostIndependent(t *testing.T) {
	var payloads [][]byte
	for _, order := range []binary.ByteOrder{binary.LittleEndian, binary.BigEndian} {
		withHost(t, order, true, true)

		f, err := Pack(testMessage(), testValues)
		require.NoError(t, err)
		payloads = append(payloads, append([]byte(nil), f.Data[:4]...))

		values, err := Unpack(testMessage(), f.Payload())
		require.NoError(t, err)
		assert.Equal(t, testValues, values, "host %s", order)
	}
	assert.Equal(t, []byte{0xFD, 0x0F, 0xBE, 0xEF}, payloads[0])
	assert.Equal(t, payloads[0], payloads[1])
}

func TestFloatsFollowHostLayout(t *testing.T) {
	m := &dbc.Message{ID: 1, Name: "M", Length: 4}
	m.AddSignal(&dbc.Signal{Name: "F", BitLength: 32, LittleEndian: true, Kind: dbc.Float32})

	withHost(t, binary.LittleEndian, true, true)
	f, err := Pack(m, []Value{Float32(1)})
	require.NoError(t, err)
	assert.Equal(t, []byte{0x00, 0x00, 0x80, 0x3F}, f.Payload())

	withHost(t, binary.BigEndian, true, true)
	f, err = Pack(m, []Value{Float32(1)})
	require.NoError(t, err)
	assert.Equal(t, []byte{0x3F, 0x80, 0x00, 0x00}, f.Payload())
}

func TestPlatformCapability(t *testing.T) {
	t.Run("Float32", func(t *testing.T) {
		withHost(t, binary.LittleEndian, false, true)
		f, err := Pack(testMessage(), testValues)
		assert.True(t, errors.Is(err, ErrPlatformCapability))
		assert.Equal(t, [8]byte{}, f.Data)

		_, err = Unpack(testMessage(), make([]byte, 8))
		assert.True(t, errors.Is(err, ErrPlatformCapability))

		ints := &dbc.Message{ID: 2, Name: "Ints", Length: 1}
		ints.AddSignal(&dbc.Signal{Name: "U", BitLength: 8, LittleEndian: true})
		_, err = Pack(ints, []Value{Unsigned(1)})
		assert.NoError(t, err)
	})

	t.Run("Float64", func(t *testing.T) {
		withHost(t, binary.LittleEndian, true, false)
		m := &dbc.Message{ID: 1, Name: "M", Length: 8}
		m.AddSignal(&dbc.Signal{Name: "D", BitLength: 64, LittleEndian: true, Kind: dbc.Float64})
		_, err := Pack(m, []Value{Float64(1)})
		assert.True(t, errors.Is(err, ErrPlatformCapability))
	})

	t.Run("ByteOrder", func(t *testing.T) {
		withHost(t, nil, true, true)
		_, err := Pack(&dbc.Message{Name: "Empty"}, nil)
		assert.True(t, errors.Is(err, ErrPlatformCapability))
	})
}
