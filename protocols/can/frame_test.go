package can_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gavinwade12/canLogger/protocols/can"
)

func TestFrameValidate(t *testing.T) {
	tests := []struct {
		name  string
		frame can.Frame
		err   error
	}{
		{"Standard", can.Frame{ID: 0x7FF, Len: 8}, nil},
		{"StandardTooLarge", can.Frame{ID: 0x800}, can.ErrInvalidID},
		{"Extended", can.Frame{ID: 0x1FFFFFFF, Extended: true}, nil},
		{"ExtendedTooLarge", can.Frame{ID: 0x20000000, Extended: true}, can.ErrInvalidID},
		{"TooLong", can.Frame{ID: 1, Len: 9}, can.ErrInvalidLength},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.frame.Validate()
			if tt.err == nil {
				assert.NoError(t, err)
				return
			}
			assert.True(t, errors.Is(err, tt.err), "got %v", err)
		})
	}
}

func TestFrameBinary(t *testing.T) {
	f := can.Frame{ID: 0x1ABCDEF, Extended: true, Len: 3, Data: [8]byte{1, 2, 3}}
	b, err := f.MarshalBinary()
	require.NoError(t, err)
	require.Len(t, b, can.BinaryFrameSize)
	assert.Equal(t, []byte{0xEF, 0xCD, 0xAB, 0x81, 3, 0, 0, 0, 1, 2, 3, 0, 0, 0, 0, 0}, b)

	var got can.Frame
	require.NoError(t, got.UnmarshalBinary(b))
	assert.Equal(t, f, got)

	rtr := can.Frame{ID: 0x10, RTR: true, Len: 2}
	b, err = rtr.MarshalBinary()
	require.NoError(t, err)
	require.NoError(t, got.UnmarshalBinary(b))
	assert.Equal(t, rtr, got)

	assert.Error(t, got.UnmarshalBinary(b[:8]))
	_, err = can.Frame{ID: 0x800}.MarshalBinary()
	assert.Error(t, err)
}

func TestFrameString(t *testing.T) {
	tests := []struct {
		frame can.Frame
		text  string
	}{
		{can.Frame{ID: 0x123, Len: 4, Data: [8]byte{0xDE, 0xAD, 0xBE, 0xEF}}, "123#DEADBEEF"},
		{can.Frame{ID: 0x64}, "064#"},
		{can.Frame{ID: 0x1F334455, Extended: true, RTR: true}, "1F334455#R"},
		{can.Frame{ID: 0x7, RTR: true, Len: 8}, "007#R8"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.text, tt.frame.String())

		f, err := can.ParseFrame(tt.text)
		require.NoError(t, err, tt.text)
		assert.Equal(t, tt.frame, f, tt.text)
	}
}

func TestParseFrame(t *testing.T) {
	f, err := can.ParseFrame("  1A#01.02.03 ")
	require.NoError(t, err)
	assert.Equal(t, can.Frame{ID: 0x1A, Len: 3, Data: [8]byte{1, 2, 3}}, f)

	for _, s := range []string{"", "#00", "123", "XYZ#00", "123#0", "123#000102030405060708", "800#00", "123#Rx"} {
		_, err := can.ParseFrame(s)
		assert.Error(t, err, s)
	}
}
