package codec_test

import (
	"bytes"
	"encoding/binary"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	einride "go.einride.tech/can"

	"github.com/gavinwade12/canLogger/codec"
)

// refPack is the obvious bit-at-a-time copy.
func refPack(dst, src []byte, pos, blen int) {
	for i := 0; i < blen; i++ {
		bit := (src[i/8] >> (i % 8)) & 1
		p := pos + i
		dst[p/8] = dst[p/8]&^(1<<(p%8)) | bit<<(p%8)
	}
}

// lowBits clears everything above the low blen bits of b.
func lowBits(b []byte, blen int) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	for i := blen; i < len(out)*8; i++ {
		out[i/8] &^= 1 << (i % 8)
	}
	return out
}

func TestBitsByteAligned(t *testing.T) {
	src := []byte{0x01, 0x23, 0x45, 0x67, 0x89, 0xAB, 0xCD, 0xEF}
	for blen := 8; blen <= 64; blen += 8 {
		for sbyte := 0; sbyte+blen/8 <= 8; sbyte++ {
			frame := make([]byte, 8)
			codec.PackBits(frame, src, sbyte, 0, blen)
			assert.Equal(t, src[:blen/8], frame[sbyte:sbyte+blen/8])

			out := make([]byte, 8)
			codec.UnpackBits(out, frame, sbyte, 0, blen)
			assert.Equal(t, src[:blen/8], out[:blen/8], "sbyte=%d blen=%d", sbyte, blen)
		}
	}
}

func TestBitsArbitraryOffset(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	src := make([]byte, 8)
	for sbyte := 0; sbyte < 8; sbyte++ {
		for sbit := 0; sbit < 8; sbit++ {
			for blen := 1; blen <= 64; blen++ {
				rng.Read(src)

				frame := make([]byte, 16)
				codec.PackBits(frame, src, sbyte, sbit, blen)

				want := make([]byte, 16)
				refPack(want, src, sbyte*8+sbit, blen)
				require.Equal(t, want, frame, "pack sbyte=%d sbit=%d blen=%d", sbyte, sbit, blen)

				out := make([]byte, 8)
				codec.UnpackBits(out, frame, sbyte, sbit, blen)
				require.Equal(t, lowBits(src, blen), out, "unpack sbyte=%d sbit=%d blen=%d", sbyte, sbit, blen)
			}
		}
	}
}

func TestPackBitsPreservesNeighbours(t *testing.T) {
	for _, sbit := range []int{0, 3} {
		frame := bytes.Repeat([]byte{0xFF}, 4)
		codec.PackBits(frame, []byte{0x00, 0x00}, 1, sbit, 10)

		want := bytes.Repeat([]byte{0xFF}, 4)
		refPack(want, []byte{0, 0}, 8+sbit, 10)
		assert.Equal(t, want, frame, "sbit=%d", sbit)
	}

	// fast path merges the trailing partial byte
	frame := []byte{0x00, 0xF0}
	codec.PackBits(frame, []byte{0xAA, 0x05}, 0, 0, 12)
	assert.Equal(t, []byte{0xAA, 0xF5}, frame)
}

func TestUnpackBitsIgnoresNeighbours(t *testing.T) {
	frame := []byte{0xFF, 0x5A, 0xFF}
	out := make([]byte, 2)
	codec.UnpackBits(out, frame, 1, 2, 4)
	assert.Equal(t, []byte{0x06, 0x00}, out)
}

func TestBitsMatchEinrideLittleEndian(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	for start := 0; start < 64; start++ {
		for length := 1; start+length <= 64; length++ {
			v := rng.Uint64()
			if length < 64 {
				v &= 1<<length - 1
			}
			var want einride.Data
			want.SetUnsignedBitsLittleEndian(uint8(start), uint8(length), v)

			src := make([]byte, 8)
			binary.LittleEndian.PutUint64(src, v)
			got := make([]byte, 8)
			codec.PackBits(got, src, start/8, start%8, length)
			require.Equal(t, want[:], got, "start=%d length=%d", start, length)

			out := make([]byte, 8)
			codec.UnpackBits(out, got, start/8, start%8, length)
			require.Equal(t, want.UnsignedBitsLittleEndian(uint8(start), uint8(length)),
				binary.LittleEndian.Uint64(out))
		}
	}
}
