package codec

// Bits are numbered least-significant first within a byte, and bit n of a
// buffer is bit n%8 of byte n/8.
//
// The caller guarantees that every addressed byte is within bounds.

// PackBits copies the low blen bits of the byte-aligned src into dst,
// starting at bit sbit of byte sbyte. Bits of dst outside the written range
// are preserved.
func PackBits(dst, src []byte, sbyte, sbit, blen int) {
	if sbit == 0 {
		n := blen / 8
		copy(dst[sbyte:sbyte+n], src[:n])
		if rem := blen % 8; rem != 0 {
			mask := byte(1)<<rem - 1
			dst[sbyte+n] = dst[sbyte+n]&^mask | src[n]&mask
		}
		return
	}

	pos := sbyte*8 + sbit
	for i := 0; i < blen; i++ {
		bit := src[i/8] >> (i % 8) & 1
		d := &dst[pos/8]
		*d = *d&^(1<<(pos%8)) | bit<<(pos%8)
		pos++
	}
}

// UnpackBits copies blen bits of src, starting at bit sbit of byte sbyte,
// into the low bits of the byte-aligned dst. Bits of dst above blen are
// preserved.
func UnpackBits(dst, src []byte, sbyte, sbit, blen int) {
	if sbit == 0 {
		n := blen / 8
		copy(dst[:n], src[sbyte:sbyte+n])
		if rem := blen % 8; rem != 0 {
			mask := byte(1)<<rem - 1
			dst[n] = dst[n]&^mask | src[sbyte+n]&mask
		}
		return
	}

	pos := sbyte*8 + sbit
	for i := 0; i < blen; i++ {
		bit := src[pos/8] >> (pos % 8) & 1
		d := &dst[i/8]
		*d = *d&^(1<<(i%8)) | bit<<(i%8)
		pos++
	}
}
