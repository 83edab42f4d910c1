package drbg

import "encoding/binary"

const wordLen = 4

// IncrementBlock adds one to b as a big-endian integer, wrapping at 2^128.
func IncrementBlock(b *Block) {
	for i := BlockLen - 1; i >= 0; i-- {
		b[i]++
		if b[i] != 0 {
			return
		}
	}
}

// MassageSeed converts seed words into seed material. Words are taken
// from the end of the input and written big-endian from offset 0, so the
// last word lands in bytes 0..3. Words beyond SeedLen/4 are ignored and
// unfilled bytes stay zero.
func MassageSeed(words []uint32) SeedMaterial {
	var out SeedMaterial
	off := 0
	for i := len(words) - 1; i >= 0 && off < SeedLen; i-- {
		binary.BigEndian.PutUint32(out[off:off+wordLen], words[i])
		off += wordLen
	}
	return out
}
