package csrng

import (
	"encoding/binary"

	"csrngemu/internal/drbg"
)

// GenbitsSentinel is returned by a GENBITS read when nothing is being
// drained. Hardware leaves this case undefined.
const GenbitsSentinel uint32 = 0xCAFEF00D

const wordBytes = 4

// BlockSource hands out generated blocks in drain order.
type BlockSource interface {
	PopBlock() (drbg.Block, bool)
}

// words walks a block from its last byte toward its first, one
// big-endian word at a time.
type words struct {
	block  drbg.Block
	cursor int
}

func newWords(b drbg.Block) words {
	return words{block: b, cursor: len(b)}
}

func (w *words) len() int {
	return w.cursor / wordBytes
}

func (w *words) next() (uint32, bool) {
	if w.cursor == 0 {
		return 0, false
	}
	start := w.cursor - wordBytes
	v := binary.BigEndian.Uint32(w.block[start:w.cursor])
	w.cursor = start
	return v, true
}

// Genbits backs the GENBITS_VLD and GENBITS registers.
type Genbits struct {
	src     BlockSource
	current words
}

// NewGenbits drains blocks from src.
func NewGenbits(src BlockSource) *Genbits {
	return &Genbits{src: src}
}

// Valid reports 1 if a word is available. When the current block is
// exhausted it pulls the next one from the source.
func (g *Genbits) Valid() uint32 {
	if g.current.len() > 0 {
		return 1
	}
	b, ok := g.src.PopBlock()
	if !ok {
		return 0
	}
	g.current = newWords(b)
	return 1
}

// Next returns the next word of the block being drained, or
// GenbitsSentinel when there is none.
func (g *Genbits) Next() uint32 {
	v, ok := g.current.next()
	if !ok {
		return GenbitsSentinel
	}
	return v
}
