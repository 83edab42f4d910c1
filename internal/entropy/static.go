package entropy

import "fmt"

// DefaultStaticWords is the entropy-source output assumed by the
// reference firmware tests. It has no cryptographic value.
var DefaultStaticWords = []uint32{
	0x4B7DE947, 0x27E4ED3E, 0xF763FC5D, 0x11731D9D, 0xA08B3943, 0x71DC56AA,
	0xF4ECBEBA, 0x10518E4B, 0xE743CC50, 0x65693560, 0xF57AD687, 0x33F63B65,
}

// StaticSource returns the same words on every call.
type StaticSource struct {
	words []uint32
}

// NewStaticSource serves words, or DefaultStaticWords when words is empty.
func NewStaticSource(words []uint32) *StaticSource {
	if len(words) == 0 {
		words = DefaultStaticWords
	}
	return &StaticSource{words: append([]uint32(nil), words...)}
}

// SeedWords returns the first n configured words.
func (s *StaticSource) SeedWords(n int) ([]uint32, error) {
	if err := checkCount(n); err != nil {
		return nil, err
	}
	if n > len(s.words) {
		return nil, fmt.Errorf("%w: have %d, want %d", ErrShortSeed, len(s.words), n)
	}
	return append([]uint32(nil), s.words[:n]...), nil
}
