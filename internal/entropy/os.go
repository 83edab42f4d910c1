package entropy

import "fmt"

// OSSource reads the host kernel RNG.
type OSSource struct{}

// NewOSSource returns a source backed by the operating system RNG.
func NewOSSource() *OSSource {
	return &OSSource{}
}

// SeedWords returns n fresh random words.
func (s *OSSource) SeedWords(n int) ([]uint32, error) {
	if err := checkCount(n); err != nil {
		return nil, err
	}
	buf := make([]byte, 4*n)
	if err := readSystemRandom(buf); err != nil {
		return nil, fmt.Errorf("entropy: read system RNG: %w", err)
	}
	return wordsFromBytes(buf), nil
}
