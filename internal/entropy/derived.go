package entropy

import (
	"crypto/sha256"
	"fmt"
	"io"
	"sync"

	"golang.org/x/crypto/hkdf"
)

const derivedSalt = "csrngemu entropy v1"

// DerivedSource expands a passphrase into seed words with HKDF-SHA256.
// Each call uses a fresh info string, so a simulation run sees a
// distinct seed per INSTANTIATE yet the same sequence every run.
type DerivedSource struct {
	mu     sync.Mutex
	secret []byte
	calls  uint64
}

// NewDerivedSource keys a source with passphrase.
func NewDerivedSource(passphrase string) (*DerivedSource, error) {
	if passphrase == "" {
		return nil, ErrEmptyPassphrase
	}
	return &DerivedSource{secret: []byte(passphrase)}, nil
}

// SeedWords returns the next n derived words.
func (s *DerivedSource) SeedWords(n int) ([]uint32, error) {
	if err := checkCount(n); err != nil {
		return nil, err
	}

	s.mu.Lock()
	info := fmt.Sprintf("seed %d", s.calls)
	s.calls++
	s.mu.Unlock()

	r := hkdf.New(sha256.New, s.secret, []byte(derivedSalt), []byte(info))
	buf := make([]byte, 4*n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, fmt.Errorf("entropy: hkdf expand: %w", err)
	}
	return wordsFromBytes(buf), nil
}

// Rewind restarts the derivation sequence.
func (s *DerivedSource) Rewind() {
	s.mu.Lock()
	s.calls = 0
	s.mu.Unlock()
}
