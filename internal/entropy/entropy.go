// Package entropy provides the seed sources behind the CSRNG model's
// "seed from entropy source" INSTANTIATE.
//
// Sources:
//   - Static: a fixed word list, reproducing the reference test environment
//   - OS: the host kernel RNG
//   - Derived: HKDF-SHA256 expansion of a passphrase, reproducible per run
//   - TPM: TPM2_GetRandom from a TPM 2.0 device
//
// Any of them can be wrapped with continuous health tests.
//
// All sources return words in register order, oldest first.
package entropy

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Entropy errors
var (
	ErrUnknownKind      = errors.New("entropy: unknown source kind")
	ErrShortSeed        = errors.New("entropy: source has fewer words than requested")
	ErrTPMNotAvailable  = errors.New("entropy: TPM not available")
	ErrEmptyPassphrase  = errors.New("entropy: derived source needs a passphrase")
	ErrInvalidWordCount = errors.New("entropy: invalid word count")
)

// SeedWordCount is the number of words an entropy-seeded INSTANTIATE
// consumes.
const SeedWordCount = 12

// Source supplies seed words.
type Source interface {
	SeedWords(n int) ([]uint32, error)
}

// Kind names a Source implementation.
type Kind string

const (
	KindStatic  Kind = "static"
	KindOS      Kind = "os"
	KindDerived Kind = "derived"
	KindTPM     Kind = "tpm"
)

// Kinds lists every supported source kind.
func Kinds() []Kind {
	return []Kind{KindStatic, KindOS, KindDerived, KindTPM}
}

// ParseKind accepts a kind name, case-insensitively.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Kinds() {
		if k == known {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// Options selects and parameterizes a Source.
type Options struct {
	Kind Kind

	// StaticWords overrides DefaultStaticWords for KindStatic.
	StaticWords []uint32

	// Passphrase keys KindDerived.
	Passphrase string

	// TPMDevice is the device path for KindTPM. Empty tries the usual
	// paths.
	TPMDevice string

	// HealthTests wraps the source in a HealthCheckedSource.
	HealthTests bool
}

// New builds the source described by opts. Sources holding a device also
// implement io.Closer; use Close to release them.
func New(opts Options) (Source, error) {
	src, err := newSource(opts)
	if err != nil {
		return nil, err
	}
	if opts.HealthTests {
		return NewHealthCheckedSource(src), nil
	}
	return src, nil
}

func newSource(opts Options) (Source, error) {
	switch opts.Kind {
	case KindStatic, "":
		return NewStaticSource(opts.StaticWords), nil
	case KindOS:
		return NewOSSource(), nil
	case KindDerived:
		src, err := NewDerivedSource(opts.Passphrase)
		if err != nil {
			return nil, err
		}
		return src, nil
	case KindTPM:
		src, err := OpenTPMSource(opts.TPMDevice)
		if err != nil {
			return nil, err
		}
		return src, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, opts.Kind)
	}
}

// Close releases src if it holds resources.
func Close(src Source) error {
	if c, ok := src.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// Rewind restarts src's word sequence, looking through health checks.
// It reports whether src has a sequence to restart.
func Rewind(src Source) bool {
	if h, ok := src.(*HealthCheckedSource); ok {
		src = h.src
	}
	r, ok := src.(interface{ Rewind() })
	if ok {
		r.Rewind()
	}
	return ok
}

func checkCount(n int) error {
	if n <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidWordCount, n)
	}
	return nil
}

// wordsFromBytes reads big-endian words; len(b) must be a multiple of 4.
func wordsFromBytes(b []byte) []uint32 {
	out := make([]uint32, len(b)/4)
	for i := range out {
		out[i] = binary.BigEndian.Uint32(b[i*4:])
	}
	return out
}
