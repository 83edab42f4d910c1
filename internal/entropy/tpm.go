package entropy

import (
	"fmt"
	"sync"

	"github.com/google/go-tpm/tpm2"
	"github.com/google/go-tpm/tpm2/transport"
)

// maxGetRandom bounds one TPM2_GetRandom request. TPMs cap the reply at
// their largest digest anyway.
const maxGetRandom = 1024

// TPMSource draws seed words from TPM2_GetRandom.
type TPMSource struct {
	mu     sync.Mutex
	tpm    transport.TPM
	closer func() error
}

// NewTPMSource uses an already open TPM transport. The caller keeps
// ownership of t.
func NewTPMSource(t transport.TPM) *TPMSource {
	return &TPMSource{tpm: t}
}

// SeedWords returns n words from the TPM RNG. A TPM may return fewer
// bytes than asked, so the request is repeated until filled.
func (s *TPMSource) SeedWords(n int) ([]uint32, error) {
	if err := checkCount(n); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.tpm == nil {
		return nil, ErrTPMNotAvailable
	}

	buf := make([]byte, 0, 4*n)
	for len(buf) < cap(buf) {
		rsp, err := tpm2.GetRandom{
			BytesRequested: uint16(min(cap(buf)-len(buf), maxGetRandom)),
		}.Execute(s.tpm)
		if err != nil {
			return nil, fmt.Errorf("entropy: TPM2_GetRandom: %w", err)
		}
		if len(rsp.RandomBytes.Buffer) == 0 {
			return nil, fmt.Errorf("entropy: TPM2_GetRandom returned no bytes")
		}
		buf = append(buf, rsp.RandomBytes.Buffer...)
	}
	return wordsFromBytes(buf[:4*n]), nil
}

// Close releases a device opened by OpenTPMSource.
func (s *TPMSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closer == nil {
		return nil
	}
	err := s.closer()
	s.closer = nil
	s.tpm = nil
	return err
}
