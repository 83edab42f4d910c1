//go:build linux

package entropy

import (
	"fmt"
	"os"

	"github.com/google/go-tpm/tpm2/transport"
)

// TPM device paths in order of preference
var tpmDevicePaths = []string{
	"/dev/tpmrm0", // resource manager
	"/dev/tpm0",
}

// OpenTPMSource opens the TPM at path, or the first accessible default
// device when path is empty.
func OpenTPMSource(path string) (*TPMSource, error) {
	if path == "" {
		for _, p := range tpmDevicePaths {
			if _, err := os.Stat(p); err == nil {
				path = p
				break
			}
		}
	}
	if path == "" {
		return nil, ErrTPMNotAvailable
	}

	t, err := transport.OpenTPM(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %w", ErrTPMNotAvailable, path, err)
	}
	return &TPMSource{tpm: t, closer: t.Close}, nil
}
