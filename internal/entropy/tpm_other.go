//go:build !linux

package entropy

// OpenTPMSource is only implemented for Linux TPM character devices.
func OpenTPMSource(path string) (*TPMSource, error) {
	return nil, ErrTPMNotAvailable
}
