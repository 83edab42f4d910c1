//go:build linux

package entropy

import (
	"errors"

	"golang.org/x/sys/unix"
)

// readSystemRandom fills buf with getrandom(2), retrying on EINTR and
// short reads.
func readSystemRandom(buf []byte) error {
	for len(buf) > 0 {
		n, err := unix.Getrandom(buf, 0)
		if errors.Is(err, unix.EINTR) {
			continue
		}
		if err != nil {
			return err
		}
		buf = buf[n:]
	}
	return nil
}
