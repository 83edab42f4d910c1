//go:build !linux

package entropy

import (
	"crypto/rand"
	"io"
)

func readSystemRandom(buf []byte) error {
	_, err := io.ReadFull(rand.Reader, buf)
	return err
}
