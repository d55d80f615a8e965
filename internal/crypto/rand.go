package crypto

import (
	"crypto/rand"
	"fmt"
	"io"
)

// FillRandom fills buf from the operating system CSPRNG.  Every nonce, salt
// and Shamir coordinate shuffle in this module draws from here.
func FillRandom(buf []byte) error {
	if _, err := io.ReadFull(rand.Reader, buf); err != nil {
		return fmt.Errorf("failed to read random bytes: %w", err)
	}
	return nil
}

// RandomBytes returns n fresh random bytes.
func RandomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if err := FillRandom(b); err != nil {
		return nil, err
	}
	return b, nil
}
