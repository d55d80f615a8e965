package crypto

import (
	"fmt"
)

// Decrypt opens a box with a 32-byte key.  It fails closed: a wrong key, a
// tampered nonce or ciphertext, or an unknown version all return an error and
// a nil plaintext.
func Decrypt(key []byte, box *Box) ([]byte, error) {
	if box == nil {
		return nil, fmt.Errorf("box is nil")
	}
	if box.Version != BoxVersion {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, box.Version)
	}
	if len(box.Nonce) != NonceLen {
		return nil, fmt.Errorf("nonce must be %d bytes, got %d", NonceLen, len(box.Nonce))
	}

	aesGCM, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	plaintext, err := aesGCM.Open(nil, box.Nonce, box.Ciphertext, nil)
	if err != nil {
		return nil, ErrAuthFailed
	}
	return plaintext, nil
}
