package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"errors"
	"fmt"
)

const (
	// BoxVersion is the only CryptoBox format this build reads and writes.
	BoxVersion = 1
	NonceLen   = 12
)

var (
	// ErrAuthFailed is returned when a box does not authenticate under the
	// supplied key.  No plaintext is ever returned alongside it.
	ErrAuthFailed = errors.New("authentication failed")

	// ErrUnsupportedVersion is returned for boxes written by an unknown
	// format version.
	ErrUnsupportedVersion = errors.New("unsupported box version")
)

// Box is a versioned AES-256-GCM envelope.  Nonce and Ciphertext are
// base64-encoded by encoding/json.
type Box struct {
	Version    int    `json:"v"`
	Nonce      []byte `json:"nonce"`
	Ciphertext []byte `json:"ciphertext"`
}

// Encrypt seals plaintext under a 32-byte key with a fresh random nonce.
func Encrypt(key, plaintext []byte) (*Box, error) {
	aesGCM, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, NonceLen)
	if err := FillRandom(nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	return &Box{
		Version:    BoxVersion,
		Nonce:      nonce,
		Ciphertext: aesGCM.Seal(nil, nonce, plaintext, nil),
	}, nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	if len(key) != KeyLen {
		return nil, fmt.Errorf("key must be %d bytes, got %d", KeyLen, len(key))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	aesGCM, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return aesGCM, nil
}
