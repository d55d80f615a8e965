package crypto

import (
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/hkdf"
)

const (
	// Argon2id parameters for the passphrase key.  Frozen: changing any of
	// them makes every existing passphrase-encrypted share undecryptable.
	argonTime    = 3
	argonMemory  = 64 * 1024
	argonThreads = 1

	KeyLen  = 32
	SaltLen = 16

	subkeyNamespace = "seashail/keystore/v1"
)

// DeriveFromPassphrase derives the 32-byte passphrase master key from a
// passphrase and the keystore salt.  Identical inputs always produce the same
// key.
// passphrase must be []byte for security (caller should zero it after use)
func DeriveFromPassphrase(passphrase []byte, salt []byte) ([]byte, error) {
	if len(salt) != SaltLen {
		return nil, fmt.Errorf("salt must be %d bytes, got %d", SaltLen, len(salt))
	}
	if len(passphrase) == 0 {
		return nil, fmt.Errorf("passphrase cannot be empty")
	}
	return argon2.IDKey(passphrase, salt, argonTime, argonMemory, argonThreads, KeyLen), nil
}

// ExpandSubkey derives an independent 32-byte subkey from a master key for
// one (wallet, purpose) pair.  The master key itself is never used to encrypt
// anything.
func ExpandSubkey(master []byte, walletID, purpose string) ([]byte, error) {
	if len(master) != KeyLen {
		return nil, fmt.Errorf("master key must be %d bytes, got %d", KeyLen, len(master))
	}

	info := subkeyNamespace + "|" + walletID + "|" + purpose
	r := hkdf.New(sha256.New, master, nil, []byte(info))

	subkey := make([]byte, KeyLen)
	if _, err := io.ReadFull(r, subkey); err != nil {
		return nil, fmt.Errorf("failed to expand subkey: %w", err)
	}
	return subkey, nil
}
