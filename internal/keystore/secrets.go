package keystore

import (
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/renameio/v2"
	"github.com/google/uuid"

	"github.com/seashail/seashail/internal/apperr"
	"github.com/seashail/seashail/internal/crypto"
)

// Subkey purposes.  Each one is a separate key under the master that
// encrypts it.
const (
	purposeMachineEntropy  = "machine-entropy"
	purposeShare1          = "share1"
	purposeShare2          = "share2"
	purposeImported        = "imported"
	purposePassphraseCheck = "passphrase-check"
)

// Per-wallet secret files.
const (
	entropyFileName  = "entropy.json"
	sharesFileName   = "shares.json"
	importedFileName = "imported.json"
)

// shareSet holds the two retained shares of a split.  Both boxes live in one
// file so a rotation replaces them with a single rename.
type shareSet struct {
	Share1 *crypto.Box `json:"share1"`
	Share2 *crypto.Box `json:"share2"`
}

func (k *Keystore) walletDir(walletID string) (string, error) {
	// IDs come from the index file; never let one escape the secrets dir.
	if _, err := uuid.Parse(walletID); err != nil {
		return "", apperr.E(apperr.Invalid, fmt.Sprintf("malformed wallet id %q", walletID))
	}
	return filepath.Join(k.dataDir, secretsDirName, walletID), nil
}

func (k *Keystore) secretPath(walletID, name string) (string, error) {
	dir, err := k.walletDir(walletID)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, name), nil
}

func (k *Keystore) writeSecret(walletID, name string, v interface{}) error {
	dir, err := k.walletDir(walletID)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return apperr.E(apperr.IO, err)
	}
	data, err := json.Marshal(v)
	if err != nil {
		return apperr.E(apperr.IO, err)
	}
	if err := renameio.WriteFile(filepath.Join(dir, name), data, 0o600); err != nil {
		return apperr.E(apperr.IO, fmt.Errorf("failed to write %s: %w", name, err))
	}
	return nil
}

// readSecretRaw returns the file contents, or a NotExist error.
func (k *Keystore) readSecretRaw(walletID, name string) ([]byte, error) {
	path, err := k.secretPath(walletID, name)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, apperr.E(apperr.NotExist, fmt.Sprintf("%s not found", name))
	}
	if err != nil {
		return nil, apperr.E(apperr.IO, err)
	}
	return data, nil
}

func (k *Keystore) readSecret(walletID, name string, v interface{}) ([]byte, error) {
	data, err := k.readSecretRaw(walletID, name)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return nil, apperr.E(apperr.Crypto, fmt.Errorf("malformed %s: %w", name, err))
	}
	return data, nil
}

func (k *Keystore) secretExists(walletID, name string) (bool, error) {
	path, err := k.secretPath(walletID, name)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(path)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, os.ErrNotExist):
		return false, nil
	default:
		return false, apperr.E(apperr.IO, err)
	}
}

func (k *Keystore) removeSecret(walletID, name string) error {
	path, err := k.secretPath(walletID, name)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return apperr.E(apperr.IO, err)
	}
	return nil
}

func (k *Keystore) removeWalletSecrets(walletID string) error {
	dir, err := k.walletDir(walletID)
	if err != nil {
		return err
	}
	if err := os.RemoveAll(dir); err != nil {
		return apperr.E(apperr.IO, err)
	}
	return nil
}

// sealWith encrypts pt under the subkey (master, walletID, purpose).
func sealWith(master []byte, walletID, purpose string, pt []byte) (*crypto.Box, error) {
	key, err := crypto.ExpandSubkey(master, walletID, purpose)
	if err != nil {
		return nil, apperr.E(apperr.Crypto, err)
	}
	defer clear(key)

	box, err := crypto.Encrypt(key, pt)
	if err != nil {
		return nil, apperr.E(apperr.Crypto, err)
	}
	return box, nil
}

// openWith decrypts box under the subkey (master, walletID, purpose).
func openWith(master []byte, walletID, purpose string, box *crypto.Box) ([]byte, error) {
	key, err := crypto.ExpandSubkey(master, walletID, purpose)
	if err != nil {
		return nil, apperr.E(apperr.Crypto, err)
	}
	defer clear(key)

	pt, err := crypto.Decrypt(key, box)
	if err != nil {
		return nil, apperr.E(apperr.Crypto, err)
	}
	return pt, nil
}

func digest(data []byte) [sha256.Size]byte {
	return sha256.Sum256(data)
}

func marshalBox(box *crypto.Box) ([]byte, error) {
	data, err := json.Marshal(box)
	if err != nil {
		return nil, apperr.E(apperr.IO, err)
	}
	return data, nil
}

func unmarshalBox(data []byte) (*crypto.Box, error) {
	var box crypto.Box
	if err := json.Unmarshal(data, &box); err != nil {
		return nil, apperr.E(apperr.Crypto, fmt.Errorf("malformed box: %w", err))
	}
	return &box, nil
}
