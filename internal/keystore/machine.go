package keystore

import (
	"errors"
	"fmt"
	"os"

	"github.com/google/renameio/v2"
	"go.uber.org/zap"

	"github.com/seashail/seashail/internal/apperr"
	"github.com/seashail/seashail/internal/crypto"
)

// loadOrCreateMachineKey returns the machine-bound master secret, creating
// it on first use.  The file is owner-only inside an owner-only directory;
// anyone who can read it can decrypt machine-only wallets and Share 1.
// Must be called with the write lock held.
func loadOrCreateMachineKey(path string, log *zap.Logger) ([]byte, error) {
	info, err := os.Stat(path)
	switch {
	case err == nil:
		if info.Mode().Perm()&0o077 != 0 {
			log.Warn("machine key is readable by other users",
				zap.String("path", path), zap.Stringer("mode", info.Mode().Perm()))
		}
		key, err := os.ReadFile(path)
		if err != nil {
			return nil, apperr.E(apperr.IO, err)
		}
		if len(key) != crypto.KeyLen {
			clear(key)
			return nil, apperr.E(apperr.Crypto,
				fmt.Sprintf("machine key must be %d bytes", crypto.KeyLen))
		}
		return key, nil

	case !errors.Is(err, os.ErrNotExist):
		return nil, apperr.E(apperr.IO, err)
	}

	key, err := crypto.RandomBytes(crypto.KeyLen)
	if err != nil {
		return nil, apperr.E(apperr.Crypto, err)
	}
	if err := renameio.WriteFile(path, key, 0o600); err != nil {
		clear(key)
		return nil, apperr.E(apperr.IO, fmt.Errorf("failed to write machine key: %w", err))
	}
	log.Info("created machine key", zap.String("path", path))
	return key, nil
}
