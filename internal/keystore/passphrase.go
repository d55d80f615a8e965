package keystore

import (
	"context"
	"errors"
	"os"

	"github.com/google/renameio/v2"

	"github.com/seashail/seashail/internal/apperr"
	"github.com/seashail/seashail/internal/config"
	"github.com/seashail/seashail/internal/crypto"
)

// verifierScope is the wallet-id slot used for keys that are not tied to a
// wallet.
const verifierScope = "global"

var verifierPlaintext = []byte("seashail passphrase verifier v1")

// EnsurePassphraseSalt returns the passphrase salt, generating and
// persisting a random one on first use.
//
// The salt lives in config.toml.  Losing it makes every passphrase-encrypted
// share and imported secret unrecoverable, even with the right passphrase.
func (k *Keystore) EnsurePassphraseSalt(ctx context.Context) ([]byte, error) {
	const op apperr.Op = "keystore.EnsurePassphraseSalt"

	if salt, ok := k.cfg.PassphraseSalt(); ok {
		return salt, nil
	}

	err := k.lock.with(ctx, func() error {
		// Another process may have won the race.
		if err := k.cfg.Reload(); err != nil {
			return apperr.E(apperr.IO, err)
		}
		if _, ok := k.cfg.PassphraseSalt(); ok {
			return nil
		}
		salt, err := crypto.RandomBytes(config.SaltLen)
		if err != nil {
			return apperr.E(apperr.Crypto, err)
		}
		if err := k.cfg.Update(config.SetPassphraseSalt(salt)); err != nil {
			return apperr.E(apperr.IO, err)
		}
		k.log.Info("created passphrase salt")
		return nil
	})
	if err != nil {
		return nil, apperr.E(op, err)
	}

	salt, ok := k.cfg.PassphraseSalt()
	if !ok {
		return nil, apperr.E(op, apperr.IO, "passphrase salt missing after write")
	}
	return salt, nil
}

// DerivePassphraseKey stretches a passphrase into the 32-byte passphrase
// master key.
// passphrase must be []byte for security (caller should zero it after use)
func (k *Keystore) DerivePassphraseKey(ctx context.Context, passphrase []byte) ([]byte, error) {
	const op apperr.Op = "keystore.DerivePassphraseKey"

	salt, err := k.EnsurePassphraseSalt(ctx)
	if err != nil {
		return nil, apperr.E(op, err)
	}
	key, err := crypto.DeriveFromPassphrase(passphrase, salt)
	if err != nil {
		return nil, apperr.E(op, apperr.Invalid, err)
	}
	return key, nil
}

// PassphraseEstablished reports whether a passphrase has been set up.
func (k *Keystore) PassphraseEstablished() (bool, error) {
	_, err := os.Stat(k.path(verifierFileName))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, os.ErrNotExist):
		return false, nil
	default:
		return false, apperr.E(apperr.IO, err)
	}
}

// EstablishPassphrase records a verifier for passKey so later keys can be
// checked before they are used to encrypt or decrypt anything.
func (k *Keystore) EstablishPassphrase(ctx context.Context, passKey []byte) error {
	const op apperr.Op = "keystore.EstablishPassphrase"

	err := k.lock.with(ctx, func() error {
		established, err := k.PassphraseEstablished()
		if err != nil {
			return err
		}
		if established {
			return apperr.E(apperr.Exist, "passphrase already established")
		}
		box, err := sealWith(passKey, verifierScope, purposePassphraseCheck, verifierPlaintext)
		if err != nil {
			return err
		}
		data, err := marshalBox(box)
		if err != nil {
			return err
		}
		if err := renameio.WriteFile(k.path(verifierFileName), data, 0o600); err != nil {
			return apperr.E(apperr.IO, err)
		}
		return nil
	})
	if err != nil {
		return apperr.E(op, err)
	}
	k.log.Info("passphrase established")
	return nil
}

// VerifyPassphrase checks passKey against the stored verifier.
func (k *Keystore) VerifyPassphrase(passKey []byte) error {
	const op apperr.Op = "keystore.VerifyPassphrase"

	data, err := os.ReadFile(k.path(verifierFileName))
	if errors.Is(err, os.ErrNotExist) {
		return apperr.E(op, apperr.NotEstablished, apperr.Code("passphrase_not_established"),
			"no passphrase has been set up")
	}
	if err != nil {
		return apperr.E(op, apperr.IO, err)
	}
	box, err := unmarshalBox(data)
	if err != nil {
		return apperr.E(op, err)
	}
	pt, err := openWith(passKey, verifierScope, purposePassphraseCheck, box)
	if err != nil {
		return apperr.E(op, apperr.Passphrase, apperr.Code("wrong_passphrase"), errors.Unwrap(err))
	}
	clear(pt)
	return nil
}
