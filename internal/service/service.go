// Package service is the request context the HTTP and CLI surfaces share.
// It owns no state of its own beyond what it is handed: the keystore, the
// confirmer and the passphrase prompter are passed in explicitly.
package service

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/seashail/seashail/internal/apperr"
	"github.com/seashail/seashail/internal/common"
	"github.com/seashail/seashail/internal/confirm"
	"github.com/seashail/seashail/internal/elicit"
	"github.com/seashail/seashail/internal/keystore"
	"github.com/seashail/seashail/internal/metrics"
)

// DefaultSessionTTL is how long an entered passphrase stays usable.
const DefaultSessionTTL = 30 * time.Minute

// DefaultWalletName is the wallet created on first use.
const DefaultWalletName = "default"

// Config holds a Service's collaborators.
type Config struct {
	Keystore   *keystore.Keystore
	Confirmer  *confirm.Confirmer
	Prompter   elicit.Prompter
	Pricer     common.Pricer
	SessionTTL time.Duration
	Metrics    *metrics.Metrics
	Log        *zap.Logger
}

// Service wires custody, authorization and user interaction together.
type Service struct {
	ks        *keystore.Keystore
	confirmer *confirm.Confirmer
	prompter  elicit.Prompter
	pricer    common.Pricer
	ttl       time.Duration
	metrics   *metrics.Metrics
	log       *zap.Logger

	// unlock collapses concurrent passphrase prompts into one.
	unlock singleflight.Group
}

// New returns a Service.
func New(cfg Config) *Service {
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = DefaultSessionTTL
	}
	if cfg.Log == nil {
		cfg.Log = zap.NewNop()
	}
	return &Service{
		ks:        cfg.Keystore,
		confirmer: cfg.Confirmer,
		prompter:  cfg.Prompter,
		pricer:    cfg.Pricer,
		ttl:       cfg.SessionTTL,
		metrics:   cfg.Metrics,
		log:       cfg.Log.Named("service"),
	}
}

// Keystore returns the underlying keystore.
func (s *Service) Keystore() *keystore.Keystore {
	return s.ks
}

// EnsureUnlocked returns the passphrase key, prompting for it when the
// session has none.  The first prompt ever establishes the passphrase.  The
// caller zeroizes the returned key.
func (s *Service) EnsureUnlocked(ctx context.Context) ([]byte, error) {
	const op apperr.Op = "service.EnsureUnlocked"

	if key, ok := s.ks.SessionGet(); ok {
		return key, nil
	}

	_, err, _ := s.unlock.Do("unlock", func() (interface{}, error) {
		if _, ok := s.ks.SessionGet(); ok {
			return nil, nil
		}
		return nil, s.promptAndUnlock(ctx)
	})
	if err != nil {
		return nil, apperr.E(op, err)
	}

	key, ok := s.ks.SessionGet()
	if !ok {
		return nil, apperr.E(op, apperr.Passphrase, "passphrase session expired")
	}
	return key, nil
}

func (s *Service) promptAndUnlock(ctx context.Context) error {
	if s.prompter == nil {
		return apperr.E(apperr.Passphrase, "a passphrase is required but no prompt is available")
	}

	established, err := s.ks.PassphraseEstablished()
	if err != nil {
		return err
	}
	msg := "Wallet passphrase: "
	if !established {
		msg = "Choose a wallet passphrase (it cannot be recovered): "
	}

	pass, err := s.prompter.PromptPassphrase(ctx, msg, !established)
	if err != nil {
		s.metrics.Unlock("prompt_failed")
		return apperr.E(apperr.Passphrase, err)
	}
	defer clear(pass)

	key, err := s.ks.DerivePassphraseKey(ctx, pass)
	if err != nil {
		return err
	}
	defer clear(key)

	if established {
		err = s.ks.VerifyPassphrase(key)
	} else {
		err = s.ks.EstablishPassphrase(ctx, key)
	}
	if err != nil {
		s.metrics.Unlock(string(apperr.CodeOf(err)))
		return err
	}

	s.ks.SessionSet(key, s.ttl)
	s.metrics.Unlock("ok")
	s.log.Info("wallet unlocked", zap.Duration("ttl", s.ttl))
	return nil
}

// Lock forgets the passphrase key.
func (s *Service) Lock() {
	s.ks.SessionClear()
	s.log.Info("wallet locked")
}
