package keystore

import (
	"context"

	"go.uber.org/zap"

	"github.com/seashail/seashail/internal/apperr"
	"github.com/seashail/seashail/internal/config"
	"github.com/seashail/seashail/internal/policy"
)

// UpdatePolicy replaces the global policy (wallet == "") or a wallet's
// override.  The policy is validated before anything is written.
func (k *Keystore) UpdatePolicy(ctx context.Context, wallet string, p policy.Policy) error {
	const op apperr.Op = "keystore.UpdatePolicy"

	if err := p.Validate(); err != nil {
		return apperr.E(op, apperr.Invalid, err)
	}

	err := k.lock.with(ctx, func() error {
		if wallet != "" {
			ix, err := k.readIndex()
			if err != nil {
				return err
			}
			if _, ok := ix.Find(wallet); !ok {
				return notFound(wallet)
			}
		}
		if err := k.cfg.Update(config.SetPolicy(wallet, p)); err != nil {
			return apperr.E(apperr.IO, err)
		}
		return nil
	})
	if err != nil {
		return apperr.E(op, err)
	}
	k.log.Info("policy updated", zap.String("wallet", wallet))
	return nil
}

// ClearPolicyOverride makes a wallet fall back to the global policy.
func (k *Keystore) ClearPolicyOverride(ctx context.Context, wallet string) error {
	const op apperr.Op = "keystore.ClearPolicyOverride"

	err := k.lock.with(ctx, func() error {
		if err := k.cfg.Update(config.RemovePolicyOverride(wallet)); err != nil {
			return apperr.E(apperr.IO, err)
		}
		return nil
	})
	if err != nil {
		return apperr.E(op, err)
	}
	return nil
}

// PolicyForWallet returns the policy that applies to wallet and whether it
// is an override.
func (k *Keystore) PolicyForWallet(wallet string) (policy.Policy, bool) {
	return k.cfg.PolicyForWallet(wallet)
}
