package service

import (
	"context"
	"errors"
	"fmt"

	solanago "github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/seashail/seashail/internal/apperr"
	"github.com/seashail/seashail/internal/crypto"
	"github.com/seashail/seashail/internal/model"
)

// EnsureDefaultWallet returns the active wallet, creating a machine-only
// "default" wallet when none exist.  created reports whether it did.
func (s *Service) EnsureDefaultWallet(ctx context.Context) (info model.WalletInfo, created bool, err error) {
	const op apperr.Op = "service.EnsureDefaultWallet"

	wallets, err := s.ks.ListWallets()
	if err != nil {
		return model.WalletInfo{}, false, apperr.E(op, err)
	}
	for _, w := range wallets {
		if w.Active {
			return w, false, nil
		}
	}
	if len(wallets) > 0 {
		// Wallets exist but none is active; pick the first.
		if err := s.ks.SetActiveWallet(ctx, wallets[0].Name, 0); err != nil {
			return model.WalletInfo{}, false, apperr.E(op, err)
		}
		wallets[0].Active = true
		return wallets[0], false, nil
	}

	info, err = s.ks.CreateGeneratedWalletMachineOnly(ctx, DefaultWalletName)
	if apperr.Is(apperr.Exist, err) {
		// Another process won the race.
		rec, err := s.ks.GetWalletByName(DefaultWalletName)
		if err != nil {
			return model.WalletInfo{}, false, apperr.E(op, err)
		}
		return rec.Info(true), false, nil
	}
	if err != nil {
		return model.WalletInfo{}, false, apperr.E(op, err)
	}
	return info, true, nil
}

// CreateWallet creates a generated wallet split 2-of-3 and discloses its
// offline share.  If the user does not confirm the share the wallet is
// removed again.
func (s *Service) CreateWallet(ctx context.Context, name string) (model.WalletInfo, error) {
	const op apperr.Op = "service.CreateWallet"

	passKey, err := s.EnsureUnlocked(ctx)
	if err != nil {
		return model.WalletInfo{}, apperr.E(op, err)
	}
	defer clear(passKey)

	info, share3, err := s.ks.CreateGeneratedWallet(ctx, name, passKey)
	if err != nil {
		return model.WalletInfo{}, apperr.E(op, err)
	}

	if err := s.confirmer.ConfirmBackup(ctx, info.Name, share3); err != nil {
		if rmErr := s.ks.RemoveWallet(context.WithoutCancel(ctx), info.ID); rmErr != nil {
			s.log.Error("failed to roll back unconfirmed wallet",
				zap.String("wallet", info.Name), zap.Error(rmErr))
		}
		return model.WalletInfo{}, apperr.E(op, err)
	}
	return info, nil
}

// ImportWallet imports a mnemonic or a private key.  secret is zeroized.
func (s *Service) ImportWallet(ctx context.Context, name string, kind model.ImportedKind,
	chain model.KeyChain, secret []byte) (model.WalletInfo, error) {

	const op apperr.Op = "service.ImportWallet"
	defer clear(secret)

	passKey, err := s.EnsureUnlocked(ctx)
	if err != nil {
		return model.WalletInfo{}, apperr.E(op, err)
	}
	defer clear(passKey)

	info, err := s.ks.ImportWallet(ctx, name, kind, chain, secret, passKey)
	if err != nil {
		return model.WalletInfo{}, apperr.E(op, err)
	}
	return info, nil
}

// ImportLegacyFile imports the Solana key of a .cwt file written by the
// earlier single-key wallet.  The file's own password is asked for first;
// the decrypted key must match the address recorded in the file.
func (s *Service) ImportLegacyFile(ctx context.Context, name, path string) (model.WalletInfo, error) {
	const op apperr.Op = "service.ImportLegacyFile"

	if s.prompter == nil {
		return model.WalletInfo{}, apperr.E(op, apperr.NotEstablished, "no passphrase prompt available")
	}
	password, err := s.prompter.PromptPassphrase(ctx, fmt.Sprintf("Password for %s", path), false)
	if err != nil {
		return model.WalletInfo{}, apperr.E(op, err)
	}
	defer clear(password)

	file, raw, err := crypto.OpenLegacyFile(path, password)
	if err != nil {
		if errors.Is(err, crypto.ErrAuthFailed) {
			return model.WalletInfo{}, apperr.E(op, apperr.Passphrase, err)
		}
		return model.WalletInfo{}, apperr.E(op, apperr.Invalid, err)
	}
	key := solanago.PrivateKey(raw)
	defer clear(key)

	if got := key.PublicKey().String(); file.Address != "" && got != file.Address {
		return model.WalletInfo{}, apperr.E(op, apperr.Crypto,
			fmt.Sprintf("decrypted key is for %s, file says %s", got, file.Address))
	}
	return s.ImportWallet(ctx, name, model.ImportedPrivateKey, model.KeyChainSolana, []byte(key.String()))
}

// RotateShares issues a new offline share for a generated wallet.  The new
// shares are persisted only after the user confirms the new Share 3; a
// machine-only wallet is split for the first time.
func (s *Service) RotateShares(ctx context.Context, name string) error {
	const op apperr.Op = "service.RotateShares"

	rec, err := s.ks.GetWalletByName(name)
	if err != nil {
		return apperr.E(op, err)
	}
	if rec.Kind != model.WalletKindGenerated {
		return apperr.E(op, apperr.Invalid, "only generated wallets have shares to rotate")
	}

	passKey, err := s.EnsureUnlocked(ctx)
	if err != nil {
		return apperr.E(op, err)
	}
	defer clear(passKey)

	plan, err := s.ks.PlanRotateShares(rec.ID, passKey)
	if err != nil {
		return apperr.E(op, err)
	}
	defer plan.Discard()

	if err := s.confirmer.ConfirmBackup(ctx, rec.Name, plan.Share3Base64()); err != nil {
		return apperr.E(op, err)
	}
	if err := s.ks.CommitRotateShares(ctx, plan); err != nil {
		return apperr.E(op, err)
	}
	return nil
}

// UseWallet makes name the active wallet at account.
func (s *Service) UseWallet(ctx context.Context, name string, account uint32) error {
	return s.ks.SetActiveWallet(ctx, name, account)
}

// AddAccount derives the next account of a wallet.  A passphrase is only
// asked for when the wallet's secret is protected by one.
func (s *Service) AddAccount(ctx context.Context, name string) (model.WalletInfo, error) {
	const op apperr.Op = "service.AddAccount"

	rec, err := s.ks.GetWalletByName(name)
	if err != nil {
		return model.WalletInfo{}, apperr.E(op, err)
	}

	var passKey []byte
	needs := true
	if rec.Kind == model.WalletKindGenerated {
		needs, err = s.ks.GeneratedWalletNeedsPassphrase(rec.ID)
		if err != nil {
			return model.WalletInfo{}, apperr.E(op, err)
		}
	}
	if needs {
		passKey, err = s.EnsureUnlocked(ctx)
		if err != nil {
			return model.WalletInfo{}, apperr.E(op, err)
		}
		defer clear(passKey)
	}

	info, err := s.ks.AddAccount(ctx, name, passKey)
	if err != nil {
		return model.WalletInfo{}, apperr.E(op, err)
	}
	return info, nil
}
