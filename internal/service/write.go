package service

import (
	"context"
	"fmt"
	"time"

	"github.com/lightningnetwork/lnd/fn/v2"

	"github.com/seashail/seashail/internal/apperr"
	"github.com/seashail/seashail/internal/common"
	"github.com/seashail/seashail/internal/confirm"
	"github.com/seashail/seashail/internal/keystore"
	"github.com/seashail/seashail/internal/model"
	"github.com/seashail/seashail/internal/policy"
	"github.com/seashail/seashail/internal/signer"
)

// resolve fills in the active wallet and account when req names none.
func (s *Service) resolve(req *confirm.Request) (model.WalletRecord, error) {
	if req.Wallet == "" {
		rec, account, err := s.ks.GetActiveWallet()
		if err != nil {
			return model.WalletRecord{}, err
		}
		req.Wallet = rec.Name
		req.AccountIndex = account
		return rec, nil
	}

	rec, err := s.ks.GetWalletByName(req.Wallet)
	if err != nil {
		return model.WalletRecord{}, err
	}
	if req.AccountIndex >= rec.Accounts {
		return model.WalletRecord{}, apperr.E(apperr.NotExist, keystore.CodeAccountOutOfRange,
			fmt.Sprintf("account index %d out of range (wallet %q has %d)",
				req.AccountIndex, rec.Name, rec.Accounts))
	}
	return rec, nil
}

// PrepareWrite authorizes req and, only once it is approved, unlocks the
// signing keys of the acting account.  The caller zeroizes the keys and
// reports the result with RecordBroadcast.
func (s *Service) PrepareWrite(ctx context.Context, req *confirm.Request) (*confirm.Outcome, *signer.Keys, error) {
	const op apperr.Op = "service.PrepareWrite"

	rec, err := s.resolve(req)
	if err != nil {
		return nil, nil, apperr.E(op, err)
	}

	out, err := s.confirmer.MaybeConfirmWrite(ctx, req)
	if err != nil {
		return nil, nil, apperr.E(op, err)
	}

	keys, err := s.UnlockedKeys(ctx, rec, req.AccountIndex)
	if err != nil {
		return nil, nil, apperr.E(op, err)
	}
	return out, keys, nil
}

// UnlockedKeys decrypts the wallet secret and derives the keys of account.
// It must only be called for an operation that has been authorized.
func (s *Service) UnlockedKeys(ctx context.Context, rec model.WalletRecord, account uint32) (*signer.Keys, error) {
	if account >= rec.Accounts {
		return nil, apperr.E(apperr.NotExist, keystore.CodeAccountOutOfRange,
			fmt.Sprintf("account index %d out of range", account))
	}

	if rec.Kind == model.WalletKindGenerated {
		needs, err := s.ks.GeneratedWalletNeedsPassphrase(rec.ID)
		if err != nil {
			return nil, err
		}

		var entropy []byte
		if needs {
			passKey, err := s.EnsureUnlocked(ctx)
			if err != nil {
				return nil, err
			}
			entropy, err = s.ks.DecryptGeneratedEntropy(rec.ID, passKey)
			clear(passKey)
			if err != nil {
				return nil, err
			}
		} else {
			entropy, err = s.ks.DecryptGeneratedEntropyNoPassphrase(rec.ID)
			if err != nil {
				return nil, err
			}
		}
		defer clear(entropy)
		return signer.KeysFromEntropy(entropy, account)
	}

	passKey, err := s.EnsureUnlocked(ctx)
	if err != nil {
		return nil, err
	}
	defer clear(passKey)

	secret, err := s.ks.DecryptImportedSecret(rec.ID, passKey)
	if err != nil {
		return nil, err
	}
	defer clear(secret)

	if rec.ImportedKind == model.ImportedMnemonic {
		return signer.KeysFromMnemonic(string(secret), account)
	}
	return signer.KeysFromPrivateKey(rec.ImportedChain, secret)
}

// RecordBroadcast appends the result of an approved write to the history.
// A failure is logged and never returned.
func (s *Service) RecordBroadcast(req *confirm.Request, txID string, broadcastErr error) {
	status := model.TxStatusBroadcast
	if broadcastErr != nil {
		status = model.TxStatusFailed
	}
	rec := &model.TxHistoryRecord{
		Wallet:        req.Wallet,
		AccountIndex:  req.AccountIndex,
		Chain:         req.Chain,
		Op:            req.Op,
		USDValue:      req.USDValue,
		USDValueKnown: req.USDValueKnown,
		To:            req.Recipient.UnwrapOr(""),
		TxID:          txID,
		Status:        status,
	}
	req.NativeAmount.WhenSome(func(a float64) {
		rec.NativeAmount = fmt.Sprintf("%g", a)
	})
	s.ks.RecordTxBestEffort(rec)
}

// Evaluation is the result of a dry run.
type Evaluation struct {
	Decision      policy.Decision
	USDValue      float64
	USDValueKnown bool
	DailyUsedUSD  float64
	Override      bool
}

// DryRun evaluates a proposed write without asking anyone and without
// writing an audit record.  A native amount without a USD value is priced.
func (s *Service) DryRun(ctx context.Context, req *model.EvaluateRequest) (*Evaluation, error) {
	const op apperr.Op = "service.DryRun"

	writeOp, err := policy.ParseWriteOp(req.Op)
	if err != nil {
		return nil, apperr.E(op, apperr.Invalid, err)
	}
	chain, err := policy.ParseChain(req.Chain)
	if err != nil {
		return nil, apperr.E(op, apperr.Invalid, err)
	}

	wallet := req.Wallet
	if wallet == "" {
		rec, _, err := s.ks.GetActiveWallet()
		if err != nil {
			return nil, apperr.E(op, err)
		}
		wallet = rec.Name
	} else if _, err := s.ks.GetWalletByName(wallet); err != nil {
		return nil, apperr.E(op, err)
	}

	pctx := &policy.Context{
		Op:           writeOp,
		Chain:        chain,
		SlippageBps:  optional(req.SlippageBps),
		Recipient:    optional(req.Recipient),
		Contract:     optional(req.Contract),
		Leverage:     optional(req.Leverage),
		NativeAmount: optional(req.NativeAmount),
	}
	switch {
	case req.USDValue != nil:
		pctx.USDValue, pctx.USDValueKnown = *req.USDValue, true
	case req.NativeAmount != nil:
		pctx.USDValue, pctx.USDValueKnown = common.NativeToUSD(ctx, s.pricer, chain, *req.NativeAmount)
	}

	pctx.DailyUsedUSD, err = s.ks.DailyUsedUSD(wallet)
	if err != nil {
		return nil, apperr.E(op, err)
	}
	if writeOp == policy.OpPumpfunBuy {
		since := s.ks.Clock().Now().Add(-time.Hour)
		pctx.PumpfunBuysLastHour, err = s.ks.CountHistorySince(wallet, writeOp, since)
		if err != nil {
			return nil, apperr.E(op, err)
		}
	}

	p, override := s.ks.PolicyForWallet(wallet)
	d := policy.Evaluate(&p, pctx)
	s.metrics.PolicyDecision(writeOp.String(), d.Outcome.String(), string(d.Reason))

	return &Evaluation{
		Decision:      d,
		USDValue:      pctx.USDValue,
		USDValueKnown: pctx.USDValueKnown,
		DailyUsedUSD:  pctx.DailyUsedUSD,
		Override:      override,
	}, nil
}

func optional[T any](v *T) fn.Option[T] {
	if v == nil {
		return fn.None[T]()
	}
	return fn.Some(*v)
}
