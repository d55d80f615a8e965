package keystore

import (
	"context"
	"crypto/sha256"
	"encoding/base64"

	"go.uber.org/zap"

	"github.com/seashail/seashail/internal/apperr"
)

// RotationPlan is a new share set that has not been persisted yet.  It is
// produced by PlanRotateShares and consumed by CommitRotateShares once the
// user has recorded the new Share 3.  Dropping a plan leaves the old shares
// in force.
type RotationPlan struct {
	walletID string

	// base is the digest of the secret file the plan was made from; a
	// commit against a different state is refused.
	base            [sha256.Size]byte
	fromMachineOnly bool

	shares *shareSet
	share3 []byte
}

// WalletID returns the wallet the plan belongs to.
func (p *RotationPlan) WalletID() string {
	return p.walletID
}

// Share3 returns the new offline share.
func (p *RotationPlan) Share3() []byte {
	return p.share3
}

// Share3Base64 returns the new offline share in its display encoding.
func (p *RotationPlan) Share3Base64() string {
	return base64.StdEncoding.EncodeToString(p.share3)
}

// FirstSplit reports whether committing the plan upgrades a machine-only
// wallet.
func (p *RotationPlan) FirstSplit() bool {
	return p.fromMachineOnly
}

// Discard zeroizes the plan's plaintext share.
func (p *RotationPlan) Discard() {
	clear(p.share3)
	p.share3 = nil
}

// PlanRotateShares decrypts the current entropy and splits it again with
// fresh coordinates.  Nothing on disk changes.  A machine-only wallet is
// planned into its first split.
func (k *Keystore) PlanRotateShares(walletID string, passKey []byte) (*RotationPlan, error) {
	const op apperr.Op = "keystore.PlanRotateShares"

	if _, err := k.generatedRecord(walletID); err != nil {
		return nil, apperr.E(op, err)
	}
	// Share 2 of the new set is sealed under passKey.
	if err := k.VerifyPassphrase(passKey); err != nil {
		return nil, apperr.E(op, err)
	}

	split, err := k.secretExists(walletID, sharesFileName)
	if err != nil {
		return nil, apperr.E(op, err)
	}

	var entropy, raw []byte
	if split {
		entropy, raw, err = k.splitEntropyOpen(walletID, passKey)
	} else {
		entropy, raw, err = k.machineOnlyEntropy(walletID)
	}
	if err != nil {
		return nil, apperr.E(op, err)
	}
	defer clear(entropy)

	set, share3, err := k.splitEntropy(walletID, entropy, passKey)
	if err != nil {
		return nil, apperr.E(op, err)
	}

	return &RotationPlan{
		walletID:        walletID,
		base:            digest(raw),
		fromMachineOnly: !split,
		shares:          set,
		share3:          share3,
	}, nil
}

// CommitRotateShares replaces the persisted Share 1 and Share 2 with the
// plan's.  Both are written by one atomic rename.  A machine-only wallet
// loses its directly sealed entropy after the new shares are in place.
func (k *Keystore) CommitRotateShares(ctx context.Context, plan *RotationPlan) error {
	const op apperr.Op = "keystore.CommitRotateShares"

	if plan == nil || plan.shares == nil {
		return apperr.E(op, apperr.Invalid, "empty rotation plan")
	}

	err := k.lock.with(ctx, func() error {
		if _, err := k.generatedRecord(plan.walletID); err != nil {
			return err
		}

		baseFile := sharesFileName
		if plan.fromMachineOnly {
			baseFile = entropyFileName
		}
		raw, err := k.readSecretRaw(plan.walletID, baseFile)
		if err != nil && !apperr.Is(apperr.NotExist, err) {
			return err
		}
		if err != nil || digest(raw) != plan.base {
			return apperr.E(apperr.Invalid, CodeStaleRotationPlan,
				"wallet secrets changed since the rotation was planned")
		}

		if err := k.writeSecret(plan.walletID, sharesFileName, plan.shares); err != nil {
			return err
		}
		// Also clears an entropy file an earlier first split failed to remove.
		return k.removeSecret(plan.walletID, entropyFileName)
	})
	if err != nil {
		return apperr.E(op, err)
	}

	plan.Discard()
	plan.shares = nil
	k.log.Info("rotated wallet shares", zap.String("wallet_id", plan.walletID),
		zap.Bool("first_split", plan.fromMachineOnly))
	return nil
}
