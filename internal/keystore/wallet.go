package keystore

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"unicode"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/seashail/seashail/internal/apperr"
	"github.com/seashail/seashail/internal/crypto"
	"github.com/seashail/seashail/internal/model"
	"github.com/seashail/seashail/internal/shamir"
)

const (
	// EntropyLen is the size of generated seed entropy (a 24-word mnemonic).
	EntropyLen = 32

	shareCount     = 3
	shareThreshold = 2

	maxWalletNameLen = 64
)

// Stable codes for custody errors.
const (
	CodeWalletNotFound     apperr.Code = "wallet_not_found"
	CodeWalletExists       apperr.Code = "wallet_exists"
	CodeAccountOutOfRange  apperr.Code = "account_out_of_range"
	CodeNotGenerated       apperr.Code = "not_generated_wallet"
	CodeNotImported        apperr.Code = "not_imported_wallet"
	CodeNeedsPassphrase    apperr.Code = "wallet_requires_passphrase"
	CodeNotSplit           apperr.Code = "wallet_not_split"
	CodeStaleRotationPlan  apperr.Code = "stale_rotation_plan"
	CodeNoActiveWallet     apperr.Code = "no_active_wallet"
	CodeInvalidWalletName  apperr.Code = "invalid_wallet_name"
	CodeCannotAddAccount   apperr.Code = "cannot_add_account"
	CodeInvalidImportInput apperr.Code = "invalid_import"
)

// ValidateWalletName rejects names that cannot be used as a wallet name.
func ValidateWalletName(name string) error {
	if name == "" || strings.TrimSpace(name) != name {
		return apperr.E(apperr.Invalid, CodeInvalidWalletName,
			"wallet name must be non-empty without surrounding spaces")
	}
	if len(name) > maxWalletNameLen {
		return apperr.E(apperr.Invalid, CodeInvalidWalletName,
			fmt.Sprintf("wallet name longer than %d bytes", maxWalletNameLen))
	}
	for _, r := range name {
		if unicode.IsControl(r) {
			return apperr.E(apperr.Invalid, CodeInvalidWalletName,
				"wallet name contains control characters")
		}
	}
	return nil
}

func notFound(name string) error {
	return apperr.E(apperr.NotExist, CodeWalletNotFound, fmt.Sprintf("wallet %q not found", name))
}

// newRecord checks name against ix and returns a fresh record for it.
func (k *Keystore) newRecord(ix *model.WalletIndex, id, name string, kind model.WalletKind) (*model.WalletRecord, error) {
	if err := ValidateWalletName(name); err != nil {
		return nil, err
	}
	if _, ok := ix.Find(name); ok {
		return nil, apperr.E(apperr.Exist, CodeWalletExists, fmt.Sprintf("wallet %q already exists", name))
	}
	return &model.WalletRecord{
		ID:        id,
		Name:      name,
		Kind:      kind,
		CreatedAt: k.clock.Now().UTC(),
	}, nil
}

// addRecord appends rec; the first wallet becomes the active one.
func addRecord(ix *model.WalletIndex, rec *model.WalletRecord) model.WalletInfo {
	ix.Wallets = append(ix.Wallets, *rec)
	if ix.ActiveWallet == "" {
		ix.ActiveWallet = rec.Name
		ix.ActiveAccount = 0
	}
	return rec.Info(ix.ActiveWallet == rec.Name)
}

// createWallet runs fn to write the secrets of a new wallet and add its
// record.  Secret files are removed again when anything fails.
func (k *Keystore) createWallet(ctx context.Context, op apperr.Op,
	fn func(ix *model.WalletIndex, id string) (model.WalletInfo, error)) (model.WalletInfo, error) {

	id := uuid.NewString()
	var info model.WalletInfo
	err := k.update(ctx, op, func(ix *model.WalletIndex) error {
		var err error
		info, err = fn(ix, id)
		return err
	})
	if err != nil {
		if rmErr := k.removeWalletSecrets(id); rmErr != nil {
			k.log.Error("failed to remove secrets of failed wallet",
				zap.String("wallet_id", id), zap.Error(rmErr))
		}
		return model.WalletInfo{}, err
	}
	k.log.Info("wallet created", zap.String("wallet", info.Name),
		zap.String("wallet_id", info.ID), zap.String("kind", string(info.Kind)))
	return info, nil
}

// CreateGeneratedWalletMachineOnly creates a wallet from fresh entropy
// encrypted under the machine secret alone.  No passphrase is needed to
// use it until its first share rotation.
func (k *Keystore) CreateGeneratedWalletMachineOnly(ctx context.Context, name string) (model.WalletInfo, error) {
	const op apperr.Op = "keystore.CreateGeneratedWalletMachineOnly"

	entropy, err := crypto.RandomBytes(EntropyLen)
	if err != nil {
		return model.WalletInfo{}, apperr.E(op, apperr.Crypto, err)
	}
	defer clear(entropy)

	return k.createWallet(ctx, op, func(ix *model.WalletIndex, id string) (model.WalletInfo, error) {
		rec, err := k.newRecord(ix, id, name, model.WalletKindGenerated)
		if err != nil {
			return model.WalletInfo{}, err
		}
		if err := k.cacheAccount(rec, func(acct uint32) (model.AccountAddresses, error) {
			return k.deriver.EntropyAddresses(entropy, acct)
		}); err != nil {
			return model.WalletInfo{}, err
		}

		box, err := sealWith(k.machineKey, id, purposeMachineEntropy, entropy)
		if err != nil {
			return model.WalletInfo{}, err
		}
		if err := k.writeSecret(id, entropyFileName, box); err != nil {
			return model.WalletInfo{}, err
		}
		return addRecord(ix, rec), nil
	})
}

// CreateGeneratedWallet creates a wallet and immediately splits its entropy
// 2-of-3.  Share 1 is sealed under the machine secret, Share 2 under the
// passphrase key, and Share 3 is returned base64-encoded for one-time
// display.  The wallet must not be treated as durable until the user has
// acknowledged Share 3; RemoveWallet rolls it back otherwise.
func (k *Keystore) CreateGeneratedWallet(ctx context.Context, name string,
	passKey []byte) (model.WalletInfo, string, error) {

	const op apperr.Op = "keystore.CreateGeneratedWallet"

	if err := k.VerifyPassphrase(passKey); err != nil {
		return model.WalletInfo{}, "", apperr.E(op, err)
	}

	entropy, err := crypto.RandomBytes(EntropyLen)
	if err != nil {
		return model.WalletInfo{}, "", apperr.E(op, apperr.Crypto, err)
	}
	defer clear(entropy)

	var share3 []byte
	defer func() { clear(share3) }()

	info, err := k.createWallet(ctx, op, func(ix *model.WalletIndex, id string) (model.WalletInfo, error) {
		rec, err := k.newRecord(ix, id, name, model.WalletKindGenerated)
		if err != nil {
			return model.WalletInfo{}, err
		}
		if err := k.cacheAccount(rec, func(acct uint32) (model.AccountAddresses, error) {
			return k.deriver.EntropyAddresses(entropy, acct)
		}); err != nil {
			return model.WalletInfo{}, err
		}

		set, s3, err := k.splitEntropy(id, entropy, passKey)
		if err != nil {
			return model.WalletInfo{}, err
		}
		share3 = s3
		if err := k.writeSecret(id, sharesFileName, set); err != nil {
			return model.WalletInfo{}, err
		}
		return addRecord(ix, rec), nil
	})
	if err != nil {
		return model.WalletInfo{}, "", err
	}
	return info, base64.StdEncoding.EncodeToString(share3), nil
}

// splitEntropy produces sealed Share 1 and Share 2 plus the plaintext
// Share 3.
func (k *Keystore) splitEntropy(walletID string, entropy, passKey []byte) (*shareSet, []byte, error) {
	shares, err := shamir.Split(entropy, shareCount, shareThreshold)
	if err != nil {
		return nil, nil, apperr.E(apperr.Crypto, err)
	}
	defer clear(shares[0])
	defer clear(shares[1])

	share1, err := sealWith(k.machineKey, walletID, purposeShare1, shares[0])
	if err != nil {
		clear(shares[2])
		return nil, nil, err
	}
	share2, err := sealWith(passKey, walletID, purposeShare2, shares[1])
	if err != nil {
		clear(shares[2])
		return nil, nil, err
	}
	return &shareSet{Share1: share1, Share2: share2}, shares[2], nil
}

// ImportWallet stores a user-supplied mnemonic or private key sealed under
// the passphrase key.  Imported wallets never have a machine-only state.
// secret must be []byte for security (caller should zero it after use)
func (k *Keystore) ImportWallet(ctx context.Context, name string, kind model.ImportedKind,
	chain model.KeyChain, secret, passKey []byte) (model.WalletInfo, error) {

	const op apperr.Op = "keystore.ImportWallet"

	if len(secret) == 0 {
		return model.WalletInfo{}, apperr.E(op, apperr.Invalid, CodeInvalidImportInput, "empty secret")
	}
	if err := k.VerifyPassphrase(passKey); err != nil {
		return model.WalletInfo{}, apperr.E(op, err)
	}

	var derive func(acct uint32) (model.AccountAddresses, error)
	switch kind {
	case model.ImportedMnemonic:
		if chain != "" {
			return model.WalletInfo{}, apperr.E(op, apperr.Invalid, CodeInvalidImportInput,
				"a mnemonic is not bound to one chain")
		}
		derive = func(acct uint32) (model.AccountAddresses, error) {
			return k.deriver.MnemonicAddresses(string(secret), acct)
		}
	case model.ImportedPrivateKey:
		switch chain {
		case model.KeyChainEVM, model.KeyChainSolana, model.KeyChainBitcoin:
		default:
			return model.WalletInfo{}, apperr.E(op, apperr.Invalid, CodeInvalidImportInput,
				fmt.Sprintf("unsupported private key chain %q", chain))
		}
		derive = func(uint32) (model.AccountAddresses, error) {
			return k.deriver.PrivateKeyAddresses(chain, secret)
		}
	default:
		return model.WalletInfo{}, apperr.E(op, apperr.Invalid, CodeInvalidImportInput,
			fmt.Sprintf("unknown import kind %q", kind))
	}

	return k.createWallet(ctx, op, func(ix *model.WalletIndex, id string) (model.WalletInfo, error) {
		rec, err := k.newRecord(ix, id, name, model.WalletKindImported)
		if err != nil {
			return model.WalletInfo{}, err
		}
		rec.ImportedKind = kind
		rec.ImportedChain = chain
		if err := k.cacheAccount(rec, derive); err != nil {
			return model.WalletInfo{}, apperr.E(apperr.Invalid, CodeInvalidImportInput, err)
		}

		box, err := sealWith(passKey, id, purposeImported, secret)
		if err != nil {
			return model.WalletInfo{}, err
		}
		if err := k.writeSecret(id, importedFileName, box); err != nil {
			return model.WalletInfo{}, err
		}
		return addRecord(ix, rec), nil
	})
}

// cacheAccount derives the addresses of the next account index and appends
// them to rec.
func (k *Keystore) cacheAccount(rec *model.WalletRecord,
	derive func(acct uint32) (model.AccountAddresses, error)) error {

	addrs, err := derive(rec.Accounts)
	if err != nil {
		return fmt.Errorf("failed to derive addresses: %w", err)
	}
	rec.Addresses.Append(addrs)
	rec.Accounts++
	if rec.Addresses.Longest() != rec.Accounts {
		return fmt.Errorf("derived no addresses for account %d", rec.Accounts-1)
	}
	return nil
}

// DecryptGeneratedEntropyNoPassphrase returns the entropy of a wallet still
// in the machine-only state.
func (k *Keystore) DecryptGeneratedEntropyNoPassphrase(walletID string) ([]byte, error) {
	const op apperr.Op = "keystore.DecryptGeneratedEntropyNoPassphrase"

	if _, err := k.generatedRecord(walletID); err != nil {
		return nil, apperr.E(op, err)
	}
	entropy, _, err := k.machineOnlyEntropy(walletID)
	if err != nil {
		return nil, apperr.E(op, err)
	}
	return entropy, nil
}

func (k *Keystore) machineOnlyEntropy(walletID string) ([]byte, []byte, error) {
	// A share set wins over an entropy file left behind by an interrupted
	// first split.
	split, err := k.secretExists(walletID, sharesFileName)
	if err != nil {
		return nil, nil, err
	}
	var box crypto.Box
	raw, err := k.readSecret(walletID, entropyFileName, &box)
	if split || apperr.Is(apperr.NotExist, err) {
		return nil, nil, apperr.E(apperr.Invalid, CodeNeedsPassphrase,
			"wallet has been split and requires a passphrase")
	}
	if err != nil {
		return nil, nil, err
	}
	entropy, err := openWith(k.machineKey, walletID, purposeMachineEntropy, &box)
	if err != nil {
		return nil, nil, err
	}
	return entropy, raw, nil
}

// DecryptGeneratedEntropy reconstructs the entropy of a split wallet from
// Share 1 (machine) and Share 2 (passphrase).
func (k *Keystore) DecryptGeneratedEntropy(walletID string, passKey []byte) ([]byte, error) {
	const op apperr.Op = "keystore.DecryptGeneratedEntropy"

	if _, err := k.generatedRecord(walletID); err != nil {
		return nil, apperr.E(op, err)
	}
	entropy, _, err := k.splitEntropyOpen(walletID, passKey)
	if err != nil {
		return nil, apperr.E(op, err)
	}
	return entropy, nil
}

func (k *Keystore) splitEntropyOpen(walletID string, passKey []byte) ([]byte, []byte, error) {
	if err := k.VerifyPassphrase(passKey); err != nil {
		return nil, nil, err
	}

	var set shareSet
	raw, err := k.readSecret(walletID, sharesFileName, &set)
	if apperr.Is(apperr.NotExist, err) {
		return nil, nil, apperr.E(apperr.Invalid, CodeNotSplit,
			"wallet has no shares yet; it is machine-only")
	}
	if err != nil {
		return nil, nil, err
	}

	share1, err := openWith(k.machineKey, walletID, purposeShare1, set.Share1)
	if err != nil {
		return nil, nil, err
	}
	defer clear(share1)
	share2, err := openWith(passKey, walletID, purposeShare2, set.Share2)
	if err != nil {
		return nil, nil, err
	}
	defer clear(share2)

	entropy, err := shamir.Combine([][]byte{share1, share2}, shareThreshold)
	if err != nil {
		return nil, nil, apperr.E(apperr.Crypto, err)
	}
	if len(entropy) != EntropyLen {
		clear(entropy)
		return nil, nil, apperr.E(apperr.Crypto, "reconstructed entropy has wrong length")
	}
	return entropy, raw, nil
}

// GeneratedWalletNeedsPassphrase reports whether the wallet has been split.
func (k *Keystore) GeneratedWalletNeedsPassphrase(walletID string) (bool, error) {
	const op apperr.Op = "keystore.GeneratedWalletNeedsPassphrase"

	if _, err := k.generatedRecord(walletID); err != nil {
		return false, apperr.E(op, err)
	}
	split, err := k.secretExists(walletID, sharesFileName)
	if err != nil {
		return false, apperr.E(op, err)
	}
	return split, nil
}

// DecryptImportedSecret returns the mnemonic or private key bytes of an
// imported wallet.
func (k *Keystore) DecryptImportedSecret(walletID string, passKey []byte) ([]byte, error) {
	const op apperr.Op = "keystore.DecryptImportedSecret"

	rec, err := k.recordByID(walletID)
	if err != nil {
		return nil, apperr.E(op, err)
	}
	if rec.Kind != model.WalletKindImported {
		return nil, apperr.E(op, apperr.Invalid, CodeNotImported,
			fmt.Sprintf("wallet %q is not imported", rec.Name))
	}
	if err := k.VerifyPassphrase(passKey); err != nil {
		return nil, apperr.E(op, err)
	}

	var box crypto.Box
	if _, err := k.readSecret(walletID, importedFileName, &box); err != nil {
		return nil, apperr.E(op, err)
	}
	secret, err := openWith(passKey, walletID, purposeImported, &box)
	if err != nil {
		return nil, apperr.E(op, err)
	}
	return secret, nil
}

func (k *Keystore) recordByID(walletID string) (*model.WalletRecord, error) {
	ix, err := k.readIndex()
	if err != nil {
		return nil, err
	}
	rec, ok := ix.FindByID(walletID)
	if !ok {
		return nil, apperr.E(apperr.NotExist, CodeWalletNotFound,
			fmt.Sprintf("wallet id %q not found", walletID))
	}
	return rec, nil
}

func (k *Keystore) generatedRecord(walletID string) (*model.WalletRecord, error) {
	rec, err := k.recordByID(walletID)
	if err != nil {
		return nil, err
	}
	if rec.Kind != model.WalletKindGenerated {
		return nil, apperr.E(apperr.Invalid, CodeNotGenerated,
			fmt.Sprintf("wallet %q is not a generated wallet", rec.Name))
	}
	return rec, nil
}

// ListWallets returns every wallet from the cached index.  It does not
// take the lock or decrypt anything.
func (k *Keystore) ListWallets() ([]model.WalletInfo, error) {
	const op apperr.Op = "keystore.ListWallets"

	ix, err := k.readIndex()
	if err != nil {
		return nil, apperr.E(op, err)
	}
	infos := make([]model.WalletInfo, 0, len(ix.Wallets))
	for i := range ix.Wallets {
		rec := &ix.Wallets[i]
		infos = append(infos, rec.Info(rec.Name == ix.ActiveWallet))
	}
	return infos, nil
}

// GetWalletByName returns a copy of the named wallet's record.
func (k *Keystore) GetWalletByName(name string) (model.WalletRecord, error) {
	const op apperr.Op = "keystore.GetWalletByName"

	ix, err := k.readIndex()
	if err != nil {
		return model.WalletRecord{}, apperr.E(op, err)
	}
	rec, ok := ix.Find(name)
	if !ok {
		return model.WalletRecord{}, apperr.E(op, notFound(name))
	}
	return *rec, nil
}

// GetActiveWallet returns the active wallet and account index.
func (k *Keystore) GetActiveWallet() (model.WalletRecord, uint32, error) {
	const op apperr.Op = "keystore.GetActiveWallet"

	ix, err := k.readIndex()
	if err != nil {
		return model.WalletRecord{}, 0, apperr.E(op, err)
	}
	if ix.ActiveWallet == "" {
		return model.WalletRecord{}, 0, apperr.E(op, apperr.NotExist, CodeNoActiveWallet,
			"no active wallet")
	}
	rec, ok := ix.Find(ix.ActiveWallet)
	if !ok {
		return model.WalletRecord{}, 0, apperr.E(op, notFound(ix.ActiveWallet))
	}
	return *rec, ix.ActiveAccount, nil
}

// SetActiveWallet points the index at a wallet and account.
func (k *Keystore) SetActiveWallet(ctx context.Context, name string, account uint32) error {
	const op apperr.Op = "keystore.SetActiveWallet"

	return k.update(ctx, op, func(ix *model.WalletIndex) error {
		rec, ok := ix.Find(name)
		if !ok {
			return notFound(name)
		}
		if account >= rec.Accounts {
			return apperr.E(apperr.NotExist, CodeAccountOutOfRange,
				fmt.Sprintf("account index %d out of range (wallet %q has %d)",
					account, name, rec.Accounts))
		}
		ix.ActiveWallet = name
		ix.ActiveAccount = account
		rec.LastActiveAccount = account
		return nil
	})
}

// AddAccount derives and caches addresses for the next account index.
// passKey may be nil for machine-only wallets.  Wallets imported from a
// single private key have exactly one account.
func (k *Keystore) AddAccount(ctx context.Context, name string, passKey []byte) (model.WalletInfo, error) {
	const op apperr.Op = "keystore.AddAccount"

	var info model.WalletInfo
	err := k.update(ctx, op, func(ix *model.WalletIndex) error {
		rec, ok := ix.Find(name)
		if !ok {
			return notFound(name)
		}

		var derive func(uint32) (model.AccountAddresses, error)
		switch {
		case rec.Kind == model.WalletKindGenerated:
			entropy, err := k.entropyFor(rec.ID, passKey)
			if err != nil {
				return err
			}
			defer clear(entropy)
			derive = func(acct uint32) (model.AccountAddresses, error) {
				return k.deriver.EntropyAddresses(entropy, acct)
			}

		case rec.ImportedKind == model.ImportedMnemonic:
			secret, err := k.DecryptImportedSecret(rec.ID, passKey)
			if err != nil {
				return err
			}
			defer clear(secret)
			derive = func(acct uint32) (model.AccountAddresses, error) {
				return k.deriver.MnemonicAddresses(string(secret), acct)
			}

		default:
			return apperr.E(apperr.Invalid, CodeCannotAddAccount,
				"a wallet imported from a private key has a single account")
		}

		if err := k.cacheAccount(rec, derive); err != nil {
			return err
		}
		info = rec.Info(rec.Name == ix.ActiveWallet)
		return nil
	})
	if err != nil {
		return model.WalletInfo{}, err
	}
	return info, nil
}

// entropyFor decrypts a generated wallet's entropy in whichever state the
// wallet is in.
func (k *Keystore) entropyFor(walletID string, passKey []byte) ([]byte, error) {
	split, err := k.secretExists(walletID, sharesFileName)
	if err != nil {
		return nil, err
	}
	if split {
		entropy, _, err := k.splitEntropyOpen(walletID, passKey)
		return entropy, err
	}
	entropy, _, err := k.machineOnlyEntropy(walletID)
	return entropy, err
}

// RemoveWallet deletes a wallet and its secret files.  It exists to roll
// back a creation whose backup share was never acknowledged.
func (k *Keystore) RemoveWallet(ctx context.Context, walletID string) error {
	const op apperr.Op = "keystore.RemoveWallet"

	var name string
	err := k.update(ctx, op, func(ix *model.WalletIndex) error {
		idx := -1
		for i := range ix.Wallets {
			if ix.Wallets[i].ID == walletID {
				idx = i
				break
			}
		}
		if idx < 0 {
			return apperr.E(apperr.NotExist, CodeWalletNotFound,
				fmt.Sprintf("wallet id %q not found", walletID))
		}
		name = ix.Wallets[idx].Name
		ix.Wallets = append(ix.Wallets[:idx], ix.Wallets[idx+1:]...)

		if ix.ActiveWallet == name {
			ix.ActiveWallet = ""
			ix.ActiveAccount = 0
			if len(ix.Wallets) > 0 {
				ix.ActiveWallet = ix.Wallets[0].Name
				ix.ActiveAccount = ix.Wallets[0].LastActiveAccount
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	if err := k.removeWalletSecrets(walletID); err != nil {
		return apperr.E(op, err)
	}
	k.log.Info("wallet removed", zap.String("wallet", name), zap.String("wallet_id", walletID))
	return nil
}
