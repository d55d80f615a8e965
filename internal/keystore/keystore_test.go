package keystore

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gofrs/flock"
	"github.com/lightningnetwork/lnd/clock"
	"github.com/stretchr/testify/require"
	"github.com/tyler-smith/go-bip39"

	"github.com/seashail/seashail/internal/apperr"
	"github.com/seashail/seashail/internal/config"
	"github.com/seashail/seashail/internal/crypto"
	"github.com/seashail/seashail/internal/model"
	"github.com/seashail/seashail/internal/policy"
	"github.com/seashail/seashail/internal/shamir"
	"github.com/seashail/seashail/internal/signer"
)

const abandonMnemonic = "abandon abandon abandon abandon abandon abandon " +
	"abandon abandon abandon abandon abandon about"

var testStart = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type harness struct {
	ks    *Keystore
	clock *clock.TestClock
	dir   string
}

func openAt(t *testing.T, dir string, clk clock.Clock) *Keystore {
	t.Helper()
	store, err := config.Open(filepath.Join(dir, config.DocumentName))
	require.NoError(t, err)

	ks, err := Open(context.Background(), Config{
		DataDir:     dir,
		Store:       store,
		Deriver:     signer.NewDeriver(),
		Clock:       clk,
		LockTimeout: 500 * time.Millisecond,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = ks.Close() })
	return ks
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	dir := t.TempDir()
	clk := clock.NewTestClock(testStart)
	return &harness{ks: openAt(t, dir, clk), clock: clk, dir: dir}
}

// establish sets up a random passphrase key, skipping the slow KDF.
func (h *harness) establish(t *testing.T) []byte {
	t.Helper()
	key, err := crypto.RandomBytes(crypto.KeyLen)
	require.NoError(t, err)
	require.NoError(t, h.ks.EstablishPassphrase(context.Background(), key))
	return key
}

func TestMachineOnlyCreation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	info, err := h.ks.CreateGeneratedWalletMachineOnly(ctx, "default")
	require.NoError(t, err)
	require.Equal(t, "default", info.Name)
	require.Equal(t, model.WalletKindGenerated, info.Kind)
	require.Equal(t, uint32(1), info.Accounts)
	require.True(t, info.Active, "first wallet becomes active")

	needs, err := h.ks.GeneratedWalletNeedsPassphrase(info.ID)
	require.NoError(t, err)
	require.False(t, needs)

	entropy, err := h.ks.DecryptGeneratedEntropyNoPassphrase(info.ID)
	require.NoError(t, err)
	require.Len(t, entropy, 32)

	mnemonic, err := signer.MnemonicFromEntropy(entropy)
	require.NoError(t, err)
	require.Len(t, strings.Fields(mnemonic), 24)
	back, err := bip39.EntropyFromMnemonic(mnemonic)
	require.NoError(t, err)
	require.Equal(t, entropy, back)

	addrs, err := signer.NewDeriver().EntropyAddresses(entropy, 0)
	require.NoError(t, err)
	require.Equal(t, addrs, info.Addresses.At(0))
	require.NotEmpty(t, addrs.EVM)
	require.NotEmpty(t, addrs.Solana)
	require.NotEmpty(t, addrs.BitcoinMainnet)
	require.NotEmpty(t, addrs.BitcoinTestnet)

	_, err = h.ks.DecryptGeneratedEntropy(info.ID, make([]byte, 32))
	require.Error(t, err)

	_, err = h.ks.CreateGeneratedWalletMachineOnly(ctx, "default")
	require.True(t, apperr.Is(apperr.Exist, err))
	require.Equal(t, CodeWalletExists, apperr.CodeOf(err))

	// The machine key survives a restart.
	reopened := openAt(t, h.dir, h.clock)
	again, err := reopened.DecryptGeneratedEntropyNoPassphrase(info.ID)
	require.NoError(t, err)
	require.Equal(t, entropy, again)
}

func TestFilePermissions(t *testing.T) {
	h := newHarness(t)
	_, err := h.ks.CreateGeneratedWalletMachineOnly(context.Background(), "default")
	require.NoError(t, err)

	dirInfo, err := os.Stat(h.dir)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o700), dirInfo.Mode().Perm())

	for _, name := range []string{indexFileName, machineKeyFileName} {
		info, err := os.Stat(filepath.Join(h.dir, name))
		require.NoError(t, err)
		require.Equal(t, os.FileMode(0o600), info.Mode().Perm(), name)
	}
}

func TestCreateGeneratedWallet(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, _, err := h.ks.CreateGeneratedWallet(ctx, "main", make([]byte, 32))
	require.True(t, apperr.Is(apperr.NotEstablished, err))

	passKey := h.establish(t)
	info, share3B64, err := h.ks.CreateGeneratedWallet(ctx, "main", passKey)
	require.NoError(t, err)

	share3, err := base64.StdEncoding.DecodeString(share3B64)
	require.NoError(t, err)
	require.Len(t, share3, EntropyLen+shamir.ShareOverhead)

	needs, err := h.ks.GeneratedWalletNeedsPassphrase(info.ID)
	require.NoError(t, err)
	require.True(t, needs)

	entropy, err := h.ks.DecryptGeneratedEntropy(info.ID, passKey)
	require.NoError(t, err)
	require.Len(t, entropy, EntropyLen)

	addrs, err := signer.NewDeriver().EntropyAddresses(entropy, 0)
	require.NoError(t, err)
	require.Equal(t, addrs, info.Addresses.At(0))

	// Share 1 plus the offline Share 3 also recover the entropy.
	var set shareSet
	_, err = h.ks.readSecret(info.ID, sharesFileName, &set)
	require.NoError(t, err)
	share1, err := openWith(h.ks.machineKey, info.ID, purposeShare1, set.Share1)
	require.NoError(t, err)
	recovered, err := shamir.Combine([][]byte{share3, share1}, 2)
	require.NoError(t, err)
	require.Equal(t, entropy, recovered)

	wrong := bytes.Repeat([]byte{0x42}, 32)
	_, err = h.ks.DecryptGeneratedEntropy(info.ID, wrong)
	require.True(t, apperr.Is(apperr.Passphrase, err))
	require.True(t, errors.Is(err, crypto.ErrAuthFailed))

	_, err = h.ks.DecryptGeneratedEntropyNoPassphrase(info.ID)
	require.Equal(t, CodeNeedsPassphrase, apperr.CodeOf(err))
}

func TestTamperedShareFailsClosed(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	passKey := h.establish(t)

	info, _, err := h.ks.CreateGeneratedWallet(ctx, "main", passKey)
	require.NoError(t, err)

	var set shareSet
	_, err = h.ks.readSecret(info.ID, sharesFileName, &set)
	require.NoError(t, err)
	set.Share2.Ciphertext[0] ^= 0xff
	require.NoError(t, h.ks.writeSecret(info.ID, sharesFileName, &set))

	entropy, err := h.ks.DecryptGeneratedEntropy(info.ID, passKey)
	require.True(t, apperr.Is(apperr.Crypto, err))
	require.Nil(t, entropy)
}

func TestRotationSafety(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	passKey := h.establish(t)

	info, oldShare3, err := h.ks.CreateGeneratedWallet(ctx, "main", passKey)
	require.NoError(t, err)
	entropy, err := h.ks.DecryptGeneratedEntropy(info.ID, passKey)
	require.NoError(t, err)

	sharesPath := filepath.Join(h.dir, secretsDirName, info.ID, sharesFileName)
	before, err := os.ReadFile(sharesPath)
	require.NoError(t, err)

	plan, err := h.ks.PlanRotateShares(info.ID, passKey)
	require.NoError(t, err)
	require.False(t, plan.FirstSplit())
	require.NotEqual(t, oldShare3, plan.Share3Base64())

	// Without a commit nothing changed.
	after, err := os.ReadFile(sharesPath)
	require.NoError(t, err)
	require.Equal(t, before, after)
	got, err := h.ks.DecryptGeneratedEntropy(info.ID, passKey)
	require.NoError(t, err)
	require.Equal(t, entropy, got)
	plan.Discard()

	// A committed plan keeps the entropy and makes the new Share 3 valid.
	plan, err = h.ks.PlanRotateShares(info.ID, passKey)
	require.NoError(t, err)
	newShare3 := append([]byte(nil), plan.Share3()...)
	require.NoError(t, h.ks.CommitRotateShares(ctx, plan))
	require.Nil(t, plan.Share3(), "commit zeroizes the plan")

	got, err = h.ks.DecryptGeneratedEntropy(info.ID, passKey)
	require.NoError(t, err)
	require.Equal(t, entropy, got)

	var set shareSet
	_, err = h.ks.readSecret(info.ID, sharesFileName, &set)
	require.NoError(t, err)
	share1, err := openWith(h.ks.machineKey, info.ID, purposeShare1, set.Share1)
	require.NoError(t, err)
	recovered, err := shamir.Combine([][]byte{newShare3, share1}, 2)
	require.NoError(t, err)
	require.Equal(t, entropy, recovered)
}

func TestStaleRotationPlan(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	passKey := h.establish(t)

	info, _, err := h.ks.CreateGeneratedWallet(ctx, "main", passKey)
	require.NoError(t, err)

	first, err := h.ks.PlanRotateShares(info.ID, passKey)
	require.NoError(t, err)
	second, err := h.ks.PlanRotateShares(info.ID, passKey)
	require.NoError(t, err)

	require.NoError(t, h.ks.CommitRotateShares(ctx, second))
	err = h.ks.CommitRotateShares(ctx, first)
	require.Equal(t, CodeStaleRotationPlan, apperr.CodeOf(err))

	require.True(t, apperr.Is(apperr.Invalid, h.ks.CommitRotateShares(ctx, nil)))
}

func TestMachineOnlyUpgrade(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	info, err := h.ks.CreateGeneratedWalletMachineOnly(ctx, "default")
	require.NoError(t, err)
	entropy, err := h.ks.DecryptGeneratedEntropyNoPassphrase(info.ID)
	require.NoError(t, err)

	_, err = h.ks.PlanRotateShares(info.ID, make([]byte, 32))
	require.True(t, apperr.Is(apperr.NotEstablished, err))

	passKey := h.establish(t)
	plan, err := h.ks.PlanRotateShares(info.ID, passKey)
	require.NoError(t, err)
	require.True(t, plan.FirstSplit())
	require.NoError(t, h.ks.CommitRotateShares(ctx, plan))

	needs, err := h.ks.GeneratedWalletNeedsPassphrase(info.ID)
	require.NoError(t, err)
	require.True(t, needs)

	exists, err := h.ks.secretExists(info.ID, entropyFileName)
	require.NoError(t, err)
	require.False(t, exists, "machine-only entropy is removed")

	got, err := h.ks.DecryptGeneratedEntropy(info.ID, passKey)
	require.NoError(t, err)
	require.Equal(t, entropy, got)
}

func TestLeftoverEntropyAfterSplit(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	info, err := h.ks.CreateGeneratedWalletMachineOnly(ctx, "default")
	require.NoError(t, err)
	path, err := h.ks.secretPath(info.ID, entropyFileName)
	require.NoError(t, err)
	leftover, err := os.ReadFile(path)
	require.NoError(t, err)

	passKey := h.establish(t)
	plan, err := h.ks.PlanRotateShares(info.ID, passKey)
	require.NoError(t, err)
	require.NoError(t, h.ks.CommitRotateShares(ctx, plan))

	// As if the entropy file had survived the commit.
	require.NoError(t, os.WriteFile(path, leftover, 0o600))

	needs, err := h.ks.GeneratedWalletNeedsPassphrase(info.ID)
	require.NoError(t, err)
	require.True(t, needs)
	_, err = h.ks.DecryptGeneratedEntropyNoPassphrase(info.ID)
	require.Equal(t, CodeNeedsPassphrase, apperr.CodeOf(err))

	plan, err = h.ks.PlanRotateShares(info.ID, passKey)
	require.NoError(t, err)
	require.False(t, plan.FirstSplit())
	require.NoError(t, h.ks.CommitRotateShares(ctx, plan))

	exists, err := h.ks.secretExists(info.ID, entropyFileName)
	require.NoError(t, err)
	require.False(t, exists)
}

func TestImportWallet(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	passKey := h.establish(t)

	info, err := h.ks.ImportWallet(ctx, "imported", model.ImportedMnemonic, "",
		[]byte(abandonMnemonic), passKey)
	require.NoError(t, err)
	require.Equal(t, model.WalletKindImported, info.Kind)
	require.Equal(t, model.ImportedMnemonic, info.ImportedKind)
	require.Equal(t, "0x9858EfFD232B4033E47d90003D41EC34EcaEda94", info.Addresses.At(0).EVM)

	secret, err := h.ks.DecryptImportedSecret(info.ID, passKey)
	require.NoError(t, err)
	require.Equal(t, abandonMnemonic, string(secret))

	info, err = h.ks.AddAccount(ctx, "imported", passKey)
	require.NoError(t, err)
	require.Equal(t, uint32(2), info.Accounts)
	require.Equal(t, "0x6Fac4D18c912343BF86fa7049364Dd4E424Ab9C0", info.Addresses.At(1).EVM)

	pk, err := h.ks.ImportWallet(ctx, "hot", model.ImportedPrivateKey, model.KeyChainEVM,
		[]byte("0x4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318"), passKey)
	require.NoError(t, err)
	require.Equal(t, model.AccountAddresses{EVM: "0x2c7536E3605D9C16a7a3D7b1898e529396a65c23"},
		pk.Addresses.At(0))
	require.Empty(t, pk.Addresses.Solana)

	_, err = h.ks.AddAccount(ctx, "hot", passKey)
	require.Equal(t, CodeCannotAddAccount, apperr.CodeOf(err))

	_, err = h.ks.DecryptGeneratedEntropy(pk.ID, passKey)
	require.Equal(t, CodeNotGenerated, apperr.CodeOf(err))
}

func TestImportRejectsBadInput(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	passKey := h.establish(t)

	_, err := h.ks.ImportWallet(ctx, "bad", model.ImportedMnemonic, "",
		[]byte("not a valid mnemonic"), passKey)
	require.Equal(t, CodeInvalidImportInput, apperr.CodeOf(err))

	_, err = h.ks.ImportWallet(ctx, "bad", model.ImportedPrivateKey, "",
		[]byte("0x01"), passKey)
	require.Equal(t, CodeInvalidImportInput, apperr.CodeOf(err))

	_, err = h.ks.ImportWallet(ctx, "bad", model.ImportedMnemonic, "",
		[]byte(abandonMnemonic), bytes.Repeat([]byte{9}, 32))
	require.True(t, apperr.Is(apperr.Passphrase, err))

	wallets, err := h.ks.ListWallets()
	require.NoError(t, err)
	require.Empty(t, wallets)

	// Failed creations leave no secret directories behind.
	entries, err := os.ReadDir(filepath.Join(h.dir, secretsDirName))
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestActiveWalletAndRemoval(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	first, err := h.ks.CreateGeneratedWalletMachineOnly(ctx, "first")
	require.NoError(t, err)
	second, err := h.ks.CreateGeneratedWalletMachineOnly(ctx, "second")
	require.NoError(t, err)
	require.False(t, second.Active)

	_, err = h.ks.AddAccount(ctx, "second", nil)
	require.NoError(t, err)

	require.NoError(t, h.ks.SetActiveWallet(ctx, "second", 1))
	rec, account, err := h.ks.GetActiveWallet()
	require.NoError(t, err)
	require.Equal(t, "second", rec.Name)
	require.Equal(t, uint32(1), account)
	require.Equal(t, uint32(1), rec.LastActiveAccount)

	err = h.ks.SetActiveWallet(ctx, "second", 2)
	require.Equal(t, CodeAccountOutOfRange, apperr.CodeOf(err))
	err = h.ks.SetActiveWallet(ctx, "missing", 0)
	require.True(t, apperr.Is(apperr.NotExist, err))

	require.NoError(t, h.ks.RemoveWallet(ctx, second.ID))
	rec, account, err = h.ks.GetActiveWallet()
	require.NoError(t, err)
	require.Equal(t, "first", rec.Name)
	require.Equal(t, uint32(0), account)

	_, err = os.Stat(filepath.Join(h.dir, secretsDirName, second.ID))
	require.True(t, os.IsNotExist(err))

	require.NoError(t, h.ks.RemoveWallet(ctx, first.ID))
	_, _, err = h.ks.GetActiveWallet()
	require.Equal(t, CodeNoActiveWallet, apperr.CodeOf(err))
}

func TestWalletNameValidation(t *testing.T) {
	for _, name := range []string{"", " padded", "tab\tname", strings.Repeat("x", 65)} {
		require.Error(t, ValidateWalletName(name), "%q", name)
	}
	require.NoError(t, ValidateWalletName("trading-1"))
}

func TestLockTimeoutAndRelease(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.ks.CreateGeneratedWalletMachineOnly(ctx, "default")
	require.NoError(t, err)

	// A failing mutation must still release the lock.
	_, err = h.ks.CreateGeneratedWalletMachineOnly(ctx, "default")
	require.Error(t, err)
	require.NoError(t, h.ks.SetActiveWallet(ctx, "default", 0))

	// Another holder of the file lock blocks mutations until released.
	other := flock.New(filepath.Join(h.dir, lockFileName))
	locked, err := other.TryLock()
	require.NoError(t, err)
	require.True(t, locked)

	err = h.ks.SetActiveWallet(ctx, "default", 0)
	require.True(t, apperr.Is(apperr.LockTimeout, err))

	// Reads never take the lock.
	wallets, err := h.ks.ListWallets()
	require.NoError(t, err)
	require.Len(t, wallets, 1)

	require.NoError(t, other.Unlock())
	require.NoError(t, h.ks.SetActiveWallet(ctx, "default", 0))
}

func TestPassphraseSaltAndKey(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	salt, err := h.ks.EnsurePassphraseSalt(ctx)
	require.NoError(t, err)
	require.Len(t, salt, config.SaltLen)

	again, err := h.ks.EnsurePassphraseSalt(ctx)
	require.NoError(t, err)
	require.Equal(t, salt, again)

	// Persisted for other processes.
	store, err := config.Open(filepath.Join(h.dir, config.DocumentName))
	require.NoError(t, err)
	persisted, ok := store.PassphraseSalt()
	require.True(t, ok)
	require.Equal(t, salt, persisted)

	k1, err := h.ks.DerivePassphraseKey(ctx, []byte("hunter22"))
	require.NoError(t, err)
	k2, err := h.ks.DerivePassphraseKey(ctx, []byte("hunter22"))
	require.NoError(t, err)
	require.Equal(t, k1, k2)

	established, err := h.ks.PassphraseEstablished()
	require.NoError(t, err)
	require.False(t, established)

	require.NoError(t, h.ks.EstablishPassphrase(ctx, k1))
	require.NoError(t, h.ks.VerifyPassphrase(k2))
	require.True(t, apperr.Is(apperr.Exist, h.ks.EstablishPassphrase(ctx, k1)))

	k3, err := h.ks.DerivePassphraseKey(ctx, []byte("hunter23"))
	require.NoError(t, err)
	require.True(t, apperr.Is(apperr.Passphrase, h.ks.VerifyPassphrase(k3)))
}

func TestUpdatePolicy(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	p := policy.Default()
	p.MaxUSDPerDay = 100

	err := h.ks.UpdatePolicy(ctx, "missing", p)
	require.True(t, apperr.Is(apperr.NotExist, err))

	_, err = h.ks.CreateGeneratedWalletMachineOnly(ctx, "default")
	require.NoError(t, err)
	require.NoError(t, h.ks.UpdatePolicy(ctx, "default", p))

	got, override := h.ks.PolicyForWallet("default")
	require.True(t, override)
	require.Equal(t, 100.0, got.MaxUSDPerDay)

	bad := policy.Default()
	bad.AutoApproveUSD = bad.HardBlockOverUSD + 1
	require.True(t, apperr.Is(apperr.Invalid, h.ks.UpdatePolicy(ctx, "", bad)))

	require.NoError(t, h.ks.ClearPolicyOverride(ctx, "default"))
	_, override = h.ks.PolicyForWallet("default")
	require.False(t, override)
}

func TestHistoryDailyUsed(t *testing.T) {
	h := newHarness(t)
	ks := h.ks

	at := func(d time.Duration) time.Time { return testStart.Add(d) }
	records := []model.TxHistoryRecord{
		// Yesterday, excluded from today's total.
		{Timestamp: at(-24 * time.Hour), Wallet: "a", Op: policy.OpSend,
			USDValue: 500, USDValueKnown: true, Status: model.TxStatusBroadcast},
		{Timestamp: at(-time.Hour), Wallet: "a", Op: policy.OpSend,
			USDValue: 20, USDValueKnown: true, Status: model.TxStatusBroadcast},
		{Timestamp: at(-30 * time.Minute), Wallet: "a", Op: policy.OpSwap,
			USDValue: 5.5, USDValueKnown: true, Status: model.TxStatusBroadcast},
		{Timestamp: at(-20 * time.Minute), Wallet: "a", Op: policy.OpSend,
			USDValue: 100, USDValueKnown: true, Status: model.TxStatusFailed},
		{Timestamp: at(-10 * time.Minute), Wallet: "a", Op: policy.OpSend,
			USDValue: 7, USDValueKnown: false, Status: model.TxStatusBroadcast},
		{Timestamp: at(-5 * time.Minute), Wallet: "a", Op: policy.OpInternalTransfer,
			USDValue: 50, USDValueKnown: true, Status: model.TxStatusBroadcast},
		{Timestamp: at(-time.Minute), Wallet: "b", Op: policy.OpSend,
			USDValue: 3, USDValueKnown: true, Status: model.TxStatusBroadcast},
	}
	for i := range records {
		require.NoError(t, ks.AppendTxHistory(&records[i]))
	}

	used, err := ks.DailyUsedUSD("a")
	require.NoError(t, err)
	require.InDelta(t, 25.5, used, 1e-9)

	all, err := ks.DailyUsedUSDFiltered(testStart, nil)
	require.NoError(t, err)
	require.InDelta(t, 28.5, all, 1e-9)

	// The window resets at UTC midnight.
	h.clock.SetTime(time.Date(2026, 3, 2, 0, 0, 1, 0, time.UTC))
	used, err = ks.DailyUsedUSD("a")
	require.NoError(t, err)
	require.Zero(t, used)

	wallet := "a"
	send := policy.OpSend
	got, err := ks.QueryHistory(model.HistoryQuery{Wallet: &wallet, Op: &send})
	require.NoError(t, err)
	require.Len(t, got, 4)
	require.True(t, got[0].Timestamp.Before(got[1].Timestamp), "oldest first")

	from := at(-time.Hour)
	to := at(-10 * time.Minute)
	got, err = ks.QueryHistory(model.HistoryQuery{From: &from, To: &to})
	require.NoError(t, err)
	require.Len(t, got, 3, "to is exclusive")

	got, err = ks.QueryHistory(model.HistoryQuery{Limit: 2})
	require.NoError(t, err)
	require.Len(t, got, 2)

	_, err = ks.QueryHistory(model.HistoryQuery{Limit: -1})
	require.True(t, apperr.Is(apperr.Invalid, err))
}

func TestDailyUsedIgnoresNegativeValues(t *testing.T) {
	h := newHarness(t)

	for _, usd := range []float64{4000, -1e6, 900} {
		require.NoError(t, h.ks.AppendTxHistory(&model.TxHistoryRecord{
			Timestamp:     testStart.Add(-time.Minute),
			Wallet:        "a",
			Op:            policy.OpSend,
			USDValue:      usd,
			USDValueKnown: true,
			Status:        model.TxStatusBroadcast,
		}))
	}

	used, err := h.ks.DailyUsedUSD("a")
	require.NoError(t, err)
	require.InDelta(t, 4900, used, 1e-9)
}

func TestCountHistorySince(t *testing.T) {
	h := newHarness(t)

	for i := 0; i < 3; i++ {
		require.NoError(t, h.ks.AppendTxHistory(&model.TxHistoryRecord{
			Timestamp: testStart.Add(-time.Duration(i*40) * time.Minute),
			Wallet:    "degen",
			Chain:     policy.ChainSolana,
			Op:        policy.OpPumpfunBuy,
			Status:    model.TxStatusBroadcast,
		}))
	}
	require.NoError(t, h.ks.AppendTxHistory(&model.TxHistoryRecord{
		Timestamp: testStart.Add(-time.Minute),
		Wallet:    "degen",
		Op:        policy.OpPumpfunBuy,
		Status:    model.TxStatusFailed,
	}))

	n, err := h.ks.CountHistorySince("degen", policy.OpPumpfunBuy, testStart.Add(-time.Hour))
	require.NoError(t, err)
	require.Equal(t, uint32(2), n)

	n, err = h.ks.CountHistorySince("other", policy.OpPumpfunBuy, testStart.Add(-time.Hour))
	require.NoError(t, err)
	require.Zero(t, n)
}

func TestAuditLog(t *testing.T) {
	h := newHarness(t)

	// Reading before anything was written is not an error.
	got, err := h.ks.QueryAudit(model.HistoryQuery{})
	require.NoError(t, err)
	require.Empty(t, got)

	h.ks.RecordAuditBestEffort(&model.AuditRecord{
		RequestID: "req-1",
		Wallet:    "default",
		Op:        policy.OpSend,
		Decision:  model.DecisionBlocked,
		Reason:    string(policy.ReasonHardCapExceeded),
	})

	got, err = h.ks.QueryAudit(model.HistoryQuery{})
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "req-1", got[0].RequestID)
	require.True(t, testStart.Equal(got[0].Timestamp))
}

func TestSessionExpiry(t *testing.T) {
	clk := clock.NewTestClock(testStart)
	s := NewSession(clk)

	_, ok := s.Get()
	require.False(t, ok)

	key := []byte("0123456789abcdef0123456789abcdef")
	s.Set(key, 30*time.Minute)
	key[0] = 'X'

	got, ok := s.Get()
	require.True(t, ok)
	require.Equal(t, byte('0'), got[0], "session keeps its own copy")

	clk.SetTime(testStart.Add(30*time.Minute - time.Nanosecond))
	_, ok = s.Get()
	require.True(t, ok)

	clk.SetTime(testStart.Add(30 * time.Minute))
	_, ok = s.Get()
	require.False(t, ok)
	_, ok = s.ExpiresAt()
	require.False(t, ok, "expired key is dropped")

	s.Set(got, time.Minute)
	s.Clear()
	_, ok = s.Get()
	require.False(t, ok)
}
