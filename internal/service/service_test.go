package service

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/lightningnetwork/lnd/clock"
	"github.com/stretchr/testify/require"

	"github.com/seashail/seashail/evm"
	"github.com/seashail/seashail/internal/apperr"
	"github.com/seashail/seashail/internal/config"
	"github.com/seashail/seashail/internal/confirm"
	"github.com/seashail/seashail/internal/elicit"
	"github.com/seashail/seashail/internal/keystore"
	"github.com/seashail/seashail/internal/model"
	"github.com/seashail/seashail/internal/policy"
	"github.com/seashail/seashail/internal/signer"
)

type fakePrompter struct {
	mu    sync.Mutex
	pass  string
	calls atomic.Int32
	gate  chan struct{}
}

func (p *fakePrompter) PromptPassphrase(ctx context.Context, _ string, _ bool) ([]byte, error) {
	p.calls.Add(1)
	if p.gate != nil {
		select {
		case <-p.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return []byte(p.pass), nil
}

func (p *fakePrompter) set(pass string) {
	p.mu.Lock()
	p.pass = pass
	p.mu.Unlock()
}

// fakeUser answers write confirmations with confirmWrites and types back
// the tail of any offline share when acceptBackup is set.
type fakeUser struct {
	confirmWrites bool
	acceptBackup  bool
	backups       int
}

func (u *fakeUser) ElicitForm(_ context.Context, msg string, schema elicit.Schema) (elicit.Response, error) {
	if _, ok := schema.Properties["confirm"]; ok {
		if !u.confirmWrites {
			return elicit.Response{Action: elicit.Decline}, nil
		}
		return elicit.Response{Action: elicit.Accept, Content: map[string]any{"confirm": true}}, nil
	}

	u.backups++
	if !u.acceptBackup {
		return elicit.Response{Action: elicit.Decline}, nil
	}
	lines := strings.Split(msg, "\n")
	share := lines[len(lines)-1]
	return elicit.Response{Action: elicit.Accept, Content: map[string]any{
		"share_tail": share[len(share)-confirm.BackupTailLen:],
	}}, nil
}

type fixedPricer float64

func (p fixedPricer) NativeUSDPrice(context.Context, policy.Chain) (float64, error) {
	return float64(p), nil
}

type harness struct {
	svc      *Service
	ks       *keystore.Keystore
	prompter *fakePrompter
	user     *fakeUser
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	dir := t.TempDir()
	store, err := config.Open(filepath.Join(dir, config.DocumentName))
	require.NoError(t, err)

	clk := clock.NewTestClock(time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC))
	ks, err := keystore.Open(context.Background(), keystore.Config{
		DataDir: dir,
		Store:   store,
		Deriver: signer.NewDeriver(),
		Clock:   clk,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = ks.Close() })

	user := &fakeUser{confirmWrites: true, acceptBackup: true}
	prompter := &fakePrompter{pass: "correct horse battery"}
	svc := New(Config{
		Keystore: ks,
		Confirmer: confirm.New(confirm.Config{
			Ledger:   ks,
			Elicitor: user,
			Clock:    clk,
			Timeout:  time.Second,
		}),
		Prompter: prompter,
		Pricer:   fixedPricer(100),
	})
	return &harness{svc: svc, ks: ks, prompter: prompter, user: user}
}

func TestEnsureUnlockedEstablishesThenCaches(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	established, err := h.ks.PassphraseEstablished()
	require.NoError(t, err)
	require.False(t, established)

	key, err := h.svc.EnsureUnlocked(ctx)
	require.NoError(t, err)
	require.Len(t, key, 32)

	established, err = h.ks.PassphraseEstablished()
	require.NoError(t, err)
	require.True(t, established)

	again, err := h.svc.EnsureUnlocked(ctx)
	require.NoError(t, err)
	require.Equal(t, key, again)
	require.Equal(t, int32(1), h.prompter.calls.Load())

	// After locking, the wrong passphrase is refused and nothing is cached.
	h.svc.Lock()
	h.prompter.set("wrong horse")
	_, err = h.svc.EnsureUnlocked(ctx)
	require.True(t, apperr.Is(apperr.Passphrase, err))
	_, ok := h.ks.SessionGet()
	require.False(t, ok)

	h.prompter.set("correct horse battery")
	_, err = h.svc.EnsureUnlocked(ctx)
	require.NoError(t, err)
}

func TestEnsureUnlockedPromptsOnce(t *testing.T) {
	h := newHarness(t)
	h.prompter.gate = make(chan struct{})

	var wg sync.WaitGroup
	errs := make(chan error, 4)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := h.svc.EnsureUnlocked(context.Background())
			errs <- err
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(h.prompter.gate)
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}
	require.Equal(t, int32(1), h.prompter.calls.Load())
}

func TestEnsureUnlockedWithoutPrompter(t *testing.T) {
	h := newHarness(t)
	h.svc.prompter = nil
	_, err := h.svc.EnsureUnlocked(context.Background())
	require.True(t, apperr.Is(apperr.Passphrase, err))
}

func TestEnsureDefaultWallet(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	info, created, err := h.svc.EnsureDefaultWallet(ctx)
	require.NoError(t, err)
	require.True(t, created)
	require.Equal(t, DefaultWalletName, info.Name)
	require.Zero(t, h.prompter.calls.Load(), "onboarding needs no passphrase")

	again, created, err := h.svc.EnsureDefaultWallet(ctx)
	require.NoError(t, err)
	require.False(t, created)
	require.Equal(t, info.ID, again.ID)
}

func TestCreateWalletRollsBackWithoutBackup(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.user.acceptBackup = false
	_, err := h.svc.CreateWallet(ctx, "vault")
	require.True(t, apperr.Is(apperr.BackupNotConfirmed, err))

	_, err = h.ks.GetWalletByName("vault")
	require.True(t, apperr.Is(apperr.NotExist, err))

	h.user.acceptBackup = true
	info, err := h.svc.CreateWallet(ctx, "vault")
	require.NoError(t, err)
	needs, err := h.ks.GeneratedWalletNeedsPassphrase(info.ID)
	require.NoError(t, err)
	require.True(t, needs)
	require.Equal(t, 2, h.user.backups)
}

func TestRotateShares(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	info, _, err := h.svc.EnsureDefaultWallet(ctx)
	require.NoError(t, err)
	rec, err := h.ks.GetWalletByName(info.Name)
	require.NoError(t, err)

	// A declined backup leaves the wallet machine-only.
	h.user.acceptBackup = false
	err = h.svc.RotateShares(ctx, info.Name)
	require.True(t, apperr.Is(apperr.BackupNotConfirmed, err))
	needs, err := h.ks.GeneratedWalletNeedsPassphrase(info.ID)
	require.NoError(t, err)
	require.False(t, needs)

	before, err := h.svc.UnlockedKeys(ctx, rec, 0)
	require.NoError(t, err)
	defer before.Zero()

	h.user.acceptBackup = true
	require.NoError(t, h.svc.RotateShares(ctx, info.Name))
	needs, err = h.ks.GeneratedWalletNeedsPassphrase(info.ID)
	require.NoError(t, err)
	require.True(t, needs)

	// Rotating again on a split wallet keeps the same keys.
	require.NoError(t, h.svc.RotateShares(ctx, info.Name))
	after, err := h.svc.UnlockedKeys(ctx, rec, 0)
	require.NoError(t, err)
	defer after.Zero()
	require.Equal(t, evm.Address(before.EVM), evm.Address(after.EVM))
	require.Equal(t, info.Addresses.EVM[0], evm.Address(after.EVM))
}

func TestPrepareWrite(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	info, _, err := h.svc.EnsureDefaultWallet(ctx)
	require.NoError(t, err)

	req := &confirm.Request{
		Op:            policy.OpSend,
		Chain:         policy.ChainBase,
		USDValue:      4,
		USDValueKnown: true,
	}
	out, keys, err := h.svc.PrepareWrite(ctx, req)
	require.NoError(t, err)
	defer keys.Zero()
	require.Equal(t, model.DecisionAutoApproved, out.Decision)
	require.Equal(t, info.Name, req.Wallet, "active wallet is used")
	require.Equal(t, info.Addresses.EVM[0], evm.Address(keys.EVM))

	h.svc.RecordBroadcast(req, "0xabc", nil)
	used, err := h.ks.DailyUsedUSD(info.Name)
	require.NoError(t, err)
	require.Equal(t, 4.0, used)

	blocked := &confirm.Request{
		Wallet:        info.Name,
		Op:            policy.OpSend,
		Chain:         policy.ChainBase,
		USDValue:      5000,
		USDValueKnown: true,
	}
	_, keys, err = h.svc.PrepareWrite(ctx, blocked)
	require.True(t, apperr.Is(apperr.Policy, err))
	require.Nil(t, keys)

	h.user.confirmWrites = false
	declined := &confirm.Request{
		Wallet:        info.Name,
		Op:            policy.OpSend,
		Chain:         policy.ChainBase,
		USDValue:      50,
		USDValueKnown: true,
	}
	_, keys, err = h.svc.PrepareWrite(ctx, declined)
	require.True(t, apperr.Is(apperr.Declined, err))
	require.Nil(t, keys)

	audits, err := h.ks.QueryAudit(model.HistoryQuery{})
	require.NoError(t, err)
	require.Len(t, audits, 3)
	require.Equal(t, model.DecisionAutoApproved, audits[0].Decision)
	require.Equal(t, model.DecisionBlocked, audits[1].Decision)
	require.Equal(t, model.DecisionUserDeclined, audits[2].Decision)

	_, _, err = h.svc.PrepareWrite(ctx, &confirm.Request{Wallet: info.Name, AccountIndex: 3})
	require.Equal(t, keystore.CodeAccountOutOfRange, apperr.CodeOf(err))
}

func TestRecordBroadcastFailure(t *testing.T) {
	h := newHarness(t)
	req := &confirm.Request{Wallet: "default", Op: policy.OpSend, USDValue: 9, USDValueKnown: true}
	h.svc.RecordBroadcast(req, "", errors.New("rpc rejected"))

	txs, err := h.ks.QueryHistory(model.HistoryQuery{})
	require.NoError(t, err)
	require.Len(t, txs, 1)
	require.Equal(t, model.TxStatusFailed, txs[0].Status)

	used, err := h.ks.DailyUsedUSD("default")
	require.NoError(t, err)
	require.Zero(t, used)
}

func TestImportedKeys(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	secret := []byte("0x4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318")
	info, err := h.svc.ImportWallet(ctx, "hot", model.ImportedPrivateKey, model.KeyChainEVM, secret)
	require.NoError(t, err)
	require.Equal(t, make([]byte, len(secret)), secret, "secret is zeroized")

	rec, err := h.ks.GetWalletByName("hot")
	require.NoError(t, err)
	keys, err := h.svc.UnlockedKeys(ctx, rec, 0)
	require.NoError(t, err)
	defer keys.Zero()
	require.Equal(t, info.Addresses.EVM[0], evm.Address(keys.EVM))
	require.Nil(t, keys.Solana)

	_, err = h.svc.AddAccount(ctx, "hot")
	require.Equal(t, keystore.CodeCannotAddAccount, apperr.CodeOf(err))
}

func TestAddAccountMachineOnlySkipsPrompt(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, _, err := h.svc.EnsureDefaultWallet(ctx)
	require.NoError(t, err)
	info, err := h.svc.AddAccount(ctx, DefaultWalletName)
	require.NoError(t, err)
	require.Equal(t, uint32(2), info.Accounts)
	require.Zero(t, h.prompter.calls.Load())

	require.NoError(t, h.svc.UseWallet(ctx, DefaultWalletName, 1))
	_, account, err := h.ks.GetActiveWallet()
	require.NoError(t, err)
	require.Equal(t, uint32(1), account)
}

func TestDryRun(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, _, err := h.svc.EnsureDefaultWallet(ctx)
	require.NoError(t, err)

	amount := 2.0
	ev, err := h.svc.DryRun(ctx, &model.EvaluateRequest{Op: "send", Chain: "solana", NativeAmount: &amount})
	require.NoError(t, err)
	require.True(t, ev.USDValueKnown)
	require.Equal(t, 200.0, ev.USDValue)
	require.Equal(t, policy.RequireConfirmation, ev.Decision.Outcome)

	h.svc.pricer = nil
	ev, err = h.svc.DryRun(ctx, &model.EvaluateRequest{Op: "send", Chain: "solana", NativeAmount: &amount})
	require.NoError(t, err)
	require.False(t, ev.USDValueKnown)
	require.Equal(t, policy.ReasonUSDValueUnknown, ev.Decision.Reason)

	_, err = h.svc.DryRun(ctx, &model.EvaluateRequest{Op: "teleport", Chain: "solana"})
	require.True(t, apperr.Is(apperr.Invalid, err))

	// Dry runs never write audit records.
	audits, err := h.ks.QueryAudit(model.HistoryQuery{})
	require.NoError(t, err)
	require.Empty(t, audits)
}
