package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/seashail/seashail/internal/policy"
	"github.com/stretchr/testify/require"
)

func writeDoc(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), DocumentName)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestOpenMissingUsesDefaults(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), DocumentName))
	require.NoError(t, err)

	p, override := s.PolicyForWallet("default")
	require.False(t, override)
	require.Equal(t, policy.Default(), p)

	_, ok := s.PassphraseSalt()
	require.False(t, ok)
}

func TestOverrideFallsBackToGlobal(t *testing.T) {
	path := writeDoc(t, `
[policy]
auto_approve_usd = 25
max_usd_per_day = 2000
send_allow_any = false
send_allowlist = ["0xAbC"]

[policy_overrides.trading]
max_usd_per_day = 300
`)
	s, err := Open(path)
	require.NoError(t, err)

	global := s.GlobalPolicy()
	require.Equal(t, 25.0, global.AutoApproveUSD)
	require.Equal(t, 2000.0, global.MaxUSDPerDay)
	require.Equal(t, policy.Default().HardBlockOverUSD, global.HardBlockOverUSD)

	p, override := s.PolicyForWallet("trading")
	require.True(t, override)
	require.Equal(t, 300.0, p.MaxUSDPerDay)
	require.Equal(t, 25.0, p.AutoApproveUSD, "unset keys inherit the global policy")
	require.Equal(t, []string{"0xAbC"}, p.SendAllowlist)

	p, override = s.PolicyForWallet("other")
	require.False(t, override)
	require.Equal(t, global, p)
	require.Equal(t, []string{"trading"}, s.Overrides())
}

func TestInvalidPolicyRejected(t *testing.T) {
	for name, body := range map[string]string{
		"tiers inverted": "[policy]\nauto_approve_usd = 500\nhard_block_over_usd = 100\n",
		"negative":       "[policy]\nmax_usd_per_day = -1\n",
		"leverage":       "[policy_overrides.x]\nmax_leverage = 0.5\n",
		"rate limit":     "[policy]\npumpfun_max_buys_per_hour = 0\n",
		"unknown key":    "[policy]\nauto_aprove_usd = 1\n",
		"bad salt":       "passphrase_salt = \"AAAA\"\n",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := Open(writeDoc(t, body))
			require.Error(t, err)
		})
	}
}

func TestUpdatePersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), DocumentName)
	s, err := Open(path)
	require.NoError(t, err)

	salt := []byte("0123456789abcdef")
	require.NoError(t, s.Update(SetPassphraseSalt(salt)))

	// A second salt never replaces the first.
	require.NoError(t, s.Update(SetPassphraseSalt([]byte("fedcba9876543210"))))
	got, ok := s.PassphraseSalt()
	require.True(t, ok)
	require.Equal(t, salt, got)

	p := policy.Default()
	p.MaxUSDPerDay = 50
	require.NoError(t, s.Update(SetPolicy("savings", p)))

	bad := policy.Default()
	bad.MaxLeverage = 0
	require.Error(t, s.Update(SetPolicy("", bad)))

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	reopened, err := Open(path)
	require.NoError(t, err)
	got, ok = reopened.PassphraseSalt()
	require.True(t, ok)
	require.Equal(t, salt, got)

	override, isOverride := reopened.PolicyForWallet("savings")
	require.True(t, isOverride)
	require.Equal(t, 50.0, override.MaxUSDPerDay)
	require.Equal(t, policy.Default().MaxLeverage, reopened.GlobalPolicy().MaxLeverage)

	require.NoError(t, reopened.Update(RemovePolicyOverride("savings")))
	_, isOverride = reopened.PolicyForWallet("savings")
	require.False(t, isOverride)
}

func TestLoadEnv(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("SEASHAIL_DATA_DIR", dir)
	t.Setenv("SEASHAIL_SESSION_TTL", "5m")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, dir, cfg.DataDir)
	require.Equal(t, 5*time.Minute, cfg.SessionTTL)
	require.Equal(t, 5*time.Minute, cfg.ElicitTimeout)
	require.Equal(t, "8080", cfg.Port)
	require.Equal(t, filepath.Join(dir, DocumentName), cfg.DocumentPath())

	t.Setenv("SEASHAIL_SESSION_TTL", "0s")
	_, err = Load()
	require.Error(t, err)
}

func TestSeesChangesFromOtherStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), DocumentName)
	serve, err := Open(path)
	require.NoError(t, err)
	cli, err := Open(path)
	require.NoError(t, err)

	p, _ := serve.PolicyForWallet("default")
	require.True(t, p.EnableSend)

	tight := policy.Default()
	tight.EnableSend = false
	require.NoError(t, cli.Update(SetPolicy("", tight)))

	p, _ = serve.PolicyForWallet("default")
	require.False(t, p.EnableSend)

	salt := []byte("0123456789abcdef")
	require.NoError(t, cli.Update(SetPassphraseSalt(salt)))
	got, ok := serve.PassphraseSalt()
	require.True(t, ok)
	require.Equal(t, salt, got)

	require.NoError(t, cli.Update(SetPolicy("hot", policy.Default())))
	require.Equal(t, []string{"hot"}, serve.Overrides())

	// A broken hand edit leaves the last valid document in effect.
	require.NoError(t, os.WriteFile(path, []byte("[policy\n"), 0o600))
	p, override := serve.PolicyForWallet("hot")
	require.True(t, override)
	require.True(t, p.EnableSend)
	require.False(t, serve.GlobalPolicy().EnableSend)

	require.NoError(t, os.WriteFile(path, []byte("[policy]\nmax_usd_per_day = 42\n"), 0o600))
	require.Equal(t, 42.0, serve.GlobalPolicy().MaxUSDPerDay)
	require.Empty(t, serve.Overrides())
}
