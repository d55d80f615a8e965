package crypto

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// writeLegacyFile produces a .cwt file the way the earlier wallet did.
func writeLegacyFile(t *testing.T, password, keypair []byte) string {
	t.Helper()

	salt := bytes.Repeat([]byte{7}, 32)
	nonce := bytes.Repeat([]byte{9}, 12)
	aead, err := legacyAEAD(password, salt)
	require.NoError(t, err)

	pt, err := json.Marshal(legacyWalletData{PrivateKey: keypair, CreatedAt: "2025-01-02T03:04:05Z"})
	require.NoError(t, err)

	data, err := json.Marshal(LegacyFile{
		Network:    "solana",
		Address:    "legacy-address",
		Salt:       base64.StdEncoding.EncodeToString(salt),
		Nonce:      base64.StdEncoding.EncodeToString(nonce),
		CipherText: base64.StdEncoding.EncodeToString(aead.Seal(nil, nonce, pt, nil)),
	})
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "wallet.cwt")
	// BOM-prefixed, as some editors save it.
	require.NoError(t, os.WriteFile(path, append([]byte{0xEF, 0xBB, 0xBF}, data...), 0o600))
	return path
}

func TestOpenLegacyFile(t *testing.T) {
	prev := legacyScryptN
	legacyScryptN = 1 << 10
	t.Cleanup(func() { legacyScryptN = prev })

	keypair := bytes.Repeat([]byte{0x42}, 64)
	path := writeLegacyFile(t, []byte("dev"), keypair)

	file, got, err := OpenLegacyFile(path, []byte("dev"))
	require.NoError(t, err)
	require.Equal(t, "legacy-address", file.Address)
	require.Equal(t, "solana", file.Network)
	require.Equal(t, keypair, got)

	_, _, err = OpenLegacyFile(path, []byte("wrong"))
	require.ErrorIs(t, err, ErrAuthFailed)

	_, _, err = OpenLegacyFile(filepath.Join(t.TempDir(), "missing.cwt"), []byte("dev"))
	require.Error(t, err)
}

func TestOpenLegacyFileBadKeyLength(t *testing.T) {
	prev := legacyScryptN
	legacyScryptN = 1 << 10
	t.Cleanup(func() { legacyScryptN = prev })

	path := writeLegacyFile(t, []byte("dev"), bytes.Repeat([]byte{1}, 32))
	_, _, err := OpenLegacyFile(path, []byte("dev"))
	require.ErrorContains(t, err, "invalid private key length")
}
