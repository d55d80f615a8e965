package crypto

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func testKey(b byte) []byte {
	return bytes.Repeat([]byte{b}, KeyLen)
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		key := rapid.SliceOfN(rapid.Byte(), KeyLen, KeyLen).Draw(rt, "key")
		pt := rapid.SliceOf(rapid.Byte()).Draw(rt, "plaintext")

		box, err := Encrypt(key, pt)
		require.NoError(rt, err)
		require.Equal(rt, BoxVersion, box.Version)
		require.Len(rt, box.Nonce, NonceLen)

		got, err := Decrypt(key, box)
		require.NoError(rt, err)
		require.True(rt, bytes.Equal(pt, got))
	})
}

func TestDecryptWrongKey(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		key := rapid.SliceOfN(rapid.Byte(), KeyLen, KeyLen).Draw(rt, "key")
		wrong := rapid.SliceOfN(rapid.Byte(), KeyLen, KeyLen).
			Filter(func(k []byte) bool { return !bytes.Equal(k, key) }).
			Draw(rt, "wrong")

		box, err := Encrypt(key, []byte("entropy"))
		require.NoError(rt, err)

		got, err := Decrypt(wrong, box)
		require.ErrorIs(rt, err, ErrAuthFailed)
		require.Nil(rt, got)
	})
}

func TestDecryptTampered(t *testing.T) {
	key := testKey(7)
	box, err := Encrypt(key, []byte("share two"))
	require.NoError(t, err)

	tampered := *box
	tampered.Ciphertext = append([]byte(nil), box.Ciphertext...)
	tampered.Ciphertext[0] ^= 0x01
	got, err := Decrypt(key, &tampered)
	require.ErrorIs(t, err, ErrAuthFailed)
	require.Nil(t, got)

	tampered = *box
	tampered.Nonce = append([]byte(nil), box.Nonce...)
	tampered.Nonce[3] ^= 0x80
	_, err = Decrypt(key, &tampered)
	require.ErrorIs(t, err, ErrAuthFailed)

	tampered = *box
	tampered.Version = 2
	got, err = Decrypt(key, &tampered)
	require.ErrorIs(t, err, ErrUnsupportedVersion)
	require.Nil(t, got)

	tampered = *box
	tampered.Nonce = box.Nonce[:8]
	_, err = Decrypt(key, &tampered)
	require.Error(t, err)

	_, err = Decrypt(key, nil)
	require.Error(t, err)
}

func TestEncryptRejectsShortKey(t *testing.T) {
	_, err := Encrypt(make([]byte, 16), []byte("x"))
	require.Error(t, err)
	_, err = Decrypt(make([]byte, 31), &Box{Version: BoxVersion, Nonce: make([]byte, NonceLen)})
	require.Error(t, err)
	require.False(t, errors.Is(err, ErrAuthFailed))
}

func TestEncryptUsesFreshNonce(t *testing.T) {
	key := testKey(1)
	a, err := Encrypt(key, []byte("same"))
	require.NoError(t, err)
	b, err := Encrypt(key, []byte("same"))
	require.NoError(t, err)
	require.NotEqual(t, a.Nonce, b.Nonce)
	require.NotEqual(t, a.Ciphertext, b.Ciphertext)
}

func TestBoxJSON(t *testing.T) {
	key := testKey(3)
	box, err := Encrypt(key, []byte("persisted"))
	require.NoError(t, err)

	raw, err := json.Marshal(box)
	require.NoError(t, err)

	var decoded Box
	require.NoError(t, json.Unmarshal(raw, &decoded))
	pt, err := Decrypt(key, &decoded)
	require.NoError(t, err)
	require.Equal(t, []byte("persisted"), pt)
}

func TestDeriveFromPassphraseDeterministic(t *testing.T) {
	salt := bytes.Repeat([]byte{0xa5}, SaltLen)

	k1, err := DeriveFromPassphrase([]byte("correct horse"), salt)
	require.NoError(t, err)
	k2, err := DeriveFromPassphrase([]byte("correct horse"), salt)
	require.NoError(t, err)
	require.Len(t, k1, KeyLen)
	require.Equal(t, k1, k2)

	k3, err := DeriveFromPassphrase([]byte("correct horsf"), salt)
	require.NoError(t, err)
	require.NotEqual(t, k1, k3)

	otherSalt := bytes.Repeat([]byte{0x5a}, SaltLen)
	k4, err := DeriveFromPassphrase([]byte("correct horse"), otherSalt)
	require.NoError(t, err)
	require.NotEqual(t, k1, k4)
}

func TestDeriveFromPassphraseValidation(t *testing.T) {
	_, err := DeriveFromPassphrase([]byte("pw"), make([]byte, 8))
	require.Error(t, err)
	_, err = DeriveFromPassphrase(nil, make([]byte, SaltLen))
	require.Error(t, err)
}

func TestExpandSubkey(t *testing.T) {
	master := make([]byte, KeyLen)
	for i := range master {
		master[i] = byte(i)
	}

	// HKDF-SHA256, empty salt, info "seashail/keystore/v1|wallet-a|share1".
	want, _ := hex.DecodeString("25988e6a66bb8819349347422f11336203895d640aca769afb1ca1e76159ba44")
	got, err := ExpandSubkey(master, "wallet-a", "share1")
	require.NoError(t, err)
	require.Equal(t, want, got)

	again, err := ExpandSubkey(master, "wallet-a", "share1")
	require.NoError(t, err)
	require.Equal(t, got, again)

	otherPurpose, err := ExpandSubkey(master, "wallet-a", "share2")
	require.NoError(t, err)
	require.NotEqual(t, got, otherPurpose)

	otherWallet, err := ExpandSubkey(master, "wallet-b", "share1")
	require.NoError(t, err)
	require.NotEqual(t, got, otherWallet)
	require.NotEqual(t, master, got)

	_, err = ExpandSubkey(master[:16], "wallet-a", "share1")
	require.Error(t, err)
}

func TestFillRandom(t *testing.T) {
	a, err := RandomBytes(32)
	require.NoError(t, err)
	b, err := RandomBytes(32)
	require.NoError(t, err)
	require.Len(t, a, 32)
	require.NotEqual(t, a, b)
}
