package solana

import (
	"crypto/ed25519"
	"crypto/hmac"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/anyproto/go-slip10"
	"github.com/gagliardetto/solana-go"
)

// DeriveKey derives the key m/44'/501'/account'/0' from a BIP39 seed using
// SLIP-10 for ed25519, where every level is hardened.
func DeriveKey(seed []byte, account uint32) (solana.PrivateKey, error) {
	if account >= slip10.FirstHardenedIndex {
		return nil, fmt.Errorf("account index %d out of range", account)
	}

	node, err := slip10.DeriveForPath(fmt.Sprintf("m/44'/501'/%d'/0'", account), seed)
	if err != nil {
		return nil, fmt.Errorf("failed to derive Solana key: %w", err)
	}
	_, priv := node.Keypair()
	return solana.PrivateKey(priv), nil
}

// ParsePrivateKey accepts a base58 64-byte keypair (wallet export format) or
// the JSON byte array written by solana-keygen.
func ParsePrivateKey(s string) (solana.PrivateKey, error) {
	s = strings.TrimSpace(s)

	var raw []byte
	if strings.HasPrefix(s, "[") {
		var ints []int
		if err := json.Unmarshal([]byte(s), &ints); err != nil {
			return nil, fmt.Errorf("invalid Solana keypair array: %w", err)
		}
		raw = make([]byte, len(ints))
		for i, v := range ints {
			if v < 0 || v > 255 {
				return nil, fmt.Errorf("invalid Solana keypair array: byte %d out of range", i)
			}
			raw[i] = byte(v)
		}
		clear(ints)
	} else {
		key, err := solana.PrivateKeyFromBase58(s)
		if err != nil {
			return nil, fmt.Errorf("invalid Solana private key: %w", err)
		}
		raw = key
	}

	if len(raw) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("invalid Solana private key: want %d bytes, got %d",
			ed25519.PrivateKeySize, len(raw))
	}
	// The trailing half must be the public key of the leading seed.
	check := ed25519.NewKeyFromSeed(raw[:ed25519.SeedSize])
	defer clear(check)
	if !hmac.Equal(check, raw) {
		return nil, fmt.Errorf("invalid Solana private key: public half does not match")
	}
	return solana.PrivateKey(raw), nil
}

// Address returns the base58 public key of key.
func Address(key solana.PrivateKey) string {
	return key.PublicKey().String()
}
