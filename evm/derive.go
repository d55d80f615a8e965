// Package evm derives Ethereum-compatible keys and addresses.  One key
// serves every EVM chain.
package evm

import (
	"crypto/ecdsa"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/ethereum/go-ethereum/crypto"
)

const (
	purpose  = 44
	coinType = 60
)

// DeriveKey derives the BIP44 key m/44'/60'/0'/0/account from a BIP39 seed.
func DeriveKey(seed []byte, account uint32) (*ecdsa.PrivateKey, error) {
	// The network only affects extended key serialization, never derivation.
	key, err := hdkeychain.NewMaster(seed, &chaincfg.MainNetParams)
	if err != nil {
		return nil, fmt.Errorf("failed to create master key: %w", err)
	}
	path := []uint32{
		hdkeychain.HardenedKeyStart + purpose,
		hdkeychain.HardenedKeyStart + coinType,
		hdkeychain.HardenedKeyStart + 0,
		0,
		account,
	}
	for _, i := range path {
		key, err = key.Derive(i)
		if err != nil {
			return nil, fmt.Errorf("failed to derive child %d: %w", i, err)
		}
	}
	priv, err := key.ECPrivKey()
	if err != nil {
		return nil, fmt.Errorf("failed to get private key: %w", err)
	}
	return priv.ToECDSA(), nil
}

// Address returns the EIP-55 checksummed address of key.
func Address(key *ecdsa.PrivateKey) string {
	return crypto.PubkeyToAddress(key.PublicKey).Hex()
}

// ParsePrivateKey decodes a hex private key, with or without 0x.
func ParsePrivateKey(s string) (*ecdsa.PrivateKey, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	key, err := crypto.HexToECDSA(s)
	if err != nil {
		return nil, fmt.Errorf("invalid EVM private key: %w", err)
	}
	return key, nil
}

// Zero overwrites the private scalar.
func Zero(key *ecdsa.PrivateKey) {
	if key != nil && key.D != nil {
		key.D.SetInt64(0)
	}
}
