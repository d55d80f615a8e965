// Package bitcoin derives native segwit (BIP84) keys and addresses.
package bitcoin

import (
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/chaincfg"
)

const purpose = 84

// DeriveKey derives m/84'/coin'/0'/0/account, where coin is the network's
// BIP44 coin type (0 mainnet, 1 testnet).
func DeriveKey(seed []byte, account uint32, params *chaincfg.Params) (*btcec.PrivateKey, error) {
	key, err := hdkeychain.NewMaster(seed, params)
	if err != nil {
		return nil, fmt.Errorf("failed to create master key: %w", err)
	}
	path := []uint32{
		hdkeychain.HardenedKeyStart + purpose,
		hdkeychain.HardenedKeyStart + params.HDCoinType,
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
	return priv, nil
}

// Address returns the P2WPKH address of pub on the given network.
func Address(pub *btcec.PublicKey, params *chaincfg.Params) (string, error) {
	addr, err := btcutil.NewAddressWitnessPubKeyHash(
		btcutil.Hash160(pub.SerializeCompressed()), params,
	)
	if err != nil {
		return "", fmt.Errorf("failed to build address: %w", err)
	}
	return addr.EncodeAddress(), nil
}

// ParseWIF decodes a WIF private key for either network.
func ParseWIF(s string) (*btcec.PrivateKey, error) {
	wif, err := btcutil.DecodeWIF(strings.TrimSpace(s))
	if err != nil {
		return nil, fmt.Errorf("invalid WIF private key: %w", err)
	}
	return wif.PrivKey, nil
}
