// Package signer turns decrypted wallet secrets into per-chain keys and
// addresses.  It is only called after authorization, or with material the
// keystore is about to encrypt.
package signer

import (
	"crypto/ecdsa"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/chaincfg"
	solanago "github.com/gagliardetto/solana-go"
	"github.com/tyler-smith/go-bip39"

	"github.com/seashail/seashail/bitcoin"
	"github.com/seashail/seashail/evm"
	"github.com/seashail/seashail/internal/model"
	"github.com/seashail/seashail/solana"
)

// Keys are the signing keys of one account.  Nil fields mean the wallet has
// no key for that chain.
type Keys struct {
	EVM            *ecdsa.PrivateKey
	Solana         solanago.PrivateKey
	BitcoinMainnet *btcec.PrivateKey
	BitcoinTestnet *btcec.PrivateKey
}

// Addresses returns the public addresses of the keys.
func (k *Keys) Addresses() (model.AccountAddresses, error) {
	var out model.AccountAddresses
	if k.EVM != nil {
		out.EVM = evm.Address(k.EVM)
	}
	if k.Solana != nil {
		out.Solana = solana.Address(k.Solana)
	}
	if k.BitcoinMainnet != nil {
		addr, err := bitcoin.Address(k.BitcoinMainnet.PubKey(), &chaincfg.MainNetParams)
		if err != nil {
			return out, err
		}
		out.BitcoinMainnet = addr
	}
	if k.BitcoinTestnet != nil {
		addr, err := bitcoin.Address(k.BitcoinTestnet.PubKey(), &chaincfg.TestNet3Params)
		if err != nil {
			return out, err
		}
		out.BitcoinTestnet = addr
	}
	return out, nil
}

// Zero overwrites every private key.
func (k *Keys) Zero() {
	evm.Zero(k.EVM)
	clear(k.Solana)
	if k.BitcoinMainnet != nil {
		k.BitcoinMainnet.Zero()
	}
	if k.BitcoinTestnet != nil {
		k.BitcoinTestnet.Zero()
	}
}

// MnemonicFromEntropy encodes generated entropy as a BIP39 mnemonic.
func MnemonicFromEntropy(entropy []byte) (string, error) {
	m, err := bip39.NewMnemonic(entropy)
	if err != nil {
		return "", fmt.Errorf("failed to encode mnemonic: %w", err)
	}
	return m, nil
}

func normalizeMnemonic(m string) string {
	return strings.Join(strings.Fields(strings.ToLower(m)), " ")
}

// KeysFromMnemonic derives every chain's key for account.
func KeysFromMnemonic(mnemonic string, account uint32) (*Keys, error) {
	seed, err := bip39.NewSeedWithErrorChecking(normalizeMnemonic(mnemonic), "")
	if err != nil {
		return nil, fmt.Errorf("invalid mnemonic: %w", err)
	}
	defer clear(seed)

	keys := &Keys{}
	if keys.EVM, err = evm.DeriveKey(seed, account); err != nil {
		return nil, err
	}
	if keys.Solana, err = solana.DeriveKey(seed, account); err != nil {
		keys.Zero()
		return nil, err
	}
	if keys.BitcoinMainnet, err = bitcoin.DeriveKey(seed, account, &chaincfg.MainNetParams); err != nil {
		keys.Zero()
		return nil, err
	}
	if keys.BitcoinTestnet, err = bitcoin.DeriveKey(seed, account, &chaincfg.TestNet3Params); err != nil {
		keys.Zero()
		return nil, err
	}
	return keys, nil
}

// KeysFromEntropy derives keys from generated entropy through its BIP39
// mnemonic.
func KeysFromEntropy(entropy []byte, account uint32) (*Keys, error) {
	m, err := MnemonicFromEntropy(entropy)
	if err != nil {
		return nil, err
	}
	return KeysFromMnemonic(m, account)
}

// KeysFromPrivateKey parses an imported private key encoded for chain.  A
// Bitcoin key yields addresses on both networks.
func KeysFromPrivateKey(chain model.KeyChain, key []byte) (*Keys, error) {
	s := string(key)
	switch chain {
	case model.KeyChainEVM:
		k, err := evm.ParsePrivateKey(s)
		if err != nil {
			return nil, err
		}
		return &Keys{EVM: k}, nil

	case model.KeyChainSolana:
		k, err := solana.ParsePrivateKey(s)
		if err != nil {
			return nil, err
		}
		return &Keys{Solana: k}, nil

	case model.KeyChainBitcoin:
		k, err := bitcoin.ParseWIF(s)
		if err != nil {
			return nil, err
		}
		// The same scalar on both networks.
		testnet, _ := btcec.PrivKeyFromBytes(k.Serialize())
		return &Keys{BitcoinMainnet: k, BitcoinTestnet: testnet}, nil

	default:
		return nil, fmt.Errorf("unsupported private key chain %q", chain)
	}
}

// Deriver derives cached addresses for the keystore.
type Deriver struct{}

// NewDeriver returns a Deriver.
func NewDeriver() *Deriver {
	return &Deriver{}
}

// EntropyAddresses derives the addresses of account from generated entropy.
func (d *Deriver) EntropyAddresses(entropy []byte, account uint32) (model.AccountAddresses, error) {
	keys, err := KeysFromEntropy(entropy, account)
	if err != nil {
		return model.AccountAddresses{}, err
	}
	defer keys.Zero()
	return keys.Addresses()
}

// MnemonicAddresses derives the addresses of account from a mnemonic.
func (d *Deriver) MnemonicAddresses(mnemonic string, account uint32) (model.AccountAddresses, error) {
	keys, err := KeysFromMnemonic(mnemonic, account)
	if err != nil {
		return model.AccountAddresses{}, err
	}
	defer keys.Zero()
	return keys.Addresses()
}

// PrivateKeyAddresses derives the addresses of an imported private key.
func (d *Deriver) PrivateKeyAddresses(chain model.KeyChain, key []byte) (model.AccountAddresses, error) {
	keys, err := KeysFromPrivateKey(chain, key)
	if err != nil {
		return model.AccountAddresses{}, err
	}
	defer keys.Zero()
	return keys.Addresses()
}
