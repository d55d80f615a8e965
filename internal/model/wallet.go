package model

import (
	"fmt"
	"time"
)

// WalletKind tells whether the system created the key material or the user
// brought it.
type WalletKind string

const (
	WalletKindGenerated WalletKind = "generated"
	WalletKindImported  WalletKind = "imported"
)

// ImportedKind is the form of a user-supplied secret.
type ImportedKind string

const (
	ImportedMnemonic   ImportedKind = "mnemonic"
	ImportedPrivateKey ImportedKind = "private_key"
)

// KeyChain names the chain an imported private key was encoded for.
type KeyChain string

const (
	KeyChainEVM     KeyChain = "evm"
	KeyChainSolana  KeyChain = "solana"
	KeyChainBitcoin KeyChain = "bitcoin"
)

// Addresses caches public addresses per chain, indexed by account.  Reading
// them never requires decrypting anything.
type Addresses struct {
	EVM            []string `json:"evm"`
	Solana         []string `json:"solana"`
	BitcoinMainnet []string `json:"bitcoin_mainnet"`
	BitcoinTestnet []string `json:"bitcoin_testnet"`
}

// AccountAddresses are the addresses of one account index.  Empty strings
// mean the wallet has no key for that chain.
type AccountAddresses struct {
	EVM            string `json:"evm,omitempty"`
	Solana         string `json:"solana,omitempty"`
	BitcoinMainnet string `json:"bitcoin_mainnet,omitempty"`
	BitcoinTestnet string `json:"bitcoin_testnet,omitempty"`
}

// Append caches the addresses of the next account index.  Chains without a
// key are not extended.
func (a *Addresses) Append(acct AccountAddresses) {
	if acct.EVM != "" {
		a.EVM = append(a.EVM, acct.EVM)
	}
	if acct.Solana != "" {
		a.Solana = append(a.Solana, acct.Solana)
	}
	if acct.BitcoinMainnet != "" {
		a.BitcoinMainnet = append(a.BitcoinMainnet, acct.BitcoinMainnet)
	}
	if acct.BitcoinTestnet != "" {
		a.BitcoinTestnet = append(a.BitcoinTestnet, acct.BitcoinTestnet)
	}
}

// Longest returns the length of the longest address list.
func (a *Addresses) Longest() uint32 {
	n := len(a.EVM)
	for _, l := range [][]string{a.Solana, a.BitcoinMainnet, a.BitcoinTestnet} {
		if len(l) > n {
			n = len(l)
		}
	}
	return uint32(n)
}

// At returns the cached addresses of one account index.
func (a *Addresses) At(index uint32) AccountAddresses {
	at := func(l []string) string {
		if int(index) < len(l) {
			return l[index]
		}
		return ""
	}
	return AccountAddresses{
		EVM:            at(a.EVM),
		Solana:         at(a.Solana),
		BitcoinMainnet: at(a.BitcoinMainnet),
		BitcoinTestnet: at(a.BitcoinTestnet),
	}
}

// Clone returns a deep copy.
func (a Addresses) Clone() Addresses {
	return Addresses{
		EVM:            append([]string(nil), a.EVM...),
		Solana:         append([]string(nil), a.Solana...),
		BitcoinMainnet: append([]string(nil), a.BitcoinMainnet...),
		BitcoinTestnet: append([]string(nil), a.BitcoinTestnet...),
	}
}

// WalletRecord is one managed wallet as stored in the wallet index.
type WalletRecord struct {
	ID                string       `json:"id"`
	Name              string       `json:"name"`
	Kind              WalletKind   `json:"kind"`
	Accounts          uint32       `json:"accounts"`
	LastActiveAccount uint32       `json:"last_active_account"`
	ImportedKind      ImportedKind `json:"imported_kind,omitempty"`
	ImportedChain     KeyChain     `json:"imported_chain,omitempty"`
	Addresses         Addresses    `json:"addresses"`
	CreatedAt         time.Time    `json:"created_at"`
}

// Validate checks the record invariants: at least one account, account
// count matching the cached addresses, and a sane imported description.
func (r *WalletRecord) Validate() error {
	if r.ID == "" || r.Name == "" {
		return fmt.Errorf("wallet id and name are required")
	}
	if r.Accounts < 1 {
		return fmt.Errorf("wallet %q has no accounts", r.Name)
	}
	if longest := r.Addresses.Longest(); longest != r.Accounts {
		return fmt.Errorf("wallet %q has %d accounts but %d cached addresses",
			r.Name, r.Accounts, longest)
	}
	if r.LastActiveAccount >= r.Accounts {
		return fmt.Errorf("wallet %q last active account %d out of range",
			r.Name, r.LastActiveAccount)
	}
	switch r.Kind {
	case WalletKindGenerated:
		if r.ImportedKind != "" {
			return fmt.Errorf("generated wallet %q has an imported kind", r.Name)
		}
	case WalletKindImported:
		switch r.ImportedKind {
		case ImportedMnemonic:
		case ImportedPrivateKey:
			if r.ImportedChain == "" {
				return fmt.Errorf("imported private key wallet %q has no chain", r.Name)
			}
		default:
			return fmt.Errorf("wallet %q has unknown imported kind %q", r.Name, r.ImportedKind)
		}
	default:
		return fmt.Errorf("wallet %q has unknown kind %q", r.Name, r.Kind)
	}
	return nil
}

// Info returns the public view of the record.
func (r *WalletRecord) Info(active bool) WalletInfo {
	return WalletInfo{
		ID:            r.ID,
		Name:          r.Name,
		Kind:          r.Kind,
		Accounts:      r.Accounts,
		ImportedKind:  r.ImportedKind,
		ImportedChain: r.ImportedChain,
		Addresses:     r.Addresses.Clone(),
		Active:        active,
		CreatedAt:     r.CreatedAt,
	}
}

// WalletInfo is the public description of a wallet returned to callers.
type WalletInfo struct {
	ID            string       `json:"id"`
	Name          string       `json:"name"`
	Kind          WalletKind   `json:"kind"`
	Accounts      uint32       `json:"accounts"`
	ImportedKind  ImportedKind `json:"importedKind,omitempty"`
	ImportedChain KeyChain     `json:"importedChain,omitempty"`
	Addresses     Addresses    `json:"addresses"`
	Active        bool         `json:"active"`
	CreatedAt     time.Time    `json:"createdAt"`
}

// WalletIndexVersion is the current on-disk index format.
const WalletIndexVersion = 1

// WalletIndex is the single document listing every wallet and the active
// wallet/account pointer.
type WalletIndex struct {
	Version       int            `json:"version"`
	Wallets       []WalletRecord `json:"wallets"`
	ActiveWallet  string         `json:"active_wallet,omitempty"`
	ActiveAccount uint32         `json:"active_account"`
}

// Find returns the wallet with the given name.
func (ix *WalletIndex) Find(name string) (*WalletRecord, bool) {
	for i := range ix.Wallets {
		if ix.Wallets[i].Name == name {
			return &ix.Wallets[i], true
		}
	}
	return nil, false
}

// FindByID returns the wallet with the given id.
func (ix *WalletIndex) FindByID(id string) (*WalletRecord, bool) {
	for i := range ix.Wallets {
		if ix.Wallets[i].ID == id {
			return &ix.Wallets[i], true
		}
	}
	return nil, false
}

// Validate checks every record plus name uniqueness and the active pointer.
func (ix *WalletIndex) Validate() error {
	names := make(map[string]struct{}, len(ix.Wallets))
	ids := make(map[string]struct{}, len(ix.Wallets))
	for i := range ix.Wallets {
		r := &ix.Wallets[i]
		if err := r.Validate(); err != nil {
			return err
		}
		if _, ok := names[r.Name]; ok {
			return fmt.Errorf("duplicate wallet name %q", r.Name)
		}
		if _, ok := ids[r.ID]; ok {
			return fmt.Errorf("duplicate wallet id %q", r.ID)
		}
		names[r.Name] = struct{}{}
		ids[r.ID] = struct{}{}
	}
	if ix.ActiveWallet != "" {
		r, ok := ix.Find(ix.ActiveWallet)
		if !ok {
			return fmt.Errorf("active wallet %q does not exist", ix.ActiveWallet)
		}
		if ix.ActiveAccount >= r.Accounts {
			return fmt.Errorf("active account %d out of range", ix.ActiveAccount)
		}
	}
	return nil
}
