package policy

import (
	"fmt"
	"strings"
)

// Chain identifies a supported network.
type Chain uint8

const (
	ChainEthereum Chain = iota
	ChainBase
	ChainArbitrum
	ChainOptimism
	ChainPolygon
	ChainBNB
	ChainAvalanche
	ChainSolana
	ChainBitcoin
	ChainBitcoinTestnet

	numChains
)

// ChainFamily is the address and signing scheme shared by a set of chains.
type ChainFamily uint8

const (
	FamilyEVM ChainFamily = iota
	FamilySolana
	FamilyBitcoin
)

type chainSpec struct {
	name   string
	family ChainFamily
}

var chainSpecs = [...]chainSpec{
	ChainEthereum:       {"ethereum", FamilyEVM},
	ChainBase:           {"base", FamilyEVM},
	ChainArbitrum:       {"arbitrum", FamilyEVM},
	ChainOptimism:       {"optimism", FamilyEVM},
	ChainPolygon:        {"polygon", FamilyEVM},
	ChainBNB:            {"bnb", FamilyEVM},
	ChainAvalanche:      {"avalanche", FamilyEVM},
	ChainSolana:         {"solana", FamilySolana},
	ChainBitcoin:        {"bitcoin", FamilyBitcoin},
	ChainBitcoinTestnet: {"bitcoin-testnet", FamilyBitcoin},
}

var _ = [1]struct{}{}[len(chainSpecs)-int(numChains)]

func (c Chain) String() string {
	if c >= numChains {
		return fmt.Sprintf("unknown(%d)", uint8(c))
	}
	return chainSpecs[c].name
}

// Family returns the address scheme of the chain.
func (c Chain) Family() ChainFamily {
	return chainSpecs[c].family
}

// ParseChain maps a wire name such as "base" to its Chain.
func ParseChain(s string) (Chain, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, spec := range chainSpecs {
		if spec.name == s {
			return Chain(i), nil
		}
	}
	return 0, fmt.Errorf("unknown chain %q", s)
}

func (c Chain) MarshalText() ([]byte, error) {
	if c >= numChains {
		return nil, fmt.Errorf("unknown chain %d", uint8(c))
	}
	return []byte(c.String()), nil
}

func (c *Chain) UnmarshalText(b []byte) error {
	chain, err := ParseChain(string(b))
	if err != nil {
		return err
	}
	*c = chain
	return nil
}
