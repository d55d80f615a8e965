package policy

import (
	"fmt"
	"strings"
)

// WriteOp is the closed set of fund-moving operation kinds.
type WriteOp uint8

const (
	OpSend WriteOp = iota
	OpInternalTransfer
	OpSwap
	OpBridge
	OpLend
	OpStake
	OpLiquidity
	OpNFT
	OpPerps
	OpPrediction
	OpPumpfunBuy
	OpPumpfunSell
	OpContractCall

	numWriteOps
)

// Family groups operations under one enable toggle.
type Family uint8

const (
	FamilySend Family = iota
	FamilySwap
	FamilyBridge
	FamilyLending
	FamilyStaking
	FamilyLiquidity
	FamilyNFT
	FamilyPerps
	FamilyPrediction
	FamilyPumpfun
	FamilyContract
)

type opSpec struct {
	name   string
	family Family
}

// opSpecs must have an entry for every WriteOp.
var opSpecs = [...]opSpec{
	OpSend:             {"send", FamilySend},
	OpInternalTransfer: {"internal_transfer", FamilySend},
	OpSwap:             {"swap", FamilySwap},
	OpBridge:           {"bridge", FamilyBridge},
	OpLend:             {"lend", FamilyLending},
	OpStake:            {"stake", FamilyStaking},
	OpLiquidity:        {"liquidity", FamilyLiquidity},
	OpNFT:              {"nft", FamilyNFT},
	OpPerps:            {"perps", FamilyPerps},
	OpPrediction:       {"prediction", FamilyPrediction},
	OpPumpfunBuy:       {"pumpfun_buy", FamilyPumpfun},
	OpPumpfunSell:      {"pumpfun_sell", FamilyPumpfun},
	OpContractCall:     {"contract_call", FamilyContract},
}

// Fails to compile when a WriteOp is added without an opSpecs entry.
var _ = [1]struct{}{}[len(opSpecs)-int(numWriteOps)]

// WriteOps returns every operation kind in declaration order.
func WriteOps() []WriteOp {
	ops := make([]WriteOp, numWriteOps)
	for i := range ops {
		ops[i] = WriteOp(i)
	}
	return ops
}

func (o WriteOp) String() string {
	if o >= numWriteOps {
		return fmt.Sprintf("unknown(%d)", uint8(o))
	}
	return opSpecs[o].name
}

// Family returns the toggle family of the operation.
func (o WriteOp) Family() Family {
	return opSpecs[o].family
}

// ParseWriteOp maps a wire name such as "swap" to its WriteOp.
func ParseWriteOp(s string) (WriteOp, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, spec := range opSpecs {
		if spec.name == s {
			return WriteOp(i), nil
		}
	}
	return 0, fmt.Errorf("unknown operation %q", s)
}

func (o WriteOp) MarshalText() ([]byte, error) {
	if o >= numWriteOps {
		return nil, fmt.Errorf("unknown operation %d", uint8(o))
	}
	return []byte(o.String()), nil
}

func (o *WriteOp) UnmarshalText(b []byte) error {
	op, err := ParseWriteOp(string(b))
	if err != nil {
		return err
	}
	*o = op
	return nil
}
