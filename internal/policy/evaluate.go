package policy

import (
	"math"
	"strings"

	"github.com/lightningnetwork/lnd/fn/v2"
)

// Outcome is the tier an operation is classified into.
type Outcome uint8

const (
	AutoApprove Outcome = iota
	RequireConfirmation
	Blocked
)

func (o Outcome) String() string {
	switch o {
	case AutoApprove:
		return "auto_approve"
	case RequireConfirmation:
		return "require_confirmation"
	case Blocked:
		return "blocked"
	default:
		return "unknown"
	}
}

// Reason is a stable code explaining a decision.
type Reason string

const (
	ReasonWithinAutoApprove    Reason = "within_auto_approve"
	ReasonInternalTransfer     Reason = "internal_transfer_exempt"
	ReasonNeedsConfirmation    Reason = "above_auto_approve"
	ReasonOperationDisabled    Reason = "operation_disabled"
	ReasonUSDValueUnknown      Reason = "usd_value_unknown"
	ReasonHardCapExceeded      Reason = "hard_cap_exceeded"
	ReasonDailyCapExceeded     Reason = "daily_cap_exceeded"
	ReasonPerTxCapExceeded     Reason = "per_tx_cap_exceeded"
	ReasonPositionCapExceeded  Reason = "position_cap_exceeded"
	ReasonNFTCapExceeded       Reason = "nft_tx_cap_exceeded"
	ReasonBridgeCapExceeded    Reason = "bridge_tx_cap_exceeded"
	ReasonLendingCapExceeded   Reason = "lending_tx_cap_exceeded"
	ReasonStakeCapExceeded     Reason = "stake_tx_cap_exceeded"
	ReasonLiquidityCapExceeded Reason = "liquidity_tx_cap_exceeded"
	ReasonPredictionCapExceed  Reason = "prediction_tx_cap_exceeded"
	ReasonLeverageCapExceeded  Reason = "leverage_cap_exceeded"
	ReasonSlippageCapExceeded  Reason = "slippage_cap_exceeded"
	ReasonPumpfunAmountCap     Reason = "pumpfun_amount_cap_exceeded"
	ReasonPumpfunRateLimited   Reason = "pumpfun_rate_limited"
	ReasonNotAllowlisted       Reason = "not_allowlisted"
	ReasonInvalidAmount        Reason = "invalid_amount"
)

// Decision is the result of one evaluation.
type Decision struct {
	Outcome Outcome
	Reason  Reason
}

// IsBlocked reports whether the operation must not proceed.
func (d Decision) IsBlocked() bool {
	return d.Outcome == Blocked
}

// Context is the set of facts about one proposed operation.  It is built
// fresh per request and never persisted.
type Context struct {
	Op    WriteOp
	Chain Chain

	// USDValueKnown distinguishes "worth $0" from "could not be priced".
	USDValue      float64
	USDValueKnown bool

	// DailyUsedUSD is what this wallet already spent today.
	DailyUsedUSD float64

	SlippageBps  fn.Option[uint32]
	Recipient    fn.Option[string]
	Contract     fn.Option[string]
	Leverage     fn.Option[float64]
	NativeAmount fn.Option[float64]

	// PumpfunBuysLastHour counts pump.fun buys in the trailing hour.
	PumpfunBuysLastHour uint32
}

func blocked(r Reason) Decision {
	return Decision{Outcome: Blocked, Reason: r}
}

// Evaluate classifies ctx under p.  Checks run in a fixed order and the
// first match wins.
func Evaluate(p *Policy, ctx *Context) Decision {
	if ctx.Op >= numWriteOps || !p.Enabled(ctx.Op.Family()) {
		return blocked(ReasonOperationDisabled)
	}

	// A negative or non-finite amount compares below every cap.
	if !validAmount(ctx.USDValue) || !validAmount(ctx.DailyUsedUSD) ||
		!validAmount(ctx.Leverage.UnwrapOr(1)) ||
		!validAmount(ctx.NativeAmount.UnwrapOr(0)) {
		return blocked(ReasonInvalidAmount)
	}

	// Blocklist checks for internal transfers happen outside the engine.
	if p.InternalTransfersExempt && ctx.Op == OpInternalTransfer {
		return Decision{Outcome: AutoApprove, Reason: ReasonInternalTransfer}
	}

	if p.DenyUnknownUSDValue && !ctx.USDValueKnown {
		return blocked(ReasonUSDValueUnknown)
	}

	usd := ctx.USDValue
	if usd > p.HardBlockOverUSD {
		return blocked(ReasonHardCapExceeded)
	}
	if ctx.DailyUsedUSD+usd > p.MaxUSDPerDay {
		return blocked(ReasonDailyCapExceeded)
	}
	if usd > p.MaxUSDPerTx {
		return blocked(ReasonPerTxCapExceeded)
	}

	if r, ok := checkOperationCaps(p, ctx); !ok {
		return blocked(r)
	}

	if !allowlisted(p, ctx) {
		return blocked(ReasonNotAllowlisted)
	}

	if usd <= p.AutoApproveUSD {
		return Decision{Outcome: AutoApprove, Reason: ReasonWithinAutoApprove}
	}
	return Decision{Outcome: RequireConfirmation, Reason: ReasonNeedsConfirmation}
}

func validAmount(v float64) bool {
	return v >= 0 && !math.IsInf(v, 1)
}

func checkOperationCaps(p *Policy, ctx *Context) (Reason, bool) {
	usd := ctx.USDValue

	var limit float64
	var reason Reason
	switch ctx.Op {
	case OpPerps:
		limit, reason = p.MaxUSDPerPosition, ReasonPositionCapExceeded
	case OpNFT:
		limit, reason = p.MaxUSDPerNFTTx, ReasonNFTCapExceeded
	case OpBridge:
		limit, reason = p.MaxUSDPerBridgeTx, ReasonBridgeCapExceeded
	case OpLend:
		limit, reason = p.MaxUSDPerLendingTx, ReasonLendingCapExceeded
	case OpStake:
		limit, reason = p.MaxUSDPerStakeTx, ReasonStakeCapExceeded
	case OpLiquidity:
		limit, reason = p.MaxUSDPerLiquidityTx, ReasonLiquidityCapExceeded
	case OpPrediction:
		limit, reason = p.MaxUSDPerPredictionTx, ReasonPredictionCapExceed
	case OpSend, OpInternalTransfer, OpSwap, OpPumpfunBuy, OpPumpfunSell,
		OpContractCall:
		// Covered by the generic per-tx cap.
	}
	if reason != "" && usd > limit {
		return reason, false
	}

	if lev := ctx.Leverage.UnwrapOr(1); lev > p.MaxLeverage {
		return ReasonLeverageCapExceeded, false
	}
	if bps := ctx.SlippageBps.UnwrapOr(0); bps > p.MaxSlippageBps {
		return ReasonSlippageCapExceeded, false
	}

	if ctx.Op == OpPumpfunBuy {
		if ctx.NativeAmount.UnwrapOr(0) > p.PumpfunMaxSOLPerBuy {
			return ReasonPumpfunAmountCap, false
		}
		if ctx.PumpfunBuysLastHour >= p.PumpfunMaxBuysPerHour {
			return ReasonPumpfunRateLimited, false
		}
	}

	return "", true
}

func allowlisted(p *Policy, ctx *Context) bool {
	if ctx.Op == OpSend {
		if p.SendAllowAny {
			return true
		}
		// A send without a known recipient cannot be matched.
		return ctx.Recipient.IsSome() &&
			contains(p.SendAllowlist, ctx.Recipient.UnwrapOr(""), ctx.Chain)
	}

	if p.ContractAllowAny {
		return true
	}
	if ctx.Contract.IsNone() {
		// Only generic contract calls must name their target.
		return ctx.Op != OpContractCall
	}
	return contains(p.ContractAllowlist, ctx.Contract.UnwrapOr(""), ctx.Chain)
}

// contains matches EVM addresses case-insensitively; base58 and bech32
// addresses are compared exactly.
func contains(list []string, addr string, chain Chain) bool {
	addr = strings.TrimSpace(addr)
	for _, entry := range list {
		entry = strings.TrimSpace(entry)
		if chain < numChains && chain.Family() == FamilyEVM {
			if strings.EqualFold(entry, addr) {
				return true
			}
			continue
		}
		if entry == addr {
			return true
		}
	}
	return false
}
