// Package policy decides whether a proposed fund-moving operation is
// approved automatically, needs interactive confirmation, or is blocked.
//
// Evaluate is a pure function of a Policy and a Context; it performs no I/O
// and keeps no state, so callers gather facts such as today's spend before
// calling it.
package policy

import (
	"fmt"
	"math"
)

// Policy holds the limits one wallet (or the global default) is evaluated
// against.  Amounts are in USD unless the name says otherwise.
type Policy struct {
	AutoApproveUSD   float64 `toml:"auto_approve_usd" json:"auto_approve_usd"`
	HardBlockOverUSD float64 `toml:"hard_block_over_usd" json:"hard_block_over_usd"`
	MaxUSDPerTx      float64 `toml:"max_usd_per_tx" json:"max_usd_per_tx"`
	MaxUSDPerDay     float64 `toml:"max_usd_per_day" json:"max_usd_per_day"`
	MaxSlippageBps   uint32  `toml:"max_slippage_bps" json:"max_slippage_bps"`

	DenyUnknownUSDValue           bool `toml:"deny_unknown_usd_value" json:"deny_unknown_usd_value"`
	RequireUserConfirmForRemoteTx bool `toml:"require_user_confirm_for_remote_tx" json:"require_user_confirm_for_remote_tx"`
	InternalTransfersExempt       bool `toml:"internal_transfers_exempt" json:"internal_transfers_exempt"`

	EnableSend         bool `toml:"enable_send" json:"enable_send"`
	EnableSwap         bool `toml:"enable_swap" json:"enable_swap"`
	EnableBridge       bool `toml:"enable_bridge" json:"enable_bridge"`
	EnableLending      bool `toml:"enable_lending" json:"enable_lending"`
	EnableStaking      bool `toml:"enable_staking" json:"enable_staking"`
	EnableLiquidity    bool `toml:"enable_liquidity" json:"enable_liquidity"`
	EnableNFT          bool `toml:"enable_nft" json:"enable_nft"`
	EnablePerps        bool `toml:"enable_perps" json:"enable_perps"`
	EnablePrediction   bool `toml:"enable_prediction" json:"enable_prediction"`
	EnablePumpfun      bool `toml:"enable_pumpfun" json:"enable_pumpfun"`
	EnableContractCall bool `toml:"enable_contract_call" json:"enable_contract_call"`

	SendAllowAny      bool     `toml:"send_allow_any" json:"send_allow_any"`
	SendAllowlist     []string `toml:"send_allowlist" json:"send_allowlist"`
	ContractAllowAny  bool     `toml:"contract_allow_any" json:"contract_allow_any"`
	ContractAllowlist []string `toml:"contract_allowlist" json:"contract_allowlist"`

	MaxLeverage           float64 `toml:"max_leverage" json:"max_leverage"`
	MaxUSDPerPosition     float64 `toml:"max_usd_per_position" json:"max_usd_per_position"`
	MaxUSDPerNFTTx        float64 `toml:"max_usd_per_nft_tx" json:"max_usd_per_nft_tx"`
	MaxUSDPerBridgeTx     float64 `toml:"max_usd_per_bridge_tx" json:"max_usd_per_bridge_tx"`
	MaxUSDPerLendingTx    float64 `toml:"max_usd_per_lending_tx" json:"max_usd_per_lending_tx"`
	MaxUSDPerStakeTx      float64 `toml:"max_usd_per_stake_tx" json:"max_usd_per_stake_tx"`
	MaxUSDPerLiquidityTx  float64 `toml:"max_usd_per_liquidity_tx" json:"max_usd_per_liquidity_tx"`
	MaxUSDPerPredictionTx float64 `toml:"max_usd_per_prediction_tx" json:"max_usd_per_prediction_tx"`

	// Pump.fun limits are in SOL, not USD.
	PumpfunMaxSOLPerBuy   float64 `toml:"pumpfun_max_sol_per_buy" json:"pumpfun_max_sol_per_buy"`
	PumpfunMaxBuysPerHour uint32  `toml:"pumpfun_max_buys_per_hour" json:"pumpfun_max_buys_per_hour"`
}

// Default returns the policy applied when no configuration is present.
func Default() Policy {
	return Policy{
		AutoApproveUSD:   10,
		HardBlockOverUSD: 1000,
		MaxUSDPerTx:      1000,
		MaxUSDPerDay:     5000,
		MaxSlippageBps:   100,

		DenyUnknownUSDValue:           true,
		RequireUserConfirmForRemoteTx: true,
		InternalTransfersExempt:       true,

		EnableSend:         true,
		EnableSwap:         true,
		EnableBridge:       true,
		EnableLending:      true,
		EnableStaking:      true,
		EnableLiquidity:    true,
		EnableNFT:          true,
		EnablePerps:        true,
		EnablePrediction:   true,
		EnablePumpfun:      true,
		EnableContractCall: true,

		SendAllowAny:     true,
		ContractAllowAny: true,

		MaxLeverage:           3,
		MaxUSDPerPosition:     1000,
		MaxUSDPerNFTTx:        1000,
		MaxUSDPerBridgeTx:     1000,
		MaxUSDPerLendingTx:    1000,
		MaxUSDPerStakeTx:      1000,
		MaxUSDPerLiquidityTx:  1000,
		MaxUSDPerPredictionTx: 1000,

		PumpfunMaxSOLPerBuy:   0.5,
		PumpfunMaxBuysPerHour: 10,
	}
}

// Validate checks the policy once at load time.  Invalid values are
// rejected, never clamped.
func (p *Policy) Validate() error {
	limits := []struct {
		name  string
		value float64
	}{
		{"auto_approve_usd", p.AutoApproveUSD},
		{"hard_block_over_usd", p.HardBlockOverUSD},
		{"max_usd_per_tx", p.MaxUSDPerTx},
		{"max_usd_per_day", p.MaxUSDPerDay},
		{"max_leverage", p.MaxLeverage},
		{"max_usd_per_position", p.MaxUSDPerPosition},
		{"max_usd_per_nft_tx", p.MaxUSDPerNFTTx},
		{"max_usd_per_bridge_tx", p.MaxUSDPerBridgeTx},
		{"max_usd_per_lending_tx", p.MaxUSDPerLendingTx},
		{"max_usd_per_stake_tx", p.MaxUSDPerStakeTx},
		{"max_usd_per_liquidity_tx", p.MaxUSDPerLiquidityTx},
		{"max_usd_per_prediction_tx", p.MaxUSDPerPredictionTx},
		{"pumpfun_max_sol_per_buy", p.PumpfunMaxSOLPerBuy},
	}
	for _, l := range limits {
		if math.IsNaN(l.value) || math.IsInf(l.value, 0) {
			return fmt.Errorf("%s must be finite", l.name)
		}
		if l.value < 0 {
			return fmt.Errorf("%s must not be negative", l.name)
		}
	}

	if p.AutoApproveUSD > p.HardBlockOverUSD {
		return fmt.Errorf("auto_approve_usd (%v) must not exceed hard_block_over_usd (%v)",
			p.AutoApproveUSD, p.HardBlockOverUSD)
	}
	if p.MaxLeverage < 1 {
		return fmt.Errorf("max_leverage must be at least 1")
	}
	if p.PumpfunMaxBuysPerHour < 1 {
		return fmt.Errorf("pumpfun_max_buys_per_hour must be at least 1")
	}
	if p.MaxSlippageBps > 10_000 {
		return fmt.Errorf("max_slippage_bps must not exceed 10000")
	}
	return nil
}

// Enabled reports whether operations of family f are allowed at all.
func (p *Policy) Enabled(f Family) bool {
	switch f {
	case FamilySend:
		return p.EnableSend
	case FamilySwap:
		return p.EnableSwap
	case FamilyBridge:
		return p.EnableBridge
	case FamilyLending:
		return p.EnableLending
	case FamilyStaking:
		return p.EnableStaking
	case FamilyLiquidity:
		return p.EnableLiquidity
	case FamilyNFT:
		return p.EnableNFT
	case FamilyPerps:
		return p.EnablePerps
	case FamilyPrediction:
		return p.EnablePrediction
	case FamilyPumpfun:
		return p.EnablePumpfun
	case FamilyContract:
		return p.EnableContractCall
	default:
		return false
	}
}

// Clone returns a deep copy of the policy.
func (p Policy) Clone() Policy {
	p.SendAllowlist = append([]string(nil), p.SendAllowlist...)
	p.ContractAllowlist = append([]string(nil), p.ContractAllowlist...)
	return p
}
