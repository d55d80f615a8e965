package model

import "time"

// WalletListResponse represents response for GET /wallets.
type WalletListResponse struct {
	Wallets       []WalletInfo `json:"wallets"`
	ActiveWallet  string       `json:"activeWallet,omitempty"`
	ActiveAccount uint32       `json:"activeAccount"`
}

// GenerateRequest represents request for POST /wallets/generate.
type GenerateRequest struct {
	Name string `json:"name"`
}

// GenerateResponse represents response for POST /wallets/generate.
type GenerateResponse struct {
	Success bool       `json:"success"`
	Message string     `json:"message"`
	Wallet  WalletInfo `json:"wallet"`
}

// EvaluateRequest represents request for POST /policy/evaluate.  Either
// USDValue or NativeAmount may be given; a native amount is priced.
type EvaluateRequest struct {
	Wallet       string   `json:"wallet"`
	Op           string   `json:"op"`
	Chain        string   `json:"chain"`
	USDValue     *float64 `json:"usdValue,omitempty"`
	NativeAmount *float64 `json:"nativeAmount,omitempty"`
	SlippageBps  *uint32  `json:"slippageBps,omitempty"`
	Recipient    *string  `json:"recipient,omitempty"`
	Contract     *string  `json:"contract,omitempty"`
	Leverage     *float64 `json:"leverage,omitempty"`
}

// EvaluateResponse represents response for POST /policy/evaluate.
type EvaluateResponse struct {
	Outcome        string  `json:"outcome"`
	Reason         string  `json:"reason"`
	USDValue       float64 `json:"usdValue"`
	USDValueKnown  bool    `json:"usdValueKnown"`
	DailyUsedUSD   float64 `json:"dailyUsedUsd"`
	PolicyOverride bool    `json:"policyOverride"`
}

// BalanceResponse represents response for GET /balance.
type BalanceResponse struct {
	Wallet    string    `json:"wallet"`
	Account   uint32    `json:"account"`
	Address   string    `json:"address"`
	SOL       string    `json:"sol"`
	USDC      string    `json:"usdc"`
	USDValue  *float64  `json:"usdValue,omitempty"`
	QRCode    string    `json:"qrCode,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
