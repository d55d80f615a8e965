package model

import (
	"fmt"
	"time"

	"github.com/seashail/seashail/internal/policy"
)

// TxStatus is the terminal state of a recorded transaction.
type TxStatus string

const (
	TxStatusBroadcast TxStatus = "broadcast"
	TxStatusFailed    TxStatus = "failed"
)

// TxHistoryRecord is one fund-moving operation that reached the network.
type TxHistoryRecord struct {
	Timestamp     time.Time      `json:"timestamp"`
	Wallet        string         `json:"wallet"`
	AccountIndex  uint32         `json:"accountIndex"`
	Chain         policy.Chain   `json:"chain"`
	Op            policy.WriteOp `json:"op"`
	USDValue      float64        `json:"usdValue"`
	USDValueKnown bool           `json:"usdValueKnown"`
	NativeAmount  string         `json:"nativeAmount,omitempty"`
	To            string         `json:"to,omitempty"`
	TxID          string         `json:"txId,omitempty"`
	Status        TxStatus       `json:"status"`
}

// CountsTowardDailyCap reports whether the record is part of the wallet's
// daily spend.  Internal transfers move value between owned wallets.  A
// negative value would lower the total and is never counted.
func (r *TxHistoryRecord) CountsTowardDailyCap() bool {
	return r.Status == TxStatusBroadcast && r.USDValueKnown &&
		r.USDValue >= 0 && r.Op != policy.OpInternalTransfer
}

// AuditDecision is the terminal state of one write request.
type AuditDecision string

const (
	DecisionAutoApproved  AuditDecision = "auto_approved"
	DecisionUserConfirmed AuditDecision = "user_confirmed"
	DecisionBlocked       AuditDecision = "blocked"
	DecisionUserDeclined  AuditDecision = "user_declined"
)

// AuditRecord is appended exactly once per write request.  It never holds
// key material.
type AuditRecord struct {
	Timestamp       time.Time      `json:"timestamp"`
	RequestID       string         `json:"requestId"`
	Tool            string         `json:"tool,omitempty"`
	Wallet          string         `json:"wallet"`
	AccountIndex    uint32         `json:"accountIndex"`
	Chain           policy.Chain   `json:"chain"`
	Op              policy.WriteOp `json:"op"`
	USDValue        float64        `json:"usdValue"`
	USDValueKnown   bool           `json:"usdValueKnown"`
	Decision        AuditDecision  `json:"policyDecision"`
	Reason          string         `json:"reason,omitempty"`
	ConfirmRequired bool           `json:"confirmRequired"`
	ForcedConfirm   bool           `json:"forcedConfirm"`
	DailyUsedUSD    float64        `json:"dailyUsedUsd"`
	TxID            string         `json:"txId,omitempty"`
}

// HistoryQuery filters history and audit records.  Nil fields match
// everything.
type HistoryQuery struct {
	Wallet *string         `form:"wallet"`
	Chain  *policy.Chain   `form:"chain"`
	Op     *policy.WriteOp `form:"op"`
	From   *time.Time      `form:"from"`
	To     *time.Time      `form:"to"`
	Limit  int             `form:"limit"`
}

// MaxHistoryLimit caps a single query.
const MaxHistoryLimit = 10_000

// Validate validates HistoryQuery filter parameters.
func (q *HistoryQuery) Validate() error {
	if q.From != nil && q.To != nil && q.To.Before(*q.From) {
		return fmt.Errorf("to date must be after or equal to from date")
	}
	if q.Limit < 0 || q.Limit > MaxHistoryLimit {
		return fmt.Errorf("limit must be between 0 and %d", MaxHistoryLimit)
	}
	return nil
}

// Matches reports whether a record with the given attributes passes the
// filter.  To is exclusive.
func (q *HistoryQuery) Matches(ts time.Time, wallet string, chain policy.Chain,
	op policy.WriteOp) bool {

	if q.Wallet != nil && *q.Wallet != wallet {
		return false
	}
	if q.Chain != nil && *q.Chain != chain {
		return false
	}
	if q.Op != nil && *q.Op != op {
		return false
	}
	if q.From != nil && ts.Before(*q.From) {
		return false
	}
	if q.To != nil && !ts.Before(*q.To) {
		return false
	}
	return true
}

// HistoryResponse represents response for GET /history.
type HistoryResponse struct {
	Transactions []TxHistoryRecord `json:"transactions"`
	Audit        []AuditRecord     `json:"audit"`
	DailyUsedUSD float64           `json:"dailyUsedUsd"`
}
