// Package confirm turns a policy decision into an approval, an interactive
// confirmation or a refusal, and writes exactly one audit record for every
// write request it sees.
package confirm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lightningnetwork/lnd/clock"
	"github.com/lightningnetwork/lnd/fn/v2"
	"go.uber.org/zap"

	"github.com/seashail/seashail/internal/apperr"
	"github.com/seashail/seashail/internal/elicit"
	"github.com/seashail/seashail/internal/metrics"
	"github.com/seashail/seashail/internal/model"
	"github.com/seashail/seashail/internal/policy"
)

// DefaultTimeout bounds how long a confirmation waits for the user.
const DefaultTimeout = 5 * time.Minute

// Stable codes for refusals.
const (
	CodeUserDeclined       apperr.Code = "user_declined"
	CodeBackupNotConfirmed apperr.Code = "backup_not_confirmed"
	CodeHistoryUnavailable apperr.Code = "history_unavailable"
)

// Ledger is the part of the keystore the protocol reads spend from and
// writes audit records to.
type Ledger interface {
	PolicyForWallet(wallet string) (policy.Policy, bool)
	DailyUsedUSD(wallet string) (float64, error)
	CountHistorySince(wallet string, op policy.WriteOp, since time.Time) (uint32, error)
	RecordAuditBestEffort(rec *model.AuditRecord)
}

// Config holds a Confirmer's collaborators.
type Config struct {
	Ledger   Ledger
	Elicitor elicit.Elicitor
	Clock    clock.Clock
	Timeout  time.Duration
	Metrics  *metrics.Metrics
	Log      *zap.Logger
}

// Confirmer runs the write-confirmation protocol.  It is safe for
// concurrent use; each request is handled independently.
type Confirmer struct {
	ledger   Ledger
	elicitor elicit.Elicitor
	clock    clock.Clock
	timeout  time.Duration
	metrics  *metrics.Metrics
	log      *zap.Logger
}

// New returns a Confirmer.  Zero values in cfg get defaults.
func New(cfg Config) *Confirmer {
	if cfg.Clock == nil {
		cfg.Clock = clock.NewDefaultClock()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Log == nil {
		cfg.Log = zap.NewNop()
	}
	return &Confirmer{
		ledger:   cfg.Ledger,
		elicitor: cfg.Elicitor,
		clock:    cfg.Clock,
		timeout:  cfg.Timeout,
		metrics:  cfg.Metrics,
		log:      cfg.Log.Named("confirm"),
	}
}

// Request describes one proposed write.
type Request struct {
	RequestID    string
	Tool         string
	Wallet       string
	AccountIndex uint32
	Op           policy.WriteOp
	Chain        policy.Chain

	USDValue      float64
	USDValueKnown bool

	SlippageBps  fn.Option[uint32]
	Recipient    fn.Option[string]
	Contract     fn.Option[string]
	Leverage     fn.Option[float64]
	NativeAmount fn.Option[float64]

	// ForceConfirm marks transaction bytes built by a remote adapter.
	ForceConfirm bool

	// Summary is an optional line shown to the user, e.g. "swap 1 SOL for USDC".
	Summary string
}

// Outcome is the terminal state of an approved request.
type Outcome struct {
	RequestID       string
	Decision        model.AuditDecision
	Reason          policy.Reason
	ConfirmRequired bool
	ForcedConfirm   bool
	DailyUsedUSD    float64
}

// MaybeConfirmWrite evaluates req against the wallet's policy and, when
// required, asks the user.  A refusal is returned as an error of kind
// apperr.Policy or apperr.Declined carrying a stable code.
func (c *Confirmer) MaybeConfirmWrite(ctx context.Context, req *Request) (*Outcome, error) {
	const op apperr.Op = "confirm.MaybeConfirmWrite"

	if req.RequestID == "" {
		req.RequestID = uuid.NewString()
	}
	log := c.log.With(zap.String("request_id", req.RequestID),
		zap.String("wallet", req.Wallet), zap.Stringer("op", req.Op),
		zap.Stringer("chain", req.Chain))

	p, override := c.ledger.PolicyForWallet(req.Wallet)
	forced := req.ForceConfirm && p.RequireUserConfirmForRemoteTx

	audit := model.AuditRecord{
		RequestID:     req.RequestID,
		Tool:          req.Tool,
		Wallet:        req.Wallet,
		AccountIndex:  req.AccountIndex,
		Chain:         req.Chain,
		Op:            req.Op,
		USDValue:      req.USDValue,
		USDValueKnown: req.USDValueKnown,
		ForcedConfirm: forced,
	}
	finish := func(d model.AuditDecision, reason string) {
		audit.Decision = d
		audit.Reason = reason
		c.ledger.RecordAuditBestEffort(&audit)
		c.metrics.WriteDecision(string(d))
	}

	// Without today's spend the daily cap cannot be enforced.
	daily, err := c.ledger.DailyUsedUSD(req.Wallet)
	if err != nil {
		finish(model.DecisionBlocked, string(CodeHistoryUnavailable))
		return nil, apperr.E(op, apperr.IO, CodeHistoryUnavailable, err)
	}
	audit.DailyUsedUSD = daily

	pctx := &policy.Context{
		Op:            req.Op,
		Chain:         req.Chain,
		USDValue:      req.USDValue,
		USDValueKnown: req.USDValueKnown,
		DailyUsedUSD:  daily,
		SlippageBps:   req.SlippageBps,
		Recipient:     req.Recipient,
		Contract:      req.Contract,
		Leverage:      req.Leverage,
		NativeAmount:  req.NativeAmount,
	}
	if req.Op == policy.OpPumpfunBuy {
		since := c.clock.Now().Add(-time.Hour)
		n, err := c.ledger.CountHistorySince(req.Wallet, req.Op, since)
		if err != nil {
			finish(model.DecisionBlocked, string(CodeHistoryUnavailable))
			return nil, apperr.E(op, apperr.IO, CodeHistoryUnavailable, err)
		}
		pctx.PumpfunBuysLastHour = n
	}

	d := policy.Evaluate(&p, pctx)
	c.metrics.PolicyDecision(req.Op.String(), d.Outcome.String(), string(d.Reason))
	log.Debug("policy evaluated", zap.Stringer("outcome", d.Outcome),
		zap.String("reason", string(d.Reason)), zap.Bool("override", override),
		zap.Float64("usd", req.USDValue), zap.Float64("daily_used_usd", daily))

	out := &Outcome{
		RequestID:     req.RequestID,
		Reason:        d.Reason,
		ForcedConfirm: forced,
		DailyUsedUSD:  daily,
	}

	switch {
	case d.IsBlocked():
		finish(model.DecisionBlocked, string(d.Reason))
		log.Info("write blocked by policy", zap.String("reason", string(d.Reason)))
		return nil, apperr.E(op, apperr.Policy, apperr.Code(d.Reason),
			fmt.Sprintf("blocked by policy: %s", d.Reason))

	case d.Outcome == policy.AutoApprove && !forced:
		finish(model.DecisionAutoApproved, string(d.Reason))
		out.Decision = model.DecisionAutoApproved
		return out, nil
	}

	audit.ConfirmRequired = true
	out.ConfirmRequired = true

	if !c.confirm(ctx, log, c.summary(req, &p, daily, forced)) {
		finish(model.DecisionUserDeclined, string(CodeUserDeclined))
		return nil, apperr.E(op, apperr.Declined, CodeUserDeclined, "user declined the operation")
	}

	finish(model.DecisionUserConfirmed, string(d.Reason))
	out.Decision = model.DecisionUserConfirmed
	return out, nil
}

// confirm asks the user and reports acceptance.  Errors and timeouts count
// as a decline.
func (c *Confirmer) confirm(ctx context.Context, log *zap.Logger, message string) bool {
	if c.elicitor == nil {
		log.Warn("confirmation required but no elicitation surface is configured")
		return false
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.elicitor.ElicitForm(ctx, message, elicit.ConfirmSchema("Approve this operation"))
	if err != nil {
		log.Info("confirmation not answered", zap.Error(err))
		return false
	}
	return resp.Bool("confirm")
}

func (c *Confirmer) summary(req *Request, p *policy.Policy, daily float64, forced bool) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Confirm %s on %s from wallet %q (account %d)\n",
		req.Op, req.Chain, req.Wallet, req.AccountIndex)
	if req.Summary != "" {
		fmt.Fprintf(&b, "%s\n", req.Summary)
	}
	if req.USDValueKnown {
		fmt.Fprintf(&b, "Value: $%.2f\n", req.USDValue)
	} else {
		b.WriteString("Value: unknown\n")
	}
	req.Recipient.WhenSome(func(to string) {
		fmt.Fprintf(&b, "Recipient: %s\n", to)
	})
	req.Contract.WhenSome(func(addr string) {
		fmt.Fprintf(&b, "Contract: %s\n", addr)
	})
	fmt.Fprintf(&b, "Spent today: $%.2f of $%.2f", daily, p.MaxUSDPerDay)
	if forced {
		b.WriteString("\nThis transaction was built by a remote service.")
	}
	return b.String()
}
