package main

import (
	"fmt"
	"time"

	"github.com/urfave/cli"

	"github.com/seashail/seashail/internal/model"
	"github.com/seashail/seashail/internal/policy"
)

var historyCommand = cli.Command{
	Name:     "history",
	Category: "Policy",
	Usage:    "Export transaction history and the audit log as JSON.",
	Flags: []cli.Flag{
		cli.StringFlag{Name: "wallet", Usage: "only this wallet"},
		cli.StringFlag{Name: "chain", Usage: "only this chain"},
		cli.StringFlag{Name: "op", Usage: "only this operation"},
		cli.StringFlag{Name: "from", Usage: "start date, YYYY-MM-DD"},
		cli.StringFlag{Name: "to", Usage: "end date, inclusive, YYYY-MM-DD"},
		cli.IntFlag{Name: "limit", Usage: "maximum records per list"},
	},
	Action: withEnv(history),
}

func history(ctx *cli.Context, a *env) error {
	const dateLayout = "2006-01-02"

	q := model.HistoryQuery{Limit: ctx.Int("limit")}
	if s := ctx.String("wallet"); s != "" {
		q.Wallet = &s
	}
	if s := ctx.String("chain"); s != "" {
		chain, err := policy.ParseChain(s)
		if err != nil {
			return err
		}
		q.Chain = &chain
	}
	if s := ctx.String("op"); s != "" {
		op, err := policy.ParseWriteOp(s)
		if err != nil {
			return err
		}
		q.Op = &op
	}
	if s := ctx.String("from"); s != "" {
		t, err := time.Parse(dateLayout, s)
		if err != nil {
			return fmt.Errorf("invalid --from: %w", err)
		}
		q.From = &t
	}
	if s := ctx.String("to"); s != "" {
		t, err := time.Parse(dateLayout, s)
		if err != nil {
			return fmt.Errorf("invalid --to: %w", err)
		}
		t = t.Add(24 * time.Hour)
		q.To = &t
	}

	txs, err := a.ks.QueryHistory(q)
	if err != nil {
		return err
	}
	audit, err := a.ks.QueryAudit(q)
	if err != nil {
		return err
	}
	daily, err := a.ks.DailyUsedUSDFiltered(a.ks.Clock().Now(), q.Wallet)
	if err != nil {
		return err
	}

	if txs == nil {
		txs = []model.TxHistoryRecord{}
	}
	if audit == nil {
		audit = []model.AuditRecord{}
	}
	printJSON(model.HistoryResponse{
		Transactions: txs,
		Audit:        audit,
		DailyUsedUSD: daily,
	})
	return nil
}
