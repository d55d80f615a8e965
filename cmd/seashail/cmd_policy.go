package main

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/urfave/cli"

	"github.com/seashail/seashail/internal/model"
)

func policyCommands() []cli.Command {
	return []cli.Command{
		{
			Name:     "policy",
			Category: "Policy",
			Usage:    "Inspect and change spending policy.",
			Subcommands: []cli.Command{
				checkPolicyCommand,
				showPolicyCommand,
				setPolicyCommand,
				resetPolicyCommand,
			},
		},
	}
}

var checkPolicyCommand = cli.Command{
	Name:  "check",
	Usage: "Dry-run a write against the policy of a wallet.",
	Description: `
	Prints whether the operation would be approved automatically, need
	confirmation or be blocked.  Nothing is signed and nothing is
	recorded.  A native amount is priced when no USD value is given.`,
	Flags: []cli.Flag{
		cli.StringFlag{Name: "wallet", Usage: "wallet name (default: active wallet)"},
		cli.StringFlag{Name: "op", Value: "send", Usage: "operation, e.g. send, swap, pumpfun_buy"},
		cli.StringFlag{Name: "chain", Usage: "chain, e.g. solana, base, bitcoin"},
		cli.Float64Flag{Name: "usd", Usage: "USD value of the operation"},
		cli.Float64Flag{Name: "amount", Usage: "native amount of the operation"},
		cli.UintFlag{Name: "slippage_bps", Usage: "slippage tolerance in basis points"},
		cli.StringFlag{Name: "to", Usage: "recipient address"},
		cli.StringFlag{Name: "contract", Usage: "target contract or program"},
		cli.Float64Flag{Name: "leverage", Usage: "position leverage"},
	},
	Action: withEnv(checkPolicy),
}

func checkPolicy(ctx *cli.Context, a *env) error {
	if ctx.String("chain") == "" {
		return fmt.Errorf("--chain is required")
	}
	req := &model.EvaluateRequest{
		Wallet: ctx.String("wallet"),
		Op:     ctx.String("op"),
		Chain:  ctx.String("chain"),
	}
	if ctx.IsSet("usd") {
		v := ctx.Float64("usd")
		req.USDValue = &v
	}
	if ctx.IsSet("amount") {
		v := ctx.Float64("amount")
		req.NativeAmount = &v
	}
	if ctx.IsSet("slippage_bps") {
		v := uint32(ctx.Uint("slippage_bps"))
		req.SlippageBps = &v
	}
	if ctx.IsSet("to") {
		v := ctx.String("to")
		req.Recipient = &v
	}
	if ctx.IsSet("contract") {
		v := ctx.String("contract")
		req.Contract = &v
	}
	if ctx.IsSet("leverage") {
		v := ctx.Float64("leverage")
		req.Leverage = &v
	}

	cctx, cancel := commandContext()
	defer cancel()

	ev, err := a.svc.DryRun(cctx, req)
	if err != nil {
		return err
	}
	printJSON(model.EvaluateResponse{
		Outcome:        ev.Decision.Outcome.String(),
		Reason:         string(ev.Decision.Reason),
		USDValue:       ev.USDValue,
		USDValueKnown:  ev.USDValueKnown,
		DailyUsedUSD:   ev.DailyUsedUSD,
		PolicyOverride: ev.Override,
	})
	return nil
}

var showPolicyCommand = cli.Command{
	Name:  "show",
	Usage: "Print the effective policy as TOML.",
	Flags: []cli.Flag{
		cli.StringFlag{Name: "wallet", Usage: "show the policy applying to this wallet"},
	},
	Action: withEnv(showPolicy),
}

func showPolicy(ctx *cli.Context, a *env) error {
	wallet := ctx.String("wallet")
	if wallet != "" {
		if _, err := a.ks.GetWalletByName(wallet); err != nil {
			return err
		}
	}
	p, override := a.ks.PolicyForWallet(wallet)
	if override {
		fmt.Printf("# override for wallet %q\n", wallet)
	} else {
		fmt.Println("# global policy")
	}
	return toml.NewEncoder(os.Stdout).Encode(p)
}

var setPolicyCommand = cli.Command{
	Name:      "set",
	Usage:     "Replace the global policy or a wallet's override from a TOML file.",
	ArgsUsage: "policy.toml",
	Description: `
	Keys missing from the file keep the value of the policy currently in
	effect.  The result is validated before it is saved.`,
	Flags: []cli.Flag{
		cli.StringFlag{Name: "wallet", Usage: "set an override for this wallet instead of the global policy"},
	},
	Action: withEnv(setPolicy),
}

func setPolicy(ctx *cli.Context, a *env) error {
	if ctx.NArg() != 1 {
		return fmt.Errorf("expected the path of a TOML policy file")
	}
	wallet := ctx.String("wallet")

	p, _ := a.ks.PolicyForWallet(wallet)
	if _, err := toml.DecodeFile(ctx.Args().First(), &p); err != nil {
		return fmt.Errorf("failed to read policy: %w", err)
	}

	cctx, cancel := commandContext()
	defer cancel()

	return a.ks.UpdatePolicy(cctx, wallet, p)
}

var resetPolicyCommand = cli.Command{
	Name:      "reset",
	Usage:     "Remove a wallet's override so the global policy applies.",
	ArgsUsage: "wallet",
	Action:    withEnv(resetPolicy),
}

func resetPolicy(ctx *cli.Context, a *env) error {
	wallet, err := nameArg(ctx)
	if err != nil {
		return err
	}
	cctx, cancel := commandContext()
	defer cancel()

	return a.ks.ClearPolicyOverride(cctx, wallet)
}
