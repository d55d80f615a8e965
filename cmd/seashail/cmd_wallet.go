package main

import (
	"fmt"
	"strings"

	"github.com/urfave/cli"

	"github.com/seashail/seashail/internal/model"
)

func walletCommands() []cli.Command {
	return []cli.Command{
		{
			Name:     "wallet",
			Category: "Wallet",
			Usage:    "Create, import and manage wallets.",
			Subcommands: []cli.Command{
				listWalletsCommand,
				createWalletCommand,
				importWalletCommand,
				importLegacyCommand,
				rotateWalletCommand,
				useWalletCommand,
				addAccountCommand,
			},
		},
	}
}

var listWalletsCommand = cli.Command{
	Name:   "list",
	Usage:  "List wallets and their cached addresses.",
	Action: withEnv(listWallets),
}

func listWallets(_ *cli.Context, a *env) error {
	wallets, err := a.ks.ListWallets()
	if err != nil {
		return err
	}
	printJSON(wallets)
	return nil
}

var createWalletCommand = cli.Command{
	Name:      "create",
	Usage:     "Create a generated wallet and show its offline share once.",
	ArgsUsage: "name",
	Description: `
	Generates fresh entropy and splits it 2-of-3.  One share stays on this
	machine, one is encrypted under your passphrase and the third is shown
	exactly once for offline backup.  The wallet is kept only after you
	type back the end of that share.`,
	Action: withEnv(createWallet),
}

func createWallet(ctx *cli.Context, a *env) error {
	name, err := nameArg(ctx)
	if err != nil {
		return err
	}
	cctx, cancel := commandContext()
	defer cancel()

	info, err := a.svc.CreateWallet(cctx, name)
	if err != nil {
		return err
	}
	printJSON(info)
	return nil
}

var importWalletCommand = cli.Command{
	Name:      "import",
	Usage:     "Import a mnemonic or a private key.",
	ArgsUsage: "name",
	Description: `
	The secret is read from the terminal without echo and stored encrypted
	under your passphrase.`,
	Flags: []cli.Flag{
		cli.StringFlag{
			Name:  "kind",
			Value: string(model.ImportedMnemonic),
			Usage: "mnemonic or private_key",
		},
		cli.StringFlag{
			Name:  "chain",
			Usage: "chain of a private key: evm, solana or bitcoin",
		},
	},
	Action: withEnv(importWallet),
}

func importWallet(ctx *cli.Context, a *env) error {
	name, err := nameArg(ctx)
	if err != nil {
		return err
	}

	kind := model.ImportedKind(strings.ToLower(ctx.String("kind")))
	chain := model.KeyChain(strings.ToLower(ctx.String("chain")))
	switch kind {
	case model.ImportedMnemonic:
		if chain != "" {
			return fmt.Errorf("--chain applies to private keys only")
		}
	case model.ImportedPrivateKey:
		if chain == "" {
			return fmt.Errorf("--chain is required for a private key")
		}
	default:
		return fmt.Errorf("unknown --kind %q", kind)
	}

	cctx, cancel := commandContext()
	defer cancel()

	secret, err := a.term.PromptPassphrase(cctx, fmt.Sprintf("Enter %s", kind), false)
	if err != nil {
		return err
	}
	info, err := a.svc.ImportWallet(cctx, name, kind, chain, secret)
	if err != nil {
		return err
	}
	printJSON(info)
	return nil
}

var importLegacyCommand = cli.Command{
	Name:      "import-legacy",
	Usage:     "Import the Solana key of a .cwt wallet file.",
	ArgsUsage: "name",
	Flags: []cli.Flag{
		cli.StringFlag{
			Name:  "file",
			Usage: "path to the .cwt file",
		},
	},
	Action: withEnv(importLegacy),
}

func importLegacy(ctx *cli.Context, a *env) error {
	name, err := nameArg(ctx)
	if err != nil {
		return err
	}
	path := ctx.String("file")
	if path == "" {
		return fmt.Errorf("--file is required")
	}

	cctx, cancel := commandContext()
	defer cancel()

	info, err := a.svc.ImportLegacyFile(cctx, name, path)
	if err != nil {
		return err
	}
	printJSON(info)
	return nil
}

var rotateWalletCommand = cli.Command{
	Name:      "rotate",
	Usage:     "Issue a new offline share for a generated wallet.",
	ArgsUsage: "name",
	Description: `
	The previous offline share stops working once the new one is
	confirmed.  Nothing changes if the new share is not confirmed.`,
	Action: withEnv(rotateWallet),
}

func rotateWallet(ctx *cli.Context, a *env) error {
	name, err := nameArg(ctx)
	if err != nil {
		return err
	}
	cctx, cancel := commandContext()
	defer cancel()

	if err := a.svc.RotateShares(cctx, name); err != nil {
		return err
	}
	fmt.Printf("Rotated shares of %q\n", name)
	return nil
}

var useWalletCommand = cli.Command{
	Name:      "use",
	Usage:     "Set the active wallet and account.",
	ArgsUsage: "name",
	Flags: []cli.Flag{
		cli.UintFlag{
			Name:  "account",
			Usage: "account index",
		},
	},
	Action: withEnv(useWallet),
}

func useWallet(ctx *cli.Context, a *env) error {
	name, err := nameArg(ctx)
	if err != nil {
		return err
	}
	cctx, cancel := commandContext()
	defer cancel()

	account := uint32(ctx.Uint("account"))
	if err := a.svc.UseWallet(cctx, name, account); err != nil {
		return err
	}
	fmt.Printf("Active wallet: %s (account %d)\n", name, account)
	return nil
}

var addAccountCommand = cli.Command{
	Name:      "add-account",
	Usage:     "Derive the next account of a wallet (default: the active one).",
	ArgsUsage: "[name]",
	Action:    withEnv(addAccount),
}

func addAccount(ctx *cli.Context, a *env) error {
	name := ctx.Args().First()
	if name == "" {
		rec, _, err := a.ks.GetActiveWallet()
		if err != nil {
			return err
		}
		name = rec.Name
	}
	cctx, cancel := commandContext()
	defer cancel()

	info, err := a.svc.AddAccount(cctx, name)
	if err != nil {
		return err
	}
	printJSON(info)
	return nil
}

func nameArg(ctx *cli.Context) (string, error) {
	if ctx.NArg() != 1 {
		return "", fmt.Errorf("expected exactly one wallet name")
	}
	return ctx.Args().First(), nil
}
