package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli"
	"go.uber.org/zap"

	"github.com/seashail/seashail/internal/client"
	"github.com/seashail/seashail/internal/config"
	"github.com/seashail/seashail/internal/confirm"
	"github.com/seashail/seashail/internal/elicit"
	"github.com/seashail/seashail/internal/keystore"
	"github.com/seashail/seashail/internal/logging"
	"github.com/seashail/seashail/internal/metrics"
	"github.com/seashail/seashail/internal/service"
	"github.com/seashail/seashail/internal/signer"
)

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "[seashail] %v\n", err)
	os.Exit(1)
}

func printJSON(v interface{}) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fatal(err)
	}
	fmt.Printf("%s\n", b)
}

// env is everything a command needs, opened from the environment and the
// global flags.
type env struct {
	cfg     *config.Config
	log     *zap.Logger
	metrics *metrics.Metrics
	ks      *keystore.Keystore
	svc     *service.Service
	prices  *client.CoinGeckoClient
	term    *elicit.Terminal
}

func (a *env) Close() {
	a.svc.Lock()
	_ = a.ks.Close()
	_ = a.log.Sync()
}

func openEnv(ctx *cli.Context) (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if dir := ctx.GlobalString("datadir"); dir != "" {
		cfg.DataDir = dir
	}

	log, err := logging.New(cfg.LogLevel, cfg.LogJSON)
	if err != nil {
		return nil, err
	}

	store, err := config.Open(cfg.DocumentPath())
	if err != nil {
		return nil, err
	}

	m := metrics.New()
	ks, err := keystore.Open(context.Background(), keystore.Config{
		DataDir:     cfg.DataDir,
		Store:       store,
		Deriver:     signer.NewDeriver(),
		Log:         log,
		LockTimeout: cfg.LockTimeout,
		Metrics:     m,
	})
	if err != nil {
		return nil, err
	}

	term := elicit.Stdio()
	prices := client.NewCoinGeckoClient(cfg.CoinGeckoURL)
	svc := service.New(service.Config{
		Keystore: ks,
		Confirmer: confirm.New(confirm.Config{
			Ledger:   ks,
			Elicitor: term,
			Clock:    ks.Clock(),
			Timeout:  cfg.ElicitTimeout,
			Metrics:  m,
			Log:      log,
		}),
		Prompter:   term,
		Pricer:     prices,
		SessionTTL: cfg.SessionTTL,
		Metrics:    m,
		Log:        log,
	})

	return &env{
		cfg:     cfg,
		log:     log,
		metrics: m,
		ks:      ks,
		svc:     svc,
		prices:  prices,
		term:    term,
	}, nil
}

// commandContext is cancelled by an interrupt, which abandons any pending
// prompt.
func commandContext() (context.Context, func()) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// withEnv opens the env around a command action.
func withEnv(action func(ctx *cli.Context, a *env) error) cli.ActionFunc {
	return func(ctx *cli.Context) error {
		a, err := openEnv(ctx)
		if err != nil {
			return err
		}
		defer a.Close()
		return action(ctx, a)
	}
}

func main() {
	app := cli.NewApp()
	app.Name = "seashail"
	app.Usage = "non-custodial wallet for agents, with policy-gated writes"
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "datadir",
			Usage: "data directory (overrides SEASHAIL_DATA_DIR)",
		},
	}
	app.Commands = []cli.Command{
		serveCommand,
		historyCommand,
	}
	app.Commands = append(app.Commands, walletCommands()...)
	app.Commands = append(app.Commands, policyCommands()...)

	if err := app.Run(os.Args); err != nil {
		fatal(err)
	}
}
