package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/urfave/cli"
	"go.uber.org/zap"

	"github.com/seashail/seashail/internal/api"
	"github.com/seashail/seashail/internal/client"
	"github.com/seashail/seashail/internal/handler"
)

var serveCommand = cli.Command{
	Name:  "serve",
	Usage: "Serve the read-only HTTP API.",
	Description: `
	Serves wallet listing, balances, history export and policy dry runs
	on 127.0.0.1.  Nothing reachable over HTTP signs or reveals secrets.`,
	Flags: []cli.Flag{
		cli.StringFlag{
			Name:  "listen",
			Usage: "listen address; defaults to 127.0.0.1:$SEASHAIL_PORT",
		},
	},
	Action: withEnv(serve),
}

func serve(ctx *cli.Context, a *env) error {
	rpc, err := client.NewSolanaClient(a.cfg.SolanaRPCURL, a.cfg.USDCMint)
	if err != nil {
		return err
	}

	h := handler.New(a.svc, rpc, a.prices, a.log)
	addr := ctx.String("listen")
	if addr == "" {
		addr = "127.0.0.1:" + a.cfg.Port
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           api.SetupRouter(h, a.metrics),
		ReadHeaderTimeout: 10 * time.Second,
	}

	sigCtx, stop := commandContext()
	defer stop()

	errc := make(chan error, 1)
	go func() {
		a.log.Info("server listening", zap.String("addr", addr),
			zap.String("data_dir", a.cfg.DataDir))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-sigCtx.Done():
	}

	a.log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
