// Command marketmaker runs a single-symbol automated market-making agent
// against one spot exchange, quoting both sides of the book around the
// live midpoint with hysteresis and cooldown gating on repricing.
package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"marketmaker/internal/config"
	"marketmaker/internal/supervisor"

	_ "net/http/pprof"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the market-maker's YAML config")
	pprofAddr := flag.String("pprof", "localhost:6060", "pprof listen address, empty to disable")
	flag.Parse()

	if *pprofAddr != "" {
		go func() {
			slog.Info("pprof server started", "addr", *pprofAddr)
			if err := http.ListenAndServe(*pprofAddr, nil); err != nil {
				slog.Error("pprof server failed", "err", err)
			}
		}()
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load configuration", "err", err)
		os.Exit(1)
	}

	sup, err := supervisor.New(cfg)
	if err != nil {
		slog.Error("failed to initialize supervisor", "err", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := sup.Run(ctx); err != nil && ctx.Err() == nil {
		slog.Error("market-maker exited with error", "err", err)
		os.Exit(1)
	}
}
