// Package main provides the entry point for the polling worker.
package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/apitest/gitbridge/internal/integrations/github"
	"github.com/apitest/gitbridge/internal/poller"
	pgstore "github.com/apitest/gitbridge/internal/store/postgres"
	"github.com/apitest/gitbridge/pkg/config"
	"github.com/apitest/gitbridge/pkg/logger"
)

func main() {
	log := logger.New(slog.LevelInfo, true).WithComponent("poller")

	cfg, err := config.Load()
	if err != nil {
		log.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	storeCfg := pgstore.DefaultConfig(cfg.DatabaseDSN)
	store, err := pgstore.NewPostgresStore(storeCfg, log.Logger)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	if err := store.EnsureSchema(context.Background()); err != nil {
		log.Error("failed to ensure database schema", "error", err)
		os.Exit(1)
	}

	client := github.DefaultClient(github.Config{
		ClientID:     cfg.GitHub.ClientID,
		ClientSecret: cfg.GitHub.ClientSecret,
		RedirectURI:  cfg.GitHub.RedirectURI,
	})

	p := poller.New(store, client, cfg.PollInterval, log.Logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		log.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	if err := p.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("poller error", "error", err)
		os.Exit(1)
	}

	log.Info("poller stopped")
}
