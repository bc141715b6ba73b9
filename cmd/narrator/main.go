package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/samvad-hq/samvad-news-narrator/internal/app"
	"github.com/samvad-hq/samvad-news-narrator/internal/config"
	"github.com/samvad-hq/samvad-news-narrator/internal/logger"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "narrator start failed: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := logger.Init(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Close()

	logger.InfoObj("narrator starting", "config", cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	narrator, err := app.NewNarrator(ctx, cfg, log, os.Stdin)
	if err != nil {
		logger.ErrorObj("failed to initialize narrator", "error", err)
		return err
	}

	if err := narrator.Run(ctx); err != nil {
		return fmt.Errorf("narrator run: %w", err)
	}

	return nil
}
