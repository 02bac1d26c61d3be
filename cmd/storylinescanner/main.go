package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"StorylineScanner/internal/app"
	"StorylineScanner/internal/config"
	"StorylineScanner/internal/logging"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := config.Load()
	logger := logging.New(cfg.Logging.Level)

	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("startup failed", "error", err)
		os.Exit(1)
	}

	if err := application.Run(ctx); err != nil {
		logger.Error("application stopped", "error", err)
		_ = application.Close()
		os.Exit(1)
	}

	_ = application.Close()
}
