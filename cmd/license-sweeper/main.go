package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	licensesweeper "github.com/magabrotheeeer/license-reconciler/internal/app/license-sweeper"
	"github.com/magabrotheeeer/license-reconciler/internal/config"
	"github.com/magabrotheeeer/license-reconciler/internal/lib/sl"
)

func main() {
	cfg := config.MustLoad()
	logger := setupLogger(cfg.Env)
	logger.Info("starting license-sweeper",
		slog.String("env", cfg.Env),
		slog.Duration("interval", cfg.Sweeper.Interval),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := licensesweeper.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize license-sweeper", sl.Err(err))
		os.Exit(1)
	}

	if err := app.Run(ctx); err != nil {
		logger.Error("license-sweeper stopped with error", sl.Err(err))
		os.Exit(1)
	}
	logger.Info("license-sweeper stopped gracefully")
}

func setupLogger(env string) *slog.Logger {
	switch env {
	case config.EnvProd:
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	default:
		return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
}
