package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"cn-alpha/internal/app"
	"cn-alpha/internal/slogx"
)

func init() {
	slog.SetDefault(slogx.NewDefault("info"))
}

func main() {
	a, err := InitializeApp()
	if err != nil {
		slog.Error("failed to initialize app", "error", err)
		os.Exit(1)
	}
	defer a.Provider.Close()

	slog.SetDefault(slogx.NewDefault(a.Config.LogLevel))
	slog.Info("using data provider", "provider", a.Provider.GetName())
	slog.Info("panel store", "path", a.Config.DataPath, "dedup", a.Config.DedupPolicy)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := app.RunPipeline(ctx, a); err != nil {
		slog.Error("pipeline failed", "error", err)
		os.Exit(1)
	}
}
