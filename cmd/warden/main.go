package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/warden-api/warden/cmd/warden/cli"
	"github.com/warden-api/warden/internal/app"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	root := cli.NewRootCommand(cli.Options{})
	if err := root.ExecuteContext(ctx); err != nil {
		slog.Default().Error("warden", slog.Any("error", err))
		os.Exit(1)
	}
}
