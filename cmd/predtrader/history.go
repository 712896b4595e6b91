package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/alejandrodnm/predtrader/internal/adapters/notify"
	"github.com/alejandrodnm/predtrader/internal/ports"
)

func runHistory(ctx context.Context, store ports.RunStorage, console *notify.Console, limit int) {
	runs, err := store.GetRuns(ctx, limit)
	if err != nil {
		slog.Error("failed to read history", "err", err)
		os.Exit(1)
	}
	if len(runs) == 0 {
		slog.Warn("no stored runs")
		return
	}
	console.PrintHistory(runs)
}
