package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/alejandrodnm/predtrader/internal/adapters/notify"
	"github.com/alejandrodnm/predtrader/internal/application/experiment"
	"github.com/alejandrodnm/predtrader/internal/domain"
)

// sweepRow es la forma JSON de un punto del grid.
type sweepRow struct {
	Epochs int                   `json:"epochs"`
	Window int                   `json:"window"`
	Result *domain.ResultPayload `json:"result,omitempty"`
	Error  string                `json:"error,omitempty"`
}

func runSweep(
	ctx context.Context,
	runner *experiment.Runner,
	console *notify.Console,
	base domain.Params,
	epochsList, windowsList string,
	cfg experiment.SweepConfig,
	asJSON bool,
) error {
	epochs, err := parseIntList(epochsList)
	if err != nil {
		return fmt.Errorf("-sweep-epochs: %w", err)
	}
	windows, err := parseIntList(windowsList)
	if err != nil {
		return fmt.Errorf("-sweep-windows: %w", err)
	}

	slog.Info("=== SWEEP MODE ===", "epochs", epochs, "windows", windows, "workers", cfg.Workers)

	results := experiment.Sweep(ctx, runner, base, epochs, windows, cfg)

	st := runner.Cache().Stats()
	slog.Info("sweep complete",
		"runs", len(results),
		"fits", st.Fits,
		"cache_hits", st.Hits,
		"cache_misses", st.Misses,
	)

	if !asJSON {
		console.PrintSweep(results)
		return nil
	}

	rows := make([]sweepRow, 0, len(results))
	for _, r := range results {
		row := sweepRow{Epochs: r.Params.Epochs, Window: r.Params.Window, Result: r.Result}
		if r.Err != nil {
			row.Error = r.Err.Error()
		}
		rows = append(rows, row)
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(rows)
}

// parseIntList parsea "1, 3,5" → [1 3 5]. Vacío → nil.
func parseIntList(s string) ([]int, error) {
	var out []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("parse %q: %w", part, err)
		}
		out = append(out, n)
	}
	return out, nil
}
