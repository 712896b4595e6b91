package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alejandrodnm/predtrader/config"
	"github.com/alejandrodnm/predtrader/internal/adapters/csvdata"
	"github.com/alejandrodnm/predtrader/internal/adapters/indicators"
	"github.com/alejandrodnm/predtrader/internal/adapters/notify"
	"github.com/alejandrodnm/predtrader/internal/adapters/regression"
	"github.com/alejandrodnm/predtrader/internal/adapters/storage"
	"github.com/alejandrodnm/predtrader/internal/application/experiment"
	"github.com/alejandrodnm/predtrader/internal/ports"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	dataPath := flag.String("data", "", "CSV with Date,Open,High,Low,Close,Volume (overrides config)")
	epochs := flag.Int("epochs", 0, "training effort (overrides config)")
	window := flag.Int("window", 0, "lookback window in rows (overrides config)")
	balance := flag.Float64("balance", 0, "initial cash balance (overrides config)")
	verbose := flag.Bool("verbose", false, "set log level to debug")
	logFormat := flag.String("format", "", "log format: text|json (overrides config)")
	asJSON := flag.Bool("json", false, "print the result payload as JSON instead of the report")
	sweep := flag.Bool("sweep", false, "run the epochs × windows grid and print a ranking")
	sweepEpochs := flag.String("sweep-epochs", "1,3,5", "comma-separated epochs for -sweep")
	sweepWindows := flag.String("sweep-windows", "5,10,20", "comma-separated windows for -sweep")
	history := flag.Int("history", 0, "print the N most recent stored runs and exit")
	noStore := flag.Bool("no-store", false, "do not persist runs")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err, "path", *configPath)
		os.Exit(1)
	}

	if *verbose {
		cfg.Log.Level = "debug"
	}
	if *logFormat != "" {
		cfg.Log.Format = *logFormat
	}
	if *dataPath != "" {
		cfg.Experiment.DataPath = *dataPath
	}
	if *epochs != 0 {
		cfg.Experiment.Epochs = *epochs
	}
	if *window != 0 {
		cfg.Experiment.Window = *window
	}
	if *balance != 0 {
		cfg.Experiment.InitialBalance = *balance
	}
	if *noStore {
		cfg.Storage.Enabled = false
	}
	setupLogger(cfg.Log, *asJSON)

	params := cfg.Params()
	slog.Info("predtrader starting",
		"config", *configPath,
		"data", params.DataPath,
		"epochs", params.Epochs,
		"window", params.Window,
		"balance", params.InitialBalance,
		"sweep", *sweep,
	)

	var store ports.RunStorage
	var sqlStore *storage.SQLiteStorage
	if cfg.Storage.Enabled || *history > 0 {
		sqlStore, err = storage.NewSQLiteStorage(cfg.Storage.DSN)
		if err != nil {
			slog.Error("failed to open storage", "err", err, "dsn", cfg.Storage.DSN)
			os.Exit(1)
		}
		defer sqlStore.Close()
		if cfg.Storage.Enabled {
			store = sqlStore
		}
	}

	console := notify.NewConsole("$", "Linear regression (ridge, L-BFGS)")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if *history > 0 {
		runHistory(ctx, sqlStore, console, *history)
		return
	}

	runner := experiment.New(
		csvdata.NewLoader(),
		indicators.NewBuilder(cfg.Experiment.SMAWindow, cfg.Experiment.EMASpan),
		func(e int) ports.Predictor { return regression.New(e) },
		experiment.NewModelCache(cfg.Cache.Capacity),
		store,
		experiment.Config{TrainFraction: cfg.Experiment.TrainFraction},
	)

	if *sweep {
		sweepCfg := experiment.SweepConfig{
			Workers:       cfg.Sweep.Workers,
			FitsPerSecond: cfg.Sweep.FitsPerSecond,
			Burst:         cfg.Sweep.Burst,
		}
		if err := runSweep(ctx, runner, console, params, *sweepEpochs, *sweepWindows, sweepCfg, *asJSON); err != nil {
			slog.Error("sweep failed", "err", err)
			os.Exit(1)
		}
		return
	}

	result, err := runner.Run(ctx, params)
	if err != nil {
		slog.Error("experiment failed", "err", err)
		os.Exit(1)
	}

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			slog.Error("encode result", "err", err)
			os.Exit(1)
		}
		return
	}

	var reporter ports.Reporter = console
	if err := reporter.Report(ctx, result); err != nil {
		slog.Warn("reporter error", "err", err)
	}
}

// setupLogger configura slog. Con -json los logs van a stderr para no
// mezclarse con el payload en stdout.
func setupLogger(cfg config.LogConfig, toStderr bool) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	out := os.Stdout
	if toStderr {
		out = os.Stderr
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(out, opts)
	} else {
		handler = slog.NewTextHandler(out, opts)
	}
	slog.SetDefault(slog.New(handler))
}
