package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	for _, k := range []string{
		"PREDTRADER_DATA", "PREDTRADER_EPOCHS", "PREDTRADER_WINDOW", "PREDTRADER_BALANCE",
		"STORAGE_DSN", "LOG_LEVEL", "LOG_FORMAT",
	} {
		t.Setenv(k, "")
	}
}

func TestLoad_YAML(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
experiment:
  data_path: prices.csv
  epochs: 7
  window: 20
  initial_balance: 5000
cache:
  capacity: 4
storage:
  enabled: true
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	p := cfg.Params()
	assert.Equal(t, "prices.csv", p.DataPath)
	assert.Equal(t, 7, p.Epochs)
	assert.Equal(t, 20, p.Window)
	assert.Equal(t, 5000.0, p.InitialBalance)
	assert.Equal(t, 4, cfg.Cache.Capacity)
	assert.True(t, cfg.Storage.Enabled)

	// defaults
	assert.Equal(t, 0.8, cfg.Experiment.TrainFraction)
	assert.Equal(t, 5, cfg.Experiment.SMAWindow)
	assert.Equal(t, "predtrader.db", cfg.Storage.DSN)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	p := cfg.Params()
	assert.Equal(t, "data/stock_data.csv", p.DataPath)
	assert.Equal(t, 3, p.Epochs)
	assert.Equal(t, 10, p.Window)
	assert.Equal(t, 10000.0, p.InitialBalance)
	assert.NoError(t, p.Validate())
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PREDTRADER_DATA", "env.csv")
	t.Setenv("PREDTRADER_WINDOW", "15")
	t.Setenv("PREDTRADER_BALANCE", "2500.5")
	t.Setenv("LOG_FORMAT", "json")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "env.csv", cfg.Experiment.DataPath)
	assert.Equal(t, 15, cfg.Experiment.Window)
	assert.Equal(t, 2500.5, cfg.Experiment.InitialBalance)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoad_BadEnvNumber(t *testing.T) {
	clearEnv(t)
	t.Setenv("PREDTRADER_EPOCHS", "three")
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoad_BadYAML(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("experiment: [unterminated"), 0o644))
	_, err := Load(path)
	assert.Error(t, err)
}
