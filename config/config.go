package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/alejandrodnm/predtrader/internal/domain"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config es la configuración completa de predtrader.
type Config struct {
	Experiment ExperimentConfig `yaml:"experiment"`
	Cache      CacheConfig      `yaml:"cache"`
	Sweep      SweepConfig      `yaml:"sweep"`
	Storage    StorageConfig    `yaml:"storage"`
	Log        LogConfig        `yaml:"log"`
}

// ExperimentConfig son los parámetros por defecto de un experimento.
type ExperimentConfig struct {
	DataPath       string  `yaml:"data_path"`
	Epochs         int     `yaml:"epochs"`
	Window         int     `yaml:"window"`
	InitialBalance float64 `yaml:"initial_balance"`
	TrainFraction  float64 `yaml:"train_fraction"` // 0.8 = split 80/20 cronológico
	SMAWindow      int     `yaml:"sma_window"`
	EMASpan        int     `yaml:"ema_span"`
}

// CacheConfig controla la caché de predictores.
type CacheConfig struct {
	Capacity int `yaml:"capacity"` // 0 = sin límite
}

// SweepConfig controla la ejecución de grids de experimentos.
type SweepConfig struct {
	Workers       int     `yaml:"workers"`         // 0 = NumCPU
	FitsPerSecond float64 `yaml:"fits_per_second"` // 0 = sin límite
	Burst         int     `yaml:"burst"`
}

// StorageConfig controla dónde se persiste el historial.
type StorageConfig struct {
	DSN     string `yaml:"dsn"`     // ruta al archivo SQLite, o ":memory:"
	Enabled bool   `yaml:"enabled"` // false = no persistir runs
}

// LogConfig controla el formato y nivel de logging.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json
}

// Load carga la configuración desde el archivo YAML y el archivo .env si existe.
// Los valores del .env sobreescriben los del YAML para las keys que correspondan.
// Si el YAML no existe se usan solo defaults + entorno.
func Load(path string) (*Config, error) {
	// Cargar .env si existe (silencia error si no hay archivo)
	_ = godotenv.Load()

	var cfg Config
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("config.Load: parse YAML: %w", err)
		}
	case os.IsNotExist(err):
		// sin archivo: defaults
	default:
		return nil, fmt.Errorf("config.Load: read %q: %w", path, err)
	}

	if err := applyEnvOverrides(&cfg); err != nil {
		return nil, err
	}
	setDefaults(&cfg)

	return &cfg, nil
}

// Params devuelve los parámetros de experimento configurados.
func (c *Config) Params() domain.Params {
	return domain.Params{
		DataPath:       c.Experiment.DataPath,
		Epochs:         c.Experiment.Epochs,
		Window:         c.Experiment.Window,
		InitialBalance: c.Experiment.InitialBalance,
	}
}

// applyEnvOverrides sobreescribe valores con variables de entorno si están presentes.
func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("PREDTRADER_DATA"); v != "" {
		cfg.Experiment.DataPath = v
	}
	if v := os.Getenv("PREDTRADER_EPOCHS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config.Load: PREDTRADER_EPOCHS=%q: %w", v, err)
		}
		cfg.Experiment.Epochs = n
	}
	if v := os.Getenv("PREDTRADER_WINDOW"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config.Load: PREDTRADER_WINDOW=%q: %w", v, err)
		}
		cfg.Experiment.Window = n
	}
	if v := os.Getenv("PREDTRADER_BALANCE"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("config.Load: PREDTRADER_BALANCE=%q: %w", v, err)
		}
		cfg.Experiment.InitialBalance = f
	}
	if v := os.Getenv("STORAGE_DSN"); v != "" {
		cfg.Storage.DSN = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	return nil
}

// setDefaults asegura que los valores requeridos tengan valores sensatos.
// Epochs, window y balance inválidos no se corrigen aquí: los rechaza Params.Validate.
func setDefaults(cfg *Config) {
	if cfg.Experiment.DataPath == "" {
		cfg.Experiment.DataPath = domain.DefaultDataPath
	}
	if cfg.Experiment.Epochs == 0 {
		cfg.Experiment.Epochs = domain.DefaultEpochs
	}
	if cfg.Experiment.Window == 0 {
		cfg.Experiment.Window = domain.DefaultWindow
	}
	if cfg.Experiment.InitialBalance == 0 {
		cfg.Experiment.InitialBalance = domain.DefaultInitialBalance
	}
	if cfg.Experiment.TrainFraction <= 0 || cfg.Experiment.TrainFraction > 1 {
		cfg.Experiment.TrainFraction = 0.8
	}
	if cfg.Experiment.SMAWindow <= 0 {
		cfg.Experiment.SMAWindow = 5
	}
	if cfg.Experiment.EMASpan <= 0 {
		cfg.Experiment.EMASpan = 5
	}
	if cfg.Sweep.Burst <= 0 {
		cfg.Sweep.Burst = 1
	}
	if cfg.Storage.DSN == "" {
		cfg.Storage.DSN = "predtrader.db"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}
