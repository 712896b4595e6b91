package domain

import "math"

// Valores por defecto de un experimento.
const (
	DefaultDataPath       = "data/stock_data.csv"
	DefaultEpochs         = 3
	DefaultWindow         = 10
	DefaultInitialBalance = 10000.0
)

// ExperimentKey identifica un predictor entrenado. Solo se usa como clave de caché:
// no influye en la corrección de la simulación.
type ExperimentKey struct {
	DataPath string
	Epochs   int
	Window   int
}

// Params son los parámetros de entrada de un experimento.
type Params struct {
	DataPath       string  `json:"data_path"`
	Epochs         int     `json:"epochs"`
	Window         int     `json:"window"`
	InitialBalance float64 `json:"initial_balance"`
}

// DefaultParams devuelve los parámetros por defecto.
func DefaultParams() Params {
	return Params{
		DataPath:       DefaultDataPath,
		Epochs:         DefaultEpochs,
		Window:         DefaultWindow,
		InitialBalance: DefaultInitialBalance,
	}
}

// Key devuelve la clave de caché del experimento.
func (p Params) Key() ExperimentKey {
	return ExperimentKey{DataPath: p.DataPath, Epochs: p.Epochs, Window: p.Window}
}

// Validate comprueba que los parámetros estén en rango.
func (p Params) Validate() error {
	if p.DataPath == "" {
		return &ValidationError{Field: "data_path", Reason: "must not be empty"}
	}
	if p.Epochs <= 0 {
		return &ValidationError{Field: "epochs", Reason: "must be a positive integer"}
	}
	if p.Window <= 0 {
		return &ValidationError{Field: "window", Reason: "must be a positive integer"}
	}
	if math.IsNaN(p.InitialBalance) || math.IsInf(p.InitialBalance, 0) || p.InitialBalance <= 0 {
		return &ValidationError{Field: "initial_balance", Reason: "must be a positive finite number"}
	}
	return nil
}
