package ports

import "context"

// Predictor es cualquier modelo de regresión con fit/predict.
type Predictor interface {
	// Fit entrena el modelo. X tiene una fila por muestra; y un label por fila.
	// Debe abortar cuando ctx se cancela.
	Fit(ctx context.Context, X [][]float64, y []float64) error

	// Predict devuelve una predicción por fila de X. Un predictor entrenado
	// se comparte entre experimentos: Predict debe ser seguro en concurrencia.
	Predict(ctx context.Context, X [][]float64) ([]float64, error)
}

// PredictorFactory construye un predictor sin entrenar para el número de
// epochs del experimento.
type PredictorFactory func(epochs int) Predictor
