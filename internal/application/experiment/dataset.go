package experiment

import (
	"github.com/alejandrodnm/predtrader/internal/domain"
)

// featureMatrix devuelve una fila por periodo con domain.FeatureColumns en orden.
func featureMatrix(table *domain.Table) ([][]float64, error) {
	cols := make([][]float64, len(domain.FeatureColumns))
	var missing []string
	for j, name := range domain.FeatureColumns {
		c, ok := table.Column(name)
		if !ok {
			missing = append(missing, name)
			continue
		}
		cols[j] = c
	}
	if len(missing) > 0 {
		return nil, &domain.SchemaError{Missing: missing}
	}

	n := table.Len()
	rows := make([][]float64, n)
	for i := range rows {
		row := make([]float64, len(cols))
		for j, c := range cols {
			row[j] = c[i]
		}
		rows[i] = row
	}
	return rows, nil
}

// minMaxScale lleva cada columna a [0, 1] con el mínimo y máximo de toda la
// matriz. Las columnas constantes quedan en 0.
func minMaxScale(rows [][]float64) [][]float64 {
	if len(rows) == 0 {
		return nil
	}
	dim := len(rows[0])
	lo := append([]float64(nil), rows[0]...)
	hi := append([]float64(nil), rows[0]...)
	for _, row := range rows[1:] {
		for j, v := range row {
			lo[j] = min(lo[j], v)
			hi[j] = max(hi[j], v)
		}
	}

	out := make([][]float64, len(rows))
	for i, row := range rows {
		scaled := make([]float64, dim)
		for j, v := range row {
			if span := hi[j] - lo[j]; span != 0 {
				scaled[j] = (v - lo[j]) / span
			}
		}
		out[i] = scaled
	}
	return out
}

// buildWindows aplana las features de los periodos [i-window, i) en la muestra i
// con label = precio i, para i en [window, len(rows)). Salen len(rows)-window muestras.
func buildWindows(rows [][]float64, prices []float64, window int) ([][]float64, []float64) {
	if window <= 0 || len(rows) <= window {
		return nil, nil
	}
	X := make([][]float64, 0, len(rows)-window)
	y := make([]float64, 0, len(rows)-window)
	for i := window; i < len(rows); i++ {
		sample := make([]float64, 0, window*len(rows[0]))
		for _, row := range rows[i-window : i] {
			sample = append(sample, row...)
		}
		X = append(X, sample)
		y = append(y, prices[i])
	}
	return X, y
}
