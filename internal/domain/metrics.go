package domain

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// ProfitLoss devuelve final - initial.
func ProfitLoss(initial, final float64) float64 {
	return final - initial
}

// PeriodReturns calcula los retornos simples periodo a periodo de una trayectoria:
// r[i] = (v[i+1] - v[i]) / v[i]. Devuelve nil si hay menos de dos valores.
func PeriodReturns(values []float64) []float64 {
	if len(values) < 2 {
		return nil
	}
	out := make([]float64, len(values)-1)
	for i := 1; i < len(values); i++ {
		out[i-1] = (values[i] - values[i-1]) / values[i-1]
	}
	return out
}

// SharpeRatio devuelve mean(returns) / std(returns) con desviación poblacional,
// sin anualizar. Devuelve 0 si la serie está vacía o es constante.
func SharpeRatio(returns []float64) float64 {
	if len(returns) == 0 || constant(returns) {
		return 0
	}
	m, sd := stat.PopMeanStdDev(returns, nil)
	if sd == 0 || math.IsNaN(sd) {
		return 0
	}
	return m / sd
}

// MaxDrawdown devuelve la mayor caída relativa desde el pico acumulado, como fracción
// (0.5 = 50%). El pico arranca en values[0]. Una serie no decreciente devuelve 0.
//
// Con un pico <= 0 la caída no está definida; ese periodo se ignora.
func MaxDrawdown(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	peak := values[0]
	maxDD := 0.0
	for _, v := range values {
		if v > peak {
			peak = v
		}
		if peak <= 0 {
			continue
		}
		if dd := (peak - v) / peak; dd > maxDD {
			maxDD = dd
		}
	}
	return maxDD
}

// Round redondea a n decimales (mitad lejos de cero).
func Round(x float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(x*p) / p
}

// constant indica si todos los valores son iguales al primero.
func constant(xs []float64) bool {
	for _, x := range xs[1:] {
		if x != xs[0] {
			return false
		}
	}
	return true
}
