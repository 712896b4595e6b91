package domain

import (
	"fmt"
	"math"
)

// PortfolioState es el estado mutable de una corrida de simulación.
// Pertenece en exclusiva a una llamada de Simulate; nunca se comparte.
type PortfolioState struct {
	Balance float64
	Shares  int
	Trades  int
}

// MarkToMarket valora la cartera al precio dado.
func (s PortfolioState) MarkToMarket(price float64) float64 {
	return s.Balance + float64(s.Shares)*price
}

// SimulationResult es la salida de Simulate.
type SimulationResult struct {
	FinalValue float64
	Trades     int
	Trajectory []float64 // un valor mark-to-market por periodo
}

// Simulate recorre los pares (precio, predicción) en orden y aplica la regla:
//
//   - predicción > precio y balance >= precio → compra 1 unidad
//   - predicción < precio y shares > 0       → vende 1 unidad
//   - en otro caso                            → no opera
//
// El tamaño es siempre una unidad por señal y periodo, sin importar el balance
// ni la magnitud de la señal.
//
// El bucle es estrictamente secuencial: cada decisión depende del balance y las
// shares que dejó el periodo anterior.
func Simulate(prices, predictions []float64, initialBalance float64) (SimulationResult, error) {
	if len(prices) == 0 {
		return SimulationResult{}, &InvalidInputError{Reason: "prices must not be empty"}
	}
	if len(prices) != len(predictions) {
		return SimulationResult{}, &InvalidInputError{
			Reason: fmt.Sprintf("length mismatch: %d prices vs %d predictions", len(prices), len(predictions)),
		}
	}
	if math.IsNaN(initialBalance) || math.IsInf(initialBalance, 0) {
		return SimulationResult{}, &InvalidInputError{
			Reason: fmt.Sprintf("initial balance %v is not a finite number", initialBalance),
		}
	}
	if initialBalance < 0 {
		return SimulationResult{}, &InvalidInputError{
			Reason: fmt.Sprintf("initial balance %.2f is negative", initialBalance),
		}
	}

	state := PortfolioState{Balance: initialBalance}
	trajectory := make([]float64, 0, len(prices))

	for i, price := range prices {
		pred := predictions[i]
		switch {
		case pred > price && state.Balance >= price:
			state.Shares++
			state.Balance -= price
			state.Trades++
		case pred < price && state.Shares > 0:
			state.Shares--
			state.Balance += price
			state.Trades++
		}
		trajectory = append(trajectory, state.MarkToMarket(price))
	}

	// Se recalcula con el último precio en vez de leer trajectory[len-1].
	final := state.MarkToMarket(prices[len(prices)-1])

	return SimulationResult{
		FinalValue: final,
		Trades:     state.Trades,
		Trajectory: trajectory,
	}, nil
}
