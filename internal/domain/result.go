package domain

import "time"

// OHLC son las series de velas alineadas con el resultado.
type OHLC struct {
	Open  []float64 `json:"open"`
	High  []float64 `json:"high"`
	Low   []float64 `json:"low"`
	Close []float64 `json:"close"`
	Dates []string  `json:"dates"`
}

// Indicators son los indicadores técnicos alineados con el resultado.
type Indicators struct {
	SMA []float64 `json:"sma"`
	EMA []float64 `json:"ema"`
}

// ResultPayload es el resultado inmutable de un experimento.
// Todas las series tienen longitud len(table) - window.
type ResultPayload struct {
	RunID    string `json:"run_id,omitempty"`
	Params   Params `json:"params"`
	CacheHit bool   `json:"cache_hit"`

	FinalValue  float64 `json:"final_value"`
	NetProfit   float64 `json:"net_profit"`
	ROI         float64 `json:"roi"`          // %
	TotalTrades int     `json:"total_trades"`
	SharpeRatio float64 `json:"sharpe_ratio"`
	MaxDrawdown float64 `json:"max_drawdown"` // %

	ActualPrices    []float64  `json:"actual_prices"`
	PredictedPrices []float64  `json:"predicted_prices"`
	Dates           []string   `json:"dates"`
	OHLC            OHLC       `json:"ohlc"`
	Indicators      Indicators `json:"indicators"`
}

// RunRecord es el resumen persistido de un ResultPayload.
type RunRecord struct {
	ID          string
	Params      Params
	FinalValue  float64
	NetProfit   float64
	ROI         float64
	TotalTrades int
	SharpeRatio float64
	MaxDrawdown float64
	CreatedAt   time.Time
}

// Record construye el RunRecord de un resultado.
func (r *ResultPayload) Record(id string, at time.Time) RunRecord {
	return RunRecord{
		ID:          id,
		Params:      r.Params,
		FinalValue:  r.FinalValue,
		NetProfit:   r.NetProfit,
		ROI:         r.ROI,
		TotalTrades: r.TotalTrades,
		SharpeRatio: r.SharpeRatio,
		MaxDrawdown: r.MaxDrawdown,
		CreatedAt:   at,
	}
}
