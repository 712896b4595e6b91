package indicators

import (
	"fmt"
	"math"

	"github.com/alejandrodnm/predtrader/internal/domain"
)

const (
	DefaultSMAWindow = 5
	DefaultEMASpan   = 5
)

// Builder implementa ports.IndicatorBuilder: añade SMA y EMA sobre Close.
type Builder struct {
	smaWindow int
	emaSpan   int
}

// NewBuilder crea un Builder. Valores <= 0 usan los defaults.
func NewBuilder(smaWindow, emaSpan int) *Builder {
	if smaWindow <= 0 {
		smaWindow = DefaultSMAWindow
	}
	if emaSpan <= 0 {
		emaSpan = DefaultEMASpan
	}
	return &Builder{smaWindow: smaWindow, emaSpan: emaSpan}
}

// Augment calcula SMA y EMA sobre toda la tabla y luego descarta las filas
// iniciales donde la SMA todavía no tiene ventana completa.
func (b *Builder) Augment(table *domain.Table) (*domain.Table, error) {
	closes, ok := table.Column(domain.ColClose)
	if !ok {
		return nil, &domain.SchemaError{Missing: []string{domain.ColClose}}
	}

	sma := SMA(closes, b.smaWindow)
	ema := EMA(closes, b.emaSpan)

	first := b.smaWindow - 1
	if first >= len(closes) {
		return nil, fmt.Errorf("indicators.Augment: %d rows, need more than %d for SMA(%d)",
			len(closes), first, b.smaWindow)
	}

	out := table.Slice(first, len(closes))
	out.AddColumn(domain.ColSMA, sma[first:])
	out.AddColumn(domain.ColEMA, ema[first:])
	return out, nil
}

// SMA es la media móvil simple de p puntos, alineada con x y con NaN en el warmup.
func SMA(x []float64, p int) []float64 {
	if p <= 0 {
		return nil
	}
	out := make([]float64, len(x))
	var sum float64
	for i := range x {
		sum += x[i]
		if i >= p {
			sum -= x[i-p]
		}
		if i < p-1 {
			out[i] = math.NaN()
			continue
		}
		out[i] = sum / float64(p)
	}
	return out
}

// EMA es la media exponencial con alpha = 2/(span+1) y pesos ajustados:
//
//	y_t = Σ (1-α)^i · x_{t-i} / Σ (1-α)^i
//
// No tiene warmup: el primer valor es x_0.
func EMA(x []float64, span int) []float64 {
	if span <= 0 {
		return nil
	}
	alpha := 2.0 / float64(span+1)
	decay := 1 - alpha

	out := make([]float64, len(x))
	var num, den float64
	for i, v := range x {
		num = v + decay*num
		den = 1 + decay*den
		out[i] = num / den
	}
	return out
}
