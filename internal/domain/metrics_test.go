package domain

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProfitLoss(t *testing.T) {
	assert.Equal(t, 250.0, ProfitLoss(1000, 1250))
	assert.Equal(t, -100.0, ProfitLoss(1000, 900))
}

// --- SharpeRatio ---

func TestSharpeRatio_Constant(t *testing.T) {
	assert.Equal(t, 0.0, SharpeRatio([]float64{0.01, 0.01, 0.01}))
}

func TestSharpeRatio_ConstantInexactSum(t *testing.T) {
	// 0.1 no es representable: la media no sale exacta y la std no da 0
	assert.Equal(t, 0.0, SharpeRatio([]float64{0.1, 0.1, 0.1}))
	assert.Equal(t, 0.0, SharpeRatio([]float64{0.3, 0.3, 0.3, 0.3, 0.3, 0.3, 0.3}))
}

func TestSharpeRatio_SingleAndEmpty(t *testing.T) {
	assert.Equal(t, 0.0, SharpeRatio([]float64{0.05}))
	assert.Equal(t, 0.0, SharpeRatio(nil))
}

func TestSharpeRatio_Alternating(t *testing.T) {
	s := SharpeRatio([]float64{1, -1, 1, -1})
	assert.False(t, math.IsNaN(s))
	assert.Equal(t, 0.0, s)
}

func TestSharpeRatio_PopulationStd(t *testing.T) {
	// mean = 2, var poblacional = (1+0+1)/3 → std = 0.8165
	s := SharpeRatio([]float64{1, 2, 3})
	assert.InDelta(t, 2/math.Sqrt(2.0/3.0), s, 1e-12)
}

// --- PeriodReturns ---

func TestPeriodReturns(t *testing.T) {
	r := PeriodReturns([]float64{100, 110, 99})
	assert.InDeltaSlice(t, []float64{0.1, -0.1}, r, 1e-12)
}

func TestPeriodReturns_Short(t *testing.T) {
	assert.Empty(t, PeriodReturns([]float64{100}))
	assert.Empty(t, PeriodReturns(nil))
}

// --- MaxDrawdown ---

func TestMaxDrawdown_Increasing(t *testing.T) {
	assert.Equal(t, 0.0, MaxDrawdown([]float64{1, 2, 3, 4}))
}

func TestMaxDrawdown_HalfAndRecover(t *testing.T) {
	assert.InDelta(t, 0.5, MaxDrawdown([]float64{100, 50, 100}), 1e-12)
}

func TestMaxDrawdown_LaterPeak(t *testing.T) {
	// pico 200, valle 150 → 25%, mayor que la caída inicial 100→90
	assert.InDelta(t, 0.25, MaxDrawdown([]float64{100, 90, 200, 150, 180}), 1e-12)
}

func TestMaxDrawdown_Empty(t *testing.T) {
	assert.Equal(t, 0.0, MaxDrawdown(nil))
}

func TestMaxDrawdown_NonPositivePeak(t *testing.T) {
	dd := MaxDrawdown([]float64{0, 0, 0})
	assert.False(t, math.IsNaN(dd))
	assert.Equal(t, 0.0, dd)
}

func TestRound(t *testing.T) {
	assert.Equal(t, 1.23, Round(1.2345, 2))
	assert.Equal(t, 1.2346, Round(1.23456, 4))
	assert.Equal(t, -2.5, Round(-2.4999, 1))
}
