package experiment

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alejandrodnm/predtrader/internal/domain"
	"github.com/alejandrodnm/predtrader/internal/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRunner struct {
	calls atomic.Int32
}

func (f *fakeRunner) Run(_ context.Context, p domain.Params) (*domain.ResultPayload, error) {
	f.calls.Add(1)
	if p.Window == 99 {
		return nil, errors.New("window too large")
	}
	return &domain.ResultPayload{Params: p, ROI: float64(p.Epochs*10 + p.Window)}, nil
}

func TestSweep_GridAndOrdering(t *testing.T) {
	f := &fakeRunner{}
	base := domain.DefaultParams()

	results := Sweep(context.Background(), f, base, []int{1, 2}, []int{5, 99, 10}, SweepConfig{Workers: 3})

	require.Len(t, results, 6)
	assert.Equal(t, int32(6), f.calls.Load())

	// ROI: e2w10=30, e2w5=25, e1w10=20, e1w5=15, luego los errores
	assert.Equal(t, 30.0, results[0].Result.ROI)
	assert.Equal(t, 25.0, results[1].Result.ROI)
	assert.Equal(t, 20.0, results[2].Result.ROI)
	assert.Equal(t, 15.0, results[3].Result.ROI)
	for _, r := range results[4:] {
		assert.Error(t, r.Err)
		assert.Equal(t, 99, r.Params.Window)
	}
	assert.Equal(t, 1, results[4].Params.Epochs)
	assert.Equal(t, 2, results[5].Params.Epochs)

	for _, r := range results {
		assert.Equal(t, base.DataPath, r.Params.DataPath)
		assert.Equal(t, base.InitialBalance, r.Params.InitialBalance)
	}
}

func TestSweep_DefaultsToBaseParams(t *testing.T) {
	f := &fakeRunner{}
	results := Sweep(context.Background(), f, domain.DefaultParams(), nil, nil, SweepConfig{})

	require.Len(t, results, 1)
	assert.Equal(t, domain.DefaultEpochs, results[0].Params.Epochs)
	assert.Equal(t, domain.DefaultWindow, results[0].Params.Window)
}

func TestSweep_RateLimited(t *testing.T) {
	f := &fakeRunner{}
	results := Sweep(context.Background(), f, domain.DefaultParams(), []int{1}, []int{1, 2, 3},
		SweepConfig{Workers: 2, FitsPerSecond: 1000, Burst: 1})
	assert.Len(t, results, 3)
}

func TestSweep_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	f := &fakeRunner{}
	results := Sweep(ctx, f, domain.DefaultParams(), []int{1, 2, 3}, []int{1, 2, 3}, SweepConfig{Workers: 1})

	assert.LessOrEqual(t, len(results), 9)
	for _, r := range results {
		if r.Err == nil {
			continue
		}
		assert.ErrorIs(t, r.Err, context.Canceled)
	}
}

// cachingRunner expone una caché como *Runner.
type cachingRunner struct {
	*fakeRunner
	cache *ModelCache
}

func (c cachingRunner) Cache() *ModelCache { return c.cache }

func TestSweep_CachedKeysSkipFitLimiter(t *testing.T) {
	base := domain.DefaultParams()
	cache := NewModelCache(0)
	for _, w := range []int{5, 10, 20} {
		p := base
		p.Epochs, p.Window = 1, w
		_, _, err := cache.GetOrFit(context.Background(), p.Key(), func(context.Context) (ports.Predictor, error) {
			return &nopPredictor{}, nil
		})
		require.NoError(t, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	// un único token: solo alcanza para la clave sin entrenar (window 30)
	r := cachingRunner{fakeRunner: &fakeRunner{}, cache: cache}
	results := Sweep(ctx, r, base, []int{1}, []int{5, 10, 20, 30},
		SweepConfig{Workers: 2, FitsPerSecond: 0.001, Burst: 1})

	require.Len(t, results, 4)
	for _, res := range results {
		assert.NoError(t, res.Err, "window %d", res.Params.Window)
	}
	assert.Equal(t, int32(4), r.calls.Load())
}
