package experiment

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alejandrodnm/predtrader/internal/adapters/indicators"
	"github.com/alejandrodnm/predtrader/internal/domain"
	"github.com/alejandrodnm/predtrader/internal/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type mockLoader struct {
	table *domain.Table
	err   error
	calls atomic.Int32
}

func (m *mockLoader) Load(_ context.Context, _ string) (*domain.Table, error) {
	m.calls.Add(1)
	if m.err != nil {
		return nil, m.err
	}
	return m.table, nil
}

// stubTracker counts fit/predict calls across every predictor the factory builds.
type stubTracker struct {
	fits     atomic.Int32
	predicts atomic.Int32
	fitErr   error
	value    float64 // constant prediction
	short    bool    // return one prediction less than asked
}

type stubPredictor struct{ tr *stubTracker }

func (s *stubPredictor) Fit(_ context.Context, X [][]float64, y []float64) error {
	s.tr.fits.Add(1)
	if len(X) != len(y) {
		return errors.New("shape mismatch")
	}
	return s.tr.fitErr
}

func (s *stubPredictor) Predict(_ context.Context, X [][]float64) ([]float64, error) {
	s.tr.predicts.Add(1)
	n := len(X)
	if s.tr.short {
		n--
	}
	out := make([]float64, n)
	for i := range out {
		out[i] = s.tr.value
	}
	return out, nil
}

func (tr *stubTracker) factory() ports.PredictorFactory {
	return func(int) ports.Predictor { return &stubPredictor{tr: tr} }
}

type mockStore struct {
	mu    sync.Mutex
	saved []domain.RunRecord
	err   error
}

func (m *mockStore) SaveRun(_ context.Context, run domain.RunRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.saved = append(m.saved, run)
	return nil
}

func (m *mockStore) GetRuns(context.Context, int) ([]domain.RunRecord, error) { return m.saved, nil }
func (m *mockStore) Close() error                                             { return nil }

// --- helpers ---

// makeTable builds n daily rows with Close = 100 + i.
func makeTable(n int) *domain.Table {
	tbl := domain.NewTable()
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	cols := map[string][]float64{}
	for i := 0; i < n; i++ {
		tbl.Dates = append(tbl.Dates, start.AddDate(0, 0, i))
		c := 100 + float64(i)
		cols[domain.ColOpen] = append(cols[domain.ColOpen], c-0.5)
		cols[domain.ColHigh] = append(cols[domain.ColHigh], c+1)
		cols[domain.ColLow] = append(cols[domain.ColLow], c-1)
		cols[domain.ColClose] = append(cols[domain.ColClose], c)
		cols[domain.ColVolume] = append(cols[domain.ColVolume], 1000+float64(i))
	}
	for _, name := range domain.RequiredColumns {
		tbl.AddColumn(name, cols[name])
	}
	return tbl
}

func newTestRunner(loader ports.DataLoader, tr *stubTracker, store ports.RunStorage) *Runner {
	return New(loader, indicators.NewBuilder(5, 5), tr.factory(), NewModelCache(0), store, Config{})
}

func testParams() domain.Params {
	return domain.Params{DataPath: "mem.csv", Epochs: 3, Window: 5, InitialBalance: 10000}
}

// --- tests ---

func TestRunner_PayloadShape(t *testing.T) {
	tr := &stubTracker{value: 1e6} // siempre por encima del precio → compra cada periodo
	r := newTestRunner(&mockLoader{table: makeTable(30)}, tr, nil)

	res, err := r.Run(context.Background(), testParams())
	require.NoError(t, err)

	// 30 filas - 4 de warmup SMA(5) = 26; 26 - window 5 = 21 muestras
	const want = 21
	assert.Len(t, res.ActualPrices, want)
	assert.Len(t, res.PredictedPrices, want)
	assert.Len(t, res.Dates, want)
	assert.Len(t, res.OHLC.Open, want)
	assert.Len(t, res.OHLC.High, want)
	assert.Len(t, res.OHLC.Low, want)
	assert.Len(t, res.OHLC.Close, want)
	assert.Len(t, res.OHLC.Dates, want)
	assert.Len(t, res.Indicators.SMA, want)
	assert.Len(t, res.Indicators.EMA, want)

	// primera muestra: fila 4+5 = 9 de la tabla original → Close 109, 2024-01-10
	assert.Equal(t, 109.0, res.ActualPrices[0])
	assert.Equal(t, "2024-01-10", res.Dates[0])
	assert.Equal(t, res.ActualPrices, res.OHLC.Close)

	assert.Equal(t, want, res.TotalTrades)
	assert.Equal(t, 0.0, res.MaxDrawdown)
	assert.Greater(t, res.NetProfit, 0.0)
	assert.InDelta(t, res.NetProfit/100, res.ROI, 0.01)
	assert.False(t, res.CacheHit)
	assert.Equal(t, testParams(), res.Params)
}

func TestRunner_ReusesFittedPredictor(t *testing.T) {
	tr := &stubTracker{value: 1e6}
	r := newTestRunner(&mockLoader{table: makeTable(30)}, tr, nil)
	ctx := context.Background()

	first, err := r.Run(ctx, testParams())
	require.NoError(t, err)
	second, err := r.Run(ctx, testParams())
	require.NoError(t, err)

	assert.Equal(t, int32(1), tr.fits.Load())
	assert.Equal(t, int32(2), tr.predicts.Load())
	assert.False(t, first.CacheHit)
	assert.True(t, second.CacheHit)
	assert.Equal(t, first.FinalValue, second.FinalValue)

	// otra clave → otro fit
	p := testParams()
	p.Epochs = 4
	_, err = r.Run(ctx, p)
	require.NoError(t, err)
	assert.Equal(t, int32(2), tr.fits.Load())
}

func TestRunner_ConcurrentSameKeyFitsOnce(t *testing.T) {
	tr := &stubTracker{value: 1e6}
	r := newTestRunner(&mockLoader{table: makeTable(40)}, tr, nil)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := r.Run(context.Background(), testParams())
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), tr.fits.Load())
	assert.Equal(t, int32(8), tr.predicts.Load())
}

func TestRunner_ValidationError(t *testing.T) {
	loader := &mockLoader{table: makeTable(30)}
	r := newTestRunner(loader, &stubTracker{}, nil)

	p := testParams()
	p.Window = 0
	_, err := r.Run(context.Background(), p)
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.Equal(t, int32(0), loader.calls.Load())
}

func TestRunner_LoaderErrors(t *testing.T) {
	schema := &domain.SchemaError{Missing: []string{"Volume"}}

	_, err := newTestRunner(&mockLoader{err: schema}, &stubTracker{}, nil).Run(context.Background(), testParams())
	assert.ErrorIs(t, err, domain.ErrSchema)

	_, err = newTestRunner(&mockLoader{err: errors.New("disk on fire")}, &stubTracker{}, nil).Run(context.Background(), testParams())
	assert.ErrorIs(t, err, domain.ErrData)
	assert.Contains(t, err.Error(), "disk on fire")
}

func TestRunner_NotEnoughRows(t *testing.T) {
	// 9 filas - 4 warmup = 5 = window → sin muestras
	_, err := newTestRunner(&mockLoader{table: makeTable(9)}, &stubTracker{}, nil).Run(context.Background(), testParams())
	assert.ErrorIs(t, err, domain.ErrData)
}

func TestRunner_EmptyTrainSplit(t *testing.T) {
	// 10 filas → 6 tras warmup → 1 muestra → int(0.8) = 0
	_, err := newTestRunner(&mockLoader{table: makeTable(10)}, &stubTracker{}, nil).Run(context.Background(), testParams())
	assert.ErrorIs(t, err, domain.ErrData)
}

func TestRunner_FitErrorPropagatedAndNotCached(t *testing.T) {
	boom := errors.New("diverged")
	tr := &stubTracker{fitErr: boom}
	r := newTestRunner(&mockLoader{table: makeTable(30)}, tr, nil)

	_, err := r.Run(context.Background(), testParams())
	assert.ErrorIs(t, err, domain.ErrPredictor)
	assert.ErrorIs(t, err, boom)

	_, err = r.Run(context.Background(), testParams())
	assert.Error(t, err)
	assert.Equal(t, int32(2), tr.fits.Load())
	assert.Equal(t, 0, r.Cache().Len())
}

func TestRunner_PredictionLengthMismatch(t *testing.T) {
	tr := &stubTracker{short: true}
	_, err := newTestRunner(&mockLoader{table: makeTable(30)}, tr, nil).Run(context.Background(), testParams())
	assert.ErrorIs(t, err, domain.ErrPredictor)
}

func TestRunner_PersistsRun(t *testing.T) {
	store := &mockStore{}
	r := newTestRunner(&mockLoader{table: makeTable(30)}, &stubTracker{value: 0}, store)

	res, err := r.Run(context.Background(), testParams())
	require.NoError(t, err)

	require.Len(t, store.saved, 1)
	assert.NotEmpty(t, res.RunID)
	assert.Equal(t, res.RunID, store.saved[0].ID)
	assert.Equal(t, res.FinalValue, store.saved[0].FinalValue)
	// predicción 0 < precio y sin shares → no opera
	assert.Equal(t, 0, res.TotalTrades)
	assert.Equal(t, 10000.0, res.FinalValue)
	assert.Equal(t, 0.0, res.SharpeRatio)
}

func TestRunner_StoreFailureNotFatal(t *testing.T) {
	store := &mockStore{err: errors.New("locked")}
	r := newTestRunner(&mockLoader{table: makeTable(30)}, &stubTracker{value: 1e6}, store)

	res, err := r.Run(context.Background(), testParams())
	require.NoError(t, err)
	assert.Empty(t, res.RunID)
}
