package experiment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/alejandrodnm/predtrader/internal/domain"
	"github.com/alejandrodnm/predtrader/internal/ports"
	"github.com/google/uuid"
)

const defaultTrainFraction = 0.8

// Config es la configuración del orquestador.
type Config struct {
	// TrainFraction es la fracción cronológica de muestras para entrenar. Default 0.8.
	TrainFraction float64
}

// Runner convierte Params en un ResultPayload: carga, indicadores, ventanas,
// escalado, fit (cacheado), predicción, simulación y métricas.
type Runner struct {
	loader       ports.DataLoader
	indicators   ports.IndicatorBuilder
	newPredictor ports.PredictorFactory
	cache        *ModelCache
	store        ports.RunStorage // opcional
	cfg          Config

	now   func() time.Time
	newID func() string
}

// New crea un Runner. store puede ser nil para no persistir runs.
func New(
	loader ports.DataLoader,
	indicators ports.IndicatorBuilder,
	newPredictor ports.PredictorFactory,
	cache *ModelCache,
	store ports.RunStorage,
	cfg Config,
) *Runner {
	if cfg.TrainFraction <= 0 || cfg.TrainFraction > 1 {
		cfg.TrainFraction = defaultTrainFraction
	}
	if cache == nil {
		cache = NewModelCache(0)
	}
	return &Runner{
		loader:       loader,
		indicators:   indicators,
		newPredictor: newPredictor,
		cache:        cache,
		store:        store,
		cfg:          cfg,
		now:          time.Now,
		newID:        func() string { return uuid.New().String() },
	}
}

// Cache devuelve la caché de predictores del runner.
func (r *Runner) Cache() *ModelCache { return r.cache }

// Run ejecuta un experimento. Llamadas con la misma ExperimentKey reutilizan el
// predictor entrenado; predicción y simulación se recalculan siempre.
func (r *Runner) Run(ctx context.Context, p domain.Params) (*domain.ResultPayload, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	start := time.Now()

	table, err := r.loadTable(ctx, p.DataPath)
	if err != nil {
		return nil, err
	}

	closes, _ := table.Column(domain.ColClose)
	features, err := featureMatrix(table)
	if err != nil {
		return nil, err
	}

	n := table.Len()
	if n <= p.Window {
		return nil, &domain.DataError{
			Path: p.DataPath,
			Err:  fmt.Errorf("need more than %d rows for window %d, have %d", p.Window, p.Window, n),
		}
	}

	// El scaler ve todas las muestras, incluidas las de test.
	scaled := minMaxScale(features)
	X, y := buildWindows(scaled, closes, p.Window)

	split := int(float64(len(X)) * r.cfg.TrainFraction)
	if split == 0 {
		return nil, &domain.DataError{
			Path: p.DataPath,
			Err:  fmt.Errorf("training split is empty (%d samples)", len(X)),
		}
	}
	xTrain, yTrain := X[:split], y[:split]

	key := p.Key()
	model, hit, err := r.cache.GetOrFit(ctx, key, func(ctx context.Context) (ports.Predictor, error) {
		m := r.newPredictor(p.Epochs)
		slog.Debug("fitting predictor",
			"data_path", key.DataPath, "epochs", key.Epochs, "window", key.Window,
			"train", len(xTrain),
		)
		if err := m.Fit(ctx, xTrain, yTrain); err != nil {
			if isContextErr(err) {
				return nil, err
			}
			return nil, &domain.PredictorError{Op: "fit", Err: err}
		}
		return m, nil
	})
	if err != nil {
		return nil, err
	}

	preds, err := model.Predict(ctx, X)
	if err != nil {
		if isContextErr(err) {
			return nil, err
		}
		return nil, &domain.PredictorError{Op: "predict", Err: err}
	}
	if len(preds) != len(X) {
		return nil, &domain.PredictorError{
			Op:  "predict",
			Err: fmt.Errorf("got %d predictions for %d samples", len(preds), len(X)),
		}
	}

	prices := closes[p.Window:]
	sim, err := domain.Simulate(prices, preds, p.InitialBalance)
	if err != nil {
		return nil, fmt.Errorf("experiment.Run: simulate: %w", err)
	}

	result := assemble(p, table, preds, sim)
	result.CacheHit = hit

	r.persist(ctx, result)

	slog.Info("experiment complete",
		"data_path", p.DataPath,
		"epochs", p.Epochs,
		"window", p.Window,
		"samples", len(X),
		"train", split,
		"cache_hit", hit,
		"trades", result.TotalTrades,
		"roi", result.ROI,
		"elapsed", time.Since(start).Round(time.Millisecond),
	)
	return result, nil
}

// --- helpers internos ---

func (r *Runner) loadTable(ctx context.Context, path string) (*domain.Table, error) {
	raw, err := r.loader.Load(ctx, path)
	if err != nil {
		return nil, classifyDataErr(path, err)
	}
	table, err := r.indicators.Augment(raw)
	if err != nil {
		return nil, classifyDataErr(path, err)
	}
	return table, nil
}

func (r *Runner) persist(ctx context.Context, result *domain.ResultPayload) {
	if r.store == nil {
		return
	}
	id := r.newID()
	if err := r.store.SaveRun(ctx, result.Record(id, r.now().UTC())); err != nil {
		slog.Warn("failed to persist run", "err", err)
		return
	}
	result.RunID = id
}

// assemble calcula las métricas escalares y copia las series alineadas.
func assemble(p domain.Params, table *domain.Table, preds []float64, sim domain.SimulationResult) *domain.ResultPayload {
	w := p.Window

	netProfit := domain.ProfitLoss(p.InitialBalance, sim.FinalValue)
	roi := netProfit / p.InitialBalance * 100

	sharpe := 0.0
	if returns := domain.PeriodReturns(sim.Trajectory); len(returns) > 0 {
		sharpe = domain.SharpeRatio(returns)
	}
	maxDD := domain.MaxDrawdown(sim.Trajectory) * 100

	dates := table.DateStrings()[w:]
	col := func(name string) []float64 {
		c, _ := table.Column(name)
		return append([]float64(nil), c[w:]...)
	}

	return &domain.ResultPayload{
		Params:          p,
		FinalValue:      domain.Round(sim.FinalValue, 2),
		NetProfit:       domain.Round(netProfit, 2),
		ROI:             domain.Round(roi, 2),
		TotalTrades:     sim.Trades,
		SharpeRatio:     domain.Round(sharpe, 4),
		MaxDrawdown:     domain.Round(maxDD, 2),
		ActualPrices:    col(domain.ColClose),
		PredictedPrices: append([]float64(nil), preds...),
		Dates:           dates,
		OHLC: domain.OHLC{
			Open:  col(domain.ColOpen),
			High:  col(domain.ColHigh),
			Low:   col(domain.ColLow),
			Close: col(domain.ColClose),
			Dates: append([]string(nil), dates...),
		},
		Indicators: domain.Indicators{
			SMA: col(domain.ColSMA),
			EMA: col(domain.ColEMA),
		},
	}
}

func classifyDataErr(path string, err error) error {
	if errors.Is(err, domain.ErrSchema) || errors.Is(err, domain.ErrData) || isContextErr(err) {
		return err
	}
	return &domain.DataError{Path: path, Err: err}
}
