package experiment

// sweep.go: worker pool que ejecuta un grid de experimentos (epochs, window).
//
// Todos los workers comparten un Runner y por tanto una ModelCache. El rate
// limiter solo frena los runs cuya clave todavía no está entrenada.

import (
	"context"
	"log/slog"
	"runtime"
	"sort"
	"sync"

	"github.com/alejandrodnm/predtrader/internal/domain"
	"golang.org/x/time/rate"
)

// ExperimentRunner es la parte de *Runner que necesita el sweep.
type ExperimentRunner interface {
	Run(ctx context.Context, p domain.Params) (*domain.ResultPayload, error)
}

// cachedRunner lo cumple *Runner: permite saber si una clave ya está entrenada.
type cachedRunner interface {
	Cache() *ModelCache
}

// SweepConfig controla la concurrencia y el ritmo de fits.
type SweepConfig struct {
	Workers       int     // <= 0 → runtime.NumCPU()
	FitsPerSecond float64 // <= 0 → sin límite
	Burst         int     // <= 0 → 1
}

// SweepResult es el resultado de un punto del grid.
type SweepResult struct {
	Params domain.Params
	Result *domain.ResultPayload
	Err    error
}

// Sweep ejecuta cada combinación epochs × windows sobre base.
// Ordena por ROI descendente; los runs fallidos van al final.
func Sweep(
	ctx context.Context,
	runner ExperimentRunner,
	base domain.Params,
	epochs []int,
	windows []int,
	cfg SweepConfig,
) []SweepResult {
	if len(epochs) == 0 {
		epochs = []int{base.Epochs}
	}
	if len(windows) == 0 {
		windows = []int{base.Window}
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	limit := rate.Inf
	if cfg.FitsPerSecond > 0 {
		limit = rate.Limit(cfg.FitsPerSecond)
	}
	burst := max(cfg.Burst, 1)
	limiter := rate.NewLimiter(limit, burst)

	grid := make([]domain.Params, 0, len(epochs)*len(windows))
	for _, e := range epochs {
		for _, w := range windows {
			p := base
			p.Epochs = e
			p.Window = w
			grid = append(grid, p)
		}
	}

	workCh := make(chan domain.Params)
	resultCh := make(chan SweepResult, len(grid))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for p := range workCh {
				if needsFit(runner, p) {
					if err := limiter.Wait(ctx); err != nil {
						resultCh <- SweepResult{Params: p, Err: err}
						continue
					}
				} else if err := ctx.Err(); err != nil {
					resultCh <- SweepResult{Params: p, Err: err}
					continue
				}
				res, err := runner.Run(ctx, p)
				if err != nil {
					slog.Debug("sweep run failed", "epochs", p.Epochs, "window", p.Window, "err", err)
				}
				resultCh <- SweepResult{Params: p, Result: res, Err: err}
			}
		}()
	}

	queued := 0
feed:
	for _, p := range grid {
		select {
		case <-ctx.Done():
			break feed
		case workCh <- p:
			queued++
		}
	}
	close(workCh)

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	results := make([]SweepResult, 0, queued)
	for r := range resultCh {
		results = append(results, r)
	}

	sortSweep(results)

	slog.Debug("sweep complete", "grid", len(grid), "queued", queued, "workers", workers)
	return results
}

// needsFit indica si p va a entrenar un predictor. Sin acceso a la caché se asume que sí.
func needsFit(runner ExperimentRunner, p domain.Params) bool {
	cr, ok := runner.(cachedRunner)
	if !ok {
		return true
	}
	_, cached := cr.Cache().Get(p.Key())
	return !cached
}

func sortSweep(results []SweepResult) {
	sort.SliceStable(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if (a.Err == nil) != (b.Err == nil) {
			return a.Err == nil
		}
		if a.Err == nil && a.Result.ROI != b.Result.ROI {
			return a.Result.ROI > b.Result.ROI
		}
		if a.Params.Epochs != b.Params.Epochs {
			return a.Params.Epochs < b.Params.Epochs
		}
		return a.Params.Window < b.Params.Window
	})
}
