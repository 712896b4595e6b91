package experiment

// cache.go: caché de predictores entrenados por ExperimentKey.
//
// Lecturas de claves ya entrenadas solo toman el read lock, así que nunca esperan
// a un fit de otra clave. Para una misma clave sin entrenar, singleflight deja un
// único fit en vuelo; el resto de llamadas espera y reutiliza el resultado.
// Los errores no se cachean.

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/alejandrodnm/predtrader/internal/domain"
	"github.com/alejandrodnm/predtrader/internal/ports"
	"golang.org/x/sync/singleflight"
)

// FitFunc construye y entrena un predictor nuevo.
type FitFunc func(ctx context.Context) (ports.Predictor, error)

// CacheStats son contadores acumulados de la caché.
type CacheStats struct {
	Hits   int64
	Misses int64
	Fits   int64
}

// ModelCache mapea ExperimentKey → predictor entrenado.
type ModelCache struct {
	mu       sync.RWMutex
	entries  map[domain.ExperimentKey]ports.Predictor
	order    []domain.ExperimentKey // orden de inserción, para evicción FIFO
	capacity int

	group singleflight.Group

	hits   atomic.Int64
	misses atomic.Int64
	fits   atomic.Int64
}

// NewModelCache crea una caché. capacity <= 0 significa sin límite.
func NewModelCache(capacity int) *ModelCache {
	return &ModelCache{
		entries:  make(map[domain.ExperimentKey]ports.Predictor),
		capacity: capacity,
	}
}

// Get devuelve el predictor cacheado para key, si existe.
func (c *ModelCache) Get(key domain.ExperimentKey) (ports.Predictor, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.entries[key]
	return p, ok
}

// GetOrFit devuelve el predictor para key, entrenándolo con fit si no está.
// El bool indica si esta llamada reutilizó un predictor que no entrenó ella misma.
func (c *ModelCache) GetOrFit(ctx context.Context, key domain.ExperimentKey, fit FitFunc) (ports.Predictor, bool, error) {
	for {
		if p, ok := c.Get(key); ok {
			c.hits.Add(1)
			return p, true, nil
		}

		var fittedHere bool
		ch := c.group.DoChan(flightKey(key), func() (any, error) {
			// otra llamada pudo terminar el fit entre el Get y el DoChan
			if p, ok := c.Get(key); ok {
				return p, nil
			}
			fittedHere = true
			c.fits.Add(1)
			p, err := fit(ctx)
			if err != nil {
				return nil, err
			}
			if p == nil {
				return nil, errors.New("fit returned nil predictor")
			}
			c.put(key, p)
			return p, nil
		})

		select {
		case <-ctx.Done():
			return nil, false, ctx.Err()
		case res := <-ch:
			if res.Err != nil {
				// el fit compartido se canceló con el ctx de otra llamada: reintentar con el nuestro
				if isContextErr(res.Err) && !fittedHere && ctx.Err() == nil {
					continue
				}
				return nil, false, res.Err
			}
			if fittedHere {
				c.misses.Add(1)
			} else {
				c.hits.Add(1)
			}
			return res.Val.(ports.Predictor), !fittedHere, nil
		}
	}
}

// Evict elimina key de la caché.
func (c *ModelCache) Evict(key domain.ExperimentKey) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[key]; !ok {
		return
	}
	delete(c.entries, key)
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}

// Purge vacía la caché.
func (c *ModelCache) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[domain.ExperimentKey]ports.Predictor)
	c.order = nil
}

// Len devuelve el número de predictores cacheados.
func (c *ModelCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Stats devuelve los contadores acumulados.
func (c *ModelCache) Stats() CacheStats {
	return CacheStats{
		Hits:   c.hits.Load(),
		Misses: c.misses.Load(),
		Fits:   c.fits.Load(),
	}
}

// --- helpers internos ---

func (c *ModelCache) put(key domain.ExperimentKey, p ports.Predictor) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[key]; !ok {
		c.order = append(c.order, key)
	}
	c.entries[key] = p

	for c.capacity > 0 && len(c.order) > c.capacity {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.entries, oldest)
		slog.Debug("model cache evicted", "data_path", oldest.DataPath, "epochs", oldest.Epochs, "window", oldest.Window)
	}
}

func flightKey(k domain.ExperimentKey) string {
	return fmt.Sprintf("%s\x00%d\x00%d", k.DataPath, k.Epochs, k.Window)
}

func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
