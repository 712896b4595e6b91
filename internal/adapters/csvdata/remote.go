package csvdata

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const (
	// Descargas de CSV: pocas y pesadas, no hace falta más.
	defaultFetchesPerSec = 2

	maxRetries    = 3
	baseRetryWait = 500 * time.Millisecond
	maxBodyBytes  = 64 << 20 // 64 MiB
)

// Fetcher descarga CSV por HTTP con rate limiting y retries.
type Fetcher struct {
	http     *http.Client
	limiter  *rate.Limiter
	baseWait time.Duration
}

// NewFetcher crea un Fetcher. perSecond <= 0 usa el límite por defecto.
func NewFetcher(perSecond float64) *Fetcher {
	if perSecond <= 0 {
		perSecond = defaultFetchesPerSec
	}
	return &Fetcher{
		http:     &http.Client{Timeout: 30 * time.Second},
		limiter:  rate.NewLimiter(rate.Limit(perSecond), 1),
		baseWait: baseRetryWait,
	}
}

// isRemote indica si path es un URL http(s).
func isRemote(path string) bool {
	return strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://")
}

// Fetch hace un GET con backoff exponencial. 429 y 5xx se reintentan;
// el resto de 4xx falla de inmediato.
func (f *Fetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if err := f.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}

		body, retry, err := f.get(ctx, url)
		if err == nil {
			return body, nil
		}
		if !retry || attempt == maxRetries {
			return nil, err
		}
		slog.Warn("csv fetch failed, retrying", "url", url, "attempt", attempt+1, "err", err)
		f.sleep(ctx, attempt)
	}
	return nil, fmt.Errorf("exhausted %d retries", maxRetries)
}

func (f *Fetcher) get(ctx context.Context, url string) ([]byte, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, false, err
	}
	req.Header.Set("Accept", "text/csv, text/plain, */*")

	resp, err := f.http.Do(req)
	if err != nil {
		return nil, ctx.Err() == nil, fmt.Errorf("request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, true, fmt.Errorf("rate limited (429)")
	case resp.StatusCode >= 500:
		return nil, true, fmt.Errorf("server error %d", resp.StatusCode)
	case resp.StatusCode >= 400:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, false, fmt.Errorf("client error %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, true, fmt.Errorf("read body: %w", err)
	}
	return body, false, nil
}

// sleep espera con backoff exponencial, respetando el contexto.
func (f *Fetcher) sleep(ctx context.Context, attempt int) {
	wait := time.Duration(math.Pow(2, float64(attempt))) * f.baseWait
	select {
	case <-time.After(wait):
	case <-ctx.Done():
	}
}
