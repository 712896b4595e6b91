package ports

import (
	"context"

	"github.com/alejandrodnm/predtrader/internal/domain"
)

// RunStorage persiste el historial de experimentos.
type RunStorage interface {
	// SaveRun guarda el resumen de un experimento.
	SaveRun(ctx context.Context, run domain.RunRecord) error

	// GetRuns devuelve los últimos limit experimentos, el más reciente primero.
	GetRuns(ctx context.Context, limit int) ([]domain.RunRecord, error)

	// Close cierra la conexión a la base de datos limpiamente.
	Close() error
}
