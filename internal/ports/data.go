package ports

import (
	"context"

	"github.com/alejandrodnm/predtrader/internal/domain"
)

// DataLoader carga una tabla de precios desde una fuente.
type DataLoader interface {
	// Load devuelve la tabla ordenada cronológicamente y sin valores faltantes.
	// Devuelve *domain.SchemaError si faltan columnas requeridas y
	// *domain.DataError si la fuente es ilegible o queda vacía.
	Load(ctx context.Context, path string) (*domain.Table, error)
}

// IndicatorBuilder añade columnas derivadas (SMA, EMA) a una tabla.
type IndicatorBuilder interface {
	// Augment devuelve una tabla nueva con los indicadores añadidos, descartando
	// las filas que la ventana deja incompletas. No modifica la entrada.
	Augment(table *domain.Table) (*domain.Table, error)
}
