package ports

import (
	"context"

	"github.com/alejandrodnm/predtrader/internal/domain"
)

// Reporter presenta el resultado de un experimento al usuario.
type Reporter interface {
	Report(ctx context.Context, result *domain.ResultPayload) error
}
