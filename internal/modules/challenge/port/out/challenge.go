package out

import (
	"context"

	"habitkit/internal/modules/challenge/domain"
)

type CatalogSource interface {
	Load(ctx context.Context) ([]domain.Challenge, error)
	// Watch calls onChange after the source changed, until ctx is done.
	Watch(ctx context.Context, onChange func()) error
}
