package repositories

import (
	"context"

	"github.com/zatekoja/marketdiscovery/internal/domain/entities"
)

// RecommendationRepository stores generated recommendation batches. Batches
// are immutable; a newer batch for the same context supersedes the previous
// one, which is retained for before/after comparison.
type RecommendationRepository interface {
	// CreateBatch appends a generated batch
	CreateBatch(ctx context.Context, batch *entities.RecommendationBatch) error

	// LatestForContext returns the most recent batch for the requester and
	// context, or a not found error
	LatestForContext(ctx context.Context, userID string, contextType entities.RecommendationContextType) (*entities.RecommendationBatch, error)
}
