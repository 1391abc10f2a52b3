package repositories

import (
	"context"
	"time"

	"github.com/zatekoja/marketdiscovery/internal/domain/entities"
)

// SessionRepository stores search sessions.
type SessionRepository interface {
	// GetByID retrieves an open or closed session
	GetByID(ctx context.Context, id string) (*entities.SearchSession, error)

	// Create creates a new session
	Create(ctx context.Context, session *entities.SearchSession) error

	// Touch updates last activity and the running search count
	Touch(ctx context.Context, id string, at time.Time, totalSearches int) error

	// CloseExpired stamps closed_at on open sessions whose last activity is
	// before the cutoff, returning the number closed
	CloseExpired(ctx context.Context, cutoff time.Time, closedAt time.Time) (int64, error)
}
