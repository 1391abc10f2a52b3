package repositories

import (
	"context"
	"time"

	"github.com/zatekoja/marketdiscovery/internal/domain/entities"
)

// EventLogRepository is the append-only store of interaction events. Records
// are addressed by a monotonically increasing sequence key; appends are safe
// for concurrent writers and only per-session causal order is guaranteed.
type EventLogRepository interface {
	// Append appends a single event
	Append(ctx context.Context, event *entities.InteractionEvent) error

	// AppendBatch appends a set of events in one round trip
	AppendBatch(ctx context.Context, events []*entities.InteractionEvent) error

	// CountByType counts events of the given type in [from, to)
	CountByType(ctx context.Context, eventType entities.EventType, from, to time.Time) (int, error)

	// CategoryCounts returns per-category event counts in [from, to),
	// using the category metadata written at append time
	CategoryCounts(ctx context.Context, from, to time.Time) (map[string]int, error)

	// RecentProductIDsByUser returns product ids the user interacted with,
	// most recent first, deduplicated
	RecentProductIDsByUser(ctx context.Context, userID string, eventTypes []entities.EventType, limit int) ([]string, error)

	// CountByUser counts the user's interactions since the given time
	CountByUser(ctx context.Context, userID string, since time.Time) (int, error)

	// CoInteractions returns, for sessions that interacted with the given
	// product, counts of other products co-interacted with in the window
	CoInteractions(ctx context.Context, productID string, eventTypes []entities.EventType, from, to time.Time) (map[string]int, error)

	// PurgeOlderThan deletes events created before the cutoff, returning the
	// number of rows removed. Retention is time-bound.
	PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
