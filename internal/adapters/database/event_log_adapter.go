package database

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/zatekoja/marketdiscovery/internal/domain/entities"
	"github.com/zatekoja/marketdiscovery/internal/domain/repositories"
	"github.com/zatekoja/marketdiscovery/internal/infrastructure/clients/postgres"
	apperrors "github.com/zatekoja/marketdiscovery/pkg/errors"
)

// EventLogAdapter implements the EventLogRepository interface. The
// interaction_events table is append-only; the bigserial seq column is the
// monotonically increasing arena key.
type EventLogAdapter struct {
	client *postgres.Client
}

// NewEventLogAdapter creates a new event log adapter
func NewEventLogAdapter(client *postgres.Client) repositories.EventLogRepository {
	return &EventLogAdapter{client: client}
}

// Append appends a single event
func (a *EventLogAdapter) Append(ctx context.Context, event *entities.InteractionEvent) error {
	return a.AppendBatch(ctx, []*entities.InteractionEvent{event})
}

// AppendBatch appends a set of events in one round trip
func (a *EventLogAdapter) AppendBatch(ctx context.Context, events []*entities.InteractionEvent) error {
	if len(events) == 0 {
		return nil
	}

	query := `
		INSERT INTO interaction_events
		(id, session_id, subject_type, subject_id, event_type, metadata, created_at)
		SELECT * FROM unnest($1::uuid[], $2::text[], $3::text[], $4::text[], $5::text[], $6::jsonb[], $7::timestamptz[])
	`

	ids := make([]string, len(events))
	sessionIDs := make([]string, len(events))
	subjectTypes := make([]string, len(events))
	subjectIDs := make([]string, len(events))
	eventTypes := make([]string, len(events))
	metadatas := make([]string, len(events))
	createdAts := make([]time.Time, len(events))

	for i, e := range events {
		if e.ID == "" {
			e.ID = uuid.New().String()
		}
		if e.CreatedAt.IsZero() {
			e.CreatedAt = time.Now()
		}
		meta, err := json.Marshal(e.Metadata)
		if err != nil {
			return apperrors.NewInternalError("failed to marshal event metadata", err)
		}
		ids[i] = e.ID
		sessionIDs[i] = e.SessionID
		subjectTypes[i] = string(e.SubjectType)
		subjectIDs[i] = e.SubjectID
		eventTypes[i] = string(e.EventType)
		metadatas[i] = string(meta)
		createdAts[i] = e.CreatedAt
	}

	_, err := a.client.DB().ExecContext(ctx, query,
		pq.Array(ids),
		pq.Array(sessionIDs),
		pq.Array(subjectTypes),
		pq.Array(subjectIDs),
		pq.Array(eventTypes),
		pq.Array(metadatas),
		pq.Array(createdAts),
	)
	if err != nil {
		return apperrors.NewInternalError("failed to append interaction events", err)
	}

	return nil
}

// CountByType counts events of the given type in [from, to)
func (a *EventLogAdapter) CountByType(ctx context.Context, eventType entities.EventType, from, to time.Time) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM interaction_events
		WHERE event_type = $1 AND created_at >= $2 AND created_at < $3
	`

	var count int
	err := a.client.DB().QueryRowContext(ctx, query, string(eventType), from, to).Scan(&count)
	if err != nil {
		return 0, apperrors.NewInternalError("failed to count events by type", err)
	}
	return count, nil
}

// CategoryCounts returns per-category event counts in [from, to)
func (a *EventLogAdapter) CategoryCounts(ctx context.Context, from, to time.Time) (map[string]int, error) {
	query := `
		SELECT metadata->>'category' AS category, COUNT(*)
		FROM interaction_events
		WHERE created_at >= $1 AND created_at < $2
		  AND metadata->>'category' IS NOT NULL
		GROUP BY metadata->>'category'
	`

	rows, err := a.client.DB().QueryContext(ctx, query, from, to)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to count events by category", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var category string
		var count int
		if err := rows.Scan(&category, &count); err != nil {
			return nil, apperrors.NewInternalError("failed to scan category count", err)
		}
		counts[category] = count
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("failed to iterate category counts", err)
	}

	return counts, nil
}

// RecentProductIDsByUser returns product ids the user interacted with, most
// recent first, deduplicated. Subject ids of SEARCH_RESULT, RECOMMENDATION
// and PRODUCT events are all product ids, so no catalog join is needed.
func (a *EventLogAdapter) RecentProductIDsByUser(ctx context.Context, userID string, eventTypes []entities.EventType, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT e.subject_id
		FROM interaction_events e
		JOIN search_sessions s ON s.id = e.session_id
		WHERE s.user_id = $1 AND e.event_type = ANY($2)
		GROUP BY e.subject_id
		ORDER BY MAX(e.seq) DESC
		LIMIT $3
	`

	rows, err := a.client.DB().QueryContext(ctx, query, userID, pq.Array(eventTypeStrings(eventTypes)), limit)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get recent product ids", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, apperrors.NewInternalError("failed to scan product id", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("failed to iterate recent product ids", err)
	}

	return ids, nil
}

// CountByUser counts the user's interactions since the given time
func (a *EventLogAdapter) CountByUser(ctx context.Context, userID string, since time.Time) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM interaction_events e
		JOIN search_sessions s ON s.id = e.session_id
		WHERE s.user_id = $1 AND e.created_at >= $2
	`

	var count int
	err := a.client.DB().QueryRowContext(ctx, query, userID, since).Scan(&count)
	if err != nil {
		return 0, apperrors.NewInternalError("failed to count events by user", err)
	}
	return count, nil
}

// CoInteractions returns, for sessions that interacted with the given
// product, counts of other products co-interacted with in the window.
func (a *EventLogAdapter) CoInteractions(ctx context.Context, productID string, eventTypes []entities.EventType, from, to time.Time) (map[string]int, error) {
	query := `
		SELECT b.subject_id, COUNT(DISTINCT b.session_id)
		FROM interaction_events a
		JOIN interaction_events b ON a.session_id = b.session_id
		WHERE a.subject_id = $1
		  AND b.subject_id <> $1
		  AND a.event_type = ANY($2)
		  AND b.event_type = ANY($2)
		  AND a.created_at >= $3 AND a.created_at < $4
		  AND b.created_at >= $3 AND b.created_at < $4
		GROUP BY b.subject_id
	`

	rows, err := a.client.DB().QueryContext(ctx, query, productID, pq.Array(eventTypeStrings(eventTypes)), from, to)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get co-interactions", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var id string
		var count int
		if err := rows.Scan(&id, &count); err != nil {
			return nil, apperrors.NewInternalError("failed to scan co-interaction", err)
		}
		counts[id] = count
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("failed to iterate co-interactions", err)
	}

	return counts, nil
}

// PurgeOlderThan deletes events created before the cutoff
func (a *EventLogAdapter) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := a.client.DB().ExecContext(ctx,
		`DELETE FROM interaction_events WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, apperrors.NewInternalError("failed to purge interaction events", err)
	}
	purged, err := result.RowsAffected()
	if err != nil {
		return 0, apperrors.NewInternalError("failed to read purge count", err)
	}
	return purged, nil
}

func eventTypeStrings(types []entities.EventType) []string {
	out := make([]string, len(types))
	for i, t := range types {
		out[i] = string(t)
	}
	return out
}
