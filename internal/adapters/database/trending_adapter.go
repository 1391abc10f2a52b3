package database

import (
	"context"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/google/uuid"
	"github.com/zatekoja/marketdiscovery/internal/domain/entities"
	"github.com/zatekoja/marketdiscovery/internal/domain/repositories"
	"github.com/zatekoja/marketdiscovery/internal/infrastructure/clients/postgres"
	apperrors "github.com/zatekoja/marketdiscovery/pkg/errors"
)

// TrendingAdapter implements the TrendingRepository interface. Each detection
// run appends rows; history is never rewritten.
type TrendingAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewTrendingAdapter creates a new trending adapter
func NewTrendingAdapter(client *postgres.Client) repositories.TrendingRepository {
	return &TrendingAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

// AppendTopics appends the topics of one detection run
func (a *TrendingAdapter) AppendTopics(ctx context.Context, topics []*entities.TrendingTopic) error {
	if len(topics) == 0 {
		return nil
	}

	records := make([]goqu.Record, len(topics))
	for i, t := range topics {
		if t.ID == "" {
			t.ID = uuid.New().String()
		}
		if t.ComputedAt.IsZero() {
			t.ComputedAt = time.Now()
		}
		records[i] = goqu.Record{
			"id":           t.ID,
			"topic":        t.Topic,
			"window_start": t.WindowStart,
			"window_end":   t.WindowEnd,
			"velocity":     t.Velocity,
			"sample_size":  t.SampleSize,
			"computed_at":  t.ComputedAt,
		}
	}

	query, args, err := a.db.Insert("trending_topics").Rows(records).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build trending insert", err)
	}

	if _, err := a.client.DB().ExecContext(ctx, query, args...); err != nil {
		return apperrors.NewInternalError("failed to append trending topics", err)
	}

	return nil
}

// LatestTopics returns the topics of the most recent window ending at or
// before asOf, highest velocity first
func (a *TrendingAdapter) LatestTopics(ctx context.Context, asOf time.Time, limit int) ([]*entities.TrendingTopic, error) {
	if limit <= 0 {
		limit = 20
	}

	stmt := `
		SELECT id, topic, window_start, window_end, velocity, sample_size, computed_at
		FROM trending_topics
		WHERE window_end = (
			SELECT MAX(window_end) FROM trending_topics WHERE window_end <= $1
		)
		ORDER BY velocity DESC, topic ASC
		LIMIT $2
	`

	rows, err := a.client.DB().QueryContext(ctx, stmt, asOf, limit)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get latest trending topics", err)
	}
	defer rows.Close()

	var topics []*entities.TrendingTopic
	for rows.Next() {
		t := &entities.TrendingTopic{}
		if err := rows.Scan(&t.ID, &t.Topic, &t.WindowStart, &t.WindowEnd, &t.Velocity, &t.SampleSize, &t.ComputedAt); err != nil {
			return nil, apperrors.NewInternalError("failed to scan trending topic", err)
		}
		topics = append(topics, t)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("failed to iterate trending topics", err)
	}

	return topics, nil
}

// TopicHistory returns all retained windows for a topic in [from, to)
func (a *TrendingAdapter) TopicHistory(ctx context.Context, topic string, from, to time.Time) ([]*entities.TrendingTopic, error) {
	query, args, err := a.db.Select(
		"id", "topic", "window_start", "window_end", "velocity", "sample_size", "computed_at",
	).From("trending_topics").
		Where(
			goqu.Ex{"topic": topic},
			goqu.C("window_start").Gte(from),
			goqu.C("window_end").Lt(to),
		).
		Order(goqu.C("window_start").Asc()).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build history query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get topic history", err)
	}
	defer rows.Close()

	var topics []*entities.TrendingTopic
	for rows.Next() {
		t := &entities.TrendingTopic{}
		if err := rows.Scan(&t.ID, &t.Topic, &t.WindowStart, &t.WindowEnd, &t.Velocity, &t.SampleSize, &t.ComputedAt); err != nil {
			return nil, apperrors.NewInternalError("failed to scan trending topic", err)
		}
		topics = append(topics, t)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("failed to iterate topic history", err)
	}

	return topics, nil
}
