package repositories

import (
	"context"
	"time"

	"github.com/zatekoja/marketdiscovery/internal/domain/entities"
)

// TrendingRepository stores trend detection output as history: each
// computation appends new rows, prior windows are never overwritten.
type TrendingRepository interface {
	// AppendTopics appends the topics of one detection run
	AppendTopics(ctx context.Context, topics []*entities.TrendingTopic) error

	// LatestTopics returns the topics of the most recent window ending at or
	// before asOf, highest velocity first
	LatestTopics(ctx context.Context, asOf time.Time, limit int) ([]*entities.TrendingTopic, error)

	// TopicHistory returns all retained windows for a topic in [from, to)
	TopicHistory(ctx context.Context, topic string, from, to time.Time) ([]*entities.TrendingTopic, error)
}
