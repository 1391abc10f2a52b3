package entities

import (
	"time"
)

// TrendingTopic is an aggregated interaction-velocity signal for one topic
// (category) over a time window. Prior versions are retained as history to
// support trend-over-time queries; rows are never overwritten in place.
type TrendingTopic struct {
	ID          string    `json:"id" db:"id"`
	Topic       string    `json:"topic" db:"topic"`
	WindowStart time.Time `json:"window_start" db:"window_start"`
	WindowEnd   time.Time `json:"window_end" db:"window_end"`
	Velocity    float64   `json:"velocity" db:"velocity"`
	SampleSize  int       `json:"sample_size" db:"sample_size"`
	ComputedAt  time.Time `json:"computed_at" db:"computed_at"`
}

// CatalogEvent signals a change to the external catalog that invalidates
// derived caches (facets, candidate sets, query interpretations).
type CatalogEvent struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"` // updated, deleted, reindexed
	ProductID  string    `json:"product_id,omitempty"`
	Category   string    `json:"category,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

const (
	CatalogEventUpdated   = "updated"
	CatalogEventDeleted   = "deleted"
	CatalogEventReindexed = "reindexed"
)
