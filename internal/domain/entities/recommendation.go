package entities

import (
	"time"
)

// RecommendationContextType is where a recommendation batch will be shown.
type RecommendationContextType string

const (
	ContextHomepage    RecommendationContextType = "HOMEPAGE"
	ContextProductPage RecommendationContextType = "PRODUCT_PAGE"
	ContextCart        RecommendationContextType = "CART"
	ContextCategory    RecommendationContextType = "CATEGORY"
)

// RecommendationStrategy names a candidate generation strategy.
type RecommendationStrategy string

const (
	StrategyCollaborative RecommendationStrategy = "COLLABORATIVE"
	StrategyContentBased  RecommendationStrategy = "CONTENT_BASED"
	StrategyTrending      RecommendationStrategy = "TRENDING"
	StrategyCrossSell     RecommendationStrategy = "CROSS_SELL"
	StrategyHybrid        RecommendationStrategy = "HYBRID"
)

// RecommendedItem is one entry of a batch: the blended score plus the
// per-strategy contribution breakdown that produced it.
type RecommendedItem struct {
	ProductID     string                 `json:"product_id"`
	Score         float64                `json:"score"`
	Strategy      RecommendationStrategy `json:"strategy"`
	Contributions map[string]float64     `json:"contributions,omitempty"`
	Reason        string                 `json:"reason,omitempty"`
}

// RecommendationBatch is one generated, immutable recommendation set.
// Re-requesting the same context produces a new batch that supersedes the
// previous one rather than mutating it.
type RecommendationBatch struct {
	ID          string                    `json:"id" db:"id"`
	UserID      string                    `json:"user_id,omitempty" db:"user_id"`
	SessionID   string                    `json:"session_id,omitempty" db:"session_id"`
	ContextType RecommendationContextType `json:"context_type" db:"context_type"`
	Strategy    RecommendationStrategy    `json:"strategy" db:"strategy"`
	Items       []RecommendedItem         `json:"items" db:"items"`
	GeneratedAt time.Time                 `json:"generated_at" db:"generated_at"`
	ExpiresAt   time.Time                 `json:"expires_at" db:"expires_at"`
}
