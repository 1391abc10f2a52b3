package services

import (
	"context"

	"github.com/zatekoja/marketdiscovery/internal/domain/entities"
)

// RecommendationContext describes one recommendation request: who is asking,
// where the batch will be shown, and what it should anchor on.
type RecommendationContext struct {
	UserID          string
	SessionID       string
	ContextType     entities.RecommendationContextType
	AnchorProductID string
	CartProductIDs  []string
	Limit           int
}

// Anchors returns the product ids the request is anchored on, if any.
func (rc RecommendationContext) Anchors() []string {
	anchors := make([]string, 0, len(rc.CartProductIDs)+1)
	if rc.AnchorProductID != "" {
		anchors = append(anchors, rc.AnchorProductID)
	}
	anchors = append(anchors, rc.CartProductIDs...)
	return anchors
}

// ScoredCandidate is one raw candidate from a single strategy. Scores are on
// the strategy's own scale; the combiner normalizes before blending.
type ScoredCandidate struct {
	ProductID string
	Score     float64
	Reason    string
}

// Strategy generates recommendation candidates from one signal source.
// Strategies are independent: a failing strategy is skipped, never fatal.
type Strategy interface {
	// Name identifies the strategy in contribution breakdowns
	Name() entities.RecommendationStrategy

	// Applicable reports whether the strategy can serve this context
	Applicable(rc RecommendationContext) bool

	// GenerateCandidates produces scored candidates for the context
	GenerateCandidates(ctx context.Context, rc RecommendationContext) ([]ScoredCandidate, error)
}
