package services

import (
	"context"
	"time"

	"github.com/zatekoja/marketdiscovery/internal/domain/entities"
	"github.com/zatekoja/marketdiscovery/internal/domain/repositories"
	"github.com/zatekoja/marketdiscovery/pkg/config"
)

const collaborativeSeedLimit = 10

// CollaborativeStrategy recommends products that co-occur, across sessions,
// with products the requesting user recently interacted with. Item-based:
// the unit of similarity is the product pair, not the user pair.
type CollaborativeStrategy struct {
	events repositories.EventLogRepository
	cfg    config.RecommendationConfig
}

var _ Strategy = (*CollaborativeStrategy)(nil)

// NewCollaborativeStrategy creates the collaborative filtering strategy.
func NewCollaborativeStrategy(events repositories.EventLogRepository, cfg config.RecommendationConfig) *CollaborativeStrategy {
	return &CollaborativeStrategy{events: events, cfg: cfg}
}

func (s *CollaborativeStrategy) Name() entities.RecommendationStrategy {
	return entities.StrategyCollaborative
}

// Applicable requires an identified user; anonymous traffic has no history
// to collaborate on.
func (s *CollaborativeStrategy) Applicable(rc RecommendationContext) bool {
	return rc.UserID != ""
}

func (s *CollaborativeStrategy) GenerateCandidates(ctx context.Context, rc RecommendationContext) ([]ScoredCandidate, error) {
	since := time.Now().UTC().AddDate(0, 0, -s.cfg.SignalWindowDays)

	history, err := s.events.CountByUser(ctx, rc.UserID, since)
	if err != nil {
		return nil, err
	}
	if history < s.cfg.MinInteractionHistory {
		// Below the history floor the signal is noise; other strategies
		// cover the cold start.
		return nil, nil
	}

	signalTypes := []entities.EventType{entities.EventClick, entities.EventAddToCart, entities.EventPurchase}
	seeds, err := s.events.RecentProductIDsByUser(ctx, rc.UserID, signalTypes, collaborativeSeedLimit)
	if err != nil {
		return nil, err
	}

	seedSet := make(map[string]struct{}, len(seeds))
	for _, id := range seeds {
		seedSet[id] = struct{}{}
	}

	now := time.Now().UTC()
	scores := make(map[string]float64)
	for _, seed := range seeds {
		co, err := s.events.CoInteractions(ctx, seed, signalTypes, since, now)
		if err != nil {
			return nil, err
		}
		for productID, count := range co {
			if _, isSeed := seedSet[productID]; isSeed {
				continue
			}
			scores[productID] += float64(count)
		}
	}

	candidates := make([]ScoredCandidate, 0, len(scores))
	for productID, score := range scores {
		candidates = append(candidates, ScoredCandidate{
			ProductID: productID,
			Score:     score,
			Reason:    "People with similar activity also viewed this",
		})
	}
	return candidates, nil
}
