package services

import (
	"context"
	"time"

	"github.com/zatekoja/marketdiscovery/internal/domain/entities"
	"github.com/zatekoja/marketdiscovery/internal/domain/repositories"
	"github.com/zatekoja/marketdiscovery/pkg/config"
)

// CrossSellStrategy recommends products frequently purchased together with
// the anchor or cart items, by co-purchase counts from the event log.
type CrossSellStrategy struct {
	events repositories.EventLogRepository
	cfg    config.RecommendationConfig
}

var _ Strategy = (*CrossSellStrategy)(nil)

// NewCrossSellStrategy creates the cross-sell strategy.
func NewCrossSellStrategy(events repositories.EventLogRepository, cfg config.RecommendationConfig) *CrossSellStrategy {
	return &CrossSellStrategy{events: events, cfg: cfg}
}

func (s *CrossSellStrategy) Name() entities.RecommendationStrategy {
	return entities.StrategyCrossSell
}

// Applicable requires something to sell against.
func (s *CrossSellStrategy) Applicable(rc RecommendationContext) bool {
	return len(rc.Anchors()) > 0
}

func (s *CrossSellStrategy) GenerateCandidates(ctx context.Context, rc RecommendationContext) ([]ScoredCandidate, error) {
	anchors := rc.Anchors()
	anchorSet := make(map[string]struct{}, len(anchors))
	for _, id := range anchors {
		anchorSet[id] = struct{}{}
	}

	now := time.Now().UTC()
	since := now.AddDate(0, 0, -s.cfg.SignalWindowDays)
	purchases := []entities.EventType{entities.EventPurchase}

	scores := make(map[string]float64)
	for _, anchor := range anchors {
		co, err := s.events.CoInteractions(ctx, anchor, purchases, since, now)
		if err != nil {
			return nil, err
		}
		for productID, count := range co {
			if _, isAnchor := anchorSet[productID]; isAnchor {
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
			Reason:    "Frequently bought together",
		})
	}
	return candidates, nil
}
