package services

import (
	"context"

	"github.com/zatekoja/marketdiscovery/internal/domain/entities"
	"github.com/zatekoja/marketdiscovery/internal/domain/providers"
)

const (
	trendingTopicLimit       = 5
	trendingProductsPerTopic = 20
)

// TrendingStrategy recommends products from categories with high interaction
// velocity. Reads only the detector's in-memory snapshot; an empty snapshot
// yields no candidates.
type TrendingStrategy struct {
	trends  *TrendDetector
	catalog providers.CatalogProvider
}

var _ Strategy = (*TrendingStrategy)(nil)

// NewTrendingStrategy creates the trending strategy.
func NewTrendingStrategy(trends *TrendDetector, catalog providers.CatalogProvider) *TrendingStrategy {
	return &TrendingStrategy{trends: trends, catalog: catalog}
}

func (s *TrendingStrategy) Name() entities.RecommendationStrategy {
	return entities.StrategyTrending
}

func (s *TrendingStrategy) Applicable(rc RecommendationContext) bool {
	return true
}

func (s *TrendingStrategy) GenerateCandidates(ctx context.Context, rc RecommendationContext) ([]ScoredCandidate, error) {
	topics := s.trends.Snapshot()
	if len(topics) > trendingTopicLimit {
		topics = topics[:trendingTopicLimit]
	}

	var candidates []ScoredCandidate
	seen := make(map[string]struct{})
	for _, topic := range topics {
		products, err := s.catalog.FindProducts(ctx, entities.ProductCriteria{
			Categories: []string{topic.Topic},
			ActiveOnly: true,
			InStock:    true,
			Limit:      trendingProductsPerTopic,
		})
		if err != nil {
			return nil, err
		}
		boost := topic.Velocity / (1 + topic.Velocity)
		for _, p := range products {
			if _, dup := seen[p.ID]; dup {
				continue
			}
			seen[p.ID] = struct{}{}
			candidates = append(candidates, ScoredCandidate{
				ProductID: p.ID,
				Score:     boost * (0.5 + 0.5*popularityScore(p)),
				Reason:    "Popular right now",
			})
		}
	}
	return candidates, nil
}
