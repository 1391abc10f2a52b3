package services

import (
	"context"
	"math"
	"time"

	"github.com/zatekoja/marketdiscovery/internal/domain/entities"
	"github.com/zatekoja/marketdiscovery/internal/domain/providers"
	"github.com/zatekoja/marketdiscovery/internal/domain/repositories"
	"github.com/zatekoja/marketdiscovery/pkg/config"
	apperrors "github.com/zatekoja/marketdiscovery/pkg/errors"
)

const contentCandidatePool = 100

// ContentBasedStrategy recommends products similar in category, price band,
// and tags to an anchor product or the user's recent interactions. It is the
// always-applicable strategy: with no anchor and no history it falls back to
// well-rated catalog items, so cold starts still get a non-empty answer.
type ContentBasedStrategy struct {
	catalog  providers.CatalogProvider
	events   repositories.EventLogRepository
	identity providers.IdentityProvider
	cfg      config.RecommendationConfig
}

var _ Strategy = (*ContentBasedStrategy)(nil)

// NewContentBasedStrategy creates the content similarity strategy.
func NewContentBasedStrategy(catalog providers.CatalogProvider, events repositories.EventLogRepository, cfg config.RecommendationConfig) *ContentBasedStrategy {
	return &ContentBasedStrategy{catalog: catalog, events: events, cfg: cfg}
}

// SetIdentity attaches the external identity service. Profile preference tags
// then boost cold start candidates for known users.
func (s *ContentBasedStrategy) SetIdentity(identity providers.IdentityProvider) {
	s.identity = identity
}

func (s *ContentBasedStrategy) Name() entities.RecommendationStrategy {
	return entities.StrategyContentBased
}

func (s *ContentBasedStrategy) Applicable(rc RecommendationContext) bool {
	return true
}

func (s *ContentBasedStrategy) GenerateCandidates(ctx context.Context, rc RecommendationContext) ([]ScoredCandidate, error) {
	anchor, err := s.resolveAnchor(ctx, rc)
	if err != nil {
		return nil, err
	}
	if anchor == nil {
		return s.coldStartCandidates(ctx, rc)
	}

	pool, err := s.catalog.FindProducts(ctx, entities.ProductCriteria{
		Categories: []string{anchor.Category},
		ActiveOnly: true,
		InStock:    true,
		Limit:      contentCandidatePool,
	})
	if err != nil {
		return nil, err
	}

	candidates := make([]ScoredCandidate, 0, len(pool))
	for _, p := range pool {
		if p.ID == anchor.ID {
			continue
		}
		if !withinPriceBand(anchor.Price, p.Price) {
			continue
		}
		candidates = append(candidates, ScoredCandidate{
			ProductID: p.ID,
			Score:     similarity(anchor, p),
			Reason:    "Similar to items you looked at",
		})
	}
	return candidates, nil
}

// resolveAnchor picks the similarity anchor: the explicit anchor product,
// else the user's most recent interaction, else none.
func (s *ContentBasedStrategy) resolveAnchor(ctx context.Context, rc RecommendationContext) (*entities.ProductSummary, error) {
	anchorID := rc.AnchorProductID
	if anchorID == "" && rc.UserID != "" {
		since := time.Now().UTC().AddDate(0, 0, -s.cfg.SignalWindowDays)
		if _, err := s.events.CountByUser(ctx, rc.UserID, since); err == nil {
			recent, err := s.events.RecentProductIDsByUser(ctx, rc.UserID,
				[]entities.EventType{entities.EventClick, entities.EventAddToCart, entities.EventPurchase}, 1)
			if err == nil && len(recent) > 0 {
				anchorID = recent[0]
			}
		}
	}
	if anchorID == "" {
		return nil, nil
	}

	anchor, err := s.catalog.GetProduct(ctx, anchorID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return anchor, nil
}

func (s *ContentBasedStrategy) coldStartCandidates(ctx context.Context, rc RecommendationContext) ([]ScoredCandidate, error) {
	pool, err := s.catalog.FindProducts(ctx, entities.ProductCriteria{
		ActiveOnly: true,
		InStock:    true,
		Limit:      contentCandidatePool,
	})
	if err != nil {
		return nil, err
	}

	preferred := s.preferenceTags(ctx, rc.UserID)

	candidates := make([]ScoredCandidate, 0, len(pool))
	for _, p := range pool {
		score := popularityScore(p)
		if len(preferred) > 0 {
			score *= 1 + tagOverlap(preferred, p.Tags)
		}
		candidates = append(candidates, ScoredCandidate{
			ProductID: p.ID,
			Score:     score,
			Reason:    "Highly rated in our catalog",
		})
	}
	return candidates, nil
}

// preferenceTags fetches profile tags from the identity service. The profile
// is best effort: anonymous users and lookup failures yield no tags.
func (s *ContentBasedStrategy) preferenceTags(ctx context.Context, userID string) []string {
	if s.identity == nil || userID == "" {
		return nil
	}
	profile, err := s.identity.GetUserProfile(ctx, userID)
	if err != nil || profile == nil {
		return nil
	}
	return profile.PreferenceTags
}

// withinPriceBand keeps candidates between half and double the anchor price.
func withinPriceBand(anchorPrice, price float64) bool {
	if anchorPrice <= 0 {
		return true
	}
	return price >= anchorPrice*0.5 && price <= anchorPrice*2
}

// similarity blends category match, price closeness, and tag overlap.
func similarity(anchor, candidate *entities.ProductSummary) float64 {
	score := 0.0
	if candidate.Category == anchor.Category {
		score += 0.5
	}
	if anchor.Price > 0 {
		ratio := candidate.Price / anchor.Price
		score += 0.25 * (1 - math.Min(1, math.Abs(math.Log2(ratio))))
	}
	score += 0.25 * tagOverlap(anchor.Tags, candidate.Tags)
	return score
}

func tagOverlap(a, b []string) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	set := make(map[string]struct{}, len(a))
	for _, t := range a {
		set[t] = struct{}{}
	}
	shared := 0
	for _, t := range b {
		if _, ok := set[t]; ok {
			shared++
		}
	}
	return float64(shared) / float64(len(a))
}
