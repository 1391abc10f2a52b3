package services

import (
	"context"
	"errors"
	"log"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/zatekoja/marketdiscovery/internal/domain/entities"
	"github.com/zatekoja/marketdiscovery/internal/domain/providers"
	"github.com/zatekoja/marketdiscovery/internal/domain/repositories"
	"github.com/zatekoja/marketdiscovery/internal/infrastructure/observability"
	"github.com/zatekoja/marketdiscovery/pkg/config"
	apperrors "github.com/zatekoja/marketdiscovery/pkg/errors"
)

// RecommendationService blends the output of several candidate strategies
// into one ranked, deduplicated, availability-checked batch. A failing
// strategy is skipped; an unreachable catalog fails the whole call, since
// unverifiable items must never be served.
type RecommendationService struct {
	strategies []Strategy
	catalog    providers.CatalogProvider
	orders     providers.OrderHistoryProvider
	batches    repositories.RecommendationRepository
	events     repositories.EventLogRepository
	metrics    *observability.Metrics
	cfg        config.RecommendationConfig
	weights    map[entities.RecommendationStrategy]float64
}

// NewRecommendationService creates the hybrid recommendation service.
func NewRecommendationService(
	strategies []Strategy,
	catalog providers.CatalogProvider,
	batches repositories.RecommendationRepository,
	events repositories.EventLogRepository,
	cfg config.RecommendationConfig,
) *RecommendationService {
	return &RecommendationService{
		strategies: strategies,
		catalog:    catalog,
		batches:    batches,
		events:     events,
		cfg:        cfg,
		weights: map[entities.RecommendationStrategy]float64{
			entities.StrategyCollaborative: cfg.WeightCollaborative,
			entities.StrategyContentBased:  cfg.WeightContentBased,
			entities.StrategyTrending:      cfg.WeightTrending,
			entities.StrategyCrossSell:     cfg.WeightCrossSell,
		},
	}
}

// SetOrderHistory enables purchased-item exclusion through the external
// order service.
func (s *RecommendationService) SetOrderHistory(orders providers.OrderHistoryProvider) {
	s.orders = orders
}

// SetMetrics enables recommendation metrics recording.
func (s *RecommendationService) SetMetrics(metrics *observability.Metrics) {
	s.metrics = metrics
}

// Recommend generates a new immutable recommendation batch for the context.
// No candidates from any strategy is a valid empty batch; an expired caller
// deadline is not, and fails the call with a TimeoutError. The batch is
// persisted and its impressions logged; failures there degrade silently.
func (s *RecommendationService) Recommend(ctx context.Context, rc RecommendationContext) (*entities.RecommendationBatch, error) {
	limit := rc.Limit
	if limit <= 0 {
		limit = s.cfg.DefaultLimit
	}

	blended := s.collectCandidates(ctx, rc)
	// Strategy failures are isolated, but when the deadline has expired every
	// strategy has failed for the caller's reason, and an empty batch here
	// would mask the timeout as a zero-result success.
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return nil, apperrors.NewTimeoutError("recommendation deadline exceeded during candidate generation", ctx.Err())
	}
	excluded, err := s.exclusions(ctx, rc)
	if err != nil {
		return nil, err
	}

	items, err := s.finalize(ctx, blended, excluded, limit)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	batch := &entities.RecommendationBatch{
		ID:          uuid.New().String(),
		UserID:      rc.UserID,
		SessionID:   rc.SessionID,
		ContextType: rc.ContextType,
		Strategy:    entities.StrategyHybrid,
		Items:       items,
		GeneratedAt: now,
		ExpiresAt:   now.Add(time.Duration(s.cfg.BatchTTLSeconds) * time.Second),
	}

	if err := s.batches.CreateBatch(ctx, batch); err != nil {
		log.Printf("Warning: failed to persist recommendation batch %s: %v", batch.ID, err)
		observability.RecordDegradedAppend(ctx, s.metrics, "recommendation_batch")
	}
	s.logImpressions(ctx, batch)
	observability.RecordRecommendation(ctx, s.metrics, string(rc.ContextType), len(items))

	return batch, nil
}

// Latest returns the most recent batch for the requester and context.
func (s *RecommendationService) Latest(ctx context.Context, userID string, contextType entities.RecommendationContextType) (*entities.RecommendationBatch, error) {
	return s.batches.LatestForContext(ctx, userID, contextType)
}

// RecordDismiss appends a DISMISS event for a recommended item, feeding
// negative signal back into the log.
func (s *RecommendationService) RecordDismiss(ctx context.Context, sessionID, batchID, productID string) error {
	return s.events.Append(ctx, &entities.InteractionEvent{
		ID:          uuid.New().String(),
		SessionID:   sessionID,
		SubjectType: entities.SubjectRecommendation,
		SubjectID:   productID,
		EventType:   entities.EventDismiss,
		Metadata:    map[string]string{entities.MetaBatchID: batchID},
		CreatedAt:   time.Now().UTC(),
	})
}

// collectCandidates runs every applicable strategy, normalizes each
// strategy's scores to [0,1], and blends them by configured weight.
func (s *RecommendationService) collectCandidates(ctx context.Context, rc RecommendationContext) map[string]*entities.RecommendedItem {
	blended := make(map[string]*entities.RecommendedItem)

	for _, strategy := range s.strategies {
		if !strategy.Applicable(rc) {
			continue
		}
		candidates, err := strategy.GenerateCandidates(ctx, rc)
		if err != nil {
			log.Printf("Warning: recommendation strategy %s failed: %v", strategy.Name(), err)
			observability.RecordStrategyFailure(ctx, s.metrics, string(strategy.Name()))
			continue
		}
		if len(candidates) == 0 {
			continue
		}

		maxScore := 0.0
		for _, c := range candidates {
			if c.Score > maxScore {
				maxScore = c.Score
			}
		}
		if maxScore == 0 {
			continue
		}

		weight := s.weights[strategy.Name()]
		name := string(strategy.Name())
		for _, c := range candidates {
			contribution := weight * (c.Score / maxScore)
			item, ok := blended[c.ProductID]
			if !ok {
				item = &entities.RecommendedItem{
					ProductID:     c.ProductID,
					Strategy:      entities.StrategyHybrid,
					Contributions: make(map[string]float64),
					Reason:        c.Reason,
				}
				blended[c.ProductID] = item
			}
			item.Contributions[name] += contribution
			item.Score += contribution
			// The strongest contributor explains the item.
			if item.Contributions[name] >= maxContribution(item.Contributions) {
				item.Reason = c.Reason
			}
		}
	}

	return blended
}

func maxContribution(contributions map[string]float64) float64 {
	max := 0.0
	for _, v := range contributions {
		if v > max {
			max = v
		}
	}
	return max
}

// exclusions returns the product ids that must never appear in the batch:
// the anchors themselves and, when configured, the user's past purchases.
func (s *RecommendationService) exclusions(ctx context.Context, rc RecommendationContext) (map[string]struct{}, error) {
	excluded := make(map[string]struct{})
	for _, id := range rc.Anchors() {
		excluded[id] = struct{}{}
	}

	if s.cfg.ExcludePurchased && rc.UserID != "" && s.orders != nil {
		purchased, err := s.orders.GetPurchaseHistory(ctx, rc.UserID)
		if err != nil {
			// The order service is an optional collaborator; without it the
			// batch is still valid, just less filtered.
			log.Printf("Warning: purchase history unavailable for user %s: %v", rc.UserID, err)
		} else {
			for _, id := range purchased {
				excluded[id] = struct{}{}
			}
		}
	}
	return excluded, nil
}

// finalize verifies availability against the catalog, applies the vendor
// diversity cap, and cuts the ranked list to the limit. Catalog failure here
// fails the call: recommendations are never served unverified.
func (s *RecommendationService) finalize(ctx context.Context, blended map[string]*entities.RecommendedItem, excluded map[string]struct{}, limit int) ([]entities.RecommendedItem, error) {
	ids := make([]string, 0, len(blended))
	for id := range blended {
		if _, skip := excluded[id]; skip {
			continue
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return []entities.RecommendedItem{}, nil
	}

	products, err := s.catalog.GetProducts(ctx, ids)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, apperrors.NewTimeoutError("recommendation deadline exceeded during availability check", err)
		}
		if apperrors.IsUpstreamUnavailable(err) {
			return nil, err
		}
		return nil, apperrors.NewUpstreamUnavailableError("catalog lookup for recommendations failed", err)
	}

	available := make([]*entities.ProductSummary, 0, len(products))
	for _, p := range products {
		if p.Available() {
			available = append(available, p)
		}
	}

	sort.Slice(available, func(i, j int) bool {
		a, b := blended[available[i].ID], blended[available[j].ID]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		return available[i].ID < available[j].ID
	})

	items := make([]entities.RecommendedItem, 0, limit)
	vendorCounts := make(map[string]int)
	for _, p := range available {
		if len(items) == limit {
			break
		}
		if s.cfg.VendorCap > 0 && vendorCounts[p.VendorID] >= s.cfg.VendorCap {
			continue
		}
		vendorCounts[p.VendorID]++
		items = append(items, *blended[p.ID])
	}
	return items, nil
}

func (s *RecommendationService) logImpressions(ctx context.Context, batch *entities.RecommendationBatch) {
	if len(batch.Items) == 0 {
		return
	}
	events := make([]*entities.InteractionEvent, len(batch.Items))
	for i, item := range batch.Items {
		events[i] = &entities.InteractionEvent{
			ID:          uuid.New().String(),
			SessionID:   batch.SessionID,
			SubjectType: entities.SubjectRecommendation,
			SubjectID:   item.ProductID,
			EventType:   entities.EventImpression,
			Metadata:    map[string]string{entities.MetaBatchID: batch.ID},
			CreatedAt:   batch.GeneratedAt,
		}
	}
	if err := s.events.AppendBatch(ctx, events); err != nil {
		log.Printf("Warning: failed to append recommendation impressions for batch %s: %v", batch.ID, err)
		observability.RecordDegradedAppend(ctx, s.metrics, "recommendation_impressions")
	}
}
