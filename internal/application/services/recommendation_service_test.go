package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zatekoja/marketdiscovery/internal/domain/entities"
	"github.com/zatekoja/marketdiscovery/pkg/config"
	apperrors "github.com/zatekoja/marketdiscovery/pkg/errors"
)

func recTestConfig() config.RecommendationConfig {
	return config.RecommendationConfig{
		WeightCollaborative:   0.35,
		WeightContentBased:    0.3,
		WeightTrending:        0.15,
		WeightCrossSell:       0.2,
		VendorCap:             3,
		MinInteractionHistory: 3,
		ExcludePurchased:      true,
		DefaultLimit:          10,
		BatchTTLSeconds:       1800,
		SignalWindowDays:      30,
	}
}

func recTestCatalog() *CatalogFake {
	created := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	products := []*entities.ProductSummary{
		{ID: "p1", Name: "Phone", Category: "electronics", VendorID: "v1", Price: 500, Rating: 4.5, ReviewCount: 100, InStock: true, IsActive: true, CreatedAt: created},
		{ID: "p2", Name: "Phone Case", Category: "electronics", VendorID: "v1", Price: 25, Rating: 4.2, ReviewCount: 60, InStock: true, IsActive: true, CreatedAt: created},
		{ID: "p3", Name: "Charger", Category: "electronics", VendorID: "v1", Price: 30, Rating: 4.0, ReviewCount: 40, InStock: true, IsActive: true, CreatedAt: created},
		{ID: "p4", Name: "Earbuds", Category: "electronics", VendorID: "v1", Price: 90, Rating: 4.4, ReviewCount: 80, InStock: true, IsActive: true, CreatedAt: created},
		{ID: "p5", Name: "Screen Guard", Category: "electronics", VendorID: "v2", Price: 12, Rating: 3.9, ReviewCount: 30, InStock: true, IsActive: true, CreatedAt: created},
		{ID: "p6", Name: "Tripod", Category: "photo", VendorID: "v3", Price: 45, Rating: 4.1, ReviewCount: 20, InStock: false, IsActive: true, CreatedAt: created},
	}
	return &CatalogFake{Products: products}
}

// fixedStrategy is a canned strategy for combiner tests.
type fixedStrategy struct {
	name       entities.RecommendationStrategy
	candidates []ScoredCandidate
	err        error
	applicable bool
}

func (f *fixedStrategy) Name() entities.RecommendationStrategy { return f.name }
func (f *fixedStrategy) Applicable(rc RecommendationContext) bool {
	return f.applicable
}
func (f *fixedStrategy) GenerateCandidates(ctx context.Context, rc RecommendationContext) ([]ScoredCandidate, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.candidates, nil
}

func newRecService(catalog *CatalogFake, strategies ...Strategy) (*RecommendationService, *BatchRepoFake, *EventLogFake) {
	batches := &BatchRepoFake{}
	events := &EventLogFake{}
	svc := NewRecommendationService(strategies, catalog, batches, events, recTestConfig())
	return svc, batches, events
}

func TestRecommendationService_BlendsAndPersists(t *testing.T) {
	svc, batches, events := newRecService(recTestCatalog(),
		&fixedStrategy{name: entities.StrategyCrossSell, applicable: true, candidates: []ScoredCandidate{
			{ProductID: "p2", Score: 30, Reason: "Frequently bought together"},
			{ProductID: "p3", Score: 2, Reason: "Frequently bought together"},
		}},
		&fixedStrategy{name: entities.StrategyContentBased, applicable: true, candidates: []ScoredCandidate{
			{ProductID: "p4", Score: 0.5, Reason: "Similar to items you looked at"},
		}},
	)

	batch, err := svc.Recommend(context.Background(), RecommendationContext{
		SessionID:       "s1",
		ContextType:     entities.ContextProductPage,
		AnchorProductID: "p1",
	})

	require.NoError(t, err)
	assert.Equal(t, entities.StrategyHybrid, batch.Strategy)
	require.Len(t, batch.Items, 3)

	// Scores are normalized per strategy before weighting, so each strategy's
	// top candidate carries its full weight: content-based (0.3) tops the
	// blend over cross-sell (0.2).
	assert.Equal(t, "p4", batch.Items[0].ProductID)
	assert.Equal(t, "Similar to items you looked at", batch.Items[0].Reason)
	assert.Contains(t, batch.Items[0].Contributions, string(entities.StrategyContentBased))

	// Within cross-sell, the strong co-purchase (30x) outranks the weak one (2x).
	assert.Equal(t, "p2", batch.Items[1].ProductID)
	assert.Equal(t, "p3", batch.Items[2].ProductID)
	assert.Equal(t, "Frequently bought together", batch.Items[1].Reason)
	assert.Contains(t, batch.Items[1].Contributions, string(entities.StrategyCrossSell))
	assert.Greater(t, batch.Items[1].Score, batch.Items[2].Score)

	// The anchor itself never appears.
	for _, item := range batch.Items {
		assert.NotEqual(t, "p1", item.ProductID)
	}

	assert.Len(t, batches.Batches, 1)
	assert.Len(t, events.EventsOfType(entities.EventImpression), 3)
}

func TestRecommendationService_TimeoutFailsCall(t *testing.T) {
	svc, batches, _ := newRecService(recTestCatalog(),
		&fixedStrategy{name: entities.StrategyCollaborative, applicable: true, err: context.DeadlineExceeded},
	)

	ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Millisecond))
	defer cancel()

	batch, err := svc.Recommend(ctx, RecommendationContext{
		SessionID:   "s1",
		UserID:      "u1",
		ContextType: entities.ContextHomepage,
	})

	// A timed-out call fails; no empty batch is served or persisted.
	require.Error(t, err)
	assert.True(t, apperrors.IsTimeout(err))
	assert.Nil(t, batch)
	assert.Empty(t, batches.Batches)
}

func TestRecommendationService_TimeoutDuringAvailabilityCheck(t *testing.T) {
	catalog := recTestCatalog()
	catalog.Err = context.DeadlineExceeded
	svc, batches, _ := newRecService(catalog,
		&fixedStrategy{name: entities.StrategyContentBased, applicable: true, candidates: []ScoredCandidate{
			{ProductID: "p2", Score: 1, Reason: "Similar to items you looked at"},
		}},
	)

	batch, err := svc.Recommend(context.Background(), RecommendationContext{
		SessionID:   "s1",
		ContextType: entities.ContextHomepage,
	})

	require.Error(t, err)
	assert.True(t, apperrors.IsTimeout(err))
	assert.Nil(t, batch)
	assert.Empty(t, batches.Batches)
}

func TestRecommendationService_VendorDiversityCap(t *testing.T) {
	svc, _, _ := newRecService(recTestCatalog(),
		&fixedStrategy{name: entities.StrategyContentBased, applicable: true, candidates: []ScoredCandidate{
			// v1 products scored highest, then one v2 product.
			{ProductID: "p1", Score: 10},
			{ProductID: "p2", Score: 9},
			{ProductID: "p3", Score: 8},
			{ProductID: "p4", Score: 7},
			{ProductID: "p5", Score: 1},
		}},
	)

	batch, err := svc.Recommend(context.Background(), RecommendationContext{
		ContextType: entities.ContextHomepage,
	})

	require.NoError(t, err)
	require.Len(t, batch.Items, 4)

	v1Count := 0
	for _, item := range batch.Items {
		if item.ProductID != "p5" {
			v1Count++
		}
	}
	assert.Equal(t, 3, v1Count, "no more than the cap from one vendor")
	assert.Equal(t, "p5", batch.Items[3].ProductID, "the next vendor's product fills the slot")
}

func TestRecommendationService_FiltersUnavailableProducts(t *testing.T) {
	svc, _, _ := newRecService(recTestCatalog(),
		&fixedStrategy{name: entities.StrategyContentBased, applicable: true, candidates: []ScoredCandidate{
			{ProductID: "p6", Score: 10}, // out of stock
			{ProductID: "p2", Score: 5},
		}},
	)

	batch, err := svc.Recommend(context.Background(), RecommendationContext{ContextType: entities.ContextHomepage})

	require.NoError(t, err)
	require.Len(t, batch.Items, 1)
	assert.Equal(t, "p2", batch.Items[0].ProductID)
}

func TestRecommendationService_ExcludesPurchased(t *testing.T) {
	svc, _, _ := newRecService(recTestCatalog(),
		&fixedStrategy{name: entities.StrategyContentBased, applicable: true, candidates: []ScoredCandidate{
			{ProductID: "p2", Score: 10},
			{ProductID: "p3", Score: 5},
		}},
	)
	svc.SetOrderHistory(&OrderHistoryFake{Purchased: []string{"p2"}})

	batch, err := svc.Recommend(context.Background(), RecommendationContext{
		UserID:      "u1",
		ContextType: entities.ContextHomepage,
	})

	require.NoError(t, err)
	require.Len(t, batch.Items, 1)
	assert.Equal(t, "p3", batch.Items[0].ProductID)
}

func TestRecommendationService_StrategyFailureIsIsolated(t *testing.T) {
	svc, _, _ := newRecService(recTestCatalog(),
		&fixedStrategy{name: entities.StrategyCollaborative, applicable: true, err: assert.AnError},
		&fixedStrategy{name: entities.StrategyContentBased, applicable: true, candidates: []ScoredCandidate{
			{ProductID: "p2", Score: 5},
		}},
	)

	batch, err := svc.Recommend(context.Background(), RecommendationContext{ContextType: entities.ContextHomepage})

	require.NoError(t, err, "one failing strategy must not fail the batch")
	require.Len(t, batch.Items, 1)
	assert.Equal(t, "p2", batch.Items[0].ProductID)
}

func TestRecommendationService_EmptyBatchIsValid(t *testing.T) {
	svc, batches, _ := newRecService(recTestCatalog(),
		&fixedStrategy{name: entities.StrategyCollaborative, applicable: false},
	)

	batch, err := svc.Recommend(context.Background(), RecommendationContext{ContextType: entities.ContextHomepage})

	require.NoError(t, err)
	assert.Empty(t, batch.Items)
	assert.Len(t, batches.Batches, 1, "empty batches are still recorded")
}

func TestRecommendationService_FailsClosedWhenCatalogDown(t *testing.T) {
	catalog := recTestCatalog()
	catalog.Err = apperrors.NewUpstreamUnavailableError("catalog down", assert.AnError)
	svc, _, _ := newRecService(catalog,
		&fixedStrategy{name: entities.StrategyCrossSell, applicable: true, candidates: []ScoredCandidate{
			{ProductID: "p2", Score: 5},
		}},
	)

	_, err := svc.Recommend(context.Background(), RecommendationContext{ContextType: entities.ContextHomepage})

	require.Error(t, err)
	assert.True(t, apperrors.IsUpstreamUnavailable(err))
}

func TestRecommendationService_PersistFailureDegradesSilently(t *testing.T) {
	svc, batches, _ := newRecService(recTestCatalog(),
		&fixedStrategy{name: entities.StrategyContentBased, applicable: true, candidates: []ScoredCandidate{
			{ProductID: "p2", Score: 5},
		}},
	)
	batches.CreateErr = assert.AnError

	batch, err := svc.Recommend(context.Background(), RecommendationContext{ContextType: entities.ContextHomepage})

	require.NoError(t, err)
	assert.Len(t, batch.Items, 1)
}

func TestRecommendationService_BatchesAreImmutableHistory(t *testing.T) {
	svc, batches, _ := newRecService(recTestCatalog(),
		&fixedStrategy{name: entities.StrategyContentBased, applicable: true, candidates: []ScoredCandidate{
			{ProductID: "p2", Score: 5},
		}},
	)

	rc := RecommendationContext{UserID: "u1", ContextType: entities.ContextHomepage}
	first, err := svc.Recommend(context.Background(), rc)
	require.NoError(t, err)
	second, err := svc.Recommend(context.Background(), rc)
	require.NoError(t, err)

	assert.NotEqual(t, first.ID, second.ID)
	assert.Len(t, batches.Batches, 2, "a new batch supersedes, never overwrites")

	latest, err := svc.Latest(context.Background(), "u1", entities.ContextHomepage)
	require.NoError(t, err)
	assert.Equal(t, second.ID, latest.ID)
}
