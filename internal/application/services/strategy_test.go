package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zatekoja/marketdiscovery/internal/domain/entities"
	"github.com/zatekoja/marketdiscovery/internal/domain/providers"
)

func TestCollaborativeStrategy_RequiresHistory(t *testing.T) {
	events := &EventLogFake{
		UserCounts: map[string]int{"u1": 2}, // below the floor of 3
	}
	strategy := NewCollaborativeStrategy(events, recTestConfig())

	assert.False(t, strategy.Applicable(RecommendationContext{}))
	assert.True(t, strategy.Applicable(RecommendationContext{UserID: "u1"}))

	candidates, err := strategy.GenerateCandidates(context.Background(), RecommendationContext{UserID: "u1"})

	require.NoError(t, err)
	assert.Empty(t, candidates, "thin history yields no collaborative signal")
}

func TestCollaborativeStrategy_ScoresCoInteractions(t *testing.T) {
	events := &EventLogFake{
		UserCounts: map[string]int{"u1": 10},
		UserRecent: map[string][]string{"u1": {"p1", "p2"}},
		CoCounts: map[string]map[string]int{
			"p1": {"p3": 12, "p2": 40},
			"p2": {"p3": 5, "p4": 2},
		},
	}
	strategy := NewCollaborativeStrategy(events, recTestConfig())

	candidates, err := strategy.GenerateCandidates(context.Background(), RecommendationContext{UserID: "u1"})

	require.NoError(t, err)
	scores := make(map[string]float64)
	for _, c := range candidates {
		scores[c.ProductID] = c.Score
	}
	assert.Equal(t, 17.0, scores["p3"], "counts accumulate across seed products")
	assert.Equal(t, 2.0, scores["p4"])
	assert.NotContains(t, scores, "p2", "seed products are never their own candidates")
}

func TestContentBasedStrategy_SimilarToAnchor(t *testing.T) {
	catalog := recTestCatalog()
	strategy := NewContentBasedStrategy(catalog, &EventLogFake{}, recTestConfig())

	candidates, err := strategy.GenerateCandidates(context.Background(), RecommendationContext{
		AnchorProductID: "p3", // charger, 30
	})

	require.NoError(t, err)
	require.NotEmpty(t, candidates)
	for _, c := range candidates {
		assert.NotEqual(t, "p3", c.ProductID)
		// Price band: half to double the anchor price.
		p, getErr := catalog.GetProduct(context.Background(), c.ProductID)
		require.NoError(t, getErr)
		assert.GreaterOrEqual(t, p.Price, 15.0)
		assert.LessOrEqual(t, p.Price, 60.0)
	}
}

func TestContentBasedStrategy_ColdStartIsNonEmpty(t *testing.T) {
	strategy := NewContentBasedStrategy(recTestCatalog(), &EventLogFake{}, recTestConfig())

	candidates, err := strategy.GenerateCandidates(context.Background(), RecommendationContext{
		ContextType: entities.ContextHomepage,
	})

	require.NoError(t, err)
	assert.NotEmpty(t, candidates, "a requester with no history still gets candidates")
}

func TestContentBasedStrategy_ProfileTagsBoostColdStart(t *testing.T) {
	created := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	catalog := &CatalogFake{Products: []*entities.ProductSummary{
		{ID: "p1", Name: "Road Bike", Category: "sports", VendorID: "v1", Price: 700, Rating: 4.2, ReviewCount: 50, InStock: true, IsActive: true, Tags: []string{"cycling"}, CreatedAt: created},
		{ID: "p2", Name: "Tent", Category: "sports", VendorID: "v1", Price: 150, Rating: 4.2, ReviewCount: 50, InStock: true, IsActive: true, Tags: []string{"camping"}, CreatedAt: created},
	}}
	identity := &IdentityFake{Profiles: map[string]*providers.UserProfile{
		"u1": {UserID: "u1", PreferenceTags: []string{"cycling"}},
	}}
	strategy := NewContentBasedStrategy(catalog, &EventLogFake{}, recTestConfig())
	strategy.SetIdentity(identity)

	candidates, err := strategy.GenerateCandidates(context.Background(), RecommendationContext{
		UserID:      "u1",
		ContextType: entities.ContextHomepage,
	})

	require.NoError(t, err)
	scores := make(map[string]float64)
	for _, c := range candidates {
		scores[c.ProductID] = c.Score
	}
	assert.Greater(t, scores["p1"], scores["p2"], "preferred tags outrank equal popularity")

	// Identity lookups are best effort: a failing provider never fails the strategy.
	strategy.SetIdentity(&IdentityFake{Err: assert.AnError})
	candidates, err = strategy.GenerateCandidates(context.Background(), RecommendationContext{
		UserID:      "u1",
		ContextType: entities.ContextHomepage,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, candidates)
}

func TestCrossSellStrategy_OrdersByCoPurchaseCount(t *testing.T) {
	events := &EventLogFake{
		CoCounts: map[string]map[string]int{
			"p1": {"p2": 30, "p3": 2},
		},
	}
	strategy := NewCrossSellStrategy(events, recTestConfig())

	assert.False(t, strategy.Applicable(RecommendationContext{}))

	candidates, err := strategy.GenerateCandidates(context.Background(), RecommendationContext{AnchorProductID: "p1"})

	require.NoError(t, err)
	require.Len(t, candidates, 2)
	scores := make(map[string]float64)
	for _, c := range candidates {
		scores[c.ProductID] = c.Score
		assert.Equal(t, "Frequently bought together", c.Reason)
	}
	assert.Greater(t, scores["p2"], scores["p3"], "30 co-purchases outrank 2")
}

func TestCrossSellStrategy_CartAnchors(t *testing.T) {
	events := &EventLogFake{
		CoCounts: map[string]map[string]int{
			"p1": {"p3": 4},
			"p2": {"p3": 6, "p1": 9},
		},
	}
	strategy := NewCrossSellStrategy(events, recTestConfig())

	candidates, err := strategy.GenerateCandidates(context.Background(), RecommendationContext{
		CartProductIDs: []string{"p1", "p2"},
	})

	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, "p3", candidates[0].ProductID)
	assert.Equal(t, 10.0, candidates[0].Score, "cart items accumulate, cart members excluded")
}

func TestTrendingStrategy_UsesSnapshot(t *testing.T) {
	events := &EventLogFake{
		CategoryFn: func(from, to time.Time) map[string]int {
			if time.Since(to) < time.Hour {
				return map[string]int{"electronics": 50}
			}
			return map[string]int{"electronics": 10}
		},
	}
	detector := NewTrendDetector(events, &TrendingRepoFake{}, trendTestConfig())
	strategy := NewTrendingStrategy(detector, recTestCatalog())

	// Before any refresh the snapshot is empty.
	candidates, err := strategy.GenerateCandidates(context.Background(), RecommendationContext{})
	require.NoError(t, err)
	assert.Empty(t, candidates)

	require.NoError(t, detector.Refresh(context.Background()))

	candidates, err = strategy.GenerateCandidates(context.Background(), RecommendationContext{})
	require.NoError(t, err)
	require.NotEmpty(t, candidates)
	for _, c := range candidates {
		assert.Equal(t, "Popular right now", c.Reason)
	}
}
