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

func TestCacheInvalidation_CatalogUpdateDropsCandidates(t *testing.T) {
	cache := NewMemoryCacheFake()
	bus := NewEventBusFake()
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, candidateCachePrefix+"abc", []byte("x"), 300))
	require.NoError(t, cache.Set(ctx, queryCachePrefix+"headphones", []byte("y"), 300))

	svc := NewCacheInvalidationService(cache, bus)
	require.NoError(t, svc.Start())
	defer svc.Stop()

	require.NoError(t, bus.Publish(ctx, providers.EventChannelCatalogUpdates, &entities.CatalogEvent{
		ID:        "e1",
		Type:      entities.CatalogEventUpdated,
		ProductID: "p1",
	}))

	assert.Eventually(t, func() bool {
		ok, _ := cache.Exists(ctx, candidateCachePrefix+"abc")
		return !ok
	}, time.Second, 10*time.Millisecond)

	// Query interpretations survive ordinary product updates.
	ok, _ := cache.Exists(ctx, queryCachePrefix+"headphones")
	assert.True(t, ok)
}

func TestCacheInvalidation_ReindexDropsInterpretations(t *testing.T) {
	cache := NewMemoryCacheFake()
	bus := NewEventBusFake()
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, queryCachePrefix+"headphones", []byte("y"), 300))

	svc := NewCacheInvalidationService(cache, bus)
	require.NoError(t, svc.Start())
	defer svc.Stop()

	require.NoError(t, bus.Publish(ctx, providers.EventChannelCatalogUpdates, &entities.CatalogEvent{
		ID:   "e2",
		Type: entities.CatalogEventReindexed,
	}))

	assert.Eventually(t, func() bool {
		ok, _ := cache.Exists(ctx, queryCachePrefix+"headphones")
		return !ok
	}, time.Second, 10*time.Millisecond)
}

func TestCacheInvalidation_ExplicitInvalidation(t *testing.T) {
	cache := NewMemoryCacheFake()
	ctx := context.Background()
	require.NoError(t, cache.Set(ctx, candidateCachePrefix+"abc", []byte("x"), 300))
	require.NoError(t, cache.Set(ctx, queryCachePrefix+"headphones", []byte("y"), 300))

	svc := NewCacheInvalidationService(cache, NewEventBusFake())
	require.NoError(t, svc.InvalidateSearchCaches(ctx))

	assert.Zero(t, cache.Len())
}
