package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/zatekoja/marketdiscovery/internal/domain/entities"
	"github.com/zatekoja/marketdiscovery/internal/domain/providers"
)

const queryCachePrefix = "query:proc:"

// CacheInvalidationService listens for catalog-change events and drops the
// derived caches they invalidate. Query interpretation caches survive product
// updates; only candidate sets depend on catalog contents.
type CacheInvalidationService struct {
	cache    providers.CacheProvider
	eventBus providers.EventBus
	ctx      context.Context
	cancel   context.CancelFunc
}

// NewCacheInvalidationService creates a new cache invalidation service
func NewCacheInvalidationService(cache providers.CacheProvider, eventBus providers.EventBus) *CacheInvalidationService {
	ctx, cancel := context.WithCancel(context.Background())
	return &CacheInvalidationService{
		cache:    cache,
		eventBus: eventBus,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start begins listening for catalog events and invalidating caches
func (s *CacheInvalidationService) Start() error {
	eventChan, err := s.eventBus.Subscribe(s.ctx, providers.EventChannelCatalogUpdates)
	if err != nil {
		return fmt.Errorf("failed to subscribe to catalog updates: %w", err)
	}

	go s.processEvents(eventChan)
	log.Println("Cache invalidation service started")
	return nil
}

// Stop stops the cache invalidation service
func (s *CacheInvalidationService) Stop() {
	s.cancel()
	log.Println("Cache invalidation service stopped")
}

func (s *CacheInvalidationService) processEvents(eventChan <-chan *entities.CatalogEvent) {
	for {
		select {
		case <-s.ctx.Done():
			return
		case event := <-eventChan:
			if event == nil {
				continue
			}
			s.handleEvent(event)
		}
	}
}

// handleEvent drops candidate caches after a catalog change. Candidate keys
// are fingerprints of (query, filters); they cannot be enumerated per
// product, so any catalog change clears the whole candidate namespace.
func (s *CacheInvalidationService) handleEvent(event *entities.CatalogEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	log.Printf("Processing cache invalidation for catalog event: %s (product: %s, type: %s)",
		event.ID, event.ProductID, event.Type)

	if err := s.cache.DeleteByPrefix(ctx, candidateCachePrefix); err != nil {
		log.Printf("Warning: failed to invalidate candidate caches: %v", err)
	}

	if event.Type == entities.CatalogEventReindexed {
		// A reindex can change which terms exist, so interpretations go too.
		if err := s.cache.DeleteByPrefix(ctx, queryCachePrefix); err != nil {
			log.Printf("Warning: failed to invalidate query caches: %v", err)
		}
	}
}

// InvalidateSearchCaches drops every search-derived cache. Intended for
// maintenance and bulk catalog loads.
func (s *CacheInvalidationService) InvalidateSearchCaches(ctx context.Context) error {
	for _, prefix := range []string{candidateCachePrefix, queryCachePrefix} {
		if err := s.cache.DeleteByPrefix(ctx, prefix); err != nil {
			return fmt.Errorf("failed to invalidate prefix %s: %w", prefix, err)
		}
		log.Printf("Invalidated cache prefix: %s", prefix)
	}
	return nil
}
