package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/zatekoja/marketdiscovery/internal/adapters/cache"
	"github.com/zatekoja/marketdiscovery/internal/adapters/database"
	"github.com/zatekoja/marketdiscovery/internal/adapters/events"
	"github.com/zatekoja/marketdiscovery/internal/adapters/search"
	"github.com/zatekoja/marketdiscovery/internal/application/services"
	"github.com/zatekoja/marketdiscovery/internal/domain/entities"
	"github.com/zatekoja/marketdiscovery/internal/domain/providers"
	"github.com/zatekoja/marketdiscovery/internal/infrastructure/clients/postgres"
	"github.com/zatekoja/marketdiscovery/internal/infrastructure/clients/redis"
	"github.com/zatekoja/marketdiscovery/internal/infrastructure/clients/typesense"
	"github.com/zatekoja/marketdiscovery/pkg/config"
)

const indexBatchLimit = 10000

func main() {
	var reset bool
	var intervalFlag string
	flag.BoolVar(&reset, "reset", false, "delete the existing Typesense collection before reindexing")
	flag.StringVar(&intervalFlag, "interval", "", "repeat interval for reindexing (e.g. 6h, 30m)")
	flag.Parse()

	intervalValue := strings.TrimSpace(intervalFlag)
	if intervalValue == "" {
		intervalValue = strings.TrimSpace(os.Getenv("REINDEX_INTERVAL"))
	}

	var interval time.Duration
	var err error
	if intervalValue != "" {
		interval, err = time.ParseDuration(intervalValue)
		if err != nil {
			log.Fatalf("Invalid interval %q: %v", intervalValue, err)
		}
		if interval <= 0 {
			log.Fatalf("Interval must be greater than zero")
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	for {
		if err := indexOnce(ctx, reset); err != nil {
			log.Printf("Reindex failed: %v", err)
		}

		if interval <= 0 {
			break
		}

		reset = false
		log.Printf("Reindex complete. Next run in %s.", interval)

		select {
		case <-ctx.Done():
			log.Println("Indexer shutting down")
			return
		case <-time.After(interval):
		}
	}
}

func indexOnce(ctx context.Context, reset bool) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	pgClient, err := postgres.NewClient(&cfg.Database)
	if err != nil {
		return err
	}
	defer pgClient.Close()

	tsClient, err := typesense.NewClient(&cfg.Typesense)
	if err != nil {
		return err
	}

	redisClient, err := redis.NewClient(&cfg.Redis)
	if err != nil {
		return err
	}
	defer redisClient.Close()

	if reset || os.Getenv("RESET_TYPESENSE") == "true" {
		log.Println("Dropping products collection before reindex")
		if err := tsClient.DropCollection(ctx); err != nil {
			log.Printf("Warning: failed to drop collection: %v", err)
		}
	}

	if err := tsClient.InitSchema(ctx); err != nil {
		return err
	}

	catalog := database.NewCatalogAdapter(pgClient)
	index := search.NewTypesenseCatalog(tsClient)
	cacheProvider := cache.NewRedisAdapter(redisClient)
	eventBus := events.NewRedisEventBus(redisClient)
	defer eventBus.Close()

	products, err := catalog.FindProducts(ctx, entities.ProductCriteria{Limit: indexBatchLimit})
	if err != nil {
		return err
	}

	log.Printf("Indexing %d products...", len(products))

	indexed := 0
	vocabulary := make(map[string]int)
	for _, p := range products {
		if err := index.Index(ctx, p); err != nil {
			log.Printf("Failed to index product %s: %v", p.ID, err)
			continue
		}
		indexed++
		addVocabularyTerms(vocabulary, p)
	}

	if err := storeVocabulary(ctx, cacheProvider, vocabulary); err != nil {
		log.Printf("Warning: failed to store search vocabulary: %v", err)
	}

	event := &entities.CatalogEvent{
		ID:         uuid.New().String(),
		Type:       entities.CatalogEventReindexed,
		OccurredAt: time.Now().UTC(),
	}
	if err := eventBus.Publish(ctx, providers.EventChannelCatalogUpdates, event); err != nil {
		log.Printf("Warning: failed to publish reindex event: %v", err)
	}

	log.Printf("Indexing complete: %d/%d products, %d vocabulary terms.", indexed, len(products), len(vocabulary))
	return nil
}

// addVocabularyTerms counts how many products mention each term. The counts
// back spell correction: a term is trusted in proportion to its catalog
// presence.
func addVocabularyTerms(vocabulary map[string]int, p *entities.ProductSummary) {
	seen := make(map[string]struct{})
	fields := append([]string{p.Name, p.Category}, p.Tags...)
	for _, field := range fields {
		for _, term := range strings.Fields(strings.ToLower(field)) {
			if len(term) < 2 {
				continue
			}
			if _, dup := seen[term]; dup {
				continue
			}
			seen[term] = struct{}{}
			vocabulary[term]++
		}
	}
}

func storeVocabulary(ctx context.Context, cacheProvider providers.CacheProvider, vocabulary map[string]int) error {
	data, err := json.Marshal(vocabulary)
	if err != nil {
		return err
	}
	// A day outlives the reindex cadence; a stale vocabulary only weakens
	// spell correction, never breaks search.
	return cacheProvider.Set(ctx, services.VocabularyCacheKey, data, 86400)
}
