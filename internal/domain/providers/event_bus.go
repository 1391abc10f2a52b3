package providers

import (
	"context"

	"github.com/zatekoja/marketdiscovery/internal/domain/entities"
)

// EventBus defines the interface for publishing and subscribing to catalog
// change events, the explicit invalidation trigger for derived caches.
type EventBus interface {
	// Publish publishes an event to all subscribers
	Publish(ctx context.Context, channel string, event *entities.CatalogEvent) error

	// Subscribe subscribes to events on a channel
	Subscribe(ctx context.Context, channel string) (<-chan *entities.CatalogEvent, error)

	// Unsubscribe unsubscribes from a channel
	Unsubscribe(ctx context.Context, channel string) error

	// Close closes the event bus and all subscriptions
	Close() error
}

const (
	// EventChannelCatalogUpdates is the channel for all catalog changes
	EventChannelCatalogUpdates = "catalog:updates"

	// EventChannelCategoryPrefix is the prefix for per-category channels
	EventChannelCategoryPrefix = "catalog:category:"
)

// GetCategoryChannel returns the channel name for a specific category
func GetCategoryChannel(category string) string {
	return EventChannelCategoryPrefix + category
}
