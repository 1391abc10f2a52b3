package search

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/sony/gobreaker"
	"github.com/zatekoja/marketdiscovery/internal/domain/entities"
	"github.com/zatekoja/marketdiscovery/internal/domain/providers"
	apperrors "github.com/zatekoja/marketdiscovery/pkg/errors"
)

// BreakerCatalog wraps a CatalogProvider with a circuit breaker so a
// struggling product index sheds load instead of stalling every search.
// While the circuit is open every call fails fast with an upstream
// unavailable error and callers fall back to cached results.
type BreakerCatalog struct {
	inner providers.CatalogProvider
	cb    *gobreaker.CircuitBreaker
}

var _ providers.CatalogProvider = (*BreakerCatalog)(nil)

// NewBreakerCatalog wraps the given catalog provider with a circuit breaker.
// The circuit opens after 5 consecutive failures and probes again after 30s.
func NewBreakerCatalog(inner providers.CatalogProvider) *BreakerCatalog {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "catalog",
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful: func(err error) bool {
			// A missing product is a valid answer, not an index outage.
			return err == nil || apperrors.IsNotFound(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Printf("Catalog circuit breaker %s: %s -> %s", name, from.String(), to.String())
		},
	})
	return &BreakerCatalog{inner: inner, cb: cb}
}

func (b *BreakerCatalog) execute(fn func() (interface{}, error)) (interface{}, error) {
	result, err := b.cb.Execute(fn)
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, apperrors.NewUpstreamUnavailableError("product catalog circuit open", err)
		}
		return nil, err
	}
	return result, nil
}

// FindProducts returns products matching the criteria
func (b *BreakerCatalog) FindProducts(ctx context.Context, criteria entities.ProductCriteria) ([]*entities.ProductSummary, error) {
	result, err := b.execute(func() (interface{}, error) {
		return b.inner.FindProducts(ctx, criteria)
	})
	if err != nil {
		return nil, err
	}
	return result.([]*entities.ProductSummary), nil
}

// GetProduct returns a single product by id
func (b *BreakerCatalog) GetProduct(ctx context.Context, id string) (*entities.ProductSummary, error) {
	result, err := b.execute(func() (interface{}, error) {
		return b.inner.GetProduct(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	return result.(*entities.ProductSummary), nil
}

// GetProducts returns the products for the given ids, skipping unknown ids
func (b *BreakerCatalog) GetProducts(ctx context.Context, ids []string) ([]*entities.ProductSummary, error) {
	result, err := b.execute(func() (interface{}, error) {
		return b.inner.GetProducts(ctx, ids)
	})
	if err != nil {
		return nil, err
	}
	return result.([]*entities.ProductSummary), nil
}
