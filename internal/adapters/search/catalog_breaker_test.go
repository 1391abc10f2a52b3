package search

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/zatekoja/marketdiscovery/internal/domain/entities"
	apperrors "github.com/zatekoja/marketdiscovery/pkg/errors"
)

type flakyCatalog struct {
	err      error
	calls    int
	products []*entities.ProductSummary
}

func (f *flakyCatalog) FindProducts(ctx context.Context, criteria entities.ProductCriteria) ([]*entities.ProductSummary, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.products, nil
}

func (f *flakyCatalog) GetProduct(ctx context.Context, id string) (*entities.ProductSummary, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	for _, p := range f.products {
		if p.ID == id {
			return p, nil
		}
	}
	return nil, apperrors.NewNotFoundError("product not found")
}

func (f *flakyCatalog) GetProducts(ctx context.Context, ids []string) ([]*entities.ProductSummary, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.products, nil
}

func TestBreakerCatalog_PassesThroughResults(t *testing.T) {
	inner := &flakyCatalog{
		products: []*entities.ProductSummary{{ID: "p1", Name: "Widget"}},
	}
	catalog := NewBreakerCatalog(inner)

	products, err := catalog.FindProducts(context.Background(), entities.ProductCriteria{})

	assert.NoError(t, err)
	assert.Len(t, products, 1)
	assert.Equal(t, "p1", products[0].ID)
}

func TestBreakerCatalog_OpensAfterConsecutiveFailures(t *testing.T) {
	inner := &flakyCatalog{err: errors.New("index down")}
	catalog := NewBreakerCatalog(inner)

	for i := 0; i < 5; i++ {
		_, err := catalog.FindProducts(context.Background(), entities.ProductCriteria{})
		assert.Error(t, err)
	}

	callsBefore := inner.calls
	_, err := catalog.FindProducts(context.Background(), entities.ProductCriteria{})

	assert.Error(t, err)
	assert.True(t, apperrors.IsUpstreamUnavailable(err))
	assert.Equal(t, callsBefore, inner.calls, "open circuit should not reach the inner catalog")
}

func TestBreakerCatalog_NotFoundDoesNotTrip(t *testing.T) {
	inner := &flakyCatalog{}
	catalog := NewBreakerCatalog(inner)

	for i := 0; i < 10; i++ {
		_, err := catalog.GetProduct(context.Background(), "missing")
		assert.True(t, apperrors.IsNotFound(err))
	}

	assert.Equal(t, 10, inner.calls, "not found answers must keep the circuit closed")
}
