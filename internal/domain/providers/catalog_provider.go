package providers

import (
	"context"

	"github.com/zatekoja/marketdiscovery/internal/domain/entities"
)

// CatalogProvider is the read-only interface to the external product catalog.
// Catalog writes belong to the catalog owner; the discovery core only looks
// products up.
type CatalogProvider interface {
	// FindProducts returns products matching the criteria
	FindProducts(ctx context.Context, criteria entities.ProductCriteria) ([]*entities.ProductSummary, error)

	// GetProduct returns a single product by id
	GetProduct(ctx context.Context, id string) (*entities.ProductSummary, error)

	// GetProducts returns the products for the given ids, skipping unknown ids
	GetProducts(ctx context.Context, ids []string) ([]*entities.ProductSummary, error)
}
