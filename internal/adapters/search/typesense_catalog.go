package search

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/typesense/typesense-go/v2/typesense/api"
	"github.com/typesense/typesense-go/v2/typesense/api/pointer"
	"github.com/zatekoja/marketdiscovery/internal/domain/entities"
	"github.com/zatekoja/marketdiscovery/internal/domain/providers"
	tsclient "github.com/zatekoja/marketdiscovery/internal/infrastructure/clients/typesense"
	apperrors "github.com/zatekoja/marketdiscovery/pkg/errors"
)

const collectionName = tsclient.ProductsCollection

// TypesenseCatalog implements CatalogProvider against the external Typesense
// product index.
type TypesenseCatalog struct {
	client *tsclient.Client
}

// Ensure TypesenseCatalog implements CatalogProvider
var _ providers.CatalogProvider = (*TypesenseCatalog)(nil)

// NewTypesenseCatalog creates a new Typesense-backed catalog adapter
func NewTypesenseCatalog(client *tsclient.Client) *TypesenseCatalog {
	return &TypesenseCatalog{client: client}
}

// Index upserts a product document into the index
func (a *TypesenseCatalog) Index(ctx context.Context, product *entities.ProductSummary) error {
	document := map[string]interface{}{
		"id":           product.ID,
		"name":         product.Name,
		"description":  product.Description,
		"category":     product.Category,
		"price":        product.Price,
		"rating":       product.Rating,
		"review_count": product.ReviewCount,
		"in_stock":     product.InStock,
		"is_active":    product.IsActive,
		"vendor_id":    product.VendorID,
		"tags":         product.Tags,
		"created_at":   product.CreatedAt.Unix(),
	}

	_, err := a.client.Client().Collection(collectionName).Documents().Upsert(ctx, document)
	if err != nil {
		return fmt.Errorf("failed to index product: %w", err)
	}

	return nil
}

// Delete removes a product from the index
func (a *TypesenseCatalog) Delete(ctx context.Context, id string) error {
	_, err := a.client.Client().Collection(collectionName).Document(id).Delete(ctx)
	if err != nil {
		return fmt.Errorf("failed to delete product from index: %w", err)
	}
	return nil
}

// FindProducts returns products matching the criteria
func (a *TypesenseCatalog) FindProducts(ctx context.Context, criteria entities.ProductCriteria) ([]*entities.ProductSummary, error) {
	q := "*"
	if len(criteria.Terms) > 0 {
		q = strings.Join(criteria.Terms, " ")
	}

	limit := criteria.Limit
	if limit <= 0 || limit > 250 {
		limit = 250
	}

	searchParams := &api.SearchCollectionParams{
		Q:       pointer.String(q),
		QueryBy: pointer.String("name,description,category,tags"),
		Page:    pointer.Int(1),
		PerPage: pointer.Int(limit),
	}
	if filter := buildFilterBy(criteria); filter != "" {
		searchParams.FilterBy = pointer.String(filter)
	}

	result, err := a.client.Client().Collection(collectionName).Documents().Search(ctx, searchParams)
	if err != nil {
		return nil, apperrors.NewUpstreamUnavailableError("product index search failed", err)
	}

	products := []*entities.ProductSummary{}
	if result.Hits == nil {
		return products, nil
	}
	for _, hit := range *result.Hits {
		if hit.Document == nil {
			continue
		}
		products = append(products, documentToProduct(*hit.Document))
	}

	return products, nil
}

// GetProduct returns a single product by id
func (a *TypesenseCatalog) GetProduct(ctx context.Context, id string) (*entities.ProductSummary, error) {
	doc, err := a.client.Client().Collection(collectionName).Document(id).Retrieve(ctx)
	if err != nil {
		return nil, apperrors.NewNotFoundError("product not found")
	}
	return documentToProduct(doc), nil
}

// GetProducts returns the products for the given ids, skipping unknown ids
func (a *TypesenseCatalog) GetProducts(ctx context.Context, ids []string) ([]*entities.ProductSummary, error) {
	if len(ids) == 0 {
		return []*entities.ProductSummary{}, nil
	}

	filter := fmt.Sprintf("id:=[%s]", strings.Join(ids, ","))
	searchParams := &api.SearchCollectionParams{
		Q:        pointer.String("*"),
		QueryBy:  pointer.String("name"),
		FilterBy: pointer.String(filter),
		PerPage:  pointer.Int(len(ids)),
	}

	result, err := a.client.Client().Collection(collectionName).Documents().Search(ctx, searchParams)
	if err != nil {
		return nil, apperrors.NewUpstreamUnavailableError("product index lookup failed", err)
	}

	products := []*entities.ProductSummary{}
	if result.Hits == nil {
		return products, nil
	}
	for _, hit := range *result.Hits {
		if hit.Document == nil {
			continue
		}
		products = append(products, documentToProduct(*hit.Document))
	}

	return products, nil
}

func buildFilterBy(criteria entities.ProductCriteria) string {
	var parts []string
	if len(criteria.Categories) > 0 {
		parts = append(parts, fmt.Sprintf("category:=[%s]", strings.Join(criteria.Categories, ",")))
	}
	if len(criteria.VendorIDs) > 0 {
		parts = append(parts, fmt.Sprintf("vendor_id:=[%s]", strings.Join(criteria.VendorIDs, ",")))
	}
	if criteria.PriceMin != nil {
		parts = append(parts, fmt.Sprintf("price:>=%f", *criteria.PriceMin))
	}
	if criteria.PriceMax != nil {
		parts = append(parts, fmt.Sprintf("price:<%f", *criteria.PriceMax))
	}
	if criteria.RatingMin != nil {
		parts = append(parts, fmt.Sprintf("rating:>=%f", *criteria.RatingMin))
	}
	if criteria.InStock {
		parts = append(parts, "in_stock:=true")
	}
	if criteria.ActiveOnly {
		parts = append(parts, "is_active:=true")
	}
	return strings.Join(parts, " && ")
}

// documentToProduct reconstructs a ProductSummary from a Typesense document.
// Typesense returns map[string]interface{}, so every field is cast safely.
func documentToProduct(doc map[string]interface{}) *entities.ProductSummary {
	p := &entities.ProductSummary{}
	if v, ok := doc["id"].(string); ok {
		p.ID = v
	}
	if v, ok := doc["name"].(string); ok {
		p.Name = v
	}
	if v, ok := doc["description"].(string); ok {
		p.Description = v
	}
	if v, ok := doc["category"].(string); ok {
		p.Category = v
	}
	if v, ok := doc["price"].(float64); ok {
		p.Price = v
	}
	if v, ok := doc["rating"].(float64); ok {
		p.Rating = v
	}
	if v, ok := doc["review_count"].(float64); ok {
		p.ReviewCount = int(v)
	}
	if v, ok := doc["in_stock"].(bool); ok {
		p.InStock = v
	}
	if v, ok := doc["is_active"].(bool); ok {
		p.IsActive = v
	}
	if v, ok := doc["vendor_id"].(string); ok {
		p.VendorID = v
	}
	if tags, ok := doc["tags"].([]interface{}); ok {
		for _, t := range tags {
			if s, ok := t.(string); ok {
				p.Tags = append(p.Tags, s)
			}
		}
	}
	if v, ok := doc["created_at"].(float64); ok {
		p.CreatedAt = time.Unix(int64(v), 0).UTC()
	}
	return p
}
