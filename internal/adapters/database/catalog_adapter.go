package database

import (
	"context"
	"database/sql"
	"strings"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/lib/pq"
	"github.com/zatekoja/marketdiscovery/internal/domain/entities"
	"github.com/zatekoja/marketdiscovery/internal/domain/providers"
	"github.com/zatekoja/marketdiscovery/internal/infrastructure/clients/postgres"
	apperrors "github.com/zatekoja/marketdiscovery/pkg/errors"
)

const catalogColumns = "id, name, description, category, price, rating, review_count, in_stock, is_active, vendor_id, tags, created_at"

// CatalogAdapter implements CatalogProvider against the products read model.
// The table is owned and written by the external catalog service; this
// adapter only reads it, and serves as the fallback when the search index is
// unavailable.
type CatalogAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewCatalogAdapter creates a new catalog read adapter
func NewCatalogAdapter(client *postgres.Client) providers.CatalogProvider {
	return &CatalogAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

// FindProducts returns products matching the criteria
func (a *CatalogAdapter) FindProducts(ctx context.Context, criteria entities.ProductCriteria) ([]*entities.ProductSummary, error) {
	ds := a.db.Select(goqu.L(catalogColumns)).From("products")

	var conditions []goqu.Expression
	if len(criteria.Terms) > 0 {
		var termExprs []goqu.Expression
		for _, term := range criteria.Terms {
			pattern := "%" + strings.ToLower(term) + "%"
			termExprs = append(termExprs, goqu.Or(
				goqu.C("name").ILike(pattern),
				goqu.C("description").ILike(pattern),
				goqu.C("category").ILike(pattern),
				goqu.L("EXISTS (SELECT 1 FROM unnest(tags) tag WHERE tag ILIKE ?)", pattern),
			))
		}
		// Terms are ORed: any matching term qualifies a product
		conditions = append(conditions, goqu.Or(termExprs...))
	}
	if len(criteria.Categories) > 0 {
		conditions = append(conditions, goqu.C("category").In(criteria.Categories))
	}
	if len(criteria.VendorIDs) > 0 {
		conditions = append(conditions, goqu.C("vendor_id").In(criteria.VendorIDs))
	}
	if criteria.PriceMin != nil {
		conditions = append(conditions, goqu.C("price").Gte(*criteria.PriceMin))
	}
	if criteria.PriceMax != nil {
		conditions = append(conditions, goqu.C("price").Lt(*criteria.PriceMax))
	}
	if criteria.RatingMin != nil {
		conditions = append(conditions, goqu.C("rating").Gte(*criteria.RatingMin))
	}
	if criteria.InStock {
		conditions = append(conditions, goqu.C("in_stock").IsTrue())
	}
	if criteria.ActiveOnly {
		conditions = append(conditions, goqu.C("is_active").IsTrue())
	}
	if len(conditions) > 0 {
		ds = ds.Where(conditions...)
	}

	ds = ds.Order(goqu.C("id").Asc())
	if criteria.Limit > 0 {
		ds = ds.Limit(uint(criteria.Limit))
	}

	query, args, err := ds.ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build product query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewUpstreamUnavailableError("catalog lookup failed", err)
	}
	defer rows.Close()

	return scanProducts(rows)
}

// GetProduct returns a single product by id
func (a *CatalogAdapter) GetProduct(ctx context.Context, id string) (*entities.ProductSummary, error) {
	products, err := a.GetProducts(ctx, []string{id})
	if err != nil {
		return nil, err
	}
	if len(products) == 0 {
		return nil, apperrors.NewNotFoundError("product not found")
	}
	return products[0], nil
}

// GetProducts returns the products for the given ids, skipping unknown ids
func (a *CatalogAdapter) GetProducts(ctx context.Context, ids []string) ([]*entities.ProductSummary, error) {
	if len(ids) == 0 {
		return []*entities.ProductSummary{}, nil
	}

	query, args, err := a.db.Select(goqu.L(catalogColumns)).
		From("products").
		Where(goqu.Ex{"id": ids}).
		Order(goqu.C("id").Asc()).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build product lookup", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewUpstreamUnavailableError("catalog lookup failed", err)
	}
	defer rows.Close()

	return scanProducts(rows)
}

func scanProducts(rows *sql.Rows) ([]*entities.ProductSummary, error) {
	var products []*entities.ProductSummary
	for rows.Next() {
		p := &entities.ProductSummary{}
		var description sql.NullString
		err := rows.Scan(
			&p.ID,
			&p.Name,
			&description,
			&p.Category,
			&p.Price,
			&p.Rating,
			&p.ReviewCount,
			&p.InStock,
			&p.IsActive,
			&p.VendorID,
			pq.Array(&p.Tags),
			&p.CreatedAt,
		)
		if err != nil {
			return nil, apperrors.NewInternalError("failed to scan product", err)
		}
		p.Description = description.String
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("failed to iterate products", err)
	}
	return products, nil
}
