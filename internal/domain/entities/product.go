package entities

import (
	"time"
)

// ProductSummary is the read-only view of a catalog entry exposed by the
// external catalog collaborator. The discovery core references products by id
// and never owns or mutates them.
type ProductSummary struct {
	ID          string    `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Description string    `json:"description" db:"description"`
	Category    string    `json:"category" db:"category"`
	Price       float64   `json:"price" db:"price"`
	Rating      float64   `json:"rating" db:"rating"`
	ReviewCount int       `json:"review_count" db:"review_count"`
	InStock     bool      `json:"in_stock" db:"in_stock"`
	IsActive    bool      `json:"is_active" db:"is_active"`
	VendorID    string    `json:"vendor_id" db:"vendor_id"`
	Tags        []string  `json:"tags,omitempty" db:"tags"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// Available reports whether the product may appear in served results.
func (p *ProductSummary) Available() bool {
	return p.InStock && p.IsActive
}

// ProductCriteria describes a catalog lookup. Terms are ORed against the
// textual fields; the remaining fields are conjunctive filters.
type ProductCriteria struct {
	Terms      []string
	Categories []string
	VendorIDs  []string
	PriceMin   *float64
	PriceMax   *float64
	RatingMin  *float64
	InStock    bool
	ActiveOnly bool
	Limit      int
}
