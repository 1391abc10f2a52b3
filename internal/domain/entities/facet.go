package entities

// FacetType distinguishes how a facet's values are computed.
type FacetType string

const (
	FacetCategorical FacetType = "categorical"
	FacetRange       FacetType = "range"
	FacetBoolean     FacetType = "boolean"
)

// FacetDefinition declares a filterable dimension of the result set.
type FacetDefinition struct {
	Key     string    `json:"key"`
	Label   string    `json:"label"`
	Type    FacetType `json:"type"`
	Buckets int       `json:"buckets,omitempty"` // range facets only; 0 uses the configured default
}

// FacetValue is one (value, count) pair computed for a facet against the
// current candidate set. Range buckets carry an inclusive lower and exclusive
// upper bound.
type FacetValue struct {
	Value string   `json:"value"`
	Count int      `json:"count"`
	Lower *float64 `json:"lower,omitempty"`
	Upper *float64 `json:"upper,omitempty"`
}

// Facet is a computed facet with its values. Ephemeral: recomputed per query
// execution and never persisted beyond the response unless cached.
type Facet struct {
	Key    string       `json:"key"`
	Label  string       `json:"label"`
	Type   FacetType    `json:"type"`
	Values []FacetValue `json:"values"`
}
