package entities

import (
	"time"
)

// SearchIntent is the coarse classification of a query's purpose.
type SearchIntent string

const (
	IntentBrowse   SearchIntent = "BROWSE"
	IntentPurchase SearchIntent = "PURCHASE"
	IntentCompare  SearchIntent = "COMPARE"
	IntentUnknown  SearchIntent = "UNKNOWN"
)

// SortMode defines the result ordering of a search.
type SortMode string

const (
	SortRelevance  SortMode = "RELEVANCE"
	SortPriceAsc   SortMode = "PRICE_ASC"
	SortPriceDesc  SortMode = "PRICE_DESC"
	SortRatingDesc SortMode = "RATING_DESC"
	SortNewest     SortMode = "NEWEST"
)

// NumericRange is a half-open [Min, Max) bound on a numeric facet. A nil end
// leaves that side unbounded.
type NumericRange struct {
	Min *float64 `json:"min,omitempty"`
	Max *float64 `json:"max,omitempty"`
}

// SearchFilters carries the facet selections applied to a query: selected
// categorical values per facet key plus optional numeric ranges.
type SearchFilters struct {
	Values map[string][]string     `json:"values,omitempty"`
	Ranges map[string]NumericRange `json:"ranges,omitempty"`
}

// Empty reports whether no filter is applied.
func (f SearchFilters) Empty() bool {
	return len(f.Values) == 0 && len(f.Ranges) == 0
}

// SearchQuery records one query execution. Immutable after creation; part of
// the event log.
type SearchQuery struct {
	ID             string        `json:"id" db:"id"`
	SessionID      string        `json:"session_id" db:"session_id"`
	RawText        string        `json:"raw_text" db:"raw_text"`
	NormalizedText string        `json:"normalized_text" db:"normalized_text"`
	Intent         SearchIntent  `json:"intent" db:"intent"`
	Filters        SearchFilters `json:"filters" db:"filters"`
	ResultCount    int           `json:"result_count" db:"result_count"`
	LatencyMs      int           `json:"latency_ms" db:"latency_ms"`
	CreatedAt      time.Time     `json:"created_at" db:"created_at"`
}

// SearchResult records one item shown on a query's result page. The only
// permitted mutation is click marking.
type SearchResult struct {
	QueryID   string     `json:"query_id" db:"query_id"`
	ProductID string     `json:"product_id" db:"product_id"`
	Position  int        `json:"position" db:"position"`
	Score     float64    `json:"score" db:"score"`
	Clicked   bool       `json:"clicked" db:"clicked"`
	ClickedAt *time.Time `json:"clicked_at,omitempty" db:"clicked_at"`
}
