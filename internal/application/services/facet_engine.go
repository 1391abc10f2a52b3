package services

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/zatekoja/marketdiscovery/internal/domain/entities"
	"github.com/zatekoja/marketdiscovery/pkg/config"
)

// FacetEngine computes facet value counts over a candidate set and applies
// facet filter selections. Both operations are pure functions of their
// inputs; applying the same filters twice, in any order, yields the same set.
type FacetEngine struct {
	minDistinct  int
	rangeBuckets int
}

// NewFacetEngine creates a facet engine with thresholds from config.
func NewFacetEngine(cfg *config.SearchConfig) *FacetEngine {
	return &FacetEngine{
		minDistinct:  cfg.FacetMinDistinct,
		rangeBuckets: cfg.RangeFacetBuckets,
	}
}

// ComputeFacets returns one facet per definition, computed against the
// candidate set. Facets whose distinct value count falls below the configured
// minimum are omitted; a minimum of zero keeps every facet. An empty
// candidate set yields every facet with no values.
func (e *FacetEngine) ComputeFacets(candidates []*entities.ProductSummary, definitions []entities.FacetDefinition) []entities.Facet {
	facets := make([]entities.Facet, 0, len(definitions))
	for _, def := range definitions {
		facet := entities.Facet{
			Key:    def.Key,
			Label:  def.Label,
			Type:   def.Type,
			Values: []entities.FacetValue{},
		}
		if len(candidates) > 0 {
			switch def.Type {
			case entities.FacetRange:
				facet.Values = e.rangeValues(candidates, def)
			default:
				facet.Values = e.categoricalValues(candidates, def.Key)
			}
			if e.minDistinct > 0 && len(facet.Values) < e.minDistinct {
				continue
			}
		}
		facets = append(facets, facet)
	}
	return facets
}

func (e *FacetEngine) categoricalValues(candidates []*entities.ProductSummary, key string) []entities.FacetValue {
	counts := make(map[string]int)
	for _, p := range candidates {
		for _, v := range categoricalFieldValues(p, key) {
			counts[v]++
		}
	}

	values := make([]entities.FacetValue, 0, len(counts))
	for v, c := range counts {
		values = append(values, entities.FacetValue{Value: v, Count: c})
	}
	sort.Slice(values, func(i, j int) bool {
		if values[i].Count != values[j].Count {
			return values[i].Count > values[j].Count
		}
		return values[i].Value < values[j].Value
	})
	return values
}

// rangeValues buckets a numeric field into equal-width bins over the observed
// span. Bounds are half-open [lower, upper); the final bin also admits the
// maximum so no candidate falls outside every bucket.
func (e *FacetEngine) rangeValues(candidates []*entities.ProductSummary, def entities.FacetDefinition) []entities.FacetValue {
	buckets := def.Buckets
	if buckets <= 0 {
		buckets = e.rangeBuckets
	}
	if buckets <= 0 {
		buckets = 1
	}

	var observed []float64
	for _, p := range candidates {
		if v, ok := numericFieldValue(p, def.Key); ok {
			observed = append(observed, v)
		}
	}
	if len(observed) == 0 {
		return []entities.FacetValue{}
	}

	min, max := observed[0], observed[0]
	for _, v := range observed[1:] {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}

	if min == max {
		lower, upper := min, max
		return []entities.FacetValue{{
			Value: rangeLabel(lower, upper),
			Count: len(observed),
			Lower: &lower,
			Upper: &upper,
		}}
	}

	width := (max - min) / float64(buckets)
	values := make([]entities.FacetValue, buckets)
	for i := 0; i < buckets; i++ {
		lower := min + width*float64(i)
		upper := min + width*float64(i+1)
		values[i] = entities.FacetValue{
			Value: rangeLabel(lower, upper),
			Lower: &lower,
			Upper: &upper,
		}
	}
	for _, v := range observed {
		idx := int((v - min) / width)
		if idx >= buckets {
			idx = buckets - 1
		}
		values[idx].Count++
	}
	return values
}

// ApplyFilters intersects the candidate set with every selection in filters.
// Selections within one facet are ORed, distinct facets are ANDed. The input
// slice is never mutated.
func (e *FacetEngine) ApplyFilters(candidates []*entities.ProductSummary, filters entities.SearchFilters) []*entities.ProductSummary {
	if filters.Empty() {
		return candidates
	}

	filtered := make([]*entities.ProductSummary, 0, len(candidates))
	for _, p := range candidates {
		if matchesFilters(p, filters) {
			filtered = append(filtered, p)
		}
	}
	return filtered
}

func matchesFilters(p *entities.ProductSummary, filters entities.SearchFilters) bool {
	for key, selected := range filters.Values {
		if len(selected) == 0 {
			continue
		}
		values := categoricalFieldValues(p, key)
		if !anyOverlap(values, selected) {
			return false
		}
	}
	for key, r := range filters.Ranges {
		v, ok := numericFieldValue(p, key)
		if !ok {
			return false
		}
		if r.Min != nil && v < *r.Min {
			return false
		}
		if r.Max != nil && v >= *r.Max {
			return false
		}
	}
	return true
}

func anyOverlap(values, selected []string) bool {
	for _, v := range values {
		for _, s := range selected {
			if v == s {
				return true
			}
		}
	}
	return false
}

func categoricalFieldValues(p *entities.ProductSummary, key string) []string {
	switch key {
	case "category":
		if p.Category == "" {
			return nil
		}
		return []string{p.Category}
	case "vendor_id":
		if p.VendorID == "" {
			return nil
		}
		return []string{p.VendorID}
	case "tags":
		return p.Tags
	case "in_stock":
		return []string{strconv.FormatBool(p.InStock)}
	}
	return nil
}

func numericFieldValue(p *entities.ProductSummary, key string) (float64, bool) {
	switch key {
	case "price":
		return p.Price, true
	case "rating":
		return p.Rating, true
	case "review_count":
		return float64(p.ReviewCount), true
	}
	return 0, false
}

func rangeLabel(lower, upper float64) string {
	return fmt.Sprintf("%.2f-%.2f", lower, upper)
}
