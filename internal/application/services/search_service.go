package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/zatekoja/marketdiscovery/internal/domain/entities"
	"github.com/zatekoja/marketdiscovery/internal/domain/providers"
	"github.com/zatekoja/marketdiscovery/internal/domain/repositories"
	"github.com/zatekoja/marketdiscovery/internal/infrastructure/observability"
	"github.com/zatekoja/marketdiscovery/pkg/config"
	apperrors "github.com/zatekoja/marketdiscovery/pkg/errors"
)

const (
	candidateCachePrefix = "search:cand:"
	maxSuggestions       = 5
)

// SearchRequest is one search execution request.
type SearchRequest struct {
	RawQuery  string
	Filters   entities.SearchFilters
	Sort      entities.SortMode
	Page      int // 1-based
	PageSize  int
	SessionID string
	UserID    string
	Channel   string
}

// RankedProduct is one result row with its blended score breakdown.
type RankedProduct struct {
	Product   *entities.ProductSummary
	Score     float64
	Breakdown map[string]float64
}

// SearchResponse is the full answer of one search execution.
type SearchResponse struct {
	QueryID        string
	SessionID      string
	Results        []*RankedProduct
	Facets         []entities.Facet
	TotalCount     int
	CorrectedQuery string
	Suggestions    []string
	Degraded       bool
	LatencyMs      int
}

// SearchService orchestrates the query pipeline: session resolution, query
// processing, candidate retrieval, filtering, ranking, pagination, facets,
// and the behavioral records of the execution.
type SearchService struct {
	catalog   providers.CatalogProvider
	processor *QueryProcessor
	facets    *FacetEngine
	trends    *TrendDetector
	sessions  *SessionService
	records   repositories.SearchRecordRepository
	events    repositories.EventLogRepository
	cache     providers.CacheProvider
	metrics   *observability.Metrics
	cfg       config.SearchConfig
	facetDefs []entities.FacetDefinition
}

// DefaultFacetDefinitions returns the facet dimensions computed for every
// search response.
func DefaultFacetDefinitions() []entities.FacetDefinition {
	return []entities.FacetDefinition{
		{Key: "category", Label: "Category", Type: entities.FacetCategorical},
		{Key: "vendor_id", Label: "Vendor", Type: entities.FacetCategorical},
		{Key: "price", Label: "Price", Type: entities.FacetRange},
		{Key: "rating", Label: "Rating", Type: entities.FacetRange},
		{Key: "in_stock", Label: "Availability", Type: entities.FacetBoolean},
	}
}

// NewSearchService creates a search service.
func NewSearchService(
	catalog providers.CatalogProvider,
	processor *QueryProcessor,
	facets *FacetEngine,
	trends *TrendDetector,
	sessions *SessionService,
	records repositories.SearchRecordRepository,
	events repositories.EventLogRepository,
	cfg config.SearchConfig,
) *SearchService {
	return &SearchService{
		catalog:   catalog,
		processor: processor,
		facets:    facets,
		trends:    trends,
		sessions:  sessions,
		records:   records,
		events:    events,
		cfg:       cfg,
		facetDefs: DefaultFacetDefinitions(),
	}
}

// SetCache enables candidate caching and the cached-candidate fallback.
func (s *SearchService) SetCache(cache providers.CacheProvider) {
	s.cache = cache
}

// SetMetrics enables search metrics recording.
func (s *SearchService) SetMetrics(metrics *observability.Metrics) {
	s.metrics = metrics
}

// Search executes the full search pipeline. Zero matching products is a
// valid, empty response. Failures writing the behavioral records mark the
// response degraded instead of failing the call.
func (s *SearchService) Search(ctx context.Context, req SearchRequest) (*SearchResponse, error) {
	started := time.Now()

	page, pageSize, err := s.validatePaging(req)
	if err != nil {
		return nil, err
	}

	session, err := s.sessions.GetOrCreate(ctx, req.SessionID, req.UserID, req.Channel)
	if err != nil {
		return nil, s.mapTimeout(ctx, err, "session resolution")
	}

	processed, err := s.processor.Process(ctx, req.RawQuery)
	if err != nil {
		return nil, err
	}

	response := &SearchResponse{
		QueryID:        uuid.New().String(),
		SessionID:      session.ID,
		CorrectedQuery: processed.CorrectedText,
	}

	candidates, degraded, err := s.fetchCandidates(ctx, processed, req.Filters)
	if err != nil {
		return nil, s.mapTimeout(ctx, err, "candidate retrieval")
	}
	response.Degraded = degraded

	filtered := s.facets.ApplyFilters(candidates, req.Filters)
	ranked := s.rank(filtered, processed)
	s.applySort(ranked, req.Sort)

	response.TotalCount = len(ranked)
	response.Results = paginate(ranked, page, pageSize)
	response.Facets = s.facets.ComputeFacets(filtered, s.facetDefs)
	response.LatencyMs = int(time.Since(started).Milliseconds())

	if ctx.Err() != nil {
		return nil, apperrors.NewTimeoutError("search deadline exceeded", ctx.Err())
	}

	if !s.persistExecution(ctx, session, processed, req, response, (page-1)*pageSize) {
		response.Degraded = true
	}

	if suggestions, err := s.records.SuggestQueries(ctx, processed.NormalizedText, maxSuggestions); err == nil {
		response.Suggestions = suggestions
	}
	response.Suggestions = fillSuggestions(response.Suggestions, response.Results, maxSuggestions)

	observability.RecordSearchMetric(ctx, s.metrics, string(processed.Intent), response.TotalCount, time.Since(started))

	return response, nil
}

// RecordClick marks a previously returned result clicked and appends the
// CLICK event. The result must exist; an unknown (query, product) pair is a
// not found error, preserving the causal order of the log.
func (s *SearchService) RecordClick(ctx context.Context, sessionID, queryID, productID string) error {
	now := time.Now().UTC()
	if err := s.records.MarkResultClicked(ctx, queryID, productID, now); err != nil {
		return err
	}

	event := &entities.InteractionEvent{
		ID:          uuid.New().String(),
		SessionID:   sessionID,
		SubjectType: entities.SubjectSearchResult,
		SubjectID:   productID,
		EventType:   entities.EventClick,
		Metadata:    map[string]string{entities.MetaQueryID: queryID},
		CreatedAt:   now,
	}
	if err := s.events.Append(ctx, event); err != nil {
		log.Printf("Warning: failed to append click event for query %s: %v", queryID, err)
		observability.RecordDegradedAppend(ctx, s.metrics, "click")
	}
	return nil
}

func (s *SearchService) validatePaging(req SearchRequest) (page, pageSize int, err error) {
	page = req.Page
	if page <= 0 {
		page = 1
	}
	if s.cfg.MaxPageDepth > 0 && page > s.cfg.MaxPageDepth {
		return 0, 0, apperrors.NewPageDepthExceededError(fmt.Sprintf("page %d exceeds the maximum depth of %d", page, s.cfg.MaxPageDepth))
	}

	pageSize = req.PageSize
	if pageSize <= 0 {
		pageSize = s.cfg.DefaultPageSize
	}
	if s.cfg.MaxPageSize > 0 && pageSize > s.cfg.MaxPageSize {
		pageSize = s.cfg.MaxPageSize
	}
	return page, pageSize, nil
}

// fetchCandidates queries the catalog, caching the answer under the query
// fingerprint. When the catalog is unavailable and fallback is enabled, a
// cached candidate set is served with the degraded flag set.
func (s *SearchService) fetchCandidates(ctx context.Context, processed *ProcessedQuery, filters entities.SearchFilters) ([]*entities.ProductSummary, bool, error) {
	criteria := entities.ProductCriteria{
		Terms:      processed.ExpandedTerms,
		Categories: filters.Values["category"],
		ActiveOnly: true,
	}
	cacheKey := candidateCachePrefix + fingerprint(processed.NormalizedText, filters)

	candidates, err := s.catalog.FindProducts(ctx, criteria)
	if err != nil {
		if s.cfg.FallbackToCache && apperrors.IsUpstreamUnavailable(err) {
			if cached, ok := s.cachedCandidates(ctx, cacheKey); ok {
				observability.RecordCacheHit(ctx, s.metrics, candidateCachePrefix)
				return cached, true, nil
			}
		}
		return nil, false, err
	}

	if s.cache != nil {
		if data, marshalErr := json.Marshal(candidates); marshalErr == nil {
			_ = s.cache.Set(ctx, cacheKey, data, s.cfg.CacheTTLSeconds)
		}
	}
	return candidates, false, nil
}

func (s *SearchService) cachedCandidates(ctx context.Context, key string) ([]*entities.ProductSummary, bool) {
	if s.cache == nil {
		return nil, false
	}
	data, err := s.cache.Get(ctx, key)
	if err != nil || len(data) == 0 {
		return nil, false
	}
	var cached []*entities.ProductSummary
	if json.Unmarshal(data, &cached) != nil {
		return nil, false
	}
	return cached, true
}

func (s *SearchService) rank(candidates []*entities.ProductSummary, processed *ProcessedQuery) []*RankedProduct {
	now := time.Now().UTC()
	ranked := make([]*RankedProduct, len(candidates))
	for i, p := range candidates {
		breakdown := map[string]float64{
			"text":       s.cfg.WeightText * textScore(p, processed.Terms),
			"recency":    s.cfg.WeightRecency * recencyScore(p.CreatedAt, now),
			"popularity": s.cfg.WeightPopularity * popularityScore(p),
			"trending":   s.cfg.WeightTrending * s.trendingScore(p),
		}
		total := 0.0
		for _, v := range breakdown {
			total += v
		}
		ranked[i] = &RankedProduct{Product: p, Score: total, Breakdown: breakdown}
	}
	return ranked
}

func (s *SearchService) trendingScore(p *entities.ProductSummary) float64 {
	if s.trends == nil {
		return 0
	}
	v := s.trends.Velocity(p.Category)
	return v / (1 + v)
}

// textScore is the fraction of query terms present in the product's textual
// fields.
func textScore(p *entities.ProductSummary, terms []string) float64 {
	if len(terms) == 0 {
		return 0
	}
	haystack := strings.ToLower(p.Name + " " + p.Description + " " + p.Category + " " + strings.Join(p.Tags, " "))
	matched := 0
	for _, term := range terms {
		if strings.Contains(haystack, term) {
			matched++
		}
	}
	return float64(matched) / float64(len(terms))
}

// recencyScore decays with age: 1.0 for a new listing, 0.5 at 30 days.
func recencyScore(createdAt, now time.Time) float64 {
	if createdAt.IsZero() || createdAt.After(now) {
		return 0
	}
	ageDays := now.Sub(createdAt).Hours() / 24
	return 1 / (1 + ageDays/30)
}

// popularityScore blends rating quality with review volume on a log scale.
func popularityScore(p *entities.ProductSummary) float64 {
	volume := math.Log10(1+float64(p.ReviewCount)) / 3
	if volume > 1 {
		volume = 1
	}
	return (p.Rating / 5) * volume
}

func (s *SearchService) applySort(ranked []*RankedProduct, mode entities.SortMode) {
	less := func(i, j *RankedProduct) bool { return i.Score > j.Score }
	switch mode {
	case entities.SortPriceAsc:
		less = func(i, j *RankedProduct) bool { return i.Product.Price < j.Product.Price }
	case entities.SortPriceDesc:
		less = func(i, j *RankedProduct) bool { return i.Product.Price > j.Product.Price }
	case entities.SortRatingDesc:
		less = func(i, j *RankedProduct) bool { return i.Product.Rating > j.Product.Rating }
	case entities.SortNewest:
		less = func(i, j *RankedProduct) bool { return i.Product.CreatedAt.After(j.Product.CreatedAt) }
	}

	// Product id breaks every tie so identical inputs rank identically.
	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if less(a, b) {
			return true
		}
		if less(b, a) {
			return false
		}
		return a.Product.ID < b.Product.ID
	})
}

func paginate(ranked []*RankedProduct, page, pageSize int) []*RankedProduct {
	offset := (page - 1) * pageSize
	if offset >= len(ranked) {
		return []*RankedProduct{}
	}
	end := offset + pageSize
	if end > len(ranked) {
		end = len(ranked)
	}
	return ranked[offset:end]
}

// fillSuggestions tops up history suggestions with the names of the best
// matching products, deduplicated case-insensitively.
func fillSuggestions(suggestions []string, results []*RankedProduct, limit int) []string {
	seen := make(map[string]struct{}, len(suggestions))
	for _, s := range suggestions {
		seen[strings.ToLower(s)] = struct{}{}
	}
	for _, r := range results {
		if len(suggestions) >= limit {
			break
		}
		key := strings.ToLower(r.Product.Name)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		suggestions = append(suggestions, r.Product.Name)
	}
	return suggestions
}

// persistExecution writes the query record, the per-result records, the
// impression events, and the session touch. Any failure degrades the
// response; the caller still gets its results.
func (s *SearchService) persistExecution(ctx context.Context, session *entities.SearchSession, processed *ProcessedQuery, req SearchRequest, response *SearchResponse, offset int) bool {
	now := time.Now().UTC()
	ok := true

	query := &entities.SearchQuery{
		ID:             response.QueryID,
		SessionID:      session.ID,
		RawText:        req.RawQuery,
		NormalizedText: processed.NormalizedText,
		Intent:         processed.Intent,
		Filters:        req.Filters,
		ResultCount:    response.TotalCount,
		LatencyMs:      response.LatencyMs,
		CreatedAt:      now,
	}
	if err := s.records.CreateQuery(ctx, query); err != nil {
		log.Printf("Warning: failed to persist search query %s: %v", query.ID, err)
		observability.RecordDegradedAppend(ctx, s.metrics, "search_query")
		ok = false
	}

	if len(response.Results) > 0 {
		results := make([]*entities.SearchResult, len(response.Results))
		events := make([]*entities.InteractionEvent, len(response.Results))
		for i, r := range response.Results {
			results[i] = &entities.SearchResult{
				QueryID:   query.ID,
				ProductID: r.Product.ID,
				Position:  offset + i + 1,
				Score:     r.Score,
			}
			events[i] = &entities.InteractionEvent{
				ID:          uuid.New().String(),
				SessionID:   session.ID,
				SubjectType: entities.SubjectSearchResult,
				SubjectID:   r.Product.ID,
				EventType:   entities.EventImpression,
				Metadata: map[string]string{
					entities.MetaQueryID:  query.ID,
					entities.MetaCategory: r.Product.Category,
				},
				CreatedAt: now,
			}
		}
		if err := s.records.CreateResults(ctx, results); err != nil {
			log.Printf("Warning: failed to persist search results for query %s: %v", query.ID, err)
			observability.RecordDegradedAppend(ctx, s.metrics, "search_results")
			ok = false
		}
		if err := s.events.AppendBatch(ctx, events); err != nil {
			log.Printf("Warning: failed to append impression events for query %s: %v", query.ID, err)
			observability.RecordDegradedAppend(ctx, s.metrics, "impressions")
			ok = false
		}
	}

	if err := s.sessions.RecordSearch(ctx, session); err != nil {
		log.Printf("Warning: failed to touch session %s: %v", session.ID, err)
		ok = false
	}

	return ok
}

func (s *SearchService) mapTimeout(ctx context.Context, err error, stage string) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return apperrors.NewTimeoutError("search deadline exceeded during "+stage, err)
	}
	return err
}

// fingerprint produces a stable cache key for a (query, filters) pair.
func fingerprint(normalized string, filters entities.SearchFilters) string {
	payload, _ := json.Marshal(struct {
		Query  string                           `json:"q"`
		Values map[string][]string              `json:"v,omitempty"`
		Ranges map[string]entities.NumericRange `json:"r,omitempty"`
	}{normalized, canonicalValues(filters.Values), filters.Ranges})
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}

func canonicalValues(values map[string][]string) map[string][]string {
	if len(values) == 0 {
		return nil
	}
	out := make(map[string][]string, len(values))
	for k, v := range values {
		sorted := append([]string(nil), v...)
		sort.Strings(sorted)
		out[k] = sorted
	}
	return out
}
