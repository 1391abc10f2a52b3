package services

import (
	"context"
	"encoding/json"
	"os"
	"regexp"
	"strings"
	"sync"

	"github.com/agnivade/levenshtein"
	"github.com/zatekoja/marketdiscovery/internal/domain/entities"
	"github.com/zatekoja/marketdiscovery/internal/domain/providers"
	"github.com/zatekoja/marketdiscovery/pkg/config"
	apperrors "github.com/zatekoja/marketdiscovery/pkg/errors"
)

// ProcessedQuery holds the result of interpreting a raw search query.
type ProcessedQuery struct {
	RawText        string                `json:"raw_text"`
	NormalizedText string                `json:"normalized_text"`
	CorrectedText  string                `json:"corrected_text,omitempty"`
	Intent         entities.SearchIntent `json:"intent"`
	Terms          []string              `json:"terms"`
	ExpandedTerms  []string              `json:"expanded_terms,omitempty"`
}

// QueryProcessor normalizes raw query text, corrects likely misspellings
// against the catalog vocabulary, classifies intent, and expands synonyms.
type QueryProcessor struct {
	synonyms map[string][]string

	vocabMu sync.RWMutex
	vocab   map[string]int // term -> catalog match count

	maxEditDistance      int
	minCorrectionMatches int
	cache                providers.CacheProvider
}

var nonQueryChars = regexp.MustCompile(`[^\p{L}\p{N}\s\-'/]`)

// Intent keyword tables. Purchase wins over compare wins over browse when a
// query matches several.
var (
	purchaseKeywords = []string{"buy", "purchase", "order", "price", "cheap", "cheapest", "deal", "discount", "under"}
	compareKeywords  = []string{"vs", "versus", "compare", "comparison", "difference", "better", "best"}
	browseKeywords   = []string{"browse", "show", "list", "find", "ideas", "new", "latest", "popular"}
)

// NewQueryProcessor creates a processor from a synonym table file.
func NewQueryProcessor(synonymsPath string, cfg *config.SearchConfig) (*QueryProcessor, error) {
	p := &QueryProcessor{
		synonyms:             make(map[string][]string),
		vocab:                make(map[string]int),
		maxEditDistance:      cfg.MaxEditDistance,
		minCorrectionMatches: cfg.MinCorrectionMatches,
	}
	if synonymsPath != "" {
		if err := p.loadSynonyms(synonymsPath); err != nil {
			return nil, err
		}
	}
	return p, nil
}

func (p *QueryProcessor) loadSynonyms(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var raw map[string][]string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	for term, expansions := range raw {
		k := strings.ToLower(strings.TrimSpace(term))
		out := make([]string, 0, len(expansions))
		for _, e := range expansions {
			out = append(out, strings.ToLower(strings.TrimSpace(e)))
		}
		p.synonyms[k] = out
	}
	return nil
}

// SetCache sets the cache provider for interpretation results.
func (p *QueryProcessor) SetCache(cache providers.CacheProvider) {
	p.cache = cache
}

// SetVocabulary replaces the catalog term vocabulary used for spell
// correction. Each key is a known term, the value its catalog match count.
// Safe to call while Process is running.
func (p *QueryProcessor) SetVocabulary(vocab map[string]int) {
	p.vocabMu.Lock()
	p.vocab = vocab
	p.vocabMu.Unlock()
}

// VocabularyCacheKey is where the indexer publishes the catalog term
// vocabulary.
const VocabularyCacheKey = "search:vocab"

// LoadVocabulary pulls the indexer-published vocabulary from the cache. A
// missing key leaves the current vocabulary in place.
func (p *QueryProcessor) LoadVocabulary(ctx context.Context) error {
	if p.cache == nil {
		return nil
	}
	data, err := p.cache.Get(ctx, VocabularyCacheKey)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil
		}
		return err
	}
	var vocab map[string]int
	if err := json.Unmarshal(data, &vocab); err != nil {
		return apperrors.NewInternalError("failed to decode search vocabulary", err)
	}
	p.SetVocabulary(vocab)
	return nil
}

// Process runs the raw query through the full understanding pipeline.
// An empty or whitespace-only query is rejected as invalid input.
func (p *QueryProcessor) Process(ctx context.Context, rawQuery string) (*ProcessedQuery, error) {
	normalized := p.normalize(rawQuery)
	if normalized == "" {
		return nil, apperrors.NewInvalidQueryError("query must contain at least one searchable term")
	}

	if p.cache != nil {
		cacheKey := "query:proc:" + normalized
		if data, err := p.cache.Get(ctx, cacheKey); err == nil {
			var cached ProcessedQuery
			if json.Unmarshal(data, &cached) == nil {
				cached.RawText = rawQuery
				return &cached, nil
			}
		}
	}

	result := &ProcessedQuery{
		RawText:        rawQuery,
		NormalizedText: normalized,
	}

	terms := strings.Fields(normalized)
	corrected, changed := p.spellCorrect(terms)
	if changed {
		result.CorrectedText = strings.Join(corrected, " ")
	}
	result.Terms = corrected
	result.Intent = p.detectIntent(corrected)
	result.ExpandedTerms = p.expandTerms(corrected)

	if p.cache != nil {
		cacheKey := "query:proc:" + normalized
		if data, err := json.Marshal(result); err == nil {
			_ = p.cache.Set(ctx, cacheKey, data, 86400) // 24 hours
		}
	}

	return result, nil
}

func (p *QueryProcessor) normalize(query string) string {
	q := strings.ToLower(strings.TrimSpace(query))
	q = nonQueryChars.ReplaceAllString(q, "")
	return strings.Join(strings.Fields(q), " ")
}

// spellCorrect replaces terms with no catalog matches by the closest known
// term, when one exists within the edit distance bound and is itself common
// enough to be trusted. The correction is advisory: callers keep the original
// text for the query record.
func (p *QueryProcessor) spellCorrect(terms []string) ([]string, bool) {
	p.vocabMu.RLock()
	defer p.vocabMu.RUnlock()

	if len(p.vocab) == 0 {
		return terms, false
	}

	changed := false
	corrected := make([]string, len(terms))
	for i, term := range terms {
		if p.vocab[term] > 0 {
			corrected[i] = term
			continue
		}
		if candidate := p.bestCandidate(term); candidate != "" {
			corrected[i] = candidate
			changed = true
			continue
		}
		corrected[i] = term
	}
	return corrected, changed
}

func (p *QueryProcessor) bestCandidate(term string) string {
	best := ""
	bestMatches := 0
	for known, matches := range p.vocab {
		if matches < p.minCorrectionMatches {
			continue
		}
		if levenshtein.ComputeDistance(term, known) > p.maxEditDistance {
			continue
		}
		if matches > bestMatches || (matches == bestMatches && known < best) {
			best = known
			bestMatches = matches
		}
	}
	return best
}

func (p *QueryProcessor) detectIntent(terms []string) entities.SearchIntent {
	present := make(map[string]struct{}, len(terms))
	for _, t := range terms {
		present[t] = struct{}{}
	}
	contains := func(keywords []string) bool {
		for _, kw := range keywords {
			if _, ok := present[kw]; ok {
				return true
			}
		}
		return false
	}

	switch {
	case contains(purchaseKeywords):
		return entities.IntentPurchase
	case contains(compareKeywords):
		return entities.IntentCompare
	case contains(browseKeywords):
		return entities.IntentBrowse
	}
	return entities.IntentUnknown
}

// expandTerms appends synonym expansions after the original terms. Expansions
// widen the candidate set; they never replace what the user typed.
func (p *QueryProcessor) expandTerms(terms []string) []string {
	seen := make(map[string]struct{}, len(terms))
	expanded := make([]string, 0, len(terms))
	add := func(t string) {
		if t == "" {
			return
		}
		if _, ok := seen[t]; !ok {
			seen[t] = struct{}{}
			expanded = append(expanded, t)
		}
	}

	for _, t := range terms {
		add(t)
	}
	for _, t := range terms {
		for _, syn := range p.synonyms[t] {
			add(syn)
		}
	}
	return expanded
}
