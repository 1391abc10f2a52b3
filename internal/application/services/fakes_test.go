package services

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/zatekoja/marketdiscovery/internal/domain/entities"
	"github.com/zatekoja/marketdiscovery/internal/domain/providers"
	"github.com/zatekoja/marketdiscovery/internal/domain/repositories"
	apperrors "github.com/zatekoja/marketdiscovery/pkg/errors"
)

// MemoryCacheFake is an in-memory CacheProvider for tests.
type MemoryCacheFake struct {
	mu       sync.RWMutex
	data     map[string][]byte
	SetCalls int
	Deleted  []string
}

func NewMemoryCacheFake() *MemoryCacheFake {
	return &MemoryCacheFake{data: make(map[string][]byte)}
}

func (m *MemoryCacheFake) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if val, ok := m.data[key]; ok {
		return val, nil
	}
	return nil, apperrors.NewNotFoundError("cache miss")
}

func (m *MemoryCacheFake) Set(ctx context.Context, key string, value []byte, expirationSeconds int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	m.SetCalls++
	return nil
}

func (m *MemoryCacheFake) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	m.Deleted = append(m.Deleted, key)
	return nil
}

func (m *MemoryCacheFake) DeleteByPrefix(ctx context.Context, prefix string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for key := range m.data {
		if strings.HasPrefix(key, prefix) {
			delete(m.data, key)
			m.Deleted = append(m.Deleted, key)
		}
	}
	return nil
}

func (m *MemoryCacheFake) Exists(ctx context.Context, key string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.data[key]
	return ok, nil
}

func (m *MemoryCacheFake) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data)
}

// CatalogFake is a configurable in-memory CatalogProvider.
type CatalogFake struct {
	Products []*entities.ProductSummary
	Err      error
	Calls    int
}

func (c *CatalogFake) FindProducts(ctx context.Context, criteria entities.ProductCriteria) ([]*entities.ProductSummary, error) {
	c.Calls++
	if c.Err != nil {
		return nil, c.Err
	}
	var out []*entities.ProductSummary
	for _, p := range c.Products {
		if criteria.ActiveOnly && !p.IsActive {
			continue
		}
		if criteria.InStock && !p.InStock {
			continue
		}
		if len(criteria.Categories) > 0 && !containsString(criteria.Categories, p.Category) {
			continue
		}
		if len(criteria.Terms) > 0 && !matchesAnyTerm(p, criteria.Terms) {
			continue
		}
		out = append(out, p)
	}
	if criteria.Limit > 0 && len(out) > criteria.Limit {
		out = out[:criteria.Limit]
	}
	return out, nil
}

func (c *CatalogFake) GetProduct(ctx context.Context, id string) (*entities.ProductSummary, error) {
	c.Calls++
	if c.Err != nil {
		return nil, c.Err
	}
	for _, p := range c.Products {
		if p.ID == id {
			return p, nil
		}
	}
	return nil, apperrors.NewNotFoundError("product not found")
}

func (c *CatalogFake) GetProducts(ctx context.Context, ids []string) ([]*entities.ProductSummary, error) {
	c.Calls++
	if c.Err != nil {
		return nil, c.Err
	}
	var out []*entities.ProductSummary
	for _, id := range ids {
		for _, p := range c.Products {
			if p.ID == id {
				out = append(out, p)
			}
		}
	}
	return out, nil
}

func matchesAnyTerm(p *entities.ProductSummary, terms []string) bool {
	haystack := strings.ToLower(p.Name + " " + p.Description + " " + p.Category + " " + strings.Join(p.Tags, " "))
	for _, t := range terms {
		if strings.Contains(haystack, t) {
			return true
		}
	}
	return false
}

func containsString(values []string, v string) bool {
	for _, s := range values {
		if s == v {
			return true
		}
	}
	return false
}

// EventLogFake is a configurable in-memory EventLogRepository.
type EventLogFake struct {
	mu             sync.Mutex
	Events         []*entities.InteractionEvent
	AppendErr      error
	CategoryFn     func(from, to time.Time) map[string]int
	CategoryByFrom map[time.Time]map[string]int
	UserCounts     map[string]int
	UserRecent     map[string][]string
	CoCounts       map[string]map[string]int
	QueryErr       error
	seq            int64
}

func (f *EventLogFake) Append(ctx context.Context, event *entities.InteractionEvent) error {
	if f.AppendErr != nil {
		return f.AppendErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	event.Seq = f.seq
	f.Events = append(f.Events, event)
	return nil
}

func (f *EventLogFake) AppendBatch(ctx context.Context, events []*entities.InteractionEvent) error {
	for _, e := range events {
		if err := f.Append(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

func (f *EventLogFake) CountByType(ctx context.Context, eventType entities.EventType, from, to time.Time) (int, error) {
	if f.QueryErr != nil {
		return 0, f.QueryErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, e := range f.Events {
		if e.EventType == eventType {
			count++
		}
	}
	return count, nil
}

func (f *EventLogFake) CategoryCounts(ctx context.Context, from, to time.Time) (map[string]int, error) {
	if f.QueryErr != nil {
		return nil, f.QueryErr
	}
	if f.CategoryByFrom != nil {
		if counts, ok := f.CategoryByFrom[from]; ok {
			return counts, nil
		}
		return map[string]int{}, nil
	}
	if f.CategoryFn != nil {
		return f.CategoryFn(from, to), nil
	}
	return map[string]int{}, nil
}

func (f *EventLogFake) RecentProductIDsByUser(ctx context.Context, userID string, eventTypes []entities.EventType, limit int) ([]string, error) {
	if f.QueryErr != nil {
		return nil, f.QueryErr
	}
	recent := f.UserRecent[userID]
	if limit > 0 && len(recent) > limit {
		recent = recent[:limit]
	}
	return recent, nil
}

func (f *EventLogFake) CountByUser(ctx context.Context, userID string, since time.Time) (int, error) {
	if f.QueryErr != nil {
		return 0, f.QueryErr
	}
	return f.UserCounts[userID], nil
}

func (f *EventLogFake) CoInteractions(ctx context.Context, productID string, eventTypes []entities.EventType, from, to time.Time) (map[string]int, error) {
	if f.QueryErr != nil {
		return nil, f.QueryErr
	}
	return f.CoCounts[productID], nil
}

func (f *EventLogFake) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	return 0, nil
}

func (f *EventLogFake) EventsOfType(eventType entities.EventType) []*entities.InteractionEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*entities.InteractionEvent
	for _, e := range f.Events {
		if e.EventType == eventType {
			out = append(out, e)
		}
	}
	return out
}

// SearchRecordFake is an in-memory SearchRecordRepository.
type SearchRecordFake struct {
	mu          sync.Mutex
	Queries     []*entities.SearchQuery
	Results     []*entities.SearchResult
	CreateErr   error
	Suggestions []string
}

func (f *SearchRecordFake) CreateQuery(ctx context.Context, query *entities.SearchQuery) error {
	if f.CreateErr != nil {
		return f.CreateErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Queries = append(f.Queries, query)
	return nil
}

func (f *SearchRecordFake) CreateResults(ctx context.Context, results []*entities.SearchResult) error {
	if f.CreateErr != nil {
		return f.CreateErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Results = append(f.Results, results...)
	return nil
}

func (f *SearchRecordFake) MarkResultClicked(ctx context.Context, queryID, productID string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.Results {
		if r.QueryID == queryID && r.ProductID == productID {
			r.Clicked = true
			r.ClickedAt = &at
			return nil
		}
	}
	return apperrors.NewNotFoundError("search result not found")
}

func (f *SearchRecordFake) ZeroResultQueries(ctx context.Context, limit int) ([]*entities.SearchQuery, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*entities.SearchQuery
	for _, q := range f.Queries {
		if q.ResultCount == 0 {
			out = append(out, q)
		}
	}
	return out, nil
}

func (f *SearchRecordFake) QueryCounts(ctx context.Context, from, to time.Time) (int, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	zero := 0
	for _, q := range f.Queries {
		if q.ResultCount == 0 {
			zero++
		}
	}
	return len(f.Queries), zero, nil
}

func (f *SearchRecordFake) TopQueries(ctx context.Context, from, to time.Time, limit int) ([]repositories.QueryCount, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	counts := make(map[string]int)
	for _, q := range f.Queries {
		counts[q.NormalizedText]++
	}
	out := make([]repositories.QueryCount, 0, len(counts))
	for q, c := range counts {
		out = append(out, repositories.QueryCount{Query: q, Count: c})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *SearchRecordFake) SuggestQueries(ctx context.Context, fragment string, limit int) ([]string, error) {
	return f.Suggestions, nil
}

// SessionRepoFake is an in-memory SessionRepository.
type SessionRepoFake struct {
	mu       sync.Mutex
	Sessions map[string]*entities.SearchSession
}

func NewSessionRepoFake() *SessionRepoFake {
	return &SessionRepoFake{Sessions: make(map[string]*entities.SearchSession)}
}

func (f *SessionRepoFake) GetByID(ctx context.Context, id string) (*entities.SearchSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, ok := f.Sessions[id]; ok {
		return s, nil
	}
	return nil, apperrors.NewNotFoundError("session not found")
}

func (f *SessionRepoFake) Create(ctx context.Context, session *entities.SearchSession) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Sessions[session.ID] = session
	return nil
}

func (f *SessionRepoFake) Touch(ctx context.Context, id string, at time.Time, totalSearches int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, ok := f.Sessions[id]; ok {
		s.LastActivityAt = at
		s.TotalSearches = totalSearches
		return nil
	}
	return apperrors.NewNotFoundError("session not found")
}

func (f *SessionRepoFake) CloseExpired(ctx context.Context, cutoff time.Time, closedAt time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var closed int64
	for _, s := range f.Sessions {
		if s.ClosedAt == nil && s.LastActivityAt.Before(cutoff) {
			at := closedAt
			s.ClosedAt = &at
			closed++
		}
	}
	return closed, nil
}

// BatchRepoFake is an in-memory RecommendationRepository.
type BatchRepoFake struct {
	mu        sync.Mutex
	Batches   []*entities.RecommendationBatch
	CreateErr error
}

func (f *BatchRepoFake) CreateBatch(ctx context.Context, batch *entities.RecommendationBatch) error {
	if f.CreateErr != nil {
		return f.CreateErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Batches = append(f.Batches, batch)
	return nil
}

func (f *BatchRepoFake) LatestForContext(ctx context.Context, userID string, contextType entities.RecommendationContextType) (*entities.RecommendationBatch, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.Batches) - 1; i >= 0; i-- {
		b := f.Batches[i]
		if b.UserID == userID && b.ContextType == contextType {
			return b, nil
		}
	}
	return nil, apperrors.NewNotFoundError("no batch for context")
}

// TrendingRepoFake is an in-memory TrendingRepository.
type TrendingRepoFake struct {
	mu        sync.Mutex
	Appended  [][]*entities.TrendingTopic
	AppendErr error
}

func (f *TrendingRepoFake) AppendTopics(ctx context.Context, topics []*entities.TrendingTopic) error {
	if f.AppendErr != nil {
		return f.AppendErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Appended = append(f.Appended, topics)
	return nil
}

func (f *TrendingRepoFake) LatestTopics(ctx context.Context, asOf time.Time, limit int) ([]*entities.TrendingTopic, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.Appended) == 0 {
		return nil, nil
	}
	return f.Appended[len(f.Appended)-1], nil
}

func (f *TrendingRepoFake) TopicHistory(ctx context.Context, topic string, from, to time.Time) ([]*entities.TrendingTopic, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*entities.TrendingTopic
	for _, run := range f.Appended {
		for _, t := range run {
			if t.Topic == topic {
				out = append(out, t)
			}
		}
	}
	return out, nil
}

// OrderHistoryFake is a canned OrderHistoryProvider.
type OrderHistoryFake struct {
	Purchased []string
	Err       error
}

func (f *OrderHistoryFake) GetPurchaseHistory(ctx context.Context, userID string) ([]string, error) {
	if f.Err != nil {
		return nil, f.Err
	}
	return f.Purchased, nil
}

// EventBusFake is an in-memory EventBus.
type EventBusFake struct {
	mu          sync.Mutex
	subscribers map[string][]chan *entities.CatalogEvent
	Published   []*entities.CatalogEvent
}

func NewEventBusFake() *EventBusFake {
	return &EventBusFake{subscribers: make(map[string][]chan *entities.CatalogEvent)}
}

func (f *EventBusFake) Publish(ctx context.Context, channel string, event *entities.CatalogEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Published = append(f.Published, event)
	for _, ch := range f.subscribers[channel] {
		ch <- event
	}
	return nil
}

func (f *EventBusFake) Subscribe(ctx context.Context, channel string) (<-chan *entities.CatalogEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch := make(chan *entities.CatalogEvent, 16)
	f.subscribers[channel] = append(f.subscribers[channel], ch)
	return ch, nil
}

func (f *EventBusFake) Unsubscribe(ctx context.Context, channel string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.subscribers, channel)
	return nil
}

func (f *EventBusFake) Close() error {
	return nil
}

// IdentityFake is an in-memory IdentityProvider.
type IdentityFake struct {
	Profiles map[string]*providers.UserProfile
	Err      error
}

func (f *IdentityFake) GetUserProfile(ctx context.Context, userID string) (*providers.UserProfile, error) {
	if f.Err != nil {
		return nil, f.Err
	}
	profile, ok := f.Profiles[userID]
	if !ok {
		return nil, apperrors.NewNotFoundError("user profile not found")
	}
	return profile, nil
}
