package services

import (
	"context"
	"time"

	"github.com/zatekoja/marketdiscovery/internal/domain/entities"
	"github.com/zatekoja/marketdiscovery/internal/domain/repositories"
)

const topQueryLimit = 10

// SearchStats is one analytics rollup over a time window.
type SearchStats struct {
	From              time.Time                 `json:"from"`
	To                time.Time                 `json:"to"`
	TotalQueries      int                       `json:"total_queries"`
	ZeroResultQueries int                       `json:"zero_result_queries"`
	NoResultRate      float64                   `json:"no_result_rate"`
	Impressions       int                       `json:"impressions"`
	Clicks            int                       `json:"clicks"`
	Purchases         int                       `json:"purchases"`
	ClickThroughRate  float64                   `json:"click_through_rate"`
	ConversionRate    float64                   `json:"conversion_rate"`
	TopQueries        []repositories.QueryCount `json:"top_queries"`
}

// AnalyticsService computes behavioral rollups from the search records, the
// interaction event log, and the trending topic history. Read only; nothing
// here mutates the log.
type AnalyticsService struct {
	records  repositories.SearchRecordRepository
	events   repositories.EventLogRepository
	trending repositories.TrendingRepository
}

// NewAnalyticsService creates an analytics service.
func NewAnalyticsService(records repositories.SearchRecordRepository, events repositories.EventLogRepository, trending repositories.TrendingRepository) *AnalyticsService {
	return &AnalyticsService{records: records, events: events, trending: trending}
}

// Stats computes the rollup for [from, to).
func (s *AnalyticsService) Stats(ctx context.Context, from, to time.Time) (*SearchStats, error) {
	total, zero, err := s.records.QueryCounts(ctx, from, to)
	if err != nil {
		return nil, err
	}

	impressions, err := s.events.CountByType(ctx, entities.EventImpression, from, to)
	if err != nil {
		return nil, err
	}
	clicks, err := s.events.CountByType(ctx, entities.EventClick, from, to)
	if err != nil {
		return nil, err
	}
	purchases, err := s.events.CountByType(ctx, entities.EventPurchase, from, to)
	if err != nil {
		return nil, err
	}

	top, err := s.records.TopQueries(ctx, from, to, topQueryLimit)
	if err != nil {
		return nil, err
	}

	stats := &SearchStats{
		From:              from,
		To:                to,
		TotalQueries:      total,
		ZeroResultQueries: zero,
		Impressions:       impressions,
		Clicks:            clicks,
		Purchases:         purchases,
		TopQueries:        top,
	}
	if total > 0 {
		stats.NoResultRate = float64(zero) / float64(total)
	}
	if impressions > 0 {
		stats.ClickThroughRate = float64(clicks) / float64(impressions)
	}
	if clicks > 0 {
		stats.ConversionRate = float64(purchases) / float64(clicks)
	}
	return stats, nil
}

// ZeroResultQueries returns recent queries that matched nothing, the raw
// material for synonym and catalog gap review.
func (s *AnalyticsService) ZeroResultQueries(ctx context.Context, limit int) ([]*entities.SearchQuery, error) {
	return s.records.ZeroResultQueries(ctx, limit)
}

// TrendingTopics returns the most recent detection window's topics, highest
// velocity first.
func (s *AnalyticsService) TrendingTopics(ctx context.Context, limit int) ([]*entities.TrendingTopic, error) {
	return s.trending.LatestTopics(ctx, time.Now().UTC(), limit)
}

// TrendHistory returns every retained detection window for one topic in
// [from, to), oldest first, the trend-over-time view for a category.
func (s *AnalyticsService) TrendHistory(ctx context.Context, topic string, from, to time.Time) ([]*entities.TrendingTopic, error) {
	return s.trending.TopicHistory(ctx, topic, from, to)
}
