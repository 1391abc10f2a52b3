package services

import (
	"context"
	"log"
	"sort"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/zatekoja/marketdiscovery/internal/domain/entities"
	"github.com/zatekoja/marketdiscovery/internal/domain/repositories"
	"github.com/zatekoja/marketdiscovery/pkg/config"
)

// TrendSnapshot is the immutable output of one detection run. Request paths
// read whichever snapshot is current; Refresh swaps in a new one atomically.
type TrendSnapshot struct {
	Topics     []*entities.TrendingTopic
	ComputedAt time.Time
	byTopic    map[string]*entities.TrendingTopic
}

// TrendDetector computes interaction-velocity trends over the event log.
// Detection is a pure function of the log contents for a window; the detector
// itself only adds snapshot bookkeeping and the background refresh loop.
type TrendDetector struct {
	events   repositories.EventLogRepository
	trending repositories.TrendingRepository
	cfg      config.TrendsConfig
	snapshot atomic.Pointer[TrendSnapshot]
}

// NewTrendDetector creates a trend detector. The initial snapshot is empty
// until the first Refresh completes.
func NewTrendDetector(events repositories.EventLogRepository, trending repositories.TrendingRepository, cfg config.TrendsConfig) *TrendDetector {
	d := &TrendDetector{
		events:   events,
		trending: trending,
		cfg:      cfg,
	}
	d.snapshot.Store(&TrendSnapshot{
		Topics:  []*entities.TrendingTopic{},
		byTopic: map[string]*entities.TrendingTopic{},
	})
	return d
}

// DetectTrends computes the trending topics for [windowStart, windowEnd).
// The baseline is the equal-length window immediately preceding it. A topic
// is emitted when its velocity exceeds the threshold and its current sample
// meets the minimum size; results come back highest velocity first.
func (d *TrendDetector) DetectTrends(ctx context.Context, windowStart, windowEnd time.Time) ([]*entities.TrendingTopic, error) {
	current, err := d.events.CategoryCounts(ctx, windowStart, windowEnd)
	if err != nil {
		return nil, err
	}

	baselineStart := windowStart.Add(-windowEnd.Sub(windowStart))
	baseline, err := d.events.CategoryCounts(ctx, baselineStart, windowStart)
	if err != nil {
		return nil, err
	}

	computedAt := time.Now().UTC()
	topics := make([]*entities.TrendingTopic, 0)
	for topic, count := range current {
		if count < d.cfg.MinSampleSize {
			continue
		}
		base := float64(baseline[topic])
		divisor := base
		if divisor < d.cfg.BaselineFloor {
			divisor = d.cfg.BaselineFloor
		}
		velocity := (float64(count) - base) / divisor
		if velocity <= d.cfg.VelocityThreshold {
			continue
		}
		topics = append(topics, &entities.TrendingTopic{
			ID:          uuid.New().String(),
			Topic:       topic,
			WindowStart: windowStart,
			WindowEnd:   windowEnd,
			Velocity:    velocity,
			SampleSize:  count,
			ComputedAt:  computedAt,
		})
	}

	sort.Slice(topics, func(i, j int) bool {
		if topics[i].Velocity != topics[j].Velocity {
			return topics[i].Velocity > topics[j].Velocity
		}
		return topics[i].Topic < topics[j].Topic
	})
	if d.cfg.TopicLimit > 0 && len(topics) > d.cfg.TopicLimit {
		topics = topics[:d.cfg.TopicLimit]
	}

	return topics, nil
}

// Refresh recomputes trends for the trailing configured window, appends the
// result to trending history, and swaps the live snapshot.
func (d *TrendDetector) Refresh(ctx context.Context) error {
	windowEnd := time.Now().UTC()
	windowStart := windowEnd.Add(-time.Duration(d.cfg.WindowHours) * time.Hour)

	topics, err := d.DetectTrends(ctx, windowStart, windowEnd)
	if err != nil {
		return err
	}

	if len(topics) > 0 {
		if err := d.trending.AppendTopics(ctx, topics); err != nil {
			// History is best effort; the live snapshot still advances.
			log.Printf("Warning: failed to append trending history: %v", err)
		}
	}

	byTopic := make(map[string]*entities.TrendingTopic, len(topics))
	for _, t := range topics {
		byTopic[t.Topic] = t
	}
	d.snapshot.Store(&TrendSnapshot{
		Topics:     topics,
		ComputedAt: windowEnd,
		byTopic:    byTopic,
	})

	return nil
}

// Snapshot returns the current trending topics, highest velocity first.
func (d *TrendDetector) Snapshot() []*entities.TrendingTopic {
	return d.snapshot.Load().Topics
}

// Velocity returns the current velocity for a topic, or zero when the topic
// is not trending.
func (d *TrendDetector) Velocity(topic string) float64 {
	if t, ok := d.snapshot.Load().byTopic[topic]; ok {
		return t.Velocity
	}
	return 0
}

// Run refreshes trends on the configured cadence until ctx is cancelled.
// Intended for a background job process, never a request path.
func (d *TrendDetector) Run(ctx context.Context) {
	ticker := time.NewTicker(d.cfg.RefreshInterval)
	defer ticker.Stop()

	if err := d.Refresh(ctx); err != nil {
		log.Printf("Warning: trend refresh failed: %v", err)
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := d.Refresh(ctx); err != nil {
				log.Printf("Warning: trend refresh failed: %v", err)
			}
		}
	}
}
