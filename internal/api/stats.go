package api

import (
	"context"
	"fmt"

	"github.com/eventdash/eventdash/internal/database"
	"github.com/eventdash/eventdash/internal/models"
)

// Stats summarizes the URL ledger, stored events, and recorded actions.
type Stats struct {
	URLs        map[string]int                                `json:"urls"`
	Events      map[models.EventType]int                      `json:"events"`
	Collections map[models.EventType]database.CollectionStats `json:"collections"`
	Actions     map[models.ActionType]int                     `json:"actions"`
}

// StatsProvider assembles dashboard statistics.
type StatsProvider interface {
	Stats(ctx context.Context) (*Stats, error)
}

// URLStatsSource reports URL ledger counts grouped by source type and
// enrichment state.
type URLStatsSource interface {
	Stats(ctx context.Context) (map[string]int, error)
}

// EventStatsSource reports stored event counts and per-collection summaries.
type EventStatsSource interface {
	CountByType(ctx context.Context) (map[models.EventType]int, error)
	StatsByType(ctx context.Context) (map[models.EventType]database.CollectionStats, error)
}

// ActionStatsSource reports recorded action counts per action type.
type ActionStatsSource interface {
	CountByAction(ctx context.Context) (map[models.ActionType]int, error)
}

// StatsAggregator composes the three repositories into one stats view.
type StatsAggregator struct {
	urls    URLStatsSource
	events  EventStatsSource
	actions ActionStatsSource
}

// NewStatsAggregator creates a StatsAggregator.
func NewStatsAggregator(urls URLStatsSource, events EventStatsSource, actions ActionStatsSource) *StatsAggregator {
	return &StatsAggregator{urls: urls, events: events, actions: actions}
}

// Stats gathers counts from all three stores.
func (s *StatsAggregator) Stats(ctx context.Context) (*Stats, error) {
	urlStats, err := s.urls.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("url stats: %w", err)
	}

	eventCounts, err := s.events.CountByType(ctx)
	if err != nil {
		return nil, fmt.Errorf("event counts: %w", err)
	}

	collections, err := s.events.StatsByType(ctx)
	if err != nil {
		return nil, fmt.Errorf("collection stats: %w", err)
	}

	actionStats, err := s.actions.CountByAction(ctx)
	if err != nil {
		return nil, fmt.Errorf("action stats: %w", err)
	}

	return &Stats{
		URLs:        urlStats,
		Events:      eventCounts,
		Collections: collections,
		Actions:     actionStats,
	}, nil
}
