// Package pipeline orchestrates the collect-enrich-store loop: discover
// candidate URLs from each source, track them in the URL ledger, enrich
// pending ones from their detail pages, and save normalized events.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/eventdash/eventdash/internal/enrich"
	"github.com/eventdash/eventdash/internal/fetch"
	"github.com/eventdash/eventdash/internal/models"
	"github.com/eventdash/eventdash/internal/normalize"
	"github.com/eventdash/eventdash/internal/scrape"
)

// Fetcher retrieves page bodies. Satisfied by fetch.Client.
type Fetcher interface {
	Get(ctx context.Context, url string) fetch.Result
}

// Observer receives pipeline metrics. Satisfied by metrics.Collector.
type Observer interface {
	ObservePipelineRun(source, outcome string, elapsed time.Duration)
	AddRecords(source, result string, n int)
}

type noopObserver struct{}

func (noopObserver) ObservePipelineRun(string, string, time.Duration) {}
func (noopObserver) AddRecords(string, string, int)                  {}

// Config holds pipeline runtime parameters.
type Config struct {
	Interval     time.Duration
	EnrichLimit  int
	RunOnStartup bool
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Interval:     6 * time.Hour,
		EnrichLimit:  25,
		RunOnStartup: true,
	}
}

// Pipeline runs the full collection cycle across all registered sources.
type Pipeline struct {
	strategies []scrape.Strategy
	fetcher    Fetcher
	urls       URLRepository
	events     EventRepository
	extractor  enrich.Extractor
	logger     *slog.Logger
	observer   Observer
	config     Config

	mu      sync.Mutex
	running bool
}

// New creates a pipeline. observer may be nil.
func New(
	strategies []scrape.Strategy,
	fetcher Fetcher,
	urls URLRepository,
	events EventRepository,
	extractor enrich.Extractor,
	logger *slog.Logger,
	observer Observer,
	config Config,
) *Pipeline {
	if observer == nil {
		observer = noopObserver{}
	}
	if config.Interval <= 0 {
		config.Interval = DefaultConfig().Interval
	}
	if config.EnrichLimit <= 0 {
		config.EnrichLimit = DefaultConfig().EnrichLimit
	}
	return &Pipeline{
		strategies: strategies,
		fetcher:    fetcher,
		urls:       urls,
		events:     events,
		extractor:  extractor,
		logger:     logger,
		observer:   observer,
		config:     config,
	}
}

// Start runs collection cycles until the context is cancelled.
func (p *Pipeline) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return fmt.Errorf("pipeline already running")
	}
	p.running = true
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		p.running = false
		p.mu.Unlock()
	}()

	p.logger.Info("starting collection pipeline",
		"sources", len(p.strategies),
		"interval", p.config.Interval.String(),
	)

	if p.config.RunOnStartup {
		if err := p.RunOnce(ctx); err != nil {
			p.logger.Error("initial collection run failed", "error", err)
		}
	}

	ticker := time.NewTicker(p.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("pipeline shutting down")
			return ctx.Err()
		case <-ticker.C:
			if err := p.RunOnce(ctx); err != nil {
				p.logger.Error("collection run failed", "error", err)
			}
		}
	}
}

// RunOnce executes one full cycle: discovery for every source, then
// enrichment for both event types.
func (p *Pipeline) RunOnce(ctx context.Context) error {
	for _, strategy := range p.strategies {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		p.runDiscovery(ctx, strategy)
	}

	for _, eventType := range []models.EventType{models.EventTypeHackathon, models.EventTypeConference} {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		p.runEnrichment(ctx, eventType)
	}

	return nil
}

// runDiscovery scans a source's listing pages and records candidate URLs in
// the ledger.
func (p *Pipeline) runDiscovery(ctx context.Context, strategy scrape.Strategy) {
	start := time.Now()
	source := strategy.Name()

	var discovered []string
	for _, page := range strategy.SeedPages() {
		res := p.fetcher.Get(ctx, page)
		if !res.Success() {
			p.logger.Warn("listing page fetch failed", "source", source, "page", page, "error", res.Err)
			continue
		}
		discovered = append(discovered, strategy.Discover(res.Body, page)...)
	}
	discovered = scrape.DedupeURLs(discovered)

	records := make([]models.RawFields, 0, len(discovered))
	for _, url := range discovered {
		if !scrape.IsValidEventURL(url) {
			continue
		}
		records = append(records, models.RawFields{
			"url":    url,
			"source": source,
		})
	}

	counts, err := p.urls.Collect(ctx, records, strategy.EventType())
	if err != nil {
		p.logger.Error("url collection failed", "source", source, "error", err)
		p.observer.ObservePipelineRun(source, "error", time.Since(start))
		return
	}

	p.logger.Info("discovery complete",
		"source", source,
		"discovered", len(records),
		"inserted", counts.Inserted,
		"updated", counts.Updated,
		"skipped", counts.Skipped,
		"errors", counts.Errors,
	)
	p.observer.ObservePipelineRun(source, "success", time.Since(start))
	p.observer.AddRecords(source, "collected", counts.Inserted+counts.Updated)
}

// runEnrichment drains pending URLs for one event type: fetch the detail
// page, parse it, ask the extractor for missing fields, normalize, and save.
// A failing page becomes a degraded record; the batch continues.
func (p *Pipeline) runEnrichment(ctx context.Context, eventType models.EventType) {
	start := time.Now()
	label := string(eventType) + "_enrichment"

	pending, err := p.urls.PendingForEnrichment(ctx, eventType, p.config.EnrichLimit)
	if err != nil {
		p.logger.Error("pending lookup failed", "event_type", eventType, "error", err)
		p.observer.ObservePipelineRun(label, "error", time.Since(start))
		return
	}
	if len(pending) == 0 {
		return
	}

	events := make([]*models.Event, 0, len(pending))
	for _, record := range pending {
		if ctx.Err() != nil {
			return
		}

		event := p.enrichOne(ctx, eventType, record)
		if event == nil {
			continue
		}
		events = append(events, event)
	}

	counts, err := p.events.Save(ctx, events, eventType, true)
	if err != nil {
		p.logger.Error("event batch save failed, urls stay pending", "event_type", eventType, "error", err)
		p.observer.ObservePipelineRun(label, "error", time.Since(start))
		return
	}

	// URLs are flagged only once their events are stored; a failed batch save
	// leaves them pending so the next cycle retries.
	for _, event := range events {
		if _, err := p.urls.MarkEnriched(ctx, event.URL); err != nil {
			p.logger.Warn("failed to mark url enriched", "url", event.URL, "error", err)
		}
	}

	remote, withDates := 0, 0
	for _, event := range events {
		if event.Remote {
			remote++
		}
		if d := event.EffectiveStartDate(); d != nil && !models.ParseStartDate(*d).IsZero() {
			withDates++
		}
	}

	p.logger.Info("enrichment complete",
		"event_type", eventType,
		"processed", len(pending),
		"remote", remote,
		"with_dates", withDates,
		"inserted", counts.Inserted,
		"updated", counts.Updated,
		"skipped", counts.Skipped,
		"errors", counts.Errors,
	)
	p.observer.ObservePipelineRun(label, "success", time.Since(start))
	p.observer.AddRecords(label, "inserted", counts.Inserted)
	p.observer.AddRecords(label, "updated", counts.Updated)
	p.observer.AddRecords(label, "errors", counts.Errors)
}

// enrichOne turns one pending ledger record into a normalized event. Fetch
// or parse failures yield a degraded record rather than dropping the URL.
func (p *Pipeline) enrichOne(ctx context.Context, eventType models.EventType, record models.RawFields) *models.Event {
	url := record.URL()
	if url == "" {
		return nil
	}

	strategy := p.strategyFor(eventType, record)
	reliability := defaultReliability
	if strategy != nil {
		reliability = strategy.SourceReliability()
	}

	res := p.fetcher.Get(ctx, url)
	if !res.Success() {
		p.logger.Warn("detail page fetch failed", "url", url, "error", res.Err)
		return p.normalizeOrNil(record.Merge(scrape.DegradedRecord(url, "Failed to load", sourceName(strategy), reliability, res.Err)))
	}

	fields := record
	if strategy != nil {
		details, err := strategy.ExtractDetails(url, res.Body)
		if err != nil {
			p.logger.Warn("detail page parse failed", "url", url, "error", err)
			return p.normalizeOrNil(record.Merge(scrape.DegradedRecord(url, "Parsing failed", strategy.Name(), reliability, err)))
		}
		details["content_quality"] = strategy.ContentQuality(res.Body)
		fields = fields.Merge(details)
	}

	extracted, err := p.extractor.Extract(ctx, eventType, url, res.Body)
	if err != nil {
		p.logger.Warn("field extraction failed", "url", url, "extractor", p.extractor.Name(), "error", err)
	} else {
		fields = fields.Merge(extracted)
	}

	return p.normalizeOrNil(fields)
}

func (p *Pipeline) normalizeOrNil(fields models.RawFields) *models.Event {
	event, err := normalize.Normalize(fields)
	if err != nil {
		p.logger.Warn("record normalization failed", "url", fields.URL(), "error", err)
		return nil
	}
	return event
}

const defaultReliability = 0.5

func sourceName(strategy scrape.Strategy) string {
	if strategy == nil {
		return "unknown"
	}
	return strategy.Name()
}

// strategyFor routes a ledger record back to the strategy that discovered
// it, falling back to any strategy of the same event type.
func (p *Pipeline) strategyFor(eventType models.EventType, record models.RawFields) scrape.Strategy {
	source, _ := record.String("source")

	var fallback scrape.Strategy
	for _, strategy := range p.strategies {
		if strategy.EventType() != eventType {
			continue
		}
		if strategy.Name() == source {
			return strategy
		}
		if fallback == nil {
			fallback = strategy
		}
	}
	return fallback
}
