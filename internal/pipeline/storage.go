package pipeline

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/eventdash/eventdash/internal/models"
)

// URLRepository is the ledger of discovered URLs and their enrichment state.
type URLRepository interface {
	// Collect upserts discovered URL records by url.
	Collect(ctx context.Context, records []models.RawFields, sourceType models.EventType) (models.BatchCounts, error)

	// PendingForEnrichment returns not-yet-enriched URLs, oldest first.
	PendingForEnrichment(ctx context.Context, sourceType models.EventType, limit int) ([]models.RawFields, error)

	// MarkEnriched flags a URL as enriched. Idempotent; false for unknown URLs.
	MarkEnriched(ctx context.Context, url string) (bool, error)
}

// EventRepository stores normalized events per collection.
type EventRepository interface {
	// Save writes a batch, deduplicating by url.
	Save(ctx context.Context, events []*models.Event, eventType models.EventType, updateExisting bool) (models.BatchCounts, error)
}

// MemoryURLRepository implements an in-memory URL ledger for testing and
// development. Semantics mirror the PostgreSQL repository.
type MemoryURLRepository struct {
	mu      sync.RWMutex
	entries map[string]*models.CollectedURL
}

// NewMemoryURLRepository creates an empty in-memory URL ledger.
func NewMemoryURLRepository() *MemoryURLRepository {
	return &MemoryURLRepository{entries: make(map[string]*models.CollectedURL)}
}

// Collect upserts records by url, matching the Postgres repository.
func (r *MemoryURLRepository) Collect(_ context.Context, records []models.RawFields, sourceType models.EventType) (models.BatchCounts, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var counts models.BatchCounts
	for _, record := range records {
		url := record.URL()
		if url == "" {
			counts.Errors++
			continue
		}

		existing, ok := r.entries[url]
		if !ok {
			r.entries[url] = &models.CollectedURL{
				URL:         url,
				SourceType:  sourceType,
				IsEnriched:  false,
				CollectedAt: time.Now(),
				Metadata:    copyFields(record),
			}
			counts.Inserted++
			continue
		}

		if sameMetadata(existing.Metadata, record) {
			counts.Skipped++
			continue
		}

		existing.Metadata = copyFields(record)
		existing.CollectedAt = time.Now()
		counts.Updated++
	}
	return counts, nil
}

// copyFields detaches stored metadata from the caller's map, which the
// caller may keep mutating after Collect returns.
func copyFields(record models.RawFields) map[string]any {
	metadata := make(map[string]any, len(record))
	for k, v := range record {
		metadata[k] = v
	}
	return metadata
}

func sameMetadata(a, b map[string]any) bool {
	aJSON, errA := json.Marshal(a)
	bJSON, errB := json.Marshal(b)
	if errA != nil || errB != nil {
		return false
	}
	return string(aJSON) == string(bJSON)
}

// PendingForEnrichment returns unenriched entries oldest first.
func (r *MemoryURLRepository) PendingForEnrichment(_ context.Context, sourceType models.EventType, limit int) ([]models.RawFields, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var entries []*models.CollectedURL
	for _, entry := range r.entries {
		if entry.SourceType == sourceType && !entry.IsEnriched {
			entries = append(entries, entry)
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].CollectedAt.Before(entries[j].CollectedAt)
	})

	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}

	pending := make([]models.RawFields, 0, len(entries))
	for _, entry := range entries {
		fields := models.RawFields{}
		for k, v := range entry.Metadata {
			fields[k] = v
		}
		fields["url"] = entry.URL
		pending = append(pending, fields)
	}
	return pending, nil
}

// MarkEnriched flags a URL; marking twice is a no-op success.
func (r *MemoryURLRepository) MarkEnriched(_ context.Context, url string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.entries[url]
	if !ok {
		return false, nil
	}
	entry.IsEnriched = true
	return true, nil
}

// Get returns the ledger entry for a URL, for test assertions.
func (r *MemoryURLRepository) Get(url string) (models.CollectedURL, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.entries[url]
	if !ok {
		return models.CollectedURL{}, false
	}
	return *entry, true
}

// MemoryEventRepository implements an in-memory event store for testing and
// development.
type MemoryEventRepository struct {
	mu     sync.RWMutex
	events map[models.EventType]map[string]*models.Event
}

// NewMemoryEventRepository creates an empty in-memory event store.
func NewMemoryEventRepository() *MemoryEventRepository {
	return &MemoryEventRepository{
		events: map[models.EventType]map[string]*models.Event{
			models.EventTypeHackathon:  {},
			models.EventTypeConference: {},
		},
	}
}

// Save mirrors the Postgres skip-or-upsert semantics, keyed by url.
func (r *MemoryEventRepository) Save(_ context.Context, events []*models.Event, eventType models.EventType, updateExisting bool) (models.BatchCounts, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var counts models.BatchCounts
	collection := r.events[eventType]

	for _, event := range events {
		if event == nil || event.URL == "" {
			counts.Errors++
			continue
		}

		existing, ok := collection[event.URL]
		if !ok {
			stored := *event
			stored.CreatedAt = time.Now()
			collection[event.URL] = &stored
			counts.Inserted++
			continue
		}

		if !updateExisting {
			counts.Skipped++
			continue
		}

		stored := *event
		stored.ID = existing.ID
		stored.CreatedAt = existing.CreatedAt
		collection[event.URL] = &stored
		counts.Updated++
	}
	return counts, nil
}

// Get returns a stored event by url, for test assertions.
func (r *MemoryEventRepository) Get(eventType models.EventType, url string) (models.Event, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	event, ok := r.events[eventType][url]
	if !ok {
		return models.Event{}, false
	}
	return *event, true
}

// Count returns the number of stored events for a type.
func (r *MemoryEventRepository) Count(eventType models.EventType) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.events[eventType])
}
