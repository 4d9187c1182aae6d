package models

import (
	"time"
)

// CollectedURL is one entry in the URL discovery ledger. A URL is globally
// unique across both source types. IsEnriched transitions to true exactly
// once and never back.
type CollectedURL struct {
	URL         string         `json:"url"`
	SourceType  EventType      `json:"source_type"`
	IsEnriched  bool           `json:"is_enriched"`
	CollectedAt time.Time      `json:"collected_at"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// BatchCounts reports the per-record outcome of a batch write. Per-record
// failures are tallied here instead of aborting the batch.
type BatchCounts struct {
	Inserted int `json:"inserted"`
	Updated  int `json:"updated"`
	Skipped  int `json:"skipped"`
	Errors   int `json:"errors"`
}

// Total returns the number of records accounted for in the batch.
func (c BatchCounts) Total() int {
	return c.Inserted + c.Updated + c.Skipped + c.Errors
}
