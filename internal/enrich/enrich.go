// Package enrich fills in event fields that listing pages do not carry. The
// production extractor asks an LLM to read the detail page; the mock variant
// is rule-based and used in tests and when no API key is configured.
package enrich

import (
	"context"

	"github.com/eventdash/eventdash/internal/models"
)

// Extractor produces structured event fields from a detail page body.
// Returned fields are raw; the normalizer reconciles them downstream.
type Extractor interface {
	Extract(ctx context.Context, eventType models.EventType, url, content string) (models.RawFields, error)
	Name() string
}

// maxContentLength bounds how much page text is sent for extraction.
const maxContentLength = 12000

func truncateContent(content string) string {
	if len(content) > maxContentLength {
		return content[:maxContentLength]
	}
	return content
}
