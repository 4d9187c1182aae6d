package enrich

import (
	"context"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/eventdash/eventdash/internal/models"
)

// MockExtractor is a rule-based extractor used in tests and when no API key
// is configured. It only reports fields it can find verbatim in the page.
type MockExtractor struct{}

func NewMockExtractor() *MockExtractor {
	return &MockExtractor{}
}

func (m *MockExtractor) Name() string { return "mock" }

var isoDatePattern = regexp.MustCompile(`\b(20\d{2})-(\d{2})-(\d{2})\b`)

var mockRemoteKeywords = []string{"remote", "virtual", "online"}

func (m *MockExtractor) Extract(_ context.Context, eventType models.EventType, url, content string) (models.RawFields, error) {
	fields := models.RawFields{
		"url":    url,
		"source": string(eventType) + "_mock",
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(truncateContent(content)))
	if err != nil {
		return fields, nil
	}

	if name := strings.TrimSpace(doc.Find("h1").First().Text()); name != "" {
		fields["name"] = name
	} else if title := strings.TrimSpace(doc.Find("title").First().Text()); title != "" {
		fields["name"] = title
	}

	text := doc.Text()

	if dates := isoDatePattern.FindAllString(text, 2); len(dates) > 0 {
		fields["start_date"] = dates[0]
		if len(dates) > 1 && dates[1] >= dates[0] {
			fields["end_date"] = dates[1]
		}
	}

	lower := strings.ToLower(text)
	for _, kw := range mockRemoteKeywords {
		if strings.Contains(lower, kw) {
			fields["remote"] = true
			break
		}
	}

	if desc := strings.TrimSpace(doc.Find("p").First().Text()); desc != "" {
		if len(desc) > 280 {
			desc = desc[:280]
		}
		fields["description"] = desc
	}

	return fields, nil
}
