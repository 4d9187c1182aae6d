// Package scrape turns listing and detail pages from event sources into raw
// field bags. Each source implements Strategy; the pipeline owns fetching so
// strategies stay pure parsers and are testable on static HTML.
package scrape

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/eventdash/eventdash/internal/models"
)

// Strategy is one event source. Discover scans a listing page body for
// candidate detail URLs; ExtractDetails parses a detail page into raw fields.
// Fields a page does not state are left absent, never guessed.
type Strategy interface {
	Name() string
	EventType() models.EventType
	SeedPages() []string
	Discover(body, baseURL string) []string
	ExtractDetails(url, body string) (models.RawFields, error)
	SourceReliability() float64
	ContentQuality(body string) float64
}

// DegradedRecord builds the placeholder stored when a detail page could not
// be fetched or parsed. The batch continues past it.
func DegradedRecord(url, name, source string, reliability float64, err error) models.RawFields {
	fields := models.RawFields{
		"url":                url,
		"name":               name,
		"source":             source,
		"source_reliability": reliability,
		"data_completeness":  0.1,
	}
	if err != nil {
		fields["error"] = err.Error()
	}
	return fields
}

func parseDocument(body string) (*goquery.Document, error) {
	return goquery.NewDocumentFromReader(strings.NewReader(body))
}

// extractTitle tries selectors in order and returns the first non-trivial
// text match.
func extractTitle(doc *goquery.Document, selectors []string, fallback string) string {
	for _, sel := range selectors {
		title := strings.TrimSpace(doc.Find(sel).First().Text())
		if len(title) > 3 {
			return title
		}
	}
	return fallback
}

func textHasAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

var remoteKeywords = []string{"remote", "virtual", "online", "anywhere"}

var inPersonKeywords = []string{"in-person", "on-site", "location:", "venue:", "address:"}

var monthKeywords = []string{
	"january", "february", "march", "april", "may", "june", "july",
	"august", "september", "october", "november", "december", "2024", "2025", "2026",
}

var locationKeywords = []string{"location", "venue", "address", "online", "virtual"}

// contentQuality scores a detail page on body size and the presence of
// domain-relevant terms. Bounded to [0,1] and monotone in both inputs.
func contentQuality(body string, domainTerms []string) float64 {
	score := 0.0

	switch size := len(body); {
	case size > 10000:
		score += 0.3
	case size > 5000:
		score += 0.2
	case size > 2000:
		score += 0.1
	}

	if body == "" {
		return score
	}

	doc, err := parseDocument(body)
	if err != nil {
		return score
	}
	text := strings.ToLower(doc.Text())

	termScore := 0.0
	for _, term := range domainTerms {
		if strings.Contains(text, term) {
			termScore += 0.1
		}
	}
	if termScore > 0.3 {
		termScore = 0.3
	}
	score += termScore

	if textHasAny(text, monthKeywords) {
		score += 0.2
	}
	if textHasAny(text, locationKeywords) {
		score += 0.1
	}

	if score > 1.0 {
		score = 1.0
	}
	return score
}

// resolveURL makes href absolute against base. Relative fragments and
// unparseable hrefs return "".
func resolveURL(base, href string) string {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") {
		return ""
	}
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	if strings.HasPrefix(href, "/") {
		return strings.TrimRight(base, "/") + href
	}
	return ""
}
