package scrape

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/eventdash/eventdash/internal/models"
)

const eventbriteBaseURL = "https://www.eventbrite.com"

// Eventbrite scrapes hackathon search results. Event pages live under /e/
// with an event id suffix; search pages are crawled across a few queries.
type Eventbrite struct {
	baseURL string
}

func NewEventbrite() *Eventbrite {
	return &Eventbrite{baseURL: eventbriteBaseURL}
}

func (e *Eventbrite) Name() string { return "eventbrite" }

func (e *Eventbrite) EventType() models.EventType { return models.EventTypeHackathon }

func (e *Eventbrite) SourceReliability() float64 { return 0.7 }

var eventbriteSearchQueries = []string{
	"hackathon",
	"coding-competition",
	"programming-contest",
	"tech-challenge",
}

func (e *Eventbrite) SeedPages() []string {
	pages := make([]string, 0, len(eventbriteSearchQueries))
	for _, query := range eventbriteSearchQueries {
		pages = append(pages, e.baseURL+"/d/online/"+query)
	}
	return pages
}

var eventbriteLinkKeywords = []string{
	"hackathon", "hack", "coding", "programming",
	"developer", "tech challenge", "code", "dev",
}

func (e *Eventbrite) Discover(body, baseURL string) []string {
	doc, err := parseDocument(body)
	if err != nil {
		return nil
	}

	var urls []string
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		if !e.isEventURL(href) {
			return
		}

		full := resolveURL(e.baseURL, href)
		if full == "" {
			return
		}

		linkText := strings.ToLower(strings.TrimSpace(s.Text()))
		if textHasAny(linkText, eventbriteLinkKeywords) {
			urls = append(urls, full)
		}
	})

	return DedupeURLs(urls)
}

// Eventbrite event URLs contain /e/ followed by an event id.
func (e *Eventbrite) isEventURL(url string) bool {
	if url == "" {
		return false
	}
	if strings.HasPrefix(url, "/e/") {
		return true
	}
	return strings.Contains(url, "/e/") && strings.Contains(url, "eventbrite.com")
}

var eventbriteTitleSelectors = []string{"h1.event-title", "h1", ".event-title", "title"}

func (e *Eventbrite) ExtractDetails(url, body string) (models.RawFields, error) {
	doc, err := parseDocument(body)
	if err != nil {
		return nil, fmt.Errorf("parse eventbrite page %s: %w", url, err)
	}

	fields := models.RawFields{
		"url":                url,
		"name":               extractTitle(doc, eventbriteTitleSelectors, "Unknown Event"),
		"source":             e.Name(),
		"source_reliability": e.SourceReliability(),
	}

	text := strings.ToLower(doc.Text())
	if textHasAny(text, remoteKeywords) && !textHasAny(text, inPersonKeywords) {
		fields["remote"] = true
	}
	if organizer := strings.TrimSpace(doc.Find(".organizer-name, [data-testid='organizer-name']").First().Text()); organizer != "" {
		fields["organizer"] = organizer
	}

	filled := 0
	for _, key := range eventbriteDetailFields {
		if v, ok := fields[key]; ok && v != nil {
			filled++
		}
	}
	fields["data_completeness"] = float64(filled) / float64(len(eventbriteDetailFields))

	return fields, nil
}

// Completeness counts only detail fields the page may or may not yield.
// Bookkeeping keys like url and source are always present and would inflate
// the score.
var eventbriteDetailFields = []string{
	"start_date", "end_date", "location", "city",
	"remote", "description", "organizer", "ticket_price",
}

func (e *Eventbrite) ContentQuality(body string) float64 {
	return contentQuality(body, hackathonQualityTerms)
}
