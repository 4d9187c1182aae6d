package scrape

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/eventdash/eventdash/internal/models"
)

const hackerEarthBaseURL = "https://www.hackerearth.com"

// HackerEarth scrapes the challenges listing. Challenge cards link to either
// hackathon or challenge URLs; everything else on the page is chrome.
type HackerEarth struct {
	baseURL string
}

func NewHackerEarth() *HackerEarth {
	return &HackerEarth{baseURL: hackerEarthBaseURL}
}

func (h *HackerEarth) Name() string { return "hackerearth" }

func (h *HackerEarth) EventType() models.EventType { return models.EventTypeHackathon }

func (h *HackerEarth) SourceReliability() float64 { return 0.75 }

func (h *HackerEarth) SeedPages() []string {
	return []string{h.baseURL + "/challenges/hackathon/"}
}

func (h *HackerEarth) Discover(body, baseURL string) []string {
	doc, err := parseDocument(body)
	if err != nil {
		return nil
	}

	var urls []string
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		name := strings.TrimSpace(s.Text())
		if len(name) <= 3 {
			return
		}

		full := resolveURL(h.baseURL, href)
		if full == "" {
			return
		}

		lower := strings.ToLower(full)
		if strings.Contains(lower, "hackathon") || strings.Contains(lower, "challenge") {
			urls = append(urls, full)
		}
	})

	return DedupeURLs(urls)
}

var hackerEarthTitleSelectors = []string{"h1", ".challenge-name", ".event-title", "title"}

func (h *HackerEarth) ExtractDetails(url, body string) (models.RawFields, error) {
	doc, err := parseDocument(body)
	if err != nil {
		return nil, fmt.Errorf("parse hackerearth page %s: %w", url, err)
	}

	fields := models.RawFields{
		"url":                url,
		"name":               extractTitle(doc, hackerEarthTitleSelectors, "Unknown Hackathon"),
		"source":             h.Name(),
		"source_reliability": h.SourceReliability(),
	}

	text := strings.ToLower(doc.Text())
	if textHasAny(text, remoteKeywords) && !textHasAny(text, inPersonKeywords) {
		fields["remote"] = true
	}

	return fields, nil
}

func (h *HackerEarth) ContentQuality(body string) float64 {
	return contentQuality(body, hackathonQualityTerms)
}
