package scrape

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/eventdash/eventdash/internal/models"
)

// ConferenceSite is one curated conference listing site with the CSS
// selectors that locate its event cards.
type ConferenceSite struct {
	Name      string
	URL       string
	Selectors []string
}

func defaultConferenceSites() []ConferenceSite {
	return []ConferenceSite{
		{
			Name:      "AI4",
			URL:       "https://ai4.io/",
			Selectors: []string{`div[class*="event"]`, `div[class*="conference"]`, ".card"},
		},
		{
			Name:      "MarkTechPost Events",
			URL:       "https://events.marktechpost.com/",
			Selectors: []string{`div[class*="event"]`, "article", ".post"},
		},
		{
			Name:      "TechMeme Events",
			URL:       "https://www.techmeme.com/events",
			Selectors: []string{`div[class*="event"]`, ".item", "article"},
		},
	}
}

// Per-domain reliability for conference sources. Unknown domains get the
// default.
var trustedDomains = map[string]float64{
	"eventbrite.com":   0.9,
	"meetup.com":       0.8,
	"ieee.org":         0.95,
	"acm.org":          0.95,
	"oreilly.com":      0.9,
	"techcrunch.com":   0.85,
	"ai4.io":           0.8,
	"marktechpost.com": 0.7,
	"techmeme.com":     0.75,
}

const defaultConferenceReliability = 0.5

var conferenceKeywords = []string{
	"conference", "summit", "symposium", "workshop", "expo",
	"ai", "artificial intelligence", "machine learning", "data science",
}

// ConferenceSites scrapes a fixed set of curated conference listing sites.
type ConferenceSites struct {
	sites []ConferenceSite
}

func NewConferenceSites() *ConferenceSites {
	return &ConferenceSites{sites: defaultConferenceSites()}
}

func (c *ConferenceSites) Name() string { return "conference_sites" }

func (c *ConferenceSites) EventType() models.EventType { return models.EventTypeConference }

func (c *ConferenceSites) SourceReliability() float64 { return defaultConferenceReliability }

func (c *ConferenceSites) SeedPages() []string {
	pages := make([]string, 0, len(c.sites))
	for _, site := range c.sites {
		pages = append(pages, site.URL)
	}
	return pages
}

func (c *ConferenceSites) Discover(body, baseURL string) []string {
	doc, err := parseDocument(body)
	if err != nil {
		return nil
	}

	site, ok := c.siteFor(baseURL)
	if !ok {
		return nil
	}

	var urls []string
	for _, selector := range site.Selectors {
		doc.Find(selector).Each(func(_ int, card *goquery.Selection) {
			card.Find("a[href]").Each(func(_ int, link *goquery.Selection) {
				href, _ := link.Attr("href")
				full := resolveURL(strings.TrimRight(site.URL, "/"), href)
				if full == "" || !IsValidEventURL(full) {
					return
				}

				text := strings.ToLower(link.Text() + " " + full)
				if textHasAny(text, conferenceKeywords) {
					urls = append(urls, full)
				}
			})
		})
	}

	return DedupeURLs(urls)
}

func (c *ConferenceSites) siteFor(pageURL string) (ConferenceSite, bool) {
	for _, site := range c.sites {
		if strings.HasPrefix(pageURL, strings.TrimRight(site.URL, "/")) {
			return site, true
		}
	}
	return ConferenceSite{}, false
}

// ReliabilityFor returns the per-domain reliability score for a discovered
// conference URL.
func ReliabilityFor(url string) float64 {
	lower := strings.ToLower(url)
	for domain, score := range trustedDomains {
		if strings.Contains(lower, domain) {
			return score
		}
	}
	return defaultConferenceReliability
}

var conferenceTitleSelectors = []string{"h1", ".event-title", ".conference-title", "title"}

var conferenceQualityTerms = []string{"conference", "summit", "speaker", "agenda", "tech"}

func (c *ConferenceSites) ExtractDetails(url, body string) (models.RawFields, error) {
	doc, err := parseDocument(body)
	if err != nil {
		return nil, fmt.Errorf("parse conference page %s: %w", url, err)
	}

	fields := models.RawFields{
		"url":                url,
		"name":               extractTitle(doc, conferenceTitleSelectors, "Unknown Conference"),
		"source":             c.Name(),
		"source_reliability": ReliabilityFor(url),
	}

	text := strings.ToLower(doc.Text())
	if textHasAny(text, remoteKeywords) && !textHasAny(text, inPersonKeywords) {
		fields["remote"] = true
	}

	return fields, nil
}

func (c *ConferenceSites) ContentQuality(body string) float64 {
	return contentQuality(body, conferenceQualityTerms)
}
