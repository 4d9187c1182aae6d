package scrape

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/eventdash/eventdash/internal/models"
)

const devpostBaseURL = "https://devpost.com"

// Devpost scrapes hackathon listings from devpost.com. Listings appear as
// tiles with data-url attributes plus plain links to per-hackathon
// subdomains.
type Devpost struct {
	baseURL  string
	maxPages int
}

// NewDevpost constructs the strategy. maxPages controls how many listing
// pages are scanned per run.
func NewDevpost(maxPages int) *Devpost {
	if maxPages <= 0 {
		maxPages = 3
	}
	return &Devpost{baseURL: devpostBaseURL, maxPages: maxPages}
}

func (d *Devpost) Name() string { return "devpost" }

func (d *Devpost) EventType() models.EventType { return models.EventTypeHackathon }

func (d *Devpost) SourceReliability() float64 { return 0.8 }

func (d *Devpost) SeedPages() []string {
	pages := make([]string, 0, d.maxPages)
	for page := 1; page <= d.maxPages; page++ {
		if page == 1 {
			pages = append(pages, d.baseURL+"/hackathons")
			continue
		}
		pages = append(pages, fmt.Sprintf("%s/hackathons?page=%d", d.baseURL, page))
	}
	return pages
}

var devpostTileClasses = []string{
	"hackathon-tile", "challenge-tile", "challenge-link",
	"hackathon-card", "challenge-card", "listing-link",
}

var devpostLinkKeywords = []string{"hackathon", "challenge", "competition", "contest", "hack", "dev"}

func (d *Devpost) Discover(body, baseURL string) []string {
	doc, err := parseDocument(body)
	if err != nil {
		return nil
	}

	var urls []string

	doc.Find("[data-url]").Each(func(_ int, s *goquery.Selection) {
		dataURL, _ := s.Attr("data-url")
		if dataURL != "" && d.isHackathonURL(dataURL) {
			if full := resolveURL(d.baseURL, dataURL); full != "" {
				urls = append(urls, full)
			}
		}
	})

	for _, class := range devpostTileClasses {
		doc.Find("a." + class).Each(func(_ int, s *goquery.Selection) {
			href, _ := s.Attr("href")
			if d.isHackathonURL(href) {
				if full := resolveURL(d.baseURL, href); full != "" {
					urls = append(urls, full)
				}
			}
		})
	}

	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		if href == "" || !d.isHackathonURL(href) {
			return
		}

		linkText := strings.ToLower(strings.TrimSpace(s.Text()))
		if textHasAny(linkText, devpostLinkKeywords) || textHasAny(strings.ToLower(href), devpostLinkKeywords) {
			if full := resolveURL(d.baseURL, href); full != "" {
				urls = append(urls, full)
			}
			return
		}
		if strings.HasSuffix(href, ".devpost.com") || strings.Contains(href, "/hackathons/") {
			if full := resolveURL(d.baseURL, href); full != "" {
				urls = append(urls, full)
			}
		}
	})

	return DedupeURLs(urls)
}

var devpostSkipPatterns = []string{
	"/api/", "/static/", "/assets/", "/search", "/login", "/signup",
	"/about", "/privacy", "/terms", "/contact", "/help", "/users/",
	"/submissions/", "/judges/", "/participants/", ".css", ".js", ".png",
	".jpg", ".gif", ".pdf", "/software/", "/challenges/",
}

var devpostURLPatterns = []*regexp.Regexp{
	regexp.MustCompile(`/hackathons/[^/]+/?`),
	regexp.MustCompile(`[a-zA-Z0-9-]+\.devpost\.com`),
}

func (d *Devpost) isHackathonURL(url string) bool {
	lower := strings.ToLower(url)

	for _, pattern := range devpostSkipPatterns {
		if strings.Contains(lower, pattern) {
			return false
		}
	}

	if strings.HasPrefix(url, "#") {
		return false
	}

	// The root listing page is not itself a hackathon.
	switch lower {
	case "https://devpost.com/hackathons", "https://devpost.com/hackathons/", "/hackathons", "/hackathons/":
		return false
	}

	for _, re := range devpostURLPatterns {
		if re.MatchString(url) {
			if strings.Contains(url, "help.devpost.com") || strings.Contains(url, "support.devpost.com") {
				return false
			}
			return true
		}
	}
	return false
}

var devpostTitleSelectors = []string{"h1", ".hackathon-name", ".challenge-title", "title"}

func (d *Devpost) ExtractDetails(url, body string) (models.RawFields, error) {
	doc, err := parseDocument(body)
	if err != nil {
		return nil, fmt.Errorf("parse devpost page %s: %w", url, err)
	}

	fields := models.RawFields{
		"url":                url,
		"name":               extractTitle(doc, devpostTitleSelectors, "Unknown Hackathon"),
		"source":             d.Name(),
		"source_reliability": d.SourceReliability(),
	}

	text := strings.ToLower(doc.Text())
	if textHasAny(text, remoteKeywords) && !textHasAny(text, inPersonKeywords) {
		fields["remote"] = true
	}

	return fields, nil
}

var hackathonQualityTerms = []string{"hackathon", "coding", "programming", "developer", "tech"}

func (d *Devpost) ContentQuality(body string) float64 {
	return contentQuality(body, hackathonQualityTerms)
}
