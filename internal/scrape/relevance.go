package scrape

import (
	"strings"
)

// Keywords that mark administrative or off-site pages that are never event
// detail pages.
var invalidURLKeywords = []string{
	"login", "privacy", "terms", "about", "help", "contact", "careers",
	"support", "settings", "register", "signup", "logout", "account",
	"linkedin.com", "twitter.com", "facebook.com", "instagram.com",
	"youtube.com", "github.com", "/api/", "/static/", "redirect?",
	"community-guidelines", "california-consumer-privacy", "legal/",
}

// At least one of these must appear for a URL to be considered event related.
var validURLKeywords = []string{
	"hackathon", "event", "challenge", "competition", "contest",
	"summit", "conference", "workshop", "coding", "programming",
	"hack", "tech", "innovation", "startup", "dev", "developer",
}

// IsValidEventURL reports whether a URL plausibly points at an event page
// rather than a generic or administrative one.
func IsValidEventURL(url string) bool {
	if url == "" {
		return false
	}

	lower := strings.ToLower(url)

	for _, kw := range invalidURLKeywords {
		if strings.Contains(lower, kw) {
			return false
		}
	}

	for _, kw := range validURLKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// DedupeURLs removes duplicates while preserving first-seen order. URLs are
// compared case-insensitively with trailing slashes stripped.
func DedupeURLs(urls []string) []string {
	seen := make(map[string]struct{}, len(urls))
	unique := make([]string, 0, len(urls))
	for _, u := range urls {
		key := strings.TrimRight(strings.ToLower(strings.TrimSpace(u)), "/")
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		unique = append(unique, u)
	}
	return unique
}
