package models

import (
	"time"
)

// EventType identifies which of the two event collections a record belongs to.
type EventType string

const (
	EventTypeHackathon  EventType = "hackathon"
	EventTypeConference EventType = "conference"
)

// Valid reports whether the event type is one of the two known collections.
func (t EventType) Valid() bool {
	return t == EventTypeHackathon || t == EventTypeConference
}

// Table returns the storage table backing this event type.
func (t EventType) Table() string {
	if t == EventTypeConference {
		return "conferences"
	}
	return "hackathons"
}

// SentinelTBD marks a scalar field whose value is not yet known.
const SentinelTBD = "TBD"

// Event is a canonical hackathon or conference record. Both collections share
// this shape; URL uniquely identifies a record within its collection and is
// the dedup key for insert-or-update. CreatedAt is set once at first insert.
type Event struct {
	ID               string         `json:"id"`
	Name             string         `json:"name"`
	URL              string         `json:"url"`
	Date             *string        `json:"date,omitempty"`
	StartDate        *string        `json:"start_date,omitempty"`
	EndDate          *string        `json:"end_date,omitempty"`
	Location         *string        `json:"location,omitempty"`
	City             *string        `json:"city,omitempty"`
	Remote           bool           `json:"remote"`
	Description      *string        `json:"description,omitempty"`
	ShortDescription *string        `json:"short_description,omitempty"`
	Speakers         []string       `json:"speakers"`
	Sponsors         []string       `json:"sponsors"`
	TicketPrice      map[string]any `json:"ticket_price,omitempty"`
	IsPaid           bool           `json:"is_paid"`
	Themes           []string       `json:"themes"`
	Source           *string        `json:"source,omitempty"`
	CreatedAt        time.Time      `json:"created_at"`
}

// EffectiveStartDate returns the best available start date for ordering and
// status derivation: start_date first, then the legacy date column.
func (e *Event) EffectiveStartDate() *string {
	if e.StartDate != nil && *e.StartDate != "" {
		return e.StartDate
	}
	if e.Date != nil && *e.Date != "" {
		return e.Date
	}
	return nil
}

// Status is the derived completeness state of an event. It is computed from
// (location, start_date) and never stored.
type Status string

const (
	// StatusFiltered marks events without a usable start date.
	StatusFiltered Status = "filtered"
	// StatusValidated marks events with a start date but no usable location.
	StatusValidated Status = "validated"
	// StatusEnriched marks events with both a start date and a location.
	StatusEnriched Status = "enriched"
)

// Valid reports whether the status is one of the three derived states.
func (s Status) Valid() bool {
	return s == StatusFiltered || s == StatusValidated || s == StatusEnriched
}

// DeriveStatus computes the canonical derived status from location and start
// date. Ingestion-time defaulting and query-time derivation both use this
// single function so the two never disagree.
func DeriveStatus(location, startDate *string) Status {
	if startDate == nil || *startDate == "" || *startDate == SentinelTBD {
		return StatusFiltered
	}
	if location != nil && *location != "" && *location != SentinelTBD {
		return StatusEnriched
	}
	return StatusValidated
}

// UnifiedEvent is one row of the merged hackathon+conference view served to
// callers: the canonical fields plus the derived status and the most recent
// manual action, if any.
type UnifiedEvent struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Type       EventType `json:"type"`
	Location   string    `json:"location"`
	StartDate  string    `json:"start_date"`
	EndDate    string    `json:"end_date"`
	URL        string    `json:"url"`
	Status     Status    `json:"status"`
	LastAction *Action   `json:"last_action,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// startDateLayouts are the formats accepted when ordering by start date.
var startDateLayouts = []string{
	"2006-01-02",
	"2006-01-02T15:04:05Z07:00",
	"01/02/2006",
	"January 2, 2006",
	"Jan 2, 2006",
}

// ParseStartDate parses a stored start-date string for ordering purposes.
// Absent, sentinel, and unparseable values all map to the zero time so they
// sort as the oldest possible date instead of erroring.
func ParseStartDate(s string) time.Time {
	if s == "" || s == SentinelTBD {
		return time.Time{}
	}
	for _, layout := range startDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
