package models

import (
	"time"
)

// ActionType is a manual action recorded against a stored event.
type ActionType string

const (
	ActionArchive    ActionType = "archive"
	ActionReachedOut ActionType = "reached_out"
)

// Valid reports whether the action is one of the known manual actions.
func (a ActionType) Valid() bool {
	return a == ActionArchive || a == ActionReachedOut
}

// Action is one append-only entry in the manual-action log. Rows are never
// updated or deleted; the current action for an event is the one with the
// greatest timestamp.
type Action struct {
	ID        string     `json:"id"`
	EventID   string     `json:"event_id"`
	EventType EventType  `json:"event_type"`
	Action    ActionType `json:"action"`
	Timestamp time.Time  `json:"timestamp"`
}
