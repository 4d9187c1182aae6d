package models

import (
	"fmt"
)

// UnifiedQuery carries the filters and pagination for the merged event view.
// Type and Location are applied at the source collections before unioning;
// Status depends on a derived value and is applied only after derivation.
type UnifiedQuery struct {
	Type     *EventType `json:"type,omitempty"`
	Location string     `json:"location,omitempty"`
	Status   *Status    `json:"status,omitempty"`
	Limit    int        `json:"limit,omitempty"`
	Offset   int        `json:"offset,omitempty"`
}

const (
	defaultQueryLimit = 100
	maxQueryLimit     = 500
)

// Validate checks filter values and applies pagination defaults.
func (q *UnifiedQuery) Validate() error {
	if q.Type != nil && !q.Type.Valid() {
		return fmt.Errorf("invalid type filter: %q", *q.Type)
	}
	if q.Status != nil && !q.Status.Valid() {
		return fmt.Errorf("invalid status filter: %q", *q.Status)
	}
	if q.Limit <= 0 {
		q.Limit = defaultQueryLimit
	}
	if q.Limit > maxQueryLimit {
		q.Limit = maxQueryLimit
	}
	if q.Offset < 0 {
		q.Offset = 0
	}
	return nil
}
