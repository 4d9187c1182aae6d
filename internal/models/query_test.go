package models

import (
	"testing"
)

func TestUnifiedQueryValidate(t *testing.T) {
	t.Run("defaults applied", func(t *testing.T) {
		q := UnifiedQuery{}
		if err := q.Validate(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if q.Limit != 100 {
			t.Errorf("default limit = %d, want 100", q.Limit)
		}
		if q.Offset != 0 {
			t.Errorf("default offset = %d, want 0", q.Offset)
		}
	})

	t.Run("limit capped", func(t *testing.T) {
		q := UnifiedQuery{Limit: 10000}
		if err := q.Validate(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if q.Limit != 500 {
			t.Errorf("limit = %d, want 500", q.Limit)
		}
	})

	t.Run("negative offset clamped", func(t *testing.T) {
		q := UnifiedQuery{Offset: -5}
		if err := q.Validate(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if q.Offset != 0 {
			t.Errorf("offset = %d, want 0", q.Offset)
		}
	})

	t.Run("invalid type rejected", func(t *testing.T) {
		bad := EventType("meetup")
		q := UnifiedQuery{Type: &bad}
		if err := q.Validate(); err == nil {
			t.Error("expected error for unknown type filter")
		}
	})

	t.Run("invalid status rejected", func(t *testing.T) {
		bad := Status("pending")
		q := UnifiedQuery{Status: &bad}
		if err := q.Validate(); err == nil {
			t.Error("expected error for unknown status filter")
		}
	})
}
