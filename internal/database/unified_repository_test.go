package database

import (
	"strings"
	"testing"
	"time"

	"github.com/eventdash/eventdash/internal/models"
)

func strPtr(s string) *string { return &s }

func row(id, startDate, location string, created time.Time) unifiedRow {
	r := unifiedRow{ID: id, Name: "Event " + id, Type: models.EventTypeHackathon, URL: "https://x.test/" + id, CreatedAt: created}
	if startDate != "" {
		r.StartDate = strPtr(startDate)
	}
	if location != "" {
		r.Location = strPtr(location)
	}
	return r
}

func TestBuildUnionQuery(t *testing.T) {
	t.Run("both collections", func(t *testing.T) {
		query, args := buildUnionQuery(models.UnifiedQuery{})
		if !strings.Contains(query, "FROM hackathons") || !strings.Contains(query, "FROM conferences") {
			t.Errorf("expected both collections:\n%s", query)
		}
		if !strings.Contains(query, "UNION ALL") {
			t.Errorf("expected UNION ALL:\n%s", query)
		}
		if len(args) != 0 {
			t.Errorf("unexpected args %v", args)
		}
	})

	t.Run("type filter restricts to one collection", func(t *testing.T) {
		conf := models.EventTypeConference
		query, _ := buildUnionQuery(models.UnifiedQuery{Type: &conf})
		if strings.Contains(query, "FROM hackathons") {
			t.Errorf("hackathons should be excluded:\n%s", query)
		}
		if strings.Contains(query, "UNION ALL") {
			t.Errorf("single collection needs no union:\n%s", query)
		}
	})

	t.Run("location filter applied before union", func(t *testing.T) {
		query, args := buildUnionQuery(models.UnifiedQuery{Location: "Berlin"})
		if strings.Count(query, "ILIKE $1") != 2 {
			t.Errorf("location filter must appear in each branch:\n%s", query)
		}
		if !strings.Contains(query, "COALESCE(location, 'TBD')") {
			t.Errorf("absent locations must match their sentinel:\n%s", query)
		}
		if len(args) != 1 || args[0] != "%Berlin%" {
			t.Errorf("args = %v", args)
		}
	})
}

func TestFinishRows_Ordering(t *testing.T) {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	rows := []unifiedRow{
		row("old", "2024-01-01", "NYC", base),
		row("new", "2025-06-01", "NYC", base),
		row("nodate", "", "NYC", base.Add(time.Hour)),
		row("tbd", "TBD", "NYC", base),
		row("mid", "2025-03-01", "NYC", base),
	}

	events := finishRows(rows, models.UnifiedQuery{Limit: 10})

	got := make([]string, len(events))
	for i, e := range events {
		got[i] = e.ID
	}

	want := []string{"new", "mid", "old", "nodate", "tbd"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order = %v, want %v", got, want)
		}
	}
}

func TestFinishRows_TieBreakByCreatedAt(t *testing.T) {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	rows := []unifiedRow{
		row("older", "2025-06-01", "NYC", base),
		row("newer", "2025-06-01", "NYC", base.Add(time.Hour)),
	}

	events := finishRows(rows, models.UnifiedQuery{Limit: 10})
	if events[0].ID != "newer" {
		t.Errorf("created_at tie-break violated: %s first", events[0].ID)
	}
}

func TestFinishRows_StatusDerivation(t *testing.T) {
	base := time.Now()
	rows := []unifiedRow{
		row("enriched", "2025-06-01", "NYC", base),
		row("validated", "2025-06-01", "", base),
		row("filtered", "", "NYC", base),
		row("tbd-loc", "2025-06-01", "TBD", base),
	}

	events := finishRows(rows, models.UnifiedQuery{Limit: 10})

	statuses := make(map[string]models.Status, len(events))
	for _, e := range events {
		statuses[e.ID] = e.Status
	}

	if statuses["enriched"] != models.StatusEnriched {
		t.Errorf("enriched = %v", statuses["enriched"])
	}
	if statuses["validated"] != models.StatusValidated {
		t.Errorf("validated = %v", statuses["validated"])
	}
	if statuses["filtered"] != models.StatusFiltered {
		t.Errorf("filtered = %v", statuses["filtered"])
	}
	if statuses["tbd-loc"] != models.StatusValidated {
		t.Errorf("tbd location should be validated, got %v", statuses["tbd-loc"])
	}
}

func TestFinishRows_PaginationBeforeStatusFilter(t *testing.T) {
	base := time.Now()
	rows := []unifiedRow{
		row("a", "2025-06-04", "NYC", base),
		row("b", "2025-06-03", "", base),
		row("c", "2025-06-02", "NYC", base),
		row("d", "2025-06-01", "NYC", base),
	}

	enriched := models.StatusEnriched
	events := finishRows(rows, models.UnifiedQuery{Limit: 2, Status: &enriched})

	// The limit is applied to the ordered rows first; the status filter
	// then drops non-matching rows from that window.
	if len(events) != 1 || events[0].ID != "a" {
		t.Fatalf("events = %+v", events)
	}
}

func TestFinishRows_OffsetPastEnd(t *testing.T) {
	rows := []unifiedRow{row("a", "2025-06-01", "NYC", time.Now())}
	events := finishRows(rows, models.UnifiedQuery{Limit: 10, Offset: 5})
	if len(events) != 0 {
		t.Errorf("expected empty page, got %v", events)
	}
}

func TestFinishRows_SentinelDefaults(t *testing.T) {
	events := finishRows([]unifiedRow{row("a", "", "", time.Now())}, models.UnifiedQuery{Limit: 10})
	if events[0].Location != "TBD" || events[0].StartDate != "TBD" || events[0].EndDate != "TBD" {
		t.Errorf("sentinel defaults missing: %+v", events[0])
	}
}

func TestMetadataEqual(t *testing.T) {
	if !metadataEqual([]byte(`{"a":1,"b":2}`), []byte(`{"b":2,"a":1}`)) {
		t.Error("key order must not matter")
	}
	if metadataEqual([]byte(`{"a":1}`), []byte(`{"a":2}`)) {
		t.Error("different values must not compare equal")
	}
	if !metadataEqual(nil, nil) {
		t.Error("empty metadata should equal empty metadata")
	}
	if metadataEqual(nil, []byte(`{"a":1}`)) {
		t.Error("empty vs non-empty must differ")
	}
}
