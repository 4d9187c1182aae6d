package pipeline

import (
	"context"
	"testing"

	"github.com/eventdash/eventdash/internal/models"
)

func TestMemoryURLRepository_Collect(t *testing.T) {
	repo := NewMemoryURLRepository()
	ctx := context.Background()

	counts, err := repo.Collect(ctx, []models.RawFields{
		{"url": "https://x.test/a", "source": "devpost"},
		{"url": "https://x.test/b", "source": "devpost"},
		{"source": "devpost"}, // missing url
	}, models.EventTypeHackathon)
	if err != nil {
		t.Fatalf("Collect returned error: %v", err)
	}

	if counts.Inserted != 2 || counts.Errors != 1 {
		t.Errorf("counts = %+v", counts)
	}

	// Same metadata again: skipped, not updated.
	counts, err = repo.Collect(ctx, []models.RawFields{
		{"url": "https://x.test/a", "source": "devpost"},
	}, models.EventTypeHackathon)
	if err != nil {
		t.Fatalf("Collect returned error: %v", err)
	}
	if counts.Skipped != 1 || counts.Updated != 0 {
		t.Errorf("counts = %+v", counts)
	}

	// Changed metadata: updated.
	counts, err = repo.Collect(ctx, []models.RawFields{
		{"url": "https://x.test/a", "source": "devpost", "name": "Now Named"},
	}, models.EventTypeHackathon)
	if err != nil {
		t.Fatalf("Collect returned error: %v", err)
	}
	if counts.Updated != 1 {
		t.Errorf("counts = %+v", counts)
	}

	entry, ok := repo.Get("https://x.test/a")
	if !ok {
		t.Fatal("entry missing")
	}
	if entry.IsEnriched {
		t.Error("metadata update must not touch is_enriched")
	}
}

func TestMemoryURLRepository_CollectDetachesMetadata(t *testing.T) {
	repo := NewMemoryURLRepository()
	ctx := context.Background()

	record := models.RawFields{"url": "https://x.test/a", "source": "devpost"}
	if _, err := repo.Collect(ctx, []models.RawFields{record}, models.EventTypeHackathon); err != nil {
		t.Fatal(err)
	}

	// Callers reuse and mutate their maps; the ledger must hold its own copy.
	record["source"] = "mutated"
	record["name"] = "Injected"

	entry, ok := repo.Get("https://x.test/a")
	if !ok {
		t.Fatal("entry missing")
	}
	if entry.Metadata["source"] != "devpost" {
		t.Errorf("stored source = %v, caller mutation leaked in", entry.Metadata["source"])
	}
	if _, leaked := entry.Metadata["name"]; leaked {
		t.Error("key added after Collect leaked into the ledger")
	}

	// The update path must detach too.
	update := models.RawFields{"url": "https://x.test/a", "source": "devpost", "name": "Named"}
	if _, err := repo.Collect(ctx, []models.RawFields{update}, models.EventTypeHackathon); err != nil {
		t.Fatal(err)
	}
	update["name"] = "Renamed"

	entry, _ = repo.Get("https://x.test/a")
	if entry.Metadata["name"] != "Named" {
		t.Errorf("stored name = %v, caller mutation leaked in", entry.Metadata["name"])
	}
}

func TestMemoryURLRepository_PendingAndMark(t *testing.T) {
	repo := NewMemoryURLRepository()
	ctx := context.Background()

	if _, err := repo.Collect(ctx, []models.RawFields{
		{"url": "https://x.test/h1", "name": "H1"},
	}, models.EventTypeHackathon); err != nil {
		t.Fatal(err)
	}
	if _, err := repo.Collect(ctx, []models.RawFields{
		{"url": "https://x.test/c1", "name": "C1"},
	}, models.EventTypeConference); err != nil {
		t.Fatal(err)
	}

	pending, err := repo.PendingForEnrichment(ctx, models.EventTypeHackathon, 10)
	if err != nil {
		t.Fatalf("PendingForEnrichment returned error: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("pending = %v", pending)
	}
	if pending[0].URL() != "https://x.test/h1" {
		t.Errorf("url = %q", pending[0].URL())
	}
	if name, _ := pending[0].String("name"); name != "H1" {
		t.Errorf("metadata not flattened: %v", pending[0])
	}

	ok, err := repo.MarkEnriched(ctx, "https://x.test/h1")
	if err != nil || !ok {
		t.Fatalf("MarkEnriched = %t, %v", ok, err)
	}

	// Idempotent.
	ok, err = repo.MarkEnriched(ctx, "https://x.test/h1")
	if err != nil || !ok {
		t.Fatalf("second MarkEnriched = %t, %v", ok, err)
	}

	// Unknown URL: false, no error.
	ok, err = repo.MarkEnriched(ctx, "https://x.test/nope")
	if err != nil || ok {
		t.Fatalf("missing MarkEnriched = %t, %v", ok, err)
	}

	pending, err = repo.PendingForEnrichment(ctx, models.EventTypeHackathon, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 0 {
		t.Errorf("enriched url still pending: %v", pending)
	}
}

func TestMemoryEventRepository_Save(t *testing.T) {
	repo := NewMemoryEventRepository()
	ctx := context.Background()

	event := &models.Event{Name: "First", URL: "https://x.test/e"}

	counts, err := repo.Save(ctx, []*models.Event{event}, models.EventTypeHackathon, false)
	if err != nil {
		t.Fatal(err)
	}
	if counts.Inserted != 1 {
		t.Errorf("counts = %+v", counts)
	}

	// Same url, no update flag: skipped.
	counts, err = repo.Save(ctx, []*models.Event{{Name: "Second", URL: "https://x.test/e"}}, models.EventTypeHackathon, false)
	if err != nil {
		t.Fatal(err)
	}
	if counts.Skipped != 1 {
		t.Errorf("counts = %+v", counts)
	}
	stored, _ := repo.Get(models.EventTypeHackathon, "https://x.test/e")
	if stored.Name != "First" {
		t.Errorf("skip must not overwrite, name = %q", stored.Name)
	}

	// Update flag: updated, created_at preserved.
	counts, err = repo.Save(ctx, []*models.Event{{Name: "Second", URL: "https://x.test/e"}}, models.EventTypeHackathon, true)
	if err != nil {
		t.Fatal(err)
	}
	if counts.Updated != 1 {
		t.Errorf("counts = %+v", counts)
	}
	updated, _ := repo.Get(models.EventTypeHackathon, "https://x.test/e")
	if updated.Name != "Second" {
		t.Errorf("update lost, name = %q", updated.Name)
	}
	if !updated.CreatedAt.Equal(stored.CreatedAt) {
		t.Error("created_at must survive updates")
	}

	// Bad record: counted, batch continues.
	counts, err = repo.Save(ctx, []*models.Event{nil, {Name: "New", URL: "https://x.test/f"}}, models.EventTypeHackathon, true)
	if err != nil {
		t.Fatal(err)
	}
	if counts.Errors != 1 || counts.Inserted != 1 {
		t.Errorf("counts = %+v", counts)
	}
}
