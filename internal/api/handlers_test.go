package api

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/eventdash/eventdash/internal/database"
	"github.com/eventdash/eventdash/internal/models"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeUnified struct {
	events    []models.UnifiedEvent
	err       error
	lastQuery models.UnifiedQuery
}

func (f *fakeUnified) Query(_ context.Context, q models.UnifiedQuery) ([]models.UnifiedEvent, error) {
	f.lastQuery = q
	if f.err != nil {
		return nil, f.err
	}
	return f.events, nil
}

type fakeActions struct {
	action *models.Action
	err    error
}

func (f *fakeActions) Record(_ context.Context, eventID string, eventType models.EventType, action models.ActionType) (*models.Action, error) {
	if f.err != nil {
		return nil, f.err
	}
	recorded := *f.action
	recorded.EventID = eventID
	recorded.EventType = eventType
	recorded.Action = action
	return &recorded, nil
}

type fakeStats struct {
	stats *Stats
	err   error
}

func (f *fakeStats) Stats(context.Context) (*Stats, error) { return f.stats, f.err }

func newTestHandler(unified *fakeUnified, actions *fakeActions, stats *fakeStats) *Handler {
	if unified == nil {
		unified = &fakeUnified{}
	}
	if actions == nil {
		actions = &fakeActions{action: &models.Action{ID: "a1", Timestamp: time.Now()}}
	}
	if stats == nil {
		stats = &fakeStats{stats: &Stats{}}
	}
	return NewHandler(unified, actions, stats, testLogger())
}

func TestGetEventsHandler(t *testing.T) {
	unified := &fakeUnified{events: []models.UnifiedEvent{
		{ID: "1", Title: "PyData Berlin", Type: models.EventTypeConference, Status: models.StatusEnriched},
	}}
	handler := newTestHandler(unified, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/events?type=conference&location=berlin&limit=10&offset=5", nil)
	rec := httptest.NewRecorder()
	handler.GetEventsHandler(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("CORS header = %q", got)
	}

	var resp EventsResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Count != 1 || len(resp.Events) != 1 {
		t.Errorf("count = %d, events = %d", resp.Count, len(resp.Events))
	}
	if resp.Events[0].Title != "PyData Berlin" {
		t.Errorf("title = %q", resp.Events[0].Title)
	}

	q := unified.lastQuery
	if q.Type == nil || *q.Type != models.EventTypeConference {
		t.Errorf("query type = %v", q.Type)
	}
	if q.Location != "berlin" || q.Limit != 10 || q.Offset != 5 {
		t.Errorf("query = %+v", q)
	}
}

func TestGetEventsHandler_EmptyResult(t *testing.T) {
	handler := newTestHandler(&fakeUnified{}, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/events", nil)
	rec := httptest.NewRecorder()
	handler.GetEventsHandler(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	// Empty result serializes as [], not null.
	if !strings.Contains(rec.Body.String(), `"events":[]`) {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestGetEventsHandler_Errors(t *testing.T) {
	tests := []struct {
		name   string
		method string
		target string
		err    error
		status int
	}{
		{"wrong method", http.MethodPost, "/api/events", nil, http.StatusMethodNotAllowed},
		{"bad limit", http.MethodGet, "/api/events?limit=abc", nil, http.StatusBadRequest},
		{"bad offset", http.MethodGet, "/api/events?offset=1.5", nil, http.StatusBadRequest},
		{"invalid type", http.MethodGet, "/api/events?type=meetups", database.ErrInvalidArgument, http.StatusBadRequest},
		{"store failure", http.MethodGet, "/api/events", io.ErrUnexpectedEOF, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := newTestHandler(&fakeUnified{err: tt.err}, nil, nil)
			req := httptest.NewRequest(tt.method, tt.target, nil)
			rec := httptest.NewRecorder()
			handler.GetEventsHandler(rec, req)

			if rec.Code != tt.status {
				t.Errorf("status = %d, want %d", rec.Code, tt.status)
			}
		})
	}
}

func TestRecordActionHandler(t *testing.T) {
	handler := newTestHandler(nil, &fakeActions{action: &models.Action{ID: "a1", Timestamp: time.Now()}}, nil)

	body := strings.NewReader(`{"event_type":"hackathon","action":"archive"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/events/ev-42/actions", body)
	rec := httptest.NewRecorder()
	handler.RecordActionHandler(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var action models.Action
	if err := json.NewDecoder(rec.Body).Decode(&action); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if action.EventID != "ev-42" || action.Action != models.ActionArchive {
		t.Errorf("action = %+v", action)
	}
}

func TestRecordActionHandler_Errors(t *testing.T) {
	tests := []struct {
		name   string
		method string
		target string
		body   string
		err    error
		status int
	}{
		{"wrong method", http.MethodGet, "/api/events/ev-1/actions", "", nil, http.StatusMethodNotAllowed},
		{"missing id", http.MethodPost, "/api/events//actions", "{}", nil, http.StatusBadRequest},
		{"malformed json", http.MethodPost, "/api/events/ev-1/actions", "{", nil, http.StatusBadRequest},
		{"unknown action", http.MethodPost, "/api/events/ev-1/actions", `{"event_type":"hackathon","action":"snooze"}`, database.ErrInvalidArgument, http.StatusBadRequest},
		{"unknown event", http.MethodPost, "/api/events/ev-1/actions", `{"event_type":"hackathon","action":"archive"}`, database.ErrNotFound, http.StatusNotFound},
		{"store failure", http.MethodPost, "/api/events/ev-1/actions", `{"event_type":"hackathon","action":"archive"}`, io.ErrUnexpectedEOF, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := newTestHandler(nil, &fakeActions{action: &models.Action{}, err: tt.err}, nil)
			req := httptest.NewRequest(tt.method, tt.target, strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			handler.RecordActionHandler(rec, req)

			if rec.Code != tt.status {
				t.Errorf("status = %d, want %d", rec.Code, tt.status)
			}
		})
	}
}

func TestGetStatsHandler(t *testing.T) {
	stats := &fakeStats{stats: &Stats{
		URLs:    map[string]int{"hackathons_enriched": 12},
		Events:  map[models.EventType]int{models.EventTypeHackathon: 12},
		Actions: map[models.ActionType]int{models.ActionArchive: 3},
	}}
	handler := newTestHandler(nil, nil, stats)

	req := httptest.NewRequest(http.MethodGet, "/api/stats", nil)
	rec := httptest.NewRecorder()
	handler.GetStatsHandler(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var got Stats
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got.Events[models.EventTypeHackathon] != 12 || got.Actions[models.ActionArchive] != 3 {
		t.Errorf("stats = %+v", got)
	}
}

func TestRoutes(t *testing.T) {
	mux := http.NewServeMux()
	handler := newTestHandler(nil, nil, nil)
	SetupRoutes(mux, handler, func(context.Context) error { return nil })

	tests := []struct {
		method string
		target string
		body   string
		status int
	}{
		{http.MethodGet, "/api/events", "", http.StatusOK},
		{http.MethodPost, "/api/events/ev-1/actions", `{"event_type":"hackathon","action":"archive"}`, http.StatusCreated},
		{http.MethodGet, "/api/events/ev-1/unknown", "", http.StatusNotFound},
		{http.MethodGet, "/api/stats", "", http.StatusOK},
		{http.MethodGet, "/healthz", "", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.target, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.target, strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, req)

			if rec.Code != tt.status {
				t.Errorf("status = %d, want %d", rec.Code, tt.status)
			}
		})
	}
}

func TestRoutes_UnhealthyBackend(t *testing.T) {
	mux := http.NewServeMux()
	handler := newTestHandler(nil, nil, nil)
	SetupRoutes(mux, handler, func(context.Context) error { return io.ErrUnexpectedEOF })

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusServiceUnavailable)
	}
}
