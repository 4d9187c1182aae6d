package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/eventdash/eventdash/internal/database"
	"github.com/eventdash/eventdash/internal/models"
)

// UnifiedQuerier serves the merged event view.
type UnifiedQuerier interface {
	Query(ctx context.Context, q models.UnifiedQuery) ([]models.UnifiedEvent, error)
}

// ActionRecorder appends manual actions.
type ActionRecorder interface {
	Record(ctx context.Context, eventID string, eventType models.EventType, action models.ActionType) (*models.Action, error)
}

// Handler serves the HTTP API.
type Handler struct {
	unified UnifiedQuerier
	actions ActionRecorder
	stats   StatsProvider
	logger  *slog.Logger
}

// NewHandler creates the API handler.
func NewHandler(unified UnifiedQuerier, actions ActionRecorder, stats StatsProvider, logger *slog.Logger) *Handler {
	return &Handler{unified: unified, actions: actions, stats: stats, logger: logger}
}

// EventsResponse is the envelope for GET /api/events.
type EventsResponse struct {
	Events []models.UnifiedEvent `json:"events"`
	Count  int                   `json:"count"`
	Query  models.UnifiedQuery   `json:"query"`
}

// GetEventsHandler handles GET /api/events.
func (h *Handler) GetEventsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	query, err := parseEventsQuery(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	events, err := h.unified.Query(r.Context(), query)
	if err != nil {
		if errors.Is(err, database.ErrInvalidArgument) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		h.logger.Error("failed to query unified events", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	if events == nil {
		events = []models.UnifiedEvent{}
	}

	writeJSON(w, h.logger, http.StatusOK, EventsResponse{
		Events: events,
		Count:  len(events),
		Query:  query,
	})
}

func parseEventsQuery(r *http.Request) (models.UnifiedQuery, error) {
	var query models.UnifiedQuery
	params := r.URL.Query()

	if v := params.Get("type"); v != "" {
		eventType := models.EventType(v)
		query.Type = &eventType
	}
	if v := params.Get("status"); v != "" {
		status := models.Status(v)
		query.Status = &status
	}
	query.Location = params.Get("location")

	if v := params.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return query, errors.New("limit must be an integer")
		}
		query.Limit = n
	}
	if v := params.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return query, errors.New("offset must be an integer")
		}
		query.Offset = n
	}

	return query, nil
}

// actionRequest is the body for POST /api/events/:id/actions.
type actionRequest struct {
	EventType string `json:"event_type"`
	Action    string `json:"action"`
}

// RecordActionHandler handles POST /api/events/:id/actions.
func (h *Handler) RecordActionHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	// Path shape: /api/events/{id}/actions
	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	if len(parts) != 4 || parts[3] != "actions" || parts[2] == "" {
		http.Error(w, "Event ID required", http.StatusBadRequest)
		return
	}
	eventID := parts[2]

	var req actionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON body", http.StatusBadRequest)
		return
	}

	action, err := h.actions.Record(r.Context(), eventID, models.EventType(req.EventType), models.ActionType(req.Action))
	if err != nil {
		switch {
		case errors.Is(err, database.ErrInvalidArgument):
			http.Error(w, err.Error(), http.StatusBadRequest)
		case errors.Is(err, database.ErrNotFound):
			http.Error(w, err.Error(), http.StatusNotFound)
		default:
			h.logger.Error("failed to record action", "event_id", eventID, "error", err)
			http.Error(w, "Internal server error", http.StatusInternalServerError)
		}
		return
	}

	writeJSON(w, h.logger, http.StatusCreated, action)
}

// GetStatsHandler handles GET /api/stats.
func (h *Handler) GetStatsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	stats, err := h.stats.Stats(r.Context())
	if err != nil {
		h.logger.Error("failed to load stats", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, h.logger, http.StatusOK, stats)
}

func writeJSON(w http.ResponseWriter, logger *slog.Logger, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*") // CORS for dev
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Error("failed to encode response", "error", err)
	}
}
