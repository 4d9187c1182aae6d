package api

import (
	"context"
	"net/http"
	"strings"
)

// HealthFunc reports whether the backing store is reachable.
type HealthFunc func(ctx context.Context) error

// SetupRoutes configures all API routes.
func SetupRoutes(mux *http.ServeMux, handler *Handler, health HealthFunc) {
	mux.HandleFunc("/api/events", handler.GetEventsHandler)
	mux.HandleFunc("/api/events/", func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/actions") {
			handler.RecordActionHandler(w, r)
			return
		}
		http.NotFound(w, r)
	})
	mux.HandleFunc("/api/stats", handler.GetStatsHandler)

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if health != nil {
			if err := health(r.Context()); err != nil {
				http.Error(w, "unhealthy: "+err.Error(), http.StatusServiceUnavailable)
				return
			}
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
}
