// Package server owns the HTTP listener lifecycle: construction from config,
// blocking serve, and bounded graceful shutdown.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/eventdash/eventdash/internal/config"
	"log/slog"
)

// Server hosts the dashboard API.
type Server struct {
	cfg    config.ServerConfig
	logger *slog.Logger
	http   *http.Server
}

// New constructs a Server around handler with timeouts from config.
func New(cfg config.ServerConfig, logger *slog.Logger, handler http.Handler) *Server {
	return &Server{
		cfg:    cfg,
		logger: logger,
		http: &http.Server{
			Addr:         ":" + cfg.Port,
			Handler:      handler,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
			IdleTimeout:  2 * cfg.ReadTimeout,
		},
	}
}

// Start serves HTTP traffic until Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("starting server",
		"addr", s.http.Addr,
		"read_timeout", s.cfg.ReadTimeout.String(),
		"write_timeout", s.cfg.WriteTimeout.String(),
	)
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http listen: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests, bounded by the configured timeout.
func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.ShutdownTimeout)
	defer cancel()

	s.logger.Info("shutting down server")
	if err := s.http.Shutdown(ctx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}
