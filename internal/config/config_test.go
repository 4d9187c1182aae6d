package config

import (
	"testing"
	"time"

	"log/slog"
)

func TestLoadDefaults(t *testing.T) {
	clearConfigEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	if cfg.Server.Port != defaultPort {
		t.Errorf("expected default port %q, got %q", defaultPort, cfg.Server.Port)
	}
	if cfg.Server.ReadTimeout != defaultReadTimeout {
		t.Errorf("expected default read timeout %v, got %v", defaultReadTimeout, cfg.Server.ReadTimeout)
	}
	if cfg.Logging.Level != slog.LevelInfo {
		t.Errorf("expected default log level %v, got %v", slog.LevelInfo, cfg.Logging.Level)
	}
	if cfg.Logging.Format != defaultLogFormat {
		t.Errorf("expected default log format %q, got %q", defaultLogFormat, cfg.Logging.Format)
	}
	if cfg.Pipeline.Interval != defaultPipelineInterval {
		t.Errorf("expected default pipeline interval %v, got %v", defaultPipelineInterval, cfg.Pipeline.Interval)
	}
	if cfg.Pipeline.EnrichLimit != defaultEnrichLimit {
		t.Errorf("expected default enrich limit %d, got %d", defaultEnrichLimit, cfg.Pipeline.EnrichLimit)
	}
	if !cfg.Pipeline.RunOnStartup {
		t.Error("expected pipeline to run on startup by default")
	}
	if cfg.Enrichment.Model != defaultEnrichmentModel {
		t.Errorf("expected default model %q, got %q", defaultEnrichmentModel, cfg.Enrichment.Model)
	}
	if cfg.Database.MaxConnections != defaultMaxConnections {
		t.Errorf("expected default max connections %d, got %d", defaultMaxConnections, cfg.Database.MaxConnections)
	}
}

func TestLoadWithOverrides(t *testing.T) {
	clearConfigEnv(t)

	overrides := map[string]string{
		"SERVER_PORT":                 "9090",
		"SERVER_READ_TIMEOUT_SECONDS": "30",
		"DATABASE_URL":                "postgres://localhost/eventdash",
		"DB_MAX_CONNECTIONS":          "50",
		"PIPELINE_INTERVAL_MINUTES":   "90",
		"PIPELINE_ENRICH_LIMIT":       "10",
		"PIPELINE_RUN_ON_STARTUP":     "false",
		"OPENAI_API_KEY":              "sk-test",
		"OPENAI_MODEL":                "gpt-4o",
		"LOG_LEVEL":                   "debug",
		"LOG_FORMAT":                  "text",
	}
	for key, value := range overrides {
		t.Setenv(key, value)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	if cfg.Server.Port != "9090" {
		t.Errorf("expected overridden port, got %q", cfg.Server.Port)
	}
	if cfg.Server.ReadTimeout != 30*time.Second {
		t.Errorf("expected read timeout %v, got %v", 30*time.Second, cfg.Server.ReadTimeout)
	}
	if cfg.Database.URL != "postgres://localhost/eventdash" {
		t.Errorf("unexpected database URL %q", cfg.Database.URL)
	}
	if cfg.Database.MaxConnections != 50 {
		t.Errorf("expected max connections 50, got %d", cfg.Database.MaxConnections)
	}
	if cfg.Pipeline.Interval != 90*time.Minute {
		t.Errorf("expected interval %v, got %v", 90*time.Minute, cfg.Pipeline.Interval)
	}
	if cfg.Pipeline.EnrichLimit != 10 {
		t.Errorf("expected enrich limit 10, got %d", cfg.Pipeline.EnrichLimit)
	}
	if cfg.Pipeline.RunOnStartup {
		t.Error("expected run-on-startup disabled")
	}
	if cfg.Enrichment.APIKey != "sk-test" || cfg.Enrichment.Model != "gpt-4o" {
		t.Errorf("unexpected enrichment config %+v", cfg.Enrichment)
	}
	if cfg.Logging.Level != slog.LevelDebug {
		t.Errorf("expected log level %v, got %v", slog.LevelDebug, cfg.Logging.Level)
	}
	if cfg.Logging.Format != "text" {
		t.Errorf("expected log format text, got %q", cfg.Logging.Format)
	}
}

func TestLoadCloudRunPortWins(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("PORT", "8888")
	t.Setenv("SERVER_PORT", "9999")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	if cfg.Server.Port != "8888" {
		t.Errorf("expected PORT to take precedence, got %q", cfg.Server.Port)
	}
}

func TestLoadWithInvalidValues(t *testing.T) {
	tests := map[string]string{
		"SERVER_READ_TIMEOUT_SECONDS":  "-1",
		"SERVER_WRITE_TIMEOUT_SECONDS": "abc",
		"DB_MAX_CONNECTIONS":           "0",
		"PIPELINE_INTERVAL_MINUTES":    "-5",
		"PIPELINE_ENRICH_LIMIT":        "none",
		"LOG_LEVEL":                    "verbose",
		"LOG_FORMAT":                   "xml",
	}

	for key, value := range tests {
		t.Run(key, func(t *testing.T) {
			clearConfigEnv(t)
			t.Setenv(key, value)

			if _, err := Load(); err == nil {
				t.Fatalf("expected error when %s=%q", key, value)
			}
		})
	}
}

func TestParseLogLevelAliases(t *testing.T) {
	tests := map[string]slog.Level{
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
	}

	for input, expected := range tests {
		level, err := parseLogLevel(input)
		if err != nil {
			t.Fatalf("parseLogLevel(%q) returned error: %v", input, err)
		}

		if level != expected {
			t.Errorf("parseLogLevel(%q) = %v, want %v", input, level, expected)
		}
	}
}

func clearConfigEnv(t *testing.T) {
	t.Helper()
	keys := []string{
		"PORT",
		"SERVER_PORT",
		"SERVER_READ_TIMEOUT_SECONDS",
		"SERVER_WRITE_TIMEOUT_SECONDS",
		"SERVER_SHUTDOWN_TIMEOUT_SECONDS",
		"DATABASE_URL",
		"DB_MAX_CONNECTIONS",
		"DB_MAX_IDLE_CONNECTIONS",
		"PIPELINE_INTERVAL_MINUTES",
		"PIPELINE_ENRICH_LIMIT",
		"PIPELINE_RUN_ON_STARTUP",
		"OPENAI_API_KEY",
		"OPENAI_MODEL",
		"LOG_LEVEL",
		"LOG_FORMAT",
	}

	for _, key := range keys {
		t.Setenv(key, "")
	}
}
