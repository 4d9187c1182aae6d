package database

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/eventdash/eventdash/internal/models"
)

// PostgresURLRepository stores the URL discovery ledger.
type PostgresURLRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresURLRepository creates a new PostgreSQL URL repository.
func NewPostgresURLRepository(db *sql.DB, logger *slog.Logger) *PostgresURLRepository {
	return &PostgresURLRepository{db: db, logger: logger}
}

// Collect upserts discovered URL records by url. New URLs are inserted with
// is_enriched=false; existing URLs get their metadata replaced and
// collected_at refreshed only when the metadata changed. Records without a
// url are counted as errors and skipped. Per-record failures roll back to a
// savepoint so the rest of the batch still commits.
func (r *PostgresURLRepository) Collect(ctx context.Context, records []models.RawFields, sourceType models.EventType) (models.BatchCounts, error) {
	var counts models.BatchCounts
	if len(records) == 0 {
		return counts, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return counts, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, record := range records {
		url := record.URL()
		if url == "" {
			counts.Errors++
			continue
		}

		if _, err := tx.ExecContext(ctx, "SAVEPOINT collect_record"); err != nil {
			return counts, fmt.Errorf("failed to create savepoint: %w", err)
		}

		outcome, err := r.collectOne(ctx, tx, url, sourceType, record)
		if err != nil {
			r.logger.Warn("failed to collect url", "url", url, "error", err)
			if _, rbErr := tx.ExecContext(ctx, "ROLLBACK TO SAVEPOINT collect_record"); rbErr != nil {
				return counts, fmt.Errorf("failed to roll back savepoint: %w", rbErr)
			}
			counts.Errors++
			continue
		}

		switch outcome {
		case outcomeInserted:
			counts.Inserted++
		case outcomeUpdated:
			counts.Updated++
		default:
			counts.Skipped++
		}
	}

	if err := tx.Commit(); err != nil {
		return counts, fmt.Errorf("failed to commit url batch: %w", err)
	}

	return counts, nil
}

type upsertOutcome int

const (
	outcomeSkipped upsertOutcome = iota
	outcomeInserted
	outcomeUpdated
)

func (r *PostgresURLRepository) collectOne(ctx context.Context, tx *sql.Tx, url string, sourceType models.EventType, record models.RawFields) (upsertOutcome, error) {
	metadataJSON, err := json.Marshal(record)
	if err != nil {
		return outcomeSkipped, fmt.Errorf("marshal metadata: %w", err)
	}

	var stored []byte
	err = tx.QueryRowContext(ctx, "SELECT metadata FROM collected_urls WHERE url = $1", url).Scan(&stored)
	switch {
	case err == sql.ErrNoRows:
		_, err = tx.ExecContext(ctx, `
			INSERT INTO collected_urls (url, source_type, is_enriched, collected_at, metadata)
			VALUES ($1, $2, FALSE, NOW(), $3)
		`, url, string(sourceType), metadataJSON)
		if err != nil {
			return outcomeSkipped, fmt.Errorf("insert url: %w", err)
		}
		return outcomeInserted, nil
	case err != nil:
		return outcomeSkipped, fmt.Errorf("load existing url: %w", err)
	}

	if metadataEqual(stored, metadataJSON) {
		return outcomeSkipped, nil
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE collected_urls SET metadata = $2, collected_at = NOW() WHERE url = $1
	`, url, metadataJSON)
	if err != nil {
		return outcomeSkipped, fmt.Errorf("update url metadata: %w", err)
	}
	return outcomeUpdated, nil
}

// metadataEqual compares stored and incoming metadata structurally, so jsonb
// key reordering does not trigger spurious updates.
func metadataEqual(stored, incoming []byte) bool {
	if len(stored) == 0 {
		return len(incoming) == 0
	}

	var a, b any
	if err := json.Unmarshal(stored, &a); err != nil {
		return bytes.Equal(stored, incoming)
	}
	if err := json.Unmarshal(incoming, &b); err != nil {
		return false
	}

	canonA, errA := json.Marshal(a)
	canonB, errB := json.Marshal(b)
	if errA != nil || errB != nil {
		return false
	}
	return bytes.Equal(canonA, canonB)
}

// PendingForEnrichment returns not-yet-enriched URLs for a source type,
// oldest first, with stored metadata flattened into each record.
func (r *PostgresURLRepository) PendingForEnrichment(ctx context.Context, sourceType models.EventType, limit int) ([]models.RawFields, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT url, metadata FROM collected_urls
		WHERE source_type = $1 AND is_enriched = FALSE
		ORDER BY collected_at ASC
		LIMIT $2
	`, string(sourceType), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query pending urls: %w", err)
	}
	defer rows.Close()

	var pending []models.RawFields
	for rows.Next() {
		var url string
		var metadataJSON []byte
		if err := rows.Scan(&url, &metadataJSON); err != nil {
			return nil, fmt.Errorf("failed to scan pending url: %w", err)
		}

		fields := models.RawFields{}
		if len(metadataJSON) > 0 {
			if err := json.Unmarshal(metadataJSON, &fields); err != nil {
				r.logger.Warn("unreadable metadata for url", "url", url, "error", err)
				fields = models.RawFields{}
			}
		}
		fields["url"] = url
		pending = append(pending, fields)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate pending urls: %w", err)
	}

	return pending, nil
}

// MarkEnriched sets is_enriched for a URL. Marking an already-enriched URL
// succeeds; a missing URL returns false without an error.
func (r *PostgresURLRepository) MarkEnriched(ctx context.Context, url string) (bool, error) {
	res, err := r.db.ExecContext(ctx, "UPDATE collected_urls SET is_enriched = TRUE WHERE url = $1", url)
	if err != nil {
		return false, fmt.Errorf("failed to mark url enriched: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return affected > 0, nil
}

// Stats returns ledger counts by source type and enrichment state.
func (r *PostgresURLRepository) Stats(ctx context.Context) (map[string]int, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT source_type, is_enriched, COUNT(*) FROM collected_urls
		GROUP BY source_type, is_enriched
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query url stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[string]int)
	for rows.Next() {
		var sourceType string
		var enriched bool
		var count int
		if err := rows.Scan(&sourceType, &enriched, &count); err != nil {
			return nil, fmt.Errorf("failed to scan url stats: %w", err)
		}
		key := sourceType + "_pending"
		if enriched {
			key = sourceType + "_enriched"
		}
		stats[key] = count
	}
	return stats, rows.Err()
}
