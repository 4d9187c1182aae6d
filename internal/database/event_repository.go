package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/eventdash/eventdash/internal/models"
)

// PostgresEventRepository stores normalized events in the per-type
// collections.
type PostgresEventRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresEventRepository creates a new PostgreSQL event repository.
func NewPostgresEventRepository(db *sql.DB, logger *slog.Logger) *PostgresEventRepository {
	return &PostgresEventRepository{db: db, logger: logger}
}

// Save writes a batch of events to the collection for eventType. URLs are
// the dedup key. With updateExisting=false, already-stored URLs are skipped;
// with updateExisting=true they are upserted. A single bad record is counted
// and the batch continues; only systemic failures abort the transaction.
func (r *PostgresEventRepository) Save(ctx context.Context, events []*models.Event, eventType models.EventType, updateExisting bool) (models.BatchCounts, error) {
	var counts models.BatchCounts
	if len(events) == 0 {
		return counts, nil
	}
	if !eventType.Valid() {
		return counts, fmt.Errorf("%w: unknown event type %q", ErrInvalidArgument, eventType)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return counts, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	table := eventType.Table()

	for _, event := range events {
		if event == nil || event.URL == "" {
			counts.Errors++
			continue
		}

		if _, err := tx.ExecContext(ctx, "SAVEPOINT save_event"); err != nil {
			return counts, fmt.Errorf("failed to create savepoint: %w", err)
		}

		outcome, err := r.saveOne(ctx, tx, table, event, updateExisting)
		if err != nil {
			r.logger.Warn("failed to save event", "url", event.URL, "table", table, "error", err)
			if _, rbErr := tx.ExecContext(ctx, "ROLLBACK TO SAVEPOINT save_event"); rbErr != nil {
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
		return counts, fmt.Errorf("failed to commit event batch: %w", err)
	}

	return counts, nil
}

func (r *PostgresEventRepository) saveOne(ctx context.Context, tx *sql.Tx, table string, event *models.Event, updateExisting bool) (upsertOutcome, error) {
	priceJSON, err := marshalPrice(event.TicketPrice)
	if err != nil {
		return outcomeSkipped, err
	}

	if !updateExisting {
		var exists bool
		err := tx.QueryRowContext(ctx,
			fmt.Sprintf("SELECT EXISTS (SELECT 1 FROM %s WHERE url = $1)", table),
			event.URL,
		).Scan(&exists)
		if err != nil {
			return outcomeSkipped, fmt.Errorf("check existing url: %w", err)
		}
		if exists {
			return outcomeSkipped, nil
		}

		_, err = tx.ExecContext(ctx, fmt.Sprintf(`
			INSERT INTO %s (
				id, name, url, date, start_date, end_date, location, city, remote,
				description, short_description, speakers, sponsors, themes,
				ticket_price, is_paid, source, created_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, NOW())
		`, table),
			uuid.NewString(), event.Name, event.URL, event.Date, event.StartDate, event.EndDate,
			event.Location, event.City, event.Remote, event.Description, event.ShortDescription,
			pq.Array(event.Speakers), pq.Array(event.Sponsors), pq.Array(event.Themes),
			priceJSON, event.IsPaid, event.Source,
		)
		if err != nil {
			return outcomeSkipped, fmt.Errorf("insert event: %w", err)
		}
		return outcomeInserted, nil
	}

	// xmax = 0 only for a freshly inserted row, so the upsert itself reports
	// which branch ON CONFLICT took.
	var inserted bool
	err = tx.QueryRowContext(ctx, fmt.Sprintf(`
		INSERT INTO %s (
			id, name, url, date, start_date, end_date, location, city, remote,
			description, short_description, speakers, sponsors, themes,
			ticket_price, is_paid, source, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, NOW())
		ON CONFLICT (url) DO UPDATE SET
			name = EXCLUDED.name,
			date = EXCLUDED.date,
			start_date = EXCLUDED.start_date,
			end_date = EXCLUDED.end_date,
			location = EXCLUDED.location,
			city = EXCLUDED.city,
			remote = EXCLUDED.remote,
			description = EXCLUDED.description,
			short_description = EXCLUDED.short_description,
			speakers = EXCLUDED.speakers,
			sponsors = EXCLUDED.sponsors,
			themes = EXCLUDED.themes,
			ticket_price = EXCLUDED.ticket_price,
			is_paid = EXCLUDED.is_paid,
			source = EXCLUDED.source
		RETURNING (xmax = 0)
	`, table),
		uuid.NewString(), event.Name, event.URL, event.Date, event.StartDate, event.EndDate,
		event.Location, event.City, event.Remote, event.Description, event.ShortDescription,
		pq.Array(event.Speakers), pq.Array(event.Sponsors), pq.Array(event.Themes),
		priceJSON, event.IsPaid, event.Source,
	).Scan(&inserted)
	if err != nil {
		return outcomeSkipped, fmt.Errorf("upsert event: %w", err)
	}

	if inserted {
		return outcomeInserted, nil
	}
	return outcomeUpdated, nil
}

func marshalPrice(price map[string]any) (any, error) {
	if price == nil {
		return nil, nil
	}
	data, err := json.Marshal(price)
	if err != nil {
		return nil, fmt.Errorf("marshal ticket price: %w", err)
	}
	return data, nil
}

// Exists reports whether an event id is present in the collection for
// eventType.
func (r *PostgresEventRepository) Exists(ctx context.Context, eventType models.EventType, eventID string) (bool, error) {
	if !eventType.Valid() {
		return false, fmt.Errorf("%w: unknown event type %q", ErrInvalidArgument, eventType)
	}

	var exists bool
	err := r.db.QueryRowContext(ctx,
		fmt.Sprintf("SELECT EXISTS (SELECT 1 FROM %s WHERE id = $1)", eventType.Table()),
		eventID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check event existence: %w", err)
	}
	return exists, nil
}

// CountByType returns the number of stored events per collection.
func (r *PostgresEventRepository) CountByType(ctx context.Context) (map[models.EventType]int, error) {
	counts := make(map[models.EventType]int, 2)
	for _, eventType := range []models.EventType{models.EventTypeHackathon, models.EventTypeConference} {
		var n int
		err := r.db.QueryRowContext(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s", eventType.Table())).Scan(&n)
		if err != nil {
			return nil, fmt.Errorf("failed to count %s: %w", eventType.Table(), err)
		}
		counts[eventType] = n
	}
	return counts, nil
}

// CollectionStats summarizes one event collection.
type CollectionStats struct {
	Total    int            `json:"total"`
	Remote   int            `json:"remote"`
	Recent   int            `json:"recent_24h"`
	BySource map[string]int `json:"by_source"`
}

// StatsByType returns per-collection totals, remote counts, last-24h inserts,
// and a per-source breakdown.
func (r *PostgresEventRepository) StatsByType(ctx context.Context) (map[models.EventType]CollectionStats, error) {
	stats := make(map[models.EventType]CollectionStats, 2)
	for _, eventType := range []models.EventType{models.EventTypeHackathon, models.EventTypeConference} {
		table := eventType.Table()

		var s CollectionStats
		err := r.db.QueryRowContext(ctx, fmt.Sprintf(`
			SELECT COUNT(*),
				COUNT(*) FILTER (WHERE remote),
				COUNT(*) FILTER (WHERE created_at > NOW() - INTERVAL '24 hours')
			FROM %s
		`, table)).Scan(&s.Total, &s.Remote, &s.Recent)
		if err != nil {
			return nil, fmt.Errorf("failed to summarize %s: %w", table, err)
		}

		rows, err := r.db.QueryContext(ctx,
			fmt.Sprintf("SELECT COALESCE(source, 'unknown'), COUNT(*) FROM %s GROUP BY 1", table))
		if err != nil {
			return nil, fmt.Errorf("failed to break down %s by source: %w", table, err)
		}
		s.BySource = make(map[string]int)
		for rows.Next() {
			var source string
			var n int
			if err := rows.Scan(&source, &n); err != nil {
				rows.Close()
				return nil, fmt.Errorf("failed to scan %s source count: %w", table, err)
			}
			s.BySource[source] = n
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to iterate %s source counts: %w", table, err)
		}
		rows.Close()

		stats[eventType] = s
	}
	return stats, nil
}
