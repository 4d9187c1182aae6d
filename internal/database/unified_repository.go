package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/eventdash/eventdash/internal/models"
)

// PostgresUnifiedRepository serves the merged hackathon+conference view.
// The primary path is one unioned query with a lateral join to the latest
// action per row. If that query cannot execute, a slower per-collection
// fallback produces identical results.
type PostgresUnifiedRepository struct {
	db      *sql.DB
	actions ActionRecorder
	logger  *slog.Logger
}

// NewPostgresUnifiedRepository creates a new unified view repository.
func NewPostgresUnifiedRepository(db *sql.DB, actions ActionRecorder, logger *slog.Logger) *PostgresUnifiedRepository {
	return &PostgresUnifiedRepository{db: db, actions: actions, logger: logger}
}

// unifiedRow is a pre-derivation row from either path. Both paths feed rows
// through finishRows so ordering, pagination, and status semantics cannot
// drift between them.
type unifiedRow struct {
	ID         string
	Name       string
	Type       models.EventType
	Location   *string
	StartDate  *string
	EndDate    *string
	URL        string
	CreatedAt  time.Time
	LastAction *models.Action
}

// Query returns the merged, ordered, filtered event view.
func (r *PostgresUnifiedRepository) Query(ctx context.Context, q models.UnifiedQuery) ([]models.UnifiedEvent, error) {
	if err := q.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}

	rows, err := r.queryJoined(ctx, q)
	if err != nil {
		r.logger.Warn("joined query failed, using per-collection fallback", "error", err)
		rows, err = r.queryPerCollection(ctx, q)
		if err != nil {
			return nil, err
		}
	}

	return finishRows(rows, q), nil
}

// buildUnionQuery assembles the unioned source select. Type and location
// filters are applied inside each branch, before the union.
func buildUnionQuery(q models.UnifiedQuery) (string, []any) {
	var args []any
	where := ""
	if q.Location != "" {
		args = append(args, "%"+q.Location+"%")
		where = " WHERE COALESCE(location, 'TBD') ILIKE $1"
	}

	branch := func(eventType models.EventType) string {
		return fmt.Sprintf(`SELECT id, name, '%s' AS event_type, location,
			COALESCE(start_date, date) AS start_date, end_date, url, created_at
		FROM %s%s`, eventType, eventType.Table(), where)
	}

	var branches []string
	if q.Type == nil || *q.Type == models.EventTypeHackathon {
		branches = append(branches, branch(models.EventTypeHackathon))
	}
	if q.Type == nil || *q.Type == models.EventTypeConference {
		branches = append(branches, branch(models.EventTypeConference))
	}

	return strings.Join(branches, "\nUNION ALL\n"), args
}

func (r *PostgresUnifiedRepository) queryJoined(ctx context.Context, q models.UnifiedQuery) ([]unifiedRow, error) {
	union, args := buildUnionQuery(q)

	query := fmt.Sprintf(`
		SELECT e.id, e.name, e.event_type, e.location, e.start_date, e.end_date, e.url, e.created_at,
			a.id, a.action, a.timestamp
		FROM (%s) e
		LEFT JOIN LATERAL (
			SELECT id, action, timestamp FROM event_actions
			WHERE event_id = e.id
			ORDER BY timestamp DESC
			LIMIT 1
		) a ON TRUE
	`, union)

	dbRows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("joined unified query: %w", err)
	}
	defer dbRows.Close()

	var rows []unifiedRow
	for dbRows.Next() {
		var (
			row        unifiedRow
			eventType  string
			actionID   sql.NullString
			actionKind sql.NullString
			actionTime sql.NullTime
		)
		err := dbRows.Scan(
			&row.ID, &row.Name, &eventType, &row.Location, &row.StartDate, &row.EndDate,
			&row.URL, &row.CreatedAt, &actionID, &actionKind, &actionTime,
		)
		if err != nil {
			return nil, fmt.Errorf("scan unified row: %w", err)
		}

		row.Type = models.EventType(eventType)
		if actionID.Valid {
			row.LastAction = &models.Action{
				ID:        actionID.String,
				EventID:   row.ID,
				EventType: row.Type,
				Action:    models.ActionType(actionKind.String),
				Timestamp: actionTime.Time,
			}
		}
		rows = append(rows, row)
	}
	if err := dbRows.Err(); err != nil {
		return nil, fmt.Errorf("iterate unified rows: %w", err)
	}

	return rows, nil
}

// queryPerCollection is the fallback path: each collection independently,
// then one action lookup per row.
func (r *PostgresUnifiedRepository) queryPerCollection(ctx context.Context, q models.UnifiedQuery) ([]unifiedRow, error) {
	var rows []unifiedRow

	for _, eventType := range []models.EventType{models.EventTypeHackathon, models.EventTypeConference} {
		if q.Type != nil && *q.Type != eventType {
			continue
		}

		collectionRows, err := r.queryCollection(ctx, eventType, q.Location)
		if err != nil {
			return nil, err
		}
		rows = append(rows, collectionRows...)
	}

	for i := range rows {
		action, err := r.actions.Latest(ctx, rows[i].ID)
		if err != nil {
			return nil, fmt.Errorf("latest action for %s: %w", rows[i].ID, err)
		}
		rows[i].LastAction = action
	}

	return rows, nil
}

func (r *PostgresUnifiedRepository) queryCollection(ctx context.Context, eventType models.EventType, location string) ([]unifiedRow, error) {
	query := fmt.Sprintf(`
		SELECT id, name, location, COALESCE(start_date, date), end_date, url, created_at
		FROM %s
	`, eventType.Table())
	var args []any
	if location != "" {
		query += " WHERE COALESCE(location, 'TBD') ILIKE $1"
		args = append(args, "%"+location+"%")
	}

	dbRows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", eventType.Table(), err)
	}
	defer dbRows.Close()

	var rows []unifiedRow
	for dbRows.Next() {
		row := unifiedRow{Type: eventType}
		err := dbRows.Scan(&row.ID, &row.Name, &row.Location, &row.StartDate, &row.EndDate, &row.URL, &row.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan %s row: %w", eventType.Table(), err)
		}
		rows = append(rows, row)
	}
	return rows, dbRows.Err()
}

// finishRows derives status, orders, paginates, and applies the status
// filter. The status filter runs last because it depends on the derived
// value.
func finishRows(rows []unifiedRow, q models.UnifiedQuery) []models.UnifiedEvent {
	sort.SliceStable(rows, func(i, j int) bool {
		a := models.ParseStartDate(deref(rows[i].StartDate))
		b := models.ParseStartDate(deref(rows[j].StartDate))
		if !a.Equal(b) {
			return a.After(b)
		}
		return rows[i].CreatedAt.After(rows[j].CreatedAt)
	})

	if q.Offset >= len(rows) {
		rows = nil
	} else {
		rows = rows[q.Offset:]
	}
	if len(rows) > q.Limit {
		rows = rows[:q.Limit]
	}

	events := make([]models.UnifiedEvent, 0, len(rows))
	for _, row := range rows {
		status := models.DeriveStatus(row.Location, row.StartDate)
		if q.Status != nil && *q.Status != status {
			continue
		}

		events = append(events, models.UnifiedEvent{
			ID:         row.ID,
			Title:      row.Name,
			Type:       row.Type,
			Location:   valueOrTBD(row.Location),
			StartDate:  valueOrTBD(row.StartDate),
			EndDate:    valueOrTBD(row.EndDate),
			URL:        row.URL,
			Status:     status,
			LastAction: row.LastAction,
			CreatedAt:  row.CreatedAt,
		})
	}
	return events
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func valueOrTBD(s *string) string {
	if s == nil || *s == "" {
		return models.SentinelTBD
	}
	return *s
}
