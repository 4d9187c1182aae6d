package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/eventdash/eventdash/internal/models"
)

// PostgresActionRepository stores the append-only manual action log.
type PostgresActionRepository struct {
	db     *sql.DB
	events *PostgresEventRepository
}

// NewPostgresActionRepository creates a new PostgreSQL action repository.
func NewPostgresActionRepository(db *sql.DB, events *PostgresEventRepository) *PostgresActionRepository {
	return &PostgresActionRepository{db: db, events: events}
}

// Record appends a manual action for an event. The event must exist in the
// collection matching eventType. Rows are never updated or deleted; the
// latest row wins when reading.
func (r *PostgresActionRepository) Record(ctx context.Context, eventID string, eventType models.EventType, action models.ActionType) (*models.Action, error) {
	if !eventType.Valid() {
		return nil, fmt.Errorf("%w: unknown event type %q", ErrInvalidArgument, eventType)
	}
	if !action.Valid() {
		return nil, fmt.Errorf("%w: unknown action %q", ErrInvalidArgument, action)
	}

	exists, err := r.events.Exists(ctx, eventType, eventID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("%w: no %s with id %s", ErrNotFound, eventType, eventID)
	}

	recorded := &models.Action{
		ID:        uuid.NewString(),
		EventID:   eventID,
		EventType: eventType,
		Action:    action,
	}

	err = r.db.QueryRowContext(ctx, `
		INSERT INTO event_actions (id, event_id, event_type, action, timestamp)
		VALUES ($1, $2, $3, $4, NOW())
		RETURNING timestamp
	`, recorded.ID, recorded.EventID, string(recorded.EventType), string(recorded.Action)).Scan(&recorded.Timestamp)
	if err != nil {
		return nil, fmt.Errorf("failed to record action: %w", err)
	}

	return recorded, nil
}

// Latest returns the most recent action for an event, or nil when the event
// has no recorded actions.
func (r *PostgresActionRepository) Latest(ctx context.Context, eventID string) (*models.Action, error) {
	var (
		action    models.Action
		eventType string
		kind      string
		ts        time.Time
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT id, event_id, event_type, action, timestamp FROM event_actions
		WHERE event_id = $1
		ORDER BY timestamp DESC
		LIMIT 1
	`, eventID).Scan(&action.ID, &action.EventID, &eventType, &kind, &ts)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load latest action: %w", err)
	}

	action.EventType = models.EventType(eventType)
	action.Action = models.ActionType(kind)
	action.Timestamp = ts
	return &action, nil
}

// CountByAction returns totals per action kind, for the stats surface.
func (r *PostgresActionRepository) CountByAction(ctx context.Context) (map[models.ActionType]int, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT action, COUNT(*) FROM event_actions GROUP BY action")
	if err != nil {
		return nil, fmt.Errorf("failed to count actions: %w", err)
	}
	defer rows.Close()

	counts := make(map[models.ActionType]int)
	for rows.Next() {
		var kind string
		var n int
		if err := rows.Scan(&kind, &n); err != nil {
			return nil, fmt.Errorf("failed to scan action count: %w", err)
		}
		counts[models.ActionType(kind)] = n
	}
	return counts, rows.Err()
}

// ActionRecorder is the capability the unification engine needs for its
// fallback path.
type ActionRecorder interface {
	Latest(ctx context.Context, eventID string) (*models.Action, error)
}
