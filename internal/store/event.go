package store

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// Event is a command dispatched on a gesture transition. Before and After are
// the volume (percent) or position (seconds) around the command; Error is set
// when the backend rejected it.
type Event struct {
	ID        string
	SessionID string
	OldCode   int
	NewCode   int
	Command   string
	Before    float64
	After     float64
	Error     string
	CreatedAt time.Time
}

// Failed reports whether the command returned an error.
func (e *Event) Failed() bool {
	return e.Error != ""
}

// EventFilter narrows an event listing.
type EventFilter struct {
	SessionID string
	Limit     int
}

// EventRepository provides operations on command events.
type EventRepository struct {
	db *sql.DB
}

// Events returns the event repository for this store.
func (s *Store) Events() *EventRepository {
	return &EventRepository{db: s.db}
}

// Append records an event. An empty ID is replaced by a new UUID.
func (r *EventRepository) Append(e *Event) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}

	_, err := r.db.Exec(
		`INSERT INTO command_events
		 (id, session_id, old_code, new_code, command, before_value, after_value, error, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.SessionID, e.OldCode, e.NewCode, e.Command, e.Before, e.After, e.Error, e.CreatedAt,
	)
	return err
}

// List returns events newest first.
func (r *EventRepository) List(f EventFilter) ([]*Event, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = -1
	}

	query := `SELECT id, session_id, old_code, new_code, command, before_value, after_value, error, created_at
		 FROM command_events`
	args := []any{}
	if f.SessionID != "" {
		query += ` WHERE session_id = ?`
		args = append(args, f.SessionID)
	}
	query += ` ORDER BY created_at DESC, rowid DESC LIMIT ?`
	args = append(args, limit)

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*Event
	for rows.Next() {
		e := &Event{}
		err := rows.Scan(&e.ID, &e.SessionID, &e.OldCode, &e.NewCode, &e.Command,
			&e.Before, &e.After, &e.Error, &e.CreatedAt)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}
