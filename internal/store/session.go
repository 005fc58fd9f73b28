package store

import (
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Session is one run of the controller.
type Session struct {
	ID        string
	Backend   string
	Device    string
	StartedAt time.Time
	EndedAt   *time.Time
	// Commands is the number of recorded events. Filled by List and GetByID.
	Commands int
}

// SessionRepository provides operations on sessions.
type SessionRepository struct {
	db *sql.DB
}

// Sessions returns the session repository for this store.
func (s *Store) Sessions() *SessionRepository {
	return &SessionRepository{db: s.db}
}

// Create inserts a new session. An empty ID is replaced by a new UUID.
func (r *SessionRepository) Create(sess *Session) error {
	if sess.ID == "" {
		sess.ID = uuid.NewString()
	}
	sess.StartedAt = time.Now().UTC()

	_, err := r.db.Exec(
		`INSERT INTO sessions (id, backend, device, started_at) VALUES (?, ?, ?, ?)`,
		sess.ID, sess.Backend, sess.Device, sess.StartedAt,
	)
	return err
}

// End marks a session as finished.
func (r *SessionRepository) End(id string) error {
	result, err := r.db.Exec(
		`UPDATE sessions SET ended_at = ? WHERE id = ?`,
		time.Now().UTC(), id,
	)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

const sessionColumns = `s.id, s.backend, s.device, s.started_at, s.ended_at,
	(SELECT COUNT(*) FROM command_events e WHERE e.session_id = s.id)`

func scanSession(row interface{ Scan(...any) error }) (*Session, error) {
	sess := &Session{}
	var ended sql.NullTime
	if err := row.Scan(&sess.ID, &sess.Backend, &sess.Device, &sess.StartedAt, &ended, &sess.Commands); err != nil {
		return nil, err
	}
	if ended.Valid {
		t := ended.Time
		sess.EndedAt = &t
	}
	return sess, nil
}

// GetByID retrieves a session by its ID.
func (r *SessionRepository) GetByID(id string) (*Session, error) {
	sess, err := scanSession(r.db.QueryRow(
		`SELECT `+sessionColumns+` FROM sessions s WHERE s.id = ?`, id,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return sess, nil
}

// List returns the most recent sessions first. limit <= 0 returns all of them.
func (r *SessionRepository) List(limit int) ([]*Session, error) {
	if limit <= 0 {
		limit = -1
	}

	rows, err := r.db.Query(
		`SELECT `+sessionColumns+` FROM sessions s
		 ORDER BY s.started_at DESC, s.rowid DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []*Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, sess)
	}
	return sessions, rows.Err()
}

// Prune deletes all but the newest keep sessions together with their events.
// keep <= 0 disables pruning. It returns the number of sessions removed.
func (r *SessionRepository) Prune(keep int) (int64, error) {
	if keep <= 0 {
		return 0, nil
	}

	result, err := r.db.Exec(
		`DELETE FROM sessions WHERE id NOT IN (
			SELECT id FROM sessions ORDER BY started_at DESC, rowid DESC LIMIT ?
		)`,
		keep,
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
