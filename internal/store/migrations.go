package store

// runMigrations executes all database migrations.
func (s *Store) runMigrations() error {
	migrations := []string{
		// Sessions table - one row per `mudra run`
		`CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			backend TEXT NOT NULL,
			device TEXT NOT NULL DEFAULT '',
			started_at DATETIME NOT NULL,
			ended_at DATETIME
		)`,

		// Command events table - every command dispatched during a session
		`CREATE TABLE IF NOT EXISTS command_events (
			id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
			old_code INTEGER NOT NULL CHECK(old_code BETWEEN 0 AND 5),
			new_code INTEGER NOT NULL CHECK(new_code BETWEEN 0 AND 5),
			command TEXT NOT NULL,
			before_value REAL NOT NULL DEFAULT 0,
			after_value REAL NOT NULL DEFAULT 0,
			error TEXT NOT NULL DEFAULT '',
			created_at DATETIME NOT NULL
		)`,

		`CREATE INDEX IF NOT EXISTS idx_command_events_session_id ON command_events(session_id)`,
		`CREATE INDEX IF NOT EXISTS idx_command_events_created_at ON command_events(created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_started_at ON sessions(started_at)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return err
		}
	}

	return nil
}
