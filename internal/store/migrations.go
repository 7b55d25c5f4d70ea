package store

// runMigrations executes all database migrations.
func (s *Store) runMigrations() error {
	migrations := []string{
		// Named range mappings from pinch distance to an output range
		`CREATE TABLE IF NOT EXISTS mappings (
			name TEXT PRIMARY KEY,
			domain_low REAL NOT NULL,
			domain_high REAL NOT NULL,
			range_low REAL NOT NULL,
			range_high REAL NOT NULL,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		// One row per pipeline run
		`CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			source TEXT NOT NULL,
			started_at DATETIME NOT NULL,
			ended_at DATETIME,
			frames INTEGER NOT NULL DEFAULT 0,
			hand_frames INTEGER NOT NULL DEFAULT 0,
			level_updates INTEGER NOT NULL DEFAULT 0,
			errors INTEGER NOT NULL DEFAULT 0,
			last_level REAL NOT NULL DEFAULT 0
		)`,

		`CREATE INDEX IF NOT EXISTS idx_sessions_started_at ON sessions(started_at)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return err
		}
	}

	return nil
}
