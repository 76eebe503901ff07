package store

// runMigrations executes all database migrations.
func (s *Store) runMigrations() error {
	migrations := []string{
		// Checks table - one row per scored upload
		`CREATE TABLE IF NOT EXISTS checks (
			id TEXT PRIMARY KEY,
			asana TEXT NOT NULL,
			upload TEXT NOT NULL,
			outcome TEXT NOT NULL CHECK(outcome IN ('correct', 'incorrect', 'indeterminate')),
			distance REAL NOT NULL DEFAULT 0,
			reason TEXT NOT NULL DEFAULT '',
			frames_read INTEGER NOT NULL DEFAULT 0,
			frames_detected INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		// Check references table - the dataset files consulted for each check
		`CREATE TABLE IF NOT EXISTS check_references (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			check_id TEXT NOT NULL REFERENCES checks(id) ON DELETE CASCADE,
			path TEXT NOT NULL,
			used INTEGER NOT NULL DEFAULT 0,
			frames_detected INTEGER NOT NULL DEFAULT 0
		)`,

		// Indexes for better query performance
		`CREATE INDEX IF NOT EXISTS idx_checks_asana ON checks(asana)`,
		`CREATE INDEX IF NOT EXISTS idx_checks_created_at ON checks(created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_check_references_check_id ON check_references(check_id)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return err
		}
	}

	return nil
}
