package storage

import "database/sql"

// migrateV001 creates the initial dreamlog schema: all tables and indexes.
// Every statement uses IF NOT EXISTS for idempotency.
func migrateV001(tx *sql.Tx) error {
	stmts := []string{
		// ── Tables ──────────────────────────────────────────────

		`CREATE TABLE IF NOT EXISTS entries (
			id         TEXT PRIMARY KEY,
			ts         DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			title      TEXT NOT NULL DEFAULT '',
			body       TEXT NOT NULL,
			mood       TEXT NOT NULL DEFAULT 'neutral'
			           CHECK (mood IN ('pleasant', 'neutral', 'nightmare', 'lucid', 'confusing')),
			symbols    TEXT NOT NULL DEFAULT '[]',
			ai_summary TEXT,
			is_flagged BOOLEAN NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS symbols (
			seq         INTEGER PRIMARY KEY AUTOINCREMENT,
			id          TEXT NOT NULL UNIQUE,
			name        TEXT NOT NULL,
			name_key    TEXT NOT NULL UNIQUE,
			category    TEXT NOT NULL DEFAULT 'other',
			occurrences INTEGER NOT NULL DEFAULT 1 CHECK (occurrences >= 1),
			meanings    TEXT NOT NULL DEFAULT '[]',
			context     TEXT,
			created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS patterns (
			id                TEXT PRIMARY KEY,
			recurring_symbols TEXT NOT NULL DEFAULT '[]',
			trends            TEXT NOT NULL DEFAULT '[]',
			recommendations   TEXT NOT NULL DEFAULT '[]',
			computed_at       DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS app_state (
			key        TEXT PRIMARY KEY,
			value      TEXT NOT NULL,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS audit_log (
			id       INTEGER PRIMARY KEY AUTOINCREMENT,
			action   TEXT NOT NULL,
			detail   TEXT NOT NULL DEFAULT '',
			entry_id TEXT,
			ts       DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,

		// ── Indexes ────────────────────────────────────────────

		`CREATE INDEX IF NOT EXISTS idx_entries_ts         ON entries(ts)`,
		`CREATE INDEX IF NOT EXISTS idx_entries_mood       ON entries(mood)`,
		`CREATE INDEX IF NOT EXISTS idx_entries_ts_mood    ON entries(ts, mood)`,
		`CREATE INDEX IF NOT EXISTS idx_entries_flagged    ON entries(is_flagged)`,
		`CREATE INDEX IF NOT EXISTS idx_symbols_category   ON symbols(category)`,
		`CREATE INDEX IF NOT EXISTS idx_symbols_occurrence ON symbols(occurrences)`,
		`CREATE INDEX IF NOT EXISTS idx_patterns_computed  ON patterns(computed_at)`,
		`CREATE INDEX IF NOT EXISTS idx_audit_log_ts       ON audit_log(ts)`,
		`CREATE INDEX IF NOT EXISTS idx_audit_log_action   ON audit_log(action)`,
	}

	for _, stmt := range stmts {
		if _, err := tx.Exec(stmt); err != nil {
			return err
		}
	}

	return nil
}
