package storage

import (
	"database/sql"
	"fmt"
)

// migration is one versioned schema step.
type migration struct {
	version int
	name    string
	up      func(tx *sql.Tx) error
}

// schema lists every step in version order. Append only.
var schema = []migration{
	{version: 1, name: "initial_schema", up: migrateV001},
	{version: 2, name: "title_sort_index", up: migrateV002},
}

// MigrationRunner brings a database up to the latest schema version.
type MigrationRunner struct {
	db    *sql.DB
	steps []migration
}

// NewMigrationRunner creates a runner for the dreamlog schema.
func NewMigrationRunner(db *sql.DB) *MigrationRunner {
	return &MigrationRunner{db: db, steps: schema}
}

// Run switches the database to WAL with foreign keys on, then applies every
// step that is not recorded in schema_migrations, each in its own
// transaction. It returns the names of the steps it applied.
func (r *MigrationRunner) Run() ([]string, error) {
	for _, pragma := range []string{"PRAGMA journal_mode = WAL", "PRAGMA foreign_keys = ON"} {
		if _, err := r.db.Exec(pragma); err != nil {
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}
	if _, err := r.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version    INTEGER PRIMARY KEY,
			name       TEXT NOT NULL,
			applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`); err != nil {
		return nil, fmt.Errorf("create schema_migrations: %w", err)
	}

	pending, err := r.pending()
	if err != nil {
		return nil, err
	}
	var applied []string
	for _, m := range pending {
		if err := r.apply(m); err != nil {
			return applied, fmt.Errorf("migration %d (%s): %w", m.version, m.name, err)
		}
		applied = append(applied, m.name)
	}
	return applied, nil
}

// Pending returns the versions not yet applied. It expects Run to have
// created the tracking table at least once.
func (r *MigrationRunner) Pending() ([]int, error) {
	steps, err := r.pending()
	if err != nil {
		return nil, err
	}
	versions := make([]int, len(steps))
	for i, m := range steps {
		versions[i] = m.version
	}
	return versions, nil
}

// CurrentVersion returns the highest applied version, 0 on a fresh database.
func (r *MigrationRunner) CurrentVersion() (int, error) {
	var v int
	if err := r.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&v); err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	return v, nil
}

func (r *MigrationRunner) pending() ([]migration, error) {
	rows, err := r.db.Query("SELECT version FROM schema_migrations")
	if err != nil {
		return nil, fmt.Errorf("read applied migrations: %w", err)
	}
	defer rows.Close()

	done := make(map[int]bool)
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		done[v] = true
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var out []migration
	for _, m := range r.steps {
		if !done[m.version] {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r *MigrationRunner) apply(m migration) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck

	if err := m.up(tx); err != nil {
		return err
	}
	if _, err := tx.Exec("INSERT INTO schema_migrations (version, name) VALUES (?, ?)", m.version, m.name); err != nil {
		return fmt.Errorf("record version: %w", err)
	}
	return tx.Commit()
}
