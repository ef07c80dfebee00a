package storage

import (
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openRawDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	return db
}

func migrated(t *testing.T) *sql.DB {
	t.Helper()
	db := openRawDB(t)
	_, err := NewMigrationRunner(db).Run()
	require.NoError(t, err)
	return db
}

func TestMigrationRunner_CreatesSchema(t *testing.T) {
	db := migrated(t)

	objects := map[string][]string{
		"table": {"entries", "symbols", "patterns", "app_state", "audit_log", "schema_migrations"},
		"index": {
			"idx_entries_ts", "idx_entries_mood", "idx_entries_ts_mood", "idx_entries_flagged",
			"idx_entries_title_nocase", "idx_symbols_category", "idx_symbols_occurrence",
			"idx_patterns_computed", "idx_audit_log_ts", "idx_audit_log_action",
		},
	}
	for kind, names := range objects {
		for _, name := range names {
			var got string
			err := db.QueryRow("SELECT name FROM sqlite_master WHERE type = ? AND name = ?", kind, name).Scan(&got)
			require.NoError(t, err, "%s %s missing", kind, name)
		}
	}
}

func TestMigrationRunner_SecondRunAppliesNothing(t *testing.T) {
	db := openRawDB(t)
	runner := NewMigrationRunner(db)

	applied, err := runner.Run()
	require.NoError(t, err)
	assert.Equal(t, []string{"initial_schema", "title_sort_index"}, applied)

	applied, err = runner.Run()
	require.NoError(t, err)
	assert.Empty(t, applied)

	pending, err := runner.Pending()
	require.NoError(t, err)
	assert.Empty(t, pending)

	v, err := runner.CurrentVersion()
	require.NoError(t, err)
	assert.Equal(t, 2, v)
}

func TestMigrationRunner_UpgradesOlderDatabase(t *testing.T) {
	db := openRawDB(t)
	old := &MigrationRunner{db: db, steps: schema[:1]}
	_, err := old.Run()
	require.NoError(t, err)

	runner := NewMigrationRunner(db)
	pending, err := runner.Pending()
	require.NoError(t, err)
	assert.Equal(t, []int{2}, pending)

	applied, err := runner.Run()
	require.NoError(t, err)
	assert.Equal(t, []string{"title_sort_index"}, applied)

	var name string
	require.NoError(t, db.QueryRow("SELECT name FROM schema_migrations WHERE version = 2").Scan(&name))
	assert.Equal(t, "title_sort_index", name)
}

func TestMigrationRunner_Pragmas(t *testing.T) {
	db := migrated(t)

	var mode string
	require.NoError(t, db.QueryRow("PRAGMA journal_mode").Scan(&mode))
	// In-memory databases stay in "memory" mode.
	assert.Contains(t, []string{"wal", "memory"}, mode)

	var fk int
	require.NoError(t, db.QueryRow("PRAGMA foreign_keys").Scan(&fk))
	assert.Equal(t, 1, fk)
}

func TestMigrationRunner_MoodConstraint(t *testing.T) {
	db := migrated(t)

	_, err := db.Exec("INSERT INTO entries (id, body, mood) VALUES ('ok', 'x', 'lucid')")
	require.NoError(t, err)

	_, err = db.Exec("INSERT INTO entries (id, body, mood) VALUES ('bad', 'x', 'ecstatic')")
	assert.Error(t, err, "mood outside the closed set should be rejected")
}

func TestMigrationRunner_SymbolNameKeyUnique(t *testing.T) {
	db := migrated(t)

	_, err := db.Exec("INSERT INTO symbols (id, name, name_key) VALUES ('s1', 'Water', 'water')")
	require.NoError(t, err)

	_, err = db.Exec("INSERT INTO symbols (id, name, name_key) VALUES ('s2', 'WATER', 'water')")
	assert.Error(t, err)

	_, err = db.Exec("INSERT INTO symbols (id, name, name_key, occurrences) VALUES ('s3', 'Fire', 'fire', 0)")
	assert.Error(t, err, "occurrences must be at least 1")
}
