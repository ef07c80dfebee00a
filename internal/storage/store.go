package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// ErrNotFound is wrapped by every lookup that matches no row.
var ErrNotFound = errors.New("not found")

// Store defines the interface for dreamlog data operations.
type Store interface {
	AddEntry(ctx context.Context, e *Entry) error
	GetEntry(ctx context.Context, id string) (*Entry, error)
	UpdateEntry(ctx context.Context, e *Entry) error
	DeleteEntry(ctx context.Context, id string) error
	ListEntries(ctx context.Context, q EntryQuery) ([]Entry, error)
	RecentEntries(ctx context.Context, limit int) ([]Entry, error)
	CountEntries(ctx context.Context) (int64, error)
	EntryTimestamps(ctx context.Context) ([]time.Time, error)
	MoodCounts(ctx context.Context, since, until time.Time) ([]MoodCount, error)
	EntryExists(ctx context.Context, id string) (bool, error)

	GetSymbolByName(ctx context.Context, name string) (*Symbol, error)
	AddSymbol(ctx context.Context, sym *Symbol) error
	UpdateSymbol(ctx context.Context, sym *Symbol) error
	ListSymbols(ctx context.Context, limit int) ([]Symbol, error)
	SymbolsByCategory(ctx context.Context, category string) ([]Symbol, error)
	SearchSymbols(ctx context.Context, keyword string) ([]Symbol, error)
	DeleteSymbol(ctx context.Context, name string) error
	SymbolExists(ctx context.Context, name string) (bool, error)
	SymbolIDExists(ctx context.Context, id string) (bool, error)

	AddPattern(ctx context.Context, p *Pattern) error
	ReplacePattern(ctx context.Context, p *Pattern) error
	LatestPattern(ctx context.Context) (*Pattern, error)
	ListPatterns(ctx context.Context, limit int) ([]Pattern, error)
	PatternExists(ctx context.Context, id string) (bool, error)

	GetState(ctx context.Context, key string) (string, bool, error)
	SetState(ctx context.Context, key, value string) error

	RecordAudit(ctx context.Context, action, detail, entryID string) error
	ListAudit(ctx context.Context, limit int) ([]AuditRecord, error)

	PurgeAll(ctx context.Context) error
	GetStats(ctx context.Context) (*Stats, error)
	Close() error
}

// SQLiteStore implements Store backed by a SQLite database.
type SQLiteStore struct {
	db *sql.DB

	// Prepared statements
	insertEntry   *sql.Stmt
	getEntry      *sql.Stmt
	updateEntry   *sql.Stmt
	deleteEntry   *sql.Stmt
	insertSymbol  *sql.Stmt
	getSymbol     *sql.Stmt
	updateSymbol  *sql.Stmt
	insertPattern *sql.Stmt
	getState      *sql.Stmt
	setState      *sql.Stmt
	insertAudit   *sql.Stmt
}

// Open opens (creating if needed) the database file at path, runs all
// migrations and applies journalMode when it is not the WAL default.
func Open(path, journalMode string) (*sql.DB, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if path == ":memory:" {
		// Each pooled connection would otherwise get its own empty database.
		db.SetMaxOpenConns(1)
	}

	if _, err := NewMigrationRunner(db).Run(); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	if mode := strings.ToLower(journalMode); mode != "" && mode != "wal" {
		if _, err := db.Exec("PRAGMA journal_mode = " + mode); err != nil {
			db.Close()
			return nil, fmt.Errorf("set journal mode %s: %w", mode, err)
		}
	}

	return db, nil
}

// NewSQLiteStore creates a new SQLiteStore from an already-opened and migrated database.
func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	s := &SQLiteStore{db: db}

	if err := s.prepareStatements(); err != nil {
		return nil, fmt.Errorf("prepare statements: %w", err)
	}

	return s, nil
}

func (s *SQLiteStore) prepareStatements() error {
	stmts := []struct {
		dst   **sql.Stmt
		query string
	}{
		{&s.insertEntry, `
			INSERT INTO entries (id, ts, title, body, mood, symbols, ai_summary, is_flagged)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`},
		{&s.getEntry, `SELECT ` + entryColumns + ` FROM entries WHERE id = ?`},
		{&s.updateEntry, `
			UPDATE entries
			SET ts = ?, title = ?, body = ?, mood = ?, symbols = ?, ai_summary = ?,
			    is_flagged = ?, updated_at = CURRENT_TIMESTAMP
			WHERE id = ?`},
		{&s.deleteEntry, `DELETE FROM entries WHERE id = ?`},
		{&s.insertSymbol, `
			INSERT INTO symbols (id, name, name_key, category, occurrences, meanings, context, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`},
		{&s.getSymbol, `SELECT ` + symbolColumns + ` FROM symbols WHERE name_key = ?`},
		{&s.updateSymbol, `
			UPDATE symbols
			SET name = ?, name_key = ?, category = ?, occurrences = ?, meanings = ?, context = ?
			WHERE id = ?`},
		{&s.insertPattern, `
			INSERT INTO patterns (id, recurring_symbols, trends, recommendations, computed_at)
			VALUES (?, ?, ?, ?, ?)`},
		{&s.getState, `SELECT value FROM app_state WHERE key = ?`},
		{&s.setState, `
			INSERT INTO app_state (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
			ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`},
		{&s.insertAudit, `INSERT INTO audit_log (action, detail, entry_id, ts) VALUES (?, ?, ?, ?)`},
	}

	for _, st := range stmts {
		prepared, err := s.db.Prepare(st.query)
		if err != nil {
			return err
		}
		*st.dst = prepared
	}

	return nil
}

// generateID creates a random record ID.
func generateID() string {
	return uuid.NewString()
}

// tsLayout is fixed-width so stored timestamps sort lexically.
const tsLayout = "2006-01-02T15:04:05.000Z07:00"

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(tsLayout)
}

// parseTimestamp tries several common SQLite timestamp formats.
func parseTimestamp(s string) (time.Time, error) {
	formats := []string{
		time.RFC3339Nano,
		time.RFC3339,
		tsLayout,
		"2006-01-02T15:04:05Z",
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05.999999999-07:00",
	}
	for _, f := range formats {
		if t, err := time.Parse(f, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("cannot parse timestamp: %s", s)
}

// encodeList stores a string list as a JSON array column.
func encodeList(items []string) (string, error) {
	if items == nil {
		items = []string{}
	}
	b, err := json.Marshal(items)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// decodeList reads a JSON array column. It never returns nil.
func decodeList(raw string) ([]string, error) {
	items := []string{}
	if raw == "" {
		return items, nil
	}
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return nil, err
	}
	if items == nil {
		items = []string{}
	}
	return items, nil
}

func nullString(p *string) sql.NullString {
	if p == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *p, Valid: true}
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	v := ns.String
	return &v
}

// GetState reads an app_state value. The bool is false when the key is unset.
func (s *SQLiteStore) GetState(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.getState.QueryRowContext(ctx, key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("get state %s: %w", key, err)
	}
	return value, true, nil
}

// SetState upserts an app_state value.
func (s *SQLiteStore) SetState(ctx context.Context, key, value string) error {
	if _, err := s.setState.ExecContext(ctx, key, value); err != nil {
		return fmt.Errorf("set state %s: %w", key, err)
	}
	return nil
}

// RecordAudit appends a row to the audit trail.
func (s *SQLiteStore) RecordAudit(ctx context.Context, action, detail, entryID string) error {
	var id sql.NullString
	if entryID != "" {
		id = sql.NullString{String: entryID, Valid: true}
	}
	if _, err := s.insertAudit.ExecContext(ctx, action, detail, id, formatTimestamp(time.Now())); err != nil {
		return fmt.Errorf("record audit: %w", err)
	}
	return nil
}

// ListAudit returns the newest audit rows first.
func (s *SQLiteStore) ListAudit(ctx context.Context, limit int) ([]AuditRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		"SELECT action, detail, entry_id, ts FROM audit_log ORDER BY id DESC LIMIT ?", limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query audit log: %w", err)
	}
	defer rows.Close()

	records := []AuditRecord{}
	for rows.Next() {
		var r AuditRecord
		var entryID sql.NullString
		var tsStr string
		if err := rows.Scan(&r.Action, &r.Detail, &entryID, &tsStr); err != nil {
			return nil, fmt.Errorf("scan audit: %w", err)
		}
		r.EntryID = entryID.String
		r.Timestamp, _ = parseTimestamp(tsStr)
		records = append(records, r)
	}
	return records, rows.Err()
}

// PurgeAll deletes all entries, symbols and patterns. App state (the usage
// counter) and the audit trail survive a purge.
func (s *SQLiteStore) PurgeAll(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	stmts := []string{
		"DELETE FROM entries",
		"DELETE FROM symbols",
		"DELETE FROM patterns",
	}
	for _, stmt := range stmts {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("purge (%s): %w", stmt, err)
		}
	}
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO audit_log (action, detail, ts) VALUES ('purge', 'all data deleted', ?)",
		formatTimestamp(time.Now()),
	); err != nil {
		return fmt.Errorf("record purge: %w", err)
	}

	return tx.Commit()
}

// GetStats returns aggregate statistics about the database.
func (s *SQLiteStore) GetStats(ctx context.Context) (*Stats, error) {
	stats := &Stats{}

	counts := []struct {
		dst   *int64
		query string
	}{
		{&stats.TotalEntries, "SELECT COUNT(*) FROM entries"},
		{&stats.TotalSymbols, "SELECT COUNT(*) FROM symbols"},
		{&stats.TotalPatterns, "SELECT COUNT(*) FROM patterns"},
		{&stats.FlaggedEntries, "SELECT COUNT(*) FROM entries WHERE is_flagged = 1"},
	}
	for _, c := range counts {
		if err := s.db.QueryRowContext(ctx, c.query).Scan(c.dst); err != nil {
			return nil, fmt.Errorf("stats (%s): %w", c.query, err)
		}
	}

	// Oldest and newest (handle empty DB)
	if stats.TotalEntries > 0 {
		var oldestStr, newestStr string
		err := s.db.QueryRowContext(ctx, "SELECT MIN(ts), MAX(ts) FROM entries").Scan(&oldestStr, &newestStr)
		if err != nil {
			return nil, fmt.Errorf("entry time range: %w", err)
		}
		stats.OldestEntry, _ = parseTimestamp(oldestStr)
		stats.NewestEntry, _ = parseTimestamp(newestStr)
	}

	var pageCount, pageSize int64
	if err := s.db.QueryRowContext(ctx, "PRAGMA page_count").Scan(&pageCount); err != nil {
		return nil, fmt.Errorf("page count: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, "PRAGMA page_size").Scan(&pageSize); err != nil {
		return nil, fmt.Errorf("page size: %w", err)
	}
	stats.DatabaseSizeBytes = pageCount * pageSize

	moods, err := s.MoodCounts(ctx, time.Time{}, time.Time{})
	if err != nil {
		return nil, err
	}
	stats.Moods = moods

	return stats, nil
}

// Close releases all prepared statements. The underlying *sql.DB is NOT
// closed; that is the caller's responsibility.
func (s *SQLiteStore) Close() error {
	stmts := []*sql.Stmt{
		s.insertEntry, s.getEntry, s.updateEntry, s.deleteEntry,
		s.insertSymbol, s.getSymbol, s.updateSymbol,
		s.insertPattern, s.getState, s.setState, s.insertAudit,
	}
	for _, stmt := range stmts {
		if stmt != nil {
			stmt.Close()
		}
	}
	return nil
}
