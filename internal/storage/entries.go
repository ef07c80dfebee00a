package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

const entryColumns = "id, ts, title, body, mood, symbols, ai_summary, is_flagged"

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanEntry(row rowScanner) (*Entry, error) {
	var e Entry
	var tsStr, mood, symbols string
	var summary sql.NullString

	if err := row.Scan(&e.ID, &tsStr, &e.Title, &e.Body, &mood, &symbols, &summary, &e.IsFlagged); err != nil {
		return nil, err
	}

	e.Timestamp, _ = parseTimestamp(tsStr)
	e.Mood = Mood(mood)
	e.AISummary = stringPtr(summary)

	list, err := decodeList(symbols)
	if err != nil {
		return nil, fmt.Errorf("decode symbols of entry %s: %w", e.ID, err)
	}
	e.Symbols = list

	return &e, nil
}

// AddEntry inserts a new entry. An empty ID is replaced with a generated one;
// a given ID is kept so imported entries retain their identity. A zero
// timestamp defaults to now and an empty mood to neutral.
func (s *SQLiteStore) AddEntry(ctx context.Context, e *Entry) error {
	if e.ID == "" {
		e.ID = generateID()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	if e.Mood == "" {
		e.Mood = MoodNeutral
	}
	if e.Symbols == nil {
		e.Symbols = []string{}
	}

	symbols, err := encodeList(e.Symbols)
	if err != nil {
		return fmt.Errorf("encode symbols: %w", err)
	}

	_, err = s.insertEntry.ExecContext(ctx,
		e.ID, formatTimestamp(e.Timestamp), e.Title, e.Body, string(e.Mood),
		symbols, nullString(e.AISummary), e.IsFlagged,
	)
	if err != nil {
		return fmt.Errorf("insert entry: %w", err)
	}

	return nil
}

// GetEntry retrieves a single entry by ID.
func (s *SQLiteStore) GetEntry(ctx context.Context, id string) (*Entry, error) {
	e, err := scanEntry(s.getEntry.QueryRowContext(ctx, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("entry %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("get entry: %w", err)
	}
	return e, nil
}

// UpdateEntry overwrites every mutable field of an existing entry.
func (s *SQLiteStore) UpdateEntry(ctx context.Context, e *Entry) error {
	if e.Mood == "" {
		e.Mood = MoodNeutral
	}
	symbols, err := encodeList(e.Symbols)
	if err != nil {
		return fmt.Errorf("encode symbols: %w", err)
	}

	res, err := s.updateEntry.ExecContext(ctx,
		formatTimestamp(e.Timestamp), e.Title, e.Body, string(e.Mood),
		symbols, nullString(e.AISummary), e.IsFlagged, e.ID,
	)
	if err != nil {
		return fmt.Errorf("update entry: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("entry %s: %w", e.ID, ErrNotFound)
	}
	return nil
}

// DeleteEntry removes an entry by ID.
func (s *SQLiteStore) DeleteEntry(ctx context.Context, id string) error {
	res, err := s.deleteEntry.ExecContext(ctx, id)
	if err != nil {
		return fmt.Errorf("delete entry: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("entry %s: %w", id, ErrNotFound)
	}

	return nil
}

// EntryExists reports whether an entry with id is stored.
func (s *SQLiteStore) EntryExists(ctx context.Context, id string) (bool, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM entries WHERE id = ?", id).Scan(&n); err != nil {
		return false, fmt.Errorf("entry exists: %w", err)
	}
	return n > 0, nil
}

// likePattern builds a case-insensitive substring pattern for LIKE ... ESCAPE '\'.
func likePattern(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(s) + "%"
}

func orderClause(sort SortOrder) string {
	switch sort {
	case SortDateAsc:
		return " ORDER BY ts ASC, id ASC"
	case SortTitleAsc:
		return " ORDER BY title COLLATE NOCASE ASC, ts DESC"
	case SortTitleDesc:
		return " ORDER BY title COLLATE NOCASE DESC, ts DESC"
	default:
		return " ORDER BY ts DESC, id ASC"
	}
}

// ListEntries queries entries with optional filters. The text query matches
// title or body case-insensitively.
func (s *SQLiteStore) ListEntries(ctx context.Context, q EntryQuery) ([]Entry, error) {
	var clauses []string
	var args []interface{}

	if text := strings.TrimSpace(q.Query); text != "" {
		clauses = append(clauses, `(title LIKE ? ESCAPE '\' OR body LIKE ? ESCAPE '\')`)
		p := likePattern(text)
		args = append(args, p, p)
	}
	if q.Mood != "" {
		clauses = append(clauses, "mood = ?")
		args = append(args, string(q.Mood))
	}
	if !q.Since.IsZero() {
		clauses = append(clauses, "ts >= ?")
		args = append(args, formatTimestamp(q.Since))
	}
	if !q.Until.IsZero() {
		clauses = append(clauses, "ts < ?")
		args = append(args, formatTimestamp(q.Until))
	}
	if q.FlaggedOnly {
		clauses = append(clauses, "is_flagged = 1")
	}

	query := "SELECT " + entryColumns + " FROM entries"
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += orderClause(q.Sort)

	if q.Limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, q.Limit, q.Offset)
	} else if q.Offset > 0 {
		query += " LIMIT -1 OFFSET ?"
		args = append(args, q.Offset)
	}

	return s.scanEntries(ctx, query, args...)
}

// RecentEntries returns the newest entries first.
func (s *SQLiteStore) RecentEntries(ctx context.Context, limit int) ([]Entry, error) {
	return s.ListEntries(ctx, EntryQuery{Sort: SortDateDesc, Limit: limit})
}

// scanEntries executes a query and scans results into Entry slices.
func (s *SQLiteStore) scanEntries(ctx context.Context, query string, args ...interface{}) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query entries: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		entries = append(entries, *e)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return entries, nil
}

// CountEntries returns the total number of stored entries.
func (s *SQLiteStore) CountEntries(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM entries").Scan(&n); err != nil {
		return 0, fmt.Errorf("count entries: %w", err)
	}
	return n, nil
}

// EntryTimestamps returns the timestamp of every entry, newest first.
func (s *SQLiteStore) EntryTimestamps(ctx context.Context) ([]time.Time, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT ts FROM entries ORDER BY ts DESC")
	if err != nil {
		return nil, fmt.Errorf("query timestamps: %w", err)
	}
	defer rows.Close()

	timestamps := []time.Time{}
	for rows.Next() {
		var tsStr string
		if err := rows.Scan(&tsStr); err != nil {
			return nil, fmt.Errorf("scan timestamp: %w", err)
		}
		ts, err := parseTimestamp(tsStr)
		if err != nil {
			return nil, err
		}
		timestamps = append(timestamps, ts)
	}
	return timestamps, rows.Err()
}

// MoodCounts groups entries in [since, until) by mood. Zero bounds are
// open. Results are ordered by count, highest first.
func (s *SQLiteStore) MoodCounts(ctx context.Context, since, until time.Time) ([]MoodCount, error) {
	var clauses []string
	var args []interface{}
	if !since.IsZero() {
		clauses = append(clauses, "ts >= ?")
		args = append(args, formatTimestamp(since))
	}
	if !until.IsZero() {
		clauses = append(clauses, "ts < ?")
		args = append(args, formatTimestamp(until))
	}

	query := "SELECT mood, COUNT(*) AS cnt FROM entries"
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " GROUP BY mood ORDER BY cnt DESC, mood ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("mood counts: %w", err)
	}
	defer rows.Close()

	counts := []MoodCount{}
	for rows.Next() {
		var mc MoodCount
		var mood string
		if err := rows.Scan(&mood, &mc.Count); err != nil {
			return nil, err
		}
		mc.Mood = Mood(mood)
		counts = append(counts, mc)
	}
	return counts, rows.Err()
}
