package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const patternColumns = "id, recurring_symbols, trends, recommendations, computed_at"

func scanPattern(row rowScanner) (*Pattern, error) {
	var p Pattern
	var recurring, trends, recs, computedStr string

	if err := row.Scan(&p.ID, &recurring, &trends, &recs, &computedStr); err != nil {
		return nil, err
	}

	var err error
	if p.RecurringSymbols, err = decodeList(recurring); err != nil {
		return nil, fmt.Errorf("decode recurring symbols: %w", err)
	}
	if p.Trends, err = decodeList(trends); err != nil {
		return nil, fmt.Errorf("decode trends: %w", err)
	}
	if p.Recommendations, err = decodeList(recs); err != nil {
		return nil, fmt.Errorf("decode recommendations: %w", err)
	}
	p.ComputedAt, _ = parseTimestamp(computedStr)

	return &p, nil
}

// AddPattern stores an analysis snapshot. Empty ID and zero ComputedAt are
// filled in.
func (s *SQLiteStore) AddPattern(ctx context.Context, p *Pattern) error {
	if p.ID == "" {
		p.ID = generateID()
	}
	if p.ComputedAt.IsZero() {
		p.ComputedAt = time.Now()
	}

	recurring, err := encodeList(p.RecurringSymbols)
	if err != nil {
		return err
	}
	trends, err := encodeList(p.Trends)
	if err != nil {
		return err
	}
	recs, err := encodeList(p.Recommendations)
	if err != nil {
		return err
	}

	if _, err := s.insertPattern.ExecContext(ctx,
		p.ID, recurring, trends, recs, formatTimestamp(p.ComputedAt),
	); err != nil {
		return fmt.Errorf("insert pattern: %w", err)
	}
	return nil
}

// ReplacePattern stores p as the only snapshot, discarding earlier ones.
func (s *SQLiteStore) ReplacePattern(ctx context.Context, p *Pattern) error {
	if p.ID == "" {
		p.ID = generateID()
	}
	if p.ComputedAt.IsZero() {
		p.ComputedAt = time.Now()
	}

	recurring, err := encodeList(p.RecurringSymbols)
	if err != nil {
		return err
	}
	trends, err := encodeList(p.Trends)
	if err != nil {
		return err
	}
	recs, err := encodeList(p.Recommendations)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, "DELETE FROM patterns"); err != nil {
		return fmt.Errorf("clear patterns: %w", err)
	}
	if _, err := tx.StmtContext(ctx, s.insertPattern).ExecContext(ctx,
		p.ID, recurring, trends, recs, formatTimestamp(p.ComputedAt),
	); err != nil {
		return fmt.Errorf("insert pattern: %w", err)
	}
	return tx.Commit()
}

// LatestPattern returns the most recently computed snapshot.
func (s *SQLiteStore) LatestPattern(ctx context.Context) (*Pattern, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+patternColumns+" FROM patterns ORDER BY computed_at DESC LIMIT 1",
	)
	p, err := scanPattern(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("pattern: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("latest pattern: %w", err)
	}
	return p, nil
}

// ListPatterns returns snapshots newest first. A non-positive limit returns all.
func (s *SQLiteStore) ListPatterns(ctx context.Context, limit int) ([]Pattern, error) {
	query := "SELECT " + patternColumns + " FROM patterns ORDER BY computed_at DESC"
	var args []interface{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query patterns: %w", err)
	}
	defer rows.Close()

	patterns := []Pattern{}
	for rows.Next() {
		p, err := scanPattern(rows)
		if err != nil {
			return nil, fmt.Errorf("scan pattern: %w", err)
		}
		patterns = append(patterns, *p)
	}
	return patterns, rows.Err()
}

// PatternExists reports whether a snapshot with id is stored.
func (s *SQLiteStore) PatternExists(ctx context.Context, id string) (bool, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM patterns WHERE id = ?", id).Scan(&n); err != nil {
		return false, fmt.Errorf("pattern exists: %w", err)
	}
	return n > 0, nil
}
