package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

const symbolColumns = "id, name, category, occurrences, meanings, context, created_at"

// symbolKey is the case-insensitive identity of a symbol name.
func symbolKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func scanSymbol(row rowScanner) (*Symbol, error) {
	var sym Symbol
	var meanings, createdStr string
	var extra sql.NullString

	if err := row.Scan(&sym.ID, &sym.Name, &sym.Category, &sym.Occurrences, &meanings, &extra, &createdStr); err != nil {
		return nil, err
	}

	list, err := decodeList(meanings)
	if err != nil {
		return nil, fmt.Errorf("decode meanings of symbol %s: %w", sym.Name, err)
	}
	sym.Meanings = list
	sym.Context = stringPtr(extra)
	sym.CreatedAt, _ = parseTimestamp(createdStr)

	return &sym, nil
}

// GetSymbolByName looks a symbol up by case-insensitive name.
func (s *SQLiteStore) GetSymbolByName(ctx context.Context, name string) (*Symbol, error) {
	sym, err := scanSymbol(s.getSymbol.QueryRowContext(ctx, symbolKey(name)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("symbol %q: %w", name, ErrNotFound)
		}
		return nil, fmt.Errorf("get symbol: %w", err)
	}
	return sym, nil
}

// AddSymbol inserts a new symbol. Fails if the name is already taken.
func (s *SQLiteStore) AddSymbol(ctx context.Context, sym *Symbol) error {
	if sym.ID == "" {
		sym.ID = generateID()
	}
	if sym.CreatedAt.IsZero() {
		sym.CreatedAt = time.Now()
	}
	if sym.Category == "" {
		sym.Category = "other"
	}
	if sym.Occurrences < 1 {
		sym.Occurrences = 1
	}
	if sym.Meanings == nil {
		sym.Meanings = []string{}
	}

	meanings, err := encodeList(sym.Meanings)
	if err != nil {
		return fmt.Errorf("encode meanings: %w", err)
	}

	_, err = s.insertSymbol.ExecContext(ctx,
		sym.ID, sym.Name, symbolKey(sym.Name), sym.Category, sym.Occurrences,
		meanings, nullString(sym.Context), formatTimestamp(sym.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert symbol: %w", err)
	}
	return nil
}

// UpdateSymbol overwrites a symbol's fields by ID.
func (s *SQLiteStore) UpdateSymbol(ctx context.Context, sym *Symbol) error {
	meanings, err := encodeList(sym.Meanings)
	if err != nil {
		return fmt.Errorf("encode meanings: %w", err)
	}

	res, err := s.updateSymbol.ExecContext(ctx,
		sym.Name, symbolKey(sym.Name), sym.Category, sym.Occurrences,
		meanings, nullString(sym.Context), sym.ID,
	)
	if err != nil {
		return fmt.Errorf("update symbol: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("symbol %q: %w", sym.Name, ErrNotFound)
	}
	return nil
}

// ListSymbols returns symbols by occurrences, highest first. Ties keep
// insertion order. A non-positive limit returns all symbols.
func (s *SQLiteStore) ListSymbols(ctx context.Context, limit int) ([]Symbol, error) {
	query := "SELECT " + symbolColumns + " FROM symbols ORDER BY occurrences DESC, seq ASC"
	var args []interface{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	return s.scanSymbols(ctx, query, args...)
}

// SymbolsByCategory returns the symbols in one category, most frequent first.
func (s *SQLiteStore) SymbolsByCategory(ctx context.Context, category string) ([]Symbol, error) {
	return s.scanSymbols(ctx,
		"SELECT "+symbolColumns+" FROM symbols WHERE category = ? ORDER BY occurrences DESC, seq ASC",
		category,
	)
}

// SearchSymbols matches keyword against name, category and meanings.
func (s *SQLiteStore) SearchSymbols(ctx context.Context, keyword string) ([]Symbol, error) {
	p := likePattern(strings.TrimSpace(keyword))
	return s.scanSymbols(ctx,
		`SELECT `+symbolColumns+` FROM symbols
		 WHERE name LIKE ? ESCAPE '\' OR category LIKE ? ESCAPE '\' OR meanings LIKE ? ESCAPE '\'
		 ORDER BY occurrences DESC, seq ASC`,
		p, p, p,
	)
}

// DeleteSymbol removes a symbol by case-insensitive name.
func (s *SQLiteStore) DeleteSymbol(ctx context.Context, name string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM symbols WHERE name_key = ?", symbolKey(name))
	if err != nil {
		return fmt.Errorf("delete symbol: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("symbol %q: %w", name, ErrNotFound)
	}
	return nil
}

// SymbolExists reports whether a symbol with this name (any case) is stored.
func (s *SQLiteStore) SymbolExists(ctx context.Context, name string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM symbols WHERE name_key = ?", symbolKey(name)).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("symbol exists: %w", err)
	}
	return n > 0, nil
}

// SymbolIDExists reports whether any symbol is stored under id.
func (s *SQLiteStore) SymbolIDExists(ctx context.Context, id string) (bool, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM symbols WHERE id = ?", id).Scan(&n); err != nil {
		return false, fmt.Errorf("symbol id exists: %w", err)
	}
	return n > 0, nil
}

func (s *SQLiteStore) scanSymbols(ctx context.Context, query string, args ...interface{}) ([]Symbol, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query symbols: %w", err)
	}
	defer rows.Close()

	symbols := []Symbol{}
	for rows.Next() {
		sym, err := scanSymbol(rows)
		if err != nil {
			return nil, fmt.Errorf("scan symbol: %w", err)
		}
		symbols = append(symbols, *sym)
	}
	return symbols, rows.Err()
}
