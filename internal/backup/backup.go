// Package backup exports the journal to a portable JSON document and
// imports such documents back without duplicating existing records.
package backup

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/runnerr0/dreamlog/internal/apperror"
	"github.com/runnerr0/dreamlog/internal/storage"
)

// FormatVersion is written to every export.
const FormatVersion = "1.0.0"

// Store is the persistence the exporter needs.
type Store interface {
	ListEntries(ctx context.Context, q storage.EntryQuery) ([]storage.Entry, error)
	ListSymbols(ctx context.Context, limit int) ([]storage.Symbol, error)
	ListPatterns(ctx context.Context, limit int) ([]storage.Pattern, error)
	EntryExists(ctx context.Context, id string) (bool, error)
	SymbolExists(ctx context.Context, name string) (bool, error)
	SymbolIDExists(ctx context.Context, id string) (bool, error)
	PatternExists(ctx context.Context, id string) (bool, error)
	AddEntry(ctx context.Context, e *storage.Entry) error
	AddSymbol(ctx context.Context, sym *storage.Symbol) error
	AddPattern(ctx context.Context, p *storage.Pattern) error
	RecordAudit(ctx context.Context, action, detail, entryID string) error
}

// Document is the export file layout.
type Document struct {
	Entries    []Entry   `json:"entries"`
	Symbols    []Symbol  `json:"symbols"`
	Patterns   []Pattern `json:"patterns"`
	ExportDate time.Time `json:"exportDate"`
	Version    string    `json:"version"`
}

// Entry is an exported journal entry.
type Entry struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"date"`
	Title     string    `json:"title"`
	Body      string    `json:"content"`
	Mood      string    `json:"mood"`
	Symbols   []string  `json:"symbols"`
	AISummary *string   `json:"aiInterpretation,omitempty"`
	IsFlagged bool      `json:"isLucidDream"`
}

// Symbol is an exported symbol record.
type Symbol struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Category    string    `json:"category"`
	Occurrences int       `json:"frequency"`
	Meanings    []string  `json:"meanings"`
	Context     *string   `json:"culturalContext,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Pattern is an exported analysis snapshot.
type Pattern struct {
	ID               string    `json:"id"`
	RecurringSymbols []string  `json:"recurringSymbols"`
	Trends           []string  `json:"emotionalTrends"`
	Recommendations  []string  `json:"recommendations"`
	ComputedAt       time.Time `json:"analysisDate"`
}

// Result counts what an import added.
type Result struct {
	EntriesImported  int `json:"entries_imported"`
	SymbolsImported  int `json:"symbols_imported"`
	PatternsImported int `json:"patterns_imported"`
	Skipped          int `json:"skipped"`
}

// Total is the number of records added.
func (r Result) Total() int {
	return r.EntriesImported + r.SymbolsImported + r.PatternsImported
}

// Filename is the default export file name for a moment.
func Filename(now time.Time) string {
	return "dreamlog_backup_" + now.Format("2006-01-02_150405") + ".json"
}

// Service exports and imports journal data.
type Service struct {
	store  Store
	logger *zap.Logger
	now    func() time.Time
}

// New creates a backup Service.
func New(store Store, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, logger: logger, now: time.Now}
}

// Export writes every entry (newest first), symbol (by name) and pattern
// as an indented JSON document.
func (s *Service) Export(ctx context.Context, w io.Writer) (*Document, error) {
	const op = "backup.Export"

	entries, err := s.store.ListEntries(ctx, storage.EntryQuery{Sort: storage.SortDateDesc})
	if err != nil {
		return nil, apperror.Storage(op, err)
	}
	symbols, err := s.store.ListSymbols(ctx, 0)
	if err != nil {
		return nil, apperror.Storage(op, err)
	}
	patterns, err := s.store.ListPatterns(ctx, 0)
	if err != nil {
		return nil, apperror.Storage(op, err)
	}

	doc := &Document{
		Entries:    make([]Entry, 0, len(entries)),
		Symbols:    make([]Symbol, 0, len(symbols)),
		Patterns:   make([]Pattern, 0, len(patterns)),
		ExportDate: s.now().UTC().Truncate(time.Second),
		Version:    FormatVersion,
	}
	for _, e := range entries {
		doc.Entries = append(doc.Entries, Entry{
			ID:        e.ID,
			Timestamp: e.Timestamp.UTC(),
			Title:     e.Title,
			Body:      e.Body,
			Mood:      string(e.Mood),
			Symbols:   e.Symbols,
			AISummary: e.AISummary,
			IsFlagged: e.IsFlagged,
		})
	}
	sort.SliceStable(symbols, func(i, j int) bool {
		return strings.ToLower(symbols[i].Name) < strings.ToLower(symbols[j].Name)
	})
	for _, sym := range symbols {
		doc.Symbols = append(doc.Symbols, Symbol{
			ID:          sym.ID,
			Name:        sym.Name,
			Category:    sym.Category,
			Occurrences: sym.Occurrences,
			Meanings:    sym.Meanings,
			Context:     sym.Context,
			CreatedAt:   sym.CreatedAt.UTC(),
		})
	}
	for _, p := range patterns {
		doc.Patterns = append(doc.Patterns, Pattern{
			ID:               p.ID,
			RecurringSymbols: p.RecurringSymbols,
			Trends:           p.Trends,
			Recommendations:  p.Recommendations,
			ComputedAt:       p.ComputedAt.UTC(),
		})
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("%s: write document: %w", op, err)
	}

	detail := fmt.Sprintf("%d entries, %d symbols, %d patterns", len(doc.Entries), len(doc.Symbols), len(doc.Patterns))
	if err := s.store.RecordAudit(ctx, "export", detail, ""); err != nil {
		s.logger.Warn("audit record failed", zap.String("action", "export"), zap.Error(err))
	}
	s.logger.Info("journal exported",
		zap.Int("entries", len(doc.Entries)),
		zap.Int("symbols", len(doc.Symbols)),
		zap.Int("patterns", len(doc.Patterns)),
	)
	return doc, nil
}

// Import adds every record of a document that is not already stored.
// Entries and patterns match by id, symbols by case-insensitive name.
// Malformed records are skipped and logged, and a symbol whose id is held
// by a differently named local symbol is stored under a new id. A storage
// failure stops the import; the audit log still records what was added.
func (s *Service) Import(ctx context.Context, r io.Reader) (*Result, error) {
	const op = "backup.Import"

	var doc Document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, apperror.Validation(op, "the backup file is not valid JSON: "+err.Error())
	}
	if err := checkVersion(doc.Version); err != nil {
		return nil, apperror.Validation(op, err.Error())
	}

	res := &Result{}
	for _, in := range doc.Entries {
		added, err := s.importEntry(ctx, in)
		if err != nil {
			s.audit(ctx, res, "import failed")
			return res, apperror.Storage(op, err)
		}
		if added {
			res.EntriesImported++
		} else {
			res.Skipped++
		}
	}
	for _, in := range doc.Symbols {
		added, err := s.importSymbol(ctx, in)
		if err != nil {
			s.audit(ctx, res, "import failed")
			return res, apperror.Storage(op, err)
		}
		if added {
			res.SymbolsImported++
		} else {
			res.Skipped++
		}
	}
	for _, in := range doc.Patterns {
		added, err := s.importPattern(ctx, in)
		if err != nil {
			s.audit(ctx, res, "import failed")
			return res, apperror.Storage(op, err)
		}
		if added {
			res.PatternsImported++
		} else {
			res.Skipped++
		}
	}

	s.audit(ctx, res, "import")
	s.logger.Info("journal imported",
		zap.Int("entries", res.EntriesImported),
		zap.Int("symbols", res.SymbolsImported),
		zap.Int("patterns", res.PatternsImported),
		zap.Int("skipped", res.Skipped),
	)
	return res, nil
}

func (s *Service) audit(ctx context.Context, res *Result, action string) {
	detail := fmt.Sprintf("%d entries, %d symbols, %d patterns, %d skipped",
		res.EntriesImported, res.SymbolsImported, res.PatternsImported, res.Skipped)
	if err := s.store.RecordAudit(ctx, action, detail, ""); err != nil {
		s.logger.Warn("audit record failed", zap.String("action", action), zap.Error(err))
	}
}

// importEntry returns false for duplicates and invalid rows.
func (s *Service) importEntry(ctx context.Context, in Entry) (bool, error) {
	if strings.TrimSpace(in.ID) == "" || strings.TrimSpace(in.Body) == "" {
		s.logger.Warn("import: entry skipped", zap.String("id", in.ID), zap.String("reason", "missing id or content"))
		return false, nil
	}
	mood, err := storage.ParseMood(in.Mood)
	if err != nil {
		s.logger.Warn("import: entry skipped", zap.String("id", in.ID), zap.Error(err))
		return false, nil
	}
	exists, err := s.store.EntryExists(ctx, in.ID)
	if err != nil || exists {
		return false, err
	}

	e := &storage.Entry{
		ID:        in.ID,
		Timestamp: in.Timestamp,
		Title:     in.Title,
		Body:      in.Body,
		Mood:      mood,
		Symbols:   in.Symbols,
		AISummary: in.AISummary,
		IsFlagged: in.IsFlagged,
	}
	if err := s.store.AddEntry(ctx, e); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Service) importSymbol(ctx context.Context, in Symbol) (bool, error) {
	if strings.TrimSpace(in.Name) == "" {
		s.logger.Warn("import: symbol skipped", zap.String("id", in.ID), zap.String("reason", "missing name"))
		return false, nil
	}
	exists, err := s.store.SymbolExists(ctx, in.Name)
	if err != nil || exists {
		return false, err
	}

	id := strings.TrimSpace(in.ID)
	if id != "" {
		taken, err := s.store.SymbolIDExists(ctx, id)
		if err != nil {
			return false, err
		}
		if taken {
			// The name is new here, so keep the record under a fresh id.
			s.logger.Warn("import: symbol id already in use, assigning a new one",
				zap.String("id", id), zap.String("name", in.Name))
			id = ""
		}
	}

	sym := &storage.Symbol{
		ID:          id,
		Name:        strings.TrimSpace(in.Name),
		Category:    strings.ToLower(strings.TrimSpace(in.Category)),
		Occurrences: in.Occurrences,
		Meanings:    dedupe(in.Meanings),
		Context:     in.Context,
		CreatedAt:   in.CreatedAt,
	}
	if err := s.store.AddSymbol(ctx, sym); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Service) importPattern(ctx context.Context, in Pattern) (bool, error) {
	if strings.TrimSpace(in.ID) == "" {
		s.logger.Warn("import: pattern skipped", zap.String("reason", "missing id"))
		return false, nil
	}
	exists, err := s.store.PatternExists(ctx, in.ID)
	if err != nil || exists {
		return false, err
	}

	p := &storage.Pattern{
		ID:               in.ID,
		RecurringSymbols: in.RecurringSymbols,
		Trends:           in.Trends,
		Recommendations:  in.Recommendations,
		ComputedAt:       in.ComputedAt,
	}
	if err := s.store.AddPattern(ctx, p); err != nil {
		return false, err
	}
	return true, nil
}

// checkVersion accepts any 1.x.y document.
func checkVersion(v string) error {
	if v == "" {
		return fmt.Errorf("the backup file has no version")
	}
	major, _, _ := strings.Cut(v, ".")
	n, err := strconv.Atoi(major)
	if err != nil {
		return fmt.Errorf("the backup version %q is not recognised", v)
	}
	if n != 1 {
		return fmt.Errorf("backup version %s is not supported", v)
	}
	return nil
}

func dedupe(items []string) []string {
	out := make([]string, 0, len(items))
	seen := make(map[string]bool, len(items))
	for _, it := range items {
		if seen[it] {
			continue
		}
		seen[it] = true
		out = append(out, it)
	}
	return out
}
