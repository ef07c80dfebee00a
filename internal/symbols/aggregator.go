// Package symbols maintains the aggregated symbol records: one per
// case-insensitive name, with an occurrence count and accumulated meanings.
package symbols

import (
	"context"
	"errors"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/runnerr0/dreamlog/internal/apperror"
	"github.com/runnerr0/dreamlog/internal/storage"
)

// DefaultCategory is assigned when a sighting carries no category.
const DefaultCategory = "other"

// Store is the persistence surface the aggregator needs.
type Store interface {
	GetSymbolByName(ctx context.Context, name string) (*storage.Symbol, error)
	AddSymbol(ctx context.Context, sym *storage.Symbol) error
	UpdateSymbol(ctx context.Context, sym *storage.Symbol) error
	ListSymbols(ctx context.Context, limit int) ([]storage.Symbol, error)
	SymbolsByCategory(ctx context.Context, category string) ([]storage.Symbol, error)
	SearchSymbols(ctx context.Context, keyword string) ([]storage.Symbol, error)
	DeleteSymbol(ctx context.Context, name string) error
}

// Aggregator records symbol sightings and answers frequency queries.
type Aggregator struct {
	store  Store
	logger *zap.Logger
}

// NewAggregator creates an Aggregator. A nil logger disables logging.
func NewAggregator(store Store, logger *zap.Logger) *Aggregator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Aggregator{store: store, logger: logger}
}

// Statistics summarizes the symbol library.
type Statistics struct {
	TotalSymbols     int             `json:"total_symbols"`
	TotalCategories  int             `json:"total_categories"`
	TotalOccurrences int             `json:"total_occurrences"`
	MostCommon       *storage.Symbol `json:"most_common,omitempty"`
	AverageFrequency float64         `json:"average_frequency"`
}

// RebuildResult reports what a Rebuild changed.
type RebuildResult struct {
	Updated int `json:"updated"`
	Created int `json:"created"`
	Removed int `json:"removed"`
}

// RecordOccurrence registers one sighting of name. A new name creates a
// record with one occurrence; a known name (any case) has its count
// incremented and meaning appended unless already present. The category of
// an existing record never changes.
func (a *Aggregator) RecordOccurrence(ctx context.Context, name, category, meaning string) (*storage.Symbol, error) {
	const op = "symbols.RecordOccurrence"

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperror.Validation(op, "symbol name must not be empty")
	}
	meaning = strings.TrimSpace(meaning)

	sym, err := a.store.GetSymbolByName(ctx, name)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		sym = &storage.Symbol{
			Name:        name,
			Category:    normalizeCategory(category),
			Occurrences: 1,
			Meanings:    []string{},
		}
		if meaning != "" {
			sym.Meanings = append(sym.Meanings, meaning)
		}
		if err := a.store.AddSymbol(ctx, sym); err != nil {
			return nil, apperror.Storage(op, err)
		}
		a.logger.Debug("symbol created", zap.String("name", name), zap.String("category", sym.Category))
		return sym, nil
	case err != nil:
		return nil, apperror.Storage(op, err)
	}

	sym.Occurrences++
	if meaning != "" && !contains(sym.Meanings, meaning) {
		sym.Meanings = append(sym.Meanings, meaning)
	}
	if err := a.store.UpdateSymbol(ctx, sym); err != nil {
		return nil, apperror.Storage(op, err)
	}
	a.logger.Debug("symbol occurrence recorded",
		zap.String("name", sym.Name), zap.Int("occurrences", sym.Occurrences))
	return sym, nil
}

// TopByFrequency returns symbols by occurrence count, highest first. Equal
// counts keep insertion order. A non-positive limit returns every symbol.
func (a *Aggregator) TopByFrequency(ctx context.Context, limit int) ([]storage.Symbol, error) {
	syms, err := a.store.ListSymbols(ctx, limit)
	if err != nil {
		return nil, apperror.Storage("symbols.TopByFrequency", err)
	}
	return syms, nil
}

// CategoryBreakdown maps each category to its number of distinct symbols.
func (a *Aggregator) CategoryBreakdown(ctx context.Context) (map[string]int, error) {
	syms, err := a.store.ListSymbols(ctx, 0)
	if err != nil {
		return nil, apperror.Storage("symbols.CategoryBreakdown", err)
	}
	counts := make(map[string]int)
	for _, s := range syms {
		counts[s.Category]++
	}
	return counts, nil
}

// Categories returns the distinct categories in sorted order.
func (a *Aggregator) Categories(ctx context.Context) ([]string, error) {
	counts, err := a.CategoryBreakdown(ctx)
	if err != nil {
		return nil, err
	}
	cats := make([]string, 0, len(counts))
	for c := range counts {
		cats = append(cats, c)
	}
	sort.Strings(cats)
	return cats, nil
}

// ByCategory returns the symbols of one category, most frequent first.
func (a *Aggregator) ByCategory(ctx context.Context, category string) ([]storage.Symbol, error) {
	syms, err := a.store.SymbolsByCategory(ctx, normalizeCategory(category))
	if err != nil {
		return nil, apperror.Storage("symbols.ByCategory", err)
	}
	return syms, nil
}

// Frequency returns the occurrence count for name, or 0 if unknown.
func (a *Aggregator) Frequency(ctx context.Context, name string) (int, error) {
	sym, err := a.store.GetSymbolByName(ctx, name)
	if errors.Is(err, storage.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, apperror.Storage("symbols.Frequency", err)
	}
	return sym.Occurrences, nil
}

// Get returns one symbol by name, case-insensitively.
func (a *Aggregator) Get(ctx context.Context, name string) (*storage.Symbol, error) {
	return a.lookup(ctx, "symbols.Get", name)
}

// Statistics computes library-wide totals.
func (a *Aggregator) Statistics(ctx context.Context) (*Statistics, error) {
	syms, err := a.store.ListSymbols(ctx, 0)
	if err != nil {
		return nil, apperror.Storage("symbols.Statistics", err)
	}

	st := &Statistics{TotalSymbols: len(syms)}
	cats := make(map[string]struct{})
	for i := range syms {
		cats[syms[i].Category] = struct{}{}
		st.TotalOccurrences += syms[i].Occurrences
	}
	st.TotalCategories = len(cats)
	if len(syms) > 0 {
		// ListSymbols is already ordered by frequency.
		top := syms[0]
		st.MostCommon = &top
		st.AverageFrequency = float64(st.TotalOccurrences) / float64(len(syms))
	}
	return st, nil
}

// Search matches keyword against names, categories and meanings. An empty
// keyword returns every symbol.
func (a *Aggregator) Search(ctx context.Context, keyword string) ([]storage.Symbol, error) {
	if strings.TrimSpace(keyword) == "" {
		return a.TopByFrequency(ctx, 0)
	}
	syms, err := a.store.SearchSymbols(ctx, keyword)
	if err != nil {
		return nil, apperror.Storage("symbols.Search", err)
	}
	return syms, nil
}

// SetContext attaches free-text cultural or personal context to a symbol.
// Blank text clears it.
func (a *Aggregator) SetContext(ctx context.Context, name, text string) (*storage.Symbol, error) {
	const op = "symbols.SetContext"

	sym, err := a.lookup(ctx, op, name)
	if err != nil {
		return nil, err
	}
	if text = strings.TrimSpace(text); text == "" {
		sym.Context = nil
	} else {
		sym.Context = &text
	}
	if err := a.store.UpdateSymbol(ctx, sym); err != nil {
		return nil, apperror.Storage(op, err)
	}
	return sym, nil
}

// Delete removes a symbol record by name.
func (a *Aggregator) Delete(ctx context.Context, name string) error {
	const op = "symbols.Delete"

	err := a.store.DeleteSymbol(ctx, name)
	if errors.Is(err, storage.ErrNotFound) {
		return apperror.NotFound(op, "symbol "+strings.TrimSpace(name))
	}
	if err != nil {
		return apperror.Storage(op, err)
	}
	a.logger.Info("symbol deleted", zap.String("name", name))
	return nil
}

// Rebuild resets every occurrence count to the number of entries whose
// symbol labels contain that name (case-insensitively). Records no entry
// mentions are removed; names only found in entries are created in the
// default category. Meanings, categories and context are preserved.
func (a *Aggregator) Rebuild(ctx context.Context, entries []storage.Entry) (*RebuildResult, error) {
	const op = "symbols.Rebuild"

	counts := make(map[string]int)
	display := make(map[string]string)
	var order []string
	for _, e := range entries {
		seen := make(map[string]struct{})
		for _, label := range e.Symbols {
			label = strings.TrimSpace(label)
			key := strings.ToLower(label)
			if key == "" {
				continue
			}
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			if _, known := counts[key]; !known {
				display[key] = label
				order = append(order, key)
			}
			counts[key]++
		}
	}

	existing, err := a.store.ListSymbols(ctx, 0)
	if err != nil {
		return nil, apperror.Storage(op, err)
	}

	res := &RebuildResult{}
	for i := range existing {
		sym := existing[i]
		key := strings.ToLower(strings.TrimSpace(sym.Name))
		n := counts[key]
		delete(counts, key)

		if n == 0 {
			if err := a.store.DeleteSymbol(ctx, sym.Name); err != nil {
				return nil, apperror.Storage(op, err)
			}
			res.Removed++
			continue
		}
		if sym.Occurrences != n {
			a.logger.Info("symbol count corrected",
				zap.String("name", sym.Name), zap.Int("was", sym.Occurrences), zap.Int("now", n))
			sym.Occurrences = n
			if err := a.store.UpdateSymbol(ctx, &sym); err != nil {
				return nil, apperror.Storage(op, err)
			}
			res.Updated++
		}
	}

	for _, key := range order {
		n, ok := counts[key]
		if !ok {
			continue
		}
		sym := &storage.Symbol{Name: display[key], Category: DefaultCategory, Occurrences: n, Meanings: []string{}}
		if err := a.store.AddSymbol(ctx, sym); err != nil {
			return nil, apperror.Storage(op, err)
		}
		res.Created++
	}

	return res, nil
}

func (a *Aggregator) lookup(ctx context.Context, op, name string) (*storage.Symbol, error) {
	sym, err := a.store.GetSymbolByName(ctx, name)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, apperror.NotFound(op, "symbol "+strings.TrimSpace(name))
	}
	if err != nil {
		return nil, apperror.Storage(op, err)
	}
	return sym, nil
}

func normalizeCategory(category string) string {
	category = strings.ToLower(strings.TrimSpace(category))
	if category == "" {
		return DefaultCategory
	}
	return category
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
