// Package journal is the entry service: validated create, edit and delete of
// dream entries plus the read views built on top of the store.
package journal

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/runnerr0/dreamlog/internal/apperror"
	"github.com/runnerr0/dreamlog/internal/storage"
	"github.com/runnerr0/dreamlog/internal/streak"
)

// Store is the persistence surface the service needs.
type Store interface {
	AddEntry(ctx context.Context, e *storage.Entry) error
	GetEntry(ctx context.Context, id string) (*storage.Entry, error)
	UpdateEntry(ctx context.Context, e *storage.Entry) error
	DeleteEntry(ctx context.Context, id string) error
	ListEntries(ctx context.Context, q storage.EntryQuery) ([]storage.Entry, error)
	RecentEntries(ctx context.Context, limit int) ([]storage.Entry, error)
	CountEntries(ctx context.Context) (int64, error)
	EntryTimestamps(ctx context.Context) ([]time.Time, error)
	MoodCounts(ctx context.Context, since, until time.Time) ([]storage.MoodCount, error)
	RecordAudit(ctx context.Context, action, detail, entryID string) error
}

// SymbolRecorder receives one call per symbol sighting.
type SymbolRecorder interface {
	RecordOccurrence(ctx context.Context, name, category, meaning string) (*storage.Symbol, error)
}

// SymbolNote is a symbol detected in an entry, with the category and
// meaning to record for it.
type SymbolNote struct {
	Name     string
	Category string
	Meaning  string
}

// Draft carries user input for creating or editing an entry.
type Draft struct {
	Timestamp time.Time
	Title     string
	Body      string
	Mood      storage.Mood
	Symbols   []SymbolNote
	AISummary *string
	IsFlagged bool
}

// Service implements the entry operations.
type Service struct {
	store   Store
	symbols SymbolRecorder
	logger  *zap.Logger
}

// New creates a Service. A nil logger disables logging.
func New(store Store, symbols SymbolRecorder, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, symbols: symbols, logger: logger}
}

// Create validates and stores a new entry, then records each of its
// symbols. The entry is kept even if a symbol fails to record; the entry is
// then returned together with a storage error.
func (s *Service) Create(ctx context.Context, d Draft) (*storage.Entry, error) {
	const op = "journal.Create"

	mood, err := validate(op, d)
	if err != nil {
		return nil, err
	}

	e := &storage.Entry{
		Timestamp: d.Timestamp,
		Title:     strings.TrimSpace(d.Title),
		Body:      strings.TrimSpace(d.Body),
		Mood:      mood,
		Symbols:   symbolNames(d.Symbols),
		AISummary: d.AISummary,
		IsFlagged: d.IsFlagged,
	}
	if err := s.store.AddEntry(ctx, e); err != nil {
		return nil, apperror.Storage(op, err)
	}

	s.logger.Info("entry created",
		zap.String("id", e.ID), zap.String("mood", string(e.Mood)), zap.Int("symbols", len(e.Symbols)))
	if err := s.recordSymbols(ctx, op, e.ID, d.Symbols, nil); err != nil {
		return e, err
	}
	return e, nil
}

// Update replaces an entry's content. Only symbols that were not already on
// the entry are recorded, so re-saving an unchanged entry leaves the
// counts alone. A zero Draft.Timestamp keeps the original time and a nil
// AISummary keeps the stored summary.
func (s *Service) Update(ctx context.Context, id string, d Draft) (*storage.Entry, error) {
	const op = "journal.Update"

	mood, err := validate(op, d)
	if err != nil {
		return nil, err
	}

	e, err := s.get(ctx, op, id)
	if err != nil {
		return nil, err
	}

	previous := make(map[string]struct{}, len(e.Symbols))
	for _, name := range e.Symbols {
		previous[strings.ToLower(name)] = struct{}{}
	}

	if !d.Timestamp.IsZero() {
		e.Timestamp = d.Timestamp
	}
	e.Title = strings.TrimSpace(d.Title)
	e.Body = strings.TrimSpace(d.Body)
	e.Mood = mood
	e.Symbols = symbolNames(d.Symbols)
	e.IsFlagged = d.IsFlagged
	if d.AISummary != nil {
		e.AISummary = d.AISummary
	}

	if err := s.store.UpdateEntry(ctx, e); err != nil {
		return nil, apperror.Storage(op, err)
	}

	s.logger.Info("entry updated", zap.String("id", e.ID))
	if err := s.recordSymbols(ctx, op, e.ID, d.Symbols, previous); err != nil {
		return e, err
	}
	return e, nil
}

// SetSummary stores an AI interpretation on an existing entry.
func (s *Service) SetSummary(ctx context.Context, id, summary string) (*storage.Entry, error) {
	const op = "journal.SetSummary"

	e, err := s.get(ctx, op, id)
	if err != nil {
		return nil, err
	}
	summary = strings.TrimSpace(summary)
	e.AISummary = &summary
	if err := s.store.UpdateEntry(ctx, e); err != nil {
		return nil, apperror.Storage(op, err)
	}
	return e, nil
}

// Delete removes an entry. Symbol occurrence counts are not decremented;
// the drift is logged and can be corrected with a symbol rebuild.
func (s *Service) Delete(ctx context.Context, id string) error {
	const op = "journal.Delete"

	e, err := s.get(ctx, op, id)
	if err != nil {
		return err
	}
	if err := s.store.DeleteEntry(ctx, id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return apperror.NotFound(op, "entry "+id)
		}
		return apperror.Storage(op, err)
	}

	if len(e.Symbols) > 0 {
		s.logger.Warn("entry deleted; symbol counts not decremented",
			zap.String("id", id), zap.Strings("symbols", e.Symbols))
	}
	if err := s.store.RecordAudit(ctx, "delete", fmt.Sprintf("entry %q deleted", e.Title), id); err != nil {
		s.logger.Warn("audit record failed", zap.String("id", id), zap.Error(err))
	}
	return nil
}

// Get returns one entry.
func (s *Service) Get(ctx context.Context, id string) (*storage.Entry, error) {
	return s.get(ctx, "journal.Get", id)
}

// List runs an arbitrary entry query.
func (s *Service) List(ctx context.Context, q storage.EntryQuery) ([]storage.Entry, error) {
	entries, err := s.store.ListEntries(ctx, q)
	if err != nil {
		return nil, apperror.Storage("journal.List", err)
	}
	return entries, nil
}

// Search returns entries whose title or body contains keyword, newest first.
func (s *Service) Search(ctx context.Context, keyword string) ([]storage.Entry, error) {
	return s.List(ctx, storage.EntryQuery{Query: keyword, Sort: storage.SortDateDesc})
}

// ByMood returns entries with the given mood, newest first.
func (s *Service) ByMood(ctx context.Context, mood storage.Mood) ([]storage.Entry, error) {
	return s.List(ctx, storage.EntryQuery{Mood: mood, Sort: storage.SortDateDesc})
}

// ForMonth returns the entries of the calendar month containing month, in
// month's location, newest first.
func (s *Service) ForMonth(ctx context.Context, month time.Time) ([]storage.Entry, error) {
	start, end := monthBounds(month)
	return s.List(ctx, storage.EntryQuery{Since: start, Until: end, Sort: storage.SortDateDesc})
}

// Recent returns the newest entries.
func (s *Service) Recent(ctx context.Context, limit int) ([]storage.Entry, error) {
	entries, err := s.store.RecentEntries(ctx, limit)
	if err != nil {
		return nil, apperror.Storage("journal.Recent", err)
	}
	return entries, nil
}

// Count returns the number of stored entries.
func (s *Service) Count(ctx context.Context) (int, error) {
	n, err := s.store.CountEntries(ctx)
	if err != nil {
		return 0, apperror.Storage("journal.Count", err)
	}
	return int(n), nil
}

// Streak computes the current and longest streaks, with calendar days taken
// in now's location.
func (s *Service) Streak(ctx context.Context, now time.Time) (streak.Result, error) {
	ts, err := s.store.EntryTimestamps(ctx)
	if err != nil {
		return streak.Result{}, apperror.Storage("journal.Streak", err)
	}
	return streak.Calculate(ts, now), nil
}

// MonthlyMoodBreakdown counts entries per mood for the month containing
// month. Every mood is present, in display order, even when zero.
func (s *Service) MonthlyMoodBreakdown(ctx context.Context, month time.Time) ([]storage.MoodCount, error) {
	start, end := monthBounds(month)
	counts, err := s.store.MoodCounts(ctx, start, end)
	if err != nil {
		return nil, apperror.Storage("journal.MonthlyMoodBreakdown", err)
	}

	byMood := make(map[storage.Mood]int64, len(counts))
	for _, c := range counts {
		byMood[c.Mood] = c.Count
	}
	out := make([]storage.MoodCount, 0, len(storage.Moods))
	for _, m := range storage.Moods {
		out = append(out, storage.MoodCount{Mood: m, Count: byMood[m]})
	}
	return out, nil
}

// AppendTranscript joins a voice transcript onto existing text, separated by
// a blank line.
func AppendTranscript(body, transcript string) string {
	body = strings.TrimRight(body, " \t\r\n")
	transcript = strings.TrimSpace(transcript)
	switch {
	case transcript == "":
		return body
	case body == "":
		return transcript
	default:
		return body + "\n\n" + transcript
	}
}

func (s *Service) get(ctx context.Context, op, id string) (*storage.Entry, error) {
	e, err := s.store.GetEntry(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, apperror.NotFound(op, "entry "+id)
	}
	if err != nil {
		return nil, apperror.Storage(op, err)
	}
	return e, nil
}

// recordSymbols feeds each distinct note to the aggregator, skipping names
// in skip. Every note is attempted; the first failure is returned as a
// storage error naming the saved entry.
func (s *Service) recordSymbols(ctx context.Context, op, entryID string, notes []SymbolNote, skip map[string]struct{}) error {
	if s.symbols == nil {
		return nil
	}
	var failed error
	seen := make(map[string]struct{}, len(notes))
	for _, n := range notes {
		key := strings.ToLower(strings.TrimSpace(n.Name))
		if key == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		if _, ok := skip[key]; ok {
			continue
		}
		if _, err := s.symbols.RecordOccurrence(ctx, n.Name, n.Category, n.Meaning); err != nil {
			s.logger.Warn("symbol not recorded",
				zap.String("entry", entryID), zap.String("symbol", n.Name), zap.Error(err))
			if failed == nil {
				failed = err
			}
		}
	}
	if failed == nil {
		return nil
	}
	return &apperror.Error{
		Kind:       apperror.KindStorage,
		Op:         op,
		Title:      "Symbols Not Recorded",
		Message:    fmt.Sprintf("entry %s was saved but its symbol counts were not updated", entryID),
		Suggestion: "Run `dreamlog symbols rebuild` to recount symbols from the journal.",
		Retryable:  true,
		Err:        failed,
	}
}

// validate checks a draft and returns its normalized mood.
func validate(op string, d Draft) (storage.Mood, error) {
	if strings.TrimSpace(d.Body) == "" {
		return "", apperror.Validation(op, "entry body must not be empty")
	}
	mood, err := storage.ParseMood(string(d.Mood))
	if err != nil {
		return "", apperror.Validation(op, err.Error())
	}
	return mood, nil
}

// symbolNames returns the trimmed, case-insensitively distinct names in
// first-seen order.
func symbolNames(notes []SymbolNote) []string {
	names := []string{}
	seen := make(map[string]struct{}, len(notes))
	for _, n := range notes {
		name := strings.TrimSpace(n.Name)
		key := strings.ToLower(name)
		if key == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		names = append(names, name)
	}
	return names
}

func monthBounds(t time.Time) (time.Time, time.Time) {
	start := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
	return start, start.AddDate(0, 1, 0)
}
