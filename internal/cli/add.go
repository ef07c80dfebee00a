package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/runnerr0/dreamlog/internal/apperror"
	"github.com/runnerr0/dreamlog/internal/journal"
	"github.com/runnerr0/dreamlog/internal/storage"
)

// Execute implements the go-flags Commander interface for AddCommand.
func (c *AddCommand) Execute(args []string) error {
	return withEnv(c.globals, func(ctx context.Context, e *env) error {
		return c.executeWithEnv(ctx, e, args)
	})
}

// executeWithEnv runs the add logic against a provided environment (used by tests).
func (c *AddCommand) executeWithEnv(ctx context.Context, e *env, args []string) error {
	body, err := readBody(c.Body, c.BodyFile, args, e.stdin)
	if err != nil {
		return err
	}
	if strings.TrimSpace(body) == "" {
		return apperror.Validation("add", "the dream text is empty; pass it with --body, --body-file or as arguments")
	}

	notes, err := parseSymbols(c.Symbols)
	if err != nil {
		return err
	}

	draft := journal.Draft{
		Title:     c.Title,
		Body:      body,
		Symbols:   notes,
		IsFlagged: c.Lucid,
	}
	if c.Date != "" {
		if draft.Timestamp, err = parseDate(c.Date, time.Local); err != nil {
			return apperror.Validation("add", err.Error())
		}
	}
	mood, err := storage.ParseMood(c.Mood)
	if err != nil {
		return apperror.Validation("add", err.Error())
	}
	draft.Mood = mood

	var remaining *int
	if c.Interpret {
		summary, detected, left, err := interpretText(ctx, e, body, mood)
		if err != nil {
			return err
		}
		draft.AISummary = &summary
		draft.Symbols = append(draft.Symbols, detected...)
		remaining = left
	}

	entry, err := e.journal.Create(ctx, draft)
	if err != nil {
		return err
	}

	if c.globals != nil && c.globals.JSON {
		return printJSON(toEntryJSON(*entry, true))
	}

	fmt.Printf("Added entry %s (%s)\n", entry.ID, entry.Timestamp.Local().Format("2006-01-02 15:04"))
	if entry.Title != "" {
		fmt.Printf("  Title: %s\n", entry.Title)
	}
	fmt.Printf("  Mood: %s\n", entry.Mood)
	if entry.IsFlagged {
		fmt.Println("  Lucid: yes")
	}
	if len(entry.Symbols) > 0 {
		fmt.Printf("  Symbols: %s\n", strings.Join(entry.Symbols, ", "))
	}
	if entry.AISummary != nil {
		fmt.Printf("\n%s\n", *entry.AISummary)
	}
	if remaining != nil {
		fmt.Printf("\n%s remaining this month\n", plural(*remaining, "free interpretation"))
	}
	return nil
}

// interpretText runs a gated interpretation plus symbol extraction and
// counts one use on success. The returned remaining count is nil for
// premium users.
func interpretText(ctx context.Context, e *env, body string, mood storage.Mood) (string, []journal.SymbolNote, *int, error) {
	now := e.now()
	if err := e.gate.Check(ctx, now); err != nil {
		return "", nil, nil, err
	}

	in, err := e.analyzer.Interpret(ctx, body, mood)
	if err != nil {
		return "", nil, nil, err
	}
	extracted, err := e.analyzer.ExtractSymbols(ctx, body)
	if err != nil {
		return "", nil, nil, err
	}

	if err := e.gate.Record(ctx, now); err != nil {
		return "", nil, nil, err
	}

	notes := make([]journal.SymbolNote, 0, len(extracted))
	for _, s := range extracted {
		notes = append(notes, journal.SymbolNote{Name: s.Name, Category: s.Category, Meaning: s.Meaning})
	}

	st, err := e.gate.Status(ctx, now)
	if err != nil {
		return "", nil, nil, err
	}
	var left *int
	if !st.Premium {
		left = &st.Remaining
	}
	return in.Text(), notes, left, nil
}
