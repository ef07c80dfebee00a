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

// Execute implements the go-flags Commander interface for EditCommand.
func (c *EditCommand) Execute(args []string) error {
	return withEnv(c.globals, func(ctx context.Context, e *env) error {
		return c.executeWithEnv(ctx, e, args)
	})
}

func (c *EditCommand) executeWithEnv(ctx context.Context, e *env, args []string) error {
	id := firstArg(c.ID, args)
	if id == "" {
		return apperror.Validation("edit", "--id is required")
	}
	if c.Lucid && c.NotLucid {
		return apperror.Validation("edit", "--lucid and --not-lucid are mutually exclusive")
	}
	if c.ClearTitle && c.Title != "" {
		return apperror.Validation("edit", "--title and --clear-title are mutually exclusive")
	}
	if c.ClearSymbols && len(c.Symbols) > 0 {
		return apperror.Validation("edit", "--symbol and --clear-symbols are mutually exclusive")
	}

	current, err := e.journal.Get(ctx, id)
	if err != nil {
		return err
	}

	draft := draftFromEntry(current)

	switch {
	case c.ClearTitle:
		draft.Title = ""
	case c.Title != "":
		draft.Title = c.Title
	}
	if c.Body != "" || c.BodyFile != "" {
		if draft.Body, err = readBody(c.Body, c.BodyFile, nil, e.stdin); err != nil {
			return err
		}
	}
	if c.Mood != "" {
		draft.Mood = storage.Mood(c.Mood)
	}
	if c.Date != "" {
		if draft.Timestamp, err = parseDate(c.Date, time.Local); err != nil {
			return apperror.Validation("edit", err.Error())
		}
	}
	switch {
	case c.Lucid:
		draft.IsFlagged = true
	case c.NotLucid:
		draft.IsFlagged = false
	}
	switch {
	case c.ClearSymbols:
		draft.Symbols = nil
	case len(c.Symbols) > 0:
		if draft.Symbols, err = parseSymbols(c.Symbols); err != nil {
			return err
		}
	}

	entry, err := e.journal.Update(ctx, id, draft)
	if err != nil {
		return err
	}

	if c.globals != nil && c.globals.JSON {
		return printJSON(toEntryJSON(*entry, true))
	}
	fmt.Printf("Updated entry %s\n", entry.ID)
	fmt.Printf("  Mood: %s\n", entry.Mood)
	if len(entry.Symbols) > 0 {
		fmt.Printf("  Symbols: %s\n", strings.Join(entry.Symbols, ", "))
	}
	return nil
}

// draftFromEntry returns a Draft that would save e unchanged.
func draftFromEntry(e *storage.Entry) journal.Draft {
	d := journal.Draft{
		Title:     e.Title,
		Body:      e.Body,
		Mood:      e.Mood,
		IsFlagged: e.IsFlagged,
	}
	for _, name := range e.Symbols {
		d.Symbols = append(d.Symbols, journal.SymbolNote{Name: name})
	}
	return d
}
