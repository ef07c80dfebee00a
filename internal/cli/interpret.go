package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/runnerr0/dreamlog/internal/apperror"
	"github.com/runnerr0/dreamlog/internal/journal"
	"github.com/runnerr0/dreamlog/internal/storage"
)

type interpretJSON struct {
	ID             string       `json:"id,omitempty"`
	Interpretation string       `json:"interpretation"`
	Symbols        []symbolNote `json:"symbols"`
	Saved          bool         `json:"saved"`
	Remaining      *int         `json:"remaining,omitempty"`
}

type symbolNote struct {
	Name     string `json:"name"`
	Category string `json:"category"`
	Meaning  string `json:"meaning"`
}

// Execute implements the go-flags Commander interface for InterpretCommand.
func (c *InterpretCommand) Execute(args []string) error {
	return withEnv(c.globals, func(ctx context.Context, e *env) error {
		return c.executeWithEnv(ctx, e, args)
	})
}

func (c *InterpretCommand) executeWithEnv(ctx context.Context, e *env, args []string) error {
	if c.Save && c.ID == "" {
		return apperror.Validation("interpret", "--save needs --id")
	}

	var (
		entry *storage.Entry
		body  = strings.Join(args, " ")
		mood  = storage.MoodNeutral
		err   error
	)
	if c.ID != "" {
		if entry, err = e.journal.Get(ctx, c.ID); err != nil {
			return err
		}
		body, mood = entry.Body, entry.Mood
	}
	if strings.TrimSpace(body) == "" {
		return apperror.Validation("interpret", "pass --id or the dream text as arguments")
	}

	summary, detected, remaining, err := interpretText(ctx, e, body, mood)
	if err != nil {
		return err
	}

	if c.Save {
		if err := saveInterpretation(ctx, e, entry, summary, detected); err != nil {
			return err
		}
	}

	if c.globals != nil && c.globals.JSON {
		out := interpretJSON{
			ID:             c.ID,
			Interpretation: summary,
			Symbols:        make([]symbolNote, len(detected)),
			Saved:          c.Save,
			Remaining:      remaining,
		}
		for i, n := range detected {
			out.Symbols[i] = symbolNote{Name: n.Name, Category: n.Category, Meaning: n.Meaning}
		}
		return printJSON(out)
	}

	fmt.Println(summary)
	if len(detected) > 0 {
		fmt.Println()
		fmt.Println("DETECTED SYMBOLS:")
		for _, n := range detected {
			fmt.Printf("  %s (%s): %s\n", n.Name, n.Category, n.Meaning)
		}
	}
	if c.Save {
		fmt.Printf("\nSaved to entry %s\n", entry.ID)
	}
	if remaining != nil {
		fmt.Printf("\n%s remaining this month\n", plural(*remaining, "free interpretation"))
	}
	return nil
}

// saveInterpretation stores the summary on entry and adds any detected
// symbols the entry does not carry yet.
func saveInterpretation(ctx context.Context, e *env, entry *storage.Entry, summary string, detected []journal.SymbolNote) error {
	known := make(map[string]struct{}, len(entry.Symbols))
	for _, name := range entry.Symbols {
		known[strings.ToLower(name)] = struct{}{}
	}
	var added []journal.SymbolNote
	for _, n := range detected {
		if _, ok := known[strings.ToLower(n.Name)]; !ok {
			added = append(added, n)
		}
	}

	if len(added) == 0 {
		_, err := e.journal.SetSummary(ctx, entry.ID, summary)
		return err
	}

	draft := draftFromEntry(entry)
	draft.Symbols = append(draft.Symbols, added...)
	draft.AISummary = &summary
	_, err := e.journal.Update(ctx, entry.ID, draft)
	return err
}
