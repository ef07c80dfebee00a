package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/runnerr0/dreamlog/internal/apperror"
	"github.com/runnerr0/dreamlog/internal/share"
	"github.com/runnerr0/dreamlog/internal/storage"
)

// Execute implements the go-flags Commander interface for ShowCommand.
func (c *ShowCommand) Execute(args []string) error {
	return withEnv(c.globals, func(ctx context.Context, e *env) error {
		return c.executeWithEnv(ctx, e, args)
	})
}

func (c *ShowCommand) executeWithEnv(ctx context.Context, e *env, args []string) error {
	id := firstArg(c.ID, args)
	if id == "" {
		return apperror.Validation("show", "--id is required")
	}

	entry, err := e.journal.Get(ctx, id)
	if err != nil {
		return err
	}

	if c.Share {
		fmt.Print(share.Text(*entry, share.Options{IncludeSummary: c.WithSummary, Location: time.Local}))
		return nil
	}

	if c.globals != nil && c.globals.JSON {
		return printJSON(toEntryJSON(*entry, true))
	}

	switch c.Format {
	case "raw":
		fmt.Println(entry.Body)
	case "json":
		return printJSON(toEntryJSON(*entry, true))
	case "md", "":
		outputMarkdown(entry)
	default:
		return apperror.Validation("show", fmt.Sprintf("unknown format %q (use md, raw or json)", c.Format))
	}
	return nil
}

func outputMarkdown(e *storage.Entry) {
	fmt.Println("---")
	fmt.Printf("id: %s\n", e.ID)
	if e.Title != "" {
		fmt.Printf("title: %s\n", e.Title)
	}
	fmt.Printf("date: %s\n", e.Timestamp.UTC().Format(time.RFC3339))
	fmt.Printf("mood: %s\n", e.Mood)
	fmt.Printf("lucid: %t\n", e.IsFlagged)
	if len(e.Symbols) > 0 {
		fmt.Printf("symbols: [%s]\n", strings.Join(e.Symbols, ", "))
	}
	fmt.Println("---")
	fmt.Println()
	fmt.Println(e.Body)
	if e.AISummary != nil && *e.AISummary != "" {
		fmt.Println()
		fmt.Println("## Interpretation")
		fmt.Println()
		fmt.Println(*e.AISummary)
	}
}
