package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/runnerr0/dreamlog/internal/apperror"
	"github.com/runnerr0/dreamlog/internal/storage"
)

// Execute implements the go-flags Commander interface for ListCommand.
func (c *ListCommand) Execute(args []string) error {
	return withEnv(c.globals, func(ctx context.Context, e *env) error {
		return c.executeWithEnv(ctx, e, args)
	})
}

// executeWithEnv runs the listing against a provided environment (for testing).
func (c *ListCommand) executeWithEnv(ctx context.Context, e *env, args []string) error {
	now := e.now()
	q, err := buildQuery(now, c.Since, c.Until, c.Mood, c.Lucid, c.Limit, c.Offset)
	if err != nil {
		return err
	}
	if q.Sort, err = parseSort(c.Sort); err != nil {
		return apperror.Validation("list", err.Error())
	}
	if c.Month != "" {
		month, err := parseMonth(c.Month, now.Location())
		if err != nil {
			return apperror.Validation("list", err.Error())
		}
		q.Since, q.Until = month, month.AddDate(0, 1, 0)
	}

	results, err := e.journal.List(ctx, q)
	if err != nil {
		return err
	}

	if c.globals != nil && c.globals.JSON {
		return printResultsJSON("", results)
	}
	if len(results) == 0 {
		fmt.Println("No entries found")
		return nil
	}
	printEntries(results, c.Offset)
	return nil
}

// Execute implements the go-flags Commander interface for SearchCommand.
func (c *SearchCommand) Execute(args []string) error {
	return withEnv(c.globals, func(ctx context.Context, e *env) error {
		return c.executeWithEnv(ctx, e, args)
	})
}

// executeWithEnv runs the search against a provided environment (for testing).
func (c *SearchCommand) executeWithEnv(ctx context.Context, e *env, args []string) error {
	query := c.Query
	if query == "" && len(args) > 0 {
		query = strings.Join(args, " ")
	}
	if strings.TrimSpace(query) == "" {
		return apperror.Validation("search", "a search text is required")
	}

	q, err := buildQuery(e.now(), c.Since, c.Until, c.Mood, c.Lucid, c.Limit, c.Offset)
	if err != nil {
		return err
	}
	q.Query = query
	q.Sort = storage.SortDateDesc

	results, err := e.journal.List(ctx, q)
	if err != nil {
		return err
	}

	if c.globals != nil && c.globals.JSON {
		return printResultsJSON(query, results)
	}

	if len(results) == 0 {
		fmt.Printf("No results found for %q\n", query)
		return nil
	}

	resultWord := "results"
	if len(results) == 1 {
		resultWord = "result"
	}
	fmt.Printf("Found %d %s for %q\n\n", len(results), resultWord, query)
	printEntries(results, c.Offset)
	return nil
}

// buildQuery turns the shared filter flags into an EntryQuery.
func buildQuery(now time.Time, since, until, mood string, lucid bool, limit, offset int) (storage.EntryQuery, error) {
	q := storage.EntryQuery{FlaggedOnly: lucid, Limit: limit, Offset: offset}

	if since != "" {
		dur, err := parseDuration(since)
		if err != nil {
			return q, apperror.Validation("query", fmt.Sprintf("invalid --since value %q: %v", since, err))
		}
		q.Since = now.Add(-dur)
	}
	if until != "" {
		dur, err := parseDuration(until)
		if err != nil {
			return q, apperror.Validation("query", fmt.Sprintf("invalid --until value %q: %v", until, err))
		}
		q.Until = now.Add(-dur)
	}

	m, err := parseMoodFilter(mood)
	if err != nil {
		return q, apperror.Validation("query", err.Error())
	}
	q.Mood = m
	return q, nil
}

func printEntries(results []storage.Entry, offset int) {
	for i, e := range results {
		fmt.Printf("%d. %s\n", i+1+offset, displayTitle(e))

		meta := e.Timestamp.Local().Format("2006-01-02 15:04") + " · " + string(e.Mood)
		if e.IsFlagged {
			meta += " · lucid"
		}
		fmt.Printf("   %s\n", meta)
		if len(e.Symbols) > 0 {
			fmt.Printf("   symbols: %s\n", strings.Join(e.Symbols, ", "))
		}
		fmt.Printf("   id: %s\n", e.ID)

		if i < len(results)-1 {
			fmt.Println()
		}
	}
}

type jsonSearchOutput struct {
	Count   int         `json:"count"`
	Query   string      `json:"query,omitempty"`
	Results []entryJSON `json:"results"`
}

func printResultsJSON(query string, results []storage.Entry) error {
	out := jsonSearchOutput{
		Count:   len(results),
		Query:   query,
		Results: make([]entryJSON, len(results)),
	}
	for i, e := range results {
		out.Results[i] = toEntryJSON(e, false)
	}
	return printJSON(out)
}
