package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/runnerr0/dreamlog/internal/apperror"
	"github.com/runnerr0/dreamlog/internal/storage"
)

type patternJSON struct {
	ID               string   `json:"id"`
	RecurringSymbols []string `json:"recurring_symbols"`
	Trends           []string `json:"trends"`
	Recommendations  []string `json:"recommendations"`
	ComputedAt       string   `json:"computed_at"`
}

type insightsJSON struct {
	Pattern         *patternJSON    `json:"pattern,omitempty"`
	Recommendations []string        `json:"recommendations,omitempty"`
	Month           string          `json:"month"`
	Moods           []moodCountJSON `json:"moods"`
	TopSymbols      []symbolJSON    `json:"top_symbols"`
}

// Execute implements the go-flags Commander interface for InsightsCommand.
func (c *InsightsCommand) Execute(args []string) error {
	return withEnv(c.globals, func(ctx context.Context, e *env) error {
		return c.executeWithEnv(ctx, e, args)
	})
}

func (c *InsightsCommand) executeWithEnv(ctx context.Context, e *env, args []string) error {
	now := e.now()
	month := now
	if c.Month != "" {
		m, err := parseMonth(c.Month, now.Location())
		if err != nil {
			return apperror.Validation("insights", err.Error())
		}
		month = m
	}

	var pattern *storage.Pattern
	if c.Refresh {
		p, err := c.refresh(ctx, e)
		if err != nil {
			return err
		}
		pattern = p
	} else {
		p, err := e.store.LatestPattern(ctx)
		switch {
		case errors.Is(err, storage.ErrNotFound):
		case err != nil:
			return apperror.Storage("insights", err)
		default:
			pattern = p
		}
	}

	var recs []string
	if c.Recommend {
		if pattern == nil {
			return apperror.Validation("insights", "no pattern summary yet; run 'dreamlog insights --refresh' first")
		}
		r, err := e.analyzer.Recommendations(ctx, *pattern)
		if err != nil {
			return err
		}
		recs = r
	}

	moods, err := e.journal.MonthlyMoodBreakdown(ctx, month)
	if err != nil {
		return err
	}
	top, err := e.symbols.TopByFrequency(ctx, 5)
	if err != nil {
		return err
	}

	if c.globals != nil && c.globals.JSON {
		out := insightsJSON{
			Recommendations: recs,
			Month:           month.Format("2006-01"),
			Moods:           make([]moodCountJSON, len(moods)),
			TopSymbols:      make([]symbolJSON, len(top)),
		}
		if pattern != nil {
			out.Pattern = &patternJSON{
				ID:               pattern.ID,
				RecurringSymbols: pattern.RecurringSymbols,
				Trends:           pattern.Trends,
				Recommendations:  pattern.Recommendations,
				ComputedAt:       pattern.ComputedAt.UTC().Format(time.RFC3339),
			}
		}
		for i, m := range moods {
			out.Moods[i] = moodCountJSON{Mood: string(m.Mood), Count: m.Count}
		}
		for i, s := range top {
			out.TopSymbols[i] = toSymbolJSON(s)
		}
		return printJSON(out)
	}

	if pattern == nil {
		fmt.Println("No pattern summary yet. Run 'dreamlog insights --refresh' to analyze your dreams.")
	} else {
		fmt.Printf("Dream patterns (analyzed %s)\n", pattern.ComputedAt.Local().Format("2006-01-02 15:04"))
		if len(pattern.RecurringSymbols) > 0 {
			fmt.Printf("  Recurring symbols: %s\n", strings.Join(pattern.RecurringSymbols, ", "))
		}
		printList("Emotional trends", pattern.Trends)
		printList("Recommendations", pattern.Recommendations)
	}
	if len(recs) > 0 {
		fmt.Println()
		printList("Personal recommendations", recs)
	}

	fmt.Println()
	fmt.Printf("Moods in %s:\n", month.Format("January 2006"))
	for _, m := range moods {
		fmt.Printf("  %-12s %d\n", m.Mood, m.Count)
	}

	if len(top) > 0 {
		fmt.Println()
		fmt.Println("Top symbols:")
		printSymbolTable(top)
	}
	return nil
}

// refresh analyzes the most recent entries and replaces the stored summary.
func (c *InsightsCommand) refresh(ctx context.Context, e *env) (*storage.Pattern, error) {
	total, err := e.journal.Count(ctx)
	if err != nil {
		return nil, err
	}
	recent, err := e.journal.Recent(ctx, e.cfg.AI.MaxEntries)
	if err != nil {
		return nil, err
	}
	p, err := e.analyzer.FindPatterns(ctx, recent, total)
	if err != nil {
		return nil, err
	}
	if err := e.store.ReplacePattern(ctx, p); err != nil {
		return nil, apperror.Storage("insights", err)
	}
	return p, nil
}

func printList(heading string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Printf("  %s:\n", heading)
	for _, it := range items {
		fmt.Printf("    - %s\n", it)
	}
}
