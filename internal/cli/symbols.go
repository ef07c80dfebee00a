package cli

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/runnerr0/dreamlog/internal/apperror"
	"github.com/runnerr0/dreamlog/internal/storage"
)

// symbolJSON is the JSON form of a symbol record.
type symbolJSON struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Category    string   `json:"category"`
	Occurrences int      `json:"occurrences"`
	Meanings    []string `json:"meanings"`
	Context     *string  `json:"context,omitempty"`
	CreatedAt   string   `json:"created_at"`
}

func toSymbolJSON(s storage.Symbol) symbolJSON {
	meanings := s.Meanings
	if meanings == nil {
		meanings = []string{}
	}
	return symbolJSON{
		ID:          s.ID,
		Name:        s.Name,
		Category:    s.Category,
		Occurrences: s.Occurrences,
		Meanings:    meanings,
		Context:     s.Context,
		CreatedAt:   s.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func printSymbolsJSON(syms []storage.Symbol) error {
	out := make([]symbolJSON, len(syms))
	for i, s := range syms {
		out[i] = toSymbolJSON(s)
	}
	return printJSON(map[string]interface{}{"count": len(out), "symbols": out})
}

func printSymbolTable(syms []storage.Symbol) {
	for i, s := range syms {
		fmt.Printf("%2d. %-24s %-12s %s\n", i+1, s.Name, s.Category, plural(s.Occurrences, "time"))
	}
}

// Execute implements the go-flags Commander interface for SymbolsTopCommand.
func (c *SymbolsTopCommand) Execute(args []string) error {
	return withEnv(c.globals, func(ctx context.Context, e *env) error {
		return c.executeWithEnv(ctx, e, args)
	})
}

func (c *SymbolsTopCommand) executeWithEnv(ctx context.Context, e *env, args []string) error {
	var (
		syms []storage.Symbol
		err  error
	)
	if c.Category != "" {
		syms, err = e.symbols.ByCategory(ctx, c.Category)
		if err == nil && c.Limit > 0 && len(syms) > c.Limit {
			syms = syms[:c.Limit]
		}
	} else {
		syms, err = e.symbols.TopByFrequency(ctx, c.Limit)
	}
	if err != nil {
		return err
	}

	if c.globals != nil && c.globals.JSON {
		return printSymbolsJSON(syms)
	}
	if len(syms) == 0 {
		fmt.Println("No symbols recorded yet")
		return nil
	}
	printSymbolTable(syms)
	return nil
}

// Execute implements the go-flags Commander interface for SymbolsCategoriesCommand.
func (c *SymbolsCategoriesCommand) Execute(args []string) error {
	return withEnv(c.globals, func(ctx context.Context, e *env) error {
		return c.executeWithEnv(ctx, e, args)
	})
}

func (c *SymbolsCategoriesCommand) executeWithEnv(ctx context.Context, e *env, args []string) error {
	breakdown, err := e.symbols.CategoryBreakdown(ctx)
	if err != nil {
		return err
	}

	names := make([]string, 0, len(breakdown))
	for name := range breakdown {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if breakdown[names[i]] != breakdown[names[j]] {
			return breakdown[names[i]] > breakdown[names[j]]
		}
		return names[i] < names[j]
	})

	if c.globals != nil && c.globals.JSON {
		return printJSON(breakdown)
	}
	if len(names) == 0 {
		fmt.Println("No symbols recorded yet")
		return nil
	}
	for _, name := range names {
		fmt.Printf("  %-16s %s\n", name, plural(breakdown[name], "symbol"))
	}
	return nil
}

// Execute implements the go-flags Commander interface for SymbolsStatsCommand.
func (c *SymbolsStatsCommand) Execute(args []string) error {
	return withEnv(c.globals, func(ctx context.Context, e *env) error {
		return c.executeWithEnv(ctx, e, args)
	})
}

func (c *SymbolsStatsCommand) executeWithEnv(ctx context.Context, e *env, args []string) error {
	st, err := e.symbols.Statistics(ctx)
	if err != nil {
		return err
	}

	if c.globals != nil && c.globals.JSON {
		return printJSON(st)
	}
	fmt.Printf("Symbols:       %d\n", st.TotalSymbols)
	fmt.Printf("Categories:    %d\n", st.TotalCategories)
	fmt.Printf("Occurrences:   %d\n", st.TotalOccurrences)
	if st.MostCommon != nil {
		fmt.Printf("Most common:   %s (%s)\n", st.MostCommon.Name, plural(st.MostCommon.Occurrences, "time"))
		fmt.Printf("Average:       %.1f per symbol\n", st.AverageFrequency)
	}
	return nil
}

// Execute implements the go-flags Commander interface for SymbolsShowCommand.
func (c *SymbolsShowCommand) Execute(args []string) error {
	return withEnv(c.globals, func(ctx context.Context, e *env) error {
		return c.executeWithEnv(ctx, e, args)
	})
}

func (c *SymbolsShowCommand) executeWithEnv(ctx context.Context, e *env, args []string) error {
	name := c.Name
	if name == "" {
		name = strings.Join(args, " ")
	}
	if strings.TrimSpace(name) == "" {
		return apperror.Validation("symbols show", "a symbol name is required")
	}

	var (
		sym *storage.Symbol
		err error
	)
	if c.Context != "" {
		sym, err = e.symbols.SetContext(ctx, name, c.Context)
	} else {
		sym, err = e.symbols.Get(ctx, name)
	}
	if err != nil {
		return err
	}

	if c.globals != nil && c.globals.JSON {
		return printJSON(toSymbolJSON(*sym))
	}
	fmt.Printf("%s\n", sym.Name)
	fmt.Printf("  Category:    %s\n", sym.Category)
	fmt.Printf("  Seen:        %s\n", plural(sym.Occurrences, "time"))
	fmt.Printf("  First seen:  %s\n", sym.CreatedAt.Local().Format("2006-01-02"))
	if len(sym.Meanings) > 0 {
		fmt.Println("  Meanings:")
		for _, m := range sym.Meanings {
			fmt.Printf("    - %s\n", m)
		}
	}
	if sym.Context != nil {
		fmt.Printf("  Context:     %s\n", *sym.Context)
	}
	return nil
}

// Execute implements the go-flags Commander interface for SymbolsSearchCommand.
func (c *SymbolsSearchCommand) Execute(args []string) error {
	return withEnv(c.globals, func(ctx context.Context, e *env) error {
		return c.executeWithEnv(ctx, e, args)
	})
}

func (c *SymbolsSearchCommand) executeWithEnv(ctx context.Context, e *env, args []string) error {
	keyword := strings.Join(args, " ")
	syms, err := e.symbols.Search(ctx, keyword)
	if err != nil {
		return err
	}

	if c.globals != nil && c.globals.JSON {
		return printSymbolsJSON(syms)
	}
	if len(syms) == 0 {
		fmt.Printf("No symbols match %q\n", keyword)
		return nil
	}
	printSymbolTable(syms)
	return nil
}

// Execute implements the go-flags Commander interface for SymbolsDeleteCommand.
func (c *SymbolsDeleteCommand) Execute(args []string) error {
	return withEnv(c.globals, func(ctx context.Context, e *env) error {
		return c.executeWithEnv(ctx, e, args)
	})
}

func (c *SymbolsDeleteCommand) executeWithEnv(ctx context.Context, e *env, args []string) error {
	name := c.Name
	if name == "" {
		name = strings.Join(args, " ")
	}
	if strings.TrimSpace(name) == "" {
		return apperror.Validation("symbols delete", "a symbol name is required")
	}

	if err := e.symbols.Delete(ctx, name); err != nil {
		return err
	}
	if c.globals != nil && c.globals.JSON {
		return printJSON(map[string]interface{}{"deleted": true, "name": name})
	}
	fmt.Printf("Deleted symbol %s\n", name)
	return nil
}

// Execute implements the go-flags Commander interface for SymbolsRebuildCommand.
func (c *SymbolsRebuildCommand) Execute(args []string) error {
	return withEnv(c.globals, func(ctx context.Context, e *env) error {
		return c.executeWithEnv(ctx, e, args)
	})
}

func (c *SymbolsRebuildCommand) executeWithEnv(ctx context.Context, e *env, args []string) error {
	entries, err := e.journal.List(ctx, storage.EntryQuery{Sort: storage.SortDateAsc})
	if err != nil {
		return err
	}
	res, err := e.symbols.Rebuild(ctx, entries)
	if err != nil {
		return err
	}

	if c.globals != nil && c.globals.JSON {
		return printJSON(res)
	}
	fmt.Printf("Rebuilt symbol counts from %d entries\n", len(entries))
	fmt.Printf("  Updated: %d\n  Created: %d\n  Removed: %d\n", res.Updated, res.Created, res.Removed)
	return nil
}
