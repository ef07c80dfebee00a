package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/runnerr0/dreamlog/internal/storage"
)

// statusJSON is the JSON output structure for the status command.
type statusJSON struct {
	Version           string          `json:"version"`
	ConfigPath        string          `json:"config_path,omitempty"`
	DatabasePath      string          `json:"database_path"`
	DatabaseSizeBytes int64           `json:"database_size_bytes"`
	TotalEntries      int64           `json:"total_entries"`
	LucidEntries      int64           `json:"lucid_entries"`
	TotalSymbols      int64           `json:"total_symbols"`
	TotalPatterns     int64           `json:"total_patterns"`
	OldestEntry       string          `json:"oldest_entry,omitempty"`
	NewestEntry       string          `json:"newest_entry,omitempty"`
	Moods             []moodCountJSON `json:"moods"`
	CurrentStreak     int             `json:"current_streak"`
	LongestStreak     int             `json:"longest_streak"`
	AIEnabled         bool            `json:"ai_enabled"`
	AIModel           string          `json:"ai_model,omitempty"`
	Premium           bool            `json:"premium"`
	UsageRemaining    int             `json:"usage_remaining"`
}

type moodCountJSON struct {
	Mood  string `json:"mood"`
	Count int64  `json:"count"`
}

// Execute implements the go-flags Commander interface for StatusCommand.
func (c *StatusCommand) Execute(args []string) error {
	return withEnv(c.globals, func(ctx context.Context, e *env) error {
		return c.executeWithEnv(ctx, e, args)
	})
}

// executeWithEnv runs status against a provided environment (for testing).
func (c *StatusCommand) executeWithEnv(ctx context.Context, e *env, args []string) error {
	now := e.now()

	stats, err := e.store.GetStats(ctx)
	if err != nil {
		return fmt.Errorf("get stats: %w", err)
	}
	if info, err := os.Stat(e.dbPath); err == nil {
		stats.DatabaseSizeBytes = info.Size()
	}

	streaks, err := e.journal.Streak(ctx, now)
	if err != nil {
		return err
	}
	usage, err := e.gate.Status(ctx, now)
	if err != nil {
		return err
	}

	out := statusJSON{
		Version:           c.version,
		ConfigPath:        e.configPath,
		DatabasePath:      e.dbPath,
		DatabaseSizeBytes: stats.DatabaseSizeBytes,
		TotalEntries:      stats.TotalEntries,
		LucidEntries:      stats.FlaggedEntries,
		TotalSymbols:      stats.TotalSymbols,
		TotalPatterns:     stats.TotalPatterns,
		Moods:             make([]moodCountJSON, len(stats.Moods)),
		CurrentStreak:     streaks.Current,
		LongestStreak:     streaks.Longest,
		AIEnabled:         e.cfg.AI.Enabled,
		Premium:           usage.Premium,
		UsageRemaining:    usage.Remaining,
	}
	if e.cfg.AI.Enabled {
		out.AIModel = e.cfg.AI.Model
	}
	if stats.TotalEntries > 0 {
		out.OldestEntry = stats.OldestEntry.UTC().Format(time.RFC3339)
		out.NewestEntry = stats.NewestEntry.UTC().Format(time.RFC3339)
	}
	for i, m := range stats.Moods {
		out.Moods[i] = moodCountJSON{Mood: string(m.Mood), Count: m.Count}
	}

	if c.globals != nil && c.globals.JSON {
		return printJSON(out)
	}
	c.printStatusHuman(out, stats)
	return nil
}

func (c *StatusCommand) printStatusHuman(out statusJSON, stats *storage.Stats) {
	fmt.Println("Dreamlog Status")
	fmt.Println("===============")
	fmt.Printf("Version:       %s\n", out.Version)
	if out.ConfigPath != "" {
		fmt.Printf("Config:        %s\n", out.ConfigPath)
	}
	fmt.Printf("Database:      %s (%s)\n", out.DatabasePath, formatBytes(out.DatabaseSizeBytes))
	fmt.Printf("Entries:       %s\n", formatNumber(out.TotalEntries))

	if out.TotalEntries > 0 {
		pct := float64(out.LucidEntries) / float64(out.TotalEntries) * 100
		fmt.Printf("Lucid:         %s (%.1f%%)\n", formatNumber(out.LucidEntries), pct)
		fmt.Printf("Oldest:        %s\n", stats.OldestEntry.Local().Format("2006-01-02"))
		fmt.Printf("Newest:        %s\n", stats.NewestEntry.Local().Format("2006-01-02"))
	}
	fmt.Printf("Symbols:       %s\n", formatNumber(out.TotalSymbols))
	fmt.Printf("Analyses:      %s\n", formatNumber(out.TotalPatterns))
	fmt.Printf("Streak:        %s (longest %d)\n", plural(out.CurrentStreak, "day"), out.LongestStreak)

	if len(stats.Moods) > 0 {
		fmt.Println()
		fmt.Println("Moods:")
		for _, m := range stats.Moods {
			fmt.Printf("  %-12s %s\n", m.Mood, formatNumber(m.Count))
		}
	}

	fmt.Println()
	if out.AIEnabled {
		fmt.Printf("AI:            enabled (%s)\n", out.AIModel)
	} else {
		fmt.Println("AI:            disabled")
	}
	if out.Premium {
		fmt.Println("Plan:          premium")
	} else {
		fmt.Printf("Plan:          free (%s left this month)\n", plural(out.UsageRemaining, "interpretation"))
	}
}
