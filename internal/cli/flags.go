package cli

import (
	"io"

	"github.com/runnerr0/dreamlog/internal/voice"
)

// GlobalFlags holds flags available to all subcommands.
type GlobalFlags struct {
	Config  string `long:"config" description:"Path to config file" default:""`
	DBPath  string `long:"db-path" description:"Override the database file location"`
	JSON    bool   `long:"json" description:"Output in JSON format"`
	Verbose bool   `long:"verbose" description:"Enable verbose output"`
	Version bool   `long:"version" description:"Show version and exit"`
}

// AddCommand records a new dream.
type AddCommand struct {
	Title     string   `long:"title" description:"Entry title"`
	Body      string   `long:"body" description:"Dream text (or pass it as arguments)"`
	BodyFile  string   `long:"body-file" description:"Read the dream text from a file ('-' for stdin)"`
	Mood      string   `long:"mood" description:"pleasant | neutral | nightmare | lucid | confusing" default:"neutral"`
	Symbols   []string `long:"symbol" description:"Symbol as name[:category[:meaning]] (repeatable)"`
	Date      string   `long:"date" description:"When the dream happened (YYYY-MM-DD or YYYY-MM-DD HH:MM, local time)"`
	Lucid     bool     `long:"lucid" description:"Mark as a lucid dream"`
	Interpret bool     `long:"interpret" description:"Interpret the dream and detect symbols before saving (uses one free interpretation)"`

	globals *GlobalFlags
}

// EditCommand changes an existing entry. Unset options keep their value.
type EditCommand struct {
	ID           string   `long:"id" description:"Entry ID (required)"`
	Title        string   `long:"title" description:"New title"`
	ClearTitle   bool     `long:"clear-title" description:"Remove the entry's title"`
	Body         string   `long:"body" description:"New dream text"`
	BodyFile     string   `long:"body-file" description:"Read the new text from a file ('-' for stdin)"`
	Mood         string   `long:"mood" description:"New mood"`
	Symbols      []string `long:"symbol" description:"Replace symbols with name[:category[:meaning]] (repeatable)"`
	ClearSymbols bool     `long:"clear-symbols" description:"Remove all symbols from the entry"`
	Date         string   `long:"date" description:"New date"`
	Lucid        bool     `long:"lucid" description:"Mark as a lucid dream"`
	NotLucid     bool     `long:"not-lucid" description:"Unmark as a lucid dream"`

	globals *GlobalFlags
}

// DeleteCommand removes an entry.
type DeleteCommand struct {
	ID string `long:"id" description:"Entry ID (or pass it as an argument)"`

	globals *GlobalFlags
}

// ListCommand lists entries with filters.
type ListCommand struct {
	Since  string `long:"since" description:"Only entries newer than duration (e.g., 7d, 24h, 2w)"`
	Until  string `long:"until" description:"Only entries older than duration"`
	Month  string `long:"month" description:"Only entries of a calendar month (YYYY-MM)"`
	Mood   string `long:"mood" description:"Filter by mood"`
	Lucid  bool   `long:"lucid" description:"Only lucid dreams"`
	Sort   string `long:"sort" description:"date_desc | date_asc | title_asc | title_desc" default:"date_desc"`
	Limit  int    `long:"limit" description:"Maximum results" default:"20"`
	Offset int    `long:"offset" description:"Skip first N results" default:"0"`

	globals *GlobalFlags
}

// SearchCommand searches entry titles and text.
type SearchCommand struct {
	Query  string `long:"query" description:"Search text (or pass it as arguments)"`
	Since  string `long:"since" description:"Only entries newer than duration (e.g., 7d, 24h, 2w)"`
	Until  string `long:"until" description:"Only entries older than duration"`
	Mood   string `long:"mood" description:"Filter by mood"`
	Lucid  bool   `long:"lucid" description:"Only lucid dreams"`
	Limit  int    `long:"limit" description:"Maximum results" default:"10"`
	Offset int    `long:"offset" description:"Skip first N results" default:"0"`

	globals *GlobalFlags
}

// ShowCommand prints one entry.
type ShowCommand struct {
	ID          string `long:"id" description:"Entry ID (or pass it as an argument)"`
	Format      string `long:"format" description:"Output format: md | raw | json" default:"md"`
	Share       bool   `long:"share" description:"Print a plain-text rendering for sharing"`
	WithSummary bool   `long:"with-interpretation" description:"Include the AI interpretation when sharing"`

	globals *GlobalFlags
}

// StreakCommand prints the current and longest journaling streaks.
type StreakCommand struct {
	globals *GlobalFlags
}

// SymbolsCommand groups the symbol library subcommands.
type SymbolsCommand struct{}

// SymbolsTopCommand lists the most frequent symbols.
type SymbolsTopCommand struct {
	Limit    int    `long:"limit" description:"Maximum results" default:"10"`
	Category string `long:"category" description:"Only symbols of one category"`

	globals *GlobalFlags
}

// SymbolsCategoriesCommand prints distinct symbols per category.
type SymbolsCategoriesCommand struct {
	globals *GlobalFlags
}

// SymbolsStatsCommand prints symbol library statistics.
type SymbolsStatsCommand struct {
	globals *GlobalFlags
}

// SymbolsShowCommand prints one symbol.
type SymbolsShowCommand struct {
	Name    string `long:"name" description:"Symbol name (or pass it as an argument)"`
	Context string `long:"set-context" description:"Store extra context text on the symbol"`

	globals *GlobalFlags
}

// SymbolsSearchCommand searches symbol names, categories and meanings.
type SymbolsSearchCommand struct {
	globals *GlobalFlags
}

// SymbolsDeleteCommand removes a symbol record.
type SymbolsDeleteCommand struct {
	Name string `long:"name" description:"Symbol name (or pass it as an argument)"`

	globals *GlobalFlags
}

// SymbolsRebuildCommand recomputes occurrence counts from the entries.
type SymbolsRebuildCommand struct {
	globals *GlobalFlags
}

// InsightsCommand shows patterns, recommendations and mood statistics.
type InsightsCommand struct {
	Refresh   bool   `long:"refresh" description:"Analyze recent entries with the model and replace the pattern summary"`
	Recommend bool   `long:"recommend" description:"Ask the model for recommendations based on the current summary"`
	Month     string `long:"month" description:"Month for the mood breakdown (YYYY-MM, default current)"`

	globals *GlobalFlags
}

// InterpretCommand interprets a dream with the model.
type InterpretCommand struct {
	ID   string `long:"id" description:"Interpret a stored entry"`
	Save bool   `long:"save" description:"Store the interpretation and detected symbols on the entry"`

	globals *GlobalFlags
}

// RecordCommand captures a dream by voice.
type RecordCommand struct {
	Source string `long:"source" description:"Transcript stream from a local speech-to-text engine ('-' for stdin)" default:"-"`
	ID     string `long:"id" description:"Append the transcript to an existing entry"`
	Title  string `long:"title" description:"Title for a new entry"`
	Mood   string `long:"mood" description:"Mood for a new entry" default:"neutral"`
	Lucid  bool   `long:"lucid" description:"Mark a new entry as a lucid dream"`

	globals    *GlobalFlags
	recognizer voice.Recognizer // injectable for testing; nil means read Source
}

// ExportCommand writes a JSON backup.
type ExportCommand struct {
	Output string `long:"output" short:"o" description:"Backup file path ('-' for stdout; default dreamlog_backup_<time>.json)"`

	globals *GlobalFlags
}

// ImportCommand restores a JSON backup without duplicating records.
type ImportCommand struct {
	File string `long:"file" description:"Backup file path (or pass it as an argument; '-' for stdin)"`

	globals *GlobalFlags
}

// UsageCommand shows the free interpretation allowance.
type UsageCommand struct {
	Reset bool `long:"reset" description:"Reset this month's counter"`

	globals *GlobalFlags
}

// UnlockCommand installs a premium purchase receipt.
type UnlockCommand struct {
	Receipt string `long:"receipt" description:"Path to the purchase receipt file (required)"`

	globals *GlobalFlags
}

// StatusCommand shows database statistics and configuration summary.
type StatusCommand struct {
	globals *GlobalFlags
	version string
}

// PurgeCommand deletes ALL journal data with safety confirmation.
type PurgeCommand struct {
	All   bool `long:"all" description:"Required flag to confirm purge intent"`
	Force bool `long:"force" description:"Skip safety confirmation prompt"`

	globals *GlobalFlags
	stdin   io.Reader // injectable for testing; nil means os.Stdin
}
