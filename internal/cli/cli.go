package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	goflags "github.com/jessevdk/go-flags"

	"github.com/runnerr0/dreamlog/internal/apperror"
)

// commands holds references to all subcommand structs for inspection/testing.
type commands struct {
	Add       *AddCommand
	Edit      *EditCommand
	Delete    *DeleteCommand
	List      *ListCommand
	Search    *SearchCommand
	Show      *ShowCommand
	Streak    *StreakCommand
	Symbols   *SymbolsCommand
	SymTop    *SymbolsTopCommand
	SymCats   *SymbolsCategoriesCommand
	SymStats  *SymbolsStatsCommand
	SymShow   *SymbolsShowCommand
	SymSearch *SymbolsSearchCommand
	SymDelete *SymbolsDeleteCommand
	SymReb    *SymbolsRebuildCommand
	Insights  *InsightsCommand
	Interpret *InterpretCommand
	Record    *RecordCommand
	Export    *ExportCommand
	Import    *ImportCommand
	Usage     *UsageCommand
	Unlock    *UnlockCommand
	Status    *StatusCommand
	Purge     *PurgeCommand
}

// buildParser constructs the go-flags parser with all subcommands registered.
func buildParser(version string) (*goflags.Parser, *GlobalFlags, *commands, error) {
	var globals GlobalFlags

	parser := goflags.NewParser(&globals, goflags.HelpFlag|goflags.PassDoubleDash)
	parser.Name = "dreamlog"
	parser.LongDescription = "Private, local-first dream journal with on-device AI interpretation."

	g := &globals
	cmds := &commands{
		Add:       &AddCommand{globals: g},
		Edit:      &EditCommand{globals: g},
		Delete:    &DeleteCommand{globals: g},
		List:      &ListCommand{globals: g},
		Search:    &SearchCommand{globals: g},
		Show:      &ShowCommand{globals: g},
		Streak:    &StreakCommand{globals: g},
		Symbols:   &SymbolsCommand{},
		SymTop:    &SymbolsTopCommand{globals: g},
		SymCats:   &SymbolsCategoriesCommand{globals: g},
		SymStats:  &SymbolsStatsCommand{globals: g},
		SymShow:   &SymbolsShowCommand{globals: g},
		SymSearch: &SymbolsSearchCommand{globals: g},
		SymDelete: &SymbolsDeleteCommand{globals: g},
		SymReb:    &SymbolsRebuildCommand{globals: g},
		Insights:  &InsightsCommand{globals: g},
		Interpret: &InterpretCommand{globals: g},
		Record:    &RecordCommand{globals: g},
		Export:    &ExportCommand{globals: g},
		Import:    &ImportCommand{globals: g},
		Usage:     &UsageCommand{globals: g},
		Unlock:    &UnlockCommand{globals: g},
		Status:    &StatusCommand{globals: g, version: version},
		Purge:     &PurgeCommand{globals: g},
	}

	top := []struct {
		name, short, long string
		data              interface{}
	}{
		{"add", "Record a new dream", "Record a new dream entry with mood, symbols and an optional AI interpretation.", cmds.Add},
		{"edit", "Edit an entry", "Change the text, title, mood, date, symbols or lucid flag of an entry.", cmds.Edit},
		{"delete", "Delete an entry", "Delete an entry. Symbol counts are not reduced; run 'symbols rebuild' to correct them.", cmds.Delete},
		{"list", "List entries", "List entries with optional date, mood and lucid filters.", cmds.List},
		{"search", "Search entries", "Search entry titles and text, case-insensitively.", cmds.Search},
		{"show", "Print one entry", "Print the full content of one entry, or a plain-text rendering for sharing.", cmds.Show},
		{"streak", "Show journaling streaks", "Show the current and longest runs of consecutive days with an entry.", cmds.Streak},
		{"symbols", "Browse the symbol library", "Browse, search and maintain the symbol library.", cmds.Symbols},
		{"insights", "Show patterns and mood statistics", "Show the latest pattern summary, recommendations and mood breakdown.", cmds.Insights},
		{"interpret", "Interpret a dream", "Interpret a stored entry or the given text with the local model.", cmds.Interpret},
		{"record", "Record a dream by voice", "Capture a dream from an on-device speech-to-text stream.", cmds.Record},
		{"export", "Export a JSON backup", "Write every entry, symbol and pattern summary to a JSON backup file.", cmds.Export},
		{"import", "Import a JSON backup", "Import a JSON backup. Records that already exist are skipped.", cmds.Import},
		{"usage", "Show the free interpretation allowance", "Show how many free AI interpretations remain this month.", cmds.Usage},
		{"unlock", "Install a premium receipt", "Verify and install a premium purchase receipt.", cmds.Unlock},
		{"status", "Show database statistics", "Show database statistics and configuration summary.", cmds.Status},
		{"purge", "Delete ALL journal data", "Delete ALL journal data. Destructive operation with safety prompt.", cmds.Purge},
	}
	for _, c := range top {
		if _, err := parser.AddCommand(c.name, c.short, c.long, c.data); err != nil {
			return nil, nil, nil, err
		}
	}

	symbolsCmd := parser.Find("symbols")
	sub := []struct {
		name, short, long string
		data              interface{}
	}{
		{"top", "Most frequent symbols", "List symbols by occurrence count, highest first. Ties keep insertion order.", cmds.SymTop},
		{"categories", "Symbols per category", "Count distinct symbols in each category.", cmds.SymCats},
		{"stats", "Symbol library statistics", "Show totals, averages and the most common symbol.", cmds.SymStats},
		{"show", "Print one symbol", "Print one symbol with its meanings and context.", cmds.SymShow},
		{"search", "Search symbols", "Search symbol names, categories and meanings.", cmds.SymSearch},
		{"delete", "Delete a symbol", "Delete a symbol record. Entries keep their symbol labels.", cmds.SymDelete},
		{"rebuild", "Recount symbols from entries", "Recompute occurrence counts from the current entries.", cmds.SymReb},
	}
	for _, c := range sub {
		if _, err := symbolsCmd.AddCommand(c.name, c.short, c.long, c.data); err != nil {
			return nil, nil, nil, err
		}
	}

	return parser, &globals, cmds, nil
}

// Run is the main entry point for the dreamlog CLI using os.Args.
func Run(version string) error {
	return RunWithArgs(version, nil)
}

// RunWithArgs parses the given args (or os.Args if nil) and executes the matched subcommand.
func RunWithArgs(version string, args []string) error {
	// Handle --version before parser (go-flags requires a subcommand, but
	// --version is valid without one).
	checkArgs := args
	if checkArgs == nil {
		checkArgs = os.Args[1:]
	}
	for _, arg := range checkArgs {
		if arg == "--version" {
			fmt.Printf("dreamlog %s\n", version)
			return nil
		}
		if arg == "--" {
			break
		}
	}

	parser, _, _, err := buildParser(version)
	if err != nil {
		return err
	}

	if args != nil {
		_, err = parser.ParseArgs(args)
	} else {
		_, err = parser.Parse()
	}

	if err != nil {
		var flagsErr *goflags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == goflags.ErrHelp {
			fmt.Println(flagsErr.Message)
			return nil
		}
		return err
	}

	return nil
}

// PrintError writes err for a person: title and message, the suggested
// fix, and a retry hint when the failure is transient.
func PrintError(w io.Writer, err error) {
	var appErr *apperror.Error
	if !errors.As(err, &appErr) {
		fmt.Fprintf(w, "Error: %v\n", err)
		return
	}

	title := appErr.Title
	if title == "" {
		title = "Error"
	}
	msg := appErr.Message
	if appErr.Err != nil {
		msg = fmt.Sprintf("%s (%v)", msg, appErr.Err)
	}
	fmt.Fprintf(w, "%s: %s\n", title, msg)
	if appErr.Suggestion != "" {
		fmt.Fprintf(w, "  %s\n", appErr.Suggestion)
	}
	if appErr.Retryable {
		fmt.Fprintln(w, "  This can be retried.")
	}
}
