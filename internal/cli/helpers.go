package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/runnerr0/dreamlog/internal/apperror"
	"github.com/runnerr0/dreamlog/internal/journal"
	"github.com/runnerr0/dreamlog/internal/storage"
)

// parseDuration parses a human-friendly duration string like "30d", "7d", "24h", "2w".
func parseDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, fmt.Errorf("invalid duration: empty string")
	}

	if len(s) < 2 {
		return 0, fmt.Errorf("invalid duration: %q", s)
	}

	suffix := s[len(s)-1]
	numStr := s[:len(s)-1]

	n, err := strconv.Atoi(numStr)
	if err != nil {
		return 0, fmt.Errorf("invalid duration: %q", s)
	}

	switch suffix {
	case 'd':
		return time.Duration(n) * 24 * time.Hour, nil
	case 'h':
		return time.Duration(n) * time.Hour, nil
	case 'w':
		return time.Duration(n) * 7 * 24 * time.Hour, nil
	case 'm':
		return time.Duration(n) * time.Minute, nil
	default:
		return 0, fmt.Errorf("invalid duration: %q (use d, h, w, or m suffix)", s)
	}
}

// dateLayouts are tried in order by parseDate.
var dateLayouts = []string{
	"2006-01-02 15:04",
	"2006-01-02T15:04",
	"2006-01-02",
}

// parseDate reads a user-supplied date in loc. RFC 3339 carries its own zone.
func parseDate(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q (use YYYY-MM-DD or YYYY-MM-DD HH:MM)", s)
}

// parseMonth reads YYYY-MM as the first instant of that month in loc.
func parseMonth(s string, loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation("2006-01", strings.TrimSpace(s), loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid month %q (use YYYY-MM)", s)
	}
	return t, nil
}

// parseSymbol reads name[:category[:meaning]].
func parseSymbol(s string) (journal.SymbolNote, error) {
	parts := strings.SplitN(s, ":", 3)
	note := journal.SymbolNote{Name: strings.TrimSpace(parts[0])}
	if note.Name == "" {
		return note, fmt.Errorf("invalid symbol %q: name is empty", s)
	}
	if len(parts) > 1 {
		note.Category = strings.TrimSpace(parts[1])
	}
	if len(parts) > 2 {
		note.Meaning = strings.TrimSpace(parts[2])
	}
	return note, nil
}

func parseSymbols(specs []string) ([]journal.SymbolNote, error) {
	notes := make([]journal.SymbolNote, 0, len(specs))
	for _, s := range specs {
		n, err := parseSymbol(s)
		if err != nil {
			return nil, apperror.Validation("cli.parseSymbols", err.Error())
		}
		notes = append(notes, n)
	}
	return notes, nil
}

func parseSort(s string) (storage.SortOrder, error) {
	switch o := storage.SortOrder(strings.ToLower(strings.TrimSpace(s))); o {
	case "":
		return storage.SortDateDesc, nil
	case storage.SortDateDesc, storage.SortDateAsc, storage.SortTitleAsc, storage.SortTitleDesc:
		return o, nil
	default:
		return "", fmt.Errorf("invalid sort %q (use date_desc, date_asc, title_asc or title_desc)", s)
	}
}

// parseMoodFilter returns "" for an empty filter.
func parseMoodFilter(s string) (storage.Mood, error) {
	if strings.TrimSpace(s) == "" {
		return "", nil
	}
	return storage.ParseMood(s)
}

// readBody returns inline text, the content of file ("-" for in), or the
// joined positional args, in that order of preference.
func readBody(inline, file string, args []string, in io.Reader) (string, error) {
	if inline != "" && file != "" {
		return "", fmt.Errorf("--body and --body-file are mutually exclusive")
	}
	switch {
	case inline != "":
		return inline, nil
	case file == "-":
		data, err := io.ReadAll(in)
		if err != nil {
			return "", fmt.Errorf("reading body from stdin: %w", err)
		}
		return string(data), nil
	case file != "":
		data, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("reading body file: %w", err)
		}
		return string(data), nil
	default:
		return strings.Join(args, " "), nil
	}
}

// firstArg returns flag, or the first positional arg when flag is empty.
func firstArg(flag string, args []string) string {
	if flag == "" && len(args) > 0 {
		return args[0]
	}
	return flag
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// entryJSON is the JSON form of an entry.
type entryJSON struct {
	ID             string   `json:"id"`
	Timestamp      string   `json:"timestamp"`
	Title          string   `json:"title"`
	Body           string   `json:"body,omitempty"`
	Mood           string   `json:"mood"`
	Symbols        []string `json:"symbols"`
	Interpretation *string  `json:"interpretation,omitempty"`
	Lucid          bool     `json:"lucid"`
}

func toEntryJSON(e storage.Entry, withBody bool) entryJSON {
	out := entryJSON{
		ID:             e.ID,
		Timestamp:      e.Timestamp.UTC().Format(time.RFC3339),
		Title:          e.Title,
		Mood:           string(e.Mood),
		Symbols:        e.Symbols,
		Interpretation: e.AISummary,
		Lucid:          e.IsFlagged,
	}
	if withBody {
		out.Body = e.Body
	}
	return out
}

// displayTitle falls back to the start of the body for untitled entries.
func displayTitle(e storage.Entry) string {
	if t := strings.TrimSpace(e.Title); t != "" {
		return t
	}
	body := strings.Join(strings.Fields(e.Body), " ")
	runes := []rune(body)
	if len(runes) > 50 {
		return string(runes[:50]) + "..."
	}
	return body
}

// formatBytes formats a byte count into a human-readable string.
func formatBytes(b int64) string {
	switch {
	case b >= 1<<30:
		return fmt.Sprintf("%.1f GB", float64(b)/float64(1<<30))
	case b >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(b)/float64(1<<20))
	case b >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(b)/float64(1<<10))
	default:
		return fmt.Sprintf("%d B", b)
	}
}

// formatNumber formats an int64 with comma separators.
func formatNumber(n int64) string {
	s := fmt.Sprintf("%d", n)
	if len(s) <= 3 {
		return s
	}

	var result strings.Builder
	remainder := len(s) % 3
	if remainder > 0 {
		result.WriteString(s[:remainder])
		if len(s) > remainder {
			result.WriteString(",")
		}
	}
	for i := remainder; i < len(s); i += 3 {
		if i > remainder {
			result.WriteString(",")
		}
		result.WriteString(s[i : i+3])
	}
	return result.String()
}

func plural(n int, word string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, word)
	}
	return fmt.Sprintf("%d %ss", n, word)
}
