// Package share renders an entry as plain text for pasting elsewhere.
package share

import (
	"strings"
	"time"

	"github.com/runnerr0/dreamlog/internal/storage"
)

// Options controls what a rendering includes.
type Options struct {
	IncludeSummary bool
	Location       *time.Location
}

const dateLayout = "January 2, 2006 at 3:04 PM"

// Text renders e for sharing. The summary is included only when asked for
// and present.
func Text(e storage.Entry, opts Options) string {
	loc := opts.Location
	if loc == nil {
		loc = time.Local
	}

	var b strings.Builder
	b.WriteString("Dream Journal Entry\n\n")
	b.WriteString("Date: " + e.Timestamp.In(loc).Format(dateLayout) + "\n")
	b.WriteString("Mood: " + string(e.Mood) + "\n")
	if e.IsFlagged {
		b.WriteString("Lucid dream\n")
	}
	b.WriteString("\n")

	if title := strings.TrimSpace(e.Title); title != "" {
		b.WriteString("Title: " + title + "\n\n")
	}
	b.WriteString(strings.TrimSpace(e.Body))

	if len(e.Symbols) > 0 {
		b.WriteString("\n\nSymbols: " + strings.Join(e.Symbols, ", "))
	}
	if opts.IncludeSummary && e.AISummary != nil && strings.TrimSpace(*e.AISummary) != "" {
		b.WriteString("\n\nInterpretation:\n" + strings.TrimSpace(*e.AISummary))
	}

	b.WriteString("\n\n--\nShared from dreamlog\n")
	return b.String()
}
