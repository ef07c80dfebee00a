package cli

import (
	"bytes"
	"context"
	"io"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/runnerr0/dreamlog/internal/config"
	"github.com/runnerr0/dreamlog/internal/entitlement"
	"github.com/runnerr0/dreamlog/internal/insight"
	"github.com/runnerr0/dreamlog/internal/journal"
	"github.com/runnerr0/dreamlog/internal/storage"
)

// captureOutput captures stdout during fn execution and returns it as a string.
func captureOutput(t *testing.T, fn func()) string {
	t.Helper()
	old := os.Stdout
	r, w, err := os.Pipe()
	require.NoError(t, err)
	os.Stdout = w

	done := make(chan string)
	go func() {
		var buf bytes.Buffer
		_, _ = io.Copy(&buf, r)
		done <- buf.String()
	}()

	fn()

	w.Close()
	os.Stdout = old
	return <-done
}

// newTestEnv wires an environment over a migrated in-memory database.
// gen may be nil for commands that never reach the model.
func newTestEnv(t *testing.T, gen insight.Generator) *env {
	t.Helper()

	db, err := storage.Open(":memory:", "")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	store, err := storage.NewSQLiteStore(db)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	e := newEnv(config.DefaultConfig(), store, gen, entitlement.Static{}, zap.NewNop())
	e.db = db
	e.dbPath = ":memory:"
	e.stdin = strings.NewReader("")
	return e
}

// seedEntry stores an entry through the journal service.
func seedEntry(t *testing.T, e *env, d journal.Draft) *storage.Entry {
	t.Helper()
	entry, err := e.journal.Create(context.Background(), d)
	require.NoError(t, err)
	return entry
}

const (
	interpretReply = `{"psychologicalAnalysis": "You feel unmoored.", "symbolicMeaning": "Water is emotion.", "culturalContext": "Floods mean renewal.", "possibleMeanings": ["change is coming"]}`
	symbolsReply   = "```json\n[{\"name\": \"Water\", \"category\": \"Nature\", \"meaning\": \"emotion\"}, {\"name\": \"Boat\", \"category\": \"objects\", \"meaning\": \"safety\"}]\n```"
	patternReply   = `{"recurringSymbols": ["water"], "emotionalTrends": ["calm before sleep"], "recommendations": ["keep a notebook by the bed"]}`
	recsReply      = `["write the dream down right away", "notice recurring places"]`
)

// fakeModel answers each kind of prompt with a canned reply and counts calls.
type fakeModel struct {
	calls   int
	prompts []string
}

func (f *fakeModel) Generate(_ context.Context, prompt string) (string, error) {
	f.calls++
	f.prompts = append(f.prompts, prompt)
	switch {
	case strings.Contains(prompt, "psychologicalAnalysis"):
		return interpretReply, nil
	case strings.Contains(prompt, "name, category, meaning"):
		return symbolsReply, nil
	case strings.Contains(prompt, "recurringSymbols (array)"):
		return patternReply, nil
	case strings.Contains(prompt, "JSON array of strings"):
		return recsReply, nil
	}
	return "", nil
}

func hoursAgo(h int) time.Time {
	return time.Now().Add(-time.Duration(h) * time.Hour)
}
