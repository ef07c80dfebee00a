package cli

import (
	"context"
	"encoding/json"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runnerr0/dreamlog/internal/apperror"
	"github.com/runnerr0/dreamlog/internal/journal"
	"github.com/runnerr0/dreamlog/internal/storage"
	"github.com/runnerr0/dreamlog/internal/voice"
)

func TestEditCommand_KeepsUnsetFields(t *testing.T) {
	e := newTestEnv(t, nil)
	ctx := context.Background()
	entry := seedEntry(t, e, journal.Draft{
		Title:   "Garden",
		Body:    "roses everywhere",
		Mood:    storage.MoodPleasant,
		Symbols: []journal.SymbolNote{{Name: "rose", Category: "nature"}},
	})

	var err error
	captureOutput(t, func() {
		err = (&EditCommand{ID: entry.ID, Mood: "nightmare", Lucid: true, globals: &GlobalFlags{}}).executeWithEnv(ctx, e, nil)
	})
	require.NoError(t, err)

	got, err := e.journal.Get(ctx, entry.ID)
	require.NoError(t, err)
	assert.Equal(t, "Garden", got.Title)
	assert.Equal(t, "roses everywhere", got.Body)
	assert.Equal(t, storage.MoodNightmare, got.Mood)
	assert.True(t, got.IsFlagged)
	assert.Equal(t, []string{"rose"}, got.Symbols)

	rose, err := e.symbols.Get(ctx, "rose")
	require.NoError(t, err)
	assert.Equal(t, 1, rose.Occurrences, "re-saving existing symbols does not count them again")
}

func TestEditCommand_ClearTitle(t *testing.T) {
	e := newTestEnv(t, nil)
	ctx := context.Background()
	entry := seedEntry(t, e, journal.Draft{Title: "Garden", Body: "roses everywhere"})

	captureOutput(t, func() {
		require.NoError(t, (&EditCommand{ID: entry.ID, ClearTitle: true, globals: &GlobalFlags{}}).executeWithEnv(ctx, e, nil))
	})
	got, err := e.journal.Get(ctx, entry.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Title)
	assert.Equal(t, "roses everywhere", got.Body)
}

func TestEditCommand_ReplaceAndClearSymbols(t *testing.T) {
	e := newTestEnv(t, nil)
	ctx := context.Background()
	entry := seedEntry(t, e, journal.Draft{Body: "a cat and a key", Symbols: []journal.SymbolNote{{Name: "cat"}}})

	captureOutput(t, func() {
		require.NoError(t, (&EditCommand{ID: entry.ID, Symbols: []string{"cat", "key:objects"}, globals: &GlobalFlags{}}).executeWithEnv(ctx, e, nil))
	})
	got, err := e.journal.Get(ctx, entry.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"cat", "key"}, got.Symbols)

	cat, err := e.symbols.Get(ctx, "cat")
	require.NoError(t, err)
	assert.Equal(t, 1, cat.Occurrences)
	key, err := e.symbols.Get(ctx, "key")
	require.NoError(t, err)
	assert.Equal(t, "objects", key.Category)

	captureOutput(t, func() {
		require.NoError(t, (&EditCommand{ID: entry.ID, ClearSymbols: true, globals: &GlobalFlags{}}).executeWithEnv(ctx, e, nil))
	})
	got, err = e.journal.Get(ctx, entry.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Symbols)
}

func TestEditCommand_Validation(t *testing.T) {
	e := newTestEnv(t, nil)
	ctx := context.Background()
	entry := seedEntry(t, e, journal.Draft{Body: "text"})

	tests := []struct {
		name string
		cmd  *EditCommand
		kind apperror.Kind
	}{
		{"missing id", &EditCommand{}, apperror.KindValidation},
		{"lucid conflict", &EditCommand{ID: entry.ID, Lucid: true, NotLucid: true}, apperror.KindValidation},
		{"symbol conflict", &EditCommand{ID: entry.ID, ClearSymbols: true, Symbols: []string{"x"}}, apperror.KindValidation},
		{"title conflict", &EditCommand{ID: entry.ID, ClearTitle: true, Title: "x"}, apperror.KindValidation},
		{"unknown mood", &EditCommand{ID: entry.ID, Mood: "angry"}, apperror.KindValidation},
		{"unknown entry", &EditCommand{ID: "nope"}, apperror.KindNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.cmd.globals = &GlobalFlags{}
			err := tt.cmd.executeWithEnv(ctx, e, nil)
			require.Error(t, err)
			assert.Equal(t, tt.kind, apperror.KindOf(err), "got %v", err)
		})
	}
}

func TestDeleteCommand(t *testing.T) {
	e := newTestEnv(t, nil)
	ctx := context.Background()
	entry := seedEntry(t, e, journal.Draft{Body: "a bridge", Symbols: []journal.SymbolNote{{Name: "bridge"}}})

	var err error
	out := captureOutput(t, func() {
		err = (&DeleteCommand{globals: &GlobalFlags{}}).executeWithEnv(ctx, e, []string{entry.ID})
	})
	require.NoError(t, err)
	assert.Contains(t, out, "Deleted entry "+entry.ID)

	_, err = e.journal.Get(ctx, entry.ID)
	assert.True(t, apperror.IsKind(err, apperror.KindNotFound))

	// Counts drift until a rebuild.
	bridge, err := e.symbols.Get(ctx, "bridge")
	require.NoError(t, err)
	assert.Equal(t, 1, bridge.Occurrences)

	err = (&DeleteCommand{ID: entry.ID, globals: &GlobalFlags{}}).executeWithEnv(ctx, e, nil)
	assert.True(t, apperror.IsKind(err, apperror.KindNotFound))
}

func TestStreakCommand(t *testing.T) {
	e := newTestEnv(t, nil)
	ctx := context.Background()

	var err error
	out := captureOutput(t, func() {
		err = (&StreakCommand{globals: &GlobalFlags{}}).executeWithEnv(ctx, e, nil)
	})
	require.NoError(t, err)
	assert.Contains(t, out, "Current streak: 0 days")
	assert.Contains(t, out, "Start your dream journal journey tonight!")

	now := e.now()
	for _, days := range []int{0, 1, 2, 5} {
		seedEntry(t, e, journal.Draft{Body: "dream", Timestamp: now.AddDate(0, 0, -days)})
	}

	out = captureOutput(t, func() {
		err = (&StreakCommand{globals: &GlobalFlags{JSON: true}}).executeWithEnv(ctx, e, nil)
	})
	require.NoError(t, err)

	var got struct {
		Current    int    `json:"current"`
		Longest    int    `json:"longest"`
		Motivation string `json:"motivation"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, 3, got.Current)
	assert.Equal(t, 3, got.Longest)
	assert.NotEmpty(t, got.Motivation)
}

func TestRecordCommand_NewEntryFromStdin(t *testing.T) {
	e := newTestEnv(t, nil)
	ctx := context.Background()
	e.stdin = strings.NewReader("I was\nI was in a\nI was in a train going nowhere\n")

	var err error
	out := captureOutput(t, func() {
		err = (&RecordCommand{Source: "-", Mood: "confusing", Title: "Train", globals: &GlobalFlags{}}).executeWithEnv(ctx, e, nil)
	})
	require.NoError(t, err)
	assert.Contains(t, out, "Added entry")

	entries, err := e.journal.Recent(ctx, 1)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "I was in a train going nowhere", entries[0].Body)
	assert.Equal(t, "Train", entries[0].Title)
	assert.Equal(t, storage.MoodConfusing, entries[0].Mood)
}

func TestRecordCommand_AppendsToEntry(t *testing.T) {
	e := newTestEnv(t, nil)
	ctx := context.Background()
	entry := seedEntry(t, e, journal.Draft{Body: "First part.", Symbols: []journal.SymbolNote{{Name: "door"}}})

	rec := voice.NewLineRecognizer(func() (io.ReadCloser, error) {
		return io.NopCloser(strings.NewReader("and then the door opened\n")), nil
	})

	var err error
	out := captureOutput(t, func() {
		err = (&RecordCommand{ID: entry.ID, Mood: "neutral", recognizer: rec, globals: &GlobalFlags{}}).executeWithEnv(ctx, e, nil)
	})
	require.NoError(t, err)
	assert.Contains(t, out, "Appended transcript to entry "+entry.ID)

	got, err := e.journal.Get(ctx, entry.ID)
	require.NoError(t, err)
	assert.Equal(t, "First part.\n\nand then the door opened", got.Body)
	assert.Equal(t, []string{"door"}, got.Symbols)
}

func TestRecordCommand_NothingRecognized(t *testing.T) {
	e := newTestEnv(t, nil)
	e.stdin = strings.NewReader("\n\n")

	err := (&RecordCommand{Source: "-", Mood: "neutral", globals: &GlobalFlags{}}).executeWithEnv(context.Background(), e, nil)
	require.Error(t, err)
	assert.True(t, apperror.IsKind(err, apperror.KindValidation))
}

func TestRecordCommand_UnreadableSource(t *testing.T) {
	e := newTestEnv(t, nil)

	err := (&RecordCommand{Source: t.TempDir() + "/missing.txt", Mood: "neutral", globals: &GlobalFlags{}}).
		executeWithEnv(context.Background(), e, nil)
	require.Error(t, err)
	assert.True(t, apperror.IsKind(err, apperror.KindServiceUnavailable), "got %v", err)
}
