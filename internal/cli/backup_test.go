package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runnerr0/dreamlog/internal/apperror"
	"github.com/runnerr0/dreamlog/internal/journal"
	"github.com/runnerr0/dreamlog/internal/storage"
)

func TestExportImport_RoundTripsIntoFreshJournal(t *testing.T) {
	src := newTestEnv(t, nil)
	ctx := context.Background()
	seedEntry(t, src, journal.Draft{Title: "Moon", Body: "a red moon", Mood: storage.MoodLucid, IsFlagged: true,
		Symbols: []journal.SymbolNote{{Name: "moon", Category: "nature", Meaning: "cycles"}}})
	seedEntry(t, src, journal.Draft{Body: "an empty train", Timestamp: hoursAgo(48)})
	require.NoError(t, src.store.ReplacePattern(ctx, &storage.Pattern{RecurringSymbols: []string{"moon"}}))

	path := filepath.Join(t.TempDir(), "backup.json")
	var err error
	out := captureOutput(t, func() {
		err = (&ExportCommand{Output: path, globals: &GlobalFlags{}}).executeWithEnv(ctx, src, nil)
	})
	require.NoError(t, err)
	assert.Contains(t, out, "Exported 2 entries, 1 symbols and 1 patterns to "+path)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	dst := newTestEnv(t, nil)
	out = captureOutput(t, func() {
		err = (&ImportCommand{globals: &GlobalFlags{JSON: true}}).executeWithEnv(ctx, dst, []string{path})
	})
	require.NoError(t, err)

	var res struct {
		Entries  int `json:"entries_imported"`
		Symbols  int `json:"symbols_imported"`
		Patterns int `json:"patterns_imported"`
		Skipped  int `json:"skipped"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, 2, res.Entries)
	assert.Equal(t, 1, res.Symbols)
	assert.Equal(t, 1, res.Patterns)

	moon, err := dst.symbols.Get(ctx, "moon")
	require.NoError(t, err)
	assert.Equal(t, []string{"cycles"}, moon.Meanings)

	// A second import of the same file adds nothing.
	out = captureOutput(t, func() {
		err = (&ImportCommand{File: path, globals: &GlobalFlags{}}).executeWithEnv(ctx, dst, nil)
	})
	require.NoError(t, err)
	assert.Contains(t, out, "Nothing new to import (4 skipped)")

	n, err := dst.journal.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestExportCommand_RefusesToOverwrite(t *testing.T) {
	e := newTestEnv(t, nil)
	path := filepath.Join(t.TempDir(), "existing.json")
	require.NoError(t, os.WriteFile(path, []byte("keep me"), 0o600))

	err := (&ExportCommand{Output: path, globals: &GlobalFlags{}}).executeWithEnv(context.Background(), e, nil)
	require.Error(t, err)
	assert.True(t, apperror.IsKind(err, apperror.KindStorage))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "keep me", string(data))
}

func TestImportCommand_FromStdin(t *testing.T) {
	src := newTestEnv(t, nil)
	ctx := context.Background()
	seedEntry(t, src, journal.Draft{Body: "a lighthouse"})

	var buf bytes.Buffer
	_, err := src.backup.Export(ctx, &buf)
	require.NoError(t, err)

	dst := newTestEnv(t, nil)
	dst.stdin = &buf
	out := captureOutput(t, func() {
		err = (&ImportCommand{File: "-", globals: &GlobalFlags{}}).executeWithEnv(ctx, dst, nil)
	})
	require.NoError(t, err)
	assert.Contains(t, out, "Imported 1 entries, 0 symbols and 0 patterns (0 skipped)")
}

func TestImportCommand_Errors(t *testing.T) {
	e := newTestEnv(t, nil)
	ctx := context.Background()

	err := (&ImportCommand{globals: &GlobalFlags{}}).executeWithEnv(ctx, e, nil)
	require.Error(t, err)
	assert.True(t, apperror.IsKind(err, apperror.KindValidation))

	err = (&ImportCommand{File: filepath.Join(t.TempDir(), "missing.json"), globals: &GlobalFlags{}}).executeWithEnv(ctx, e, nil)
	require.Error(t, err)
	assert.True(t, apperror.IsKind(err, apperror.KindStorage))
}
