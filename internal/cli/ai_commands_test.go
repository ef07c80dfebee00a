package cli

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runnerr0/dreamlog/internal/apperror"
	"github.com/runnerr0/dreamlog/internal/journal"
	"github.com/runnerr0/dreamlog/internal/storage"
)

func TestInterpretCommand_Text(t *testing.T) {
	model := &fakeModel{}
	e := newTestEnv(t, model)

	var err error
	out := captureOutput(t, func() {
		err = (&InterpretCommand{globals: &GlobalFlags{}}).executeWithEnv(context.Background(), e, []string{"a", "flood", "at", "home"})
	})
	require.NoError(t, err)
	assert.Equal(t, 2, model.calls)
	assert.Contains(t, out, "PSYCHOLOGICAL ANALYSIS:\nYou feel unmoored.")
	assert.Contains(t, out, "DETECTED SYMBOLS:")
	assert.Contains(t, out, "Water (nature): emotion")
	assert.Contains(t, out, "2 free interpretations remaining this month")

	n, err := e.journal.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, n, "interpreting free text stores nothing")
}

func TestInterpretCommand_SaveMergesSymbols(t *testing.T) {
	e := newTestEnv(t, &fakeModel{})
	ctx := context.Background()
	entry := seedEntry(t, e, journal.Draft{
		Body:    "a flood of water and a small boat",
		Symbols: []journal.SymbolNote{{Name: "water", Category: "nature"}},
	})

	var err error
	out := captureOutput(t, func() {
		err = (&InterpretCommand{ID: entry.ID, Save: true, globals: &GlobalFlags{JSON: true}}).executeWithEnv(ctx, e, nil)
	})
	require.NoError(t, err)

	var got interpretJSON
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.True(t, got.Saved)
	assert.Equal(t, entry.ID, got.ID)
	require.NotNil(t, got.Remaining)
	assert.Equal(t, 2, *got.Remaining)

	stored, err := e.journal.Get(ctx, entry.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"water", "Boat"}, stored.Symbols)
	require.NotNil(t, stored.AISummary)
	assert.Contains(t, *stored.AISummary, "SYMBOLIC MEANING:\nWater is emotion.")

	water, err := e.symbols.Get(ctx, "water")
	require.NoError(t, err)
	assert.Equal(t, 1, water.Occurrences, "a symbol already on the entry is not counted twice")
	boat, err := e.symbols.Get(ctx, "boat")
	require.NoError(t, err)
	assert.Equal(t, "objects", boat.Category)
}

func TestInterpretCommand_SaveWithoutNewSymbolsKeepsLabels(t *testing.T) {
	e := newTestEnv(t, &fakeModel{})
	ctx := context.Background()
	entry := seedEntry(t, e, journal.Draft{
		Body:    "water everywhere, then a boat",
		Symbols: []journal.SymbolNote{{Name: "Water"}, {Name: "boat"}},
	})

	captureOutput(t, func() {
		require.NoError(t, (&InterpretCommand{ID: entry.ID, Save: true, globals: &GlobalFlags{}}).executeWithEnv(ctx, e, nil))
	})

	stored, err := e.journal.Get(ctx, entry.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"Water", "boat"}, stored.Symbols)
	require.NotNil(t, stored.AISummary)
}

func TestInterpretCommand_Validation(t *testing.T) {
	model := &fakeModel{}
	e := newTestEnv(t, model)
	ctx := context.Background()

	err := (&InterpretCommand{Save: true, globals: &GlobalFlags{}}).executeWithEnv(ctx, e, []string{"text"})
	require.Error(t, err)
	assert.True(t, apperror.IsKind(err, apperror.KindValidation))

	err = (&InterpretCommand{globals: &GlobalFlags{}}).executeWithEnv(ctx, e, []string{"  "})
	require.Error(t, err)
	assert.True(t, apperror.IsKind(err, apperror.KindValidation))

	err = (&InterpretCommand{ID: "missing", globals: &GlobalFlags{}}).executeWithEnv(ctx, e, nil)
	require.Error(t, err)
	assert.True(t, apperror.IsKind(err, apperror.KindNotFound))
	assert.Equal(t, 0, model.calls)
}

func TestInterpretCommand_NoModel(t *testing.T) {
	e := newTestEnv(t, nil)
	ctx := context.Background()

	err := (&InterpretCommand{globals: &GlobalFlags{}}).executeWithEnv(ctx, e, []string{"a dream"})
	require.Error(t, err)
	assert.True(t, apperror.IsKind(err, apperror.KindServiceUnavailable))

	st, err := e.gate.Status(ctx, e.now())
	require.NoError(t, err)
	assert.Equal(t, 0, st.Used, "a failed interpretation is not counted")
}

func seedInsightEntries(t *testing.T, e *env, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		seedEntry(t, e, journal.Draft{
			Body:      "the sea again",
			Mood:      storage.MoodPleasant,
			Symbols:   []journal.SymbolNote{{Name: "sea", Category: "nature"}},
			Timestamp: hoursAgo(i * 24),
		})
	}
}

func TestInsightsCommand_RefreshReplacesSummary(t *testing.T) {
	model := &fakeModel{}
	e := newTestEnv(t, model)
	ctx := context.Background()
	seedInsightEntries(t, e, 3)

	for i := 0; i < 2; i++ {
		var err error
		out := captureOutput(t, func() {
			err = (&InsightsCommand{Refresh: true, globals: &GlobalFlags{JSON: true}}).executeWithEnv(ctx, e, nil)
		})
		require.NoError(t, err)

		var got insightsJSON
		require.NoError(t, json.Unmarshal([]byte(out), &got))
		require.NotNil(t, got.Pattern)
		assert.Equal(t, []string{"water"}, got.Pattern.RecurringSymbols)
		assert.Equal(t, []string{"calm before sleep"}, got.Pattern.Trends)
		require.Len(t, got.TopSymbols, 1)
		assert.Equal(t, "sea", got.TopSymbols[0].Name)
		assert.Equal(t, 3, got.TopSymbols[0].Occurrences)
	}
	assert.Equal(t, 2, model.calls)

	patterns, err := e.store.ListPatterns(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, patterns, 1)

	st, err := e.gate.Status(ctx, e.now())
	require.NoError(t, err)
	assert.Equal(t, 0, st.Used, "pattern analysis does not use the interpretation allowance")
}

func TestInsightsCommand_RefreshNeedsEnoughEntries(t *testing.T) {
	model := &fakeModel{}
	e := newTestEnv(t, model)
	seedInsightEntries(t, e, 2)

	err := (&InsightsCommand{Refresh: true, globals: &GlobalFlags{}}).executeWithEnv(context.Background(), e, nil)
	require.Error(t, err)
	assert.True(t, apperror.IsKind(err, apperror.KindInsufficientData), "got %v", err)
	assert.Equal(t, 0, model.calls)
}

func TestInsightsCommand_Recommend(t *testing.T) {
	e := newTestEnv(t, &fakeModel{})
	ctx := context.Background()

	err := (&InsightsCommand{Recommend: true, globals: &GlobalFlags{}}).executeWithEnv(ctx, e, nil)
	require.Error(t, err)
	assert.True(t, apperror.IsKind(err, apperror.KindValidation))

	seedInsightEntries(t, e, 3)
	out := captureOutput(t, func() {
		err = (&InsightsCommand{Refresh: true, Recommend: true, globals: &GlobalFlags{}}).executeWithEnv(ctx, e, nil)
	})
	require.NoError(t, err)
	assert.Contains(t, out, "Dream patterns (analyzed")
	assert.Contains(t, out, "Recurring symbols: water")
	assert.Contains(t, out, "Personal recommendations:")
	assert.Contains(t, out, "- write the dream down right away")
	assert.Contains(t, out, "Top symbols:")
}

func TestInsightsCommand_WithoutSummary(t *testing.T) {
	e := newTestEnv(t, nil)
	seedEntry(t, e, journal.Draft{Body: "a dream", Mood: storage.MoodLucid})

	var err error
	out := captureOutput(t, func() {
		err = (&InsightsCommand{globals: &GlobalFlags{}}).executeWithEnv(context.Background(), e, nil)
	})
	require.NoError(t, err)
	assert.Contains(t, out, "No pattern summary yet")
	assert.Contains(t, out, "Moods in ")
	assert.Contains(t, out, "lucid")

	err = (&InsightsCommand{Month: "2024-13", globals: &GlobalFlags{}}).executeWithEnv(context.Background(), e, nil)
	require.Error(t, err)
	assert.True(t, apperror.IsKind(err, apperror.KindValidation))
}
