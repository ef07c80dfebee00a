package cli

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runnerr0/dreamlog/internal/apperror"
	"github.com/runnerr0/dreamlog/internal/entitlement"
	"github.com/runnerr0/dreamlog/internal/usage"
)

func TestAddCommand_BasicEntry(t *testing.T) {
	e := newTestEnv(t, nil)
	ctx := context.Background()

	cmd := &AddCommand{
		Title:   "Ocean",
		Mood:    "pleasant",
		Symbols: []string{"sea:nature:depth", "Sea"},
		globals: &GlobalFlags{},
	}

	var err error
	out := captureOutput(t, func() {
		err = cmd.executeWithEnv(ctx, e, []string{"I", "was", "swimming", "in", "the", "sea"})
	})
	require.NoError(t, err)
	assert.Contains(t, out, "Added entry")
	assert.Contains(t, out, "Mood: pleasant")

	entries, err := e.journal.Recent(ctx, 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "I was swimming in the sea", entries[0].Body)
	assert.Equal(t, []string{"sea"}, entries[0].Symbols)

	sym, err := e.symbols.Get(ctx, "SEA")
	require.NoError(t, err)
	assert.Equal(t, 1, sym.Occurrences)
	assert.Equal(t, "nature", sym.Category)
	assert.Equal(t, []string{"depth"}, sym.Meanings)
}

func TestAddCommand_BodyFromFileAndStdin(t *testing.T) {
	e := newTestEnv(t, nil)
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "dream.txt")
	require.NoError(t, os.WriteFile(path, []byte("  a house with endless stairs \n"), 0o600))

	captureOutput(t, func() {
		require.NoError(t, (&AddCommand{BodyFile: path, Mood: "neutral", globals: &GlobalFlags{}}).executeWithEnv(ctx, e, nil))
	})

	e.stdin = strings.NewReader("falling from a tower")
	captureOutput(t, func() {
		require.NoError(t, (&AddCommand{BodyFile: "-", Mood: "nightmare", globals: &GlobalFlags{}}).executeWithEnv(ctx, e, nil))
	})

	entries, err := e.journal.Recent(ctx, 0)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	bodies := []string{entries[0].Body, entries[1].Body}
	assert.ElementsMatch(t, []string{"a house with endless stairs", "falling from a tower"}, bodies)
}

func TestAddCommand_Validation(t *testing.T) {
	e := newTestEnv(t, nil)
	ctx := context.Background()

	tests := []struct {
		name string
		cmd  *AddCommand
		args []string
	}{
		{"empty body", &AddCommand{Mood: "neutral"}, []string{"   "}},
		{"unknown mood", &AddCommand{Mood: "ecstatic"}, []string{"a dream"}},
		{"bad date", &AddCommand{Mood: "neutral", Date: "yesterday"}, []string{"a dream"}},
		{"empty symbol name", &AddCommand{Mood: "neutral", Symbols: []string{":nature"}}, []string{"a dream"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.cmd.globals = &GlobalFlags{}
			err := tt.cmd.executeWithEnv(ctx, e, tt.args)
			require.Error(t, err)
			assert.True(t, apperror.IsKind(err, apperror.KindValidation), "got %v", err)
		})
	}

	n, err := e.journal.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestAddCommand_DateFlag(t *testing.T) {
	e := newTestEnv(t, nil)
	ctx := context.Background()

	captureOutput(t, func() {
		require.NoError(t, (&AddCommand{Mood: "neutral", Date: "2024-02-29 06:30", globals: &GlobalFlags{}}).
			executeWithEnv(ctx, e, []string{"leap day dream"}))
	})

	entries, err := e.journal.Recent(ctx, 1)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	local := entries[0].Timestamp.Local()
	assert.Equal(t, 2024, local.Year())
	assert.Equal(t, 29, local.Day())
	assert.Equal(t, 6, local.Hour())
}

func TestAddCommand_InterpretCountsOneUse(t *testing.T) {
	model := &fakeModel{}
	e := newTestEnv(t, model)
	ctx := context.Background()

	cmd := &AddCommand{Mood: "neutral", Symbols: []string{"sea"}, Interpret: true, globals: &GlobalFlags{}}
	var err error
	out := captureOutput(t, func() {
		err = cmd.executeWithEnv(ctx, e, []string{"a flood filled the streets and I found a boat"})
	})
	require.NoError(t, err)
	assert.Equal(t, 2, model.calls)
	assert.Contains(t, out, "PSYCHOLOGICAL ANALYSIS:")
	assert.Contains(t, out, "2 free interpretations remaining this month")

	entries, err := e.journal.Recent(ctx, 1)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, []string{"sea", "Water", "Boat"}, entries[0].Symbols)
	require.NotNil(t, entries[0].AISummary)
	assert.Contains(t, *entries[0].AISummary, "You feel unmoored.")

	water, err := e.symbols.Get(ctx, "water")
	require.NoError(t, err)
	assert.Equal(t, "nature", water.Category)

	st, err := e.gate.Status(ctx, e.now())
	require.NoError(t, err)
	assert.Equal(t, 1, st.Used)
}

func TestAddCommand_InterpretUsesNormalizedMood(t *testing.T) {
	tests := []struct {
		flag string
		want string
	}{
		{"  LUCID ", "Emotional Tone: lucid"},
		{"", "Emotional Tone: neutral"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			model := &fakeModel{}
			e := newTestEnv(t, model)
			captureOutput(t, func() {
				require.NoError(t, (&AddCommand{Mood: tt.flag, Interpret: true, globals: &GlobalFlags{}}).executeWithEnv(context.Background(), e, []string{"a flood"}))
			})
			require.NotEmpty(t, model.prompts)
			assert.Contains(t, model.prompts[0], tt.want)
		})
	}
}

func TestAddCommand_InterpretBlockedByQuota(t *testing.T) {
	model := &fakeModel{}
	e := newTestEnv(t, model)
	ctx := context.Background()
	for i := 0; i < e.cfg.Usage.MonthlyLimit; i++ {
		require.NoError(t, e.gate.Record(ctx, e.now()))
	}

	err := (&AddCommand{Mood: "neutral", Interpret: true, globals: &GlobalFlags{}}).
		executeWithEnv(ctx, e, []string{"a dream"})
	require.Error(t, err)
	assert.True(t, apperror.IsKind(err, apperror.KindQuotaExceeded))
	assert.Equal(t, 0, model.calls)

	n, err := e.journal.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n, "nothing is saved when the interpretation is refused")
}

func TestAddCommand_PremiumIsNotCounted(t *testing.T) {
	e := newTestEnv(t, &fakeModel{})
	ctx := context.Background()
	premium := entitlement.Premium{
		Verifier:  entitlement.Static{Status: entitlement.Status{Purchased: true}},
		ProductID: e.cfg.Entitlement.ProductID,
	}
	e.gate = usage.NewGate(e.store, premium, e.cfg.Usage.MonthlyLimit, nil)

	var err error
	out := captureOutput(t, func() {
		err = (&AddCommand{Mood: "neutral", Interpret: true, globals: &GlobalFlags{}}).
			executeWithEnv(ctx, e, []string{"a dream"})
	})
	require.NoError(t, err)
	assert.NotContains(t, out, "remaining this month")

	raw, ok, err := e.store.GetState(ctx, usage.KeyCount)
	require.NoError(t, err)
	if ok {
		assert.Equal(t, "0", raw)
	}
}

func TestAddCommand_JSONOutput(t *testing.T) {
	e := newTestEnv(t, nil)

	var err error
	out := captureOutput(t, func() {
		err = (&AddCommand{Title: "Moon", Mood: "lucid", Lucid: true, globals: &GlobalFlags{JSON: true}}).
			executeWithEnv(context.Background(), e, []string{"I knew I was dreaming"})
	})
	require.NoError(t, err)

	var got entryJSON
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.NotEmpty(t, got.ID)
	assert.Equal(t, "Moon", got.Title)
	assert.Equal(t, "lucid", got.Mood)
	assert.True(t, got.Lucid)
	assert.Equal(t, "I knew I was dreaming", got.Body)
}
