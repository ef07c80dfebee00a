package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/runnerr0/dreamlog/internal/apperror"
	"github.com/runnerr0/dreamlog/internal/journal"
	"github.com/runnerr0/dreamlog/internal/storage"
	"github.com/runnerr0/dreamlog/internal/voice"
)

// Execute implements the go-flags Commander interface for RecordCommand.
func (c *RecordCommand) Execute(args []string) error {
	return withEnv(c.globals, func(ctx context.Context, e *env) error {
		return c.executeWithEnv(ctx, e, args)
	})
}

func (c *RecordCommand) executeWithEnv(ctx context.Context, e *env, args []string) error {
	if _, err := storage.ParseMood(c.Mood); err != nil {
		return apperror.Validation("record", err.Error())
	}

	rec := c.recognizer
	if rec == nil {
		rec = voice.NewLineRecognizer(c.source(e))
	}

	fmt.Fprintln(os.Stderr, "Recording... press Ctrl+C to stop.")
	res, err := voice.NewRecorder(rec, e.logger).Record(ctx, func(partial string) {
		fmt.Fprintf(os.Stderr, "  %s\n", partial)
	})
	if err != nil {
		if res.Text == "" {
			return err
		}
		e.logger.Warn("recording ended early, keeping partial transcript", zap.Error(err))
	}
	if strings.TrimSpace(res.Text) == "" {
		return apperror.Validation("record", "nothing was recognized")
	}

	// An interrupt ends the recording but must not abort the save.
	ctx = context.WithoutCancel(ctx)

	var entry *storage.Entry
	if c.ID != "" {
		current, err := e.journal.Get(ctx, c.ID)
		if err != nil {
			return err
		}
		draft := draftFromEntry(current)
		draft.Body = journal.AppendTranscript(current.Body, res.Text)
		if entry, err = e.journal.Update(ctx, current.ID, draft); err != nil {
			return err
		}
	} else {
		entry, err = e.journal.Create(ctx, journal.Draft{
			Title:     c.Title,
			Body:      res.Text,
			Mood:      storage.Mood(c.Mood),
			IsFlagged: c.Lucid,
		})
		if err != nil {
			return err
		}
	}

	if c.globals != nil && c.globals.JSON {
		return printJSON(struct {
			entryJSON
			DurationSeconds float64 `json:"duration_seconds"`
			Stopped         bool    `json:"stopped"`
		}{toEntryJSON(*entry, true), res.Duration.Seconds(), res.Stopped})
	}

	verb := "Added"
	if c.ID != "" {
		verb = "Appended transcript to"
	}
	fmt.Printf("%s entry %s\n", verb, entry.ID)
	fmt.Printf("  Recorded %.0fs, %d characters\n", res.Duration.Seconds(), len([]rune(res.Text)))
	return nil
}

// source opens the transcript stream. "-" reads the command's stdin.
func (c *RecordCommand) source(e *env) voice.OpenFunc {
	if c.Source == "" || c.Source == "-" {
		return func() (io.ReadCloser, error) {
			return io.NopCloser(e.stdin), nil
		}
	}
	return voice.FileSource(c.Source)
}
