package cli

import (
	"context"
	"fmt"

	"github.com/runnerr0/dreamlog/internal/streak"
)

// Execute implements the go-flags Commander interface for StreakCommand.
func (c *StreakCommand) Execute(args []string) error {
	return withEnv(c.globals, func(ctx context.Context, e *env) error {
		return c.executeWithEnv(ctx, e, args)
	})
}

func (c *StreakCommand) executeWithEnv(ctx context.Context, e *env, args []string) error {
	res, err := e.journal.Streak(ctx, e.now())
	if err != nil {
		return err
	}
	motivation := streak.Motivation(res.Current)

	if c.globals != nil && c.globals.JSON {
		return printJSON(struct {
			streak.Result
			Motivation string `json:"motivation"`
		}{res, motivation})
	}

	fmt.Printf("Current streak: %s\n", plural(res.Current, "day"))
	fmt.Printf("Longest streak: %s\n", plural(res.Longest, "day"))
	fmt.Println()
	fmt.Println(motivation)
	return nil
}
