package cli

import (
	"context"
	"fmt"

	"github.com/runnerr0/dreamlog/internal/apperror"
)

// Execute implements the go-flags Commander interface for DeleteCommand.
func (c *DeleteCommand) Execute(args []string) error {
	return withEnv(c.globals, func(ctx context.Context, e *env) error {
		return c.executeWithEnv(ctx, e, args)
	})
}

func (c *DeleteCommand) executeWithEnv(ctx context.Context, e *env, args []string) error {
	id := firstArg(c.ID, args)
	if id == "" {
		return apperror.Validation("delete", "--id is required")
	}

	if err := e.journal.Delete(ctx, id); err != nil {
		return err
	}

	if c.globals != nil && c.globals.JSON {
		return printJSON(map[string]interface{}{"deleted": true, "id": id})
	}
	fmt.Printf("Deleted entry %s\n", id)
	return nil
}
