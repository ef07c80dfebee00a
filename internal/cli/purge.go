package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/runnerr0/dreamlog/internal/apperror"
)

// Execute implements the go-flags Commander interface for PurgeCommand.
func (c *PurgeCommand) Execute(args []string) error {
	if !c.All {
		return apperror.Validation("purge", "purge requires --all flag for safety")
	}
	return withEnv(c.globals, func(ctx context.Context, e *env) error {
		return c.executeWithEnv(ctx, e, args)
	})
}

func (c *PurgeCommand) executeWithEnv(ctx context.Context, e *env, args []string) error {
	if !c.All {
		return apperror.Validation("purge", "purge requires --all flag for safety")
	}

	// Confirmation prompt unless --force
	if !c.Force {
		in := c.stdin
		if in == nil {
			in = e.stdin
		}
		if err := confirmPurge(in); err != nil {
			return err
		}
	}

	if err := e.store.PurgeAll(ctx); err != nil {
		return apperror.Storage("purge", err)
	}

	if c.globals != nil && c.globals.JSON {
		return printJSON(map[string]interface{}{
			"purged":  true,
			"message": "all data deleted",
		})
	}

	fmt.Println("Purged all data. The journal is empty.")
	return nil
}

func confirmPurge(in io.Reader) error {
	fmt.Println("⚠ WARNING: This will permanently delete ALL journal data.")
	fmt.Println("  - All dream entries")
	fmt.Println("  - All symbols")
	fmt.Println("  - All pattern analyses")
	fmt.Println()
	fmt.Println("This action cannot be undone.")
	fmt.Println()
	fmt.Print(`Type "PURGE" to confirm: `)

	scanner := bufio.NewScanner(in)
	if !scanner.Scan() {
		return fmt.Errorf("aborted: no input received")
	}
	if strings.TrimSpace(scanner.Text()) != "PURGE" {
		return fmt.Errorf("aborted: confirmation text did not match")
	}
	return nil
}
