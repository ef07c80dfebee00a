package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/runnerr0/dreamlog/internal/apperror"
	"github.com/runnerr0/dreamlog/internal/backup"
)

// Execute implements the go-flags Commander interface for ExportCommand.
func (c *ExportCommand) Execute(args []string) error {
	return withEnv(c.globals, func(ctx context.Context, e *env) error {
		return c.executeWithEnv(ctx, e, args)
	})
}

func (c *ExportCommand) executeWithEnv(ctx context.Context, e *env, args []string) error {
	path := firstArg(c.Output, args)
	if path == "-" {
		_, err := e.backup.Export(ctx, os.Stdout)
		return err
	}
	if path == "" {
		path = backup.Filename(e.now())
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return apperror.Storage("export", err)
	}
	doc, err := e.backup.Export(ctx, f)
	if cerr := f.Close(); err == nil && cerr != nil {
		err = apperror.Storage("export", cerr)
	}
	if err != nil {
		os.Remove(path)
		return err
	}

	if c.globals != nil && c.globals.JSON {
		return printJSON(map[string]interface{}{
			"path":     path,
			"entries":  len(doc.Entries),
			"symbols":  len(doc.Symbols),
			"patterns": len(doc.Patterns),
		})
	}
	fmt.Printf("Exported %d entries, %d symbols and %d patterns to %s\n",
		len(doc.Entries), len(doc.Symbols), len(doc.Patterns), path)
	return nil
}

// Execute implements the go-flags Commander interface for ImportCommand.
func (c *ImportCommand) Execute(args []string) error {
	return withEnv(c.globals, func(ctx context.Context, e *env) error {
		return c.executeWithEnv(ctx, e, args)
	})
}

func (c *ImportCommand) executeWithEnv(ctx context.Context, e *env, args []string) error {
	path := firstArg(c.File, args)
	if path == "" {
		return apperror.Validation("import", "a backup file is required")
	}

	var r io.Reader = e.stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return apperror.Storage("import", err)
		}
		defer f.Close()
		r = f
	}

	res, err := e.backup.Import(ctx, r)
	if err != nil {
		return err
	}

	if c.globals != nil && c.globals.JSON {
		return printJSON(res)
	}
	if res.Total() == 0 {
		fmt.Printf("Nothing new to import (%d skipped)\n", res.Skipped)
		return nil
	}
	fmt.Printf("Imported %d entries, %d symbols and %d patterns (%d skipped)\n",
		res.EntriesImported, res.SymbolsImported, res.PatternsImported, res.Skipped)
	return nil
}
