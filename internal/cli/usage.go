package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/runnerr0/dreamlog/internal/apperror"
)

// Execute implements the go-flags Commander interface for UsageCommand.
func (c *UsageCommand) Execute(args []string) error {
	return withEnv(c.globals, func(ctx context.Context, e *env) error {
		return c.executeWithEnv(ctx, e, args)
	})
}

func (c *UsageCommand) executeWithEnv(ctx context.Context, e *env, args []string) error {
	now := e.now()
	if c.Reset {
		if err := e.gate.Reset(ctx, now); err != nil {
			return err
		}
	}

	st, err := e.gate.Status(ctx, now)
	if err != nil {
		return err
	}

	if c.globals != nil && c.globals.JSON {
		return printJSON(st)
	}
	if st.Premium {
		fmt.Println("Premium: unlimited interpretations")
		return nil
	}
	fmt.Printf("Free interpretations: %d of %d used this month\n", st.Used, st.Limit)
	fmt.Printf("Remaining:            %d\n", st.Remaining)
	if !st.NextReset.IsZero() {
		fmt.Printf("Resets:               %s\n", st.NextReset.Local().Format("January 2, 2006"))
	}
	return nil
}

// Execute implements the go-flags Commander interface for UnlockCommand.
func (c *UnlockCommand) Execute(args []string) error {
	return withEnv(c.globals, func(ctx context.Context, e *env) error {
		return c.executeWithEnv(ctx, e, args)
	})
}

func (c *UnlockCommand) executeWithEnv(ctx context.Context, e *env, args []string) error {
	path := firstArg(c.Receipt, args)
	if path == "" {
		return apperror.Validation("unlock", "--receipt is required")
	}
	if e.receipts == nil {
		return &apperror.Error{
			Kind:       apperror.KindEntitlementFailure,
			Op:         "unlock",
			Title:      "Purchase Verification Failed",
			Message:    "no receipt public key is configured",
			Suggestion: "Set entitlement.public_key_file in the config file.",
		}
	}

	token, err := os.ReadFile(path)
	if err != nil {
		return apperror.Storage("unlock", err)
	}
	st, err := e.receipts.Install(ctx, string(token), e.cfg.Entitlement.ProductID)
	if err != nil {
		return err
	}
	if !st.Active() {
		return apperror.EntitlementFailure("unlock", fmt.Errorf("receipt for %s has been revoked", st.ProductID))
	}

	if c.globals != nil && c.globals.JSON {
		return printJSON(map[string]interface{}{"premium": true, "product_id": st.ProductID})
	}
	fmt.Println("Premium unlocked. Interpretations are now unlimited.")
	return nil
}
