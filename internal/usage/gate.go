// Package usage enforces the monthly allowance of free AI interpretations.
//
// The counter lives in the app_state table and resets whenever the stored
// reset month differs from the current calendar month. Premium users bypass
// the counter and are never recorded.
package usage

import (
	"context"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/runnerr0/dreamlog/internal/apperror"
)

// App state keys.
const (
	KeyCount     = "usage.count"
	KeyLastReset = "usage.last_reset"
)

// StateStore is the key/value persistence the gate needs.
type StateStore interface {
	GetState(ctx context.Context, key string) (string, bool, error)
	SetState(ctx context.Context, key, value string) error
}

// PremiumChecker reports whether the user holds a valid purchase.
type PremiumChecker interface {
	HasPremium(ctx context.Context) (bool, error)
}

// Status is a snapshot of the allowance.
type Status struct {
	Premium   bool      `json:"premium"`
	Used      int       `json:"used"`
	Limit     int       `json:"limit"`
	Remaining int       `json:"remaining"`
	LastReset time.Time `json:"last_reset"`
	NextReset time.Time `json:"next_reset"`
}

// Gate tracks free-tier usage.
type Gate struct {
	store   StateStore
	premium PremiumChecker
	limit   int
	logger  *zap.Logger
}

// NewGate creates a Gate allowing limit uses per month. premium may be nil.
func NewGate(store StateStore, premium PremiumChecker, limit int, logger *zap.Logger) *Gate {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gate{store: store, premium: premium, limit: limit, logger: logger}
}

// Remaining returns max(0, limit - used this month).
func (g *Gate) Remaining(ctx context.Context, now time.Time) (int, error) {
	used, _, err := g.current(ctx, now)
	if err != nil {
		return 0, err
	}
	return remaining(g.limit, used), nil
}

// CanUse reports whether another interpretation is allowed.
func (g *Gate) CanUse(ctx context.Context, now time.Time) (bool, error) {
	if g.hasPremium(ctx) {
		return true, nil
	}
	used, _, err := g.current(ctx, now)
	if err != nil {
		return false, err
	}
	return used < g.limit, nil
}

// Check returns a QuotaExceeded error when no free use is left.
func (g *Gate) Check(ctx context.Context, now time.Time) error {
	ok, err := g.CanUse(ctx, now)
	if err != nil {
		return err
	}
	if !ok {
		return apperror.QuotaExceeded("usage.Check", g.limit)
	}
	return nil
}

// Record counts one use. Premium users are not counted.
func (g *Gate) Record(ctx context.Context, now time.Time) error {
	const op = "usage.Record"

	if g.hasPremium(ctx) {
		return nil
	}
	used, _, err := g.current(ctx, now)
	if err != nil {
		return err
	}
	used++
	if err := g.store.SetState(ctx, KeyCount, strconv.Itoa(used)); err != nil {
		return apperror.Storage(op, err)
	}
	g.logger.Info("ai usage recorded", zap.Int("used", used), zap.Int("limit", g.limit))
	return nil
}

// NextReset returns the first instant of the month after the last reset,
// in now's location. The bool is false before the first use of the gate.
func (g *Gate) NextReset(ctx context.Context, now time.Time) (time.Time, bool, error) {
	last, ok, err := g.lastReset(ctx)
	if err != nil || !ok {
		return time.Time{}, ok, err
	}
	return startOfMonth(last.In(now.Location())).AddDate(0, 1, 0), true, nil
}

// Reset zeroes the counter and stamps now as the reset time.
func (g *Gate) Reset(ctx context.Context, now time.Time) error {
	const op = "usage.Reset"
	if err := g.store.SetState(ctx, KeyCount, "0"); err != nil {
		return apperror.Storage(op, err)
	}
	if err := g.store.SetState(ctx, KeyLastReset, now.UTC().Format(time.RFC3339)); err != nil {
		return apperror.Storage(op, err)
	}
	return nil
}

// Status returns the full allowance snapshot.
func (g *Gate) Status(ctx context.Context, now time.Time) (*Status, error) {
	used, last, err := g.current(ctx, now)
	if err != nil {
		return nil, err
	}
	return &Status{
		Premium:   g.hasPremium(ctx),
		Used:      used,
		Limit:     g.limit,
		Remaining: remaining(g.limit, used),
		LastReset: last,
		NextReset: startOfMonth(last.In(now.Location())).AddDate(0, 1, 0),
	}, nil
}

// current applies a pending monthly reset and returns the used count and
// last reset time.
func (g *Gate) current(ctx context.Context, now time.Time) (int, time.Time, error) {
	const op = "usage.current"

	last, ok, err := g.lastReset(ctx)
	if err != nil {
		return 0, time.Time{}, err
	}
	if !ok || !sameMonth(last.In(now.Location()), now) {
		if ok {
			g.logger.Info("monthly ai usage reset", zap.Time("last_reset", last))
		}
		if err := g.Reset(ctx, now); err != nil {
			return 0, time.Time{}, err
		}
		return 0, now.UTC().Truncate(time.Second), nil
	}

	raw, found, err := g.store.GetState(ctx, KeyCount)
	if err != nil {
		return 0, time.Time{}, apperror.Storage(op, err)
	}
	if !found {
		return 0, last, nil
	}
	used, err := strconv.Atoi(raw)
	if err != nil || used < 0 {
		g.logger.Warn("invalid usage counter, treating as zero", zap.String("value", raw))
		return 0, last, nil
	}
	return used, last, nil
}

func (g *Gate) lastReset(ctx context.Context) (time.Time, bool, error) {
	raw, ok, err := g.store.GetState(ctx, KeyLastReset)
	if err != nil {
		return time.Time{}, false, apperror.Storage("usage.lastReset", err)
	}
	if !ok {
		return time.Time{}, false, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		g.logger.Warn("invalid usage reset time, resetting", zap.String("value", raw))
		return time.Time{}, false, nil
	}
	return t, true, nil
}

// hasPremium treats a failed verification as the free tier; the failure
// is logged.
func (g *Gate) hasPremium(ctx context.Context) bool {
	if g.premium == nil {
		return false
	}
	ok, err := g.premium.HasPremium(ctx)
	if err != nil {
		g.logger.Warn("premium check failed, using free tier", zap.Error(err))
		return false
	}
	return ok
}

func remaining(limit, used int) int {
	if r := limit - used; r > 0 {
		return r
	}
	return 0
}

func sameMonth(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month()
}

func startOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}
