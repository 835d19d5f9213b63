package ledger

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Recalculator recomputes running balances by replaying lines in
// (transaction_date, created_at) order within each scope. It is idempotent
// and touches nothing but the derived running_balance field, so it is safe
// to call more often than strictly necessary.
type Recalculator struct {
	store  Store
	logger *slog.Logger
}

func NewRecalculator(store Store, logger *slog.Logger) *Recalculator {
	return &Recalculator{store: store, logger: logger}
}

// Recalculate recomputes running balances for one university scope, or for
// every scope (plus the unscoped sequence) when universityID is nil. It
// returns the number of lines updated.
func (r *Recalculator) Recalculate(ctx context.Context, universityID *uuid.UUID) (int64, error) {
	if universityID != nil {
		return r.recalculateScope(ctx, Filter{UniversityID: universityID})
	}

	scopes, err := r.store.Scopes(ctx)
	if err != nil {
		return 0, fmt.Errorf("list scopes: %w", err)
	}

	var total int64
	for _, scope := range scopes {
		scope := scope
		n, err := r.recalculateScope(ctx, Filter{UniversityID: &scope})
		if err != nil {
			return total, err
		}
		total += n
	}

	// Lines without a university still form a globally valid sequence.
	n, err := r.recalculateScope(ctx, Filter{OnlyUnscoped: true})
	if err != nil {
		return total, err
	}
	total += n

	r.logger.Info("running balances recalculated", slog.Int64("lines", total), slog.Int("scopes", len(scopes)))
	return total, nil
}

func (r *Recalculator) recalculateScope(ctx context.Context, filter Filter) (int64, error) {
	lines, err := r.store.Lines(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("load scope lines: %w", err)
	}
	if len(lines) == 0 {
		return 0, nil
	}

	balance := decimal.Zero
	updates := make([]BalanceUpdate, 0, len(lines))
	for _, line := range lines {
		balance = balance.Add(line.SignedAmount())
		updates = append(updates, BalanceUpdate{LineID: line.ID, Balance: balance})
	}

	if err := r.store.UpdateRunningBalances(ctx, updates); err != nil {
		return 0, fmt.Errorf("persist balances: %w", err)
	}
	return int64(len(updates)), nil
}
