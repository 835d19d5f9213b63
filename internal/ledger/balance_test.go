package ledger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunningBalancesReplayInOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// Expense on day 10, payment on day 15; replay order is by date even
	// though the payment is reconciled first.
	p := f.completedPayment(t, "100.00", "TXN-1", f.invoiceID)
	_, err := f.svc.ReconcilePayment(ctx, p.ID)
	require.NoError(t, err)

	e := f.expense(t, "25.00")
	_, err = f.svc.ReconcileExpense(ctx, e.ID)
	require.NoError(t, err)

	recalc := NewRecalculator(f.store, testLogger())
	n, err := recalc.Recalculate(ctx, &f.universityID)
	require.NoError(t, err)
	assert.EqualValues(t, 4, n)

	lines, err := f.store.Lines(ctx, Filter{UniversityID: &f.universityID})
	require.NoError(t, err)
	require.Len(t, lines, 4)

	// day 10: expense debit +25, cash credit -25; day 15: cash debit +100,
	// receivable credit -100.
	wantBalances := []string{"25.00", "0.00", "100.00", "0.00"}
	for i, want := range wantBalances {
		assert.True(t, lines[i].RunningBalance.Equal(dec(want)),
			"line %d: want balance %s got %s", i, want, lines[i].RunningBalance)
	}
}

func TestRecalculateIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	p := f.completedPayment(t, "100.00", "TXN-1", f.invoiceID)
	_, err := f.svc.ReconcilePayment(ctx, p.ID)
	require.NoError(t, err)

	recalc := NewRecalculator(f.store, testLogger())
	_, err = recalc.Recalculate(ctx, nil)
	require.NoError(t, err)
	first := f.allLines(t)

	_, err = recalc.Recalculate(ctx, nil)
	require.NoError(t, err)
	second := f.allLines(t)

	require.Len(t, second, len(first))
	for i := range first {
		assert.True(t, first[i].RunningBalance.Equal(second[i].RunningBalance))
	}
}

func TestReversalCancelsRunningBalanceContribution(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	p := f.completedPayment(t, "100.00", "TXN-1", f.invoiceID)
	_, err := f.svc.ReconcilePayment(ctx, p.ID)
	require.NoError(t, err)

	require.NoError(t, f.repo.DeletePayment(ctx, p.ID))
	_, err = f.svc.ReconcilePayment(ctx, p.ID)
	require.NoError(t, err)

	lines, err := f.store.Lines(ctx, Filter{UniversityID: &f.universityID})
	require.NoError(t, err)
	require.Len(t, lines, 4)
	last := lines[len(lines)-1]
	assert.True(t, last.RunningBalance.IsZero(),
		"final balance should be zero after reversal, got %s", last.RunningBalance)
}

func TestUnscopedLinesSkippedForScopedBalances(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// A payment with no invoice has no university attribution.
	orphan := f.completedPayment(t, "40.00", "TXN-ORPHAN", f.invoiceID)
	orphan.InvoiceID = nil
	require.NoError(t, f.repo.SavePayment(ctx, orphan))
	_, err := f.svc.ReconcilePayment(ctx, orphan.ID)
	require.NoError(t, err)

	scoped := f.completedPayment(t, "100.00", "TXN-1", f.invoiceID)
	_, err = f.svc.ReconcilePayment(ctx, scoped.ID)
	require.NoError(t, err)

	recalc := NewRecalculator(f.store, testLogger())
	n, err := recalc.Recalculate(ctx, &f.universityID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n, "only the scoped payment's lines are replayed")

	unscoped, err := f.store.Lines(ctx, Filter{OnlyUnscoped: true})
	require.NoError(t, err)
	assert.Len(t, unscoped, 2, "orphan lines remain globally valid entries")
}
