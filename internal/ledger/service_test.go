package ledger

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kunal-ak23/university-tracker-sub000/internal/accounts"
	"github.com/kunal-ak23/university-tracker-sub000/internal/notification"
	"github.com/kunal-ak23/university-tracker-sub000/internal/source"
)

type captureNotifier struct {
	messages []notification.Message
}

func (n *captureNotifier) Send(_ context.Context, msg notification.Message) error {
	n.messages = append(n.messages, msg)
	return nil
}

func sumWhere(lines []Line, account accounts.Account, entry accounts.EntryType) decimal.Decimal {
	total := decimal.Zero
	for _, line := range lines {
		if line.Account == account && line.EntryType == entry {
			total = total.Add(line.Amount)
		}
	}
	return total
}

// Two payments against two invoices of one university plus an OEM payment
// amended from 250 to 300: receivable credits total 450, net cash is 150,
// net OEM payable is 300, and the OEM payment carries 6 lines of which 2
// reverse.
func TestReceivableAndOEMAdjustmentTotals(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	p1 := f.completedPayment(t, "200.00", "TXN-001", f.invoiceID)
	_, err := f.svc.ReconcilePayment(ctx, p1.ID)
	require.NoError(t, err)

	invoice2 := f.addInvoice(t)
	p2 := f.completedPayment(t, "250.00", "TXN-002", invoice2)
	_, err = f.svc.ReconcilePayment(ctx, p2.ID)
	require.NoError(t, err)

	op := f.completedOEMPayment(t, "250.00", "OEM-123")
	_, err = f.svc.ReconcileOEMPayment(ctx, op.ID)
	require.NoError(t, err)

	op.Amount = dec("300.00")
	require.NoError(t, f.repo.SaveOEMPayment(ctx, op))
	_, err = f.svc.ReconcileOEMPayment(ctx, op.ID)
	require.NoError(t, err)

	lines := f.allLines(t)

	receivableCredits := sumWhere(lines, accounts.AccountsReceivable, accounts.Credit)
	assert.True(t, receivableCredits.Equal(dec("450.00")), "receivable credits: %s", receivableCredits)

	cashNet := sumWhere(lines, accounts.Cash, accounts.Debit).Sub(sumWhere(lines, accounts.Cash, accounts.Credit))
	assert.True(t, cashNet.Equal(dec("150.00")), "cash net: %s", cashNet)

	oemNet := sumWhere(lines, accounts.OEMPayable, accounts.Debit).Sub(sumWhere(lines, accounts.OEMPayable, accounts.Credit))
	assert.True(t, oemNet.Equal(dec("300.00")), "oem payable net: %s", oemNet)

	ref := SourceRef{Kind: KindOEMPayment, ID: op.ID}
	oemLines, err := f.store.LinesBySource(ctx, ref)
	require.NoError(t, err)
	assert.Len(t, oemLines, 6)
	reversing := 0
	for _, line := range oemLines {
		if line.Reversing {
			reversing++
		}
	}
	assert.Equal(t, 2, reversing)
}

func TestOEMPaymentWithoutOEMIsSkippedAndSurfaced(t *testing.T) {
	repo := source.NewMemoryRepository()
	store := NewMemoryStore()
	notifier := &captureNotifier{}
	svc := NewService(repo, store, notifier, testLogger())
	ctx := context.Background()

	op := source.OEMPayment{
		ID:          uuid.New(),
		Amount:      dec("50.00"),
		PaymentDate: day(20),
		Status:      source.StatusCompleted,
	}
	require.NoError(t, repo.SaveOEMPayment(ctx, op))

	res, err := svc.ReconcileOEMPayment(ctx, op.ID)
	require.NoError(t, err)
	assert.True(t, res.Skipped)

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count, "no partial lines may be written")

	require.Len(t, notifier.messages, 1)
	assert.Equal(t, notification.KindAttributionFailure, notifier.messages[0].Kind)
	assert.Equal(t, op.ID.String(), notifier.messages[0].SourceID)
}

func TestFailureIsScopedToTriggeringEvent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	p := f.completedPayment(t, "100.00", "TXN-1", f.invoiceID)
	_, err := f.svc.ReconcilePayment(ctx, p.ID)
	require.NoError(t, err)

	// An unknown id reconciles as a deletion of nothing: a no-op, and the
	// committed lines for the first payment stay intact.
	res, err := f.svc.ReconcilePayment(ctx, uuid.New())
	require.NoError(t, err)
	assert.True(t, res.Skipped)
	assert.Len(t, f.allLines(t), 2)
}
