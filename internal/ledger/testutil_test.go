package ledger

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/kunal-ak23/university-tracker-sub000/internal/logging"
	"github.com/kunal-ak23/university-tracker-sub000/internal/source"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func testLogger() *slog.Logger {
	return logging.Discard()
}

func day(d int) time.Time {
	return time.Date(2025, 1, d, 0, 0, 0, 0, time.UTC)
}

// fixture builds the minimal business graph: one university with one batch
// under contract with one OEM, one billing over that batch, one invoice.
type fixture struct {
	repo  source.Repository
	store Store
	svc   *Service

	universityID uuid.UUID
	oemID        uuid.UUID
	contractID   uuid.UUID
	batchID      uuid.UUID
	billingID    uuid.UUID
	invoiceID    uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	f := &fixture{
		repo:         source.NewMemoryRepository(),
		store:        NewMemoryStore(),
		universityID: uuid.New(),
		oemID:        uuid.New(),
		contractID:   uuid.New(),
		batchID:      uuid.New(),
		billingID:    uuid.New(),
		invoiceID:    uuid.New(),
	}
	f.svc = NewService(f.repo, f.store, nil, logging.Discard())

	require.NoError(t, f.repo.SaveContract(ctx, source.Contract{ID: f.contractID, OEMID: &f.oemID}))
	require.NoError(t, f.repo.SaveBatch(ctx, source.Batch{ID: f.batchID, UniversityID: f.universityID, ContractID: &f.contractID}))
	require.NoError(t, f.repo.SaveBilling(ctx, source.Billing{ID: f.billingID, BatchIDs: []uuid.UUID{f.batchID}}))
	require.NoError(t, f.repo.SaveInvoice(ctx, source.Invoice{ID: f.invoiceID, BillingID: &f.billingID}))
	return f
}

func (f *fixture) addInvoice(t *testing.T) uuid.UUID {
	t.Helper()
	id := uuid.New()
	require.NoError(t, f.repo.SaveInvoice(context.Background(), source.Invoice{ID: id, BillingID: &f.billingID}))
	return id
}

func (f *fixture) completedPayment(t *testing.T, amount, reference string, invoiceID uuid.UUID) source.Payment {
	t.Helper()
	p := source.Payment{
		ID:                   uuid.New(),
		InvoiceID:            &invoiceID,
		Name:                 "Test Payment",
		Amount:               dec(amount),
		PaymentDate:          day(15),
		PaymentMethod:        "bank_transfer",
		Status:               source.StatusCompleted,
		TransactionReference: reference,
		CreatedAt:            time.Now().UTC(),
	}
	require.NoError(t, f.repo.SavePayment(context.Background(), p))
	return p
}

func (f *fixture) completedOEMPayment(t *testing.T, amount, reference string) source.OEMPayment {
	t.Helper()
	p := source.OEMPayment{
		ID:              uuid.New(),
		OEMID:           &f.oemID,
		InvoiceID:       &f.invoiceID,
		BillingID:       &f.billingID,
		Amount:          dec(amount),
		PaymentDate:     day(20),
		PaymentMethod:   "bank_transfer",
		Status:          source.StatusCompleted,
		ReferenceNumber: reference,
		Description:     "OEM transfer",
		CreatedAt:       time.Now().UTC(),
	}
	require.NoError(t, f.repo.SaveOEMPayment(context.Background(), p))
	return p
}

func (f *fixture) expense(t *testing.T, amount string) source.Expense {
	t.Helper()
	e := source.Expense{
		ID:           uuid.New(),
		UniversityID: &f.universityID,
		Amount:       dec(amount),
		Category:     "operations",
		IncurredDate: day(10),
		Description:  "Test expense",
		CreatedAt:    time.Now().UTC(),
	}
	require.NoError(t, f.repo.SaveExpense(context.Background(), e))
	return e
}

func (f *fixture) allLines(t *testing.T) []Line {
	t.Helper()
	lines, err := f.store.Lines(context.Background(), Filter{})
	require.NoError(t, err)
	return lines
}
