package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kunal-ak23/university-tracker-sub000/internal/ledger"
	"github.com/kunal-ak23/university-tracker-sub000/internal/logging"
	"github.com/kunal-ak23/university-tracker-sub000/internal/source"
)

func envelope(t *testing.T, typ Type, payload any) Envelope {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	return Envelope{ID: uuid.New(), Type: typ, OccurredAt: time.Now().UTC(), Payload: raw}
}

func TestHandlerRecordsSavedExpense(t *testing.T) {
	repo := source.NewMemoryRepository()
	store := ledger.NewMemoryStore()
	svc := ledger.NewService(repo, store, nil, logging.Discard())
	h := NewHandler(repo, svc, logging.Discard())
	ctx := context.Background()

	universityID := uuid.New()
	e := source.Expense{
		ID:           uuid.New(),
		UniversityID: &universityID,
		Amount:       decimal.RequireFromString("30.00"),
		Category:     "operations",
		IncurredDate: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		CreatedAt:    time.Now().UTC(),
	}
	require.NoError(t, h.Handle(ctx, envelope(t, TypeExpenseSaved, e)))

	stored, err := repo.Expense(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, e.ID, stored.ID)

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, count)
}

func TestHandlerReversesOnDelete(t *testing.T) {
	repo := source.NewMemoryRepository()
	store := ledger.NewMemoryStore()
	svc := ledger.NewService(repo, store, nil, logging.Discard())
	h := NewHandler(repo, svc, logging.Discard())
	ctx := context.Background()

	e := source.Expense{
		ID:           uuid.New(),
		Amount:       decimal.RequireFromString("30.00"),
		Category:     "operations",
		IncurredDate: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		CreatedAt:    time.Now().UTC(),
	}
	require.NoError(t, h.Handle(ctx, envelope(t, TypeExpenseSaved, e)))
	require.NoError(t, h.Handle(ctx, envelope(t, TypeExpenseDeleted, Deleted{ID: e.ID})))

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 4, count, "delete appends reversals, never removes")
}

func TestHandlerRedeliveryIsIdempotent(t *testing.T) {
	repo := source.NewMemoryRepository()
	store := ledger.NewMemoryStore()
	svc := ledger.NewService(repo, store, nil, logging.Discard())
	h := NewHandler(repo, svc, logging.Discard())
	ctx := context.Background()

	e := source.Expense{
		ID:           uuid.New(),
		Amount:       decimal.RequireFromString("30.00"),
		Category:     "operations",
		IncurredDate: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		CreatedAt:    time.Now().UTC(),
	}
	env := envelope(t, TypeExpenseSaved, e)
	require.NoError(t, h.Handle(ctx, env))
	require.NoError(t, h.Handle(ctx, env))

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, count)
}

// Collaborators emit snake_case keys end to end; the source records must
// decode from the same convention the envelope uses.
func TestHandlerDecodesSnakeCaseWireFormat(t *testing.T) {
	repo := source.NewMemoryRepository()
	store := ledger.NewMemoryStore()
	svc := ledger.NewService(repo, store, nil, logging.Discard())
	h := NewHandler(repo, svc, logging.Discard())
	ctx := context.Background()

	paymentID := uuid.New()
	invoiceID := uuid.New()
	raw := []byte(`{
		"id": "` + uuid.NewString() + `",
		"type": "payment.saved",
		"occurred_at": "2025-03-01T09:00:00Z",
		"payload": {
			"id": "` + paymentID.String() + `",
			"invoice_id": "` + invoiceID.String() + `",
			"name": "March installment",
			"amount": "120.50",
			"payment_date": "2025-03-01T00:00:00Z",
			"payment_method": "bank_transfer",
			"status": "completed",
			"transaction_reference": "TXN-9",
			"created_at": "2025-03-01T09:00:00Z"
		}
	}`)

	var env Envelope
	require.NoError(t, json.Unmarshal(raw, &env))
	require.NoError(t, h.Handle(ctx, env))

	stored, err := repo.Payment(ctx, paymentID)
	require.NoError(t, err)
	require.NotNil(t, stored.InvoiceID)
	assert.Equal(t, invoiceID, *stored.InvoiceID)
	assert.Equal(t, source.StatusCompleted, stored.Status)
	assert.Equal(t, "TXN-9", stored.TransactionReference)
	assert.True(t, stored.Amount.Equal(decimal.RequireFromString("120.50")))

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, count)
}

func TestHandlerDropsUnknownType(t *testing.T) {
	repo := source.NewMemoryRepository()
	store := ledger.NewMemoryStore()
	svc := ledger.NewService(repo, store, nil, logging.Discard())
	h := NewHandler(repo, svc, logging.Discard())

	env := Envelope{ID: uuid.New(), Type: Type("billing.saved"), Payload: json.RawMessage(`{}`)}
	require.NoError(t, h.Handle(context.Background(), env))

	count, err := store.Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, count)
}
