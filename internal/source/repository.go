package source

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrNotFound indicates the requested source object does not exist (or was
// deleted by the owning application).
var ErrNotFound = errors.New("source object not found")

// Repository exposes the business-transaction state the ledger engine
// observes. Writes exist so event intake can mirror the collaborator's
// committed state; the engine itself never mutates business data beyond
// that mirroring.
//
// List methods return rows ordered by (business date, created_at) ascending,
// the replay order the rebuild driver depends on.
type Repository interface {
	Payment(ctx context.Context, id uuid.UUID) (Payment, error)
	SavePayment(ctx context.Context, p Payment) error
	DeletePayment(ctx context.Context, id uuid.UUID) error
	ListPayments(ctx context.Context) ([]Payment, error)

	OEMPayment(ctx context.Context, id uuid.UUID) (OEMPayment, error)
	SaveOEMPayment(ctx context.Context, p OEMPayment) error
	DeleteOEMPayment(ctx context.Context, id uuid.UUID) error
	ListOEMPayments(ctx context.Context) ([]OEMPayment, error)

	Expense(ctx context.Context, id uuid.UUID) (Expense, error)
	SaveExpense(ctx context.Context, e Expense) error
	DeleteExpense(ctx context.Context, id uuid.UUID) error
	ListExpenses(ctx context.Context) ([]Expense, error)

	Invoice(ctx context.Context, id uuid.UUID) (Invoice, error)
	SaveInvoice(ctx context.Context, inv Invoice) error
	Billing(ctx context.Context, id uuid.UUID) (Billing, error)
	SaveBilling(ctx context.Context, b Billing) error
	Batch(ctx context.Context, id uuid.UUID) (Batch, error)
	SaveBatch(ctx context.Context, b Batch) error
	Contract(ctx context.Context, id uuid.UUID) (Contract, error)
	SaveContract(ctx context.Context, c Contract) error
}
