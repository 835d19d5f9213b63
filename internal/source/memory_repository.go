package source

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
)

type memoryRepository struct {
	mu          sync.RWMutex
	payments    map[uuid.UUID]Payment
	oemPayments map[uuid.UUID]OEMPayment
	expenses    map[uuid.UUID]Expense
	invoices    map[uuid.UUID]Invoice
	billings    map[uuid.UUID]Billing
	batches     map[uuid.UUID]Batch
	contracts   map[uuid.UUID]Contract
}

// NewMemoryRepository constructs an in-memory repository for tests and for
// running the engine without a database.
func NewMemoryRepository() Repository {
	return &memoryRepository{
		payments:    make(map[uuid.UUID]Payment),
		oemPayments: make(map[uuid.UUID]OEMPayment),
		expenses:    make(map[uuid.UUID]Expense),
		invoices:    make(map[uuid.UUID]Invoice),
		billings:    make(map[uuid.UUID]Billing),
		batches:     make(map[uuid.UUID]Batch),
		contracts:   make(map[uuid.UUID]Contract),
	}
}

func (r *memoryRepository) Payment(_ context.Context, id uuid.UUID) (Payment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.payments[id]
	if !ok {
		return Payment{}, ErrNotFound
	}
	return p, nil
}

func (r *memoryRepository) SavePayment(_ context.Context, p Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.payments[p.ID] = p
	return nil
}

func (r *memoryRepository) DeletePayment(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.payments, id)
	return nil
}

func (r *memoryRepository) ListPayments(_ context.Context) ([]Payment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Payment, 0, len(r.payments))
	for _, p := range r.payments {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].PaymentDate.Equal(out[j].PaymentDate) {
			return out[i].PaymentDate.Before(out[j].PaymentDate)
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (r *memoryRepository) OEMPayment(_ context.Context, id uuid.UUID) (OEMPayment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.oemPayments[id]
	if !ok {
		return OEMPayment{}, ErrNotFound
	}
	return p, nil
}

func (r *memoryRepository) SaveOEMPayment(_ context.Context, p OEMPayment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.oemPayments[p.ID] = p
	return nil
}

func (r *memoryRepository) DeleteOEMPayment(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.oemPayments, id)
	return nil
}

func (r *memoryRepository) ListOEMPayments(_ context.Context) ([]OEMPayment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]OEMPayment, 0, len(r.oemPayments))
	for _, p := range r.oemPayments {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].PaymentDate.Equal(out[j].PaymentDate) {
			return out[i].PaymentDate.Before(out[j].PaymentDate)
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (r *memoryRepository) Expense(_ context.Context, id uuid.UUID) (Expense, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.expenses[id]
	if !ok {
		return Expense{}, ErrNotFound
	}
	return e, nil
}

func (r *memoryRepository) SaveExpense(_ context.Context, e Expense) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.expenses[e.ID] = e
	return nil
}

func (r *memoryRepository) DeleteExpense(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.expenses, id)
	return nil
}

func (r *memoryRepository) ListExpenses(_ context.Context) ([]Expense, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Expense, 0, len(r.expenses))
	for _, e := range r.expenses {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].IncurredDate.Equal(out[j].IncurredDate) {
			return out[i].IncurredDate.Before(out[j].IncurredDate)
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (r *memoryRepository) Invoice(_ context.Context, id uuid.UUID) (Invoice, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	inv, ok := r.invoices[id]
	if !ok {
		return Invoice{}, ErrNotFound
	}
	return inv, nil
}

func (r *memoryRepository) SaveInvoice(_ context.Context, inv Invoice) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.invoices[inv.ID] = inv
	return nil
}

func (r *memoryRepository) Billing(_ context.Context, id uuid.UUID) (Billing, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.billings[id]
	if !ok {
		return Billing{}, ErrNotFound
	}
	return b, nil
}

func (r *memoryRepository) SaveBilling(_ context.Context, b Billing) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.billings[b.ID] = b
	return nil
}

func (r *memoryRepository) Batch(_ context.Context, id uuid.UUID) (Batch, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.batches[id]
	if !ok {
		return Batch{}, ErrNotFound
	}
	return b, nil
}

func (r *memoryRepository) SaveBatch(_ context.Context, b Batch) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.batches[b.ID] = b
	return nil
}

func (r *memoryRepository) Contract(_ context.Context, id uuid.UUID) (Contract, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.contracts[id]
	if !ok {
		return Contract{}, ErrNotFound
	}
	return c, nil
}

func (r *memoryRepository) SaveContract(_ context.Context, c Contract) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.contracts[c.ID] = c
	return nil
}
