package source

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ErrNoOEM indicates no OEM could be resolved for an OEM payment, neither
// directly nor through the billing's contracts. The payment must be skipped
// and surfaced for operator follow-up.
var ErrNoOEM = errors.New("no OEM resolved for payment")

// Attribution carries the reporting references an effect's lines are tagged
// with. Any field may be nil; a missing university only means scoped running
// balances skip the lines.
type Attribution struct {
	UniversityID *uuid.UUID
	OEMID        *uuid.UUID
	InvoiceID    *uuid.UUID
	BillingID    *uuid.UUID
}

// Resolver derives attribution from the business graph.
//
// The university rule follows the billing's first batch in insertion order.
// Billings spanning several universities therefore attribute everything to
// the first batch's university; this mirrors the historical behavior and is
// flagged for product clarification rather than corrected here.
type Resolver struct {
	repo Repository
}

func NewResolver(repo Repository) *Resolver {
	return &Resolver{repo: repo}
}

// ForPayment resolves attribution for a university payment through its
// invoice. A payment without an invoice, or whose billing has no batches,
// yields attribution without a university.
func (r *Resolver) ForPayment(ctx context.Context, p Payment) (Attribution, error) {
	att := Attribution{InvoiceID: p.InvoiceID}
	if p.InvoiceID == nil {
		return att, nil
	}

	inv, err := r.repo.Invoice(ctx, *p.InvoiceID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return att, nil
		}
		return Attribution{}, fmt.Errorf("resolve invoice %s: %w", p.InvoiceID, err)
	}
	att.BillingID = inv.BillingID
	if inv.BillingID == nil {
		return att, nil
	}

	universityID, err := r.universityForBilling(ctx, *inv.BillingID)
	if err != nil {
		return Attribution{}, err
	}
	att.UniversityID = universityID
	return att, nil
}

// ForOEMPayment resolves the OEM (required) and university (best effort) for
// an OEM payment. When the payment does not name an OEM directly, the
// billing's batch contracts are walked in order and the first contract with
// an OEM wins. ErrNoOEM is returned when every lookup comes up empty.
func (r *Resolver) ForOEMPayment(ctx context.Context, p OEMPayment) (Attribution, error) {
	att := Attribution{OEMID: p.OEMID, InvoiceID: p.InvoiceID, BillingID: p.BillingID}

	billingID := p.BillingID
	if billingID == nil && p.InvoiceID != nil {
		inv, err := r.repo.Invoice(ctx, *p.InvoiceID)
		if err != nil && !errors.Is(err, ErrNotFound) {
			return Attribution{}, fmt.Errorf("resolve invoice %s: %w", p.InvoiceID, err)
		}
		if err == nil {
			billingID = inv.BillingID
			att.BillingID = inv.BillingID
		}
	}

	if billingID != nil {
		universityID, err := r.universityForBilling(ctx, *billingID)
		if err != nil {
			return Attribution{}, err
		}
		att.UniversityID = universityID
	}

	if att.OEMID == nil && billingID != nil {
		oemID, err := r.oemForBilling(ctx, *billingID)
		if err != nil {
			return Attribution{}, err
		}
		att.OEMID = oemID
	}

	if att.OEMID == nil {
		return att, ErrNoOEM
	}
	return att, nil
}

// ForExpense attributes an expense to the university it was incurred for.
func (r *Resolver) ForExpense(_ context.Context, e Expense) (Attribution, error) {
	return Attribution{UniversityID: e.UniversityID}, nil
}

func (r *Resolver) universityForBilling(ctx context.Context, billingID uuid.UUID) (*uuid.UUID, error) {
	billing, err := r.repo.Billing(ctx, billingID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("resolve billing %s: %w", billingID, err)
	}
	if len(billing.BatchIDs) == 0 {
		return nil, nil
	}

	// First batch in insertion order decides the university.
	batch, err := r.repo.Batch(ctx, billing.BatchIDs[0])
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("resolve batch %s: %w", billing.BatchIDs[0], err)
	}
	universityID := batch.UniversityID
	return &universityID, nil
}

func (r *Resolver) oemForBilling(ctx context.Context, billingID uuid.UUID) (*uuid.UUID, error) {
	billing, err := r.repo.Billing(ctx, billingID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("resolve billing %s: %w", billingID, err)
	}

	for _, batchID := range billing.BatchIDs {
		batch, err := r.repo.Batch(ctx, batchID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				continue
			}
			return nil, fmt.Errorf("resolve batch %s: %w", batchID, err)
		}
		if batch.ContractID == nil {
			continue
		}
		contract, err := r.repo.Contract(ctx, *batch.ContractID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				continue
			}
			return nil, fmt.Errorf("resolve contract %s: %w", batch.ContractID, err)
		}
		if contract.OEMID != nil {
			return contract.OEMID, nil
		}
	}
	return nil, nil
}
