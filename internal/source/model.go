package source

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Status is the lifecycle state of a payment-like source transaction.
// Only StatusCompleted transactions produce ledger entries.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Payment is money received from a university against an invoice. Owned
// and mutated by the surrounding CRUD application; the ledger engine only
// observes its field values when a state-change event fires.
type Payment struct {
	ID                   uuid.UUID       `json:"id"`
	InvoiceID            *uuid.UUID      `json:"invoice_id,omitempty"`
	Name                 string          `json:"name"`
	Amount               decimal.Decimal `json:"amount"`
	PaymentDate          time.Time       `json:"payment_date"`
	PaymentMethod        string          `json:"payment_method"`
	Status               Status          `json:"status"`
	TransactionReference string          `json:"transaction_reference"`
	Notes                string          `json:"notes,omitempty"`
	CreatedAt            time.Time       `json:"created_at"`
}

// OEMPayment is money paid out to an OEM course provider.
type OEMPayment struct {
	ID              uuid.UUID       `json:"id"`
	OEMID           *uuid.UUID      `json:"oem_id,omitempty"`
	InvoiceID       *uuid.UUID      `json:"invoice_id,omitempty"`
	BillingID       *uuid.UUID      `json:"billing_id,omitempty"`
	Amount          decimal.Decimal `json:"amount"`
	PaymentDate     time.Time       `json:"payment_date"`
	PaymentMethod   string          `json:"payment_method"`
	Status          Status          `json:"status"`
	ReferenceNumber string          `json:"reference_number"`
	Description     string          `json:"description,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
}

// Expense is an operating cost incurred against a university. Expenses have
// no status lifecycle; they qualify for the ledger unconditionally.
type Expense struct {
	ID           uuid.UUID       `json:"id"`
	UniversityID *uuid.UUID      `json:"university_id,omitempty"`
	Amount       decimal.Decimal `json:"amount"`
	Category     string          `json:"category"`
	IncurredDate time.Time       `json:"incurred_date"`
	Description  string          `json:"description,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}

// Invoice, Billing, Batch and Contract carry just enough of the business
// graph to resolve which university and OEM a transaction attributes to.
type Invoice struct {
	ID        uuid.UUID
	BillingID *uuid.UUID
}

// Billing groups batches for invoicing. BatchIDs preserves insertion order;
// attribution always follows the first batch.
type Billing struct {
	ID       uuid.UUID
	BatchIDs []uuid.UUID
}

type Batch struct {
	ID           uuid.UUID
	UniversityID uuid.UUID
	ContractID   *uuid.UUID
}

type Contract struct {
	ID    uuid.UUID
	OEMID *uuid.UUID
}
