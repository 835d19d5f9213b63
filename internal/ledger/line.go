package ledger

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/kunal-ak23/university-tracker-sub000/internal/accounts"
)

var (
	// ErrUnbalancedEffect indicates an effect whose debit and credit sums
	// differ. This is a programming invariant violation, never user input;
	// the recorder refuses to persist any part of it.
	ErrUnbalancedEffect = errors.New("effect debits do not equal credits")

	// ErrConcurrentModification indicates two reconciliations raced on the
	// same source transaction. The losing attempt retries once against fresh
	// state before surfacing this error.
	ErrConcurrentModification = errors.New("concurrent ledger modification")
)

// TransactionType tags a line with the kind of domain event that produced it.
type TransactionType string

const (
	TypeIncome     TransactionType = "income"
	TypeOEMPayment TransactionType = "oem_payment"
	TypeExpense    TransactionType = "expense"
)

// SourceKind discriminates the tagged source-transaction reference.
type SourceKind string

const (
	KindPayment    SourceKind = "payment"
	KindOEMPayment SourceKind = "oem_payment"
	KindExpense    SourceKind = "expense"
)

// SourceRef ties a line to exactly one originating source transaction.
type SourceRef struct {
	Kind SourceKind
	ID   uuid.UUID
}

// Line is one immutable debit or credit entry. Once appended, every field
// except RunningBalance is frozen; corrections happen by appending reversal
// lines, never by editing. RunningBalance is a derived value owned by the
// balance recalculator.
type Line struct {
	ID              uuid.UUID
	Account         accounts.Account
	EntryType       accounts.EntryType
	Amount          decimal.Decimal
	TransactionDate time.Time
	TransactionType TransactionType
	Source          SourceRef

	// Attribution refs for reporting; any may be nil.
	InvoiceID    *uuid.UUID
	UniversityID *uuid.UUID
	OEMID        *uuid.UUID
	BillingID    *uuid.UUID

	ReferenceNumber string
	Description     string
	Notes           string

	// Reversing marks a line that exists purely to cancel a previously
	// recorded line; ReversedLineID names that line.
	Reversing      bool
	ReversedLineID *uuid.UUID

	RunningBalance decimal.Decimal
	CreatedAt      time.Time

	// Position is the store-assigned append index, used to break ordering
	// ties between lines created in the same instant.
	Position int64
}

// SignedAmount is the line's contribution to a running balance under the
// taxonomy's sign convention.
func (l Line) SignedAmount() decimal.Decimal {
	if l.Account.Sign(l.EntryType) < 0 {
		return l.Amount.Neg()
	}
	return l.Amount
}
