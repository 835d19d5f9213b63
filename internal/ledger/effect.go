package ledger

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/kunal-ak23/university-tracker-sub000/internal/accounts"
	"github.com/kunal-ak23/university-tracker-sub000/internal/source"
)

// LineTemplate is one side of a posting before it becomes a stored line.
type LineTemplate struct {
	Account   accounts.Account
	EntryType accounts.EntryType
	Amount    decimal.Decimal
}

// Effect is the balanced set of line templates derived from one source
// transaction's current state, plus the metadata every resulting line
// shares. Effects are pure values: building one never touches storage,
// which is what makes replay safe.
type Effect struct {
	Source          SourceRef
	TransactionType TransactionType
	TransactionDate time.Time
	Description     string
	ReferenceNumber string
	Notes           string
	Attribution     source.Attribution
	Entries         []LineTemplate
}

// Balanced reports whether debit and credit sums are equal.
func (e *Effect) Balanced() bool {
	debits := decimal.Zero
	credits := decimal.Zero
	for _, entry := range e.Entries {
		switch entry.EntryType {
		case accounts.Debit:
			debits = debits.Add(entry.Amount)
		case accounts.Credit:
			credits = credits.Add(entry.Amount)
		}
	}
	return debits.Equal(credits)
}

// BuildPaymentEffect maps a completed university payment to its posting:
// debit Cash, credit Accounts Receivable. Payments in any other state yield
// no effect. Attribution is resolved by the caller so the builder stays pure.
func BuildPaymentEffect(p source.Payment, att source.Attribution) *Effect {
	if p.Status != source.StatusCompleted {
		return nil
	}
	return &Effect{
		Source:          SourceRef{Kind: KindPayment, ID: p.ID},
		TransactionType: TypeIncome,
		TransactionDate: p.PaymentDate,
		Description:     fmt.Sprintf("Payment received - %s", p.Name),
		ReferenceNumber: p.TransactionReference,
		Notes:           fmt.Sprintf("Payment method: %s", p.PaymentMethod),
		Attribution:     att,
		Entries: []LineTemplate{
			{Account: accounts.Cash, EntryType: accounts.Debit, Amount: p.Amount},
			{Account: accounts.AccountsReceivable, EntryType: accounts.Credit, Amount: p.Amount},
		},
	}
}

// BuildOEMPaymentEffect maps a completed OEM transfer to its posting: debit
// OEM Payable, credit Cash. The attribution must carry a resolved OEM; the
// caller skips and reports the payment otherwise.
func BuildOEMPaymentEffect(p source.OEMPayment, att source.Attribution) *Effect {
	if p.Status != source.StatusCompleted {
		return nil
	}
	if att.OEMID == nil {
		return nil
	}
	return &Effect{
		Source:          SourceRef{Kind: KindOEMPayment, ID: p.ID},
		TransactionType: TypeOEMPayment,
		TransactionDate: p.PaymentDate,
		Description:     p.Description,
		ReferenceNumber: p.ReferenceNumber,
		Notes:           fmt.Sprintf("Payment method: %s", p.PaymentMethod),
		Attribution:     att,
		Entries: []LineTemplate{
			{Account: accounts.OEMPayable, EntryType: accounts.Debit, Amount: p.Amount},
			{Account: accounts.Cash, EntryType: accounts.Credit, Amount: p.Amount},
		},
	}
}

// BuildExpenseEffect maps an expense to its posting: debit Expense, credit
// Cash. Expenses have no qualifying state; they always post.
func BuildExpenseEffect(e source.Expense, att source.Attribution) *Effect {
	return &Effect{
		Source:          SourceRef{Kind: KindExpense, ID: e.ID},
		TransactionType: TypeExpense,
		TransactionDate: e.IncurredDate,
		Description:     e.Description,
		Notes:           fmt.Sprintf("Category: %s", e.Category),
		Attribution:     att,
		Entries: []LineTemplate{
			{Account: accounts.Expense, EntryType: accounts.Debit, Amount: e.Amount},
			{Account: accounts.Cash, EntryType: accounts.Credit, Amount: e.Amount},
		},
	}
}
