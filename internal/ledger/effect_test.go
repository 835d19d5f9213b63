package ledger

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kunal-ak23/university-tracker-sub000/internal/accounts"
	"github.com/kunal-ak23/university-tracker-sub000/internal/source"
)

func TestBuildPaymentEffect(t *testing.T) {
	universityID := uuid.New()
	p := source.Payment{
		ID:                   uuid.New(),
		Name:                 "January invoice",
		Amount:               dec("100.00"),
		PaymentDate:          day(15),
		PaymentMethod:        "bank_transfer",
		Status:               source.StatusCompleted,
		TransactionReference: "TXN-123",
	}

	e := BuildPaymentEffect(p, source.Attribution{UniversityID: &universityID})
	require.NotNil(t, e)
	require.Len(t, e.Entries, 2)
	assert.True(t, e.Balanced())

	assert.Equal(t, accounts.Cash, e.Entries[0].Account)
	assert.Equal(t, accounts.Debit, e.Entries[0].EntryType)
	assert.True(t, e.Entries[0].Amount.Equal(dec("100.00")))

	assert.Equal(t, accounts.AccountsReceivable, e.Entries[1].Account)
	assert.Equal(t, accounts.Credit, e.Entries[1].EntryType)
	assert.True(t, e.Entries[1].Amount.Equal(dec("100.00")))

	assert.Equal(t, TypeIncome, e.TransactionType)
	assert.Equal(t, "TXN-123", e.ReferenceNumber)
	assert.Equal(t, KindPayment, e.Source.Kind)
}

func TestBuildPaymentEffectNonQualifying(t *testing.T) {
	for _, status := range []source.Status{source.StatusPending, source.StatusFailed, source.StatusCancelled} {
		p := source.Payment{ID: uuid.New(), Amount: dec("100.00"), Status: status}
		assert.Nil(t, BuildPaymentEffect(p, source.Attribution{}), "status %s must not post", status)
	}
}

func TestBuildOEMPaymentEffect(t *testing.T) {
	oemID := uuid.New()
	p := source.OEMPayment{
		ID:              uuid.New(),
		Amount:          dec("50.00"),
		PaymentDate:     day(20),
		Status:          source.StatusCompleted,
		ReferenceNumber: "OEM-123",
	}

	e := BuildOEMPaymentEffect(p, source.Attribution{OEMID: &oemID})
	require.NotNil(t, e)
	require.Len(t, e.Entries, 2)
	assert.True(t, e.Balanced())
	assert.Equal(t, accounts.OEMPayable, e.Entries[0].Account)
	assert.Equal(t, accounts.Debit, e.Entries[0].EntryType)
	assert.Equal(t, accounts.Cash, e.Entries[1].Account)
	assert.Equal(t, accounts.Credit, e.Entries[1].EntryType)
	assert.Equal(t, TypeOEMPayment, e.TransactionType)
}

func TestBuildOEMPaymentEffectWithoutOEM(t *testing.T) {
	p := source.OEMPayment{ID: uuid.New(), Amount: dec("50.00"), Status: source.StatusCompleted}
	assert.Nil(t, BuildOEMPaymentEffect(p, source.Attribution{}))
}

func TestBuildExpenseEffect(t *testing.T) {
	universityID := uuid.New()
	e := source.Expense{
		ID:           uuid.New(),
		UniversityID: &universityID,
		Amount:       dec("25.00"),
		Category:     "operations",
		IncurredDate: day(10),
	}

	effect := BuildExpenseEffect(e, source.Attribution{UniversityID: &universityID})
	require.NotNil(t, effect)
	require.Len(t, effect.Entries, 2)
	assert.True(t, effect.Balanced())
	assert.Equal(t, accounts.Expense, effect.Entries[0].Account)
	assert.Equal(t, accounts.Debit, effect.Entries[0].EntryType)
	assert.Equal(t, accounts.Cash, effect.Entries[1].Account)
	assert.Equal(t, accounts.Credit, effect.Entries[1].EntryType)
	assert.Equal(t, TypeExpense, effect.TransactionType)
}

func TestEffectWithoutUniversityStillPosts(t *testing.T) {
	p := source.Payment{
		ID:          uuid.New(),
		Amount:      dec("75.00"),
		PaymentDate: day(15),
		Status:      source.StatusCompleted,
	}
	e := BuildPaymentEffect(p, source.Attribution{})
	require.NotNil(t, e)
	assert.Nil(t, e.Attribution.UniversityID)
	assert.True(t, e.Balanced())
}
