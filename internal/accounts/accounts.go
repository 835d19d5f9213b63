package accounts

// Account identifies a member of the fixed chart of accounts the ledger
// posts to. The set is closed: effects are built exclusively from these
// accounts and storage rejects anything else.
type Account string

const (
	// Cash tracks money actually held.
	Cash Account = "cash"
	// AccountsReceivable tracks amounts universities owe against invoices.
	AccountsReceivable Account = "accounts_receivable"
	// OEMPayable tracks amounts owed to OEM course providers.
	OEMPayable Account = "oem_payable"
	// Income accumulates recognized revenue.
	Income Account = "income"
	// Expense accumulates operating costs.
	Expense Account = "expense"
)

// EntryType is the side of a double-entry posting.
type EntryType string

const (
	Debit  EntryType = "debit"
	Credit EntryType = "credit"
)

// All lists every account in the taxonomy.
func All() []Account {
	return []Account{Cash, AccountsReceivable, OEMPayable, Income, Expense}
}

// Valid reports whether a is a member of the taxonomy.
func (a Account) Valid() bool {
	switch a {
	case Cash, AccountsReceivable, OEMPayable, Income, Expense:
		return true
	}
	return false
}

// Valid reports whether e is debit or credit.
func (e EntryType) Valid() bool {
	return e == Debit || e == Credit
}

// Opposite returns the flipped side, used when building reversal lines.
func (e EntryType) Opposite() EntryType {
	if e == Debit {
		return Credit
	}
	return Debit
}

// NormalSide returns the side on which the account naturally increases.
// Asset and expense accounts are debit-normal; liability and income
// accounts are credit-normal.
func (a Account) NormalSide() EntryType {
	switch a {
	case Cash, AccountsReceivable, Expense:
		return Debit
	default:
		return Credit
	}
}

// Sign returns +1 when an entry of the given type increases the account
// and -1 when it decreases it. Running balances accumulate
// Sign(entry) * amount in chronological order.
func (a Account) Sign(entry EntryType) int {
	if entry == a.NormalSide() {
		return 1
	}
	return -1
}
