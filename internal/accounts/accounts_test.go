package accounts

import "testing"

func TestNormalSides(t *testing.T) {
	debitNormal := []Account{Cash, AccountsReceivable, Expense}
	for _, a := range debitNormal {
		if a.NormalSide() != Debit {
			t.Fatalf("expected %s to be debit-normal", a)
		}
	}
	creditNormal := []Account{OEMPayable, Income}
	for _, a := range creditNormal {
		if a.NormalSide() != Credit {
			t.Fatalf("expected %s to be credit-normal", a)
		}
	}
}

func TestSignConvention(t *testing.T) {
	if Cash.Sign(Debit) != 1 || Cash.Sign(Credit) != -1 {
		t.Fatalf("cash sign convention broken")
	}
	if OEMPayable.Sign(Credit) != 1 || OEMPayable.Sign(Debit) != -1 {
		t.Fatalf("oem payable sign convention broken")
	}
}

func TestValidity(t *testing.T) {
	for _, a := range All() {
		if !a.Valid() {
			t.Fatalf("account %s should be valid", a)
		}
	}
	if Account("petty_cash").Valid() {
		t.Fatalf("unknown account must not validate")
	}
	if !Debit.Valid() || !Credit.Valid() || EntryType("both").Valid() {
		t.Fatalf("entry type validation broken")
	}
	if Debit.Opposite() != Credit || Credit.Opposite() != Debit {
		t.Fatalf("opposite side broken")
	}
}
