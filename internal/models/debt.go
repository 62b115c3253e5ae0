package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// DebtStatus is the payment state of one installment.
type DebtStatus string

const (
	DebtOpen    DebtStatus = "open"
	DebtPartial DebtStatus = "partial"
	DebtPaid    DebtStatus = "paid"
)

// Valid reports whether s is a known status.
func (s DebtStatus) Valid() bool {
	switch s {
	case DebtOpen, DebtPartial, DebtPaid:
		return true
	}
	return false
}

// DebtInstallment is one dated share of an installment purchase made on
// behalf of a person. All installments of a purchase share a GroupID.
//
// Within a group, amounts sum to TotalAmount and InstallmentNumber runs
// 1..InstallmentsCount without gaps.
type DebtInstallment struct {
	ID          string
	PersonID    string
	Description string

	// Amount is this installment's share of TotalAmount.
	Amount decimal.Decimal

	// TotalAmount is the purchase total, repeated on every installment.
	TotalAmount decimal.Decimal

	GroupID           string
	InstallmentNumber int
	InstallmentsCount int

	PurchaseDate time.Time
	DueDate      time.Time

	// PaidAmount never exceeds Amount.
	PaidAmount decimal.Decimal
	Status     DebtStatus
}

// Remaining is the amount still owed on the installment, never negative.
func (d DebtInstallment) Remaining() decimal.Decimal {
	r := d.Amount.Sub(d.PaidAmount)
	if r.IsNegative() {
		return decimal.Zero
	}
	return r
}

// IsOpen reports whether anything is still owed. A zero-amount installment
// stays open until it is marked paid.
func (d DebtInstallment) IsOpen() bool {
	if d.Amount.IsZero() {
		return d.Status != DebtPaid
	}
	return d.Remaining().IsPositive()
}

// StatusFor derives the status implied by a paid amount:
// paid when paid >= amount, partial when 0 < paid < amount, else open.
// Nothing paid on a zero amount is open; only an explicit mark settles it.
func StatusFor(amount, paid decimal.Decimal) DebtStatus {
	switch {
	case amount.IsZero() && !paid.IsPositive():
		return DebtOpen
	case paid.GreaterThanOrEqual(amount):
		return DebtPaid
	case paid.IsPositive():
		return DebtPartial
	default:
		return DebtOpen
	}
}
