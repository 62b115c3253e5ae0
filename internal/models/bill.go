package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// BillStatus is the payment state of one bill occurrence.
type BillStatus string

const (
	BillOpen BillStatus = "open"
	BillPaid BillStatus = "paid"
)

// Bill is one occurrence of a one-off or recurring household bill.
//
// Occurrences of a recurring bill form a series linked by SeriesID. The next
// occurrence is created only when the current one is paid. A series never
// holds two occurrences with the same DueDate.
type Bill struct {
	ID      string
	Title   string
	Amount  decimal.Decimal
	DueDate time.Time

	// Recurring marks the bill as part of a monthly series.
	Recurring bool

	// RecurringActive is false once the series has been stopped.
	// Always false for one-off bills.
	RecurringActive bool

	// SeriesID is empty for one-off bills.
	SeriesID string

	// RecurringEndDate is the inclusive cutoff of the series; zero means none.
	RecurringEndDate time.Time

	CategoryID string

	// PersonID is the optional responsible party.
	PersonID string

	Status BillStatus
}

// Normalize enforces the one-off invariants: a non-recurring bill has no
// series, no active recurrence and no end date.
func (b *Bill) Normalize() {
	if !b.Recurring {
		b.RecurringActive = false
		b.SeriesID = ""
		b.RecurringEndDate = time.Time{}
	}
	if b.Status == "" {
		b.Status = BillOpen
	}
}

// IsOpen reports whether the occurrence is unpaid.
func (b Bill) IsOpen() bool {
	return b.Status != BillPaid
}

// RollsForward reports whether paying this occurrence may create a successor.
func (b Bill) RollsForward() bool {
	return b.Recurring && b.RecurringActive && b.SeriesID != ""
}
