package calculator

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mmynk/hearth/internal/models"
	"github.com/mmynk/hearth/internal/period"
)

// Filter narrows a snapshot by person and by due-date period.
type Filter struct {
	PersonID string
	Period   period.Filter
}

// FilterDebts returns the installments matching f, ordered by due date.
func FilterDebts(debts []models.DebtInstallment, f Filter) []models.DebtInstallment {
	out := make([]models.DebtInstallment, 0, len(debts))
	for _, d := range debts {
		if f.PersonID != "" && d.PersonID != f.PersonID {
			continue
		}
		if !f.Period.Contains(d.DueDate) {
			continue
		}
		out = append(out, d)
	}
	SortDebts(out)
	return out
}

// FilterBills returns the bills matching f, ordered by due date.
func FilterBills(bills []models.Bill, f Filter) []models.Bill {
	out := make([]models.Bill, 0, len(bills))
	for _, b := range bills {
		if f.PersonID != "" && b.PersonID != f.PersonID {
			continue
		}
		if !f.Period.Contains(b.DueDate) {
			continue
		}
		out = append(out, b)
	}
	SortBills(out)
	return out
}

// SortDebts orders installments by due date, then installment number, then id.
func SortDebts(debts []models.DebtInstallment) {
	sort.SliceStable(debts, func(i, j int) bool {
		a, b := debts[i], debts[j]
		if !a.DueDate.Equal(b.DueDate) {
			return a.DueDate.Before(b.DueDate)
		}
		if a.InstallmentNumber != b.InstallmentNumber {
			return a.InstallmentNumber < b.InstallmentNumber
		}
		return a.ID < b.ID
	})
}

// SortBills orders bills by due date, then id.
func SortBills(bills []models.Bill) {
	sort.SliceStable(bills, func(i, j int) bool {
		a, b := bills[i], bills[j]
		if !a.DueDate.Equal(b.DueDate) {
			return a.DueDate.Before(b.DueDate)
		}
		return a.ID < b.ID
	})
}

// Totals splits a set of items into what is settled and what is still owed.
type Totals struct {
	Paid      decimal.Decimal
	Open      decimal.Decimal
	PaidCount int
	OpenCount int
}

// DebtTotals sums Amount over paid installments and Remaining over the rest.
func DebtTotals(debts []models.DebtInstallment) Totals {
	t := Totals{Paid: decimal.Zero, Open: decimal.Zero}
	for _, d := range debts {
		if d.Status == models.DebtPaid {
			t.Paid = t.Paid.Add(d.Amount)
			t.PaidCount++
			continue
		}
		t.Open = t.Open.Add(d.Remaining())
		t.OpenCount++
	}
	return t
}

// BillTotals sums Amount over paid and open bills.
func BillTotals(bills []models.Bill) Totals {
	t := Totals{Paid: decimal.Zero, Open: decimal.Zero}
	for _, b := range bills {
		if b.IsOpen() {
			t.Open = t.Open.Add(b.Amount)
			t.OpenCount++
			continue
		}
		t.Paid = t.Paid.Add(b.Amount)
		t.PaidCount++
	}
	return t
}

// MonthTotals is the per-month breakdown of installments and bills.
type MonthTotals struct {
	Month string
	Debts Totals
	Bills Totals
}

// CalculateMonthTotals buckets items by due-date month, ascending by month.
// Items without a due date are skipped.
func CalculateMonthTotals(debts []models.DebtInstallment, bills []models.Bill) []MonthTotals {
	debtsByMonth := make(map[string][]models.DebtInstallment)
	billsByMonth := make(map[string][]models.Bill)
	keys := make(map[string]struct{})

	for _, d := range debts {
		key := period.MonthKey(d.DueDate)
		if key == "" {
			continue
		}
		debtsByMonth[key] = append(debtsByMonth[key], d)
		keys[key] = struct{}{}
	}
	for _, b := range bills {
		key := period.MonthKey(b.DueDate)
		if key == "" {
			continue
		}
		billsByMonth[key] = append(billsByMonth[key], b)
		keys[key] = struct{}{}
	}

	months := make([]string, 0, len(keys))
	for k := range keys {
		months = append(months, k)
	}
	sort.Strings(months)

	result := make([]MonthTotals, len(months))
	for i, m := range months {
		result[i] = MonthTotals{
			Month: m,
			Debts: DebtTotals(debtsByMonth[m]),
			Bills: BillTotals(billsByMonth[m]),
		}
	}
	return result
}

// Overdue lists the items still owed whose due date is before today.
type Overdue struct {
	Debts      []models.DebtInstallment
	Bills      []models.Bill
	DebtsTotal decimal.Decimal // Σ Remaining
	BillsTotal decimal.Decimal // Σ Amount
}

// FindOverdue collects open items due strictly before today's UTC date.
func FindOverdue(debts []models.DebtInstallment, bills []models.Bill, now time.Time) Overdue {
	today := period.Today(now)
	o := Overdue{DebtsTotal: decimal.Zero, BillsTotal: decimal.Zero}
	for _, d := range debts {
		if d.IsOpen() && !d.DueDate.IsZero() && d.DueDate.Before(today) {
			o.Debts = append(o.Debts, d)
			o.DebtsTotal = o.DebtsTotal.Add(d.Remaining())
		}
	}
	for _, b := range bills {
		if b.IsOpen() && !b.DueDate.IsZero() && b.DueDate.Before(today) {
			o.Bills = append(o.Bills, b)
			o.BillsTotal = o.BillsTotal.Add(b.Amount)
		}
	}
	SortDebts(o.Debts)
	SortBills(o.Bills)
	return o
}

// YearPoint is one month of the yearly open-amount series.
type YearPoint struct {
	Month     string
	DebtsOpen decimal.Decimal
	BillsOpen decimal.Decimal
}

// CalculateYearSeries returns the twelve months of year with the open amount
// due in each.
func CalculateYearSeries(debts []models.DebtInstallment, bills []models.Bill, year int) []YearPoint {
	points := make([]YearPoint, 12)
	for i := range points {
		points[i] = YearPoint{
			Month:     period.MonthKey(period.Date(year, time.Month(i+1), 1)),
			DebtsOpen: decimal.Zero,
			BillsOpen: decimal.Zero,
		}
	}
	for _, d := range debts {
		if d.DueDate.IsZero() || d.DueDate.Year() != year {
			continue
		}
		p := &points[d.DueDate.Month()-1]
		p.DebtsOpen = p.DebtsOpen.Add(d.Remaining())
	}
	for _, b := range bills {
		if b.DueDate.IsZero() || b.DueDate.Year() != year || !b.IsOpen() {
			continue
		}
		p := &points[b.DueDate.Month()-1]
		p.BillsOpen = p.BillsOpen.Add(b.Amount)
	}
	return points
}
