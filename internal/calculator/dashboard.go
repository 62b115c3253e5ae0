package calculator

import (
	"sort"
	"time"

	"github.com/mmynk/hearth/internal/models"
	"github.com/mmynk/hearth/internal/period"
)

// Snapshot is the full state of one household at a point in time.
type Snapshot struct {
	People     []models.Person
	Categories []models.Category
	Debts      []models.DebtInstallment
	Bills      []models.Bill
}

// Dashboard is the household overview recomputed on every snapshot.
type Dashboard struct {
	Today time.Time
	Month string

	// Current-month totals.
	DebtsThisMonth Totals
	BillsThisMonth Totals

	// All-time totals.
	Debts Totals
	Bills Totals

	Overdue    Overdue
	Year       []YearPoint
	People     []PersonBalance
	Months     []MonthTotals
	Projection []ProjectedMonth
}

// BuildDashboard derives the dashboard from s as of now.
func BuildDashboard(s Snapshot, now time.Time) Dashboard {
	today := period.Today(now)
	month := period.Filter{Month: period.MonthKey(today)}

	return Dashboard{
		Today:          today,
		Month:          month.Month,
		DebtsThisMonth: DebtTotals(FilterDebts(s.Debts, Filter{Period: month})),
		BillsThisMonth: BillTotals(FilterBills(s.Bills, Filter{Period: month})),
		Debts:          DebtTotals(s.Debts),
		Bills:          BillTotals(s.Bills),
		Overdue:        FindOverdue(s.Debts, s.Bills, today),
		Year:           CalculateYearSeries(s.Debts, s.Bills, today.Year()),
		People:         CalculatePersonBalances(s.Debts, s.Bills),
		Months:         CalculateMonthTotals(s.Debts, s.Bills),
		Projection:     ProjectRecurring(s.Bills, today, ProjectionMonths),
	}
}

// Report is the filtered view behind the reports screen and its exports.
type Report struct {
	Filter Filter

	Debts      []models.DebtInstallment
	Bills      []models.Bill
	DebtTotals Totals
	BillTotals Totals

	People     []PersonBalance
	Months     []MonthTotals
	Overdue    Overdue
	Projection []ProjectedMonth
}

// BuildReport applies f to s. The projection covers every active series of
// the selected person; months outside the selected period are dropped.
func BuildReport(s Snapshot, f Filter, now time.Time) Report {
	debts := FilterDebts(s.Debts, f)
	bills := FilterBills(s.Bills, f)

	var projection []ProjectedMonth
	for _, pm := range ProjectRecurring(FilterBills(s.Bills, Filter{PersonID: f.PersonID}), now, ProjectionMonths) {
		if f.Period.ContainsMonth(pm.Month) {
			projection = append(projection, pm)
		}
	}

	return Report{
		Filter:     f,
		Debts:      debts,
		Bills:      bills,
		DebtTotals: DebtTotals(debts),
		BillTotals: BillTotals(bills),
		People:     CalculatePersonBalances(debts, bills),
		Months:     CalculateMonthTotals(debts, bills),
		Overdue:    FindOverdue(debts, bills, now),
		Projection: projection,
	}
}

// FilterOptions are the period values a report can be filtered by.
type FilterOptions struct {
	Years  []string
	Months []string
}

// AvailableFilters lists the distinct years and months of installment due
// dates, newest first, always including the current year and month.
func AvailableFilters(debts []models.DebtInstallment, now time.Time) FilterOptions {
	years := map[string]struct{}{period.YearKey(now): {}}
	months := map[string]struct{}{period.MonthKey(now): {}}
	for _, d := range debts {
		if d.DueDate.IsZero() {
			continue
		}
		years[period.YearKey(d.DueDate)] = struct{}{}
		months[period.MonthKey(d.DueDate)] = struct{}{}
	}
	return FilterOptions{Years: sortedDesc(years), Months: sortedDesc(months)}
}

func sortedDesc(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(out)))
	return out
}
