package calculator

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/mmynk/hearth/internal/models"
)

// PersonBalance rolls up everything attributed to one person.
type PersonBalance struct {
	PersonID string

	DebtsPaid  decimal.Decimal // Σ PaidAmount of the person's installments
	DebtsOpen  decimal.Decimal // Σ Remaining of the person's installments
	DebtsTotal decimal.Decimal // Σ Amount of the person's installments

	BillsPaid  decimal.Decimal // Σ Amount of the person's paid bills
	BillsOpen  decimal.Decimal // Σ Amount of the person's open bills
	BillsTotal decimal.Decimal // Σ Amount of the person's bills

	// Balance is DebtsOpen - BillsOpen. Positive means the person owes the
	// household more than the household owes on their behalf.
	Balance decimal.Decimal
}

// Volume is the total amount attributed to the person.
func (b PersonBalance) Volume() decimal.Decimal {
	return b.DebtsTotal.Add(b.BillsTotal)
}

// CalculatePersonBalances aggregates installments and bills per person.
// Bills without a person are skipped. The result is ordered by Volume
// descending, then by PersonID.
func CalculatePersonBalances(debts []models.DebtInstallment, bills []models.Bill) []PersonBalance {
	balances := make(map[string]*PersonBalance)
	get := func(id string) *PersonBalance {
		if b, ok := balances[id]; ok {
			return b
		}
		b := &PersonBalance{
			PersonID:   id,
			DebtsPaid:  decimal.Zero,
			DebtsOpen:  decimal.Zero,
			DebtsTotal: decimal.Zero,
			BillsPaid:  decimal.Zero,
			BillsOpen:  decimal.Zero,
			BillsTotal: decimal.Zero,
		}
		balances[id] = b
		return b
	}

	for _, d := range debts {
		b := get(d.PersonID)
		b.DebtsPaid = b.DebtsPaid.Add(d.PaidAmount)
		b.DebtsOpen = b.DebtsOpen.Add(d.Remaining())
		b.DebtsTotal = b.DebtsTotal.Add(d.Amount)
	}

	for _, bill := range bills {
		if bill.PersonID == "" {
			continue
		}
		b := get(bill.PersonID)
		if bill.IsOpen() {
			b.BillsOpen = b.BillsOpen.Add(bill.Amount)
		} else {
			b.BillsPaid = b.BillsPaid.Add(bill.Amount)
		}
		b.BillsTotal = b.BillsTotal.Add(bill.Amount)
	}

	result := make([]PersonBalance, 0, len(balances))
	for _, b := range balances {
		b.Balance = b.DebtsOpen.Sub(b.BillsOpen)
		result = append(result, *b)
	}
	sort.Slice(result, func(i, j int) bool {
		if c := result[i].Volume().Cmp(result[j].Volume()); c != 0 {
			return c > 0
		}
		return result[i].PersonID < result[j].PersonID
	})
	return result
}
