package report

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/hearth/internal/calculator"
	"github.com/mmynk/hearth/internal/models"
	"github.com/mmynk/hearth/internal/period"
)

var fixedNow = time.Date(2024, 2, 20, 12, 0, 0, 0, time.UTC)

func newTestBuilder(t *testing.T) *Builder {
	t.Helper()
	f, err := NewFormatter("pt-BR", "R$")
	require.NoError(t, err)
	return NewBuilder(f, func() time.Time { return fixedNow })
}

func TestCurrency(t *testing.T) {
	f, err := NewFormatter("pt-BR", "R$")
	require.NoError(t, err)

	tests := []struct {
		in   string
		want string
	}{
		{"33.33", "R$ 33,33"},
		{"1234.5", "R$ 1.234,50"},
		{"0", "R$ 0,00"},
		{"-10", "-R$ 10,00"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, f.Currency(decimal.RequireFromString(tt.in)))
		})
	}

	_, err = NewFormatter("not a locale!", "R$")
	assert.Error(t, err)
}

func TestSlug(t *testing.T) {
	assert.Equal(t, "joao-da-silva", Slug("João da Silva"))
	assert.Equal(t, "all-people", Slug("All people"))
	assert.Equal(t, "all", Slug("!!!"))
}

func TestRecurrenceLabel(t *testing.T) {
	end := period.Date(2024, time.June, 10)
	assert.Equal(t, RecurrenceOneOff, RecurrenceLabel(models.Bill{}))
	assert.Equal(t, RecurrenceActive, RecurrenceLabel(models.Bill{Recurring: true, RecurringActive: true}))
	assert.Equal(t, RecurrenceEnded, RecurrenceLabel(models.Bill{Recurring: true, RecurringEndDate: end}))
	assert.Equal(t, "Until 2024-06-10", RecurrenceLabel(models.Bill{Recurring: true, RecurringActive: true, RecurringEndDate: end}))
}

func testSnapshot() calculator.Snapshot {
	d := decimal.RequireFromString
	return calculator.Snapshot{
		People:     []models.Person{{ID: "p1", Name: "Ana"}},
		Categories: []models.Category{{ID: "c1", Name: "Utilities"}},
		Debts: []models.DebtInstallment{
			{ID: "d1", PersonID: "p1", Description: "TV", Amount: d("33.33"), PaidAmount: d("33.33"), InstallmentNumber: 1, InstallmentsCount: 3, DueDate: period.Date(2024, 2, 10), Status: models.DebtPaid},
			{ID: "d2", PersonID: "ghost", Description: "Phone", Amount: d("50"), PaidAmount: d("0"), InstallmentNumber: 1, InstallmentsCount: 1, DueDate: period.Date(2024, 2, 12), Status: models.DebtOpen},
		},
		Bills: []models.Bill{
			{ID: "b1", Title: "Power", Amount: d("120"), DueDate: period.Date(2024, 2, 5), Recurring: true, RecurringActive: true, SeriesID: "s1", CategoryID: "c1", Status: models.BillOpen},
			{ID: "b2", Title: "Gift", Amount: d("40"), DueDate: period.Date(2024, 2, 8), CategoryID: "gone", Status: models.BillPaid},
		},
	}
}

func TestBuildDebts(t *testing.T) {
	b := newTestBuilder(t)
	s := testSnapshot()
	r := calculator.BuildReport(s, calculator.Filter{Period: period.Filter{Month: "2024-02"}}, fixedNow)

	doc, err := b.Build(KindDebts, r, s, Options{Title: "Casa", Detailed: true})
	require.NoError(t, err)

	assert.Equal(t, "report-debts-all-people-2024-02-20.pdf", doc.FileName)
	assert.Equal(t, "Person: All people | Year: All years | Month: 02/2024", doc.Filters)
	require.Len(t, doc.Sections, 2)

	summary := doc.Sections[0]
	assert.Equal(t, []string{"Person", "Total", "Open", "Received"}, summary.Header)
	var people []string
	for _, row := range summary.Rows {
		people = append(people, row[0])
	}
	assert.ElementsMatch(t, []string{"Ana", UnknownPerson}, people)

	details := doc.Sections[1]
	require.Len(t, details.Rows, 2)
	assert.Equal(t, []string{"Ana", "TV", "1/3", "2024-02-10", "R$ 33,33", "R$ 33,33", "R$ 0,00"}, details.Rows[0])
}

func TestBuildDebtsForPerson(t *testing.T) {
	b := newTestBuilder(t)
	s := testSnapshot()
	r := calculator.BuildReport(s, calculator.Filter{PersonID: "p1"}, fixedNow)

	doc, err := b.Build(KindDebts, r, s, Options{})
	require.NoError(t, err)
	assert.Equal(t, "report-debts-ana-2024-02-20.pdf", doc.FileName)
	assert.Len(t, doc.Sections, 1)
}

func TestBuildBills(t *testing.T) {
	b := newTestBuilder(t)
	s := testSnapshot()
	r := calculator.BuildReport(s, calculator.Filter{}, fixedNow)

	doc, err := b.Build(KindBills, r, s, Options{Detailed: true})
	require.NoError(t, err)
	require.Len(t, doc.Sections, 2)

	projection := doc.Sections[0]
	require.NotEmpty(t, projection.Rows)
	assert.Equal(t, []string{"02/2024", "R$ 120,00"}, projection.Rows[0])

	details := doc.Sections[1]
	require.Len(t, details.Rows, 2)
	byTitle := map[string][]string{}
	for _, row := range details.Rows {
		byTitle[row[0]] = row
	}
	assert.Equal(t, []string{"Power", "Utilities", NoPerson, "2024-02-05", "R$ 120,00", RecurrenceActive, StatusOpen}, byTitle["Power"])
	assert.Equal(t, []string{"Gift", Uncategorized, NoPerson, "2024-02-08", "R$ 40,00", RecurrenceOneOff, StatusPaid}, byTitle["Gift"])
}

func TestParseKind(t *testing.T) {
	k, err := ParseKind(" Bills ")
	require.NoError(t, err)
	assert.Equal(t, KindBills, k)

	_, err = ParseKind("taxes")
	assert.Error(t, err)

	_, err = newTestBuilder(t).Build(Kind("taxes"), calculator.Report{}, calculator.Snapshot{}, Options{})
	assert.Error(t, err)
}
