package service

import (
	"github.com/shopspring/decimal"

	"github.com/mmynk/hearth/internal/calculator"
	"github.com/mmynk/hearth/internal/ledger"
	"github.com/mmynk/hearth/internal/models"
	"github.com/mmynk/hearth/internal/period"
)

// Wire messages. Amounts travel as decimal strings with two places and dates
// as YYYY-MM-DD strings.

type Empty struct{}

type Household struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	CreatedBy string `json:"createdBy,omitempty"`
	CreatedAt int64  `json:"createdAt,omitempty"`
}

type Person struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Phone string `json:"phone,omitempty"`
	Note  string `json:"note,omitempty"`
}

type Category struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Installment struct {
	ID                string `json:"id"`
	PersonID          string `json:"personId"`
	Description       string `json:"description"`
	Amount            string `json:"amount"`
	TotalAmount       string `json:"totalAmount"`
	GroupID           string `json:"groupId"`
	InstallmentNumber int    `json:"installmentNumber"`
	InstallmentsCount int    `json:"installmentsCount"`
	PurchaseDate      string `json:"purchaseDate,omitempty"`
	DueDate           string `json:"dueDate"`
	PaidAmount        string `json:"paidAmount"`
	Remaining         string `json:"remaining"`
	Status            string `json:"status"`
}

type Bill struct {
	ID               string `json:"id"`
	Title            string `json:"title"`
	Amount           string `json:"amount"`
	DueDate          string `json:"dueDate"`
	Recurring        bool   `json:"recurring"`
	RecurringActive  bool   `json:"recurringActive"`
	SeriesID         string `json:"seriesId,omitempty"`
	RecurringEndDate string `json:"recurringEndDate,omitempty"`
	CategoryID       string `json:"categoryId,omitempty"`
	PersonID         string `json:"personId,omitempty"`
	Status           string `json:"status"`
}

type Totals struct {
	Paid      string `json:"paid"`
	Open      string `json:"open"`
	PaidCount int    `json:"paidCount"`
	OpenCount int    `json:"openCount"`
}

type PersonBalance struct {
	PersonID   string `json:"personId"`
	DebtsPaid  string `json:"debtsPaid"`
	DebtsOpen  string `json:"debtsOpen"`
	DebtsTotal string `json:"debtsTotal"`
	BillsPaid  string `json:"billsPaid"`
	BillsOpen  string `json:"billsOpen"`
	BillsTotal string `json:"billsTotal"`
	Balance    string `json:"balance"`
}

type MonthTotals struct {
	Month string `json:"month"`
	Debts Totals `json:"debts"`
	Bills Totals `json:"bills"`
}

type YearPoint struct {
	Month     string `json:"month"`
	DebtsOpen string `json:"debtsOpen"`
	BillsOpen string `json:"billsOpen"`
}

type ProjectedSeries struct {
	SeriesID   string `json:"seriesId"`
	Title      string `json:"title"`
	CategoryID string `json:"categoryId,omitempty"`
	PersonID   string `json:"personId,omitempty"`
	Amount     string `json:"amount"`
}

type ProjectedMonth struct {
	Month  string            `json:"month"`
	Total  string            `json:"total"`
	Series []ProjectedSeries `json:"series"`
}

type Overdue struct {
	Debts      []Installment `json:"debts"`
	Bills      []Bill        `json:"bills"`
	DebtsTotal string        `json:"debtsTotal"`
	BillsTotal string        `json:"billsTotal"`
}

type Dashboard struct {
	Today          string           `json:"today"`
	Month          string           `json:"month"`
	DebtsThisMonth Totals           `json:"debtsThisMonth"`
	BillsThisMonth Totals           `json:"billsThisMonth"`
	Debts          Totals           `json:"debts"`
	Bills          Totals           `json:"bills"`
	Overdue        Overdue          `json:"overdue"`
	Year           []YearPoint      `json:"year"`
	People         []PersonBalance  `json:"people"`
	Months         []MonthTotals    `json:"months"`
	Projection     []ProjectedMonth `json:"projection"`
}

type Report struct {
	PersonID   string           `json:"personId,omitempty"`
	Month      string           `json:"month,omitempty"`
	Year       string           `json:"year,omitempty"`
	Debts      []Installment    `json:"debts"`
	Bills      []Bill           `json:"bills"`
	DebtTotals Totals           `json:"debtTotals"`
	BillTotals Totals           `json:"billTotals"`
	People     []PersonBalance  `json:"people"`
	Months     []MonthTotals    `json:"months"`
	Overdue    Overdue          `json:"overdue"`
	Projection []ProjectedMonth `json:"projection"`
}

type ItemFailure struct {
	ID      string `json:"id"`
	Message string `json:"message"`
}

// BulkResponse reports a best-effort operation. Items listed in Failures
// were not changed; every other item was.
type BulkResponse struct {
	Summary   string        `json:"summary"`
	Total     int           `json:"total"`
	Succeeded int           `json:"succeeded"`
	Failures  []ItemFailure `json:"failures,omitempty"`
}

// Households

type CreateHouseholdRequest struct {
	Name string `json:"name"`
}

type HouseholdResponse struct {
	Household Household `json:"household"`
}

type ListHouseholdsResponse struct {
	Households []Household `json:"households"`
}

// JoinHouseholdRequest switches the caller's household. An empty id leaves
// the current one.
type JoinHouseholdRequest struct {
	HouseholdID string `json:"householdId"`
}

type MembershipResponse struct {
	HouseholdID string `json:"householdId"`
}

// Household-scoped requests name the household explicitly or default to the
// caller's current one.

type HouseholdRequest struct {
	HouseholdID string `json:"householdId,omitempty"`
}

type IDRequest struct {
	HouseholdID string `json:"householdId,omitempty"`
	ID          string `json:"id"`
}

// People and categories

type PersonRequest struct {
	HouseholdID string `json:"householdId,omitempty"`
	Person      Person `json:"person"`
}

type PersonResponse struct {
	Person Person `json:"person"`
}

type ListPeopleResponse struct {
	People []Person `json:"people"`
}

type AddCategoryRequest struct {
	HouseholdID string `json:"householdId,omitempty"`
	Name        string `json:"name"`
}

type CategoryResponse struct {
	Category Category `json:"category"`
}

type ListCategoriesResponse struct {
	Categories []Category `json:"categories"`
}

// Debts

type PurchaseInput struct {
	PersonID     string `json:"personId"`
	Description  string `json:"description"`
	Total        string `json:"total"`
	Installments int    `json:"installments"`
	PurchaseDate string `json:"purchaseDate,omitempty"`
	FirstDueDate string `json:"firstDueDate"`
}

type CreatePurchaseRequest struct {
	HouseholdID string        `json:"householdId,omitempty"`
	Purchase    PurchaseInput `json:"purchase"`
}

type AmendPurchaseRequest struct {
	HouseholdID string        `json:"householdId,omitempty"`
	GroupID     string        `json:"groupId"`
	Purchase    PurchaseInput `json:"purchase"`
}

type GroupRequest struct {
	HouseholdID string `json:"householdId,omitempty"`
	GroupID     string `json:"groupId"`
}

type Purchase struct {
	GroupID      string        `json:"groupId"`
	Description  string        `json:"description"`
	PersonID     string        `json:"personId"`
	Total        string        `json:"total"`
	Installments []Installment `json:"installments"`
	Totals       Totals        `json:"totals"`
}

type PurchaseResponse struct {
	Purchase Purchase `json:"purchase"`
}

type PurchaseFormResponse struct {
	GroupID  string        `json:"groupId"`
	Purchase PurchaseInput `json:"purchase"`
}

type DebtFilter struct {
	HouseholdID string `json:"householdId,omitempty"`
	PersonID    string `json:"personId,omitempty"`
	GroupID     string `json:"groupId,omitempty"`
	Month       string `json:"month,omitempty"`
	Year        string `json:"year,omitempty"`
	Status      string `json:"status,omitempty"`
}

type ListInstallmentsResponse struct {
	Installments []Installment `json:"installments"`
	Totals       Totals        `json:"totals"`
}

type PartialPaymentRequest struct {
	HouseholdID string `json:"householdId,omitempty"`
	ID          string `json:"id"`
	Value       string `json:"value"`
}

type InstallmentResponse struct {
	Installment Installment `json:"installment"`
}

// Bills

type BillInput struct {
	Title            string `json:"title"`
	Amount           string `json:"amount"`
	DueDate          string `json:"dueDate"`
	Recurring        bool   `json:"recurring"`
	RecurringEndDate string `json:"recurringEndDate,omitempty"`
	CategoryID       string `json:"categoryId,omitempty"`
	PersonID         string `json:"personId,omitempty"`
}

type CreateBillRequest struct {
	HouseholdID string    `json:"householdId,omitempty"`
	Bill        BillInput `json:"bill"`
}

type UpdateBillRequest struct {
	HouseholdID string    `json:"householdId,omitempty"`
	ID          string    `json:"id"`
	Bill        BillInput `json:"bill"`
}

type BillResponse struct {
	Bill Bill `json:"bill"`
}

type ToggleBillResponse struct {
	Bill      Bill  `json:"bill"`
	Successor *Bill `json:"successor,omitempty"`
}

type BillFilter struct {
	HouseholdID string `json:"householdId,omitempty"`
	PersonID    string `json:"personId,omitempty"`
	CategoryID  string `json:"categoryId,omitempty"`
	SeriesID    string `json:"seriesId,omitempty"`
	Month       string `json:"month,omitempty"`
	Year        string `json:"year,omitempty"`
	Status      string `json:"status,omitempty"`
}

type ListBillsResponse struct {
	Bills  []Bill `json:"bills"`
	Totals Totals `json:"totals"`
}

type StopRecurrenceRequest struct {
	HouseholdID string `json:"householdId,omitempty"`
	SeriesID    string `json:"seriesId"`
}

// Reports

type DashboardResponse struct {
	Dashboard Dashboard `json:"dashboard"`
}

type ReportRequest struct {
	HouseholdID string `json:"householdId,omitempty"`
	PersonID    string `json:"personId,omitempty"`
	Month       string `json:"month,omitempty"`
	Year        string `json:"year,omitempty"`
}

type ReportResponse struct {
	Report Report `json:"report"`
}

type FilterOptionsResponse struct {
	Years  []string `json:"years"`
	Months []string `json:"months"`
}

// DashboardUpdate is one message of the WatchDashboard stream.
type DashboardUpdate struct {
	Dashboard  Dashboard `json:"dashboard"`
	Optimistic bool      `json:"optimistic"`
}

// Conversions

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func toHousehold(h models.Household) Household {
	return Household{ID: h.ID, Name: h.Name, CreatedBy: h.CreatedBy, CreatedAt: h.CreatedAt}
}

func toPerson(p models.Person) Person {
	return Person{ID: p.ID, Name: p.Name, Phone: p.Phone, Note: p.Note}
}

func fromPerson(p Person) models.Person {
	return models.Person{ID: p.ID, Name: p.Name, Phone: p.Phone, Note: p.Note}
}

func toCategory(c models.Category) Category {
	return Category{ID: c.ID, Name: c.Name}
}

func toInstallment(d models.DebtInstallment) Installment {
	return Installment{
		ID:                d.ID,
		PersonID:          d.PersonID,
		Description:       d.Description,
		Amount:            money(d.Amount),
		TotalAmount:       money(d.TotalAmount),
		GroupID:           d.GroupID,
		InstallmentNumber: d.InstallmentNumber,
		InstallmentsCount: d.InstallmentsCount,
		PurchaseDate:      period.FormatDate(d.PurchaseDate),
		DueDate:           period.FormatDate(d.DueDate),
		PaidAmount:        money(d.PaidAmount),
		Remaining:         money(d.Remaining()),
		Status:            string(d.Status),
	}
}

func toInstallments(debts []models.DebtInstallment) []Installment {
	out := make([]Installment, len(debts))
	for i, d := range debts {
		out[i] = toInstallment(d)
	}
	return out
}

func toBill(b models.Bill) Bill {
	return Bill{
		ID:               b.ID,
		Title:            b.Title,
		Amount:           money(b.Amount),
		DueDate:          period.FormatDate(b.DueDate),
		Recurring:        b.Recurring,
		RecurringActive:  b.RecurringActive,
		SeriesID:         b.SeriesID,
		RecurringEndDate: period.FormatDate(b.RecurringEndDate),
		CategoryID:       b.CategoryID,
		PersonID:         b.PersonID,
		Status:           string(b.Status),
	}
}

func toBills(bills []models.Bill) []Bill {
	out := make([]Bill, len(bills))
	for i, b := range bills {
		out[i] = toBill(b)
	}
	return out
}

func toTotals(t calculator.Totals) Totals {
	return Totals{Paid: money(t.Paid), Open: money(t.Open), PaidCount: t.PaidCount, OpenCount: t.OpenCount}
}

func toBalances(people []calculator.PersonBalance) []PersonBalance {
	out := make([]PersonBalance, len(people))
	for i, p := range people {
		out[i] = PersonBalance{
			PersonID:   p.PersonID,
			DebtsPaid:  money(p.DebtsPaid),
			DebtsOpen:  money(p.DebtsOpen),
			DebtsTotal: money(p.DebtsTotal),
			BillsPaid:  money(p.BillsPaid),
			BillsOpen:  money(p.BillsOpen),
			BillsTotal: money(p.BillsTotal),
			Balance:    money(p.Balance),
		}
	}
	return out
}

func toMonths(months []calculator.MonthTotals) []MonthTotals {
	out := make([]MonthTotals, len(months))
	for i, m := range months {
		out[i] = MonthTotals{Month: m.Month, Debts: toTotals(m.Debts), Bills: toTotals(m.Bills)}
	}
	return out
}

func toYear(points []calculator.YearPoint) []YearPoint {
	out := make([]YearPoint, len(points))
	for i, p := range points {
		out[i] = YearPoint{Month: p.Month, DebtsOpen: money(p.DebtsOpen), BillsOpen: money(p.BillsOpen)}
	}
	return out
}

func toProjection(months []calculator.ProjectedMonth) []ProjectedMonth {
	out := make([]ProjectedMonth, len(months))
	for i, m := range months {
		series := make([]ProjectedSeries, len(m.Series))
		for j, s := range m.Series {
			series[j] = ProjectedSeries{
				SeriesID:   s.SeriesID,
				Title:      s.Title,
				CategoryID: s.CategoryID,
				PersonID:   s.PersonID,
				Amount:     money(s.Amount),
			}
		}
		out[i] = ProjectedMonth{Month: m.Month, Total: money(m.Total), Series: series}
	}
	return out
}

func toOverdue(o calculator.Overdue) Overdue {
	return Overdue{
		Debts:      toInstallments(o.Debts),
		Bills:      toBills(o.Bills),
		DebtsTotal: money(o.DebtsTotal),
		BillsTotal: money(o.BillsTotal),
	}
}

func toDashboard(d calculator.Dashboard) Dashboard {
	return Dashboard{
		Today:          period.FormatDate(d.Today),
		Month:          d.Month,
		DebtsThisMonth: toTotals(d.DebtsThisMonth),
		BillsThisMonth: toTotals(d.BillsThisMonth),
		Debts:          toTotals(d.Debts),
		Bills:          toTotals(d.Bills),
		Overdue:        toOverdue(d.Overdue),
		Year:           toYear(d.Year),
		People:         toBalances(d.People),
		Months:         toMonths(d.Months),
		Projection:     toProjection(d.Projection),
	}
}

func toReport(r calculator.Report) Report {
	return Report{
		PersonID:   r.Filter.PersonID,
		Month:      r.Filter.Period.Month,
		Year:       r.Filter.Period.Year,
		Debts:      toInstallments(r.Debts),
		Bills:      toBills(r.Bills),
		DebtTotals: toTotals(r.DebtTotals),
		BillTotals: toTotals(r.BillTotals),
		People:     toBalances(r.People),
		Months:     toMonths(r.Months),
		Overdue:    toOverdue(r.Overdue),
		Projection: toProjection(r.Projection),
	}
}

func toPurchase(p ledger.PurchaseSummary) Purchase {
	return Purchase{
		GroupID:      p.GroupID,
		Description:  p.Description,
		PersonID:     p.PersonID,
		Total:        money(p.Total),
		Installments: toInstallments(p.Installments),
		Totals:       toTotals(p.Totals),
	}
}

func toPurchaseInput(p calculator.Purchase) PurchaseInput {
	return PurchaseInput{
		PersonID:     p.PersonID,
		Description:  p.Description,
		Total:        money(p.Total),
		Installments: p.Installments,
		PurchaseDate: period.FormatDate(p.PurchaseDate),
		FirstDueDate: period.FormatDate(p.FirstDueDate),
	}
}

func toBulk(r ledger.BulkResult) BulkResponse {
	resp := BulkResponse{Summary: r.Summary(), Total: r.Total, Succeeded: len(r.Succeeded)}
	for _, f := range r.Failures {
		resp.Failures = append(resp.Failures, ItemFailure{ID: f.ID, Message: ledger.UserMessage(f.Err)})
	}
	return resp
}
