package storage

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/mmynk/hearth/internal/models"
	"github.com/mmynk/hearth/internal/period"
)

// Document field names.
const (
	FieldName              = "name"
	FieldPhone             = "phone"
	FieldNote              = "note"
	FieldCreatedBy         = "createdBy"
	FieldCreatedAt         = "createdAt"
	FieldUpdatedAt         = "updatedAt"
	FieldHouseholdID       = "householdId"
	FieldPersonID          = "personId"
	FieldDescription       = "description"
	FieldAmount            = "amount"
	FieldTotalAmount       = "totalAmount"
	FieldGroupID           = "groupId"
	FieldInstallmentNumber = "installmentNumber"
	FieldInstallmentsCount = "installmentsCount"
	FieldPurchaseDate      = "purchaseDate"
	FieldDueDate           = "dueDate"
	FieldPaidAmount        = "paidAmount"
	FieldStatus            = "status"
	FieldTitle             = "title"
	FieldRecurring         = "recurring"
	FieldRecurringActive   = "recurringActive"
	FieldSeriesID          = "seriesId"
	FieldRecurringEndDate  = "recurringEndDate"
	FieldCategoryID        = "categoryId"
)

func amount(d decimal.Decimal) string {
	return d.StringFixed(2)
}

// EncodeHousehold converts a household to its stored form.
func EncodeHousehold(h models.Household) Document {
	return Document{
		FieldName:      h.Name,
		FieldCreatedBy: h.CreatedBy,
		FieldCreatedAt: h.CreatedAt,
	}
}

// DecodeHousehold reads a stored household.
func DecodeHousehold(r Record) models.Household {
	return models.Household{
		ID:        r.ID,
		Name:      r.Data.String(FieldName),
		CreatedBy: r.Data.String(FieldCreatedBy),
		CreatedAt: int64(r.Data.Int(FieldCreatedAt, int(r.CreatedAt.Unix()))),
	}
}

// EncodeMembership converts a membership to its stored form. The user id is
// the document id.
func EncodeMembership(m models.Membership) Document {
	return Document{
		FieldHouseholdID: m.HouseholdID,
		FieldUpdatedAt:   m.UpdatedAt,
	}
}

// DecodeMembership reads a stored membership.
func DecodeMembership(r Record) models.Membership {
	return models.Membership{
		UserID:      r.ID,
		HouseholdID: r.Data.String(FieldHouseholdID),
		UpdatedAt:   int64(r.Data.Int(FieldUpdatedAt, 0)),
	}
}

// EncodePerson converts a person to its stored form.
func EncodePerson(p models.Person) Document {
	return Document{
		FieldName:  strings.TrimSpace(p.Name),
		FieldPhone: strings.TrimSpace(p.Phone),
		FieldNote:  strings.TrimSpace(p.Note),
	}
}

// DecodePerson reads a stored person.
func DecodePerson(r Record) models.Person {
	return models.Person{
		ID:    r.ID,
		Name:  r.Data.String(FieldName),
		Phone: r.Data.String(FieldPhone),
		Note:  r.Data.String(FieldNote),
	}
}

// EncodeCategory converts a category to its stored form.
func EncodeCategory(c models.Category) Document {
	return Document{FieldName: strings.TrimSpace(c.Name)}
}

// DecodeCategory reads a stored category.
func DecodeCategory(r Record) models.Category {
	return models.Category{ID: r.ID, Name: r.Data.String(FieldName)}
}

// EncodeDebt converts an installment to its stored form.
func EncodeDebt(d models.DebtInstallment) Document {
	return Document{
		FieldPersonID:          d.PersonID,
		FieldDescription:       d.Description,
		FieldAmount:            amount(d.Amount),
		FieldTotalAmount:       amount(d.TotalAmount),
		FieldGroupID:           d.GroupID,
		FieldInstallmentNumber: d.InstallmentNumber,
		FieldInstallmentsCount: d.InstallmentsCount,
		FieldPurchaseDate:      period.FormatDate(d.PurchaseDate),
		FieldDueDate:           period.FormatDate(d.DueDate),
		FieldPaidAmount:        amount(d.PaidAmount),
		FieldStatus:            string(d.Status),
	}
}

// EncodeDebtPayment returns the patch that records a payment transition.
func EncodeDebtPayment(d models.DebtInstallment) Document {
	return Document{
		FieldPaidAmount: amount(d.PaidAmount),
		FieldStatus:     string(d.Status),
	}
}

// DecodeDebt reads a stored installment, resolving every default:
// a missing amount is zero, a missing count is one, a missing group is the
// document's own id, and a missing or unknown status is derived from the
// paid amount. An installment stored as paid reads as fully paid.
func DecodeDebt(r Record) models.DebtInstallment {
	doc := r.Data
	d := models.DebtInstallment{
		ID:                r.ID,
		PersonID:          doc.String(FieldPersonID),
		Description:       doc.String(FieldDescription),
		Amount:            doc.Decimal(FieldAmount),
		GroupID:           doc.String(FieldGroupID),
		InstallmentNumber: doc.Int(FieldInstallmentNumber, 1),
		InstallmentsCount: doc.Int(FieldInstallmentsCount, 1),
		PurchaseDate:      doc.Date(FieldPurchaseDate),
		DueDate:           doc.Date(FieldDueDate),
		PaidAmount:        doc.Decimal(FieldPaidAmount),
	}
	if d.GroupID == "" {
		d.GroupID = r.ID
	}
	if d.InstallmentsCount < 1 {
		d.InstallmentsCount = 1
	}
	if d.InstallmentNumber < 1 {
		d.InstallmentNumber = 1
	}

	d.TotalAmount = d.Amount
	if doc.Has(FieldTotalAmount) {
		d.TotalAmount = doc.Decimal(FieldTotalAmount)
	}

	stored, _ := parseDebtStatus(doc.String(FieldStatus))
	if stored == models.DebtPaid {
		d.PaidAmount = d.Amount
	}
	if d.PaidAmount.GreaterThan(d.Amount) {
		d.PaidAmount = d.Amount
	}
	d.Status = models.StatusFor(d.Amount, d.PaidAmount)
	if d.Amount.IsZero() && stored == models.DebtPaid {
		d.Status = models.DebtPaid
	}
	return d
}

// EncodeBill converts a bill occurrence to its stored form.
func EncodeBill(b models.Bill) Document {
	b.Normalize()
	return Document{
		FieldTitle:            b.Title,
		FieldAmount:           amount(b.Amount),
		FieldDueDate:          period.FormatDate(b.DueDate),
		FieldRecurring:        b.Recurring,
		FieldRecurringActive:  b.RecurringActive,
		FieldSeriesID:         b.SeriesID,
		FieldRecurringEndDate: period.FormatDate(b.RecurringEndDate),
		FieldCategoryID:       b.CategoryID,
		FieldPersonID:         b.PersonID,
		FieldStatus:           string(b.Status),
	}
}

// DecodeBill reads a stored bill occurrence. A missing recurringActive
// follows recurring, a missing or unknown status reads as open, and one-off
// bills never carry series fields.
func DecodeBill(r Record) models.Bill {
	doc := r.Data
	b := models.Bill{
		ID:               r.ID,
		Title:            doc.String(FieldTitle),
		Amount:           doc.Decimal(FieldAmount),
		DueDate:          doc.Date(FieldDueDate),
		SeriesID:         doc.String(FieldSeriesID),
		RecurringEndDate: doc.Date(FieldRecurringEndDate),
		CategoryID:       doc.String(FieldCategoryID),
		PersonID:         doc.String(FieldPersonID),
		Status:           parseBillStatus(doc.String(FieldStatus)),
	}
	b.Recurring, _ = doc.Bool(FieldRecurring)
	active, ok := doc.Bool(FieldRecurringActive)
	if !ok {
		active = b.Recurring
	}
	b.RecurringActive = active
	b.Normalize()
	return b
}

func parseDebtStatus(s string) (models.DebtStatus, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "open", "aberta", "aberto":
		return models.DebtOpen, true
	case "partial", "parcial":
		return models.DebtPartial, true
	case "paid", "paga", "pago":
		return models.DebtPaid, true
	}
	return "", false
}

func parseBillStatus(s string) models.BillStatus {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "paid", "paga", "pago":
		return models.BillPaid
	}
	return models.BillOpen
}

// DecodeDebts reads a batch of stored installments.
func DecodeDebts(records []Record) []models.DebtInstallment {
	out := make([]models.DebtInstallment, len(records))
	for i, r := range records {
		out[i] = DecodeDebt(r)
	}
	return out
}

// DecodeBills reads a batch of stored bill occurrences.
func DecodeBills(records []Record) []models.Bill {
	out := make([]models.Bill, len(records))
	for i, r := range records {
		out[i] = DecodeBill(r)
	}
	return out
}

// DecodePeople reads a batch of stored people.
func DecodePeople(records []Record) []models.Person {
	out := make([]models.Person, len(records))
	for i, r := range records {
		out[i] = DecodePerson(r)
	}
	return out
}

// DecodeCategories reads a batch of stored categories.
func DecodeCategories(records []Record) []models.Category {
	out := make([]models.Category, len(records))
	for i, r := range records {
		out[i] = DecodeCategory(r)
	}
	return out
}
