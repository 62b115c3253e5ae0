package calculator

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mmynk/hearth/internal/models"
	"github.com/mmynk/hearth/internal/period"
)

var (
	ErrInvalidAmount       = errors.New("amount must be greater than zero")
	ErrInvalidInstallments = errors.New("invalid installment count")
	ErrMissingPerson       = errors.New("person is required")
	ErrMissingDescription  = errors.New("description is required")
	ErrMissingDueDate      = errors.New("first due date is required")
)

// Purchase holds the inputs of an installment purchase.
type Purchase struct {
	PersonID    string
	Description string
	Total       decimal.Decimal

	// Installments defaults to 1 when zero.
	Installments int

	PurchaseDate time.Time
	FirstDueDate time.Time
}

// Normalize trims text fields, rounds the total to cents and applies the
// installment default.
func (p Purchase) Normalize() Purchase {
	p.PersonID = strings.TrimSpace(p.PersonID)
	p.Description = strings.TrimSpace(p.Description)
	p.Total = p.Total.Round(2)
	if p.Installments == 0 {
		p.Installments = 1
	}
	p.PurchaseDate = period.DateOnly(p.PurchaseDate)
	p.FirstDueDate = period.DateOnly(p.FirstDueDate)
	return p
}

// Validate checks a normalized purchase.
func (p Purchase) Validate() error {
	if p.PersonID == "" {
		return ErrMissingPerson
	}
	if p.Description == "" {
		return ErrMissingDescription
	}
	if !p.Total.IsPositive() {
		return ErrInvalidAmount
	}
	if p.Installments < 1 {
		return fmt.Errorf("%w: must be at least 1, got %d", ErrInvalidInstallments, p.Installments)
	}
	if p.FirstDueDate.IsZero() {
		return ErrMissingDueDate
	}
	return nil
}

// SplitCents divides total into n cent-exact shares. Every share is the total
// divided by n rounded down to the cent, except the last one, which also
// absorbs the rounding residue (0 up to n-1 cents). When the total has fewer
// cents than n, the leading shares are zero.
func SplitCents(total decimal.Decimal, n int) []decimal.Decimal {
	if n < 1 {
		return nil
	}
	totalCents := total.Round(2).Shift(2).IntPart()
	baseCents := totalCents / int64(n)
	remainder := totalCents - baseCents*int64(n)

	shares := make([]decimal.Decimal, n)
	for i := range shares {
		shares[i] = decimal.New(baseCents, -2)
	}
	shares[n-1] = decimal.New(baseCents+remainder, -2)
	return shares
}

// ExpandInstallments turns a purchase into its dated installments, all open
// and sharing groupID. Installment i is due AddMonths(FirstDueDate, i).
// Amounts sum exactly to the purchase total.
func ExpandInstallments(p Purchase, groupID string) ([]models.DebtInstallment, error) {
	p = p.Normalize()
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if groupID == "" {
		return nil, errors.New("group id is required")
	}

	shares := SplitCents(p.Total, p.Installments)
	installments := make([]models.DebtInstallment, p.Installments)
	for i, share := range shares {
		installments[i] = models.DebtInstallment{
			PersonID:          p.PersonID,
			Description:       p.Description,
			Amount:            share,
			TotalAmount:       p.Total,
			GroupID:           groupID,
			InstallmentNumber: i + 1,
			InstallmentsCount: p.Installments,
			PurchaseDate:      p.PurchaseDate,
			DueDate:           period.AddMonths(p.FirstDueDate, i),
			PaidAmount:        decimal.Zero,
			Status:            models.DebtOpen,
		}
	}
	return installments, nil
}

// PurchaseOf recovers the editable inputs of a purchase from any one of its
// installments. The first due date is stepped back from the installment's
// own due date.
func PurchaseOf(d models.DebtInstallment) Purchase {
	total := d.TotalAmount
	if !total.IsPositive() {
		total = d.Amount.Mul(decimal.NewFromInt(int64(max(d.InstallmentsCount, 1))))
	}
	return Purchase{
		PersonID:     d.PersonID,
		Description:  d.Description,
		Total:        total,
		Installments: max(d.InstallmentsCount, 1),
		PurchaseDate: d.PurchaseDate,
		FirstDueDate: period.AddMonths(d.DueDate, -(max(d.InstallmentNumber, 1) - 1)),
	}
}
