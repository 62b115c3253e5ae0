package calculator

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/mmynk/hearth/internal/models"
)

// ErrInvalidPayment rejects a partial payment outside (0, remaining].
var ErrInvalidPayment = errors.New("invalid partial payment amount")

// ToggleInstallment flips an installment between paid and open. A paid
// installment reopens with nothing paid; any other installment becomes fully
// paid.
func ToggleInstallment(d models.DebtInstallment) models.DebtInstallment {
	if d.Status == models.DebtPaid {
		d.Status = models.DebtOpen
		d.PaidAmount = decimal.Zero
		return d
	}
	return MarkInstallmentPaid(d)
}

// MarkInstallmentPaid settles the full amount.
func MarkInstallmentPaid(d models.DebtInstallment) models.DebtInstallment {
	d.Status = models.DebtPaid
	d.PaidAmount = d.Amount
	return d
}

// ApplyPartialPayment adds value to the paid amount. The value must satisfy
// 0 < value <= Amount-PaidAmount; otherwise the installment is returned
// unchanged together with ErrInvalidPayment.
func ApplyPartialPayment(d models.DebtInstallment, value decimal.Decimal) (models.DebtInstallment, error) {
	remaining := d.Amount.Sub(d.PaidAmount)
	if !value.IsPositive() {
		return d, fmt.Errorf("%w: %s must be greater than zero", ErrInvalidPayment, value.String())
	}
	if value.GreaterThan(remaining) {
		return d, fmt.Errorf("%w: %s exceeds remaining %s", ErrInvalidPayment, value.String(), remaining.StringFixed(2))
	}

	d.PaidAmount = d.PaidAmount.Add(value).Round(2)
	d.Status = models.StatusFor(d.Amount, d.PaidAmount)
	return d, nil
}

// ToggleBill flips a bill occurrence between open and paid.
func ToggleBill(b models.Bill) models.Bill {
	if b.Status == models.BillPaid {
		b.Status = models.BillOpen
	} else {
		b.Status = models.BillPaid
	}
	return b
}
