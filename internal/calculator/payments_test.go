package calculator

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/hearth/internal/models"
	"github.com/mmynk/hearth/internal/period"
)

func TestToggleInstallment(t *testing.T) {
	open := models.DebtInstallment{Amount: dec("50"), PaidAmount: decimal.Zero, Status: models.DebtOpen}

	paid := ToggleInstallment(open)
	assert.Equal(t, models.DebtPaid, paid.Status)
	assert.True(t, paid.PaidAmount.Equal(dec("50")))

	reopened := ToggleInstallment(paid)
	assert.Equal(t, models.DebtOpen, reopened.Status)
	assert.True(t, reopened.PaidAmount.IsZero())

	partial := models.DebtInstallment{Amount: dec("50"), PaidAmount: dec("20"), Status: models.DebtPartial}
	settled := ToggleInstallment(partial)
	assert.Equal(t, models.DebtPaid, settled.Status)
	assert.True(t, settled.PaidAmount.Equal(dec("50")))
}

func TestApplyPartialPayment(t *testing.T) {
	tests := []struct {
		name       string
		paid       string
		value      string
		wantErr    bool
		wantPaid   string
		wantStatus models.DebtStatus
	}{
		{name: "first partial", paid: "0", value: "10", wantPaid: "10.00", wantStatus: models.DebtPartial},
		{name: "completes the installment", paid: "10", value: "23.33", wantPaid: "33.33", wantStatus: models.DebtPaid},
		{name: "exact remaining from open", paid: "0", value: "33.33", wantPaid: "33.33", wantStatus: models.DebtPaid},
		{name: "rounds to cents", paid: "0", value: "0.005", wantPaid: "0.01", wantStatus: models.DebtPartial},
		{name: "zero rejected", paid: "5", value: "0", wantErr: true},
		{name: "negative rejected", paid: "5", value: "-1", wantErr: true},
		{name: "exceeds remaining", paid: "30", value: "3.34", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := models.DebtInstallment{ID: "d1", Amount: dec("33.33"), PaidAmount: dec(tt.paid)}
			d.Status = models.StatusFor(d.Amount, d.PaidAmount)

			got, err := ApplyPartialPayment(d, dec(tt.value))
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidPayment)
				assert.Equal(t, d, got, "no mutation on rejection")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantPaid, got.PaidAmount.StringFixed(2))
			assert.Equal(t, tt.wantStatus, got.Status)
		})
	}
}

func TestToggleBill(t *testing.T) {
	b := models.Bill{Status: models.BillOpen}
	b = ToggleBill(b)
	assert.Equal(t, models.BillPaid, b.Status)
	b = ToggleBill(b)
	assert.Equal(t, models.BillOpen, b.Status)
}

func TestSuccessor(t *testing.T) {
	base := models.Bill{
		ID:              "b1",
		Title:           "Rent",
		Amount:          dec("1500"),
		DueDate:         period.Date(2024, 1, 31),
		Recurring:       true,
		RecurringActive: true,
		SeriesID:        "s1",
		CategoryID:      "c1",
		PersonID:        "p1",
		Status:          models.BillPaid,
	}

	t.Run("creates the next month", func(t *testing.T) {
		next, ok := Successor(base, []models.Bill{base})
		require.True(t, ok)
		assert.Equal(t, period.Date(2024, 2, 29), next.DueDate)
		assert.Equal(t, models.BillOpen, next.Status)
		assert.Equal(t, "s1", next.SeriesID)
		assert.True(t, next.RecurringActive)
		assert.Equal(t, "c1", next.CategoryID)
		assert.Equal(t, "p1", next.PersonID)
		assert.Empty(t, next.ID)
	})

	t.Run("existing successor", func(t *testing.T) {
		existing := base
		existing.ID = "b2"
		existing.DueDate = period.Date(2024, 2, 29)
		_, ok := Successor(base, []models.Bill{base, existing})
		assert.False(t, ok)
	})

	t.Run("end date before next", func(t *testing.T) {
		b := base
		b.RecurringEndDate = period.Date(2024, 2, 28)
		_, ok := Successor(b, nil)
		assert.False(t, ok)
	})

	t.Run("end date is inclusive", func(t *testing.T) {
		b := base
		b.RecurringEndDate = period.Date(2024, 2, 29)
		_, ok := Successor(b, nil)
		assert.True(t, ok)
	})

	t.Run("stopped series", func(t *testing.T) {
		b := base
		b.RecurringActive = false
		_, ok := Successor(b, nil)
		assert.False(t, ok)
	})

	t.Run("one-off", func(t *testing.T) {
		b := base
		b.Recurring = false
		_, ok := Successor(b, nil)
		assert.False(t, ok)
	})
}
