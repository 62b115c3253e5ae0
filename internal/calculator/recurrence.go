package calculator

import (
	"time"

	"github.com/mmynk/hearth/internal/models"
	"github.com/mmynk/hearth/internal/period"
)

// NextDueDate returns the due date of the occurrence that follows b, and false
// when b cannot roll forward: the series is not recurring, has been stopped,
// has no series id, or the next date falls after the inclusive end date.
func NextDueDate(b models.Bill) (time.Time, bool) {
	if !b.RollsForward() || b.DueDate.IsZero() {
		return time.Time{}, false
	}
	next := period.AddMonths(b.DueDate, 1)
	if !b.RecurringEndDate.IsZero() && next.After(b.RecurringEndDate) {
		return time.Time{}, false
	}
	return next, true
}

// Successor builds the occurrence that follows b, unless one of the existing
// occurrences of the series already falls on that date.
func Successor(b models.Bill, series []models.Bill) (models.Bill, bool) {
	next, ok := NextDueDate(b)
	if !ok {
		return models.Bill{}, false
	}
	for _, existing := range series {
		if existing.SeriesID == b.SeriesID && existing.DueDate.Equal(next) {
			return models.Bill{}, false
		}
	}
	return models.Bill{
		Title:            b.Title,
		Amount:           b.Amount,
		DueDate:          next,
		Recurring:        true,
		RecurringActive:  true,
		SeriesID:         b.SeriesID,
		RecurringEndDate: b.RecurringEndDate,
		CategoryID:       b.CategoryID,
		PersonID:         b.PersonID,
		Status:           models.BillOpen,
	}, true
}
