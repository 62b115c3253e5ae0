package calculator

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mmynk/hearth/internal/models"
	"github.com/mmynk/hearth/internal/period"
)

// ProjectionMonths is the default projection horizon.
const ProjectionMonths = 6

// ProjectedMonth is the expected recurring spend of one future month.
type ProjectedMonth struct {
	Month  string
	Total  decimal.Decimal
	Series []ProjectedSeries
}

// ProjectedSeries is one active series' contribution to a projected month.
type ProjectedSeries struct {
	SeriesID   string
	Title      string
	CategoryID string
	PersonID   string
	Amount     decimal.Decimal
}

// ActiveSeries picks, per active recurring series, the occurrence with the
// latest due date. Its amount is the one projected forward.
func ActiveSeries(bills []models.Bill) []models.Bill {
	latest := make(map[string]models.Bill)
	for _, b := range bills {
		if !b.RollsForward() {
			continue
		}
		cur, ok := latest[b.SeriesID]
		if !ok || b.DueDate.After(cur.DueDate) {
			latest[b.SeriesID] = b
		}
	}

	series := make([]models.Bill, 0, len(latest))
	for _, b := range latest {
		series = append(series, b)
	}
	sort.Slice(series, func(i, j int) bool {
		if series[i].Title != series[j].Title {
			return series[i].Title < series[j].Title
		}
		return series[i].SeriesID < series[j].SeriesID
	})
	return series
}

// ProjectRecurring projects each active series over months consecutive
// months starting at the month of now. A series contributes to a month unless
// its end date falls in an earlier month.
func ProjectRecurring(bills []models.Bill, now time.Time, months int) []ProjectedMonth {
	series := ActiveSeries(bills)
	keys := period.Months(now, months)

	result := make([]ProjectedMonth, len(keys))
	for i, key := range keys {
		pm := ProjectedMonth{Month: key, Total: decimal.Zero}
		for _, s := range series {
			if !s.RecurringEndDate.IsZero() && period.MonthKey(s.RecurringEndDate) < key {
				continue
			}
			pm.Series = append(pm.Series, ProjectedSeries{
				SeriesID:   s.SeriesID,
				Title:      s.Title,
				CategoryID: s.CategoryID,
				PersonID:   s.PersonID,
				Amount:     s.Amount,
			})
			pm.Total = pm.Total.Add(s.Amount)
		}
		result[i] = pm
	}
	return result
}
