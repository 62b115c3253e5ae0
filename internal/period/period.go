// Package period implements the calendar arithmetic shared by the ledger:
// month stepping with day clamping and the YYYY-MM month key used for every
// filter and rollup.
//
// Dates are civil dates. They are carried as time.Time values at midnight UTC
// and serialized as YYYY-MM-DD strings.
package period

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the wire and storage format of a civil date.
const DateLayout = "2006-01-02"

// MonthLayout is the layout of a month key.
const MonthLayout = "2006-01"

// Date returns midnight UTC of the given civil date.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// DateOnly drops the time-of-day component of t, keeping its UTC calendar day.
func DateOnly(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	y, m, d := t.UTC().Date()
	return Date(y, m, d)
}

// Today returns the current UTC civil date.
func Today(now time.Time) time.Time {
	return DateOnly(now)
}

// DaysIn returns the number of days in the given month.
func DaysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// AddMonths adds n calendar months to d, preserving the day of month. When the
// target month is shorter the day is clamped to its last day, so Jan 31 + 1
// lands on Feb 28 or Feb 29. The zero time is returned unchanged.
func AddMonths(d time.Time, n int) time.Time {
	if d.IsZero() {
		return d
	}
	y, m, day := d.UTC().Date()

	// Step from the first of the month so time.Date never normalizes an
	// overflowing day into the following month.
	first := time.Date(y, m+time.Month(n), 1, 0, 0, 0, 0, time.UTC)
	ty, tm, _ := first.Date()
	if last := DaysIn(ty, tm); day > last {
		day = last
	}
	return Date(ty, tm, day)
}

// AddMonthsString is AddMonths over YYYY-MM-DD strings. Malformed input is
// returned unchanged.
func AddMonthsString(s string, n int) string {
	d, err := ParseDate(s)
	if err != nil {
		return s
	}
	return FormatDate(AddMonths(d, n))
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}
	d, err := time.ParseInLocation(DateLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return d, nil
}

// FormatDate formats d as YYYY-MM-DD, or "" for the zero time.
func FormatDate(d time.Time) string {
	if d.IsZero() {
		return ""
	}
	return d.UTC().Format(DateLayout)
}

// MonthKey returns the YYYY-MM bucket of d, or "" for the zero time.
func MonthKey(d time.Time) string {
	if d.IsZero() {
		return ""
	}
	return d.UTC().Format(MonthLayout)
}

// YearKey returns the YYYY bucket of d, or "" for the zero time.
func YearKey(d time.Time) string {
	if d.IsZero() {
		return ""
	}
	return strconv.Itoa(d.UTC().Year())
}

// ParseMonthKey parses a YYYY-MM key into the first day of that month.
func ParseMonthKey(key string) (time.Time, error) {
	t, err := time.ParseInLocation(MonthLayout, strings.TrimSpace(key), time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid month key %q: %w", key, err)
	}
	return t, nil
}

// Months returns count consecutive month keys starting at the month of start.
func Months(start time.Time, count int) []string {
	if count <= 0 || start.IsZero() {
		return nil
	}
	y, m, _ := start.UTC().Date()
	first := Date(y, m, 1)
	keys := make([]string, count)
	for i := range keys {
		keys[i] = MonthKey(AddMonths(first, i))
	}
	return keys
}

// Filter selects dates by month key, by year, or not at all. Month takes
// precedence over Year when both are set.
type Filter struct {
	Month string // YYYY-MM
	Year  string // YYYY
}

// IsZero reports whether the filter selects every date.
func (f Filter) IsZero() bool {
	return f.Month == "" && f.Year == ""
}

// Contains reports whether d falls within the filter.
func (f Filter) Contains(d time.Time) bool {
	switch {
	case f.Month != "":
		return MonthKey(d) == f.Month
	case f.Year != "":
		return YearKey(d) == f.Year
	default:
		return true
	}
}

// ContainsMonth reports whether the month key falls within the filter.
func (f Filter) ContainsMonth(key string) bool {
	switch {
	case f.Month != "":
		return key == f.Month
	case f.Year != "":
		return strings.HasPrefix(key, f.Year+"-")
	default:
		return true
	}
}

// Validate checks the filter's keys are well formed.
func (f Filter) Validate() error {
	if f.Month != "" {
		if _, err := ParseMonthKey(f.Month); err != nil {
			return err
		}
	}
	if f.Year != "" {
		if _, err := time.ParseInLocation("2006", f.Year, time.UTC); err != nil {
			return fmt.Errorf("invalid year %q: %w", f.Year, err)
		}
	}
	return nil
}
