// Package dateutils provides the calendar arithmetic shared by the analytics modules.
// All helpers work on calendar days in UTC; the time-of-day component is dropped.
package dateutils

import (
	"fmt"
	"strings"
	"time"
)

// DateLayoutISO is the canonical date layout of records, flags and reports.
const DateLayoutISO = "2006-01-02"

// ParseDate parses a YYYY-MM-DD date.
func ParseDate(dateStr string) (time.Time, error) {
	t, err := time.Parse(DateLayoutISO, strings.TrimSpace(dateStr))
	if err != nil {
		return time.Time{}, fmt.Errorf("unable to parse date %q: expected YYYY-MM-DD", dateStr)
	}
	return t, nil
}

// ToISODate formats a time.Time value as an ISO date (YYYY-MM-DD)
func ToISODate(date time.Time) string {
	return date.Format(DateLayoutISO)
}

// Day truncates t to midnight UTC of its calendar day.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// StartOfMonth returns the first day of the month for a given date
func StartOfMonth(date time.Time) time.Time {
	return time.Date(date.Year(), date.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// EndOfMonth returns the last day of the month for a given date
func EndOfMonth(date time.Time) time.Time {
	return StartOfMonth(date).AddDate(0, 1, -1)
}

// DaysInMonth returns the number of days of the month containing date.
func DaysInMonth(date time.Time) int {
	return EndOfMonth(date).Day()
}

// AddMonths shifts the month start of date by n months.
func AddMonths(date time.Time, n int) time.Time {
	return StartOfMonth(date).AddDate(0, n, 0)
}

// ShiftMonths moves date by n calendar months, clamping the day to the
// last day of the target month.
func ShiftMonths(date time.Time, n int) time.Time {
	target := AddMonths(date, n)
	day := date.Day()
	if last := DaysInMonth(target); day > last {
		day = last
	}
	return time.Date(target.Year(), target.Month(), day, 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns the number of calendar days from a to b. The result is
// negative when b is before a.
func DaysBetween(a, b time.Time) int {
	return int(Day(b).Sub(Day(a)).Hours() / 24)
}

// SameMonth reports whether a and b fall in the same calendar month.
func SameMonth(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month()
}

// MonthKey formats the month of date as YYYY-MM.
func MonthKey(date time.Time) string {
	return date.Format("2006-01")
}

// CompareDates compares two dates by calendar day and returns -1, 0 or 1.
func CompareDates(date1, date2 time.Time) int {
	d1, d2 := Day(date1), Day(date2)
	switch {
	case d1.Before(d2):
		return -1
	case d1.After(d2):
		return 1
	default:
		return 0
	}
}
