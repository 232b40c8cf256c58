package billing

import (
	"fmt"
	"strings"
	"time"
)

const (
	// DateLayout is the calendar date format of entries and payments.
	DateLayout = "2006-01-02"
	// MonthLayout is the format of a billing month.
	MonthLayout = "2006-01"

	monthLabelLayout = "January 2006"
	dayLabelLayout   = "Monday, January 02, 2006"
)

// InMonth reports whether date falls in month. This is a literal prefix test on the
// YYYY-MM string; no time zone conversion takes place.
func InMonth(date, month string) bool {
	return strings.HasPrefix(date, month)
}

// ValidateDate checks that value is a YYYY-MM-DD calendar date.
func ValidateDate(field, value string) error {
	if _, err := time.Parse(DateLayout, value); err != nil {
		return NewValidationError(field, fmt.Sprintf("must be a YYYY-MM-DD date, got %q", value))
	}
	return nil
}

// ParseMonth parses a YYYY-MM month into the first instant of that month in UTC.
func ParseMonth(month string) (time.Time, error) {
	t, err := time.Parse(MonthLayout, month)
	if err != nil {
		return time.Time{}, NewValidationError("month", fmt.Sprintf("must be YYYY-MM, got %q", month))
	}
	return t, nil
}

// MonthOf returns the YYYY-MM month containing t.
func MonthOf(t time.Time) string {
	return t.Format(MonthLayout)
}

// PreviousMonth returns the month before month.
func PreviousMonth(month string) (string, error) {
	t, err := ParseMonth(month)
	if err != nil {
		return "", err
	}
	return MonthOf(t.AddDate(0, -1, 0)), nil
}

// NextMonth returns the month after month.
func NextMonth(month string) (string, error) {
	t, err := ParseMonth(month)
	if err != nil {
		return "", err
	}
	return MonthOf(t.AddDate(0, 1, 0)), nil
}

// MonthLabel renders month for people, e.g. "2024-03" -> "March 2024".
func MonthLabel(month string) (string, error) {
	t, err := ParseMonth(month)
	if err != nil {
		return "", err
	}
	return t.Format(monthLabelLayout), nil
}

// AddMonths moves t forward by n calendar months keeping the day of month, clamped
// to the last day of the target month (Jan 31 + 1 month = Feb 28/29).
func AddMonths(t time.Time, n int) time.Time {
	year, month, day := t.Date()
	first := time.Date(year, month+time.Month(n), 1, 0, 0, 0, 0, t.Location())
	if last := daysIn(first.Year(), first.Month(), t.Location()); day > last {
		day = last
	}
	hour, minute, sec := t.Clock()
	return time.Date(first.Year(), first.Month(), day, hour, minute, sec, t.Nanosecond(), t.Location())
}

func daysIn(year int, month time.Month, loc *time.Location) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, loc).Day()
}

// ShiftDate moves a YYYY-MM-DD date by days calendar days.
func ShiftDate(date string, days int) (string, error) {
	t, err := time.Parse(DateLayout, date)
	if err != nil {
		return "", NewValidationError("date", fmt.Sprintf("must be a YYYY-MM-DD date, got %q", date))
	}
	return t.AddDate(0, 0, days).Format(DateLayout), nil
}

// DayLabel renders date for people, e.g. "2024-03-05" -> "Tuesday, March 05, 2024".
func DayLabel(date string) (string, error) {
	t, err := time.Parse(DateLayout, date)
	if err != nil {
		return "", NewValidationError("date", fmt.Sprintf("must be a YYYY-MM-DD date, got %q", date))
	}
	return t.Format(dayLabelLayout), nil
}
