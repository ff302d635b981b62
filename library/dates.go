package library

import (
	"fmt"
	"time"
)

const (
	dateLayout = "2006-01-02"
	// Fixed width so stored timestamps sort lexicographically.
	timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"

	// Loans fall due at the end of the academic year.
	dueMonth = time.November
	dueDay   = 28
)

// Clock supplies the current instant. Services take one so tests can pin "today".
type Clock func() time.Time

// SystemClock is the wall clock.
func SystemClock() time.Time { return time.Now() }

// FixedClock always returns t.
func FixedClock(t time.Time) Clock {
	return func() time.Time { return t }
}

// DateOf truncates t to its calendar day at UTC midnight.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Date builds a calendar day.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// DaysBetween counts whole days from a to b (negative when b is earlier).
func DaysBetween(a, b time.Time) int {
	return int(DateOf(b).Sub(DateOf(a)).Hours() / 24)
}

// DueDate returns 28 November of the borrow year, or of the following year
// when the loan is made after 28 November.
func DueDate(borrowDate time.Time) time.Time {
	year := borrowDate.Year()
	if borrowDate.Month() > dueMonth || (borrowDate.Month() == dueMonth && borrowDate.Day() > dueDay) {
		year++
	}
	return Date(year, dueMonth, dueDay)
}

// ParseDate reads a YYYY-MM-DD day.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: date %q must be YYYY-MM-DD", ErrInvalidInput, s)
	}
	return t, nil
}

func formatDate(t time.Time) string { return DateOf(t).Format(dateLayout) }

func formatTimestamp(t time.Time) string { return t.UTC().Format(timestampLayout) }

func parseTimestamp(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(timestampLayout, s)
}
