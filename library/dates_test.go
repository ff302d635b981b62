package library

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDueDate(t *testing.T) {
	cases := []struct {
		borrow, due time.Time
	}{
		{Date(2024, time.January, 10), Date(2024, time.November, 28)},
		{Date(2024, time.January, 1), Date(2024, time.November, 28)},
		{Date(2024, time.November, 28), Date(2024, time.November, 28)},
		{Date(2024, time.November, 29), Date(2025, time.November, 28)},
		{Date(2024, time.December, 5), Date(2025, time.November, 28)},
		{Date(2024, time.December, 31), Date(2025, time.November, 28)},
	}
	for _, c := range cases {
		assert.Equal(t, c.due, DueDate(c.borrow), "borrowed %s", c.borrow.Format(dateLayout))
	}
}

func TestDueDateEveryDayOfYear(t *testing.T) {
	cutoff := Date(2023, time.November, 28)
	for d := Date(2023, time.January, 1); d.Year() == 2023; d = d.AddDate(0, 0, 1) {
		due := DueDate(d)
		require.Equal(t, time.November, due.Month())
		require.Equal(t, 28, due.Day())
		if d.After(cutoff) {
			require.Equal(t, 2024, due.Year(), d.Format(dateLayout))
		} else {
			require.Equal(t, 2023, due.Year(), d.Format(dateLayout))
		}
	}
}

func TestDueDateIgnoresTimeOfDay(t *testing.T) {
	late := time.Date(2024, time.November, 28, 23, 59, 0, 0, time.UTC)
	assert.Equal(t, Date(2024, time.November, 28), DueDate(late))
}

func TestOverdue(t *testing.T) {
	tx := &Transaction{Status: TxActive, DueDate: Date(2024, time.November, 28)}

	assert.False(t, tx.IsOverdue(Date(2024, time.November, 28)), "due today is not overdue")
	assert.True(t, tx.IsOverdue(Date(2024, time.November, 29)))
	assert.Equal(t, 0, tx.DaysOverdue(Date(2024, time.November, 1)))
	assert.Equal(t, 5, tx.DaysOverdue(Date(2024, time.December, 3)))

	tx.Status = TxReturned
	assert.False(t, tx.IsOverdue(Date(2025, time.January, 1)), "only active loans are overdue")
	assert.Equal(t, 0, tx.DaysOverdue(Date(2025, time.January, 1)))
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2024-03-01")
	require.NoError(t, err)
	assert.Equal(t, Date(2024, time.March, 1), d)

	_, err = ParseDate("01/03/2024")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestDaysBetween(t *testing.T) {
	assert.Equal(t, 366, DaysBetween(Date(2024, 1, 1), Date(2025, 1, 1)))
	assert.Equal(t, -1, DaysBetween(Date(2024, 1, 2), Date(2024, 1, 1)))
}

func TestLearnerHelpers(t *testing.T) {
	l := &Learner{Name: "john", Surname: "Smith", DateOfBirth: Date(2010, time.June, 15)}
	assert.Equal(t, "J. Smith", l.InitialSurname())
	assert.Equal(t, "john Smith", l.FullName())
	assert.Equal(t, 13, l.Age(Date(2024, time.June, 14)))
	assert.Equal(t, 14, l.Age(Date(2024, time.June, 15)))

	assert.Empty(t, (&Learner{Surname: "Smith"}).InitialSurname())
}

func TestTimestampsSortLexically(t *testing.T) {
	a := formatTimestamp(time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC))
	b := formatTimestamp(time.Date(2024, 1, 1, 9, 0, 0, 500, time.UTC))
	c := formatTimestamp(time.Date(2024, 1, 1, 10, 0, 0, 0, time.FixedZone("SAST", 2*3600)))
	assert.Less(t, a, b)
	assert.Less(t, c, a, "zoned times are stored in UTC")

	back, err := parseTimestamp(b)
	require.NoError(t, err)
	assert.Equal(t, 500, back.Nanosecond())
}
