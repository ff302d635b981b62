package library

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRosterCreateAndUpdate(t *testing.T) {
	m := testManager(t, spring)
	ctx := context.Background()

	_, err := m.Roster.Create(ctx, &Learner{Name: "Ann", Surname: "Lee", Grade: "8"})
	assert.ErrorIs(t, err, ErrInvalidInput, "date of birth is required")

	_, err = m.Roster.Create(ctx, &Learner{Surname: "Lee", Grade: "8", DateOfBirth: Date(2011, 1, 1)})
	assert.ErrorIs(t, err, ErrInvalidInput)

	l := addLearner(t, m, " Ann ", "Lee")
	assert.Equal(t, "Ann", l.Name)

	l.Grade = "9"
	require.NoError(t, m.Roster.Update(ctx, l))
	got, err := m.Roster.GetByID(ctx, l.ID)
	require.NoError(t, err)
	assert.Equal(t, "9", got.Grade)
	assert.Equal(t, Date(2011, time.May, 14), got.DateOfBirth)

	_, err = m.Roster.GetByID(ctx, 404)
	assert.ErrorIs(t, err, ErrLearnerNotFound)
}

func TestRosterQueries(t *testing.T) {
	m := testManager(t, spring)
	ctx := context.Background()
	addLearner(t, m, "Zoe", "Adams")
	addLearner(t, m, "Ann", "Adams")
	other := addLearner(t, m, "Bo", "Cole")
	other.Grade = "10"
	require.NoError(t, m.Roster.Update(ctx, other))

	all, err := m.Roster.All(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"Ann", "Zoe", "Bo"}, []string{all[0].Name, all[1].Name, all[2].Name}, "ordered by surname then name")

	got, err := m.Roster.FilterByGrade(ctx, "10")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, other.ID, got[0].ID)

	got, err = m.Roster.Search(ctx, "adam")
	require.NoError(t, err)
	assert.Len(t, got, 2)

	got, err = m.Roster.Search(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, got)

	n, err := m.Roster.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestRosterDeleteGuard(t *testing.T) {
	m := testManager(t, spring)
	ctx := context.Background()
	b := addBook(t, m, "B001", "10")
	borrower := addLearner(t, m, "Ann", "Lee")
	idle := addLearner(t, m, "Bo", "Cole")

	_, err := m.Lending.Borrow(ctx, borrower.ID, b.ID, spring)
	require.NoError(t, err)

	assert.ErrorIs(t, m.Roster.Delete(ctx, borrower.ID), ErrReferencedEntity)
	require.NoError(t, m.Roster.Delete(ctx, idle.ID))
	assert.ErrorIs(t, m.Roster.Delete(ctx, idle.ID), ErrLearnerNotFound)
}

func TestRosterHasOverdueBooks(t *testing.T) {
	m := testManager(t, Date(2024, time.December, 1))
	ctx := context.Background()
	b := addBook(t, m, "B001", "10")
	l := addLearner(t, m, "Ann", "Lee")

	overdue, err := m.Roster.HasOverdueBooks(ctx, l.ID)
	require.NoError(t, err)
	assert.False(t, overdue)

	_, err = m.Lending.Borrow(ctx, l.ID, b.ID, Date(2024, time.February, 1))
	require.NoError(t, err)

	overdue, err = m.Roster.HasOverdueBooks(ctx, l.ID)
	require.NoError(t, err)
	assert.True(t, overdue)
}
