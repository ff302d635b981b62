package library

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDashboardStatsEmpty(t *testing.T) {
	m := testManager(t, spring)
	st, err := m.Reports.DashboardStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, DashboardStats{}, *st)
}

func TestDashboardStats(t *testing.T) {
	m := testManager(t, december)
	ctx := context.Background()
	ann := addLearner(t, m, "Ann", "Lee")
	ben := addLearner(t, m, "Ben", "Khumalo")
	addLearner(t, m, "Cara", "Naidoo")
	addUser(t, m, "admin", RoleAdmin)
	addUser(t, m, "clerk", RoleFinance)

	books := make([]*Book, 5)
	for i, code := range []string{"B001", "B002", "B003", "B004", "B005"} {
		books[i] = addBook(t, m, code, "10")
	}

	_, err := m.Lending.Borrow(ctx, ann.ID, books[0].ID, Date(2024, time.December, 1))
	require.NoError(t, err)
	_, err = m.Lending.Borrow(ctx, ann.ID, books[1].ID, Date(2024, time.December, 2))
	require.NoError(t, err)
	lost, err := m.Lending.Borrow(ctx, ben.ID, books[3].ID, Date(2023, time.June, 1))
	require.NoError(t, err)
	_, err = m.Lending.MarkLost(ctx, lost.ID)
	require.NoError(t, err)
	_, err = m.Lending.Borrow(ctx, ben.ID, books[2].ID, Date(2023, time.June, 1))
	require.NoError(t, err)

	st, err := m.Reports.DashboardStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, DashboardStats{
		TotalBooks:     5,
		AvailableBooks: 1,
		BorrowedBooks:  3,
		LostBooks:      1,
		TotalLearners:  3,
		ActiveLearners: 2,
		OverdueBooks:   1,
		TotalUsers:     2,
	}, *st)
}
