package library

import (
	"context"
	"fmt"
	"time"
)

// Reports computes read-only summaries.
type Reports struct {
	store Store
	now   Clock
}

func NewReports(store Store, now Clock) *Reports {
	return &Reports{store: store, now: now}
}

// DashboardStats counts books by status, learners, users and overdue loans as of today.
func (rp *Reports) DashboardStats(ctx context.Context) (*DashboardStats, error) {
	var (
		s   DashboardStats
		err error
	)
	count := func(dst *int, name string, fn func() (int, error)) {
		if err != nil {
			return
		}
		if *dst, err = fn(); err != nil {
			err = fmt.Errorf("dashboard %s: %w", name, err)
		}
	}
	books := func(st BookStatus) func() (int, error) {
		return func() (int, error) { return rp.store.CountBooks(ctx, BookFilter{Status: &st}) }
	}
	today := DateOf(rp.now())

	count(&s.TotalBooks, "books", func() (int, error) { return rp.store.CountBooks(ctx, BookFilter{}) })
	count(&s.AvailableBooks, "available books", books(BookAvailable))
	count(&s.BorrowedBooks, "borrowed books", books(BookBorrowed))
	count(&s.LostBooks, "lost books", books(BookLost))
	count(&s.TotalLearners, "learners", func() (int, error) { return rp.store.CountLearners(ctx, LearnerFilter{}) })
	count(&s.ActiveLearners, "active learners", func() (int, error) { return rp.store.CountActiveLearners(ctx) })
	count(&s.TotalUsers, "users", func() (int, error) { return rp.store.CountUsers(ctx) })
	count(&s.OverdueBooks, "overdue", func() (int, error) { return rp.overdue(ctx, today) })
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (rp *Reports) overdue(ctx context.Context, today time.Time) (int, error) {
	return rp.store.CountTransactions(ctx, TransactionFilter{
		Statuses:  []TransactionStatus{TxActive},
		DueBefore: today,
	})
}
