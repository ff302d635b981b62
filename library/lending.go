package library

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// Lending owns the loan lifecycle and is the only writer of Book.Status
// during borrow, return and loss.
//
//	Active -> Returned
//	Active -> Lost -> Paid (Paid is reached through the Ledger)
type Lending struct {
	store Store
	now   Clock
	log   *slog.Logger
}

func NewLending(store Store, now Clock, logger *slog.Logger) *Lending {
	return &Lending{store: store, now: now, log: orDiscard(logger)}
}

func (l *Lending) today() time.Time { return DateOf(l.now()) }

func (l *Lending) overdueFilter(learnerID int64) TransactionFilter {
	return TransactionFilter{
		LearnerID: learnerID,
		Statuses:  []TransactionStatus{TxActive},
		DueBefore: l.today(),
	}
}

func hasOverdue(ctx context.Context, r Repo, f TransactionFilter) (bool, error) {
	n, err := r.CountTransactions(ctx, f)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// HasOverdueBooks reports whether the learner holds any active loan past its due date.
func (l *Lending) HasOverdueBooks(ctx context.Context, learnerID int64) (bool, error) {
	return hasOverdue(ctx, l.store, l.overdueFilter(learnerID))
}

// Borrow lends an available book. A learner with any overdue loan may not
// borrow anything. The new transaction and the book's Borrowed status are
// written together.
func (l *Lending) Borrow(ctx context.Context, learnerID, bookID int64, borrowDate time.Time) (*Transaction, error) {
	borrowDate = DateOf(borrowDate)
	t := &Transaction{
		LearnerID:  learnerID,
		BookID:     bookID,
		BorrowDate: borrowDate,
		DueDate:    DueDate(borrowDate),
		Status:     TxActive,
		CreatedAt:  l.now(),
	}

	err := l.store.InTx(ctx, func(r Repo) error {
		if _, err := r.GetLearner(ctx, learnerID); err != nil {
			return err
		}
		overdue, err := hasOverdue(ctx, r, l.overdueFilter(learnerID))
		if err != nil {
			return err
		}
		if overdue {
			return ErrLearnerIneligible
		}

		book, err := r.GetBook(ctx, bookID)
		if errors.Is(err, ErrBookNotFound) {
			return fmt.Errorf("%w (%w)", ErrBookUnavailable, err)
		}
		if err != nil {
			return err
		}
		if !book.IsAvailable() {
			return fmt.Errorf("%w: book %s is %s", ErrBookUnavailable, book.BookCode, book.Status)
		}

		id, err := r.InsertTransaction(ctx, t)
		if err != nil {
			return err
		}
		t.ID = id
		return r.UpdateBookStatus(ctx, bookID, BookBorrowed)
	})
	if err != nil {
		if errors.Is(err, ErrIneligible) {
			l.log.Warn("borrow refused", "learner_id", learnerID, "book_id", bookID, "reason", err.Error())
		}
		return nil, fmt.Errorf("borrow book %d for learner %d: %w", bookID, learnerID, err)
	}

	l.log.Info("book borrowed",
		"transaction_id", t.ID, "learner_id", learnerID, "book_id", bookID,
		"due_date", formatDate(t.DueDate))
	return t, nil
}

// closeLoan moves an active transaction to status and its book to bookStatus atomically.
func (l *Lending) closeLoan(ctx context.Context, id int64, update func(t *Transaction), bookStatus BookStatus) (*Transaction, error) {
	var t *Transaction
	err := l.store.InTx(ctx, func(r Repo) error {
		var err error
		t, err = r.GetTransaction(ctx, id)
		if err != nil {
			return err
		}
		if t.Status != TxActive {
			return fmt.Errorf("%w (status %s)", ErrTransactionNotActive, t.Status)
		}
		update(t)
		if err := r.UpdateTransaction(ctx, t); err != nil {
			return err
		}
		return r.UpdateBookStatus(ctx, t.BookID, bookStatus)
	})
	return t, err
}

// Return records the book coming back on returnDate and makes it Available again.
func (l *Lending) Return(ctx context.Context, transactionID int64, returnDate time.Time) (*Transaction, error) {
	returnDate = DateOf(returnDate)
	t, err := l.closeLoan(ctx, transactionID, func(t *Transaction) {
		t.Status = TxReturned
		t.ReturnDate = &returnDate
	}, BookAvailable)
	if err != nil {
		return nil, fmt.Errorf("return transaction %d: %w", transactionID, err)
	}
	l.log.Info("book returned",
		"transaction_id", t.ID, "book_id", t.BookID, "return_date", formatDate(returnDate))
	return t, nil
}

// MarkLost records that the book will not come back. No return date is set.
func (l *Lending) MarkLost(ctx context.Context, transactionID int64) (*Transaction, error) {
	t, err := l.closeLoan(ctx, transactionID, func(t *Transaction) {
		t.Status = TxLost
	}, BookLost)
	if err != nil {
		return nil, fmt.Errorf("mark transaction %d lost: %w", transactionID, err)
	}
	l.log.Info("book marked lost", "transaction_id", t.ID, "book_id", t.BookID, "learner_id", t.LearnerID)
	return t, nil
}

func (l *Lending) ByID(ctx context.Context, id int64) (*Transaction, error) {
	return l.store.GetTransaction(ctx, id)
}

// ByLearner lists a learner's loans, newest first.
func (l *Lending) ByLearner(ctx context.Context, learnerID int64) ([]*Transaction, error) {
	return l.store.ListTransactions(ctx, TransactionFilter{LearnerID: learnerID})
}

func (l *Lending) ActiveByLearner(ctx context.Context, learnerID int64) ([]*Transaction, error) {
	return l.store.ListTransactions(ctx, TransactionFilter{
		LearnerID: learnerID,
		Statuses:  []TransactionStatus{TxActive},
	})
}

// ByBook lists a copy's loan history, newest first.
func (l *Lending) ByBook(ctx context.Context, bookID int64) ([]*Transaction, error) {
	return l.store.ListTransactions(ctx, TransactionFilter{BookID: bookID})
}

// ByDateRange lists loans borrowed between from and to, both inclusive.
func (l *Lending) ByDateRange(ctx context.Context, from, to time.Time) ([]*Transaction, error) {
	if to.Before(from) {
		return nil, fmt.Errorf("%w: range end %s is before start %s", ErrInvalidInput, formatDate(to), formatDate(from))
	}
	return l.store.ListTransactions(ctx, TransactionFilter{BorrowedFrom: from, BorrowedTo: to})
}

func (l *Lending) Active(ctx context.Context) ([]*Transaction, error) {
	return l.store.ListTransactions(ctx, TransactionFilter{Statuses: []TransactionStatus{TxActive}})
}

// Overdue lists active loans past due, earliest due date first.
func (l *Lending) Overdue(ctx context.Context) ([]*Transaction, error) {
	return l.store.ListTransactions(ctx, TransactionFilter{
		Statuses:  []TransactionStatus{TxActive},
		DueBefore: l.today(),
		ByDueDate: true,
	})
}

// Recent returns the n most recently created loans.
func (l *Lending) Recent(ctx context.Context, n uint) ([]*Transaction, error) {
	if n == 0 {
		n = 10
	}
	return l.store.ListTransactions(ctx, TransactionFilter{Limit: n})
}

func (l *Lending) All(ctx context.Context) ([]*Transaction, error) {
	return l.store.ListTransactions(ctx, TransactionFilter{})
}

// Today is the lending engine's notion of the current day.
func (l *Lending) Today() time.Time { return l.today() }
