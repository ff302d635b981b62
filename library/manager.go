package library

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
)

// Options tunes a LibraryManager. Zero values pick the defaults.
type Options struct {
	Clock  Clock
	Logger *slog.Logger
	Auth   Authenticator
}

// LibraryManager opens the database and wires the services together once,
// keeping CLI code simple.
type LibraryManager struct {
	db *Database

	Catalog  *Catalog
	Roster   *Roster
	Lending  *Lending
	Ledger   *Ledger
	Accounts *Accounts
	Reports  *Reports

	now Clock
}

// NewLibraryManager opens (or creates) the SQLite database at dbPath.
func NewLibraryManager(dbPath string, opts Options) (*LibraryManager, error) {
	db, err := NewDatabase(dbPath)
	if err != nil {
		return nil, err
	}
	return newManager(db, opts), nil
}

func newManager(db *Database, opts Options) *LibraryManager {
	now := opts.Clock
	if now == nil {
		now = SystemClock
	}
	logger := orDiscard(opts.Logger)
	auth := opts.Auth
	if auth == nil {
		auth = NewBcryptAuthenticator(0)
	}

	lending := NewLending(db, now, logger.With("component", "lending"))
	return &LibraryManager{
		db:       db,
		Catalog:  NewCatalog(db, now, logger.With("component", "catalog")),
		Roster:   NewRoster(db, lending, now, logger.With("component", "roster")),
		Lending:  lending,
		Ledger:   NewLedger(db, now, logger.With("component", "ledger")),
		Accounts: NewAccounts(db, auth, now, logger.With("component", "accounts")),
		Reports:  NewReports(db, now),
		now:      now,
	}
}

// Close closes the underlying database.
func (lm *LibraryManager) Close() error { return lm.db.Close() }

// Today is the manager's current calendar day.
func (lm *LibraryManager) Today() time.Time { return DateOf(lm.now()) }

// ------------------ Circulation helpers ------------------

// CurrentBorrower returns the learner holding bookID, or nil when the book is
// not out on an active loan.
func (lm *LibraryManager) CurrentBorrower(ctx context.Context, bookID int64) (*Learner, error) {
	txs, err := lm.db.ListTransactions(ctx, TransactionFilter{
		BookID:   bookID,
		Statuses: []TransactionStatus{TxActive},
		Limit:    1,
	})
	if err != nil {
		return nil, err
	}
	if len(txs) == 0 {
		return nil, nil
	}
	return lm.db.GetLearner(ctx, txs[0].LearnerID)
}

// LearnerStatement gathers what a learner has out and owes.
type LearnerStatement struct {
	Learner     *Learner
	Active      []*Transaction
	UnpaidLost  []*Transaction
	Outstanding decimal.Decimal
	FeesOwed    decimal.Decimal
	HasOverdue  bool
}

// CanBorrow mirrors the lending rule: no overdue loans.
func (s *LearnerStatement) CanBorrow() bool { return !s.HasOverdue }

func (lm *LibraryManager) Statement(ctx context.Context, learnerID int64) (*LearnerStatement, error) {
	l, err := lm.Roster.GetByID(ctx, learnerID)
	if err != nil {
		return nil, err
	}
	s := &LearnerStatement{Learner: l}
	if s.Active, err = lm.Lending.ActiveByLearner(ctx, learnerID); err != nil {
		return nil, err
	}
	if s.UnpaidLost, err = lm.Ledger.UnpaidLostTransactions(ctx, learnerID); err != nil {
		return nil, err
	}
	if s.Outstanding, err = lm.Ledger.OutstandingAmount(ctx, learnerID); err != nil {
		return nil, err
	}
	if s.FeesOwed, err = lm.Ledger.TotalOutstandingFees(ctx, learnerID); err != nil {
		return nil, err
	}
	if s.HasOverdue, err = lm.Lending.HasOverdueBooks(ctx, learnerID); err != nil {
		return nil, err
	}
	return s, nil
}

// ------------------ Setup ------------------

// NeedsBootstrap reports whether no staff account exists yet. The first
// registered account is made an admin by the CLI.
func (lm *LibraryManager) NeedsBootstrap(ctx context.Context) (bool, error) {
	n, err := lm.db.CountUsers(ctx)
	if err != nil {
		return false, err
	}
	return n == 0, nil
}

// ------------------ Utilities ------------------

// PrettyBook formats a book for lists.
func PrettyBook(b *Book, borrowerName string) string {
	return fmt.Sprintf("%-5d %-10s %-30s %-20s %-8s %8s %-10s %-20s",
		b.ID, b.BookCode, truncate(b.Title, 30), truncate(b.Author, 20), b.Grade,
		b.Price.StringFixed(2), b.Status, borrowerName)
}

// PrettyTransaction formats a loan for lists; today drives the overdue marker.
func PrettyTransaction(t *Transaction, today time.Time) string {
	returned := "-"
	if t.ReturnDate != nil {
		returned = formatDate(*t.ReturnDate)
	}
	flag := ""
	if t.IsOverdue(today) {
		flag = fmt.Sprintf("OVERDUE %dd", t.DaysOverdue(today))
	}
	return fmt.Sprintf("%-5d %-8d %-6d %-10s %-10s %-10s %-9s %s",
		t.ID, t.LearnerID, t.BookID, formatDate(t.BorrowDate), formatDate(t.DueDate),
		returned, t.Status, flag)
}

// IsUserError reports whether err is a business-rule failure worth showing to
// the operator as-is, rather than an infrastructure fault.
func IsUserError(err error) bool {
	for _, kind := range []error{
		ErrNotFound, ErrConflict, ErrInvalidState, ErrIneligible,
		ErrEmptyInput, ErrInvalidInput, ErrPermissionDenied,
	} {
		if errors.Is(err, kind) {
			return true
		}
	}
	return false
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 3 {
		return string(r[:n])
	}
	return string(r[:n-3]) + "..."
}
