package library

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// BookFilter narrows catalog listings. Zero fields are ignored.
type BookFilter struct {
	Status  *BookStatus
	Grade   string
	Subject string
	ISBN    string
	// Term matches title, author, book code or ISBN as a substring.
	Term string
}

// LearnerFilter narrows roster listings. Zero fields are ignored.
type LearnerFilter struct {
	Grade string
	// Term matches name, surname or contact number as a substring.
	Term string
}

// TransactionFilter narrows loan listings. Zero fields are ignored.
type TransactionFilter struct {
	LearnerID int64
	BookID    int64
	Statuses  []TransactionStatus
	// DueBefore keeps loans whose due date is strictly earlier.
	DueBefore time.Time
	// BorrowedFrom and BorrowedTo bound the borrow date, both inclusive.
	BorrowedFrom time.Time
	BorrowedTo   time.Time
	// ByDueDate orders ascending by due date instead of newest first.
	ByDueDate bool
	Limit     uint
}

// Repo is the record-level persistence surface. Lookups of a single record
// return a kind-wrapped not-found error when nothing matches.
type Repo interface {
	InsertBook(ctx context.Context, b *Book) (int64, error)
	UpdateBook(ctx context.Context, b *Book) error
	UpdateBookStatus(ctx context.Context, id int64, status BookStatus) error
	DeleteBook(ctx context.Context, id int64) error
	GetBook(ctx context.Context, id int64) (*Book, error)
	GetBookByCode(ctx context.Context, code string) (*Book, error)
	ListBooks(ctx context.Context, f BookFilter) ([]*Book, error)
	CountBooks(ctx context.Context, f BookFilter) (int, error)

	InsertLearner(ctx context.Context, l *Learner) (int64, error)
	UpdateLearner(ctx context.Context, l *Learner) error
	DeleteLearner(ctx context.Context, id int64) error
	GetLearner(ctx context.Context, id int64) (*Learner, error)
	ListLearners(ctx context.Context, f LearnerFilter) ([]*Learner, error)
	CountLearners(ctx context.Context, f LearnerFilter) (int, error)

	InsertTransaction(ctx context.Context, t *Transaction) (int64, error)
	UpdateTransaction(ctx context.Context, t *Transaction) error
	GetTransaction(ctx context.Context, id int64) (*Transaction, error)
	ListTransactions(ctx context.Context, f TransactionFilter) ([]*Transaction, error)
	CountTransactions(ctx context.Context, f TransactionFilter) (int, error)
	CountActiveLearners(ctx context.Context) (int, error)
	// SumBookPrices adds up the price of the book behind every matching loan.
	SumBookPrices(ctx context.Context, f TransactionFilter) (decimal.Decimal, error)

	InsertPayment(ctx context.Context, p *Payment) (int64, error)
	GetPayment(ctx context.Context, id int64) (*Payment, error)
	ReceiptExists(ctx context.Context, receiptNo string) (bool, error)
	ListPaymentsByLearner(ctx context.Context, learnerID int64) ([]*Payment, error)
	InsertPaymentItem(ctx context.Context, item *PaymentItem) (int64, error)
	ListPaymentItems(ctx context.Context, paymentID int64) ([]*PaymentItem, error)

	InsertUser(ctx context.Context, u *User) (int64, error)
	UpdateUser(ctx context.Context, u *User) error
	DeleteUser(ctx context.Context, id int64) error
	GetUser(ctx context.Context, id int64) (*User, error)
	GetUserByUsername(ctx context.Context, username string) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	ListUsers(ctx context.Context) ([]*User, error)
	CountUsers(ctx context.Context) (int, error)
	InsertActivity(ctx context.Context, a *ActivityLog) (int64, error)
	ListActivity(ctx context.Context, userID int64, limit uint) ([]*ActivityLog, error)
}

// Store is a Repo that can also run a group of writes atomically.
type Store interface {
	Repo
	// InTx runs fn against a transactional Repo. The writes commit when fn
	// returns nil and are rolled back otherwise.
	InTx(ctx context.Context, fn func(r Repo) error) error
}
