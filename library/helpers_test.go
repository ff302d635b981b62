package library

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func tempDB(t *testing.T) *Database {
	t.Helper()
	dir := t.TempDir()
	db, err := NewDatabase(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("new db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// testManager wires every service over a fresh database with "today" pinned.
func testManager(t *testing.T, today time.Time) *LibraryManager {
	t.Helper()
	return newManager(tempDB(t), Options{
		Clock: FixedClock(today),
		Auth:  NewBcryptAuthenticator(bcrypt.MinCost),
	})
}

func money(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func addBook(t *testing.T, m *LibraryManager, code, price string) *Book {
	t.Helper()
	b, err := m.Catalog.Create(context.Background(), &Book{
		BookCode: code,
		ISBN:     "978-0-00-000000-" + code,
		Title:    "Title " + code,
		Author:   "Author " + code,
		Subject:  "Mathematics",
		Grade:    "8",
		Price:    money(price),
	})
	require.NoError(t, err)
	return b
}

func addLearner(t *testing.T, m *LibraryManager, name, surname string) *Learner {
	t.Helper()
	l, err := m.Roster.Create(context.Background(), &Learner{
		Name:        name,
		Surname:     surname,
		Grade:       "8",
		DateOfBirth: Date(2011, time.May, 14),
		ContactNo:   "0821234567",
	})
	require.NoError(t, err)
	return l
}

const (
	testPassword = "secret1"
	testAnswer   = "Blue"
)

func addUser(t *testing.T, m *LibraryManager, username string, role Role) *User {
	t.Helper()
	u, err := m.Accounts.Register(context.Background(), &User{
		Username:         username,
		Name:             "Staff",
		Surname:          username,
		Email:            username + "@school.example",
		Role:             role,
		SecurityQuestion: "Favourite colour?",
	}, testPassword, testAnswer)
	require.NoError(t, err)
	return u
}

func bookStatus(t *testing.T, m *LibraryManager, id int64) BookStatus {
	t.Helper()
	b, err := m.Catalog.GetByID(context.Background(), id)
	require.NoError(t, err)
	return b.Status
}

func txStatus(t *testing.T, m *LibraryManager, id int64) TransactionStatus {
	t.Helper()
	tx, err := m.Lending.ByID(context.Background(), id)
	require.NoError(t, err)
	return tx.Status
}

var errInjected = errors.New("injected failure")

// faultyStore hands out transactional repos that fail the n-th call
// (1-based, counted across the store) of the named method.
type faultyStore struct {
	Store
	method string
	nth    int
	calls  int
}

func failOn(s Store, method string, nth int) *faultyStore {
	return &faultyStore{Store: s, method: method, nth: nth}
}

func (s *faultyStore) InTx(ctx context.Context, fn func(r Repo) error) error {
	return s.Store.InTx(ctx, func(r Repo) error {
		return fn(&faultyRepo{Repo: r, store: s})
	})
}

func (s *faultyStore) trip(method string) error {
	if method != s.method {
		return nil
	}
	s.calls++
	if s.calls == s.nth {
		return errInjected
	}
	return nil
}

type faultyRepo struct {
	Repo
	store *faultyStore
}

func (r *faultyRepo) UpdateBookStatus(ctx context.Context, id int64, status BookStatus) error {
	if err := r.store.trip("UpdateBookStatus"); err != nil {
		return err
	}
	return r.Repo.UpdateBookStatus(ctx, id, status)
}

func (r *faultyRepo) UpdateTransaction(ctx context.Context, t *Transaction) error {
	if err := r.store.trip("UpdateTransaction"); err != nil {
		return err
	}
	return r.Repo.UpdateTransaction(ctx, t)
}

func (r *faultyRepo) InsertPaymentItem(ctx context.Context, item *PaymentItem) (int64, error) {
	if err := r.store.trip("InsertPaymentItem"); err != nil {
		return 0, err
	}
	return r.Repo.InsertPaymentItem(ctx, item)
}
