package library

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var payday = time.Date(2024, time.June, 3, 14, 5, 9, 0, time.UTC)

type ledgerFixture struct {
	m       *LibraryManager
	learner *Learner
	clerk   *User
}

func newLedgerFixture(t *testing.T) *ledgerFixture {
	t.Helper()
	m := testManager(t, payday)
	return &ledgerFixture{
		m:       m,
		learner: addLearner(t, m, "Ann", "Lee"),
		clerk:   addUser(t, m, "finance_clerk", RoleFinance),
	}
}

// lose borrows a fresh copy priced at price and marks it lost.
func (f *ledgerFixture) lose(t *testing.T, learner *Learner, code, price string) *Transaction {
	t.Helper()
	ctx := context.Background()
	b := addBook(t, f.m, code, price)
	tx, err := f.m.Lending.Borrow(ctx, learner.ID, b.ID, Date(2024, time.February, 1))
	require.NoError(t, err)
	tx, err = f.m.Lending.MarkLost(ctx, tx.ID)
	require.NoError(t, err)
	return tx
}

func (f *ledgerFixture) payment() *Payment {
	return &Payment{LearnerID: f.learner.ID, ProcessedBy: f.clerk.ID}
}

func TestLostBookSettlementScenario(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()
	tx := f.lose(t, f.learner, "B001", "150.00")

	fees, err := f.m.Ledger.TotalOutstandingFees(ctx, f.learner.ID)
	require.NoError(t, err)
	assert.Equal(t, "150.00", fees.StringFixed(2))

	p, err := f.m.Ledger.ProcessPayment(ctx, f.payment(), []int64{tx.ID})
	require.NoError(t, err)
	assert.Equal(t, "150.00", p.Amount.StringFixed(2))
	assert.Equal(t, "RCP-20240603-140509", p.ReceiptNo)

	got, err := f.m.Lending.ByID(ctx, tx.ID)
	require.NoError(t, err)
	assert.Equal(t, TxPaid, got.Status)
	assert.Equal(t, "Payment processed - Receipt: RCP-20240603-140509", got.Notes)

	items, err := f.m.Ledger.PaymentItems(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, tx.ID, items[0].TransactionID)
	assert.Equal(t, tx.BookID, items[0].BookID)
	assert.Equal(t, "150.00", items[0].Amount.StringFixed(2))

	fees, err = f.m.Ledger.TotalOutstandingFees(ctx, f.learner.ID)
	require.NoError(t, err)
	assert.True(t, fees.IsZero())
	out, err := f.m.Ledger.OutstandingAmount(ctx, f.learner.ID)
	require.NoError(t, err)
	assert.True(t, out.IsZero(), "paid loans are no longer counted")
}

func TestOutstandingAmounts(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()
	f.lose(t, f.learner, "B001", "150.00")
	onLoan := addBook(t, f.m, "B002", "80.25")
	_, err := f.m.Lending.Borrow(ctx, f.learner.ID, onLoan.ID, payday)
	require.NoError(t, err)
	returned := addBook(t, f.m, "B003", "999")
	tx, err := f.m.Lending.Borrow(ctx, f.learner.ID, returned.ID, payday)
	require.NoError(t, err)
	_, err = f.m.Lending.Return(ctx, tx.ID, payday)
	require.NoError(t, err)

	out, err := f.m.Ledger.OutstandingAmount(ctx, f.learner.ID)
	require.NoError(t, err)
	assert.Equal(t, "230.25", out.StringFixed(2), "active + lost")

	fees, err := f.m.Ledger.TotalOutstandingFees(ctx, f.learner.ID)
	require.NoError(t, err)
	assert.Equal(t, "150.00", fees.StringFixed(2), "lost only")

	lost, err := f.m.Ledger.UnpaidLostTransactions(ctx, f.learner.ID)
	require.NoError(t, err)
	assert.Len(t, lost, 1)
}

func TestProcessPaymentSeveralBooks(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()
	a := f.lose(t, f.learner, "B001", "150.00")
	b := f.lose(t, f.learner, "B002", "49.99")

	in := f.payment()
	in.Amount = money("199.99")
	in.Notes = "cash"
	p, err := f.m.Ledger.ProcessPayment(ctx, in, []int64{a.ID, b.ID})
	require.NoError(t, err)
	assert.True(t, in.ReceiptNo == "" && in.ID == 0, "caller's payment untouched")

	stored, err := f.m.Ledger.PaymentByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "199.99", stored.Amount.StringFixed(2))
	assert.Equal(t, "cash", stored.Notes)
	assert.Equal(t, f.clerk.ID, stored.ProcessedBy)

	items, err := f.m.Ledger.PaymentItems(ctx, p.ID)
	require.NoError(t, err)
	assert.Len(t, items, 2)
	assert.Equal(t, TxPaid, txStatus(t, f.m, a.ID))
	assert.Equal(t, TxPaid, txStatus(t, f.m, b.ID))

	history, err := f.m.Ledger.PaymentsByLearner(ctx, f.learner.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, p.ReceiptNo, history[0].ReceiptNo)
}

func TestProcessPaymentRejectsBadSelections(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()
	lost := f.lose(t, f.learner, "B001", "150.00")

	_, err := f.m.Ledger.ProcessPayment(ctx, f.payment(), nil)
	assert.ErrorIs(t, err, ErrEmptySelection)
	assert.ErrorIs(t, err, ErrEmptyInput)

	_, err = f.m.Ledger.ProcessPayment(ctx, f.payment(), []int64{lost.ID, lost.ID})
	assert.ErrorIs(t, err, ErrDuplicateSelection)

	_, err = f.m.Ledger.ProcessPayment(ctx, f.payment(), []int64{lost.ID, 404})
	assert.ErrorIs(t, err, ErrTransactionNotFound)

	active, err := f.m.Lending.Borrow(ctx, f.learner.ID, addBook(t, f.m, "B002", "10").ID, payday)
	require.NoError(t, err)
	_, err = f.m.Ledger.ProcessPayment(ctx, f.payment(), []int64{active.ID})
	assert.ErrorIs(t, err, ErrTransactionNotLost)
	assert.ErrorIs(t, err, ErrInvalidState)

	stranger := addLearner(t, f.m, "Bo", "Cole")
	theirs := f.lose(t, stranger, "B003", "10")
	_, err = f.m.Ledger.ProcessPayment(ctx, f.payment(), []int64{theirs.ID})
	assert.ErrorIs(t, err, ErrLearnerMismatch)

	in := f.payment()
	in.Amount = money("100")
	_, err = f.m.Ledger.ProcessPayment(ctx, in, []int64{lost.ID})
	assert.ErrorIs(t, err, ErrAmountMismatch)

	in = f.payment()
	in.LearnerID = 404
	_, err = f.m.Ledger.ProcessPayment(ctx, in, []int64{lost.ID})
	assert.ErrorIs(t, err, ErrLearnerNotFound)

	assertNothingSettled(t, f, lost.ID)
}

func TestProcessPaymentRollsBackOnItemFailure(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()
	a := f.lose(t, f.learner, "B001", "150.00")
	b := f.lose(t, f.learner, "B002", "20.00")

	faulty := NewLedger(failOn(f.m.db, "InsertPaymentItem", 2), FixedClock(payday), nil)
	_, err := faulty.ProcessPayment(ctx, f.payment(), []int64{a.ID, b.ID})
	require.ErrorIs(t, err, errInjected)

	assertNothingSettled(t, f, a.ID, b.ID)
}

func TestProcessPaymentRollsBackOnStatusFailure(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()
	a := f.lose(t, f.learner, "B001", "150.00")
	b := f.lose(t, f.learner, "B002", "20.00")

	faulty := NewLedger(failOn(f.m.db, "UpdateTransaction", 2), FixedClock(payday), nil)
	_, err := faulty.ProcessPayment(ctx, f.payment(), []int64{a.ID, b.ID})
	require.ErrorIs(t, err, errInjected)

	assertNothingSettled(t, f, a.ID, b.ID)
}

func assertNothingSettled(t *testing.T, f *ledgerFixture, ids ...int64) {
	t.Helper()
	payments, err := f.m.Ledger.PaymentsByLearner(context.Background(), f.learner.ID)
	require.NoError(t, err)
	assert.Empty(t, payments)

	var items int
	require.NoError(t, f.m.db.db.Get(&items, `SELECT COUNT(*) FROM payment_items`))
	assert.Zero(t, items)

	for _, id := range ids {
		assert.Equal(t, TxLost, txStatus(t, f.m, id))
	}
}

func TestReceiptCollisionGetsSuffix(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()

	var receipts []string
	for _, code := range []string{"B001", "B002", "B003"} {
		tx := f.lose(t, f.learner, code, "10")
		p, err := f.m.Ledger.ProcessPayment(ctx, f.payment(), []int64{tx.ID})
		require.NoError(t, err)
		receipts = append(receipts, p.ReceiptNo)
	}
	assert.Equal(t, []string{
		"RCP-20240603-140509",
		"RCP-20240603-140509-1",
		"RCP-20240603-140509-2",
	}, receipts)
}

func TestExplicitDuplicateReceiptConflicts(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()
	first := f.lose(t, f.learner, "B001", "10")
	second := f.lose(t, f.learner, "B002", "10")

	in := f.payment()
	in.ReceiptNo = "MANUAL-1"
	_, err := f.m.Ledger.ProcessPayment(ctx, in, []int64{first.ID})
	require.NoError(t, err)

	_, err = f.m.Ledger.ProcessPayment(ctx, in, []int64{second.ID})
	assert.ErrorIs(t, err, ErrDuplicateReceipt)
	assert.True(t, strings.Contains(err.Error(), "receipt"))
	assert.Equal(t, TxLost, txStatus(t, f.m, second.ID))
}

func TestPaymentKeepsPriceSnapshot(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()
	tx := f.lose(t, f.learner, "B001", "150.00")
	p, err := f.m.Ledger.ProcessPayment(ctx, f.payment(), []int64{tx.ID})
	require.NoError(t, err)

	b, err := f.m.Catalog.GetByID(ctx, tx.BookID)
	require.NoError(t, err)
	b.Price = money("999")
	require.NoError(t, f.m.Catalog.Update(ctx, b))

	items, err := f.m.Ledger.PaymentItems(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "150.00", items[0].Amount.StringFixed(2))

	stored, err := f.m.Ledger.PaymentByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "150.00", stored.Amount.StringFixed(2))
}

func TestProcessPaymentRequiresPayment(t *testing.T) {
	f := newLedgerFixture(t)
	tx := f.lose(t, f.learner, "B001", "10")
	_, err := f.m.Ledger.ProcessPayment(context.Background(), nil, []int64{tx.ID})
	assert.ErrorIs(t, err, ErrInvalidInput)
	assertNothingSettled(t, f, tx.ID)
}
