package library

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"
)

const receiptPrefix = "RCP-"

// Ledger answers "what is owed" and settles lost books. It is the only
// writer of the Lost -> Paid transition.
type Ledger struct {
	store Store
	now   Clock
	log   *slog.Logger
}

func NewLedger(store Store, now Clock, logger *slog.Logger) *Ledger {
	return &Ledger{store: store, now: now, log: orDiscard(logger)}
}

// OutstandingAmount is the value of every book the learner currently has out,
// whether still on loan or lost and unpaid.
func (l *Ledger) OutstandingAmount(ctx context.Context, learnerID int64) (decimal.Decimal, error) {
	return l.store.SumBookPrices(ctx, TransactionFilter{
		LearnerID: learnerID,
		Statuses:  []TransactionStatus{TxActive, TxLost},
	})
}

// TotalOutstandingFees is the money owed: the price of every lost, unpaid book.
func (l *Ledger) TotalOutstandingFees(ctx context.Context, learnerID int64) (decimal.Decimal, error) {
	return l.store.SumBookPrices(ctx, TransactionFilter{
		LearnerID: learnerID,
		Statuses:  []TransactionStatus{TxLost},
	})
}

func (l *Ledger) UnpaidLostTransactions(ctx context.Context, learnerID int64) ([]*Transaction, error) {
	return l.store.ListTransactions(ctx, TransactionFilter{
		LearnerID: learnerID,
		Statuses:  []TransactionStatus{TxLost},
	})
}

// nextReceiptNo derives a receipt number from the clock and appends -1, -2, ...
// until it no longer collides with a stored receipt.
func (l *Ledger) nextReceiptNo(ctx context.Context, r Repo) (string, error) {
	base := receiptPrefix + l.now().Format("20060102-150405")
	candidate := base
	for n := 1; ; n++ {
		exists, err := r.ReceiptExists(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !exists {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, n)
	}
}

func checkSelection(ids []int64) error {
	if len(ids) == 0 {
		return ErrEmptySelection
	}
	seen := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			return fmt.Errorf("%w: transaction %d", ErrDuplicateSelection, id)
		}
		seen[id] = struct{}{}
	}
	return nil
}

type settlement struct {
	tx   *Transaction
	item PaymentItem
}

// ProcessPayment settles the given lost transactions for p.LearnerID. The
// amount is computed from the book prices; a non-zero p.Amount must match it.
// The receipt header, its items and the Paid transitions are written together
// or not at all. The caller's payment is left untouched; the stored one is
// returned.
func (l *Ledger) ProcessPayment(ctx context.Context, in *Payment, transactionIDs []int64) (*Payment, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: payment is required", ErrInvalidInput)
	}
	if err := checkSelection(transactionIDs); err != nil {
		return nil, err
	}
	p := *in

	err := l.store.InTx(ctx, func(r Repo) error {
		if _, err := r.GetLearner(ctx, p.LearnerID); err != nil {
			return err
		}

		staged := make([]settlement, 0, len(transactionIDs))
		total := decimal.Zero
		for _, id := range transactionIDs {
			t, err := r.GetTransaction(ctx, id)
			if err != nil {
				return fmt.Errorf("transaction %d: %w", id, err)
			}
			if t.Status != TxLost {
				return fmt.Errorf("transaction %d is %s: %w", id, t.Status, ErrTransactionNotLost)
			}
			if t.LearnerID != p.LearnerID {
				return fmt.Errorf("transaction %d: %w", id, ErrLearnerMismatch)
			}
			book, err := r.GetBook(ctx, t.BookID)
			if err != nil {
				return fmt.Errorf("transaction %d: %w", id, err)
			}
			staged = append(staged, settlement{
				tx:   t,
				item: PaymentItem{TransactionID: t.ID, BookID: book.ID, Amount: book.Price},
			})
			total = total.Add(book.Price)
		}

		if !p.Amount.IsZero() && !p.Amount.Equal(total) {
			return fmt.Errorf("%w: given %s, owed %s", ErrAmountMismatch, p.Amount.StringFixed(2), total.StringFixed(2))
		}
		p.Amount = total

		p.ReceiptNo = strings.TrimSpace(p.ReceiptNo)
		if p.ReceiptNo == "" {
			receipt, err := l.nextReceiptNo(ctx, r)
			if err != nil {
				return err
			}
			p.ReceiptNo = receipt
		}
		if p.PaymentDate.IsZero() {
			p.PaymentDate = l.now()
		}

		id, err := r.InsertPayment(ctx, &p)
		if err != nil {
			return err
		}
		p.ID = id

		note := "Payment processed - Receipt: " + p.ReceiptNo
		for _, s := range staged {
			s.item.PaymentID = p.ID
			if _, err := r.InsertPaymentItem(ctx, &s.item); err != nil {
				return err
			}
			s.tx.Status = TxPaid
			s.tx.Notes = note
			if err := r.UpdateTransaction(ctx, s.tx); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		l.log.Warn("payment rejected", "learner_id", p.LearnerID, "reason", err.Error())
		return nil, fmt.Errorf("process payment for learner %d: %w", p.LearnerID, err)
	}

	l.log.Info("payment processed",
		"receipt_no", p.ReceiptNo, "learner_id", p.LearnerID,
		"amount", p.Amount.StringFixed(2), "items", len(transactionIDs))
	return &p, nil
}

func (l *Ledger) PaymentByID(ctx context.Context, id int64) (*Payment, error) {
	return l.store.GetPayment(ctx, id)
}

// PaymentsByLearner lists receipts newest first.
func (l *Ledger) PaymentsByLearner(ctx context.Context, learnerID int64) ([]*Payment, error) {
	return l.store.ListPaymentsByLearner(ctx, learnerID)
}

func (l *Ledger) PaymentItems(ctx context.Context, paymentID int64) ([]*PaymentItem, error) {
	return l.store.ListPaymentItems(ctx, paymentID)
}
