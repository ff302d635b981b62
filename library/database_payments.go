package library

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

type paymentRow struct {
	ID          int64  `db:"id"`
	ReceiptNo   string `db:"receipt_no"`
	LearnerID   int64  `db:"learner_id"`
	Amount      string `db:"amount"`
	ProcessedBy int64  `db:"processed_by"`
	PaymentDate string `db:"payment_date"`
	Notes       string `db:"notes"`
}

func (row paymentRow) toPayment() (*Payment, error) {
	amount, err := decimal.NewFromString(row.Amount)
	if err != nil {
		return nil, fmt.Errorf("payment %d: bad amount %q: %w", row.ID, row.Amount, err)
	}
	paid, err := parseTimestamp(row.PaymentDate)
	if err != nil {
		return nil, fmt.Errorf("payment %d: bad payment_date: %w", row.ID, err)
	}
	return &Payment{
		ID:          row.ID,
		ReceiptNo:   row.ReceiptNo,
		LearnerID:   row.LearnerID,
		Amount:      amount,
		ProcessedBy: row.ProcessedBy,
		PaymentDate: paid,
		Notes:       row.Notes,
	}, nil
}

type paymentItemRow struct {
	ID            int64  `db:"id"`
	PaymentID     int64  `db:"payment_id"`
	TransactionID int64  `db:"transaction_id"`
	BookID        int64  `db:"book_id"`
	Amount        string `db:"amount"`
}

func (r *sqlRepo) InsertPayment(ctx context.Context, p *Payment) (int64, error) {
	row := paymentRow{
		ReceiptNo:   p.ReceiptNo,
		LearnerID:   p.LearnerID,
		Amount:      p.Amount.StringFixed(2),
		ProcessedBy: p.ProcessedBy,
		PaymentDate: formatTimestamp(p.PaymentDate),
		Notes:       p.Notes,
	}
	id, err := r.insert(ctx, `INSERT INTO payments(receipt_no,learner_id,amount,processed_by,payment_date,notes)
        VALUES(:receipt_no,:learner_id,:amount,:processed_by,:payment_date,:notes)`, row)
	if isUniqueViolation(err) {
		return 0, ErrDuplicateReceipt
	}
	return id, err
}

func (r *sqlRepo) GetPayment(ctx context.Context, id int64) (*Payment, error) {
	var row paymentRow
	if err := r.getOne(ctx, &row, ErrPaymentNotFound, `SELECT * FROM payments WHERE id=?`, id); err != nil {
		return nil, err
	}
	return row.toPayment()
}

func (r *sqlRepo) ReceiptExists(ctx context.Context, receiptNo string) (bool, error) {
	var exists bool
	err := sqlx.GetContext(ctx, r.q, &exists, `SELECT EXISTS(SELECT 1 FROM payments WHERE receipt_no=?)`, receiptNo)
	return exists, err
}

// ListPaymentsByLearner returns a learner's receipts, newest first.
func (r *sqlRepo) ListPaymentsByLearner(ctx context.Context, learnerID int64) ([]*Payment, error) {
	var rows []paymentRow
	if err := sqlx.SelectContext(ctx, r.q, &rows,
		`SELECT * FROM payments WHERE learner_id=? ORDER BY payment_date DESC, id DESC`, learnerID); err != nil {
		return nil, err
	}
	payments := make([]*Payment, 0, len(rows))
	for _, row := range rows {
		p, err := row.toPayment()
		if err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}
	return payments, nil
}

func (r *sqlRepo) InsertPaymentItem(ctx context.Context, item *PaymentItem) (int64, error) {
	row := paymentItemRow{
		PaymentID:     item.PaymentID,
		TransactionID: item.TransactionID,
		BookID:        item.BookID,
		Amount:        item.Amount.StringFixed(2),
	}
	return r.insert(ctx, `INSERT INTO payment_items(payment_id,transaction_id,book_id,amount)
        VALUES(:payment_id,:transaction_id,:book_id,:amount)`, row)
}

func (r *sqlRepo) ListPaymentItems(ctx context.Context, paymentID int64) ([]*PaymentItem, error) {
	var rows []paymentItemRow
	if err := sqlx.SelectContext(ctx, r.q, &rows,
		`SELECT * FROM payment_items WHERE payment_id=? ORDER BY id`, paymentID); err != nil {
		return nil, err
	}
	items := make([]*PaymentItem, 0, len(rows))
	for _, row := range rows {
		amount, err := decimal.NewFromString(row.Amount)
		if err != nil {
			return nil, fmt.Errorf("payment item %d: bad amount %q: %w", row.ID, row.Amount, err)
		}
		items = append(items, &PaymentItem{
			ID:            row.ID,
			PaymentID:     row.PaymentID,
			TransactionID: row.TransactionID,
			BookID:        row.BookID,
			Amount:        amount,
		})
	}
	return items, nil
}
