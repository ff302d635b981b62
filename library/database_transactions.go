package library

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

const tableTransactions = "transactions"

var transactionColumns = []any{
	"id", "learner_id", "book_id", "borrow_date", "due_date", "return_date", "status", "notes", "created_at",
}

type transactionRow struct {
	ID         int64          `db:"id"`
	LearnerID  int64          `db:"learner_id"`
	BookID     int64          `db:"book_id"`
	BorrowDate string         `db:"borrow_date"`
	DueDate    string         `db:"due_date"`
	ReturnDate sql.NullString `db:"return_date"`
	Status     string         `db:"status"`
	Notes      string         `db:"notes"`
	CreatedAt  string         `db:"created_at"`
}

func newTransactionRow(t *Transaction) transactionRow {
	row := transactionRow{
		ID:         t.ID,
		LearnerID:  t.LearnerID,
		BookID:     t.BookID,
		BorrowDate: formatDate(t.BorrowDate),
		DueDate:    formatDate(t.DueDate),
		Status:     t.Status.String(),
		Notes:      t.Notes,
		CreatedAt:  formatTimestamp(t.CreatedAt),
	}
	if t.ReturnDate != nil {
		row.ReturnDate = sql.NullString{String: formatDate(*t.ReturnDate), Valid: true}
	}
	return row
}

func (row transactionRow) toTransaction() (*Transaction, error) {
	borrowed, err := ParseDate(row.BorrowDate)
	if err != nil {
		return nil, fmt.Errorf("transaction %d: %w", row.ID, err)
	}
	due, err := ParseDate(row.DueDate)
	if err != nil {
		return nil, fmt.Errorf("transaction %d: %w", row.ID, err)
	}
	created, err := parseTimestamp(row.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("transaction %d: bad created_at: %w", row.ID, err)
	}
	t := &Transaction{
		ID:         row.ID,
		LearnerID:  row.LearnerID,
		BookID:     row.BookID,
		BorrowDate: borrowed,
		DueDate:    due,
		Status:     ParseTransactionStatus(row.Status),
		Notes:      row.Notes,
		CreatedAt:  created,
	}
	if row.ReturnDate.Valid {
		returned, err := ParseDate(row.ReturnDate.String)
		if err != nil {
			return nil, fmt.Errorf("transaction %d: %w", row.ID, err)
		}
		t.ReturnDate = &returned
	}
	return t, nil
}

func (r *sqlRepo) InsertTransaction(ctx context.Context, t *Transaction) (int64, error) {
	return r.insert(ctx, `INSERT INTO transactions(learner_id,book_id,borrow_date,due_date,return_date,status,notes,created_at)
        VALUES(:learner_id,:book_id,:borrow_date,:due_date,:return_date,:status,:notes,:created_at)`, newTransactionRow(t))
}

// UpdateTransaction rewrites the mutable part of a loan: return date, status and notes.
func (r *sqlRepo) UpdateTransaction(ctx context.Context, t *Transaction) error {
	row := newTransactionRow(t)
	return r.execOne(ctx, ErrTransactionNotFound,
		`UPDATE transactions SET return_date=?, status=?, notes=? WHERE id=?`,
		row.ReturnDate, row.Status, row.Notes, row.ID)
}

func (r *sqlRepo) GetTransaction(ctx context.Context, id int64) (*Transaction, error) {
	var row transactionRow
	if err := r.getOne(ctx, &row, ErrTransactionNotFound, `SELECT * FROM transactions WHERE id=?`, id); err != nil {
		return nil, err
	}
	return row.toTransaction()
}

func txCol(name string) exp.IdentifierExpression { return goqu.T(tableTransactions).Col(name) }

func transactionQuery(f TransactionFilter) *goqu.SelectDataset {
	ds := dialect().From(tableTransactions)
	if f.LearnerID != 0 {
		ds = ds.Where(txCol("learner_id").Eq(f.LearnerID))
	}
	if f.BookID != 0 {
		ds = ds.Where(txCol("book_id").Eq(f.BookID))
	}
	if len(f.Statuses) > 0 {
		names := make([]string, len(f.Statuses))
		for i, s := range f.Statuses {
			names[i] = s.String()
		}
		ds = ds.Where(txCol("status").In(names))
	}
	if !f.DueBefore.IsZero() {
		ds = ds.Where(txCol("due_date").Lt(formatDate(f.DueBefore)))
	}
	if !f.BorrowedFrom.IsZero() {
		ds = ds.Where(txCol("borrow_date").Gte(formatDate(f.BorrowedFrom)))
	}
	if !f.BorrowedTo.IsZero() {
		ds = ds.Where(txCol("borrow_date").Lte(formatDate(f.BorrowedTo)))
	}
	return ds
}

// ListTransactions returns matching loans, newest first unless ByDueDate is set.
func (r *sqlRepo) ListTransactions(ctx context.Context, f TransactionFilter) ([]*Transaction, error) {
	ds := transactionQuery(f).Select(transactionColumns...)
	if f.ByDueDate {
		ds = ds.Order(txCol("due_date").Asc(), txCol("id").Asc())
	} else {
		ds = ds.Order(txCol("created_at").Desc(), txCol("id").Desc())
	}
	if f.Limit > 0 {
		ds = ds.Limit(f.Limit)
	}

	var rows []transactionRow
	if err := r.selectInto(ctx, &rows, ds); err != nil {
		return nil, err
	}
	txs := make([]*Transaction, 0, len(rows))
	for _, row := range rows {
		t, err := row.toTransaction()
		if err != nil {
			return nil, err
		}
		txs = append(txs, t)
	}
	return txs, nil
}

func (r *sqlRepo) CountTransactions(ctx context.Context, f TransactionFilter) (int, error) {
	return r.count(ctx, transactionQuery(f))
}

func (r *sqlRepo) CountActiveLearners(ctx context.Context) (int, error) {
	var n int
	err := sqlx.GetContext(ctx, r.q, &n, `SELECT COUNT(DISTINCT learner_id) FROM transactions WHERE status=?`, TxActive.String())
	return n, err
}

func (r *sqlRepo) SumBookPrices(ctx context.Context, f TransactionFilter) (decimal.Decimal, error) {
	books := goqu.T(tableBooks)
	ds := transactionQuery(f).
		Join(books, goqu.On(books.Col("id").Eq(txCol("book_id")))).
		Select(books.Col("price"))

	var prices []string
	if err := r.selectInto(ctx, &prices, ds); err != nil {
		return decimal.Zero, err
	}
	total := decimal.Zero
	for _, p := range prices {
		d, err := decimal.NewFromString(p)
		if err != nil {
			return decimal.Zero, fmt.Errorf("bad book price %q: %w", p, err)
		}
		total = total.Add(d)
	}
	return total, nil
}
