package library

import (
	"context"
	"fmt"

	"github.com/doug-martin/goqu/v9"
	"github.com/shopspring/decimal"
)

const tableBooks = "books"

var bookColumns = []any{"id", "book_code", "isbn", "title", "author", "subject", "grade", "price", "status", "created_at"}

type bookRow struct {
	ID        int64  `db:"id"`
	BookCode  string `db:"book_code"`
	ISBN      string `db:"isbn"`
	Title     string `db:"title"`
	Author    string `db:"author"`
	Subject   string `db:"subject"`
	Grade     string `db:"grade"`
	Price     string `db:"price"`
	Status    string `db:"status"`
	CreatedAt string `db:"created_at"`
}

func newBookRow(b *Book) bookRow {
	return bookRow{
		ID:        b.ID,
		BookCode:  b.BookCode,
		ISBN:      b.ISBN,
		Title:     b.Title,
		Author:    b.Author,
		Subject:   b.Subject,
		Grade:     b.Grade,
		Price:     b.Price.StringFixed(2),
		Status:    b.Status.String(),
		CreatedAt: formatTimestamp(b.CreatedAt),
	}
}

func (row bookRow) toBook() (*Book, error) {
	price, err := decimal.NewFromString(row.Price)
	if err != nil {
		return nil, fmt.Errorf("book %d: bad price %q: %w", row.ID, row.Price, err)
	}
	created, err := parseTimestamp(row.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("book %d: bad created_at: %w", row.ID, err)
	}
	return &Book{
		ID:        row.ID,
		BookCode:  row.BookCode,
		ISBN:      row.ISBN,
		Title:     row.Title,
		Author:    row.Author,
		Subject:   row.Subject,
		Grade:     row.Grade,
		Price:     price,
		Status:    ParseBookStatus(row.Status),
		CreatedAt: created,
	}, nil
}

func (r *sqlRepo) InsertBook(ctx context.Context, b *Book) (int64, error) {
	id, err := r.insert(ctx, `INSERT INTO books(book_code,isbn,title,author,subject,grade,price,status,created_at)
        VALUES(:book_code,:isbn,:title,:author,:subject,:grade,:price,:status,:created_at)`, newBookRow(b))
	if isUniqueViolation(err) {
		return 0, ErrDuplicateCode
	}
	return id, err
}

// UpdateBook rewrites the descriptive fields. book_code and status are left alone.
func (r *sqlRepo) UpdateBook(ctx context.Context, b *Book) error {
	row := newBookRow(b)
	return r.execOne(ctx, ErrBookNotFound,
		`UPDATE books SET isbn=?, title=?, author=?, subject=?, grade=?, price=? WHERE id=?`,
		row.ISBN, row.Title, row.Author, row.Subject, row.Grade, row.Price, row.ID)
}

func (r *sqlRepo) UpdateBookStatus(ctx context.Context, id int64, status BookStatus) error {
	return r.execOne(ctx, ErrBookNotFound, `UPDATE books SET status=? WHERE id=?`, status.String(), id)
}

func (r *sqlRepo) DeleteBook(ctx context.Context, id int64) error {
	err := r.execOne(ctx, ErrBookNotFound, `DELETE FROM books WHERE id=?`, id)
	if isForeignKeyViolation(err) {
		return ErrReferencedEntity
	}
	return err
}

func (r *sqlRepo) GetBook(ctx context.Context, id int64) (*Book, error) {
	var row bookRow
	if err := r.getOne(ctx, &row, ErrBookNotFound, `SELECT * FROM books WHERE id=?`, id); err != nil {
		return nil, err
	}
	return row.toBook()
}

func (r *sqlRepo) GetBookByCode(ctx context.Context, code string) (*Book, error) {
	var row bookRow
	if err := r.getOne(ctx, &row, ErrBookNotFound, `SELECT * FROM books WHERE book_code=?`, code); err != nil {
		return nil, err
	}
	return row.toBook()
}

func bookQuery(f BookFilter) *goqu.SelectDataset {
	ds := dialect().From(tableBooks)
	if f.Status != nil {
		ds = ds.Where(goqu.C("status").Eq(f.Status.String()))
	}
	if f.Grade != "" {
		ds = ds.Where(goqu.C("grade").Eq(f.Grade))
	}
	if f.Subject != "" {
		ds = ds.Where(goqu.C("subject").Eq(f.Subject))
	}
	if f.ISBN != "" {
		ds = ds.Where(goqu.C("isbn").Eq(f.ISBN))
	}
	if f.Term != "" {
		ds = ds.Where(containsAny(f.Term, "title", "author", "book_code", "isbn"))
	}
	return ds
}

// ListBooks returns matching books ordered by title.
func (r *sqlRepo) ListBooks(ctx context.Context, f BookFilter) ([]*Book, error) {
	ds := bookQuery(f).Select(bookColumns...).Order(goqu.C("title").Asc(), goqu.C("id").Asc())
	var rows []bookRow
	if err := r.selectInto(ctx, &rows, ds); err != nil {
		return nil, err
	}
	books := make([]*Book, 0, len(rows))
	for _, row := range rows {
		b, err := row.toBook()
		if err != nil {
			return nil, err
		}
		books = append(books, b)
	}
	return books, nil
}

func (r *sqlRepo) CountBooks(ctx context.Context, f BookFilter) (int, error) {
	return r.count(ctx, bookQuery(f))
}
