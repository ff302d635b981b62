package library

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// Catalog owns the book registry.
type Catalog struct {
	store Store
	now   Clock
	log   *slog.Logger
}

func NewCatalog(store Store, now Clock, logger *slog.Logger) *Catalog {
	return &Catalog{store: store, now: now, log: orDiscard(logger)}
}

func normalizeBook(b *Book) {
	b.BookCode = strings.TrimSpace(b.BookCode)
	b.ISBN = strings.TrimSpace(b.ISBN)
	b.Title = strings.TrimSpace(b.Title)
	b.Author = strings.TrimSpace(b.Author)
	b.Subject = strings.TrimSpace(b.Subject)
	b.Grade = strings.TrimSpace(b.Grade)
}

func checkBook(b *Book) error {
	if err := checkStruct(b); err != nil {
		return err
	}
	if b.Price.IsNegative() {
		return fmt.Errorf("%w: price cannot be negative", ErrInvalidInput)
	}
	return nil
}

// Create registers a new copy. New copies always start Available.
func (c *Catalog) Create(ctx context.Context, b *Book) (*Book, error) {
	normalizeBook(b)
	if err := checkBook(b); err != nil {
		return nil, err
	}

	b.Status = BookAvailable
	b.CreatedAt = c.now()

	err := c.store.InTx(ctx, func(r Repo) error {
		_, err := r.GetBookByCode(ctx, b.BookCode)
		if err == nil {
			return ErrDuplicateCode
		}
		if !errors.Is(err, ErrBookNotFound) {
			return err
		}
		id, err := r.InsertBook(ctx, b)
		if err != nil {
			return err
		}
		b.ID = id
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("create book %q: %w", b.BookCode, err)
	}

	c.log.Info("book added", "book_id", b.ID, "book_code", b.BookCode, "title", b.Title)
	return b, nil
}

// Update edits descriptive fields. The book code is immutable and the status
// is only changed through lending or SetStatus.
func (c *Catalog) Update(ctx context.Context, b *Book) error {
	normalizeBook(b)
	if err := checkBook(b); err != nil {
		return err
	}
	err := c.store.InTx(ctx, func(r Repo) error {
		current, err := r.GetBook(ctx, b.ID)
		if err != nil {
			return err
		}
		if current.BookCode != b.BookCode {
			return ErrBookCodeImmutable
		}
		return r.UpdateBook(ctx, b)
	})
	if err != nil {
		return fmt.Errorf("update book %d: %w", b.ID, err)
	}
	return nil
}

// Delete removes a copy that no transaction has ever referenced.
func (c *Catalog) Delete(ctx context.Context, id int64) error {
	err := c.store.InTx(ctx, func(r Repo) error {
		if _, err := r.GetBook(ctx, id); err != nil {
			return err
		}
		n, err := r.CountTransactions(ctx, TransactionFilter{BookID: id})
		if err != nil {
			return err
		}
		if n > 0 {
			return ErrReferencedEntity
		}
		return r.DeleteBook(ctx, id)
	})
	if err != nil {
		return fmt.Errorf("delete book %d: %w", id, err)
	}
	c.log.Info("book deleted", "book_id", id)
	return nil
}

// SetStatus is a manual correction that bypasses the lending engine. It does
// not create or close transactions, so a book out on an active loan is
// refused and callers must never mark a book Borrowed this way. Moving a Lost
// book back to Available is the intended administrative override.
func (c *Catalog) SetStatus(ctx context.Context, id int64, status BookStatus) error {
	err := c.store.InTx(ctx, func(r Repo) error {
		if _, err := r.GetBook(ctx, id); err != nil {
			return err
		}
		n, err := r.CountTransactions(ctx, TransactionFilter{
			BookID:   id,
			Statuses: []TransactionStatus{TxActive},
		})
		if err != nil {
			return err
		}
		if n > 0 {
			return ErrBookOnLoan
		}
		return r.UpdateBookStatus(ctx, id, status)
	})
	if err != nil {
		return fmt.Errorf("set status of book %d: %w", id, err)
	}
	c.log.Warn("book status set manually", "book_id", id, "status", status.String())
	return nil
}

func (c *Catalog) GetByID(ctx context.Context, id int64) (*Book, error) {
	return c.store.GetBook(ctx, id)
}

func (c *Catalog) GetByCode(ctx context.Context, code string) (*Book, error) {
	return c.store.GetBookByCode(ctx, strings.TrimSpace(code))
}

// All lists every copy ordered by title.
func (c *Catalog) All(ctx context.Context) ([]*Book, error) {
	return c.store.ListBooks(ctx, BookFilter{})
}

// Search matches term against title, author, book code and ISBN.
// A blank term returns nothing.
func (c *Catalog) Search(ctx context.Context, term string) ([]*Book, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return []*Book{}, nil
	}
	return c.store.ListBooks(ctx, BookFilter{Term: term})
}

func (c *Catalog) FilterByStatus(ctx context.Context, status BookStatus) ([]*Book, error) {
	return c.store.ListBooks(ctx, BookFilter{Status: &status})
}

func (c *Catalog) FilterByGrade(ctx context.Context, grade string) ([]*Book, error) {
	return c.store.ListBooks(ctx, BookFilter{Grade: grade})
}

func (c *Catalog) FilterBySubject(ctx context.Context, subject string) ([]*Book, error) {
	return c.store.ListBooks(ctx, BookFilter{Subject: subject})
}

// CountByISBN reports how many copies share an ISBN.
func (c *Catalog) CountByISBN(ctx context.Context, isbn string) (int, error) {
	return c.store.CountBooks(ctx, BookFilter{ISBN: isbn})
}
