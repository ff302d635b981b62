package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"school-library/library"
)

type bookFlags struct {
	code, isbn, title, author, subject, grade, price string
}

func (f *bookFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.code, "code", "", "book code printed on the copy")
	cmd.Flags().StringVar(&f.isbn, "isbn", "", "ISBN")
	cmd.Flags().StringVar(&f.title, "title", "", "title")
	cmd.Flags().StringVar(&f.author, "author", "", "author")
	cmd.Flags().StringVar(&f.subject, "subject", "", "subject")
	cmd.Flags().StringVar(&f.grade, "grade", "", "grade the book is used in")
	cmd.Flags().StringVar(&f.price, "price", "0", "replacement price")
}

// apply copies the flags the user set onto b.
func (f *bookFlags) apply(cmd *cobra.Command, b *library.Book) error {
	set := func(name string, dst *string, v string) {
		if cmd.Flags().Changed(name) {
			*dst = v
		}
	}
	set("code", &b.BookCode, f.code)
	set("isbn", &b.ISBN, f.isbn)
	set("title", &b.Title, f.title)
	set("author", &b.Author, f.author)
	set("subject", &b.Subject, f.subject)
	set("grade", &b.Grade, f.grade)
	if cmd.Flags().Changed("price") {
		p, err := parseMoney(f.price)
		if err != nil {
			return err
		}
		b.Price = p
	}
	return nil
}

func newBookCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{Use: "book", Short: "Manage the book catalog"}
	cmd.AddCommand(
		newBookAddCmd(a),
		newBookUpdateCmd(a),
		newBookDeleteCmd(a),
		newBookStatusCmd(a),
		newBookListCmd(a),
		newBookSearchCmd(a),
		newBookShowCmd(a),
	)
	return cmd
}

func newBookAddCmd(a *app) *cobra.Command {
	var f bookFlags
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a copy to the catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if _, err := a.authorize(ctx, library.ManageBooks); err != nil {
				return err
			}
			b := &library.Book{}
			if err := f.apply(cmd, b); err != nil {
				return err
			}
			b, err := a.mgr.Catalog.Create(ctx, b)
			if err != nil {
				return err
			}
			a.printf("Added book %s (ID %d)\n", b.BookCode, b.ID)
			if n, err := a.mgr.Catalog.CountByISBN(ctx, b.ISBN); err == nil && n > 1 {
				a.printf("%d copies of ISBN %s now in the catalog\n", n, b.ISBN)
			}
			return nil
		},
	}
	f.register(cmd)
	return cmd
}

func newBookUpdateCmd(a *app) *cobra.Command {
	var f bookFlags
	cmd := &cobra.Command{
		Use:   "update <book-id>",
		Short: "Edit a book's details (the code cannot change)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if _, err := a.authorize(ctx, library.ManageBooks); err != nil {
				return err
			}
			id, err := parseID(args[0], "book")
			if err != nil {
				return err
			}
			b, err := a.mgr.Catalog.GetByID(ctx, id)
			if err != nil {
				return err
			}
			if err := f.apply(cmd, b); err != nil {
				return err
			}
			if err := a.mgr.Catalog.Update(ctx, b); err != nil {
				return err
			}
			a.printf("Updated book %s\n", b.BookCode)
			return nil
		},
	}
	f.register(cmd)
	return cmd
}

func newBookDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <book-id>",
		Short: "Remove a copy that was never lent",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if _, err := a.authorize(ctx, library.ManageBooks); err != nil {
				return err
			}
			id, err := parseID(args[0], "book")
			if err != nil {
				return err
			}
			if err := a.mgr.Catalog.Delete(ctx, id); err != nil {
				return err
			}
			a.printf("Deleted book %d\n", id)
			return nil
		},
	}
}

func newBookStatusCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status <book-id> <Available|Lost>",
		Short: "Correct a copy's status by hand",
		Long: "Sets the status directly, without touching loans. Use it to put a found\n" +
			"copy back on the shelf. Lending a book always goes through 'borrow'.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if _, err := a.authorize(ctx, library.ManageBooks); err != nil {
				return err
			}
			id, err := parseID(args[0], "book")
			if err != nil {
				return err
			}
			status := library.ParseBookStatus(args[1])
			if !strings.EqualFold(status.String(), strings.TrimSpace(args[1])) {
				return fmt.Errorf("%w: unknown status %q", library.ErrInvalidInput, args[1])
			}
			if status == library.BookBorrowed {
				return fmt.Errorf("%w: use 'borrow' to lend a book", library.ErrInvalidInput)
			}
			if err := a.mgr.Catalog.SetStatus(ctx, id, status); err != nil {
				return err
			}
			a.printf("Book %d is now %s\n", id, status)
			return nil
		},
	}
}

func newBookListCmd(a *app) *cobra.Command {
	var status, grade, subject string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List books, optionally filtered",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if _, err := a.authenticate(ctx); err != nil {
				return err
			}
			var (
				books []*library.Book
				err   error
			)
			switch {
			case status != "":
				books, err = a.mgr.Catalog.FilterByStatus(ctx, library.ParseBookStatus(status))
			case grade != "":
				books, err = a.mgr.Catalog.FilterByGrade(ctx, grade)
			case subject != "":
				books, err = a.mgr.Catalog.FilterBySubject(ctx, subject)
			default:
				books, err = a.mgr.Catalog.All(ctx)
			}
			if err != nil {
				return err
			}
			return a.printBooks(cmd, books)
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "only books with this status")
	cmd.Flags().StringVar(&grade, "grade", "", "only books for this grade")
	cmd.Flags().StringVar(&subject, "subject", "", "only books in this subject")
	return cmd
}

func newBookSearchCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "search <term>",
		Short: "Search title, author, code and ISBN",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if _, err := a.authenticate(ctx); err != nil {
				return err
			}
			term := strings.Join(args, " ")
			books, err := a.mgr.Catalog.Search(ctx, term)
			if err != nil {
				return err
			}
			if len(books) == 0 {
				a.printf("No books found matching '%s'.\n", term)
				return nil
			}
			a.printf("Found %d book(s) matching '%s':\n", len(books), term)
			return a.printBooks(cmd, books)
		},
	}
}

func newBookShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <book-id|book-code>",
		Short: "Show one book with its loan history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if _, err := a.authenticate(ctx); err != nil {
				return err
			}
			var (
				b   *library.Book
				err error
			)
			if id, perr := parseID(args[0], "book"); perr == nil {
				b, err = a.mgr.Catalog.GetByID(ctx, id)
			} else {
				b, err = a.mgr.Catalog.GetByCode(ctx, args[0])
			}
			if err != nil {
				return err
			}
			a.printf("Code:    %s\nISBN:    %s\nTitle:   %s\nAuthor:  %s\nSubject: %s\nGrade:   %s\nPrice:   %s\nStatus:  %s\n",
				b.BookCode, b.ISBN, b.Title, b.Author, b.Subject, b.Grade, b.Price.StringFixed(2), b.Status)
			txs, err := a.mgr.Lending.ByBook(ctx, b.ID)
			if err != nil {
				return err
			}
			if len(txs) > 0 {
				a.printf("\nHistory:\n")
				a.printTransactions(txs)
			}
			return nil
		},
	}
}

func (a *app) printBooks(cmd *cobra.Command, books []*library.Book) error {
	if len(books) == 0 {
		a.printf("No books in library.\n")
		return nil
	}
	a.printf("%-5s %-10s %-30s %-20s %-8s %8s %-10s %-20s\n",
		"ID", "Code", "Title", "Author", "Grade", "Price", "Status", "Borrower")
	a.printf("%s\n", strings.Repeat("-", 120))
	for _, b := range books {
		borrower := ""
		if b.Status == library.BookBorrowed {
			l, err := a.mgr.CurrentBorrower(cmd.Context(), b.ID)
			if err != nil {
				return err
			}
			if l != nil {
				borrower = fmt.Sprintf("%s (ID: %d)", l.InitialSurname(), l.ID)
			}
		}
		a.printf("%s\n", library.PrettyBook(b, borrower))
	}
	return nil
}
