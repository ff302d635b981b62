package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"school-library/library"
)

func newBorrowCmd(a *app) *cobra.Command {
	var date string
	cmd := &cobra.Command{
		Use:   "borrow <learner-id> <book-id>",
		Short: "Lend a book to a learner",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if _, err := a.authorize(ctx, library.ManageTransactions); err != nil {
				return err
			}
			learnerID, err := parseID(args[0], "learner")
			if err != nil {
				return err
			}
			bookID, err := parseID(args[1], "book")
			if err != nil {
				return err
			}
			day, err := a.dayOr(date)
			if err != nil {
				return err
			}
			t, err := a.mgr.Lending.Borrow(ctx, learnerID, bookID, day)
			if err != nil {
				return err
			}
			a.printf("Transaction %d: book %d lent to learner %d, due %s\n",
				t.ID, t.BookID, t.LearnerID, t.DueDate.Format("2006-01-02"))
			return nil
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "borrow date, YYYY-MM-DD (default today)")
	return cmd
}

func newReturnCmd(a *app) *cobra.Command {
	var date string
	cmd := &cobra.Command{
		Use:   "return <transaction-id>",
		Short: "Record a book coming back",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if _, err := a.authorize(ctx, library.ManageTransactions); err != nil {
				return err
			}
			id, err := parseID(args[0], "transaction")
			if err != nil {
				return err
			}
			day, err := a.dayOr(date)
			if err != nil {
				return err
			}
			t, err := a.mgr.Lending.Return(ctx, id, day)
			if err != nil {
				return err
			}
			a.printf("Book %d returned; it is now available for checkout\n", t.BookID)
			return nil
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "return date, YYYY-MM-DD (default today)")
	return cmd
}

func newLostCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "lost <transaction-id>",
		Short: "Record a borrowed book as lost",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if _, err := a.authorize(ctx, library.ManageTransactions); err != nil {
				return err
			}
			id, err := parseID(args[0], "transaction")
			if err != nil {
				return err
			}
			t, err := a.mgr.Lending.MarkLost(ctx, id)
			if err != nil {
				return err
			}
			fees, err := a.mgr.Ledger.TotalOutstandingFees(ctx, t.LearnerID)
			if err != nil {
				return err
			}
			a.printf("Book %d marked lost; learner %d now owes %s\n", t.BookID, t.LearnerID, fees.StringFixed(2))
			return nil
		},
	}
}

func newLoansCmd(a *app) *cobra.Command {
	var (
		learner, book, from, to string
		active, overdue         bool
		recent                  uint
	)
	cmd := &cobra.Command{
		Use:   "loans",
		Short: "List transactions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if _, err := a.authenticate(ctx); err != nil {
				return err
			}
			var (
				txs []*library.Transaction
				err error
			)
			switch {
			case learner != "":
				id, perr := parseID(learner, "learner")
				if perr != nil {
					return perr
				}
				if active {
					txs, err = a.mgr.Lending.ActiveByLearner(ctx, id)
				} else {
					txs, err = a.mgr.Lending.ByLearner(ctx, id)
				}
			case book != "":
				id, perr := parseID(book, "book")
				if perr != nil {
					return perr
				}
				txs, err = a.mgr.Lending.ByBook(ctx, id)
			case overdue:
				txs, err = a.mgr.Lending.Overdue(ctx)
			case active:
				txs, err = a.mgr.Lending.Active(ctx)
			case from != "" || to != "":
				if from == "" || to == "" {
					return fmt.Errorf("%w: --from and --to go together", library.ErrInvalidInput)
				}
				start, perr := library.ParseDate(from)
				if perr != nil {
					return perr
				}
				end, perr := library.ParseDate(to)
				if perr != nil {
					return perr
				}
				txs, err = a.mgr.Lending.ByDateRange(ctx, start, end)
			case recent > 0:
				txs, err = a.mgr.Lending.Recent(ctx, recent)
			default:
				txs, err = a.mgr.Lending.All(ctx)
			}
			if err != nil {
				return err
			}
			a.printTransactions(txs)
			return nil
		},
	}
	cmd.Flags().StringVar(&learner, "learner", "", "only this learner's loans")
	cmd.Flags().StringVar(&book, "book", "", "only this book's loans")
	cmd.Flags().BoolVar(&active, "active", false, "only active loans")
	cmd.Flags().BoolVar(&overdue, "overdue", false, "only overdue loans, earliest due first")
	cmd.Flags().StringVar(&from, "from", "", "borrowed on or after, YYYY-MM-DD")
	cmd.Flags().StringVar(&to, "to", "", "borrowed on or before, YYYY-MM-DD")
	cmd.Flags().UintVar(&recent, "recent", 0, "only the N most recent loans")
	return cmd
}

func (a *app) printTransactions(txs []*library.Transaction) {
	if len(txs) == 0 {
		a.printf("No transactions.\n")
		return
	}
	a.printf("%-5s %-8s %-6s %-10s %-10s %-10s %-9s %s\n",
		"ID", "Learner", "Book", "Borrowed", "Due", "Returned", "Status", "")
	a.printf("%s\n", strings.Repeat("-", 80))
	today := a.today()
	for _, t := range txs {
		a.printf("%s\n", library.PrettyTransaction(t, today))
	}
}
