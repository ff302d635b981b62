package main

import (
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"school-library/library"
)

func newPayCmd(a *app) *cobra.Command {
	var amount, receipt, notes string
	cmd := &cobra.Command{
		Use:   "pay <learner-id> <transaction-id>...",
		Short: "Settle lost books for a learner",
		Long: "Records one payment covering the listed lost transactions. The amount is\n" +
			"the sum of the book prices; --amount only double-checks it.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := a.authorize(ctx, library.ProcessPayments)
			if err != nil {
				return err
			}
			learnerID, err := parseID(args[0], "learner")
			if err != nil {
				return err
			}
			ids, err := parseIDs(args[1:], "transaction")
			if err != nil {
				return err
			}
			p := &library.Payment{
				LearnerID:   learnerID,
				ProcessedBy: s.User.ID,
				ReceiptNo:   receipt,
				Notes:       notes,
			}
			if amount != "" {
				if p.Amount, err = parseMoney(amount); err != nil {
					return err
				}
			}
			p, err = a.mgr.Ledger.ProcessPayment(ctx, p, ids)
			if err != nil {
				return err
			}
			a.printf("Receipt %s: %s received from learner %d for %d book(s)\n",
				p.ReceiptNo, p.Amount.StringFixed(2), p.LearnerID, len(ids))
			return nil
		},
	}
	cmd.Flags().StringVar(&amount, "amount", "", "amount received, checked against the total owed")
	cmd.Flags().StringVar(&receipt, "receipt", "", "receipt number (generated when empty)")
	cmd.Flags().StringVar(&notes, "notes", "", "free-text notes")
	return cmd
}

func newPaymentsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "payments <learner-id>",
		Short: "List a learner's receipts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if _, err := a.authenticate(ctx); err != nil {
				return err
			}
			id, err := parseID(args[0], "learner")
			if err != nil {
				return err
			}
			payments, err := a.mgr.Ledger.PaymentsByLearner(ctx, id)
			if err != nil {
				return err
			}
			if len(payments) == 0 {
				a.printf("No payments recorded.\n")
				return nil
			}
			a.printf("%-5s %-24s %-20s %10s %s\n", "ID", "Receipt", "Date", "Amount", "Notes")
			a.printf("%s\n", strings.Repeat("-", 80))
			total := decimal.Zero
			for _, p := range payments {
				a.printf("%-5d %-24s %-20s %10s %s\n",
					p.ID, p.ReceiptNo, p.PaymentDate.Local().Format("2006-01-02 15:04"), p.Amount.StringFixed(2), p.Notes)
				total = total.Add(p.Amount)
			}
			a.printf("Total paid: %s\n", total.StringFixed(2))
			return nil
		},
	}
}

func newReceiptCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "receipt <payment-id>",
		Short: "Show a receipt and the books it settled",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if _, err := a.authenticate(ctx); err != nil {
				return err
			}
			id, err := parseID(args[0], "payment")
			if err != nil {
				return err
			}
			p, err := a.mgr.Ledger.PaymentByID(ctx, id)
			if err != nil {
				return err
			}
			items, err := a.mgr.Ledger.PaymentItems(ctx, id)
			if err != nil {
				return err
			}
			a.printf("Receipt:  %s\nLearner:  %d\nDate:     %s\nAmount:   %s\n",
				p.ReceiptNo, p.LearnerID, p.PaymentDate.Local().Format("2006-01-02 15:04"), p.Amount.StringFixed(2))
			if by, err := a.mgr.Accounts.User(ctx, p.ProcessedBy); err == nil {
				a.printf("Taken by: %s\n", by.FullName())
			}
			a.printf("\n%-8s %-8s %10s\n", "Loan", "Book", "Amount")
			for _, it := range items {
				a.printf("%-8d %-8d %10s\n", it.TransactionID, it.BookID, it.Amount.StringFixed(2))
			}
			return nil
		},
	}
}

func newDashboardCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard",
		Short: "Show library totals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if _, err := a.authenticate(ctx); err != nil {
				return err
			}
			st, err := a.mgr.Reports.DashboardStats(ctx)
			if err != nil {
				return err
			}
			a.printf("Books:     %d total, %d available, %d borrowed, %d lost\n",
				st.TotalBooks, st.AvailableBooks, st.BorrowedBooks, st.LostBooks)
			a.printf("Learners:  %d registered, %d with books out\n", st.TotalLearners, st.ActiveLearners)
			a.printf("Overdue:   %d loan(s) as of %s\n", st.OverdueBooks, a.today().Format("2006-01-02"))
			a.printf("Staff:     %d user(s)\n", st.TotalUsers)
			return nil
		},
	}
}
