package main

import (
	"strings"

	"github.com/spf13/cobra"

	"school-library/library"
)

type learnerFlags struct {
	name, surname, grade, dob, contact string
}

func (f *learnerFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.name, "name", "", "first name")
	cmd.Flags().StringVar(&f.surname, "surname", "", "surname")
	cmd.Flags().StringVar(&f.grade, "grade", "", "grade")
	cmd.Flags().StringVar(&f.dob, "dob", "", "date of birth, YYYY-MM-DD")
	cmd.Flags().StringVar(&f.contact, "contact", "", "contact number")
}

func (f *learnerFlags) apply(cmd *cobra.Command, l *library.Learner) error {
	set := func(name string, dst *string, v string) {
		if cmd.Flags().Changed(name) {
			*dst = v
		}
	}
	set("name", &l.Name, f.name)
	set("surname", &l.Surname, f.surname)
	set("grade", &l.Grade, f.grade)
	set("contact", &l.ContactNo, f.contact)
	if cmd.Flags().Changed("dob") {
		dob, err := library.ParseDate(f.dob)
		if err != nil {
			return err
		}
		l.DateOfBirth = dob
	}
	return nil
}

func newLearnerCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{Use: "learner", Short: "Manage learners"}
	cmd.AddCommand(
		newLearnerAddCmd(a),
		newLearnerUpdateCmd(a),
		newLearnerDeleteCmd(a),
		newLearnerListCmd(a),
		newLearnerSearchCmd(a),
		newLearnerShowCmd(a),
	)
	return cmd
}

func newLearnerAddCmd(a *app) *cobra.Command {
	var f learnerFlags
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Register a learner",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if _, err := a.authorize(ctx, library.ManageLearners); err != nil {
				return err
			}
			l := &library.Learner{}
			if err := f.apply(cmd, l); err != nil {
				return err
			}
			l, err := a.mgr.Roster.Create(ctx, l)
			if err != nil {
				return err
			}
			a.printf("Added learner '%s' with ID %d\n", l.FullName(), l.ID)
			return nil
		},
	}
	f.register(cmd)
	return cmd
}

func newLearnerUpdateCmd(a *app) *cobra.Command {
	var f learnerFlags
	cmd := &cobra.Command{
		Use:   "update <learner-id>",
		Short: "Edit a learner's details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if _, err := a.authorize(ctx, library.ManageLearners); err != nil {
				return err
			}
			id, err := parseID(args[0], "learner")
			if err != nil {
				return err
			}
			l, err := a.mgr.Roster.GetByID(ctx, id)
			if err != nil {
				return err
			}
			if err := f.apply(cmd, l); err != nil {
				return err
			}
			if err := a.mgr.Roster.Update(ctx, l); err != nil {
				return err
			}
			a.printf("Updated learner %d\n", l.ID)
			return nil
		},
	}
	f.register(cmd)
	return cmd
}

func newLearnerDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <learner-id>",
		Short: "Remove a learner with no loan history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if _, err := a.authorize(ctx, library.ManageLearners); err != nil {
				return err
			}
			id, err := parseID(args[0], "learner")
			if err != nil {
				return err
			}
			if err := a.mgr.Roster.Delete(ctx, id); err != nil {
				return err
			}
			a.printf("Deleted learner %d\n", id)
			return nil
		},
	}
}

func newLearnerListCmd(a *app) *cobra.Command {
	var grade string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List learners",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if _, err := a.authenticate(ctx); err != nil {
				return err
			}
			var (
				learners []*library.Learner
				err      error
			)
			if grade != "" {
				learners, err = a.mgr.Roster.FilterByGrade(ctx, grade)
			} else {
				learners, err = a.mgr.Roster.All(ctx)
			}
			if err != nil {
				return err
			}
			a.printLearners(learners)
			return nil
		},
	}
	cmd.Flags().StringVar(&grade, "grade", "", "only learners in this grade")
	return cmd
}

func newLearnerSearchCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "search <term>",
		Short: "Search name, surname and contact number",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if _, err := a.authenticate(ctx); err != nil {
				return err
			}
			learners, err := a.mgr.Roster.Search(ctx, strings.Join(args, " "))
			if err != nil {
				return err
			}
			a.printLearners(learners)
			return nil
		},
	}
}

func newLearnerShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <learner-id>",
		Short: "Show a learner's loans and what they owe",
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
			st, err := a.mgr.Statement(ctx, id)
			if err != nil {
				return err
			}
			today := a.today()
			l := st.Learner
			a.printf("Learner:     %s (ID %d)\nGrade:       %s\nAge:         %d\nContact:     %s\n",
				l.FullName(), l.ID, l.Grade, l.Age(today), l.ContactNo)
			a.printf("Books out:   %d (value %s)\n", len(st.Active), st.Outstanding.StringFixed(2))
			a.printf("Fees owed:   %s for %d lost book(s)\n", st.FeesOwed.StringFixed(2), len(st.UnpaidLost))
			if st.CanBorrow() {
				a.printf("Borrowing:   allowed\n")
			} else {
				a.printf("Borrowing:   BLOCKED (overdue books)\n")
			}
			if len(st.Active) > 0 {
				a.printf("\nActive loans:\n")
				a.printTransactions(st.Active)
			}
			if len(st.UnpaidLost) > 0 {
				a.printf("\nUnpaid lost books:\n")
				a.printTransactions(st.UnpaidLost)
			}
			return nil
		},
	}
}

func (a *app) printLearners(learners []*library.Learner) {
	if len(learners) == 0 {
		a.printf("No learners registered.\n")
		return
	}
	a.printf("%-5s %-20s %-20s %-8s %-12s %-15s\n", "ID", "Name", "Surname", "Grade", "Born", "Contact")
	a.printf("%s\n", strings.Repeat("-", 85))
	for _, l := range learners {
		a.printf("%-5d %-20s %-20s %-8s %-12s %-15s\n",
			l.ID, l.Name, l.Surname, l.Grade, l.DateOfBirth.Format("2006-01-02"), l.ContactNo)
	}
}
