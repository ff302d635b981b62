package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"school-library/library"
)

type userFlags struct {
	username, name, surname, email, contact, school, question, role string
}

func (f *userFlags) register(cmd *cobra.Command, withRole bool) {
	cmd.Flags().StringVar(&f.username, "username", "", "login name (email or letters, digits, underscores)")
	cmd.Flags().StringVar(&f.name, "name", "", "first name")
	cmd.Flags().StringVar(&f.surname, "surname", "", "surname")
	cmd.Flags().StringVar(&f.email, "email", "", "email address used for password recovery")
	cmd.Flags().StringVar(&f.contact, "contact", "", "contact number")
	cmd.Flags().StringVar(&f.school, "school", "", "school name")
	cmd.Flags().StringVar(&f.question, "question", "", "security question for password recovery")
	if withRole {
		cmd.Flags().StringVar(&f.role, "role", "Librarian", "Librarian, Finance or Admin")
	}
}

// registerUser prompts for the secrets and creates the account.
func (a *app) registerUser(ctx context.Context, f *userFlags, role library.Role) (*library.User, error) {
	u := &library.User{
		Username:         f.username,
		Name:             f.name,
		Surname:          f.surname,
		Email:            f.email,
		ContactNo:        f.contact,
		SchoolName:       f.school,
		SecurityQuestion: f.question,
		Role:             role,
	}
	password, err := a.readNewSecret(fmt.Sprintf("Enter password for %s: ", u.Username))
	if err != nil {
		return nil, fmt.Errorf("failed to read password: %w", err)
	}
	answer, err := a.readSecret("Security answer: ")
	if err != nil {
		return nil, fmt.Errorf("failed to read security answer: %w", err)
	}
	return a.mgr.Accounts.Register(ctx, u, password, answer)
}

func parseRole(s string) (library.Role, error) {
	r := library.ParseRole(s)
	if !strings.EqualFold(r.String(), strings.TrimSpace(s)) {
		return 0, fmt.Errorf("%w: unknown role %q", library.ErrInvalidInput, s)
	}
	return r, nil
}

func newSetupCmd(a *app) *cobra.Command {
	var f userFlags
	cmd := &cobra.Command{
		Use:   "setup",
		Short: "Create the first administrator account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			empty, err := a.mgr.NeedsBootstrap(ctx)
			if err != nil {
				return err
			}
			if !empty {
				return fmt.Errorf("%w: staff accounts already exist; ask an admin to add you", library.ErrInvalidState)
			}
			u, err := a.registerUser(ctx, &f, library.RoleAdmin)
			if err != nil {
				return err
			}
			a.printf("Administrator '%s' created with ID %d\n", u.Username, u.ID)
			return nil
		},
	}
	f.register(cmd, false)
	return cmd
}

func newUserCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{Use: "user", Short: "Manage staff accounts"}
	cmd.AddCommand(
		newUserAddCmd(a),
		newUserListCmd(a),
		newUserRoleCmd(a),
		newUserDeleteCmd(a),
		newUserActivityCmd(a),
	)
	return cmd
}

func newUserAddCmd(a *app) *cobra.Command {
	var f userFlags
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create a staff account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if _, err := a.authorize(ctx, library.ManageUsers); err != nil {
				return err
			}
			role, err := parseRole(f.role)
			if err != nil {
				return err
			}
			u, err := a.registerUser(ctx, &f, role)
			if err != nil {
				return err
			}
			a.printf("Added %s '%s' with ID %d\n", u.Role, u.Username, u.ID)
			return nil
		},
	}
	f.register(cmd, true)
	return cmd
}

func newUserListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List staff accounts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if _, err := a.authorize(ctx, library.ManageUsers); err != nil {
				return err
			}
			users, err := a.mgr.Accounts.Users(ctx)
			if err != nil {
				return err
			}
			a.printf("%-5s %-20s %-25s %-30s %-10s %-16s\n", "ID", "Username", "Name", "Email", "Role", "Last login")
			a.printf("%s\n", strings.Repeat("-", 110))
			for _, u := range users {
				last := "never"
				if u.LastLogin != nil {
					last = u.LastLogin.Local().Format("2006-01-02 15:04")
				}
				a.printf("%-5d %-20s %-25s %-30s %-10s %-16s\n", u.ID, u.Username, u.FullName(), u.Email, u.Role, last)
			}
			return nil
		},
	}
}

func newUserRoleCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "role <user-id> <Librarian|Finance|Admin>",
		Short: "Change a staff member's role",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := a.authorize(ctx, library.ManageUsers)
			if err != nil {
				return err
			}
			id, err := parseID(args[0], "user")
			if err != nil {
				return err
			}
			role, err := parseRole(args[1])
			if err != nil {
				return err
			}
			if err := a.mgr.Accounts.SetRole(ctx, s, id, role); err != nil {
				return err
			}
			a.printf("User %d is now %s\n", id, role)
			return nil
		},
	}
}

func newUserDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <user-id>",
		Short: "Remove a staff account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := a.authorize(ctx, library.ManageUsers)
			if err != nil {
				return err
			}
			id, err := parseID(args[0], "user")
			if err != nil {
				return err
			}
			if err := a.mgr.Accounts.DeleteUser(ctx, s, id); err != nil {
				return err
			}
			a.printf("Deleted user %d\n", id)
			return nil
		},
	}
}

func newUserActivityCmd(a *app) *cobra.Command {
	var limit uint
	cmd := &cobra.Command{
		Use:   "activity [user-id]",
		Short: "Show recent actions (your own unless an admin names a user)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := a.authenticate(ctx)
			if err != nil {
				return err
			}
			id := s.User.ID
			if len(args) == 1 {
				if err := s.Require(library.ManageUsers); err != nil {
					return err
				}
				if id, err = parseID(args[0], "user"); err != nil {
					return err
				}
			}
			logs, err := a.mgr.Accounts.ActivityLog(ctx, id, limit)
			if err != nil {
				return err
			}
			for _, l := range logs {
				a.printf("%s  %-16s %s\n", l.CreatedAt.Local().Format("2006-01-02 15:04:05"), l.ActionType, l.ActionDetails)
			}
			return nil
		},
	}
	cmd.Flags().UintVar(&limit, "limit", 0, "how many entries (default 50)")
	return cmd
}

func newPasswdCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "passwd",
		Short: "Change your password",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := a.authenticate(ctx)
			if err != nil {
				return err
			}
			current, err := a.readSecret("Current password: ")
			if err != nil {
				return err
			}
			next, err := a.readNewSecret("New password: ")
			if err != nil {
				return err
			}
			if err := a.mgr.Accounts.ChangePassword(ctx, s, current, next); err != nil {
				return err
			}
			a.printf("Password changed for %s\n", s.User.Username)
			return nil
		},
	}
}

func newResetPasswordCmd(a *app) *cobra.Command {
	var email string
	cmd := &cobra.Command{
		Use:   "reset-password",
		Short: "Reset a forgotten password with the security question",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if email == "" {
				var err error
				if email, err = a.readLine("Email: "); err != nil {
					return err
				}
			}
			question, err := a.mgr.Accounts.SecurityQuestion(ctx, email)
			if err != nil {
				return err
			}
			answer, err := a.readSecret(question + " ")
			if err != nil {
				return err
			}
			ok, err := a.mgr.Accounts.VerifySecurityAnswer(ctx, email, answer)
			if err != nil {
				return err
			}
			if !ok {
				return library.ErrIncorrectAnswer
			}
			next, err := a.readNewSecret("New password: ")
			if err != nil {
				return err
			}
			if err := a.mgr.Accounts.ResetPassword(ctx, email, answer, next); err != nil {
				return err
			}
			a.printf("Password reset. You can now log in.\n")
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	return cmd
}
