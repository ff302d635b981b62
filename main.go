package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"school-library/config"
	"school-library/library"
)

// app carries what every command needs: settings, the opened library and
// the logged-in staff session.
type app struct {
	cfg *config.Config
	mgr *library.LibraryManager
	log *slog.Logger

	in  *bufio.Reader
	out io.Writer

	username string
	session  *library.Session
}

func newApp(in io.Reader, out io.Writer) *app {
	return &app{in: bufio.NewReader(in), out: out}
}

func (a *app) open(envFile, dbPath, asOf string) error {
	var files []string
	if envFile != "" {
		files = append(files, envFile)
	}
	cfg, err := config.Load(files...)
	if err != nil {
		return err
	}
	if dbPath != "" {
		cfg.DBPath = dbPath
	}
	if asOf != "" {
		day, err := library.ParseDate(asOf)
		if err != nil {
			return fmt.Errorf("--as-of: %w", err)
		}
		cfg.AsOf = &day
	}
	a.cfg = cfg
	a.log = cfg.Logger(os.Stderr)

	mgr, err := library.NewLibraryManager(cfg.DBPath, cfg.Options(a.log))
	if err != nil {
		return fmt.Errorf("open database %s: %w", cfg.DBPath, err)
	}
	a.mgr = mgr
	return nil
}

func (a *app) close() error {
	if a.mgr == nil {
		return nil
	}
	return a.mgr.Close()
}

func (a *app) printf(format string, args ...any) { fmt.Fprintf(a.out, format, args...) }

// readLine prompts and reads one trimmed line.
func (a *app) readLine(prompt string) (string, error) {
	if prompt != "" {
		a.printf("%s", prompt)
	}
	line, err := a.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// readSecret reads a value with masking when stdin is a terminal.
func (a *app) readSecret(prompt string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return a.readLine(prompt)
	}
	a.printf("%s", prompt)
	b, err := term.ReadPassword(fd)
	a.printf("\n")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(b)), nil
}

// readNewSecret asks twice and insists the entries match.
func (a *app) readNewSecret(prompt string) (string, error) {
	first, err := a.readSecret(prompt)
	if err != nil {
		return "", err
	}
	second, err := a.readSecret("Confirm: ")
	if err != nil {
		return "", err
	}
	if first != second {
		return "", errors.New("entries do not match")
	}
	return first, nil
}

// authenticate logs the operator in once per invocation.
func (a *app) authenticate(ctx context.Context) (*library.Session, error) {
	if a.session != nil {
		return a.session, nil
	}
	username := a.username
	if username == "" {
		var err error
		if username, err = a.readLine("Username: "); err != nil {
			return nil, err
		}
	}
	password, err := a.readSecret("Password: ")
	if err != nil {
		return nil, fmt.Errorf("failed to read password: %w", err)
	}
	s, err := a.mgr.Accounts.Login(ctx, username, password)
	if err != nil {
		return nil, err
	}
	a.session = s
	return s, nil
}

// authorize logs in and checks the session grants c.
func (a *app) authorize(ctx context.Context, c library.Capability) (*library.Session, error) {
	s, err := a.authenticate(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.Require(c); err != nil {
		return nil, err
	}
	return s, nil
}

func (a *app) today() time.Time { return a.mgr.Today() }

func newRootCmd(a *app) *cobra.Command {
	var envFile, dbPath, asOf string

	root := &cobra.Command{
		Use:           "librarian",
		Short:         "School library lending and fee management",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.open(envFile, dbPath, asOf)
		},
	}
	root.PersistentFlags().StringVar(&envFile, "env-file", "", "settings file (default .env when present)")
	root.PersistentFlags().StringVar(&dbPath, "db", "", "SQLite database path (overrides "+config.EnvDBPath+")")
	root.PersistentFlags().StringVar(&asOf, "as-of", "", "treat this YYYY-MM-DD day as today")
	root.PersistentFlags().StringVarP(&a.username, "user", "u", os.Getenv("LIBRARY_USER"), "staff username to log in as")

	root.AddCommand(
		newSetupCmd(a),
		newBookCmd(a),
		newLearnerCmd(a),
		newBorrowCmd(a),
		newReturnCmd(a),
		newLostCmd(a),
		newLoansCmd(a),
		newPayCmd(a),
		newPaymentsCmd(a),
		newReceiptCmd(a),
		newUserCmd(a),
		newPasswdCmd(a),
		newResetPasswordCmd(a),
		newDashboardCmd(a),
	)
	return root
}

func main() {
	a := newApp(os.Stdin, os.Stdout)
	err := newRootCmd(a).Execute()
	if cerr := a.close(); cerr != nil && err == nil {
		err = cerr
	}
	if err != nil {
		if a.log != nil && !library.IsUserError(err) {
			a.log.Error("command failed", "error", err)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// ------------------ Argument parsing ------------------

func parseID(s, what string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid %s ID %q", library.ErrInvalidInput, what, s)
	}
	return id, nil
}

func parseIDs(args []string, what string) ([]int64, error) {
	ids := make([]int64, 0, len(args))
	for _, s := range args {
		id, err := parseID(s, what)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func parseMoney(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: invalid amount %q", library.ErrInvalidInput, s)
	}
	return d, nil
}

// dayOr parses a YYYY-MM-DD flag value, falling back to today when empty.
func (a *app) dayOr(s string) (time.Time, error) {
	if s == "" {
		return a.today(), nil
	}
	return library.ParseDate(s)
}
