package main

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"school-library/config"
	"school-library/library"
)

var csvHeader = []string{"book_code", "isbn", "title", "author", "subject", "grade", "price"}

// importResult tallies one run.
type importResult struct {
	Added   int
	Skipped int
	Errors  []error
}

// parseRecord turns one CSV row into a Book.
func parseRecord(rec []string) (*library.Book, error) {
	if len(rec) != len(csvHeader) {
		return nil, fmt.Errorf("%w: want %d columns, got %d", library.ErrInvalidInput, len(csvHeader), len(rec))
	}
	price := decimal.Zero
	if s := strings.TrimSpace(rec[6]); s != "" {
		p, err := decimal.NewFromString(s)
		if err != nil {
			return nil, fmt.Errorf("%w: bad price %q", library.ErrInvalidInput, s)
		}
		price = p
	}
	return &library.Book{
		BookCode: rec[0],
		ISBN:     rec[1],
		Title:    rec[2],
		Author:   rec[3],
		Subject:  rec[4],
		Grade:    rec[5],
		Price:    price,
	}, nil
}

func isHeader(rec []string) bool {
	return len(rec) > 0 && strings.EqualFold(strings.TrimSpace(rec[0]), csvHeader[0])
}

// importBooks reads rows from r and adds each to the catalog. Rows whose book
// code already exists are skipped; other bad rows are collected and the
// import carries on.
func importBooks(ctx context.Context, catalog *library.Catalog, r io.Reader, progress io.Writer) (*importResult, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	res := &importResult{}
	for line := 1; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return res, nil
		}
		if err != nil {
			return res, fmt.Errorf("read csv: %w", err)
		}
		if line == 1 && isHeader(rec) {
			continue
		}

		b, err := parseRecord(rec)
		if err == nil {
			b, err = catalog.Create(ctx, b)
		}
		switch {
		case errors.Is(err, library.ErrDuplicateCode):
			fmt.Fprintf(progress, "line %d: %s already in catalog, skipping\n", line, strings.TrimSpace(rec[0]))
			res.Skipped++
		case err != nil:
			fmt.Fprintf(progress, "line %d: ERROR - %v\n", line, err)
			res.Errors = append(res.Errors, fmt.Errorf("line %d: %w", line, err))
		default:
			fmt.Fprintf(progress, "line %d: %s %q SUCCESS (ID: %d)\n", line, b.BookCode, b.Title, b.ID)
			res.Added++
		}
	}
}

func newImportCmd() *cobra.Command {
	var dbPath string
	cmd := &cobra.Command{
		Use:          "import_books <file.csv>",
		Short:        "Seed the catalog from a CSV file (" + strings.Join(csvHeader, ",") + ")",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if dbPath != "" {
				cfg.DBPath = dbPath
			}
			logger := cfg.Logger(os.Stderr)

			manager, err := library.NewLibraryManager(cfg.DBPath, cfg.Options(logger))
			if err != nil {
				return fmt.Errorf("open database: %w", err)
			}
			defer manager.Close()

			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Importing books from %s...\n", args[0])
			res, err := importBooks(cmd.Context(), manager.Catalog, f, out)
			if err != nil {
				return err
			}

			fmt.Fprintf(out, "\nImport complete!\n")
			fmt.Fprintf(out, "Successfully imported: %d books\n", res.Added)
			fmt.Fprintf(out, "Already present: %d\n", res.Skipped)
			fmt.Fprintf(out, "Errors: %d\n", len(res.Errors))
			if len(res.Errors) > 0 {
				return errors.Join(res.Errors...)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&dbPath, "db", "", "SQLite database path (overrides "+config.EnvDBPath+")")
	return cmd
}

func main() {
	if err := newImportCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
