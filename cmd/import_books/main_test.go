package main

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"school-library/library"
)

func newCatalog(t *testing.T) *library.Catalog {
	t.Helper()
	mgr, err := library.NewLibraryManager(filepath.Join(t.TempDir(), "import.db"), library.Options{})
	require.NoError(t, err)
	t.Cleanup(func() { mgr.Close() })
	return mgr.Catalog
}

func TestImportBooks(t *testing.T) {
	catalog := newCatalog(t)
	ctx := context.Background()
	in := strings.Join([]string{
		"book_code,isbn,title,author,subject,grade,price",
		"B001,978-1,Algebra,Smith,Mathematics,9,120.50",
		"B002, 978-2, Plants, Dlamini, Life Sciences, 8,",
		"B001,978-1,Algebra,Smith,Mathematics,9,120.50",
		"B003,978-3,Maps,Naidoo,Geography,7,ten",
		"B004,978-4,Short row",
		"B005,978-5,,Nobody,History,7,10",
	}, "\n")

	var progress bytes.Buffer
	res, err := importBooks(ctx, catalog, strings.NewReader(in), &progress)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Added)
	assert.Equal(t, 1, res.Skipped)
	require.Len(t, res.Errors, 3)
	assert.ErrorIs(t, res.Errors[0], library.ErrInvalidInput)
	assert.Contains(t, res.Errors[0].Error(), "line 5")
	assert.Contains(t, progress.String(), "B001 already in catalog")

	b, err := catalog.GetByCode(ctx, "B002")
	require.NoError(t, err)
	assert.Equal(t, "Plants", b.Title)
	assert.True(t, b.Price.IsZero())
	assert.Equal(t, library.BookAvailable, b.Status)

	books, err := catalog.All(ctx)
	require.NoError(t, err)
	assert.Len(t, books, 2)
}

func TestImportBooksWithoutHeader(t *testing.T) {
	catalog := newCatalog(t)
	res, err := importBooks(context.Background(), catalog,
		strings.NewReader("B001,978-1,Algebra,Smith,Mathematics,9,99\n"), &bytes.Buffer{})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Added)
	assert.Empty(t, res.Errors)
}

func TestParseRecord(t *testing.T) {
	b, err := parseRecord([]string{"B9", "978-9", "T", "A", "S", "10", "12.345"})
	require.NoError(t, err)
	assert.Equal(t, "12.345", b.Price.String())

	_, err = parseRecord([]string{"B9"})
	assert.ErrorIs(t, err, library.ErrInvalidInput)
	assert.True(t, isHeader([]string{" BOOK_CODE", "isbn"}))
	assert.False(t, isHeader([]string{"B001"}))
}
