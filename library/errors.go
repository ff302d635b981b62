package library

import (
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"
)

// Error kinds. Every error returned by the services wraps exactly one of these,
// so callers can branch with errors.Is without knowing the specific failure.
var (
	ErrNotFound         = errors.New("not found")
	ErrConflict         = errors.New("conflict")
	ErrInvalidState     = errors.New("invalid state")
	ErrIneligible       = errors.New("ineligible operation")
	ErrEmptyInput       = errors.New("empty input")
	ErrInvalidInput     = errors.New("invalid input")
	ErrPermissionDenied = errors.New("permission denied")
)

// Specific failures, each wrapping its kind.
var (
	ErrBookNotFound        = fmt.Errorf("book %w", ErrNotFound)
	ErrLearnerNotFound     = fmt.Errorf("learner %w", ErrNotFound)
	ErrTransactionNotFound = fmt.Errorf("transaction %w", ErrNotFound)
	ErrPaymentNotFound     = fmt.Errorf("payment %w", ErrNotFound)
	ErrUserNotFound        = fmt.Errorf("user %w", ErrNotFound)

	ErrDuplicateCode     = fmt.Errorf("%w: book code already exists", ErrConflict)
	ErrDuplicateReceipt  = fmt.Errorf("%w: receipt number already exists", ErrConflict)
	ErrDuplicateUsername = fmt.Errorf("%w: username already exists", ErrConflict)
	ErrDuplicateEmail    = fmt.Errorf("%w: email already registered", ErrConflict)
	ErrReferencedEntity  = fmt.Errorf("%w: still referenced by transactions", ErrConflict)
	ErrAmountMismatch    = fmt.Errorf("%w: payment amount does not match the settled items", ErrConflict)

	ErrTransactionNotActive = fmt.Errorf("%w: transaction is not active", ErrInvalidState)
	ErrTransactionNotLost   = fmt.Errorf("%w: only lost transactions can be settled", ErrInvalidState)
	ErrBookCodeImmutable    = fmt.Errorf("%w: book code cannot be changed", ErrInvalidState)
	ErrBookOnLoan           = fmt.Errorf("%w: book is out on an active loan", ErrInvalidState)

	ErrLearnerIneligible = fmt.Errorf("%w: learner has overdue books and cannot borrow", ErrIneligible)
	ErrBookUnavailable   = fmt.Errorf("%w: book is not available for borrowing", ErrIneligible)
	ErrLearnerMismatch   = fmt.Errorf("%w: transaction belongs to another learner", ErrIneligible)

	ErrEmptySelection     = fmt.Errorf("%w: no transactions selected for payment", ErrEmptyInput)
	ErrDuplicateSelection = fmt.Errorf("%w: transaction selected more than once", ErrInvalidInput)

	ErrInvalidCredentials = fmt.Errorf("%w: invalid username or password", ErrPermissionDenied)
	ErrIncorrectAnswer    = fmt.Errorf("%w: incorrect security answer", ErrPermissionDenied)
	ErrIncorrectPassword  = fmt.Errorf("%w: current password is incorrect", ErrPermissionDenied)
	ErrInsufficientRole   = fmt.Errorf("%w: role does not allow this operation", ErrPermissionDenied)
	ErrNoActiveSession    = fmt.Errorf("%w: no user logged in", ErrPermissionDenied)
)

func isUniqueViolation(err error) bool {
	var se sqlite3.Error
	return errors.As(err, &se) && se.ExtendedCode == sqlite3.ErrConstraintUnique
}

func isForeignKeyViolation(err error) bool {
	var se sqlite3.Error
	return errors.As(err, &se) && se.ExtendedCode == sqlite3.ErrConstraintForeignKey
}
