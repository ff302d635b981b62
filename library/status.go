package library

import "strings"

// BookStatus is the availability state of a single copy.
type BookStatus int

const (
	BookAvailable BookStatus = iota
	BookBorrowed
	BookLost
)

// ParseBookStatus maps the persisted form back to a BookStatus.
// Unrecognised values fall back to BookAvailable.
func ParseBookStatus(s string) BookStatus {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "borrowed":
		return BookBorrowed
	case "lost":
		return BookLost
	default:
		return BookAvailable
	}
}

func (s BookStatus) String() string {
	switch s {
	case BookBorrowed:
		return "Borrowed"
	case BookLost:
		return "Lost"
	default:
		return "Available"
	}
}

// TransactionStatus tracks a loan through Active -> Returned | Lost -> Paid.
type TransactionStatus int

const (
	TxActive TransactionStatus = iota
	TxReturned
	TxLost
	TxPaid
)

// ParseTransactionStatus maps the persisted form back to a TransactionStatus.
// Unrecognised values fall back to TxActive.
func ParseTransactionStatus(s string) TransactionStatus {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "returned":
		return TxReturned
	case "lost":
		return TxLost
	case "paid":
		return TxPaid
	default:
		return TxActive
	}
}

func (s TransactionStatus) String() string {
	switch s {
	case TxReturned:
		return "Returned"
	case TxLost:
		return "Lost"
	case TxPaid:
		return "Paid"
	default:
		return "Active"
	}
}

// Terminal reports whether no further transition can leave this status.
func (s TransactionStatus) Terminal() bool {
	return s == TxReturned || s == TxPaid
}

// Role is a staff user's permission level.
type Role int

const (
	RoleLibrarian Role = iota
	RoleAdmin
	RoleFinance
)

// ParseRole maps the persisted form back to a Role.
// Unrecognised values fall back to RoleLibrarian.
func ParseRole(s string) Role {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "admin":
		return RoleAdmin
	case "finance":
		return RoleFinance
	default:
		return RoleLibrarian
	}
}

func (r Role) String() string {
	switch r {
	case RoleAdmin:
		return "Admin"
	case RoleFinance:
		return "Finance"
	default:
		return "Librarian"
	}
}
