package library

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Session is a logged-in staff user.
type Session struct {
	ID        uuid.UUID
	User      *User
	StartedAt time.Time
}

func newSession(u *User, at time.Time) *Session {
	return &Session{ID: uuid.New(), User: u, StartedAt: at}
}

func (s *Session) role() (Role, bool) {
	if s == nil || s.User == nil {
		return 0, false
	}
	return s.User.Role, true
}

func (s *Session) IsAdmin() bool {
	r, ok := s.role()
	return ok && r == RoleAdmin
}

func (s *Session) IsLibrarianOrAdmin() bool {
	r, ok := s.role()
	return ok && (r == RoleLibrarian || r == RoleAdmin)
}

func (s *Session) IsFinanceOrAdmin() bool {
	r, ok := s.role()
	return ok && (r == RoleFinance || r == RoleAdmin)
}

// Capability names something a staff member may be allowed to do.
type Capability int

const (
	ManageUsers Capability = iota
	ManageBooks
	ManageLearners
	ManageTransactions
	ProcessPayments
)

func (c Capability) String() string {
	switch c {
	case ManageUsers:
		return "manage users"
	case ManageBooks:
		return "manage books"
	case ManageLearners:
		return "manage learners"
	case ManageTransactions:
		return "manage transactions"
	case ProcessPayments:
		return "process payments"
	default:
		return fmt.Sprintf("capability(%d)", int(c))
	}
}

func (s *Session) CanManageUsers() bool        { return s.IsAdmin() }
func (s *Session) CanManageBooks() bool        { return s.IsLibrarianOrAdmin() }
func (s *Session) CanManageLearners() bool     { return s.IsLibrarianOrAdmin() }
func (s *Session) CanManageTransactions() bool { return s.IsLibrarianOrAdmin() }
func (s *Session) CanProcessPayments() bool    { return s.IsFinanceOrAdmin() }

// Can reports whether the session grants c.
func (s *Session) Can(c Capability) bool {
	switch c {
	case ManageUsers:
		return s.CanManageUsers()
	case ManageBooks:
		return s.CanManageBooks()
	case ManageLearners:
		return s.CanManageLearners()
	case ManageTransactions:
		return s.CanManageTransactions()
	case ProcessPayments:
		return s.CanProcessPayments()
	}
	return false
}

// Require returns nil when the session grants c, and a permission error otherwise.
func (s *Session) Require(c Capability) error {
	if s == nil || s.User == nil {
		return ErrNoActiveSession
	}
	if !s.Can(c) {
		return fmt.Errorf("%w: %s cannot %s", ErrInsufficientRole, s.User.Role, c)
	}
	return nil
}
