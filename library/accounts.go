package library

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"
)

const (
	minPasswordLen = 6
	maxPasswordLen = 50

	defaultActivityLimit = 50
)

// Activity action types.
const (
	ActionLogin          = "LOGIN"
	ActionRegister       = "REGISTER"
	ActionPasswordChange = "PASSWORD_CHANGE"
	ActionPasswordReset  = "PASSWORD_RESET"
	ActionRoleChange     = "ROLE_CHANGE"
	ActionUserDelete     = "USER_DELETE"
)

// Authenticator hashes and checks secrets.
type Authenticator interface {
	HashSecret(secret string) (string, error)
	VerifyCredential(hash, secret string) bool
}

// BcryptAuthenticator is the bcrypt-backed Authenticator.
type BcryptAuthenticator struct {
	Cost int
}

func NewBcryptAuthenticator(cost int) *BcryptAuthenticator {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &BcryptAuthenticator{Cost: cost}
}

func (a *BcryptAuthenticator) HashSecret(secret string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(secret), a.Cost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}

func (a *BcryptAuthenticator) VerifyCredential(hash, secret string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(secret)) == nil
}

// Accounts manages staff users and their sessions.
type Accounts struct {
	store Store
	auth  Authenticator
	now   Clock
	log   *slog.Logger
}

func NewAccounts(store Store, auth Authenticator, now Clock, logger *slog.Logger) *Accounts {
	return &Accounts{store: store, auth: auth, now: now, log: orDiscard(logger)}
}

func checkPassword(pw string) error {
	n := utf8.RuneCountInString(pw)
	if n < minPasswordLen || n > maxPasswordLen {
		return fmt.Errorf("%w: password must be between %d and %d characters", ErrInvalidInput, minPasswordLen, maxPasswordLen)
	}
	return nil
}

// Answers are compared case-insensitively.
func normalizeAnswer(answer string) string {
	return strings.ToLower(strings.TrimSpace(answer))
}

func normalizeUser(u *User) {
	u.Username = strings.TrimSpace(u.Username)
	u.Name = strings.TrimSpace(u.Name)
	u.Surname = strings.TrimSpace(u.Surname)
	u.Email = strings.TrimSpace(u.Email)
	u.ContactNo = strings.TrimSpace(u.ContactNo)
	u.SchoolName = strings.TrimSpace(u.SchoolName)
	u.SecurityQuestion = strings.TrimSpace(u.SecurityQuestion)
}

// Register creates a staff account. Username and email must both be unused.
func (a *Accounts) Register(ctx context.Context, u *User, password, securityAnswer string) (*User, error) {
	normalizeUser(u)
	if err := checkStruct(u); err != nil {
		return nil, err
	}
	if err := checkPassword(password); err != nil {
		return nil, err
	}
	answer := normalizeAnswer(securityAnswer)
	if answer == "" {
		return nil, fmt.Errorf("%w: security answer is required", ErrInvalidInput)
	}

	var err error
	if u.PasswordHash, err = a.auth.HashSecret(password); err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	if u.SecurityAnswerHash, err = a.auth.HashSecret(answer); err != nil {
		return nil, fmt.Errorf("hash security answer: %w", err)
	}
	u.CreatedAt = a.now()
	u.LastLogin = nil
	u.PasswordChangedAt = nil

	err = a.store.InTx(ctx, func(r Repo) error {
		if _, err := r.GetUserByUsername(ctx, u.Username); err == nil {
			return ErrDuplicateUsername
		} else if !errors.Is(err, ErrUserNotFound) {
			return err
		}
		if _, err := r.GetUserByEmail(ctx, u.Email); err == nil {
			return ErrDuplicateEmail
		} else if !errors.Is(err, ErrUserNotFound) {
			return err
		}
		id, err := r.InsertUser(ctx, u)
		if err != nil {
			return err
		}
		u.ID = id
		return a.logActivity(ctx, r, u.ID, ActionRegister, "account created with role "+u.Role.String())
	})
	if err != nil {
		return nil, fmt.Errorf("register %q: %w", u.Username, err)
	}
	a.log.Info("user registered", "user_id", u.ID, "username", u.Username, "role", u.Role.String())
	return u, nil
}

// Login checks credentials and opens a session. Unknown users and wrong
// passwords fail identically.
func (a *Accounts) Login(ctx context.Context, username, password string) (*Session, error) {
	u, err := a.store.GetUserByUsername(ctx, strings.TrimSpace(username))
	if errors.Is(err, ErrUserNotFound) {
		a.log.Warn("login failed", "username", username)
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	if !a.auth.VerifyCredential(u.PasswordHash, password) {
		a.log.Warn("login failed", "username", username)
		return nil, ErrInvalidCredentials
	}

	now := a.now()
	u.LastLogin = &now
	err = a.store.InTx(ctx, func(r Repo) error {
		if err := r.UpdateUser(ctx, u); err != nil {
			return err
		}
		return a.logActivity(ctx, r, u.ID, ActionLogin, "user logged in")
	})
	if err != nil {
		return nil, fmt.Errorf("login %q: %w", u.Username, err)
	}
	s := newSession(u, now)
	a.log.Info("user logged in", "user_id", u.ID, "session_id", s.ID.String())
	return s, nil
}

func (a *Accounts) setPassword(ctx context.Context, u *User, newPassword, action, details string) error {
	if err := checkPassword(newPassword); err != nil {
		return err
	}
	hash, err := a.auth.HashSecret(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	now := a.now()
	u.PasswordHash = hash
	u.PasswordChangedAt = &now
	return a.store.InTx(ctx, func(r Repo) error {
		if err := r.UpdateUser(ctx, u); err != nil {
			return err
		}
		return a.logActivity(ctx, r, u.ID, action, details)
	})
}

// ChangePassword replaces the session user's password after checking the current one.
func (a *Accounts) ChangePassword(ctx context.Context, s *Session, oldPassword, newPassword string) error {
	if s == nil || s.User == nil {
		return ErrNoActiveSession
	}
	u, err := a.store.GetUser(ctx, s.User.ID)
	if err != nil {
		return fmt.Errorf("change password: %w", err)
	}
	if !a.auth.VerifyCredential(u.PasswordHash, oldPassword) {
		return ErrIncorrectPassword
	}
	if err := a.setPassword(ctx, u, newPassword, ActionPasswordChange, "password changed"); err != nil {
		return fmt.Errorf("change password for user %d: %w", u.ID, err)
	}
	s.User = u
	a.log.Info("password changed", "user_id", u.ID)
	return nil
}

// SecurityQuestion returns the recovery question registered for email.
func (a *Accounts) SecurityQuestion(ctx context.Context, email string) (string, error) {
	u, err := a.store.GetUserByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		return "", err
	}
	return u.SecurityQuestion, nil
}

func (a *Accounts) VerifySecurityAnswer(ctx context.Context, email, answer string) (bool, error) {
	u, err := a.store.GetUserByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		return false, err
	}
	return a.auth.VerifyCredential(u.SecurityAnswerHash, normalizeAnswer(answer)), nil
}

// ResetPassword sets a new password for the account behind email once the
// security answer checks out.
func (a *Accounts) ResetPassword(ctx context.Context, email, answer, newPassword string) error {
	u, err := a.store.GetUserByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		return fmt.Errorf("reset password: %w", err)
	}
	if !a.auth.VerifyCredential(u.SecurityAnswerHash, normalizeAnswer(answer)) {
		a.log.Warn("password reset refused", "user_id", u.ID)
		return ErrIncorrectAnswer
	}
	if err := a.setPassword(ctx, u, newPassword, ActionPasswordReset, "password reset via security question"); err != nil {
		return fmt.Errorf("reset password for user %d: %w", u.ID, err)
	}
	a.log.Info("password reset", "user_id", u.ID)
	return nil
}

func (a *Accounts) Users(ctx context.Context) ([]*User, error) {
	return a.store.ListUsers(ctx)
}

func (a *Accounts) User(ctx context.Context, id int64) (*User, error) {
	return a.store.GetUser(ctx, id)
}

func (a *Accounts) SetRole(ctx context.Context, actor *Session, id int64, role Role) error {
	err := a.store.InTx(ctx, func(r Repo) error {
		u, err := r.GetUser(ctx, id)
		if err != nil {
			return err
		}
		old := u.Role
		u.Role = role
		if err := r.UpdateUser(ctx, u); err != nil {
			return err
		}
		return a.logActivity(ctx, r, actorID(actor, id), ActionRoleChange,
			fmt.Sprintf("user %d role %s -> %s", id, old, role))
	})
	if err != nil {
		return fmt.Errorf("set role of user %d: %w", id, err)
	}
	a.log.Info("user role changed", "user_id", id, "role", role.String())
	return nil
}

// DeleteUser removes a staff account. Users who processed payments are kept.
func (a *Accounts) DeleteUser(ctx context.Context, actor *Session, id int64) error {
	if actor != nil && actor.User != nil && actor.User.ID == id {
		return fmt.Errorf("delete user %d: %w: cannot delete the logged-in account", id, ErrInvalidState)
	}
	err := a.store.InTx(ctx, func(r Repo) error {
		if err := r.DeleteUser(ctx, id); err != nil {
			return err
		}
		if actor == nil || actor.User == nil {
			return nil
		}
		return a.logActivity(ctx, r, actor.User.ID, ActionUserDelete, fmt.Sprintf("deleted user %d", id))
	})
	if err != nil {
		return fmt.Errorf("delete user %d: %w", id, err)
	}
	a.log.Info("user deleted", "user_id", id)
	return nil
}

func actorID(s *Session, fallback int64) int64 {
	if s != nil && s.User != nil {
		return s.User.ID
	}
	return fallback
}

func (a *Accounts) logActivity(ctx context.Context, r Repo, userID int64, action, details string) error {
	_, err := r.InsertActivity(ctx, &ActivityLog{
		UserID:        userID,
		ActionType:    action,
		ActionDetails: details,
		CreatedAt:     a.now(),
	})
	return err
}

// LogActivity records an audit line for userID.
func (a *Accounts) LogActivity(ctx context.Context, userID int64, action, details string) error {
	if err := a.logActivity(ctx, a.store, userID, action, details); err != nil {
		return fmt.Errorf("log activity for user %d: %w", userID, err)
	}
	return nil
}

// ActivityLog returns the user's most recent actions, newest first.
// A zero limit means the default of 50.
func (a *Accounts) ActivityLog(ctx context.Context, userID int64, limit uint) ([]*ActivityLog, error) {
	if limit == 0 {
		limit = defaultActivityLimit
	}
	return a.store.ListActivity(ctx, userID, limit)
}
