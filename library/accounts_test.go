package library

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterAndLogin(t *testing.T) {
	m := testManager(t, spring)
	ctx := context.Background()
	u := addUser(t, m, "librarian_1", RoleLibrarian)
	assert.NotEmpty(t, u.PasswordHash)
	assert.NotEqual(t, testPassword, u.PasswordHash)
	assert.NotContains(t, u.SecurityAnswerHash, "blue", "answers are stored one-way")

	s, err := m.Accounts.Login(ctx, "librarian_1", testPassword)
	require.NoError(t, err)
	assert.Equal(t, u.ID, s.User.ID)
	assert.Equal(t, spring, s.StartedAt)
	require.NotNil(t, s.User.LastLogin)

	stored, err := m.Accounts.User(ctx, u.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.LastLogin)
	assert.True(t, spring.Equal(*stored.LastLogin))

	logs, err := m.Accounts.ActivityLog(ctx, u.ID, 0)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, ActionLogin, logs[0].ActionType)
	assert.Equal(t, ActionRegister, logs[1].ActionType)
}

func TestLoginFailuresLookAlike(t *testing.T) {
	m := testManager(t, spring)
	addUser(t, m, "librarian_1", RoleLibrarian)

	_, wrongPassword := m.Accounts.Login(context.Background(), "librarian_1", "nope-nope")
	_, unknownUser := m.Accounts.Login(context.Background(), "ghost", testPassword)
	assert.ErrorIs(t, wrongPassword, ErrInvalidCredentials)
	assert.ErrorIs(t, unknownUser, ErrInvalidCredentials)
	assert.Equal(t, wrongPassword.Error(), unknownUser.Error())
}

func TestRegisterValidation(t *testing.T) {
	m := testManager(t, spring)
	ctx := context.Background()
	valid := func() *User {
		return &User{Username: "new_user", Name: "N", Surname: "U", Email: "new@school.example", SecurityQuestion: "q?"}
	}

	cases := map[string]func(u *User) (string, string){
		"short username": func(u *User) (string, string) { u.Username = "ab"; return testPassword, testAnswer },
		"bad username":   func(u *User) (string, string) { u.Username = "no spaces"; return testPassword, testAnswer },
		"bad email":      func(u *User) (string, string) { u.Email = "nope"; return testPassword, testAnswer },
		"short password": func(u *User) (string, string) { return "12345", testAnswer },
		"long password": func(u *User) (string, string) {
			return "123456789012345678901234567890123456789012345678901", testAnswer
		},
		"no answer":   func(u *User) (string, string) { return testPassword, "  " },
		"no question": func(u *User) (string, string) { u.SecurityQuestion = ""; return testPassword, testAnswer },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			u := valid()
			pw, answer := mutate(u)
			_, err := m.Accounts.Register(ctx, u, pw, answer)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}

	u := valid()
	u.Username = "someone@school.example"
	_, err := m.Accounts.Register(ctx, u, testPassword, testAnswer)
	assert.NoError(t, err, "an email address is a valid username")
}

func TestRegisterUniqueness(t *testing.T) {
	m := testManager(t, spring)
	ctx := context.Background()
	addUser(t, m, "taken", RoleLibrarian)

	_, err := m.Accounts.Register(ctx, &User{
		Username: "taken", Name: "N", Surname: "S", Email: "fresh@school.example", SecurityQuestion: "q",
	}, testPassword, testAnswer)
	assert.ErrorIs(t, err, ErrDuplicateUsername)

	_, err = m.Accounts.Register(ctx, &User{
		Username: "fresh", Name: "N", Surname: "S", Email: "TAKEN@school.example", SecurityQuestion: "q",
	}, testPassword, testAnswer)
	assert.ErrorIs(t, err, ErrDuplicateEmail)
	assert.ErrorIs(t, err, ErrConflict)
}

func TestChangePassword(t *testing.T) {
	m := testManager(t, spring)
	ctx := context.Background()
	addUser(t, m, "librarian_1", RoleLibrarian)
	s, err := m.Accounts.Login(ctx, "librarian_1", testPassword)
	require.NoError(t, err)

	assert.ErrorIs(t, m.Accounts.ChangePassword(ctx, s, "wrong-one", "another1"), ErrIncorrectPassword)
	assert.ErrorIs(t, m.Accounts.ChangePassword(ctx, s, testPassword, "short"), ErrInvalidInput)
	assert.ErrorIs(t, m.Accounts.ChangePassword(ctx, nil, testPassword, "another1"), ErrNoActiveSession)

	require.NoError(t, m.Accounts.ChangePassword(ctx, s, testPassword, "another1"))
	require.NotNil(t, s.User.PasswordChangedAt)

	_, err = m.Accounts.Login(ctx, "librarian_1", testPassword)
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = m.Accounts.Login(ctx, "librarian_1", "another1")
	assert.NoError(t, err)
}

func TestPasswordRecovery(t *testing.T) {
	m := testManager(t, spring)
	ctx := context.Background()
	u := addUser(t, m, "librarian_1", RoleLibrarian)

	q, err := m.Accounts.SecurityQuestion(ctx, u.Email)
	require.NoError(t, err)
	assert.Equal(t, "Favourite colour?", q)

	_, err = m.Accounts.SecurityQuestion(ctx, "nobody@school.example")
	assert.ErrorIs(t, err, ErrUserNotFound)

	ok, err := m.Accounts.VerifySecurityAnswer(ctx, u.Email, "  BLUE ")
	require.NoError(t, err)
	assert.True(t, ok, "answers compare case-insensitively")
	ok, err = m.Accounts.VerifySecurityAnswer(ctx, u.Email, "green")
	require.NoError(t, err)
	assert.False(t, ok)

	assert.ErrorIs(t, m.Accounts.ResetPassword(ctx, u.Email, "green", "brandnew1"), ErrIncorrectAnswer)
	require.NoError(t, m.Accounts.ResetPassword(ctx, u.Email, "blue", "brandnew1"))

	_, err = m.Accounts.Login(ctx, "librarian_1", "brandnew1")
	assert.NoError(t, err)
}

func TestUserAdministration(t *testing.T) {
	m := testManager(t, spring)
	ctx := context.Background()
	admin := addUser(t, m, "admin", RoleAdmin)
	clerk := addUser(t, m, "clerk", RoleLibrarian)
	s, err := m.Accounts.Login(ctx, "admin", testPassword)
	require.NoError(t, err)

	require.NoError(t, m.Accounts.SetRole(ctx, s, clerk.ID, RoleFinance))
	got, err := m.Accounts.User(ctx, clerk.ID)
	require.NoError(t, err)
	assert.Equal(t, RoleFinance, got.Role)

	users, err := m.Accounts.Users(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 2)

	assert.ErrorIs(t, m.Accounts.DeleteUser(ctx, s, admin.ID), ErrInvalidState, "cannot delete yourself")
	require.NoError(t, m.Accounts.DeleteUser(ctx, s, clerk.ID))
	_, err = m.Accounts.User(ctx, clerk.ID)
	assert.ErrorIs(t, err, ErrUserNotFound)

	logs, err := m.Accounts.ActivityLog(ctx, admin.ID, 1)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, ActionUserDelete, logs[0].ActionType)
}

func TestDeleteUserWhoTookPayments(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()
	tx := f.lose(t, f.learner, "B001", "10")
	_, err := f.m.Ledger.ProcessPayment(ctx, f.payment(), []int64{tx.ID})
	require.NoError(t, err)

	err = f.m.Accounts.DeleteUser(ctx, nil, f.clerk.ID)
	assert.ErrorIs(t, err, ErrConflict)
}

func TestLogActivity(t *testing.T) {
	m := testManager(t, spring)
	ctx := context.Background()
	u := addUser(t, m, "librarian_1", RoleLibrarian)

	require.NoError(t, m.Accounts.LogActivity(ctx, u.ID, "EXPORT", "printed overdue list"))
	logs, err := m.Accounts.ActivityLog(ctx, u.ID, 10)
	require.NoError(t, err)
	require.NotEmpty(t, logs)
	assert.Equal(t, "printed overdue list", logs[0].ActionDetails)
	assert.WithinDuration(t, spring, logs[0].CreatedAt, time.Second)
}

func TestBcryptAuthenticator(t *testing.T) {
	a := NewBcryptAuthenticator(0)
	assert.Equal(t, 10, a.Cost, "out-of-range cost falls back to the default")

	a = NewBcryptAuthenticator(4)
	h, err := a.HashSecret("pa55word")
	require.NoError(t, err)
	assert.True(t, a.VerifyCredential(h, "pa55word"))
	assert.False(t, a.VerifyCredential(h, "pa55wore"))
	assert.False(t, a.VerifyCredential("not-a-hash", "pa55word"))
}
