package library

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

type userRow struct {
	ID                 int64          `db:"id"`
	Username           string         `db:"username"`
	PasswordHash       string         `db:"password_hash"`
	Name               string         `db:"name"`
	Surname            string         `db:"surname"`
	Email              string         `db:"email"`
	ContactNo          string         `db:"contact_no"`
	SchoolName         string         `db:"school_name"`
	Role               string         `db:"role"`
	SecurityQuestion   string         `db:"security_question"`
	SecurityAnswerHash string         `db:"security_answer_hash"`
	CreatedAt          string         `db:"created_at"`
	LastLogin          sql.NullString `db:"last_login"`
	PasswordChangedAt  sql.NullString `db:"password_changed_at"`
}

func nullTimestamp(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTimestamp(*t), Valid: true}
}

func newUserRow(u *User) userRow {
	return userRow{
		ID:                 u.ID,
		Username:           u.Username,
		PasswordHash:       u.PasswordHash,
		Name:               u.Name,
		Surname:            u.Surname,
		Email:              u.Email,
		ContactNo:          u.ContactNo,
		SchoolName:         u.SchoolName,
		Role:               u.Role.String(),
		SecurityQuestion:   u.SecurityQuestion,
		SecurityAnswerHash: u.SecurityAnswerHash,
		CreatedAt:          formatTimestamp(u.CreatedAt),
		LastLogin:          nullTimestamp(u.LastLogin),
		PasswordChangedAt:  nullTimestamp(u.PasswordChangedAt),
	}
}

func parseOptionalTimestamp(s sql.NullString) (*time.Time, error) {
	if !s.Valid {
		return nil, nil
	}
	t, err := parseTimestamp(s.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (row userRow) toUser() (*User, error) {
	created, err := parseTimestamp(row.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("user %d: bad created_at: %w", row.ID, err)
	}
	lastLogin, err := parseOptionalTimestamp(row.LastLogin)
	if err != nil {
		return nil, fmt.Errorf("user %d: bad last_login: %w", row.ID, err)
	}
	changed, err := parseOptionalTimestamp(row.PasswordChangedAt)
	if err != nil {
		return nil, fmt.Errorf("user %d: bad password_changed_at: %w", row.ID, err)
	}
	return &User{
		ID:                 row.ID,
		Username:           row.Username,
		PasswordHash:       row.PasswordHash,
		Name:               row.Name,
		Surname:            row.Surname,
		Email:              row.Email,
		ContactNo:          row.ContactNo,
		SchoolName:         row.SchoolName,
		Role:               ParseRole(row.Role),
		SecurityQuestion:   row.SecurityQuestion,
		SecurityAnswerHash: row.SecurityAnswerHash,
		CreatedAt:          created,
		LastLogin:          lastLogin,
		PasswordChangedAt:  changed,
	}, nil
}

func (r *sqlRepo) InsertUser(ctx context.Context, u *User) (int64, error) {
	id, err := r.insert(ctx, `INSERT INTO users(username,password_hash,name,surname,email,contact_no,school_name,
            role,security_question,security_answer_hash,created_at,last_login,password_changed_at)
        VALUES(:username,:password_hash,:name,:surname,:email,:contact_no,:school_name,
            :role,:security_question,:security_answer_hash,:created_at,:last_login,:password_changed_at)`, newUserRow(u))
	if isUniqueViolation(err) {
		return 0, fmt.Errorf("%w: username or email already registered", ErrConflict)
	}
	return id, err
}

func (r *sqlRepo) UpdateUser(ctx context.Context, u *User) error {
	row := newUserRow(u)
	err := r.execOne(ctx, ErrUserNotFound, `UPDATE users SET username=?, password_hash=?, name=?, surname=?, email=?,
            contact_no=?, school_name=?, role=?, security_question=?, security_answer_hash=?,
            last_login=?, password_changed_at=?
        WHERE id=?`,
		row.Username, row.PasswordHash, row.Name, row.Surname, row.Email,
		row.ContactNo, row.SchoolName, row.Role, row.SecurityQuestion, row.SecurityAnswerHash,
		row.LastLogin, row.PasswordChangedAt, row.ID)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: username or email already registered", ErrConflict)
	}
	return err
}

func (r *sqlRepo) DeleteUser(ctx context.Context, id int64) error {
	err := r.execOne(ctx, ErrUserNotFound, `DELETE FROM users WHERE id=?`, id)
	if isForeignKeyViolation(err) {
		return fmt.Errorf("%w: user has processed payments", ErrConflict)
	}
	return err
}

func (r *sqlRepo) getUser(ctx context.Context, query string, arg any) (*User, error) {
	var row userRow
	if err := r.getOne(ctx, &row, ErrUserNotFound, query, arg); err != nil {
		return nil, err
	}
	return row.toUser()
}

func (r *sqlRepo) GetUser(ctx context.Context, id int64) (*User, error) {
	return r.getUser(ctx, `SELECT * FROM users WHERE id=?`, id)
}

func (r *sqlRepo) GetUserByUsername(ctx context.Context, username string) (*User, error) {
	return r.getUser(ctx, `SELECT * FROM users WHERE username=?`, username)
}

func (r *sqlRepo) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	return r.getUser(ctx, `SELECT * FROM users WHERE email=? COLLATE NOCASE`, email)
}

func (r *sqlRepo) ListUsers(ctx context.Context) ([]*User, error) {
	var rows []userRow
	if err := sqlx.SelectContext(ctx, r.q, &rows, `SELECT * FROM users ORDER BY username`); err != nil {
		return nil, err
	}
	users := make([]*User, 0, len(rows))
	for _, row := range rows {
		u, err := row.toUser()
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, nil
}

func (r *sqlRepo) CountUsers(ctx context.Context) (int, error) {
	var n int
	err := sqlx.GetContext(ctx, r.q, &n, `SELECT COUNT(*) FROM users`)
	return n, err
}

type activityRow struct {
	ID            int64  `db:"id"`
	UserID        int64  `db:"user_id"`
	ActionType    string `db:"action_type"`
	ActionDetails string `db:"action_details"`
	CreatedAt     string `db:"created_at"`
}

func (r *sqlRepo) InsertActivity(ctx context.Context, a *ActivityLog) (int64, error) {
	return r.insert(ctx, `INSERT INTO user_activity_logs(user_id,action_type,action_details,created_at)
        VALUES(:user_id,:action_type,:action_details,:created_at)`, activityRow{
		UserID:        a.UserID,
		ActionType:    a.ActionType,
		ActionDetails: a.ActionDetails,
		CreatedAt:     formatTimestamp(a.CreatedAt),
	})
}

// ListActivity returns a user's most recent actions first.
func (r *sqlRepo) ListActivity(ctx context.Context, userID int64, limit uint) ([]*ActivityLog, error) {
	var rows []activityRow
	if err := sqlx.SelectContext(ctx, r.q, &rows,
		`SELECT * FROM user_activity_logs WHERE user_id=? ORDER BY created_at DESC, id DESC LIMIT ?`,
		userID, limit); err != nil {
		return nil, err
	}
	logs := make([]*ActivityLog, 0, len(rows))
	for _, row := range rows {
		created, err := parseTimestamp(row.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("activity %d: bad created_at: %w", row.ID, err)
		}
		logs = append(logs, &ActivityLog{
			ID:            row.ID,
			UserID:        row.UserID,
			ActionType:    row.ActionType,
			ActionDetails: row.ActionDetails,
			CreatedAt:     created,
		})
	}
	return logs, nil
}
