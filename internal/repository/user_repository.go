package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/iliyamo/auth-service/internal/model"
)

// UserRepo persists users. The login_history audit trail is stored as a
// JSON array in a single column and (un)marshalled here so the service
// layer only ever sees []model.LoginEntry.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

const userColumns = `id, email, username, password_hash, first_name, last_name,
	role, status, email_verified, last_login, login_history, created_at, updated_at`

// Create inserts a new user row. Unique-key collisions on email or
// username surface as ErrEmailExists.
func (r *UserRepo) Create(ctx context.Context, u *model.User) error {
	history, err := json.Marshal(u.LoginHistory)
	if err != nil {
		return err
	}
	_, err = r.DB.ExecContext(ctx,
		`INSERT INTO users (id, email, username, password_hash, first_name, last_name,
			role, status, email_verified, last_login, login_history, created_at, updated_at)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		u.ID, strings.ToLower(strings.TrimSpace(u.Email)), u.Username, u.PasswordHash,
		nullable(u.FirstName), nullable(u.LastName), string(u.Role), string(u.Status),
		u.EmailVerified, u.LastLogin, history, u.CreatedAt, u.UpdatedAt)
	if err != nil {
		if isDuplicateKey(err) {
			return ErrEmailExists
		}
		return err
	}
	return nil
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	row := r.DB.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email=? LIMIT 1`, email)
	return scanUser(row)
}

// GetByID fetches a user by its UUID.
func (r *UserRepo) GetByID(ctx context.Context, id string) (*model.User, error) {
	row := r.DB.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id=? LIMIT 1`, id)
	return scanUser(row)
}

// Update persists the mutable lifecycle fields: status, verification
// flag, last_login and the audit trail. Identity and credential columns
// are immutable in the current flows.
func (r *UserRepo) Update(ctx context.Context, u *model.User) error {
	u.UpdatedAt = time.Now().UTC()
	history, err := json.Marshal(u.LoginHistory)
	if err != nil {
		return err
	}
	res, err := r.DB.ExecContext(ctx,
		`UPDATE users SET status=?, email_verified=?, last_login=?, login_history=?, updated_at=?
		WHERE id=?`,
		string(u.Status), u.EmailVerified, u.LastLogin, history, u.UpdatedAt, u.ID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		// RowsAffected is 0 both for a missing row and for a no-op
		// update; confirm the row exists before reporting a miss.
		if _, err := r.GetByID(ctx, u.ID); err != nil {
			return err
		}
	}
	return nil
}

// rowScanner covers *sql.Row and *sql.Rows so scanUser works for both
// plain and transactional reads.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*model.User, error) {
	var (
		u         model.User
		firstName sql.NullString
		lastName  sql.NullString
		lastLogin sql.NullTime
		history   []byte
		role      string
		status    string
	)
	err := row.Scan(&u.ID, &u.Email, &u.Username, &u.PasswordHash, &firstName, &lastName,
		&role, &status, &u.EmailVerified, &lastLogin, &history, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, err
	}
	u.FirstName = firstName.String
	u.LastName = lastName.String
	u.Role = model.UserRole(role)
	u.Status = model.UserStatus(status)
	if lastLogin.Valid {
		t := lastLogin.Time
		u.LastLogin = &t
	}
	if len(history) > 0 {
		if err := json.Unmarshal(history, &u.LoginHistory); err != nil {
			return nil, err
		}
	}
	return &u, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// isDuplicateKey detects MySQL error 1062 (duplicate entry for a unique
// key) without depending on driver-specific error types.
func isDuplicateKey(err error) bool {
	return err != nil && strings.Contains(err.Error(), "1062")
}
