package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/iliyamo/auth-service/internal/model"
)

// TokenRepo persists the server-tracked tokens: rotating refresh tokens
// (stored as hashes) and email-verification tokens (stored raw). The
// multi-statement operations — refresh rotation and verification
// consumption — run inside a single transaction with the token row
// locked, which is what makes refresh tokens single-use under
// concurrent presentation.
type TokenRepo struct{ DB *sql.DB }

func NewTokenRepo(db *sql.DB) *TokenRepo { return &TokenRepo{DB: db} }

const tokenColumns = `id, user_id, token, token_type, expires_at, is_revoked, created_at, updated_at`

// Insert stores a token row. Collisions on the unique token value
// surface as ErrDuplicate so callers can regenerate and retry.
func (r *TokenRepo) Insert(ctx context.Context, t *model.Token) error {
	return insertToken(ctx, r.DB, t)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertToken(ctx context.Context, db execer, t *model.Token) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO tokens (id, user_id, token, token_type, expires_at, is_revoked, created_at, updated_at)
		VALUES (?,?,?,?,?,?,?,?)`,
		t.ID, t.UserID, t.Token, string(t.Type), t.ExpiresAt, t.IsRevoked, t.CreatedAt, t.UpdatedAt)
	if err != nil && isDuplicateKey(err) {
		return ErrDuplicate
	}
	return err
}

// FindActiveRefresh returns the non-revoked, non-expired refresh token
// matching the presented secret's hash, or ErrNotFound.
func (r *TokenRepo) FindActiveRefresh(ctx context.Context, hash string) (*model.Token, error) {
	row := r.DB.QueryRowContext(ctx,
		`SELECT `+tokenColumns+` FROM tokens
		WHERE token=? AND token_type=? AND is_revoked=0 AND expires_at>? LIMIT 1`,
		hash, string(model.TokenRefresh), time.Now().UTC())
	return scanToken(row)
}

// Revoke marks a token as revoked. Revoking an already-revoked token is
// a no-op success.
func (r *TokenRepo) Revoke(ctx context.Context, id string) error {
	_, err := r.DB.ExecContext(ctx,
		`UPDATE tokens SET is_revoked=1, updated_at=? WHERE id=? AND is_revoked=0`,
		time.Now().UTC(), id)
	return err
}

// RevokeAllForUser revokes every active token owned by the user.
func (r *TokenRepo) RevokeAllForUser(ctx context.Context, userID string) error {
	_, err := r.DB.ExecContext(ctx,
		`UPDATE tokens SET is_revoked=1, updated_at=? WHERE user_id=? AND is_revoked=0`,
		time.Now().UTC(), userID)
	return err
}

// RotateRefresh performs the single-use rotation protocol in one
// transaction: lock the active refresh token row matching hash, revoke
// it, then insert the successor produced by next. If next returns an
// error (token generation or access-token minting failed upstream) the
// whole transaction rolls back and the presented token stays valid.
// A concurrent request that loses the row-lock race observes the token
// as already revoked and gets ErrNotFound.
func (r *TokenRepo) RotateRefresh(ctx context.Context, hash string, next func(userID string) (*model.Token, error)) (string, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC()
	row := tx.QueryRowContext(ctx,
		`SELECT `+tokenColumns+` FROM tokens
		WHERE token=? AND token_type=? AND is_revoked=0 AND expires_at>? LIMIT 1 FOR UPDATE`,
		hash, string(model.TokenRefresh), now)
	old, err := scanToken(row)
	if err != nil {
		return "", err
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE tokens SET is_revoked=1, updated_at=? WHERE id=?`, now, old.ID); err != nil {
		return "", err
	}

	succ, err := next(old.UserID)
	if err != nil {
		return "", err
	}
	if err := insertToken(ctx, tx, succ); err != nil {
		return "", err
	}
	if err := tx.Commit(); err != nil {
		return "", err
	}
	return old.UserID, nil
}

// ConsumeVerification atomically consumes an email-verification token:
// the token row is locked, the owning user is loaded and mutated through
// apply, and the user update plus token consumption commit together.
// Either both writes land or neither does — a failed user update leaves
// the token consumable. A consumed verification token is stored as a
// revoked REFRESH row, the terminal marker the schema uses for it.
func (r *TokenRepo) ConsumeVerification(ctx context.Context, raw string, apply func(u *model.User) error) (*model.User, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC()
	row := tx.QueryRowContext(ctx,
		`SELECT `+tokenColumns+` FROM tokens
		WHERE token=? AND token_type=? AND is_revoked=0 AND expires_at>? LIMIT 1 FOR UPDATE`,
		raw, string(model.TokenEmailVerification), now)
	tok, err := scanToken(row)
	if err != nil {
		return nil, err
	}

	userRow := tx.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id=? LIMIT 1 FOR UPDATE`, tok.UserID)
	u, err := scanUser(userRow)
	if err != nil {
		return nil, err
	}

	if err := apply(u); err != nil {
		return nil, err
	}
	u.UpdatedAt = now
	history, err := json.Marshal(u.LoginHistory)
	if err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE users SET status=?, email_verified=?, last_login=?, login_history=?, updated_at=?
		WHERE id=?`,
		string(u.Status), u.EmailVerified, u.LastLogin, history, u.UpdatedAt, u.ID); err != nil {
		return nil, err
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE tokens SET is_revoked=1, token_type=?, updated_at=? WHERE id=?`,
		string(model.TokenRefresh), now, tok.ID); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return u, nil
}

func scanToken(row rowScanner) (*model.Token, error) {
	var (
		t         model.Token
		tokenType string
	)
	err := row.Scan(&t.ID, &t.UserID, &t.Token, &tokenType, &t.ExpiresAt,
		&t.IsRevoked, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, err
	}
	t.Type = model.TokenType(tokenType)
	return &t, nil
}
