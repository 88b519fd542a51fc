package model

import "time"

// TokenType distinguishes the server-tracked token kinds stored in the
// `tokens` table.  ACCESS rows are never written by the current flows
// (access tokens are stateless JWTs); the value exists for schema
// compatibility and revocation correlation.
type TokenType string

const (
	TokenAccess            TokenType = "ACCESS"
	TokenRefresh           TokenType = "REFRESH"
	TokenResetPassword     TokenType = "RESET_PASSWORD"
	TokenEmailVerification TokenType = "EMAIL_VERIFICATION"
)

func (t TokenType) IsRefresh() bool { return t == TokenRefresh }

func (t TokenType) IsVerification() bool {
	return t == TokenEmailVerification || t == TokenResetPassword
}

// Token mirrors the `tokens` table.  For REFRESH rows the Token column
// holds the SHA-256 hash of the opaque secret; the raw secret is handed
// to the client once and never persisted.  EMAIL_VERIFICATION rows store
// the raw opaque value since it travels in a link rather than a cookie.
type Token struct {
	ID        string // UUID primary key
	UserID    string
	Token     string // opaque value or its hash, unique
	Type      TokenType
	ExpiresAt time.Time
	IsRevoked bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsExpired reports whether the token's expiry has passed at the given
// instant.
func (t *Token) IsExpired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}

// IsUsable reports whether the token can still be presented: not
// revoked and not expired.
func (t *Token) IsUsable(now time.Time) bool {
	return !t.IsRevoked && !t.IsExpired(now)
}
