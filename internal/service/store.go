package service

import (
	"context"

	"github.com/iliyamo/auth-service/internal/model"
)

// The store interfaces are satisfied by the repository types; services
// depend on them so tests can swap in in-memory implementations.

// UserStore persists users.
type UserStore interface {
	Create(ctx context.Context, u *model.User) error
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	GetByID(ctx context.Context, id string) (*model.User, error)
	Update(ctx context.Context, u *model.User) error
}

// TokenStore persists refresh and verification tokens. RotateRefresh
// and ConsumeVerification are the two multi-statement atomic boundaries
// of the system; implementations must make them transactional with the
// token row locked for the duration.
type TokenStore interface {
	Insert(ctx context.Context, t *model.Token) error
	FindActiveRefresh(ctx context.Context, hash string) (*model.Token, error)
	Revoke(ctx context.Context, id string) error
	RevokeAllForUser(ctx context.Context, userID string) error
	// RotateRefresh revokes the active refresh token matching hash and
	// inserts the successor produced by next, atomically. It returns
	// the owner's user id. An error from next aborts the rotation and
	// leaves the presented token valid.
	RotateRefresh(ctx context.Context, hash string, next func(userID string) (*model.Token, error)) (string, error)
	// ConsumeVerification locks the active verification token matching
	// raw, applies the user state transition and marks the token
	// consumed, atomically. It returns the updated user.
	ConsumeVerification(ctx context.Context, raw string, apply func(u *model.User) error) (*model.User, error)
}

// RBACStore reads the role/permission tables.
type RBACStore interface {
	AssignedRoles(ctx context.Context, userID string) ([]string, error)
	PermissionsForRoles(ctx context.Context, roles []string) ([]string, error)
	Overrides(ctx context.Context, userID string) (map[string]bool, error)
}
