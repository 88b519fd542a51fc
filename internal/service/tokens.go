package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/auth-service/internal/model"
	"github.com/iliyamo/auth-service/internal/repository"
	"github.com/iliyamo/auth-service/internal/utils"
)

// insertAttempts bounds the regenerate-and-retry loop for random token
// values colliding with the unique constraint.
const insertAttempts = 3

// TokensService owns issuance, rotation and revocation of the
// server-tracked tokens.
type TokensService struct {
	store TokenStore
	users *UsersService
}

func NewTokensService(store TokenStore, users *UsersService) *TokensService {
	return &TokensService{store: store, users: users}
}

// IssueVerificationToken creates an opaque email-verification token for
// the user. The raw value is stored directly — it travels in a link and
// is looked up by equality on consumption.
func (s *TokensService) IssueVerificationToken(ctx context.Context, userID string, ttl time.Duration) (*model.Token, error) {
	for attempt := 0; attempt < insertAttempts; attempt++ {
		raw, err := utils.NewVerificationToken()
		if err != nil {
			return nil, fmt.Errorf("%w: generate verification token: %v", ErrInternal, err)
		}
		now := time.Now().UTC()
		t := &model.Token{
			ID:        uuid.NewString(),
			UserID:    userID,
			Token:     raw,
			Type:      model.TokenEmailVerification,
			ExpiresAt: now.Add(ttl),
			CreatedAt: now,
			UpdatedAt: now,
		}
		err = s.store.Insert(ctx, t)
		if errors.Is(err, repository.ErrDuplicate) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("%w: store verification token: %v", ErrInternal, err)
		}
		return t, nil
	}
	return nil, fmt.Errorf("%w: verification token collisions exhausted retries", ErrInternal)
}

// ConsumeVerificationToken looks up a live verification token by its
// raw value and, in one transaction, flips the owning user to
// ACTIVE/verified and marks the token consumed. An unknown, revoked or
// expired token maps to ErrForbidden.
func (s *TokensService) ConsumeVerificationToken(ctx context.Context, raw, clientIP string) (string, error) {
	_, err := s.store.ConsumeVerification(ctx, raw, func(u *model.User) error {
		s.users.MarkEmailVerified(u, clientIP)
		return nil
	})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", fmt.Errorf("%w: token not found", ErrForbidden)
		}
		return "", fmt.Errorf("%w: consume verification token: %v", ErrInternal, err)
	}
	return "Email verified successfully", nil
}

// IssueRefreshToken generates an opaque refresh pair and persists only
// the hash. The returned raw secret goes to the client exactly once.
func (s *TokensService) IssueRefreshToken(ctx context.Context, userID string, ttlDays int) (string, *model.Token, error) {
	for attempt := 0; attempt < insertAttempts; attempt++ {
		raw, t, err := s.newRefreshRecord(userID, ttlDays)
		if err != nil {
			return "", nil, err
		}
		err = s.store.Insert(ctx, t)
		if errors.Is(err, repository.ErrDuplicate) {
			continue
		}
		if err != nil {
			return "", nil, fmt.Errorf("%w: store refresh token: %v", ErrInternal, err)
		}
		return raw, t, nil
	}
	return "", nil, fmt.Errorf("%w: refresh token collisions exhausted retries", ErrInternal)
}

// Rotate executes the single-use rotation protocol: within one
// transaction the presented token is located by its hash, revoked, and
// replaced by a fresh one for the same user. within runs inside that
// transaction with the owner's id — the orchestrator uses it to load
// the user and mint the new access token, so any failure there rolls
// the rotation back and the presented token stays valid. Presenting the
// same secret a second time fails with ErrUnauthorized.
func (s *TokensService) Rotate(ctx context.Context, raw string, ttlDays int, within func(userID string) error) (string, string, error) {
	var newRaw string
	userID, err := s.store.RotateRefresh(ctx, utils.HashRefreshRaw(raw), func(userID string) (*model.Token, error) {
		r, t, err := s.newRefreshRecord(userID, ttlDays)
		if err != nil {
			return nil, err
		}
		if err := within(userID); err != nil {
			return nil, err
		}
		newRaw = r
		return t, nil
	})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", "", fmt.Errorf("%w: invalid refresh token", ErrUnauthorized)
		}
		// within's service-level failures pass through unchanged.
		for _, sentinel := range []error{ErrBadRequest, ErrConflict, ErrUnauthorized, ErrForbidden, ErrNotFound, ErrInternal} {
			if errors.Is(err, sentinel) {
				return "", "", err
			}
		}
		return "", "", fmt.Errorf("%w: rotate refresh token: %v", ErrInternal, err)
	}
	return newRaw, userID, nil
}

// RevokeRefresh validates the presented secret and revokes its token.
// Used by logout for a single session.
func (s *TokensService) RevokeRefresh(ctx context.Context, raw string) error {
	t, err := s.store.FindActiveRefresh(ctx, utils.HashRefreshRaw(raw))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("%w: invalid refresh token", ErrUnauthorized)
		}
		return fmt.Errorf("%w: find refresh token: %v", ErrInternal, err)
	}
	if err := s.store.Revoke(ctx, t.ID); err != nil {
		return fmt.Errorf("%w: revoke token: %v", ErrInternal, err)
	}
	return nil
}

// RevokeAllForUser revokes every active token the user owns. Used by
// logout-everywhere.
func (s *TokensService) RevokeAllForUser(ctx context.Context, userID string) error {
	if err := s.store.RevokeAllForUser(ctx, userID); err != nil {
		return fmt.Errorf("%w: revoke tokens: %v", ErrInternal, err)
	}
	return nil
}

func (s *TokensService) newRefreshRecord(userID string, ttlDays int) (string, *model.Token, error) {
	raw, hash, err := utils.NewOpaqueRefresh()
	if err != nil {
		return "", nil, fmt.Errorf("%w: generate refresh token: %v", ErrInternal, err)
	}
	now := time.Now().UTC()
	return raw, &model.Token{
		ID:        uuid.NewString(),
		UserID:    userID,
		Token:     hash,
		Type:      model.TokenRefresh,
		ExpiresAt: now.Add(time.Duration(ttlDays) * 24 * time.Hour),
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}
