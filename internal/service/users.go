package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/google/uuid"

	"github.com/iliyamo/auth-service/internal/model"
	"github.com/iliyamo/auth-service/internal/repository"
	"github.com/iliyamo/auth-service/internal/utils"
)

// UsersService owns the user lifecycle: registration, lookup,
// credential verification with its audit trail, and the email-verified
// transition.
type UsersService struct {
	store      UserStore
	bcryptCost int
}

func NewUsersService(store UserStore, bcryptCost int) *UsersService {
	return &UsersService{store: store, bcryptCost: bcryptCost}
}

// RegisterRequest carries the registration payload. FirstName and
// LastName are optional.
type RegisterRequest struct {
	Email     string `json:"email"`
	Username  string `json:"username"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// Validate checks syntax only; uniqueness is the database's job.
func (r RegisterRequest) Validate() error {
	err := validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Username, validation.Required, validation.Length(3, 64)),
		validation.Field(&r.Password, validation.Required),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBadRequest, err)
	}
	return validatePasswordStrength(r.Password)
}

// validatePasswordStrength enforces the minimum credential policy:
// at least 8 characters with an upper-case letter, a lower-case letter
// and a digit.
func validatePasswordStrength(password string) error {
	if len(password) < 8 {
		return fmt.Errorf("%w: password must be at least 8 characters long", ErrBadRequest)
	}
	var upper, lower, digit bool
	for _, c := range password {
		switch {
		case unicode.IsUpper(c):
			upper = true
		case unicode.IsLower(c):
			lower = true
		case unicode.IsDigit(c):
			digit = true
		}
	}
	if !upper {
		return fmt.Errorf("%w: password must contain at least one uppercase letter", ErrBadRequest)
	}
	if !lower {
		return fmt.Errorf("%w: password must contain at least one lowercase letter", ErrBadRequest)
	}
	if !digit {
		return fmt.Errorf("%w: password must contain at least one digit", ErrBadRequest)
	}
	return nil
}

// Register hashes the password and persists a new user in the
// PENDING_VERIFICATION state with a "User was created" audit entry.
// A duplicate email or username maps to ErrConflict.
func (s *UsersService) Register(ctx context.Context, req RegisterRequest, clientIP string) (*model.User, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	hash, err := utils.HashPassword(req.Password, s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("%w: hash password: %v", ErrInternal, err)
	}

	now := time.Now().UTC()
	u := &model.User{
		ID:            uuid.NewString(),
		Email:         strings.ToLower(strings.TrimSpace(req.Email)),
		Username:      req.Username,
		PasswordHash:  hash,
		FirstName:     req.FirstName,
		LastName:      req.LastName,
		Role:          model.DefaultRole,
		Status:        model.StatusPendingVerification,
		EmailVerified: false,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	u.AppendLoginEntry(now, "User was created", clientIP)

	if err := s.store.Create(ctx, u); err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return nil, fmt.Errorf("%w: user with this email already exists", ErrConflict)
		}
		return nil, fmt.Errorf("%w: create user: %v", ErrInternal, err)
	}
	return u, nil
}

// FindByEmail looks a user up by email, rejecting syntactically invalid
// addresses before touching the database.
func (s *UsersService) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	if err := validation.Validate(email, validation.Required, is.Email); err != nil {
		return nil, fmt.Errorf("%w: invalid email format", ErrBadRequest)
	}
	u, err := s.store.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: user not found", ErrNotFound)
		}
		return nil, fmt.Errorf("%w: find user: %v", ErrInternal, err)
	}
	return u, nil
}

// FindByID looks a user up by its UUID.
func (s *UsersService) FindByID(ctx context.Context, id string) (*model.User, error) {
	u, err := s.store.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: user not found", ErrNotFound)
		}
		return nil, fmt.Errorf("%w: find user: %v", ErrInternal, err)
	}
	return u, nil
}

// Authenticate verifies the account state and password for a login
// attempt. A user still pending email verification gets an audit entry
// persisted before the Unauthorized error is returned. On success the
// login audit entry and last_login are applied to u in memory; the
// caller commits them via Update together with whatever else it
// changes.
func (s *UsersService) Authenticate(ctx context.Context, u *model.User, password, clientIP string) error {
	now := time.Now().UTC()

	if u.NeedsEmailVerification() {
		u.AppendLoginEntry(now, "Needs email verification", clientIP)
		if err := s.store.Update(ctx, u); err != nil {
			return fmt.Errorf("%w: update user: %v", ErrInternal, err)
		}
		return fmt.Errorf("%w: user needs email verification", ErrUnauthorized)
	}
	if !u.CanLogin() {
		return fmt.Errorf("%w: invalid credentials", ErrUnauthorized)
	}
	if !utils.VerifyPassword(u.PasswordHash, password) {
		// Same message as the account-state rejection: a caller must
		// not be able to tell which check failed.
		return fmt.Errorf("%w: invalid credentials", ErrUnauthorized)
	}

	u.AppendLoginEntry(now, "Login successful", clientIP)
	u.LastLogin = &now
	return nil
}

// CommitLogin persists the mutations Authenticate applied.
func (s *UsersService) CommitLogin(ctx context.Context, u *model.User) error {
	if err := s.store.Update(ctx, u); err != nil {
		return fmt.Errorf("%w: update user: %v", ErrInternal, err)
	}
	return nil
}

// MarkEmailVerified applies the only status transition this service
// performs: PENDING_VERIFICATION -> ACTIVE, with the verification flag
// and an audit entry. It mutates u in memory; persistence belongs to
// the caller (the verification-consumption transaction).
func (s *UsersService) MarkEmailVerified(u *model.User, clientIP string) {
	now := time.Now().UTC()
	u.EmailVerified = true
	u.Status = model.StatusActive
	u.AppendLoginEntry(now, "Email verified successfully", clientIP)
}
