package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/iliyamo/auth-service/internal/utils"
)

// Notifier delivers the verification link to a freshly registered user.
// Delivery is best-effort from the orchestrator's perspective: a
// failure is logged, never surfaced, and never rolls back registration.
type Notifier interface {
	SendVerificationEmail(ctx context.Context, to, link string) error
}

// AuthOptions is the immutable token configuration injected at startup.
// Keys are base64-encoded PEM as stored in the environment.
type AuthOptions struct {
	AccessPrivateKey string
	AccessPublicKey  string
	AccessTTLMin     int
	RefreshTTLDays   int
	VerifyTTL        time.Duration
	VerifyBaseURL    string
}

// AuthService composes the lifecycle services into the register, login,
// refresh, verify-email and introspect use cases.
type AuthService struct {
	users    *UsersService
	tokens   *TokensService
	perms    *PermissionsService
	notifier Notifier
	opts     AuthOptions
}

func NewAuthService(users *UsersService, tokens *TokensService, perms *PermissionsService, notifier Notifier, opts AuthOptions) *AuthService {
	return &AuthService{users: users, tokens: tokens, perms: perms, notifier: notifier, opts: opts}
}

// RegisterResult is the registration response body.
type RegisterResult struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Status string `json:"status"`
}

// AuthResult is the bundle returned by login and refresh. RefreshToken
// is the raw opaque secret; the handler moves it into the cookie and
// keeps it out of the JSON body.
type AuthResult struct {
	Email        string
	Username     string
	AccessToken  string
	RefreshToken string
	RefreshExp   time.Time
}

// IntrospectResult reports the outcome of a stateless access-token
// verification. An invalid or expired token is not an error here, just
// active=false.
type IntrospectResult struct {
	Active    bool   `json:"active"`
	Sub       string `json:"sub,omitempty"`
	TokenUUID string `json:"token_uuid,omitempty"`
}

// Register creates the user, issues an email-verification token and
// hands the verification link to the notifier. Notifier failure is an
// accepted degraded mode: the user exists and can request the mail
// again through support channels.
func (s *AuthService) Register(ctx context.Context, req RegisterRequest, clientIP string) (*RegisterResult, error) {
	// Pre-check so the common duplicate case returns Conflict without
	// consuming an insert; a race slipping past still hits the unique
	// constraint inside Register.
	if _, err := s.users.FindByEmail(ctx, req.Email); err == nil {
		return nil, fmt.Errorf("%w: user with this email already exists", ErrConflict)
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	u, err := s.users.Register(ctx, req, clientIP)
	if err != nil {
		return nil, err
	}

	t, err := s.tokens.IssueVerificationToken(ctx, u.ID, s.opts.VerifyTTL)
	if err != nil {
		return nil, err
	}

	link := fmt.Sprintf("%s/v1/auth/verify/%s", s.opts.VerifyBaseURL, t.Token)
	if err := s.notifier.SendVerificationEmail(ctx, u.Email, link); err != nil {
		log.Printf("auth: verification mail for %s not delivered: %v", u.ID, err)
	}

	return &RegisterResult{UserID: u.ID, Email: u.Email, Status: string(u.Status)}, nil
}

// Login authenticates the credentials, persists the audit trail and
// last_login, recomputes the effective role/permission claims and
// issues a fresh access/refresh pair.
func (s *AuthService) Login(ctx context.Context, email, password, clientIP string) (*AuthResult, error) {
	u, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if err := s.users.Authenticate(ctx, u, password, clientIP); err != nil {
		return nil, err
	}
	if err := s.users.CommitLogin(ctx, u); err != nil {
		return nil, err
	}

	roles, perms, err := s.perms.Compute(ctx, u)
	if err != nil {
		return nil, err
	}
	access, err := utils.NewAccessToken(s.opts.AccessPrivateKey, u.ID, s.opts.AccessTTLMin, perms, roles)
	if err != nil {
		return nil, fmt.Errorf("%w: mint access token: %v", ErrInternal, err)
	}
	rawRefresh, refresh, err := s.tokens.IssueRefreshToken(ctx, u.ID, s.opts.RefreshTTLDays)
	if err != nil {
		return nil, err
	}

	return &AuthResult{
		Email:        u.Email,
		Username:     u.Username,
		AccessToken:  access.Token,
		RefreshToken: rawRefresh,
		RefreshExp:   refresh.ExpiresAt,
	}, nil
}

// Refresh runs the rotation protocol end to end. The user load, claim
// recomputation and access-token mint all happen inside the rotation
// transaction: if any of them fails the presented refresh token stays
// valid.
func (s *AuthService) Refresh(ctx context.Context, rawRefresh string) (*AuthResult, error) {
	var result AuthResult
	newRaw, _, err := s.tokens.Rotate(ctx, rawRefresh, s.opts.RefreshTTLDays, func(userID string) error {
		u, err := s.users.FindByID(ctx, userID)
		if err != nil {
			return err
		}
		roles, perms, err := s.perms.Compute(ctx, u)
		if err != nil {
			return err
		}
		access, err := utils.NewAccessToken(s.opts.AccessPrivateKey, u.ID, s.opts.AccessTTLMin, perms, roles)
		if err != nil {
			return fmt.Errorf("%w: mint access token: %v", ErrInternal, err)
		}
		result.Email = u.Email
		result.Username = u.Username
		result.AccessToken = access.Token
		return nil
	})
	if err != nil {
		return nil, err
	}
	result.RefreshToken = newRaw
	result.RefreshExp = time.Now().UTC().Add(time.Duration(s.opts.RefreshTTLDays) * 24 * time.Hour)
	return &result, nil
}

// VerifyEmail consumes a verification token presented from the mail
// link and returns the confirmation message.
func (s *AuthService) VerifyEmail(ctx context.Context, rawToken, clientIP string) (string, error) {
	return s.tokens.ConsumeVerificationToken(ctx, rawToken, clientIP)
}

// Introspect verifies an access token purely cryptographically — no
// database lookup, no user-existence check.
func (s *AuthService) Introspect(token string) IntrospectResult {
	id, err := utils.VerifyAccessToken(s.opts.AccessPublicKey, token)
	if err != nil {
		return IntrospectResult{Active: false}
	}
	return IntrospectResult{Active: true, Sub: id.UserID, TokenUUID: id.TokenUUID}
}

// Logout revokes the presented refresh token.
func (s *AuthService) Logout(ctx context.Context, rawRefresh string) error {
	return s.tokens.RevokeRefresh(ctx, rawRefresh)
}

// LogoutAll revokes every active token the user owns.
func (s *AuthService) LogoutAll(ctx context.Context, userID string) error {
	return s.tokens.RevokeAllForUser(ctx, userID)
}
