package service

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/auth-service/internal/model"
	"github.com/iliyamo/auth-service/internal/repository"
)

// In-memory store implementations for the service tests. They honor the
// same error contracts as the MySQL repositories, including the
// atomicity of RotateRefresh and ConsumeVerification.

type memUserStore struct {
	mu    sync.Mutex
	users map[string]*model.User // by id
}

func newMemUserStore() *memUserStore {
	return &memUserStore{users: make(map[string]*model.User)}
}

func copyUser(u *model.User) *model.User {
	cp := *u
	cp.LoginHistory = append([]model.LoginEntry(nil), u.LoginHistory...)
	if u.LastLogin != nil {
		ll := *u.LastLogin
		cp.LastLogin = &ll
	}
	return &cp
}

func (s *memUserStore) Create(_ context.Context, u *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if existing.Email == u.Email {
			return repository.ErrEmailExists
		}
	}
	s.users[u.ID] = copyUser(u)
	return nil
}

func (s *memUserStore) GetByEmail(_ context.Context, email string) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == email {
			return copyUser(u), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *memUserStore) GetByID(_ context.Context, id string) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[id]; ok {
		return copyUser(u), nil
	}
	return nil, repository.ErrNotFound
}

func (s *memUserStore) Update(_ context.Context, u *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[u.ID]; !ok {
		return repository.ErrNotFound
	}
	s.users[u.ID] = copyUser(u)
	return nil
}

type memTokenStore struct {
	mu     sync.Mutex
	tokens map[string]*model.Token // by id
	users  *memUserStore
}

func newMemTokenStore(users *memUserStore) *memTokenStore {
	return &memTokenStore{tokens: make(map[string]*model.Token), users: users}
}

func (s *memTokenStore) Insert(_ context.Context, t *model.Token) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertLocked(t)
}

func (s *memTokenStore) insertLocked(t *model.Token) error {
	for _, existing := range s.tokens {
		if existing.Token == t.Token {
			return repository.ErrDuplicate
		}
	}
	cp := *t
	s.tokens[t.ID] = &cp
	return nil
}

func (s *memTokenStore) findUsableLocked(value string, typ model.TokenType) *model.Token {
	now := time.Now().UTC()
	for _, t := range s.tokens {
		if t.Token == value && t.Type == typ && t.IsUsable(now) {
			return t
		}
	}
	return nil
}

func (s *memTokenStore) FindActiveRefresh(_ context.Context, hash string) (*model.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t := s.findUsableLocked(hash, model.TokenRefresh); t != nil {
		cp := *t
		return &cp, nil
	}
	return nil, repository.ErrNotFound
}

func (s *memTokenStore) Revoke(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.tokens[id]; ok {
		t.IsRevoked = true
	}
	return nil
}

func (s *memTokenStore) RevokeAllForUser(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.tokens {
		if t.UserID == userID {
			t.IsRevoked = true
		}
	}
	return nil
}

func (s *memTokenStore) RotateRefresh(_ context.Context, hash string, next func(userID string) (*model.Token, error)) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	old := s.findUsableLocked(hash, model.TokenRefresh)
	if old == nil {
		return "", repository.ErrNotFound
	}
	successor, err := next(old.UserID)
	if err != nil {
		return "", err
	}
	old.IsRevoked = true
	if err := s.insertLocked(successor); err != nil {
		old.IsRevoked = false
		return "", err
	}
	return old.UserID, nil
}

func (s *memTokenStore) ConsumeVerification(ctx context.Context, raw string, apply func(u *model.User) error) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.findUsableLocked(raw, model.TokenEmailVerification)
	if t == nil {
		return nil, repository.ErrNotFound
	}
	u, err := s.users.GetByID(ctx, t.UserID)
	if err != nil {
		return nil, err
	}
	if err := apply(u); err != nil {
		return nil, err
	}
	if err := s.users.Update(ctx, u); err != nil {
		return nil, err
	}
	t.IsRevoked = true
	t.Type = model.TokenRefresh
	return u, nil
}

type memRBACStore struct {
	assigned  map[string][]string        // userID -> extra role codes
	grants    map[string][]string        // role code -> permission codes
	overrides map[string]map[string]bool // userID -> permission -> allow
}

func newMemRBACStore() *memRBACStore {
	return &memRBACStore{
		assigned:  make(map[string][]string),
		grants:    make(map[string][]string),
		overrides: make(map[string]map[string]bool),
	}
}

func (s *memRBACStore) AssignedRoles(_ context.Context, userID string) ([]string, error) {
	return s.assigned[userID], nil
}

func (s *memRBACStore) PermissionsForRoles(_ context.Context, roles []string) ([]string, error) {
	var out []string
	for _, r := range roles {
		out = append(out, s.grants[r]...)
	}
	return out, nil
}

func (s *memRBACStore) Overrides(_ context.Context, userID string) (map[string]bool, error) {
	return s.overrides[userID], nil
}

type memNotifier struct {
	mu    sync.Mutex
	sent  []string // recipient addresses
	links []string
	err   error
}

func (n *memNotifier) SendVerificationEmail(_ context.Context, to, link string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.sent = append(n.sent, to)
	n.links = append(n.links, link)
	return nil
}

// testKeyPair returns a fresh RSA pair in the configuration encoding
// (PEM wrapped in base64).
func testKeyPair(t *testing.T) (privB64, pubB64 string) {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	privPEM := pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(key),
	})
	pubDER, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	require.NoError(t, err)
	pubPEM := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubDER})

	return base64.StdEncoding.EncodeToString(privPEM), base64.StdEncoding.EncodeToString(pubPEM)
}

// testEnv is a fully wired service stack over the in-memory stores.
type testEnv struct {
	users    *UsersService
	tokens   *TokensService
	perms    *PermissionsService
	auth     *AuthService
	notifier *memNotifier

	userStore  *memUserStore
	tokenStore *memTokenStore
	rbacStore  *memRBACStore

	pubKey string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	priv, pub := testKeyPair(t)

	us := newMemUserStore()
	ts := newMemTokenStore(us)
	rs := newMemRBACStore()
	rs.grants["USER"] = []string{"project.read", "token.read", "appointment.read", "person.read"}
	rs.grants["ADMIN"] = []string{"user.read", "user.write", "project.read", "project.write", "project.delete"}
	rs.grants["GUEST"] = []string{"project.read"}

	notifier := &memNotifier{}
	users := NewUsersService(us, bcrypt.MinCost)
	perms := NewPermissionsService(rs)
	tokens := NewTokensService(ts, users)
	auth := NewAuthService(users, tokens, perms, notifier, AuthOptions{
		AccessPrivateKey: priv,
		AccessPublicKey:  pub,
		AccessTTLMin:     15,
		RefreshTTLDays:   7,
		VerifyTTL:        time.Hour,
		VerifyBaseURL:    "https://auth.example.com",
	})

	return &testEnv{
		users: users, tokens: tokens, perms: perms, auth: auth,
		notifier: notifier, userStore: us, tokenStore: ts, rbacStore: rs,
		pubKey: pub,
	}
}

var validRegister = RegisterRequest{
	Email:    "jane@example.com",
	Username: "jane",
	Password: "Sup3rSecret",
}

// registerAndVerify drives a user through the full signup flow and
// returns the stored user.
func (e *testEnv) registerAndVerify(t *testing.T, ctx context.Context) *model.User {
	t.Helper()

	res, err := e.auth.Register(ctx, validRegister, "10.0.0.1")
	require.NoError(t, err)

	tok := e.verificationTokenFor(t, res.UserID)
	_, err = e.auth.VerifyEmail(ctx, tok, "10.0.0.1")
	require.NoError(t, err)

	u, err := e.userStore.GetByID(ctx, res.UserID)
	require.NoError(t, err)
	return u
}

func (e *testEnv) verificationTokenFor(t *testing.T, userID string) string {
	t.Helper()
	e.tokenStore.mu.Lock()
	defer e.tokenStore.mu.Unlock()
	for _, tok := range e.tokenStore.tokens {
		if tok.UserID == userID && tok.Type == model.TokenEmailVerification && !tok.IsRevoked {
			return tok.Token
		}
	}
	t.Fatalf("no active verification token for %s", userID)
	return ""
}
