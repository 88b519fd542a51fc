package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/auth-service/internal/model"
)

func TestRegisterCreatesPendingUser(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	u, err := env.users.Register(ctx, validRegister, "10.0.0.1")
	require.NoError(t, err)

	assert.NotEmpty(t, u.ID)
	assert.Equal(t, "jane@example.com", u.Email)
	assert.Equal(t, model.StatusPendingVerification, u.Status)
	assert.Equal(t, model.RoleUser, u.Role)
	assert.False(t, u.EmailVerified)
	assert.NotEqual(t, "Sup3rSecret", u.PasswordHash)
	require.Len(t, u.LoginHistory, 1)
	assert.Equal(t, "User was created", u.LoginHistory[0].Notes)
	assert.Equal(t, "10.0.0.1", u.LoginHistory[0].IPAddress)
}

func TestRegisterNormalizesEmail(t *testing.T) {
	env := newTestEnv(t)
	req := validRegister
	req.Email = "  Jane@Example.COM "

	u, err := env.users.Register(context.Background(), req, "")
	require.NoError(t, err)
	assert.Equal(t, "jane@example.com", u.Email)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.users.Register(ctx, validRegister, "")
	require.NoError(t, err)

	_, err = env.users.Register(ctx, validRegister, "")
	assert.ErrorIs(t, err, ErrConflict)
}

func TestRegisterValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	cases := []struct {
		name   string
		mutate func(r *RegisterRequest)
	}{
		{"bad email", func(r *RegisterRequest) { r.Email = "not-an-email" }},
		{"missing email", func(r *RegisterRequest) { r.Email = "" }},
		{"short username", func(r *RegisterRequest) { r.Username = "ab" }},
		{"short password", func(r *RegisterRequest) { r.Password = "Ab1" }},
		{"no uppercase", func(r *RegisterRequest) { r.Password = "sup3rsecret" }},
		{"no lowercase", func(r *RegisterRequest) { r.Password = "SUP3RSECRET" }},
		{"no digit", func(r *RegisterRequest) { r.Password = "SuperSecret" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := validRegister
			tc.mutate(&req)
			_, err := env.users.Register(ctx, req, "")
			assert.ErrorIs(t, err, ErrBadRequest)
		})
	}
}

func TestFindByEmailInvalidFormat(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.users.FindByEmail(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrBadRequest)
}

func TestFindByEmailUnknown(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.users.FindByEmail(context.Background(), "ghost@example.com")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAuthenticatePendingVerification(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	u, err := env.users.Register(ctx, validRegister, "10.0.0.1")
	require.NoError(t, err)

	err = env.users.Authenticate(ctx, u, "Sup3rSecret", "10.0.0.2")
	assert.ErrorIs(t, err, ErrUnauthorized)

	// The rejection is audited and persisted.
	stored, err := env.userStore.GetByID(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, stored.LoginHistory, 2)
	assert.Equal(t, "Needs email verification", stored.LoginHistory[1].Notes)
	assert.Equal(t, "10.0.0.2", stored.LoginHistory[1].IPAddress)
}

func TestAuthenticateWrongPassword(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := env.registerAndVerify(t, ctx)

	err := env.users.Authenticate(ctx, u, "WrongPass1", "10.0.0.1")
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestAuthenticateSuspended(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := env.registerAndVerify(t, ctx)

	u.Status = model.StatusSuspended
	errSuspended := env.users.Authenticate(ctx, u, "Sup3rSecret", "")
	require.ErrorIs(t, errSuspended, ErrUnauthorized)

	u.Status = model.StatusActive
	errBadPass := env.users.Authenticate(ctx, u, "WrongPass1", "")
	require.ErrorIs(t, errBadPass, ErrUnauthorized)

	// Account-state and password failures are indistinguishable.
	assert.Equal(t, errSuspended.Error(), errBadPass.Error())
}

func TestAuthenticateSuccessAudits(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := env.registerAndVerify(t, ctx)

	require.NoError(t, env.users.Authenticate(ctx, u, "Sup3rSecret", "10.0.0.3"))
	require.NotNil(t, u.LastLogin)
	last := u.LoginHistory[len(u.LoginHistory)-1]
	assert.Equal(t, "Login successful", last.Notes)
	assert.Equal(t, "10.0.0.3", last.IPAddress)

	require.NoError(t, env.users.CommitLogin(ctx, u))
	stored, err := env.userStore.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.NotNil(t, stored.LastLogin)
}
