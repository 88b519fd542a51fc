package model

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestUserLifecycleChecks(t *testing.T) {
	u := &User{Status: StatusPendingVerification}
	assert.True(t, u.NeedsEmailVerification())
	assert.False(t, u.CanLogin())
	assert.False(t, u.IsActiveAndVerified())

	u.Status = StatusActive
	u.EmailVerified = true
	assert.False(t, u.NeedsEmailVerification())
	assert.True(t, u.CanLogin())
	assert.True(t, u.IsActiveAndVerified())

	u.Status = StatusSuspended
	assert.False(t, u.CanLogin())

	u.Status = StatusInactive
	assert.False(t, u.CanLogin())
}

func TestFullNameFallbacks(t *testing.T) {
	u := &User{Username: "jdoe"}
	assert.Equal(t, "jdoe", u.FullName())
	assert.Equal(t, "jdoe", u.DisplayName())

	u.FirstName = "Jane"
	assert.Equal(t, "Jane", u.FullName())

	u.LastName = "Doe"
	assert.Equal(t, "Jane Doe", u.FullName())
	assert.Equal(t, "Jane Doe", u.DisplayName())

	u.FirstName = ""
	assert.Equal(t, "Doe", u.FullName())
}

func TestAppendLoginEntryBounded(t *testing.T) {
	u := &User{}
	now := time.Now().UTC()
	for i := 0; i < maxLoginHistory+10; i++ {
		u.AppendLoginEntry(now, fmt.Sprintf("entry %d", i), "127.0.0.1")
	}

	assert.Len(t, u.LoginHistory, maxLoginHistory)
	// The oldest entries were dropped, the newest kept.
	assert.Equal(t, "entry 10", u.LoginHistory[0].Notes)
	assert.Equal(t, fmt.Sprintf("entry %d", maxLoginHistory+9), u.LoginHistory[maxLoginHistory-1].Notes)
}

func TestRoleHelpers(t *testing.T) {
	assert.True(t, RoleAdmin.IsAdmin())
	assert.False(t, RoleUser.IsAdmin())
	assert.True(t, RoleModerator.CanModerateContent())
	assert.False(t, RoleOperator.CanModerateContent())
	assert.False(t, RoleGuest.CanManageUsers())
}
