package model

import "time"

// UserStatus enumerates the lifecycle states of a user account as stored
// in the `users.status` column.  A freshly registered user always starts
// in PENDING_VERIFICATION and only transitions to ACTIVE through a
// successful email verification.  INACTIVE and SUSPENDED are set by
// administrative tooling which is outside this service.
type UserStatus string

const (
	StatusActive              UserStatus = "ACTIVE"
	StatusInactive            UserStatus = "INACTIVE"
	StatusSuspended           UserStatus = "SUSPENDED"
	StatusPendingVerification UserStatus = "PENDING_VERIFICATION"
)

// IsActive reports whether the account is in the ACTIVE state.
func (s UserStatus) IsActive() bool { return s == StatusActive }

// IsSuspended reports whether the account is suspended.
func (s UserStatus) IsSuspended() bool { return s == StatusSuspended }

// UserRole is the base role stored directly on the user row
// (`users.role`).  Additional roles may be layered on top through the
// user_roles table; the base role is always mirrored there as well.
type UserRole string

const (
	RoleAdmin     UserRole = "ADMIN"
	RoleUser      UserRole = "USER"
	RoleModerator UserRole = "MODERATOR"
	RoleGuest     UserRole = "GUEST"
	RoleOperator  UserRole = "OPERATOR"
)

// DefaultRole is assigned to users created through self-registration.
const DefaultRole = RoleUser

func (r UserRole) IsAdmin() bool { return r == RoleAdmin }

func (r UserRole) CanModerateContent() bool {
	return r == RoleAdmin || r == RoleModerator
}

func (r UserRole) CanManageUsers() bool { return r == RoleAdmin }

// LoginEntry is a single record in the user's append-only login audit
// trail, persisted as a JSON array in the `users.login_history` column.
type LoginEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Notes     string    `json:"notes"`
	IPAddress string    `json:"ip_address"`
}

// maxLoginHistory bounds the audit trail; the oldest entries are dropped
// on append so the JSON column cannot grow without bound.
const maxLoginHistory = 100

// User mirrors the `users` table.  Identity, credential and lifecycle
// state live together on one row; roles beyond the base role and
// permission overrides are relational (user_roles,
// user_permission_overrides) and referenced by ID, never embedded.
type User struct {
	ID            string // UUID primary key
	Email         string // unique
	Username      string // unique
	PasswordHash  string
	FirstName     string // optional, empty when absent
	LastName      string // optional, empty when absent
	Role          UserRole
	Status        UserStatus
	EmailVerified bool
	LastLogin     *time.Time
	LoginHistory  []LoginEntry
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// FullName joins the optional name parts, falling back to the username
// when neither is set.
func (u *User) FullName() string {
	switch {
	case u.FirstName != "" && u.LastName != "":
		return u.FirstName + " " + u.LastName
	case u.FirstName != "":
		return u.FirstName
	case u.LastName != "":
		return u.LastName
	default:
		return u.Username
	}
}

// DisplayName returns the full name when any name part is present and
// the username otherwise.
func (u *User) DisplayName() string {
	if u.FirstName != "" || u.LastName != "" {
		return u.FullName()
	}
	return u.Username
}

// IsActiveAndVerified reports whether the user completed email
// verification and is in the ACTIVE state.
func (u *User) IsActiveAndVerified() bool {
	return u.Status.IsActive() && u.EmailVerified
}

// CanLogin reports whether the account state permits password login.
// Suspended and inactive accounts are rejected up front, before the
// password is even checked.
func (u *User) CanLogin() bool {
	return u.Status.IsActive() && !u.Status.IsSuspended()
}

// NeedsEmailVerification reports whether the user is still waiting on
// the verification link.
func (u *User) NeedsEmailVerification() bool {
	return !u.EmailVerified && u.Status == StatusPendingVerification
}

func (u *User) IsAdmin() bool { return u.Role.IsAdmin() }

// AppendLoginEntry records an audit event on the login history, keeping
// at most maxLoginHistory entries.
func (u *User) AppendLoginEntry(now time.Time, notes, ipAddress string) {
	u.LoginHistory = append(u.LoginHistory, LoginEntry{
		Timestamp: now,
		Notes:     notes,
		IPAddress: ipAddress,
	})
	if len(u.LoginHistory) > maxLoginHistory {
		u.LoginHistory = u.LoginHistory[len(u.LoginHistory)-maxLoginHistory:]
	}
}
