package model

// Role is a named permission bundle from the `roles` table.  Roles are
// created by seed data and rarely change at runtime.  Priority ranks
// authority (higher = more) and is kept for future conflict tie-breaks;
// permission resolution does not consult it because deny overrides
// always win outright.
type Role struct {
	ID          uint64
	Code        string // unique, e.g. "ADMIN"
	Description string
	Priority    int
}

// Permission is an atomic capability from the `permissions` table.
// Codes use a dotted namespace such as "user.read".
type Permission struct {
	ID          uint64
	Code        string // unique
	Description string
}

// RolePermission joins roles to the permissions they grant.
type RolePermission struct {
	RoleID       uint64
	PermissionID uint64
}

// UserRoleAssignment layers a role onto a user.  Assignments are written
// by admin tooling, not by registration; the permission resolver always
// unions the user's base role in, so absence of rows here never strips
// base grants.  Uniqueness is on (user_id, role_id).
type UserRoleAssignment struct {
	UserID string
	RoleID uint64
}

// UserPermissionOverride is a per-user allow/deny exception resolved
// after role-derived grants: an allow adds a permission no role grants,
// a deny removes one even when a role grants it.
type UserPermissionOverride struct {
	UserID       string
	PermissionID uint64
	Allow        bool
}
