package repository

import (
	"context"
	"database/sql"
	"strings"
)

// RBACRepo reads the role/permission tables. These are read-mostly:
// rows come from seed data and occasional admin changes, so plain reads
// without locking are fine here — permission resolution happens on
// every token issuance and picks up changes on the next login or
// refresh.
type RBACRepo struct{ DB *sql.DB }

func NewRBACRepo(db *sql.DB) *RBACRepo { return &RBACRepo{DB: db} }

// AssignedRoles returns the role codes explicitly assigned to the user
// through user_roles. Rows land here via seed data and admin tooling,
// not the registration flow; the resolver unions the user's base role
// in itself, so a user with no rows still gets their base grants.
func (r *RBACRepo) AssignedRoles(ctx context.Context, userID string) ([]string, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT r.code FROM user_roles ur
		JOIN roles r ON r.id = ur.role_id
		WHERE ur.user_id = ?`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectStrings(rows)
}

// PermissionsForRoles returns the permission codes granted to any of
// the given role codes.
func (r *RBACRepo) PermissionsForRoles(ctx context.Context, roles []string) ([]string, error) {
	if len(roles) == 0 {
		return nil, nil
	}
	placeholders := strings.Repeat("?,", len(roles))
	placeholders = placeholders[:len(placeholders)-1]
	args := make([]any, len(roles))
	for i, code := range roles {
		args[i] = code
	}
	rows, err := r.DB.QueryContext(ctx,
		`SELECT DISTINCT p.code FROM role_permissions rp
		JOIN roles r ON r.id = rp.role_id
		JOIN permissions p ON p.id = rp.permission_id
		WHERE r.code IN (`+placeholders+`)`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectStrings(rows)
}

// Overrides returns the user's per-permission exceptions as a map from
// permission code to the allow flag.
func (r *RBACRepo) Overrides(ctx context.Context, userID string) (map[string]bool, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT p.code, o.allow FROM user_permission_overrides o
		JOIN permissions p ON p.id = o.permission_id
		WHERE o.user_id = ?`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]bool)
	for rows.Next() {
		var (
			code  string
			allow bool
		)
		if err := rows.Scan(&code, &allow); err != nil {
			return nil, err
		}
		out[code] = allow
	}
	return out, rows.Err()
}

func collectStrings(rows *sql.Rows) ([]string, error) {
	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
