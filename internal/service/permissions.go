package service

import (
	"context"
	"fmt"

	"github.com/iliyamo/auth-service/internal/model"
	"github.com/iliyamo/auth-service/internal/utils"
)

// PermissionsService computes a user's effective roles and permissions
// from the layered RBAC data. The computation runs on every login and
// refresh — claims are never cached — so role or override changes take
// effect on the next token issuance.
type PermissionsService struct {
	store RBACStore
}

func NewPermissionsService(store RBACStore) *PermissionsService {
	return &PermissionsService{store: store}
}

// Compute resolves the effective sets:
//
//  1. roles = {base role} ∪ assigned roles
//  2. permissions = union of grants over those roles
//  3. allow overrides add permissions no role grants
//  4. deny overrides remove permissions even when a role grants them
//
// Both results come back sorted and deduplicated so token claims are
// stable across issuances with identical inputs.
func (s *PermissionsService) Compute(ctx context.Context, u *model.User) (roles, permissions []string, err error) {
	assigned, err := s.store.AssignedRoles(ctx, u.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: load roles: %v", ErrInternal, err)
	}
	roles = utils.SortedUnique(append(assigned, string(u.Role)))

	granted, err := s.store.PermissionsForRoles(ctx, roles)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: load permissions: %v", ErrInternal, err)
	}

	overrides, err := s.store.Overrides(ctx, u.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: load overrides: %v", ErrInternal, err)
	}

	effective := make(map[string]struct{}, len(granted))
	for _, code := range granted {
		effective[code] = struct{}{}
	}
	for code, allow := range overrides {
		if allow {
			effective[code] = struct{}{}
		} else {
			delete(effective, code)
		}
	}

	permissions = make([]string, 0, len(effective))
	for code := range effective {
		permissions = append(permissions, code)
	}
	return roles, utils.SortedUnique(permissions), nil
}
