package staffauth

import (
	"context"
	"errors"
	"fmt"

	"github.com/skvrent/staffauth/permission"
)

// Console capabilities.
const (
	PermFacilitiesView    = "facilities.view"
	PermFacilitiesApprove = "facilities.approve"
	PermProvidersApprove  = "providers.approve"
	PermUsersView         = "users.view"
	PermStatisticsView    = "statistics.view"
	PermModeratorsCreate  = "moderators.create"
	PermFinanceView       = "finance.view"
)

// DefaultRoleGrants is the console's built-in role to capability mapping.
// Admins see finance and manage moderators; moderators share the
// approval workflow.
func DefaultRoleGrants() map[Role][]string {
	shared := []string{
		PermFacilitiesView,
		PermFacilitiesApprove,
		PermProvidersApprove,
		PermUsersView,
		PermStatisticsView,
	}
	admin := append(append([]string(nil), shared...), PermModeratorsCreate, PermFinanceView)
	return map[Role][]string{
		RoleAdmin:     admin,
		RoleModerator: append([]string(nil), shared...),
	}
}

func buildRoleManager(grants map[Role][]string) (*permission.Registry, *permission.RoleManager, error) {
	registry := permission.NewRegistry()
	seen := make(map[string]bool)
	for _, role := range []Role{RoleAdmin, RoleModerator} {
		for _, p := range grants[role] {
			if seen[p] {
				continue
			}
			seen[p] = true
			if _, err := registry.Register(p); err != nil {
				return nil, nil, err
			}
		}
	}
	registry.Freeze()

	roles := permission.NewRoleManager(registry)
	for role, perms := range grants {
		if !role.Valid() {
			return nil, nil, fmt.Errorf("role grants contain unknown role %d", role)
		}
		if err := roles.RegisterRole(role.String(), perms); err != nil {
			return nil, nil, err
		}
	}
	roles.Freeze()
	return registry, roles, nil
}

// Can reports whether the slot's signed-in role holds perm.
func (e *Engine) Can(ctx context.Context, perm string) (bool, error) {
	if e == nil || e.roleManager == nil {
		return false, ErrEngineNotReady
	}
	sess, err := e.Current(ctx)
	if err != nil {
		return false, err
	}
	return e.RoleCan(sess.Role, perm)
}

// RoleCan reports whether role holds perm without reading a session.
func (e *Engine) RoleCan(role Role, perm string) (bool, error) {
	if e == nil || e.roleManager == nil {
		return false, ErrEngineNotReady
	}
	ok, err := e.roleManager.Allowed(role.String(), perm)
	if errors.Is(err, permission.ErrUnknownPermission) {
		return false, fmt.Errorf("%w: %s", ErrUnknownPermission, perm)
	}
	return ok, err
}

// Require returns ErrPermissionDenied unless the slot's role holds perm.
func (e *Engine) Require(ctx context.Context, perm string) error {
	ok, err := e.Can(ctx, perm)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrPermissionDenied, perm)
	}
	return nil
}

// Permissions lists the capabilities of role.
func (e *Engine) Permissions(role Role) []string {
	if e == nil || e.roleManager == nil {
		return nil
	}
	mask, ok := e.roleManager.GetMask(role.String())
	if !ok {
		return nil
	}
	return e.registry.Names(mask)
}
