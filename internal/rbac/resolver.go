package rbac

import (
	"context"
	"log/slog"
)

// Repository defines the data access methods for roles, permissions and
// assignments.
type Repository interface {
	GetRoleIDsForUser(userID, tenantID string) ([]string, error)
	GetPermissionsForRoles(roleIDs []string) ([]Permission, error)

	CreateRole(role *Role, permissionIDs []string) error
	GetRoleByID(roleID string) (*Role, error)
	ListRoles(tenantID string) ([]*Role, error)
	DeleteRole(roleID string) error

	AssignRole(assignment *RoleAssignment) error
	UnassignRole(userID, tenantID, roleID string) error

	GetOrCreatePermission(resource, action, description string) (Permission, error)
	ListPermissions() ([]Permission, error)
}

// Resolver answers allow/deny for (user, tenant, resource, action) by taking
// the union of permissions across the user's role assignments within that
// tenant. It is read-only and safe for any number of concurrent callers.
type Resolver struct {
	repo   Repository
	logger *slog.Logger
}

func NewResolver(repo Repository, logger *slog.Logger) *Resolver {
	return &Resolver{
		repo:   repo,
		logger: logger,
	}
}

func (r *Resolver) HasPermission(ctx context.Context, userID, tenantID, resource, action string) (bool, error) {
	roleIDs, err := r.repo.GetRoleIDsForUser(userID, tenantID)
	if err != nil {
		return false, err
	}

	// No role assignment in this tenant means no access, full stop.
	if len(roleIDs) == 0 {
		return false, nil
	}

	permissions, err := r.repo.GetPermissionsForRoles(roleIDs)
	if err != nil {
		return false, err
	}

	for _, permission := range permissions {
		if permission.Matches(resource, action) {
			return true, nil
		}
	}

	return false, nil
}
