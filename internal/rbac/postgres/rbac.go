package postgres

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/frahmantamala/integration-hub/internal"
	rbacDatamodel "github.com/frahmantamala/integration-hub/internal/core/datamodel/rbac"
	"github.com/frahmantamala/integration-hub/internal/rbac"
)

// Repository implements rbac.Repository using GORM.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) GetRoleIDsForUser(userID, tenantID string) ([]string, error) {
	var roleIDs []string
	err := r.db.Model(&rbacDatamodel.RoleAssignment{}).
		Where("user_id = ? AND tenant_id = ?", userID, tenantID).
		Pluck("role_id", &roleIDs).Error
	if err != nil {
		return nil, err
	}
	return roleIDs, nil
}

func (r *Repository) GetPermissionsForRoles(roleIDs []string) ([]rbac.Permission, error) {
	if len(roleIDs) == 0 {
		return []rbac.Permission{}, nil
	}

	var models []rbacDatamodel.Permission
	err := r.db.
		Distinct("permissions.*").
		Joins("JOIN role_permissions rp ON rp.permission_id = permissions.id").
		Where("rp.role_id IN ?", roleIDs).
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	permissions := make([]rbac.Permission, 0, len(models))
	for i := range models {
		permissions = append(permissions, rbac.PermissionFromDataModel(&models[i]))
	}
	return permissions, nil
}

func (r *Repository) CreateRole(role *rbac.Role, permissionIDs []string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		model := rbacDatamodel.Role{
			ID:           role.ID,
			TenantID:     role.TenantID,
			Name:         role.Name,
			Description:  role.Description,
			IsSystemRole: role.IsSystemRole,
			CreatedAt:    role.CreatedAt,
			UpdatedAt:    role.CreatedAt,
		}
		if err := tx.Create(&model).Error; err != nil {
			return err
		}

		for _, permissionID := range permissionIDs {
			link := rbacDatamodel.RolePermission{
				RoleID:       role.ID,
				PermissionID: permissionID,
				CreatedAt:    role.CreatedAt,
			}
			if err := tx.Create(&link).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *Repository) GetRoleByID(roleID string) (*rbac.Role, error) {
	var model rbacDatamodel.Role
	err := r.db.Where("id = ?", roleID).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, internal.ErrRoleNotFound
		}
		return nil, err
	}

	role := rbac.RoleFromDataModel(&model)

	permissions, err := r.GetPermissionsForRoles([]string{roleID})
	if err != nil {
		return nil, err
	}
	role.Permissions = permissions

	return role, nil
}

func (r *Repository) ListRoles(tenantID string) ([]*rbac.Role, error) {
	var models []rbacDatamodel.Role
	err := r.db.Where("tenant_id = ?", tenantID).
		Order("created_at ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	roles := make([]*rbac.Role, 0, len(models))
	for i := range models {
		roles = append(roles, rbac.RoleFromDataModel(&models[i]))
	}
	return roles, nil
}

func (r *Repository) DeleteRole(roleID string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("role_id = ?", roleID).Delete(&rbacDatamodel.RolePermission{}).Error; err != nil {
			return err
		}
		if err := tx.Where("role_id = ?", roleID).Delete(&rbacDatamodel.RoleAssignment{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", roleID).Delete(&rbacDatamodel.Role{}).Error
	})
}

func (r *Repository) AssignRole(assignment *rbac.RoleAssignment) error {
	model := rbacDatamodel.RoleAssignment{
		UserID:    assignment.UserID,
		TenantID:  assignment.TenantID,
		RoleID:    assignment.RoleID,
		CreatedAt: assignment.CreatedAt,
	}
	// Assigning an already-held role is a no-op, not an error.
	err := r.db.Create(&model).Error
	if err != nil && errors.Is(err, gorm.ErrDuplicatedKey) {
		return nil
	}
	return err
}

func (r *Repository) UnassignRole(userID, tenantID, roleID string) error {
	return r.db.
		Where("user_id = ? AND tenant_id = ? AND role_id = ?", userID, tenantID, roleID).
		Delete(&rbacDatamodel.RoleAssignment{}).Error
}

func (r *Repository) GetOrCreatePermission(resource, action, description string) (rbac.Permission, error) {
	var model rbacDatamodel.Permission
	err := r.db.Where("resource = ? AND action = ?", resource, action).First(&model).Error
	if err == nil {
		return rbac.PermissionFromDataModel(&model), nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return rbac.Permission{}, err
	}

	model = rbacDatamodel.Permission{
		ID:          uuid.NewString(),
		Resource:    resource,
		Action:      action,
		Description: description,
	}
	if err := r.db.Create(&model).Error; err != nil {
		return rbac.Permission{}, err
	}
	return rbac.PermissionFromDataModel(&model), nil
}

func (r *Repository) ListPermissions() ([]rbac.Permission, error) {
	var models []rbacDatamodel.Permission
	err := r.db.Order("resource ASC, action ASC").Find(&models).Error
	if err != nil {
		return nil, err
	}

	permissions := make([]rbac.Permission, 0, len(models))
	for i := range models {
		permissions = append(permissions, rbac.PermissionFromDataModel(&models[i]))
	}
	return permissions, nil
}
