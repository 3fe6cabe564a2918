package rbac

import (
	"time"

	rbacDatamodel "github.com/frahmantamala/integration-hub/internal/core/datamodel/rbac"
)

// Resources and actions known to the authorization gate. Permissions are
// exact (resource, action) pairs; there is no wildcard matching here.
const (
	ResourceConnection = "connection"
	ResourceJob        = "job"
	ResourceRole       = "role"
	ResourceTenant     = "tenant"

	ActionCreate  = "create"
	ActionRead    = "read"
	ActionUpdate  = "update"
	ActionDelete  = "delete"
	ActionRefresh = "refresh"
	ActionCancel  = "cancel"
	ActionManage  = "manage"
)

type Role struct {
	ID           string       `json:"id"`
	TenantID     string       `json:"tenant_id"`
	Name         string       `json:"name"`
	Description  string       `json:"description,omitempty"`
	IsSystemRole bool         `json:"is_system_role"`
	Permissions  []Permission `json:"permissions,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
}

type Permission struct {
	ID          string `json:"id"`
	Resource    string `json:"resource"`
	Action      string `json:"action"`
	Description string `json:"description,omitempty"`
}

// Matches reports an exact (resource, action) match.
func (p Permission) Matches(resource, action string) bool {
	return p.Resource == resource && p.Action == action
}

type RoleAssignment struct {
	UserID    string    `json:"user_id"`
	TenantID  string    `json:"tenant_id"`
	RoleID    string    `json:"role_id"`
	CreatedAt time.Time `json:"created_at"`
}

func RoleFromDataModel(dm *rbacDatamodel.Role) *Role {
	return &Role{
		ID:           dm.ID,
		TenantID:     dm.TenantID,
		Name:         dm.Name,
		Description:  dm.Description,
		IsSystemRole: dm.IsSystemRole,
		CreatedAt:    dm.CreatedAt,
	}
}

func PermissionFromDataModel(dm *rbacDatamodel.Permission) Permission {
	return Permission{
		ID:          dm.ID,
		Resource:    dm.Resource,
		Action:      dm.Action,
		Description: dm.Description,
	}
}
