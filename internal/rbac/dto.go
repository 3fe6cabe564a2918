package rbac

import (
	"github.com/frahmantamala/integration-hub/internal/core/common/validation"

	errors "github.com/frahmantamala/integration-hub/internal"
)

type CreateRoleDTO struct {
	Name          string   `json:"name"`
	Description   string   `json:"description"`
	PermissionIDs []string `json:"permission_ids"`
}

func (d CreateRoleDTO) Validate() *errors.AppError {
	v := validation.NewValidator()
	v.Field("name", d.Name).Required().MinLength(2).MaxLength(100)
	v.Field("description", d.Description).MaxLength(500)
	return v.Validate()
}

type AssignRoleDTO struct {
	UserID string `json:"user_id"`
	RoleID string `json:"role_id"`
}

func (d AssignRoleDTO) Validate() *errors.AppError {
	v := validation.NewValidator()
	v.Field("user_id", d.UserID).Required()
	v.Field("role_id", d.RoleID).Required()
	return v.Validate()
}

type CheckPermissionDTO struct {
	Resource string `json:"resource"`
	Action   string `json:"action"`
}

func (d CheckPermissionDTO) Validate() *errors.AppError {
	v := validation.NewValidator()
	v.Field("resource", d.Resource).Required()
	v.Field("action", d.Action).Required()
	return v.Validate()
}
