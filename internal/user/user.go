package user

import (
	"time"

	rbacDatamodel "github.com/frahmantamala/integration-hub/internal/core/datamodel/rbac"
)

type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	FirstName string    `json:"first_name,omitempty"`
	LastName  string    `json:"last_name,omitempty"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func ToDataModel(u *User, passwordHash *string) *rbacDatamodel.User {
	return &rbacDatamodel.User{
		ID:           u.ID,
		Email:        u.Email,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		PasswordHash: passwordHash,
		IsActive:     u.IsActive,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

func FromDataModel(dm *rbacDatamodel.User) *User {
	return &User{
		ID:        dm.ID,
		Email:     dm.Email,
		FirstName: dm.FirstName,
		LastName:  dm.LastName,
		IsActive:  dm.IsActive,
		CreatedAt: dm.CreatedAt,
		UpdatedAt: dm.UpdatedAt,
	}
}
