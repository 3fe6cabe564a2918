package tenant

import (
	"time"

	rbacDatamodel "github.com/frahmantamala/integration-hub/internal/core/datamodel/rbac"
)

type Tenant struct {
	ID          string    `json:"id"`
	CompanyName string    `json:"company_name"`
	Industry    string    `json:"industry,omitempty"`
	Country     string    `json:"country,omitempty"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func ToDataModel(t *Tenant) *rbacDatamodel.Tenant {
	return &rbacDatamodel.Tenant{
		ID:          t.ID,
		CompanyName: t.CompanyName,
		Industry:    t.Industry,
		Country:     t.Country,
		IsActive:    t.IsActive,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

func FromDataModel(dm *rbacDatamodel.Tenant) *Tenant {
	return &Tenant{
		ID:          dm.ID,
		CompanyName: dm.CompanyName,
		Industry:    dm.Industry,
		Country:     dm.Country,
		IsActive:    dm.IsActive,
		CreatedAt:   dm.CreatedAt,
		UpdatedAt:   dm.UpdatedAt,
	}
}
