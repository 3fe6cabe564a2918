package postgres

import (
	"gorm.io/gorm"

	"github.com/frahmantamala/integration-hub/internal"
	connectionDatamodel "github.com/frahmantamala/integration-hub/internal/core/datamodel/connection"
	jobDatamodel "github.com/frahmantamala/integration-hub/internal/core/datamodel/job"
	rbacDatamodel "github.com/frahmantamala/integration-hub/internal/core/datamodel/rbac"
	"github.com/frahmantamala/integration-hub/internal/tenant"
)

type TenantRepository struct {
	db *gorm.DB
}

func NewTenantRepository(db *gorm.DB) tenant.Repository {
	return &TenantRepository{db: db}
}

func (r *TenantRepository) Create(t *tenant.Tenant) error {
	return r.db.Create(tenant.ToDataModel(t)).Error
}

func (r *TenantRepository) GetByID(id string) (*tenant.Tenant, error) {
	var dm rbacDatamodel.Tenant
	err := r.db.Where("id = ?", id).First(&dm).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, internal.ErrTenantNotFound
		}
		return nil, err
	}
	return tenant.FromDataModel(&dm), nil
}

func (r *TenantRepository) Update(t *tenant.Tenant) error {
	return r.db.Save(tenant.ToDataModel(t)).Error
}

// Delete removes the tenant and everything scoped to it: connections with
// their organization links, jobs, roles and role assignments. Globally
// shared connections (NULL tenant_id) are untouched.
func (r *TenantRepository) Delete(id string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var connectionIDs []string
		if err := tx.Model(&connectionDatamodel.Connection{}).
			Where("tenant_id = ?", id).
			Pluck("id", &connectionIDs).Error; err != nil {
			return err
		}

		if len(connectionIDs) > 0 {
			if err := tx.Where("connection_id IN ?", connectionIDs).
				Delete(&connectionDatamodel.ExternalTenantLink{}).Error; err != nil {
				return err
			}
			if err := tx.Where("id IN ?", connectionIDs).
				Delete(&connectionDatamodel.Connection{}).Error; err != nil {
				return err
			}
		}

		if err := tx.Where("tenant_id = ?", id).
			Delete(&jobDatamodel.AnalysisJob{}).Error; err != nil {
			return err
		}

		if err := tx.Where("tenant_id = ?", id).
			Delete(&rbacDatamodel.RoleAssignment{}).Error; err != nil {
			return err
		}

		var roleIDs []string
		if err := tx.Model(&rbacDatamodel.Role{}).
			Where("tenant_id = ?", id).
			Pluck("id", &roleIDs).Error; err != nil {
			return err
		}
		if len(roleIDs) > 0 {
			if err := tx.Where("role_id IN ?", roleIDs).
				Delete(&rbacDatamodel.RolePermission{}).Error; err != nil {
				return err
			}
			if err := tx.Where("id IN ?", roleIDs).
				Delete(&rbacDatamodel.Role{}).Error; err != nil {
				return err
			}
		}

		result := tx.Where("id = ?", id).Delete(&rbacDatamodel.Tenant{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return internal.ErrTenantNotFound
		}
		return nil
	})
}
