package postgres

import (
	"time"

	"gorm.io/gorm"

	"github.com/frahmantamala/integration-hub/internal"
	rbacDatamodel "github.com/frahmantamala/integration-hub/internal/core/datamodel/rbac"
	"github.com/frahmantamala/integration-hub/internal/user"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) user.Repository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(u *user.User, passwordHash string) error {
	return r.db.Create(user.ToDataModel(u, &passwordHash)).Error
}

func (r *UserRepository) GetByID(id string) (*user.User, error) {
	var dm rbacDatamodel.User
	err := r.db.Where("id = ?", id).First(&dm).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, internal.ErrUserNotFound
		}
		return nil, err
	}
	return user.FromDataModel(&dm), nil
}

func (r *UserRepository) GetByEmail(email string) (*user.User, error) {
	var dm rbacDatamodel.User
	err := r.db.Where("email = ?", email).First(&dm).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, internal.ErrUserNotFound
		}
		return nil, err
	}
	return user.FromDataModel(&dm), nil
}

// ListForTenant returns users holding at least one role assignment in the
// tenant.
func (r *UserRepository) ListForTenant(tenantID string) ([]*user.User, error) {
	var dms []*rbacDatamodel.User
	err := r.db.
		Joins("JOIN role_assignments ON role_assignments.user_id = users.id").
		Where("role_assignments.tenant_id = ?", tenantID).
		Distinct("users.*").
		Find(&dms).Error
	if err != nil {
		return nil, err
	}

	users := make([]*user.User, 0, len(dms))
	for _, dm := range dms {
		users = append(users, user.FromDataModel(dm))
	}
	return users, nil
}

func (r *UserRepository) Deactivate(id string) error {
	result := r.db.Model(&rbacDatamodel.User{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"is_active":  false,
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return internal.ErrUserNotFound
	}
	return nil
}
