package postgres

import (
	"database/sql"
	"fmt"

	"gorm.io/gorm"

	"github.com/frahmantamala/integration-hub/internal/auth"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		db: db,
	}
}

func (r *Repository) GetPasswordForEmail(email string) (string, string, error) {
	var passwordHash string
	var userID string
	query := `SELECT id, password_hash FROM users WHERE email = ? AND is_active = true`

	row := r.db.Raw(query, email).Row()
	if err := row.Scan(&userID, &passwordHash); err != nil {
		if err == sql.ErrNoRows {
			return "", "", fmt.Errorf("user not found")
		}
		return "", "", err
	}
	return passwordHash, userID, nil
}

func (r *Repository) GetUserByID(userID string) (*auth.User, error) {
	var user auth.User
	query := `SELECT id, email FROM users WHERE id = ? AND is_active = true`

	row := r.db.Raw(query, userID).Row()
	if err := row.Scan(&user.ID, &user.Email); err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("user not found")
		}
		return nil, err
	}

	if tenantID, err := r.GetDefaultTenantID(userID); err == nil {
		user.DefaultTenantID = tenantID
	}

	return &user, nil
}

// GetDefaultTenantID returns the tenant of the user's oldest role assignment.
func (r *Repository) GetDefaultTenantID(userID string) (string, error) {
	var tenantID string
	query := `SELECT tenant_id FROM role_assignments WHERE user_id = ? ORDER BY created_at ASC LIMIT 1`

	row := r.db.Raw(query, userID).Row()
	if err := row.Scan(&tenantID); err != nil {
		if err == sql.ErrNoRows {
			return "", fmt.Errorf("user has no tenant")
		}
		return "", err
	}
	return tenantID, nil
}
