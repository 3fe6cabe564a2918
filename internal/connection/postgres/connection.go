package postgres

import (
	"time"

	"gorm.io/gorm"

	"github.com/frahmantamala/integration-hub/internal"
	"github.com/frahmantamala/integration-hub/internal/connection"
	connectionDatamodel "github.com/frahmantamala/integration-hub/internal/core/datamodel/connection"
)

// ConnectionRepository implements the connection.Repository interface using
// GORM. Token writes go through UpdateTokens only, a single-row update that
// never touches non-credential columns.
type ConnectionRepository struct {
	db *gorm.DB
}

func NewConnectionRepository(db *gorm.DB) connection.Repository {
	return &ConnectionRepository{db: db}
}

func (r *ConnectionRepository) Create(conn *connection.Connection) error {
	return r.db.Create(connection.ToDataModel(conn)).Error
}

func (r *ConnectionRepository) GetByID(id string) (*connection.Connection, error) {
	var dm connectionDatamodel.Connection
	err := r.db.Preload("Links").Where("id = ?", id).First(&dm).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, internal.ErrConnectionNotFound
		}
		return nil, err
	}
	return connection.FromDataModel(&dm), nil
}

// GetForTenant retrieves a connection visible to the tenant: its own rows
// plus globally shared ones (NULL tenant_id). Anything else reads as not
// found.
func (r *ConnectionRepository) GetForTenant(id, tenantID string) (*connection.Connection, error) {
	var dm connectionDatamodel.Connection
	err := r.db.Preload("Links").
		Where("id = ? AND (tenant_id = ? OR tenant_id IS NULL)", id, tenantID).
		First(&dm).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, internal.ErrConnectionNotFound
		}
		return nil, err
	}
	return connection.FromDataModel(&dm), nil
}

func (r *ConnectionRepository) ListForTenant(tenantID string) ([]*connection.Connection, error) {
	var dms []*connectionDatamodel.Connection
	err := r.db.Preload("Links").
		Where("tenant_id = ? OR tenant_id IS NULL", tenantID).
		Order("created_at DESC").
		Find(&dms).Error
	if err != nil {
		return nil, err
	}

	conns := make([]*connection.Connection, 0, len(dms))
	for _, dm := range dms {
		conns = append(conns, connection.FromDataModel(dm))
	}
	return conns, nil
}

func (r *ConnectionRepository) Update(conn *connection.Connection) error {
	dm := connection.ToDataModel(conn)
	return r.db.Model(&connectionDatamodel.Connection{}).
		Where("id = ?", dm.ID).
		Updates(map[string]interface{}{
			"name":       dm.Name,
			"metadata":   dm.Metadata,
			"updated_at": time.Now(),
		}).Error
}

// UpdateTokens persists refreshed credentials in one atomic row update, so
// concurrent readers see either the old credential set or the new one, never
// a mix.
func (r *ConnectionRepository) UpdateTokens(id string, update connection.TokenUpdate) error {
	updates := map[string]interface{}{
		"access_token":     update.AccessToken,
		"token_created_at": update.TokenCreatedAt,
		"updated_at":       time.Now(),
	}
	if update.RefreshToken != nil {
		updates["refresh_token"] = *update.RefreshToken
	}
	if update.ExpiresIn > 0 {
		updates["expires_in"] = update.ExpiresIn
	}

	result := r.db.Model(&connectionDatamodel.Connection{}).
		Where("id = ?", id).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return internal.ErrConnectionNotFound
	}
	return nil
}

func (r *ConnectionRepository) Delete(id string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("connection_id = ?", id).Delete(&connectionDatamodel.ExternalTenantLink{}).Error; err != nil {
			return err
		}

		result := tx.Where("id = ?", id).Delete(&connectionDatamodel.Connection{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return internal.ErrConnectionNotFound
		}
		return nil
	})
}

func (r *ConnectionRepository) AddLink(link *connection.ExternalTenantLink) error {
	dm := connectionDatamodel.ExternalTenantLink{
		ID:                   link.ID,
		ConnectionID:         link.ConnectionID,
		ExternalTenantID:     link.ExternalTenantID,
		ExternalTenantName:   link.ExternalTenantName,
		ProviderConnectionID: link.ProviderConnectionID,
		CreatedAt:            link.CreatedAt,
	}
	return r.db.Create(&dm).Error
}

// ReplaceLinks swaps the connection's organization links for a new set in one
// transaction.
func (r *ConnectionRepository) ReplaceLinks(connectionID string, links []connection.ExternalTenantLink) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("connection_id = ?", connectionID).Delete(&connectionDatamodel.ExternalTenantLink{}).Error; err != nil {
			return err
		}

		for _, link := range links {
			dm := connectionDatamodel.ExternalTenantLink{
				ID:                   link.ID,
				ConnectionID:         connectionID,
				ExternalTenantID:     link.ExternalTenantID,
				ExternalTenantName:   link.ExternalTenantName,
				ProviderConnectionID: link.ProviderConnectionID,
				CreatedAt:            link.CreatedAt,
			}
			if err := tx.Create(&dm).Error; err != nil {
				return err
			}
		}
		return nil
	})
}
