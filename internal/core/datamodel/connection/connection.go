package connection

import (
	"time"

	"gorm.io/datatypes"
)

// Connection is the persistence model for one external-software credential
// pair. TenantID is nullable: a NULL tenant marks a globally shared
// connection.
type Connection struct {
	ID             string         `gorm:"primaryKey"`
	TenantID       *string        `gorm:"column:tenant_id;index"`
	Category       string         `gorm:"column:category;not null"`
	Software       string         `gorm:"column:software;not null;index"`
	Name           string         `gorm:"column:name;not null"`
	AccessToken    string         `gorm:"column:access_token;not null"`
	RefreshToken   *string        `gorm:"column:refresh_token"`
	ExpiresIn      int            `gorm:"column:expires_in;default:1800"`
	TokenCreatedAt *time.Time     `gorm:"column:token_created_at"`
	Metadata       datatypes.JSON `gorm:"column:metadata"`
	CreatedAt      time.Time      `gorm:"column:created_at"`
	UpdatedAt      time.Time      `gorm:"column:updated_at"`

	Links []ExternalTenantLink `gorm:"foreignKey:ConnectionID;constraint:OnDelete:CASCADE"`
}

func (Connection) TableName() string {
	return "connections"
}

// ExternalTenantLink maps a connection to one remote organization (a Xero
// organisation, a QuickBooks realm, ...).
type ExternalTenantLink struct {
	ID                   string    `gorm:"primaryKey"`
	ConnectionID         string    `gorm:"column:connection_id;not null;index"`
	ExternalTenantID     string    `gorm:"column:external_tenant_id;not null"`
	ExternalTenantName   string    `gorm:"column:external_tenant_name;not null"`
	ProviderConnectionID *string   `gorm:"column:provider_connection_id"`
	CreatedAt            time.Time `gorm:"column:created_at"`
}

func (ExternalTenantLink) TableName() string {
	return "external_tenant_links"
}
