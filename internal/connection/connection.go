package connection

import (
	"encoding/json"
	"time"

	connectionDatamodel "github.com/frahmantamala/integration-hub/internal/core/datamodel/connection"
	"gorm.io/datatypes"
)

// Connection is one stored OAuth credential pair for an external software
// integration. A nil TenantID marks a globally shared connection.
type Connection struct {
	ID             string                 `json:"id"`
	TenantID       *string                `json:"tenant_id,omitempty"`
	Category       string                 `json:"category"`
	Software       string                 `json:"software"`
	Name           string                 `json:"name"`
	AccessToken    string                 `json:"-"`
	RefreshToken   *string                `json:"-"`
	ExpiresIn      int                    `json:"expires_in"`
	TokenCreatedAt *time.Time             `json:"token_created_at,omitempty"`
	Metadata       map[string]interface{} `json:"metadata,omitempty"`
	Links          []ExternalTenantLink   `json:"tenants"`
	CreatedAt      time.Time              `json:"created_at"`
	UpdatedAt      time.Time              `json:"updated_at"`
}

// ExternalTenantLink maps the connection to one remote organization at the
// provider (a Xero organisation, a QuickBooks realm).
type ExternalTenantLink struct {
	ID                   string    `json:"id"`
	ConnectionID         string    `json:"-"`
	ExternalTenantID     string    `json:"external_tenant_id"`
	ExternalTenantName   string    `json:"external_tenant_name"`
	ProviderConnectionID *string   `json:"provider_connection_id,omitempty"`
	CreatedAt            time.Time `json:"created_at"`
}

// CanSelfRenew reports whether the connection holds a refresh token. Without
// one it is expiring-without-recovery and must be re-authenticated by hand.
func (c *Connection) CanSelfRenew() bool {
	return c.RefreshToken != nil && *c.RefreshToken != ""
}

func (c *Connection) IsGlobal() bool {
	return c.TenantID == nil || *c.TenantID == ""
}

// TokenUpdate carries the credential fields persisted after a successful
// refresh. A nil RefreshToken means the provider did not rotate it and the
// stored one is kept.
type TokenUpdate struct {
	AccessToken    string
	RefreshToken   *string
	ExpiresIn      int
	TokenCreatedAt time.Time
}

// Software catalog mirrored from the onboarding flow; categories group the
// integrations shown to tenants.
var SoftwareCategories = map[string][]string{
	"finance": {"xero", "quickbooks"},
	"hrms":    {"bamboohr", "workday"},
	"crm":     {"salesforce", "hubspot"},
}

func KnownCategories() []string {
	categories := make([]string, 0, len(SoftwareCategories))
	for category := range SoftwareCategories {
		categories = append(categories, category)
	}
	return categories
}

func KnownSoftware() []string {
	var software []string
	for _, s := range SoftwareCategories {
		software = append(software, s...)
	}
	return software
}

func ToDataModel(c *Connection) *connectionDatamodel.Connection {
	var metadata []byte
	if c.Metadata != nil {
		metadata, _ = json.Marshal(c.Metadata)
	}

	dm := &connectionDatamodel.Connection{
		ID:             c.ID,
		TenantID:       c.TenantID,
		Category:       c.Category,
		Software:       c.Software,
		Name:           c.Name,
		AccessToken:    c.AccessToken,
		RefreshToken:   c.RefreshToken,
		ExpiresIn:      c.ExpiresIn,
		TokenCreatedAt: c.TokenCreatedAt,
		Metadata:       datatypes.JSON(metadata),
		CreatedAt:      c.CreatedAt,
		UpdatedAt:      c.UpdatedAt,
	}

	for _, link := range c.Links {
		dm.Links = append(dm.Links, connectionDatamodel.ExternalTenantLink{
			ID:                   link.ID,
			ConnectionID:         link.ConnectionID,
			ExternalTenantID:     link.ExternalTenantID,
			ExternalTenantName:   link.ExternalTenantName,
			ProviderConnectionID: link.ProviderConnectionID,
			CreatedAt:            link.CreatedAt,
		})
	}

	return dm
}

func FromDataModel(dm *connectionDatamodel.Connection) *Connection {
	c := &Connection{
		ID:             dm.ID,
		TenantID:       dm.TenantID,
		Category:       dm.Category,
		Software:       dm.Software,
		Name:           dm.Name,
		AccessToken:    dm.AccessToken,
		RefreshToken:   dm.RefreshToken,
		ExpiresIn:      dm.ExpiresIn,
		TokenCreatedAt: dm.TokenCreatedAt,
		CreatedAt:      dm.CreatedAt,
		UpdatedAt:      dm.UpdatedAt,
		Links:          []ExternalTenantLink{},
	}

	if len(dm.Metadata) > 0 {
		_ = json.Unmarshal([]byte(dm.Metadata), &c.Metadata)
	}

	for _, link := range dm.Links {
		c.Links = append(c.Links, ExternalTenantLink{
			ID:                   link.ID,
			ConnectionID:         link.ConnectionID,
			ExternalTenantID:     link.ExternalTenantID,
			ExternalTenantName:   link.ExternalTenantName,
			ProviderConnectionID: link.ProviderConnectionID,
			CreatedAt:            link.CreatedAt,
		})
	}

	return c
}
