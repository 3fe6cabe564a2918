package connection

import (
	"github.com/frahmantamala/integration-hub/internal/core/common/validation"

	errors "github.com/frahmantamala/integration-hub/internal"
)

type ExternalTenantLinkDTO struct {
	ExternalTenantID     string  `json:"external_tenant_id"`
	ExternalTenantName   string  `json:"external_tenant_name"`
	ProviderConnectionID *string `json:"provider_connection_id,omitempty"`
}

type CreateConnectionDTO struct {
	Category     string                  `json:"category"`
	Software     string                  `json:"software"`
	Name         string                  `json:"name"`
	AccessToken  string                  `json:"access_token"`
	RefreshToken *string                 `json:"refresh_token,omitempty"`
	ExpiresIn    int                     `json:"expires_in"`
	Metadata     map[string]interface{}  `json:"metadata,omitempty"`
	Tenants      []ExternalTenantLinkDTO `json:"tenants,omitempty"`
}

func (d CreateConnectionDTO) Validate() *errors.AppError {
	v := validation.NewValidator()
	v.Field("category", d.Category).Required().OneOf(KnownCategories(), errors.ErrCodeInvalidCategory)
	v.Field("software", d.Software).Required().OneOf(KnownSoftware(), errors.ErrCodeInvalidSoftware)
	v.Field("name", d.Name).Required().MaxLength(200)
	v.Field("access_token", d.AccessToken).Required()
	for _, t := range d.Tenants {
		v.Field("tenants.external_tenant_id", t.ExternalTenantID).Required()
	}
	return v.Validate()
}

// UpdateConnectionDTO carries mutable connection fields. Credentials are
// rotated by the vault, never through this path; nil Tenants leaves the
// organization links untouched.
type UpdateConnectionDTO struct {
	Name     *string                 `json:"name,omitempty"`
	Metadata map[string]interface{}  `json:"metadata,omitempty"`
	Tenants  []ExternalTenantLinkDTO `json:"tenants,omitempty"`
}

func (d UpdateConnectionDTO) Validate() *errors.AppError {
	v := validation.NewValidator()
	if d.Name != nil {
		v.Field("name", *d.Name).Required().MaxLength(200)
	}
	for _, t := range d.Tenants {
		v.Field("tenants.external_tenant_id", t.ExternalTenantID).Required()
	}
	return v.Validate()
}
