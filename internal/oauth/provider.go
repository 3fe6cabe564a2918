package oauth

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/frahmantamala/integration-hub/internal"
)

// Token is a provider refresh result. RefreshToken is empty when the
// provider did not rotate it; callers keep the previous one in that case.
type Token struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int
}

// Provider exchanges a stored refresh token for a fresh access token at one
// accounting provider's token endpoint.
type Provider interface {
	Refresh(ctx context.Context, refreshToken string) (*Token, error)
}

// Registry maps a connection's software identifier to its provider client.
type Registry struct {
	providers map[string]Provider
}

func NewRegistry(cfg internal.OAuthConfig) *Registry {
	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}
	if cfg.HTTPTimeout <= 0 {
		httpClient.Timeout = 10 * time.Second
	}

	return &Registry{
		providers: map[string]Provider{
			SoftwareXero:       NewXeroProvider(cfg.Xero, httpClient),
			SoftwareQuickBooks: NewQuickBooksProvider(cfg.QuickBooks, httpClient),
		},
	}
}

func (r *Registry) Register(software string, provider Provider) {
	r.providers[software] = provider
}

func (r *Registry) ProviderFor(software string) (Provider, error) {
	provider, ok := r.providers[software]
	if !ok {
		return nil, internal.NewConflictError(
			fmt.Sprintf("no oauth provider registered for software %q", software),
			internal.ErrCodeUnknownProvider,
		)
	}
	return provider, nil
}

const (
	SoftwareXero       = "xero"
	SoftwareQuickBooks = "quickbooks"
)
