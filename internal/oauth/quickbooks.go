package oauth

import (
	"context"
	"net/http"

	"github.com/frahmantamala/integration-hub/internal"
)

// QuickBooksProvider refreshes tokens against the Intuit bearer endpoint.
type QuickBooksProvider struct {
	cfg        internal.OAuthProviderConfig
	httpClient *http.Client
}

func NewQuickBooksProvider(cfg internal.OAuthProviderConfig, httpClient *http.Client) *QuickBooksProvider {
	return &QuickBooksProvider{cfg: cfg, httpClient: httpClient}
}

func (p *QuickBooksProvider) Refresh(ctx context.Context, refreshToken string) (*Token, error) {
	return refreshGrant(ctx, p.httpClient, p.cfg, refreshToken)
}
