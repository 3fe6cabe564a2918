package tokenvault

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/frahmantamala/integration-hub/internal"
	"github.com/frahmantamala/integration-hub/internal/connection"
	"github.com/frahmantamala/integration-hub/internal/oauth"
)

const defaultRefreshSkew = 60 * time.Second

// ConnectionStore is the slice of the connection repository the vault needs:
// reading credential state and persisting a refreshed token atomically.
type ConnectionStore interface {
	GetByID(id string) (*connection.Connection, error)
	UpdateTokens(id string, update connection.TokenUpdate) error
}

// ProviderResolver returns the OAuth client for a connection's software.
type ProviderResolver interface {
	ProviderFor(software string) (oauth.Provider, error)
}

// Vault owns OAuth credential state for connections. Refreshes are
// serialized per connection id through a singleflight group: concurrent
// callers hitting the same stale connection share one provider call, while
// refreshes for different connections proceed fully in parallel.
type Vault struct {
	store     ConnectionStore
	providers ProviderResolver
	skew      time.Duration
	group     singleflight.Group
	logger    *slog.Logger
	now       func() time.Time
}

func New(cfg internal.OAuthConfig, store ConnectionStore, providers ProviderResolver, logger *slog.Logger) *Vault {
	skew := cfg.RefreshSkew
	if skew <= 0 {
		skew = defaultRefreshSkew
	}

	return &Vault{
		store:     store,
		providers: providers,
		skew:      skew,
		logger:    logger,
		now:       time.Now,
	}
}

// AcquireValidToken returns an access token guaranteed to be inside its
// expiry window (minus the skew). A fresh token is returned with no side
// effect; a stale one triggers at most one refresh per connection, persisted
// before any caller sees it.
func (v *Vault) AcquireValidToken(ctx context.Context, connectionID string) (string, error) {
	conn, err := v.store.GetByID(connectionID)
	if err != nil {
		return "", err
	}

	if !v.isStale(conn) {
		return conn.AccessToken, nil
	}

	token, err, shared := v.group.Do(connectionID, func() (interface{}, error) {
		return v.refresh(ctx, connectionID)
	})
	if err != nil {
		return "", err
	}
	if shared {
		v.logger.Debug("token refresh shared with in-flight caller", "connection_id", connectionID)
	}

	return token.(string), nil
}

// refresh runs inside the singleflight. It re-reads the connection first: a
// caller that blocked on an in-flight refresh re-evaluates staleness here
// instead of refreshing again.
func (v *Vault) refresh(ctx context.Context, connectionID string) (string, error) {
	conn, err := v.store.GetByID(connectionID)
	if err != nil {
		return "", err
	}

	if !v.isStale(conn) {
		return conn.AccessToken, nil
	}

	if !conn.CanSelfRenew() {
		v.logger.Warn("token expired with no refresh token stored",
			"connection_id", conn.ID,
			"software", conn.Software)
		return "", internal.ErrTokenExpiredNoRefresh
	}

	provider, err := v.providers.ProviderFor(conn.Software)
	if err != nil {
		return "", err
	}

	refreshed, err := provider.Refresh(ctx, *conn.RefreshToken)
	if err != nil {
		// Stored credentials stay untouched; the caller may retry
		// acquisition later. The vault itself never auto-retries to
		// avoid hammering the provider.
		v.logger.Error("token refresh failed",
			"error", err,
			"connection_id", conn.ID,
			"software", conn.Software)
		return "", internal.ErrTokenRefreshFailed.WithCause(err)
	}

	update := connection.TokenUpdate{
		AccessToken:    refreshed.AccessToken,
		ExpiresIn:      refreshed.ExpiresIn,
		TokenCreatedAt: v.now(),
	}
	if update.ExpiresIn <= 0 {
		update.ExpiresIn = conn.ExpiresIn
	}
	// Providers that rotate refresh tokens return a new one; otherwise the
	// stored token stays valid.
	if refreshed.RefreshToken != "" {
		update.RefreshToken = &refreshed.RefreshToken
	}

	if err := v.store.UpdateTokens(conn.ID, update); err != nil {
		v.logger.Error("failed to persist refreshed token", "error", err, "connection_id", conn.ID)
		return "", internal.NewInternalError("failed to persist refreshed token", err)
	}

	v.logger.Info("token refreshed",
		"connection_id", conn.ID,
		"software", conn.Software,
		"expires_in", update.ExpiresIn)

	return refreshed.AccessToken, nil
}

// isStale treats a token as expired once now >= issued + expiresIn - skew,
// or when no issuance timestamp was ever recorded.
func (v *Vault) isStale(conn *connection.Connection) bool {
	if conn.TokenCreatedAt == nil {
		return true
	}
	expiry := conn.TokenCreatedAt.Add(time.Duration(conn.ExpiresIn)*time.Second - v.skew)
	return !v.now().Before(expiry)
}
