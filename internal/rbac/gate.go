package rbac

import (
	"context"
	"log/slog"

	"github.com/frahmantamala/integration-hub/internal"
)

// Gate is the single choke point for authorization: every mutating or read
// operation on tenant-scoped resources passes through Authorize before any
// side effect. The tenant id here is the tenant the caller is acting in;
// resource lookups downstream are scoped to the same tenant, so holding a
// permission in a different tenant never grants cross-tenant access.
type Gate struct {
	resolver *Resolver
	logger   *slog.Logger
}

func NewGate(resolver *Resolver, logger *slog.Logger) *Gate {
	return &Gate{
		resolver: resolver,
		logger:   logger,
	}
}

// Authorize runs fn only when the user holds (resource, action) within
// tenantID. On deny it returns ErrForbidden without invoking fn; on allow it
// is a side-effect-transparent pass-through of fn's error.
func (g *Gate) Authorize(ctx context.Context, userID, tenantID, resource, action string, fn func(ctx context.Context) error) error {
	if userID == "" || tenantID == "" {
		return internal.ErrForbidden
	}

	allowed, err := g.resolver.HasPermission(ctx, userID, tenantID, resource, action)
	if err != nil {
		g.logger.ErrorContext(ctx, "authorization check failed",
			"error", err,
			"user_id", userID,
			"tenant_id", tenantID,
			"resource", resource,
			"action", action)
		return internal.NewInternalError("authorization check failed", err)
	}

	if !allowed {
		g.logger.WarnContext(ctx, "access denied: insufficient permissions",
			"user_id", userID,
			"tenant_id", tenantID,
			"resource", resource,
			"action", action)
		return internal.ErrForbidden
	}

	return fn(ctx)
}
