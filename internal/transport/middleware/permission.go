package middleware

import (
	"log/slog"
	"net/http"

	"github.com/frahmantamala/integration-hub/internal"
	"github.com/frahmantamala/integration-hub/internal/rbac"
)

// RequirePermission short-circuits requests whose caller lacks the
// (resource, action) permission in the acting tenant. Services still run
// their own gate checks; this exists to reject obviously unauthorized
// requests before any body parsing happens.
func RequirePermission(resolver *rbac.Resolver, resource, action string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := internal.PrincipalFromContext(r.Context())
			if !ok || principal == nil {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			tenantID := internal.TenantIDFromContext(r.Context())
			if tenantID == "" {
				http.Error(w, "Forbidden", http.StatusForbidden)
				return
			}

			allowed, err := resolver.HasPermission(r.Context(), principal.UserID, tenantID, resource, action)
			if err != nil {
				slog.Error("permission check failed",
					"error", err,
					"user_id", principal.UserID,
					"tenant_id", tenantID)
				http.Error(w, "Internal server error", http.StatusInternalServerError)
				return
			}

			if !allowed {
				slog.Warn("access denied",
					"user_id", principal.UserID,
					"tenant_id", tenantID,
					"resource", resource,
					"action", action)
				http.Error(w, "Forbidden", http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
