package middleware

import (
	"net/http"

	"github.com/frahmantamala/integration-hub/internal"
	"github.com/frahmantamala/integration-hub/pkg/logger"
)

// PrincipalContext annotates the request logger with the authenticated user
// and acting tenant. Runs after the auth middleware has populated the
// context.
func PrincipalContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if principal, ok := internal.PrincipalFromContext(ctx); ok && principal != nil {
			ctx = logger.With(ctx, "userID", principal.UserID)
		}
		if tenantID := internal.TenantIDFromContext(ctx); tenantID != "" {
			ctx = logger.With(ctx, "tenantID", tenantID)
		}

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
