package rest

import (
	"database/sql"
	"log/slog"

	"github.com/go-chi/chi"
	chiMiddleware "github.com/go-chi/chi/middleware"

	"github.com/frahmantamala/integration-hub/internal/auth"
	"github.com/frahmantamala/integration-hub/internal/connection"
	"github.com/frahmantamala/integration-hub/internal/job"
	"github.com/frahmantamala/integration-hub/internal/rbac"
	"github.com/frahmantamala/integration-hub/internal/tenant"
	"github.com/frahmantamala/integration-hub/internal/transport/middleware"
	"github.com/frahmantamala/integration-hub/internal/user"
)

// RegisterAllRoutes wires the REST surface under /api/v1. Authorization
// happens inside the services through the gate; the route-level permission
// middleware on role management only rejects the obvious case early.
func RegisterAllRoutes(router *chi.Mux, db *sql.DB, authHandler *auth.Handler, connectionHandler *connection.Handler, jobHandler *job.Handler, rbacHandler *rbac.Handler, userHandler *user.Handler, tenantHandler *tenant.Handler, resolver *rbac.Resolver, logger *slog.Logger) {
	healthHandler := NewHealthHandler(db)

	// Apply global middleware
	router.Use(middleware.CORS)
	router.Use(chiMiddleware.RequestID)
	router.Use(middleware.RequestID)
	router.Use(middleware.RecoveryMiddleware(logger))
	router.Use(middleware.LoggingMiddleware(logger))

	// Mount API under /api/v1
	router.Route("/api/v1", func(r chi.Router) {
		// Health check route
		r.Get("/health", healthHandler.healthCheckHandler)
		r.Get("/ping", healthHandler.pingHandler)

		// Auth routes
		if authHandler != nil {
			r.Route("/auth", func(sr chi.Router) {
				sr.Post("/login", authHandler.Login)
				sr.Post("/refresh", authHandler.RefreshToken)
				sr.Post("/logout", authHandler.Logout)
			})
		}

		if authHandler != nil {
			// Protected routes that require authentication
			r.Group(func(pr chi.Router) {
				pr.Use(authHandler.AuthMiddleware)
				pr.Use(middleware.PrincipalContext)

				// Connection routes
				if connectionHandler != nil {
					pr.Route("/connections", func(cr chi.Router) {
						cr.Post("/", connectionHandler.CreateConnection)
						cr.Get("/", connectionHandler.ListConnections)
						cr.Get("/{id}", connectionHandler.GetConnection)
						cr.Patch("/{id}", connectionHandler.UpdateConnection)
						cr.Delete("/{id}", connectionHandler.DeleteConnection)
						cr.Post("/{id}/token", connectionHandler.AcquireToken)
					})
				}

				// Analysis job routes
				if jobHandler != nil {
					pr.Route("/jobs", func(jr chi.Router) {
						jr.Post("/", jobHandler.CreateJob)
						jr.Get("/", jobHandler.ListJobs)
						jr.Get("/{id}", jobHandler.GetJob)
						jr.Get("/{id}/status", jobHandler.GetJobStatus)
						jr.Post("/{id}/cancel", jobHandler.CancelJob)
					})
				}

				// Role management, fenced off early for non-admins
				if rbacHandler != nil && resolver != nil {
					pr.Group(func(rr chi.Router) {
						rr.Use(middleware.RequirePermission(resolver, rbac.ResourceRole, rbac.ActionManage))

						rr.Route("/roles", func(ro chi.Router) {
							ro.Post("/", rbacHandler.CreateRole)
							ro.Get("/", rbacHandler.ListRoles)
							ro.Delete("/{id}", rbacHandler.DeleteRole)
							ro.Post("/assign", rbacHandler.AssignRole)
							ro.Post("/unassign", rbacHandler.UnassignRole)
						})
						rr.Get("/permissions", rbacHandler.ListPermissions)
					})

					pr.Post("/permissions/check", rbacHandler.CheckPermission)
				}

				// Acting tenant
				if tenantHandler != nil {
					pr.Route("/tenant", func(tr chi.Router) {
						tr.Get("/", tenantHandler.GetTenant)
						tr.Patch("/", tenantHandler.UpdateTenant)
						tr.Delete("/", tenantHandler.DeleteTenant)
					})
				}

				// User management
				if userHandler != nil {
					pr.Route("/users", func(ur chi.Router) {
						ur.Post("/", userHandler.CreateUser)
						ur.Get("/", userHandler.ListUsers)
						ur.Get("/{id}", userHandler.GetUser)
						ur.Delete("/{id}", userHandler.DeactivateUser)
					})
				}
			})
		}
	})
}
