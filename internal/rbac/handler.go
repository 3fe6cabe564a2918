package rbac

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"

	"github.com/frahmantamala/integration-hub/internal"
	"github.com/frahmantamala/integration-hub/internal/transport"
	"github.com/frahmantamala/integration-hub/pkg/logger"
)

type ServiceAPI interface {
	CreateRole(ctx context.Context, userID, tenantID string, dto CreateRoleDTO) (*Role, error)
	ListRoles(ctx context.Context, userID, tenantID string) ([]*Role, error)
	DeleteRole(ctx context.Context, userID, tenantID, roleID string) error
	AssignRole(ctx context.Context, userID, tenantID string, dto AssignRoleDTO) error
	UnassignRole(ctx context.Context, userID, tenantID string, dto AssignRoleDTO) error
	ListPermissions(ctx context.Context, userID, tenantID string) ([]Permission, error)
	CheckPermission(ctx context.Context, userID, tenantID, resource, action string) (bool, error)
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(service ServiceAPI) *Handler {
	lg := logger.LoggerWrapper()
	if lg == nil {
		lg = slog.Default()
	}
	return &Handler{
		BaseHandler: transport.NewBaseHandler(lg),
		Service:     service,
	}
}

func (h *Handler) CreateRole(w http.ResponseWriter, r *http.Request) {
	principal, ok := internal.PrincipalFromContext(r.Context())
	if !ok || principal == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	tenantID := internal.TenantIDFromContext(r.Context())

	var dto CreateRoleDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	role, err := h.Service.CreateRole(r.Context(), principal.UserID, tenantID, dto)
	if err != nil {
		h.Logger.Error("CreateRole: service error", "error", err)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusCreated, role)
}

func (h *Handler) ListRoles(w http.ResponseWriter, r *http.Request) {
	principal, ok := internal.PrincipalFromContext(r.Context())
	if !ok || principal == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	tenantID := internal.TenantIDFromContext(r.Context())

	roles, err := h.Service.ListRoles(r.Context(), principal.UserID, tenantID)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]interface{}{"roles": roles})
}

func (h *Handler) DeleteRole(w http.ResponseWriter, r *http.Request) {
	principal, ok := internal.PrincipalFromContext(r.Context())
	if !ok || principal == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	tenantID := internal.TenantIDFromContext(r.Context())

	roleID := chi.URLParam(r, "id")
	if roleID == "" {
		h.WriteError(w, http.StatusBadRequest, "missing role ID")
		return
	}

	if err := h.Service.DeleteRole(r.Context(), principal.UserID, tenantID, roleID); err != nil {
		h.Logger.Error("DeleteRole: service error", "error", err, "role_id", roleID)
		h.HandleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) AssignRole(w http.ResponseWriter, r *http.Request) {
	principal, ok := internal.PrincipalFromContext(r.Context())
	if !ok || principal == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	tenantID := internal.TenantIDFromContext(r.Context())

	var dto AssignRoleDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.Service.AssignRole(r.Context(), principal.UserID, tenantID, dto); err != nil {
		h.Logger.Error("AssignRole: service error", "error", err)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]string{"status": "assigned"})
}

func (h *Handler) UnassignRole(w http.ResponseWriter, r *http.Request) {
	principal, ok := internal.PrincipalFromContext(r.Context())
	if !ok || principal == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	tenantID := internal.TenantIDFromContext(r.Context())

	var dto AssignRoleDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.Service.UnassignRole(r.Context(), principal.UserID, tenantID, dto); err != nil {
		h.Logger.Error("UnassignRole: service error", "error", err)
		h.HandleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ListPermissions(w http.ResponseWriter, r *http.Request) {
	principal, ok := internal.PrincipalFromContext(r.Context())
	if !ok || principal == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	tenantID := internal.TenantIDFromContext(r.Context())

	permissions, err := h.Service.ListPermissions(r.Context(), principal.UserID, tenantID)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]interface{}{"permissions": permissions})
}

// CheckPermission reports the caller's own effective permission. Useful for
// UIs that hide actions the user cannot perform.
func (h *Handler) CheckPermission(w http.ResponseWriter, r *http.Request) {
	principal, ok := internal.PrincipalFromContext(r.Context())
	if !ok || principal == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	tenantID := internal.TenantIDFromContext(r.Context())

	var dto CheckPermissionDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := dto.Validate(); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	allowed, err := h.Service.CheckPermission(r.Context(), principal.UserID, tenantID, dto.Resource, dto.Action)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"resource": dto.Resource,
		"action":   dto.Action,
		"allowed":  allowed,
	})
}
