package tenant

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/frahmantamala/integration-hub/internal"
	"github.com/frahmantamala/integration-hub/internal/transport"
	"github.com/frahmantamala/integration-hub/pkg/logger"
)

type ServiceAPI interface {
	Get(ctx context.Context, actorID, tenantID string) (*Tenant, error)
	Update(ctx context.Context, actorID, tenantID string, dto UpdateTenantDTO) (*Tenant, error)
	Delete(ctx context.Context, actorID, tenantID string) error
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

// GetTenant returns the acting tenant's record.
func (h *Handler) GetTenant(w http.ResponseWriter, r *http.Request) {
	principal, ok := internal.PrincipalFromContext(r.Context())
	if !ok || principal == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	tenantID := internal.TenantIDFromContext(r.Context())

	t, err := h.Service.Get(r.Context(), principal.UserID, tenantID)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, t)
}

func (h *Handler) UpdateTenant(w http.ResponseWriter, r *http.Request) {
	principal, ok := internal.PrincipalFromContext(r.Context())
	if !ok || principal == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	tenantID := internal.TenantIDFromContext(r.Context())

	var dto UpdateTenantDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	t, err := h.Service.Update(r.Context(), principal.UserID, tenantID, dto)
	if err != nil {
		h.Logger.Error("UpdateTenant: service error", "error", err, "tenant_id", tenantID)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, t)
}

// DeleteTenant removes the acting tenant together with its connections,
// links, jobs and role data.
func (h *Handler) DeleteTenant(w http.ResponseWriter, r *http.Request) {
	principal, ok := internal.PrincipalFromContext(r.Context())
	if !ok || principal == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	tenantID := internal.TenantIDFromContext(r.Context())

	if err := h.Service.Delete(r.Context(), principal.UserID, tenantID); err != nil {
		h.Logger.Error("DeleteTenant: service error", "error", err, "tenant_id", tenantID)
		h.HandleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
