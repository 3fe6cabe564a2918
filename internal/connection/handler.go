package connection

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
	Create(ctx context.Context, userID, tenantID string, dto CreateConnectionDTO) (*Connection, error)
	Get(ctx context.Context, userID, tenantID, connectionID string) (*Connection, error)
	List(ctx context.Context, userID, tenantID string) ([]*Connection, error)
	Update(ctx context.Context, userID, tenantID, connectionID string, dto UpdateConnectionDTO) (*Connection, error)
	Delete(ctx context.Context, userID, tenantID, connectionID string) error
	AcquireToken(ctx context.Context, userID, tenantID, connectionID string) (string, error)
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

func (h *Handler) CreateConnection(w http.ResponseWriter, r *http.Request) {
	principal, ok := internal.PrincipalFromContext(r.Context())
	if !ok || principal == nil {
		h.Logger.Error("CreateConnection: principal not found in context")
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	tenantID := internal.TenantIDFromContext(r.Context())

	var dto CreateConnectionDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.Logger.Error("CreateConnection: invalid request body", "error", err)
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	conn, err := h.Service.Create(r.Context(), principal.UserID, tenantID, dto)
	if err != nil {
		h.Logger.Error("CreateConnection: service error", "error", err, "user_id", principal.UserID)
		h.HandleServiceError(w, err)
		return
	}

	h.Logger.Info("CreateConnection: connection created",
		"connection_id", conn.ID,
		"software", conn.Software,
		"user_id", principal.UserID)

	h.WriteJSON(w, http.StatusCreated, conn)
}

func (h *Handler) GetConnection(w http.ResponseWriter, r *http.Request) {
	principal, ok := internal.PrincipalFromContext(r.Context())
	if !ok || principal == nil {
		h.Logger.Error("GetConnection: principal not found in context")
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	tenantID := internal.TenantIDFromContext(r.Context())

	connectionID := chi.URLParam(r, "id")
	if connectionID == "" {
		h.WriteError(w, http.StatusBadRequest, "missing connection ID")
		return
	}

	conn, err := h.Service.Get(r.Context(), principal.UserID, tenantID, connectionID)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, conn)
}

func (h *Handler) ListConnections(w http.ResponseWriter, r *http.Request) {
	principal, ok := internal.PrincipalFromContext(r.Context())
	if !ok || principal == nil {
		h.Logger.Error("ListConnections: principal not found in context")
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	tenantID := internal.TenantIDFromContext(r.Context())

	conns, err := h.Service.List(r.Context(), principal.UserID, tenantID)
	if err != nil {
		h.Logger.Error("ListConnections: service error", "error", err, "tenant_id", tenantID)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]interface{}{"connections": conns})
}

func (h *Handler) UpdateConnection(w http.ResponseWriter, r *http.Request) {
	principal, ok := internal.PrincipalFromContext(r.Context())
	if !ok || principal == nil {
		h.Logger.Error("UpdateConnection: principal not found in context")
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	tenantID := internal.TenantIDFromContext(r.Context())

	connectionID := chi.URLParam(r, "id")
	if connectionID == "" {
		h.WriteError(w, http.StatusBadRequest, "missing connection ID")
		return
	}

	var dto UpdateConnectionDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.Logger.Error("UpdateConnection: invalid request body", "error", err)
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	conn, err := h.Service.Update(r.Context(), principal.UserID, tenantID, connectionID, dto)
	if err != nil {
		h.Logger.Error("UpdateConnection: service error", "error", err, "connection_id", connectionID)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, conn)
}

func (h *Handler) DeleteConnection(w http.ResponseWriter, r *http.Request) {
	principal, ok := internal.PrincipalFromContext(r.Context())
	if !ok || principal == nil {
		h.Logger.Error("DeleteConnection: principal not found in context")
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	tenantID := internal.TenantIDFromContext(r.Context())

	connectionID := chi.URLParam(r, "id")
	if connectionID == "" {
		h.WriteError(w, http.StatusBadRequest, "missing connection ID")
		return
	}

	if err := h.Service.Delete(r.Context(), principal.UserID, tenantID, connectionID); err != nil {
		h.Logger.Error("DeleteConnection: service error", "error", err, "connection_id", connectionID)
		h.HandleServiceError(w, err)
		return
	}

	h.Logger.Info("DeleteConnection: connection deleted", "connection_id", connectionID, "user_id", principal.UserID)
	w.WriteHeader(http.StatusNoContent)
}

// AcquireToken returns a currently valid access token for the connection,
// refreshing it first when stale. Used by operators to verify a connection
// still works end to end.
func (h *Handler) AcquireToken(w http.ResponseWriter, r *http.Request) {
	principal, ok := internal.PrincipalFromContext(r.Context())
	if !ok || principal == nil {
		h.Logger.Error("AcquireToken: principal not found in context")
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	tenantID := internal.TenantIDFromContext(r.Context())

	connectionID := chi.URLParam(r, "id")
	if connectionID == "" {
		h.WriteError(w, http.StatusBadRequest, "missing connection ID")
		return
	}

	token, err := h.Service.AcquireToken(r.Context(), principal.UserID, tenantID, connectionID)
	if err != nil {
		h.Logger.Error("AcquireToken: service error", "error", err, "connection_id", connectionID)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]string{"access_token": token})
}
