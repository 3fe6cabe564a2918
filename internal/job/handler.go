package job

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"

	"github.com/frahmantamala/integration-hub/internal"
	"github.com/frahmantamala/integration-hub/internal/transport"
	"github.com/frahmantamala/integration-hub/pkg/logger"
)

type ServiceAPI interface {
	CreateJob(ctx context.Context, userID, tenantID string, dto CreateJobDTO) (*Job, error)
	GetStatus(ctx context.Context, userID, tenantID, jobID string) (*Job, error)
	List(ctx context.Context, userID, tenantID string, limit, offset int) ([]*Job, error)
	Cancel(ctx context.Context, userID, tenantID, jobID string) error
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

func (h *Handler) CreateJob(w http.ResponseWriter, r *http.Request) {
	principal, ok := internal.PrincipalFromContext(r.Context())
	if !ok || principal == nil {
		h.Logger.Error("CreateJob: principal not found in context")
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	tenantID := internal.TenantIDFromContext(r.Context())

	var dto CreateJobDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.Logger.Error("CreateJob: invalid request body", "error", err)
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	created, err := h.Service.CreateJob(r.Context(), principal.UserID, tenantID, dto)
	if err != nil {
		h.Logger.Error("CreateJob: service error", "error", err, "user_id", principal.UserID)
		h.HandleServiceError(w, err)
		return
	}

	h.Logger.Info("CreateJob: job accepted",
		"job_id", created.ID,
		"connection_id", created.ConnectionID,
		"user_id", principal.UserID)

	h.WriteJSON(w, http.StatusAccepted, created)
}

func (h *Handler) GetJob(w http.ResponseWriter, r *http.Request) {
	principal, ok := internal.PrincipalFromContext(r.Context())
	if !ok || principal == nil {
		h.Logger.Error("GetJob: principal not found in context")
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	tenantID := internal.TenantIDFromContext(r.Context())

	jobID := chi.URLParam(r, "id")
	if jobID == "" {
		h.WriteError(w, http.StatusBadRequest, "missing job ID")
		return
	}

	j, err := h.Service.GetStatus(r.Context(), principal.UserID, tenantID, jobID)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, j)
}

func (h *Handler) GetJobStatus(w http.ResponseWriter, r *http.Request) {
	principal, ok := internal.PrincipalFromContext(r.Context())
	if !ok || principal == nil {
		h.Logger.Error("GetJobStatus: principal not found in context")
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	tenantID := internal.TenantIDFromContext(r.Context())

	jobID := chi.URLParam(r, "id")
	if jobID == "" {
		h.WriteError(w, http.StatusBadRequest, "missing job ID")
		return
	}

	j, err := h.Service.GetStatus(r.Context(), principal.UserID, tenantID, jobID)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, StatusFromJob(j))
}

func (h *Handler) ListJobs(w http.ResponseWriter, r *http.Request) {
	principal, ok := internal.PrincipalFromContext(r.Context())
	if !ok || principal == nil {
		h.Logger.Error("ListJobs: principal not found in context")
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	tenantID := internal.TenantIDFromContext(r.Context())

	limit := 20
	offset := 0

	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l <= 100 {
			limit = l
		}
	}

	if offsetStr := r.URL.Query().Get("offset"); offsetStr != "" {
		if o, err := strconv.Atoi(offsetStr); err == nil && o >= 0 {
			offset = o
		}
	}

	jobs, err := h.Service.List(r.Context(), principal.UserID, tenantID, limit, offset)
	if err != nil {
		h.Logger.Error("ListJobs: service error", "error", err, "tenant_id", tenantID)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"jobs":   jobs,
		"limit":  limit,
		"offset": offset,
	})
}

func (h *Handler) CancelJob(w http.ResponseWriter, r *http.Request) {
	principal, ok := internal.PrincipalFromContext(r.Context())
	if !ok || principal == nil {
		h.Logger.Error("CancelJob: principal not found in context")
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	tenantID := internal.TenantIDFromContext(r.Context())

	jobID := chi.URLParam(r, "id")
	if jobID == "" {
		h.WriteError(w, http.StatusBadRequest, "missing job ID")
		return
	}

	if err := h.Service.Cancel(r.Context(), principal.UserID, tenantID, jobID); err != nil {
		h.Logger.Error("CancelJob: service error", "error", err, "job_id", jobID)
		h.HandleServiceError(w, err)
		return
	}

	h.Logger.Info("CancelJob: job cancelled", "job_id", jobID, "user_id", principal.UserID)
	h.WriteJSON(w, http.StatusOK, map[string]string{"status": "cancelled"})
}
