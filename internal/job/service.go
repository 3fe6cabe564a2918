package job

import (
	"context"
	"errors"
	"log/slog"

	"github.com/frahmantamala/integration-hub/internal"
	"github.com/frahmantamala/integration-hub/internal/connection"
	"github.com/frahmantamala/integration-hub/internal/core/events"
	"github.com/frahmantamala/integration-hub/internal/rbac"
)

// ConnectionReader resolves connections visible to a tenant. Visibility
// failures surface as ErrConnectionNotFound so callers cannot probe for
// connections belonging to other tenants.
type ConnectionReader interface {
	GetForTenant(id, tenantID string) (*connection.Connection, error)
}

// Enqueuer hands a pending job to the executor pool.
type Enqueuer interface {
	Enqueue(jobID string) error
}

// Service is the API-facing surface of the job domain. Every operation is
// routed through the authorization gate; the state machine itself lives in
// the Manager.
type Service struct {
	manager     *Manager
	connections ConnectionReader
	gate        *rbac.Gate
	enqueuer    Enqueuer
	bus         *events.EventBus
	logger      *slog.Logger
}

func NewService(manager *Manager, connections ConnectionReader, gate *rbac.Gate, enqueuer Enqueuer, bus *events.EventBus, logger *slog.Logger) *Service {
	return &Service{
		manager:     manager,
		connections: connections,
		gate:        gate,
		enqueuer:    enqueuer,
		bus:         bus,
		logger:      logger,
	}
}

func (s *Service) CreateJob(ctx context.Context, userID, tenantID string, dto CreateJobDTO) (*Job, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	var created *Job
	err := s.gate.Authorize(ctx, userID, tenantID, rbac.ResourceJob, rbac.ActionCreate, func(ctx context.Context) error {
		conn, err := s.connections.GetForTenant(dto.ConnectionID, tenantID)
		if err != nil {
			return err
		}

		externalTenantID, externalTenantName, err := resolveExternalTenant(conn, dto.ExternalTenantID)
		if err != nil {
			return err
		}

		created, err = s.manager.Create(CreateParams{
			ConnectionID:       conn.ID,
			ConnectionName:     conn.Name,
			TenantID:           &tenantID,
			ExternalTenantID:   externalTenantID,
			ExternalTenantName: externalTenantName,
		})
		if err != nil {
			return err
		}

		if s.bus != nil {
			_ = s.bus.Publish(ctx, events.NewJobCreatedEvent(created.ID, conn.ID, tenantID, userID))
		}

		if err := s.enqueuer.Enqueue(created.ID); err != nil {
			if errors.Is(err, internal.ErrJobQueueFull) {
				if failErr := s.manager.Fail(created.ID, "job queue full"); failErr != nil {
					s.logger.Error("could not fail unqueued job", "error", failErr, "job_id", created.ID)
				}
			}
			return err
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return created, nil
}

func (s *Service) GetStatus(ctx context.Context, userID, tenantID, jobID string) (*Job, error) {
	var j *Job
	err := s.gate.Authorize(ctx, userID, tenantID, rbac.ResourceJob, rbac.ActionRead, func(ctx context.Context) error {
		found, err := s.manager.GetForTenant(jobID, tenantID)
		if err != nil {
			return err
		}
		j = found
		return nil
	})
	if err != nil {
		return nil, err
	}
	return j, nil
}

func (s *Service) List(ctx context.Context, userID, tenantID string, limit, offset int) ([]*Job, error) {
	var jobs []*Job
	err := s.gate.Authorize(ctx, userID, tenantID, rbac.ResourceJob, rbac.ActionRead, func(ctx context.Context) error {
		found, err := s.manager.List(tenantID, limit, offset)
		if err != nil {
			s.logger.Error("failed to list jobs", "error", err, "tenant_id", tenantID)
			return internal.NewInternalError("failed to list analysis jobs", err)
		}
		jobs = found
		return nil
	})
	if err != nil {
		return nil, err
	}
	return jobs, nil
}

func (s *Service) Cancel(ctx context.Context, userID, tenantID, jobID string) error {
	return s.gate.Authorize(ctx, userID, tenantID, rbac.ResourceJob, rbac.ActionCancel, func(ctx context.Context) error {
		if _, err := s.manager.GetForTenant(jobID, tenantID); err != nil {
			return err
		}

		if err := s.manager.Cancel(jobID); err != nil {
			return err
		}

		s.logger.Info("job cancelled", "job_id", jobID, "tenant_id", tenantID, "cancelled_by", userID)
		return nil
	})
}

// resolveExternalTenant picks the provider organization the analysis runs
// against. A requested organization must be one the connection is linked to;
// when none is requested and the connection has exactly one link, that link
// is used.
func resolveExternalTenant(conn *connection.Connection, requested *string) (*string, *string, error) {
	if requested != nil {
		for i := range conn.Links {
			link := &conn.Links[i]
			if link.ExternalTenantID == *requested {
				return &link.ExternalTenantID, &link.ExternalTenantName, nil
			}
		}
		return nil, nil, internal.NewValidationFieldError("external_tenant_id", "organization is not linked to this connection", internal.ErrCodeValidationFailed)
	}

	if len(conn.Links) == 1 {
		return &conn.Links[0].ExternalTenantID, &conn.Links[0].ExternalTenantName, nil
	}
	if len(conn.Links) > 1 {
		return nil, nil, internal.NewValidationFieldError("external_tenant_id", "connection has multiple organizations, one must be selected", internal.ErrCodeValidationFailed)
	}

	return nil, nil, nil
}
