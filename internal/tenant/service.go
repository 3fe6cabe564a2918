package tenant

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/frahmantamala/integration-hub/internal"
	"github.com/frahmantamala/integration-hub/internal/core/common/validation"
	"github.com/frahmantamala/integration-hub/internal/rbac"
)

type Repository interface {
	Create(t *Tenant) error
	GetByID(id string) (*Tenant, error)
	Update(t *Tenant) error
	Delete(id string) error
}

type CreateTenantDTO struct {
	CompanyName string `json:"company_name"`
	Industry    string `json:"industry"`
	Country     string `json:"country"`
}

func (d CreateTenantDTO) Validate() *internal.AppError {
	v := validation.NewValidator()
	v.Field("company_name", d.CompanyName).Required().MaxLength(200)
	return v.Validate()
}

type UpdateTenantDTO struct {
	CompanyName *string `json:"company_name,omitempty"`
	Industry    *string `json:"industry,omitempty"`
	Country     *string `json:"country,omitempty"`
}

// Service manages tenant records. Reads and mutations inside an existing
// tenant sit behind (tenant, manage); deleting a tenant removes its
// connections, links and jobs through the repository cascade.
type Service struct {
	repo   Repository
	gate   *rbac.Gate
	logger *slog.Logger
}

func NewService(repo Repository, gate *rbac.Gate, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		gate:   gate,
		logger: logger,
	}
}

func (s *Service) Get(ctx context.Context, actorID, tenantID string) (*Tenant, error) {
	var t *Tenant
	err := s.gate.Authorize(ctx, actorID, tenantID, rbac.ResourceTenant, rbac.ActionManage, func(ctx context.Context) error {
		found, err := s.repo.GetByID(tenantID)
		if err != nil {
			return err
		}
		t = found
		return nil
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (s *Service) Update(ctx context.Context, actorID, tenantID string, dto UpdateTenantDTO) (*Tenant, error) {
	var t *Tenant
	err := s.gate.Authorize(ctx, actorID, tenantID, rbac.ResourceTenant, rbac.ActionManage, func(ctx context.Context) error {
		found, err := s.repo.GetByID(tenantID)
		if err != nil {
			return err
		}

		if dto.CompanyName != nil {
			found.CompanyName = *dto.CompanyName
		}
		if dto.Industry != nil {
			found.Industry = *dto.Industry
		}
		if dto.Country != nil {
			found.Country = *dto.Country
		}
		found.UpdatedAt = time.Now()

		if err := s.repo.Update(found); err != nil {
			s.logger.Error("failed to update tenant", "error", err, "tenant_id", tenantID)
			return internal.NewInternalError("failed to update tenant", err)
		}

		t = found
		return nil
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (s *Service) Delete(ctx context.Context, actorID, tenantID string) error {
	return s.gate.Authorize(ctx, actorID, tenantID, rbac.ResourceTenant, rbac.ActionManage, func(ctx context.Context) error {
		if _, err := s.repo.GetByID(tenantID); err != nil {
			return err
		}

		if err := s.repo.Delete(tenantID); err != nil {
			s.logger.Error("failed to delete tenant", "error", err, "tenant_id", tenantID)
			return internal.NewInternalError("failed to delete tenant", err)
		}

		s.logger.Info("tenant deleted", "tenant_id", tenantID, "deleted_by", actorID)
		return nil
	})
}

// CreateTenant provisions a new tenant record. There is no tenant to
// authorize against yet, so this path is reserved for the seeder and
// operator tooling, not the HTTP surface.
func (s *Service) CreateTenant(dto CreateTenantDTO) (*Tenant, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	now := time.Now()
	t := &Tenant{
		ID:          uuid.NewString(),
		CompanyName: dto.CompanyName,
		Industry:    dto.Industry,
		Country:     dto.Country,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.repo.Create(t); err != nil {
		s.logger.Error("failed to create tenant", "error", err, "company_name", dto.CompanyName)
		return nil, internal.NewInternalError("failed to create tenant", err)
	}

	s.logger.Info("tenant created", "tenant_id", t.ID, "company_name", t.CompanyName)
	return t, nil
}
