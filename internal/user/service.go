package user

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
	Create(u *User, passwordHash string) error
	GetByID(id string) (*User, error)
	GetByEmail(email string) (*User, error)
	ListForTenant(tenantID string) ([]*User, error)
	Deactivate(id string) error
}

type PasswordHasher interface {
	HashPassword(password string) (string, error)
}

type CreateUserDTO struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	RoleID    string `json:"role_id,omitempty"`
}

func (d CreateUserDTO) Validate() *internal.AppError {
	v := validation.NewValidator()
	v.Field("email", d.Email).Required().MaxLength(255)
	v.Field("password", d.Password).Required().MinLength(8)
	return v.Validate()
}

// Service manages user accounts within a tenant. User creation is tenant
// administration, so it sits behind (tenant, manage); the new user gets a
// role assignment in the acting tenant when a role is supplied.
type Service struct {
	repo   Repository
	roles  rbac.Repository
	gate   *rbac.Gate
	hasher PasswordHasher
	logger *slog.Logger
}

func NewService(repo Repository, roles rbac.Repository, gate *rbac.Gate, hasher PasswordHasher, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		roles:  roles,
		gate:   gate,
		hasher: hasher,
		logger: logger,
	}
}

func (s *Service) Create(ctx context.Context, actorID, tenantID string, dto CreateUserDTO) (*User, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	var created *User
	err := s.gate.Authorize(ctx, actorID, tenantID, rbac.ResourceTenant, rbac.ActionManage, func(ctx context.Context) error {
		if existing, err := s.repo.GetByEmail(dto.Email); err == nil && existing != nil {
			return internal.NewConflictError("a user with this email already exists", internal.ErrCodeValidationFailed)
		}

		hash, err := s.hasher.HashPassword(dto.Password)
		if err != nil {
			return internal.NewInternalError("failed to hash password", err)
		}

		now := time.Now()
		created = &User{
			ID:        uuid.NewString(),
			Email:     dto.Email,
			FirstName: dto.FirstName,
			LastName:  dto.LastName,
			IsActive:  true,
			CreatedAt: now,
			UpdatedAt: now,
		}

		if err := s.repo.Create(created, hash); err != nil {
			s.logger.Error("failed to create user", "error", err, "email", dto.Email)
			return internal.NewInternalError("failed to create user", err)
		}

		if dto.RoleID != "" {
			assignment := &rbac.RoleAssignment{
				UserID:    created.ID,
				TenantID:  tenantID,
				RoleID:    dto.RoleID,
				CreatedAt: now,
			}
			if err := s.roles.AssignRole(assignment); err != nil {
				s.logger.Error("failed to assign role to new user", "error", err, "user_id", created.ID)
				return internal.NewInternalError("failed to assign role", err)
			}
		}

		s.logger.Info("user created", "user_id", created.ID, "tenant_id", tenantID, "created_by", actorID)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (s *Service) Get(ctx context.Context, actorID, tenantID, userID string) (*User, error) {
	var u *User
	err := s.gate.Authorize(ctx, actorID, tenantID, rbac.ResourceTenant, rbac.ActionManage, func(ctx context.Context) error {
		found, err := s.repo.GetByID(userID)
		if err != nil {
			return err
		}
		u = found
		return nil
	})
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (s *Service) List(ctx context.Context, actorID, tenantID string) ([]*User, error) {
	var users []*User
	err := s.gate.Authorize(ctx, actorID, tenantID, rbac.ResourceTenant, rbac.ActionManage, func(ctx context.Context) error {
		found, err := s.repo.ListForTenant(tenantID)
		if err != nil {
			s.logger.Error("failed to list users", "error", err, "tenant_id", tenantID)
			return internal.NewInternalError("failed to list users", err)
		}
		users = found
		return nil
	})
	if err != nil {
		return nil, err
	}
	return users, nil
}

func (s *Service) Deactivate(ctx context.Context, actorID, tenantID, userID string) error {
	return s.gate.Authorize(ctx, actorID, tenantID, rbac.ResourceTenant, rbac.ActionManage, func(ctx context.Context) error {
		if _, err := s.repo.GetByID(userID); err != nil {
			return err
		}

		if err := s.repo.Deactivate(userID); err != nil {
			s.logger.Error("failed to deactivate user", "error", err, "user_id", userID)
			return internal.NewInternalError("failed to deactivate user", err)
		}

		s.logger.Info("user deactivated", "user_id", userID, "deactivated_by", actorID)
		return nil
	})
}
