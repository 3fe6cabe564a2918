package rbac

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/frahmantamala/integration-hub/internal"
)

// Service covers role and assignment management for tenant admins. Checks go
// through the same gate as every other resource, under (role, manage).
type Service struct {
	repo   Repository
	gate   *Gate
	logger *slog.Logger
}

func NewService(repo Repository, gate *Gate, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		gate:   gate,
		logger: logger,
	}
}

func (s *Service) CreateRole(ctx context.Context, userID, tenantID string, dto CreateRoleDTO) (*Role, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	var role *Role
	err := s.gate.Authorize(ctx, userID, tenantID, ResourceRole, ActionManage, func(ctx context.Context) error {
		role = &Role{
			ID:          uuid.NewString(),
			TenantID:    tenantID,
			Name:        dto.Name,
			Description: dto.Description,
			CreatedAt:   time.Now(),
		}

		if err := s.repo.CreateRole(role, dto.PermissionIDs); err != nil {
			s.logger.Error("failed to create role", "error", err, "tenant_id", tenantID)
			return internal.NewInternalError("failed to create role", err)
		}

		s.logger.Info("role created", "role_id", role.ID, "tenant_id", tenantID, "name", role.Name)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return role, nil
}

func (s *Service) ListRoles(ctx context.Context, userID, tenantID string) ([]*Role, error) {
	var roles []*Role
	err := s.gate.Authorize(ctx, userID, tenantID, ResourceRole, ActionManage, func(ctx context.Context) error {
		found, err := s.repo.ListRoles(tenantID)
		if err != nil {
			return internal.NewInternalError("failed to list roles", err)
		}
		roles = found
		return nil
	})
	if err != nil {
		return nil, err
	}
	return roles, nil
}

func (s *Service) DeleteRole(ctx context.Context, userID, tenantID, roleID string) error {
	return s.gate.Authorize(ctx, userID, tenantID, ResourceRole, ActionManage, func(ctx context.Context) error {
		role, err := s.repo.GetRoleByID(roleID)
		if err != nil {
			return err
		}

		// Role ids are global; the lookup must not cross the tenant fence.
		if role.TenantID != tenantID {
			return internal.ErrForbidden
		}
		if role.IsSystemRole {
			return internal.ErrSystemRoleProtected
		}

		if err := s.repo.DeleteRole(roleID); err != nil {
			s.logger.Error("failed to delete role", "error", err, "role_id", roleID)
			return internal.NewInternalError("failed to delete role", err)
		}

		s.logger.Info("role deleted", "role_id", roleID, "tenant_id", tenantID)
		return nil
	})
}

func (s *Service) AssignRole(ctx context.Context, userID, tenantID string, dto AssignRoleDTO) error {
	if err := dto.Validate(); err != nil {
		return err
	}

	return s.gate.Authorize(ctx, userID, tenantID, ResourceRole, ActionManage, func(ctx context.Context) error {
		role, err := s.repo.GetRoleByID(dto.RoleID)
		if err != nil {
			return err
		}
		if role.TenantID != tenantID {
			return internal.ErrForbidden
		}

		assignment := &RoleAssignment{
			UserID:    dto.UserID,
			TenantID:  tenantID,
			RoleID:    dto.RoleID,
			CreatedAt: time.Now(),
		}
		if err := s.repo.AssignRole(assignment); err != nil {
			s.logger.Error("failed to assign role", "error", err, "role_id", dto.RoleID, "user_id", dto.UserID)
			return internal.NewInternalError("failed to assign role", err)
		}

		s.logger.Info("role assigned", "role_id", dto.RoleID, "user_id", dto.UserID, "tenant_id", tenantID)
		return nil
	})
}

func (s *Service) UnassignRole(ctx context.Context, userID, tenantID string, dto AssignRoleDTO) error {
	if err := dto.Validate(); err != nil {
		return err
	}

	return s.gate.Authorize(ctx, userID, tenantID, ResourceRole, ActionManage, func(ctx context.Context) error {
		if err := s.repo.UnassignRole(dto.UserID, tenantID, dto.RoleID); err != nil {
			if errors.Is(err, internal.ErrRoleNotFound) {
				return err
			}
			return internal.NewInternalError("failed to unassign role", err)
		}
		return nil
	})
}

func (s *Service) ListPermissions(ctx context.Context, userID, tenantID string) ([]Permission, error) {
	var permissions []Permission
	err := s.gate.Authorize(ctx, userID, tenantID, ResourceRole, ActionManage, func(ctx context.Context) error {
		found, err := s.repo.ListPermissions()
		if err != nil {
			return internal.NewInternalError("failed to list permissions", err)
		}
		permissions = found
		return nil
	})
	if err != nil {
		return nil, err
	}
	return permissions, nil
}

// CheckPermission backs the diagnostics endpoint: it reports the caller's own
// effective permission without requiring any grant.
func (s *Service) CheckPermission(ctx context.Context, userID, tenantID, resource, action string) (bool, error) {
	return s.gate.resolver.HasPermission(ctx, userID, tenantID, resource, action)
}
