package connection

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/frahmantamala/integration-hub/internal"
	"github.com/frahmantamala/integration-hub/internal/rbac"
)

// Repository defines the data access methods for connections.
type Repository interface {
	Create(conn *Connection) error
	GetByID(id string) (*Connection, error)
	GetForTenant(id, tenantID string) (*Connection, error)
	ListForTenant(tenantID string) ([]*Connection, error)
	Update(conn *Connection) error
	UpdateTokens(id string, update TokenUpdate) error
	Delete(id string) error
	AddLink(link *ExternalTenantLink) error
	ReplaceLinks(connectionID string, links []ExternalTenantLink) error
}

// TokenSource hands out a valid access token for a connection, refreshing
// behind the scenes when needed.
type TokenSource interface {
	AcquireValidToken(ctx context.Context, connectionID string) (string, error)
}

type Service struct {
	repo   Repository
	gate   *rbac.Gate
	vault  TokenSource
	logger *slog.Logger
}

func NewService(repo Repository, gate *rbac.Gate, vault TokenSource, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		gate:   gate,
		vault:  vault,
		logger: logger,
	}
}

func (s *Service) Create(ctx context.Context, userID, tenantID string, dto CreateConnectionDTO) (*Connection, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	var conn *Connection
	err := s.gate.Authorize(ctx, userID, tenantID, rbac.ResourceConnection, rbac.ActionCreate, func(ctx context.Context) error {
		now := time.Now()
		conn = &Connection{
			ID:           uuid.NewString(),
			TenantID:     &tenantID,
			Category:     dto.Category,
			Software:     dto.Software,
			Name:         dto.Name,
			AccessToken:  dto.AccessToken,
			RefreshToken: dto.RefreshToken,
			ExpiresIn:    dto.ExpiresIn,
			Metadata:     dto.Metadata,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if conn.ExpiresIn <= 0 {
			conn.ExpiresIn = 1800
		}
		issuedAt := now
		conn.TokenCreatedAt = &issuedAt

		for _, link := range dto.Tenants {
			conn.Links = append(conn.Links, ExternalTenantLink{
				ID:                   uuid.NewString(),
				ConnectionID:         conn.ID,
				ExternalTenantID:     link.ExternalTenantID,
				ExternalTenantName:   link.ExternalTenantName,
				ProviderConnectionID: link.ProviderConnectionID,
				CreatedAt:            now,
			})
		}

		if err := s.repo.Create(conn); err != nil {
			s.logger.Error("failed to create connection", "error", err, "tenant_id", tenantID)
			return internal.NewInternalError("failed to create connection", err)
		}

		s.logger.Info("connection created",
			"connection_id", conn.ID,
			"software", conn.Software,
			"tenant_id", tenantID)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return conn, nil
}

func (s *Service) Get(ctx context.Context, userID, tenantID, connectionID string) (*Connection, error) {
	var conn *Connection
	err := s.gate.Authorize(ctx, userID, tenantID, rbac.ResourceConnection, rbac.ActionRead, func(ctx context.Context) error {
		found, err := s.repo.GetForTenant(connectionID, tenantID)
		if err != nil {
			return err
		}
		conn = found
		return nil
	})
	if err != nil {
		return nil, err
	}
	return conn, nil
}

func (s *Service) List(ctx context.Context, userID, tenantID string) ([]*Connection, error) {
	var conns []*Connection
	err := s.gate.Authorize(ctx, userID, tenantID, rbac.ResourceConnection, rbac.ActionRead, func(ctx context.Context) error {
		found, err := s.repo.ListForTenant(tenantID)
		if err != nil {
			s.logger.Error("failed to list connections", "error", err, "tenant_id", tenantID)
			return internal.NewInternalError("failed to list connections", err)
		}
		conns = found
		return nil
	})
	if err != nil {
		return nil, err
	}
	return conns, nil
}

func (s *Service) Update(ctx context.Context, userID, tenantID, connectionID string, dto UpdateConnectionDTO) (*Connection, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	var conn *Connection
	err := s.gate.Authorize(ctx, userID, tenantID, rbac.ResourceConnection, rbac.ActionUpdate, func(ctx context.Context) error {
		found, err := s.repo.GetForTenant(connectionID, tenantID)
		if err != nil {
			return err
		}
		// Global connections are managed by operators, not through the
		// tenant API.
		if found.IsGlobal() {
			return internal.ErrForbidden
		}

		if dto.Name != nil {
			found.Name = *dto.Name
		}
		if dto.Metadata != nil {
			found.Metadata = dto.Metadata
		}
		found.UpdatedAt = time.Now()

		if err := s.repo.Update(found); err != nil {
			s.logger.Error("failed to update connection", "error", err, "connection_id", connectionID)
			return internal.NewInternalError("failed to update connection", err)
		}

		if dto.Tenants != nil {
			links := make([]ExternalTenantLink, 0, len(dto.Tenants))
			now := time.Now()
			for _, link := range dto.Tenants {
				links = append(links, ExternalTenantLink{
					ID:                   uuid.NewString(),
					ConnectionID:         found.ID,
					ExternalTenantID:     link.ExternalTenantID,
					ExternalTenantName:   link.ExternalTenantName,
					ProviderConnectionID: link.ProviderConnectionID,
					CreatedAt:            now,
				})
			}
			if err := s.repo.ReplaceLinks(found.ID, links); err != nil {
				s.logger.Error("failed to replace tenant links", "error", err, "connection_id", connectionID)
				return internal.NewInternalError("failed to replace tenant links", err)
			}
			found.Links = links
		}

		conn = found
		return nil
	})
	if err != nil {
		return nil, err
	}
	return conn, nil
}

func (s *Service) Delete(ctx context.Context, userID, tenantID, connectionID string) error {
	return s.gate.Authorize(ctx, userID, tenantID, rbac.ResourceConnection, rbac.ActionDelete, func(ctx context.Context) error {
		found, err := s.repo.GetForTenant(connectionID, tenantID)
		if err != nil {
			return err
		}
		if found.IsGlobal() {
			return internal.ErrForbidden
		}

		if err := s.repo.Delete(found.ID); err != nil {
			s.logger.Error("failed to delete connection", "error", err, "connection_id", connectionID)
			return internal.NewInternalError("failed to delete connection", err)
		}

		s.logger.Info("connection deleted", "connection_id", connectionID, "tenant_id", tenantID)
		return nil
	})
}

// AcquireToken is the diagnostics endpoint behind (connection, refresh): it
// verifies tenant visibility, then pulls a valid token through the vault.
func (s *Service) AcquireToken(ctx context.Context, userID, tenantID, connectionID string) (string, error) {
	var token string
	err := s.gate.Authorize(ctx, userID, tenantID, rbac.ResourceConnection, rbac.ActionRefresh, func(ctx context.Context) error {
		if _, err := s.repo.GetForTenant(connectionID, tenantID); err != nil {
			return err
		}

		acquired, err := s.vault.AcquireValidToken(ctx, connectionID)
		if err != nil {
			return err
		}
		token = acquired
		return nil
	})
	if err != nil {
		return "", err
	}
	return token, nil
}
