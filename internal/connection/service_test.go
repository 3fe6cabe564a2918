package connection_test

import (
	"context"
	"log/slog"
	"os"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/integration-hub/internal"
	"github.com/frahmantamala/integration-hub/internal/connection"
	"github.com/frahmantamala/integration-hub/internal/rbac"
)

func TestConnection(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Connection Suite")
}

type mockRepository struct {
	connections map[string]*connection.Connection

	createError error
	getError    error
	updateError error
	deleteError error

	replacedLinks map[string][]connection.ExternalTenantLink
	deleted       []string
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		connections:   make(map[string]*connection.Connection),
		replacedLinks: make(map[string][]connection.ExternalTenantLink),
	}
}

func (m *mockRepository) Create(conn *connection.Connection) error {
	if m.createError != nil {
		return m.createError
	}
	copied := *conn
	m.connections[conn.ID] = &copied
	return nil
}

func (m *mockRepository) GetByID(id string) (*connection.Connection, error) {
	if m.getError != nil {
		return nil, m.getError
	}
	conn, ok := m.connections[id]
	if !ok {
		return nil, internal.ErrConnectionNotFound
	}
	copied := *conn
	return &copied, nil
}

func (m *mockRepository) GetForTenant(id, tenantID string) (*connection.Connection, error) {
	if m.getError != nil {
		return nil, m.getError
	}
	conn, ok := m.connections[id]
	if !ok {
		return nil, internal.ErrConnectionNotFound
	}
	if conn.TenantID != nil && *conn.TenantID != tenantID {
		return nil, internal.ErrConnectionNotFound
	}
	copied := *conn
	return &copied, nil
}

func (m *mockRepository) ListForTenant(tenantID string) ([]*connection.Connection, error) {
	if m.getError != nil {
		return nil, m.getError
	}
	var conns []*connection.Connection
	for _, conn := range m.connections {
		if conn.TenantID == nil || *conn.TenantID == tenantID {
			copied := *conn
			conns = append(conns, &copied)
		}
	}
	return conns, nil
}

func (m *mockRepository) Update(conn *connection.Connection) error {
	if m.updateError != nil {
		return m.updateError
	}
	stored, ok := m.connections[conn.ID]
	if !ok {
		return internal.ErrConnectionNotFound
	}
	stored.Name = conn.Name
	stored.Metadata = conn.Metadata
	stored.UpdatedAt = conn.UpdatedAt
	return nil
}

func (m *mockRepository) UpdateTokens(id string, update connection.TokenUpdate) error {
	stored, ok := m.connections[id]
	if !ok {
		return internal.ErrConnectionNotFound
	}
	stored.AccessToken = update.AccessToken
	if update.RefreshToken != nil {
		stored.RefreshToken = update.RefreshToken
	}
	if update.ExpiresIn > 0 {
		stored.ExpiresIn = update.ExpiresIn
	}
	issuedAt := update.TokenCreatedAt
	stored.TokenCreatedAt = &issuedAt
	return nil
}

func (m *mockRepository) Delete(id string) error {
	if m.deleteError != nil {
		return m.deleteError
	}
	if _, ok := m.connections[id]; !ok {
		return internal.ErrConnectionNotFound
	}
	delete(m.connections, id)
	m.deleted = append(m.deleted, id)
	return nil
}

func (m *mockRepository) AddLink(link *connection.ExternalTenantLink) error {
	stored, ok := m.connections[link.ConnectionID]
	if !ok {
		return internal.ErrConnectionNotFound
	}
	stored.Links = append(stored.Links, *link)
	return nil
}

func (m *mockRepository) ReplaceLinks(connectionID string, links []connection.ExternalTenantLink) error {
	stored, ok := m.connections[connectionID]
	if !ok {
		return internal.ErrConnectionNotFound
	}
	stored.Links = links
	m.replacedLinks[connectionID] = links
	return nil
}

type mockAccessRepository struct {
	// roleIDs is keyed by userID + "|" + tenantID
	roleIDs     map[string][]string
	permissions map[string][]rbac.Permission
}

func newMockAccessRepository() *mockAccessRepository {
	return &mockAccessRepository{
		roleIDs:     make(map[string][]string),
		permissions: make(map[string][]rbac.Permission),
	}
}

func (m *mockAccessRepository) grant(userID, tenantID, roleID string, perms ...rbac.Permission) {
	key := userID + "|" + tenantID
	m.roleIDs[key] = append(m.roleIDs[key], roleID)
	m.permissions[roleID] = append(m.permissions[roleID], perms...)
}

func (m *mockAccessRepository) GetRoleIDsForUser(userID, tenantID string) ([]string, error) {
	return m.roleIDs[userID+"|"+tenantID], nil
}

func (m *mockAccessRepository) GetPermissionsForRoles(roleIDs []string) ([]rbac.Permission, error) {
	var perms []rbac.Permission
	for _, roleID := range roleIDs {
		perms = append(perms, m.permissions[roleID]...)
	}
	return perms, nil
}

func (m *mockAccessRepository) CreateRole(role *rbac.Role, permissionIDs []string) error {
	return nil
}

func (m *mockAccessRepository) GetRoleByID(roleID string) (*rbac.Role, error) {
	return nil, internal.ErrRoleNotFound
}

func (m *mockAccessRepository) ListRoles(tenantID string) ([]*rbac.Role, error) {
	return nil, nil
}

func (m *mockAccessRepository) DeleteRole(roleID string) error {
	return nil
}

func (m *mockAccessRepository) AssignRole(assignment *rbac.RoleAssignment) error {
	return nil
}

func (m *mockAccessRepository) UnassignRole(userID, tenantID, roleID string) error {
	return nil
}

func (m *mockAccessRepository) GetOrCreatePermission(resource, action, description string) (rbac.Permission, error) {
	return rbac.Permission{}, nil
}

func (m *mockAccessRepository) ListPermissions() ([]rbac.Permission, error) {
	return nil, nil
}

type mockTokenSource struct {
	token        string
	acquireError error
	acquireCalls int
}

func (m *mockTokenSource) AcquireValidToken(ctx context.Context, connectionID string) (string, error) {
	m.acquireCalls++
	if m.acquireError != nil {
		return "", m.acquireError
	}
	return m.token, nil
}

var _ = Describe("ConnectionService", func() {
	var (
		repo    *mockRepository
		access  *mockAccessRepository
		vault   *mockTokenSource
		service *connection.Service
		logger  *slog.Logger
		ctx     context.Context
	)

	strPtr := func(s string) *string { return &s }

	connectionPermissions := []rbac.Permission{
		{Resource: rbac.ResourceConnection, Action: rbac.ActionCreate},
		{Resource: rbac.ResourceConnection, Action: rbac.ActionRead},
		{Resource: rbac.ResourceConnection, Action: rbac.ActionUpdate},
		{Resource: rbac.ResourceConnection, Action: rbac.ActionDelete},
		{Resource: rbac.ResourceConnection, Action: rbac.ActionRefresh},
	}

	validDTO := func() connection.CreateConnectionDTO {
		return connection.CreateConnectionDTO{
			Category:    "finance",
			Software:    "xero",
			Name:        "Main Ledger",
			AccessToken: "initial-access",
			ExpiresIn:   1800,
		}
	}

	seedConnection := func(id string, tenantID *string) {
		repo.connections[id] = &connection.Connection{
			ID:          id,
			TenantID:    tenantID,
			Category:    "finance",
			Software:    "xero",
			Name:        "Main Ledger",
			AccessToken: "stored-access",
			ExpiresIn:   1800,
		}
	}

	BeforeEach(func() {
		ctx = context.Background()
		repo = newMockRepository()
		access = newMockAccessRepository()
		access.grant("user-1", "tenant-1", "role-admin", connectionPermissions...)
		vault = &mockTokenSource{token: "fresh-access"}
		logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelError,
		}))

		gate := rbac.NewGate(rbac.NewResolver(access, logger), logger)
		service = connection.NewService(repo, gate, vault, logger)
	})

	Describe("Create", func() {
		It("should create a tenant-owned connection with an issuance timestamp", func() {
			created, err := service.Create(ctx, "user-1", "tenant-1", validDTO())

			Expect(err).NotTo(HaveOccurred())
			Expect(created.ID).NotTo(BeEmpty())
			Expect(created.TenantID).NotTo(BeNil())
			Expect(*created.TenantID).To(Equal("tenant-1"))
			Expect(created.TokenCreatedAt).NotTo(BeNil())
		})

		It("should default the token lifetime when none is provided", func() {
			dto := validDTO()
			dto.ExpiresIn = 0

			created, err := service.Create(ctx, "user-1", "tenant-1", dto)

			Expect(err).NotTo(HaveOccurred())
			Expect(created.ExpiresIn).To(Equal(1800))
		})

		It("should record the organization links", func() {
			dto := validDTO()
			dto.Tenants = []connection.ExternalTenantLinkDTO{
				{ExternalTenantID: "org-1", ExternalTenantName: "Acme NZ"},
			}

			created, err := service.Create(ctx, "user-1", "tenant-1", dto)

			Expect(err).NotTo(HaveOccurred())
			Expect(created.Links).To(HaveLen(1))
			Expect(created.Links[0].ExternalTenantID).To(Equal("org-1"))
			Expect(created.Links[0].ConnectionID).To(Equal(created.ID))
		})

		It("should reject an unknown software", func() {
			dto := validDTO()
			dto.Software = "napier-books"

			_, err := service.Create(ctx, "user-1", "tenant-1", dto)

			Expect(err).To(HaveOccurred())
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Type).To(Equal(internal.ErrorTypeValidation))
		})

		It("should deny a user without the create permission", func() {
			_, err := service.Create(ctx, "user-2", "tenant-1", validDTO())

			Expect(err).To(MatchError(internal.ErrForbidden))
			Expect(repo.connections).To(BeEmpty())
		})
	})

	Describe("Get", func() {
		It("should return a connection owned by the tenant", func() {
			seedConnection("conn-1", strPtr("tenant-1"))

			found, err := service.Get(ctx, "user-1", "tenant-1", "conn-1")

			Expect(err).NotTo(HaveOccurred())
			Expect(found.ID).To(Equal("conn-1"))
		})

		It("should return a globally shared connection", func() {
			seedConnection("conn-global", nil)

			found, err := service.Get(ctx, "user-1", "tenant-1", "conn-global")

			Expect(err).NotTo(HaveOccurred())
			Expect(found.IsGlobal()).To(BeTrue())
		})

		It("should hide another tenant's connection behind not found", func() {
			seedConnection("conn-1", strPtr("tenant-2"))

			_, err := service.Get(ctx, "user-1", "tenant-1", "conn-1")

			Expect(err).To(MatchError(internal.ErrConnectionNotFound))
		})
	})

	Describe("Update", func() {
		It("should update name and metadata", func() {
			seedConnection("conn-1", strPtr("tenant-1"))

			updated, err := service.Update(ctx, "user-1", "tenant-1", "conn-1", connection.UpdateConnectionDTO{
				Name:     strPtr("Renamed Ledger"),
				Metadata: map[string]interface{}{"region": "nz"},
			})

			Expect(err).NotTo(HaveOccurred())
			Expect(updated.Name).To(Equal("Renamed Ledger"))
			Expect(repo.connections["conn-1"].Name).To(Equal("Renamed Ledger"))
		})

		It("should replace organization links when a new set is given", func() {
			seedConnection("conn-1", strPtr("tenant-1"))

			updated, err := service.Update(ctx, "user-1", "tenant-1", "conn-1", connection.UpdateConnectionDTO{
				Tenants: []connection.ExternalTenantLinkDTO{
					{ExternalTenantID: "org-2", ExternalTenantName: "Acme AU"},
				},
			})

			Expect(err).NotTo(HaveOccurred())
			Expect(updated.Links).To(HaveLen(1))
			Expect(repo.replacedLinks["conn-1"]).To(HaveLen(1))
		})

		It("should refuse to mutate a globally shared connection", func() {
			seedConnection("conn-global", nil)

			_, err := service.Update(ctx, "user-1", "tenant-1", "conn-global", connection.UpdateConnectionDTO{
				Name: strPtr("Hijacked"),
			})

			Expect(err).To(MatchError(internal.ErrForbidden))
			Expect(repo.connections["conn-global"].Name).To(Equal("Main Ledger"))
		})
	})

	Describe("Delete", func() {
		It("should delete a tenant-owned connection", func() {
			seedConnection("conn-1", strPtr("tenant-1"))

			Expect(service.Delete(ctx, "user-1", "tenant-1", "conn-1")).To(Succeed())
			Expect(repo.deleted).To(Equal([]string{"conn-1"}))
		})

		It("should refuse to delete a globally shared connection", func() {
			seedConnection("conn-global", nil)

			err := service.Delete(ctx, "user-1", "tenant-1", "conn-global")

			Expect(err).To(MatchError(internal.ErrForbidden))
			Expect(repo.deleted).To(BeEmpty())
		})

		It("should not delete another tenant's connection", func() {
			seedConnection("conn-1", strPtr("tenant-2"))

			err := service.Delete(ctx, "user-1", "tenant-1", "conn-1")

			Expect(err).To(MatchError(internal.ErrConnectionNotFound))
		})
	})

	Describe("AcquireToken", func() {
		It("should return a valid token for a visible connection", func() {
			seedConnection("conn-1", strPtr("tenant-1"))

			token, err := service.AcquireToken(ctx, "user-1", "tenant-1", "conn-1")

			Expect(err).NotTo(HaveOccurred())
			Expect(token).To(Equal("fresh-access"))
			Expect(vault.acquireCalls).To(Equal(1))
		})

		It("should not touch the vault for a connection the tenant cannot see", func() {
			seedConnection("conn-1", strPtr("tenant-2"))

			_, err := service.AcquireToken(ctx, "user-1", "tenant-1", "conn-1")

			Expect(err).To(MatchError(internal.ErrConnectionNotFound))
			Expect(vault.acquireCalls).To(Equal(0))
		})

		It("should surface vault failures", func() {
			vault.acquireError = internal.ErrTokenExpiredNoRefresh
			seedConnection("conn-1", strPtr("tenant-1"))

			_, err := service.AcquireToken(ctx, "user-1", "tenant-1", "conn-1")

			Expect(err).To(MatchError(internal.ErrTokenExpiredNoRefresh))
		})

		It("should deny a user without the refresh permission", func() {
			seedConnection("conn-1", strPtr("tenant-1"))

			_, err := service.AcquireToken(ctx, "user-2", "tenant-1", "conn-1")

			Expect(err).To(MatchError(internal.ErrForbidden))
		})
	})
})
