package job_test

import (
	"context"
	"log/slog"
	"os"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/integration-hub/internal"
	"github.com/frahmantamala/integration-hub/internal/connection"
	"github.com/frahmantamala/integration-hub/internal/job"
	"github.com/frahmantamala/integration-hub/internal/rbac"
)

type mockAccessRepository struct {
	// roleIDs is keyed by userID + "|" + tenantID
	roleIDs     map[string][]string
	permissions map[string][]rbac.Permission
	lookupError error
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
	if m.lookupError != nil {
		return nil, m.lookupError
	}
	return m.roleIDs[userID+"|"+tenantID], nil
}

func (m *mockAccessRepository) GetPermissionsForRoles(roleIDs []string) ([]rbac.Permission, error) {
	if m.lookupError != nil {
		return nil, m.lookupError
	}
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

type mockConnectionReader struct {
	connections map[string]*connection.Connection
	getError    error
}

func (m *mockConnectionReader) GetForTenant(id, tenantID string) (*connection.Connection, error) {
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
	return conn, nil
}

type mockEnqueuer struct {
	enqueued     []string
	enqueueError error
}

func (m *mockEnqueuer) Enqueue(jobID string) error {
	if m.enqueueError != nil {
		return m.enqueueError
	}
	m.enqueued = append(m.enqueued, jobID)
	return nil
}

var _ = Describe("Service", func() {
	var (
		repo        *mockJobRepository
		manager     *job.Manager
		access      *mockAccessRepository
		gate        *rbac.Gate
		connections *mockConnectionReader
		enqueuer    *mockEnqueuer
		service     *job.Service
		logger      *slog.Logger
		ctx         context.Context
	)

	strPtr := func(s string) *string { return &s }

	jobPermissions := []rbac.Permission{
		{ID: "p-1", Resource: rbac.ResourceJob, Action: rbac.ActionCreate},
		{ID: "p-2", Resource: rbac.ResourceJob, Action: rbac.ActionRead},
		{ID: "p-3", Resource: rbac.ResourceJob, Action: rbac.ActionCancel},
	}

	seedConnection := func(id string, tenantID *string, links ...connection.ExternalTenantLink) {
		connections.connections[id] = &connection.Connection{
			ID:       id,
			TenantID: tenantID,
			Software: "xero",
			Name:     "Main Ledger",
			Links:    links,
		}
	}

	BeforeEach(func() {
		ctx = context.Background()
		repo = newMockJobRepository()
		logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelError,
		}))
		manager = job.NewManager(repo, nil, logger)

		access = newMockAccessRepository()
		access.grant("user-1", "tenant-1", "role-analyst", jobPermissions...)
		gate = rbac.NewGate(rbac.NewResolver(access, logger), logger)

		connections = &mockConnectionReader{connections: make(map[string]*connection.Connection)}
		enqueuer = &mockEnqueuer{}
		service = job.NewService(manager, connections, gate, enqueuer, nil, logger)
	})

	Describe("CreateJob", func() {
		It("should create a pending job and enqueue it", func() {
			seedConnection("conn-1", strPtr("tenant-1"))

			created, err := service.CreateJob(ctx, "user-1", "tenant-1", job.CreateJobDTO{
				ConnectionID: "conn-1",
			})

			Expect(err).NotTo(HaveOccurred())
			Expect(created.Status).To(Equal(job.StatusPending))
			Expect(created.ConnectionName).To(Equal("Main Ledger"))
			Expect(enqueuer.enqueued).To(Equal([]string{created.ID}))
		})

		It("should auto-select the organization when the connection has exactly one link", func() {
			seedConnection("conn-1", strPtr("tenant-1"), connection.ExternalTenantLink{
				ExternalTenantID:   "org-1",
				ExternalTenantName: "Acme NZ",
			})

			created, err := service.CreateJob(ctx, "user-1", "tenant-1", job.CreateJobDTO{
				ConnectionID: "conn-1",
			})

			Expect(err).NotTo(HaveOccurred())
			Expect(created.ExternalTenantID).NotTo(BeNil())
			Expect(*created.ExternalTenantID).To(Equal("org-1"))
			Expect(*created.ExternalTenantName).To(Equal("Acme NZ"))
		})

		It("should use the requested organization when it is linked", func() {
			seedConnection("conn-1", strPtr("tenant-1"),
				connection.ExternalTenantLink{ExternalTenantID: "org-1", ExternalTenantName: "Acme NZ"},
				connection.ExternalTenantLink{ExternalTenantID: "org-2", ExternalTenantName: "Acme AU"},
			)

			created, err := service.CreateJob(ctx, "user-1", "tenant-1", job.CreateJobDTO{
				ConnectionID:     "conn-1",
				ExternalTenantID: strPtr("org-2"),
			})

			Expect(err).NotTo(HaveOccurred())
			Expect(*created.ExternalTenantID).To(Equal("org-2"))
			Expect(*created.ExternalTenantName).To(Equal("Acme AU"))
		})

		It("should reject an organization the connection is not linked to", func() {
			seedConnection("conn-1", strPtr("tenant-1"), connection.ExternalTenantLink{
				ExternalTenantID: "org-1",
			})

			_, err := service.CreateJob(ctx, "user-1", "tenant-1", job.CreateJobDTO{
				ConnectionID:     "conn-1",
				ExternalTenantID: strPtr("org-999"),
			})

			Expect(err).To(HaveOccurred())
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Type).To(Equal(internal.ErrorTypeValidation))
			Expect(enqueuer.enqueued).To(BeEmpty())
		})

		It("should require an explicit organization when several are linked", func() {
			seedConnection("conn-1", strPtr("tenant-1"),
				connection.ExternalTenantLink{ExternalTenantID: "org-1"},
				connection.ExternalTenantLink{ExternalTenantID: "org-2"},
			)

			_, err := service.CreateJob(ctx, "user-1", "tenant-1", job.CreateJobDTO{
				ConnectionID: "conn-1",
			})

			Expect(err).To(HaveOccurred())
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Type).To(Equal(internal.ErrorTypeValidation))
		})

		It("should require a connection id", func() {
			_, err := service.CreateJob(ctx, "user-1", "tenant-1", job.CreateJobDTO{})

			Expect(err).To(HaveOccurred())
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Type).To(Equal(internal.ErrorTypeValidation))
		})

		It("should deny a user without the create permission", func() {
			seedConnection("conn-1", strPtr("tenant-1"))

			_, err := service.CreateJob(ctx, "user-2", "tenant-1", job.CreateJobDTO{
				ConnectionID: "conn-1",
			})

			Expect(err).To(MatchError(internal.ErrForbidden))
			Expect(enqueuer.enqueued).To(BeEmpty())
		})

		It("should report not found for a connection owned by another tenant", func() {
			seedConnection("conn-1", strPtr("tenant-2"))

			_, err := service.CreateJob(ctx, "user-1", "tenant-1", job.CreateJobDTO{
				ConnectionID: "conn-1",
			})

			Expect(err).To(MatchError(internal.ErrConnectionNotFound))
		})

		It("should allow a job against a globally shared connection", func() {
			seedConnection("conn-global", nil)

			created, err := service.CreateJob(ctx, "user-1", "tenant-1", job.CreateJobDTO{
				ConnectionID: "conn-global",
			})

			Expect(err).NotTo(HaveOccurred())
			Expect(created.TenantID).NotTo(BeNil())
			Expect(*created.TenantID).To(Equal("tenant-1"))
		})

		It("should fail the job when the executor queue is full", func() {
			enqueuer.enqueueError = internal.ErrJobQueueFull
			seedConnection("conn-1", strPtr("tenant-1"))

			_, err := service.CreateJob(ctx, "user-1", "tenant-1", job.CreateJobDTO{
				ConnectionID: "conn-1",
			})

			Expect(err).To(MatchError(internal.ErrJobQueueFull))

			jobs, listErr := manager.List("tenant-1", 10, 0)
			Expect(listErr).NotTo(HaveOccurred())
			Expect(jobs).To(HaveLen(1))
			Expect(jobs[0].Status).To(Equal(job.StatusFailed))
			Expect(*jobs[0].ErrorMessage).To(Equal("job queue full"))
		})
	})

	Describe("GetStatus", func() {
		It("should return the job for its own tenant", func() {
			seedConnection("conn-1", strPtr("tenant-1"))
			created, err := service.CreateJob(ctx, "user-1", "tenant-1", job.CreateJobDTO{ConnectionID: "conn-1"})
			Expect(err).NotTo(HaveOccurred())

			found, err := service.GetStatus(ctx, "user-1", "tenant-1", created.ID)

			Expect(err).NotTo(HaveOccurred())
			Expect(found.ID).To(Equal(created.ID))
		})

		It("should hide a job belonging to another tenant behind not found", func() {
			seedConnection("conn-1", strPtr("tenant-1"))
			created, err := service.CreateJob(ctx, "user-1", "tenant-1", job.CreateJobDTO{ConnectionID: "conn-1"})
			Expect(err).NotTo(HaveOccurred())

			access.grant("user-9", "tenant-2", "role-other", jobPermissions...)

			_, err = service.GetStatus(ctx, "user-9", "tenant-2", created.ID)

			Expect(err).To(MatchError(internal.ErrJobNotFound))
		})

		It("should deny a user without the read permission", func() {
			_, err := service.GetStatus(ctx, "user-2", "tenant-1", "job-1")

			Expect(err).To(MatchError(internal.ErrForbidden))
		})
	})

	Describe("Cancel", func() {
		It("should cancel a pending job in the caller's tenant", func() {
			seedConnection("conn-1", strPtr("tenant-1"))
			created, err := service.CreateJob(ctx, "user-1", "tenant-1", job.CreateJobDTO{ConnectionID: "conn-1"})
			Expect(err).NotTo(HaveOccurred())

			Expect(service.Cancel(ctx, "user-1", "tenant-1", created.ID)).To(Succeed())

			current, _ := manager.Get(created.ID)
			Expect(current.Status).To(Equal(job.StatusFailed))
			Expect(*current.ErrorMessage).To(Equal("cancelled"))
		})

		It("should not cancel another tenant's job", func() {
			seedConnection("conn-1", strPtr("tenant-1"))
			created, err := service.CreateJob(ctx, "user-1", "tenant-1", job.CreateJobDTO{ConnectionID: "conn-1"})
			Expect(err).NotTo(HaveOccurred())

			access.grant("user-9", "tenant-2", "role-other", jobPermissions...)

			err = service.Cancel(ctx, "user-9", "tenant-2", created.ID)

			Expect(err).To(MatchError(internal.ErrJobNotFound))
			current, _ := manager.Get(created.ID)
			Expect(current.Status).To(Equal(job.StatusPending))
		})
	})
})
