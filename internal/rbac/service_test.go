package rbac_test

import (
	"context"
	"log/slog"
	"os"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/integration-hub/internal"
	"github.com/frahmantamala/integration-hub/internal/rbac"
)

var _ = Describe("RBACService", func() {
	var (
		repo    *mockRepository
		service *rbac.Service
		logger  *slog.Logger
		ctx     context.Context
	)

	seedRole := func(id, tenantID, name string, isSystemRole bool) {
		repo.roles[id] = &rbac.Role{
			ID:           id,
			TenantID:     tenantID,
			Name:         name,
			IsSystemRole: isSystemRole,
		}
	}

	BeforeEach(func() {
		ctx = context.Background()
		repo = newMockRepository()
		repo.grant("admin-1", "tenant-1", "role-admin",
			rbac.Permission{Resource: rbac.ResourceRole, Action: rbac.ActionManage},
		)
		logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelError,
		}))

		gate := rbac.NewGate(rbac.NewResolver(repo, logger), logger)
		service = rbac.NewService(repo, gate, logger)
	})

	Describe("CreateRole", func() {
		It("should create a role scoped to the acting tenant", func() {
			role, err := service.CreateRole(ctx, "admin-1", "tenant-1", rbac.CreateRoleDTO{
				Name:        "auditor",
				Description: "read-only access for external auditors",
			})

			Expect(err).NotTo(HaveOccurred())
			Expect(role.ID).NotTo(BeEmpty())
			Expect(role.TenantID).To(Equal("tenant-1"))
			Expect(repo.roles).To(HaveKey(role.ID))
		})

		It("should reject a name that is too short", func() {
			_, err := service.CreateRole(ctx, "admin-1", "tenant-1", rbac.CreateRoleDTO{Name: "x"})

			Expect(err).To(HaveOccurred())
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Type).To(Equal(internal.ErrorTypeValidation))
		})

		It("should deny a user without role management", func() {
			_, err := service.CreateRole(ctx, "user-1", "tenant-1", rbac.CreateRoleDTO{Name: "auditor"})

			Expect(err).To(MatchError(internal.ErrForbidden))
			Expect(repo.roles).To(BeEmpty())
		})
	})

	Describe("DeleteRole", func() {
		It("should delete a custom role", func() {
			seedRole("role-custom", "tenant-1", "auditor", false)

			Expect(service.DeleteRole(ctx, "admin-1", "tenant-1", "role-custom")).To(Succeed())
			Expect(repo.deletedRoles).To(Equal([]string{"role-custom"}))
		})

		It("should protect system roles", func() {
			seedRole("role-system", "tenant-1", "admin", true)

			err := service.DeleteRole(ctx, "admin-1", "tenant-1", "role-system")

			Expect(err).To(MatchError(internal.ErrSystemRoleProtected))
			Expect(repo.deletedRoles).To(BeEmpty())
		})

		It("should not delete a role belonging to another tenant", func() {
			seedRole("role-other", "tenant-2", "auditor", false)

			err := service.DeleteRole(ctx, "admin-1", "tenant-1", "role-other")

			Expect(err).To(MatchError(internal.ErrForbidden))
			Expect(repo.deletedRoles).To(BeEmpty())
		})

		It("should return ErrRoleNotFound for an unknown role", func() {
			err := service.DeleteRole(ctx, "admin-1", "tenant-1", "missing")

			Expect(err).To(MatchError(internal.ErrRoleNotFound))
		})
	})

	Describe("AssignRole", func() {
		It("should assign a tenant role to a user", func() {
			seedRole("role-custom", "tenant-1", "auditor", false)

			err := service.AssignRole(ctx, "admin-1", "tenant-1", rbac.AssignRoleDTO{
				UserID: "user-5",
				RoleID: "role-custom",
			})

			Expect(err).NotTo(HaveOccurred())
			Expect(repo.assignments).To(HaveLen(1))
			Expect(repo.assignments[0].UserID).To(Equal("user-5"))
			Expect(repo.assignments[0].TenantID).To(Equal("tenant-1"))
		})

		It("should refuse to assign another tenant's role", func() {
			seedRole("role-other", "tenant-2", "auditor", false)

			err := service.AssignRole(ctx, "admin-1", "tenant-1", rbac.AssignRoleDTO{
				UserID: "user-5",
				RoleID: "role-other",
			})

			Expect(err).To(MatchError(internal.ErrForbidden))
			Expect(repo.assignments).To(BeEmpty())
		})

		It("should require both user and role ids", func() {
			err := service.AssignRole(ctx, "admin-1", "tenant-1", rbac.AssignRoleDTO{UserID: "user-5"})

			Expect(err).To(HaveOccurred())
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Type).To(Equal(internal.ErrorTypeValidation))
		})
	})

	Describe("UnassignRole", func() {
		It("should remove an existing assignment", func() {
			seedRole("role-custom", "tenant-1", "auditor", false)
			Expect(service.AssignRole(ctx, "admin-1", "tenant-1", rbac.AssignRoleDTO{
				UserID: "user-5",
				RoleID: "role-custom",
			})).To(Succeed())

			err := service.UnassignRole(ctx, "admin-1", "tenant-1", rbac.AssignRoleDTO{
				UserID: "user-5",
				RoleID: "role-custom",
			})

			Expect(err).NotTo(HaveOccurred())
			Expect(repo.assignments).To(BeEmpty())
		})

		It("should report a missing assignment", func() {
			err := service.UnassignRole(ctx, "admin-1", "tenant-1", rbac.AssignRoleDTO{
				UserID: "user-5",
				RoleID: "role-custom",
			})

			Expect(err).To(MatchError(internal.ErrRoleNotFound))
		})
	})

	Describe("CheckPermission", func() {
		It("should report the caller's own effective permission", func() {
			allowed, err := service.CheckPermission(ctx, "admin-1", "tenant-1", rbac.ResourceRole, rbac.ActionManage)

			Expect(err).NotTo(HaveOccurred())
			Expect(allowed).To(BeTrue())
		})

		It("should not require any grant to ask", func() {
			allowed, err := service.CheckPermission(ctx, "user-1", "tenant-1", rbac.ResourceJob, rbac.ActionCreate)

			Expect(err).NotTo(HaveOccurred())
			Expect(allowed).To(BeFalse())
		})
	})
})
