package rbac_test

import (
	"context"
	"errors"
	"log/slog"
	"os"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/integration-hub/internal"
	"github.com/frahmantamala/integration-hub/internal/rbac"
)

var _ = Describe("Gate", func() {
	var (
		repo   *mockRepository
		gate   *rbac.Gate
		logger *slog.Logger
		ctx    context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		repo = newMockRepository()
		logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelError,
		}))
		gate = rbac.NewGate(rbac.NewResolver(repo, logger), logger)
	})

	Describe("Authorize", func() {
		It("should run the operation when the permission is granted", func() {
			repo.grant("user-1", "tenant-1", "role-analyst",
				rbac.Permission{Resource: rbac.ResourceJob, Action: rbac.ActionCreate},
			)

			invoked := false
			err := gate.Authorize(ctx, "user-1", "tenant-1", rbac.ResourceJob, rbac.ActionCreate, func(ctx context.Context) error {
				invoked = true
				return nil
			})

			Expect(err).NotTo(HaveOccurred())
			Expect(invoked).To(BeTrue())
		})

		It("should pass the operation's error through unchanged", func() {
			repo.grant("user-1", "tenant-1", "role-analyst",
				rbac.Permission{Resource: rbac.ResourceJob, Action: rbac.ActionRead},
			)

			err := gate.Authorize(ctx, "user-1", "tenant-1", rbac.ResourceJob, rbac.ActionRead, func(ctx context.Context) error {
				return internal.ErrJobNotFound
			})

			Expect(err).To(MatchError(internal.ErrJobNotFound))
		})

		It("should deny without running the operation", func() {
			invoked := false
			err := gate.Authorize(ctx, "user-1", "tenant-1", rbac.ResourceJob, rbac.ActionCreate, func(ctx context.Context) error {
				invoked = true
				return nil
			})

			Expect(err).To(MatchError(internal.ErrForbidden))
			Expect(invoked).To(BeFalse())
		})

		It("should deny an empty user id", func() {
			err := gate.Authorize(ctx, "", "tenant-1", rbac.ResourceJob, rbac.ActionRead, func(ctx context.Context) error {
				Fail("operation must not run")
				return nil
			})

			Expect(err).To(MatchError(internal.ErrForbidden))
		})

		It("should deny an empty tenant id", func() {
			err := gate.Authorize(ctx, "user-1", "", rbac.ResourceJob, rbac.ActionRead, func(ctx context.Context) error {
				Fail("operation must not run")
				return nil
			})

			Expect(err).To(MatchError(internal.ErrForbidden))
		})

		It("should surface resolver failures as internal errors, not denials", func() {
			repo.roleIDsError = errors.New("connection refused")

			err := gate.Authorize(ctx, "user-1", "tenant-1", rbac.ResourceJob, rbac.ActionRead, func(ctx context.Context) error {
				Fail("operation must not run")
				return nil
			})

			Expect(err).To(HaveOccurred())
			Expect(errors.Is(err, internal.ErrForbidden)).To(BeFalse())
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Type).To(Equal(internal.ErrorTypeInternal))
		})
	})
})
