package job_test

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/integration-hub/internal"
	"github.com/frahmantamala/integration-hub/internal/job"
)

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

type mockRunner struct {
	result   []byte
	runError error
	runCalls int

	gotToken          string
	gotExternalTenant string

	// beforeReturn runs inside Run, before it returns; tests use it to
	// race a cancel against a finishing analysis.
	beforeReturn func()
}

func (m *mockRunner) Run(ctx context.Context, accessToken, externalTenantID string) ([]byte, error) {
	m.runCalls++
	m.gotToken = accessToken
	m.gotExternalTenant = externalTenantID
	if m.beforeReturn != nil {
		m.beforeReturn()
	}
	if m.runError != nil {
		return nil, m.runError
	}
	return m.result, nil
}

var _ = Describe("Executor", func() {
	var (
		repo     *mockJobRepository
		manager  *job.Manager
		vault    *mockTokenSource
		runner   *mockRunner
		executor *job.Executor
		logger   *slog.Logger
	)

	strPtr := func(s string) *string { return &s }

	createJob := func(externalTenantID *string) *job.Job {
		created, err := manager.Create(job.CreateParams{
			ConnectionID:     "conn-1",
			ConnectionName:   "Main Ledger",
			TenantID:         strPtr("tenant-1"),
			ExternalTenantID: externalTenantID,
		})
		Expect(err).NotTo(HaveOccurred())
		return created
	}

	BeforeEach(func() {
		repo = newMockJobRepository()
		logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelError,
		}))
		manager = job.NewManager(repo, nil, logger)
		vault = &mockTokenSource{token: "valid-access-token"}
		runner = &mockRunner{result: []byte(`{"findings":[]}`)}
		executor = job.NewExecutor(manager, vault, runner, time.Minute, logger)
	})

	Describe("Execute", func() {
		It("should drive a pending job to completed", func() {
			created := createJob(strPtr("org-42"))

			executor.Execute(context.Background(), created.ID)

			current, err := manager.Get(created.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(current.Status).To(Equal(job.StatusCompleted))
			Expect(current.Progress).To(Equal(100))
			Expect(current.ResultData).To(Equal([]byte(`{"findings":[]}`)))

			Expect(runner.runCalls).To(Equal(1))
			Expect(runner.gotToken).To(Equal("valid-access-token"))
			Expect(runner.gotExternalTenant).To(Equal("org-42"))
		})

		It("should pass an empty organization when the job has none", func() {
			created := createJob(nil)

			executor.Execute(context.Background(), created.ID)

			Expect(runner.gotExternalTenant).To(Equal(""))
		})

		It("should fail the job with the token error message when acquisition fails", func() {
			vault.acquireError = internal.ErrTokenExpiredNoRefresh
			created := createJob(nil)

			executor.Execute(context.Background(), created.ID)

			current, _ := manager.Get(created.ID)
			Expect(current.Status).To(Equal(job.StatusFailed))
			Expect(current.ErrorMessage).NotTo(BeNil())
			Expect(*current.ErrorMessage).To(Equal("connection token expired and no refresh token is stored"))
			Expect(runner.runCalls).To(Equal(0))
		})

		It("should fail the job when the analysis run errors", func() {
			runner.runError = errors.New("engine returned 502")
			created := createJob(nil)

			executor.Execute(context.Background(), created.ID)

			current, _ := manager.Get(created.ID)
			Expect(current.Status).To(Equal(job.StatusFailed))
			Expect(*current.ErrorMessage).To(Equal("engine returned 502"))
		})

		It("should do nothing when another executor already owns the job", func() {
			created := createJob(nil)
			Expect(manager.MarkRunning(created.ID)).To(Succeed())

			executor.Execute(context.Background(), created.ID)

			current, _ := manager.Get(created.ID)
			Expect(current.Status).To(Equal(job.StatusRunning))
			Expect(vault.acquireCalls).To(Equal(0))
			Expect(runner.runCalls).To(Equal(0))
		})

		It("should do nothing for a job that is already terminal", func() {
			created := createJob(nil)
			Expect(manager.Fail(created.ID, "cancelled")).To(Succeed())

			executor.Execute(context.Background(), created.ID)

			current, _ := manager.Get(created.ID)
			Expect(current.Status).To(Equal(job.StatusFailed))
			Expect(*current.ErrorMessage).To(Equal("cancelled"))
			Expect(runner.runCalls).To(Equal(0))
		})

		It("should keep the cancelled state when a cancel lands while the analysis finishes", func() {
			created := createJob(nil)
			runner.beforeReturn = func() {
				Expect(manager.Cancel(created.ID)).To(Succeed())
			}

			executor.Execute(context.Background(), created.ID)

			current, _ := manager.Get(created.ID)
			Expect(current.Status).To(Equal(job.StatusFailed))
			Expect(*current.ErrorMessage).To(Equal("cancelled"))
			Expect(current.ResultData).To(BeNil())
		})
	})
})
