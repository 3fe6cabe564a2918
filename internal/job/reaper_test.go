package job_test

import (
	"context"
	"log/slog"
	"os"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/integration-hub/internal/job"
)

var _ = Describe("Reaper", func() {
	var (
		repo    *mockJobRepository
		manager *job.Manager
		reaper  *job.Reaper
		logger  *slog.Logger
	)

	strPtr := func(s string) *string { return &s }

	createRunningJob := func(lastUpdated time.Time) *job.Job {
		created, err := manager.Create(job.CreateParams{
			ConnectionID:   "conn-1",
			ConnectionName: "Main Ledger",
			TenantID:       strPtr("tenant-1"),
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(manager.MarkRunning(created.ID)).To(Succeed())

		repo.mu.Lock()
		repo.jobs[created.ID].UpdatedAt = lastUpdated
		repo.mu.Unlock()

		return created
	}

	BeforeEach(func() {
		repo = newMockJobRepository()
		logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelError,
		}))
		manager = job.NewManager(repo, nil, logger)
		reaper = job.NewReaper(manager, 30*time.Minute, logger)
	})

	Describe("Sweep", func() {
		It("should fail a job stuck in running beyond the maximum duration", func() {
			stuck := createRunningJob(time.Now().Add(-time.Hour))

			reaper.Sweep(context.Background())

			current, _ := manager.Get(stuck.ID)
			Expect(current.Status).To(Equal(job.StatusFailed))
			Expect(current.ErrorMessage).NotTo(BeNil())
			Expect(*current.ErrorMessage).To(Equal("execution timeout"))
		})

		It("should leave a recently updated running job alone", func() {
			active := createRunningJob(time.Now())

			reaper.Sweep(context.Background())

			current, _ := manager.Get(active.ID)
			Expect(current.Status).To(Equal(job.StatusRunning))
		})

		It("should leave pending and terminal jobs alone", func() {
			pending, err := manager.Create(job.CreateParams{
				ConnectionID: "conn-1",
				TenantID:     strPtr("tenant-1"),
			})
			Expect(err).NotTo(HaveOccurred())

			done := createRunningJob(time.Now().Add(-time.Hour))
			Expect(manager.Complete(done.ID, nil)).To(Succeed())

			reaper.Sweep(context.Background())

			currentPending, _ := manager.Get(pending.ID)
			Expect(currentPending.Status).To(Equal(job.StatusPending))

			currentDone, _ := manager.Get(done.ID)
			Expect(currentDone.Status).To(Equal(job.StatusCompleted))
		})
	})
})
