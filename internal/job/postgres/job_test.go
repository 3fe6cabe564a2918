package postgres

import (
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/frahmantamala/integration-hub/internal"
	"github.com/frahmantamala/integration-hub/internal/job"
)

func TestJobRepository(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "JobRepository Suite")
}

type SQLiteAnalysisJob struct {
	ID                 string     `gorm:"primaryKey"`
	TenantID           *string    `gorm:"column:tenant_id"`
	ConnectionID       string     `gorm:"column:connection_id;not null"`
	ConnectionName     string     `gorm:"column:connection_name;not null"`
	ExternalTenantID   *string    `gorm:"column:external_tenant_id"`
	ExternalTenantName *string    `gorm:"column:external_tenant_name"`
	Status             string     `gorm:"column:status;not null"`
	InitiatedAt        time.Time  `gorm:"column:initiated_at"`
	CompletedAt        *time.Time `gorm:"column:completed_at"`
	ResultData         []byte     `gorm:"column:result_data"`
	ErrorMessage       *string    `gorm:"column:error_message"`
	Progress           int        `gorm:"column:progress;default:0"`
	ProgressMessage    string     `gorm:"column:progress_message"`
	UpdatedAt          time.Time  `gorm:"column:updated_at"`
}

func (SQLiteAnalysisJob) TableName() string {
	return "analysis_jobs"
}

var _ = Describe("JobRepository", func() {
	var (
		db   *gorm.DB
		repo job.Repository
	)

	strPtr := func(s string) *string { return &s }

	seedJob := func(id, tenantID, status string, initiatedAt time.Time) *job.Job {
		j := &job.Job{
			ID:              id,
			TenantID:        strPtr(tenantID),
			ConnectionID:    "conn-1",
			ConnectionName:  "Main Ledger",
			Status:          status,
			InitiatedAt:     initiatedAt,
			ProgressMessage: "Queued",
			UpdatedAt:       initiatedAt,
		}
		Expect(repo.Create(j)).To(Succeed())
		return j
	}

	BeforeEach(func() {
		var err error

		db, err = gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
		Expect(err).NotTo(HaveOccurred())

		err = db.AutoMigrate(&SQLiteAnalysisJob{})
		Expect(err).NotTo(HaveOccurred())

		repo = NewJobRepository(db)
	})

	AfterEach(func() {
		sqlDB, err := db.DB()
		Expect(err).NotTo(HaveOccurred())
		err = sqlDB.Close()
		Expect(err).NotTo(HaveOccurred())
	})

	Describe("Create and GetByID", func() {
		It("should persist a job and read it back", func() {
			seedJob("job-1", "tenant-1", job.StatusPending, time.Now())

			found, err := repo.GetByID("job-1")

			Expect(err).NotTo(HaveOccurred())
			Expect(found.ID).To(Equal("job-1"))
			Expect(found.Status).To(Equal(job.StatusPending))
			Expect(found.ConnectionName).To(Equal("Main Ledger"))
		})

		It("should return ErrJobNotFound for an unknown id", func() {
			_, err := repo.GetByID("missing")

			Expect(err).To(MatchError(internal.ErrJobNotFound))
		})
	})

	Describe("GetForTenant", func() {
		It("should return a job belonging to the tenant", func() {
			seedJob("job-1", "tenant-1", job.StatusPending, time.Now())

			found, err := repo.GetForTenant("job-1", "tenant-1")

			Expect(err).NotTo(HaveOccurred())
			Expect(found.ID).To(Equal("job-1"))
		})

		It("should hide another tenant's job behind ErrJobNotFound", func() {
			seedJob("job-1", "tenant-1", job.StatusPending, time.Now())

			_, err := repo.GetForTenant("job-1", "tenant-2")

			Expect(err).To(MatchError(internal.ErrJobNotFound))
		})
	})

	Describe("ListForTenant", func() {
		It("should list only the tenant's jobs, newest first", func() {
			base := time.Now()
			seedJob("job-old", "tenant-1", job.StatusCompleted, base.Add(-2*time.Hour))
			seedJob("job-new", "tenant-1", job.StatusPending, base)
			seedJob("job-other", "tenant-2", job.StatusPending, base)

			jobs, err := repo.ListForTenant("tenant-1", 10, 0)

			Expect(err).NotTo(HaveOccurred())
			Expect(jobs).To(HaveLen(2))
			Expect(jobs[0].ID).To(Equal("job-new"))
			Expect(jobs[1].ID).To(Equal("job-old"))
		})

		It("should honor limit and offset", func() {
			base := time.Now()
			seedJob("job-1", "tenant-1", job.StatusPending, base.Add(-3*time.Hour))
			seedJob("job-2", "tenant-1", job.StatusPending, base.Add(-2*time.Hour))
			seedJob("job-3", "tenant-1", job.StatusPending, base.Add(-1*time.Hour))

			jobs, err := repo.ListForTenant("tenant-1", 1, 1)

			Expect(err).NotTo(HaveOccurred())
			Expect(jobs).To(HaveLen(1))
			Expect(jobs[0].ID).To(Equal("job-2"))
		})
	})

	Describe("TransitionStatus", func() {
		It("should move a pending job to running when the prior state matches", func() {
			seedJob("job-1", "tenant-1", job.StatusPending, time.Now())
			message := "Starting analysis"

			ok, err := repo.TransitionStatus("job-1", []string{job.StatusPending}, job.StatusRunning, job.StatusUpdate{
				ProgressMessage: &message,
			})

			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeTrue())

			found, _ := repo.GetByID("job-1")
			Expect(found.Status).To(Equal(job.StatusRunning))
			Expect(found.ProgressMessage).To(Equal("Starting analysis"))
		})

		It("should report false when the current state is not in the accepted set", func() {
			seedJob("job-1", "tenant-1", job.StatusCompleted, time.Now())

			ok, err := repo.TransitionStatus("job-1", []string{job.StatusPending}, job.StatusRunning, job.StatusUpdate{})

			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeFalse())

			found, _ := repo.GetByID("job-1")
			Expect(found.Status).To(Equal(job.StatusCompleted))
		})

		It("should report false for a nonexistent job", func() {
			ok, err := repo.TransitionStatus("missing", []string{job.StatusPending}, job.StatusRunning, job.StatusUpdate{})

			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeFalse())
		})

		It("should let only the first of two competing transitions win", func() {
			seedJob("job-1", "tenant-1", job.StatusPending, time.Now())

			first, err := repo.TransitionStatus("job-1", []string{job.StatusPending}, job.StatusRunning, job.StatusUpdate{})
			Expect(err).NotTo(HaveOccurred())
			second, err := repo.TransitionStatus("job-1", []string{job.StatusPending}, job.StatusRunning, job.StatusUpdate{})
			Expect(err).NotTo(HaveOccurred())

			Expect(first).To(BeTrue())
			Expect(second).To(BeFalse())
		})

		It("should write the terminal fields along with the status", func() {
			seedJob("job-1", "tenant-1", job.StatusRunning, time.Now())
			now := time.Now()
			progress := 100
			message := "Analysis complete"

			ok, err := repo.TransitionStatus("job-1", []string{job.StatusRunning}, job.StatusCompleted, job.StatusUpdate{
				Progress:        &progress,
				ProgressMessage: &message,
				ResultData:      []byte(`{"risk":"low"}`),
				CompletedAt:     &now,
			})

			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeTrue())

			found, _ := repo.GetByID("job-1")
			Expect(found.Status).To(Equal(job.StatusCompleted))
			Expect(found.Progress).To(Equal(100))
			Expect(found.ResultData).To(Equal([]byte(`{"risk":"low"}`)))
			Expect(found.CompletedAt).NotTo(BeNil())
		})

		It("should accept a transition from any of several prior states", func() {
			seedJob("job-1", "tenant-1", job.StatusPending, time.Now())
			errorMessage := "job queue full"

			ok, err := repo.TransitionStatus("job-1", []string{job.StatusPending, job.StatusRunning}, job.StatusFailed, job.StatusUpdate{
				ErrorMessage: &errorMessage,
			})

			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeTrue())

			found, _ := repo.GetByID("job-1")
			Expect(found.Status).To(Equal(job.StatusFailed))
			Expect(*found.ErrorMessage).To(Equal("job queue full"))
		})
	})

	Describe("UpdateProgress", func() {
		It("should write progress while the job is running", func() {
			seedJob("job-1", "tenant-1", job.StatusRunning, time.Now())

			ok, err := repo.UpdateProgress("job-1", 40, "Fetching payroll data")

			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeTrue())

			found, _ := repo.GetByID("job-1")
			Expect(found.Progress).To(Equal(40))
			Expect(found.ProgressMessage).To(Equal("Fetching payroll data"))
		})

		It("should report false for a pending job", func() {
			seedJob("job-1", "tenant-1", job.StatusPending, time.Now())

			ok, err := repo.UpdateProgress("job-1", 40, "too early")

			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeFalse())
		})

		It("should never touch a terminal row", func() {
			seedJob("job-1", "tenant-1", job.StatusCompleted, time.Now())

			ok, err := repo.UpdateProgress("job-1", 40, "late update")

			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeFalse())

			found, _ := repo.GetByID("job-1")
			Expect(found.ProgressMessage).To(Equal("Queued"))
		})
	})

	Describe("ListRunningSince", func() {
		It("should return running jobs whose last update predates the cutoff", func() {
			base := time.Now()
			seedJob("job-stuck", "tenant-1", job.StatusRunning, base.Add(-2*time.Hour))
			seedJob("job-fresh", "tenant-1", job.StatusRunning, base)
			seedJob("job-done", "tenant-1", job.StatusCompleted, base.Add(-2*time.Hour))

			jobs, err := repo.ListRunningSince(base.Add(-time.Hour))

			Expect(err).NotTo(HaveOccurred())
			Expect(jobs).To(HaveLen(1))
			Expect(jobs[0].ID).To(Equal("job-stuck"))
		})
	})
})
