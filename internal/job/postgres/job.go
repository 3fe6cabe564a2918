package postgres

import (
	"time"

	"gorm.io/gorm"

	"github.com/frahmantamala/integration-hub/internal"
	jobDatamodel "github.com/frahmantamala/integration-hub/internal/core/datamodel/job"
	"github.com/frahmantamala/integration-hub/internal/job"
)

// JobRepository implements the job.Repository interface using GORM. Status
// transitions are conditional updates on the status column; the affected row
// count is what tells a losing racer it lost.
type JobRepository struct {
	db *gorm.DB
}

func NewJobRepository(db *gorm.DB) job.Repository {
	return &JobRepository{db: db}
}

func (r *JobRepository) Create(j *job.Job) error {
	return r.db.Create(job.ToDataModel(j)).Error
}

func (r *JobRepository) GetByID(id string) (*job.Job, error) {
	var dm jobDatamodel.AnalysisJob
	err := r.db.Where("id = ?", id).First(&dm).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, internal.ErrJobNotFound
		}
		return nil, err
	}
	return job.FromDataModel(&dm), nil
}

// GetForTenant retrieves a job only if it belongs to the tenant. A job in
// another tenant is indistinguishable from a missing one.
func (r *JobRepository) GetForTenant(id, tenantID string) (*job.Job, error) {
	var dm jobDatamodel.AnalysisJob
	err := r.db.Where("id = ? AND tenant_id = ?", id, tenantID).First(&dm).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, internal.ErrJobNotFound
		}
		return nil, err
	}
	return job.FromDataModel(&dm), nil
}

func (r *JobRepository) ListForTenant(tenantID string, limit, offset int) ([]*job.Job, error) {
	var dms []*jobDatamodel.AnalysisJob
	err := r.db.Where("tenant_id = ?", tenantID).
		Order("initiated_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&dms).Error
	if err != nil {
		return nil, err
	}

	jobs := make([]*job.Job, 0, len(dms))
	for _, dm := range dms {
		jobs = append(jobs, job.FromDataModel(dm))
	}
	return jobs, nil
}

// TransitionStatus moves the job to a new status only when its current status
// is one of the expected prior states. Returns false when the row did not
// match, which covers both a lost race and a nonexistent job.
func (r *JobRepository) TransitionStatus(id string, from []string, to string, update job.StatusUpdate) (bool, error) {
	updates := map[string]interface{}{
		"status":     to,
		"updated_at": time.Now(),
	}
	if update.Progress != nil {
		updates["progress"] = *update.Progress
	}
	if update.ProgressMessage != nil {
		updates["progress_message"] = *update.ProgressMessage
	}
	if update.ResultData != nil {
		updates["result_data"] = update.ResultData
	}
	if update.ErrorMessage != nil {
		updates["error_message"] = *update.ErrorMessage
	}
	if update.CompletedAt != nil {
		updates["completed_at"] = *update.CompletedAt
	}

	result := r.db.Model(&jobDatamodel.AnalysisJob{}).
		Where("id = ? AND status IN ?", id, from).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// UpdateProgress writes progress only while the job is still running, so a
// late update can never touch a terminal row.
func (r *JobRepository) UpdateProgress(id string, progress int, message string) (bool, error) {
	result := r.db.Model(&jobDatamodel.AnalysisJob{}).
		Where("id = ? AND status = ?", id, job.StatusRunning).
		Updates(map[string]interface{}{
			"progress":         progress,
			"progress_message": message,
			"updated_at":       time.Now(),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// ListRunningSince returns running jobs whose last update is older than the
// cutoff; the reaper fails them.
func (r *JobRepository) ListRunningSince(before time.Time) ([]*job.Job, error) {
	var dms []*jobDatamodel.AnalysisJob
	err := r.db.Where("status = ? AND updated_at < ?", job.StatusRunning, before).
		Find(&dms).Error
	if err != nil {
		return nil, err
	}

	jobs := make([]*job.Job, 0, len(dms))
	for _, dm := range dms {
		jobs = append(jobs, job.FromDataModel(dm))
	}
	return jobs, nil
}
