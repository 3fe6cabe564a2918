package job

import (
	"time"

	jobDatamodel "github.com/frahmantamala/integration-hub/internal/core/datamodel/job"
)

// Job statuses. The lifecycle is pending -> running -> {completed, failed};
// no transition ever leaves a terminal state.
const (
	StatusPending   = "pending"
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

func IsTerminal(status string) bool {
	return status == StatusCompleted || status == StatusFailed
}

// Job is one asynchronous analysis run. Connection and external tenant names
// are denormalized at creation time so the record stays readable after the
// connection is deleted. ResultData is an opaque blob owned by the analysis
// engine.
type Job struct {
	ID                 string     `json:"id"`
	TenantID           *string    `json:"tenant_id,omitempty"`
	ConnectionID       string     `json:"connection_id"`
	ConnectionName     string     `json:"connection_name"`
	ExternalTenantID   *string    `json:"external_tenant_id,omitempty"`
	ExternalTenantName *string    `json:"external_tenant_name,omitempty"`
	Status             string     `json:"status"`
	InitiatedAt        time.Time  `json:"initiated_at"`
	CompletedAt        *time.Time `json:"completed_at,omitempty"`
	ResultData         []byte     `json:"result_data,omitempty"`
	ErrorMessage       *string    `json:"error_message,omitempty"`
	Progress           int        `json:"progress"`
	ProgressMessage    string     `json:"progress_message"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

func (j *Job) IsTerminal() bool {
	return IsTerminal(j.Status)
}

// StatusUpdate carries the fields written together with a status
// transition. Nil fields are left untouched.
type StatusUpdate struct {
	Progress        *int
	ProgressMessage *string
	ResultData      []byte
	ErrorMessage    *string
	CompletedAt     *time.Time
}

func ToDataModel(j *Job) *jobDatamodel.AnalysisJob {
	return &jobDatamodel.AnalysisJob{
		ID:                 j.ID,
		TenantID:           j.TenantID,
		ConnectionID:       j.ConnectionID,
		ConnectionName:     j.ConnectionName,
		ExternalTenantID:   j.ExternalTenantID,
		ExternalTenantName: j.ExternalTenantName,
		Status:             j.Status,
		InitiatedAt:        j.InitiatedAt,
		CompletedAt:        j.CompletedAt,
		ResultData:         j.ResultData,
		ErrorMessage:       j.ErrorMessage,
		Progress:           j.Progress,
		ProgressMessage:    j.ProgressMessage,
		UpdatedAt:          j.UpdatedAt,
	}
}

func FromDataModel(dm *jobDatamodel.AnalysisJob) *Job {
	return &Job{
		ID:                 dm.ID,
		TenantID:           dm.TenantID,
		ConnectionID:       dm.ConnectionID,
		ConnectionName:     dm.ConnectionName,
		ExternalTenantID:   dm.ExternalTenantID,
		ExternalTenantName: dm.ExternalTenantName,
		Status:             dm.Status,
		InitiatedAt:        dm.InitiatedAt,
		CompletedAt:        dm.CompletedAt,
		ResultData:         dm.ResultData,
		ErrorMessage:       dm.ErrorMessage,
		Progress:           dm.Progress,
		ProgressMessage:    dm.ProgressMessage,
		UpdatedAt:          dm.UpdatedAt,
	}
}
