package job

import (
	"github.com/frahmantamala/integration-hub/internal/core/common/validation"

	errors "github.com/frahmantamala/integration-hub/internal"
)

type CreateJobDTO struct {
	ConnectionID     string  `json:"connection_id"`
	ExternalTenantID *string `json:"external_tenant_id,omitempty"`
}

func (d CreateJobDTO) Validate() *errors.AppError {
	v := validation.NewValidator()
	v.Field("connection_id", d.ConnectionID).Required()
	return v.Validate()
}

// JobStatusDTO is the polling shape returned while a job is in flight; the
// full result payload is only attached once the job completes.
type JobStatusDTO struct {
	ID              string  `json:"id"`
	Status          string  `json:"status"`
	Progress        int     `json:"progress"`
	ProgressMessage string  `json:"progress_message"`
	ErrorMessage    *string `json:"error_message,omitempty"`
}

func StatusFromJob(j *Job) JobStatusDTO {
	return JobStatusDTO{
		ID:              j.ID,
		Status:          j.Status,
		Progress:        j.Progress,
		ProgressMessage: j.ProgressMessage,
		ErrorMessage:    j.ErrorMessage,
	}
}
