package job

import "time"

// AnalysisJob is the persistence model for one analysis run. Connection and
// external tenant names are denormalized so a job row stays readable after
// the connection is gone.
type AnalysisJob struct {
	ID                 string     `gorm:"primaryKey"`
	TenantID           *string    `gorm:"column:tenant_id;index"`
	ConnectionID       string     `gorm:"column:connection_id;not null;index"`
	ConnectionName     string     `gorm:"column:connection_name;not null"`
	ExternalTenantID   *string    `gorm:"column:external_tenant_id"`
	ExternalTenantName *string    `gorm:"column:external_tenant_name"`
	Status             string     `gorm:"column:status;not null;index"`
	InitiatedAt        time.Time  `gorm:"column:initiated_at;index"`
	CompletedAt        *time.Time `gorm:"column:completed_at"`
	ResultData         []byte     `gorm:"column:result_data"`
	ErrorMessage       *string    `gorm:"column:error_message"`
	Progress           int        `gorm:"column:progress;default:0"`
	ProgressMessage    string     `gorm:"column:progress_message"`
	UpdatedAt          time.Time  `gorm:"column:updated_at"`
}

func (AnalysisJob) TableName() string {
	return "analysis_jobs"
}
