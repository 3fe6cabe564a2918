package events

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventTypeJobCreated   = "job.created"
	EventTypeJobCompleted = "job.completed"
	EventTypeJobFailed    = "job.failed"
)

type JobCreatedEvent struct {
	BaseEvent
	JobID        string `json:"job_id"`
	ConnectionID string `json:"connection_id"`
	TenantID     string `json:"tenant_id"`
	InitiatedBy  string `json:"initiated_by"`
}

func NewJobCreatedEvent(jobID, connectionID, tenantID, initiatedBy string) *JobCreatedEvent {
	return &JobCreatedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypeJobCreated,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"job_id":        jobID,
				"connection_id": connectionID,
				"tenant_id":     tenantID,
				"initiated_by":  initiatedBy,
			},
		},
		JobID:        jobID,
		ConnectionID: connectionID,
		TenantID:     tenantID,
		InitiatedBy:  initiatedBy,
	}
}

type JobCompletedEvent struct {
	BaseEvent
	JobID        string        `json:"job_id"`
	ConnectionID string        `json:"connection_id"`
	Duration     time.Duration `json:"duration"`
}

func NewJobCompletedEvent(jobID, connectionID string, duration time.Duration) *JobCompletedEvent {
	return &JobCompletedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypeJobCompleted,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"job_id":        jobID,
				"connection_id": connectionID,
				"duration_ms":   duration.Milliseconds(),
			},
		},
		JobID:        jobID,
		ConnectionID: connectionID,
		Duration:     duration,
	}
}

type JobFailedEvent struct {
	BaseEvent
	JobID        string `json:"job_id"`
	ConnectionID string `json:"connection_id"`
	Reason       string `json:"reason"`
}

func NewJobFailedEvent(jobID, connectionID, reason string) *JobFailedEvent {
	return &JobFailedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypeJobFailed,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"job_id":        jobID,
				"connection_id": connectionID,
				"reason":        reason,
			},
		},
		JobID:        jobID,
		ConnectionID: connectionID,
		Reason:       reason,
	}
}
