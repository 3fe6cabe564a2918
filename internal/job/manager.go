package job

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/frahmantamala/integration-hub/internal"
	"github.com/frahmantamala/integration-hub/internal/core/events"
)

// Repository defines the data access methods for analysis jobs. Status
// transitions are conditional single-row updates: the bool result reports
// whether the row matched the expected prior state, which is what makes the
// pending -> running guard atomic under concurrent starters.
type Repository interface {
	Create(j *Job) error
	GetByID(id string) (*Job, error)
	GetForTenant(id, tenantID string) (*Job, error)
	ListForTenant(tenantID string, limit, offset int) ([]*Job, error)
	TransitionStatus(id string, from []string, to string, update StatusUpdate) (bool, error)
	UpdateProgress(id string, progress int, message string) (bool, error)
	ListRunningSince(before time.Time) ([]*Job, error)
}

// CreateParams captures everything denormalized onto a new job row.
type CreateParams struct {
	ConnectionID       string
	ConnectionName     string
	TenantID           *string
	ExternalTenantID   *string
	ExternalTenantName *string
}

// Manager owns the job state machine. All writes funnel through it; the
// executor that owns a job is the only writer while it runs, and stale
// writers are rejected by the conditional updates underneath.
type Manager struct {
	repo   Repository
	bus    *events.EventBus
	logger *slog.Logger
}

func NewManager(repo Repository, bus *events.EventBus, logger *slog.Logger) *Manager {
	return &Manager{
		repo:   repo,
		bus:    bus,
		logger: logger,
	}
}

func (m *Manager) Create(params CreateParams) (*Job, error) {
	now := time.Now()
	j := &Job{
		ID:                 uuid.NewString(),
		TenantID:           params.TenantID,
		ConnectionID:       params.ConnectionID,
		ConnectionName:     params.ConnectionName,
		ExternalTenantID:   params.ExternalTenantID,
		ExternalTenantName: params.ExternalTenantName,
		Status:             StatusPending,
		InitiatedAt:        now,
		Progress:           0,
		ProgressMessage:    "Queued",
		UpdatedAt:          now,
	}

	if err := m.repo.Create(j); err != nil {
		m.logger.Error("failed to create job", "error", err, "connection_id", params.ConnectionID)
		return nil, internal.NewInternalError("failed to create analysis job", err)
	}

	m.logger.Info("job created",
		"job_id", j.ID,
		"connection_id", j.ConnectionID,
		"status", j.Status)

	return j, nil
}

// MarkRunning performs the guarded pending -> running transition. Exactly
// one of any number of concurrent callers wins; the rest get
// ErrInvalidTransition.
func (m *Manager) MarkRunning(jobID string) error {
	message := "Starting analysis"
	ok, err := m.repo.TransitionStatus(jobID, []string{StatusPending}, StatusRunning, StatusUpdate{
		ProgressMessage: &message,
	})
	if err != nil {
		return internal.NewInternalError("failed to mark job running", err)
	}
	if !ok {
		return m.classifyRejected(jobID, "mark running")
	}
	return nil
}

// UpdateProgress records progress while the job is running. Percent is
// clamped to [0,100]. An update arriving after a terminal transition is
// rejected with ErrStaleUpdate and never overwrites terminal state; it is
// observability noise, not a fatal condition.
func (m *Manager) UpdateProgress(jobID string, percent int, message string) error {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}

	ok, err := m.repo.UpdateProgress(jobID, percent, message)
	if err != nil {
		return internal.NewInternalError("failed to update job progress", err)
	}
	if !ok {
		current, getErr := m.repo.GetByID(jobID)
		if getErr != nil {
			return getErr
		}
		if current.IsTerminal() {
			m.logger.Warn("stale progress update rejected",
				"job_id", jobID,
				"status", current.Status,
				"progress", percent,
				"message", message)
			return internal.ErrStaleUpdate
		}
		m.logger.Warn("progress update on non-running job",
			"job_id", jobID,
			"status", current.Status)
		return internal.ErrInvalidTransition
	}
	return nil
}

// Complete performs running -> completed, recording the opaque result blob
// and the completion timestamp.
func (m *Manager) Complete(jobID string, resultPayload []byte) error {
	now := time.Now()
	progress := 100
	message := "Analysis complete"
	ok, err := m.repo.TransitionStatus(jobID, []string{StatusRunning}, StatusCompleted, StatusUpdate{
		Progress:        &progress,
		ProgressMessage: &message,
		ResultData:      resultPayload,
		CompletedAt:     &now,
	})
	if err != nil {
		return internal.NewInternalError("failed to complete job", err)
	}
	if !ok {
		return m.classifyRejected(jobID, "complete")
	}

	m.logger.Info("job completed", "job_id", jobID)
	m.publishTerminal(jobID, events.EventTypeJobCompleted, "")
	return nil
}

// Fail moves the job to failed. Besides running -> failed it also accepts
// pending -> failed, for failures that happen before any work started (token
// acquisition, a full queue).
func (m *Manager) Fail(jobID string, errorMessage string) error {
	now := time.Now()
	message := "Error: " + errorMessage
	ok, err := m.repo.TransitionStatus(jobID, []string{StatusPending, StatusRunning}, StatusFailed, StatusUpdate{
		ProgressMessage: &message,
		ErrorMessage:    &errorMessage,
		CompletedAt:     &now,
	})
	if err != nil {
		return internal.NewInternalError("failed to fail job", err)
	}
	if !ok {
		return m.classifyRejected(jobID, "fail")
	}

	m.logger.Warn("job failed", "job_id", jobID, "error_message", errorMessage)
	m.publishTerminal(jobID, events.EventTypeJobFailed, errorMessage)
	return nil
}

// Cancel transitions a pending or running job to failed with message
// "cancelled". Cancelling an already-terminal job is a no-op reported as
// ErrAlreadyTerminal so callers can tell the difference.
func (m *Manager) Cancel(jobID string) error {
	err := m.Fail(jobID, "cancelled")
	if err == nil {
		return nil
	}

	current, getErr := m.repo.GetByID(jobID)
	if getErr != nil {
		return getErr
	}
	if current.IsTerminal() {
		return internal.ErrAlreadyTerminal
	}
	return err
}

func (m *Manager) Get(jobID string) (*Job, error) {
	return m.repo.GetByID(jobID)
}

func (m *Manager) GetForTenant(jobID, tenantID string) (*Job, error) {
	return m.repo.GetForTenant(jobID, tenantID)
}

func (m *Manager) List(tenantID string, limit, offset int) ([]*Job, error) {
	return m.repo.ListForTenant(tenantID, limit, offset)
}

// classifyRejected turns a zero-row conditional update into the right error:
// the job either does not exist or is in a state the transition does not
// accept. InvalidTransition is a race guard, logged as a warning and never
// silently swallowed.
func (m *Manager) classifyRejected(jobID, operation string) error {
	current, err := m.repo.GetByID(jobID)
	if err != nil {
		return err
	}
	m.logger.Warn("rejected job transition",
		"job_id", jobID,
		"operation", operation,
		"current_status", current.Status)
	return internal.ErrInvalidTransition
}

func (m *Manager) publishTerminal(jobID, eventType, reason string) {
	if m.bus == nil {
		return
	}

	j, err := m.repo.GetByID(jobID)
	if err != nil {
		return
	}

	switch eventType {
	case events.EventTypeJobCompleted:
		duration := time.Duration(0)
		if j.CompletedAt != nil {
			duration = j.CompletedAt.Sub(j.InitiatedAt)
		}
		_ = m.bus.Publish(context.Background(), events.NewJobCompletedEvent(j.ID, j.ConnectionID, duration))
	case events.EventTypeJobFailed:
		_ = m.bus.Publish(context.Background(), events.NewJobFailedEvent(j.ID, j.ConnectionID, reason))
	}
}
