package job

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/frahmantamala/integration-hub/internal"
)

// Reaper fails jobs stuck in running beyond the configured maximum duration.
// An executor that crashed mid-run leaves its job running forever otherwise;
// the terminal transition itself is still the manager's guarded fail, so a
// job that finishes between listing and failing is left alone.
type Reaper struct {
	manager     *Manager
	maxDuration time.Duration
	logger      *slog.Logger
}

func NewReaper(manager *Manager, maxDuration time.Duration, logger *slog.Logger) *Reaper {
	if maxDuration <= 0 {
		maxDuration = 30 * time.Minute
	}
	return &Reaper{
		manager:     manager,
		maxDuration: maxDuration,
		logger:      logger,
	}
}

func (r *Reaper) Sweep(ctx context.Context) {
	cutoff := time.Now().Add(-r.maxDuration)

	stuck, err := r.manager.repo.ListRunningSince(cutoff)
	if err != nil {
		r.logger.Error("reaper failed to list running jobs", "error", err)
		return
	}

	for _, j := range stuck {
		r.logger.Warn("reaping stuck job",
			"job_id", j.ID,
			"initiated_at", j.InitiatedAt,
			"max_duration", r.maxDuration)

		if err := r.manager.Fail(j.ID, "execution timeout"); err != nil {
			if errors.Is(err, internal.ErrInvalidTransition) {
				continue
			}
			r.logger.Error("reaper failed to fail job", "error", err, "job_id", j.ID)
		}
	}
}

func (r *Reaper) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.Sweep(ctx)
		case <-ctx.Done():
			r.logger.Info("reaper stopped")
			return
		}
	}
}
