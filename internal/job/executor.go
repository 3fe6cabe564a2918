package job

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/frahmantamala/integration-hub/internal"
	"github.com/frahmantamala/integration-hub/internal/analysis"
)

// TokenSource hands out a valid access token for a connection, refreshing
// behind the scenes when needed.
type TokenSource interface {
	AcquireValidToken(ctx context.Context, connectionID string) (string, error)
}

// Executor drives one job end-to-end: the guarded running transition, token
// acquisition, the analysis run, then exactly one terminal transition. The
// pending -> running guard ensures at most one executor owns a job.
type Executor struct {
	manager    *Manager
	vault      TokenSource
	runner     analysis.Runner
	runTimeout time.Duration
	logger     *slog.Logger
}

func NewExecutor(manager *Manager, vault TokenSource, runner analysis.Runner, runTimeout time.Duration, logger *slog.Logger) *Executor {
	if runTimeout <= 0 {
		runTimeout = 10 * time.Minute
	}
	return &Executor{
		manager:    manager,
		vault:      vault,
		runner:     runner,
		runTimeout: runTimeout,
		logger:     logger,
	}
}

func (e *Executor) Execute(ctx context.Context, jobID string) {
	if err := e.manager.MarkRunning(jobID); err != nil {
		// A lost start race or a cancel that beat us here; the winner
		// owns the job now.
		if errors.Is(err, internal.ErrInvalidTransition) {
			e.logger.Warn("job already started or finished elsewhere", "job_id", jobID)
			return
		}
		e.logger.Error("failed to start job", "error", err, "job_id", jobID)
		return
	}

	j, err := e.manager.Get(jobID)
	if err != nil {
		e.failJob(jobID, "job vanished after start")
		return
	}

	e.progress(jobID, 10, "Acquiring access token")

	token, err := e.vault.AcquireValidToken(ctx, j.ConnectionID)
	if err != nil {
		e.logger.Error("token acquisition failed", "error", err, "job_id", jobID, "connection_id", j.ConnectionID)
		e.failJob(jobID, normalizeError(err))
		return
	}

	externalTenantID := ""
	if j.ExternalTenantID != nil {
		externalTenantID = *j.ExternalTenantID
	}

	e.progress(jobID, 25, "Running payroll risk analysis")

	runCtx, cancel := context.WithTimeout(ctx, e.runTimeout)
	defer cancel()

	result, err := e.runner.Run(runCtx, token, externalTenantID)
	if err != nil {
		e.logger.Error("analysis run failed", "error", err, "job_id", jobID)
		e.failJob(jobID, normalizeError(err))
		return
	}

	if err := e.manager.Complete(jobID, result); err != nil {
		// Cancelled (or reaped) while the analysis was finishing; the
		// terminal state that won stays.
		e.logger.Warn("could not complete job", "error", err, "job_id", jobID)
	}
}

func (e *Executor) progress(jobID string, percent int, message string) {
	if err := e.manager.UpdateProgress(jobID, percent, message); err != nil {
		e.logger.Warn("progress update rejected", "error", err, "job_id", jobID)
	}
}

func (e *Executor) failJob(jobID, message string) {
	if err := e.manager.Fail(jobID, message); err != nil {
		e.logger.Warn("could not fail job", "error", err, "job_id", jobID)
	}
}

// normalizeError keeps the message callers see human-readable: AppErrors
// already carry one, anything else is passed through verbatim and never
// includes internal stack detail.
func normalizeError(err error) string {
	if appErr, ok := internal.IsAppError(err); ok {
		return appErr.Message
	}
	return err.Error()
}

// Task is one unit queued for the executor pool.
type Task struct {
	JobID string
}

type Worker struct {
	ID         int
	WorkerPool chan chan Task
	TaskChan   chan Task
	Logger     *slog.Logger
}

func NewWorker(id int, workerPool chan chan Task, logger *slog.Logger) *Worker {
	return &Worker{
		ID:         id,
		WorkerPool: workerPool,
		TaskChan:   make(chan Task),
		Logger:     logger,
	}
}

func (w *Worker) Start(ctx context.Context, wg *sync.WaitGroup, processFunc func(ctx context.Context, task Task)) {
	wg.Add(1)
	go func() {
		defer wg.Done()

		for {
			w.WorkerPool <- w.TaskChan

			select {
			case task := <-w.TaskChan:
				w.Logger.Debug("worker picked up job", "worker_id", w.ID, "job_id", task.JobID)
				processFunc(ctx, task)
			case <-ctx.Done():
				w.Logger.Debug("worker shutting down", "worker_id", w.ID)
				return
			}
		}
	}()
}

// Pool fans queued jobs out to a fixed set of executor workers, in the same
// dispatcher shape as the rest of our background processing.
type Pool struct {
	executor *Executor
	logger   *slog.Logger

	taskQueue  chan Task
	workerPool chan chan Task
	maxWorkers int
	ctx        context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup
	once       sync.Once
}

type PoolConfig struct {
	MaxWorkers     int
	TaskQueueSize  int
	WorkerPoolSize int
}

func NewPool(cfg PoolConfig, executor *Executor, logger *slog.Logger) *Pool {
	ctx, cancel := context.WithCancel(context.Background())

	maxWorkers := cfg.MaxWorkers
	if maxWorkers <= 0 {
		maxWorkers = 4
	}

	taskQueueSize := cfg.TaskQueueSize
	if taskQueueSize <= 0 {
		taskQueueSize = 100
	}

	workerPoolSize := cfg.WorkerPoolSize
	if workerPoolSize <= 0 {
		workerPoolSize = maxWorkers
	}

	pool := &Pool{
		executor:   executor,
		logger:     logger,
		maxWorkers: maxWorkers,
		taskQueue:  make(chan Task, taskQueueSize),
		workerPool: make(chan chan Task, workerPoolSize),
		ctx:        ctx,
		cancel:     cancel,
	}

	pool.start()

	return pool
}

func (p *Pool) start() {
	p.once.Do(func() {
		for i := 0; i < p.maxWorkers; i++ {
			worker := NewWorker(i, p.workerPool, p.logger)
			worker.Start(p.ctx, &p.wg, func(ctx context.Context, task Task) {
				p.executor.Execute(ctx, task.JobID)
			})
		}

		p.wg.Add(1)
		go p.dispatch()

		p.logger.Info("analysis executor pool started",
			"max_workers", p.maxWorkers,
			"queue_size", cap(p.taskQueue))
	})
}

func (p *Pool) dispatch() {
	defer p.wg.Done()

	for {
		select {
		case task := <-p.taskQueue:
			select {
			case taskChan := <-p.workerPool:
				select {
				case taskChan <- task:
				case <-p.ctx.Done():
					p.logger.Info("dispatcher shutting down")
					return
				}
			case <-p.ctx.Done():
				p.logger.Info("dispatcher shutting down")
				return
			}
		case <-p.ctx.Done():
			p.logger.Info("dispatcher shutting down")
			return
		}
	}
}

// Enqueue hands a pending job to the pool without blocking the caller.
func (p *Pool) Enqueue(jobID string) error {
	select {
	case p.taskQueue <- Task{JobID: jobID}:
		return nil
	default:
		p.logger.Warn("job queue full", "job_id", jobID)
		return internal.ErrJobQueueFull
	}
}

func (p *Pool) Shutdown() {
	p.logger.Info("shutting down executor pool")
	p.cancel()
	p.wg.Wait()
	p.logger.Info("executor pool shutdown complete")
}
