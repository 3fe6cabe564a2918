package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	gormPostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/frahmantamala/integration-hub/internal/analysis"
	connectionPostgres "github.com/frahmantamala/integration-hub/internal/connection/postgres"
	"github.com/frahmantamala/integration-hub/internal/core/events"
	"github.com/frahmantamala/integration-hub/internal/job"
	jobPostgres "github.com/frahmantamala/integration-hub/internal/job/postgres"
	"github.com/frahmantamala/integration-hub/internal/oauth"
	"github.com/frahmantamala/integration-hub/internal/tokenvault"
	"github.com/frahmantamala/integration-hub/pkg/logger"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Start worker pools for various services",
	Long:  `Start and manage worker pools for background processing.`,
}

// Analysis worker command
var analysisWorkerCmd = &cobra.Command{
	Use:   "analysis",
	Short: "Start analysis executor pool",
	Long:  `Start the executor pool and reaper for payroll risk analysis jobs`,
	Run: func(cmd *cobra.Command, args []string) {
		startAnalysisWorker()
	},
}

// Event Bus worker command
var eventWorkerCmd = &cobra.Command{
	Use:   "events",
	Short: "Start event bus worker",
	Long:  `Start the event bus audit subscriber`,
	Run: func(cmd *cobra.Command, args []string) {
		startEventWorker()
	},
}

var (
	maxWorkers     int
	jobQueueSize   int
	workerPoolSize int
)

func startAnalysisWorker() {
	config, err := loadConfig(".")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Init(os.Getenv("APP_ENV"))
	lg := logger.LoggerWrapper()

	db, err := initDB(config.Database)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize database: %v\n", err)
		os.Exit(1)
	}

	gormDB, err := gorm.Open(gormPostgres.New(gormPostgres.Config{Conn: db.DB}), &gorm.Config{})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open gorm connection: %v\n", err)
		os.Exit(1)
	}

	bus := events.NewEventBus(lg)

	connRepo := connectionPostgres.NewConnectionRepository(gormDB)
	registry := oauth.NewRegistry(config.OAuth)
	vault := tokenvault.New(config.OAuth, connRepo, registry, lg)

	jobRepo := jobPostgres.NewJobRepository(gormDB)
	manager := job.NewManager(jobRepo, bus, lg)
	runner := analysis.NewEngineClient(config.Analysis, lg)
	executor := job.NewExecutor(manager, vault, runner, config.Analysis.RunTimeout, lg)

	pool := job.NewPool(job.PoolConfig{
		MaxWorkers:     getIntFlag(maxWorkers, config.Analysis.MaxWorkers),
		TaskQueueSize:  getIntFlag(jobQueueSize, config.Analysis.JobQueueSize),
		WorkerPoolSize: getIntFlag(workerPoolSize, config.Analysis.WorkerPoolSize),
	}, executor, lg)

	reaper := job.NewReaper(manager, config.Analysis.MaxJobDuration, lg)
	reaperCtx, stopReaper := context.WithCancel(context.Background())
	go reaper.Run(reaperCtx, config.Analysis.ReapInterval)

	lg.Info("analysis worker is running. Press Ctrl+C to stop.")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigChan
	lg.Info("received signal, shutting down analysis worker", "signal", sig)

	stopReaper()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	shutdownDone := make(chan struct{})
	go func() {
		pool.Shutdown()
		close(shutdownDone)
	}()

	select {
	case <-shutdownDone:
		lg.Info("analysis worker pool shutdown complete")
	case <-ctx.Done():
		lg.Warn("shutdown timeout reached, forcing exit")
	}

	if err := db.Close(); err != nil {
		lg.Error("database close error", "error", err)
	}
}

func startEventWorker() {
	_, err := loadConfig(".")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Init(os.Getenv("APP_ENV"))
	lg := logger.LoggerWrapper()

	eventBus := events.NewEventBus(lg)

	// Audit log for the job lifecycle.
	auditLog := func(ctx context.Context, event events.Event) error {
		lg.Info("job event",
			"event_id", event.EventID(),
			"event_type", event.EventType(),
			"payload", event.Payload())
		return nil
	}
	eventBus.Subscribe(events.EventTypeJobCreated, auditLog)
	eventBus.Subscribe(events.EventTypeJobCompleted, auditLog)
	eventBus.Subscribe(events.EventTypeJobFailed, auditLog)

	lg.Info("event bus worker started. Waiting for events...")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigChan
	lg.Info("received signal, shutting down event bus", "signal", sig)
	lg.Info("event bus shutdown complete")
}

func getIntFlag(flagValue, configValue int) int {
	if flagValue > 0 {
		return flagValue
	}
	return configValue
}

func init() {
	analysisWorkerCmd.Flags().IntVar(&maxWorkers, "max-workers", 0, "Maximum number of workers (overrides config)")
	analysisWorkerCmd.Flags().IntVar(&jobQueueSize, "job-queue-size", 0, "Job queue buffer size (overrides config)")
	analysisWorkerCmd.Flags().IntVar(&workerPoolSize, "worker-pool-size", 0, "Worker pool channel size (overrides config)")

	workerCmd.AddCommand(analysisWorkerCmd)
	workerCmd.AddCommand(eventWorkerCmd)

	rootCmd.AddCommand(workerCmd)
}
