package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	gormPostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/frahmantamala/integration-hub/internal"
	"github.com/frahmantamala/integration-hub/internal/analysis"
	"github.com/frahmantamala/integration-hub/internal/auth"
	authPostgres "github.com/frahmantamala/integration-hub/internal/auth/postgres"
	"github.com/frahmantamala/integration-hub/internal/connection"
	connectionPostgres "github.com/frahmantamala/integration-hub/internal/connection/postgres"
	"github.com/frahmantamala/integration-hub/internal/core/events"
	"github.com/frahmantamala/integration-hub/internal/job"
	jobPostgres "github.com/frahmantamala/integration-hub/internal/job/postgres"
	"github.com/frahmantamala/integration-hub/internal/oauth"
	"github.com/frahmantamala/integration-hub/internal/rbac"
	rbacPostgres "github.com/frahmantamala/integration-hub/internal/rbac/postgres"
	"github.com/frahmantamala/integration-hub/internal/tenant"
	tenantPostgres "github.com/frahmantamala/integration-hub/internal/tenant/postgres"
	"github.com/frahmantamala/integration-hub/internal/tokenvault"
	"github.com/frahmantamala/integration-hub/internal/transport/rest"
	"github.com/frahmantamala/integration-hub/internal/user"
	userPostgres "github.com/frahmantamala/integration-hub/internal/user/postgres"
	"github.com/frahmantamala/integration-hub/pkg/logger"
)

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the HTTP server to handle API requests`,
	Run: func(cmd *cobra.Command, args []string) {
		startHTTPServer()
	},
}

type Dependencies struct {
	Config *internal.Config
	DB     *sqlx.DB
	Router *chi.Mux
	Logger *slog.Logger

	Pool   *job.Pool
	Reaper *job.Reaper
}

func startHTTPServer() {
	deps, err := initializeDependencies()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}

	addr := fmt.Sprintf(":%d", deps.Config.Server.Port)
	slog.Info("Starting HTTP server", "address", addr)

	server := &http.Server{
		Addr:         addr,
		Handler:      deps.Router,
		ReadTimeout:  deps.Config.Server.ReadTimeout,
		WriteTimeout: deps.Config.Server.WriteTimeout,
		IdleTimeout:  deps.Config.Server.IdleTimeout,
	}

	reaperCtx, stopReaper := context.WithCancel(context.Background())
	go deps.Reaper.Run(reaperCtx, deps.Config.Analysis.ReapInterval)

	// Signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		serverErrChan <- server.ListenAndServe()
	}()

	select {
	case sig := <-sigChan:
		slog.Info("Received signal, shutting down...", "signal", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}
		stopReaper()
		deps.Pool.Shutdown()
		if err := deps.DB.Close(); err != nil {
			slog.Error("Database close error", "error", err)
		}
	case err := <-serverErrChan:
		stopReaper()
		if err != nil && err != http.ErrServerClosed {
			slog.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}

	slog.Info("Server stopped")
}

func initializeDependencies() (*Dependencies, error) {
	config, err := loadConfig(".")
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger.Init(os.Getenv("APP_ENV"))
	lg := logger.LoggerWrapper()

	db, err := initDB(config.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	gormDB, err := gorm.Open(gormPostgres.New(gormPostgres.Config{Conn: db.DB}), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to open gorm connection: %w", err)
	}

	bus := events.NewEventBus(lg)

	// Authorization
	rbacRepo := rbacPostgres.NewRepository(gormDB)
	resolver := rbac.NewResolver(rbacRepo, lg)
	gate := rbac.NewGate(resolver, lg)
	rbacService := rbac.NewService(rbacRepo, gate, lg)

	// Connections and token lifecycle
	connRepo := connectionPostgres.NewConnectionRepository(gormDB)
	registry := oauth.NewRegistry(config.OAuth)
	vault := tokenvault.New(config.OAuth, connRepo, registry, lg)
	connService := connection.NewService(connRepo, gate, vault, lg)

	// Analysis jobs
	jobRepo := jobPostgres.NewJobRepository(gormDB)
	manager := job.NewManager(jobRepo, bus, lg)
	runner := analysis.NewEngineClient(config.Analysis, lg)
	executor := job.NewExecutor(manager, vault, runner, config.Analysis.RunTimeout, lg)
	pool := job.NewPool(job.PoolConfig{
		MaxWorkers:     config.Analysis.MaxWorkers,
		TaskQueueSize:  config.Analysis.JobQueueSize,
		WorkerPoolSize: config.Analysis.WorkerPoolSize,
	}, executor, lg)
	jobService := job.NewService(manager, connRepo, gate, pool, bus, lg)
	reaper := job.NewReaper(manager, config.Analysis.MaxJobDuration, lg)

	// Identity
	tokenGen := auth.NewJWTTokenGenerator(
		config.Security.AccessTokenSecret,
		config.Security.RefreshTokenSecret,
		config.Security.AccessTokenDuration,
		config.Security.RefreshTokenDuration,
	)
	authRepo := authPostgres.NewRepository(gormDB)
	authService := auth.NewService(authRepo, tokenGen, config.Security.BCryptCost)

	userRepo := userPostgres.NewUserRepository(gormDB)
	userService := user.NewService(userRepo, rbacRepo, gate, authService, lg)

	tenantRepo := tenantPostgres.NewTenantRepository(gormDB)
	tenantService := tenant.NewService(tenantRepo, gate, lg)

	router := chi.NewRouter()
	rest.RegisterAllRoutes(router, db.DB,
		auth.NewHandler(authService),
		connection.NewHandler(connService),
		job.NewHandler(jobService),
		rbac.NewHandler(rbacService),
		user.NewHandler(userService),
		tenant.NewHandler(tenantService),
		resolver, lg)

	return &Dependencies{
		Config: config,
		Logger: lg,
		DB:     db,
		Router: router,
		Pool:   pool,
		Reaper: reaper,
	}, nil
}

// initDB initializes the database connection
func initDB(cfg internal.DatabaseConfig) (*sqlx.DB, error) {
	const driver = "pgx"

	dbConn, err := sqlx.Connect(driver, cfg.Source)
	if err != nil {
		return nil, fmt.Errorf("failed to open db connection: %w", err)
	}

	dbConn.SetMaxIdleConns(cfg.MaxIdleConns)
	dbConn.SetMaxOpenConns(cfg.MaxOpenConns)
	dbConn.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	dbConn.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	// verify connection; close underlying *sql.DB on failure
	if err := dbConn.Ping(); err != nil {
		_ = dbConn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return dbConn, nil
}
