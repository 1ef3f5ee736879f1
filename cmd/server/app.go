package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/phrazzld/carousel-api/internal/api"
	"github.com/phrazzld/carousel-api/internal/config"
	"github.com/phrazzld/carousel-api/internal/events"
	"github.com/phrazzld/carousel-api/internal/platform/postgres"
	"github.com/phrazzld/carousel-api/internal/redact"
	"github.com/phrazzld/carousel-api/internal/service"
	"github.com/phrazzld/carousel-api/internal/service/auth"
	"github.com/phrazzld/carousel-api/internal/task"
	"github.com/redis/go-redis/v9"
)

// exportRunner is the part of export.Service the application drives.
type exportRunner interface {
	api.ExportStarter
	Shutdown(ctx context.Context) error
}

// application holds all the shared application dependencies to simplify management
// and ensure proper cleanup on shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger
	db     *sql.DB
	redis  *redis.Client

	generationService service.GenerationService
	canvasService     service.CanvasService
	tokenValidator    auth.TokenValidator
	exports           exportRunner

	eventEmitter *events.InMemoryEventEmitter
	taskRunner   *task.TaskRunner
}

// newApplication creates a new application instance with all dependencies initialized.
// The database connection must already be established.
func newApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger, db *sql.DB) (*application, error) {
	app := &application{
		config: cfg,
		logger: logger,
		db:     db,
	}

	var err error
	app.tokenValidator, err = auth.NewTokenValidator(cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize token validator: %w", err)
	}

	generationStore := postgres.NewPostgresGenerationStore(db, logger)
	canvasStore := postgres.NewPostgresCanvasStore(db, logger)
	taskStore := postgres.NewPostgresTaskStore(db, logger)

	app.eventEmitter = events.NewInMemoryEventEmitter(logger)

	app.generationService, err = service.NewGenerationService(generationStore, db, app.eventEmitter, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create generation service: %w", err)
	}
	app.canvasService, err = service.NewCanvasService(canvasStore, db, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create canvas service: %w", err)
	}

	providerClient := &http.Client{Timeout: cfg.Generation.ProviderTimeout}
	registry, err := buildRegistry(ctx, cfg.Providers, providerClient, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to set up providers: %w", err)
	}

	orchestrator := task.NewOrchestrator(
		app.generationService,
		app.canvasService,
		registry,
		cfg.Generation,
		logger,
	)
	generationFactory := task.NewGenerationTaskFactory(orchestrator, logger)

	app.taskRunner, err = setupTaskRunner(cfg.Task, taskStore, generationFactory, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to setup task runner: %w", err)
	}
	app.eventEmitter.RegisterHandler(task.NewTaskFactoryEventHandler(generationFactory, app.taskRunner, logger))

	exports, redisClient := buildExportService(ctx, cfg, app.canvasService, logger)
	app.exports = exports
	app.redis = redisClient

	logger.Info("application initialized successfully")
	return app, nil
}

// Run starts the application server, handling lifecycle and cleanup.
func (app *application) Run(ctx context.Context) error {
	router := app.setupRouter()

	if err := app.startHTTPServer(ctx, router); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// setupTaskRunner creates the background task processor, registers the
// generation factory so interrupted work can be recovered, and starts it.
func setupTaskRunner(
	cfg config.TaskConfig,
	store task.TaskStore,
	factory task.Factory,
	logger *slog.Logger,
) (*task.TaskRunner, error) {
	runner := task.NewTaskRunner(store, task.TaskRunnerConfig{
		WorkerCount:  cfg.WorkerCount,
		QueueSize:    cfg.QueueSize,
		StuckTaskAge: cfg.StuckTaskAge,
	}, logger)
	runner.RegisterFactory(factory)

	if err := runner.Start(); err != nil {
		return nil, fmt.Errorf("failed to start task runner: %w", err)
	}
	return runner, nil
}

// cleanup handles graceful shutdown of application resources. Running
// exports get until ctx expires to finish.
func (app *application) cleanup(ctx context.Context) {
	if app.exports != nil {
		if err := app.exports.Shutdown(ctx); err != nil {
			app.logger.Warn("exports did not finish before shutdown", "error", redact.Error(err))
		}
	}

	if app.taskRunner != nil {
		app.taskRunner.Stop()
	}

	if app.redis != nil {
		if err := app.redis.Close(); err != nil {
			app.logger.Error("error closing redis connection", "error", redact.Error(err))
		}
	}

	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("error closing database connection", "error", redact.Error(err))
		}
	}

	app.logger.Info("application shutdown completed")
}
