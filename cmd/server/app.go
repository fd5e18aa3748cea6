package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/macrofit/coach-api/internal/config"
	"github.com/macrofit/coach-api/internal/generation"
	"github.com/macrofit/coach-api/internal/lifecycle"
	"github.com/macrofit/coach-api/internal/platform/gemini"
	"github.com/macrofit/coach-api/internal/platform/sqlite"
	"github.com/macrofit/coach-api/internal/recovery"
	"github.com/macrofit/coach-api/internal/service"
	"github.com/macrofit/coach-api/internal/service/auth"
	"github.com/macrofit/coach-api/internal/task"
)

// application holds the wired dependencies of the server. Everything
// is constructed once in newApplication and torn down in cleanup, in
// reverse order.
type application struct {
	config *config.Config
	logger *slog.Logger

	db       *sql.DB
	registry *task.Registry
	sweeper  *task.Sweeper

	resultStore    *sqlite.ResultStore
	viewStateStore *sqlite.ViewStateStore

	generator  generation.Generator
	reconciler *recovery.Reconciler
	hooks      *lifecycle.Hooks
	jwtService auth.JWTService

	operationService *service.OperationService
	viewService      *service.ViewService

	// background goroutine teardown, called by cleanup
	stopSweeper  context.CancelFunc
	stopWatching func()
}

// newApplication wires the full dependency graph: durable SQLite
// stores under the task registry and reconciler, generation behind
// the Gemini client, and the services the HTTP handlers consume.
func newApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*application, error) {
	db, err := sqlite.Open(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := sqlite.Migrate(db); err != nil {
		closeQuietly(db, logger)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	registry := task.NewRegistry(logger)

	resultStore := sqlite.NewResultStore(db)
	viewStateStore := sqlite.NewViewStateStore(db)

	generator, err := gemini.New(ctx, logger, cfg.LLM)
	if err != nil {
		registry.Stop()
		closeQuietly(db, logger)
		return nil, fmt.Errorf("failed to create generator: %w", err)
	}

	jwtService, err := auth.NewJWTService(cfg.Auth)
	if err != nil {
		registry.Stop()
		closeQuietly(db, logger)
		return nil, fmt.Errorf("failed to create JWT service: %w", err)
	}

	reconciler := recovery.NewReconciler(registry, resultStore, viewStateStore, logger)
	hooks := lifecycle.NewHooks(resultStore, viewStateStore, lifecycle.Retention{
		Results:   cfg.Retention.ResultMaxAge,
		ViewState: cfg.Retention.ViewStateMaxAge,
	}, logger)

	app := &application{
		config:           cfg,
		logger:           logger,
		db:               db,
		registry:         registry,
		resultStore:      resultStore,
		viewStateStore:   viewStateStore,
		generator:        generator,
		reconciler:       reconciler,
		hooks:            hooks,
		jwtService:       jwtService,
		operationService: service.NewOperationService(registry, resultStore, viewStateStore, generator, logger),
		viewService:      service.NewViewService(viewStateStore, reconciler, logger),
	}

	app.startSweeper(ctx)
	app.startEventLog()

	// A foregrounding client is a good moment to fail anything that
	// silently died while it was away.
	hooks.OnResume(func(ctx context.Context) {
		swept := registry.SweepStale(cfg.Retention.StaleThreshold)
		if swept > 0 {
			logger.Info("resume sweep failed stale tasks", "count", swept)
		}
	})

	return app, nil
}

// startSweeper runs the periodic staleness and eviction sweep until
// cleanup cancels it.
func (app *application) startSweeper(ctx context.Context) {
	sweepCtx, cancel := context.WithCancel(ctx)
	app.stopSweeper = cancel
	app.sweeper = task.NewSweeper(app.registry, task.SweeperConfig{
		Interval:   app.config.Retention.SweepInterval,
		StaleAfter: app.config.Retention.StaleThreshold,
		Retention:  app.config.Retention.TaskRetention,
	}, app.logger)

	go app.sweeper.Run(sweepCtx)
}

// startEventLog subscribes to registry events and logs every task
// transition for operational visibility.
func (app *application) startEventLog() {
	events, unregister := app.registry.Watch(64)
	app.stopWatching = unregister

	go func() {
		for ev := range events {
			app.logger.Info("task transition",
				"event", string(ev.Type),
				"task_id", ev.Task.ID,
				"task_kind", string(ev.Task.Kind),
				"task_status", string(ev.Task.Status),
				"task_error", ev.Task.Error)
		}
	}()
}

// cleanup tears the application down in reverse construction order.
// The registry stops before the database closes so any in-flight
// operation finishes its durable result write first.
func (app *application) cleanup() {
	if app.stopSweeper != nil {
		app.stopSweeper()
	}
	app.registry.Stop()
	if app.stopWatching != nil {
		app.stopWatching()
	}
	app.hooks.EnterBackground(context.Background())
	closeQuietly(app.db, app.logger)
	app.logger.Info("application cleanup completed")
}

func closeQuietly(db *sql.DB, logger *slog.Logger) {
	if err := db.Close(); err != nil {
		logger.Error("failed to close database", "error", err)
	}
}
