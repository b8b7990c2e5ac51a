// Package internal wires the application components together.
package internal

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"visitcounter/internal/config"
	"visitcounter/internal/counters"
	"visitcounter/internal/database"
	"visitcounter/internal/ingest"
	"visitcounter/internal/jobs"
	"visitcounter/internal/logging"
	"visitcounter/internal/persistence"
	"visitcounter/internal/seeder"
	"visitcounter/internal/stats"
)

// Application holds every long-lived component of the service.
type Application struct {
	Config      *config.Config
	Logger      *slog.Logger
	DBManager   *database.DBManager
	Store       *counters.Store
	Ingest      *ingest.Service
	Stats       *stats.Engine
	Persistence *persistence.Adapter

	scheduler *jobs.Scheduler
	server    *fiber.App
}

// NewApp creates a new application instance with default settings
func NewApp() (*Application, error) {
	cfg := config.GetConfig()
	return NewAppWithConfig(cfg)
}

// NewAppWithConfig creates a new application with the provided config
func NewAppWithConfig(cfg *config.Config) (*Application, error) {
	logger := logging.NewLogger(cfg, nil)

	dbManager := database.NewDBManager(cfg, logger)
	if err := dbManager.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	loc := cfg.GetLocation()
	store := counters.NewStore(loc)

	adapter := persistence.NewAdapter(dbManager, logger, loc,
		cfg.PersistenceBufferSize,
		cfg.PersistenceBatchSize,
		cfg.GetPersistenceFlushInterval())

	ingestService := ingest.NewService(store, adapter, cfg.PrivateKey, logger)
	statsEngine := stats.NewEngine(store)

	scheduler, err := jobs.NewScheduler(dbManager, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize jobs: %w", err)
	}

	app := &Application{
		Config:      cfg,
		Logger:      logger,
		DBManager:   dbManager,
		Store:       store,
		Ingest:      ingestService,
		Stats:       statsEngine,
		Persistence: adapter,
		scheduler:   scheduler,
	}

	server := fiber.New(fiber.Config{
		AppName:               cfg.AppName,
		DisableStartupMessage: cfg.IsProduction(),
	})
	MountAppRoutes(server, app)
	app.server = server

	return app, nil
}

// MigrateDatabase runs the schema migrations for the visit log.
func (a *Application) MigrateDatabase() error {
	return a.DBManager.MigrateDatabase(&persistence.Visit{})
}

// Server exposes the fiber app, mainly for tests.
func (a *Application) Server() *fiber.App {
	return a.server
}

// StartAsync restores counters from the visit log, launches the background
// workers and begins serving in a separate goroutine.
func (a *Application) StartAsync() error {
	if a.Config.SeedDemoData && !a.Config.IsProduction() {
		s := seeder.NewSeeder(a.DBManager, a.Logger, a.Config.PrivateKey, a.Store.Location())
		if err := s.Run(context.Background()); err != nil {
			return fmt.Errorf("failed to seed demo data: %w", err)
		}
	}

	// A failed restore degrades to an empty store rather than refusing to
	// serve; the durable log is still appended to.
	restored, err := a.Persistence.LoadSnapshot(context.Background())
	if err != nil {
		a.Logger.Error("Failed to restore counters from visit log, starting empty",
			slog.Any("error", err))
	} else {
		a.Store.Restore(restored)
	}
	a.Store.MarkReady()

	a.Persistence.Start()

	if err := a.scheduler.Start(); err != nil {
		return fmt.Errorf("failed to start background jobs: %w", err)
	}

	go func() {
		if err := a.server.Listen(":" + a.Config.GetPort()); err != nil {
			a.Logger.Error("Server stopped", slog.Any("error", err))
		}
	}()

	a.Logger.Info("Application started",
		slog.String("port", a.Config.GetPort()),
		slog.String("environment", a.Config.Environment))
	return nil
}

// Shutdown stops the server, background jobs and the persistence writer,
// flushing whatever is still buffered.
func (a *Application) Shutdown(ctx context.Context) error {
	var firstErr error

	if err := a.server.ShutdownWithContext(ctx); err != nil {
		a.Logger.Error("Error shutting down server", slog.Any("error", err))
		firstErr = err
	}

	a.scheduler.Stop()

	if err := a.Persistence.Close(ctx); err != nil {
		a.Logger.Error("Error closing persistence", slog.Any("error", err))
		if firstErr == nil {
			firstErr = err
		}
	}

	if err := a.DBManager.CheckpointWAL("TRUNCATE"); err != nil {
		a.Logger.Warn("Final WAL checkpoint failed", slog.Any("error", err))
	}

	if err := a.DBManager.Close(); err != nil {
		a.Logger.Error("Error closing database", slog.Any("error", err))
		if firstErr == nil {
			firstErr = err
		}
	}

	return firstErr
}
