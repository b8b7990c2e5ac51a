// Package database manages the SQLite connection used by the persistence
// adapter.
package database

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"visitcounter/internal/config"
)

const busyRetryAttempts = 5

// DBManager owns the gorm connection and applies visitcounter migrations.
type DBManager struct {
	cfg    *config.Config
	logger *slog.Logger
	db     *gorm.DB
}

// NewDBManager creates a new database manager.
func NewDBManager(cfg *config.Config, logger *slog.Logger) *DBManager {
	return &DBManager{cfg: cfg, logger: logger}
}

// NewDBManagerWithConnection wraps an already-open connection. Used by tests.
func NewDBManagerWithConnection(db *gorm.DB, logger *slog.Logger) *DBManager {
	return &DBManager{cfg: config.GetConfig(), logger: logger, db: db}
}

// Init opens the database connection, enabling WAL mode and sizing the
// connection pool from configuration.
func (dm *DBManager) Init() error {
	path := dm.cfg.DatabaseName
	if !strings.HasPrefix(path, "file:") {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return fmt.Errorf("failed to create storage directory: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	db.Exec("PRAGMA journal_mode = WAL")
	db.Exec("PRAGMA busy_timeout = 5000")
	db.Exec("PRAGMA foreign_keys = ON")

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to access sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(dm.cfg.GetMaxOpenConns())
	sqlDB.SetMaxIdleConns(dm.cfg.GetMaxIdleConns())

	dm.db = db
	dm.logger.Info("Database connected", slog.String("path", path))
	return nil
}

// GetConnection returns the gorm connection, or nil before Init.
func (dm *DBManager) GetConnection() *gorm.DB {
	return dm.db
}

// MigrateDatabase runs auto-migration for the given models.
func (dm *DBManager) MigrateDatabase(models ...interface{}) error {
	if dm.db == nil {
		return gorm.ErrInvalidDB
	}

	// Run migrations in a transaction
	err := dm.db.Transaction(func(tx *gorm.DB) error {
		return tx.AutoMigrate(models...)
	})
	if err != nil {
		dm.logger.Error("Failed to auto-migrate database", slog.Any("error", err))
		return err
	}

	if err := dm.CheckpointWAL("FULL"); err != nil {
		dm.logger.Warn("Failed to checkpoint WAL after migration", slog.Any("error", err))
	}

	dm.logger.Info("Database migration completed successfully")
	return nil
}

// CheckpointWAL forces a write-ahead-log checkpoint of the given mode
// (PASSIVE, FULL, RESTART or TRUNCATE).
func (dm *DBManager) CheckpointWAL(mode string) error {
	if dm.db == nil {
		return gorm.ErrInvalidDB
	}
	return dm.db.Exec(fmt.Sprintf("PRAGMA wal_checkpoint(%s)", mode)).Error
}

// Close shuts down the underlying connection pool.
func (dm *DBManager) Close() error {
	if dm.db == nil {
		return nil
	}
	sqlDB, err := dm.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// PerformWrite runs fn inside a transaction, retrying with backoff when
// SQLite reports the database as locked or busy.
func PerformWrite(logger *slog.Logger, db *gorm.DB, fn func(tx *gorm.DB) error) error {
	var err error
	for attempt := 1; attempt <= busyRetryAttempts; attempt++ {
		err = db.Transaction(fn)
		if err == nil {
			return nil
		}
		if !isBusyError(err) {
			return err
		}
		backoff := time.Duration(attempt*attempt) * 10 * time.Millisecond
		logger.Warn("Database busy, retrying write",
			slog.Int("attempt", attempt),
			slog.Duration("backoff", backoff),
			slog.Any("error", err))
		time.Sleep(backoff)
	}
	return fmt.Errorf("write failed after %d attempts: %w", busyRetryAttempts, err)
}

func isBusyError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "busy")
}
