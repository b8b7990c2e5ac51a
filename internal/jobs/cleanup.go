package jobs

import (
	"log/slog"
	"time"

	"visitcounter/internal/config"
	"visitcounter/internal/database"
	"visitcounter/internal/persistence"
)

// CleanupJob removes visit log rows older than the retention period.
type CleanupJob struct {
	dbManager *database.DBManager
	logger    *slog.Logger
	cfg       *config.Config
}

func NewCleanupJob(dbManager *database.DBManager, logger *slog.Logger, cfg *config.Config) *CleanupJob {
	return &CleanupJob{
		dbManager: dbManager,
		logger:    logger,
		cfg:       cfg,
	}
}

// Run deletes visits older than the retention window. The in-memory counters
// keep their accumulated totals; only the durable log is trimmed.
func (j *CleanupJob) Run() error {
	retentionDays := j.cfg.VisitsRetentionDays
	if retentionDays <= 0 {
		j.logger.Debug("Visit retention disabled, skipping cleanup")
		return nil
	}

	db := j.dbManager.GetConnection()
	cutoffDate := time.Now().AddDate(0, 0, -retentionDays)

	j.logger.Info("Starting cleanup of old visits",
		slog.Int("retention_days", retentionDays),
		slog.Time("cutoff_date", cutoffDate))

	var countToDelete int64
	if err := db.Model(&persistence.Visit{}).
		Where("timestamp < ?", cutoffDate).
		Count(&countToDelete).Error; err != nil {
		j.logger.Error("Failed to count old visits", slog.Any("error", err))
		return err
	}

	if countToDelete == 0 {
		j.logger.Debug("No old visits to clean up")
		return nil
	}

	// Delete in batches to avoid locking the database for too long
	batchSize := 1000
	totalDeleted := int64(0)

	for {
		result := db.Where("timestamp < ?", cutoffDate).
			Limit(batchSize).
			Delete(&persistence.Visit{})

		if result.Error != nil {
			j.logger.Error("Failed to delete old visits",
				slog.Any("error", result.Error),
				slog.Int64("deleted_so_far", totalDeleted))
			return result.Error
		}

		totalDeleted += result.RowsAffected

		if result.RowsAffected < int64(batchSize) {
			break
		}

		// Small delay between batches to prevent database lock contention
		time.Sleep(100 * time.Millisecond)
	}

	j.logger.Info("Cleaned up old visits",
		slog.Int64("deleted_count", totalDeleted),
		slog.Int("retention_days", retentionDays))

	return nil
}
