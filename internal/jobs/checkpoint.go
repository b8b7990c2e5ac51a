package jobs

import (
	"log/slog"

	"visitcounter/internal/database"
)

// CheckpointJob periodically truncates the SQLite write-ahead log so it does
// not grow without bound under a steady write load.
type CheckpointJob struct {
	dbManager *database.DBManager
	logger    *slog.Logger
}

func NewCheckpointJob(dbManager *database.DBManager, logger *slog.Logger) *CheckpointJob {
	return &CheckpointJob{
		dbManager: dbManager,
		logger:    logger,
	}
}

func (j *CheckpointJob) Run() error {
	if err := j.dbManager.CheckpointWAL("TRUNCATE"); err != nil {
		j.logger.Error("Failed to checkpoint WAL", slog.Any("error", err))
		return err
	}
	j.logger.Debug("WAL checkpoint completed")
	return nil
}
