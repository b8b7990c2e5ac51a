package jobs_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"visitcounter/internal/config"
	"visitcounter/internal/jobs"
	"visitcounter/internal/persistence"
	"visitcounter/internal/testsupport"
)

func TestCleanupJobDeletesOldVisits(t *testing.T) {
	dbManager, logger := testsupport.SetupTestDBManager(t)
	db := dbManager.GetConnection()

	cfg := &config.Config{VisitsRetentionDays: 90}
	job := jobs.NewCleanupJob(dbManager, logger, cfg)

	now := time.Now().UTC()
	testsupport.CreateVisit(t, db, "example.com", "/", "", now.AddDate(0, 0, -120))
	testsupport.CreateVisit(t, db, "example.com", "/", "", now.AddDate(0, 0, -91))
	testsupport.CreateVisit(t, db, "example.com", "/about", "", now.AddDate(0, 0, -30))
	testsupport.CreateVisit(t, db, "mysite.it", "/", "", now)

	require.NoError(t, job.Run())

	var count int64
	require.NoError(t, db.Model(&persistence.Visit{}).Count(&count).Error)
	assert.Equal(t, int64(2), count)

	var remaining []persistence.Visit
	require.NoError(t, db.Find(&remaining).Error)
	for _, v := range remaining {
		assert.True(t, v.Timestamp.After(now.AddDate(0, 0, -90)))
	}
}

func TestCleanupJobRetentionDisabled(t *testing.T) {
	dbManager, logger := testsupport.SetupTestDBManager(t)
	db := dbManager.GetConnection()

	cfg := &config.Config{VisitsRetentionDays: 0}
	job := jobs.NewCleanupJob(dbManager, logger, cfg)

	testsupport.CreateVisit(t, db, "example.com", "/", "", time.Now().UTC().AddDate(-1, 0, 0))

	require.NoError(t, job.Run())

	var count int64
	require.NoError(t, db.Model(&persistence.Visit{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}
