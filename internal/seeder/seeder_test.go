package seeder_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"visitcounter/internal/persistence"
	"visitcounter/internal/seeder"
	"visitcounter/internal/testsupport"
)

func TestSeederPopulatesDemoDomains(t *testing.T) {
	dbManager, logger := testsupport.SetupTestDBManager(t)
	db := dbManager.GetConnection()

	s := seeder.NewSeeder(dbManager, logger, "seed-salt", time.UTC)
	require.NoError(t, s.Run(context.Background()))

	var domains []string
	require.NoError(t, db.Model(&persistence.Visit{}).Distinct("domain").Pluck("domain", &domains).Error)
	assert.Len(t, domains, 5)
	assert.Contains(t, domains, "example.com")
	assert.Contains(t, domains, "portfolio.dev")

	// At least one visit per domain per day over the window.
	var total int64
	require.NoError(t, db.Model(&persistence.Visit{}).Count(&total).Error)
	assert.GreaterOrEqual(t, total, int64(5*30))

	var missingSig int64
	require.NoError(t, db.Model(&persistence.Visit{}).Where("visitor_signature = ''").Count(&missingSig).Error)
	assert.Zero(t, missingSig)
}

func TestSeederSkipsNonEmptyLog(t *testing.T) {
	dbManager, logger := testsupport.SetupTestDBManager(t)
	db := dbManager.GetConnection()

	testsupport.CreateVisit(t, db, "real-site.com", "/", "", time.Now().UTC())

	s := seeder.NewSeeder(dbManager, logger, "seed-salt", time.UTC)
	require.NoError(t, s.Run(context.Background()))

	var total int64
	require.NoError(t, db.Model(&persistence.Visit{}).Count(&total).Error)
	assert.Equal(t, int64(1), total)
}
