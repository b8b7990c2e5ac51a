package persistence_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"visitcounter/internal/persistence"
	"visitcounter/internal/testsupport"
)

func TestAdapterPersistsBufferedVisits(t *testing.T) {
	dbManager, logger := testsupport.SetupTestDBManager(t)

	adapter := persistence.NewAdapter(dbManager, logger, time.UTC, 64, 10, 10*time.Millisecond)
	adapter.Start()

	now := time.Date(2025, 9, 30, 12, 0, 0, 0, time.UTC)
	adapter.ApplyDelta("example.com", "/", "sig-1", now)
	adapter.ApplyDelta("example.com", "/about", "sig-2", now.Add(time.Minute))
	adapter.ApplyDelta("blog.esempio.org", "/", "sig-3", now.Add(2*time.Minute))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, adapter.Close(ctx))

	var count int64
	require.NoError(t, dbManager.GetConnection().Model(&persistence.Visit{}).Count(&count).Error)
	assert.Equal(t, int64(3), count)

	var visit persistence.Visit
	require.NoError(t, dbManager.GetConnection().Where("domain = ?", "blog.esempio.org").First(&visit).Error)
	assert.Equal(t, "/", visit.Path)
	assert.Equal(t, "sig-3", visit.VisitorSignature)
}

func TestAdapterDropsWhenBufferFull(t *testing.T) {
	dbManager, logger := testsupport.SetupTestDBManager(t)

	// Writer never started, so the buffer fills up after one delta.
	adapter := persistence.NewAdapter(dbManager, logger, time.UTC, 1, 10, time.Second)

	now := time.Now().UTC()
	adapter.ApplyDelta("example.com", "/", "", now)
	adapter.ApplyDelta("example.com", "/", "", now)
	adapter.ApplyDelta("example.com", "/", "", now)
}

func TestLoadSnapshotRebuildsCounters(t *testing.T) {
	dbManager, _ := testsupport.SetupTestDBManager(t)
	logger := testsupport.GetLogger()
	db := dbManager.GetConnection()

	day1 := time.Date(2025, 9, 29, 10, 0, 0, 0, time.UTC)
	day2 := time.Date(2025, 9, 30, 10, 0, 0, 0, time.UTC)

	testsupport.CreateVisit(t, db, "example.com", "/", "sig-a", day1)
	testsupport.CreateVisit(t, db, "example.com", "/", "sig-a", day1.Add(time.Hour))
	testsupport.CreateVisit(t, db, "example.com", "/about", "sig-b", day2)
	testsupport.CreateVisit(t, db, "mysite.it", "/", "", day2)

	adapter := persistence.NewAdapter(dbManager, logger, time.UTC, 64, 10, time.Second)

	restored, err := adapter.LoadSnapshot(context.Background())
	require.NoError(t, err)
	require.Len(t, restored, 2)

	byDomain := make(map[string]int)
	for i, rc := range restored {
		byDomain[rc.Domain] = i
	}
	require.Contains(t, byDomain, "example.com")
	require.Contains(t, byDomain, "mysite.it")

	example := restored[byDomain["example.com"]]
	assert.Equal(t, uint64(3), example.Total)
	assert.Equal(t, uint64(2), example.Daily["2025-09-29"])
	assert.Equal(t, uint64(1), example.Daily["2025-09-30"])
	assert.Equal(t, uint64(2), example.Pages["/"])
	assert.Equal(t, uint64(1), example.Pages["/about"])
	// Same signature twice counts one unique visitor.
	assert.Len(t, example.Visitors["2025-09-29"], 1)
	assert.Len(t, example.Visitors["2025-09-30"], 1)
	assert.Equal(t, day1, example.FirstVisit.UTC())
	assert.Equal(t, day2, example.LastVisit.UTC())

	mysite := restored[byDomain["mysite.it"]]
	assert.Equal(t, uint64(1), mysite.Total)
	assert.Empty(t, mysite.Visitors["2025-09-30"])
}

func TestLoadSnapshotEmptyLog(t *testing.T) {
	dbManager, logger := testsupport.SetupTestDBManager(t)

	adapter := persistence.NewAdapter(dbManager, logger, time.UTC, 64, 10, time.Second)
	restored, err := adapter.LoadSnapshot(context.Background())
	require.NoError(t, err)
	assert.Empty(t, restored)
}
