// Package persistence keeps a durable append-only log of visits so counters
// survive restarts. Writes are buffered and flushed in batches off the
// request path.
package persistence

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"gorm.io/gorm"

	"visitcounter/internal/counters"
	"visitcounter/internal/database"
	"visitcounter/internal/pkg/async"
	"visitcounter/internal/timeframe"
)

// Visit is a single recorded hit.
type Visit struct {
	ID               uint      `gorm:"primaryKey"`
	Domain           string    `gorm:"index"`
	Path             string    `gorm:"index"`
	VisitorSignature string    `gorm:"index"`
	Timestamp        time.Time `gorm:"index"`
	CreatedAt        time.Time
}

// Adapter receives visit deltas from the ingestion service and persists them
// asynchronously. A full buffer drops deltas rather than blocking ingestion.
type Adapter struct {
	dbManager *database.DBManager
	logger    *slog.Logger
	loc       *time.Location

	buffer        chan Visit
	batchSize     int
	flushInterval time.Duration

	stop chan struct{}
	done sync.WaitGroup
}

// NewAdapter creates a persistence adapter with the given buffer and batch
// sizing. Call Start before sending deltas.
func NewAdapter(dbManager *database.DBManager, logger *slog.Logger, loc *time.Location, bufferSize, batchSize int, flushInterval time.Duration) *Adapter {
	if bufferSize <= 0 {
		bufferSize = 1024
	}
	if batchSize <= 0 {
		batchSize = 100
	}
	if flushInterval <= 0 {
		flushInterval = time.Second
	}
	return &Adapter{
		dbManager:     dbManager,
		logger:        logger,
		loc:           loc,
		buffer:        make(chan Visit, bufferSize),
		batchSize:     batchSize,
		flushInterval: flushInterval,
		stop:          make(chan struct{}),
	}
}

// Start launches the background writer.
func (a *Adapter) Start() {
	a.done.Add(1)
	go a.writeLoop()
}

// ApplyDelta enqueues a visit for durable storage. It never blocks; when the
// buffer is full the delta is dropped and a warning logged.
func (a *Adapter) ApplyDelta(domain, path, visitorSig string, timestamp time.Time) {
	v := Visit{
		Domain:           domain,
		Path:             path,
		VisitorSignature: visitorSig,
		Timestamp:        timestamp,
	}
	select {
	case a.buffer <- v:
	default:
		a.logger.Warn("Persistence buffer full, dropping visit", slog.String("domain", domain))
	}
}

// Close drains buffered visits and stops the writer. The context bounds how
// long the final flush may take.
func (a *Adapter) Close(ctx context.Context) error {
	close(a.stop)

	flushed := make(chan struct{})
	go func() {
		a.done.Wait()
		close(flushed)
	}()

	select {
	case <-flushed:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("persistence shutdown timed out: %w", ctx.Err())
	}
}

func (a *Adapter) writeLoop() {
	defer a.done.Done()

	ticker := time.NewTicker(a.flushInterval)
	defer ticker.Stop()

	batch := make([]Visit, 0, a.batchSize)

	flush := func() {
		if len(batch) == 0 {
			return
		}
		if err := a.writeBatch(batch); err != nil {
			a.logger.Error("Failed to persist visit batch",
				slog.Int("size", len(batch)),
				slog.Any("error", err))
		}
		batch = batch[:0]
	}

	for {
		select {
		case v := <-a.buffer:
			batch = append(batch, v)
			if len(batch) >= a.batchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		case <-a.stop:
			// Drain whatever is still buffered, then do a final flush.
			for {
				select {
				case v := <-a.buffer:
					batch = append(batch, v)
					if len(batch) >= a.batchSize {
						flush()
					}
				default:
					flush()
					return
				}
			}
		}
	}
}

func (a *Adapter) writeBatch(batch []Visit) error {
	db := a.dbManager.GetConnection()
	return database.PerformWrite(a.logger, db, func(tx *gorm.DB) error {
		return tx.Create(&batch).Error
	})
}

type domainTotalRow struct {
	Domain     string
	Total      uint64
	FirstVisit time.Time
	LastVisit  time.Time
}

type pageCountRow struct {
	Domain string
	Path   string
	Count  uint64
}

type visitRow struct {
	Domain           string
	Timestamp        time.Time
	VisitorSignature string
}

// LoadSnapshot rebuilds per-domain counter state from the visit log. The
// three rollup queries run concurrently.
func (a *Adapter) LoadSnapshot(ctx context.Context) ([]counters.RestoredCounter, error) {
	db := a.dbManager.GetConnection().WithContext(ctx)
	byDomain := make(map[string]*counters.RestoredCounter)

	get := func(domain string) *counters.RestoredCounter {
		rc, ok := byDomain[domain]
		if !ok {
			rc = &counters.RestoredCounter{
				Domain:   domain,
				Daily:    make(map[string]uint64),
				Pages:    make(map[string]uint64),
				Visitors: make(map[string][]string),
			}
			byDomain[domain] = rc
		}
		return rc
	}

	tasks := []async.Task{
		{Name: "totals", Execute: func() (any, error) {
			var totals []domainTotalRow
			err := db.Raw(`
    SELECT
        domain,
        COUNT(*) as total,
        MIN(timestamp) as first_visit,
        MAX(timestamp) as last_visit
    FROM visits
    GROUP BY domain
    `).Scan(&totals).Error
			if err != nil {
				return nil, fmt.Errorf("error loading domain totals: %w", err)
			}
			return totals, nil
		}},
		{Name: "pages", Execute: func() (any, error) {
			var pages []pageCountRow
			err := db.Raw(`
    SELECT domain, path, COUNT(*) as count
    FROM visits
    GROUP BY domain, path
    `).Scan(&pages).Error
			if err != nil {
				return nil, fmt.Errorf("error loading page counts: %w", err)
			}
			return pages, nil
		}},
		{Name: "visits", Execute: func() (any, error) {
			var rows []visitRow
			err := db.Raw(`
    SELECT domain, timestamp, visitor_signature
    FROM visits
    ORDER BY timestamp ASC
    `).Scan(&rows).Error
			if err != nil {
				return nil, fmt.Errorf("error loading daily visits: %w", err)
			}
			return rows, nil
		}},
	}

	results := async.NewPool(len(tasks)).Execute(ctx, tasks)
	for _, result := range results {
		if result.Err != nil {
			return nil, result.Err
		}
	}

	for _, t := range results["totals"].Data.([]domainTotalRow) {
		rc := get(t.Domain)
		rc.Total = t.Total
		rc.FirstVisit = t.FirstVisit
		rc.LastVisit = t.LastVisit
	}

	for _, p := range results["pages"].Data.([]pageCountRow) {
		get(p.Domain).Pages[p.Path] = p.Count
	}

	// Day bucketing happens in Go so the reference timezone matches the
	// in-memory counters rather than SQLite's UTC date().
	for _, r := range results["visits"].Data.([]visitRow) {
		rc := get(r.Domain)
		day := timeframe.DayKey(r.Timestamp, a.loc)
		rc.Daily[day]++
		if r.VisitorSignature != "" {
			sigs := rc.Visitors[day]
			if !containsSig(sigs, r.VisitorSignature) {
				rc.Visitors[day] = append(sigs, r.VisitorSignature)
			}
		}
	}

	result := make([]counters.RestoredCounter, 0, len(byDomain))
	for _, rc := range byDomain {
		result = append(result, *rc)
	}

	a.logger.Info("Loaded counter snapshot from visit log", slog.Int("domains", len(result)))
	return result, nil
}

func containsSig(sigs []string, sig string) bool {
	for _, s := range sigs {
		if s == sig {
			return true
		}
	}
	return false
}
