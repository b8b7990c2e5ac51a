// Package stats derives read-only rollups from counter store snapshots.
// The engine holds no mutable state of its own.
package stats

import (
	"time"

	"visitcounter/internal/counters"
	"visitcounter/internal/timeframe"
)

// Trailing window sizes, in calendar days including today.
const (
	WeekWindowDays  = 7
	MonthWindowDays = 30

	// DefaultSeriesDays is the window used when a caller does not ask
	// for a specific number of days.
	DefaultSeriesDays = 30
)

// SiteStats is the full rollup for one domain.
type SiteStats struct {
	Domain              string    `json:"domain"`
	TotalVisits         uint64    `json:"totalVisits"`
	ActiveDays          int       `json:"activeDays"`
	FirstVisit          time.Time `json:"firstVisit"`
	LastVisit           time.Time `json:"lastVisit"`
	VisitsToday         uint64    `json:"visitsToday"`
	VisitsThisWeek      uint64    `json:"visitsThisWeek"`
	VisitsThisMonth     uint64    `json:"visitsThisMonth"`
	UniqueVisitorsToday uint64    `json:"uniqueVisitorsToday"`
	TotalPages          int       `json:"totalPages"`
}

// SiteSummary is one row of the all-sites listing.
type SiteSummary struct {
	Domain      string    `json:"domain"`
	TotalVisits uint64    `json:"totalVisits"`
	TodayCount  uint64    `json:"todayCount"`
	Pages       int       `json:"pages"`
	LastVisit   time.Time `json:"lastVisit"`
}

// Engine computes derived statistics from the counter store.
type Engine struct {
	store *counters.Store
	clock timeframe.TimeProvider
}

// NewEngine creates a query engine over store.
func NewEngine(store *counters.Store) *Engine {
	return &Engine{
		store: store,
		clock: &timeframe.DefaultTimeProvider{},
	}
}

// SetClock overrides the time source; intended for tests.
func (e *Engine) SetClock(clock timeframe.TimeProvider) {
	e.clock = clock
}

// SiteStats computes the rollup for one domain. Returns a
// CounterNotFoundError when the domain has no recorded hits.
func (e *Engine) SiteStats(domain string) (*SiteStats, error) {
	snapshot, err := e.store.GetCounter(domain)
	if err != nil {
		return nil, err
	}

	loc := e.store.Location()
	now := e.clock.Now(loc)
	today := timeframe.DayKey(now, loc)

	return &SiteStats{
		Domain:              snapshot.Domain,
		TotalVisits:         snapshot.Total,
		ActiveDays:          len(snapshot.Daily),
		FirstVisit:          snapshot.FirstVisit,
		LastVisit:           snapshot.LastVisit,
		VisitsToday:         snapshot.Daily[today],
		VisitsThisWeek:      timeframe.SumTrailingDays(snapshot.Daily, now, WeekWindowDays, loc),
		VisitsThisMonth:     timeframe.SumTrailingDays(snapshot.Daily, now, MonthWindowDays, loc),
		UniqueVisitorsToday: snapshot.DailyVisitors[today],
		TotalPages:          len(snapshot.Pages),
	}, nil
}

// AllSitesSummary lists every domain's summary, ordered by total visits
// descending with domain-name ascending tiebreak.
func (e *Engine) AllSitesSummary() []SiteSummary {
	loc := e.store.Location()
	now := e.clock.Now(loc)
	today := timeframe.DayKey(now, loc)

	snapshots := e.store.Snapshots()
	summaries := make([]SiteSummary, len(snapshots))
	for i, snapshot := range snapshots {
		summaries[i] = SiteSummary{
			Domain:      snapshot.Domain,
			TotalVisits: snapshot.Total,
			TodayCount:  snapshot.Daily[today],
			Pages:       len(snapshot.Pages),
			LastVisit:   snapshot.LastVisit,
		}
	}
	return summaries
}

// VisitsByDate returns a zero-filled daily series for the trailing
// windowDays calendar days, chronologically ascending. An empty domain sums
// across all domains; a non-empty unknown domain yields a
// CounterNotFoundError.
func (e *Engine) VisitsByDate(domain string, windowDays int) ([]timeframe.DateStat, error) {
	if windowDays <= 0 {
		windowDays = DefaultSeriesDays
	}

	loc := e.store.Location()
	now := e.clock.Now(loc)

	if domain != "" {
		snapshot, err := e.store.GetCounter(domain)
		if err != nil {
			return nil, err
		}
		return timeframe.BuildDailySeries(snapshot.Daily, now, windowDays, loc), nil
	}

	merged := make(map[string]uint64)
	for _, snapshot := range e.store.Snapshots() {
		for date, count := range snapshot.Daily {
			merged[date] += count
		}
	}
	return timeframe.BuildDailySeries(merged, now, windowDays, loc), nil
}
