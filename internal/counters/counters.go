// Package counters owns the authoritative in-memory visit counters.
//
// The store keys SiteCounters by domain. Writes to the same domain are
// serialized through a per-domain lock; writes to distinct domains never
// contend in steady state. The store-level lock is only taken for writing
// when a brand-new domain record has to be inserted.
package counters

import (
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"visitcounter/internal/timeframe"
)

// CounterNotFoundError indicates that no hits were ever recorded for a domain.
type CounterNotFoundError struct {
	Domain string
}

func (e *CounterNotFoundError) Error() string {
	return fmt.Sprintf("no counter found for domain: %s", e.Domain)
}

// NewCounterNotFoundError creates a new CounterNotFoundError
func NewCounterNotFoundError(domain string) *CounterNotFoundError {
	return &CounterNotFoundError{Domain: domain}
}

// DefaultPath is the page path attributed to hits without one.
const DefaultPath = "/"

// Snapshot is a consistent point-in-time copy of one domain's counters.
// All maps are deep copies; callers can never observe a torn write.
type Snapshot struct {
	Domain        string
	Total         uint64
	Daily         map[string]uint64 // "YYYY-MM-DD" (reference timezone) -> hits
	Pages         map[string]uint64 // normalized path -> hits
	DailyVisitors map[string]uint64 // "YYYY-MM-DD" -> distinct visitor signatures
	FirstVisit    time.Time
	LastVisit     time.Time
}

// DomainInfo is one row of the domain listing.
type DomainInfo struct {
	Domain    string
	Total     uint64
	LastVisit time.Time
}

// RestoredCounter carries rehydration data from the persistence adapter.
// Visitor signatures come as full per-day sets so later hits dedupe correctly.
type RestoredCounter struct {
	Domain     string
	Total      uint64
	Daily      map[string]uint64
	Pages      map[string]uint64
	Visitors   map[string][]string
	FirstVisit time.Time
	LastVisit  time.Time
}

// siteCounter holds the mutable counters for a single domain.
type siteCounter struct {
	mu sync.RWMutex

	domain        string
	total         uint64
	daily         map[string]uint64
	pages         map[string]uint64
	dailyVisitors map[string]map[string]struct{}
	firstVisit    time.Time
	lastVisit     time.Time
}

func newSiteCounter(domain string) *siteCounter {
	return &siteCounter{
		domain:        domain,
		daily:         make(map[string]uint64),
		pages:         make(map[string]uint64),
		dailyVisitors: make(map[string]map[string]struct{}),
	}
}

// snapshotLocked builds a deep snapshot. Callers must hold c.mu (read or write).
func (c *siteCounter) snapshotLocked() Snapshot {
	daily := make(map[string]uint64, len(c.daily))
	for date, count := range c.daily {
		daily[date] = count
	}
	pages := make(map[string]uint64, len(c.pages))
	for path, count := range c.pages {
		pages[path] = count
	}
	visitors := make(map[string]uint64, len(c.dailyVisitors))
	for date, set := range c.dailyVisitors {
		visitors[date] = uint64(len(set))
	}
	return Snapshot{
		Domain:        c.domain,
		Total:         c.total,
		Daily:         daily,
		Pages:         pages,
		DailyVisitors: visitors,
		FirstVisit:    c.firstVisit,
		LastVisit:     c.lastVisit,
	}
}

// Store is the concurrently-mutable set of SiteCounters.
type Store struct {
	mu       sync.RWMutex
	counters map[string]*siteCounter
	loc      *time.Location
	ready    atomic.Bool
}

// NewStore creates an empty store using loc as the reference timezone for
// daily bucketing. A nil location defaults to UTC.
func NewStore(loc *time.Location) *Store {
	if loc == nil {
		loc = time.UTC
	}
	return &Store{
		counters: make(map[string]*siteCounter),
		loc:      loc,
	}
}

// getOrCreate returns the counter for domain, inserting it exactly once.
// The store write lock is held only for the insertion itself.
func (s *Store) getOrCreate(domain string) *siteCounter {
	s.mu.RLock()
	counter, ok := s.counters[domain]
	s.mu.RUnlock()
	if ok {
		return counter
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	// Double-check: another first-hit for the same domain may have won the race.
	if counter, ok := s.counters[domain]; ok {
		return counter
	}
	counter = newSiteCounter(domain)
	s.counters[domain] = counter
	return counter
}

// RecordHit atomically attributes one hit to domain. The domain must already
// be validated by the caller; an empty path is recorded as DefaultPath. An
// empty visitorSig skips unique-visitor tracking for this hit. Returns a
// consistent snapshot of the updated counters.
func (s *Store) RecordHit(domain, path, visitorSig string, timestamp time.Time) Snapshot {
	if path == "" {
		path = DefaultPath
	}
	timestamp = timestamp.UTC()
	day := timeframe.DayKey(timestamp, s.loc)

	counter := s.getOrCreate(domain)

	counter.mu.Lock()
	defer counter.mu.Unlock()

	if counter.total == 0 {
		counter.firstVisit = timestamp
	}
	counter.total++
	counter.daily[day]++
	counter.pages[path]++
	counter.lastVisit = timestamp

	if visitorSig != "" {
		set, ok := counter.dailyVisitors[day]
		if !ok {
			set = make(map[string]struct{})
			counter.dailyVisitors[day] = set
		}
		set[visitorSig] = struct{}{}
	}

	return counter.snapshotLocked()
}

// GetCounter returns an immutable snapshot of the counter for domain, or a
// CounterNotFoundError when the domain has no recorded hits.
func (s *Store) GetCounter(domain string) (Snapshot, error) {
	s.mu.RLock()
	counter, ok := s.counters[domain]
	s.mu.RUnlock()
	if !ok {
		return Snapshot{}, NewCounterNotFoundError(domain)
	}

	counter.mu.RLock()
	defer counter.mu.RUnlock()
	return counter.snapshotLocked(), nil
}

// ListDomains returns all known domains ordered by total visits descending,
// ties broken by domain name ascending.
func (s *Store) ListDomains() []DomainInfo {
	s.mu.RLock()
	all := make([]*siteCounter, 0, len(s.counters))
	for _, counter := range s.counters {
		all = append(all, counter)
	}
	s.mu.RUnlock()

	infos := make([]DomainInfo, len(all))
	for i, counter := range all {
		counter.mu.RLock()
		infos[i] = DomainInfo{
			Domain:    counter.domain,
			Total:     counter.total,
			LastVisit: counter.lastVisit,
		}
		counter.mu.RUnlock()
	}

	sort.Slice(infos, func(i, j int) bool {
		if infos[i].Total != infos[j].Total {
			return infos[i].Total > infos[j].Total
		}
		return infos[i].Domain < infos[j].Domain
	})
	return infos
}

// Snapshots returns a snapshot of every counter, in ListDomains order.
func (s *Store) Snapshots() []Snapshot {
	infos := s.ListDomains()
	snapshots := make([]Snapshot, 0, len(infos))
	for _, info := range infos {
		snapshot, err := s.GetCounter(info.Domain)
		if err != nil {
			continue
		}
		snapshots = append(snapshots, snapshot)
	}
	return snapshots
}

// DomainCount returns the number of domains with at least one recorded hit.
func (s *Store) DomainCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.counters)
}

// Location returns the store's reference timezone.
func (s *Store) Location() *time.Location {
	return s.loc
}

// Restore replaces the store contents with rehydrated counters. Called once
// at startup before the store serves traffic.
func (s *Store) Restore(items []RestoredCounter) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.counters = make(map[string]*siteCounter, len(items))
	for _, item := range items {
		if item.Domain == "" || item.Total == 0 {
			continue
		}
		counter := newSiteCounter(item.Domain)
		counter.total = item.Total
		counter.firstVisit = item.FirstVisit.UTC()
		counter.lastVisit = item.LastVisit.UTC()
		for date, count := range item.Daily {
			counter.daily[date] = count
		}
		for path, count := range item.Pages {
			counter.pages[path] = count
		}
		for date, sigs := range item.Visitors {
			set := make(map[string]struct{}, len(sigs))
			for _, sig := range sigs {
				set[sig] = struct{}{}
			}
			counter.dailyVisitors[date] = set
		}
		s.counters[item.Domain] = counter
	}
}

// MarkReady flags the store as bootstrapped. Health probes report this.
func (s *Store) MarkReady() {
	s.ready.Store(true)
}

// Ready reports whether the startup snapshot load has completed.
func (s *Store) Ready() bool {
	return s.ready.Load()
}
