// Package ingest validates and normalizes incoming hit requests before
// applying them to the counter store.
package ingest

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"visitcounter/internal/counters"
	"visitcounter/internal/timeframe"
	"visitcounter/internal/visitors"
)

const (
	minDomainLength = 3
	maxDomainLength = 100
	maxPathLength   = 200
)

// InvalidDomainError indicates a hit request with an unusable domain.
type InvalidDomainError struct {
	Domain string
}

func (e *InvalidDomainError) Error() string {
	return fmt.Sprintf("invalid domain: %q (must be %d-%d characters)", e.Domain, minDomainLength, maxDomainLength)
}

// NewInvalidDomainError creates a new InvalidDomainError
func NewInvalidDomainError(domain string) *InvalidDomainError {
	return &InvalidDomainError{Domain: domain}
}

// InvalidPathError indicates a hit request with an unusable page path.
type InvalidPathError struct {
	Path string
}

func (e *InvalidPathError) Error() string {
	return fmt.Sprintf("invalid path: exceeds %d characters", maxPathLength)
}

// NewInvalidPathError creates a new InvalidPathError
func NewInvalidPathError(path string) *InvalidPathError {
	return &InvalidPathError{Path: path}
}

// DeltaSink receives one delta per recorded hit for durability. Implementations
// must never block the caller; durability failures stay internal to the sink.
type DeltaSink interface {
	ApplyDelta(domain, path, visitorSig string, timestamp time.Time)
}

// HitInput is one raw hit request as delivered by the transport layer.
// Any client-supplied timestamp is deliberately absent: ingestion always
// derives time server-side to keep daily bucketing immune to clock skew.
type HitInput struct {
	Domain    string
	Path      string
	ClientIP  string
	UserAgent string
}

// HitResult is the outcome of a successfully recorded hit.
type HitResult struct {
	Snapshot   counters.Snapshot
	Domain     string
	Path       string
	TodayCount uint64
	PageCount  uint64
	Timestamp  time.Time
}

// Service validates raw hits and applies them to the counter store.
type Service struct {
	store      *counters.Store
	sink       DeltaSink
	privateKey string
	clock      timeframe.TimeProvider
	logger     *slog.Logger
}

// NewService creates an ingestion service. sink may be nil when durability
// is disabled. privateKey salts the unique-visitor signatures.
func NewService(store *counters.Store, sink DeltaSink, privateKey string, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:      store,
		sink:       sink,
		privateKey: privateKey,
		clock:      &timeframe.DefaultTimeProvider{},
		logger:     logger,
	}
}

// SetClock overrides the time source; intended for tests.
func (s *Service) SetClock(clock timeframe.TimeProvider) {
	s.clock = clock
}

// RecordHit validates input, records the hit and emits a durability delta.
// Validation failures return a typed error without mutating any state.
func (s *Service) RecordHit(input HitInput) (*HitResult, error) {
	domain := strings.TrimSpace(input.Domain)
	if len(domain) < minDomainLength || len(domain) > maxDomainLength {
		return nil, NewInvalidDomainError(domain)
	}

	path, err := normalizePath(input.Path)
	if err != nil {
		return nil, err
	}

	loc := s.store.Location()
	now := s.clock.Now(loc)
	timestamp := now.UTC()

	var visitorSig string
	if input.ClientIP != "" {
		visitorSig = visitors.BuildUniqueVisitorID(domain, input.ClientIP, input.UserAgent, s.privateKey, now, loc)
	}

	snapshot := s.store.RecordHit(domain, path, visitorSig, timestamp)

	// Durability is fire-and-forget: the sink never blocks and its failures
	// never reach the caller. The in-memory counter is the source of truth.
	if s.sink != nil {
		s.sink.ApplyDelta(domain, path, visitorSig, timestamp)
	}

	today := timeframe.DayKey(timestamp, loc)
	return &HitResult{
		Snapshot:   snapshot,
		Domain:     domain,
		Path:       path,
		TodayCount: snapshot.Daily[today],
		PageCount:  snapshot.Pages[path],
		Timestamp:  timestamp,
	}, nil
}

// normalizePath trims, defaults and bounds a raw page path.
func normalizePath(raw string) (string, error) {
	path := strings.TrimSpace(raw)
	if path == "" {
		return counters.DefaultPath, nil
	}
	if len(path) > maxPathLength {
		return "", NewInvalidPathError(path)
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return path, nil
}
