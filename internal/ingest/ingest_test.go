package ingest_test

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"visitcounter/internal/counters"
	"visitcounter/internal/ingest"
	"visitcounter/internal/testsupport"
)

type fixedClock struct {
	t time.Time
}

func (c *fixedClock) Now(loc *time.Location) time.Time {
	return c.t.In(loc)
}

type recordingSink struct {
	deltas []sinkDelta
}

type sinkDelta struct {
	domain, path, sig string
	timestamp         time.Time
}

func (r *recordingSink) ApplyDelta(domain, path, visitorSig string, timestamp time.Time) {
	r.deltas = append(r.deltas, sinkDelta{domain: domain, path: path, sig: visitorSig, timestamp: timestamp})
}

func newService(t *testing.T) (*ingest.Service, *counters.Store, *recordingSink) {
	t.Helper()
	store := counters.NewStore(time.UTC)
	sink := &recordingSink{}
	svc := ingest.NewService(store, sink, "test-key", testsupport.GetLogger())
	svc.SetClock(&fixedClock{t: time.Date(2025, 9, 2, 10, 0, 0, 0, time.UTC)})
	return svc, store, sink
}

func TestRecordHitSuccess(t *testing.T) {
	svc, _, sink := newService(t)

	result, err := svc.RecordHit(ingest.HitInput{Domain: "example.com", Path: "/about"})
	require.NoError(t, err)

	assert.Equal(t, "example.com", result.Domain)
	assert.Equal(t, "/about", result.Path)
	assert.Equal(t, uint64(1), result.Snapshot.Total)
	assert.Equal(t, uint64(1), result.TodayCount)
	assert.Equal(t, uint64(1), result.PageCount)
	assert.Equal(t, time.Date(2025, 9, 2, 10, 0, 0, 0, time.UTC), result.Timestamp)

	require.Len(t, sink.deltas, 1)
	assert.Equal(t, "example.com", sink.deltas[0].domain)
	assert.Equal(t, "/about", sink.deltas[0].path)
}

func TestRecordHitValidation(t *testing.T) {
	testCases := []struct {
		name       string
		input      ingest.HitInput
		wantDomain bool
		wantPath   bool
	}{
		{
			name:       "two character domain",
			input:      ingest.HitInput{Domain: "ab", Path: "/"},
			wantDomain: true,
		},
		{
			name:       "empty domain",
			input:      ingest.HitInput{Domain: "", Path: "/"},
			wantDomain: true,
		},
		{
			name:       "whitespace-only domain",
			input:      ingest.HitInput{Domain: "   ", Path: "/"},
			wantDomain: true,
		},
		{
			name:       "domain above 100 characters",
			input:      ingest.HitInput{Domain: strings.Repeat("a", 101), Path: "/"},
			wantDomain: true,
		},
		{
			name:     "path above 200 characters",
			input:    ingest.HitInput{Domain: "example.com", Path: "/" + strings.Repeat("p", 200)},
			wantPath: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			svc, store, sink := newService(t)

			_, err := svc.RecordHit(tc.input)
			require.Error(t, err)

			if tc.wantDomain {
				var invalidDomain *ingest.InvalidDomainError
				assert.ErrorAs(t, err, &invalidDomain)
			}
			if tc.wantPath {
				var invalidPath *ingest.InvalidPathError
				assert.ErrorAs(t, err, &invalidPath)
			}

			// No state is mutated on validation failure.
			assert.Equal(t, 0, store.DomainCount())
			assert.Empty(t, sink.deltas)
		})
	}
}

func TestRejectedDomainNeverCreatesCounter(t *testing.T) {
	svc, store, _ := newService(t)

	_, err := svc.RecordHit(ingest.HitInput{Domain: "ab", Path: "/"})
	require.Error(t, err)

	_, err = store.GetCounter("ab")
	var notFound *counters.CounterNotFoundError
	assert.ErrorAs(t, err, &notFound)
}

func TestPathNormalization(t *testing.T) {
	testCases := []struct {
		name     string
		raw      string
		expected string
	}{
		{name: "empty defaults to root", raw: "", expected: "/"},
		{name: "whitespace defaults to root", raw: "   ", expected: "/"},
		{name: "trimmed", raw: "  /about  ", expected: "/about"},
		{name: "missing leading slash", raw: "pricing", expected: "/pricing"},
		{name: "boundary length accepted", raw: "/" + strings.Repeat("p", 199), expected: "/" + strings.Repeat("p", 199)},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			svc, _, _ := newService(t)
			result, err := svc.RecordHit(ingest.HitInput{Domain: "example.com", Path: tc.raw})
			require.NoError(t, err)
			assert.Equal(t, tc.expected, result.Path)
		})
	}
}

func TestDomainTrimmedBeforeRecording(t *testing.T) {
	svc, store, _ := newService(t)

	result, err := svc.RecordHit(ingest.HitInput{Domain: "  example.com  "})
	require.NoError(t, err)
	assert.Equal(t, "example.com", result.Domain)

	_, err = store.GetCounter("example.com")
	assert.NoError(t, err)
}

func TestTimestampIsServerDerived(t *testing.T) {
	svc, _, sink := newService(t)

	result, err := svc.RecordHit(ingest.HitInput{Domain: "example.com"})
	require.NoError(t, err)

	expected := time.Date(2025, 9, 2, 10, 0, 0, 0, time.UTC)
	assert.Equal(t, expected, result.Timestamp)
	require.Len(t, sink.deltas, 1)
	assert.Equal(t, expected, sink.deltas[0].timestamp)
}

func TestVisitorSignatureDerivedFromClientIP(t *testing.T) {
	svc, _, sink := newService(t)

	_, err := svc.RecordHit(ingest.HitInput{Domain: "example.com", ClientIP: "203.0.113.7", UserAgent: "Mozilla/5.0"})
	require.NoError(t, err)
	_, err = svc.RecordHit(ingest.HitInput{Domain: "example.com", ClientIP: "203.0.113.7", UserAgent: "Mozilla/5.0"})
	require.NoError(t, err)
	result, err := svc.RecordHit(ingest.HitInput{Domain: "example.com", ClientIP: "203.0.113.8", UserAgent: "Mozilla/5.0"})
	require.NoError(t, err)

	require.Len(t, sink.deltas, 3)
	assert.Equal(t, sink.deltas[0].sig, sink.deltas[1].sig, "same visitor yields a stable signature")
	assert.NotEqual(t, sink.deltas[0].sig, sink.deltas[2].sig)
	assert.NotContains(t, sink.deltas[0].sig, "203.0.113.7", "raw IPs never reach the durable log")

	assert.Equal(t, uint64(2), result.Snapshot.DailyVisitors["2025-09-02"])
}

func TestRecordHitWithoutSinkStillCounts(t *testing.T) {
	store := counters.NewStore(time.UTC)
	svc := ingest.NewService(store, nil, "test-key", testsupport.GetLogger())

	result, err := svc.RecordHit(ingest.HitInput{Domain: "example.com"})
	require.NoError(t, err)
	assert.Equal(t, uint64(1), result.Snapshot.Total)
}
