package visitors_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"visitcounter/internal/visitors"
)

func TestBuildUniqueVisitorID(t *testing.T) {
	day := time.Date(2025, 9, 2, 10, 0, 0, 0, time.UTC)

	id := visitors.BuildUniqueVisitorID("example.com", "203.0.113.7", "Mozilla/5.0", "salt", day, time.UTC)
	assert.Len(t, id, 64, "expected a hex-encoded SHA-256 digest")

	// Same inputs on the same day are stable.
	again := visitors.BuildUniqueVisitorID("example.com", "203.0.113.7", "Mozilla/5.0", "salt", day.Add(5*time.Hour), time.UTC)
	assert.Equal(t, id, again)

	// The signature rotates across days.
	nextDay := visitors.BuildUniqueVisitorID("example.com", "203.0.113.7", "Mozilla/5.0", "salt", day.AddDate(0, 0, 1), time.UTC)
	assert.NotEqual(t, id, nextDay)

	// Distinct visitors, domains and salts all produce distinct signatures.
	assert.NotEqual(t, id, visitors.BuildUniqueVisitorID("example.com", "203.0.113.8", "Mozilla/5.0", "salt", day, time.UTC))
	assert.NotEqual(t, id, visitors.BuildUniqueVisitorID("other.com", "203.0.113.7", "Mozilla/5.0", "salt", day, time.UTC))
	assert.NotEqual(t, id, visitors.BuildUniqueVisitorID("example.com", "203.0.113.7", "Mozilla/5.0", "pepper", day, time.UTC))

	// The raw IP never appears in the signature.
	assert.NotContains(t, id, "203.0.113.7")
}
