package visitors

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"visitcounter/internal/timeframe"
)

// BuildUniqueVisitorID creates a privacy-first unique visitor identifier.
// The signature rotates at midnight of the reference timezone, ensuring
// visitors cannot be tracked across days. IP addresses are never stored -
// only used in hashing.
func BuildUniqueVisitorID(domain, ipAddress, userAgent, salt string, at time.Time, loc *time.Location) string {
	dailySalt := fmt.Sprintf("%s-%s", timeframe.DayKey(at, loc), salt)
	data := fmt.Sprintf("%s.%s.%s.%s", dailySalt, domain, ipAddress, userAgent)

	// SHA-256 hash; the IP address never leaves this function in the clear.
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
