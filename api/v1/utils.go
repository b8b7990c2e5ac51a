package v1

import (
	"crypto/sha256"
	"encoding/hex"
	"net"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// getClientIP resolves the caller's address, preferring reverse-proxy
// headers over the socket peer.
func getClientIP(c *fiber.Ctx) string {
	if forwarded := c.Get("X-Forwarded-For"); forwarded != "" {
		if ip := firstValidIP(strings.Split(forwarded, ",")); ip != "" {
			return ip
		}
	}

	for _, header := range []string{"X-Real-IP", "CF-Connecting-IP", "True-Client-IP"} {
		if value := c.Get(header); value != "" {
			if ip := firstValidIP([]string{value}); ip != "" {
				return ip
			}
		}
	}

	return c.IP()
}

func firstValidIP(values []string) string {
	for _, raw := range values {
		clean := strings.TrimSpace(raw)
		if host, _, err := net.SplitHostPort(clean); err == nil {
			clean = host
		}
		if net.ParseIP(clean) != nil {
			return clean
		}
	}
	return ""
}

// generateETag creates a strong ETag from content using SHA-256
func generateETag(content []byte) string {
	hash := sha256.Sum256(content)
	return `"` + hex.EncodeToString(hash[:]) + `"` // Quoted for strong ETag
}
