// Package seeder fills an empty database with demo visit data so the stats
// endpoints have something to show on a fresh install.
package seeder

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"gorm.io/gorm"

	"visitcounter/internal/database"
	"visitcounter/internal/persistence"
	"visitcounter/internal/visitors"
)

const seedWindowDays = 30

var demoDomains = []string{
	"example.com",
	"mysite.it",
	"blog.esempio.org",
	"shop.test.com",
	"portfolio.dev",
}

var demoPages = []string{
	"/",
	"/about",
	"/contact",
	"/blog",
	"/products",
}

// Seeder generates demo visit history across the trailing seed window.
type Seeder struct {
	DBManager *database.DBManager
	Logger    *slog.Logger
	Salt      string
	Location  *time.Location
}

// NewSeeder creates a new seeder instance
func NewSeeder(dbManager *database.DBManager, logger *slog.Logger, salt string, loc *time.Location) *Seeder {
	if logger == nil {
		logger = slog.Default()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Seeder{
		DBManager: dbManager,
		Logger:    logger,
		Salt:      salt,
		Location:  loc,
	}
}

// Run seeds demo visits for each demo domain. It is a no-op when the visit
// log already contains data.
func (s *Seeder) Run(ctx context.Context) error {
	start := time.Now()
	db := s.DBManager.GetConnection()

	var existing int64
	if err := db.Model(&persistence.Visit{}).Count(&existing).Error; err != nil {
		return fmt.Errorf("failed to inspect visit log: %w", err)
	}
	if existing > 0 {
		s.Logger.Info("Visit log not empty, skipping demo seed", slog.Int64("visits", existing))
		return nil
	}

	s.Logger.Info("Seeding demo visit data...",
		slog.Int("domains", len(demoDomains)),
		slog.Int("days", seedWindowDays))

	ipPool := generateIPPool(60)
	userAgents := getUserAgents()

	total := 0
	for _, domain := range demoDomains {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		visits := s.generateDomainVisits(domain, ipPool, userAgents)
		err := database.PerformWrite(s.Logger, db, func(tx *gorm.DB) error {
			return tx.Create(&visits).Error
		})
		if err != nil {
			return fmt.Errorf("failed to seed visits for %s: %w", domain, err)
		}
		total += len(visits)
		s.Logger.Info("Seeded domain", slog.String("domain", domain), slog.Int("visits", len(visits)))
	}

	s.Logger.Info("Seeding completed successfully",
		slog.Int("visits", total),
		slog.Duration("elapsed", time.Since(start)))
	return nil
}

func (s *Seeder) generateDomainVisits(domain string, ipPool, userAgents []string) []persistence.Visit {
	now := time.Now().In(s.Location)
	var visits []persistence.Visit

	for dayOffset := seedWindowDays - 1; dayOffset >= 0; dayOffset-- {
		day := now.AddDate(0, 0, -dayOffset)
		perDay := rand.Intn(15) + 1

		for i := 0; i < perDay; i++ {
			ip := ipPool[rand.Intn(len(ipPool))]
			ua := userAgents[rand.Intn(len(userAgents))]

			path := "/"
			if rand.Intn(100) < 30 {
				path = demoPages[rand.Intn(len(demoPages))]
			}

			ts := time.Date(day.Year(), day.Month(), day.Day(),
				rand.Intn(24), rand.Intn(60), rand.Intn(60), 0, s.Location)
			if ts.After(now) {
				ts = now
			}

			visits = append(visits, persistence.Visit{
				Domain:           domain,
				Path:             path,
				VisitorSignature: visitors.BuildUniqueVisitorID(domain, ip, ua, s.Salt, ts, s.Location),
				Timestamp:        ts,
			})
		}
	}

	return visits
}

func generateIPPool(count int) []string {
	ipPool := make(map[string]bool)
	var ips []string
	for len(ips) < count {
		ip := fmt.Sprintf("%d.%d.%d.%d", rand.Intn(255)+1, rand.Intn(256), rand.Intn(256), rand.Intn(256))
		if !ipPool[ip] {
			ipPool[ip] = true
			ips = append(ips, ip)
		}
	}
	return ips
}

// getUserAgents returns a list of common user agent strings
func getUserAgents() []string {
	return []string{
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/108.0.0.0 Safari/537.36",
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/16.1 Safari/605.1.15",
		"Mozilla/5.0 (iPhone; CPU iPhone OS 16_1_1 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/16.1 Mobile/15E148 Safari/605.1",
		"Mozilla/5.0 (Linux; Android 13; Pixel 7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/108.0.0.0 Mobile Safari/537.36",
		"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/108.0.0.0 Safari/537.36",
		"Mozilla/5.0 (iPad; CPU OS 16_1_1 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/16.1 Mobile/15E148 Safari/605.1",
	}
}
