// Package http holds the JSON API handlers for statistics and health.
package http

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"visitcounter/internal/counters"
	"visitcounter/internal/stats"
)

// StatsHandler serves per-domain statistics.
type StatsHandler struct {
	engine *stats.Engine
	store  *counters.Store
	logger *slog.Logger
}

func NewStatsHandler(engine *stats.Engine, store *counters.Store, logger *slog.Logger) *StatsHandler {
	return &StatsHandler{engine: engine, store: store, logger: logger}
}

// GetDomainStats handles GET /stats/:domain.
func (h *StatsHandler) GetDomainStats(c *fiber.Ctx) error {
	domain := c.Params("domain")

	siteStats, err := h.engine.SiteStats(domain)
	if err != nil {
		var notFound *counters.CounterNotFoundError
		if errors.As(err, &notFound) {
			return c.Status(http.StatusNotFound).JSON(fiber.Map{
				"error":  "Domain not found",
				"domain": domain,
			})
		}
		h.logger.Error("Failed to compute site stats", slog.String("domain", domain), slog.Any("error", err))
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{
			"error": "Internal server error",
		})
	}

	snapshot, err := h.store.GetCounter(domain)
	if err != nil {
		var notFound *counters.CounterNotFoundError
		if errors.As(err, &notFound) {
			return c.Status(http.StatusNotFound).JSON(fiber.Map{
				"error":  "Domain not found",
				"domain": domain,
			})
		}
		h.logger.Error("Failed to read counter", slog.String("domain", domain), slog.Any("error", err))
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{
			"error": "Internal server error",
		})
	}

	return c.JSON(fiber.Map{
		"domain":              domain,
		"total":               siteStats.TotalVisits,
		"firstVisit":          siteStats.FirstVisit,
		"lastVisit":           siteStats.LastVisit,
		"dailyStats":          snapshot.Daily,
		"pageStats":           snapshot.Pages,
		"totalPages":          siteStats.TotalPages,
		"activeDays":          siteStats.ActiveDays,
		"visitsToday":         siteStats.VisitsToday,
		"visitsThisWeek":      siteStats.VisitsThisWeek,
		"visitsThisMonth":     siteStats.VisitsThisMonth,
		"uniqueVisitorsToday": siteStats.UniqueVisitorsToday,
	})
}
