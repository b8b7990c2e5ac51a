package http

import (
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"

	"visitcounter/internal/stats"
)

// SitesHandler lists every tracked domain.
type SitesHandler struct {
	engine *stats.Engine
	logger *slog.Logger
}

func NewSitesHandler(engine *stats.Engine, logger *slog.Logger) *SitesHandler {
	return &SitesHandler{engine: engine, logger: logger}
}

// GetSites handles GET /sites.
func (h *SitesHandler) GetSites(c *fiber.Ctx) error {
	sites := h.engine.AllSitesSummary()

	return c.JSON(fiber.Map{
		"totalSites": len(sites),
		"sites":      sites,
		"timestamp":  time.Now().UTC().Format(time.RFC3339),
	})
}
