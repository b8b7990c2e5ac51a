package http

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"visitcounter/internal/counters"
	"visitcounter/internal/stats"
)

// VisitsHandler serves the daily visit series for charts.
type VisitsHandler struct {
	engine *stats.Engine
	logger *slog.Logger
}

func NewVisitsHandler(engine *stats.Engine, logger *slog.Logger) *VisitsHandler {
	return &VisitsHandler{engine: engine, logger: logger}
}

// GetVisits handles GET /visits?domain=&days=. Without a domain the series
// sums across every tracked site.
func (h *VisitsHandler) GetVisits(c *fiber.Ctx) error {
	domain := c.Query("domain")
	days := c.QueryInt("days", stats.DefaultSeriesDays)

	series, err := h.engine.VisitsByDate(domain, days)
	if err != nil {
		var notFound *counters.CounterNotFoundError
		if errors.As(err, &notFound) {
			return c.Status(http.StatusNotFound).JSON(fiber.Map{
				"error":  "Domain not found",
				"domain": domain,
			})
		}
		h.logger.Error("Failed to compute visit series", slog.String("domain", domain), slog.Any("error", err))
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{
			"error": "Internal server error",
		})
	}

	return c.JSON(fiber.Map{
		"domain": domain,
		"days":   len(series),
		"visits": series,
	})
}
