package internal

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	v1 "visitcounter/api/v1"
	"visitcounter/internal/http"
)

// publicCORSConfig is the permissive CORS setup shared by the public
// counting endpoints, which are called cross-origin from tracked pages.
var publicCORSConfig = cors.Config{
	AllowOrigins: "*",
	AllowMethods: "POST,GET,OPTIONS",
	AllowHeaders: "Origin, Content-Type, Accept, X-Site-Domain, X-Page-Path",
}

// MountAppRoutes mounts all application routes.
func MountAppRoutes(server *fiber.App, app *Application) {
	cfg := app.Config

	// Rate limiting only applies in production; in development and test it
	// would interfere with rapid iteration and with the test suite.
	conditionalRateLimiter := func(handler fiber.Handler) fiber.Handler {
		return func(c *fiber.Ctx) error {
			if cfg.IsProduction() {
				return handler(c)
			}
			return c.Next()
		}
	}

	// 70 requests per minute per IP on the public counting API.
	publicRateLimiter := conditionalRateLimiter(limiter.New(limiter.Config{
		Max:        70,
		Expiration: time.Minute,
	}))

	countHandler := v1.NewCountHandler(app.Ingest, app.Logger)
	embedHandler := v1.NewEmbedHandler(app.Logger)
	statsHandler := http.NewStatsHandler(app.Stats, app.Store, app.Logger)
	sitesHandler := http.NewSitesHandler(app.Stats, app.Logger)
	visitsHandler := http.NewVisitsHandler(app.Stats, app.Logger)
	healthHandler := http.NewHealthHandler(app.DBManager, app.Store, app.Logger)

	// === HEALTH ===
	server.Get("/_health", healthHandler.GetHealth)
	server.Head("/_health", healthHandler.GetHealth)

	// === PUBLIC COUNTING API ===
	public := server.Group("/", cors.New(publicCORSConfig), publicRateLimiter)
	public.Get("/count/:domain", countHandler.IncrementGet)
	public.Post("/count", countHandler.IncrementPost)
	public.Options("/count", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNoContent)
	})
	public.Get("/embed.js", embedHandler.GetEmbedScript)

	// === STATS API ===
	server.Get("/stats/:domain", statsHandler.GetDomainStats)
	server.Get("/sites", sitesHandler.GetSites)
	server.Get("/visits", visitsHandler.GetVisits)
}
