package http

import (
	"time"

	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"visitcounter/internal/counters"
	"visitcounter/internal/database"
)

// HealthStatus represents the health check response
type HealthStatus struct {
	Status     string    `json:"status"`
	InstanceID string    `json:"instanceId"`
	Timestamp  time.Time `json:"timestamp"`
	Uptime     float64   `json:"uptime"`
	TotalSites int       `json:"totalSites"`
	Ready      bool      `json:"ready"`
	DBStatus   string    `json:"db_status"`
}

// HealthHandler answers liveness probes.
type HealthHandler struct {
	dbManager  *database.DBManager
	store      *counters.Store
	logger     *slog.Logger
	instanceID string
	startedAt  time.Time
}

func NewHealthHandler(dbManager *database.DBManager, store *counters.Store, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{
		dbManager:  dbManager,
		store:      store,
		logger:     logger,
		instanceID: uuid.NewString(),
		startedAt:  time.Now(),
	}
}

// GetHealth handles GET and HEAD /_health.
func (h *HealthHandler) GetHealth(c *fiber.Ctx) error {
	dbStatus := "ok"

	db := h.dbManager.GetConnection()
	if db == nil {
		dbStatus = "error"
		h.logger.Error("Database connection unavailable")
	} else {
		sqlDB, err := db.DB()
		if err != nil {
			dbStatus = "error"
			h.logger.Error("Database connection error", slog.Any("error", err))
		} else if err := sqlDB.Ping(); err != nil {
			dbStatus = "error"
			h.logger.Error("Database ping failed", slog.Any("error", err))
		}
	}

	health := HealthStatus{
		Status:     "ok",
		InstanceID: h.instanceID,
		Timestamp:  time.Now(),
		Uptime:     time.Since(h.startedAt).Seconds(),
		TotalSites: h.store.DomainCount(),
		Ready:      h.store.Ready(),
		DBStatus:   dbStatus,
	}

	if dbStatus != "ok" {
		health.Status = "degraded"
	}

	return c.JSON(health)
}
