package v1

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"time"

	"github.com/gofiber/fiber/v2"

	"visitcounter/internal/ingest"
)

const (
	errInvalidRequest = "Invalid request"
	errInternal       = "Internal server error"
)

// Callback names are restricted to plain JS identifiers so the JSONP
// response cannot be used to inject script.
var callbackNamePattern = regexp.MustCompile(`^[A-Za-z_$][A-Za-z0-9_$.]*$`)

// HitRecorder validates and applies a single visit.
type HitRecorder interface {
	RecordHit(input ingest.HitInput) (*ingest.HitResult, error)
}

// CountHandler serves the public counting endpoints used by embedded
// snippets and server-side integrations.
type CountHandler struct {
	recorder HitRecorder
	logger   *slog.Logger
}

func NewCountHandler(recorder HitRecorder, logger *slog.Logger) *CountHandler {
	return &CountHandler{recorder: recorder, logger: logger}
}

type countPostParams struct {
	Domain string `json:"domain"`
	Page   string `json:"page"`
}

// IncrementGet handles GET /count/:domain. The page comes from the query
// string or the X-Page-Path header, and a callback parameter switches the
// response to JSONP so the embed script can run without CORS.
func (h *CountHandler) IncrementGet(c *fiber.Ctx) error {
	domain := c.Params("domain")
	page := c.Query("page")
	if page == "" {
		page = c.Get("X-Page-Path")
	}
	callback := c.Query("callback")
	if callback != "" && !callbackNamePattern.MatchString(callback) {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{
			"error":   "Invalid callback",
			"success": false,
		})
	}

	result, err := h.recorder.RecordHit(ingest.HitInput{
		Domain:    domain,
		Path:      page,
		ClientIP:  getClientIP(c),
		UserAgent: c.Get("User-Agent"),
	})
	if err != nil {
		return h.handleRecordError(c, err)
	}

	response := buildCountResponse(result)

	if callback != "" {
		body, err := jsonpBody(callback, response)
		if err != nil {
			h.logger.Error("Failed to encode JSONP response", slog.Any("error", err))
			return c.Status(http.StatusInternalServerError).JSON(fiber.Map{
				"error":   errInternal,
				"success": false,
			})
		}
		c.Set("Content-Type", "application/javascript")
		return c.Send(body)
	}

	return c.JSON(response)
}

// IncrementPost handles POST /count with a JSON body.
func (h *CountHandler) IncrementPost(c *fiber.Ctx) error {
	var params countPostParams
	if err := c.BodyParser(&params); err != nil {
		h.logger.Debug("Failed to parse count request body", slog.Any("error", err))
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{
			"error":   errInvalidRequest,
			"success": false,
		})
	}

	result, err := h.recorder.RecordHit(ingest.HitInput{
		Domain:    params.Domain,
		Path:      params.Page,
		ClientIP:  getClientIP(c),
		UserAgent: c.Get("User-Agent"),
	})
	if err != nil {
		return h.handleRecordError(c, err)
	}

	return c.JSON(buildCountResponse(result))
}

func (h *CountHandler) handleRecordError(c *fiber.Ctx, err error) error {
	var domainErr *ingest.InvalidDomainError
	var pathErr *ingest.InvalidPathError
	if errors.As(err, &domainErr) || errors.As(err, &pathErr) {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{
			"error":   err.Error(),
			"success": false,
		})
	}

	h.logger.Error("Failed to record hit", slog.Any("error", err))
	return c.Status(http.StatusInternalServerError).JSON(fiber.Map{
		"error":   errInternal,
		"success": false,
	})
}

func buildCountResponse(result *ingest.HitResult) fiber.Map {
	return fiber.Map{
		"success":    true,
		"domain":     result.Domain,
		"page":       result.Path,
		"count":      result.Snapshot.Total,
		"todayCount": result.TodayCount,
		"pageCount":  result.PageCount,
		"timestamp":  result.Timestamp.Format(time.RFC3339),
	}
}

func jsonpBody(callback string, response fiber.Map) ([]byte, error) {
	encoded, err := json.Marshal(response)
	if err != nil {
		return nil, err
	}
	return []byte(fmt.Sprintf("%s(%s);", callback, encoded)), nil
}
