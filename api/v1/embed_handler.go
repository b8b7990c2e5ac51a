package v1

import (
	"bytes"
	_ "embed"
	"log/slog"
	"text/template"

	"github.com/gofiber/fiber/v2"
)

//go:embed embed.js
var embedTemplate string

const defaultEmbedDomain = "example.com"

// EmbedHandler serves the counter snippet that pages include to report
// visits back via JSONP.
type EmbedHandler struct {
	logger *slog.Logger
}

func NewEmbedHandler(logger *slog.Logger) *EmbedHandler {
	return &EmbedHandler{logger: logger}
}

// GetEmbedScript handles GET /embed.js?domain=&api=.
func (h *EmbedHandler) GetEmbedScript(c *fiber.Ctx) error {
	domain := c.Query("domain", defaultEmbedDomain)
	apiURL := c.Query("api")
	if apiURL == "" {
		apiURL = c.BaseURL()
	}

	tmpl, err := template.New("embed.js").Parse(embedTemplate)
	if err != nil {
		h.logger.Error("Failed to parse embed template", slog.Any("error", err))
		return c.Status(fiber.StatusInternalServerError).SendString("Internal Server Error")
	}

	var buf bytes.Buffer
	data := map[string]string{
		"Domain":  template.JSEscapeString(domain),
		"BaseURL": template.JSEscapeString(apiURL),
	}
	if err := tmpl.Execute(&buf, data); err != nil {
		h.logger.Error("Failed to render embed template", slog.Any("error", err))
		return c.Status(fiber.StatusInternalServerError).SendString("Internal Server Error")
	}

	content := buf.Bytes()
	etag := generateETag(content)

	if c.Get("If-None-Match") == etag {
		return c.Status(fiber.StatusNotModified).Send(nil)
	}

	c.Set("Content-Type", "application/javascript")
	c.Set("Cache-Control", "public, max-age=300")
	c.Set("ETag", etag)
	c.Set("Cross-Origin-Resource-Policy", "cross-origin")
	return c.Send(content)
}
