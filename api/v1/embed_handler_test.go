package v1_test

import (
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	v1 "visitcounter/api/v1"
	"visitcounter/internal/testsupport"
)

func setupEmbedApp(t *testing.T) *fiber.App {
	t.Helper()

	handler := v1.NewEmbedHandler(testsupport.GetLogger())

	app := fiber.New()
	app.Get("/embed.js", handler.GetEmbedScript)
	return app
}

func TestGetEmbedScript(t *testing.T) {
	app := setupEmbedApp(t)

	req := httptest.NewRequest("GET", "/embed.js?domain=mysite.it", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "application/javascript")
	assert.Equal(t, "public, max-age=300", resp.Header.Get("Cache-Control"))
	assert.NotEmpty(t, resp.Header.Get("ETag"))

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	body := string(raw)
	assert.Contains(t, body, "var DOMAIN = 'mysite.it';")
	assert.Contains(t, body, "visitCounterUpdated")
	assert.NotContains(t, body, "{{")
}

func TestGetEmbedScriptDefaultDomain(t *testing.T) {
	app := setupEmbedApp(t)

	req := httptest.NewRequest("GET", "/embed.js", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "var DOMAIN = 'example.com';")
}

func TestGetEmbedScriptETagRoundTrip(t *testing.T) {
	app := setupEmbedApp(t)

	req := httptest.NewRequest("GET", "/embed.js?domain=mysite.it", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	etag := resp.Header.Get("ETag")
	require.NotEmpty(t, etag)

	req = httptest.NewRequest("GET", "/embed.js?domain=mysite.it", nil)
	req.Header.Set("If-None-Match", etag)
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotModified, resp.StatusCode)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Empty(t, raw)
}

func TestGetEmbedScriptEscapesDomain(t *testing.T) {
	app := setupEmbedApp(t)

	req := httptest.NewRequest("GET", "/embed.js?domain=evil.com%27%3Balert(1)%2F%2F", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "';alert(1)//")
}
