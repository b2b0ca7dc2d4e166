package sentryfiber_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crashdesk/sentry-go"
	sentryfiber "github.com/crashdesk/sentry-go/fiber"
	"github.com/crashdesk/sentry-go/internal/testutils"
)

func newTestClient(t *testing.T) (*sentry.Client, *sentry.MockTransport) {
	t.Helper()
	transport := &sentry.MockTransport{}
	client, err := sentry.NewClient(sentry.ClientOptions{
		Dsn:       "https://public@example.com/1",
		Transport: transport,
	})
	require.NoError(t, err)
	return client, transport
}

func TestIntegration(t *testing.T) {
	client, transport := newTestClient(t)

	app := fiber.New()
	app.Use(recover.New(), sentryfiber.New(client, sentryfiber.Options{Repanic: true}))
	app.Get("/panic/:id", func(c *fiber.Ctx) error {
		assert.Same(t, client, sentryfiber.GetClientFromContext(c))
		assert.Same(t, client, sentry.GetClientFromContext(c.UserContext()))
		panic("test")
	})
	app.Get("/ok", func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})

	req := httptest.NewRequest(http.MethodGet, "http://example.com/panic/1?verbose=1", nil)
	req.Header.Set("User-Agent", "fiber")
	req.Header.Set("Cookie", "session=secret")
	resp, err := app.Test(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "http://example.com/ok", nil))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	require.True(t, client.Flush(testutils.FlushTimeout()))
	requests := transport.Requests()
	require.Len(t, requests, 1)

	var event struct {
		Level       string          `json:"level"`
		Transaction string          `json:"transaction"`
		Message     *sentry.Message `json:"message"`
		Request     *sentry.Request `json:"request"`
	}
	require.NoError(t, json.Unmarshal(requests[0].Body, &event))
	assert.Equal(t, "fatal", event.Level)
	assert.Equal(t, "GET /panic/1", event.Transaction)
	assert.Equal(t, "test", event.Message.Message)
	assert.Equal(t, "http://example.com/panic/1", event.Request.URL)
	assert.Equal(t, "verbose=1", event.Request.QueryString)
	assert.Equal(t, "fiber", event.Request.Headers["User-Agent"])
	assert.NotContains(t, event.Request.Headers, "Cookie")
}

func TestWithoutRepanic(t *testing.T) {
	client, transport := newTestClient(t)

	app := fiber.New()
	app.Use(sentryfiber.New(client, sentryfiber.Options{WaitForDelivery: true}))
	app.Get("/", func(*fiber.Ctx) error {
		panic("swallowed")
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "http://example.com/", nil))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	require.True(t, client.Flush(testutils.FlushTimeout()))
	assert.Len(t, transport.Requests(), 1)
}
