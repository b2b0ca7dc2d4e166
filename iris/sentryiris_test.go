package sentryiris_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kataras/iris/v12"
	"github.com/kataras/iris/v12/middleware/recover"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crashdesk/sentry-go"
	"github.com/crashdesk/sentry-go/internal/testutils"
	sentryiris "github.com/crashdesk/sentry-go/iris"
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

	app := iris.New()
	app.Use(recover.New(), sentryiris.New(client, sentryiris.Options{Repanic: true}))
	app.Get("/panic/{id}", func(ctx iris.Context) {
		assert.Same(t, client, sentryiris.GetClientFromContext(ctx))
		assert.Same(t, client, sentry.GetClientFromContext(ctx.Request().Context()))
		panic("test")
	})
	app.Get("/ok", func(ctx iris.Context) {
		ctx.WriteString("ok")
	})
	require.NoError(t, app.Build())

	w := httptest.NewRecorder()
	app.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic/1", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	w = httptest.NewRecorder()
	app.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ok", nil))
	assert.Equal(t, http.StatusOK, w.Code)

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
}

func TestWithoutRepanic(t *testing.T) {
	client, transport := newTestClient(t)

	app := iris.New()
	app.Use(sentryiris.New(client, sentryiris.Options{WaitForDelivery: true}))
	app.Get("/", func(iris.Context) {
		panic("swallowed")
	})
	require.NoError(t, app.Build())

	app.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	require.True(t, client.Flush(testutils.FlushTimeout()))
	assert.Len(t, transport.Requests(), 1)
}
