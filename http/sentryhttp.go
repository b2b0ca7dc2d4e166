// Package sentryhttp provides a net/http middleware reporting panics of
// handlers to Sentry.
package sentryhttp

import (
	"context"
	"net/http"
	"time"

	"github.com/crashdesk/sentry-go"
)

// Handler is the panic-recovery middleware for net/http handlers.
type Handler struct {
	client  *sentry.Client
	options sentry.RecoverOptions
}

// Options configure a Handler.
type Options struct {
	// Repanic configures whether the panic is raised again after it was
	// captured, so that another recovery handler can write the response.
	Repanic bool
	// WaitForDelivery blocks the request until the event was sent or
	// Timeout has passed.
	WaitForDelivery bool
	// Timeout for the event delivery. Defaults to 2 seconds.
	Timeout time.Duration
}

// New returns a middleware reporting panics to client.
func New(client *sentry.Client, options Options) *Handler {
	if options.Timeout == 0 {
		options.Timeout = 2 * time.Second
	}
	return &Handler{
		client: client,
		options: sentry.RecoverOptions{
			Repanic:         options.Repanic,
			WaitForDelivery: options.WaitForDelivery,
			Timeout:         options.Timeout,
		},
	}
}

// Handle wraps handler. The client of h is available to handler through
// sentry.GetClientFromContext.
func (h *Handler) Handle(handler http.Handler) http.Handler {
	return h.HandleFunc(handler.ServeHTTP)
}

// HandleFunc is Handle for http.HandlerFunc.
func (h *Handler) HandleFunc(handler http.HandlerFunc) http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		r = r.WithContext(h.contextFor(r))
		defer func() {
			h.client.RecoverRequest(r, recover(), h.options)
		}()
		handler(rw, r)
	}
}

func (h *Handler) contextFor(r *http.Request) context.Context {
	ctx := context.WithValue(r.Context(), sentry.RequestContextKey, r)
	return sentry.SetClientOnContext(ctx, h.client)
}
