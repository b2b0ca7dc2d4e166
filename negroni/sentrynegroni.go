// Package sentrynegroni provides a negroni middleware reporting panics of
// the following handlers to Sentry.
package sentrynegroni

import (
	"context"
	"net/http"
	"time"

	"github.com/urfave/negroni/v3"

	"github.com/crashdesk/sentry-go"
)

type handler struct {
	client  *sentry.Client
	options sentry.RecoverOptions
}

// Options configure the middleware.
type Options struct {
	// Repanic configures whether the panic is raised again after it was
	// captured. Set it when negroni.Recovery is registered before this
	// middleware.
	Repanic bool
	// WaitForDelivery blocks the request until the event was sent or
	// Timeout has passed.
	WaitForDelivery bool
	// Timeout for the event delivery. Defaults to 2 seconds.
	Timeout time.Duration
}

// New returns a negroni.Handler reporting panics to client.
func New(client *sentry.Client, options Options) negroni.Handler {
	if options.Timeout == 0 {
		options.Timeout = 2 * time.Second
	}
	return &handler{
		client: client,
		options: sentry.RecoverOptions{
			Repanic:         options.Repanic,
			WaitForDelivery: options.WaitForDelivery,
			Timeout:         options.Timeout,
		},
	}
}

func (h *handler) ServeHTTP(rw http.ResponseWriter, r *http.Request, next http.HandlerFunc) {
	ctx := sentry.SetClientOnContext(
		context.WithValue(r.Context(), sentry.RequestContextKey, r),
		h.client,
	)
	r = r.WithContext(ctx)
	defer func() {
		h.client.RecoverRequest(r, recover(), h.options)
	}()
	next(rw, r)
}

// PanicHandlerFunc can be set as negroni.Recovery's PanicHandlerFunc to
// report the panics recovered there. Events are sent asynchronously.
func PanicHandlerFunc(client *sentry.Client) func(*negroni.PanicInformation) {
	return func(info *negroni.PanicInformation) {
		if info == nil || info.Request == nil {
			return
		}
		client.RecoverRequest(info.Request, info.RecoveredPanic, sentry.RecoverOptions{})
	}
}
