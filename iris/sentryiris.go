// Package sentryiris provides an iris middleware reporting panics of the
// following handlers to Sentry.
package sentryiris

import (
	"context"
	"time"

	"github.com/kataras/iris/v12"

	"github.com/crashdesk/sentry-go"
)

const valuesKey = "sentry"

type handler struct {
	client  *sentry.Client
	options sentry.RecoverOptions
}

// Options configure the middleware.
type Options struct {
	// Repanic configures whether the panic is raised again after it was
	// captured. In most cases it should be true, so the iris recover
	// middleware registered before this one writes the 500 response.
	Repanic bool
	// WaitForDelivery blocks the request until the event was sent or
	// Timeout has passed.
	WaitForDelivery bool
	// Timeout for the event delivery. Defaults to 2 seconds.
	Timeout time.Duration
}

// New returns an iris middleware reporting panics to client.
func New(client *sentry.Client, options Options) iris.Handler {
	if options.Timeout == 0 {
		options.Timeout = 2 * time.Second
	}
	return (&handler{
		client: client,
		options: sentry.RecoverOptions{
			Repanic:         options.Repanic,
			WaitForDelivery: options.WaitForDelivery,
			Timeout:         options.Timeout,
		},
	}).handle
}

func (h *handler) handle(ctx iris.Context) {
	r := ctx.Request()
	ctx.ResetRequest(r.WithContext(sentry.SetClientOnContext(
		context.WithValue(r.Context(), sentry.RequestContextKey, r),
		h.client,
	)))
	ctx.Values().Set(valuesKey, h.client)

	defer func() {
		h.client.RecoverRequest(ctx.Request(), recover(), h.options)
	}()
	ctx.Next()
}

// GetClientFromContext retrieves the client attached to ctx by the
// middleware, or nil.
func GetClientFromContext(ctx iris.Context) *sentry.Client {
	if client, ok := ctx.Values().Get(valuesKey).(*sentry.Client); ok {
		return client
	}
	return nil
}
