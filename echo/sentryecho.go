// Package sentryecho provides an echo middleware reporting panics of the
// following handlers to Sentry.
package sentryecho

import (
	"context"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/crashdesk/sentry-go"
)

// valuesKey is used as a key to store the client on the echo.Context.
const valuesKey = "sentry"

type handler struct {
	client  *sentry.Client
	options sentry.RecoverOptions
}

// Options configure the middleware.
type Options struct {
	// Repanic configures whether Sentry should repanic after recovery, in most cases it should be set to true,
	// as Echo includes its own Recover middleware that handles HTTP responses.
	Repanic bool
	// WaitForDelivery configures whether you want to block the request before moving forward with the response.
	// Because Echo's Recover handler doesn't restart the application,
	// it's safe to either skip this option or set it to false.
	WaitForDelivery bool
	// Timeout for the event delivery requests.
	Timeout time.Duration
}

// New returns a function that satisfies echo.MiddlewareFunc.
// It can be used with Use() methods.
func New(client *sentry.Client, options Options) echo.MiddlewareFunc {
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

func (h *handler) handle(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		r := ctx.Request()
		r = r.WithContext(sentry.SetClientOnContext(
			context.WithValue(r.Context(), sentry.RequestContextKey, r),
			h.client,
		))
		ctx.SetRequest(r)
		ctx.Set(valuesKey, h.client)

		defer func() {
			h.client.RecoverRequest(r, recover(), h.options)
		}()
		return next(ctx)
	}
}

// GetClientFromContext retrieves the client attached to echo.Context by the
// middleware, or nil.
func GetClientFromContext(ctx echo.Context) *sentry.Client {
	if client, ok := ctx.Get(valuesKey).(*sentry.Client); ok {
		return client
	}
	return nil
}
