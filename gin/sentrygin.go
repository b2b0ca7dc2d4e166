// Package sentrygin provides a gin middleware reporting panics of the
// following handlers to Sentry.
package sentrygin

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

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
	// captured. Set it when gin.Recovery is registered before this
	// middleware, so it can write the 500 response.
	Repanic bool
	// WaitForDelivery blocks the request until the event was sent or
	// Timeout has passed.
	WaitForDelivery bool
	// Timeout for the event delivery. Defaults to 2 seconds.
	Timeout time.Duration
}

// New returns a gin middleware reporting panics to client.
func New(client *sentry.Client, options Options) gin.HandlerFunc {
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

func (h *handler) handle(c *gin.Context) {
	r := c.Request
	ctx := sentry.SetClientOnContext(
		context.WithValue(r.Context(), sentry.RequestContextKey, r),
		h.client,
	)
	c.Request = r.WithContext(ctx)
	c.Set(valuesKey, h.client)

	defer func() {
		h.client.RecoverRequest(c.Request, recover(), h.options)
	}()
	c.Next()
}

// GetClientFromContext retrieves the client attached to ctx by the
// middleware, or nil.
func GetClientFromContext(ctx *gin.Context) *sentry.Client {
	if client, ok := ctx.Get(valuesKey); ok {
		if client, ok := client.(*sentry.Client); ok {
			return client
		}
	}
	return nil
}
