// Package sentryfiber provides a fiber middleware reporting panics of the
// following handlers to Sentry.
package sentryfiber

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/crashdesk/sentry-go"
	sentryfasthttp "github.com/crashdesk/sentry-go/fasthttp"
)

const valuesKey = "sentry"

type handler struct {
	client  *sentry.Client
	options sentry.RecoverOptions
}

// Options configure the middleware.
type Options struct {
	// Repanic configures whether the panic is raised again after it was
	// captured. Set it when the fiber recover middleware is registered
	// before this one, so it can write the 500 response.
	Repanic bool
	// WaitForDelivery blocks the request until the event was sent or
	// Timeout has passed.
	WaitForDelivery bool
	// Timeout for the event delivery. Defaults to 2 seconds.
	Timeout time.Duration
}

// New returns a fiber middleware reporting panics to client.
func New(client *sentry.Client, options Options) fiber.Handler {
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

func (h *handler) handle(c *fiber.Ctx) error {
	ctx := sentry.SetClientOnContext(c.UserContext(), h.client)
	c.SetUserContext(ctx)
	c.Locals(valuesKey, h.client)

	defer func() {
		if recovered := recover(); recovered != nil {
			request := c.Context()
			h.client.RecoverWithRequest(ctx, sentryfasthttp.NewRequest(request), sentryfasthttp.Transaction(request), recovered, h.options)
		}
	}()
	return c.Next()
}

// GetClientFromContext retrieves the client attached to c by the
// middleware, or nil.
func GetClientFromContext(c *fiber.Ctx) *sentry.Client {
	if client, ok := c.Locals(valuesKey).(*sentry.Client); ok {
		return client
	}
	return nil
}
