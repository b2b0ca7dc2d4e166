// Package sentryfasthttp provides a fasthttp middleware reporting panics of
// the wrapped handler to Sentry.
package sentryfasthttp

import (
	"context"
	"time"

	"github.com/valyala/fasthttp"

	"github.com/crashdesk/sentry-go"
)

const valuesKey = "sentry"

// Handler wraps fasthttp request handlers.
type Handler struct {
	client  *sentry.Client
	options sentry.RecoverOptions
}

// Options configure the middleware.
type Options struct {
	// Repanic configures whether the panic is raised again after it was
	// captured. In most cases it should be false, as fasthttp has no
	// recovery handler of its own.
	Repanic bool
	// WaitForDelivery blocks the request until the event was sent or
	// Timeout has passed. Set it when a panic ends the process.
	WaitForDelivery bool
	// Timeout for the event delivery. Defaults to 2 seconds.
	Timeout time.Duration
}

// New returns a Handler reporting panics to client.
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

// Handle wraps handler and recovers from its panics.
func (h *Handler) Handle(handler fasthttp.RequestHandler) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		ctx.SetUserValue(valuesKey, h.client)
		defer func() {
			h.Recover(sentry.SetClientOnContext(context.Background(), h.client), ctx, recover())
		}()
		handler(ctx)
	}
}

// Recover reports recovered, a value returned by recover while ctx was
// served. It does nothing when recovered is nil.
func (h *Handler) Recover(parent context.Context, ctx *fasthttp.RequestCtx, recovered interface{}) *sentry.Future {
	if recovered == nil {
		return nil
	}
	return h.client.RecoverWithRequest(parent, NewRequest(ctx), Transaction(ctx), recovered, h.options)
}

// GetClientFromContext retrieves the client attached to ctx by the
// middleware, or nil.
func GetClientFromContext(ctx *fasthttp.RequestCtx) *sentry.Client {
	if client, ok := ctx.UserValue(valuesKey).(*sentry.Client); ok {
		return client
	}
	return nil
}

// NewRequest returns the event request interface of the request served by
// ctx. The query string is reported apart from the URL and no body is read.
func NewRequest(ctx *fasthttp.RequestCtx) *sentry.Request {
	uri := ctx.URI()
	request := &sentry.Request{
		URL:         string(uri.Scheme()) + "://" + string(uri.Host()) + string(uri.Path()),
		Method:      string(ctx.Method()),
		QueryString: string(uri.QueryString()),
		Headers:     make(map[string]string),
	}

	ctx.Request.Header.VisitAll(func(key, value []byte) {
		if _, ok := request.Headers[string(key)]; !ok {
			request.Headers[string(key)] = string(value)
		}
	})
	request.Headers["Host"] = string(ctx.Host())
	return request
}

// Transaction returns the "METHOD path" transaction name of ctx.
func Transaction(ctx *fasthttp.RequestCtx) string {
	return string(ctx.Method()) + " " + string(ctx.Path())
}
