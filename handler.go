package sentry

import (
	"context"
	"net/http"
	"time"
)

type contextKey int

const (
	clientContextKey contextKey = iota
	// RequestContextKey holds the *http.Request a middleware is serving.
	RequestContextKey
)

// Headers that are never copied into events.
var sensitiveHeaders = map[string]struct{}{
	"Authorization":       {},
	"Cookie":              {},
	"Set-Cookie":          {},
	"Proxy-Authorization": {},
	"X-Sentry-Auth":       {},
}

// Request is the HTTP request interface of an event.
type Request struct {
	URL         string            `json:"url,omitempty"`
	Method      string            `json:"method,omitempty"`
	QueryString string            `json:"query_string,omitempty"`
	Headers     map[string]string `json:"headers,omitempty"`
}

// NewRequest returns the event request interface of r. Credentials and
// cookies are left out.
func NewRequest(r *http.Request) *Request {
	request := &Request{
		Method:      r.Method,
		QueryString: r.URL.RawQuery,
	}

	u := *r.URL
	u.RawQuery = ""
	u.User = nil
	if u.Host == "" {
		u.Host = r.Host
	}
	if u.Scheme == "" && u.Host != "" {
		u.Scheme = "http"
		if r.TLS != nil {
			u.Scheme = "https"
		}
	}
	request.URL = u.String()

	if len(r.Header) > 0 {
		request.Headers = make(map[string]string, len(r.Header))
		for k, v := range r.Header {
			if _, ok := sensitiveHeaders[k]; ok || len(v) == 0 {
				continue
			}
			request.Headers[k] = v[0]
		}
	}
	if r.Host != "" {
		if request.Headers == nil {
			request.Headers = make(map[string]string, 1)
		}
		request.Headers["Host"] = r.Host
	}
	return request
}

// SetClientOnContext returns a copy of ctx carrying client.
func SetClientOnContext(ctx context.Context, client *Client) context.Context {
	return context.WithValue(ctx, clientContextKey, client)
}

// GetClientFromContext returns the client stored on ctx, or nil.
func GetClientFromContext(ctx context.Context) *Client {
	if client, ok := ctx.Value(clientContextKey).(*Client); ok {
		return client
	}
	return nil
}

// RecoverOptions configure how HTTP middlewares react to a panic.
type RecoverOptions struct {
	// Repanic re-raises the panic after it was captured. Set it when another
	// middleware is responsible for writing the error response.
	Repanic bool
	// WaitForDelivery blocks the request until the event was sent or
	// Timeout has passed.
	WaitForDelivery bool
	// Timeout for the event delivery. Defaults to 2 seconds.
	Timeout time.Duration
}

// RecoverRequest captures recovered as a fatal event describing r. The event
// is sent asynchronously; when WaitForDelivery is set the call waits for the
// send until Timeout. RecoverRequest panics again with recovered when
// Repanic is set.
func (client *Client) RecoverRequest(r *http.Request, recovered interface{}, options RecoverOptions) *Future {
	if recovered == nil {
		return nil
	}
	return client.RecoverWithRequest(r.Context(), NewRequest(r), r.Method+" "+r.URL.Path, recovered, options)
}

// RecoverWithRequest is RecoverRequest for servers that do not serve
// net/http requests. request and transaction describe the request being
// served; sensitive headers of request are dropped.
func (client *Client) RecoverWithRequest(ctx context.Context, request *Request, transaction string, recovered interface{}, options RecoverOptions) *Future {
	if recovered == nil {
		return nil
	}

	var future *Future
	if client != nil {
		event := client.EventFromRecovered(recovered)
		event.Request = redactRequest(request)
		event.Transaction = transaction

		ctx = context.WithoutCancel(ctx)
		future = client.Go(func() (EventID, error) {
			return client.CaptureEvent(ctx, event)
		})

		if options.WaitForDelivery {
			timeout := options.Timeout
			if timeout == 0 {
				timeout = 2 * time.Second
			}
			timer := time.NewTimer(timeout)
			select {
			case <-future.Done():
			case <-timer.C:
			}
			timer.Stop()
		}
	}

	if options.Repanic {
		panic(recovered)
	}
	return future
}

func redactRequest(request *Request) *Request {
	if request == nil {
		return nil
	}
	redacted := *request
	redacted.Headers = make(map[string]string, len(request.Headers))
	for k, v := range request.Headers {
		if _, ok := sensitiveHeaders[http.CanonicalHeaderKey(k)]; ok {
			continue
		}
		redacted.Headers[k] = v
	}
	if len(redacted.Headers) == 0 {
		redacted.Headers = nil
	}
	return &redacted
}

// Decorate wraps handler and recovers from all its panics, reporting them to
// client. The client is available to handler through GetClientFromContext.
func Decorate(client *Client, handler http.Handler) http.Handler {
	return DecorateFunc(client, handler.ServeHTTP)
}

// DecorateFunc is Decorate for http.HandlerFunc.
func DecorateFunc(client *Client, handler http.HandlerFunc) http.HandlerFunc {
	return func(response http.ResponseWriter, request *http.Request) {
		ctx := SetClientOnContext(request.Context(), client)
		ctx = context.WithValue(ctx, RequestContextKey, request)
		request = request.WithContext(ctx)
		defer func() {
			client.RecoverRequest(request, recover(), RecoverOptions{})
		}()
		handler(response, request)
	}
}
