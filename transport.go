package sentry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/crashdesk/sentry-go/internal/debuglog"
	httpinternal "github.com/crashdesk/sentry-go/internal/http"
	"github.com/crashdesk/sentry-go/internal/protocol"
)

const (
	contentTypeJSON     = "application/json"
	contentTypeEnvelope = "application/x-sentry-envelope"
)

// ErrNoEventID is returned when the response of the ingestion API carries no
// valid event ID.
var ErrNoEventID = errors.New("sentry: response carries no event id")

// Transport is used by the Client to deliver payloads to the remote server.
//
// Post sends body to url with the given header and returns the status code
// and the body of the response.
type Transport interface {
	Post(ctx context.Context, url string, header http.Header, body []byte) (statusCode int, responseBody []byte, err error)
}

// TransportError reports a request that did not yield an event ID.
type TransportError struct {
	// StatusCode is zero when no response was received.
	StatusCode int
	Body       []byte
	Err        error
}

func (e *TransportError) Error() string {
	switch {
	case e.StatusCode == 0:
		return fmt.Sprintf("sentry: request failed: %v", e.Err)
	case e.Err != nil:
		return fmt.Sprintf("sentry: response status %d: %v", e.StatusCode, e.Err)
	default:
		return fmt.Sprintf("sentry: unexpected response status %d: %s", e.StatusCode, e.Body)
	}
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// NewHTTPTransport returns the default Transport, configured from the HTTP
// fields of options.
func NewHTTPTransport(options ClientOptions) Transport {
	return httpinternal.NewSyncTransport(httpinternal.TransportOptions{
		HTTPClient:     options.HTTPClient,
		HTTPTransport:  options.HTTPTransport,
		HTTPProxy:      options.HTTPProxy,
		HTTPSProxy:     options.HTTPSProxy,
		CaCerts:        options.CaCerts,
		BundledCaCerts: options.BundledCaCerts,
		Timeout:        options.HTTPTimeout,
		DebugLogger:    debuglog.GetLogger(),
	})
}

type eventResponse struct {
	ID string `json:"id"`
}

// eventIDFromResponse turns the outcome of a Transport call into the event
// ID assigned by the server.
func eventIDFromResponse(statusCode int, body []byte, err error) (EventID, error) {
	if err != nil {
		return EventID{}, &TransportError{Err: err}
	}
	if statusCode < 200 || statusCode > 299 {
		return EventID{}, &TransportError{StatusCode: statusCode, Body: body}
	}

	var response eventResponse
	if err := json.Unmarshal(body, &response); err != nil || response.ID == "" {
		return EventID{}, &TransportError{StatusCode: statusCode, Body: body, Err: ErrNoEventID}
	}
	id, err := protocol.ParseEventID(response.ID)
	if err != nil {
		return EventID{}, &TransportError{StatusCode: statusCode, Body: body, Err: ErrNoEventID}
	}
	return id, nil
}
