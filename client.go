package sentry

import (
	"context"
	"crypto/x509"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/crashdesk/sentry-go/internal/debuglog"
	"github.com/crashdesk/sentry-go/internal/protocol"
)

// ClientOptions that configures a SDK Client.
type ClientOptions struct {
	// The DSN to use. It is required; a Client cannot be created without a
	// valid DSN.
	Dsn string
	// In debug mode, the debug information is printed to stderr to help you
	// understand what sentry is doing.
	Debug bool
	// Configures where the debug information is written to when Debug is
	// enabled. Defaults to os.Stderr.
	DebugWriter io.Writer
	// The server name to be reported. Defaults to the hostname.
	ServerName string
	// The release to be sent with events.
	Release string
	// The environment to be sent with events.
	Environment string
	// The maximum number of errors reported for a chain of wrapped errors.
	// Defaults to 10.
	MaxErrorDepth int
	// Size ceilings applied to envelopes and attachments. Zero fields take
	// their defaults.
	Limits Limits
	// Gzip envelopes before sending them.
	CompressEnvelopes bool
	// The transport to use. Defaults to an HTTP transport built from the
	// HTTP options below.
	Transport Transport
	// The file system crash logs are read from. Defaults to the OS file system.
	FileSystem FileSystem
	// An optional pointer to http.Client that will be used with a default
	// HTTP transport. Using your own client will make HTTPTransport, HTTPProxy,
	// HTTPSProxy and CaCerts options ignored.
	HTTPClient *http.Client
	// An optional pointer to http.Transport that will be used with a default
	// HTTP transport. Using your own transport will make HTTPProxy, HTTPSProxy
	// and CaCerts options ignored.
	HTTPTransport http.RoundTripper
	// An optional HTTP proxy to use.
	// This will default to the HTTP_PROXY environment variable.
	HTTPProxy string
	// An optional HTTPS proxy to use.
	// This will default to the HTTPS_PROXY environment variable.
	// HTTPS_PROXY takes precedence over HTTP_PROXY.
	HTTPSProxy string
	// An optional set of SSL certificates to use.
	CaCerts *x509.CertPool
	// Trust the Mozilla CA bundle compiled into the binary instead of the
	// system certificates, for hosts without a CA store. Ignored when
	// CaCerts is set.
	BundledCaCerts bool
	// The timeout of a single request of the default HTTP transport.
	// Defaults to 30 seconds.
	HTTPTimeout time.Duration
}

// Client is the underlying processor that is used by the main API and log
// handlers. It is safe for concurrent use.
type Client struct {
	options   ClientOptions
	dsn       *Dsn
	sdk       *SdkInfo
	transport Transport
	fs        FileSystem

	mu      sync.Mutex
	pending map[*Future]struct{}
}

// NewClient creates and returns an instance of Client configured using
// ClientOptions. An invalid DSN is reported as a *DsnParseError.
func NewClient(options ClientOptions) (*Client, error) {
	if options.Debug {
		debuglog.Enable(options.DebugWriter)
	}

	dsn, err := NewDsn(options.Dsn)
	if err != nil {
		return nil, err
	}

	if options.ServerName == "" {
		options.ServerName, _ = os.Hostname()
	}
	if options.MaxErrorDepth <= 0 {
		options.MaxErrorDepth = defaultMaxErrorDepth
	}
	options.Limits = options.Limits.WithDefaults()

	client := &Client{
		options: options,
		dsn:     dsn,
		sdk:     &SdkInfo{Name: SDKIdentifier, Version: SDKVersion},
		pending: make(map[*Future]struct{}),
	}

	client.transport = options.Transport
	if client.transport == nil {
		client.transport = NewHTTPTransport(options)
	}
	client.fs = options.FileSystem
	if client.fs == nil {
		client.fs = osFileSystem{}
	}

	return client, nil
}

// Options return ClientOptions for the current Client, with defaults applied.
func (client *Client) Options() ClientOptions {
	// Note: internally, consider using `client.options` instead of `client.Options()` to avoid copying the object each time.
	return client.options
}

// Dsn returns the parsed DSN of the Client.
func (client *Client) Dsn() *Dsn {
	return client.dsn
}

// CaptureMessage captures an arbitrary message and sends it to the store endpoint.
func (client *Client) CaptureMessage(ctx context.Context, message string, level Level) (EventID, error) {
	return client.CaptureEvent(ctx, client.EventFromMessage(message, level))
}

// CaptureError captures an error, along with the chain of errors it wraps,
// and sends it to the store endpoint.
func (client *Client) CaptureError(ctx context.Context, err error) (EventID, error) {
	return client.CaptureEvent(ctx, client.EventFromError(err, LevelError))
}

// CaptureEvent sends event to the store endpoint and returns the event ID
// assigned by the server.
func (client *Client) CaptureEvent(ctx context.Context, event *Event) (EventID, error) {
	event = client.prepareEvent(event)

	body, err := EncodeEvent(event)
	if err != nil {
		return EventID{}, err
	}

	debuglog.Printf("Sending %s event [%s] to %s project: %d",
		event.Level, event.EventID, client.dsn.Host(), client.dsn.ProjectID())

	return eventIDFromResponse(client.transport.Post(ctx,
		client.dsn.StoreAPIURL().String(),
		client.requestHeader(contentTypeJSON),
		body,
	))
}

// CaptureEventWithAttachments sends event together with attachments to the
// envelope endpoint. Attachments above the soft size ceiling are sent
// empty; attachments that cannot be read fail the call before anything is
// sent.
func (client *Client) CaptureEventWithAttachments(ctx context.Context, event *Event, attachments ...*Attachment) (EventID, error) {
	event = client.prepareEvent(event)
	limits := client.options.Limits

	body, err := EncodeEvent(event)
	if err != nil {
		return EventID{}, err
	}

	eventID := event.EventID
	envelope := protocol.NewEnvelope(&protocol.EnvelopeHeader{
		EventID: &eventID,
		Sdk:     client.sdk,
	})

	item, err := protocol.NewEnvelopeItem(protocol.EnvelopeItemTypeEvent, body, limits)
	if err != nil {
		return EventID{}, err
	}
	envelope.AddItem(item)

	for _, attachment := range attachments {
		if attachment == nil {
			continue
		}
		payload, err := attachment.Payload(limits.MaxAttachmentSize)
		if err != nil {
			return EventID{}, err
		}
		if len(payload) == 0 {
			debuglog.Printf("Attachment %q is empty or exceeds %d bytes, sending it without content",
				attachment.Filename, limits.MaxAttachmentSize)
		}
		item, err := protocol.NewAttachmentItem(attachment.Filename, attachment.ContentType, payload, limits)
		if err != nil {
			return EventID{}, err
		}
		envelope.AddItem(item)
	}

	return client.SendEnvelope(ctx, envelope)
}

// SendEnvelope validates, serializes and sends envelope to the envelope
// endpoint. Invalid envelopes are never sent.
func (client *Client) SendEnvelope(ctx context.Context, envelope *Envelope) (EventID, error) {
	if envelope == nil {
		return EventID{}, fmt.Errorf("sentry: nil envelope")
	}
	if envelope.Header == nil {
		envelope.Header = &EnvelopeHeader{}
	}
	if envelope.Header.Sdk == nil {
		envelope.Header.Sdk = client.sdk
	}

	body, err := envelope.Serialize(client.options.Limits)
	if err != nil {
		return EventID{}, err
	}

	header := client.requestHeader(contentTypeEnvelope)
	if client.options.CompressEnvelopes {
		body, err = protocol.Compress(body, client.options.Limits)
		if err != nil {
			return EventID{}, err
		}
		header.Set("Content-Encoding", "gzip")
	}

	debuglog.Printf("Sending envelope with %d items to %s project: %d",
		len(envelope.Items), client.dsn.Host(), client.dsn.ProjectID())

	return eventIDFromResponse(client.transport.Post(ctx,
		client.dsn.EnvelopeAPIURL().String(),
		header,
		body,
	))
}

// Recover captures a panic value and sends it as a fatal event. It returns
// a zero EventID and no error when recovered is nil.
func (client *Client) Recover(ctx context.Context, recovered interface{}) (EventID, error) {
	if recovered == nil {
		return EventID{}, nil
	}
	return client.CaptureEvent(ctx, client.EventFromRecovered(recovered))
}

// EventFromMessage creates an event holding message at the given level.
func (client *Client) EventFromMessage(message string, level Level) *Event {
	return &Event{
		Level:   level,
		Message: &Message{Message: message},
	}
}

// EventFromError creates an event holding the error chain of err.
func (client *Client) EventFromError(err error, level Level) *Event {
	if err == nil {
		return client.EventFromMessage("called with nil error", LevelError)
	}
	return &Event{
		Level:     level,
		Message:   &Message{Message: err.Error()},
		Exception: exceptionsFromError(err, client.options.MaxErrorDepth),
	}
}

// EventFromRecovered creates a fatal event out of a value returned by recover().
func (client *Client) EventFromRecovered(recovered interface{}) *Event {
	switch value := recovered.(type) {
	case error:
		return client.EventFromError(value, LevelFatal)
	case string:
		return client.EventFromMessage(value, LevelFatal)
	default:
		return client.EventFromMessage(fmt.Sprintf("%#v", value), LevelFatal)
	}
}

// Go runs fn on a new goroutine and returns a Future holding its result.
// Flush waits for all Futures created this way.
func (client *Client) Go(fn func() (EventID, error)) *Future {
	future := &Future{done: make(chan struct{})}
	client.mu.Lock()
	client.pending[future] = struct{}{}
	client.mu.Unlock()

	go func() {
		defer func() {
			client.mu.Lock()
			delete(client.pending, future)
			client.mu.Unlock()
			close(future.done)
		}()
		future.id, future.err = fn()
	}()
	return future
}

// Flush waits until all Futures started with Go are done or the timeout is
// reached. It returns false when the timeout was reached.
func (client *Client) Flush(timeout time.Duration) bool {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return client.FlushWithContext(ctx)
}

// FlushWithContext waits until all Futures started with Go before the call
// are done or ctx is done. It returns false when ctx was done first.
func (client *Client) FlushWithContext(ctx context.Context) bool {
	client.mu.Lock()
	futures := make([]*Future, 0, len(client.pending))
	for future := range client.pending {
		futures = append(futures, future)
	}
	client.mu.Unlock()

	for _, future := range futures {
		select {
		case <-future.Done():
		case <-ctx.Done():
			debuglog.Println("Flush timed out with outstanding sends")
			return false
		}
	}
	return true
}

// prepareEvent returns a copy of event with the identifiers, timestamps and
// client level attributes filled in.
func (client *Client) prepareEvent(event *Event) *Event {
	if event == nil {
		event = &Event{}
	}
	prepared := *event

	if prepared.EventID.IsZero() {
		prepared.EventID = protocol.GenerateEventID()
	}
	if prepared.Timestamp.IsZero() {
		prepared.Timestamp = time.Now()
	}
	if prepared.Level == "" {
		prepared.Level = LevelError
	}
	if prepared.Platform == "" {
		prepared.Platform = "go"
	}
	if prepared.ServerName == "" {
		prepared.ServerName = client.options.ServerName
	}
	if prepared.Release == "" {
		prepared.Release = client.options.Release
	}
	if prepared.Environment == "" {
		prepared.Environment = client.options.Environment
	}
	if prepared.Sdk == nil {
		prepared.Sdk = client.sdk
	}

	return &prepared
}

func (client *Client) requestHeader(contentType string) http.Header {
	header := http.Header{}
	header.Set("User-Agent", UserAgent)
	header.Set("Content-Type", contentType)
	header.Set("X-Sentry-Auth", client.dsn.AuthHeader(UserAgent))
	return header
}

// Future is the result of an asynchronous send.
type Future struct {
	done chan struct{}
	id   EventID
	err  error
}

// Wait blocks until the send is complete and returns its result.
func (f *Future) Wait() (EventID, error) {
	<-f.done
	return f.id, f.err
}

// Done returns a channel that is closed when the send is complete.
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// SendResult is the outcome of one send of a batch.
type SendResult struct {
	EventID EventID
	Err     error
}
