package http

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"time"

	"github.com/certifi/gocertifi"
)

const defaultTimeout = time.Second * 30

// maxDrainResponseBytes is the maximum number of bytes that transport
// implementations will read from response bodies.
//
// Sentry's ingestion API responses are short JSON objects holding the event
// ID. However, the net/http HTTP client requires response bodies to be fully
// drained (and closed) for TCP keep-alive to work.
//
// maxDrainResponseBytes strikes a balance between reading too much data (if the
// server is misbehaving) and reusing TCP connections.
const maxDrainResponseBytes = 16 << 10

// TransportOptions contains the configuration needed by the internal HTTP transport.
type TransportOptions struct {
	HTTPClient    *http.Client
	HTTPTransport http.RoundTripper
	HTTPProxy     string
	HTTPSProxy    string
	CaCerts       *x509.CertPool
	// BundledCaCerts trusts the Mozilla CA bundle compiled into the binary
	// instead of the system pool. Ignored when CaCerts is set.
	BundledCaCerts bool
	// HTTP Client request timeout. Defaults to 30 seconds.
	Timeout     time.Duration
	DebugLogger *log.Logger
}

func getProxyConfig(options TransportOptions) func(*http.Request) (*url.URL, error) {
	if options.HTTPSProxy != "" {
		return func(*http.Request) (*url.URL, error) {
			return url.Parse(options.HTTPSProxy)
		}
	}

	if options.HTTPProxy != "" {
		return func(*http.Request) (*url.URL, error) {
			return url.Parse(options.HTTPProxy)
		}
	}

	return http.ProxyFromEnvironment
}

func getTLSConfig(options TransportOptions) *tls.Config {
	if options.CaCerts != nil {
		// #nosec G402 -- We should be using `MinVersion: tls.VersionTLS12`,
		// 				 but we don't want to break peoples code without the major bump.
		return &tls.Config{
			RootCAs: options.CaCerts,
		}
	}

	if options.BundledCaCerts {
		rootCAs, err := gocertifi.CACerts()
		if err != nil {
			if options.DebugLogger != nil {
				options.DebugLogger.Printf("Couldn't load CA Certificates: %v", err)
			}
			return nil
		}
		return &tls.Config{
			RootCAs: rootCAs,
		}
	}

	return nil
}

// SyncTransport posts request bodies to the ingestion API and hands the
// response back to the caller. It never retries.
type SyncTransport struct {
	client    *http.Client
	transport http.RoundTripper
	logger    *log.Logger
}

// NewSyncTransport returns a new instance of SyncTransport configured with the given options.
func NewSyncTransport(options TransportOptions) *SyncTransport {
	transport := &SyncTransport{
		logger: options.DebugLogger,
	}

	timeout := options.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	if options.HTTPTransport != nil {
		transport.transport = options.HTTPTransport
	} else {
		transport.transport = &http.Transport{
			Proxy:           getProxyConfig(options),
			TLSClientConfig: getTLSConfig(options),
		}
	}

	if options.HTTPClient != nil {
		transport.client = options.HTTPClient
	} else {
		transport.client = &http.Client{
			Transport: transport.transport,
			Timeout:   timeout,
		}
	}

	return transport
}

// Post sends body to url with the given header and returns the response
// status code and at most maxDrainResponseBytes of the response body.
func (t *SyncTransport) Post(ctx context.Context, url string, header http.Header, body []byte) (int, []byte, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		t.printf("There was an issue creating the request: %v", err)
		return 0, nil, err
	}
	for key, values := range header {
		for _, value := range values {
			request.Header.Add(key, value)
		}
	}

	response, err := t.client.Do(request)
	if err != nil {
		t.printf("There was an issue with sending an event: %v", err)
		return 0, nil, err
	}
	defer response.Body.Close()

	b, err := io.ReadAll(io.LimitReader(response.Body, maxDrainResponseBytes))
	if err != nil {
		t.printf("Error while reading response body: %v", err)
		return response.StatusCode, nil, fmt.Errorf("reading response body: %w", err)
	}

	if response.StatusCode >= 400 && response.StatusCode <= 599 {
		t.printf("Sending to %s failed with status %d: %s", request.URL.Host, response.StatusCode, string(b))
	}

	// Drain the rest of the body up to a limit, allowing the
	// transport to reuse TCP connections.
	_, _ = io.CopyN(io.Discard, response.Body, maxDrainResponseBytes)

	return response.StatusCode, b, nil
}

func (t *SyncTransport) printf(format string, args ...interface{}) {
	if t.logger != nil {
		t.logger.Printf(format, args...)
	}
}
