package http

import (
	"context"
	"crypto/x509"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSyncTransport_Post(t *testing.T) {
	var (
		gotMethod string
		gotHeader http.Header
		gotBody   string
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotHeader = r.Header.Clone()
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"id":"9ec79c33ec9942ab8353589fcb2e04dc"}`))
	}))
	defer server.Close()

	transport := NewSyncTransport(TransportOptions{})
	header := http.Header{}
	header.Set("Content-Type", "application/json")
	header.Set("X-Sentry-Auth", "Sentry sentry_version=7")

	status, body, err := transport.Post(context.Background(), server.URL+"/api/1/store/", header, []byte(`{"a":1}`))
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, `{"id":"9ec79c33ec9942ab8353589fcb2e04dc"}`, string(body))
	assert.Equal(t, http.MethodPost, gotMethod)
	assert.Equal(t, "application/json", gotHeader.Get("Content-Type"))
	assert.Equal(t, "Sentry sentry_version=7", gotHeader.Get("X-Sentry-Auth"))
	assert.Equal(t, `{"a":1}`, gotBody)
}

func TestSyncTransport_PostErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"detail":"invalid event"}`))
	}))
	defer server.Close()

	status, body, err := NewSyncTransport(TransportOptions{}).Post(context.Background(), server.URL, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, `{"detail":"invalid event"}`, string(body))
}

func TestSyncTransport_PostLimitsResponseBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(strings.Repeat("x", maxDrainResponseBytes*2)))
	}))
	defer server.Close()

	_, body, err := NewSyncTransport(TransportOptions{}).Post(context.Background(), server.URL, nil, nil)
	require.NoError(t, err)
	assert.Len(t, body, maxDrainResponseBytes)
}

func TestSyncTransport_PostContextCanceled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, _, err := NewSyncTransport(TransportOptions{}).Post(ctx, server.URL, nil, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestNewSyncTransport_Options(t *testing.T) {
	client := &http.Client{}
	transport := NewSyncTransport(TransportOptions{HTTPClient: client})
	assert.Same(t, client, transport.client)

	transport = NewSyncTransport(TransportOptions{Timeout: time.Second})
	assert.Equal(t, time.Second, transport.client.Timeout)

	transport = NewSyncTransport(TransportOptions{})
	assert.Equal(t, defaultTimeout, transport.client.Timeout)
}

func TestGetProxyConfig(t *testing.T) {
	req, _ := http.NewRequest(http.MethodGet, "https://example.com", nil)

	proxy := getProxyConfig(TransportOptions{HTTPSProxy: "https://secure:8080", HTTPProxy: "http://plain:8080"})
	u, err := proxy(req)
	require.NoError(t, err)
	assert.Equal(t, "secure:8080", u.Host)

	proxy = getProxyConfig(TransportOptions{HTTPProxy: "http://plain:8080"})
	u, err = proxy(req)
	require.NoError(t, err)
	assert.Equal(t, "plain:8080", u.Host)
}

func TestGetTLSConfig(t *testing.T) {
	assert.Nil(t, getTLSConfig(TransportOptions{}))

	bundled := getTLSConfig(TransportOptions{BundledCaCerts: true})
	require.NotNil(t, bundled)
	assert.NotNil(t, bundled.RootCAs)

	pool := x509.NewCertPool()
	custom := getTLSConfig(TransportOptions{CaCerts: pool, BundledCaCerts: true})
	require.NotNil(t, custom)
	assert.Same(t, pool, custom.RootCAs)
}
