package sentry

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"sync"

	"github.com/klauspost/compress/gzip"
)

// MockRequest is a request recorded by MockTransport.
type MockRequest struct {
	URL    string
	Header http.Header
	// Body is the request body, decompressed when it was gzipped.
	Body []byte
}

// MockTransport implements [Transport] for use in tests. It records every
// request. Unless Response is set it answers with status 200 and the event
// id found in the request body.
type MockTransport struct {
	// Response, when set, produces the reply to a request.
	Response func(request *MockRequest) (int, []byte, error)

	mu       sync.Mutex
	requests []*MockRequest
}

func (t *MockTransport) Post(_ context.Context, url string, header http.Header, body []byte) (int, []byte, error) {
	request := &MockRequest{
		URL:    url,
		Header: header.Clone(),
		Body:   body,
	}
	if header.Get("Content-Encoding") == "gzip" {
		if decoded, err := gunzip(body); err == nil {
			request.Body = decoded
		}
	}

	t.mu.Lock()
	t.requests = append(t.requests, request)
	response := t.Response
	t.mu.Unlock()

	if response != nil {
		return response(request)
	}
	return http.StatusOK, mockEventResponse(request.Body), nil
}

// Requests returns the recorded requests in the order they were made.
func (t *MockTransport) Requests() []*MockRequest {
	t.mu.Lock()
	defer t.mu.Unlock()
	requests := make([]*MockRequest, len(t.requests))
	copy(requests, t.requests)
	return requests
}

// LastRequest returns the most recent request, or nil.
func (t *MockTransport) LastRequest() *MockRequest {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.requests) == 0 {
		return nil
	}
	return t.requests[len(t.requests)-1]
}

// mockEventResponse echoes the event_id of the first line of body, which is
// either a JSON event or an envelope header.
func mockEventResponse(body []byte) []byte {
	line := body
	if i := bytes.IndexByte(body, '\n'); i >= 0 {
		line = body[:i]
	}
	var payload struct {
		EventID string `json:"event_id"`
	}
	_ = json.Unmarshal(line, &payload)
	response, _ := json.Marshal(map[string]string{"id": payload.EventID})
	return response
}

func gunzip(body []byte) ([]byte, error) {
	r, err := gzip.NewReader(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}
