// Package httputil holds the outbound HTTP client abstraction and the JSON
// response helpers shared by the API handlers.
package httputil

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"
)

// HTTPClient is satisfied by *http.Client and MockHTTPClient.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// NewClient returns an *http.Client whose requests give up after timeout.
func NewClient(timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout}
}

// maxJSONBody caps how much of a JSON response GetJSON will read.
const maxJSONBody = 4 << 20

// GetJSON fetches url and decodes a JSON body into v. Non-2xx statuses are
// errors.
func GetJSON(ctx context.Context, client HTTPClient, url string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("GET %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("GET %s: status %d", url, resp.StatusCode)
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxJSONBody)).Decode(v); err != nil {
		return fmt.Errorf("GET %s: decode: %w", url, err)
	}
	return nil
}

// MockHTTPClient replays canned responses. Precedence: DoFunc, Handler,
// DefaultError, then the queued responses in order, then an empty 200.
type MockHTTPClient struct {
	mu           sync.Mutex
	DoFunc       func(req *http.Request) (*http.Response, error)
	Handler      http.Handler
	DefaultError error
	requests     []*http.Request
	responses    []mockResponse
	next         int
}

type mockResponse struct {
	status int
	body   []byte
	header http.Header
	err    error
}

// NewMockHTTPClient returns an empty mock.
func NewMockHTTPClient() *MockHTTPClient {
	return &MockHTTPClient{}
}

// AddResponse queues a response with a text body.
func (m *MockHTTPClient) AddResponse(status int, body string) *MockHTTPClient {
	return m.AddBytesResponse(status, []byte(body), "")
}

// AddBytesResponse queues a response with a binary body and content type.
func (m *MockHTTPClient) AddBytesResponse(status int, body []byte, contentType string) *MockHTTPClient {
	h := make(http.Header)
	if contentType != "" {
		h.Set("Content-Type", contentType)
	}
	m.mu.Lock()
	m.responses = append(m.responses, mockResponse{status: status, body: body, header: h})
	m.mu.Unlock()
	return m
}

// AddErrorResponse queues a transport error.
func (m *MockHTTPClient) AddErrorResponse(err error) *MockHTTPClient {
	m.mu.Lock()
	m.responses = append(m.responses, mockResponse{err: err})
	m.mu.Unlock()
	return m
}

// Do records req and returns the next canned response.
func (m *MockHTTPClient) Do(req *http.Request) (*http.Response, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	doFunc, handler := m.DoFunc, m.Handler
	m.mu.Unlock()

	if doFunc != nil {
		return doFunc(req)
	}
	if handler != nil {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		resp := rec.Result()
		resp.Request = req
		return resp, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.DefaultError != nil {
		return nil, m.DefaultError
	}
	if m.next >= len(m.responses) {
		return &http.Response{
			StatusCode: http.StatusOK,
			Body:       io.NopCloser(bytes.NewReader(nil)),
			Header:     make(http.Header),
			Request:    req,
		}, nil
	}
	r := m.responses[m.next]
	m.next++
	if r.err != nil {
		return nil, r.err
	}
	return &http.Response{
		StatusCode: r.status,
		Body:       io.NopCloser(bytes.NewReader(r.body)),
		Header:     r.header.Clone(),
		Request:    req,
	}, nil
}

// RequestCount returns how many requests Do has seen.
func (m *MockHTTPClient) RequestCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

// Request returns the n'th recorded request, or nil.
func (m *MockHTTPClient) Request(n int) *http.Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n < 0 || n >= len(m.requests) {
		return nil
	}
	return m.requests[n]
}
