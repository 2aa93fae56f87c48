package httputil

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestMockHTTPClient_QueuedResponses(t *testing.T) {
	mock := NewMockHTTPClient().
		AddBytesResponse(http.StatusOK, []byte{0x89, 'P', 'N', 'G'}, "image/png").
		AddResponse(http.StatusNotFound, "nope")

	req := httptest.NewRequest(http.MethodGet, "http://tiles.example/1/2/3", nil)
	resp, err := mock.Do(req)
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK || string(body) != "\x89PNG" {
		t.Errorf("got %d %q", resp.StatusCode, body)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "image/png" {
		t.Errorf("Content-Type = %q", ct)
	}

	resp, _ = mock.Do(req)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("second status = %d", resp.StatusCode)
	}

	// Exhausted queue falls back to an empty 200.
	resp, _ = mock.Do(req)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("fallback status = %d", resp.StatusCode)
	}
	if mock.RequestCount() != 3 {
		t.Errorf("RequestCount = %d, want 3", mock.RequestCount())
	}
	if mock.Request(0) != req || mock.Request(5) != nil {
		t.Error("Request did not return recorded requests")
	}
}

func TestMockHTTPClient_Errors(t *testing.T) {
	boom := errors.New("boom")
	mock := NewMockHTTPClient().AddErrorResponse(boom)
	if _, err := mock.Do(httptest.NewRequest(http.MethodGet, "/", nil)); !errors.Is(err, boom) {
		t.Errorf("err = %v, want boom", err)
	}

	mock = NewMockHTTPClient()
	mock.DefaultError = context.DeadlineExceeded
	if _, err := mock.Do(httptest.NewRequest(http.MethodGet, "/", nil)); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("err = %v", err)
	}
}

func TestMockHTTPClient_Handler(t *testing.T) {
	mock := NewMockHTTPClient()
	mock.Handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		WriteJSONOK(w, map[string]string{"path": r.URL.Path})
	})

	var got struct{ Path string }
	if err := GetJSON(context.Background(), mock, "http://bridge/mavlink/vehicles", &got); err != nil {
		t.Fatalf("GetJSON: %v", err)
	}
	if got.Path != "/mavlink/vehicles" {
		t.Errorf("path = %q", got.Path)
	}
}

func TestGetJSON_StatusAndDecodeErrors(t *testing.T) {
	var v map[string]any

	mock := NewMockHTTPClient().AddResponse(http.StatusServiceUnavailable, "{}")
	if err := GetJSON(context.Background(), mock, "http://x/", &v); err == nil {
		t.Error("expected status error")
	}

	mock = NewMockHTTPClient().AddResponse(http.StatusOK, "not json")
	if err := GetJSON(context.Background(), mock, "http://x/", &v); err == nil {
		t.Error("expected decode error")
	}
}

func TestGetJSON_RealServer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Accept") != "application/json" {
			t.Errorf("Accept = %q", r.Header.Get("Accept"))
		}
		w.Write([]byte(`{"n": 3}`))
	}))
	defer srv.Close()

	var got struct{ N int }
	if err := GetJSON(context.Background(), NewClient(time.Second), srv.URL, &got); err != nil {
		t.Fatalf("GetJSON: %v", err)
	}
	if got.N != 3 {
		t.Errorf("N = %d", got.N)
	}
}

func TestNewClient_Timeout(t *testing.T) {
	if c := NewClient(10 * time.Second); c.Timeout != 10*time.Second {
		t.Errorf("Timeout = %v", c.Timeout)
	}
}
