package httputil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorHelpers(t *testing.T) {
	tests := []struct {
		name   string
		write  func(w http.ResponseWriter)
		status int
		msg    string
	}{
		{"bad request", func(w http.ResponseWriter) { BadRequest(w, "bad z") }, http.StatusBadRequest, "bad z"},
		{"not found", func(w http.ResponseWriter) { NotFound(w, "no run") }, http.StatusNotFound, "no run"},
		{"conflict", func(w http.ResponseWriter) { Conflict(w, "already logging") }, http.StatusConflict, "already logging"},
		{"method", MethodNotAllowed, http.StatusMethodNotAllowed, "method not allowed"},
		{"internal", func(w http.ResponseWriter) { InternalServerError(w, "disk") }, http.StatusInternalServerError, "disk"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			tt.write(rec)
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
			var body map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.msg, body["error"])
		})
	}
}

func TestWriteJSONOK(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteJSONOK(rec, map[string]int{"tile_count": 4})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"tile_count": 4}`, rec.Body.String())
}

func TestDecodeJSONBody(t *testing.T) {
	var v struct {
		Files []string `json:"files"`
	}
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"files": ["a.csv"]}`))
	require.NoError(t, DecodeJSONBody(r, &v, 1024))
	assert.Equal(t, []string{"a.csv"}, v.Files)

	r = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(""))
	assert.NoError(t, DecodeJSONBody(r, &v, 1024))

	r = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"unknown": 1}`))
	assert.Error(t, DecodeJSONBody(r, &v, 1024))
}
