package tilecache

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/depth.survey/internal/httputil"
)

var pngStub = []byte("\x89PNG\r\n\x1a\nstub")

func TestService_URL(t *testing.T) {
	s := NewService(nil, nil, 0)
	u, err := s.URL(TileKey{Z: 18, X: 10, Y: 20, Source: SourceEsri})
	require.NoError(t, err)
	assert.Equal(t, "https://server.arcgisonline.com/ArcGIS/rest/services/World_Imagery/MapServer/tile/18/20/10", u)

	u, err = s.URL(TileKey{Z: 18, X: 10, Y: 20, Source: SourceGoogle})
	require.NoError(t, err)
	assert.Equal(t, "https://mt1.google.com/vt/lyrs=s&x=10&y=20&z=18", u)

	_, err = s.URL(TileKey{Source: "bing"})
	assert.ErrorIs(t, err, ErrUnknownSource)
}

func TestService_MissThenHit(t *testing.T) {
	c, _, _ := newTestCache(t, DefaultOptions())
	client := httputil.NewMockHTTPClient().AddBytesResponse(http.StatusOK, pngStub, "image/png")
	s := NewService(c, client, time.Second)
	key := TileKey{Z: 18, X: 7, Y: 9, Source: SourceGoogle}

	data, hit, err := s.Tile(context.Background(), key)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, pngStub, data)

	req := client.Request(0)
	require.NotNil(t, req)
	assert.Contains(t, req.Header.Get("User-Agent"), "Mozilla")
	assert.NotEmpty(t, req.Header.Get("Referer"))

	data, hit, err = s.Tile(context.Background(), key)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, pngStub, data)
	assert.Equal(t, 1, client.RequestCount(), "second request must be served from cache")
}

func TestService_LowZoomNotCached(t *testing.T) {
	c, _, _ := newTestCache(t, DefaultOptions())
	client := httputil.NewMockHTTPClient().
		AddBytesResponse(http.StatusOK, pngStub, "image/png").
		AddBytesResponse(http.StatusOK, pngStub, "image/png")
	s := NewService(c, client, time.Second)
	key := TileKey{Z: 12, X: 1, Y: 1, Source: SourceEsri}

	for i := 0; i < 2; i++ {
		_, hit, err := s.Tile(context.Background(), key)
		require.NoError(t, err)
		assert.False(t, hit)
	}
	assert.Equal(t, 2, client.RequestCount())
}

func TestService_FetchFailures(t *testing.T) {
	cases := map[string]*httputil.MockHTTPClient{
		"status":    httputil.NewMockHTTPClient().AddResponse(http.StatusForbidden, "denied"),
		"transport": httputil.NewMockHTTPClient().AddErrorResponse(errors.New("connection reset")),
		"empty":     httputil.NewMockHTTPClient().AddBytesResponse(http.StatusOK, nil, "image/png"),
	}
	for name, client := range cases {
		t.Run(name, func(t *testing.T) {
			c, _, _ := newTestCache(t, DefaultOptions())
			s := NewService(c, client, time.Second)
			key := TileKey{Z: 18, X: 1, Y: 1, Source: SourceGoogle}

			_, _, err := s.Tile(context.Background(), key)
			assert.ErrorIs(t, err, ErrTileFetch)
			_, ok := c.Get(key)
			assert.False(t, ok)
		})
	}
}

func TestService_Timeout(t *testing.T) {
	c, _, _ := newTestCache(t, DefaultOptions())
	client := &httputil.MockHTTPClient{DoFunc: func(req *http.Request) (*http.Response, error) {
		<-req.Context().Done()
		return nil, req.Context().Err()
	}}
	s := NewService(c, client, 10*time.Millisecond)

	_, _, err := s.Tile(context.Background(), TileKey{Z: 18, X: 1, Y: 1, Source: SourceEsri})
	assert.ErrorIs(t, err, ErrTileFetch)
}

func newTestMux(t *testing.T, client httputil.HTTPClient) (*http.ServeMux, *Service) {
	t.Helper()
	c, _, _ := newTestCache(t, DefaultOptions())
	s := NewService(c, client, time.Second)
	mux := http.NewServeMux()
	s.Register(mux)
	return mux, s
}

func TestHandler_Tile(t *testing.T) {
	client := httputil.NewMockHTTPClient().AddBytesResponse(http.StatusOK, pngStub, "image/png")
	mux, _ := newTestMux(t, client)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/tiles/esri/18/5/6", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.Equal(t, "MISS", rec.Header().Get("X-Tile-Cache"))
	assert.Equal(t, pngStub, rec.Body.Bytes())

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/tiles/esri/18/5/6", nil))
	assert.Equal(t, "HIT", rec.Header().Get("X-Tile-Cache"))
}

func TestHandler_TileFailureIs404(t *testing.T) {
	client := httputil.NewMockHTTPClient().AddResponse(http.StatusServiceUnavailable, "")
	mux, _ := newTestMux(t, client)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/tiles/google/18/5/6", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandler_BadRequests(t *testing.T) {
	mux, _ := newTestMux(t, httputil.NewMockHTTPClient())
	for _, path := range []string{
		"/tiles/google/abc/1/1",
		"/tiles/google/3/8/1",
		"/tiles/bing/17/1/1",
	} {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code, path)
	}
}

func TestHandler_StatsCenterClear(t *testing.T) {
	client := httputil.NewMockHTTPClient().AddBytesResponse(http.StatusOK, pngStub, "image/png")
	mux, s := newTestMux(t, client)
	_, _, err := s.Tile(context.Background(), TileKey{Z: 17, X: 2, Y: 2, Source: SourceGoogle})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/tiles/stats", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"count":1,"size_bytes":12,"size_limit":5368709120}`, rec.Body.String())

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/tiles/center", nil))
	assert.Contains(t, rec.Body.String(), `"source":"journal"`)

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/tiles/clear", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	st, err := s.Cache().Stats()
	require.NoError(t, err)
	assert.Zero(t, st.Count)
}
