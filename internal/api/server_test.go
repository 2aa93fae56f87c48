package api

import (
	"bytes"
	"context"
	"encoding/json"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/depth.survey/internal/config"
	"github.com/banshee-data/depth.survey/internal/db"
	"github.com/banshee-data/depth.survey/internal/fsutil"
	"github.com/banshee-data/depth.survey/internal/httputil"
	"github.com/banshee-data/depth.survey/internal/telemetry"
	"github.com/banshee-data/depth.survey/internal/testutil"
	"github.com/banshee-data/depth.survey/internal/tilecache"
	"github.com/banshee-data/depth.survey/internal/timeutil"
)

var epoch = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

type testEnv struct {
	server  *Server
	mux     *http.ServeMux
	db      *db.DB
	logger  *telemetry.Controller
	logDir  string
	mapsDir string
	tiles   *httputil.MockHTTPClient
}

// fakeSource yields a fixed sample forever.
type fakeSource struct{}

func (fakeSource) Next(ctx context.Context) (telemetry.Sample, error) {
	return telemetry.Sample{Time: epoch, DistanceCM: 640, Lat: 47.6, Lon: -122.3}, nil
}

func setupTestServer(t *testing.T) *testEnv {
	t.Helper()
	dbInst := openTestDB(t)

	root := t.TempDir()
	env := &testEnv{
		db:      dbInst,
		logDir:  filepath.Join(root, "logs"),
		mapsDir: filepath.Join(root, "maps"),
		tiles:   httputil.NewMockHTTPClient(),
	}

	clock := timeutil.NewMockClock(epoch)
	store, err := telemetry.NewLogStore(fsutil.OSFileSystem{}, clock, env.logDir, 1000)
	require.NoError(t, err)
	dial := func(ctx context.Context) (telemetry.Source, error) { return fakeSource{}, nil }
	env.logger = telemetry.NewController(store, dial, clock, dbInst, telemetry.ControllerConfig{})
	t.Cleanup(func() { env.logger.Stop() })

	memFS := fsutil.NewMemoryFileSystem(clock)
	cache, err := tilecache.New(memFS, clock, "/tiles", tilecache.DefaultOptions())
	require.NoError(t, err)

	env.server = NewServer(Deps{
		Config:  config.EmptySurveyConfig(),
		DB:      dbInst,
		Logger:  env.logger,
		Tiles:   tilecache.NewService(cache, env.tiles, time.Second),
		MapsDir: env.mapsDir,
	})
	env.mux = env.server.ServeMux()
	return env
}

func (e *testEnv) do(t *testing.T, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	w := httptest.NewRecorder()
	e.mux.ServeHTTP(w, req)
	return w
}

// writeLog writes a 10x10 survey grid in the recorder's column layout.
func writeLog(t *testing.T, dir, name string, depthCM func(i, j int) float64) {
	t.Helper()
	g := testutil.SlopeGrid()
	g.DepthCM = depthCM
	cols := []testutil.Column{
		testutil.ConstColumn("1748779200000"), testutil.ConstColumn("2025"), testutil.ConstColumn("6"),
		testutil.ConstColumn("1"), testutil.ConstColumn("12"), testutil.ConstColumn("0"), testutil.ConstColumn("0"),
		testutil.DepthColumn, testutil.LatColumn, testutil.LonColumn,
	}
	testutil.WriteCSV(t, filepath.Join(dir, name), g, telemetry.Header, cols)
}

func slope(i, j int) float64   { return testutil.SlopeGrid().DepthCM(i, j) }
func shallow(i, j int) float64 { return 100 }

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestShowConfig(t *testing.T) {
	env := setupTestServer(t)
	w := env.do(t, http.MethodGet, "/api/config", "")
	require.Equal(t, http.StatusOK, w.Code)

	cfg := decode[map[string]any](t, w)
	assert.Equal(t, "idw", cfg["strategy"])
	assert.Equal(t, "10s", cfg["tile_fetch_timeout"])
	assert.Equal(t, float64(17), cfg["tile_cache_min_zoom"])
	assert.Equal(t, "http://localhost:6040", cfg["mavlink_url"])
}

func TestLogging_StartStatusStop(t *testing.T) {
	env := setupTestServer(t)

	w := env.do(t, http.MethodPost, "/api/logging/start", "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	sess := decode[telemetry.Session](t, w)
	assert.Equal(t, telemetry.StateLogging, sess.Mode)

	w = env.do(t, http.MethodPost, "/api/logging/start", "")
	assert.Equal(t, http.StatusConflict, w.Code)

	w = env.do(t, http.MethodGet, "/api/logging/status", "")
	require.Equal(t, http.StatusOK, w.Code)
	st := decode[telemetry.Status](t, w)
	assert.Equal(t, telemetry.StateLogging, st.State)
	require.NotNil(t, st.Session)
	assert.Equal(t, sess.ID, st.Session.ID)

	w = env.do(t, http.MethodPost, "/api/logging/stop", "")
	require.Equal(t, http.StatusOK, w.Code)
	last := decode[telemetry.Session](t, w)
	assert.Equal(t, sess.ID, last.ID)
	assert.NotNil(t, last.StoppedAt)

	w = env.do(t, http.MethodPost, "/api/logging/stop", "")
	assert.Equal(t, http.StatusConflict, w.Code)

	w = env.do(t, http.MethodGet, "/api/sessions", "")
	require.Equal(t, http.StatusOK, w.Code)
	sessions := decode[[]telemetry.Session](t, w)
	require.Len(t, sessions, 1)
	assert.Equal(t, sess.ID, sessions[0].ID)
}

func TestLogging_WrongMethod(t *testing.T) {
	env := setupTestServer(t)
	w := env.do(t, http.MethodGet, "/api/logging/start", "")
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestStartSimulation_Errors(t *testing.T) {
	env := setupTestServer(t)

	tests := []struct {
		name string
		body string
		want int
	}{
		{"missing file", `{}`, http.StatusBadRequest},
		{"bad json", `{"file":`, http.StatusBadRequest},
		{"unknown field", `{"path":"x"}`, http.StatusBadRequest},
		{"not found", `{"file":"sensor_data_20990101_000000.csv"}`, http.StatusNotFound},
		{"traversal", `{"file":"../secret.csv"}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(t, http.MethodPost, "/api/simulation/start", tt.body)
			assert.Equal(t, tt.want, w.Code, w.Body.String())
		})
	}
}

func TestStartSimulation(t *testing.T) {
	env := setupTestServer(t)
	writeLog(t, env.logDir, "sensor_data_20250601_110000.csv", slope)

	w := env.do(t, http.MethodPost, "/api/simulation/start", `{"file":"sensor_data_20250601_110000.csv"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, telemetry.StateSimulating, decode[telemetry.Session](t, w).Mode)
}

func TestLogs_ListAndDownload(t *testing.T) {
	env := setupTestServer(t)
	writeLog(t, env.logDir, "sensor_data_20250601_110000.csv", slope)

	w := env.do(t, http.MethodGet, "/api/logs", "")
	require.Equal(t, http.StatusOK, w.Code)
	files := decode[[]telemetry.LogFile](t, w)
	require.Len(t, files, 1)
	assert.Equal(t, "sensor_data_20250601_110000.csv", files[0].Name)

	w = env.do(t, http.MethodGet, "/api/logs/download?file=sensor_data_20250601_110000.csv", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "sensor_data_20250601_110000.csv")
	assert.True(t, strings.HasPrefix(w.Body.String(), "Unix Timestamp,"))

	assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodGet, "/api/logs/download", "").Code)
	assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodGet, "/api/logs/download?file=..%2Fx.csv", "").Code)
	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodGet, "/api/logs/download?file=nope.csv", "").Code)
}

func TestGenerateMap(t *testing.T) {
	env := setupTestServer(t)
	writeLog(t, env.logDir, "sensor_data_20250601_110000.csv", slope)

	w := env.do(t, http.MethodPost, "/api/maps", `{"title":"Test Lake"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	run := decode[db.SurveyRun](t, w)
	assert.Equal(t, db.RunComplete, run.Status)
	assert.Equal(t, 100, run.PointCount)
	assert.Equal(t, []string{"sensor_data_20250601_110000.csv"}, run.SourceFiles)
	assert.NotEmpty(t, run.Strategy)
	assert.Positive(t, run.SpacingDeg)
	assert.FileExists(t, filepath.Join(env.mapsDir, run.RunID, "map.html"))

	w = env.do(t, http.MethodGet, "/api/maps/"+run.RunID, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, w.Body.String(), "Test Lake")
	assert.Contains(t, w.Body.String(), "/api/maps/"+run.RunID+"/histogram")

	w = env.do(t, http.MethodGet, "/api/maps/"+run.RunID+"/histogram", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("\x89PNG")))

	w = env.do(t, http.MethodGet, "/api/maps/"+run.RunID+"/preview", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "echarts")

	w = env.do(t, http.MethodGet, "/api/maps/"+run.RunID+"/geojson", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "FeatureCollection")

	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodGet, "/api/maps/"+run.RunID+"/bogus", "").Code)
	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodGet, "/api/maps/unknown", "").Code)

	w = env.do(t, http.MethodGet, "/api/runs", "")
	require.Equal(t, http.StatusOK, w.Code)
	runs := decode[[]db.SurveyRun](t, w)
	require.Len(t, runs, 1)
	assert.Equal(t, run.RunID, runs[0].RunID)

	w = env.do(t, http.MethodGet, "/api/runs/"+run.RunID, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, db.RunComplete, decode[db.SurveyRun](t, w).Status)
}

func TestGenerateMap_TINStrategy(t *testing.T) {
	env := setupTestServer(t)
	writeLog(t, env.logDir, "sensor_data_20250601_110000.csv", slope)

	w := env.do(t, http.MethodPost, "/api/maps", `{"files":["sensor_data_20250601_110000.csv"],"strategy":"tin"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, db.RunComplete, decode[db.SurveyRun](t, w).Status)
}

func TestGenerateMap_EmptyDataset(t *testing.T) {
	env := setupTestServer(t)
	writeLog(t, env.logDir, "sensor_data_20250601_110000.csv", shallow)

	w := env.do(t, http.MethodPost, "/api/maps", `{}`)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code, w.Body.String())
	run := decode[db.SurveyRun](t, w)
	assert.Equal(t, db.RunFailed, run.Status)
	assert.NotEmpty(t, run.Error)

	stored, err := env.db.GetRun(context.Background(), run.RunID)
	require.NoError(t, err)
	assert.Equal(t, db.RunFailed, stored.Status)

	assert.Equal(t, http.StatusConflict, env.do(t, http.MethodGet, "/api/maps/"+run.RunID, "").Code)
}

func TestGenerateMap_BadRequests(t *testing.T) {
	env := setupTestServer(t)

	assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodPost, "/api/maps", `{}`).Code, "no logs yet")
	assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodPost, "/api/maps", `{"strategy":"kriging"}`).Code)
	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodPost, "/api/maps", `{"files":["missing.csv"]}`).Code)
	assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodGet, "/api/runs?limit=0", "").Code)
}

func TestTileRoutesMounted(t *testing.T) {
	env := setupTestServer(t)
	env.tiles.AddBytesResponse(http.StatusOK, []byte("\x89PNG tile"), "image/png")

	w := env.do(t, http.MethodGet, "/tiles/google/18/1000/2000", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "MISS", w.Header().Get("X-Tile-Cache"))

	w = env.do(t, http.MethodGet, "/tiles/google/18/1000/2000", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "HIT", w.Header().Get("X-Tile-Cache"))
	assert.Equal(t, 1, env.tiles.RequestCount())
}

func TestUnconfiguredServer(t *testing.T) {
	mux := NewServer(Deps{}).ServeMux()
	for _, tc := range []struct {
		method, target string
		want           int
	}{
		{http.MethodGet, "/api/logging/status", http.StatusServiceUnavailable},
		{http.MethodPost, "/api/maps", http.StatusServiceUnavailable},
		{http.MethodGet, "/api/runs", http.StatusOK},
		{http.MethodGet, "/api/logs", http.StatusOK},
		{http.MethodGet, "/tiles/google/18/1/1", http.StatusNotFound},
	} {
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, httptest.NewRequest(tc.method, tc.target, nil))
		assert.Equal(t, tc.want, w.Code, tc.target)
	}
}

func TestStatusCodeColor(t *testing.T) {
	tests := []struct {
		code int
		want string
	}{
		{200, colorBoldGreen + "200" + colorReset},
		{304, colorYellow + "304" + colorReset},
		{404, colorBoldRed + "404" + colorReset},
		{503, colorBoldRed + "503" + colorReset},
		{101, "101"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusCodeColor(tt.code))
	}
}

func TestLoggingMiddleware(t *testing.T) {
	var buf bytes.Buffer
	log.SetOutput(&buf)
	t.Cleanup(func() { log.SetOutput(os.Stderr) })

	h := LoggingMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/runs?limit=5", nil))

	assert.Equal(t, http.StatusTeapot, w.Code)
	assert.Contains(t, buf.String(), "418")
	assert.Contains(t, buf.String(), "/api/runs?limit=5")
}
