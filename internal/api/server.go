// Package api serves the survey HTTP API: logger control, log downloads,
// map generation and the tile proxy.
package api

import (
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/banshee-data/depth.survey/internal/config"
	"github.com/banshee-data/depth.survey/internal/db"
	"github.com/banshee-data/depth.survey/internal/fsutil"
	"github.com/banshee-data/depth.survey/internal/httputil"
	"github.com/banshee-data/depth.survey/internal/monitoring"
	"github.com/banshee-data/depth.survey/internal/telemetry"
	"github.com/banshee-data/depth.survey/internal/tilecache"
)

var (
	opsf  = monitoring.For("api").Opsf
	diagf = monitoring.For("api").Diagf
)

// ANSI escape codes for cyan and reset
const colorCyan = "\033[36m"
const colorReset = "\033[0m"
const colorYellow = "\033[33m"
const colorBoldGreen = "\033[1;32m"
const colorBoldRed = "\033[1;31m"

// maxBodyBytes bounds JSON request bodies.
const maxBodyBytes = 1 << 20

type Server struct {
	cfg     *config.SurveyConfig
	db      *db.DB
	logger  *telemetry.Controller
	tiles   *tilecache.Service
	fs      fsutil.FileSystem
	mapsDir string
}

// Deps are the collaborators a Server needs. Tiles may be nil to disable
// the proxy routes.
type Deps struct {
	Config  *config.SurveyConfig
	DB      *db.DB
	Logger  *telemetry.Controller
	Tiles   *tilecache.Service
	FS      fsutil.FileSystem
	MapsDir string
}

func NewServer(d Deps) *Server {
	if d.Config == nil {
		d.Config = config.EmptySurveyConfig()
	}
	if d.FS == nil {
		d.FS = fsutil.OSFileSystem{}
	}
	return &Server{
		cfg:     d.Config,
		db:      d.DB,
		logger:  d.Logger,
		tiles:   d.Tiles,
		fs:      d.FS,
		mapsDir: d.MapsDir,
	}
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Flush() {
	if flusher, ok := lrw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func statusCodeColor(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return colorBoldGreen + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 300 && statusCode < 400:
		return colorYellow + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 400:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	default:
		return strconv.Itoa(statusCode)
	}
}

// LoggingMiddleware logs method, path, query, status, and duration.
// Tile requests go to the diag stream; map pages pull hundreds of them.
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)
		logf := log.Printf
		if strings.HasPrefix(r.URL.Path, "/tiles/") {
			logf = diagf
		}
		logf(
			"[%s] %s %s%s%s %vms",
			statusCodeColor(lrw.statusCode), r.Method,
			colorCyan, r.RequestURI, colorReset,
			float64(time.Since(start).Nanoseconds())/1e6,
		)
	})
}

func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/logging/start", s.startLogging)
	mux.HandleFunc("POST /api/logging/stop", s.stopLogging)
	mux.HandleFunc("GET /api/logging/status", s.loggingStatus)
	mux.HandleFunc("POST /api/simulation/start", s.startSimulation)
	mux.HandleFunc("GET /api/logs", s.listLogs)
	mux.HandleFunc("GET /api/logs/download", s.downloadLog)
	mux.HandleFunc("POST /api/maps", s.generateMap)
	mux.HandleFunc("GET /api/maps/{id}", s.serveMapArtifact)
	mux.HandleFunc("GET /api/maps/{id}/{artifact}", s.serveMapArtifact)
	mux.HandleFunc("GET /api/runs", s.listRuns)
	mux.HandleFunc("GET /api/runs/{id}", s.getRun)
	mux.HandleFunc("GET /api/sessions", s.listSessions)
	mux.HandleFunc("GET /api/config", s.showConfig)
	if s.tiles != nil {
		s.tiles.Register(mux)
	}
	return mux
}

// effectiveConfig is the resolved configuration with every default applied.
type effectiveConfig struct {
	MinDepthM             float64 `json:"min_depth_m"`
	MinConfidencePct      float64 `json:"min_confidence_pct"`
	MaxDistanceKm         float64 `json:"max_distance_km"`
	Strategy              string  `json:"strategy"`
	GridSize              int     `json:"grid_size"`
	KNeighbors            int     `json:"k_neighbors"`
	IDWPower              float64 `json:"idw_power"`
	PrimaryInterval       float64 `json:"primary_interval"`
	SecondaryInterval     float64 `json:"secondary_interval"`
	TileCacheMaxBytes     int64   `json:"tile_cache_max_bytes"`
	TileCacheMinZoom      int     `json:"tile_cache_min_zoom"`
	TileFetchTimeout      string  `json:"tile_fetch_timeout"`
	TileKeyIncludesSource bool    `json:"tile_key_includes_source"`
	MAVLinkURL            string  `json:"mavlink_url"`
	LogRateHz             float64 `json:"log_rate_hz"`
	MaxRowsPerFile        int     `json:"max_rows_per_file"`
}

func (s *Server) showConfig(w http.ResponseWriter, r *http.Request) {
	c := s.cfg
	httputil.WriteJSONOK(w, effectiveConfig{
		MinDepthM:             c.GetMinDepthM(),
		MinConfidencePct:      c.GetMinConfidencePct(),
		MaxDistanceKm:         c.GetMaxDistanceKm(),
		Strategy:              c.GetStrategy(),
		GridSize:              c.GetGridSize(),
		KNeighbors:            c.GetKNeighbors(),
		IDWPower:              c.GetIDWPower(),
		PrimaryInterval:       c.GetPrimaryInterval(),
		SecondaryInterval:     c.GetSecondaryInterval(),
		TileCacheMaxBytes:     c.GetTileCacheMaxBytes(),
		TileCacheMinZoom:      c.GetTileCacheMinZoom(),
		TileFetchTimeout:      c.GetTileFetchTimeout().String(),
		TileKeyIncludesSource: c.GetTileKeyIncludesSource(),
		MAVLinkURL:            c.GetMAVLinkURL(),
		LogRateHz:             c.GetLogRateHz(),
		MaxRowsPerFile:        c.GetMaxRowsPerFile(),
	})
}

func queryLimit(r *http.Request, def int) (int, bool) {
	v := r.URL.Query().Get("limit")
	if v == "" {
		return def, true
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 || n > 1000 {
		return 0, false
	}
	return n, true
}
