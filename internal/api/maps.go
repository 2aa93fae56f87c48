package api

import (
	"errors"
	"fmt"
	"net/http"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/banshee-data/depth.survey/internal/contour"
	"github.com/banshee-data/depth.survey/internal/db"
	"github.com/banshee-data/depth.survey/internal/httputil"
	"github.com/banshee-data/depth.survey/internal/mapview"
	"github.com/banshee-data/depth.survey/internal/soundings"
)

type mapRequest struct {
	Files    []string `json:"files"`
	Title    string   `json:"title"`
	Strategy string   `json:"strategy"`
}

// generateMap loads the requested logs (all logs when none are named),
// contours them and writes the artifacts under mapsDir/<run_id>. The run is
// recorded before any work starts so failures are visible in /api/runs.
func (s *Server) generateMap(w http.ResponseWriter, r *http.Request) {
	if s.db == nil || s.mapsDir == "" {
		httputil.WriteJSONError(w, http.StatusServiceUnavailable, "map generation not configured")
		return
	}
	var req mapRequest
	if err := httputil.DecodeJSONBody(r, &req, maxBodyBytes); err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	if req.Strategy != "" && req.Strategy != contour.StrategyIDW && req.Strategy != contour.StrategyTIN {
		httputil.BadRequest(w, fmt.Sprintf("unknown strategy %q", req.Strategy))
		return
	}

	paths, names, ok := s.resolveLogs(w, req.Files)
	if !ok {
		return
	}

	run := &db.SurveyRun{RunID: uuid.NewString(), SourceFiles: names}
	if err := s.db.CreateRun(r.Context(), run); err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to record run: %v", err))
		return
	}

	ps, err := soundings.Load(soundings.FilterConfigFrom(s.cfg), paths...)
	if err != nil {
		s.failRun(r, run, err)
		status := http.StatusInternalServerError
		if errors.Is(err, soundings.ErrEmptyDataset) || errors.Is(err, soundings.ErrSchema) {
			status = http.StatusUnprocessableEntity
		}
		httputil.WriteJSON(w, status, run)
		return
	}

	opts := contour.OptionsFrom(s.cfg)
	if req.Strategy != "" {
		opts.Strategy = req.Strategy
	}
	res := contour.Generate(ps, opts)

	title := req.Title
	if title == "" {
		title = "Bathymetric Survey"
	}
	a, err := mapview.WriteArtifacts(s.fs, filepath.Join(s.mapsDir, run.RunID), ps, res, opts, mapview.ArtifactOptions{
		Title:        title,
		HistogramURL: "/api/maps/" + run.RunID + "/histogram",
	})
	if err != nil {
		s.failRun(r, run, err)
		httputil.WriteJSON(w, http.StatusInternalServerError, run)
		return
	}

	run.Status = db.RunComplete
	run.Strategy = res.Strategy
	run.Fallback = res.Fallback
	run.PointCount = ps.Len()
	run.PrimaryCount = len(res.Primary)
	run.SecondaryCount = len(res.Secondary)
	run.SpacingDeg = res.Spacing.AverageNearestNeighborDeg
	run.Error = res.Error
	run.MapPath = a.MapPath
	run.GeoJSONPath = a.GeoJSONPath
	run.HistogramPath = a.HistogramPath
	if err := s.db.FinishRun(r.Context(), run); err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to record run: %v", err))
		return
	}
	opsf("run %s: %d soundings, %d+%d contours via %s", run.RunID, run.PointCount, run.PrimaryCount, run.SecondaryCount, run.Strategy)
	httputil.WriteJSON(w, http.StatusCreated, run)
}

func (s *Server) resolveLogs(w http.ResponseWriter, names []string) (paths, resolved []string, ok bool) {
	if s.logger == nil {
		httputil.WriteJSONError(w, http.StatusServiceUnavailable, "no log store")
		return nil, nil, false
	}
	store := s.logger.Store()
	if len(names) == 0 {
		files, err := store.List()
		if err != nil {
			httputil.InternalServerError(w, fmt.Sprintf("failed to list logs: %v", err))
			return nil, nil, false
		}
		for _, f := range files {
			names = append(names, f.Name)
		}
		if len(names) == 0 {
			httputil.BadRequest(w, "no log files available")
			return nil, nil, false
		}
	}
	for _, name := range names {
		p, err := store.Resolve(name)
		if err != nil {
			writeControllerError(w, err)
			return nil, nil, false
		}
		paths = append(paths, p)
	}
	return paths, names, true
}

func (s *Server) failRun(r *http.Request, run *db.SurveyRun, err error) {
	run.Status = db.RunFailed
	run.Error = err.Error()
	if ferr := s.db.FinishRun(r.Context(), run); ferr != nil {
		opsf("run %s: failed to record failure: %v", run.RunID, ferr)
	}
	opsf("run %s failed: %v", run.RunID, err)
}

var artifactFiles = map[string]struct {
	file        string
	contentType string
}{
	"":          {mapview.MapFile, "text/html; charset=utf-8"},
	"preview":   {mapview.PreviewFile, "text/html; charset=utf-8"},
	"geojson":   {mapview.GeoJSONFile, "application/geo+json"},
	"points":    {mapview.PointsFile, "application/geo+json"},
	"histogram": {mapview.HistogramFile, "image/png"},
}

func (s *Server) serveMapArtifact(w http.ResponseWriter, r *http.Request) {
	if s.db == nil {
		httputil.NotFound(w, "no runs")
		return
	}
	art, ok := artifactFiles[r.PathValue("artifact")]
	if !ok {
		httputil.NotFound(w, "unknown artifact")
		return
	}
	run, err := s.db.GetRun(r.Context(), r.PathValue("id"))
	if errors.Is(err, db.ErrNotFound) {
		httputil.NotFound(w, "run not found")
		return
	}
	if err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}
	if run.Status != db.RunComplete {
		httputil.Conflict(w, fmt.Sprintf("run is %s", run.Status))
		return
	}
	data, err := s.fs.ReadFile(filepath.Join(s.mapsDir, run.RunID, art.file))
	if err != nil {
		httputil.NotFound(w, "artifact not found")
		return
	}
	w.Header().Set("Content-Type", art.contentType)
	w.Write(data)
}

func (s *Server) listRuns(w http.ResponseWriter, r *http.Request) {
	if s.db == nil {
		httputil.WriteJSONOK(w, []db.SurveyRun{})
		return
	}
	limit, ok := queryLimit(r, 50)
	if !ok {
		httputil.BadRequest(w, "invalid 'limit' parameter")
		return
	}
	runs, err := s.db.ListRuns(r.Context(), limit)
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to list runs: %v", err))
		return
	}
	httputil.WriteJSONOK(w, runs)
}

func (s *Server) getRun(w http.ResponseWriter, r *http.Request) {
	if s.db == nil {
		httputil.NotFound(w, "run not found")
		return
	}
	run, err := s.db.GetRun(r.Context(), r.PathValue("id"))
	if errors.Is(err, db.ErrNotFound) {
		httputil.NotFound(w, "run not found")
		return
	}
	if err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}
	httputil.WriteJSONOK(w, run)
}

func (s *Server) listSessions(w http.ResponseWriter, r *http.Request) {
	if s.db == nil {
		httputil.WriteJSONOK(w, []any{})
		return
	}
	limit, ok := queryLimit(r, 50)
	if !ok {
		httputil.BadRequest(w, "invalid 'limit' parameter")
		return
	}
	sessions, err := s.db.ListSessions(r.Context(), limit)
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to list sessions: %v", err))
		return
	}
	httputil.WriteJSONOK(w, sessions)
}
