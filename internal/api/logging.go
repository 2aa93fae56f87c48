package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"

	"github.com/banshee-data/depth.survey/internal/httputil"
	"github.com/banshee-data/depth.survey/internal/security"
	"github.com/banshee-data/depth.survey/internal/telemetry"
)

func (s *Server) startLogging(w http.ResponseWriter, r *http.Request) {
	if s.logger == nil {
		httputil.WriteJSONError(w, http.StatusServiceUnavailable, "logger not configured")
		return
	}
	sess, err := s.logger.StartLogging(r.Context())
	if err != nil {
		writeControllerError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, sess)
}

func (s *Server) stopLogging(w http.ResponseWriter, r *http.Request) {
	if s.logger == nil {
		httputil.WriteJSONError(w, http.StatusServiceUnavailable, "logger not configured")
		return
	}
	last := s.logger.Stop()
	if last == nil {
		httputil.Conflict(w, "no session running")
		return
	}
	httputil.WriteJSONOK(w, last)
}

func (s *Server) loggingStatus(w http.ResponseWriter, r *http.Request) {
	if s.logger == nil {
		httputil.WriteJSONError(w, http.StatusServiceUnavailable, "logger not configured")
		return
	}
	httputil.WriteJSONOK(w, s.logger.Status())
}

type simulationRequest struct {
	File string `json:"file"`
}

func (s *Server) startSimulation(w http.ResponseWriter, r *http.Request) {
	if s.logger == nil {
		httputil.WriteJSONError(w, http.StatusServiceUnavailable, "logger not configured")
		return
	}
	var req simulationRequest
	if err := httputil.DecodeJSONBody(r, &req, maxBodyBytes); err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	if req.File == "" {
		httputil.BadRequest(w, "file is required")
		return
	}
	sess, err := s.logger.StartSimulation(req.File)
	if err != nil {
		writeControllerError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, sess)
}

func writeControllerError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, telemetry.ErrBusy):
		httputil.Conflict(w, err.Error())
	case errors.Is(err, telemetry.ErrLogNotFound):
		httputil.NotFound(w, err.Error())
	case errors.Is(err, security.ErrPathEscape):
		httputil.BadRequest(w, err.Error())
	default:
		httputil.WriteJSONError(w, http.StatusBadGateway, err.Error())
	}
}

func (s *Server) listLogs(w http.ResponseWriter, r *http.Request) {
	if s.logger == nil {
		httputil.WriteJSONOK(w, []telemetry.LogFile{})
		return
	}
	files, err := s.logger.Store().List()
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to list logs: %v", err))
		return
	}
	httputil.WriteJSONOK(w, files)
}

func (s *Server) downloadLog(w http.ResponseWriter, r *http.Request) {
	if s.logger == nil {
		httputil.NotFound(w, "no log store")
		return
	}
	name := r.URL.Query().Get("file")
	if name == "" {
		httputil.BadRequest(w, "file query parameter is required")
		return
	}
	path, err := s.logger.Store().Resolve(name)
	if err != nil {
		writeControllerError(w, err)
		return
	}
	f, err := s.fs.Open(path)
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to open log: %v", err))
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filepath.Base(path)))
	if _, err := io.Copy(w, f); err != nil {
		opsf("log download %s interrupted: %v", name, err)
	}
}
