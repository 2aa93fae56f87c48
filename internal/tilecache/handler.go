package tilecache

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/banshee-data/depth.survey/internal/httputil"
)

// Register mounts the tile routes on mux:
//
//	GET    /tiles/{source}/{z}/{x}/{y}
//	GET    /api/tiles/stats
//	GET    /api/tiles/center
//	POST   /api/tiles/clear
func (s *Service) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /tiles/{source}/{z}/{x}/{y}", s.handleTile)
	mux.HandleFunc("GET /api/tiles/stats", s.handleStats)
	mux.HandleFunc("GET /api/tiles/center", s.handleCenter)
	mux.HandleFunc("POST /api/tiles/clear", s.handleClear)
}

func parseKey(r *http.Request) (TileKey, error) {
	key := TileKey{Source: Source(r.PathValue("source"))}
	var err error
	if key.Z, err = strconv.Atoi(r.PathValue("z")); err != nil {
		return key, errors.New("invalid z")
	}
	if key.X, err = strconv.Atoi(r.PathValue("x")); err != nil {
		return key, errors.New("invalid x")
	}
	if key.Y, err = strconv.Atoi(r.PathValue("y")); err != nil {
		return key, errors.New("invalid y")
	}
	return key, key.Validate()
}

func (s *Service) handleTile(w http.ResponseWriter, r *http.Request) {
	key, err := parseKey(r)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}

	data, hit, err := s.Tile(r.Context(), key)
	switch {
	case errors.Is(err, ErrUnknownSource):
		httputil.BadRequest(w, err.Error())
		return
	case err != nil:
		httputil.NotFound(w, "tile unavailable")
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "public, max-age=86400")
	if hit {
		w.Header().Set("X-Tile-Cache", "HIT")
	} else {
		w.Header().Set("X-Tile-Cache", "MISS")
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (s *Service) handleStats(w http.ResponseWriter, r *http.Request) {
	st, err := s.cache.Stats()
	if err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}
	httputil.WriteJSONOK(w, st)
}

func (s *Service) handleCenter(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSONOK(w, s.cache.RecommendedCenter())
}

func (s *Service) handleClear(w http.ResponseWriter, r *http.Request) {
	if err := s.cache.Clear(); err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}
	httputil.WriteJSONOK(w, map[string]string{"status": "cleared"})
}
