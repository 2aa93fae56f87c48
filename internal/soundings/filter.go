package soundings

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/depth.survey/internal/config"
	"github.com/banshee-data/depth.survey/internal/monitoring"
)

// kmPerDegreeLat is the flat-earth approximation used for the
// area-of-interest test; longitude degrees shrink by cos(latitude).
const kmPerDegreeLat = 111.0

// FilterConfig holds the domain thresholds applied to raw soundings.
type FilterConfig struct {
	MinDepthM        float64
	MinConfidencePct float64
	MaxDistanceKm    float64
}

// DefaultFilterConfig returns the thresholds used in the field.
func DefaultFilterConfig() FilterConfig {
	return FilterConfigFrom(config.EmptySurveyConfig())
}

// FilterConfigFrom extracts the filter thresholds from a survey config.
func FilterConfigFrom(cfg *config.SurveyConfig) FilterConfig {
	return FilterConfig{
		MinDepthM:        cfg.GetMinDepthM(),
		MinConfidencePct: cfg.GetMinConfidencePct(),
		MaxDistanceKm:    cfg.GetMaxDistanceKm(),
	}
}

// FilterStats summarises what a Filter pass removed and kept.
type FilterStats struct {
	Input             int     `json:"input"`
	ShallowRemoved    int     `json:"shallow_removed"`
	ConfidenceApplied bool    `json:"confidence_applied"`
	ConfidenceRemoved int     `json:"confidence_removed"`
	OutOfAreaRemoved  int     `json:"out_of_area_removed"`
	AreaPasses        int     `json:"area_passes"`
	Kept              int     `json:"kept"`
	MeanLatitude      float64 `json:"mean_latitude"`
	MeanLongitude     float64 `json:"mean_longitude"`
	MinDepthM         float64 `json:"min_depth_m"`
	MaxDepthM         float64 `json:"max_depth_m"`
}

// Filter removes invalid, shallow, low-confidence and out-of-area soundings.
//
// The area-of-interest pass drops points farther than MaxDistanceKm from the
// arithmetic mean location. It is repeated until nothing more is removed, so
// filtering an already-filtered set is a no-op. Returns ErrEmptyDataset when
// no point survives.
func Filter(points []Sounding, cfg FilterConfig) (PointSet, error) {
	stats := FilterStats{Input: len(points)}

	kept := make([]Sounding, 0, len(points))
	for _, p := range points {
		if !p.validPosition() || math.IsNaN(p.DepthM) || math.IsInf(p.DepthM, 0) {
			continue
		}
		if p.DepthM < cfg.MinDepthM {
			stats.ShallowRemoved++
			continue
		}
		kept = append(kept, p)
	}

	for _, p := range kept {
		if p.ConfidencePct != nil {
			stats.ConfidenceApplied = true
			break
		}
	}
	if stats.ConfidenceApplied {
		confident := kept[:0]
		for _, p := range kept {
			// NaN confidence (missing value) never satisfies the floor.
			if p.ConfidencePct != nil && *p.ConfidencePct >= cfg.MinConfidencePct {
				confident = append(confident, p)
			} else {
				stats.ConfidenceRemoved++
			}
		}
		kept = confident
	} else {
		monitoring.Logf("soundings: no confidence column - skipping confidence filter")
	}

	for len(kept) > 0 {
		stats.AreaPasses++
		inArea := withinArea(kept, cfg.MaxDistanceKm)
		removed := len(kept) - len(inArea)
		stats.OutOfAreaRemoved += removed
		kept = inArea
		if removed == 0 {
			break
		}
	}

	stats.Kept = len(kept)
	if len(kept) == 0 {
		return PointSet{Stats: stats}, ErrEmptyDataset
	}

	ps := PointSet{Points: kept}
	lats, lons, depths := ps.Lats(), ps.Lons(), ps.Depths()
	stats.MeanLatitude = stat.Mean(lats, nil)
	stats.MeanLongitude = stat.Mean(lons, nil)
	stats.MinDepthM = floats.Min(depths)
	stats.MaxDepthM = floats.Max(depths)
	ps.Stats = stats

	monitoring.Logf("soundings: kept %d of %d (shallow=%d low_confidence=%d out_of_area=%d) depth %.2fm..%.2fm",
		stats.Kept, stats.Input, stats.ShallowRemoved, stats.ConfidenceRemoved, stats.OutOfAreaRemoved,
		stats.MinDepthM, stats.MaxDepthM)
	return ps, nil
}

// withinArea returns the points within maxKm of the mean location.
func withinArea(points []Sounding, maxKm float64) []Sounding {
	lats := make([]float64, len(points))
	lons := make([]float64, len(points))
	for i, p := range points {
		lats[i], lons[i] = p.Latitude, p.Longitude
	}
	avgLat := stat.Mean(lats, nil)
	avgLon := stat.Mean(lons, nil)

	out := make([]Sounding, 0, len(points))
	for _, p := range points {
		if FlatEarthKm(p.Latitude, p.Longitude, avgLat, avgLon) <= maxKm {
			out = append(out, p)
		}
	}
	return out
}

// FlatEarthKm returns the approximate distance in km from a reference
// position: 1 degree latitude = 111 km, 1 degree longitude = 111*cos(refLat) km.
func FlatEarthKm(lat, lon, refLat, refLon float64) float64 {
	kmPerDegreeLon := kmPerDegreeLat * math.Cos(refLat*math.Pi/180)
	return math.Hypot((lat-refLat)*kmPerDegreeLat, (lon-refLon)*kmPerDegreeLon)
}

// Load reads and filters the given log files in one step.
func Load(cfg FilterConfig, paths ...string) (PointSet, error) {
	points, _, err := ReadFiles(paths...)
	if err != nil {
		return PointSet{}, err
	}
	return Filter(points, cfg)
}
