// Package surface turns a sparse set of soundings into a continuous depth
// surface: either a regular IDW grid or a masked Delaunay mesh.
package surface

import (
	"errors"
	"math"

	"github.com/banshee-data/depth.survey/internal/soundings"
	"github.com/banshee-data/depth.survey/internal/spatial"
)

// ErrInterpolation is wrapped by every surface construction failure.
var ErrInterpolation = errors.New("interpolation failed")

// Samples holds the coordinates and depths of a point set together with a
// spatial index over them.
type Samples struct {
	Lons   []float64
	Lats   []float64
	Depths []float64
	Index  *spatial.Index
}

// NewSamples indexes a filtered point set.
func NewSamples(ps soundings.PointSet) *Samples {
	return NewSamplesXYZ(ps.Lons(), ps.Lats(), ps.Depths())
}

// NewSamplesXYZ indexes parallel lon/lat/depth slices.
func NewSamplesXYZ(lons, lats, depths []float64) *Samples {
	return &Samples{
		Lons:   lons,
		Lats:   lats,
		Depths: depths,
		Index:  spatial.NewIndex(lons, lats),
	}
}

// Len returns the number of samples.
func (s *Samples) Len() int { return s.Index.Len() }

// Bounds is an axis-aligned box in degrees.
type Bounds struct {
	MinLon float64 `json:"min_lon"`
	MaxLon float64 `json:"max_lon"`
	MinLat float64 `json:"min_lat"`
	MaxLat float64 `json:"max_lat"`
}

// BoundsOf returns the bounding box of the given coordinates.
func BoundsOf(lons, lats []float64) Bounds {
	b := Bounds{
		MinLon: math.Inf(1), MaxLon: math.Inf(-1),
		MinLat: math.Inf(1), MaxLat: math.Inf(-1),
	}
	for i := range lons {
		b.MinLon = math.Min(b.MinLon, lons[i])
		b.MaxLon = math.Max(b.MaxLon, lons[i])
	}
	for i := range lats {
		b.MinLat = math.Min(b.MinLat, lats[i])
		b.MaxLat = math.Max(b.MaxLat, lats[i])
	}
	return b
}

// Pad grows the box by frac of its extent on every side.
func (b Bounds) Pad(frac float64) Bounds {
	dLon := (b.MaxLon - b.MinLon) * frac
	dLat := (b.MaxLat - b.MinLat) * frac
	return Bounds{
		MinLon: b.MinLon - dLon, MaxLon: b.MaxLon + dLon,
		MinLat: b.MinLat - dLat, MaxLat: b.MaxLat + dLat,
	}
}

// Contains reports whether (lon, lat) lies inside the box, edges included.
func (b Bounds) Contains(lon, lat float64) bool {
	return lon >= b.MinLon && lon <= b.MaxLon && lat >= b.MinLat && lat <= b.MaxLat
}

func (b Bounds) degenerate() bool {
	return !(b.MaxLon-b.MinLon > 0) || !(b.MaxLat-b.MinLat > 0)
}
