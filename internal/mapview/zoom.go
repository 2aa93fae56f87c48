package mapview

import (
	"github.com/paulmach/orb"
	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/depth.survey/internal/soundings"
)

// MaxZoom is the deepest zoom the map page allows.
const MaxZoom = 20

// zoomSteps maps the padded span of the survey, in degrees, to the zoom
// level that fits it. The first step whose span is exceeded wins.
var zoomSteps = []struct {
	span float64
	zoom int
}{
	{1.0, 11},
	{0.5, 12},
	{0.25, 13},
	{0.1, 14},
	{0.05, 15},
	{0.025, 16},
	{0.01, 17},
	{0.005, 18},
	{0.0025, 19},
}

// Bound returns the lon/lat bounding box of ps.
func Bound(ps soundings.PointSet) orb.Bound {
	mp := make(orb.MultiPoint, len(ps.Points))
	for i, p := range ps.Points {
		mp[i] = orb.Point{p.Longitude, p.Latitude}
	}
	return mp.Bound()
}

// OptimalZoom picks a zoom level that fits b after padding each side by
// 10% of its extent, capped at maxZoom.
func OptimalZoom(b orb.Bound, maxZoom int) int {
	latSpan := (b.Max.Lat() - b.Min.Lat()) * 1.2
	lonSpan := (b.Max.Lon() - b.Min.Lon()) * 1.2
	span := max(latSpan, lonSpan)

	zoom := MaxZoom
	for _, s := range zoomSteps {
		if span > s.span {
			zoom = s.zoom
			break
		}
	}
	return min(zoom, maxZoom)
}

// Center returns the mean position of ps.
func Center(ps soundings.PointSet) (lat, lon float64) {
	if ps.Len() == 0 {
		return 0, 0
	}
	return stat.Mean(ps.Lats(), nil), stat.Mean(ps.Lons(), nil)
}
