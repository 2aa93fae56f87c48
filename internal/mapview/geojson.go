// Package mapview renders survey results for people: GeoJSON layers, a
// Leaflet map page over the tile proxy, a depth histogram and a quick
// ECharts preview.
package mapview

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/banshee-data/depth.survey/internal/contour"
	"github.com/banshee-data/depth.survey/internal/soundings"
)

// ContoursGeoJSON converts contour lines into a FeatureCollection of
// LineStrings in GeoJSON (lon, lat) order. Each feature carries the level
// and stroke style as properties.
func ContoursGeoJSON(lines []contour.Line) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, l := range lines {
		if len(l.Coordinates) < 2 {
			continue
		}
		ls := make(orb.LineString, len(l.Coordinates))
		for i, c := range l.Coordinates {
			ls[i] = orb.Point{c[1], c[0]}
		}
		f := geojson.NewFeature(ls)
		f.Properties["level"] = l.Level
		f.Properties["depth_m"] = l.DepthM
		f.Properties["closed"] = l.IsClosed
		f.Properties["color"] = l.Color
		f.Properties["weight"] = l.Weight
		f.Properties["opacity"] = l.Opacity
		fc.Append(f)
	}
	return fc
}

// PointsGeoJSON converts filtered soundings into Point features with a
// depth_m property.
func PointsGeoJSON(ps soundings.PointSet) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, p := range ps.Points {
		f := geojson.NewFeature(orb.Point{p.Longitude, p.Latitude})
		f.Properties["depth_m"] = p.DepthM
		if p.ConfidencePct != nil {
			f.Properties["confidence_pct"] = *p.ConfidencePct
		}
		fc.Append(f)
	}
	return fc
}
