package mapview

import (
	"embed"
	"fmt"
	"html/template"
	"io"

	"github.com/paulmach/orb/geojson"

	"github.com/banshee-data/depth.survey/internal/contour"
	"github.com/banshee-data/depth.survey/internal/soundings"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var mapTemplate = template.Must(template.ParseFS(templateFS, "templates/map.html.tmpl"))

// DefaultTileURL routes map tiles through the local caching proxy.
const DefaultTileURL = "/tiles/google/{z}/{x}/{y}"

// MapData is everything the map page needs.
type MapData struct {
	Title             string
	CenterLat         float64
	CenterLon         float64
	Zoom              int
	MaxZoom           int
	TileURL           string
	PrimaryInterval   float64
	SecondaryInterval float64
	Primary           *geojson.FeatureCollection
	Secondary         *geojson.FeatureCollection
	Points            *geojson.FeatureCollection
	HistogramURL      string
	Strategy          string
	Fallback          bool
	PointCount        int
}

// NewMapData assembles page data from a filtered point set and the
// contours generated from it.
func NewMapData(title string, ps soundings.PointSet, res contour.Result, opts contour.Options) MapData {
	lat, lon := Center(ps)
	zoom := 3
	if ps.Len() > 0 {
		zoom = OptimalZoom(Bound(ps), MaxZoom)
	}
	return MapData{
		Title:             title,
		CenterLat:         lat,
		CenterLon:         lon,
		Zoom:              zoom,
		MaxZoom:           MaxZoom,
		TileURL:           DefaultTileURL,
		PrimaryInterval:   opts.PrimaryInterval,
		SecondaryInterval: opts.SecondaryInterval,
		Primary:           ContoursGeoJSON(res.Primary),
		Secondary:         ContoursGeoJSON(res.Secondary),
		Points:            PointsGeoJSON(ps),
		Strategy:          res.Strategy,
		Fallback:          res.Fallback,
		PointCount:        ps.Len(),
	}
}

// RenderMap writes a standalone Leaflet page for d.
func RenderMap(w io.Writer, d MapData) error {
	if d.Primary == nil {
		d.Primary = geojson.NewFeatureCollection()
	}
	if d.Secondary == nil {
		d.Secondary = geojson.NewFeatureCollection()
	}
	if d.Points == nil {
		d.Points = geojson.NewFeatureCollection()
	}
	if d.TileURL == "" {
		d.TileURL = DefaultTileURL
	}
	if d.MaxZoom == 0 {
		d.MaxZoom = MaxZoom
	}
	if err := mapTemplate.Execute(w, d); err != nil {
		return fmt.Errorf("render map: %w", err)
	}
	return nil
}
