package mapview

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/paulmach/orb/geojson"

	"github.com/banshee-data/depth.survey/internal/contour"
	"github.com/banshee-data/depth.survey/internal/fsutil"
	"github.com/banshee-data/depth.survey/internal/soundings"
)

// Artifact file names inside an output directory.
const (
	MapFile       = "map.html"
	GeoJSONFile   = "contours.geojson"
	PointsFile    = "soundings.geojson"
	HistogramFile = "histogram.png"
	PreviewFile   = "preview.html"
)

// ArtifactOptions controls links embedded in the map page.
type ArtifactOptions struct {
	Title        string
	TileURL      string
	HistogramURL string // defaults to the sibling histogram file
}

// Artifacts lists the files written by WriteArtifacts.
type Artifacts struct {
	Dir           string `json:"dir"`
	MapPath       string `json:"map_path"`
	GeoJSONPath   string `json:"geojson_path"`
	PointsPath    string `json:"points_path"`
	HistogramPath string `json:"histogram_path,omitempty"`
	PreviewPath   string `json:"preview_path"`
}

// WriteArtifacts renders the map page, contour and sounding GeoJSON, the
// depth histogram and the chart preview into dir. The histogram is skipped
// for an empty point set.
func WriteArtifacts(fsys fsutil.FileSystem, dir string, ps soundings.PointSet, res contour.Result, opts contour.Options, ao ArtifactOptions) (Artifacts, error) {
	if err := fsys.MkdirAll(dir, 0o755); err != nil {
		return Artifacts{}, fmt.Errorf("create %s: %w", dir, err)
	}
	a := Artifacts{
		Dir:         dir,
		MapPath:     filepath.Join(dir, MapFile),
		GeoJSONPath: filepath.Join(dir, GeoJSONFile),
		PointsPath:  filepath.Join(dir, PointsFile),
		PreviewPath: filepath.Join(dir, PreviewFile),
	}

	var buf bytes.Buffer
	if ps.Len() > 0 {
		if err := WriteHistogram(&buf, ps.Depths()); err != nil {
			return a, err
		}
		a.HistogramPath = filepath.Join(dir, HistogramFile)
		if err := fsys.WriteFile(a.HistogramPath, buf.Bytes(), 0o644); err != nil {
			return a, err
		}
	}

	d := NewMapData(ao.Title, ps, res, opts)
	if ao.TileURL != "" {
		d.TileURL = ao.TileURL
	}
	if a.HistogramPath != "" {
		d.HistogramURL = ao.HistogramURL
		if d.HistogramURL == "" {
			d.HistogramURL = HistogramFile
		}
	}
	buf.Reset()
	if err := RenderMap(&buf, d); err != nil {
		return a, err
	}
	if err := fsys.WriteFile(a.MapPath, buf.Bytes(), 0o644); err != nil {
		return a, err
	}

	all := make([]contour.Line, 0, len(res.Primary)+len(res.Secondary))
	all = append(append(all, res.Primary...), res.Secondary...)
	if err := writeCollection(fsys, a.GeoJSONPath, ContoursGeoJSON(all)); err != nil {
		return a, err
	}
	if err := writeCollection(fsys, a.PointsPath, d.Points); err != nil {
		return a, err
	}

	buf.Reset()
	if err := RenderPreview(&buf, ao.Title, ps, res); err != nil {
		return a, err
	}
	if err := fsys.WriteFile(a.PreviewPath, buf.Bytes(), 0o644); err != nil {
		return a, err
	}
	return a, nil
}

func writeCollection(fsys fsutil.FileSystem, path string, fc *geojson.FeatureCollection) error {
	data, err := json.Marshal(fc)
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return fsys.WriteFile(path, data, 0o644)
}
