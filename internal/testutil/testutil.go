// Package testutil provides shared test fixtures: synthetic survey grids,
// sounding logs on disk and HTTP assertion helpers.
package testutil

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strconv"
	"testing"
)

// AssertStatusCode checks that the response status code matches expected.
func AssertStatusCode(t testing.TB, got, want int) {
	t.Helper()
	if got != want {
		t.Errorf("status code = %d, want %d", got, want)
	}
}

// Grid describes a rectangular survey pattern of rows x cols pings spaced
// Step degrees apart from (Lat, Lon).
type Grid struct {
	Rows, Cols int
	Lat, Lon   float64
	Step       float64
	// DepthCM returns the depth of ping (i, j) in centimetres.
	DepthCM func(i, j int) float64
}

// SlopeGrid is a 10x10 grid near Seattle deepening from 6 m to 15 m.
func SlopeGrid() Grid {
	return Grid{
		Rows: 10, Cols: 10,
		Lat: 47.6, Lon: -122.3, Step: 0.0002,
		DepthCM: func(i, j int) float64 { return 600 + float64(i+j)*50 },
	}
}

// Pings returns lat, lon and depth (cm) for every grid point, row-major.
func (g Grid) Pings() [][3]float64 {
	out := make([][3]float64, 0, g.Rows*g.Cols)
	for i := 0; i < g.Rows; i++ {
		for j := 0; j < g.Cols; j++ {
			out = append(out, [3]float64{
				g.Lat + float64(i)*g.Step,
				g.Lon + float64(j)*g.Step,
				g.DepthCM(i, j),
			})
		}
	}
	return out
}

// Column selects how a ping is rendered into a CSV row.
type Column func(lat, lon, depthCM float64) string

// Common columns for WriteCSV.
var (
	LatColumn   Column = func(lat, _, _ float64) string { return strconv.FormatFloat(lat, 'f', 7, 64) }
	LonColumn   Column = func(_, lon, _ float64) string { return strconv.FormatFloat(lon, 'f', 7, 64) }
	DepthColumn Column = func(_, _, d float64) string { return strconv.FormatFloat(d, 'g', -1, 64) }
)

// ConstColumn renders the same value in every row.
func ConstColumn(v string) Column { return func(_, _, _ float64) string { return v } }

// WriteCSV writes g to path with the given header; columns[i] fills
// header[i]. Parent directories are created.
func WriteCSV(t testing.TB, path string, g Grid, header []string, columns []Column) {
	t.Helper()
	if len(header) != len(columns) {
		t.Fatalf("header has %d names but %d columns", len(header), len(columns))
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		t.Fatalf("write header: %v", err)
	}
	row := make([]string, len(columns))
	for _, p := range g.Pings() {
		for i, c := range columns {
			row[i] = c(p[0], p[1], p[2])
		}
		if err := w.Write(row); err != nil {
			t.Fatalf("write row: %v", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		t.Fatalf("flush %s: %v", path, err)
	}
}
