// Package contour slices a depth surface into iso-depth polylines.
package contour

import "math"

// ClosedTolerance is the largest coordinate difference, in degrees, at
// which a path's first and last vertices are considered the same point.
const ClosedTolerance = 1e-10

// Style is the stroke a renderer should use for a family of lines.
type Style struct {
	Color   string  `json:"color"`
	Weight  int     `json:"weight"`
	Opacity float64 `json:"opacity"`
}

var (
	PrimaryStyle   = Style{Color: "yellow", Weight: 2, Opacity: 0.8}
	SecondaryStyle = Style{Color: "red", Weight: 3, Opacity: 0.9}
)

// Line is one connected iso-depth path. Coordinates are (lat, lon) pairs.
type Line struct {
	Coordinates [][2]float64 `json:"coordinates"`
	Level       float64      `json:"level"`
	DepthM      float64      `json:"depth_m"`
	IsClosed    bool         `json:"is_closed"`
	Color       string       `json:"color"`
	Weight      int          `json:"weight"`
	Opacity     float64      `json:"opacity"`
}

// NewLine builds a styled Line from (lat, lon) coordinates. It returns false
// when fewer than two distinct consecutive vertices remain.
func NewLine(coords [][2]float64, level float64, style Style) (Line, bool) {
	coords = dedupe(coords)
	if len(coords) < 2 {
		return Line{}, false
	}
	return Line{
		Coordinates: coords,
		Level:       level,
		DepthM:      math.Abs(level),
		IsClosed:    IsClosed(coords),
		Color:       style.Color,
		Weight:      style.Weight,
		Opacity:     style.Opacity,
	}, true
}

// IsClosed reports whether the first and last vertices coincide within
// ClosedTolerance.
func IsClosed(coords [][2]float64) bool {
	if len(coords) < 2 {
		return false
	}
	first, last := coords[0], coords[len(coords)-1]
	return math.Abs(first[0]-last[0]) < ClosedTolerance &&
		math.Abs(first[1]-last[1]) < ClosedTolerance
}

// dedupe drops vertices equal to their predecessor.
func dedupe(coords [][2]float64) [][2]float64 {
	out := coords[:0:0]
	for i, c := range coords {
		if i > 0 && c == coords[i-1] {
			continue
		}
		out = append(out, c)
	}
	return out
}
