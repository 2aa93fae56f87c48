package soundings

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// ErrEmptyDataset is returned when no valid soundings survive filtering.
var ErrEmptyDataset = errors.New("no valid soundings after filtering")

// ErrSchema is the sentinel wrapped by every SchemaError.
var ErrSchema = errors.New("unrecognised sounding log schema")

// SchemaError describes a CSV header that cannot be mapped onto a sounding.
type SchemaError struct {
	Header []string
	Reason string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("sounding schema: %s (header: %s)", e.Reason, strings.Join(e.Header, ", "))
}

func (e *SchemaError) Unwrap() error { return ErrSchema }

// Sounding is one depth measurement tagged with its recorded position.
// ConfidencePct is nil when the log carries no confidence column.
type Sounding struct {
	Latitude      float64  `json:"latitude"`
	Longitude     float64  `json:"longitude"`
	DepthM        float64  `json:"depth_m"`
	ConfidencePct *float64 `json:"confidence_pct,omitempty"`
}

// validPosition reports whether lat/lon are finite and non-zero.
func (s Sounding) validPosition() bool {
	return s.Latitude != 0 && s.Longitude != 0 &&
		!math.IsNaN(s.Latitude) && !math.IsInf(s.Latitude, 0) &&
		!math.IsNaN(s.Longitude) && !math.IsInf(s.Longitude, 0)
}

// PointSet is the filtered, ordered set of soundings for one processing run.
type PointSet struct {
	Points []Sounding  `json:"points"`
	Stats  FilterStats `json:"stats"`
}

// Len returns the number of soundings in the set.
func (ps PointSet) Len() int { return len(ps.Points) }

// Lats returns the latitudes in point order.
func (ps PointSet) Lats() []float64 {
	out := make([]float64, len(ps.Points))
	for i, p := range ps.Points {
		out[i] = p.Latitude
	}
	return out
}

// Lons returns the longitudes in point order.
func (ps PointSet) Lons() []float64 {
	out := make([]float64, len(ps.Points))
	for i, p := range ps.Points {
		out[i] = p.Longitude
	}
	return out
}

// Depths returns the depths in metres in point order.
func (ps PointSet) Depths() []float64 {
	out := make([]float64, len(ps.Points))
	for i, p := range ps.Points {
		out[i] = p.DepthM
	}
	return out
}
