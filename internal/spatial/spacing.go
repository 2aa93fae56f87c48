package spatial

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// MinSearchRadius is the floor applied to derived search radii so that a
// tightly clustered survey never produces a zero or degenerate radius.
const MinSearchRadius = 1e-9

// SpacingEstimate is the average nearest-neighbour distance of a point set,
// in degrees. It is a scale parameter for interpolation, not a measurement.
type SpacingEstimate struct {
	AverageNearestNeighborDeg float64 `json:"average_nearest_neighbor_deg"`
	Samples                   int     `json:"samples"`
}

// EstimateSpacing averages, over every indexed point, the distance to its
// closest other point. Coincident points contribute zero. Fewer than two
// points yield a zero estimate.
func EstimateSpacing(idx *Index) SpacingEstimate {
	n := idx.Len()
	if n < 2 {
		return SpacingEstimate{Samples: n}
	}

	dists := make([]float64, n)
	for i := 0; i < n; i++ {
		lon, lat := idx.Point(i)
		dists[i] = nearestOther(idx, i, lon, lat)
	}
	return SpacingEstimate{
		AverageNearestNeighborDeg: stat.Mean(dists, nil),
		Samples:                   n,
	}
}

// nearestOther returns the distance from point i to its closest neighbour
// that is not itself. A duplicate position counts as a neighbour.
func nearestOther(idx *Index, i int, lon, lat float64) float64 {
	for _, nb := range idx.Nearest(lon, lat, 2, 0) {
		if nb.Index != i {
			return nb.Distance
		}
	}
	return 0
}

// SearchRadius scales the average spacing by factor, clamped to
// MinSearchRadius.
func SearchRadius(avg, factor float64) float64 {
	r := avg * factor
	if math.IsNaN(r) || r < MinSearchRadius {
		return MinSearchRadius
	}
	return r
}

// Radius is shorthand for SearchRadius(s.AverageNearestNeighborDeg, factor).
func (s SpacingEstimate) Radius(factor float64) float64 {
	return SearchRadius(s.AverageNearestNeighborDeg, factor)
}
