package contour

import (
	"math"

	"github.com/banshee-data/depth.survey/internal/surface"
)

// Grid edge keys: node index * 2, plus 1 for the edge running north.
func hEdge(g *surface.Grid, r, c int) int64 { return int64(r*g.Cols+c) * 2 }
func vEdge(g *surface.Grid, r, c int) int64 { return int64(r*g.Cols+c)*2 + 1 }

// FromGrid extracts level sets from a grid with marching squares. Cells
// with an unestimated corner are skipped, so lines stop at the edge of the
// surveyed area. Ambiguous saddle cells are resolved by the cell mean.
func FromGrid(g *surface.Grid, levels []float64, style Style) []Line {
	var lines []Line
	for _, level := range levels {
		points := make(map[int64][2]float64)
		var segs []segment

		for r := 0; r+1 < g.Rows; r++ {
			for c := 0; c+1 < g.Cols; c++ {
				segs = appendCellSegments(segs, g, r, c, level, points)
			}
		}

		for _, path := range assemble(segs) {
			coords := make([][2]float64, len(path))
			for i, k := range path {
				coords[i] = points[k]
			}
			if line, ok := NewLine(coords, level, style); ok {
				lines = append(lines, line)
			}
		}
	}
	return lines
}

// appendCellSegments adds the level crossings of cell (r, c). Corners run
// anticlockwise from the south-west: v0 (r,c), v1 (r,c+1), v2 (r+1,c+1),
// v3 (r+1,c).
func appendCellSegments(segs []segment, g *surface.Grid, r, c int, level float64, points map[int64][2]float64) []segment {
	v0, v1, v2, v3 := g.At(r, c), g.At(r, c+1), g.At(r+1, c+1), g.At(r+1, c)
	if math.IsNaN(v0) || math.IsNaN(v1) || math.IsNaN(v2) || math.IsNaN(v3) {
		return segs
	}

	var mask int
	for i, v := range [4]float64{v0, v1, v2, v3} {
		if v >= level {
			mask |= 1 << i
		}
	}
	if mask == 0 || mask == 15 {
		return segs
	}

	south, east := hEdge(g, r, c), vEdge(g, r, c+1)
	north, west := hEdge(g, r+1, c), vEdge(g, r, c)
	cross := func(k int64, ra, ca, rb, cb int) {
		if _, ok := points[k]; ok {
			return
		}
		va, vb := g.At(ra, ca), g.At(rb, cb)
		t := (level - va) / (vb - va)
		lat := g.Lats[ra] + t*(g.Lats[rb]-g.Lats[ra])
		lon := g.Lons[ca] + t*(g.Lons[cb]-g.Lons[ca])
		points[k] = [2]float64{lat, lon}
	}

	above := func(i int) bool { return mask&(1<<i) != 0 }
	var edges []int64
	if above(0) != above(1) {
		cross(south, r, c, r, c+1)
		edges = append(edges, south)
	}
	if above(1) != above(2) {
		cross(east, r, c+1, r+1, c+1)
		edges = append(edges, east)
	}
	if above(3) != above(2) {
		cross(north, r+1, c, r+1, c+1)
		edges = append(edges, north)
	}
	if above(0) != above(3) {
		cross(west, r, c, r+1, c)
		edges = append(edges, west)
	}

	if len(edges) == 2 {
		return append(segs, segment{edges[0], edges[1]})
	}

	centreAbove := (v0+v1+v2+v3)/4 >= level
	switch {
	case mask == 0b0101 && centreAbove, mask == 0b1010 && !centreAbove:
		// Cut off v1 and v3.
		return append(segs, segment{south, east}, segment{north, west})
	default:
		// Cut off v0 and v2.
		return append(segs, segment{west, south}, segment{east, north})
	}
}
