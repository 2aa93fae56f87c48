package contour

import "github.com/banshee-data/depth.survey/internal/surface"

// FromMesh extracts level sets from the unmasked triangles of a mesh.
func FromMesh(m *surface.Mesh, levels []float64, style Style) []Line {
	n := int64(len(m.Depths))
	key := func(a, b int) int64 {
		if a > b {
			a, b = b, a
		}
		return int64(a)*n + int64(b)
	}

	var lines []Line
	for _, level := range levels {
		points := make(map[int64][2]float64)
		var segs []segment

		for i, tri := range m.Triangles {
			if m.Mask[i] {
				continue
			}
			var edges []int64
			for e := 0; e < 3; e++ {
				a, b := tri[e], tri[(e+1)%3]
				if (m.Depths[a] >= level) == (m.Depths[b] >= level) {
					continue
				}
				k := key(a, b)
				if _, ok := points[k]; !ok {
					if a > b {
						a, b = b, a
					}
					t := (level - m.Depths[a]) / (m.Depths[b] - m.Depths[a])
					points[k] = [2]float64{
						m.Lats[a] + t*(m.Lats[b]-m.Lats[a]),
						m.Lons[a] + t*(m.Lons[b]-m.Lons[a]),
					}
				}
				edges = append(edges, k)
			}
			if len(edges) == 2 {
				segs = append(segs, segment{edges[0], edges[1]})
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
