package contour

import "slices"

// segment joins two crossing points identified by the surface edge they lie
// on. Segments that share an edge key are adjacent on the level set.
type segment struct{ a, b int64 }

// assemble chains segments into paths of edge keys. Open paths are traced
// from their loose ends first; whatever remains forms rings, which repeat
// their first key at the end.
func assemble(segs []segment) [][]int64 {
	adj := make(map[int64][]int, 2*len(segs))
	for i, s := range segs {
		adj[s.a] = append(adj[s.a], i)
		adj[s.b] = append(adj[s.b], i)
	}
	used := make([]bool, len(segs))

	walk := func(start int64, si int) []int64 {
		path := []int64{start}
		cur := start
		for si >= 0 {
			used[si] = true
			s := segs[si]
			next := s.b
			if s.a != cur {
				next = s.a
			}
			path = append(path, next)
			cur = next
			si = -1
			for _, j := range adj[cur] {
				if !used[j] {
					si = j
					break
				}
			}
		}
		return path
	}

	ends := make([]int64, 0)
	for k, ids := range adj {
		if len(ids) == 1 {
			ends = append(ends, k)
		}
	}
	slices.Sort(ends)

	var paths [][]int64
	for _, k := range ends {
		if si := adj[k][0]; !used[si] {
			paths = append(paths, walk(k, si))
		}
	}
	for i := range segs {
		if !used[i] {
			paths = append(paths, walk(segs[i].a, i))
		}
	}
	return paths
}
