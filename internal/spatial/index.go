// Package spatial provides nearest-neighbour search over sounding positions
// and the average point spacing used to scale interpolation.
//
// All distances are Euclidean in unprojected (lon, lat) degree space.
package spatial

import (
	"math"

	"gonum.org/v1/gonum/spatial/kdtree"
)

// site is a kd-tree element: a position and the index of the sounding it
// came from.
type site struct {
	lon, lat float64
	idx      int
}

// Compare returns the signed distance of p from the plane through c
// perpendicular to dimension d (0 = lon, 1 = lat).
func (p site) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	q := c.(site)
	switch d {
	case 0:
		return p.lon - q.lon
	case 1:
		return p.lat - q.lat
	default:
		panic("spatial: illegal dimension")
	}
}

func (p site) Dims() int { return 2 }

// Distance returns the squared Euclidean distance between p and c.
func (p site) Distance(c kdtree.Comparable) float64 {
	q := c.(site)
	dx, dy := p.lon-q.lon, p.lat-q.lat
	return dx*dx + dy*dy
}

type sites []site

func (s sites) Index(i int) kdtree.Comparable         { return s[i] }
func (s sites) Len() int                              { return len(s) }
func (s sites) Pivot(d kdtree.Dim) int                { return plane{sites: s, Dim: d}.Pivot() }
func (s sites) Slice(start, end int) kdtree.Interface { return s[start:end] }

type plane struct {
	kdtree.Dim
	sites
}

func (p plane) Less(i, j int) bool {
	if p.Dim == 0 {
		return p.sites[i].lon < p.sites[j].lon
	}
	return p.sites[i].lat < p.sites[j].lat
}
func (p plane) Pivot() int { return kdtree.Partition(p, kdtree.MedianOfMedians(p)) }
func (p plane) Slice(start, end int) kdtree.SortSlicer {
	p.sites = p.sites[start:end]
	return p
}
func (p plane) Swap(i, j int) { p.sites[i], p.sites[j] = p.sites[j], p.sites[i] }

// Neighbor is one query result.
type Neighbor struct {
	Index    int     // index into the slices the Index was built from
	Distance float64 // degrees
}

// Index is a static 2-d tree over (lon, lat) pairs. It is safe for
// concurrent queries once built.
type Index struct {
	tree *kdtree.Tree
	lons []float64
	lats []float64
}

// NewIndex builds an index over parallel lon/lat slices. The slices are
// retained and must not be modified afterwards.
func NewIndex(lons, lats []float64) *Index {
	n := min(len(lons), len(lats))
	pts := make(sites, n)
	for i := 0; i < n; i++ {
		pts[i] = site{lon: lons[i], lat: lats[i], idx: i}
	}
	idx := &Index{lons: lons[:n], lats: lats[:n]}
	if n > 0 {
		idx.tree = kdtree.New(pts, false)
	}
	return idx
}

// Len returns the number of indexed points.
func (x *Index) Len() int { return len(x.lons) }

// Point returns the position of the i'th indexed point.
func (x *Index) Point(i int) (lon, lat float64) { return x.lons[i], x.lats[i] }

// Nearest returns up to k neighbours of (lon, lat) in increasing distance
// order. When radius > 0 only neighbours within radius are returned.
func (x *Index) Nearest(lon, lat float64, k int, radius float64) []Neighbor {
	if x.tree == nil || k <= 0 {
		return nil
	}
	keep := kdtree.NewNKeeper(k)
	if radius > 0 {
		// Seed the sentinel with the squared radius so the search prunes
		// everything beyond it.
		keep.Heap[0].Dist = radius * radius
	}
	x.tree.NearestSet(keep, site{lon: lon, lat: lat})

	out := make([]Neighbor, 0, keep.Len())
	for _, c := range keep.Heap {
		if c.Comparable == nil {
			continue
		}
		if radius > 0 && c.Dist > radius*radius {
			continue
		}
		out = append(out, Neighbor{Index: c.Comparable.(site).idx, Distance: math.Sqrt(c.Dist)})
	}
	return out
}

// NearestDistance returns the distance from (lon, lat) to the closest
// indexed point, or +Inf when the index is empty.
func (x *Index) NearestDistance(lon, lat float64) float64 {
	if x.tree == nil {
		return math.Inf(1)
	}
	_, d := x.tree.Nearest(site{lon: lon, lat: lat})
	return math.Sqrt(d)
}
