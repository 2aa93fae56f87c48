package surface

import (
	"fmt"
	"math"

	"github.com/fogleman/delaunay"

	"github.com/banshee-data/depth.survey/internal/config"
	"github.com/banshee-data/depth.survey/internal/spatial"
)

// MeshOptions controls the triangulated surface.
type MeshOptions struct {
	// EdgeFactor masks triangles whose longest edge exceeds
	// EdgeFactor * average spacing, so the surface does not bridge the gap
	// between neighbouring transects.
	EdgeFactor float64
	Refine     bool
}

// DefaultMeshOptions returns the field defaults.
func DefaultMeshOptions() MeshOptions {
	return MeshOptionsFrom(config.EmptySurveyConfig())
}

// MeshOptionsFrom reads mesh settings from a survey config.
func MeshOptionsFrom(cfg *config.SurveyConfig) MeshOptions {
	return MeshOptions{
		EdgeFactor: cfg.GetTINEdgeFactor(),
		Refine:     cfg.GetTINRefine(),
	}
}

// Mesh is a triangulated surface. Mask[i] is true when Triangles[i] is
// excluded from contouring.
type Mesh struct {
	Lons      []float64
	Lats      []float64
	Depths    []float64
	Triangles [][3]int
	Mask      []bool
	MaxEdge   float64
}

// Active returns the number of unmasked triangles.
func (m *Mesh) Active() int {
	n := 0
	for _, masked := range m.Mask {
		if !masked {
			n++
		}
	}
	return n
}

// BuildMesh triangulates the samples and masks long-edged triangles.
func BuildMesh(s *Samples, spacing spatial.SpacingEstimate, opts MeshOptions) (*Mesh, error) {
	if s.Len() < 3 {
		return nil, fmt.Errorf("%w: need at least 3 samples, have %d", ErrInterpolation, s.Len())
	}

	pts := make([]delaunay.Point, s.Len())
	for i := range pts {
		pts[i] = delaunay.Point{X: s.Lons[i], Y: s.Lats[i]}
	}
	tri, err := delaunay.Triangulate(pts)
	if err != nil {
		return nil, fmt.Errorf("%w: triangulation: %v", ErrInterpolation, err)
	}
	if len(tri.Triangles) < 3 {
		return nil, fmt.Errorf("%w: degenerate (collinear) samples", ErrInterpolation)
	}

	m := &Mesh{
		Lons:    s.Lons,
		Lats:    s.Lats,
		Depths:  s.Depths,
		MaxEdge: spacing.Radius(opts.EdgeFactor),
	}
	for i := 0; i+2 < len(tri.Triangles); i += 3 {
		t := [3]int{tri.Triangles[i], tri.Triangles[i+1], tri.Triangles[i+2]}
		m.Triangles = append(m.Triangles, t)
		m.Mask = append(m.Mask, m.longestEdge(t) > m.MaxEdge)
	}
	if m.Active() == 0 {
		return nil, fmt.Errorf("%w: every triangle exceeds max edge %.3g deg", ErrInterpolation, m.MaxEdge)
	}

	if opts.Refine {
		m = m.Refine()
	}
	return m, nil
}

func (m *Mesh) longestEdge(t [3]int) float64 {
	var longest float64
	for e := 0; e < 3; e++ {
		a, b := t[e], t[(e+1)%3]
		longest = math.Max(longest, math.Hypot(m.Lons[a]-m.Lons[b], m.Lats[a]-m.Lats[b]))
	}
	return longest
}

type meshEdge struct{ a, b int }

func edgeOf(a, b int) meshEdge {
	if a > b {
		a, b = b, a
	}
	return meshEdge{a, b}
}

// Refine splits every unmasked triangle into four at its edge midpoints.
// A midpoint on an edge shared by two unmasked triangles takes
// 3/8 of each endpoint depth plus 1/8 of each opposite vertex depth; on a
// boundary edge it is the mean of the endpoints. Masked triangles are kept
// as they are.
func (m *Mesh) Refine() *Mesh {
	opposite := make(map[meshEdge][]int)
	for i, t := range m.Triangles {
		if m.Mask[i] {
			continue
		}
		for e := 0; e < 3; e++ {
			k := edgeOf(t[e], t[(e+1)%3])
			opposite[k] = append(opposite[k], t[(e+2)%3])
		}
	}

	out := &Mesh{
		Lons:    append([]float64(nil), m.Lons...),
		Lats:    append([]float64(nil), m.Lats...),
		Depths:  append([]float64(nil), m.Depths...),
		MaxEdge: m.MaxEdge,
	}
	mids := make(map[meshEdge]int)
	midpoint := func(a, b int) int {
		k := edgeOf(a, b)
		if i, ok := mids[k]; ok {
			return i
		}
		depth := (m.Depths[a] + m.Depths[b]) / 2
		if o := opposite[k]; len(o) == 2 {
			depth = 3.0/8*(m.Depths[a]+m.Depths[b]) + 1.0/8*(m.Depths[o[0]]+m.Depths[o[1]])
		}
		out.Lons = append(out.Lons, (m.Lons[a]+m.Lons[b])/2)
		out.Lats = append(out.Lats, (m.Lats[a]+m.Lats[b])/2)
		out.Depths = append(out.Depths, depth)
		mids[k] = len(out.Depths) - 1
		return mids[k]
	}

	for i, t := range m.Triangles {
		if m.Mask[i] {
			out.Triangles = append(out.Triangles, t)
			out.Mask = append(out.Mask, true)
			continue
		}
		a, b, c := t[0], t[1], t[2]
		ab, bc, ca := midpoint(a, b), midpoint(b, c), midpoint(c, a)
		out.Triangles = append(out.Triangles,
			[3]int{a, ab, ca},
			[3]int{ab, b, bc},
			[3]int{ca, bc, c},
			[3]int{ab, bc, ca},
		)
		out.Mask = append(out.Mask, false, false, false, false)
	}
	return out
}
