package surface

import (
	"fmt"
	"math"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/banshee-data/depth.survey/internal/config"
	"github.com/banshee-data/depth.survey/internal/spatial"
)

// coincidentEps is the distance (degrees) below which a sample is treated as
// sitting exactly on a grid node.
const coincidentEps = 1e-12

// GridOptions controls the IDW grid.
type GridOptions struct {
	Size          int     // nodes per axis
	Padding       float64 // fraction of the data extent added on each side
	KNeighbors    int
	Power         float64
	RadiusFactor  float64 // search radius = RadiusFactor * average spacing
	FarMaskFactor float64 // nodes farther than FarMaskFactor * radius from any sample are NaN
	BatchSize     int     // nodes per work unit
	Workers       int
}

// DefaultGridOptions returns the field defaults.
func DefaultGridOptions() GridOptions {
	return GridOptionsFrom(config.EmptySurveyConfig())
}

// GridOptionsFrom reads grid settings from a survey config.
func GridOptionsFrom(cfg *config.SurveyConfig) GridOptions {
	return GridOptions{
		Size:          cfg.GetGridSize(),
		Padding:       cfg.GetGridPadding(),
		KNeighbors:    cfg.GetKNeighbors(),
		Power:         cfg.GetIDWPower(),
		RadiusFactor:  cfg.GetRadiusFactor(),
		FarMaskFactor: cfg.GetFarMaskFactor(),
		BatchSize:     8192,
		Workers:       runtime.GOMAXPROCS(0),
	}
}

// Grid is a regular lon/lat grid of depth estimates. Values is row-major
// with Rows entries along latitude and Cols along longitude; NaN marks an
// unestimated node.
type Grid struct {
	Bounds       Bounds    `json:"bounds"`
	Rows         int       `json:"rows"`
	Cols         int       `json:"cols"`
	Lons         []float64 `json:"-"`
	Lats         []float64 `json:"-"`
	Values       []float64 `json:"-"`
	CellLon      float64   `json:"cell_lon"`
	CellLat      float64   `json:"cell_lat"`
	SearchRadius float64   `json:"search_radius"`
	Finite       int       `json:"finite"`
}

// At returns the value at row r (latitude index) and column c.
func (g *Grid) At(r, c int) float64 { return g.Values[r*g.Cols+c] }

// BuildGrid interpolates the samples onto a padded regular grid by inverse
// distance weighting of up to KNeighbors samples within the search radius.
// Nodes are processed in batches so memory stays proportional to the grid.
func BuildGrid(s *Samples, spacing spatial.SpacingEstimate, opts GridOptions) (*Grid, error) {
	if s.Len() == 0 {
		return nil, fmt.Errorf("%w: no samples", ErrInterpolation)
	}
	if opts.Size < 2 {
		return nil, fmt.Errorf("%w: grid size %d", ErrInterpolation, opts.Size)
	}
	bounds := BoundsOf(s.Lons, s.Lats).Pad(opts.Padding)
	if bounds.degenerate() {
		return nil, fmt.Errorf("%w: zero-extent bounding box", ErrInterpolation)
	}

	n := opts.Size
	g := &Grid{
		Bounds:       bounds,
		Rows:         n,
		Cols:         n,
		Lons:         linspace(bounds.MinLon, bounds.MaxLon, n),
		Lats:         linspace(bounds.MinLat, bounds.MaxLat, n),
		Values:       make([]float64, n*n),
		CellLon:      (bounds.MaxLon - bounds.MinLon) / float64(n-1),
		CellLat:      (bounds.MaxLat - bounds.MinLat) / float64(n-1),
		SearchRadius: spacing.Radius(opts.RadiusFactor),
	}
	farLimit := g.SearchRadius * opts.FarMaskFactor

	batch := opts.BatchSize
	if batch <= 0 {
		batch = len(g.Values)
	}
	var eg errgroup.Group
	eg.SetLimit(max(opts.Workers, 1))
	for start := 0; start < len(g.Values); start += batch {
		end := min(start+batch, len(g.Values))
		eg.Go(func() (err error) {
			// Workers run on their own goroutines, out of reach of any
			// recover in the caller.
			defer func() {
				if p := recover(); p != nil {
					err = fmt.Errorf("%w: nodes %d-%d: panic: %v", ErrInterpolation, start, end, p)
				}
			}()
			for i := start; i < end; i++ {
				lon, lat := g.Lons[i%n], g.Lats[i/n]
				v := idw(s, lon, lat, opts.KNeighbors, opts.Power, g.SearchRadius)
				if !math.IsNaN(v) && s.Index.NearestDistance(lon, lat) > farLimit {
					v = math.NaN()
				}
				g.Values[i] = v
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	for _, v := range g.Values {
		if !math.IsNaN(v) {
			g.Finite++
		}
	}
	if g.Finite == 0 {
		return nil, fmt.Errorf("%w: no grid node within %.3g deg of a sample", ErrInterpolation, g.SearchRadius)
	}
	return g, nil
}

// idw estimates the depth at (lon, lat). A sample within coincidentEps is
// returned exactly; no sample within radius gives NaN.
func idw(s *Samples, lon, lat float64, k int, power, radius float64) float64 {
	nbs := s.Index.Nearest(lon, lat, k, radius)
	if len(nbs) == 0 {
		return math.NaN()
	}
	if nbs[0].Distance <= coincidentEps {
		return s.Depths[nbs[0].Index]
	}
	var num, den float64
	for _, nb := range nbs {
		w := 1 / math.Pow(nb.Distance+coincidentEps, power)
		num += w * s.Depths[nb.Index]
		den += w
	}
	if den == 0 {
		return math.NaN()
	}
	return num / den
}

func linspace(lo, hi float64, n int) []float64 {
	out := make([]float64, n)
	step := (hi - lo) / float64(n-1)
	for i := range out {
		out[i] = lo + float64(i)*step
	}
	out[n-1] = hi
	return out
}
