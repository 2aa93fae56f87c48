package contour

import (
	"fmt"
	"time"

	"github.com/hashicorp/go-multierror"
	"gonum.org/v1/gonum/floats"

	"github.com/banshee-data/depth.survey/internal/config"
	"github.com/banshee-data/depth.survey/internal/monitoring"
	"github.com/banshee-data/depth.survey/internal/soundings"
	"github.com/banshee-data/depth.survey/internal/spatial"
	"github.com/banshee-data/depth.survey/internal/surface"
)

// Surface strategies.
const (
	StrategyIDW = "idw"
	StrategyTIN = "tin"
)

// Options configures a contour run.
type Options struct {
	Strategy          string
	PrimaryInterval   float64
	SecondaryInterval float64
	Grid              surface.GridOptions
	Mesh              surface.MeshOptions
}

// DefaultOptions returns the field defaults.
func DefaultOptions() Options {
	return OptionsFrom(config.EmptySurveyConfig())
}

// OptionsFrom reads contour settings from a survey config.
func OptionsFrom(cfg *config.SurveyConfig) Options {
	return Options{
		Strategy:          cfg.GetStrategy(),
		PrimaryInterval:   cfg.GetPrimaryInterval(),
		SecondaryInterval: cfg.GetSecondaryInterval(),
		Grid:              surface.GridOptionsFrom(cfg),
		Mesh:              surface.MeshOptionsFrom(cfg),
	}
}

// Result is the outcome of a contour run. When both strategies fail,
// Primary and Secondary are empty and Err says why; the result is still
// valid for rendering a points-only map.
type Result struct {
	Primary         []Line                  `json:"primary"`
	Secondary       []Line                  `json:"secondary"`
	PrimaryLevels   []float64               `json:"primary_levels"`
	SecondaryLevels []float64               `json:"secondary_levels"`
	Strategy        string                  `json:"strategy,omitempty"`
	Fallback        bool                    `json:"fallback"`
	Spacing         spatial.SpacingEstimate `json:"spacing"`
	Elapsed         time.Duration           `json:"elapsed_ns"`
	Err             error                   `json:"-"`
	Error           string                  `json:"error,omitempty"`
}

// Generate builds primary and secondary contours for a point set. The
// preferred strategy is tried first and the other one on failure. Generate
// never returns an error; see Result.Err.
func Generate(ps soundings.PointSet, opts Options) Result {
	start := time.Now()
	res := Result{Primary: []Line{}, Secondary: []Line{}}
	if ps.Len() == 0 {
		res.fail(soundings.ErrEmptyDataset)
		return res
	}

	depths := ps.Depths()
	dmin, dmax := floats.Min(depths), floats.Max(depths)
	res.PrimaryLevels = Levels(dmin, dmax, opts.PrimaryInterval)
	res.SecondaryLevels = Levels(dmin, dmax, opts.SecondaryInterval)

	samples := surface.NewSamples(ps)
	res.Spacing = spatial.EstimateSpacing(samples.Index)
	monitoring.Logf("contour: %d soundings, avg spacing %.6f deg, search radius %.6f deg",
		ps.Len(), res.Spacing.AverageNearestNeighborDeg, res.Spacing.Radius(opts.Grid.RadiusFactor))

	var errs *multierror.Error
	for i, strategy := range strategyOrder(opts.Strategy) {
		primary, secondary, err := run(strategy, samples, res, opts)
		if err != nil {
			monitoring.Logf("contour: %s surface failed: %v", strategy, err)
			errs = multierror.Append(errs, fmt.Errorf("%s: %w", strategy, err))
			continue
		}
		res.Primary, res.Secondary = primary, secondary
		res.Strategy = strategy
		res.Fallback = i > 0
		res.Elapsed = time.Since(start)
		monitoring.Logf("contour: %s produced %d primary and %d secondary lines in %v",
			strategy, len(primary), len(secondary), res.Elapsed)
		return res
	}

	res.fail(errs.ErrorOrNil())
	res.Elapsed = time.Since(start)
	return res
}

func (r *Result) fail(err error) {
	r.Err = err
	if err != nil {
		r.Error = err.Error()
	}
}

func strategyOrder(preferred string) []string {
	if preferred == StrategyTIN {
		return []string{StrategyTIN, StrategyIDW}
	}
	return []string{StrategyIDW, StrategyTIN}
}

// run builds one surface and contours it. A panic inside the surface or
// contour code is reported as an interpolation failure.
func run(strategy string, s *surface.Samples, res Result, opts Options) (primary, secondary []Line, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("%w: panic: %v", surface.ErrInterpolation, p)
		}
	}()

	switch strategy {
	case StrategyTIN:
		m, err := surface.BuildMesh(s, res.Spacing, opts.Mesh)
		if err != nil {
			return nil, nil, err
		}
		return orEmpty(FromMesh(m, res.PrimaryLevels, PrimaryStyle)),
			orEmpty(FromMesh(m, res.SecondaryLevels, SecondaryStyle)), nil
	default:
		g, err := surface.BuildGrid(s, res.Spacing, opts.Grid)
		if err != nil {
			return nil, nil, err
		}
		return orEmpty(FromGrid(g, res.PrimaryLevels, PrimaryStyle)),
			orEmpty(FromGrid(g, res.SecondaryLevels, SecondaryStyle)), nil
	}
}

func orEmpty(lines []Line) []Line {
	if lines == nil {
		return []Line{}
	}
	return lines
}
