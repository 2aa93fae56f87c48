package contour

import "math"

// Levels returns the contour depths from floor(dmin/interval)*interval to
// ceil(dmax/interval)*interval in steps of interval, rounded to six decimal
// places. At least two levels are always returned. A non-finite or zero
// interval is treated as 1; non-finite bounds give {-1, 0, 1}.
func Levels(dmin, dmax, interval float64) []float64 {
	if !finite(interval) || interval == 0 {
		interval = 1
	}
	interval = math.Abs(interval)
	if !finite(dmin) || !finite(dmax) {
		return []float64{-1, 0, 1}
	}
	if dmin > dmax {
		dmin, dmax = dmax, dmin
	}

	start := math.Floor(dmin/interval) * interval
	stop := math.Ceil(dmax/interval) * interval
	if stop <= start {
		stop = start + interval
	}

	steps := int(math.Round((stop - start) / interval))
	levels := make([]float64, 0, steps+1)
	for i := 0; i <= steps; i++ {
		v := round6(start + float64(i)*interval)
		if len(levels) == 0 || v > levels[len(levels)-1] {
			levels = append(levels, v)
		}
	}
	if len(levels) < 2 {
		levels = []float64{round6(start), round6(start + interval)}
	}
	return levels
}

func round6(v float64) float64 { return math.Round(v*1e6) / 1e6 }

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }
