package mapview

import (
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/depth.survey/internal/contour"
	"github.com/banshee-data/depth.survey/internal/soundings"
)

// previewMaxPoints caps the sounding overlay so large surveys stay
// responsive in the browser.
const previewMaxPoints = 5000

// RenderPreview writes an ECharts page plotting the contours in lon/lat
// space with the soundings underneath. It needs no tiles, which makes it
// handy for checking a surface offline.
func RenderPreview(w io.Writer, title string, ps soundings.PointSet, res contour.Result) error {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: title, Width: "1000px", Height: "800px"}),
		charts.WithTitleOpts(opts.Title{
			Title:    title,
			Subtitle: fmt.Sprintf("strategy=%s primary=%d secondary=%d points=%d", res.Strategy, len(res.Primary), len(res.Secondary), ps.Len()),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(false)}),
		charts.WithXAxisOpts(opts.XAxis{Type: "value", Name: "Longitude", Scale: opts.Bool(true), NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Type: "value", Name: "Latitude", Scale: opts.Bool(true), NameLocation: "middle", NameGap: 40}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "inside", XAxisIndex: []int{0}}),
	)

	addLines := func(lines []contour.Line) {
		for _, l := range lines {
			data := make([]opts.LineData, len(l.Coordinates))
			for i, c := range l.Coordinates {
				data[i] = opts.LineData{Value: []interface{}{c[1], c[0]}}
			}
			line.AddSeries(fmt.Sprintf("%gm", l.DepthM), data,
				charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)}),
				charts.WithLineStyleOpts(opts.LineStyle{Color: l.Color, Width: float32(l.Weight), Opacity: opts.Float(float32(l.Opacity))}),
			)
		}
	}
	addLines(res.Secondary)
	addLines(res.Primary)

	stride := 1
	if n := ps.Len(); n > previewMaxPoints {
		stride = n/previewMaxPoints + 1
	}
	pts := make([]opts.ScatterData, 0, ps.Len()/stride+1)
	for i := 0; i < ps.Len(); i += stride {
		p := ps.Points[i]
		pts = append(pts, opts.ScatterData{Value: []interface{}{p.Longitude, p.Latitude, p.DepthM}})
	}
	scatter := charts.NewScatter()
	scatter.AddSeries("soundings", pts,
		charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 2}),
		charts.WithItemStyleOpts(opts.ItemStyle{Color: "#3e4989", Opacity: opts.Float(0.5)}),
	)
	line.Overlap(scatter)

	if err := line.Render(w); err != nil {
		return fmt.Errorf("render preview: %w", err)
	}
	return nil
}
