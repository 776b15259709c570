package imaging

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"math"

	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/ironsheep/csd-transitions/internal/detector"
	"github.com/ironsheep/csd-transitions/internal/trace"
)

// Default trace plot size in pixels.
const (
	DefaultPlotWidth  = 1024
	DefaultPlotHeight = 400
)

// PlotOptions controls PlotTrace.
type PlotOptions struct {
	Title  string
	Width  int
	Height int
}

func (o PlotOptions) withDefaults() PlotOptions {
	if o.Width <= 0 {
		o.Width = DefaultPlotWidth
	}
	if o.Height <= 0 {
		o.Height = DefaultPlotHeight
	}
	return o
}

// markerStyle renders points only, no connecting line.
func markerStyle(col drawing.Color) chart.Style {
	return chart.Style{
		StrokeWidth: chart.Disabled,
		DotWidth:    5,
		DotColor:    col,
	}
}

// PlotTrace renders t as a line with rising transitions in green and falling
// transitions in red. res may be nil to plot the signal alone.
func PlotTrace(t trace.Trace, res *detector.Result, opts PlotOptions) ([]byte, error) {
	if t.Len() < 2 {
		return nil, ErrEmptyImage
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	opts = opts.withDefaults()

	series := []chart.Series{
		chart.ContinuousSeries{
			Name:    "signal",
			XValues: t.X,
			YValues: t.Y,
			Style:   chart.Style{StrokeColor: chart.ColorBlue, StrokeWidth: 1.5},
		},
	}

	if res != nil {
		var rx, ry, fx, fy []float64
		for i, d := range res.Directions {
			switch d {
			case detector.Rising:
				rx, ry = append(rx, t.X[i]), append(ry, t.Y[i])
			case detector.Falling:
				fx, fy = append(fx, t.X[i]), append(fy, t.Y[i])
			}
		}
		if len(rx) > 0 {
			series = append(series, chart.ContinuousSeries{Name: "rising", XValues: rx, YValues: ry, Style: markerStyle(chart.ColorGreen)})
		}
		if len(fx) > 0 {
			series = append(series, chart.ContinuousSeries{Name: "falling", XValues: fx, YValues: fy, Style: markerStyle(chart.ColorRed)})
		}
	}

	ch := chart.Chart{
		Title:      opts.Title,
		Width:      opts.Width,
		Height:     opts.Height,
		Background: chart.Style{Padding: chart.Box{Top: 24, Left: 16, Right: 12, Bottom: 12}},
		XAxis:      chart.XAxis{Name: "x"},
		YAxis:      chart.YAxis{Name: "signal"},
		Series:     series,
	}
	if r := flatRange(t.Y); r != nil {
		ch.YAxis.Range = r
	}
	ch.Elements = []chart.Renderable{chart.Legend(&ch)}

	var buf bytes.Buffer
	if err := ch.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("failed to render trace plot: %w", err)
	}
	return buf.Bytes(), nil
}

// PlotTraceResult is PlotTrace wrapped as a base64 ImageResult.
func PlotTraceResult(t trace.Trace, res *detector.Result, opts PlotOptions) (*ImageResult, error) {
	opts = opts.withDefaults()
	data, err := PlotTrace(t, res, opts)
	if err != nil {
		return nil, err
	}
	return &ImageResult{
		Width:       opts.Width,
		Height:      opts.Height,
		ImageBase64: base64.StdEncoding.EncodeToString(data),
		MimeType:    "image/png",
	}, nil
}

// flatRange returns a fixed range around a constant signal, which go-chart
// cannot auto-range, and nil otherwise.
func flatRange(y []float64) *chart.ContinuousRange {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range y {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if hi > lo {
		return nil
	}
	return &chart.ContinuousRange{Min: lo - 1, Max: hi + 1}
}
