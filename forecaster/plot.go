package forecaster

import (
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
	"time"

	"github.com/dashcast/dashcast/timedataset"
	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
)

var ErrNoTrainingData = errors.New("no training data to plot")

// LineTSeries generates an echart multi-line chart for some arbitrary time/value combination. The input
// y is a slice of series that must have the same length as the input time slice. NaN values
// are left as gaps.
func LineTSeries(title string, seriesName []string, t []time.Time, y [][]float64) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(
			opts.Title{
				Title: title,
			},
		),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Top: "bottom"}),
	)

	line = line.SetXAxis(axisLabels(t))
	for i, series := range seriesName {
		if i >= len(y) {
			break
		}
		line = line.AddSeries(series, lineData(y[i]))
	}
	return line
}

// LineForecaster generates an echart line chart of the actual values along with the point
// forecast and dashed upper and lower bounds. Actual and result times may differ and are
// merged onto one time axis.
func LineForecaster(actual *timedataset.TimeDataset, res *Results) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(
			opts.Title{
				Title: "Forecast",
			},
		),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Top: "bottom"}),
		charts.WithYAxisOpts(opts.YAxis{Scale: opts.Bool(true)}),
	)

	var actualT []time.Time
	var actualY []float64
	if actual != nil {
		actualT, actualY = actual.T, actual.Y
	}
	var resT []time.Time
	if res != nil {
		resT = res.T
	}
	t := mergeTimes(actualT, resT)
	pos := make(map[int64]int, len(t))
	for i, tPnt := range t {
		pos[tPnt.UnixNano()] = i
	}

	align := func(src []time.Time, vals []float64) []float64 {
		out := make([]float64, len(t))
		for i := range out {
			out[i] = math.NaN()
		}
		for i, tPnt := range src {
			if i < len(vals) {
				out[pos[tPnt.UnixNano()]] = vals[i]
			}
		}
		return out
	}

	dashed := charts.WithLineStyleOpts(opts.LineStyle{Type: "dashed"})
	line.SetXAxis(axisLabels(t)).
		AddSeries("Actual", lineData(align(actualT, actualY)))
	if res != nil {
		line.AddSeries("Forecast", lineData(align(resT, res.Forecast))).
			AddSeries("Upper", lineData(align(resT, res.Upper)), dashed).
			AddSeries("Lower", lineData(align(resT, res.Lower)), dashed)
	}
	return line
}

// PlotFit renders the fit against the training data with the given horizon appended along
// with the model components and fit residual as an html page
func (f *Forecaster) PlotFit(w io.Writer, horizon []time.Time) error {
	td := f.TrainingData()
	if td == nil || len(td.T) == 0 {
		return ErrNoTrainingData
	}

	t := make([]time.Time, 0, len(td.T)+len(horizon))
	t = append(t, td.T...)
	t = append(t, horizon...)

	res, err := f.Predict(t)
	if err != nil {
		return fmt.Errorf("unable to predict with horizon, %w", err)
	}

	zpad := make([]float64, len(horizon))
	for i := range zpad {
		zpad[i] = math.NaN()
	}
	residuals := append(append([]float64(nil), f.Residuals()...), zpad...)

	page := components.NewPage()
	page.AddCharts(
		LineForecaster(td, res),
		LineTSeries(
			"Forecast Components",
			[]string{"Trend", "Seasonality", "Event"},
			t,
			[][]float64{
				res.SeriesComponents.Trend,
				res.SeriesComponents.Seasonality,
				res.SeriesComponents.Event,
			},
		),
		LineTSeries(
			"Forecast Residual",
			[]string{"Residual"},
			t,
			[][]float64{residuals},
		),
	)
	return page.Render(w)
}

func mergeTimes(a, b []time.Time) []time.Time {
	seen := make(map[int64]struct{}, len(a)+len(b))
	out := make([]time.Time, 0, len(a)+len(b))
	for _, src := range [][]time.Time{a, b} {
		for _, tPnt := range src {
			if _, exists := seen[tPnt.UnixNano()]; exists {
				continue
			}
			seen[tPnt.UnixNano()] = struct{}{}
			out = append(out, tPnt)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}

func axisLabels(t []time.Time) []string {
	labels := make([]string, len(t))
	for i, tPnt := range t {
		labels[i] = tPnt.Format(time.DateOnly)
	}
	return labels
}

func lineData(y []float64) []opts.LineData {
	data := make([]opts.LineData, len(y))
	for i, v := range y {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			// nil renders as a gap
			data[i] = opts.LineData{Value: nil}
			continue
		}
		data[i] = opts.LineData{Value: v}
	}
	return data
}
