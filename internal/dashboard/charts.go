package dashboard

import (
	"bytes"
	"fmt"
	"time"

	"github.com/dashcast/dashcast/forecaster"
	"github.com/dashcast/dashcast/stocks"
	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// renderCharts renders the charts as a standalone html page
func renderCharts(chs ...components.Charter) (string, error) {
	if len(chs) == 0 {
		return "", nil
	}
	page := components.NewPage()
	page.AddCharts(chs...)

	var b bytes.Buffer
	if err := page.Render(&b); err != nil {
		return "", fmt.Errorf("unable to render charts, %w", err)
	}
	return b.String(), nil
}

func categoryBar(title string, totals []categoryTotal) *charts.Bar {
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: title}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
	)
	labels := make([]string, len(totals))
	data := make([]opts.BarData, len(totals))
	for i, ct := range totals {
		labels[i] = ct.Category
		data[i] = opts.BarData{Value: ct.Total}
	}
	bar.SetXAxis(labels).AddSeries(title, data)
	return bar
}

// stockCharts returns the close, volume, open and high charts of a ticker
func stockCharts(ticker string, prices []stocks.Price) []components.Charter {
	t := make([]time.Time, len(prices))
	closes := make([]float64, len(prices))
	opens := make([]float64, len(prices))
	highs := make([]float64, len(prices))
	volume := make([]opts.BarData, len(prices))
	labels := make([]string, len(prices))
	for i, p := range prices {
		t[i] = p.Date
		closes[i] = p.Close
		opens[i] = p.Open
		highs[i] = p.High
		volume[i] = opts.BarData{Value: p.Volume}
		labels[i] = p.Date.Format(time.DateOnly)
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: ticker + " Trading Volume"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
	)
	bar.SetXAxis(labels).AddSeries("Volume", volume)

	return []components.Charter{
		forecaster.LineTSeries(ticker+" Closing Price", []string{"Close Price"}, t, [][]float64{closes}),
		bar,
		forecaster.LineTSeries(ticker+" Opening Price", []string{"Open Price"}, t, [][]float64{opens}),
		forecaster.LineTSeries(ticker+" High Price", []string{"High Price"}, t, [][]float64{highs}),
	}
}
