package pipeline

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/dashcast/dashcast/forecaster"
	"github.com/dashcast/dashcast/series"
	"github.com/dashcast/dashcast/table"
	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/rs/zerolog/log"
)

// Result is the outcome of one run. A missing comparison set does not fail the run and is
// reported through AccuracyErr instead.
type Result struct {
	Request       Request         `json:"request"`
	History       series.Series   `json:"history"`
	Rows          []ForecastRow   `json:"rows"`
	Accuracy      *AccuracyReport `json:"accuracy"`
	AccuracyErr   error           `json:"-"`
	BandAnomalies int             `json:"band_anomalies"`
	FitDuration   time.Duration   `json:"fit_duration"`

	fit *Fit
}

// Run executes the forecast pipeline for an uploaded table
func (e *Engine) Run(req Request, t *table.Table) (*Result, error) {
	logger := log.With().Str("request_id", req.ID.String()).Logger()

	s, err := series.FromTable(t, req.DateColumn, req.ValueColumn)
	if err != nil {
		return nil, err
	}
	windowed, err := series.Window(s, req.History)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	rows, fit, err := e.Forecast(windowed, req.Horizon)
	if err != nil {
		return nil, err
	}
	ClassifyRows(rows, req.Now)

	res := &Result{
		Request:       req,
		History:       windowed,
		Rows:          rows,
		BandAnomalies: CheckBand(rows),
		FitDuration:   time.Since(start),
		fit:           fit,
	}

	report, err := Evaluate(s, rows, req.Now)
	switch {
	case err == nil:
		res.Accuracy = &report
	case errors.Is(err, ErrEmptyComparisonSet):
		res.AccuracyErr = err
	default:
		return nil, err
	}

	logger.Debug().
		Int("observations", len(s)).
		Int("history", len(windowed)).
		Int("rows", len(rows)).
		Int("band_anomalies", res.BandAnomalies).
		Dur("fit_duration", res.FitDuration).
		Msg("forecast pipeline complete")
	return res, nil
}

// Fit returns the fitted model of the run
func (r *Result) Fit() *Fit {
	return r.fit
}

// Counts returns the number of historical and forecast rows
func (r *Result) Counts() (historical, forecast int) {
	for _, row := range r.Rows {
		if row.Label == LabelHistorical {
			historical++
		} else {
			forecast++
		}
	}
	return historical, forecast
}

// Chart plots the history against the forecast and its band
func (r *Result) Chart() *charts.Line {
	if r.fit == nil {
		return forecaster.LineForecaster(nil, nil)
	}
	return forecaster.LineForecaster(r.fit.History, r.fit.Results)
}

// RowsTable converts forecast rows into a table for export
func RowsTable(rows []ForecastRow) *table.Table {
	layout := timeLayout(rows)
	cells := make([][]string, len(rows))
	for i, r := range rows {
		cells[i] = []string{
			r.T.Format(layout),
			formatFloat(r.Point),
			formatFloat(r.Lower),
			formatFloat(r.Upper),
			string(r.Label),
		}
	}
	return table.New([]string{"ds", "yhat", "yhat_lower", "yhat_upper", "label"}, cells, table.SourceCSV)
}

// TablePrint writes the forecast rows as an aligned table
func TablePrint(w io.Writer, rows []ForecastRow) error {
	layout := timeLayout(rows)
	tbl := tabwriter.NewWriter(w, 0, 0, 1, ' ', tabwriter.AlignRight)
	fmt.Fprintf(tbl, "Date\tForecast\tLower\tUpper\tLabel\t\n")
	for _, r := range rows {
		fmt.Fprintf(tbl, "%s\t%.4f\t%.4f\t%.4f\t%s\t\n", r.T.Format(layout), r.Point, r.Lower, r.Upper, r.Label)
	}
	return tbl.Flush()
}

// timeLayout drops the clock when every row falls on midnight
func timeLayout(rows []ForecastRow) string {
	for _, r := range rows {
		if h, m, s := r.T.Clock(); h != 0 || m != 0 || s != 0 {
			return time.DateTime
		}
	}
	return time.DateOnly
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
