package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dashcast/dashcast/pipeline"
	"github.com/dashcast/dashcast/table"
	"github.com/dashcast/dashcast/timedataset"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
	_ "modernc.org/sqlite"
)

type forecastFlags struct {
	file        string
	sqlitePath  string
	query       string
	dateColumn  string
	valueColumn string
	history     int
	horizon     string
	now         string
	json        bool
	html        string
	model       string
}

func forecastCmd() *cobra.Command {
	var f forecastFlags
	cmd := &cobra.Command{
		Use:   "forecast",
		Short: "Forecast a value column of a CSV, XLSX or SQLite table",
		Example: `  dashcast forecast --file pnl.csv --date-column ds --value-column y --horizon long
  dashcast forecast --sqlite warehouse.db --query "select ds, y from pnl" --date-column ds --value-column y`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runForecast(cmd.Context(), cmd.OutOrStdout(), f)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&f.file, "file", "f", "", "CSV or XLSX file to forecast")
	flags.StringVar(&f.sqlitePath, "sqlite", "", "SQLite database to query instead of a file")
	flags.StringVar(&f.query, "query", "", "query returning the table when --sqlite is set")
	flags.StringVar(&f.dateColumn, "date-column", "ds", "column holding the dates")
	flags.StringVar(&f.valueColumn, "value-column", "y", "column holding the values")
	flags.IntVar(&f.history, "history", 0, "number of most recent rows to fit on (default from config)")
	flags.StringVar(&f.horizon, "horizon", "short", "short (3 months) or long (6 months)")
	flags.StringVar(&f.now, "now", "", "reference date splitting history from forecast (default today)")
	flags.BoolVar(&f.json, "json", false, "print the result as JSON")
	flags.StringVar(&f.html, "html", "", "write the forecast charts to this html file")
	flags.StringVar(&f.model, "model", "", "write the fitted model as JSON to this file")
	cmd.MarkFlagsMutuallyExclusive("file", "sqlite")
	cmd.MarkFlagsRequiredTogether("sqlite", "query")
	return cmd
}

func runForecast(ctx context.Context, w io.Writer, f forecastFlags) error {
	tbl, err := loadForecastTable(ctx, f)
	if err != nil {
		return err
	}

	horizon, err := pipeline.ParseHorizon(f.horizon)
	if err != nil {
		return err
	}
	now := time.Now()
	if f.now != "" {
		if now, err = time.Parse(time.DateOnly, f.now); err != nil {
			return fmt.Errorf("--now must be formatted as YYYY-MM-DD, %w", err)
		}
	}
	history := f.history
	if history == 0 {
		history = cfg.Forecast.DefaultHistory
	}
	history = min(history, cfg.Forecast.MaxHistory)

	engine, err := pipeline.NewEngine(cfg.ForecasterOptions())
	if err != nil {
		return err
	}
	req := pipeline.NewRequest(f.dateColumn, f.valueColumn, history, horizon, now)
	res, err := engine.Run(req, tbl)
	if err != nil {
		return err
	}
	log.Debug().
		Str("request_id", req.ID.String()).
		Dur("fit_duration", res.FitDuration).
		Int("band_anomalies", res.BandAnomalies).
		Msg("forecast complete")

	if f.html != "" {
		if err := writeForecastHTML(f.html, res); err != nil {
			return err
		}
	}
	if f.model != "" {
		if err := writeModel(f.model, res); err != nil {
			return err
		}
	}

	if f.json {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}

	span := timedataset.TimeSlice(res.Fit().History.T)
	fmt.Fprintf(w, "History: %d points from %s to %s\n\n", len(span),
		span.StartTime().Format(time.DateOnly), span.EndTime().Format(time.DateOnly))
	if f.model != "" {
		if eq, err := res.Fit().Forecaster.SeriesModelEq(); err == nil {
			fmt.Fprintf(w, "Model: %s\n\n", eq)
		}
	}
	if err := pipeline.TablePrint(w, res.Rows); err != nil {
		return err
	}
	fmt.Fprintln(w)
	if res.AccuracyErr != nil {
		fmt.Fprintf(w, "Accuracy: %v\n", res.AccuracyErr)
		return nil
	}
	return res.Accuracy.TablePrint(w)
}

func loadForecastTable(ctx context.Context, f forecastFlags) (*table.Table, error) {
	switch {
	case f.file != "":
		return table.LoadFile(f.file)
	case f.sqlitePath != "":
		db, err := sql.Open("sqlite", f.sqlitePath)
		if err != nil {
			return nil, fmt.Errorf("unable to open %s, %w", f.sqlitePath, err)
		}
		defer db.Close()
		return table.LoadSQL(ctx, db, f.query)
	}
	return nil, fmt.Errorf("one of --file or --sqlite is required")
}

// writeForecastHTML writes the forecast chart followed by the component plots of the fit
func writeForecastHTML(path string, res *pipeline.Result) error {
	out, err := os.Create(path)
	if err != nil {
		return err
	}
	defer out.Close()

	fit := res.Fit()
	if fit == nil {
		page := components.NewPage()
		page.AddCharts(res.Chart())
		return page.Render(out)
	}
	horizon := timedataset.NextMonthEnds(fit.History.T[len(fit.History.T)-1], int(res.Request.Horizon))
	return fit.Forecaster.PlotFit(out, horizon)
}

func writeModel(path string, res *pipeline.Result) error {
	fit := res.Fit()
	if fit == nil {
		return fmt.Errorf("no fitted model to write")
	}
	model, err := fit.Forecaster.Model()
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(model, "", "  ")
	if err != nil {
		return fmt.Errorf("unable to marshal model, %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}
