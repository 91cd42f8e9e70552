package pipeline

import (
	"errors"
	"fmt"
	"io"
	"math"
	"text/tabwriter"
	"time"

	"github.com/dashcast/dashcast/metrics"
	"github.com/dashcast/dashcast/series"
	"github.com/goccy/go-json"
)

var ErrEmptyComparisonSet = errors.New("no comparable data")

// MAPEUndefined is shown in place of MAPE when every paired actual is zero
const MAPEUndefined = "undefined"

// AccuracyReport holds the error metrics of the forecast against the known actuals. MAPE
// is a fraction and excludes pairs whose actual is zero.
type AccuracyReport struct {
	MAE         float64 `json:"mae"`
	MSE         float64 `json:"mse"`
	RMSE        float64 `json:"rmse"`
	MAPE        float64 `json:"-"`
	MAPEDefined bool    `json:"mape_defined"`
	Pairs       int     `json:"pairs"`
	ZeroActuals int     `json:"zero_actuals"`
}

func (a AccuracyReport) MarshalJSON() ([]byte, error) {
	type report AccuracyReport
	var mape *float64
	if a.MAPEDefined {
		mape = &a.MAPE
	}
	return json.Marshal(struct {
		report
		MAPE     *float64 `json:"mape"`
		MAPEText string   `json:"mape_text"`
	}{
		report:   report(a),
		MAPE:     mape,
		MAPEText: a.MAPEText(),
	})
}

// MAPEText formats MAPE as a percent or undefined
func (a AccuracyReport) MAPEText() string {
	if !a.MAPEDefined {
		return MAPEUndefined
	}
	return fmt.Sprintf("%.2f%%", a.MAPE*100)
}

// TablePrint writes the metrics as an aligned table
func (a AccuracyReport) TablePrint(w io.Writer) error {
	tbl := tabwriter.NewWriter(w, 0, 0, 1, ' ', tabwriter.AlignRight)
	fmt.Fprintf(tbl, "MAE:\t%.4f\t\n", a.MAE)
	fmt.Fprintf(tbl, "MSE:\t%.4f\t\n", a.MSE)
	fmt.Fprintf(tbl, "RMSE:\t%.4f\t\n", a.RMSE)
	fmt.Fprintf(tbl, "MAPE:\t%s\t\n", a.MAPEText())
	fmt.Fprintf(tbl, "Pairs:\t%d\t\n", a.Pairs)
	if a.ZeroActuals > 0 {
		fmt.Fprintf(tbl, "Zero actuals:\t%d\t\n", a.ZeroActuals)
	}
	return tbl.Flush()
}

// Evaluate pairs every actual observed before now with the forecast row at the same
// timestamp and scores the pairs.
func Evaluate(actuals series.Series, rows []ForecastRow, now time.Time) (AccuracyReport, error) {
	predictions := make(map[int64]float64, len(rows))
	for _, r := range rows {
		predictions[r.T.UnixNano()] = r.Point
	}

	var predicted, actual []float64
	for _, o := range actuals.Before(now).Valid() {
		p, exists := predictions[o.T.UnixNano()]
		if !exists || math.IsNaN(p) {
			continue
		}
		predicted = append(predicted, p)
		actual = append(actual, o.Value)
	}
	if len(actual) == 0 {
		return AccuracyReport{}, ErrEmptyComparisonSet
	}

	mae, err := metrics.MAE(predicted, actual)
	if err != nil {
		return AccuracyReport{}, fmt.Errorf("unable to compute mean absolute error, %w", err)
	}
	mse, err := metrics.MSE(predicted, actual)
	if err != nil {
		return AccuracyReport{}, fmt.Errorf("unable to compute mean squared error, %w", err)
	}
	rmse, err := metrics.RMSE(predicted, actual)
	if err != nil {
		return AccuracyReport{}, fmt.Errorf("unable to compute root mean squared error, %w", err)
	}
	report := AccuracyReport{
		MAE:   mae,
		MSE:   mse,
		RMSE:  rmse,
		Pairs: len(actual),
	}

	mape, zeros, err := metrics.MAPE(predicted, actual)
	report.ZeroActuals = zeros
	switch {
	case err == nil:
		report.MAPE = mape
		report.MAPEDefined = true
	case errors.Is(err, metrics.ErrNoValues):
		report.MAPEDefined = false
	default:
		return AccuracyReport{}, fmt.Errorf("unable to compute mean absolute percent error, %w", err)
	}
	return report, nil
}
