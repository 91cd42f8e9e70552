package pipeline

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/dashcast/dashcast/forecaster"
	"github.com/dashcast/dashcast/series"
	"github.com/dashcast/dashcast/timedataset"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"
)

var ErrInsufficientData = errors.New("need at least two distinct timestamps with values")

// ForecastRow is one row of the forecast output
type ForecastRow struct {
	T     time.Time `json:"ds"`
	Point float64   `json:"yhat"`
	Lower float64   `json:"yhat_lower"`
	Upper float64   `json:"yhat_upper"`
	Label Label     `json:"label"`
}

// MarshalJSON writes NaN values as null
func (r ForecastRow) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		T     time.Time `json:"ds"`
		Point *float64  `json:"yhat"`
		Lower *float64  `json:"yhat_lower"`
		Upper *float64  `json:"yhat_upper"`
		Label Label     `json:"label"`
	}{r.T, nullable(r.Point), nullable(r.Lower), nullable(r.Upper), r.Label})
}

func nullable(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// Engine fits a forecaster per run from a shared set of options
type Engine struct {
	opt *forecaster.Options
}

// NewEngine validates the options once. Every run works on its own copy so the engine is
// safe for concurrent use.
func NewEngine(opt *forecaster.Options) (*Engine, error) {
	if opt == nil {
		opt = forecaster.NewDefaultOptions()
	}
	validated, err := cloneOptions(opt)
	if err != nil {
		return nil, err
	}
	if _, err := validated.Validate(); err != nil {
		return nil, fmt.Errorf("invalid forecaster options, %w", err)
	}
	return &Engine{opt: validated}, nil
}

func cloneOptions(opt *forecaster.Options) (*forecaster.Options, error) {
	data, err := json.Marshal(opt)
	if err != nil {
		return nil, fmt.Errorf("unable to copy forecaster options, %w", err)
	}
	var res forecaster.Options
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, fmt.Errorf("unable to copy forecaster options, %w", err)
	}
	return &res, nil
}

// Fit collapses repeated timestamps into their mean and fits a forecaster on the
// observations that hold a value. The returned dataset keeps every distinct timestamp,
// including those without a value.
func (e *Engine) Fit(s series.Series) (*forecaster.Forecaster, *timedataset.TimeDataset, error) {
	history, err := timedataset.NewMeanDataset(s.Times(), s.Values())
	if err != nil {
		return nil, nil, fmt.Errorf("unable to build history, %w", err)
	}
	training := history.DropNan()
	if len(training.T) < 2 {
		return nil, nil, fmt.Errorf("got %d, %w", len(training.T), ErrInsufficientData)
	}

	opt, err := cloneOptions(e.opt)
	if err != nil {
		return nil, nil, err
	}
	f, err := forecaster.New(opt)
	if err != nil {
		return nil, nil, fmt.Errorf("unable to initialize forecaster, %w", err)
	}
	if err := f.Fit(training.T, training.Y); err != nil {
		return nil, nil, fmt.Errorf("unable to fit forecaster, %w", err)
	}
	return f, history, nil
}

// Forecast predicts every historical timestamp plus horizon month ends past the last one.
// The number of returned rows is the number of distinct historical timestamps plus the
// horizon. Rows are unlabelled.
func (e *Engine) Forecast(s series.Series, horizon Horizon) ([]ForecastRow, *Fit, error) {
	if !horizon.Valid() {
		return nil, nil, fmt.Errorf("got %d, %w", int(horizon), ErrInvalidHorizon)
	}
	f, history, err := e.Fit(s)
	if err != nil {
		return nil, nil, err
	}

	last := timedataset.TimeSlice(history.T).EndTime()
	future := timedataset.NextMonthEnds(last, int(horizon))
	t := make([]time.Time, 0, len(history.T)+len(future))
	t = append(t, history.T...)
	t = append(t, future...)

	res, err := f.Predict(t)
	if err != nil {
		return nil, nil, fmt.Errorf("unable to predict, %w", err)
	}

	rows := make([]ForecastRow, len(t))
	for i := range t {
		rows[i] = ForecastRow{
			T:     t[i],
			Point: res.Forecast[i],
			Lower: res.Lower[i],
			Upper: res.Upper[i],
		}
	}
	return rows, &Fit{Forecaster: f, History: history, Results: res}, nil
}

// Fit is the fitted model of a run along with the history it was trained on
type Fit struct {
	Forecaster *forecaster.Forecaster
	History    *timedataset.TimeDataset
	Results    *forecaster.Results
}

// CheckBand counts rows where lower <= point <= upper does not hold. Each one is logged
// and none of them fail the run.
func CheckBand(rows []ForecastRow) int {
	var anomalies int
	for _, r := range rows {
		if math.IsNaN(r.Point) || math.IsNaN(r.Lower) || math.IsNaN(r.Upper) ||
			r.Lower > r.Point || r.Point > r.Upper {
			anomalies++
			log.Warn().
				Time("ds", r.T).
				Float64("yhat", r.Point).
				Float64("yhat_lower", r.Lower).
				Float64("yhat_upper", r.Upper).
				Msg("forecast band does not contain the point forecast")
		}
	}
	return anomalies
}
