// Package forecaster wraps a series forecast with outlier passes and a prediction interval
// that widens with the distance past the end of the training data.
package forecaster

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/dashcast/dashcast/forecast"
	"github.com/dashcast/dashcast/stats"
	"github.com/dashcast/dashcast/timedataset"
	"github.com/rs/zerolog/log"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

var (
	ErrNoOptionsInModel = errors.New("no options set in model")
	ErrUntrained        = errors.New("forecaster has not been trained yet")
)

// Forecaster fits a forecast model and can be used to generate forecasts
type Forecaster struct {
	opt *Options

	seriesForecast *forecast.Forecast

	fitTrainingData *timedataset.TimeDataset
	fitResults      *Results
	residual        []float64

	residualStdDev float64
	trainingPoints int
}

// New creates a new instance of a Forecaster using the provided options. If no options are provided
// a default is used.
func New(opt *Options) (*Forecaster, error) {
	opt, err := opt.Validate()
	if err != nil {
		return nil, err
	}

	seriesForecast, err := forecast.New(opt.SeriesOptions)
	if err != nil {
		return nil, fmt.Errorf("unable to initialize forecast series, %w", err)
	}
	return &Forecaster{
		opt:            opt,
		seriesForecast: seriesForecast,
	}, nil
}

// NewFromModel creates a new instance of Forecaster from a pre-existing model. This should be generated from
// a previous forecaster call to Model().
func NewFromModel(model Model) (*Forecaster, error) {
	if model.Options == nil {
		return nil, ErrNoOptionsInModel
	}
	opt := *model.Options
	opt.SeriesOptions = model.Series.Options

	seriesForecast, err := forecast.NewFromModel(model.Series)
	if err != nil {
		return nil, fmt.Errorf("unable to load from series model, %w", err)
	}
	return &Forecaster{
		opt:            &opt,
		seriesForecast: seriesForecast,
		residualStdDev: model.ResidualStdDev,
		trainingPoints: model.TrainingPoints,
	}, nil
}

// Fit uses the input time dataset and fits the forecast model. Time must be strictly
// increasing and NaN values are ignored.
func (f *Forecaster) Fit(t []time.Time, y []float64) error {
	td, err := timedataset.NewUnivariateDataset(t, y)
	if err != nil {
		return fmt.Errorf("unable to create training dataset, %w", err)
	}
	f.fitTrainingData = td.Copy()

	residual, err := f.fitSeriesWithOutliers(td.T, td.Y)
	if err != nil {
		return err
	}
	f.residual = residual

	valid := make([]float64, 0, len(residual))
	for _, r := range residual {
		if !math.IsNaN(r) {
			valid = append(valid, r)
		}
	}
	f.trainingPoints = len(valid)
	f.residualStdDev = 0
	if len(valid) > 1 {
		f.residualStdDev = stat.StdDev(valid, nil)
	}

	f.fitResults, err = f.Predict(t)
	if err != nil {
		return fmt.Errorf("unable to get predicted values from training set, %w", err)
	}

	return nil
}

func (f *Forecaster) fitSeriesWithOutliers(t []time.Time, y []float64) ([]float64, error) {
	// outlier passes mark points as missing so work on a copy
	y = append([]float64(nil), y...)

	numPasses := 0
	if f.opt.OutlierOptions != nil {
		numPasses = f.opt.OutlierOptions.NumPasses
	}

	var residual []float64
	for i := 0; i <= numPasses; i++ {
		if err := f.seriesForecast.Fit(t, y); err != nil {
			return nil, fmt.Errorf("unable to forecast series, %w", err)
		}

		residual = f.seriesForecast.Residuals()

		// break out if no outlier options provided
		if f.opt.OutlierOptions == nil || i == numPasses {
			break
		}

		outlierIdxs := stats.DetectOutliers(
			residual,
			f.opt.OutlierOptions.LowerPercentile,
			f.opt.OutlierOptions.UpperPercentile,
			f.opt.OutlierOptions.TukeyFactor,
		)

		// no more outliers detected with outlier options so break early
		if len(outlierIdxs) == 0 {
			break
		}

		// keep at least two points to fit on
		remaining := 0
		for _, v := range y {
			if !math.IsNaN(v) {
				remaining++
			}
		}
		if remaining-len(outlierIdxs) < 2 {
			break
		}

		log.Debug().Int("pass", i).Int("outliers", len(outlierIdxs)).Msg("dropping outliers before refit")
		for _, idx := range outlierIdxs {
			y[idx] = math.NaN()
		}
	}
	return residual, nil
}

// Predict takes in any set of time samples and generates a forecast, upper, lower values
// per time point. Points after the training end get a wider band the further out they are.
func (f *Forecaster) Predict(t []time.Time) (*Results, error) {
	if f == nil || f.seriesForecast == nil {
		return nil, ErrUntrained
	}
	seriesRes, seriesComp, err := f.seriesForecast.Predict(t)
	if err != nil {
		return nil, fmt.Errorf("unable to predict series forecasts, %w", err)
	}

	width := f.bandWidth(t)

	upper := make([]float64, len(seriesRes))
	lower := make([]float64, len(seriesRes))
	floats.AddTo(upper, seriesRes, width)
	floats.SubTo(lower, seriesRes, width)

	return &Results{
		T:                t,
		Forecast:         seriesRes,
		SeriesComponents: seriesComp,
		Upper:            upper,
		Lower:            lower,
	}, nil
}

// bandWidth returns z*sigma*sqrt(1+k/n) for each time point where k is the number of
// periods past the training end. Future points are ranked by time to find k.
func (f *Forecaster) bandWidth(t []time.Time) []float64 {
	width := make([]float64, len(t))
	if f.residualStdDev == 0 || f.trainingPoints == 0 {
		return width
	}

	z := distuv.UnitNormal.Quantile(0.5 + f.opt.IntervalWidth/2.0)
	trainEnd := f.seriesForecast.TrainEndTime()

	future := make([]int, 0, len(t))
	for i, tPnt := range t {
		if tPnt.After(trainEnd) {
			future = append(future, i)
		}
	}
	sort.SliceStable(future, func(i, j int) bool {
		return t[future[i]].Before(t[future[j]])
	})
	steps := make(map[int]int, len(future))
	k := 0
	for i, idx := range future {
		if i == 0 || !t[idx].Equal(t[future[i-1]]) {
			k++
		}
		steps[idx] = k
	}

	n := float64(f.trainingPoints)
	for i := range t {
		width[i] = z * f.residualStdDev * math.Sqrt(1.0+float64(steps[i])/n)
	}
	return width
}

// Residuals returns the difference between the final series fit against the training data
func (f *Forecaster) Residuals() []float64 {
	return f.residual
}

// ResidualStdDev returns the standard deviation of the training residual
func (f *Forecaster) ResidualStdDev() float64 {
	return f.residualStdDev
}

// TrendComponent returns the trend component created by growth and changepoints after fitting
func (f *Forecaster) TrendComponent() []float64 {
	return f.seriesForecast.TrendComponent()
}

// SeasonalityComponent returns the seasonality component after fitting the fourier series
func (f *Forecaster) SeasonalityComponent() []float64 {
	return f.seriesForecast.SeasonalityComponent()
}

// EventComponent returns the event component after fitting
func (f *Forecaster) EventComponent() []float64 {
	return f.seriesForecast.EventComponent()
}

// SeriesIntercept returns the intercept of the series fit
func (f *Forecaster) SeriesIntercept() float64 {
	return f.seriesForecast.Intercept()
}

// SeriesCoefficients returns all coefficient weight associated with the component label string
func (f *Forecaster) SeriesCoefficients() (map[string]float64, error) {
	return f.seriesForecast.Coefficients()
}

// Scores returns the fit scores of the series model on the training data
func (f *Forecaster) Scores() forecast.Scores {
	return f.seriesForecast.Scores()
}

// Model generates a serializeable representation of the fit options, series model, and band
// parameters. This can be used to initialize a new Forecaster for immediate predictions
// skipping the training step.
func (f *Forecaster) Model() (Model, error) {
	seriesModel, err := f.seriesForecast.Model()
	if err != nil {
		return Model{}, fmt.Errorf("unable to fetch series model, %w", err)
	}
	m := Model{
		Options:        f.opt,
		Series:         seriesModel,
		ResidualStdDev: f.residualStdDev,
		TrainingPoints: f.trainingPoints,
	}
	return m, nil
}

// SeriesModelEq returns a string representation of the fit series model represented as
// y ~ b + m1x1 + m2x2 ...
func (f *Forecaster) SeriesModelEq() (string, error) {
	return f.seriesForecast.ModelEq()
}

// TrainingData returns the training data used to fit the current forecaster model
func (f *Forecaster) TrainingData() *timedataset.TimeDataset {
	return f.fitTrainingData
}

// FitResults returns the results of the fit which includes the forecast, upper, and lower values
func (f *Forecaster) FitResults() *Results {
	return f.fitResults
}

// TrainEndTime returns the last usable training time point
func (f *Forecaster) TrainEndTime() time.Time {
	return f.seriesForecast.TrainEndTime()
}
