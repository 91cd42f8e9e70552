// Package forecast fits a single linear model of a univariate time series. The series is
// decomposed into growth, changepoint, seasonality and event features and the weights are
// found with lasso regression so features that do not improve the fit are dropped.
package forecast

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/dashcast/dashcast/feature"
	"github.com/dashcast/dashcast/forecast/options"
	"github.com/dashcast/dashcast/linearmodel"
	"github.com/dashcast/dashcast/timedataset"
	"github.com/rs/zerolog/log"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

var (
	ErrUninitializedForecast    = errors.New("uninitialized forecast")
	ErrInsufficientTrainingData = errors.New("insufficient training data after removing Nans")
	ErrNoModelCoefficients      = errors.New("no model coefficients from fit")
	ErrUntrainedForecast        = errors.New("forecast has not been trained yet")
	ErrNoFeatures               = errors.New("no features to fit")
)

// Forecast represents a single forecast model of a time series
type Forecast struct {
	opt    *options.Options
	scores *Scores // score calculations after training

	// model coefficients in the order of fLabels
	fLabels  []feature.Feature
	labelIdx map[string]int

	trainStartTime  time.Time
	trainEndTime    time.Time
	scale           float64
	residual        []float64
	trainComponents Components

	coef      []float64
	intercept float64
	trained   bool
}

// New creates a new forecast instance with the given options. If none are provided, a
// default is used
func New(opt *options.Options) (*Forecast, error) {
	opt, err := opt.Validate()
	if err != nil {
		return nil, err
	}
	return &Forecast{opt: opt, scale: 1.0}, nil
}

// NewFromModel creates a new forecast instance given a forecast Model to initialize. This
// instance can be used for inference immediately and does not need to be trained again.
func NewFromModel(model Model) (*Forecast, error) {
	fLabels, err := model.Weights.FeatureLabels()
	if err != nil {
		return nil, err
	}

	opt, err := model.Options.Validate()
	if err != nil {
		return nil, err
	}

	f := &Forecast{
		opt:            opt,
		trainStartTime: model.TrainStartTime,
		trainEndTime:   model.TrainEndTime,
		scale:          1.0,
		intercept:      model.Weights.Intercept,
		coef:           model.Weights.Coefficients(),
		scores:         model.Scores,
		trained:        true,
	}
	f.setLabels(fLabels)
	return f, nil
}

func (f *Forecast) setLabels(labels []feature.Feature) {
	f.fLabels = labels
	f.labelIdx = make(map[string]int, len(labels))
	for i, label := range labels {
		f.labelIdx[label.String()] = i
	}
}

func (f *Forecast) generateFeatures(t []time.Time) *feature.Set {
	return f.opt.GenerateFeatures(t, f.trainStartTime, f.trainEndTime)
}

// Fit takes the input training data and fits a forecast model for the growth,
// changepoints, seasonal components, events and intercept. Time must be strictly
// increasing and NaN values are ignored.
func (f *Forecast) Fit(t []time.Time, y []float64) error {
	if f == nil {
		return ErrUninitializedForecast
	}

	trainingData, err := timedataset.NewUnivariateDataset(t, y)
	if err != nil {
		return err
	}

	training := trainingData.DropNan()
	if len(training.T) <= 1 {
		return ErrInsufficientTrainingData
	}

	f.trainStartTime = training.T[0]
	f.trainEndTime = training.T[len(training.T)-1]
	f.opt = f.opt.Resolve(training.T)

	x := f.generateFeatures(training.T)
	x.RemoveZeroOnlyFeatures()

	// fit on a unit scale so the regularization is independent of the series magnitude
	f.scale = floats.Norm(training.Y, math.Inf(1))
	if f.scale == 0 {
		f.scale = 1.0
	}
	scaledY := make([]float64, len(training.Y))
	floats.ScaleTo(scaledY, 1.0/f.scale, training.Y)

	if err := f.solve(x, scaledY); err != nil {
		return err
	}
	f.trained = true

	// use input training to include NaNs
	predicted, comp, err := f.Predict(trainingData.T)
	if err != nil {
		return err
	}
	f.trainComponents = comp

	scores, err := NewScores(predicted, trainingData.Y)
	if err != nil {
		return err
	}
	f.scores = scores

	residual := make([]float64, len(trainingData.T))
	floats.SubTo(residual, trainingData.Y, predicted)
	f.residual = residual

	return nil
}

func (f *Forecast) solve(x *feature.Set, y []float64) error {
	m := len(y)
	labels := x.Labels()
	f.setLabels(labels)

	if len(labels) == 0 {
		// nothing but the intercept remains
		f.intercept = floats.Sum(y) / float64(m) * f.scale
		f.coef = nil
		return nil
	}

	xMx := x.Matrix(false)
	yMx := mat.NewDense(m, 1, y)

	var model linearmodel.Model
	switch {
	case f.opt.Solver == options.SolverOLS && m >= len(labels)+1:
		ols, err := linearmodel.NewOLSRegression(linearmodel.NewDefaultOLSOptions())
		if err != nil {
			return err
		}
		model = ols
	default:
		if f.opt.Solver == options.SolverOLS {
			log.Warn().
				Int("observations", m).
				Int("features", len(labels)).
				Msg("too few observations for ordinary least squares, falling back to lasso")
		}
		lasso, err := linearmodel.NewLassoRegression(f.opt.NewLassoOptions())
		if err != nil {
			return err
		}
		model = lasso
	}

	if err := model.Fit(xMx, yMx); err != nil {
		return fmt.Errorf("unable to fit %s model, %w", f.opt.Solver, err)
	}

	f.intercept = model.Intercept() * f.scale
	f.coef = model.Coef()
	floats.Scale(f.scale, f.coef)
	return nil
}

// Predict takes a slice of times in any order and produces the predicted value for those
// times given a pre-trained model.
func (f *Forecast) Predict(t []time.Time) ([]float64, Components, error) {
	if f == nil {
		return nil, Components{}, ErrUninitializedForecast
	}

	if !f.trained {
		return nil, Components{}, ErrUntrainedForecast
	}

	x := f.generateFeatures(t)
	n := len(t)

	comp := Components{
		Trend:       f.runInference(x.Filter(feature.FeatureTypeGrowth, feature.FeatureTypeChangepoint), n, true),
		Seasonality: f.runInference(x.Filter(feature.FeatureTypeSeasonality), n, false),
		Event:       f.runInference(x.Filter(feature.FeatureTypeEvent), n, false),
	}

	res := f.runInference(x, n, true)
	return res, comp, nil
}

// runInference multiplies the features by their fitted weights. Features the model did not
// keep contribute nothing.
func (f *Forecast) runInference(x *feature.Set, n int, withIntercept bool) []float64 {
	if f == nil {
		return nil
	}

	if x.Len() == 0 || x.Rows() == 0 {
		res := make([]float64, n)
		if withIntercept {
			floats.AddConst(f.intercept, res)
		}
		return res
	}

	xLabels := x.Labels()
	weights := make([]float64, 0, len(xLabels)+1)
	if withIntercept {
		weights = append(weights, f.intercept)
	}
	for _, label := range xLabels {
		var w float64
		if idx, exists := f.labelIdx[label.String()]; exists {
			w = f.coef[idx]
		}
		weights = append(weights, w)
	}

	var res mat.VecDense
	res.MulVec(x.Matrix(withIntercept), mat.NewVecDense(len(weights), weights))
	return res.RawVector().Data
}

// FeatureLabels returns the slice of feature labels in the order of the coefficients
func (f *Forecast) FeatureLabels() []feature.Feature {
	if f == nil {
		return nil
	}
	labels := make([]feature.Feature, len(f.fLabels))
	copy(labels, f.fLabels)
	return labels
}

// Coefficients returns a forecast model map of coefficients keyed by the string
// representation of each feature label
func (f *Forecast) Coefficients() (map[string]float64, error) {
	if f == nil {
		return nil, ErrUninitializedForecast
	}

	if len(f.fLabels) == 0 || len(f.coef) == 0 {
		return nil, ErrNoModelCoefficients
	}
	coef := make(map[string]float64)
	for i := 0; i < len(f.coef); i++ {
		coef[f.fLabels[i].String()] = f.coef[i]
	}
	return coef, nil
}

// Intercept returns the intercept of the forecast model
func (f *Forecast) Intercept() float64 {
	if f == nil {
		return 0
	}
	return f.intercept
}

// Options returns the resolved options once trained
func (f *Forecast) Options() *options.Options {
	if f == nil {
		return nil
	}
	return f.opt
}

// TrainEndTime returns the last non NaN training time point
func (f *Forecast) TrainEndTime() time.Time {
	if f == nil {
		return time.Time{}
	}
	return f.trainEndTime
}

// Model returns the serializeable format of the forecast model composing of the
// forecast options, intercept, coefficients with their feature labels, and the
// model fit scores
func (f *Forecast) Model() (Model, error) {
	if f == nil {
		return Model{}, ErrUninitializedForecast
	}
	if !f.trained {
		return Model{}, ErrUntrainedForecast
	}

	fws := make([]FeatureWeight, 0, len(f.coef))
	for i, c := range f.coef {
		fws = append(fws, NewFeatureWeight(f.fLabels[i], c))
	}
	m := Model{
		TrainStartTime: f.trainStartTime,
		TrainEndTime:   f.trainEndTime,
		Options:        f.opt,
		Weights: Weights{
			Intercept: f.intercept,
			Coef:      fws,
		},
		Scores: f.scores,
	}
	return m, nil
}

// ModelEq returns a string representation of the model linear equation in the format of
// y ~ b + m1x1 + m2x2 + ...
func (f *Forecast) ModelEq() (string, error) {
	if f == nil {
		return "", ErrUninitializedForecast
	}
	if !f.trained {
		return "", ErrUntrainedForecast
	}

	var eq strings.Builder
	eq.WriteString("y ~ ")
	eq.WriteString(fmt.Sprintf("%.2f", f.Intercept()))
	for i, w := range f.coef {
		if w == 0 {
			continue
		}
		eq.WriteString(fmt.Sprintf("%+.2f*%s", w, f.fLabels[i]))
	}
	return eq.String(), nil
}

// Scores returns the fit scores for evaluating how well the resulting model
// fit the training data
func (f *Forecast) Scores() Scores {
	if f == nil {
		return Scores{}
	}
	if f.scores == nil {
		return Scores{}
	}
	return *f.scores
}

// Residuals returns a slice of values representing the difference between the
// training data and the fit data
func (f *Forecast) Residuals() []float64 {
	if f == nil {
		return nil
	}
	res := make([]float64, len(f.residual))
	copy(res, f.residual)
	return res
}

// TrendComponent represents the overall trend component of the training fit
func (f *Forecast) TrendComponent() []float64 {
	if f == nil {
		return nil
	}
	res := make([]float64, len(f.trainComponents.Trend))
	copy(res, f.trainComponents.Trend)
	return res
}

// SeasonalityComponent represents the overall seasonal component of the training fit
func (f *Forecast) SeasonalityComponent() []float64 {
	if f == nil {
		return nil
	}
	res := make([]float64, len(f.trainComponents.Seasonality))
	copy(res, f.trainComponents.Seasonality)
	return res
}

// EventComponent represents the overall event component of the training fit
func (f *Forecast) EventComponent() []float64 {
	if f == nil {
		return nil
	}
	res := make([]float64, len(f.trainComponents.Event))
	copy(res, f.trainComponents.Event)
	return res
}
