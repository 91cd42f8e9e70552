// Package options contains all forecast options for a linear fit of a univariate time series
package options

import (
	"errors"
	"fmt"
	"io"
	"slices"
	"time"

	"github.com/dashcast/dashcast/feature"
	"github.com/dashcast/dashcast/forecast/util"
	"github.com/dashcast/dashcast/linearmodel"
	"github.com/dashcast/dashcast/timedataset"
)

var (
	ErrUnknownGrowthType       = errors.New("unknown growth type")
	ErrUnknownSolver           = errors.New("unknown solver")
	ErrNegativeRegularization  = errors.New("negative regularization")
	ErrInvalidChangepointRange = errors.New("changepoint range must be within (0, 1]")
)

const (
	SolverLasso = "lasso"
	SolverOLS   = "ols"

	// GrowthNone fits a flat trend around the intercept
	GrowthNone = "none"

	// DefaultRegularization is the lasso penalty on the unit scaled series. Windows of a
	// few dozen monthly points shrink the trend noticeably above roughly 0.01.
	DefaultRegularization = 0.001
)

// Options configures a forecast by specifying the growth, changepoints, seasonality and
// events to model along with the regularization parameter where higher values remove
// more features that contribute the least to the fit.
type Options struct {
	GrowthType string `json:"growth_type"`

	ChangepointOptions ChangepointOptions `json:"changepoint_options"`
	SeasonalityOptions SeasonalityOptions `json:"seasonality_options"`
	EventOptions       EventOptions       `json:"event_options"`

	Solver string `json:"solver"`

	// Lasso related options
	Regularization float64 `json:"regularization"`
	Iterations     int     `json:"iterations"`
	Tolerance      float64 `json:"tolerance"`
}

// NewDefaultOptions returns linear growth with automatic changepoints and seasonality
func NewDefaultOptions() *Options {
	return &Options{
		GrowthType:         feature.GrowthLinear,
		ChangepointOptions: NewDefaultChangepointOptions(),
		SeasonalityOptions: NewDefaultSeasonalityOptions(),
		Solver:             SolverLasso,
		Regularization:     DefaultRegularization,
	}
}

// Validate checks the options and fills in defaults for unset fields
func (o *Options) Validate() (*Options, error) {
	if o == nil {
		return NewDefaultOptions(), nil
	}
	switch o.GrowthType {
	case "":
		o.GrowthType = feature.GrowthLinear
	case feature.GrowthLinear, GrowthNone:
	default:
		return nil, fmt.Errorf("%q, %w", o.GrowthType, ErrUnknownGrowthType)
	}
	switch o.Solver {
	case "":
		o.Solver = SolverLasso
	case SolverLasso, SolverOLS:
	default:
		return nil, fmt.Errorf("%q, %w", o.Solver, ErrUnknownSolver)
	}
	if o.Regularization < 0 {
		return nil, ErrNegativeRegularization
	}
	if o.ChangepointOptions.Range < 0 || o.ChangepointOptions.Range > 1 {
		return nil, ErrInvalidChangepointRange
	}
	if err := o.EventOptions.Validate(); err != nil {
		return nil, err
	}
	return o, nil
}

// TablePrint writes a readable summary of the options
func (o *Options) TablePrint(w io.Writer, prefix, indent string, indentGrowth int) error {
	if o == nil {
		return nil
	}
	if _, err := fmt.Fprintf(w, "%s%sGrowth: %s    Solver: %s    Regularization: %.3f\n",
		prefix, util.IndentExpand(indent, indentGrowth),
		o.GrowthType, o.Solver, o.Regularization); err != nil {
		return err
	}
	if err := o.SeasonalityOptions.TablePrint(w, prefix, indent, indentGrowth); err != nil {
		return err
	}
	if err := o.ChangepointOptions.TablePrint(w, prefix, indent, indentGrowth); err != nil {
		return err
	}
	return o.EventOptions.TablePrint(w, prefix, indent, indentGrowth)
}

// NewLassoOptions converts the options into lasso regression options
func (o *Options) NewLassoOptions() *linearmodel.LassoOptions {
	lassoOpt := linearmodel.NewDefaultLassoOptions()
	lassoOpt.Lambda = o.Regularization
	lassoOpt.FitIntercept = true

	lassoOpt.Iterations = o.Iterations
	if o.Iterations == 0 {
		lassoOpt.Iterations = linearmodel.DefaultIterations
	}

	lassoOpt.Tolerance = o.Tolerance
	if o.Tolerance == 0 {
		lassoOpt.Tolerance = linearmodel.DefaultTolerance
	}
	return lassoOpt
}

// Resolve returns a copy of the options where everything derived from the training time
// points is made explicit. Auto changepoints are placed, automatic seasonalities are
// picked and capped by the sampling frequency, and the event window is set. The result
// can generate features for any time points without the training data.
func (o *Options) Resolve(t []time.Time) *Options {
	if o == nil {
		o = NewDefaultOptions()
	}
	res := *o
	res.ChangepointOptions.Changepoints = slices.Clone(o.ChangepointOptions.Changepoints)
	res.SeasonalityOptions.SeasonalityConfigs = slices.Clone(o.SeasonalityOptions.SeasonalityConfigs)
	res.EventOptions.Events = slices.Clone(o.EventOptions.Events)
	res.EventOptions.Holidays = slices.Clone(o.EventOptions.Holidays)

	freq, err := timedataset.TimeSlice(t).EstimateFreq()
	if err != nil {
		freq = 0
	}

	res.ChangepointOptions.Changepoints = res.ChangepointOptions.resolve(t)
	res.ChangepointOptions.Auto = false

	res.SeasonalityOptions.SeasonalityConfigs = res.SeasonalityOptions.resolve(t, freq)
	res.SeasonalityOptions.Auto = false

	if res.EventOptions.Window == 0 {
		res.EventOptions.Window = freq
	}
	return &res
}

// GenerateFeatures builds every feature for the time points. Growth and changepoints
// are scaled so the training window spans [0, 1].
func (o *Options) GenerateFeatures(t []time.Time, trainStartTime, trainEndTime time.Time) *feature.Set {
	if o == nil {
		o = NewDefaultOptions()
	}

	feat := feature.NewSet()

	epoch := feature.Epoch().Generate(t)
	trainWindow := feature.Epoch().Generate([]time.Time{trainStartTime, trainEndTime})

	linear := feature.Linear()
	growth := linear.Generate(epoch, trainWindow[0], trainWindow[1])
	if o.GrowthType == feature.GrowthLinear {
		feat.Set(linear, growth)
	}

	feat.Update(o.ChangepointOptions.GenerateFeatures(t, growth, trainStartTime, trainEndTime))
	feat.Update(o.SeasonalityOptions.GenerateFeatures(epoch))
	feat.Update(o.EventOptions.GenerateFeatures(t))
	return feat
}
