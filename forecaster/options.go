package forecaster

import (
	"errors"

	"github.com/dashcast/dashcast/forecast/options"
)

const DefaultIntervalWidth = 0.8

var (
	ErrInvalidIntervalWidth = errors.New("interval width must be within (0, 1)")
	ErrInvalidPercentiles   = errors.New("outlier percentiles must satisfy 0 <= lower < upper <= 1")
)

// OutlierOptions configures the passes that drop training points far outside the fit
// before refitting. Points outside the Tukey fences built from the residual percentiles
// are treated as missing on the next pass.
type OutlierOptions struct {
	NumPasses       int     `json:"num_passes"`
	UpperPercentile float64 `json:"upper_percentile"`
	LowerPercentile float64 `json:"lower_percentile"`
	TukeyFactor     float64 `json:"tukey_factor"`
}

func NewOutlierOptions() *OutlierOptions {
	return &OutlierOptions{
		NumPasses:       3,
		UpperPercentile: 0.9,
		LowerPercentile: 0.1,
		TukeyFactor:     1.0,
	}
}

// Options configures the series fit and the width of the uncertainty band
type Options struct {
	SeriesOptions  *options.Options `json:"series_options"`
	OutlierOptions *OutlierOptions  `json:"outlier_options"`

	// IntervalWidth is the probability mass covered by the band around the point forecast
	IntervalWidth float64 `json:"interval_width"`
}

func NewDefaultOptions() *Options {
	return &Options{
		SeriesOptions: options.NewDefaultOptions(),
		IntervalWidth: DefaultIntervalWidth,
	}
}

// Validate checks the options and fills in defaults for unset fields
func (o *Options) Validate() (*Options, error) {
	if o == nil {
		return NewDefaultOptions(), nil
	}
	if o.IntervalWidth == 0 {
		o.IntervalWidth = DefaultIntervalWidth
	}
	if o.IntervalWidth <= 0 || o.IntervalWidth >= 1 {
		return nil, ErrInvalidIntervalWidth
	}
	if o.OutlierOptions != nil {
		oo := o.OutlierOptions
		if oo.LowerPercentile < 0 || oo.UpperPercentile > 1 || oo.LowerPercentile >= oo.UpperPercentile {
			return nil, ErrInvalidPercentiles
		}
	}
	seriesOpt, err := o.SeriesOptions.Validate()
	if err != nil {
		return nil, err
	}
	o.SeriesOptions = seriesOpt
	return o, nil
}
