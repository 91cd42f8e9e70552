package forecast

import (
	"math"
	"testing"
	"time"

	"github.com/dashcast/dashcast/feature"
	"github.com/dashcast/dashcast/forecast/options"
	"github.com/dashcast/dashcast/timedataset"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func linearMonthly(n int, bias, slopePerDay float64) ([]time.Time, []float64) {
	tm := timedataset.GenerateMonthlyT(n, time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC))
	y := make([]float64, len(tm))
	for i, tPnt := range tm {
		y[i] = bias + slopePerDay*tPnt.Sub(tm[0]).Hours()/24.0
	}
	return tm, y
}

func TestFitLinear(t *testing.T) {
	tm, y := linearMonthly(24, 10.0, 0.5)

	opt := options.NewDefaultOptions()
	opt.ChangepointOptions.Auto = false
	f, err := New(opt)
	require.NoError(t, err)
	require.NoError(t, f.Fit(tm, y))

	coef, err := f.Coefficients()
	require.NoError(t, err)
	span := tm[len(tm)-1].Sub(tm[0]).Hours() / 24.0
	assert.InDelta(t, 10.0, f.Intercept(), 2.0)
	assert.InDelta(t, 0.5*span, coef["growth_linear"], 0.02*0.5*span)

	scores := f.Scores()
	assert.Less(t, scores.MAPE, 0.05)
	assert.Greater(t, scores.R2, 0.99)

	future := timedataset.NextMonthEnds(tm[len(tm)-1], 3)
	predicted, comp, err := f.Predict(future)
	require.NoError(t, err)
	require.Len(t, predicted, 3)
	for i, tPnt := range future {
		expected := 10.0 + 0.5*tPnt.Sub(tm[0]).Hours()/24.0
		assert.InDelta(t, expected, predicted[i], 0.03*expected)
	}
	assert.Equal(t, predicted, comp.Trend)
	assert.Equal(t, []float64{0, 0, 0}, comp.Seasonality)
	assert.Equal(t, []float64{0, 0, 0}, comp.Event)

	assert.Len(t, f.Residuals(), len(tm))
	assert.Len(t, f.TrendComponent(), len(tm))
	assert.Equal(t, tm[len(tm)-1], f.TrainEndTime())
}

func TestFitDefaultOptions(t *testing.T) {
	tm, y := linearMonthly(36, 100.0, 0.2)

	f, err := New(nil)
	require.NoError(t, err)
	require.NoError(t, f.Fit(tm, y))

	resolved := f.Options()
	assert.False(t, resolved.ChangepointOptions.Auto)
	assert.NotEmpty(t, resolved.ChangepointOptions.Changepoints)
	assert.False(t, resolved.SeasonalityOptions.Auto)

	assert.Less(t, f.Scores().MAPE, 0.05)

	future := timedataset.NextMonthEnds(tm[len(tm)-1], 6)
	predicted, _, err := f.Predict(future)
	require.NoError(t, err)
	for _, p := range predicted {
		assert.False(t, math.IsNaN(p))
		assert.Greater(t, p, 0.0)
	}
}

func TestFitHoliday(t *testing.T) {
	start := time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC)
	tm := make([]time.Time, 0, 730)
	for i := range 730 {
		tm = append(tm, start.Add(time.Duration(i)*24*time.Hour))
	}

	eventOpt := options.EventOptions{
		Holidays: []string{options.HolidayChristmas},
		Window:   24 * time.Hour,
	}
	mask, exists := eventOpt.GenerateFeatures(tm).Get(feature.NewEvent(options.HolidayChristmas))
	require.True(t, exists)

	y := make([]float64, len(tm))
	for i := range y {
		y[i] = 5.0 + 10.0*mask[i]
	}

	opt := &options.Options{
		GrowthType:   options.GrowthNone,
		EventOptions: eventOpt,
	}
	f, err := New(opt)
	require.NoError(t, err)
	require.NoError(t, f.Fit(tm, y))

	coef, err := f.Coefficients()
	require.NoError(t, err)
	assert.InDelta(t, 10.0, coef["event_christmas"], 0.2)
	assert.InDelta(t, 5.0, f.Intercept(), 0.1)

	// the holiday effect carries into years never seen in training
	future := []time.Time{
		time.Date(2024, 12, 20, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 12, 25, 0, 0, 0, 0, time.UTC),
	}
	predicted, comp, err := f.Predict(future)
	require.NoError(t, err)
	assert.InDelta(t, 5.0, predicted[0], 0.2)
	assert.InDelta(t, 15.0, predicted[1], 0.3)
	assert.InDelta(t, 0.0, comp.Event[0], 1e-9)
	assert.InDelta(t, 10.0, comp.Event[1], 0.2)
}

func TestFitErrors(t *testing.T) {
	ts := time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)

	testData := map[string]struct {
		t   []time.Time
		y   []float64
		err error
	}{
		"no data": {
			err: timedataset.ErrNoTrainingData,
		},
		"single point": {
			t:   []time.Time{ts},
			y:   []float64{1},
			err: ErrInsufficientTrainingData,
		},
		"single point after nans": {
			t:   []time.Time{ts, ts.Add(time.Hour)},
			y:   []float64{1, math.NaN()},
			err: ErrInsufficientTrainingData,
		},
		"non monotonic": {
			t:   []time.Time{ts, ts},
			y:   []float64{1, 2},
			err: timedataset.ErrNonMontonic,
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			f, err := New(nil)
			require.NoError(t, err)
			assert.ErrorIs(t, f.Fit(td.t, td.y), td.err)
		})
	}
}

func TestUntrained(t *testing.T) {
	f, err := New(nil)
	require.NoError(t, err)

	_, _, err = f.Predict([]time.Time{time.Now()})
	assert.ErrorIs(t, err, ErrUntrainedForecast)

	_, err = f.Model()
	assert.ErrorIs(t, err, ErrUntrainedForecast)

	_, err = f.ModelEq()
	assert.ErrorIs(t, err, ErrUntrainedForecast)

	var nilF *Forecast
	assert.ErrorIs(t, nilF.Fit(nil, nil), ErrUninitializedForecast)
	assert.Nil(t, nilF.Residuals())
	assert.Equal(t, Scores{}, nilF.Scores())
}

func TestFitOLS(t *testing.T) {
	tm, y := linearMonthly(12, 3.0, 1.0)

	opt := options.NewDefaultOptions()
	opt.Solver = options.SolverOLS
	opt.ChangepointOptions.Auto = false
	f, err := New(opt)
	require.NoError(t, err)
	require.NoError(t, f.Fit(tm, y))

	assert.InDelta(t, 3.0, f.Intercept(), 1e-6)
	assert.Less(t, f.Scores().MAE, 1e-6)

	// more features than observations falls back to lasso
	opt = &options.Options{
		Solver: options.SolverOLS,
		ChangepointOptions: options.ChangepointOptions{
			Changepoints: []options.Changepoint{options.NewChangepoint("mid", tm[5])},
		},
		SeasonalityOptions: options.SeasonalityOptions{
			SeasonalityConfigs: []options.SeasonalityConfig{options.NewYearlySeasonalityConfig(5)},
		},
		Regularization: options.DefaultRegularization,
	}
	f, err = New(opt)
	require.NoError(t, err)
	require.NoError(t, f.Fit(tm, y))
	assert.Len(t, f.FeatureLabels(), 12)
	assert.Greater(t, f.Scores().R2, 0.95)
}

func TestFitFromModel(t *testing.T) {
	tm, y := linearMonthly(24, 10.0, 0.5)

	f, err := New(nil)
	require.NoError(t, err)
	require.NoError(t, f.Fit(tm, y))

	future := timedataset.NextMonthEnds(tm[len(tm)-1], 6)
	expected, _, err := f.Predict(future)
	require.NoError(t, err)

	model, err := f.Model()
	require.NoError(t, err)

	out, err := json.Marshal(model)
	require.NoError(t, err)

	var decoded Model
	require.NoError(t, json.Unmarshal(out, &decoded))

	f2, err := NewFromModel(decoded)
	require.NoError(t, err)

	predicted, _, err := f2.Predict(future)
	require.NoError(t, err)
	assert.InDeltaSlice(t, expected, predicted, 1e-9)

	eq1, err := f.ModelEq()
	require.NoError(t, err)
	eq2, err := f2.ModelEq()
	require.NoError(t, err)
	assert.Equal(t, eq1, eq2)
}
