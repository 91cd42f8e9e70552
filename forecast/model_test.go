package forecast

import (
	"bytes"
	"testing"
	"time"

	"github.com/dashcast/dashcast/feature"
	"github.com/dashcast/dashcast/forecast/options"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestModelTablePrint(t *testing.T) {
	testData := map[string]struct {
		m        Model
		prefix   string
		contains []string
	}{
		"no input": {
			contains: []string{
				"Forecast:\n",
				"Training Window: 0001-01-01 to 0001-01-01\n",
				"Weights:\n",
				"Intercept",
			},
		},
		"with options and scores": {
			m: Model{
				TrainStartTime: time.Date(2023, 1, 31, 0, 0, 0, 0, time.UTC),
				TrainEndTime:   time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC),
				Options: &options.Options{
					GrowthType:     feature.GrowthLinear,
					Solver:         options.SolverLasso,
					Regularization: 0.05,
				},
				Scores: &Scores{
					MAE:  1.2346,
					RMSE: 2.3456,
					MAPE: 0.1234,
					R2:   0.9876,
				},
				Weights: Weights{
					Intercept: 1.1,
					Coef: []FeatureWeight{
						NewFeatureWeight(feature.Linear(), 2.5),
						NewFeatureWeight(feature.NewEvent("christmas"), 0),
					},
				},
			},
			prefix: "--",
			contains: []string{
				"--Forecast:\n",
				"--  Training Window: 2023-01-31 to 2024-12-31\n",
				"--  Growth: linear    Solver: lasso    Regularization: 0.050\n",
				"--  MAE: 1.235    RMSE: 2.346    MAPE: 0.123    R2: 0.988\n",
				"1.100",
				`{"name":"linear"}`,
				"2.500",
				"...",
			},
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			var b bytes.Buffer
			require.NoError(t, td.m.TablePrint(&b, td.prefix, "  "))
			for _, c := range td.contains {
				assert.Contains(t, b.String(), c)
			}
		})
	}
}

func TestFeatureWeightToFeature(t *testing.T) {
	testData := map[string]struct {
		f   feature.Feature
		err error
	}{
		"growth":      {f: feature.Linear()},
		"changepoint": {f: feature.NewChangepoint("auto_01", feature.ChangepointCompSlope)},
		"seasonality": {f: feature.NewSeasonality("yearly", feature.FourierCompSin, 2)},
		"event":       {f: feature.NewEvent("christmas")},
		"time":        {f: feature.Epoch(), err: ErrUnknownFeatureType},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			fw := NewFeatureWeight(td.f, 1.0)
			res, err := fw.ToFeature()
			if td.err != nil {
				assert.ErrorIs(t, err, td.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, td.f, res)
		})
	}

	var nilFW *FeatureWeight
	_, err := nilFW.ToFeature()
	assert.ErrorIs(t, err, ErrUnknownFeatureType)
}

func TestWeightsCoefficients(t *testing.T) {
	w := Weights{
		Intercept: 3,
		Coef: []FeatureWeight{
			NewFeatureWeight(feature.Linear(), 1.5),
			NewFeatureWeight(feature.NewEvent("christmas"), -2),
		},
	}
	assert.Equal(t, []float64{1.5, -2}, w.Coefficients())

	labels, err := w.FeatureLabels()
	require.NoError(t, err)
	assert.Equal(t, []feature.Feature{feature.Linear(), feature.NewEvent("christmas")}, labels)
}
