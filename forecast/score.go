package forecast

import (
	"errors"
	"fmt"

	"github.com/dashcast/dashcast/metrics"
)

// Scores tracks the fit scores
type Scores struct {
	MAE  float64 `json:"mean_absolute_error"`
	MSE  float64 `json:"mean_squared_error"`
	RMSE float64 `json:"root_mean_squared_error"`
	MAPE float64 `json:"mean_average_percent_error"`
	R2   float64 `json:"r_squared"`
}

// NewScores calculates the fit scores given the predicted and actual input slice values.
// MAPE is left at 0 when every actual is zero.
func NewScores(predicted, actual []float64) (*Scores, error) {
	mae, err := metrics.MAE(predicted, actual)
	if err != nil {
		return nil, fmt.Errorf("unable to compute mean absolute error, %w", err)
	}
	mse, err := metrics.MSE(predicted, actual)
	if err != nil {
		return nil, fmt.Errorf("unable to compute mean squared error, %w", err)
	}
	rmse, err := metrics.RMSE(predicted, actual)
	if err != nil {
		return nil, fmt.Errorf("unable to compute root mean squared error, %w", err)
	}
	mape, _, err := metrics.MAPE(predicted, actual)
	if err != nil && !errors.Is(err, metrics.ErrNoValues) {
		return nil, fmt.Errorf("unable to compute mean average percent error, %w", err)
	}
	rs, err := metrics.RSquared(predicted, actual)
	if err != nil {
		return nil, fmt.Errorf("unable to compute r-squared, %w", err)
	}

	return &Scores{
		MAE:  mae,
		MSE:  mse,
		RMSE: rmse,
		MAPE: mape,
		R2:   rs,
	}, nil
}
