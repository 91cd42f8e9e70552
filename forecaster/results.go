package forecaster

import (
	"time"

	"github.com/dashcast/dashcast/forecast"
)

// Results holds the point forecast and the uncertainty band for each requested time
type Results struct {
	T                []time.Time         `json:"time"`
	Forecast         []float64           `json:"forecast"`
	Upper            []float64           `json:"upper"`
	Lower            []float64           `json:"lower"`
	SeriesComponents forecast.Components `json:"series_components"`
}
