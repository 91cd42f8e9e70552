package forecast

// Components splits a prediction into the additive parts of the model. Trend holds the
// intercept, growth and changepoints.
type Components struct {
	Trend       []float64 `json:"trend"`
	Seasonality []float64 `json:"seasonality"`
	Event       []float64 `json:"event"`
}
