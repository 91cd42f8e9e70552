package pipeline

import "time"

type Label string

const (
	LabelHistorical Label = "historical"
	LabelForecast   Label = "forecast"
)

// Classify labels a time point as historical when it is not after now
func Classify(t, now time.Time) Label {
	if t.After(now) {
		return LabelForecast
	}
	return LabelHistorical
}

// ClassifyRows sets the label of every row in place
func ClassifyRows(rows []ForecastRow, now time.Time) {
	for i := range rows {
		rows[i].Label = Classify(rows[i].T, now)
	}
}
