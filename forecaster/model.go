package forecaster

import (
	"fmt"
	"io"

	"github.com/dashcast/dashcast/forecast"
)

// Model is the serializeable form of a fit forecaster
type Model struct {
	Options        *Options       `json:"options"`
	Series         forecast.Model `json:"series_model"`
	ResidualStdDev float64        `json:"residual_stddev"`
	TrainingPoints int            `json:"training_points"`
}

// TablePrint writes the series model followed by the band parameters
func (m Model) TablePrint(w io.Writer) error {
	if err := m.Series.TablePrint(w, "Series: ", "  "); err != nil {
		return err
	}
	width := DefaultIntervalWidth
	if m.Options != nil {
		width = m.Options.IntervalWidth
	}
	_, err := fmt.Fprintf(w, "Band: width %.2f    residual stddev %.3f    training points %d\n",
		width, m.ResidualStdDev, m.TrainingPoints)
	return err
}
