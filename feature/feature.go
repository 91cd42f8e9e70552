// Package feature describes the labelled columns of the design matrix used to fit a
// forecast. Each feature carries enough labels to be serialized with a model and decoded
// back into the same feature for inference.
package feature

import "fmt"

type FeatureType int

const (
	FeatureTypeGrowth FeatureType = iota
	FeatureTypeChangepoint
	FeatureTypeSeasonality
	FeatureTypeEvent
	FeatureTypeTime
)

func (f FeatureType) String() string {
	switch f {
	case FeatureTypeGrowth:
		return "growth"
	case FeatureTypeChangepoint:
		return "changepoint"
	case FeatureTypeSeasonality:
		return "seasonality"
	case FeatureTypeEvent:
		return "event"
	case FeatureTypeTime:
		return "time"
	}
	return fmt.Sprintf("unknown(%d)", int(f))
}

// Feature is a single labelled column of the design matrix
type Feature interface {
	String() string
	Get(string) (string, bool)
	Type() FeatureType
	Decode() map[string]string
}
