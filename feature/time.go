package feature

import (
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

const TimeEpoch = "epoch"

// Time is a raw time derived feature used to build the other features. It is never fit
// directly.
type Time struct {
	Name string `json:"name"`
}

func NewTime(name string) *Time {
	return &Time{name}
}

// Epoch returns the epoch time feature in seconds
func Epoch() *Time {
	return NewTime(TimeEpoch)
}

func (t Time) String() string {
	return fmt.Sprintf("tfeat_%s", t.Name)
}

func (t Time) Get(label string) (string, bool) {
	switch strings.ToLower(label) {
	case "name":
		return t.Name, true
	}
	return "", false
}

func (t Time) Type() FeatureType {
	return FeatureTypeTime
}

func (t Time) Decode() map[string]string {
	res := make(map[string]string)
	res["name"] = t.Name
	return res
}

func (t *Time) UnmarshalJSON(data []byte) error {
	var labelStr struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(data, &labelStr); err != nil {
		return err
	}
	t.Name = labelStr.Name
	return nil
}

// Generate returns the unix time in seconds with sub second precision for each time point
func (t Time) Generate(tm []time.Time) []float64 {
	res := make([]float64, len(tm))
	for i, tPnt := range tm {
		res[i] = float64(tPnt.UnixNano()) / 1e9
	}
	return res
}
