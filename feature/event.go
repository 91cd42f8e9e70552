package feature

import (
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

// Event is an indicator column that is 1 for every month an event touches. One-off events
// such as a launch get their own column while a recurring holiday shares one column across
// all its occurrences so the effect learned from history repeats in the forecast.
type Event struct {
	Name      string `json:"name"`
	Recurring bool   `json:"recurring,string,omitempty"`
}

func NewEvent(name string) *Event {
	return &Event{Name: name}
}

// NewHoliday returns the shared column of a recurring holiday
func NewHoliday(name string) *Event {
	return &Event{Name: name, Recurring: true}
}

// String is the same for one-off and recurring events so a name maps to one column
func (e Event) String() string {
	return "event_" + e.Name
}

func (e Event) Get(label string) (string, bool) {
	switch strings.ToLower(label) {
	case "name":
		return e.Name, true
	case "recurring":
		return strconv.FormatBool(e.Recurring), true
	}
	return "", false
}

func (e Event) Type() FeatureType {
	return FeatureTypeEvent
}

// Decode only carries the recurring label for holidays
func (e Event) Decode() map[string]string {
	res := map[string]string{"name": e.Name}
	if e.Recurring {
		res["recurring"] = "true"
	}
	return res
}

func (e *Event) UnmarshalJSON(data []byte) error {
	var labels map[string]string
	if err := json.Unmarshal(data, &labels); err != nil {
		return err
	}
	e.Name = labels["name"]
	e.Recurring = false
	if v, exists := labels["recurring"]; exists {
		recurring, err := strconv.ParseBool(v)
		if err != nil {
			return err
		}
		e.Recurring = recurring
	}
	return nil
}

// Mask returns 1 for each time point where active reports an occurrence and 0 otherwise
func (e Event) Mask(t []time.Time, active func(time.Time) bool) []float64 {
	mask := make([]float64, len(t))
	for i, tPnt := range t {
		if active(tPnt) {
			mask[i] = 1.0
		}
	}
	return mask
}
