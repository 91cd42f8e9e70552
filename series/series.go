// Package series maps two columns of an uploaded table into a time ordered univariate
// series and trims it to the most recent observations.
package series

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/dashcast/dashcast/table"
	"github.com/goccy/go-json"
)

var (
	ErrInvalidTimestamp = errors.New("invalid timestamp")
	ErrInvalidValue     = errors.New("invalid value")
	ErrInvalidWindow    = errors.New("history window must be positive")

	// ErrMissingColumn matches the table error so either package can be checked
	ErrMissingColumn = table.ErrMissingColumn
)

// TimestampError reports the first data row whose date cell could not be parsed. Row is
// 1-based as shown in the table preview.
type TimestampError struct {
	Row   int
	Value string
}

func (e *TimestampError) Error() string {
	return fmt.Sprintf("row %d: cannot parse %q as a timestamp", e.Row, e.Value)
}

func (e *TimestampError) Unwrap() error {
	return ErrInvalidTimestamp
}

// ValueError reports the first data row whose value cell is neither empty nor numeric
type ValueError struct {
	Row   int
	Value string
}

func (e *ValueError) Error() string {
	return fmt.Sprintf("row %d: cannot parse %q as a number", e.Row, e.Value)
}

func (e *ValueError) Unwrap() error {
	return ErrInvalidValue
}

// Observation is a single time point of the series. Value is NaN for an empty cell.
type Observation struct {
	T     time.Time `json:"ds"`
	Value float64   `json:"y"`
}

// MarshalJSON writes a missing value as null
func (o Observation) MarshalJSON() ([]byte, error) {
	var val *float64
	if !math.IsNaN(o.Value) {
		val = &o.Value
	}
	return json.Marshal(struct {
		T     time.Time `json:"ds"`
		Value *float64  `json:"y"`
	}{o.T, val})
}

// Series is ordered ascending by time
type Series []Observation

// FromTable builds a series from a date column and a value column. Parsing stops at the
// first bad cell. The result is sorted by time keeping upload order for equal timestamps.
func FromTable(t *table.Table, dateColumn, valueColumn string) (Series, error) {
	if t == nil || len(t.Columns) < 2 {
		return nil, fmt.Errorf("need a date and a value column, %w", ErrInvalidTimestamp)
	}
	dateIdx, err := t.Index(dateColumn)
	if err != nil {
		return nil, fmt.Errorf("date column %w", err)
	}
	valueIdx, err := t.Index(valueColumn)
	if err != nil {
		return nil, fmt.Errorf("value column %w", err)
	}

	s := make(Series, 0, len(t.Rows))
	for i, row := range t.Rows {
		ts, err := table.ParseTime(row[dateIdx], t.Source)
		if err != nil {
			return nil, &TimestampError{Row: i + 1, Value: row[dateIdx]}
		}
		val, err := table.ParseNumber(row[valueIdx])
		if err != nil {
			return nil, &ValueError{Row: i + 1, Value: row[valueIdx]}
		}
		s = append(s, Observation{T: ts, Value: val})
	}

	slices.SortStableFunc(s, func(a, b Observation) int {
		return a.T.Compare(b.T)
	})
	return s, nil
}

// Window returns a copy of the last n observations. A window larger than the series
// returns the whole series.
func Window(s Series, n int) (Series, error) {
	if n <= 0 {
		return nil, fmt.Errorf("got %d, %w", n, ErrInvalidWindow)
	}
	start := max(len(s)-n, 0)
	return slices.Clone(s[start:]), nil
}

// Times returns the time of every observation
func (s Series) Times() []time.Time {
	res := make([]time.Time, len(s))
	for i, o := range s {
		res[i] = o.T
	}
	return res
}

// Values returns the value of every observation
func (s Series) Values() []float64 {
	res := make([]float64, len(s))
	for i, o := range s {
		res[i] = o.Value
	}
	return res
}

// Valid returns the observations that hold a value
func (s Series) Valid() Series {
	res := make(Series, 0, len(s))
	for _, o := range s {
		if !math.IsNaN(o.Value) {
			res = append(res, o)
		}
	}
	return res
}

// Before returns the observations strictly before t
func (s Series) Before(t time.Time) Series {
	res := make(Series, 0, len(s))
	for _, o := range s {
		if o.T.Before(t) {
			res = append(res, o)
		}
	}
	return res
}
