// Package pipeline runs one forecast request end to end: it maps the uploaded table into a
// series, keeps the recent history, fits and predicts with an uncertainty band, labels each
// row against the request time and scores the forecast against the known actuals.
package pipeline

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

var ErrInvalidHorizon = errors.New("horizon must be short (3) or long (6)")

// Horizon is the number of monthly periods forecast past the last observation
type Horizon int

const (
	HorizonShort Horizon = 3
	HorizonLong  Horizon = 6
)

// ParseHorizon accepts short, long or their period counts
func ParseHorizon(s string) (Horizon, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "short", strconv.Itoa(int(HorizonShort)):
		return HorizonShort, nil
	case "long", strconv.Itoa(int(HorizonLong)):
		return HorizonLong, nil
	}
	return 0, fmt.Errorf("got %q, %w", s, ErrInvalidHorizon)
}

func (h Horizon) Valid() bool {
	return h == HorizonShort || h == HorizonLong
}

func (h Horizon) String() string {
	switch h {
	case HorizonShort:
		return "short"
	case HorizonLong:
		return "long"
	}
	return strconv.Itoa(int(h))
}

// Request carries everything a single forecast run needs. It is built once per request
// and never modified.
type Request struct {
	ID          uuid.UUID `json:"id"`
	DateColumn  string    `json:"date_column"`
	ValueColumn string    `json:"value_column"`
	History     int       `json:"history"`
	Horizon     Horizon   `json:"horizon"`
	Now         time.Time `json:"now"`
}

// NewRequest stamps a new request with a random ID
func NewRequest(dateColumn, valueColumn string, history int, horizon Horizon, now time.Time) Request {
	return Request{
		ID:          uuid.New(),
		DateColumn:  dateColumn,
		ValueColumn: valueColumn,
		History:     history,
		Horizon:     horizon,
		Now:         now,
	}
}
