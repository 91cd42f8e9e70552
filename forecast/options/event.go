package options

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dashcast/dashcast/feature"
	"github.com/dashcast/dashcast/forecast/util"
	"github.com/rickar/cal/v2"
	"github.com/rickar/cal/v2/us"
	"github.com/rs/zerolog/log"
)

var (
	ErrStartAfterEnd    = errors.New("event start time is after end time")
	ErrUnsetTime        = errors.New("unset event start or end time")
	ErrNoEventName      = errors.New("no event name")
	ErrUnknownHoliday   = errors.New("unknown holiday")
	ErrNegativeEventDur = errors.New("negative event duration")
)

const (
	HolidayChristmas    = "christmas"
	HolidayThanksgiving = "thanksgiving"
	HolidayNewYear      = "new_year"
	HolidayIndependence = "independence_day"
)

var holidays = map[string]*cal.Holiday{
	HolidayChristmas:    us.ChristmasDay,
	HolidayThanksgiving: us.ThanksgivingDay,
	HolidayNewYear:      us.NewYear,
	HolidayIndependence: us.IndependenceDay,
}

// SupportedHolidays returns the sorted holiday keys accepted by EventOptions
func SupportedHolidays() []string {
	keys := make([]string, 0, len(holidays))
	for k := range holidays {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Event represents a time span that shifts the series while it is active
type Event struct {
	Name  string    `json:"name"`
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

func NewEvent(name string, start, end time.Time) Event {
	return Event{
		Name:  name,
		Start: start,
		End:   end,
	}
}

func (e *Event) Valid() error {
	if e.Start.IsZero() || e.End.IsZero() {
		return ErrUnsetTime
	}
	if e.Start.After(e.End) {
		return ErrStartAfterEnd
	}
	if e.Name == "" {
		return ErrNoEventName
	}
	return nil
}

// active reports whether the event overlaps the sampling interval (tPnt-window, tPnt]. A
// zero window only checks the time point itself.
func (e *Event) active(tPnt time.Time, window time.Duration) bool {
	if window <= 0 {
		return !tPnt.Before(e.Start) && tPnt.Before(e.End)
	}
	return !e.Start.After(tPnt) && e.End.After(tPnt.Add(-window))
}

// Holiday returns one event per observed occurrence of the holiday between start and end
// inclusive. Each event spans the observed day widened by durBefore and durAfter.
func Holiday(hol *cal.Holiday, start, end time.Time, durBefore, durAfter time.Duration) []Event {
	startLoc := start.Location()

	events := []Event{}
	for i := start.Year(); i <= end.Year(); i++ {
		_, observed := hol.Calc(i)
		if observed.IsZero() {
			continue
		}
		// the observed day is a calendar date, pin it to midnight in the series location
		y, m, d := observed.Date()
		observed = time.Date(y, m, d, 0, 0, 0, 0, startLoc)

		if !observed.Before(start) && !observed.After(end) {
			events = append(events, Event{
				Name:  strings.ReplaceAll(hol.Name, " ", "_") + "_" + strconv.Itoa(i),
				Start: observed.Add(-durBefore),
				End:   observed.Add(24 * time.Hour).Add(durAfter),
			})
		}
	}
	return events
}

// EventOptions configures one-off events and recurring holidays. Each one-off event is
// its own feature while every occurrence of a holiday shares a single feature so the
// effect learned from history carries into the forecast.
type EventOptions struct {
	Events    []Event       `json:"events"`
	Holidays  []string      `json:"holidays"`
	DurBefore time.Duration `json:"duration_before"`
	DurAfter  time.Duration `json:"duration_after"`

	// Window is the sampling interval each time point represents. An event is active for a
	// point when it overlaps the interval ending at that point. Resolved from the training
	// data when unset.
	Window time.Duration `json:"window"`
}

// Validate checks every event and holiday
func (e EventOptions) Validate() error {
	if e.DurBefore < 0 || e.DurAfter < 0 || e.Window < 0 {
		return ErrNegativeEventDur
	}
	for _, ev := range e.Events {
		if err := ev.Valid(); err != nil {
			return fmt.Errorf("event %q, %w", ev.Name, err)
		}
	}
	for _, h := range e.Holidays {
		if _, exists := holidays[h]; !exists {
			return fmt.Errorf("%q, supported holidays are %s, %w", h, strings.Join(SupportedHolidays(), ", "), ErrUnknownHoliday)
		}
	}
	return nil
}

func (e EventOptions) TablePrint(w io.Writer, prefix, indent string, indentGrowth int) error {
	tbl := tabwriter.NewWriter(w, 0, 0, 1, ' ', tabwriter.AlignRight)
	noCfg := " None"
	if len(e.Events)+len(e.Holidays) > 0 {
		noCfg = ""
		if _, err := fmt.Fprintf(tbl, "%s%sName\tStart\tEnd\t\n", prefix, util.IndentExpand(indent, indentGrowth+1)); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintf(w, "%s%sEvents:%s\n", prefix, util.IndentExpand(indent, indentGrowth), noCfg); err != nil {
		return err
	}
	for _, ev := range e.Events {
		if _, err := fmt.Fprintf(tbl, "%s%s%s\t%s\t%s\t\n",
			prefix, util.IndentExpand(indent, indentGrowth+1),
			ev.Name, ev.Start.Format(time.DateTime), ev.End.Format(time.DateTime)); err != nil {
			return err
		}
	}
	for _, h := range e.Holidays {
		if _, err := fmt.Fprintf(tbl, "%s%s%s\t%s\t%s\t\n",
			prefix, util.IndentExpand(indent, indentGrowth+1),
			h, "recurring", "recurring"); err != nil {
			return err
		}
	}
	return tbl.Flush()
}

// GenerateFeatures returns an indicator feature per event and per holiday. Invalid events
// and unknown holidays are skipped with a warning.
func (e EventOptions) GenerateFeatures(t []time.Time) *feature.Set {
	feat := feature.NewSet()
	if len(t) == 0 {
		return feat
	}

	for _, ev := range e.Events {
		if err := ev.Valid(); err != nil {
			log.Warn().Str("name", ev.Name).Err(err).Msg("not separately modelling invalid event")
			continue
		}
		f := feature.NewEvent(strings.ReplaceAll(ev.Name, " ", "_"))
		feat.Set(f, f.Mask(t, anyActive([]Event{ev}, e.Window)))
	}

	// search a wider span than t so events near the edges still overlap their windows
	start := t[0].Add(-e.Window - e.DurAfter - 24*time.Hour)
	end := t[len(t)-1].Add(e.DurBefore)
	for _, h := range e.Holidays {
		hol, exists := holidays[h]
		if !exists {
			log.Warn().Str("name", h).Err(ErrUnknownHoliday).Msg("not modelling holiday")
			continue
		}
		events := Holiday(hol, start, end, e.DurBefore, e.DurAfter)
		f := feature.NewHoliday(h)
		feat.Set(f, f.Mask(t, anyActive(events, e.Window)))
	}
	return feat
}

func anyActive(events []Event, window time.Duration) func(time.Time) bool {
	return func(tPnt time.Time) bool {
		for _, ev := range events {
			if ev.active(tPnt, window) {
				return true
			}
		}
		return false
	}
}
