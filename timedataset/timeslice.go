package timedataset

import (
	"math"
	"time"
)

type TimeSlice []time.Time

func (t TimeSlice) StartTime() time.Time {
	var startTime time.Time
	if len(t) < 1 {
		return startTime
	}
	return t[0]
}

func (t TimeSlice) EndTime() time.Time {
	var lastTime time.Time
	if len(t) < 1 {
		return lastTime
	}

	lastTime = t[len(t)-1]
	return lastTime
}

// EstimateFreq returns the most common delta between consecutive time points. Ties go to
// the smaller delta.
func (t TimeSlice) EstimateFreq() (time.Duration, error) {
	if len(t) < 2 {
		return 0, ErrCannotInferFreq
	}

	frequencies := make(map[time.Duration]int)
	for i := 1; i < len(t); i++ {
		delta := t[i].Sub(t[i-1])
		frequencies[delta] += 1
	}

	var maxCnt int
	maxDelta := time.Duration(math.MaxInt64)

	for delta, cnt := range frequencies {
		if cnt > maxCnt || (cnt == maxCnt && delta < maxDelta) {
			maxCnt = cnt
			maxDelta = delta
		}
	}
	return maxDelta, nil
}

// MonthEnd returns the last calendar day of the month of t keeping the time of day and
// location of t.
func MonthEnd(t time.Time) time.Time {
	y, m, _ := t.Date()
	hh, mm, ss := t.Clock()
	return time.Date(y, m+1, 0, hh, mm, ss, t.Nanosecond(), t.Location())
}

// NextMonthEnds returns the next n month end time points strictly after t
func NextMonthEnds(t time.Time, n int) []time.Time {
	if n <= 0 {
		return nil
	}
	res := make([]time.Time, 0, n)

	next := MonthEnd(t)
	if !next.After(t) {
		next = MonthEnd(firstOfNextMonth(t))
	}
	for len(res) < n {
		res = append(res, next)
		next = MonthEnd(firstOfNextMonth(next))
	}
	return res
}

func firstOfNextMonth(t time.Time) time.Time {
	y, m, _ := t.Date()
	hh, mm, ss := t.Clock()
	return time.Date(y, m+1, 1, hh, mm, ss, t.Nanosecond(), t.Location())
}
