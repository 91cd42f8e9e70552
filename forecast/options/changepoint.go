package options

import (
	"fmt"
	"io"
	"math"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/dashcast/dashcast/feature"
	"github.com/dashcast/dashcast/forecast/util"
)

const (
	DefaultAutoNumChangepoints = 25
	DefaultChangepointRange    = 0.8
)

// Changepoint describes a point in time that will change the ongoing trend
type Changepoint struct {
	T    time.Time `json:"time"`
	Name string    `json:"name"`
}

func NewChangepoint(name string, t time.Time) Changepoint {
	return Changepoint{t, name}
}

// ChangepointOptions configures the changepoint fit to either use auto-detection
// by evenly placing N changepoints over the first part of the training window or a set
// of known changepoints. Auto-detection relies on the regularization parameter to remove
// changepoints that do not improve the fit.
type ChangepointOptions struct {
	Changepoints        []Changepoint `json:"changepoints"`
	Auto                bool          `json:"auto"`
	AutoNumChangepoints int           `json:"auto_num_changepoints"`
	Range               float64       `json:"range"`
}

// NewDefaultChangepointOptions generates a set of default changepoint options
func NewDefaultChangepointOptions() ChangepointOptions {
	return ChangepointOptions{
		Auto:                true,
		AutoNumChangepoints: DefaultAutoNumChangepoints,
		Range:               DefaultChangepointRange,
	}
}

func (c ChangepointOptions) TablePrint(w io.Writer, prefix, indent string, indentGrowth int) error {
	tbl := tabwriter.NewWriter(w, 0, 0, 1, ' ', tabwriter.AlignRight)
	noCfg := " None"
	if len(c.Changepoints) > 0 {
		noCfg = ""
		if _, err := fmt.Fprintf(tbl, "%s%sName\tDatetime\t\n", prefix, util.IndentExpand(indent, indentGrowth+1)); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintf(w, "%s%sChangepoints:%s\n", prefix, util.IndentExpand(indent, indentGrowth), noCfg); err != nil {
		return err
	}
	for _, chpt := range c.Changepoints {
		if _, err := fmt.Fprintf(tbl, "%s%s%s\t%s\t\n",
			prefix, util.IndentExpand(indent, indentGrowth+1),
			chpt.Name, chpt.T.Format(time.DateOnly)); err != nil {
			return err
		}
	}
	return tbl.Flush()
}

// AutoChangepoints places n changepoints on evenly spaced training points within the
// first rng fraction of the history, skipping the first point. n is reduced when the
// history is too short to hold n distinct changepoints.
func AutoChangepoints(t []time.Time, n int, rng float64) []Changepoint {
	if rng <= 0 || rng > 1 {
		rng = DefaultChangepointRange
	}
	histSize := int(math.Floor(float64(len(t)) * rng))
	if n+1 > histSize {
		n = histSize - 1
	}
	if n <= 0 {
		return nil
	}

	chpts := make([]Changepoint, 0, n)
	for i := 1; i <= n; i++ {
		idx := int(math.Round(float64(i) * float64(histSize-1) / float64(n)))
		chpts = append(chpts, NewChangepoint(fmt.Sprintf("auto_%02d", i-1), t[idx]))
	}
	return chpts
}

// resolve returns the configured changepoints plus the automatic ones that fall after
// the first and no later than the last training point, sorted by time.
func (c ChangepointOptions) resolve(t []time.Time) []Changepoint {
	if len(t) == 0 {
		return nil
	}
	chpts := make([]Changepoint, 0, len(c.Changepoints))
	for i, chpt := range c.Changepoints {
		if chpt.Name == "" {
			chpt.Name = fmt.Sprintf("chpt_%02d", i)
		}
		chpts = append(chpts, chpt)
	}
	if c.Auto {
		num := c.AutoNumChangepoints
		if num == 0 {
			num = DefaultAutoNumChangepoints
		}
		chpts = append(chpts, AutoChangepoints(t, num, c.Range)...)
	}

	start, end := t[0], t[len(t)-1]
	filtered := make([]Changepoint, 0, len(chpts))
	for _, chpt := range chpts {
		// changepoints on or before the start are indistinguishable from the growth
		// feature and ones after the end were never observed
		if !chpt.T.After(start) || chpt.T.After(end) {
			continue
		}
		filtered = append(filtered, chpt)
	}
	sort.SliceStable(filtered, func(i, j int) bool {
		return filtered[i].T.Before(filtered[j].T)
	})
	return filtered
}

// GenerateFeatures returns one slope feature per changepoint on the scaled growth feature
func (c ChangepointOptions) GenerateFeatures(t []time.Time, growth []float64, trainStartTime, trainEndTime time.Time) *feature.Set {
	feat := feature.NewSet()
	span := trainEndTime.Sub(trainStartTime).Seconds()
	if span <= 0 {
		return feat
	}
	for _, chpt := range c.Changepoints {
		at := chpt.T.Sub(trainStartTime).Seconds() / span
		chptFeat := feature.NewChangepoint(chpt.Name, feature.ChangepointCompSlope)
		feat.Set(chptFeat, chptFeat.Generate(growth, at))
	}
	return feat
}
