package options

import (
	"fmt"
	"io"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/dashcast/dashcast/feature"
	"github.com/dashcast/dashcast/forecast/util"
)

const (
	LabelSeasDaily  = "daily"
	LabelSeasWeekly = "weekly"
	LabelSeasYearly = "yearly"

	Day  = 24 * time.Hour
	Week = 7 * Day
	Year = time.Duration(365.25 * float64(Day))
)

// SeasonalityOptions configures the seasonal components to fit for. When Auto is set the
// yearly, weekly and daily seasonalities are added when the training data spans at least
// two of their periods and is sampled finely enough to observe them.
type SeasonalityOptions struct {
	Auto               bool                `json:"auto"`
	SeasonalityConfigs []SeasonalityConfig `json:"seasonality_configs"`
}

// NewDefaultSeasonalityOptions enables automatic seasonality detection
func NewDefaultSeasonalityOptions() SeasonalityOptions {
	return SeasonalityOptions{
		Auto: true,
	}
}

func (s SeasonalityOptions) TablePrint(w io.Writer, prefix, indent string, indentGrowth int) error {
	tbl := tabwriter.NewWriter(w, 0, 0, 1, ' ', tabwriter.AlignRight)
	noCfg := " None"
	if len(s.SeasonalityConfigs) > 0 {
		noCfg = ""
		if _, err := fmt.Fprintf(tbl, "%s%sName\tPeriod\tOrders\t\n", prefix, util.IndentExpand(indent, indentGrowth+1)); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintf(w, "%s%sSeasonality:%s\n", prefix, util.IndentExpand(indent, indentGrowth), noCfg); err != nil {
		return err
	}
	for _, seasCfg := range s.SeasonalityConfigs {
		if _, err := fmt.Fprintf(tbl, "%s%s%s\t%s\t%d\t\n",
			prefix, util.IndentExpand(indent, indentGrowth+1),
			seasCfg.Name, seasCfg.Period, seasCfg.Orders); err != nil {
			return err
		}
	}
	return tbl.Flush()
}

// autoConfigs returns the seasonalities observable in the time points
func autoConfigs(t []time.Time, freq time.Duration) []SeasonalityConfig {
	if len(t) < 2 {
		return nil
	}
	span := t[len(t)-1].Sub(t[0])

	var cfgs []SeasonalityConfig
	if span >= 2*Year {
		cfgs = append(cfgs, NewYearlySeasonalityConfig(10))
	}
	if span >= 2*Week && freq < Week {
		cfgs = append(cfgs, NewWeeklySeasonalityConfig(3))
	}
	if span >= 2*Day && freq < Day {
		cfgs = append(cfgs, NewDailySeasonalityConfig(4))
	}
	return cfgs
}

func (s SeasonalityOptions) resolve(t []time.Time, freq time.Duration) []SeasonalityConfig {
	cfgs := s.SeasonalityConfigs
	if s.Auto {
		names := make(map[string]struct{}, len(cfgs))
		for _, cfg := range cfgs {
			names[cfg.Name] = struct{}{}
		}
		for _, cfg := range autoConfigs(t, freq) {
			if _, exists := names[cfg.Name]; exists {
				continue
			}
			cfgs = append(cfgs, cfg)
		}
	}
	cfgs = removeDuplicates(cfgs)

	// cap the orders below the nyquist frequency of the sampling interval
	resolved := make([]SeasonalityConfig, 0, len(cfgs))
	for _, cfg := range cfgs {
		if freq > 0 {
			maxOrder := int(cfg.Period / (2 * freq))
			if cfg.Orders > maxOrder {
				cfg.Orders = maxOrder
			}
		}
		if cfg.Orders < 1 {
			continue
		}
		resolved = append(resolved, cfg)
	}
	return resolved
}

func removeDuplicates(cfgs []SeasonalityConfig) []SeasonalityConfig {
	// sort seasonality configs so we can find duplicate periods and remove them
	sorted := make([]SeasonalityConfig, len(cfgs))
	copy(sorted, cfgs)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Period != sorted[j].Period {
			return sorted[i].Period < sorted[j].Period
		}
		if sorted[i].Orders != sorted[j].Orders {
			return sorted[i].Orders > sorted[j].Orders
		}
		return sorted[i].Name < sorted[j].Name
	})

	validated := make([]SeasonalityConfig, 0, len(sorted))
	var lastValidPeriod time.Duration
	for _, seasCfg := range sorted {
		if seasCfg.Period > 0 && seasCfg.Period > lastValidPeriod && seasCfg.Name != "" && seasCfg.Orders > 0 {
			validated = append(validated, seasCfg)
			lastValidPeriod = seasCfg.Period
		}
	}
	return validated
}

// GenerateFeatures returns the sine and cosine features of every order of every
// seasonality config
func (s SeasonalityOptions) GenerateFeatures(epoch []float64) *feature.Set {
	x := feature.NewSet()
	for _, seasCfg := range s.SeasonalityConfigs {
		period := seasCfg.Period.Seconds()
		for order := 1; order <= seasCfg.Orders; order++ {
			sinFeat := feature.NewSeasonality(seasCfg.Name, feature.FourierCompSin, order)
			cosFeat := feature.NewSeasonality(seasCfg.Name, feature.FourierCompCos, order)
			x.Set(sinFeat, sinFeat.Generate(epoch, order, period))
			x.Set(cosFeat, cosFeat.Generate(epoch, order, period))
		}
	}
	return x
}

// SeasonalityConfig represents a single seasonality configuration to model. This will generate
// Fourier series of the specified period and number of orders. E.g. a period of 24*time.Hour
// with 3 orders will create 6 Fourier series of order 1, 2, 3 and for the sine/cosine components
// where order 1 will have a period of 1 day and order 2 will have a period of 12 hours.
type SeasonalityConfig struct {
	Name   string        `json:"name"`
	Orders int           `json:"orders"`
	Period time.Duration `json:"period"`
}

// NewSeasonalityConfig creates a new seasonality config given a name, period and orders
func NewSeasonalityConfig(name string, period time.Duration, orders int) SeasonalityConfig {
	if orders < 0 {
		orders = 0
	}

	return SeasonalityConfig{
		Name:   name,
		Orders: orders,
		Period: period,
	}
}

// NewDailySeasonalityConfig creates a daily seasonality config given a specified number of orders
func NewDailySeasonalityConfig(orders int) SeasonalityConfig {
	return NewSeasonalityConfig(LabelSeasDaily, Day, orders)
}

// NewWeeklySeasonalityConfig creates a weekly seasonality config given a specified number of orders
func NewWeeklySeasonalityConfig(orders int) SeasonalityConfig {
	return NewSeasonalityConfig(LabelSeasWeekly, Week, orders)
}

// NewYearlySeasonalityConfig creates a yearly seasonality config given a specified number of orders
func NewYearlySeasonalityConfig(orders int) SeasonalityConfig {
	return NewSeasonalityConfig(LabelSeasYearly, Year, orders)
}
