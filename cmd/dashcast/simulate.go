package main

import (
	"fmt"
	"math"
	"math/rand/v2"
	"strconv"
	"time"

	"github.com/dashcast/dashcast/table"
	"github.com/dashcast/dashcast/timedataset"
	"github.com/spf13/cobra"
)

const secondsPerYear = 365.25 * 24 * 3600

type simulateFlags struct {
	months int
	start  string
	level  float64
	amp    float64
	noise  float64
	seed   uint64

	// promo lifts the series by promoLift between promoStart and promoEnd inclusive
	promoStart string
	promoEnd   string
	promoLift  float64

	// gap leaves the months in [gapStart, gapEnd) empty
	gapStart string
	gapEnd   string
}

func simulateCmd() *cobra.Command {
	var f simulateFlags
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Write a synthetic monthly series as CSV with ds and y columns",
		RunE: func(cmd *cobra.Command, args []string) error {
			start, err := time.Parse(time.DateOnly, f.start)
			if err != nil {
				return err
			}
			tbl, err := simulateTable(f, start)
			if err != nil {
				return err
			}
			if len(args) == 1 {
				return writeTableFile(args[0], tbl.WriteCSV)
			}
			return tbl.WriteCSV(cmd.OutOrStdout())
		},
		Args: cobra.MaximumNArgs(1),
	}

	flags := cmd.Flags()
	flags.IntVar(&f.months, "months", 48, "number of month end observations")
	flags.StringVar(&f.start, "start", "2021-01-31", "first month, YYYY-MM-DD")
	flags.Float64Var(&f.level, "level", 100, "constant level of the series")
	flags.Float64Var(&f.amp, "amplitude", 10, "amplitude of the yearly seasonality")
	flags.Float64Var(&f.noise, "noise", 1, "standard deviation of the gaussian noise")
	flags.Uint64Var(&f.seed, "seed", 1, "seed of the noise generator")
	flags.StringVar(&f.promoStart, "promo-start", "", "first day of a promotion, YYYY-MM-DD")
	flags.StringVar(&f.promoEnd, "promo-end", "", "last day of a promotion, YYYY-MM-DD")
	flags.Float64Var(&f.promoLift, "promo-lift", 20, "level added while the promotion runs")
	flags.StringVar(&f.gapStart, "gap-start", "", "first day of a stretch of missing values, YYYY-MM-DD")
	flags.StringVar(&f.gapEnd, "gap-end", "", "day after the last missing value, YYYY-MM-DD")
	cmd.MarkFlagsRequiredTogether("promo-start", "promo-end")
	cmd.MarkFlagsRequiredTogether("gap-start", "gap-end")
	return cmd
}

// simulateTable builds a level plus a yearly wave, a trend change halfway through and
// gaussian noise. An optional promotion lifts a span of months and an optional gap leaves
// a span of months empty.
func simulateTable(f simulateFlags, start time.Time) (*table.Table, error) {
	t := timedataset.GenerateMonthlyT(f.months, start)
	if len(t) == 0 {
		return table.New([]string{"ds", "y"}, nil, table.SourceCSV), nil
	}
	r := rand.New(rand.NewPCG(f.seed, f.seed))

	y := timedataset.GenerateConstY(len(t), f.level).
		Add(timedataset.GenerateWaveY(t, f.amp, secondsPerYear, 1, 0)).
		Add(timedataset.GenerateChange(t, t[len(t)/2], 0, 0.05)).
		Add(timedataset.GenerateNoise(r, len(t), f.noise))

	if f.promoStart != "" {
		promoStart, promoEnd, err := parseSpan(f.promoStart, f.promoEnd)
		if err != nil {
			return nil, fmt.Errorf("promotion, %w", err)
		}
		y.Add(timedataset.GenerateConstY(len(t), f.promoLift).MaskWithTimeRange(promoStart, promoEnd, t))
	}
	if f.gapStart != "" {
		gapStart, gapEnd, err := parseSpan(f.gapStart, f.gapEnd)
		if err != nil {
			return nil, fmt.Errorf("gap, %w", err)
		}
		y.SetConst(t, math.NaN(), gapStart, gapEnd)
	}

	rows := make([][]string, len(t))
	for i := range t {
		val := ""
		if !math.IsNaN(y[i]) {
			val = strconv.FormatFloat(y[i], 'f', 4, 64)
		}
		rows[i] = []string{t[i].Format(time.DateOnly), val}
	}
	return table.New([]string{"ds", "y"}, rows, table.SourceCSV), nil
}

func parseSpan(start, end string) (time.Time, time.Time, error) {
	s, err := time.Parse(time.DateOnly, start)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	e, err := time.Parse(time.DateOnly, end)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if e.Before(s) {
		return time.Time{}, time.Time{}, fmt.Errorf("%s is before %s", end, start)
	}
	return s, e, nil
}
