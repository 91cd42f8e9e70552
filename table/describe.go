package table

import (
	"errors"
	"math"
	"sort"
	"strconv"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

var ErrNoNumericColumns = errors.New("no numeric columns to describe")

var describeStats = []string{"count", "mean", "std", "min", "25%", "50%", "75%", "max"}

// NumericColumn returns the parsed values of a column skipping missing and non numeric
// cells
func (t *Table) NumericColumn(column string) ([]float64, error) {
	cells, err := t.Column(column)
	if err != nil {
		return nil, err
	}
	vals := make([]float64, 0, len(cells))
	for _, c := range cells {
		v, err := ParseNumber(c)
		if err != nil || math.IsNaN(v) {
			continue
		}
		vals = append(vals, v)
	}
	return vals, nil
}

// isNumeric reports whether every non missing cell of the column holds a number
func (t *Table) isNumeric(idx int) bool {
	var seen bool
	for _, row := range t.Rows {
		if IsMissing(row[idx]) {
			continue
		}
		if _, err := ParseNumber(row[idx]); err != nil {
			return false
		}
		seen = true
	}
	return seen
}

// Describe summarizes numeric columns with count, mean, sample standard deviation, min,
// quartiles and max. Without columns every numeric column is described.
func (t *Table) Describe(columns ...string) (*Table, error) {
	if len(columns) == 0 {
		for i, c := range t.Columns {
			if t.isNumeric(i) {
				columns = append(columns, c)
			}
		}
	}
	if len(columns) == 0 {
		return nil, ErrNoNumericColumns
	}

	rows := make([][]string, len(describeStats))
	for i, s := range describeStats {
		rows[i] = append(make([]string, 0, len(columns)+1), s)
	}
	for _, c := range columns {
		vals, err := t.NumericColumn(c)
		if err != nil {
			return nil, err
		}
		for i, v := range summarize(vals) {
			rows[i] = append(rows[i], formatStat(v))
		}
	}
	return New(append([]string{""}, columns...), rows, t.Source), nil
}

func summarize(vals []float64) []float64 {
	res := make([]float64, len(describeStats))
	res[0] = float64(len(vals))
	if len(vals) == 0 {
		for i := 1; i < len(res); i++ {
			res[i] = math.NaN()
		}
		return res
	}
	sorted := append([]float64(nil), vals...)
	sort.Float64s(sorted)

	mean, std := stat.MeanStdDev(sorted, nil)
	res[1] = mean
	res[2] = std
	res[3] = floats.Min(sorted)
	res[4] = quantile(sorted, 0.25)
	res[5] = quantile(sorted, 0.5)
	res[6] = quantile(sorted, 0.75)
	res[7] = floats.Max(sorted)
	return res
}

// quantile interpolates linearly between the closest ranks of the sorted values
func quantile(sorted []float64, p float64) float64 {
	pos := p * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	frac := pos - float64(lo)
	return sorted[lo] + (sorted[hi]-sorted[lo])*frac
}

func formatStat(v float64) string {
	if math.IsNaN(v) {
		return "NaN"
	}
	return strconv.FormatFloat(v, 'f', 6, 64)
}
