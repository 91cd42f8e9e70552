package dashboard

import (
	"math"
	"slices"
	"sort"
	"time"

	"github.com/dashcast/dashcast/table"
)

// exploreTable applies the column filters, the date range and the column selection in
// that order
func exploreTable(t *table.Table, form exploreForm) (*table.Table, error) {
	res := t
	cols := make([]string, 0, len(form.Filters))
	for col := range form.Filters {
		cols = append(cols, col)
	}
	sort.Strings(cols)
	for _, col := range cols {
		var err error
		if res, err = res.Filter(col, form.Filters[col]); err != nil {
			return nil, err
		}
	}

	if form.DateColumn != "" {
		start, end := parseDay(form.Start), parseDay(form.End)
		var err error
		if res, err = res.DateRange(form.DateColumn, start, end); err != nil {
			return nil, err
		}
	}

	if len(form.Select) > 0 {
		return res.Select(form.Select...)
	}
	return res, nil
}

// parseDay reads a validated date or returns the zero time
func parseDay(s string) time.Time {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

type categoryTotal struct {
	Category string
	Total    float64
}

// categoryTotals sums the value column per category largest first. Missing or non numeric
// values are skipped.
func categoryTotals(t *table.Table, category, value string) ([]categoryTotal, error) {
	catIdx, err := t.Index(category)
	if err != nil {
		return nil, err
	}
	valIdx, err := t.Index(value)
	if err != nil {
		return nil, err
	}

	totals := make(map[string]float64)
	var order []string
	for _, row := range t.Rows {
		v, err := table.ParseNumber(row[valIdx])
		if err != nil || math.IsNaN(v) {
			continue
		}
		cat := row[catIdx]
		if _, exists := totals[cat]; !exists {
			order = append(order, cat)
		}
		totals[cat] += v
	}

	res := make([]categoryTotal, len(order))
	for i, cat := range order {
		res[i] = categoryTotal{Category: cat, Total: totals[cat]}
	}
	slices.SortStableFunc(res, func(a, b categoryTotal) int {
		switch {
		case a.Total > b.Total:
			return -1
		case a.Total < b.Total:
			return 1
		}
		return 0
	})
	return res, nil
}
