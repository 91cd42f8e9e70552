// Package table loads uploaded tabular data into a header plus string cells and provides
// the column selection, filtering and export operations the dashboards share. Cells stay
// strings until a caller asks for a typed interpretation.
package table

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
	"time"
)

// AllValues is the filter value that keeps every row
const AllValues = "All"

var (
	ErrUnsupportedFileFormat = errors.New("unsupported file format")
	ErrEmptyTable            = errors.New("no header row")
	ErrMissingColumn         = errors.New("column not found")
)

type Source string

const (
	SourceCSV  Source = "csv"
	SourceXLSX Source = "xlsx"
	SourceSQL  Source = "sql"
	SourceAPI  Source = "api"
)

// Table is a header row and the data rows of an uploaded dataset. Every row has exactly
// one cell per column.
type Table struct {
	Columns []string
	Rows    [][]string
	Source  Source
}

// New builds a table padding or truncating each row to the number of columns. Column
// names are trimmed of surrounding spaces.
func New(columns []string, rows [][]string, source Source) *Table {
	cols := make([]string, len(columns))
	for i, c := range columns {
		cols[i] = strings.TrimSpace(c)
	}
	normalized := make([][]string, 0, len(rows))
	for _, row := range rows {
		r := make([]string, len(cols))
		copy(r, row)
		normalized = append(normalized, r)
	}
	return &Table{Columns: cols, Rows: normalized, Source: source}
}

// Len returns the number of data rows
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// Index returns the position of a column
func (t *Table) Index(column string) (int, error) {
	if t != nil {
		if idx := slices.Index(t.Columns, column); idx >= 0 {
			return idx, nil
		}
	}
	return -1, fmt.Errorf("%q, %w", column, ErrMissingColumn)
}

// Column returns a copy of the cells of one column
func (t *Table) Column(column string) ([]string, error) {
	idx, err := t.Index(column)
	if err != nil {
		return nil, err
	}
	res := make([]string, len(t.Rows))
	for i, row := range t.Rows {
		res[i] = row[idx]
	}
	return res, nil
}

// Unique returns the distinct non empty values of a column in order of appearance
func (t *Table) Unique(column string) ([]string, error) {
	cells, err := t.Column(column)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{}, len(cells))
	res := make([]string, 0)
	for _, c := range cells {
		if c == "" {
			continue
		}
		if _, exists := seen[c]; exists {
			continue
		}
		seen[c] = struct{}{}
		res = append(res, c)
	}
	return res, nil
}

// Head returns a table with at most the first n rows
func (t *Table) Head(n int) *Table {
	if n < 0 {
		n = 0
	}
	if n > len(t.Rows) {
		n = len(t.Rows)
	}
	return New(t.Columns, t.Rows[:n], t.Source)
}

// Select returns a table with only the given columns in the given order
func (t *Table) Select(columns ...string) (*Table, error) {
	idxs := make([]int, len(columns))
	for i, c := range columns {
		idx, err := t.Index(c)
		if err != nil {
			return nil, err
		}
		idxs[i] = idx
	}
	rows := make([][]string, len(t.Rows))
	for i, row := range t.Rows {
		r := make([]string, len(idxs))
		for j, idx := range idxs {
			r[j] = row[idx]
		}
		rows[i] = r
	}
	return &Table{Columns: slices.Clone(columns), Rows: rows, Source: t.Source}, nil
}

// Filter keeps rows whose column value is one of values. An empty list or a list
// holding AllValues keeps every row.
func (t *Table) Filter(column string, values []string) (*Table, error) {
	idx, err := t.Index(column)
	if err != nil {
		return nil, err
	}
	if len(values) == 0 || slices.Contains(values, AllValues) {
		return New(t.Columns, t.Rows, t.Source), nil
	}
	keep := make(map[string]struct{}, len(values))
	for _, v := range values {
		keep[v] = struct{}{}
	}
	rows := make([][]string, 0, len(t.Rows))
	for _, row := range t.Rows {
		if _, exists := keep[row[idx]]; exists {
			rows = append(rows, row)
		}
	}
	return New(t.Columns, rows, t.Source), nil
}

// DateRange keeps rows whose date column falls on a calendar day within [start, end].
// Rows with a date that cannot be parsed are dropped. A zero start or end leaves that side
// open.
func (t *Table) DateRange(column string, start, end time.Time) (*Table, error) {
	idx, err := t.Index(column)
	if err != nil {
		return nil, err
	}
	startDay := truncateDay(start)
	endDay := truncateDay(end)

	rows := make([][]string, 0, len(t.Rows))
	for _, row := range t.Rows {
		ts, err := ParseTime(row[idx], t.Source)
		if err != nil {
			continue
		}
		day := truncateDay(ts)
		if !start.IsZero() && day.Before(startDay) {
			continue
		}
		if !end.IsZero() && day.After(endDay) {
			continue
		}
		rows = append(rows, row)
	}
	return New(t.Columns, rows, t.Source), nil
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// WriteCSV writes the header and rows as CSV
func (t *Table) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Columns); err != nil {
		return err
	}
	if err := cw.WriteAll(t.Rows); err != nil {
		return fmt.Errorf("unable to write csv rows, %w", err)
	}
	return nil
}
