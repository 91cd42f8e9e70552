package series

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/dashcast/dashcast/table"
	"github.com/dashcast/dashcast/timedataset"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(d int) time.Time {
	return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC)
}

func TestFromTable(t *testing.T) {
	testData := map[string]struct {
		columns  []string
		rows     [][]string
		dateCol  string
		valueCol string
		expected Series
		err      error
	}{
		"sorted on ingestion": {
			columns:  []string{"ds", "y"},
			rows:     [][]string{{"2024-01-03", "3"}, {"2024-01-01", "1"}, {"2024-01-02", "2"}},
			dateCol:  "ds",
			valueCol: "y",
			expected: Series{{day(1), 1}, {day(2), 2}, {day(3), 3}},
		},
		"equal timestamps keep upload order": {
			columns:  []string{"ds", "y"},
			rows:     [][]string{{"2024-01-02", "5"}, {"2024-01-01", "1"}, {"2024-01-02", "4"}},
			dateCol:  "ds",
			valueCol: "y",
			expected: Series{{day(1), 1}, {day(2), 5}, {day(2), 4}},
		},
		"extra columns and formatted values": {
			columns:  []string{"region", "value", "date"},
			rows:     [][]string{{"us", "1,234.5", "2024/01/01"}, {"eu", "$ 10", "2024/01/02"}},
			dateCol:  "date",
			valueCol: "value",
			expected: Series{{day(1), 1234.5}, {day(2), 10}},
		},
		"one column": {
			columns:  []string{"ds"},
			rows:     [][]string{{"2024-01-01"}},
			dateCol:  "ds",
			valueCol: "ds",
			err:      ErrInvalidTimestamp,
		},
		"missing date column": {
			columns:  []string{"ds", "y"},
			dateCol:  "date",
			valueCol: "y",
			err:      ErrMissingColumn,
		},
		"missing value column": {
			columns:  []string{"ds", "y"},
			dateCol:  "ds",
			valueCol: "value",
			err:      table.ErrMissingColumn,
		},
		"bad timestamp": {
			columns:  []string{"ds", "y"},
			rows:     [][]string{{"2024-01-01", "1"}, {"soon", "2"}},
			dateCol:  "ds",
			valueCol: "y",
			err:      ErrInvalidTimestamp,
		},
		"bad value": {
			columns:  []string{"ds", "y"},
			rows:     [][]string{{"2024-01-01", "one"}},
			dateCol:  "ds",
			valueCol: "y",
			err:      ErrInvalidValue,
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			tbl := table.New(td.columns, td.rows, table.SourceCSV)
			res, err := FromTable(tbl, td.dateCol, td.valueCol)
			if td.err != nil {
				assert.ErrorIs(t, err, td.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, td.expected, res)
		})
	}
}

func TestFromTableErrorRow(t *testing.T) {
	tbl := table.New(
		[]string{"ds", "y"},
		[][]string{{"2024-01-01", "1"}, {"2024-01-02", "2"}, {"13/45/2024", "3"}},
		table.SourceCSV,
	)
	_, err := FromTable(tbl, "ds", "y")

	var tsErr *TimestampError
	require.True(t, errors.As(err, &tsErr))
	assert.Equal(t, 3, tsErr.Row)
	assert.Equal(t, "13/45/2024", tsErr.Value)
}

func TestFromTableDecimalComma(t *testing.T) {
	tbl := table.New(
		[]string{"ds", "y"},
		[][]string{{"2024-01-31", "1,234.50"}, {"2024-02-29", "1.234,56"}},
		table.SourceCSV,
	)
	_, err := FromTable(tbl, "ds", "y")

	var valErr *ValueError
	require.True(t, errors.As(err, &valErr))
	assert.ErrorIs(t, err, ErrInvalidValue)
	assert.Equal(t, 2, valErr.Row)
	assert.Equal(t, "1.234,56", valErr.Value)
}

func TestFromTableMissingValue(t *testing.T) {
	tbl := table.New(
		[]string{"ds", "y"},
		[][]string{{"2024-01-01", "1"}, {"2024-01-02", ""}},
		table.SourceCSV,
	)
	res, err := FromTable(tbl, "ds", "y")
	require.NoError(t, err)
	require.Len(t, res, 2)
	assert.True(t, math.IsNaN(res[1].Value))
	assert.Len(t, res.Valid(), 1)
}

func TestWindow(t *testing.T) {
	tSeries := timedataset.GenerateT(30, 24*time.Hour, func() time.Time { return day(31) })
	s := make(Series, len(tSeries))
	for i, ts := range tSeries {
		s[i] = Observation{T: ts, Value: float64(i)}
	}

	for n := 10; n <= len(s); n++ {
		res, err := Window(s, n)
		require.NoError(t, err)
		require.Len(t, res, n)
		assert.Equal(t, s[len(s)-1], res[n-1])
		assert.Equal(t, s[len(s)-n], res[0])
	}

	testData := map[string]struct {
		n        int
		expected int
		err      error
	}{
		"larger than series": {n: 500, expected: 30},
		"exact":              {n: 30, expected: 30},
		"one":                {n: 1, expected: 1},
		"zero":               {n: 0, err: ErrInvalidWindow},
		"negative":           {n: -5, err: ErrInvalidWindow},
	}
	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			res, err := Window(s, td.n)
			if td.err != nil {
				assert.ErrorIs(t, err, td.err)
				return
			}
			require.NoError(t, err)
			assert.Len(t, res, td.expected)
		})
	}

	res, err := Window(s, 5)
	require.NoError(t, err)
	res[0].Value = -1
	assert.Equal(t, 25.0, s[25].Value)
}

func TestSeriesAccessors(t *testing.T) {
	s := Series{{day(1), 1}, {day(2), math.NaN()}, {day(3), 3}}
	assert.Equal(t, []time.Time{day(1), day(2), day(3)}, s.Times())
	assert.Len(t, s.Values(), 3)
	assert.Equal(t, Series{{day(1), 1}}, s.Before(day(2)))
	assert.Len(t, s.Valid(), 2)
}
