package pipeline

import (
	"bytes"
	"math"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/dashcast/dashcast/series"
	"github.com/dashcast/dashcast/table"
	"github.com/dashcast/dashcast/timedataset"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var start = time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC)

func monthlyTable(n int, val func(i int) string) *table.Table {
	t := timedataset.GenerateMonthlyT(n, start)
	rows := make([][]string, n)
	for i := range t {
		rows[i] = []string{t[i].Format(time.DateOnly), val(i)}
	}
	return table.New([]string{"ds", "y"}, rows, table.SourceCSV)
}

func trend(i int) string {
	return strconv.FormatFloat(100+2*float64(i)+5*math.Sin(float64(i)), 'f', 3, 64)
}

func newEngine(t *testing.T) *Engine {
	t.Helper()
	e, err := NewEngine(nil)
	require.NoError(t, err)
	return e
}

func TestRunRowCount(t *testing.T) {
	e := newEngine(t)
	tbl := monthlyTable(30, trend)
	last := timedataset.GenerateMonthlyT(30, start)[29]

	testData := map[string]struct {
		history  int
		horizon  Horizon
		expected int
	}{
		"short":               {history: 30, horizon: HorizonShort, expected: 33},
		"long":                {history: 30, horizon: HorizonLong, expected: 36},
		"windowed short":      {history: 12, horizon: HorizonShort, expected: 15},
		"windowed long":       {history: 10, horizon: HorizonLong, expected: 16},
		"window beyond table": {history: 500, horizon: HorizonShort, expected: 33},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			req := NewRequest("ds", "y", td.history, td.horizon, last)
			res, err := e.Run(req, tbl)
			require.NoError(t, err)

			assert.Len(t, res.Rows, td.expected)
			assert.Len(t, res.History, min(td.history, 30))

			hist, fcst := res.Counts()
			assert.Equal(t, int(td.horizon), fcst)
			assert.Equal(t, td.expected-int(td.horizon), hist)
			assert.Equal(t, 0, res.BandAnomalies)

			for i, r := range res.Rows {
				assert.LessOrEqual(t, r.Lower, r.Point)
				assert.LessOrEqual(t, r.Point, r.Upper)
				if i > 0 {
					assert.True(t, r.T.After(res.Rows[i-1].T))
				}
			}
			future := res.Rows[len(res.Rows)-int(td.horizon):]
			assert.Equal(t, timedataset.NextMonthEnds(last, int(td.horizon)), rowTimes(future))

			require.NotNil(t, res.Accuracy)
			assert.GreaterOrEqual(t, res.Accuracy.MAE, 0.0)
			assert.GreaterOrEqual(t, res.Accuracy.MSE, 0.0)
			assert.Equal(t, math.Sqrt(res.Accuracy.MSE), res.Accuracy.RMSE)
			assert.True(t, res.Accuracy.MAPEDefined)
			assert.Less(t, res.Accuracy.MAPE, 0.1)
		})
	}
}

func rowTimes(rows []ForecastRow) []time.Time {
	res := make([]time.Time, len(rows))
	for i, r := range rows {
		res[i] = r.T
	}
	return res
}

func TestRunThreePoints(t *testing.T) {
	e := newEngine(t)
	tbl := table.New(
		[]string{"ds", "y"},
		[][]string{{"2024-03-31", "12"}, {"2024-01-31", "10"}, {"2024-02-29", "11"}},
		table.SourceCSV,
	)
	now := time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC)

	res, err := e.Run(NewRequest("ds", "y", 30, HorizonShort, now), tbl)
	require.NoError(t, err)
	require.Len(t, res.Rows, 6)

	hist, fcst := res.Counts()
	assert.Equal(t, 3, hist)
	assert.Equal(t, 3, fcst)

	expected := []time.Time{
		time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 4, 30, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 5, 31, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC),
	}
	assert.Equal(t, expected, rowTimes(res.Rows))

	// only the two actuals strictly before now are compared
	require.NotNil(t, res.Accuracy)
	assert.Equal(t, 2, res.Accuracy.Pairs)
	assert.NotNil(t, res.Fit())
	assert.NotNil(t, res.Chart())
}

func TestRunLinearSeries(t *testing.T) {
	e := newEngine(t)
	tbl := table.New(
		[]string{"ds", "y"},
		[][]string{{"2024-01-31", "100"}, {"2024-02-29", "110"}, {"2024-03-31", "120"}},
		table.SourceCSV,
	)
	now := time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC)

	res, err := e.Run(NewRequest("ds", "y", 30, HorizonShort, now), tbl)
	require.NoError(t, err)
	require.NotNil(t, res.Accuracy)
	assert.Less(t, res.Accuracy.MAE, 1.0)
	for i, expected := range []float64{100, 110, 120} {
		assert.InDelta(t, expected, res.Rows[i].Point, 1.5)
	}
}

func TestRunDuplicateTimestamps(t *testing.T) {
	e := newEngine(t)
	tbl := table.New(
		[]string{"ds", "y"},
		[][]string{
			{"2024-01-31", "10"}, {"2024-01-31", "20"},
			{"2024-02-29", "16"}, {"2024-03-31", ""}, {"2024-04-30", "18"},
		},
		table.SourceCSV,
	)
	now := time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)

	res, err := e.Run(NewRequest("ds", "y", 30, HorizonLong, now), tbl)
	require.NoError(t, err)
	assert.Len(t, res.History, 5)
	assert.Len(t, res.Rows, 4+6)

	hist, fcst := res.Counts()
	assert.Equal(t, 10, hist)
	assert.Equal(t, 0, fcst)
	assert.Equal(t, []float64{15, 16, 18}, res.Fit().Forecaster.TrainingData().Y)
}

func TestRunAllZeroActuals(t *testing.T) {
	e := newEngine(t)
	tbl := monthlyTable(12, func(int) string { return "0" })
	now := start.AddDate(2, 0, 0)

	res, err := e.Run(NewRequest("ds", "y", 12, HorizonShort, now), tbl)
	require.NoError(t, err)
	require.NotNil(t, res.Accuracy)
	assert.False(t, res.Accuracy.MAPEDefined)
	assert.Equal(t, 12, res.Accuracy.ZeroActuals)
	assert.Equal(t, MAPEUndefined, res.Accuracy.MAPEText())
	assert.False(t, math.IsNaN(res.Accuracy.MAPE))
	assert.Equal(t, 0, res.BandAnomalies)
}

func TestRunNoComparableData(t *testing.T) {
	e := newEngine(t)
	tbl := monthlyTable(12, trend)

	res, err := e.Run(NewRequest("ds", "y", 12, HorizonShort, start.AddDate(-1, 0, 0)), tbl)
	require.NoError(t, err)
	assert.Nil(t, res.Accuracy)
	assert.ErrorIs(t, res.AccuracyErr, ErrEmptyComparisonSet)

	_, fcst := res.Counts()
	assert.Equal(t, 15, fcst)
}

func TestRunErrors(t *testing.T) {
	e := newEngine(t)
	now := time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC)

	testData := map[string]struct {
		tbl      *table.Table
		valueCol string
		history  int
		horizon  Horizon
		err      error
	}{
		"one column": {
			tbl:      table.New([]string{"ds"}, [][]string{{"2024-01-31"}}, table.SourceCSV),
			valueCol: "ds",
			history:  30,
			horizon:  HorizonShort,
			err:      series.ErrInvalidTimestamp,
		},
		"missing column": {
			tbl:      monthlyTable(5, trend),
			valueCol: "sales",
			history:  30,
			horizon:  HorizonShort,
			err:      series.ErrMissingColumn,
		},
		"bad window": {
			tbl:      monthlyTable(5, trend),
			valueCol: "y",
			history:  0,
			horizon:  HorizonShort,
			err:      series.ErrInvalidWindow,
		},
		"bad horizon": {
			tbl:      monthlyTable(5, trend),
			valueCol: "y",
			history:  30,
			horizon:  4,
			err:      ErrInvalidHorizon,
		},
		"single value": {
			tbl:      monthlyTable(1, trend),
			valueCol: "y",
			history:  30,
			horizon:  HorizonShort,
			err:      ErrInsufficientData,
		},
		"only missing values": {
			tbl:      monthlyTable(4, func(int) string { return "" }),
			valueCol: "y",
			history:  30,
			horizon:  HorizonShort,
			err:      ErrInsufficientData,
		},
		"repeated timestamp": {
			tbl: table.New(
				[]string{"ds", "y"},
				[][]string{{"2024-01-31", "1"}, {"2024-01-31", "2"}},
				table.SourceCSV,
			),
			valueCol: "y",
			history:  30,
			horizon:  HorizonShort,
			err:      ErrInsufficientData,
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			_, err := e.Run(NewRequest("ds", td.valueCol, td.history, td.horizon, now), td.tbl)
			assert.ErrorIs(t, err, td.err)
		})
	}
}

func TestClassify(t *testing.T) {
	now := time.Date(2024, 3, 31, 12, 0, 0, 0, time.UTC)

	testData := map[string]struct {
		t        time.Time
		expected Label
	}{
		"before": {t: now.Add(-time.Hour), expected: LabelHistorical},
		"equal":  {t: now, expected: LabelHistorical},
		"after":  {t: now.Add(time.Nanosecond), expected: LabelForecast},
	}
	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, td.expected, Classify(td.t, now))
		})
	}

	rows := make([]ForecastRow, 0, 10)
	for _, ts := range timedataset.GenerateMonthlyT(10, start.AddDate(1, 9, 0)) {
		rows = append(rows, ForecastRow{T: ts})
	}
	ClassifyRows(rows, now)
	first := append([]ForecastRow(nil), rows...)
	ClassifyRows(rows, now)
	assert.Equal(t, first, rows)
	assert.Equal(t, LabelHistorical, rows[0].Label)
	assert.Equal(t, LabelForecast, rows[9].Label)
}

func TestParseHorizon(t *testing.T) {
	testData := map[string]struct {
		input    string
		expected Horizon
		err      error
	}{
		"short":     {input: "short", expected: HorizonShort},
		"long":      {input: "Long", expected: HorizonLong},
		"three":     {input: "3", expected: HorizonShort},
		"six":       {input: " 6 ", expected: HorizonLong},
		"twelve":    {input: "12", err: ErrInvalidHorizon},
		"empty":     {input: "", err: ErrInvalidHorizon},
		"quarterly": {input: "quarter", err: ErrInvalidHorizon},
	}
	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			res, err := ParseHorizon(td.input)
			if td.err != nil {
				assert.ErrorIs(t, err, td.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, td.expected, res)
		})
	}
	assert.Equal(t, "short", HorizonShort.String())
	assert.Equal(t, "long", HorizonLong.String())
}

func TestRowsOutput(t *testing.T) {
	rows := []ForecastRow{
		{T: time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC), Point: 1.5, Lower: 1, Upper: 2, Label: LabelHistorical},
		{T: time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC), Point: 2, Lower: 1.25, Upper: 2.75, Label: LabelForecast},
	}

	var b bytes.Buffer
	require.NoError(t, RowsTable(rows).WriteCSV(&b))
	expected := "ds,yhat,yhat_lower,yhat_upper,label\n" +
		"2024-01-31,1.5,1,2,historical\n" +
		"2024-02-29,2,1.25,2.75,forecast\n"
	assert.Equal(t, expected, b.String())

	b.Reset()
	require.NoError(t, TablePrint(&b, rows))
	lines := strings.Split(strings.TrimSpace(b.String()), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[2], "2024-02-29")
	assert.Contains(t, lines[2], "2.7500")

	rows[0].T = rows[0].T.Add(90 * time.Minute)
	assert.Equal(t, "2024-01-31 01:30:00", RowsTable(rows).Rows[0][0])

	data, err := json.Marshal(ForecastRow{T: rows[1].T, Point: math.NaN(), Label: LabelForecast})
	require.NoError(t, err)
	assert.Contains(t, string(data), `"yhat":null`)
}
