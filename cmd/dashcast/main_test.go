package main

import (
	"bytes"
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dashcast/dashcast/internal/config"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) {
	t.Helper()
	cfg = config.Default()
	log = zerolog.Nop()
}

func writeSimulated(t *testing.T, months int) string {
	t.Helper()
	start := time.Date(2021, 1, 31, 0, 0, 0, 0, time.UTC)
	tbl, err := simulateTable(simulateFlags{months: months, level: 100, amp: 10, noise: 1, seed: 7}, start)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "series.csv")
	require.NoError(t, writeTableFile(path, tbl.WriteCSV))
	return path
}

func TestSimulateTable(t *testing.T) {
	start := time.Date(2021, 1, 31, 0, 0, 0, 0, time.UTC)
	tbl, err := simulateTable(simulateFlags{months: 24, level: 100, amp: 10, noise: 0, seed: 1}, start)
	require.NoError(t, err)
	require.Equal(t, 24, tbl.Len())
	assert.Equal(t, []string{"ds", "y"}, tbl.Columns)
	assert.Equal(t, "2021-01-31", tbl.Rows[0][0])
	assert.Equal(t, "2021-02-28", tbl.Rows[1][0])
	assert.Equal(t, "2022-12-31", tbl.Rows[23][0])

	empty, err := simulateTable(simulateFlags{months: 0}, start)
	require.NoError(t, err)
	assert.Equal(t, 0, empty.Len())
}

func TestSimulatePromoAndGap(t *testing.T) {
	start := time.Date(2021, 1, 31, 0, 0, 0, 0, time.UTC)
	base := simulateFlags{months: 12, level: 100, seed: 1}

	flat, err := simulateTable(base, start)
	require.NoError(t, err)

	promo := base
	promo.promoStart, promo.promoEnd, promo.promoLift = "2021-03-01", "2021-04-30", 20
	lifted, err := simulateTable(promo, start)
	require.NoError(t, err)
	for i, row := range lifted.Rows {
		expected := flat.Rows[i][1]
		if row[0] == "2021-03-31" || row[0] == "2021-04-30" {
			assert.NotEqual(t, expected, row[1], row[0])
			continue
		}
		assert.Equal(t, expected, row[1], row[0])
	}

	gap := base
	gap.gapStart, gap.gapEnd = "2021-06-01", "2021-08-31"
	holes, err := simulateTable(gap, start)
	require.NoError(t, err)
	var empty []string
	for _, row := range holes.Rows {
		if row[1] == "" {
			empty = append(empty, row[0])
		}
	}
	assert.Equal(t, []string{"2021-06-30", "2021-07-31"}, empty)

	gap.gapEnd = "2021-05-01"
	_, err = simulateTable(gap, start)
	assert.ErrorContains(t, err, "gap")
}

func TestRunForecast(t *testing.T) {
	setup(t)
	path := writeSimulated(t, 36)

	testData := map[string]struct {
		flags    forecastFlags
		contains []string
		err      string
	}{
		"short table": {
			flags: forecastFlags{
				file: path, dateColumn: "ds", valueColumn: "y", history: 24, horizon: "short", now: "2023-06-30",
			},
			contains: []string{"Lower", "2024-03-31", "MAPE:"},
		},
		"long json": {
			flags: forecastFlags{
				file: path, dateColumn: "ds", valueColumn: "y", horizon: "long", now: "2023-06-30", json: true,
			},
			contains: []string{`"rows"`, `"2024-06-30T00:00:00Z"`},
		},
		"bad horizon": {
			flags: forecastFlags{file: path, dateColumn: "ds", valueColumn: "y", horizon: "weekly"},
			err:   "horizon",
		},
		"bad now": {
			flags: forecastFlags{file: path, dateColumn: "ds", valueColumn: "y", horizon: "short", now: "June"},
			err:   "--now",
		},
		"no source": {
			flags: forecastFlags{horizon: "short"},
			err:   "--file or --sqlite",
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			var out bytes.Buffer
			err := runForecast(context.Background(), &out, td.flags)
			if td.err != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), td.err)
				return
			}
			require.NoError(t, err)
			for _, c := range td.contains {
				assert.Contains(t, out.String(), c)
			}
		})
	}
}

func TestRunForecastOutputs(t *testing.T) {
	setup(t)
	path := writeSimulated(t, 36)
	dir := t.TempDir()
	htmlPath := filepath.Join(dir, "forecast.html")
	modelPath := filepath.Join(dir, "model.json")

	var out bytes.Buffer
	err := runForecast(context.Background(), &out, forecastFlags{
		file:        path,
		dateColumn:  "ds",
		valueColumn: "y",
		horizon:     "short",
		now:         "2023-12-31",
		html:        htmlPath,
		model:       modelPath,
	})
	require.NoError(t, err)

	page, err := os.ReadFile(htmlPath)
	require.NoError(t, err)
	assert.Contains(t, string(page), "echarts")

	data, err := os.ReadFile(modelPath)
	require.NoError(t, err)
	var model map[string]any
	require.NoError(t, json.Unmarshal(data, &model))
	assert.Contains(t, model, "series_model")
	points, ok := model["training_points"].(float64)
	require.True(t, ok)
	assert.LessOrEqual(t, points, 30.0)
	assert.Greater(t, points, 20.0)
}

func TestRunForecastSQLite(t *testing.T) {
	setup(t)
	dbPath := filepath.Join(t.TempDir(), "warehouse.db")

	db, err := sql.Open("sqlite", dbPath)
	require.NoError(t, err)
	_, err = db.Exec(`create table pnl (ds text, y real)`)
	require.NoError(t, err)
	for i, ds := range []string{"2024-01-31", "2024-02-29", "2024-03-31", "2024-04-30"} {
		_, err = db.Exec(`insert into pnl values (?, ?)`, ds, float64(10+i))
		require.NoError(t, err)
	}
	require.NoError(t, db.Close())

	var out bytes.Buffer
	err = runForecast(context.Background(), &out, forecastFlags{
		sqlitePath:  dbPath,
		query:       "select ds, y from pnl order by ds",
		dateColumn:  "ds",
		valueColumn: "y",
		horizon:     "short",
		now:         "2024-04-30",
	})
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	assert.Equal(t, "History: 4 points from 2024-01-31 to 2024-04-30", lines[0])
	assert.Contains(t, lines[2], "Label")
	assert.Contains(t, out.String(), "2024-07-31")
	assert.Contains(t, out.String(), "forecast")
}

func TestStartProfile(t *testing.T) {
	assert.NoError(t, startProfile(""))
	assert.ErrorContains(t, startProfile("block"), "unknown profile mode")
}

func TestRunFlushesProfileOnError(t *testing.T) {
	t.Chdir(t.TempDir())

	err := run([]string{"--profile", "cpu", "forecast", "--horizon", "short"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--file or --sqlite")
	assert.Nil(t, stopProfile)

	info, err := os.Stat("cpu.pprof")
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}
