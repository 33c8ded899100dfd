package csvfile

import (
	"context"
	"encoding/csv"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/climatescope/weather-etl/internal/aggregate"
	"github.com/climatescope/weather-etl/internal/domain"
	"github.com/climatescope/weather-etl/internal/pipeline"
	"github.com/climatescope/weather-etl/internal/stats"
)

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func writeTempCSV(t *testing.T, rows [][]string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "input.csv")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	w := csv.NewWriter(f)
	require.NoError(t, w.WriteAll(rows))
	return path
}

func TestReaderExtract(t *testing.T) {
	t.Run("parses rows and leaves blanks as NaN", func(t *testing.T) {
		path := writeTempCSV(t, [][]string{
			{"country", "location_name", "last_updated", "temperature_celsius", "humidity"},
			{"Albania", "Tirana", "2024-05-16 13:00", "19.1", "74"},
			{"Albania", "Tirana", "2024-05-16 14:00", "", "70"},
		})

		raws, err := NewReader(path, testLogger()).Extract(context.Background())
		require.NoError(t, err)
		require.Len(t, raws, 2)

		assert.Equal(t, "Albania", raws[0].Country)
		assert.Equal(t, "Tirana", raws[0].LocationName)
		assert.Equal(t, "2024-05-16 13:00", raws[0].LastUpdated)
		assert.Equal(t, 19.1, raws[0].TemperatureC)
		assert.Equal(t, 74.0, raws[0].Humidity)

		assert.True(t, math.IsNaN(raws[1].TemperatureC))
		assert.True(t, math.IsNaN(raws[1].WindKph), "absent columns stay NaN")
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := NewReader(filepath.Join(t.TempDir(), "nope.csv"), testLogger()).Extract(context.Background())
		assert.Error(t, err)
	})

	t.Run("unknown column rejected", func(t *testing.T) {
		path := writeTempCSV(t, [][]string{
			{"country", "location_name", "last_updated", "mystery"},
			{"Albania", "Tirana", "2024-05-16 13:00", "1"},
		})
		_, err := NewReader(path, testLogger()).Extract(context.Background())
		assert.ErrorContains(t, err, "mystery")
	})

	t.Run("missing required column rejected", func(t *testing.T) {
		path := writeTempCSV(t, [][]string{
			{"country", "temperature_celsius"},
			{"Albania", "19.1"},
		})
		_, err := NewReader(path, testLogger()).Extract(context.Background())
		assert.Error(t, err)
	})
}

func testResult(t *testing.T) *pipeline.Result {
	t.Helper()
	ts := time.Date(2024, 5, 16, 13, 0, 0, 0, time.UTC)
	obs := domain.Observation{
		ID:           "obs-0011223344556677",
		Country:      "Albania",
		LocationName: "Tirana",
		Latitude:     41.33,
		Longitude:    19.82,
		Timestamp:    ts,
		TemperatureC: 19.1,
		Humidity:     74,
		Year:         2024,
		Month:        5,
		Day:          16,
		Hour:         13,
		DayOfWeek:    "Thursday",
		Season:       "Spring",
		MovingAverages: map[domain.Metric]float64{
			domain.MetricTemperatureC: 19.1,
		},
		ProcessedAt: ts,
	}
	row := aggregate.Row{
		Country: "Albania",
		Period:  "2024-05-16",
		Season:  "Spring",
		Count:   1,
		Metrics: map[domain.Metric]aggregate.MetricStats{
			domain.MetricTemperatureC: {Mean: 19.1, Min: 19.1, Max: 19.1},
		},
	}
	return &pipeline.Result{
		Observations:   []domain.Observation{obs},
		Daily:          []aggregate.Row{row},
		Monthly:        []aggregate.Row{{Country: "Albania", Period: "2024-05", Count: 1, Metrics: row.Metrics}},
		SummaryMetrics: []domain.Metric{domain.MetricTemperatureC},
		Summaries: map[domain.Metric]stats.Summary{
			domain.MetricTemperatureC: stats.Describe([]float64{19.1}),
		},
		Correlation: stats.Correlate(
			[]string{"temperature_celsius", "humidity"},
			map[string][]float64{
				"temperature_celsius": {19.1, 21.0},
				"humidity":            {74, 68},
			},
		),
		Extremes: []aggregate.RuleResult{
			{
				Rule:      aggregate.Rule{Label: "extreme_heat", Metric: domain.MetricTemperatureC, Op: aggregate.OpGT, Threshold: 40},
				Count:     1,
				Percent:   50,
				ByCountry: map[string]int{"Albania": 1},
				ByMonth:   map[string]int{"2024-05": 1},
			},
		},
	}
}

func readArtifact(t *testing.T, dir, name string) [][]string {
	t.Helper()
	f, err := os.Open(filepath.Join(dir, name))
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestWriterLoad(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir, testLogger())
	result := testResult(t)
	require.NoError(t, w.Load(context.Background(), result))

	t.Run("all artifacts exist", func(t *testing.T) {
		for _, name := range []string{
			FileCleaned, FileDaily, FileMonthly,
			FileSummary, FileCorrelation, FileExtremes, FileBreakdown,
		} {
			_, err := os.Stat(filepath.Join(dir, name))
			assert.NoError(t, err, name)
		}
	})

	t.Run("cleaned rows", func(t *testing.T) {
		rows := readArtifact(t, dir, FileCleaned)
		require.Len(t, rows, 2)
		header, data := rows[0], rows[1]
		assert.Equal(t, "id", header[0])
		assert.Contains(t, header, "temperature_celsius")
		assert.Contains(t, header, "temperature_celsius_moving_avg")
		assert.Equal(t, "Albania", data[1])
		assert.Equal(t, "2024-05-16 13:00", data[6])
	})

	t.Run("daily aggregate columns", func(t *testing.T) {
		rows := readArtifact(t, dir, FileDaily)
		require.Len(t, rows, 2)
		assert.Equal(t, []string{"country", "date", "season", "count"}, rows[0][:4])
		assert.Contains(t, rows[0], "temperature_celsius_mean")
		assert.Equal(t, "Albania", rows[1][0])
		assert.Equal(t, "2024-05-16", rows[1][1])
	})

	t.Run("monthly period key", func(t *testing.T) {
		rows := readArtifact(t, dir, FileMonthly)
		require.Len(t, rows, 2)
		assert.Equal(t, "month", rows[0][1])
		assert.Equal(t, "2024-05", rows[1][1])
	})

	t.Run("summary statistics", func(t *testing.T) {
		rows := readArtifact(t, dir, FileSummary)
		require.Len(t, rows, 2)
		assert.Equal(t, "temperature_celsius", rows[1][0])
		assert.Equal(t, "1", rows[1][1])
		assert.Equal(t, "19.1", rows[1][2])
	})

	t.Run("correlation matrix is square with unit diagonal", func(t *testing.T) {
		rows := readArtifact(t, dir, FileCorrelation)
		require.Len(t, rows, 3)
		assert.Equal(t, []string{"metric", "temperature_celsius", "humidity"}, rows[0])
		assert.Equal(t, "1", rows[1][1])
		assert.Equal(t, "1", rows[2][2])
	})

	t.Run("extremes and breakdown", func(t *testing.T) {
		rows := readArtifact(t, dir, FileExtremes)
		require.Len(t, rows, 2)
		assert.Equal(t, []string{"extreme_heat", "temperature_celsius", "gt", "40", "1", "50"}, rows[1])

		breakdown := readArtifact(t, dir, FileBreakdown)
		require.Len(t, breakdown, 3)
		assert.Equal(t, []string{"extreme_heat", "country", "Albania", "1"}, breakdown[1])
		assert.Equal(t, []string{"extreme_heat", "month", "2024-05", "1"}, breakdown[2])
	})
}

func TestWriterDeterministic(t *testing.T) {
	dirA, dirB := t.TempDir(), t.TempDir()
	result := testResult(t)
	require.NoError(t, NewWriter(dirA, testLogger()).Load(context.Background(), result))
	require.NoError(t, NewWriter(dirB, testLogger()).Load(context.Background(), result))

	for _, name := range []string{FileCleaned, FileDaily, FileMonthly, FileSummary, FileCorrelation, FileExtremes, FileBreakdown} {
		a, err := os.ReadFile(filepath.Join(dirA, name))
		require.NoError(t, err)
		b, err := os.ReadFile(filepath.Join(dirB, name))
		require.NoError(t, err)
		assert.Equal(t, a, b, name)
	}
}
