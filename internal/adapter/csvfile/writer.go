package csvfile

import (
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/climatescope/weather-etl/internal/aggregate"
	"github.com/climatescope/weather-etl/internal/domain"
	"github.com/climatescope/weather-etl/internal/pipeline"
)

// Artifact file names, one per derived table.
const (
	FileCleaned     = "cleaned_weather.csv"
	FileDaily       = "daily_country_avg.csv"
	FileMonthly     = "monthly_country_avg.csv"
	FileSummary     = "summary_statistics.csv"
	FileCorrelation = "correlation_matrix.csv"
	FileExtremes    = "extreme_events.csv"
	FileBreakdown   = "extreme_events_breakdown.csv"
)

// Writer persists a pipeline result as CSV artifacts in one directory.
// It implements pipeline.Loader.
type Writer struct {
	dir    string
	logger *slog.Logger
}

// NewWriter creates a Writer rooted at dir; the directory is created on Load.
func NewWriter(dir string, logger *slog.Logger) *Writer {
	return &Writer{dir: dir, logger: logger}
}

func (w *Writer) Name() string { return "csv" }

// Load writes every artifact. Output is deterministic: fixed column order,
// rows in the order the aggregator produced them.
func (w *Writer) Load(ctx context.Context, result *pipeline.Result) error {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	writes := []struct {
		file string
		fn   func(*csv.Writer, *pipeline.Result) error
	}{
		{FileCleaned, writeCleaned},
		{FileDaily, func(cw *csv.Writer, r *pipeline.Result) error { return writeAggregates(cw, r.Daily, "date") }},
		{FileMonthly, func(cw *csv.Writer, r *pipeline.Result) error { return writeAggregates(cw, r.Monthly, "month") }},
		{FileSummary, writeSummary},
		{FileCorrelation, writeCorrelation},
		{FileExtremes, writeExtremes},
		{FileBreakdown, writeBreakdown},
	}

	for _, job := range writes {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := w.writeFile(job.file, result, job.fn); err != nil {
			return err
		}
	}
	return nil
}

func (w *Writer) writeFile(name string, result *pipeline.Result, fn func(*csv.Writer, *pipeline.Result) error) error {
	path := filepath.Join(w.dir, name)
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", name, err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	if err := fn(cw, result); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush %s: %w", name, err)
	}
	w.logger.Debug("artifact written", "path", path)
	return nil
}

// cleanedExtras are the categorical and calendar columns that follow the
// metric block in the cleaned artifact.
var cleanedExtras = []string{
	"condition_text", "wind_direction", "sunrise", "sunset",
	"moonrise", "moonset", "moon_phase", "moon_illumination",
	"year", "month", "day", "hour", "day_of_week", "season",
	"heat_index_celsius", "wind_chill_celsius",
}

func writeCleaned(cw *csv.Writer, result *pipeline.Result) error {
	maMetrics := movingAvgMetrics(result.Observations)

	header := []string{"id", "country", "location_name", "latitude", "longitude", "timezone", "last_updated"}
	for _, m := range domain.Metrics {
		header = append(header, string(m))
	}
	header = append(header, cleanedExtras...)
	for _, m := range maMetrics {
		header = append(header, string(m)+"_moving_avg")
	}
	if err := cw.Write(header); err != nil {
		return err
	}

	for _, o := range result.Observations {
		row := []string{
			o.ID, o.Country, o.LocationName,
			formatFloat(o.Latitude), formatFloat(o.Longitude),
			o.Timezone, o.Timestamp.Format("2006-01-02 15:04"),
		}
		for _, m := range domain.Metrics {
			v, _ := o.Value(m)
			row = append(row, formatFloat(v))
		}
		row = append(row,
			o.ConditionText, o.WindDirection, o.Sunrise, o.Sunset,
			o.Moonrise, o.Moonset, o.MoonPhase, formatFloat(o.MoonIllumination),
			strconv.Itoa(o.Year), strconv.Itoa(o.Month), strconv.Itoa(o.Day), strconv.Itoa(o.Hour),
			o.DayOfWeek, o.Season,
			formatFloat(o.HeatIndexC), formatFloat(o.WindChillC),
		)
		for _, m := range maMetrics {
			row = append(row, formatFloat(o.MovingAverages[m]))
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	return nil
}

// movingAvgMetrics recovers the configured moving-average metric set from
// the first observation, sorted for a stable column order.
func movingAvgMetrics(observations []domain.Observation) []domain.Metric {
	if len(observations) == 0 {
		return nil
	}
	metrics := make([]domain.Metric, 0, len(observations[0].MovingAverages))
	for m := range observations[0].MovingAverages {
		metrics = append(metrics, m)
	}
	sort.Slice(metrics, func(i, j int) bool { return metrics[i] < metrics[j] })
	return metrics
}

func writeAggregates(cw *csv.Writer, rows []aggregate.Row, periodName string) error {
	header := []string{"country", periodName, "season", "count"}
	for _, m := range domain.Metrics {
		header = append(header,
			string(m)+"_mean", string(m)+"_min", string(m)+"_max", string(m)+"_std")
	}
	if err := cw.Write(header); err != nil {
		return err
	}

	for _, row := range rows {
		record := []string{row.Country, row.Period, row.Season, strconv.Itoa(row.Count)}
		for _, m := range domain.Metrics {
			s := row.Metrics[m]
			record = append(record,
				formatFloat(s.Mean), formatFloat(s.Min), formatFloat(s.Max), formatFloat(s.Std))
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	return nil
}

func writeSummary(cw *csv.Writer, result *pipeline.Result) error {
	header := []string{"metric", "count", "mean", "median", "std", "min", "max", "q1", "q3", "skewness", "kurtosis"}
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, m := range result.SummaryMetrics {
		s := result.Summaries[m]
		record := []string{
			string(m), strconv.Itoa(s.Count),
			formatFloat(s.Mean), formatFloat(s.Median), formatFloat(s.Std),
			formatFloat(s.Min), formatFloat(s.Max),
			formatFloat(s.Q1), formatFloat(s.Q3),
			formatFloat(s.Skewness), formatFloat(s.Kurtosis),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	return nil
}

func writeCorrelation(cw *csv.Writer, result *pipeline.Result) error {
	header := append([]string{"metric"}, result.Correlation.Names...)
	if err := cw.Write(header); err != nil {
		return err
	}
	for i, name := range result.Correlation.Names {
		record := make([]string, 0, len(header))
		record = append(record, name)
		for _, v := range result.Correlation.Matrix[i] {
			record = append(record, formatFloat(v))
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	return nil
}

func writeExtremes(cw *csv.Writer, result *pipeline.Result) error {
	if err := cw.Write([]string{"label", "metric", "op", "threshold", "count", "percent"}); err != nil {
		return err
	}
	for _, res := range result.Extremes {
		record := []string{
			res.Rule.Label, string(res.Rule.Metric), string(res.Rule.Op),
			formatFloat(res.Rule.Threshold),
			strconv.Itoa(res.Count), formatFloat(res.Percent),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	return nil
}

func writeBreakdown(cw *csv.Writer, result *pipeline.Result) error {
	if err := cw.Write([]string{"label", "scope", "key", "count"}); err != nil {
		return err
	}
	for _, res := range result.Extremes {
		for _, country := range res.Countries() {
			record := []string{res.Rule.Label, "country", country, strconv.Itoa(res.ByCountry[country])}
			if err := cw.Write(record); err != nil {
				return err
			}
		}
		for _, month := range res.Months() {
			record := []string{res.Rule.Label, "month", month, strconv.Itoa(res.ByMonth[month])}
			if err := cw.Write(record); err != nil {
				return err
			}
		}
	}
	return nil
}

// formatFloat renders floats with the shortest exact representation so
// reruns produce byte-identical artifacts.
func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
