package domain

import (
	"fmt"
	"math"
	"sort"
	"time"
)

// OutlierPolicy decides what happens to a value outside its valid range.
type OutlierPolicy string

const (
	// PolicyClip bounds the value to the nearest edge of the range.
	PolicyClip OutlierPolicy = "clip"
	// PolicyDrop removes the whole row instead. Some out-of-range values in
	// the source are documented as sensor faults, so dropping is a
	// legitimate alternative reading of the data.
	PolicyDrop OutlierPolicy = "drop"
)

// CleanConfig parameterizes the cleaning stage.
type CleanConfig struct {
	Ranges           map[Metric]Range
	OutlierPolicy    OutlierPolicy
	MovingAvgWindow  int
	MovingAvgMetrics []Metric
}

// DefaultCleanConfig returns the documented ranges, clip policy, and a
// 7-row trailing window over the headline metrics.
func DefaultCleanConfig() CleanConfig {
	return CleanConfig{
		Ranges:          DefaultRanges,
		OutlierPolicy:   PolicyClip,
		MovingAvgWindow: 7,
		MovingAvgMetrics: []Metric{
			MetricTemperatureC,
			MetricHumidity,
			MetricWindKph,
			MetricPrecipMm,
			MetricPressureMb,
			MetricUVIndex,
		},
	}
}

// timestampLayouts are tried in order against the free-text last_updated
// column. The plain "2006-01-02 15:04" form is what the dataset actually
// ships; the rest cover re-exported artifacts.
var timestampLayouts = []string{
	"2006-01-02 15:04",
	"2006-01-02 15:04:05",
	time.RFC3339,
	"2006-01-02T15:04",
	"2006-01-02",
}

// ParseTimestamp parses the free-text last_updated value in UTC.
func ParseTimestamp(s string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable timestamp %q", s)
}

// stampedRow pairs a raw row with its parsed timestamp through the
// intermediate cleaning steps.
type stampedRow struct {
	raw RawObservation
	ts  time.Time
}

// Clean runs the full cleaning sequence over raw rows: timestamp parsing,
// duplicate removal, median/mode imputation, range enforcement, derived
// columns, and trailing moving averages. Rows leave only through the
// documented drop paths; everything else is repaired in place.
//
// Cleaning is idempotent: feeding its own output back through (with the
// same config) changes nothing.
func Clean(raws []RawObservation, cfg CleanConfig) ([]Observation, CleanReport) {
	report := CleanReport{
		RowsIn:             len(raws),
		ImputedNumeric:     map[Metric]int{},
		ImputedCategorical: map[string]int{},
		ClippedValues:      map[Metric]int{},
	}

	// Timestamp parsing: the only unconditional drop path.
	rows := make([]stampedRow, 0, len(raws))
	for _, raw := range raws {
		ts, err := ParseTimestamp(raw.LastUpdated)
		if err != nil {
			report.DroppedBadTimestamp++
			continue
		}
		rows = append(rows, stampedRow{raw: raw, ts: ts})
	}

	// Full-row duplicate removal, first occurrence wins. The fingerprint
	// covers every field; NaN formats stably so missing cells compare equal.
	seen := make(map[string]bool, len(rows))
	deduped := rows[:0]
	for _, row := range rows {
		key := fmt.Sprintf("%v", row.raw)
		if seen[key] {
			report.DroppedDuplicate++
			continue
		}
		seen[key] = true
		deduped = append(deduped, row)
	}
	rows = deduped

	imputeNumeric(rows, &report)
	imputeCategorical(rows, &report)

	// Range enforcement.
	kept := rows[:0]
	for _, row := range rows {
		dropped := false
		for m, rng := range cfg.Ranges {
			acc := rawAccessors[m]
			v := acc.get(&row.raw)
			if rng.Contains(v) {
				continue
			}
			if cfg.OutlierPolicy == PolicyDrop {
				report.DroppedOutOfRange++
				dropped = true
				break
			}
			acc.set(&row.raw, rng.Clip(v))
			report.ClippedValues[m]++
		}
		if !dropped {
			kept = append(kept, row)
		}
	}
	rows = kept

	// Materialize cleaned observations with derived columns.
	now := clock.Now().UTC()
	observations := make([]Observation, 0, len(rows))
	for _, row := range rows {
		observations = append(observations, finalize(row.raw, row.ts, now))
	}

	// Deterministic output order: country, location, time ascending.
	sort.Slice(observations, func(i, j int) bool {
		a, b := observations[i], observations[j]
		if a.Country != b.Country {
			return a.Country < b.Country
		}
		if a.LocationName != b.LocationName {
			return a.LocationName < b.LocationName
		}
		return a.Timestamp.Before(b.Timestamp)
	})

	applyMovingAverages(observations, cfg)

	report.RowsOut = len(observations)
	return observations, report
}

// imputeNumeric fills NaN metric cells with the global column median.
// Latitude, longitude, and moon illumination get the same treatment under
// their column names; a column that is entirely missing imputes to zero.
func imputeNumeric(rows []stampedRow, report *CleanReport) {
	for _, m := range Metrics {
		acc := rawAccessors[m]
		med := columnMedian(rows, acc.get)
		for i := range rows {
			if math.IsNaN(acc.get(&rows[i].raw)) {
				acc.set(&rows[i].raw, med)
				report.ImputedNumeric[m]++
			}
		}
	}

	positional := []struct {
		metric Metric
		get    func(*RawObservation) float64
		set    func(*RawObservation, float64)
	}{
		{"latitude", func(r *RawObservation) float64 { return r.Latitude }, func(r *RawObservation, v float64) { r.Latitude = v }},
		{"longitude", func(r *RawObservation) float64 { return r.Longitude }, func(r *RawObservation, v float64) { r.Longitude = v }},
		{"moon_illumination", func(r *RawObservation) float64 { return r.MoonIllumination }, func(r *RawObservation, v float64) { r.MoonIllumination = v }},
	}
	for _, p := range positional {
		med := columnMedian(rows, p.get)
		for i := range rows {
			if math.IsNaN(p.get(&rows[i].raw)) {
				p.set(&rows[i].raw, med)
				report.ImputedNumeric[p.metric]++
			}
		}
	}
}

// columnMedian computes the median of the non-NaN values in one column.
func columnMedian(rows []stampedRow, get func(*RawObservation) float64) float64 {
	vals := make([]float64, 0, len(rows))
	for i := range rows {
		if v := get(&rows[i].raw); !math.IsNaN(v) {
			vals = append(vals, v)
		}
	}
	if len(vals) == 0 {
		return 0
	}
	sort.Float64s(vals)
	mid := len(vals) / 2
	if len(vals)%2 == 1 {
		return vals[mid]
	}
	return (vals[mid-1] + vals[mid]) / 2
}

// categoricalFields lists the free-text columns eligible for mode imputation.
var categoricalFields = []struct {
	name string
	get  func(*RawObservation) string
	set  func(*RawObservation, string)
}{
	{"country", func(r *RawObservation) string { return r.Country }, func(r *RawObservation, s string) { r.Country = s }},
	{"location_name", func(r *RawObservation) string { return r.LocationName }, func(r *RawObservation, s string) { r.LocationName = s }},
	{"timezone", func(r *RawObservation) string { return r.Timezone }, func(r *RawObservation, s string) { r.Timezone = s }},
	{"condition_text", func(r *RawObservation) string { return r.ConditionText }, func(r *RawObservation, s string) { r.ConditionText = s }},
	{"wind_direction", func(r *RawObservation) string { return r.WindDirection }, func(r *RawObservation, s string) { r.WindDirection = s }},
	{"moon_phase", func(r *RawObservation) string { return r.MoonPhase }, func(r *RawObservation, s string) { r.MoonPhase = s }},
}

// imputeCategorical fills empty categorical cells with the column mode.
// Ties break toward the lexicographically smallest value so reruns agree.
func imputeCategorical(rows []stampedRow, report *CleanReport) {
	for _, f := range categoricalFields {
		counts := map[string]int{}
		for i := range rows {
			if v := f.get(&rows[i].raw); v != "" {
				counts[v]++
			}
		}
		mode := ""
		best := 0
		for v, n := range counts {
			if n > best || (n == best && v < mode) {
				mode, best = v, n
			}
		}
		if mode == "" {
			continue
		}
		for i := range rows {
			if f.get(&rows[i].raw) == "" {
				f.set(&rows[i].raw, mode)
				report.ImputedCategorical[f.name]++
			}
		}
	}
}

// finalize converts a repaired raw row into a cleaned Observation with
// calendar fields and derived metrics.
func finalize(raw RawObservation, ts time.Time, processedAt time.Time) Observation {
	o := Observation{
		ID:           generateID(raw.LocationName, ts),
		Country:      raw.Country,
		LocationName: raw.LocationName,
		Latitude:     raw.Latitude,
		Longitude:    raw.Longitude,
		Timezone:     raw.Timezone,
		Timestamp:    ts,

		TemperatureC:  raw.TemperatureC,
		TemperatureF:  raw.TemperatureF,
		ConditionText: raw.ConditionText,
		WindKph:       raw.WindKph,
		WindMph:       raw.WindMph,
		WindDegree:    raw.WindDegree,
		WindDirection: raw.WindDirection,
		PressureMb:    raw.PressureMb,
		PressureIn:    raw.PressureIn,
		PrecipMm:      raw.PrecipMm,
		PrecipIn:      raw.PrecipIn,
		Humidity:      raw.Humidity,
		Cloud:         raw.Cloud,
		FeelsLikeC:    raw.FeelsLikeC,
		FeelsLikeF:    raw.FeelsLikeF,
		VisibilityKm:  raw.VisibilityKm,
		VisibilityMi:  raw.VisibilityMi,
		UVIndex:       raw.UVIndex,
		GustKph:       raw.GustKph,
		GustMph:       raw.GustMph,

		AirQualityCO:       raw.AirQualityCO,
		AirQualityOzone:    raw.AirQualityOzone,
		AirQualityNO2:      raw.AirQualityNO2,
		AirQualitySO2:      raw.AirQualitySO2,
		AirQualityPM25:     raw.AirQualityPM25,
		AirQualityPM10:     raw.AirQualityPM10,
		AirQualityEPAIndex: raw.AirQualityEPAIndex,
		AirQualityGBDefra:  raw.AirQualityGBDefra,

		Sunrise:          raw.Sunrise,
		Sunset:           raw.Sunset,
		Moonrise:         raw.Moonrise,
		Moonset:          raw.Moonset,
		MoonPhase:        raw.MoonPhase,
		MoonIllumination: raw.MoonIllumination,

		Year:      ts.Year(),
		Month:     int(ts.Month()),
		Day:       ts.Day(),
		Hour:      ts.Hour(),
		DayOfWeek: ts.Weekday().String(),
		Season:    SeasonOf(ts.Month()),

		ProcessedAt: processedAt,
	}
	o.HeatIndexC = HeatIndex(o.TemperatureC, o.Humidity)
	o.WindChillC = WindChill(o.TemperatureC, o.WindKph)
	return o
}

// SeasonOf maps a calendar month to its Northern-Hemisphere season.
func SeasonOf(m time.Month) string {
	switch m {
	case time.December, time.January, time.February:
		return "Winter"
	case time.March, time.April, time.May:
		return "Spring"
	case time.June, time.July, time.August:
		return "Summer"
	default:
		return "Fall"
	}
}
