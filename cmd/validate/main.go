// Command validate performs end-to-end data integrity checks on the weather
// pipeline: it cleans a raw CSV with the actual domain code and verifies row
// accounting, range invariants, ordering, aggregation consistency, and
// idempotence. With -expect-json it also compares the cleaned output against
// a genmock fixture.
//
// Usage:
//
//	go run ./cmd/validate \
//	  -raw-csv data/mock/weather_raw.csv \
//	  -expect-json data/mock/weather_cleaned.json
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"reflect"
	"sort"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/climatescope/weather-etl/internal/adapter/csvfile"
	"github.com/climatescope/weather-etl/internal/aggregate"
	"github.com/climatescope/weather-etl/internal/domain"
)

// fixtureClock matches genmock so ProcessedAt and IDs reproduce exactly.
var fixtureClock = time.Date(2024, time.May, 20, 6, 0, 0, 0, time.UTC)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	rawCSV := flag.String("raw-csv", "", "path to the raw weather CSV")
	expectJSON := flag.String("expect-json", "", "optional path to the expected cleaned JSON fixture")
	flag.Parse()

	if *rawCSV == "" {
		flag.Usage()
		os.Exit(1)
	}

	if code := run(*rawCSV, *expectJSON); code != 0 {
		os.Exit(code)
	}
}

func run(rawCSVPath, expectJSONPath string) int {
	domain.SetClock(clockwork.NewFakeClockAt(fixtureClock))
	defer domain.SetClock(nil)

	fmt.Println("=== Weather Data Integrity Validation ===")
	fmt.Println()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	raws, err := csvfile.NewReader(rawCSVPath, logger).Extract(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: read raw CSV: %v\n", err)
		return 1
	}

	cfg := domain.DefaultCleanConfig()
	observations, report := domain.Clean(raws, cfg)

	phases := []*phase{
		validateRowAccounting(report),
		validateRanges(observations, cfg),
		validateOrdering(observations),
		validateAggregation(observations),
		validateIdempotence(observations, report, cfg),
	}
	if expectJSONPath != "" {
		phases = append(phases, validateFixture(observations, expectJSONPath))
	}

	fmt.Println()
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	fmt.Println()
	fmt.Printf("Rows: %d raw, %d cleaned (%d bad timestamp, %d duplicate, %d out of range)\n",
		report.RowsIn, report.RowsOut,
		report.DroppedBadTimestamp, report.DroppedDuplicate, report.DroppedOutOfRange)

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

// ── Phase 1: Row Accounting ──
// Every input row must be accounted for: kept or dropped for exactly one
// reason.

func validateRowAccounting(report domain.CleanReport) *phase {
	p := &phase{name: "Phase 1: Row Accounting"}

	accounted := report.RowsOut + report.DroppedBadTimestamp +
		report.DroppedDuplicate + report.DroppedOutOfRange
	if accounted != report.RowsIn {
		p.errorf("rows_in=%d but out+dropped=%d", report.RowsIn, accounted)
	}
	if report.RowsOut < 0 || report.RowsIn < 0 {
		p.errorf("negative row counts: in=%d out=%d", report.RowsIn, report.RowsOut)
	}
	return p
}

// ── Phase 2: Range Invariant ──
// Under the clip policy every surviving value must lie inside its
// documented physical range.

func validateRanges(observations []domain.Observation, cfg domain.CleanConfig) *phase {
	p := &phase{name: "Phase 2: Range Invariant"}

	for i := range observations {
		o := &observations[i]
		for m, rng := range cfg.Ranges {
			v, ok := o.Value(m)
			if !ok || math.IsNaN(v) {
				continue
			}
			if !rng.Contains(v) {
				p.errorf("%s: %s=%g outside [%g, %g]", o.ID, m, v, rng.Min, rng.Max)
			}
		}
	}
	return p
}

// ── Phase 3: Ordering and Identity ──

func validateOrdering(observations []domain.Observation) *phase {
	p := &phase{name: "Phase 3: Ordering and Identity"}

	sorted := sort.SliceIsSorted(observations, func(i, j int) bool {
		a, b := observations[i], observations[j]
		if a.Country != b.Country {
			return a.Country < b.Country
		}
		if a.LocationName != b.LocationName {
			return a.LocationName < b.LocationName
		}
		return a.Timestamp.Before(b.Timestamp)
	})
	if !sorted {
		p.errorf("observations are not sorted by (country, location, timestamp)")
	}

	seen := make(map[string]int, len(observations))
	for i := range observations {
		id := observations[i].ID
		if id == "" {
			p.errorf("observation %d has an empty ID", i)
			continue
		}
		if j, dup := seen[id]; dup {
			p.errorf("duplicate ID %s at positions %d and %d", id, j, i)
		}
		seen[id] = i
	}
	return p
}

// ── Phase 4: Aggregation Consistency ──
// Group counts must sum to the cleaned row count, and each group's mean
// must equal the mean of its constituent observations.

func validateAggregation(observations []domain.Observation) *phase {
	p := &phase{name: "Phase 4: Aggregation Consistency"}

	for _, grain := range []struct {
		name   string
		rows   []aggregate.Row
		period func(domain.Observation) string
	}{
		{"daily", aggregate.Daily(observations), domain.Observation.Date},
		{"monthly", aggregate.Monthly(observations), domain.Observation.MonthKey},
	} {
		total := 0
		for _, row := range grain.rows {
			total += row.Count
		}
		if total != len(observations) {
			p.errorf("%s: group counts sum to %d, want %d", grain.name, total, len(observations))
		}

		for _, row := range grain.rows {
			var sum float64
			var n int
			for i := range observations {
				o := &observations[i]
				if o.Country != row.Country || grain.period(*o) != row.Period {
					continue
				}
				if v, ok := o.Value(domain.MetricTemperatureC); ok && !math.IsNaN(v) {
					sum += v
					n++
				}
			}
			if n == 0 {
				continue
			}
			want := sum / float64(n)
			got := row.Metrics[domain.MetricTemperatureC].Mean
			if math.Abs(want-got) > 1e-9 {
				p.errorf("%s %s/%s: temperature mean %g, recomputed %g", grain.name, row.Country, row.Period, got, want)
			}
		}
	}
	return p
}

// ── Phase 5: Idempotence ──
// Cleaning already-clean data must change nothing.

func validateIdempotence(observations []domain.Observation, report domain.CleanReport, cfg domain.CleanConfig) *phase {
	p := &phase{name: "Phase 5: Idempotence"}

	raws := make([]domain.RawObservation, len(observations))
	for i := range observations {
		raws[i] = projectRaw(&observations[i])
	}
	again, rereport := domain.Clean(raws, cfg)

	if rereport.RowsOut != report.RowsOut {
		p.errorf("second pass kept %d rows, first kept %d", rereport.RowsOut, report.RowsOut)
	}
	if rereport.DroppedDuplicate+rereport.DroppedBadTimestamp+rereport.DroppedOutOfRange > 0 {
		p.errorf("second pass dropped rows from already-clean data")
	}
	if len(again) == len(observations) && !reflect.DeepEqual(again, observations) {
		for i := range again {
			if !reflect.DeepEqual(again[i], observations[i]) {
				p.errorf("observation %d differs after re-cleaning (ID %s)", i, observations[i].ID)
				break
			}
		}
	}
	return p
}

// projectRaw maps a cleaned observation back to its raw shape so it can be
// fed through the cleaner again.
func projectRaw(o *domain.Observation) domain.RawObservation {
	raw := domain.RawObservation{
		Country:          o.Country,
		LocationName:     o.LocationName,
		Latitude:         o.Latitude,
		Longitude:        o.Longitude,
		Timezone:         o.Timezone,
		LastUpdated:      o.Timestamp.Format("2006-01-02 15:04"),
		ConditionText:    o.ConditionText,
		WindDirection:    o.WindDirection,
		Sunrise:          o.Sunrise,
		Sunset:           o.Sunset,
		Moonrise:         o.Moonrise,
		Moonset:          o.Moonset,
		MoonPhase:        o.MoonPhase,
		MoonIllumination: o.MoonIllumination,
	}
	for _, m := range domain.Metrics {
		if v, ok := o.Value(m); ok {
			domain.SetRawMetric(&raw, m, v)
		}
	}
	return raw
}

// ── Phase 6: Fixture Parity ──

func validateFixture(observations []domain.Observation, path string) *phase {
	p := &phase{name: "Phase 6: Fixture Parity"}

	data, err := os.ReadFile(path)
	if err != nil {
		p.errorf("read fixture: %v", err)
		return p
	}
	var expected []domain.Observation
	if err := json.Unmarshal(data, &expected); err != nil {
		p.errorf("parse fixture: %v", err)
		return p
	}

	if len(expected) != len(observations) {
		p.errorf("fixture has %d observations, pipeline produced %d", len(expected), len(observations))
		return p
	}
	for i := range expected {
		if expected[i].ID != observations[i].ID {
			p.errorf("position %d: fixture ID %s, pipeline ID %s", i, expected[i].ID, observations[i].ID)
			continue
		}
		if !observationsEqual(&expected[i], &observations[i]) {
			p.errorf("ID %s: fixture and pipeline output differ", expected[i].ID)
		}
	}
	return p
}

// observationsEqual compares two observations, treating NaN as equal to NaN
// (JSON round-trips cannot carry NaN, so fixtures never contain it, but the
// comparison stays total).
func observationsEqual(a, b *domain.Observation) bool {
	for _, m := range domain.Metrics {
		av, _ := a.Value(m)
		bv, _ := b.Value(m)
		if math.IsNaN(av) && math.IsNaN(bv) {
			continue
		}
		if math.Abs(av-bv) > 1e-9 {
			return false
		}
	}
	return a.Country == b.Country &&
		a.LocationName == b.LocationName &&
		a.Timestamp.Equal(b.Timestamp) &&
		a.Season == b.Season &&
		a.DayOfWeek == b.DayOfWeek
}
