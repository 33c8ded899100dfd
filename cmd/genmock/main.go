// Command genmock generates a deterministic synthetic raw weather CSV plus
// the cleaned fixture the pipeline is expected to produce from it. It runs
// the actual domain cleaning code under a fixed clock, so the fixture
// matches real pipeline behavior and stays stable across runs.
//
// Usage:
//
//	go run ./cmd/genmock \
//	  -csv-out data/mock/weather_raw.csv \
//	  -expect-out data/mock/weather_cleaned.json
package main

import (
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/climatescope/weather-etl/internal/domain"
)

const seed = 20240516

var baseDate = time.Date(2024, time.May, 1, 0, 0, 0, 0, time.UTC)

type site struct {
	country  string
	location string
	lat, lon float64
	timezone string
	baseTemp float64
}

var sites = []site{
	{"Albania", "Tirana", 41.33, 19.82, "Europe/Tirane", 18},
	{"Japan", "Tokyo", 35.69, 139.69, "Asia/Tokyo", 21},
	{"Nigeria", "Lagos", 6.45, 3.39, "Africa/Lagos", 29},
	{"Peru", "Lima", -12.04, -77.03, "America/Lima", 19},
	{"Zimbabwe", "Harare", -17.83, 31.05, "Africa/Harare", 16},
}

var header = []string{
	"country", "location_name", "latitude", "longitude", "timezone",
	"last_updated", "temperature_celsius", "humidity", "wind_kph",
	"pressure_mb", "precip_mm", "uv_index", "air_quality_PM2.5",
	"condition_text",
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	csvOut := flag.String("csv-out", "", "output path for the raw CSV fixture")
	expectOut := flag.String("expect-out", "", "output path for the expected cleaned JSON fixture")
	days := flag.Int("days", 14, "number of days of hourly-ish readings per site")
	flag.Parse()

	if *csvOut == "" || *expectOut == "" {
		flag.Usage()
		return fmt.Errorf("missing required flags: -csv-out, -expect-out")
	}

	rows := generate(*days)
	if err := writeCSV(*csvOut, rows); err != nil {
		return fmt.Errorf("writing raw fixture: %w", err)
	}
	log.Printf("wrote raw fixture: %s (%d rows)", *csvOut, len(rows))

	// Freeze the clock so ProcessedAt is reproducible.
	domain.SetClock(clockwork.NewFakeClockAt(
		time.Date(2024, time.May, 20, 6, 0, 0, 0, time.UTC),
	))
	defer domain.SetClock(nil)

	observations, report, err := cleanRows(rows)
	if err != nil {
		return err
	}
	if err := writeJSON(*expectOut, observations); err != nil {
		return fmt.Errorf("writing cleaned fixture: %w", err)
	}
	log.Printf("wrote cleaned fixture: %s (%d observations)", *expectOut, len(observations))

	printStats(report)
	return nil
}

// generate produces one reading per site every 4 hours, with deterministic
// anomalies sprinkled in: blank cells, bad timestamps, out-of-range values,
// and exact duplicates. Anomaly positions depend only on the row index.
func generate(days int) [][]string {
	rng := rand.New(rand.NewSource(seed))
	var rows [][]string

	n := 0
	for day := 0; day < days; day++ {
		for hour := 0; hour < 24; hour += 4 {
			for _, s := range sites {
				ts := baseDate.AddDate(0, 0, day).Add(time.Duration(hour) * time.Hour)
				row := reading(rng, s, ts)
				n++

				switch {
				case n%23 == 0:
					row[6] = "250" // clips to the temperature ceiling
				case n%17 == 0:
					row[5] = "not-a-timestamp"
				case n%11 == 0:
					row[6] = "" // imputed from the column median
				case n%19 == 0:
					row[13] = "" // imputed from the column mode
				}

				rows = append(rows, row)
				if n%13 == 0 {
					dup := make([]string, len(row))
					copy(dup, row)
					rows = append(rows, dup)
				}
			}
		}
	}
	return rows
}

func reading(rng *rand.Rand, s site, ts time.Time) []string {
	conditions := []string{"Sunny", "Partly cloudy", "Overcast", "Light rain"}
	temp := s.baseTemp + rng.Float64()*10 - 5
	return []string{
		s.country,
		s.location,
		formatFloat(s.lat),
		formatFloat(s.lon),
		s.timezone,
		ts.Format("2006-01-02 15:04"),
		formatFloat(round1(temp)),
		strconv.Itoa(40 + rng.Intn(55)),
		formatFloat(round1(rng.Float64() * 30)),
		formatFloat(round1(995 + rng.Float64()*30)),
		formatFloat(round1(rng.Float64() * 5)),
		strconv.Itoa(1 + rng.Intn(10)),
		formatFloat(round1(rng.Float64() * 80)),
		conditions[rng.Intn(len(conditions))],
	}
}

func cleanRows(rows [][]string) ([]domain.Observation, domain.CleanReport, error) {
	binder, err := domain.BindHeader(header)
	if err != nil {
		return nil, domain.CleanReport{}, fmt.Errorf("bind header: %w", err)
	}
	raws := make([]domain.RawObservation, 0, len(rows))
	for i, row := range rows {
		raw, err := binder.ParseRecord(row)
		if err != nil {
			return nil, domain.CleanReport{}, fmt.Errorf("parse row %d: %w", i, err)
		}
		raws = append(raws, raw)
	}
	observations, report := domain.Clean(raws, domain.DefaultCleanConfig())
	return observations, report, nil
}

func writeCSV(path string, rows [][]string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return err
	}
	if err := w.WriteAll(rows); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}

func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o600)
}

func printStats(report domain.CleanReport) {
	fmt.Println("\n=== Stats for updating test assertions ===")
	fmt.Printf("Rows in: %d\n", report.RowsIn)
	fmt.Printf("Rows out: %d\n", report.RowsOut)
	fmt.Printf("Dropped bad timestamp: %d\n", report.DroppedBadTimestamp)
	fmt.Printf("Dropped duplicate: %d\n", report.DroppedDuplicate)
	fmt.Printf("Dropped out of range: %d\n", report.DroppedOutOfRange)
	for m, n := range report.ClippedValues {
		fmt.Printf("Clipped %s: %d\n", m, n)
	}
	for m, n := range report.ImputedNumeric {
		fmt.Printf("Imputed %s: %d\n", m, n)
	}
	for col, n := range report.ImputedCategorical {
		fmt.Printf("Imputed %s: %d\n", col, n)
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func round1(v float64) float64 {
	return float64(int(v*10+0.5)) / 10
}
