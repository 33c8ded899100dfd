package domain

import (
	"math"
	"strconv"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testCountry  = "Testland"
	testLocation = "Testville"
)

// testRaw builds a fully populated raw row so cleaning has nothing to impute
// unless a test blanks a field on purpose.
func testRaw(ts string, tempC float64) RawObservation {
	raw := RawObservation{
		Country:       testCountry,
		LocationName:  testLocation,
		Latitude:      10.5,
		Longitude:     -3.25,
		Timezone:      "Etc/UTC",
		LastUpdated:   ts,
		ConditionText: "Clear",
		WindDirection: "NW",
		MoonPhase:     "Full Moon",

		TemperatureC:       tempC,
		TemperatureF:       tempC*9/5 + 32,
		WindKph:            12,
		WindMph:            7.5,
		WindDegree:         310,
		PressureMb:         1013,
		PressureIn:         29.9,
		PrecipMm:           0.4,
		PrecipIn:           0.02,
		Humidity:           55,
		Cloud:              20,
		FeelsLikeC:         tempC,
		FeelsLikeF:         tempC*9/5 + 32,
		VisibilityKm:       10,
		VisibilityMi:       6,
		UVIndex:            4,
		GustKph:            18,
		GustMph:            11,
		AirQualityCO:       230,
		AirQualityOzone:    60,
		AirQualityNO2:      12,
		AirQualitySO2:      4,
		AirQualityPM25:     15,
		AirQualityPM10:     22,
		AirQualityEPAIndex: 1,
		AirQualityGBDefra:  2,
		MoonIllumination:   78,
	}
	return raw
}

func TestClean_DropsUnparseableTimestamps(t *testing.T) {
	raws := []RawObservation{
		testRaw("2024-05-10 14:00", 21),
		testRaw("not-a-date", 22),
		testRaw("2024-05-10 15:00", 23),
	}

	cleaned, report := Clean(raws, DefaultCleanConfig())

	assert.Len(t, cleaned, 2)
	assert.Equal(t, 1, report.DroppedBadTimestamp)
	assert.Equal(t, report.RowsIn-report.DroppedBadTimestamp, report.RowsOut)
}

func TestClean_RowCountConservation(t *testing.T) {
	var raws []RawObservation
	for i := 0; i < 20; i++ {
		raws = append(raws, testRaw("2024-05-"+twoDigit(i+1)+" 12:00", float64(10+i)))
	}
	raws = append(raws, testRaw("garbage", 99))

	cleaned, report := Clean(raws, DefaultCleanConfig())

	assert.Equal(t, len(raws)-1, len(cleaned))
	assert.Equal(t, report.RowsIn-report.DroppedBadTimestamp-report.DroppedDuplicate-report.DroppedOutOfRange, report.RowsOut)
}

func TestClean_ClipsOutOfRangeTemperature(t *testing.T) {
	raws := []RawObservation{testRaw("2024-05-10 14:00", 250)}

	cleaned, report := Clean(raws, DefaultCleanConfig())

	require.Len(t, cleaned, 1)
	assert.Equal(t, 60.0, cleaned[0].TemperatureC)
	assert.Equal(t, 1, report.ClippedValues[MetricTemperatureC])
}

func TestClean_DropPolicyRemovesOutOfRangeRows(t *testing.T) {
	cfg := DefaultCleanConfig()
	cfg.OutlierPolicy = PolicyDrop

	raws := []RawObservation{
		testRaw("2024-05-10 14:00", 250),
		testRaw("2024-05-10 15:00", 21),
	}

	cleaned, report := Clean(raws, cfg)

	require.Len(t, cleaned, 1)
	assert.Equal(t, 21.0, cleaned[0].TemperatureC)
	assert.Equal(t, 1, report.DroppedOutOfRange)
	assert.Empty(t, report.ClippedValues)
}

func TestClean_RangeInvariantHoldsForAllMetrics(t *testing.T) {
	raws := []RawObservation{
		testRaw("2024-05-10 14:00", 21),
		testRaw("2024-05-10 15:00", -300),
	}
	raws[0].Humidity = 180
	raws[0].PrecipMm = -5
	raws[1].UVIndex = 99
	raws[1].AirQualityPM10 = -40

	cleaned, _ := Clean(raws, DefaultCleanConfig())

	require.Len(t, cleaned, 2)
	for _, o := range cleaned {
		for m, rng := range DefaultRanges {
			v, ok := o.Value(m)
			require.True(t, ok, string(m))
			assert.GreaterOrEqual(t, v, rng.Min, string(m))
			assert.LessOrEqual(t, v, rng.Max, string(m))
		}
	}
}

func TestClean_DeduplicatesIdenticalRows(t *testing.T) {
	row := testRaw("2024-05-10 14:00", 21)
	raws := []RawObservation{row, row, testRaw("2024-05-10 15:00", 22)}

	cleaned, report := Clean(raws, DefaultCleanConfig())

	assert.Len(t, cleaned, 2)
	assert.Equal(t, 1, report.DroppedDuplicate)
}

func TestClean_ImputesNumericWithColumnMedian(t *testing.T) {
	raws := []RawObservation{
		testRaw("2024-05-10 12:00", 10),
		testRaw("2024-05-10 13:00", 20),
		testRaw("2024-05-10 14:00", 30),
	}
	raws[1].Humidity = math.NaN()
	raws[0].Humidity = 40
	raws[2].Humidity = 60

	cleaned, report := Clean(raws, DefaultCleanConfig())

	require.Len(t, cleaned, 3)
	assert.Equal(t, 1, report.ImputedNumeric[MetricHumidity])
	// Median of the two present values {40, 60} is 50.
	assert.Equal(t, 50.0, cleaned[1].Humidity)
}

func TestClean_ImputesCategoricalWithColumnMode(t *testing.T) {
	raws := []RawObservation{
		testRaw("2024-05-10 12:00", 10),
		testRaw("2024-05-10 13:00", 20),
		testRaw("2024-05-10 14:00", 30),
	}
	raws[0].ConditionText = "Rain"
	raws[1].ConditionText = "Rain"
	raws[2].ConditionText = ""

	cleaned, report := Clean(raws, DefaultCleanConfig())

	require.Len(t, cleaned, 3)
	assert.Equal(t, 1, report.ImputedCategorical["condition_text"])
	for _, o := range cleaned {
		assert.NotEmpty(t, o.ConditionText)
	}
	assert.Equal(t, "Rain", cleaned[2].ConditionText)
}

func TestClean_DerivesCalendarFields(t *testing.T) {
	raws := []RawObservation{testRaw("2024-01-15 09:30", 5)}

	cleaned, _ := Clean(raws, DefaultCleanConfig())

	require.Len(t, cleaned, 1)
	o := cleaned[0]
	assert.Equal(t, 2024, o.Year)
	assert.Equal(t, 1, o.Month)
	assert.Equal(t, 15, o.Day)
	assert.Equal(t, 9, o.Hour)
	assert.Equal(t, "Monday", o.DayOfWeek)
	assert.Equal(t, "Winter", o.Season)
	assert.Equal(t, "2024-01-15", o.Date())
	assert.Equal(t, "2024-01", o.MonthKey())
}

func TestClean_StampsProcessedAtFromClock(t *testing.T) {
	frozen := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	SetClock(clockwork.NewFakeClockAt(frozen))
	defer SetClock(nil)

	cleaned, _ := Clean([]RawObservation{testRaw("2024-05-10 14:00", 21)}, DefaultCleanConfig())

	require.Len(t, cleaned, 1)
	assert.Equal(t, frozen, cleaned[0].ProcessedAt)
}

func TestClean_DeterministicIDs(t *testing.T) {
	raws := []RawObservation{testRaw("2024-05-10 14:00", 21)}

	first, _ := Clean(raws, DefaultCleanConfig())
	second, _ := Clean(raws, DefaultCleanConfig())

	require.Len(t, first, 1)
	require.Len(t, second, 1)
	assert.Equal(t, first[0].ID, second[0].ID)
	assert.NotEmpty(t, first[0].ID)
}

func TestClean_Idempotent(t *testing.T) {
	frozen := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	SetClock(clockwork.NewFakeClockAt(frozen))
	defer SetClock(nil)

	raws := []RawObservation{
		testRaw("2024-05-10 14:00", 250), // clipped on first pass
		testRaw("2024-05-11 14:00", 21),
		testRaw("2024-05-12 14:00", 18),
	}
	raws[1].Humidity = math.NaN() // imputed on first pass

	cfg := DefaultCleanConfig()
	once, _ := Clean(raws, cfg)
	twice, report := Clean(rawsFromObservations(once), cfg)

	assert.Equal(t, once, twice)
	assert.Zero(t, report.DroppedBadTimestamp)
	assert.Zero(t, report.DroppedDuplicate)
	assert.Empty(t, report.ImputedNumeric)
	assert.Empty(t, report.ClippedValues)
}

// rawsFromObservations projects cleaned observations back onto raw rows,
// simulating a re-ingest of the cleaned output's source columns.
func rawsFromObservations(observations []Observation) []RawObservation {
	raws := make([]RawObservation, len(observations))
	for i, o := range observations {
		raws[i] = RawObservation{
			Country:            o.Country,
			LocationName:       o.LocationName,
			Latitude:           o.Latitude,
			Longitude:          o.Longitude,
			Timezone:           o.Timezone,
			LastUpdated:        o.Timestamp.Format("2006-01-02 15:04"),
			TemperatureC:       o.TemperatureC,
			TemperatureF:       o.TemperatureF,
			ConditionText:      o.ConditionText,
			WindKph:            o.WindKph,
			WindMph:            o.WindMph,
			WindDegree:         o.WindDegree,
			WindDirection:      o.WindDirection,
			PressureMb:         o.PressureMb,
			PressureIn:         o.PressureIn,
			PrecipMm:           o.PrecipMm,
			PrecipIn:           o.PrecipIn,
			Humidity:           o.Humidity,
			Cloud:              o.Cloud,
			FeelsLikeC:         o.FeelsLikeC,
			FeelsLikeF:         o.FeelsLikeF,
			VisibilityKm:       o.VisibilityKm,
			VisibilityMi:       o.VisibilityMi,
			UVIndex:            o.UVIndex,
			GustKph:            o.GustKph,
			GustMph:            o.GustMph,
			AirQualityCO:       o.AirQualityCO,
			AirQualityOzone:    o.AirQualityOzone,
			AirQualityNO2:      o.AirQualityNO2,
			AirQualitySO2:      o.AirQualitySO2,
			AirQualityPM25:     o.AirQualityPM25,
			AirQualityPM10:     o.AirQualityPM10,
			AirQualityEPAIndex: o.AirQualityEPAIndex,
			AirQualityGBDefra:  o.AirQualityGBDefra,
			Sunrise:            o.Sunrise,
			Sunset:             o.Sunset,
			Moonrise:           o.Moonrise,
			Moonset:            o.Moonset,
			MoonPhase:          o.MoonPhase,
			MoonIllumination:   o.MoonIllumination,
		}
	}
	return raws
}

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    time.Time
		wantErr bool
	}{
		{"dataset layout", "2024-05-10 14:30", time.Date(2024, 5, 10, 14, 30, 0, 0, time.UTC), false},
		{"with seconds", "2024-05-10 14:30:15", time.Date(2024, 5, 10, 14, 30, 15, 0, time.UTC), false},
		{"rfc3339", "2024-05-10T14:30:00Z", time.Date(2024, 5, 10, 14, 30, 0, 0, time.UTC), false},
		{"date only", "2024-05-10", time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC), false},
		{"garbage", "not-a-date", time.Time{}, true},
		{"empty", "", time.Time{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseTimestamp(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSeasonOf(t *testing.T) {
	tests := []struct {
		month  time.Month
		season string
	}{
		{time.December, "Winter"},
		{time.January, "Winter"},
		{time.February, "Winter"},
		{time.March, "Spring"},
		{time.May, "Spring"},
		{time.June, "Summer"},
		{time.August, "Summer"},
		{time.September, "Fall"},
		{time.November, "Fall"},
	}

	for _, tt := range tests {
		t.Run(tt.month.String(), func(t *testing.T) {
			assert.Equal(t, tt.season, SeasonOf(tt.month))
		})
	}
}

func twoDigit(n int) string {
	if n < 10 {
		return "0" + strconv.Itoa(n)
	}
	return strconv.Itoa(n)
}
