package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// RawObservation is one CSV row after schema binding but before cleaning.
// Numeric cells that were blank or unparseable hold NaN; the timestamp is
// still the free-text source string.
type RawObservation struct {
	Country      string
	LocationName string
	Latitude     float64
	Longitude    float64
	Timezone     string
	LastUpdated  string // free-text source timestamp

	TemperatureC  float64
	TemperatureF  float64
	ConditionText string
	WindKph       float64
	WindMph       float64
	WindDegree    float64
	WindDirection string
	PressureMb    float64
	PressureIn    float64
	PrecipMm      float64
	PrecipIn      float64
	Humidity      float64
	Cloud         float64
	FeelsLikeC    float64
	FeelsLikeF    float64
	VisibilityKm  float64
	VisibilityMi  float64
	UVIndex       float64
	GustKph       float64
	GustMph       float64

	AirQualityCO        float64
	AirQualityOzone     float64
	AirQualityNO2       float64
	AirQualitySO2       float64
	AirQualityPM25      float64
	AirQualityPM10      float64
	AirQualityEPAIndex  float64
	AirQualityGBDefra   float64

	Sunrise          string
	Sunset           string
	Moonrise         string
	Moonset          string
	MoonPhase        string
	MoonIllumination float64
}

// Observation is the cleaned, immutable representation of one weather
// reading. Identified by (LocationName, Timestamp).
type Observation struct {
	ID           string    `json:"id"`
	Country      string    `json:"country"`
	LocationName string    `json:"location_name"`
	Latitude     float64   `json:"latitude"`
	Longitude    float64   `json:"longitude"`
	Timezone     string    `json:"timezone,omitempty"`
	Timestamp    time.Time `json:"timestamp"`

	TemperatureC  float64 `json:"temperature_celsius"`
	TemperatureF  float64 `json:"temperature_fahrenheit"`
	ConditionText string  `json:"condition_text,omitempty"`
	WindKph       float64 `json:"wind_kph"`
	WindMph       float64 `json:"wind_mph"`
	WindDegree    float64 `json:"wind_degree"`
	WindDirection string  `json:"wind_direction,omitempty"`
	PressureMb    float64 `json:"pressure_mb"`
	PressureIn    float64 `json:"pressure_in"`
	PrecipMm      float64 `json:"precip_mm"`
	PrecipIn      float64 `json:"precip_in"`
	Humidity      float64 `json:"humidity"`
	Cloud         float64 `json:"cloud"`
	FeelsLikeC    float64 `json:"feels_like_celsius"`
	FeelsLikeF    float64 `json:"feels_like_fahrenheit"`
	VisibilityKm  float64 `json:"visibility_km"`
	VisibilityMi  float64 `json:"visibility_miles"`
	UVIndex       float64 `json:"uv_index"`
	GustKph       float64 `json:"gust_kph"`
	GustMph       float64 `json:"gust_mph"`

	AirQualityCO       float64 `json:"air_quality_carbon_monoxide"`
	AirQualityOzone    float64 `json:"air_quality_ozone"`
	AirQualityNO2      float64 `json:"air_quality_nitrogen_dioxide"`
	AirQualitySO2      float64 `json:"air_quality_sulphur_dioxide"`
	AirQualityPM25     float64 `json:"air_quality_pm2_5"`
	AirQualityPM10     float64 `json:"air_quality_pm10"`
	AirQualityEPAIndex float64 `json:"air_quality_us_epa_index"`
	AirQualityGBDefra  float64 `json:"air_quality_gb_defra_index"`

	Sunrise          string  `json:"sunrise,omitempty"`
	Sunset           string  `json:"sunset,omitempty"`
	Moonrise         string  `json:"moonrise,omitempty"`
	Moonset          string  `json:"moonset,omitempty"`
	MoonPhase        string  `json:"moon_phase,omitempty"`
	MoonIllumination float64 `json:"moon_illumination"`

	// Derived calendar fields.
	Year      int    `json:"year"`
	Month     int    `json:"month"`
	Day       int    `json:"day"`
	Hour      int    `json:"hour"`
	DayOfWeek string `json:"day_of_week"`
	Season    string `json:"season"`

	// Derived metrics.
	HeatIndexC     float64            `json:"heat_index_celsius"`
	WindChillC     float64            `json:"wind_chill_celsius"`
	MovingAverages map[Metric]float64 `json:"moving_averages,omitempty"`

	ProcessedAt time.Time `json:"processed_at"`
}

// Date returns the observation's calendar date in UTC, the daily grouping key.
func (o Observation) Date() string {
	return o.Timestamp.Format("2006-01-02")
}

// MonthKey returns the observation's YYYY-MM period, the monthly grouping key.
func (o Observation) MonthKey() string {
	return o.Timestamp.Format("2006-01")
}

// CleanReport accounts for every row through the cleaning stage.
// RowsOut = RowsIn - DroppedBadTimestamp - DroppedDuplicate - DroppedOutOfRange.
type CleanReport struct {
	RowsIn              int            `json:"rows_in"`
	RowsOut             int            `json:"rows_out"`
	DroppedBadTimestamp int            `json:"dropped_bad_timestamp"`
	DroppedDuplicate    int            `json:"dropped_duplicate"`
	DroppedOutOfRange   int            `json:"dropped_out_of_range"`
	ImputedNumeric      map[Metric]int `json:"imputed_numeric,omitempty"`
	ImputedCategorical  map[string]int `json:"imputed_categorical,omitempty"`
	ClippedValues       map[Metric]int `json:"clipped_values,omitempty"`
}

// generateID produces a deterministic ID from the observation's natural key,
// so reprocessing the same input row produces the same ID and downstream
// upserts stay idempotent.
func generateID(locationName string, ts time.Time) string {
	input := fmt.Sprintf("%s|%s", locationName, ts.UTC().Format(time.RFC3339))
	hash := sha256.Sum256([]byte(input))
	return "obs-" + hex.EncodeToString(hash[:8])
}
