package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeatIndex(t *testing.T) {
	tests := []struct {
		name     string
		tempC    float64
		humidity float64
		want     float64
	}{
		{"neutral at 15C", 15, 80, 15},
		{"hot and humid rises", 30, 100, 45},
		{"dry air unchanged", 30, 0, 30},
		{"half humidity", 25, 50, 30},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, HeatIndex(tt.tempC, tt.humidity), 1e-9)
		})
	}
}

func TestWindChill(t *testing.T) {
	t.Run("above 10C returns temperature", func(t *testing.T) {
		assert.Equal(t, 15.0, WindChill(15, 30))
	})

	t.Run("calm wind returns temperature", func(t *testing.T) {
		assert.Equal(t, 5.0, WindChill(5, 2))
	})

	t.Run("cold and windy is below air temperature", func(t *testing.T) {
		wc := WindChill(-10, 30)
		assert.Less(t, wc, -10.0)
		// Environment Canada reference point: -10C at 30 kph ≈ -19.5.
		assert.InDelta(t, -19.5, wc, 0.5)
	})

	t.Run("boundary conditions apply the model", func(t *testing.T) {
		assert.NotEqual(t, 10.0, WindChill(10, 4.8))
	})
}

func TestMovingAverages(t *testing.T) {
	cfg := DefaultCleanConfig()
	cfg.MovingAvgWindow = 3
	cfg.MovingAvgMetrics = []Metric{MetricTemperatureC}

	raws := []RawObservation{
		testRaw("2024-05-01 12:00", 10),
		testRaw("2024-05-02 12:00", 20),
		testRaw("2024-05-03 12:00", 30),
		testRaw("2024-05-04 12:00", 40),
	}

	cleaned, _ := Clean(raws, cfg)
	require.Len(t, cleaned, 4)

	// Trailing window, min period 1: [10], [10,20], [10,20,30], [20,30,40].
	assert.InDelta(t, 10, cleaned[0].MovingAverages[MetricTemperatureC], 1e-9)
	assert.InDelta(t, 15, cleaned[1].MovingAverages[MetricTemperatureC], 1e-9)
	assert.InDelta(t, 20, cleaned[2].MovingAverages[MetricTemperatureC], 1e-9)
	assert.InDelta(t, 30, cleaned[3].MovingAverages[MetricTemperatureC], 1e-9)
}

func TestMovingAverages_PerLocation(t *testing.T) {
	cfg := DefaultCleanConfig()
	cfg.MovingAvgWindow = 2
	cfg.MovingAvgMetrics = []Metric{MetricTemperatureC}

	a := testRaw("2024-05-01 12:00", 10)
	b := testRaw("2024-05-02 12:00", 30)
	other := testRaw("2024-05-01 12:00", 40)
	other.LocationName = "Otherville"

	cleaned, _ := Clean([]RawObservation{a, b, other}, cfg)
	require.Len(t, cleaned, 3)

	byLocation := map[string][]Observation{}
	for _, o := range cleaned {
		byLocation[o.LocationName] = append(byLocation[o.LocationName], o)
	}

	// Windows never cross a location boundary.
	assert.InDelta(t, 40, byLocation["Otherville"][0].MovingAverages[MetricTemperatureC], 1e-9)
	assert.InDelta(t, 10, byLocation[testLocation][0].MovingAverages[MetricTemperatureC], 1e-9)
	assert.InDelta(t, 20, byLocation[testLocation][1].MovingAverages[MetricTemperatureC], 1e-9)
}

func TestMovingAverages_SameLocationNameAcrossCountries(t *testing.T) {
	cfg := DefaultCleanConfig()
	cfg.MovingAvgWindow = 2
	cfg.MovingAvgMetrics = []Metric{MetricTemperatureC}

	// Two countries each have a "Springfield". After sorting they sit
	// adjacent, so a run keyed on location name alone would merge them.
	a1 := testRaw("2024-05-01 12:00", 10)
	a1.Country = "Aaaland"
	a1.LocationName = "Springfield"
	a2 := testRaw("2024-05-02 12:00", 30)
	a2.Country = "Aaaland"
	a2.LocationName = "Springfield"
	z := testRaw("2024-05-01 12:00", 50)
	z.Country = "Zzland"
	z.LocationName = "Springfield"

	cleaned, _ := Clean([]RawObservation{a1, a2, z}, cfg)
	require.Len(t, cleaned, 3)

	byCountry := map[string][]Observation{}
	for _, o := range cleaned {
		byCountry[o.Country] = append(byCountry[o.Country], o)
	}

	assert.InDelta(t, 10, byCountry["Aaaland"][0].MovingAverages[MetricTemperatureC], 1e-9)
	assert.InDelta(t, 20, byCountry["Aaaland"][1].MovingAverages[MetricTemperatureC], 1e-9)
	// Zzland's first row averages only itself.
	assert.InDelta(t, 50, byCountry["Zzland"][0].MovingAverages[MetricTemperatureC], 1e-9)
}
