package aggregate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/climatescope/weather-etl/internal/domain"
)

func obs(country, location string, ts time.Time, tempC float64) domain.Observation {
	return domain.Observation{
		Country:      country,
		LocationName: location,
		Timestamp:    ts,
		TemperatureC: tempC,
		Year:         ts.Year(),
		Month:        int(ts.Month()),
	}
}

func TestMonthly(t *testing.T) {
	jan := func(day int, temp float64) domain.Observation {
		return obs("X", "loc", time.Date(2024, 1, day, 12, 0, 0, 0, time.UTC), temp)
	}

	t.Run("mean min max count", func(t *testing.T) {
		rows := Monthly([]domain.Observation{jan(1, 10), jan(2, 20), jan(3, 30)})

		require.Len(t, rows, 1)
		row := rows[0]
		assert.Equal(t, "X", row.Country)
		assert.Equal(t, "2024-01", row.Period)
		assert.Equal(t, "Winter", row.Season)
		assert.Equal(t, 3, row.Count)

		temp := row.Metrics[domain.MetricTemperatureC]
		assert.InDelta(t, 20, temp.Mean, 1e-9)
		assert.InDelta(t, 10, temp.Min, 1e-9)
		assert.InDelta(t, 30, temp.Max, 1e-9)
		assert.InDelta(t, 10, temp.Std, 1e-9)
	})

	t.Run("single-row group reports zero std", func(t *testing.T) {
		rows := Monthly([]domain.Observation{jan(1, 10)})
		require.Len(t, rows, 1)
		assert.Zero(t, rows[0].Metrics[domain.MetricTemperatureC].Std)
		assert.Equal(t, 1, rows[0].Count)
	})

	t.Run("no empty groups", func(t *testing.T) {
		rows := Monthly(nil)
		assert.Empty(t, rows)
	})
}

func TestDaily_OrderingDeterministic(t *testing.T) {
	input := []domain.Observation{
		obs("B", "loc", time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), 1),
		obs("A", "loc", time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC), 2),
		obs("A", "loc", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), 3),
		obs("B", "loc", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), 4),
	}

	rows := Daily(input)

	require.Len(t, rows, 4)
	assert.Equal(t, []string{"A", "A", "B", "B"}, []string{rows[0].Country, rows[1].Country, rows[2].Country, rows[3].Country})
	assert.Equal(t, "2024-01-01", rows[0].Period)
	assert.Equal(t, "2024-01-03", rows[1].Period)
	assert.Equal(t, "2024-01-01", rows[2].Period)
	assert.Equal(t, "2024-01-02", rows[3].Period)
}

func TestDaily_Idempotent(t *testing.T) {
	input := []domain.Observation{
		obs("A", "loc", time.Date(2024, 1, 1, 6, 0, 0, 0, time.UTC), 5),
		obs("A", "loc", time.Date(2024, 1, 1, 18, 0, 0, 0, time.UTC), 15),
		obs("B", "loc", time.Date(2024, 2, 1, 6, 0, 0, 0, time.UTC), 25),
	}

	first := Daily(input)
	second := Daily(input)

	assert.Equal(t, first, second)
}

func TestAggregateMeanMatchesObservationMean(t *testing.T) {
	// The monthly mean must equal the arithmetic mean of the constituent
	// observations for the same (country, month).
	input := []domain.Observation{
		obs("X", "a", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), 12.5),
		obs("X", "b", time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC), 17.25),
		obs("X", "c", time.Date(2024, 1, 20, 0, 0, 0, 0, time.UTC), 21.75),
		obs("Y", "d", time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC), -4),
	}

	rows := Monthly(input)

	require.Len(t, rows, 2)
	var sum float64
	for _, o := range input[:3] {
		sum += o.TemperatureC
	}
	assert.InDelta(t, sum/3, rows[0].Metrics[domain.MetricTemperatureC].Mean, 1e-12)
}

func TestFilter(t *testing.T) {
	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	input := []domain.Observation{
		obs("A", "a", base, 1),
		obs("A", "a", base.AddDate(0, 0, 5), 2),
		obs("B", "b", base.AddDate(0, 0, 10), 3),
	}

	t.Run("zero filter is identity", func(t *testing.T) {
		assert.Len(t, Filter{}.Apply(input), 3)
	})

	t.Run("country filter", func(t *testing.T) {
		out := Filter{Countries: []string{"B"}}.Apply(input)
		require.Len(t, out, 1)
		assert.Equal(t, "B", out[0].Country)
	})

	t.Run("date range inclusive", func(t *testing.T) {
		out := Filter{From: base.AddDate(0, 0, 5), To: base.AddDate(0, 0, 10)}.Apply(input)
		assert.Len(t, out, 2)
	})

	t.Run("empty result is empty slice not nil panic", func(t *testing.T) {
		out := Filter{Countries: []string{"Z"}}.Apply(input)
		assert.Empty(t, out)
	})

	t.Run("input is not mutated", func(t *testing.T) {
		_ = Filter{Countries: []string{"A"}}.Apply(input)
		assert.Equal(t, "A", input[0].Country)
		assert.Len(t, input, 3)
	})
}
