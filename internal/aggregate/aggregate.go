// Package aggregate reduces cleaned observations into the derived tables the
// dashboard consumes: daily and monthly per-country averages and
// extreme-event counts. Reductions are pure and stateless; re-running one
// over the same input produces identical output.
package aggregate

import (
	"sort"
	"time"

	"github.com/climatescope/weather-etl/internal/domain"
	"github.com/climatescope/weather-etl/internal/stats"
)

// MetricStats holds one metric's reduction within a group.
type MetricStats struct {
	Mean float64 `json:"mean"`
	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
	Std  float64 `json:"std"`
}

// Row is one (country, period) group. Period is "2006-01-02" for daily rows
// and "2006-01" for monthly rows. Count is the number of constituent
// observations; groups exist only for observed keys, so Count is never zero.
type Row struct {
	Country string                        `json:"country"`
	Period  string                        `json:"period"`
	Season  string                        `json:"season"`
	Count   int                           `json:"count"`
	Metrics map[domain.Metric]MetricStats `json:"metrics"`
}

// Daily groups observations by (country, calendar date) and reduces every
// registered metric. Output is ordered country ascending, then date
// ascending.
func Daily(observations []domain.Observation) []Row {
	return groupBy(observations, func(o domain.Observation) string { return o.Date() })
}

// Monthly groups observations by (country, YYYY-MM). Output ordering matches
// Daily.
func Monthly(observations []domain.Observation) []Row {
	return groupBy(observations, func(o domain.Observation) string { return o.MonthKey() })
}

type groupKey struct {
	country string
	period  string
}

func groupBy(observations []domain.Observation, periodOf func(domain.Observation) string) []Row {
	groups := map[groupKey][]domain.Observation{}
	for _, o := range observations {
		k := groupKey{country: o.Country, period: periodOf(o)}
		groups[k] = append(groups[k], o)
	}

	keys := make([]groupKey, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	// Country ascending, then period ascending. Both daily and monthly
	// period strings sort chronologically as text.
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].country != keys[j].country {
			return keys[i].country < keys[j].country
		}
		return keys[i].period < keys[j].period
	})

	rows := make([]Row, 0, len(keys))
	for _, k := range keys {
		members := groups[k]
		row := Row{
			Country: k.country,
			Period:  k.period,
			Season:  domain.SeasonOf(members[0].Timestamp.Month()),
			Count:   len(members),
			Metrics: make(map[domain.Metric]MetricStats, len(domain.Metrics)),
		}
		for _, m := range domain.Metrics {
			values := make([]float64, len(members))
			for i, o := range members {
				values[i], _ = o.Value(m)
			}
			mean := stats.Mean(values)
			mn, mx := values[0], values[0]
			for _, v := range values[1:] {
				if v < mn {
					mn = v
				}
				if v > mx {
					mx = v
				}
			}
			row.Metrics[m] = MetricStats{
				Mean: mean,
				Min:  mn,
				Max:  mx,
				Std:  stats.Std(values, mean),
			}
		}
		rows = append(rows, row)
	}
	return rows
}

// Filter is an immutable view specification over a cleaned snapshot.
// Zero-valued fields match everything, so the zero Filter is the identity.
type Filter struct {
	Countries []string
	From      time.Time // inclusive
	To        time.Time // inclusive
}

// Apply returns a new slice holding the observations the filter admits.
// The snapshot itself is never mutated.
func (f Filter) Apply(observations []domain.Observation) []domain.Observation {
	var countrySet map[string]bool
	if len(f.Countries) > 0 {
		countrySet = make(map[string]bool, len(f.Countries))
		for _, c := range f.Countries {
			countrySet[c] = true
		}
	}

	out := make([]domain.Observation, 0, len(observations))
	for _, o := range observations {
		if countrySet != nil && !countrySet[o.Country] {
			continue
		}
		if !f.From.IsZero() && o.Timestamp.Before(f.From) {
			continue
		}
		if !f.To.IsZero() && o.Timestamp.After(f.To) {
			continue
		}
		out = append(out, o)
	}
	return out
}
