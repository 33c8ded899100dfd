// Package stats provides the descriptive statistics behind the summary
// artifacts: per-metric distribution summaries and a Pearson correlation
// matrix. Everything is computed with built-in arithmetic; no statistics
// dependency is involved, so the documented fallback path is the only path.
package stats

import (
	"math"
	"sort"
)

// Summary describes one metric's distribution. Definitions follow the
// conventions of the source analysis: sample standard deviation (ddof=1),
// linear-interpolation quartiles, adjusted Fisher-Pearson skewness, and
// Fisher excess kurtosis.
type Summary struct {
	Count    int     `json:"count"`
	Mean     float64 `json:"mean"`
	Median   float64 `json:"median"`
	Std      float64 `json:"std"`
	Min      float64 `json:"min"`
	Max      float64 `json:"max"`
	Q1       float64 `json:"q1"`
	Q3       float64 `json:"q3"`
	Skewness float64 `json:"skewness"`
	Kurtosis float64 `json:"kurtosis"`
}

// Describe summarizes a sample. An empty sample yields a zero Summary.
func Describe(values []float64) Summary {
	n := len(values)
	if n == 0 {
		return Summary{}
	}

	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)

	s := Summary{
		Count:  n,
		Mean:   Mean(values),
		Median: Quantile(sorted, 0.5),
		Min:    sorted[0],
		Max:    sorted[n-1],
		Q1:     Quantile(sorted, 0.25),
		Q3:     Quantile(sorted, 0.75),
	}
	s.Std = Std(values, s.Mean)
	s.Skewness = skewness(values, s.Mean, s.Std)
	s.Kurtosis = kurtosis(values, s.Mean, s.Std)
	return s
}

// Mean returns the arithmetic mean, 0 for an empty sample.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// Std returns the sample standard deviation (ddof=1) around a precomputed
// mean. Samples of fewer than two values report 0.
func Std(values []float64, mean float64) float64 {
	if len(values) < 2 {
		return 0
	}
	var ss float64
	for _, v := range values {
		d := v - mean
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(values)-1))
}

// Quantile returns the q-th quantile of an ascending-sorted sample using
// linear interpolation between closest ranks.
func Quantile(sorted []float64, q float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n == 1 {
		return sorted[0]
	}
	pos := q * float64(n-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

// skewness is the adjusted Fisher-Pearson standardized moment coefficient.
// Samples smaller than 3 or with zero spread report 0.
func skewness(values []float64, mean, std float64) float64 {
	n := float64(len(values))
	if n < 3 || std == 0 {
		return 0
	}
	var m3 float64
	for _, v := range values {
		d := (v - mean) / std
		m3 += d * d * d
	}
	return n / ((n - 1) * (n - 2)) * m3
}

// kurtosis is the Fisher excess kurtosis with the small-sample correction.
// Samples smaller than 4 or with zero spread report 0.
func kurtosis(values []float64, mean, std float64) float64 {
	n := float64(len(values))
	if n < 4 || std == 0 {
		return 0
	}
	var m4 float64
	for _, v := range values {
		d := (v - mean) / std
		m4 += d * d * d * d
	}
	return (n*(n+1))/((n-1)*(n-2)*(n-3))*m4 - 3*(n-1)*(n-1)/((n-2)*(n-3))
}

// Pearson returns the Pearson correlation coefficient of two equal-length
// samples, or 0 when either sample has no variance or fewer than two points.
func Pearson(x, y []float64) float64 {
	n := len(x)
	if n != len(y) || n < 2 {
		return 0
	}
	mx, my := Mean(x), Mean(y)
	var sxy, sxx, syy float64
	for i := 0; i < n; i++ {
		dx := x[i] - mx
		dy := y[i] - my
		sxy += dx * dy
		sxx += dx * dx
		syy += dy * dy
	}
	if sxx == 0 || syy == 0 {
		return 0
	}
	return sxy / math.Sqrt(sxx*syy)
}

// CorrelationMatrix computes pairwise Pearson correlations of the named
// series in the order given. Series lengths must match.
type CorrelationMatrix struct {
	Names  []string    `json:"names"`
	Matrix [][]float64 `json:"matrix"`
}

// Correlate builds a CorrelationMatrix over the named series. Name order in
// the result follows the input order, so output is deterministic.
func Correlate(names []string, series map[string][]float64) CorrelationMatrix {
	m := CorrelationMatrix{
		Names:  names,
		Matrix: make([][]float64, len(names)),
	}
	for i, a := range names {
		m.Matrix[i] = make([]float64, len(names))
		for j, b := range names {
			if i == j {
				m.Matrix[i][j] = 1
				continue
			}
			m.Matrix[i][j] = Pearson(series[a], series[b])
		}
	}
	return m
}
