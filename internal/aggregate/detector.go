package aggregate

import (
	"fmt"
	"sort"

	"github.com/climatescope/weather-etl/internal/domain"
)

// Op is a threshold comparison.
type Op string

const (
	OpGT Op = "gt"
	OpGE Op = "ge"
	OpLT Op = "lt"
	OpLE Op = "le"
)

// ParseOp validates an operator string from config or query parameters.
func ParseOp(s string) (Op, error) {
	switch Op(s) {
	case OpGT, OpGE, OpLT, OpLE:
		return Op(s), nil
	default:
		return "", fmt.Errorf("unknown comparison %q (want gt, ge, lt, or le)", s)
	}
}

func (op Op) matches(v, threshold float64) bool {
	switch op {
	case OpGT:
		return v > threshold
	case OpGE:
		return v >= threshold
	case OpLT:
		return v < threshold
	case OpLE:
		return v <= threshold
	default:
		return false
	}
}

// Rule is one extreme-event predicate.
type Rule struct {
	Label     string        `yaml:"label" json:"label"`
	Metric    domain.Metric `yaml:"metric" json:"metric"`
	Op        Op            `yaml:"op" json:"op"`
	Threshold float64       `yaml:"threshold" json:"threshold"`
}

// DefaultRules mirrors the thresholds of the source analysis.
func DefaultRules() []Rule {
	return []Rule{
		{Label: "extreme_heat", Metric: domain.MetricTemperatureC, Op: OpGT, Threshold: 40},
		{Label: "extreme_cold", Metric: domain.MetricTemperatureC, Op: OpLT, Threshold: -10},
		{Label: "heavy_rain", Metric: domain.MetricPrecipMm, Op: OpGT, Threshold: 20},
		{Label: "high_wind", Metric: domain.MetricWindKph, Op: OpGT, Threshold: 50},
		{Label: "poor_air_quality", Metric: domain.MetricAirQualityPM25, Op: OpGT, Threshold: 100},
	}
}

// RuleResult counts one rule's matches overall and per country/month.
type RuleResult struct {
	Rule      Rule           `json:"rule"`
	Count     int            `json:"count"`
	Percent   float64        `json:"percent"`
	ByCountry map[string]int `json:"by_country,omitempty"`
	ByMonth   map[string]int `json:"by_month,omitempty"`
}

// Countries returns the per-country counts in country order, for
// deterministic serialization.
func (r RuleResult) Countries() []string {
	keys := make([]string, 0, len(r.ByCountry))
	for k := range r.ByCountry {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Months returns the per-month keys in chronological order.
func (r RuleResult) Months() []string {
	keys := make([]string, 0, len(r.ByMonth))
	for k := range r.ByMonth {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Detect scans observations against each rule. Rules referencing unknown
// metrics match nothing rather than failing the scan.
func Detect(observations []domain.Observation, rules []Rule) []RuleResult {
	results := make([]RuleResult, len(rules))
	for i, rule := range rules {
		res := RuleResult{
			Rule:      rule,
			ByCountry: map[string]int{},
			ByMonth:   map[string]int{},
		}
		for _, o := range observations {
			v, ok := o.Value(rule.Metric)
			if !ok || !rule.Op.matches(v, rule.Threshold) {
				continue
			}
			res.Count++
			res.ByCountry[o.Country]++
			res.ByMonth[o.MonthKey()]++
		}
		if len(observations) > 0 {
			res.Percent = float64(res.Count) / float64(len(observations)) * 100
		}
		results[i] = res
	}
	return results
}
