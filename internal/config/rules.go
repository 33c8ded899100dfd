package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/climatescope/weather-etl/internal/aggregate"
	"github.com/climatescope/weather-etl/internal/domain"
)

// Rules is the YAML-tunable part of the pipeline: cleaning policy and
// extreme-event thresholds. Every field is optional; omitted fields keep
// the documented defaults.
type Rules struct {
	OutlierPolicy      string                  `yaml:"outlier_policy"`
	MovingAvgWindow    int                     `yaml:"moving_average_window"`
	MovingAvgMetrics   []string                `yaml:"moving_average_metrics"`
	Ranges             map[string]domain.Range `yaml:"ranges"`
	ExtremeEvents      []aggregate.Rule        `yaml:"extreme_events"`
	CorrelationMetrics []string                `yaml:"correlation_metrics"`
	SummaryMetrics     []string                `yaml:"summary_metrics"`
}

// DefaultCorrelationMetrics mirrors the metric list of the source analysis.
var DefaultCorrelationMetrics = []string{
	"temperature_celsius",
	"humidity",
	"wind_kph",
	"pressure_mb",
	"precip_mm",
	"uv_index",
	"air_quality_pm2_5",
	"heat_index_celsius",
	"wind_chill_celsius",
}

// LoadRules reads a rules file, or returns the defaults when path is empty.
func LoadRules(path string) (*Rules, error) {
	rules := &Rules{}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read rules file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, rules); err != nil {
			return nil, fmt.Errorf("parse rules file %s: %w", path, err)
		}
	}
	if err := rules.validate(); err != nil {
		return nil, err
	}
	return rules, nil
}

func (r *Rules) validate() error {
	switch r.OutlierPolicy {
	case "", string(domain.PolicyClip), string(domain.PolicyDrop):
	default:
		return fmt.Errorf("unknown outlier_policy %q (want clip or drop)", r.OutlierPolicy)
	}
	if r.MovingAvgWindow < 0 {
		return fmt.Errorf("moving_average_window must be positive, got %d", r.MovingAvgWindow)
	}
	for _, name := range r.MovingAvgMetrics {
		if !domain.ValidMetric(name) {
			return fmt.Errorf("unknown metric %q in moving_average_metrics", name)
		}
	}
	for name := range r.Ranges {
		if !domain.ValidMetric(name) {
			return fmt.Errorf("unknown metric %q in ranges", name)
		}
	}
	for i, rule := range r.ExtremeEvents {
		if rule.Label == "" {
			return fmt.Errorf("extreme_events[%d]: label is required", i)
		}
		if !domain.ValidMetric(string(rule.Metric)) {
			return fmt.Errorf("extreme_events[%d]: unknown metric %q", i, rule.Metric)
		}
		if _, err := aggregate.ParseOp(string(rule.Op)); err != nil {
			return fmt.Errorf("extreme_events[%d]: %w", i, err)
		}
	}
	for _, name := range append(append([]string{}, r.CorrelationMetrics...), r.SummaryMetrics...) {
		if !domain.ValidMetric(name) {
			return fmt.Errorf("unknown metric %q in metric list", name)
		}
	}
	return nil
}

// CleanConfig resolves the rules into the cleaner's configuration,
// overlaying file values onto the defaults.
func (r *Rules) CleanConfig() domain.CleanConfig {
	cfg := domain.DefaultCleanConfig()
	if r.OutlierPolicy != "" {
		cfg.OutlierPolicy = domain.OutlierPolicy(r.OutlierPolicy)
	}
	if r.MovingAvgWindow > 0 {
		cfg.MovingAvgWindow = r.MovingAvgWindow
	}
	if len(r.MovingAvgMetrics) > 0 {
		cfg.MovingAvgMetrics = toMetrics(r.MovingAvgMetrics)
	}
	if len(r.Ranges) > 0 {
		ranges := make(map[domain.Metric]domain.Range, len(domain.DefaultRanges)+len(r.Ranges))
		for m, rng := range domain.DefaultRanges {
			ranges[m] = rng
		}
		for name, rng := range r.Ranges {
			ranges[domain.Metric(name)] = rng
		}
		cfg.Ranges = ranges
	}
	return cfg
}

// DetectorRules resolves the extreme-event rules, defaulting to the source
// analysis thresholds.
func (r *Rules) DetectorRules() []aggregate.Rule {
	if len(r.ExtremeEvents) > 0 {
		return r.ExtremeEvents
	}
	return aggregate.DefaultRules()
}

// Correlations resolves the correlation metric list.
func (r *Rules) Correlations() []domain.Metric {
	if len(r.CorrelationMetrics) > 0 {
		return toMetrics(r.CorrelationMetrics)
	}
	return toMetrics(DefaultCorrelationMetrics)
}

// Summaries resolves the summary-statistics metric list; the default is
// every registered metric.
func (r *Rules) Summaries() []domain.Metric {
	if len(r.SummaryMetrics) > 0 {
		return toMetrics(r.SummaryMetrics)
	}
	return domain.Metrics
}

func toMetrics(names []string) []domain.Metric {
	metrics := make([]domain.Metric, len(names))
	for i, n := range names {
		metrics[i] = domain.Metric(n)
	}
	return metrics
}
