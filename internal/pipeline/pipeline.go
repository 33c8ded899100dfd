package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/climatescope/weather-etl/internal/aggregate"
	"github.com/climatescope/weather-etl/internal/domain"
	"github.com/climatescope/weather-etl/internal/observability"
	"github.com/climatescope/weather-etl/internal/stats"
)

// Extractor reads the raw observation table from the source.
type Extractor interface {
	Extract(ctx context.Context) ([]domain.RawObservation, error)
}

// Cleaner turns raw rows into cleaned observations plus an accounting report.
type Cleaner interface {
	Clean(ctx context.Context, raws []domain.RawObservation) ([]domain.Observation, domain.CleanReport, error)
}

// Loader writes a completed result to one destination (CSV files, SQLite,
// Kafka export). Loaders run in order; a failure aborts the run.
type Loader interface {
	Name() string
	Load(ctx context.Context, result *Result) error
}

// Result is everything one batch run produces.
type Result struct {
	Observations []domain.Observation
	Report       domain.CleanReport

	Daily   []aggregate.Row
	Monthly []aggregate.Row

	SummaryMetrics []domain.Metric // Summaries iteration order
	Summaries      map[domain.Metric]stats.Summary
	Correlation    stats.CorrelationMatrix
	Extremes       []aggregate.RuleResult
}

// Pipeline orchestrates one extract-clean-aggregate-load batch.
type Pipeline struct {
	extractor Extractor
	cleaner   Cleaner
	loaders   []Loader

	detectorRules      []aggregate.Rule
	summaryMetrics     []domain.Metric
	correlationMetrics []domain.Metric

	logger  *slog.Logger
	metrics *observability.Metrics
	ready   atomic.Bool
}

// Options carries the aggregation stage's tunables.
type Options struct {
	DetectorRules      []aggregate.Rule
	SummaryMetrics     []domain.Metric
	CorrelationMetrics []domain.Metric
}

// New creates a Pipeline with the given stages and observability.
func New(e Extractor, c Cleaner, loaders []Loader, opts Options, logger *slog.Logger, metrics *observability.Metrics) *Pipeline {
	return &Pipeline{
		extractor:          e,
		cleaner:            c,
		loaders:            loaders,
		detectorRules:      opts.DetectorRules,
		summaryMetrics:     opts.SummaryMetrics,
		correlationMetrics: opts.CorrelationMetrics,
		logger:             logger,
		metrics:            metrics,
	}
}

// CheckReadiness returns nil once a batch run has completed.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("pipeline has not completed a run yet")
	}
	return nil
}

// Run executes one batch. The context aborts between stages; a running
// stage completes or fails on its own.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	p.logger.Info("pipeline started")
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	raws, err := timedStage(ctx, p, "extract", func() ([]domain.RawObservation, error) {
		return p.extractor.Extract(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("extract: %w", err)
	}
	p.metrics.RowsRead.Add(float64(len(raws)))
	p.logger.Info("extract complete", "rows", len(raws))

	result := &Result{}
	_, err = timedStage(ctx, p, "clean", func() (struct{}, error) {
		observations, report, cerr := p.cleaner.Clean(ctx, raws)
		result.Observations = observations
		result.Report = report
		return struct{}{}, cerr
	})
	if err != nil {
		return nil, fmt.Errorf("clean: %w", err)
	}
	p.recordCleanMetrics(result.Report)

	_, err = timedStage(ctx, p, "aggregate", func() (struct{}, error) {
		p.aggregateStage(result)
		return struct{}{}, nil
	})
	if err != nil {
		return nil, err
	}
	p.logger.Info("aggregate complete",
		"daily_rows", len(result.Daily),
		"monthly_rows", len(result.Monthly),
		"extreme_rules", len(result.Extremes),
	)

	for _, loader := range p.loaders {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		start := time.Now()
		if err := loader.Load(ctx, result); err != nil {
			return nil, fmt.Errorf("load %s: %w", loader.Name(), err)
		}
		p.metrics.StageDuration.WithLabelValues("load").Observe(time.Since(start).Seconds())
		p.logger.Info("load complete", "sink", loader.Name())
	}

	p.ready.Store(true)
	p.logger.Info("pipeline finished",
		"rows_in", result.Report.RowsIn,
		"rows_out", result.Report.RowsOut,
		"dropped_bad_timestamp", result.Report.DroppedBadTimestamp,
		"dropped_duplicate", result.Report.DroppedDuplicate,
		"dropped_out_of_range", result.Report.DroppedOutOfRange,
	)
	return result, nil
}

// aggregateStage computes every derived table from the cleaned snapshot.
func (p *Pipeline) aggregateStage(result *Result) {
	result.Daily = aggregate.Daily(result.Observations)
	result.Monthly = aggregate.Monthly(result.Observations)
	result.Extremes = aggregate.Detect(result.Observations, p.detectorRules)

	result.SummaryMetrics = p.summaryMetrics
	result.Summaries = make(map[domain.Metric]stats.Summary, len(p.summaryMetrics))
	for _, m := range p.summaryMetrics {
		result.Summaries[m] = stats.Describe(metricSeries(result.Observations, m))
	}

	names := make([]string, len(p.correlationMetrics))
	series := make(map[string][]float64, len(p.correlationMetrics))
	for i, m := range p.correlationMetrics {
		names[i] = string(m)
		series[string(m)] = metricSeries(result.Observations, m)
	}
	result.Correlation = stats.Correlate(names, series)
}

func metricSeries(observations []domain.Observation, m domain.Metric) []float64 {
	values := make([]float64, len(observations))
	for i, o := range observations {
		values[i], _ = o.Value(m)
	}
	return values
}

func (p *Pipeline) recordCleanMetrics(report domain.CleanReport) {
	p.metrics.RowsCleaned.Add(float64(report.RowsOut))
	p.metrics.RowsDropped.WithLabelValues("bad_timestamp").Add(float64(report.DroppedBadTimestamp))
	p.metrics.RowsDropped.WithLabelValues("duplicate").Add(float64(report.DroppedDuplicate))
	p.metrics.RowsDropped.WithLabelValues("out_of_range").Add(float64(report.DroppedOutOfRange))
	for _, n := range report.ClippedValues {
		p.metrics.ValuesClipped.Add(float64(n))
	}
	for _, n := range report.ImputedNumeric {
		p.metrics.ValuesImputed.Add(float64(n))
	}
	for _, n := range report.ImputedCategorical {
		p.metrics.ValuesImputed.Add(float64(n))
	}
	p.logger.Info("clean complete",
		"rows_out", report.RowsOut,
		"dropped_bad_timestamp", report.DroppedBadTimestamp,
		"dropped_duplicate", report.DroppedDuplicate,
		"dropped_out_of_range", report.DroppedOutOfRange,
	)
}

// timedStage wraps a stage with a context check and duration observation.
func timedStage[T any](ctx context.Context, p *Pipeline, stage string, fn func() (T, error)) (T, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, err
	}
	start := time.Now()
	v, err := fn()
	if err == nil {
		p.metrics.StageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
	}
	return v, err
}
