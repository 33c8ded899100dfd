package pipeline

import (
	"context"
	"log/slog"

	"github.com/climatescope/weather-etl/internal/domain"
)

// WeatherCleaner implements Cleaner using the domain cleaning functions.
type WeatherCleaner struct {
	cfg    domain.CleanConfig
	logger *slog.Logger
}

// NewCleaner creates a WeatherCleaner with the resolved cleaning config.
func NewCleaner(cfg domain.CleanConfig, logger *slog.Logger) *WeatherCleaner {
	return &WeatherCleaner{cfg: cfg, logger: logger}
}

func (c *WeatherCleaner) Clean(_ context.Context, raws []domain.RawObservation) ([]domain.Observation, domain.CleanReport, error) {
	observations, report := domain.Clean(raws, c.cfg)

	for metric, n := range report.ClippedValues {
		c.logger.Debug("clipped out-of-range values", "metric", string(metric), "count", n)
	}
	if report.DroppedBadTimestamp > 0 {
		c.logger.Warn("dropped rows with unparseable timestamps", "count", report.DroppedBadTimestamp)
	}

	return observations, report, nil
}
