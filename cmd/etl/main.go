// Command etl runs one batch of the weather pipeline: read the raw CSV,
// clean it, aggregate it, and write every configured sink.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/climatescope/weather-etl/internal/adapter/csvfile"
	kafkaadapter "github.com/climatescope/weather-etl/internal/adapter/kafka"
	"github.com/climatescope/weather-etl/internal/adapter/sqlite"
	"github.com/climatescope/weather-etl/internal/config"
	"github.com/climatescope/weather-etl/internal/observability"
	"github.com/climatescope/weather-etl/internal/pipeline"
)

func main() {
	if err := run(); err != nil {
		slog.Error("etl failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	rules, err := config.LoadRules(cfg.RulesPath)
	if err != nil {
		return fmt.Errorf("load rules: %w", err)
	}

	extractor := csvfile.NewReader(cfg.InputPath, logger)
	cleaner := pipeline.NewCleaner(rules.CleanConfig(), logger)

	loaders := []pipeline.Loader{csvfile.NewWriter(cfg.OutputDir, logger)}

	if cfg.SQLitePath != "" {
		store, err := sqlite.Open(cfg.SQLitePath, logger)
		if err != nil {
			return fmt.Errorf("open sqlite store: %w", err)
		}
		defer store.Close()
		loaders = append(loaders, store)
		logger.Info("sqlite store enabled", "path", cfg.SQLitePath)
	}

	if cfg.ExportEnabled() {
		writer := kafkaadapter.NewWriter(cfg, metrics, logger)
		defer writer.Close()
		loaders = append(loaders, writer)
		logger.Info("kafka export enabled",
			"topic", cfg.KafkaExportTopic,
			"brokers", cfg.KafkaBrokers,
			"batch_size", cfg.ExportBatchSize)
	}

	p := pipeline.New(extractor, cleaner, loaders, pipeline.Options{
		DetectorRules:      rules.DetectorRules(),
		SummaryMetrics:     rules.Summaries(),
		CorrelationMetrics: rules.Correlations(),
	}, logger, metrics)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Large inputs take a while; expose /metrics for the duration of the run
	// when an address is configured.
	if cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("GET /metrics", promhttp.Handler())
		srv := &http.Server{Addr: cfg.MetricsAddr, Handler: mux}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Warn("metrics listener failed", "error", err)
			}
		}()
		defer srv.Close()
		logger.Info("metrics listener enabled", "addr", cfg.MetricsAddr)
	}

	if _, err := p.Run(ctx); err != nil {
		return err
	}
	return nil
}
