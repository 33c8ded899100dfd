// Command server serves the processed dataset over HTTP. It loads the
// SQLite store written by a previous etl run into an immutable in-memory
// snapshot and answers aggregate, summary, and extreme-event queries
// against it.
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

	"github.com/climatescope/weather-etl/internal/adapter/httpapi"
	"github.com/climatescope/weather-etl/internal/adapter/sqlite"
	"github.com/climatescope/weather-etl/internal/config"
	"github.com/climatescope/weather-etl/internal/observability"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg.SQLitePath == "" {
		return errors.New("SQLITE_PATH is required for the query server")
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	rules, err := config.LoadRules(cfg.RulesPath)
	if err != nil {
		return fmt.Errorf("load rules: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := sqlite.Open(cfg.SQLitePath, logger)
	if err != nil {
		return fmt.Errorf("open sqlite store: %w", err)
	}
	defer store.Close()

	observations, err := store.Observations(ctx)
	if err != nil {
		return fmt.Errorf("load snapshot: %w", err)
	}
	if rec, err := store.LastRun(ctx); err != nil {
		return fmt.Errorf("load last run: %w", err)
	} else if rec != nil {
		logger.Info("serving pipeline run",
			"finished_at", rec.FinishedAt,
			"rows_in", rec.Report.RowsIn,
			"rows_out", rec.Report.RowsOut)
	}
	logger.Info("snapshot loaded", "observations", len(observations))

	snapshot := &httpapi.Snapshot{
		Observations:   observations,
		SummaryMetrics: rules.Summaries(),
	}
	srv := httpapi.NewServer(cfg.HTTPAddr, snapshot, metrics, logger)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.Info("shutdown complete")
	return nil
}
