// Package sqlite persists pipeline results in a local SQLite database so
// the query server can serve them without re-running the pipeline.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	_ "modernc.org/sqlite"

	"github.com/climatescope/weather-etl/internal/aggregate"
	"github.com/climatescope/weather-etl/internal/domain"
	"github.com/climatescope/weather-etl/internal/pipeline"
)

// Aggregate grains stored in the aggregates table.
const (
	GrainDaily   = "daily"
	GrainMonthly = "monthly"
)

// Store wraps a SQLite database holding cleaned observations, aggregate
// rows, and per-run clean reports. It implements pipeline.Loader.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open opens (or creates) the database at path and applies migrations.
func Open(path string, logger *slog.Logger) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	db.Exec("PRAGMA journal_mode=WAL")
	db.Exec("PRAGMA busy_timeout=5000")

	s := &Store{db: db, logger: logger}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) Name() string { return "sqlite" }

// Load replaces the stored aggregates and upserts every observation in one
// transaction. Observation IDs are deterministic, so re-running the
// pipeline over the same input leaves the table unchanged.
func (s *Store) Load(ctx context.Context, result *pipeline.Result) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if err := upsertObservations(ctx, tx, result.Observations); err != nil {
		return err
	}
	if err := replaceAggregates(ctx, tx, GrainDaily, result.Daily); err != nil {
		return err
	}
	if err := replaceAggregates(ctx, tx, GrainMonthly, result.Monthly); err != nil {
		return err
	}
	if err := insertRun(ctx, tx, result.Report); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	s.logger.Info("sqlite load complete",
		"observations", len(result.Observations),
		"daily", len(result.Daily),
		"monthly", len(result.Monthly))
	return nil
}

func upsertObservations(ctx context.Context, tx *sql.Tx, observations []domain.Observation) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO observations (id, country, location_name, timestamp, payload)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			country = excluded.country,
			location_name = excluded.location_name,
			timestamp = excluded.timestamp,
			payload = excluded.payload
	`)
	if err != nil {
		return fmt.Errorf("prepare observation upsert: %w", err)
	}
	defer stmt.Close()

	for i := range observations {
		o := &observations[i]
		payload, err := json.Marshal(o)
		if err != nil {
			return fmt.Errorf("marshal observation %s: %w", o.ID, err)
		}
		ts := o.Timestamp.UTC().Format(time.RFC3339)
		if _, err := stmt.ExecContext(ctx, o.ID, o.Country, o.LocationName, ts, payload); err != nil {
			return fmt.Errorf("upsert observation %s: %w", o.ID, err)
		}
	}
	return nil
}

func replaceAggregates(ctx context.Context, tx *sql.Tx, grain string, rows []aggregate.Row) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM aggregates WHERE grain = ?`, grain); err != nil {
		return fmt.Errorf("clear %s aggregates: %w", grain, err)
	}
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO aggregates (grain, country, period, payload)
		VALUES (?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare aggregate insert: %w", err)
	}
	defer stmt.Close()

	for _, row := range rows {
		payload, err := json.Marshal(row)
		if err != nil {
			return fmt.Errorf("marshal %s aggregate %s/%s: %w", grain, row.Country, row.Period, err)
		}
		if _, err := stmt.ExecContext(ctx, grain, row.Country, row.Period, payload); err != nil {
			return fmt.Errorf("insert %s aggregate %s/%s: %w", grain, row.Country, row.Period, err)
		}
	}
	return nil
}

func insertRun(ctx context.Context, tx *sql.Tx, report domain.CleanReport) error {
	payload, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("marshal clean report: %w", err)
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (finished_at, rows_in, rows_out, report)
		VALUES (?, ?, ?, ?)
	`, time.Now().UTC(), report.RowsIn, report.RowsOut, payload)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// Observations returns every stored observation ordered by country,
// location, and timestamp, the same order the pipeline emits.
func (s *Store) Observations(ctx context.Context) ([]domain.Observation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT payload FROM observations
		ORDER BY country ASC, location_name ASC, timestamp ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var observations []domain.Observation
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		var o domain.Observation
		if err := json.Unmarshal(payload, &o); err != nil {
			return nil, fmt.Errorf("unmarshal observation: %w", err)
		}
		observations = append(observations, o)
	}
	return observations, rows.Err()
}

// Aggregates returns the stored rows for one grain ordered by country then
// period.
func (s *Store) Aggregates(ctx context.Context, grain string) ([]aggregate.Row, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT payload FROM aggregates
		WHERE grain = ?
		ORDER BY country ASC, period ASC
	`, grain)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []aggregate.Row
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		var row aggregate.Row
		if err := json.Unmarshal(payload, &row); err != nil {
			return nil, fmt.Errorf("unmarshal %s aggregate: %w", grain, err)
		}
		result = append(result, row)
	}
	return result, rows.Err()
}

// RunRecord is one pipeline run's accounting.
type RunRecord struct {
	ID         int64              `json:"id"`
	FinishedAt time.Time          `json:"finished_at"`
	Report     domain.CleanReport `json:"report"`
}

// LastRun returns the most recent run record, or nil when the pipeline has
// never completed.
func (s *Store) LastRun(ctx context.Context) (*RunRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, finished_at, report FROM runs
		ORDER BY id DESC LIMIT 1
	`)
	var (
		rec     RunRecord
		payload []byte
	)
	err := row.Scan(&rec.ID, &rec.FinishedAt, &payload)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(payload, &rec.Report); err != nil {
		return nil, fmt.Errorf("unmarshal run report: %w", err)
	}
	return &rec, nil
}
