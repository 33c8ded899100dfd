// Package csvfile reads the raw observation CSV and writes the pipeline's
// CSV artifacts.
package csvfile

import (
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"

	"github.com/climatescope/weather-etl/internal/domain"
)

// Reader extracts raw observations from a CSV file.
// It implements pipeline.Extractor.
type Reader struct {
	path   string
	logger *slog.Logger
}

// NewReader creates a Reader over the given CSV path.
func NewReader(path string, logger *slog.Logger) *Reader {
	return &Reader{path: path, logger: logger}
}

// Extract reads the whole file into memory: header first, bound against the
// typed schema, then one RawObservation per record. A malformed header is an
// error; malformed cells inside a record are not (they surface as NaN for
// the cleaner to impute).
func (r *Reader) Extract(ctx context.Context) ([]domain.RawObservation, error) {
	f, err := os.Open(r.path)
	if err != nil {
		return nil, fmt.Errorf("open input: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	binder, err := domain.BindHeader(header)
	if err != nil {
		return nil, fmt.Errorf("bind header: %w", err)
	}

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read records: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	raws := make([]domain.RawObservation, 0, len(rows))
	for i, record := range rows {
		raw, err := binder.ParseRecord(record)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i+2, err)
		}
		raws = append(raws, raw)
	}

	r.logger.Debug("csv extracted", "path", r.path, "rows", len(raws))
	return raws, nil
}
