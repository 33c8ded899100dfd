// Package kafka publishes cleaned observations to a Kafka topic for
// downstream consumers.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/climatescope/weather-etl/internal/config"
	"github.com/climatescope/weather-etl/internal/domain"
	"github.com/climatescope/weather-etl/internal/observability"
	"github.com/climatescope/weather-etl/internal/pipeline"
)

// Writer produces cleaned observations to the export topic.
// It implements pipeline.Loader.
type Writer struct {
	writer    *kafkago.Writer
	batchSize int
	metrics   *observability.Metrics
	logger    *slog.Logger
}

// NewWriter creates a Kafka producer for the configured export topic.
func NewWriter(cfg *config.Config, metrics *observability.Metrics, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaExportTopic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, batchSize: cfg.ExportBatchSize, metrics: metrics, logger: logger}
}

func (w *Writer) Name() string { return "kafka" }

// Load publishes every cleaned observation in batches. Message keys are the
// deterministic observation IDs, so compacted topics keep one message per
// observation across re-runs.
func (w *Writer) Load(ctx context.Context, result *pipeline.Result) error {
	observations := result.Observations
	for start := 0; start < len(observations); start += w.batchSize {
		end := min(start+w.batchSize, len(observations))

		msgs := make([]kafkago.Message, 0, end-start)
		for _, o := range observations[start:end] {
			msg, err := serializeToMessage(o)
			if err != nil {
				return err
			}
			msgs = append(msgs, msg)
		}
		if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
			return fmt.Errorf("write batch at offset %d: %w", start, err)
		}
		w.metrics.ExportedObservations.Add(float64(len(msgs)))
		w.logger.Debug("export batch published", "from", start, "to", end)
	}
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals an Observation into a Kafka message.
func serializeToMessage(o domain.Observation) (kafkago.Message, error) {
	data, err := json.Marshal(o)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize observation: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(o.ID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "country", Value: []byte(o.Country)},
			{Key: "processed_at", Value: []byte(o.ProcessedAt.Format(time.RFC3339))},
		},
	}, nil
}
