package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/tessieres/velib-pipeline/internal/config"
	"github.com/tessieres/velib-pipeline/internal/domain"
)

// Writer publishes station status records to the station topic.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured station topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaTopic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger}
}

// Publish serializes and writes the records in a single WriteMessages call.
// Keying by station code keeps one station's observations on one partition,
// preserving per-station order through the topic.
func (w *Writer) Publish(ctx context.Context, records []domain.StationStatus) error {
	if len(records) == 0 {
		return nil
	}

	producedAt := time.Now().UTC()
	msgs := make([]kafkago.Message, len(records))
	for i := range records {
		msg, err := serializeToMessage(records[i], producedAt)
		if err != nil {
			return err
		}
		msgs[i] = msg
	}

	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("publish station records: %w", err)
	}

	w.logger.Info("published station records", "count", len(records))
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a StationStatus into a Kafka message.
func serializeToMessage(rec domain.StationStatus, producedAt time.Time) (kafkago.Message, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize station record: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(rec.StationCode),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "produced_at", Value: []byte(producedAt.Format(time.RFC3339))},
		},
	}, nil
}
