package kafka

import (
	"context"
	"fmt"
	"log/slog"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/tessieres/velib-pipeline/internal/config"
	"github.com/tessieres/velib-pipeline/internal/domain"
)

// Reader consumes the station topic as part of a consumer group. Offsets are
// committed only through the Commit closure carried by each message, never
// automatically; that is what keeps delivery at-least-once.
type Reader struct {
	reader *kafkago.Reader
	logger *slog.Logger
}

// NewReader creates a Kafka consumer for the configured station topic. A
// group with no committed offset starts from the earliest message.
func NewReader(cfg *config.Config, logger *slog.Logger) *Reader {
	r := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     cfg.KafkaBrokers,
		GroupID:     cfg.KafkaGroupID,
		Topic:       cfg.KafkaTopic,
		MinBytes:    1,
		MaxBytes:    10e6,
		StartOffset: kafkago.FirstOffset,
	})
	return &Reader{reader: r, logger: logger}
}

// Fetch blocks until the next message arrives or ctx is done.
func (r *Reader) Fetch(ctx context.Context) (domain.InboundMessage, error) {
	msg, err := r.reader.FetchMessage(ctx)
	if err != nil {
		return domain.InboundMessage{}, fmt.Errorf("fetch message: %w", err)
	}
	return r.mapMessage(msg), nil
}

func (r *Reader) Close() error {
	return r.reader.Close()
}

// mapMessage converts a Kafka message into the broker-agnostic inbound shape.
// Commits are cumulative per partition, so committing a later offset also
// passes over any earlier message whose commit was withheld.
func (r *Reader) mapMessage(msg kafkago.Message) domain.InboundMessage {
	headers := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	return domain.InboundMessage{
		Key:       msg.Key,
		Value:     msg.Value,
		Headers:   headers,
		Topic:     msg.Topic,
		Partition: msg.Partition,
		Offset:    msg.Offset,
		Timestamp: msg.Time,
		Commit: func(ctx context.Context) error {
			return r.reader.CommitMessages(ctx, msg)
		},
	}
}
