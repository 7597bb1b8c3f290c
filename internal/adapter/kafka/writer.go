package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/couchcryptid/methane-encoder-service/internal/config"
	"github.com/couchcryptid/methane-encoder-service/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// Writer produces encoded facilities to a Kafka topic.
// It implements pipeline.BatchLoader.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured sink topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaSinkTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger}
}

// LoadBatch publishes a batch of encoded facilities in a single
// WriteMessages call. Messages are keyed by facility ID so every update for a
// facility lands on the same partition.
func (w *Writer) LoadBatch(ctx context.Context, batch []domain.EncodedFacility) error {
	if len(batch) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(batch))
	for i := range batch {
		msg, err := serializeToMessage(batch[i])
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("write messages: %w", err)
	}
	w.logger.Debug("batch written", "topic", w.writer.Topic, "size", len(msgs))
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals an EncodedFacility into a Kafka message.
func serializeToMessage(f domain.EncodedFacility) (kafkago.Message, error) {
	data, err := json.Marshal(f)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize encoded facility: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(f.Record.ID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "industry", Value: []byte(domain.ParseIndustry(f.Record.IndustryType).String())},
			{Key: "passes_filter", Value: []byte(strconv.FormatBool(f.Encoding.PassesFilter))},
			{Key: "processed_at", Value: []byte(f.ProcessedAt.Format(time.RFC3339))},
		},
	}, nil
}
