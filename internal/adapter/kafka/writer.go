package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/crop-advisory-service/internal/domain"
)

// Writer produces prediction events to a Kafka topic so downstream
// consumers (analytics, agronomy dashboards) can react to advisory runs.
// It implements advisor.EventPublisher.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the prediction events topic.
func NewWriter(brokers []string, topic string, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger}
}

// PublishPredictionEvent serializes and publishes a single prediction
// history entry. Entries for the same farm share a key so per-farm ordering
// is preserved within a partition.
func (w *Writer) PublishPredictionEvent(ctx context.Context, entry domain.PredictionHistoryEntry) error {
	msg, err := serializeToMessage(entry)
	if err != nil {
		return err
	}
	return w.writer.WriteMessages(ctx, msg)
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a PredictionHistoryEntry into a Kafka message.
func serializeToMessage(entry domain.PredictionHistoryEntry) (kafkago.Message, error) {
	data, err := json.Marshal(entry)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize prediction event: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(entry.FarmID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "success", Value: []byte(strconv.FormatBool(entry.Success))},
			{Key: "created_at", Value: []byte(entry.CreatedAt.Format(time.RFC3339))},
		},
	}, nil
}
