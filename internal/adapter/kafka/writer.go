package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/campus-air-dashboard/internal/config"
	"github.com/couchcryptid/campus-air-dashboard/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

const (
	headerOrigin      = "origin"
	headerGeneratedAt = "generated_at"
)

// Writer produces refresh snapshots to a Kafka topic.
// It implements dashboard.Publisher.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured snapshot topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaSnapshotTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
		WriteTimeout: 10 * time.Second,
	}
	return &Writer{writer: w, logger: logger}
}

// Publish serializes a snapshot and writes it keyed by snapshot id.
func (w *Writer) Publish(ctx context.Context, snap domain.Snapshot) error {
	msg, err := serializeToMessage(snap)
	if err != nil {
		return err
	}
	if err := w.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write snapshot %s: %w", snap.ID, err)
	}
	w.logger.Debug("snapshot published", "snapshot_id", snap.ID, "origin", snap.Origin, "readings", len(snap.Readings))
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a Snapshot into a Kafka message.
func serializeToMessage(snap domain.Snapshot) (kafkago.Message, error) {
	data, err := json.Marshal(snap)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize snapshot: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(snap.ID),
		Value: data,
		Time:  snap.GeneratedAt,
		Headers: []kafkago.Header{
			{Key: headerOrigin, Value: []byte(snap.Origin)},
			{Key: headerGeneratedAt, Value: []byte(snap.GeneratedAt.UTC().Format(time.RFC3339))},
		},
	}, nil
}
