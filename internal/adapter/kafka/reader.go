package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/couchcryptid/campus-air-dashboard/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// ErrMalformedSnapshot marks a message whose value is not a snapshot. The
// reader has already moved past it, so callers can keep reading.
var ErrMalformedSnapshot = errors.New("malformed snapshot")

// Received is a snapshot read back from the topic with its message metadata.
type Received struct {
	Snapshot  domain.Snapshot
	Key       string
	Headers   map[string]string
	Partition int
	Offset    int64
}

// Reader consumes snapshots from the snapshot topic without a consumer group,
// starting at the newest offset.
type Reader struct {
	reader *kafkago.Reader
	logger *slog.Logger
}

// NewReader creates a snapshot consumer for one partition of topic.
func NewReader(brokers []string, topic string, logger *slog.Logger) *Reader {
	r := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     brokers,
		Topic:       topic,
		StartOffset: kafkago.LastOffset,
		MinBytes:    1,
		MaxBytes:    10e6,
	})
	return &Reader{reader: r, logger: logger}
}

// Next blocks until the next snapshot arrives or ctx is cancelled. A message
// that does not decode is returned as an error wrapping ErrMalformedSnapshot.
func (r *Reader) Next(ctx context.Context) (Received, error) {
	msg, err := r.reader.ReadMessage(ctx)
	if err != nil {
		return Received{}, fmt.Errorf("read snapshot: %w", err)
	}
	rec, err := mapMessageToSnapshot(msg)
	if err != nil {
		r.logger.Warn("skipping malformed snapshot", "error", err, "partition", msg.Partition, "offset", msg.Offset)
		return Received{}, err
	}
	return rec, nil
}

func (r *Reader) Close() error {
	return r.reader.Close()
}

func mapMessageToSnapshot(msg kafkago.Message) (Received, error) {
	var snap domain.Snapshot
	if err := json.Unmarshal(msg.Value, &snap); err != nil {
		return Received{}, fmt.Errorf("%w at offset %d: %w", ErrMalformedSnapshot, msg.Offset, err)
	}
	headers := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	return Received{
		Snapshot:  snap,
		Key:       string(msg.Key),
		Headers:   headers,
		Partition: msg.Partition,
		Offset:    msg.Offset,
	}, nil
}
