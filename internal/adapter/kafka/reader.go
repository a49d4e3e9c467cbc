// Package kafka adapts the pipeline's extractor and loader ports to Kafka
// topics using segmentio/kafka-go.
package kafka

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/climate-data-normalizer/internal/config"
	"github.com/couchcryptid/climate-data-normalizer/internal/pipeline"
)

// drainTimeout bounds how long ExtractBatch waits for followup messages once
// the first message of a batch has arrived.
const drainTimeout = 250 * time.Millisecond

// Reader consumes raw datasets from the source topic as part of a consumer
// group. It implements pipeline.BatchExtractor.
type Reader struct {
	reader *kafkago.Reader
	logger *slog.Logger
}

// NewReader creates a Kafka consumer for the configured source topic.
func NewReader(cfg *config.Config, logger *slog.Logger) *Reader {
	r := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:  cfg.KafkaBrokers,
		Topic:    cfg.KafkaSourceTopic,
		GroupID:  cfg.KafkaGroupID,
		MinBytes: 1,
		MaxBytes: 10 << 20,
	})
	return &Reader{reader: r, logger: logger}
}

// ExtractBatch blocks until at least one message arrives, then drains
// whatever else is already available, up to batchSize. Offsets are committed
// by the pipeline through each message's Commit closure, after the batch has
// been durably produced downstream.
func (r *Reader) ExtractBatch(ctx context.Context, batchSize int) ([]pipeline.RawMessage, error) {
	first, err := r.reader.FetchMessage(ctx)
	if err != nil {
		return nil, err
	}
	batch := []pipeline.RawMessage{r.mapMessage(first)}

	for len(batch) < batchSize {
		drainCtx, cancel := context.WithTimeout(ctx, drainTimeout)
		msg, err := r.reader.FetchMessage(drainCtx)
		cancel()
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, io.EOF) {
				break
			}
			if ctx.Err() != nil {
				// Shutdown mid-batch: hand back what we have so it still
				// gets processed.
				break
			}
			return nil, err
		}
		batch = append(batch, r.mapMessage(msg))
	}
	return batch, nil
}

func (r *Reader) Close() error {
	return r.reader.Close()
}

// mapMessage converts a Kafka message into a pipeline message with a commit
// closure bound to the consumer group offset.
func (r *Reader) mapMessage(msg kafkago.Message) pipeline.RawMessage {
	headers := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	return pipeline.RawMessage{
		Key:       msg.Key,
		Value:     msg.Value,
		Topic:     msg.Topic,
		Partition: msg.Partition,
		Offset:    msg.Offset,
		Timestamp: msg.Time,
		Headers:   headers,
		Commit: func(ctx context.Context) error {
			return r.reader.CommitMessages(ctx, msg)
		},
	}
}
