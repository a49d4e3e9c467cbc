// Package pipeline orchestrates the extract-normalize-load loop and defines
// the wire format datasets travel in between services.
package pipeline

import (
	"context"
	"time"
)

// RawMessage is one unprocessed message from the source topic, together with
// enough Kafka metadata to log and commit it.
type RawMessage struct {
	Key       []byte
	Value     []byte
	Topic     string
	Partition int
	Offset    int64
	Timestamp time.Time
	Headers   map[string]string

	// Commit acknowledges the message after successful processing. Nil when
	// the source does not track offsets.
	Commit func(ctx context.Context) error
}

// OutputMessage is one normalized dataset ready for the sink topic.
type OutputMessage struct {
	Key     []byte
	Value   []byte
	Headers map[string]string
}
