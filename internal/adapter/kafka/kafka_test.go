package kafka

import (
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/climate-data-normalizer/internal/pipeline"
)

func TestMapMessage(t *testing.T) {
	now := time.Now()
	msg := kafkago.Message{
		Key:       []byte("era5-t2m"),
		Value:     []byte(`{"id":"era5-t2m"}`),
		Topic:     "raw-climate-datasets",
		Partition: 2,
		Offset:    42,
		Time:      now,
		Headers: []kafkago.Header{
			{Key: "source", Value: []byte("reanalysis")},
		},
	}

	r := &Reader{}
	raw := r.mapMessage(msg)

	assert.Equal(t, []byte("era5-t2m"), raw.Key)
	assert.JSONEq(t, `{"id":"era5-t2m"}`, string(raw.Value))
	assert.Equal(t, "raw-climate-datasets", raw.Topic)
	assert.Equal(t, 2, raw.Partition)
	assert.Equal(t, int64(42), raw.Offset)
	assert.Equal(t, now, raw.Timestamp)
	assert.Equal(t, "reanalysis", raw.Headers["source"])
	require.NotNil(t, raw.Commit)
}

func TestBuildMessage(t *testing.T) {
	out := pipeline.OutputMessage{
		Key:   []byte("era5-t2m"),
		Value: []byte(`{"id":"era5-t2m"}`),
		Headers: map[string]string{
			"grid_type":  "regular",
			"dataset_id": "era5-t2m",
			"stat":       "mean",
		},
	}

	msg := buildMessage(out)

	assert.Equal(t, []byte("era5-t2m"), msg.Key)
	assert.Equal(t, []byte(`{"id":"era5-t2m"}`), msg.Value)
	require.Len(t, msg.Headers, 3)
	// Header order is deterministic: sorted by key.
	assert.Equal(t, "dataset_id", msg.Headers[0].Key)
	assert.Equal(t, []byte("era5-t2m"), msg.Headers[0].Value)
	assert.Equal(t, "grid_type", msg.Headers[1].Key)
	assert.Equal(t, "stat", msg.Headers[2].Key)
	assert.Equal(t, []byte("mean"), msg.Headers[2].Value)
}

func TestBuildMessageNoHeaders(t *testing.T) {
	msg := buildMessage(pipeline.OutputMessage{Key: []byte("k"), Value: []byte("v")})
	assert.Empty(t, msg.Headers)
}
