package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/climate-data-normalizer/internal/config"
	"github.com/couchcryptid/climate-data-normalizer/internal/coordid"
	"github.com/couchcryptid/climate-data-normalizer/internal/observability"
	"github.com/couchcryptid/climate-data-normalizer/internal/timeaxis"
	"github.com/couchcryptid/climate-data-normalizer/internal/timestat"
	"github.com/couchcryptid/climate-data-normalizer/internal/transformer"
)

// DatasetNormalizer implements Normalizer: it decodes a raw dataset, brings
// its coordinates into canonical form, aggregates it along the time axis,
// and re-encodes it for the sink topic.
type DatasetNormalizer struct {
	transformer *transformer.Transformer
	aggregator  *timestat.Aggregator
	stat        timestat.Statistic
	freq        string
	opts        timestat.Options
	metrics     *observability.Metrics
	logger      *slog.Logger
	clock       clockwork.Clock
}

// NewNormalizer builds the normalization stage from the service
// configuration. The statistic and frequency are validated up front so a
// misconfigured service fails at startup, not per message.
func NewNormalizer(cfg *config.Config, metrics *observability.Metrics, logger *slog.Logger, clock clockwork.Clock) (*DatasetNormalizer, error) {
	stat, err := timestat.Named(cfg.AggStat)
	if err != nil {
		return nil, err
	}
	if cfg.AggFreq != "" {
		if _, err := timeaxis.ParseFrequency(cfg.AggFreq); err != nil {
			return nil, err
		}
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &DatasetNormalizer{
		transformer: transformer.New(nil, logger),
		aggregator:  timestat.NewAggregator(logger, clock),
		stat:        stat,
		freq:        cfg.AggFreq,
		opts: timestat.Options{
			ExcludeIncomplete: cfg.AggExcludeIncomplete,
			CenterTime:        cfg.AggCenterTime,
			TimeBounds:        cfg.AggTimeBounds,
		},
		metrics: metrics,
		logger:  logger,
		clock:   clock,
	}, nil
}

// Normalize processes one raw message end to end.
func (n *DatasetNormalizer) Normalize(ctx context.Context, raw RawMessage) (OutputMessage, error) {
	if err := ctx.Err(); err != nil {
		return OutputMessage{}, err
	}

	id, ds, err := DecodeDataset(raw.Value)
	if err != nil {
		return OutputMessage{}, err
	}

	canonical, assignment, err := n.transformer.Transform(ds)
	if err != nil {
		return OutputMessage{}, fmt.Errorf("transforming dataset %q: %w", id, err)
	}
	for _, role := range coordid.AllRoles() {
		outcome := "unidentified"
		if assignment[role] != nil {
			outcome = "identified"
		}
		n.metrics.RolesIdentified.WithLabelValues(string(role), outcome).Inc()
	}

	start := n.clock.Now()
	aggregated, err := n.aggregator.Aggregate(canonical, n.stat, n.freq, n.opts)
	if err != nil {
		return OutputMessage{}, fmt.Errorf("aggregating dataset %q: %w", id, err)
	}
	n.metrics.AggregationDuration.Observe(n.clock.Since(start).Seconds())

	value, err := EncodeDataset(id, aggregated)
	if err != nil {
		return OutputMessage{}, err
	}

	return OutputMessage{
		Key:   []byte(id),
		Value: value,
		Headers: map[string]string{
			"dataset_id":   id,
			"grid_type":    aggregated.Attrs.Get("grid_type"),
			"stat":         n.stat.Name,
			"processed_at": n.clock.Now().UTC().Format(time.RFC3339),
		},
	}, nil
}
