package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// normalization pipeline.
type Metrics struct {
	DatasetsConsumed prometheus.Counter
	DatasetsProduced prometheus.Counter
	NormalizeErrors  prometheus.Counter
	PipelineRunning  prometheus.Gauge

	// Batch processing metrics.
	BatchSize               prometheus.Histogram
	BatchProcessingDuration prometheus.Histogram

	// Normalization metrics.
	RolesIdentified     *prometheus.CounterVec // labels: role={latitude,longitude,time,isobaric,depth}, outcome={identified,unidentified}
	AggregationDuration prometheus.Histogram
}

// NewMetrics creates and registers all pipeline metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		DatasetsConsumed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "climate_normalizer",
			Name:      "datasets_consumed_total",
			Help:      "Total datasets read from the source topic.",
		}),
		DatasetsProduced: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "climate_normalizer",
			Name:      "datasets_produced_total",
			Help:      "Total datasets written to the sink topic.",
		}),
		NormalizeErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "climate_normalizer",
			Name:      "normalize_errors_total",
			Help:      "Total normalization failures.",
		}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "climate_normalizer",
			Name:      "pipeline_running",
			Help:      "1 when the pipeline is active, 0 when shut down.",
		}),
		BatchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "climate_normalizer",
			Name:      "batch_size",
			Help:      "Number of datasets per batch extracted from Kafka.",
			Buckets:   []float64{1, 5, 10, 20, 30, 40, 50, 75, 100},
		}),
		BatchProcessingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "climate_normalizer",
			Name:      "batch_processing_duration_seconds",
			Help:      "Duration of a complete batch extract-normalize-load cycle.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10},
		}),
		RolesIdentified: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "climate_normalizer",
			Name:      "roles_identified_total",
			Help:      "Coordinate role classification results by role and outcome.",
		}, []string{"role", "outcome"}),
		AggregationDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "climate_normalizer",
			Name:      "aggregation_duration_seconds",
			Help:      "Duration of the temporal aggregation step per dataset.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5},
		}),
	}

	prometheus.MustRegister(
		m.DatasetsConsumed,
		m.DatasetsProduced,
		m.NormalizeErrors,
		m.PipelineRunning,
		m.BatchSize,
		m.BatchProcessingDuration,
		m.RolesIdentified,
		m.AggregationDuration,
	)

	return m
}

// NewMetricsForTesting creates Metrics with a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		DatasetsConsumed:        prometheus.NewCounter(prometheus.CounterOpts{Namespace: "climate_normalizer", Name: "datasets_consumed_total"}),
		DatasetsProduced:        prometheus.NewCounter(prometheus.CounterOpts{Namespace: "climate_normalizer", Name: "datasets_produced_total"}),
		NormalizeErrors:         prometheus.NewCounter(prometheus.CounterOpts{Namespace: "climate_normalizer", Name: "normalize_errors_total"}),
		PipelineRunning:         prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "climate_normalizer", Name: "pipeline_running"}),
		BatchSize:               prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "climate_normalizer", Name: "batch_size"}),
		BatchProcessingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "climate_normalizer", Name: "batch_processing_duration_seconds"}),
		RolesIdentified:         prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "climate_normalizer", Name: "roles_identified_total"}, []string{"role", "outcome"}),
		AggregationDuration:     prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "climate_normalizer", Name: "aggregation_duration_seconds"}),
	}
}
