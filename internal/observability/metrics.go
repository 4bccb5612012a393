package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// ingestion pipeline.
type Metrics struct {
	MessagesConsumed prometheus.Counter
	RecordsUpserted  prometheus.Counter
	MappingFailures  prometheus.Counter
	StoreFailures    prometheus.Counter
	PipelineRunning  prometheus.Gauge

	// MessageLag tracks how far behind the topic the consumer is running,
	// measured from the broker timestamp of each message.
	MessageLag      prometheus.Histogram
	ProcessDuration prometheus.Histogram
}

// NewMetrics creates and registers all pipeline metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		MessagesConsumed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "velib_ingest",
			Name:      "messages_consumed_total",
			Help:      "Total messages read from the station topic.",
		}),
		RecordsUpserted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "velib_ingest",
			Name:      "records_upserted_total",
			Help:      "Total station records written to the database.",
		}),
		MappingFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "velib_ingest",
			Name:      "mapping_failures_total",
			Help:      "Total messages rejected during decoding or validation.",
		}),
		StoreFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "velib_ingest",
			Name:      "store_failures_total",
			Help:      "Total database write failures.",
		}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "velib_ingest",
			Name:      "pipeline_running",
			Help:      "1 when the consumer loop is active, 0 when shut down.",
		}),
		MessageLag: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "velib_ingest",
			Name:      "message_lag_seconds",
			Help:      "Age of each message at the time it is processed.",
			Buckets:   []float64{0.1, 0.5, 1, 5, 15, 60, 300, 900, 3600},
		}),
		ProcessDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "velib_ingest",
			Name:      "process_duration_seconds",
			Help:      "Duration of a complete consume-map-upsert-commit cycle.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5},
		}),
	}

	prometheus.MustRegister(
		m.MessagesConsumed,
		m.RecordsUpserted,
		m.MappingFailures,
		m.StoreFailures,
		m.PipelineRunning,
		m.MessageLag,
		m.ProcessDuration,
	)

	return m
}

// NewMetricsForTesting creates Metrics with a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		MessagesConsumed: prometheus.NewCounter(prometheus.CounterOpts{Namespace: "velib_ingest", Name: "messages_consumed_total"}),
		RecordsUpserted:  prometheus.NewCounter(prometheus.CounterOpts{Namespace: "velib_ingest", Name: "records_upserted_total"}),
		MappingFailures:  prometheus.NewCounter(prometheus.CounterOpts{Namespace: "velib_ingest", Name: "mapping_failures_total"}),
		StoreFailures:    prometheus.NewCounter(prometheus.CounterOpts{Namespace: "velib_ingest", Name: "store_failures_total"}),
		PipelineRunning:  prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "velib_ingest", Name: "pipeline_running"}),
		MessageLag:       prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "velib_ingest", Name: "message_lag_seconds"}),
		ProcessDuration:  prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "velib_ingest", Name: "process_duration_seconds"}),
	}
}
