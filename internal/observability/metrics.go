package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "florascope"

// Metrics holds the Prometheus counters, histograms, and gauges for the pipeline.
type Metrics struct {
	RunsTotal             *prometheus.CounterVec // labels: outcome={success,error}
	RunDuration           prometheus.Histogram
	ObservationsProcessed prometheus.Counter
	PredictionsFlagged    prometheus.Counter
	PipelineReady         prometheus.Gauge

	// Climate provider metrics.
	ClimateRequests    *prometheus.CounterVec // labels: outcome={success,error,retry}
	ClimateCache       *prometheus.CounterVec // labels: result={hit,miss}
	ClimateAPIDuration prometheus.Histogram
	ClimateEnabled     prometheus.Gauge

	// Sink metrics.
	PredictionsPublished prometheus.Counter
	SinkErrors           *prometheus.CounterVec // labels: sink={kafka,history}
}

// NewMetrics creates and registers all pipeline metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	return NewMetricsWithRegistry(prometheus.DefaultRegisterer)
}

// NewMetricsWithRegistry creates all pipeline metrics and registers them with reg.
func NewMetricsWithRegistry(reg prometheus.Registerer) *Metrics {
	m := newMetrics()
	reg.MustRegister(
		m.RunsTotal,
		m.RunDuration,
		m.ObservationsProcessed,
		m.PredictionsFlagged,
		m.PipelineReady,
		m.ClimateRequests,
		m.ClimateCache,
		m.ClimateAPIDuration,
		m.ClimateEnabled,
		m.PredictionsPublished,
		m.SinkErrors,
	)
	return m
}

// NewMetricsForTesting creates unregistered Metrics to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		RunsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Pipeline runs by outcome.",
		}, []string{"outcome"}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Duration of a complete pipeline run.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),
		ObservationsProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "observations_processed_total",
			Help:      "Observations normalized and scored across all runs.",
		}),
		PredictionsFlagged: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "predictions_flagged_total",
			Help:      "Observations predicted as probable flowering.",
		}),
		PipelineReady: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pipeline_ready",
			Help:      "1 once a run has completed successfully.",
		}),
		ClimateRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "climate_requests_total",
			Help:      "Climate provider requests by outcome.",
		}, []string{"outcome"}),
		ClimateCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "climate_cache_total",
			Help:      "Climatology cache lookups by result.",
		}, []string{"result"}),
		ClimateAPIDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "climate_api_duration_seconds",
			Help:      "Climate provider request duration in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
		ClimateEnabled: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "climate_enabled",
			Help:      "1 when the climate join is enabled, 0 otherwise.",
		}),
		PredictionsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "predictions_published_total",
			Help:      "Predictions written to the Kafka topic.",
		}),
		SinkErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sink_errors_total",
			Help:      "Failures writing run results to optional sinks.",
		}, []string{"sink"}),
	}
}
