package telemetry

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels shared by generation and completion metrics
const (
	OutcomeOK        = "ok"
	OutcomeError     = "error"
	OutcomeCancelled = "cancelled"
	OutcomeAbandoned = "abandoned"
)

// Metrics holds the Prometheus collectors of the service.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	generations        *prometheus.CounterVec
	generationDuration prometheus.Histogram
	inFlight           prometheus.Gauge
	fragments          *prometheus.CounterVec
	fragmentBytes      *prometheus.CounterVec
	completions        *prometheus.CounterVec
	completionDuration *prometheus.HistogramVec
	completionDeltas   *prometheus.CounterVec
}

// NewMetrics creates the collectors on a dedicated registry
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		generations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "recipe_generations_total",
			Help: "Recipe generations by outcome.",
		}, []string{"outcome"}),
		generationDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "recipe_generation_duration_seconds",
			Help:    "End-to-end duration of a recipe generation.",
			Buckets: []float64{1, 2.5, 5, 10, 20, 30, 60, 120},
		}),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "recipe_generations_in_flight",
			Help: "Recipe generations currently streaming.",
		}),
		fragments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "recipe_fragments_total",
			Help: "Fragments delivered to clients by part.",
		}, []string{"part"}),
		fragmentBytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "recipe_fragment_bytes_total",
			Help: "Bytes of generated content delivered to clients by part.",
		}, []string{"part"}),
		completions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "completion_requests_total",
			Help: "Streaming completion requests by model and outcome.",
		}, []string{"model", "outcome"}),
		completionDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "completion_stream_duration_seconds",
			Help:    "Time from opening a completion stream until it ends.",
			Buckets: prometheus.DefBuckets,
		}, []string{"model"}),
		completionDeltas: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "completion_deltas_total",
			Help: "Text deltas received from the completion provider by model.",
		}, []string{"model"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.generations,
		m.generationDuration,
		m.inFlight,
		m.fragments,
		m.fragmentBytes,
		m.completions,
		m.completionDuration,
		m.completionDeltas,
	)
	return m
}

// Registry exposes the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// GenerationStarted marks a generation in flight. The returned func records
// its outcome and must be called exactly once.
func (m *Metrics) GenerationStarted() func(outcome string) {
	if m == nil {
		return func(string) {}
	}
	start := time.Now()
	m.inFlight.Inc()
	return func(outcome string) {
		m.inFlight.Dec()
		m.generations.WithLabelValues(outcome).Inc()
		m.generationDuration.Observe(time.Since(start).Seconds())
	}
}

// ObserveFragment records a fragment handed to the client
func (m *Metrics) ObserveFragment(part string, size int) {
	if m == nil {
		return
	}
	m.fragments.WithLabelValues(part).Inc()
	m.fragmentBytes.WithLabelValues(part).Add(float64(size))
}

// ObserveCompletion records the end of a completion stream
func (m *Metrics) ObserveCompletion(model, outcome string, elapsed time.Duration, deltas int) {
	if m == nil {
		return
	}
	m.completions.WithLabelValues(model, outcome).Inc()
	m.completionDuration.WithLabelValues(model).Observe(elapsed.Seconds())
	m.completionDeltas.WithLabelValues(model).Add(float64(deltas))
}
