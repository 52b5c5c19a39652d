package api

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/warp/production-engine/engine"
)

// =============================================================================
// METRICS
// =============================================================================

// Run modes used as the "mode" label.
const (
	ModeSync   = "sync"
	ModeQueued = "queued"
)

// Metrics holds the service collectors on a private registry so several
// servers (and tests) can coexist in one process.
type Metrics struct {
	registry *prometheus.Registry

	runs       *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	hours      prometheus.Histogram
	queueDepth prometheus.Gauge
}

func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "simulation_runs_total",
			Help: "Finished simulation runs by mode and outcome.",
		}, []string{"mode", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "simulation_run_duration_seconds",
			Help:    "Wall-clock time spent simulating one run.",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
		}, []string{"mode"}),
		hours: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "simulation_hours",
			Help:    "Simulated working hours per finished run.",
			Buckets: prometheus.ExponentialBuckets(8, 2, 12),
		}),
		queueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "simulation_queue_depth",
			Help: "Runs waiting for a worker.",
		}),
	}
	reg.MustRegister(
		m.runs, m.duration, m.hours, m.queueDepth,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveRun records one finished simulation. A nil receiver is a no-op.
func (m *Metrics) ObserveRun(mode string, status engine.Status, hours int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(mode, string(status)).Inc()
	m.duration.WithLabelValues(mode).Observe(elapsed.Seconds())
	m.hours.Observe(float64(hours))
}

// ObserveFailure counts a run that produced no result.
func (m *Metrics) ObserveFailure(mode string) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(mode, "failed").Inc()
}

func (m *Metrics) setQueueDepth(n int) {
	if m == nil {
		return
	}
	m.queueDepth.Set(float64(n))
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry is exposed for tests.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }
