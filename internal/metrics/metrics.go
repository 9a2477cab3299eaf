// Package metrics provides Prometheus metrics for simulation batches.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels for SimulationsTotal.
const (
	OutcomeOK        = "ok"
	OutcomeInvalid   = "invalid"
	OutcomeCancelled = "cancelled"
	OutcomeError     = "error"
)

// Metrics holds the collectors riftsim exports.
type Metrics struct {
	SimulationsTotal   *prometheus.CounterVec
	TrialsTotal        prometheus.Counter
	SimulationDuration prometheus.Histogram
	ActiveConnections  prometheus.Gauge
	RejectedRequests   *prometheus.CounterVec

	registry *prometheus.Registry
}

// New creates the collectors and registers them on a fresh registry.
func New(namespace string) *Metrics {
	if namespace == "" {
		namespace = "riftsim"
	}

	m := &Metrics{
		SimulationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "simulations_total",
			Help:      "Simulation batches by outcome",
		}, []string{"outcome"}),
		TrialsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "trials_total",
			Help:      "Simulated runs across all completed batches",
		}),
		SimulationDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "simulation_duration_seconds",
			Help:      "Wall time of a simulation batch",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
		}),
		ActiveConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_connections",
			Help:      "Open websocket connections",
		}),
		RejectedRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rejected_requests_total",
			Help:      "Requests refused before simulating, by reason",
		}, []string{"reason"}),
		registry: prometheus.NewRegistry(),
	}

	m.registry.MustRegister(
		m.SimulationsTotal,
		m.TrialsTotal,
		m.SimulationDuration,
		m.ActiveConnections,
		m.RejectedRequests,
	)
	return m
}

// ObserveBatch records one finished batch.
func (m *Metrics) ObserveBatch(outcome string, trials int, elapsed time.Duration) {
	m.SimulationsTotal.WithLabelValues(outcome).Inc()
	if outcome == OutcomeOK {
		m.TrialsTotal.Add(float64(trials))
		m.SimulationDuration.Observe(elapsed.Seconds())
	}
}

// Registry returns the registry the collectors live on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
