package vaultmetrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// latencyBuckets are the histogram bucket bounds, in seconds, shared by
// every per-operation latency histogram. They run from half a
// millisecond to ten seconds, covering an in-memory operation on the
// fast end and a slow/contended sweep on the slow end.
var latencyBuckets = []float64{
	0.0005, 0.001, 0.002, 0.005, 0.010, 0.020, 0.050, 0.100,
	0.200, 0.500, 1.0, 2.0, 5.0, 10.0,
}

// Metrics holds every counter, gauge, and histogram the agent exposes,
// all registered to a private Registry rather than the package-global
// default so multiple agents (as in a test binary) never collide.
type Metrics struct {
	registry *prometheus.Registry

	Ops     *prometheus.CounterVec
	Errors  *prometheus.CounterVec
	Secrets prometheus.Gauge

	PutLatency    prometheus.Histogram
	GetLatency    prometheus.Histogram
	DeleteLatency prometheus.Histogram
}

// New builds and registers a fresh Metrics instance.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		Ops: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "secmem_ops_total",
			Help: "Total number of operations accepted, by operation name.",
		}, []string{"op"}),
		Errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "secmem_errors_total",
			Help: "Total number of operations that ended in an error, by error type.",
		}, []string{"type"}),
		Secrets: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "secmem_secrets_gauge",
			Help: "Current number of secrets held by the agent, including not-yet-swept expired ones.",
		}),
		PutLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "secmem_latency_seconds",
			Help:    "Operation latency in seconds.",
			Buckets: latencyBuckets,
			ConstLabels: prometheus.Labels{
				"op": "put",
			},
		}),
		GetLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "secmem_latency_seconds",
			Help:    "Operation latency in seconds.",
			Buckets: latencyBuckets,
			ConstLabels: prometheus.Labels{
				"op": "get",
			},
		}),
		DeleteLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "secmem_latency_seconds",
			Help:    "Operation latency in seconds.",
			Buckets: latencyBuckets,
			ConstLabels: prometheus.Labels{
				"op": "del",
			},
		}),
	}

	registry.MustRegister(m.Ops, m.Errors, m.Secrets, m.PutLatency, m.GetLatency, m.DeleteLatency)
	return m
}

// IncOp increments the accepted-operation counter for op.
func (m *Metrics) IncOp(op string) {
	m.Ops.WithLabelValues(op).Inc()
}

// IncError increments the error counter for errType.
func (m *Metrics) IncError(errType string) {
	m.Errors.WithLabelValues(errType).Inc()
}

// SetSecrets updates the current secrets gauge to n.
func (m *Metrics) SetSecrets(n int) {
	m.Secrets.Set(float64(n))
}

// Histogram returns the latency histogram for op, or nil if op has no
// dedicated histogram (LIST and METRICS do not get one; they are cheap
// and unbounded by storage, unlike PUT/GET/DEL).
func (m *Metrics) Histogram(op string) prometheus.Histogram {
	switch op {
	case "put":
		return m.PutLatency
	case "get":
		return m.GetLatency
	case "del":
		return m.DeleteLatency
	default:
		return nil
	}
}
