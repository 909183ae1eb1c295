package mockhost

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics enumerates the metrics collected by the worker pool and the
// dispatcher. A nil *Metrics records nothing.
type Metrics struct {
	QueuedJobs         prometheus.Gauge
	ExecutedJobs       prometheus.Counter
	RecoveredPanics    prometheus.Counter
	Requests           *prometheus.CounterVec
	DroppedConnections *prometheus.CounterVec
	RequestDuration    *prometheus.HistogramVec
}

// NewMetrics creates the metrics and registers them with reg. Passing a fresh
// prometheus.NewRegistry() keeps several servers in one process apart.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		QueuedJobs: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "mockhost",
			Subsystem: "pool",
			Name:      "queued_jobs",
			Help:      "Jobs waiting for a free worker.",
		}),
		ExecutedJobs: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "mockhost",
			Subsystem: "pool",
			Name:      "executed_jobs_total",
			Help:      "Jobs run to completion or recovered.",
		}),
		RecoveredPanics: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "mockhost",
			Subsystem: "pool",
			Name:      "recovered_panics_total",
			Help:      "Jobs that panicked and were recovered by their worker.",
		}),
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mockhost",
			Subsystem: "dispatch",
			Name:      "requests_total",
			Help:      "Requests answered, by method and status.",
		}, []string{"method", "status"}),
		DroppedConnections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mockhost",
			Subsystem: "dispatch",
			Name:      "dropped_connections_total",
			Help:      "Connections closed without a response.",
		}, []string{"reason"}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "mockhost",
			Subsystem: "dispatch",
			Name:      "request_duration_seconds",
			Help:      "Time from decoded request to written response.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
	}

	if reg != nil {
		reg.MustRegister(
			m.QueuedJobs,
			m.ExecutedJobs,
			m.RecoveredPanics,
			m.Requests,
			m.DroppedConnections,
			m.RequestDuration,
		)
	}

	return m
}

func (m *Metrics) jobQueued() {
	if m != nil {
		m.QueuedJobs.Inc()
	}
}

func (m *Metrics) jobStarted() {
	if m != nil {
		m.QueuedJobs.Dec()
	}
}

func (m *Metrics) jobDone(panicked bool) {
	if m == nil {
		return
	}
	m.ExecutedJobs.Inc()
	if panicked {
		m.RecoveredPanics.Inc()
	}
}

func (m *Metrics) requestServed(method string, status int, seconds float64) {
	if m == nil {
		return
	}
	m.Requests.WithLabelValues(method, strconv.Itoa(status)).Inc()
	m.RequestDuration.WithLabelValues(method).Observe(seconds)
}

func (m *Metrics) connectionDropped(reason string) {
	if m != nil {
		m.DroppedConnections.WithLabelValues(reason).Inc()
	}
}
