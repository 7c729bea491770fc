package pool

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ib-77/railyard/pkg/rop"
)

// Metrics exports pool activity to Prometheus. A nil *Metrics records nothing.
type Metrics struct {
	submitted *prometheus.CounterVec
	rejected  *prometheus.CounterVec
	resolved  *prometheus.CounterVec
	active    *prometheus.GaugeVec
	queued    *prometheus.GaugeVec
	latency   *prometheus.HistogramVec
}

// NewMetrics creates the pool collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		submitted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "railyard_pool_submitted_total",
				Help: "Work items accepted by the pool.",
			},
			[]string{"lane"},
		),
		rejected: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "railyard_pool_rejected_total",
				Help: "Work items rejected at submission.",
			},
			[]string{"reason"},
		),
		resolved: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "railyard_pool_resolved_total",
				Help: "Work items resolved, by outcome status.",
			},
			[]string{"lane", "status"},
		),
		active: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "railyard_pool_active",
				Help: "Work items currently holding a worker token.",
			},
			[]string{"lane"},
		),
		queued: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "railyard_pool_queued",
				Help: "Work items waiting for a worker token.",
			},
			[]string{"lane"},
		),
		latency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "railyard_pool_latency_seconds",
				Help:    "Time from submission to resolution.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"lane"},
		),
	}

	reg.MustRegister(m.submitted, m.rejected, m.resolved, m.active, m.queued, m.latency)

	return m
}

func (m *Metrics) submit(lane rop.Lane) {
	if m == nil {
		return
	}
	m.submitted.WithLabelValues(lane.String()).Inc()
}

func (m *Metrics) reject(reason string) {
	if m == nil {
		return
	}
	m.rejected.WithLabelValues(reason).Inc()
}

func (m *Metrics) resolve(lane rop.Lane, status rop.Status, latency time.Duration) {
	if m == nil {
		return
	}
	m.resolved.WithLabelValues(lane.String(), status.String()).Inc()
	m.latency.WithLabelValues(lane.String()).Observe(latency.Seconds())
}

func (m *Metrics) setActive(lane rop.Lane, n int64) {
	if m == nil {
		return
	}
	m.active.WithLabelValues(lane.String()).Set(float64(n))
}

func (m *Metrics) setQueued(lane rop.Lane, n int64) {
	if m == nil {
		return
	}
	m.queued.WithLabelValues(lane.String()).Set(float64(n))
}
