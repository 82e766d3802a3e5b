// Package metrics holds the Prometheus collectors for reasoning engines and
// engine pools.
//
// A nil *Metrics is valid and records nothing, so components take metrics as
// an optional dependency.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "slotreason"

// Metrics holds all collectors.
//
// Thread Safety: Safe for concurrent use (Prometheus metrics are thread-safe).
type Metrics struct {
	// ReasonDuration measures whole reasoning calls.
	ReasonDuration prometheus.Histogram

	// ReasonCycles counts the cycles each reasoning call ran.
	ReasonCycles prometheus.Histogram

	// ReasonErrors counts failed reasoning calls by error code.
	ReasonErrors *prometheus.CounterVec

	// RuleFires counts rule firings.
	RuleFires prometheus.Counter

	// Directives counts processed directives by kind.
	Directives *prometheus.CounterVec

	// PoolBusy is the number of acquired engines per pool.
	PoolBusy *prometheus.GaugeVec

	// PoolIdle is the number of idle engines per pool.
	PoolIdle *prometheus.GaugeVec

	// PoolAcquireWait measures how long Acquire waited per pool.
	PoolAcquireWait *prometheus.HistogramVec

	// EnginesCreated counts engines constructed per pool.
	EnginesCreated *prometheus.CounterVec
}

// New creates the collectors and registers them with reg.
// Returns nil when reg is nil.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		return nil
	}
	f := promauto.With(reg)
	return &Metrics{
		ReasonDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "reason_duration_seconds",
			Help:      "Duration of reasoning calls",
			Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}),
		ReasonCycles: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "reason_cycles",
			Help:      "Reasoning cycles run per call",
			Buckets:   []float64{1, 2, 3, 5, 10, 25, 100, 1000},
		}),
		ReasonErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "reason_errors_total",
			Help:      "Failed reasoning calls by error code",
		}, []string{"code"}),
		RuleFires: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "rule_fires_total",
			Help:      "Rule activations fired",
		}),
		Directives: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "directives_total",
			Help:      "Directives processed by kind",
		}, []string{"kind"}),
		PoolBusy: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "pool",
			Name:      "busy_engines",
			Help:      "Engines currently acquired",
		}, []string{"pool"}),
		PoolIdle: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "pool",
			Name:      "idle_engines",
			Help:      "Engines waiting to be acquired",
		}, []string{"pool"}),
		PoolAcquireWait: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pool",
			Name:      "acquire_wait_seconds",
			Help:      "Time spent waiting in Acquire",
			Buckets:   []float64{0.0001, 0.001, 0.01, 0.1, 0.5, 1, 5, 30},
		}, []string{"pool"}),
		EnginesCreated: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pool",
			Name:      "engines_created_total",
			Help:      "Engines constructed",
		}, []string{"pool"}),
	}
}

// ObserveReason records a finished reasoning call. code is empty on success.
func (m *Metrics) ObserveReason(d time.Duration, cycles int, code string) {
	if m == nil {
		return
	}
	m.ReasonDuration.Observe(d.Seconds())
	m.ReasonCycles.Observe(float64(cycles))
	if code != "" {
		m.ReasonErrors.WithLabelValues(code).Inc()
	}
}

// AddFires records rule firings.
func (m *Metrics) AddFires(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.RuleFires.Add(float64(n))
}

// Directive records one processed directive.
func (m *Metrics) Directive(kind string) {
	if m == nil {
		return
	}
	m.Directives.WithLabelValues(kind).Inc()
}

// PoolState sets the busy and idle gauges of a pool.
func (m *Metrics) PoolState(pool string, busy, idle int) {
	if m == nil {
		return
	}
	m.PoolBusy.WithLabelValues(pool).Set(float64(busy))
	m.PoolIdle.WithLabelValues(pool).Set(float64(idle))
}

// AcquireWait records time spent in Acquire.
func (m *Metrics) AcquireWait(pool string, d time.Duration) {
	if m == nil {
		return
	}
	m.PoolAcquireWait.WithLabelValues(pool).Observe(d.Seconds())
}

// EngineCreated records a constructed engine.
func (m *Metrics) EngineCreated(pool string) {
	if m == nil {
		return
	}
	m.EnginesCreated.WithLabelValues(pool).Inc()
}
