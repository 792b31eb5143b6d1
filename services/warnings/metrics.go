package warnings

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	prometheusWarningsActive   *prometheus.GaugeVec
	prometheusWarningsChanges  prometheus.Counter
	prometheusWarningsRequests *prometheus.CounterVec
	prometheusHealth           prometheus.Counter
	prometheusAlertDuration    prometheus.Histogram
	prometheusAlertsSuppressed prometheus.Counter
)

var (
	prometheusMetricsInitOnce sync.Once
)

// initPrometheusMetrics registers the warnings metrics with the default
// registry. Safe to call any number of times.
func initPrometheusMetrics() {
	prometheusMetricsInitOnce.Do(_initPrometheusMetrics)
}

func _initPrometheusMetrics() {
	prometheusWarningsActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "warnd",
			Subsystem: "warnings",
			Name:      "active",
			Help:      "1 if the warning condition is currently shown, 0 otherwise",
		},
		[]string{"condition"},
	)

	prometheusWarningsChanges = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "warnd",
			Subsystem: "warnings",
			Name:      "changes_total",
			Help:      "Number of warning registry state changes",
		},
	)

	prometheusWarningsRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "warnd",
			Subsystem: "warnings",
			Name:      "requests_total",
			Help:      "Number of warning API requests by rendering mode",
		},
		[]string{"mode"},
	)

	prometheusHealth = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "warnd",
			Subsystem: "warnings",
			Name:      "health",
			Help:      "Number of calls to the Health endpoint",
		},
	)

	prometheusAlertDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "warnd",
			Subsystem: "alertnotify",
			Name:      "command_duration_seconds",
			Help:      "Duration of alert command executions",
			Buckets:   prometheus.ExponentialBuckets(0.01, 4, 8),
		},
	)

	prometheusAlertsSuppressed = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "warnd",
			Subsystem: "alertnotify",
			Name:      "suppressed_total",
			Help:      "Number of alerts not executed because of the rate limit",
		},
	)

	for _, c := range AllConditions() {
		prometheusWarningsActive.WithLabelValues(string(c)).Set(0)
	}
}

// metricsObserver keeps the active gauges in line with the registry. Out of
// order snapshots are dropped so a slow observer call cannot roll the gauges
// back.
type metricsObserver struct {
	mu      sync.Mutex
	seen    bool
	lastSeq uint64
}

// SubscribeMetrics publishes reg's state as prometheus gauges.
func SubscribeMetrics(reg *Registry) {
	initPrometheusMetrics()

	m := &metricsObserver{}

	reg.OnChange(m.observe)

	// pick up anything set before subscribing
	m.observe(reg.Snapshot())
}

func (m *metricsObserver) observe(status Status) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.seen && status.Sequence <= m.lastSeq {
		return
	}

	prometheusWarningsChanges.Add(float64(status.Sequence - m.lastSeq))

	m.seen = true
	m.lastSeq = status.Sequence

	for _, c := range AllConditions() {
		v := 0.0
		if status.IsActive(c) {
			v = 1
		}

		prometheusWarningsActive.WithLabelValues(string(c)).Set(v)
	}
}
