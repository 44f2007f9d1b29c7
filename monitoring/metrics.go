package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	activeSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "flow_active_sessions_total",
			Help: "Current number of live flow sessions",
		},
	)

	flowOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flow_operations_total",
			Help: "Total flow session operations",
		},
		[]string{"operation", "status"},
	)

	stepTransitions = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "flow_step_transition_seconds",
			Help:    "Duration of step transitions including persistence",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
		},
		[]string{"step_id"},
	)

	storageFallbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storage_fallback_total",
			Help: "Operations served by the fallback store instead of the primary backend",
		},
		[]string{"operation"},
	)

	cacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "expiring_cache_lookups_total",
			Help: "Expiring cache lookups by result",
		},
		[]string{"result"},
	)
)

type Monitor struct{}

func NewMonitor() *Monitor {
	return &Monitor{}
}

func (m *Monitor) TrackFlowOperation(operation, status string) {
	flowOperations.WithLabelValues(operation, status).Inc()
}

func (m *Monitor) TrackStepTransition(stepID string, duration time.Duration) {
	stepTransitions.WithLabelValues(stepID).Observe(duration.Seconds())
}

func (m *Monitor) TrackStorageFallback(operation string) {
	storageFallbacks.WithLabelValues(operation).Inc()
}

func (m *Monitor) TrackCacheLookup(result string) {
	cacheLookups.WithLabelValues(result).Inc()
}

func (m *Monitor) SessionOpened() {
	activeSessions.Inc()
}

func (m *Monitor) SessionClosed() {
	activeSessions.Dec()
}
