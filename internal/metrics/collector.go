// Package metrics provides internal Prometheus metrics collection.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// Collector registers and records the service's Prometheus metrics.
type Collector struct {
	// HTTP surface
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Turn execution
	turnsTotal        *prometheus.CounterVec
	turnDuration      *prometheus.HistogramVec
	turnFragments     *prometheus.CounterVec
	turnsInFlight     prometheus.Gauge
	conversationWaits *prometheus.HistogramVec

	// Thread store
	storeOpsTotal   *prometheus.CounterVec
	storeOpDuration *prometheus.HistogramVec

	logger *zap.Logger
}

// NewCollector creates a collector registered on the default registry under
// namespace.
func NewCollector(namespace string, logger *zap.Logger) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Collector{
		logger: logger.With(zap.String("component", "metrics")),
	}

	c.httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)
	c.httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	c.turnsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "turns_total",
			Help:      "Total number of executed turns",
		},
		[]string{"participant", "kind", "status"},
	)
	c.turnDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "turn_duration_seconds",
			Help:      "Turn duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		},
		[]string{"participant", "kind"},
	)
	c.turnFragments = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "turn_fragments_total",
			Help:      "Total number of streamed reply fragments",
		},
		[]string{"participant"},
	)
	c.turnsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "turns_in_flight",
			Help:      "Turns currently executing",
		},
	)
	c.conversationWaits = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "conversation_wait_seconds",
			Help:      "Time a turn waited for its conversation's previous turn",
			Buckets:   []float64{0.001, 0.01, 0.1, 0.5, 1, 5, 30},
		},
		[]string{"participant"},
	)

	c.storeOpsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_ops_total",
			Help:      "Total number of thread store operations",
		},
		[]string{"backend", "operation", "status"},
	)
	c.storeOpDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "store_op_duration_seconds",
			Help:      "Thread store operation duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"backend", "operation"},
	)

	logger.Info("metrics collector initialized", zap.String("namespace", namespace))
	return c
}

// RecordHTTPRequest records one served HTTP request.
func (c *Collector) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	c.httpRequestsTotal.WithLabelValues(method, path, statusClass(status)).Inc()
	c.httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordTurn records one completed or failed turn.
func (c *Collector) RecordTurn(participant, kind, status string, duration time.Duration) {
	c.turnsTotal.WithLabelValues(participant, kind, status).Inc()
	c.turnDuration.WithLabelValues(participant, kind).Observe(duration.Seconds())
}

// RecordFragment counts one streamed reply fragment.
func (c *Collector) RecordFragment(participant string) {
	c.turnFragments.WithLabelValues(participant).Inc()
}

// TurnStarted marks a turn entering execution; the returned func marks it
// leaving.
func (c *Collector) TurnStarted() func() {
	c.turnsInFlight.Inc()
	return c.turnsInFlight.Dec
}

// RecordConversationWait records how long a turn waited on its
// conversation's previous turn.
func (c *Collector) RecordConversationWait(participant string, wait time.Duration) {
	c.conversationWaits.WithLabelValues(participant).Observe(wait.Seconds())
}

// RecordStoreOp records one thread store operation.
func (c *Collector) RecordStoreOp(backend, operation, status string, duration time.Duration) {
	c.storeOpsTotal.WithLabelValues(backend, operation, status).Inc()
	c.storeOpDuration.WithLabelValues(backend, operation).Observe(duration.Seconds())
}

func statusClass(code int) string {
	switch {
	case code >= 200 && code < 300:
		return "2xx"
	case code >= 300 && code < 400:
		return "3xx"
	case code >= 400 && code < 500:
		return "4xx"
	case code >= 500:
		return "5xx"
	default:
		return "unknown"
	}
}
