// Package observability defines the Prometheus metrics exposed by the service.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RedisErrorRate counts Redis errors by operation type.
	RedisErrorRate = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rewear_redis_error_rate_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// DatabaseQueryLatency records database query latency by operation and table.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "rewear_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})

	// WebSocketThreadConnections is the gauge of connections per chat thread.
	WebSocketThreadConnections = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "rewear_websocket_thread_connections",
		Help: "Number of WebSocket connections per chat thread",
	}, []string{"thread_id"})

	// WebSocketConnectionsTotal is the gauge of total WebSocket connections.
	WebSocketConnectionsTotal = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "rewear_websocket_connections_total",
		Help: "Total number of active WebSocket connections",
	})

	// MessageThroughput counts chat messages delivered per thread and type.
	MessageThroughput = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rewear_message_throughput_total",
		Help: "Total number of chat messages delivered",
	}, []string{"thread_id", "message_type"})

	// WebSocketBackpressureDrops counts messages dropped due to backpressure by hub and reason.
	WebSocketBackpressureDrops = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rewear_websocket_backpressure_drops_total",
		Help: "Total number of WebSocket messages dropped due to backpressure",
	}, []string{"hub", "reason"})

	// SwapTransitions counts swap request status transitions.
	SwapTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rewear_swap_transitions_total",
		Help: "Total number of swap request status transitions",
	}, []string{"from", "to"})

	// ItemModerations counts listing moderation decisions.
	ItemModerations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rewear_item_moderations_total",
		Help: "Total number of listing moderation decisions",
	}, []string{"decision"})

	// PointsAdjustments counts wallet debits and credits.
	PointsAdjustments = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rewear_points_adjustments_total",
		Help: "Total number of point balance adjustments by direction",
	}, []string{"direction"})
)

// ObserveQuery records the latency of a database query.
func ObserveQuery(operation, table string, start time.Time) {
	DatabaseQueryLatency.WithLabelValues(operation, table).Observe(time.Since(start).Seconds())
}

// TrackQuery returns a function that records query latency when called (e.g. defer).
func TrackQuery(operation, table string) func() {
	start := time.Now()
	return func() {
		ObserveQuery(operation, table, start)
	}
}

// RecordSwapTransition increments the transition counter for a status change.
func RecordSwapTransition(from, to string) {
	SwapTransitions.WithLabelValues(from, to).Inc()
}

// RecordModeration increments the moderation counter for a decision.
func RecordModeration(decision string) {
	ItemModerations.WithLabelValues(decision).Inc()
}

// RecordPointsAdjustment increments the wallet adjustment counter. Positive
// deltas count as credits, negative as debits.
func RecordPointsAdjustment(delta int) {
	if delta >= 0 {
		PointsAdjustments.WithLabelValues("credit").Inc()
	} else {
		PointsAdjustments.WithLabelValues("debit").Inc()
	}
}
