// Package metrics defines the prometheus instruments shared across packages.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Broadcast metrics
var (
	// BroadcastActiveSubscribers tracks the number of live event-stream subscribers
	BroadcastActiveSubscribers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "broadcast_active_subscribers",
			Help: "Number of live event-stream subscribers",
		},
	)

	// BroadcastEventsPublished tracks total published events
	BroadcastEventsPublished = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "broadcast_events_published_total",
			Help: "Total events accepted for fan-out",
		},
	)

	// BroadcastSlowSubscribersEvicted tracks subscribers removed for falling behind
	BroadcastSlowSubscribersEvicted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "broadcast_slow_subscribers_evicted_total",
			Help: "Subscribers evicted because their event buffer was full",
		},
	)
)

// Store metrics
var (
	// StoreOpsTotal tracks durable cell operations by operation and status
	StoreOpsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "store_operations_total",
			Help: "Durable cell operations by operation and status",
		},
		[]string{"operation", "status"},
	)

	// StoreCASConflicts tracks compare-and-swap attempts that lost a race
	StoreCASConflicts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "store_cas_conflicts_total",
			Help: "Compare-and-swap attempts that found a changed record",
		},
	)

	// StoreFlushFailures tracks best-effort flushes that failed
	StoreFlushFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "store_flush_failures_total",
			Help: "Durable cell flushes that failed (non-fatal)",
		},
	)
)

// WebSocket relay metrics
var (
	// WebSocketConnectedClients tracks connected /ws/ clients
	WebSocketConnectedClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "websocket_connected_clients",
			Help: "Number of connected /ws/ relay clients",
		},
	)

	// WebSocketRelayedMessages tracks messages relayed between /ws/ clients
	WebSocketRelayedMessages = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "websocket_relayed_messages_total",
			Help: "Messages relayed between /ws/ clients",
		},
	)
)
