// Package metrics provides Prometheus instrumentation for the matchmaking
// server. It exposes gauges for connection, pool and room counts, counters
// for match and message throughput, and histograms for latency tracking.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// ConnectionsTotal tracks the current number of active WebSocket connections.
	ConnectionsTotal = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "debate_connections_total",
		Help: "Current number of active WebSocket connections",
	})

	// WaitingPoolSize tracks the current number of identities waiting to be paired.
	WaitingPoolSize = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "debate_waiting_pool_size",
		Help: "Current number of identities in the waiting pool",
	})

	// ActiveRooms tracks the current number of active two-party rooms.
	ActiveRooms = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "debate_active_rooms",
		Help: "Current number of active rooms",
	})

	// MatchesTotal counts successful matches, labeled by match policy.
	MatchesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "debate_matches_total",
		Help: "Total number of successful matches",
	}, []string{"policy"})

	// MessagesTotal counts chat messages processed, labeled by outcome:
	// "relayed", "blocked", or "dropped".
	MessagesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "debate_messages_total",
		Help: "Total number of chat messages processed",
	}, []string{"outcome"})

	// ModerationLatency records moderation round-trip latency in seconds.
	ModerationLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "debate_moderation_latency_seconds",
		Help:    "Moderation collaborator round-trip latency in seconds",
		Buckets: []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5},
	})

	// MatchWait records the time an identity spent in the pool before pairing.
	MatchWait = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "debate_match_wait_seconds",
		Help:    "Time from pool admission to room allocation",
		Buckets: []float64{1, 2, 5, 10, 30, 60, 120, 300},
	})
)

func init() {
	prometheus.MustRegister(
		ConnectionsTotal,
		WaitingPoolSize,
		ActiveRooms,
		MatchesTotal,
		MessagesTotal,
		ModerationLatency,
		MatchWait,
	)
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
