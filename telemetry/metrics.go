// Package telemetry tracks protocol activity counters on a private registry.
// The harness owns the only I/O surfaces, so nothing is exported over HTTP;
// the registry exists for tests and for embedding.
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	Registry = prometheus.NewRegistry()

	MessagesReceived = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "maelstrom",
			Name:      "messages_received_total",
			Help:      "Total number of inbound protocol messages dispatched, by type.",
		},
		[]string{"type"},
	)

	MessagesSent = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "maelstrom",
			Name:      "messages_sent_total",
			Help:      "Total number of outbound protocol frames written.",
		},
	)

	BroadcastRetries = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "maelstrom",
			Name:      "broadcast_retries_total",
			Help:      "Total number of unacknowledged broadcasts retransmitted.",
		},
	)

	GossipRounds = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "maelstrom",
			Name:      "gossip_rounds_total",
			Help:      "Total number of anti-entropy gossip rounds performed.",
		},
	)
)

func init() {
	Registry.MustRegister(MessagesReceived, MessagesSent, BroadcastRetries, GossipRounds)
}
