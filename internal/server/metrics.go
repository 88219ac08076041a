package server

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the transport-level instrumentation.
type Metrics struct {
	registry *prometheus.Registry

	ConnectionsActive prometheus.Gauge
	MessagesReceived  *prometheus.CounterVec
	MessagesSent      prometheus.Counter
	MessagesDropped   prometheus.Counter
	AuthFailures      prometheus.Counter
	HandsPlayed       *prometheus.CounterVec
}

// NewMetrics builds and registers the server metrics on a fresh registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		ConnectionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "holdemd",
			Name:      "connections_active",
			Help:      "Currently open websocket connections.",
		}),
		MessagesReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "holdemd",
			Name:      "messages_received_total",
			Help:      "Inbound messages by type.",
		}, []string{"type"}),
		MessagesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "holdemd",
			Name:      "messages_sent_total",
			Help:      "Outbound messages across all connections.",
		}),
		MessagesDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "holdemd",
			Name:      "messages_dropped_total",
			Help:      "Outbound messages dropped because a send buffer filled.",
		}),
		AuthFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "holdemd",
			Name:      "auth_failures_total",
			Help:      "Connections rejected during authentication.",
		}),
		HandsPlayed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "holdemd",
			Name:      "hands_total",
			Help:      "Hands dealt by table and outcome.",
		}, []string{"table", "outcome"}),
	}
	m.registry.MustRegister(
		m.ConnectionsActive,
		m.MessagesReceived,
		m.MessagesSent,
		m.MessagesDropped,
		m.AuthFailures,
		m.HandsPlayed,
	)
	return m
}

// Registry exposes the registry for the /metrics handler.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }
