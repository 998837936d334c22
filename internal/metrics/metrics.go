// Package metrics holds the relay's prometheus collectors.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "watchparty"

// Broadcast delivery results.
const (
	ResultDelivered = "delivered"
	ResultFailed    = "failed"
)

var (
	ConnectionsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connections_active",
			Help:      "Number of open socket connections.",
		},
	)

	EventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_total",
			Help:      "Decoded inbound events by action.",
		},
		[]string{"action"},
	)

	EventsRejected = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_rejected_total",
			Help:      "Inbound frames dropped as malformed.",
		},
	)

	BroadcastDeliveries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "broadcast_deliveries_total",
			Help:      "Per-recipient broadcast sends by result.",
		},
		[]string{"result"},
	)

	MessagesPersisted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_persisted_total",
			Help:      "Chat messages appended to a room log.",
		},
	)
)

func init() {
	prometheus.MustRegister(ConnectionsActive)
	prometheus.MustRegister(EventsTotal)
	prometheus.MustRegister(EventsRejected)
	prometheus.MustRegister(BroadcastDeliveries)
	prometheus.MustRegister(MessagesPersisted)
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
