package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(sseConnectionsCreated, sseConnectionsRemoved, sseConnectionsActive,
		sseMessagesSent, sseMessagesFailed)
}

var sseConnectionsCreated = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "sse_connections_created_total",
		Help: "Number of SSE connections created.",
	},
)

var sseConnectionsRemoved = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "sse_connections_removed_total",
		Help: "Number of SSE connections removed.",
	},
)

var sseConnectionsActive = prometheus.NewGauge(
	prometheus.GaugeOpts{
		Name: "sse_connections_active",
		Help: "Number of currently tracked SSE connections.",
	},
)

var sseMessagesSent = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "sse_messages_sent_total",
		Help: "SSE events delivered successfully, labeled by event name.",
	},
	[]string{"event"},
)

var sseMessagesFailed = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "sse_messages_failed_total",
		Help: "SSE events that failed to deliver.",
	},
)

func IncSSEConnectionCreated() { sseConnectionsCreated.Inc(); sseConnectionsActive.Inc() }
func IncSSEConnectionRemoved() { sseConnectionsRemoved.Inc(); sseConnectionsActive.Dec() }
func IncSSEMessageSent(event string) {
	sseMessagesSent.WithLabelValues(norm(event)).Inc()
}
func IncSSEMessageFailed() { sseMessagesFailed.Inc() }
