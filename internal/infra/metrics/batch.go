package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(batchMessagesProcessed, batchesSent, batchesFailed)
}

var batchMessagesProcessed = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "batch_messages_processed_total",
		Help: "Messages flushed to the broker through the batch buffer.",
	},
)

var batchesSent = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "batches_sent_total",
		Help: "Batches flushed to the broker.",
	},
)

var batchesFailed = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "batches_failed_total",
		Help: "Batches dropped after a publish failure, labeled by routing key.",
	},
	[]string{"routing_key"},
)

func ObserveBatchSent(messages int) {
	batchMessagesProcessed.Add(float64(messages))
	batchesSent.Inc()
}

func IncBatchFailed(routingKey string) {
	batchesFailed.WithLabelValues(norm(routingKey)).Inc()
}
