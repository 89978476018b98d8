package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(jobsDispatchedTotal, jobStatusUpdatesTotal)
}

var jobsDispatchedTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "jobs_dispatched_total",
		Help: "Jobs handed to a worker, labeled by path (primary/queue) and priority.",
	},
	[]string{"path", "priority"},
)

var jobStatusUpdatesTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "job_status_updates_total",
		Help: "Inbound status events, labeled by outcome (applied/discarded/unknown).",
	},
	[]string{"outcome"},
)

func IncJobDispatched(path, priority string) {
	jobsDispatchedTotal.WithLabelValues(norm(path), norm(priority)).Inc()
}

func IncStatusUpdate(outcome string) {
	jobStatusUpdatesTotal.WithLabelValues(norm(outcome)).Inc()
}
