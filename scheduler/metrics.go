package scheduler

import "github.com/prometheus/client_golang/prometheus"

// Prometheus vectors, grounded on bittoy-rule's engine/metrics.go
// (enginRequestsTotal/enginRequestDuration registered once in an init()).
// Here the label is the scheduler id rather than a chain name, and a
// counter tracks nodes by terminal state instead of HTTP status.
var (
	schedulerBatchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pgsched",
			Subsystem: "scheduler",
			Name:      "batches_total",
			Help:      "Total Walk batches yielded to the execution pool.",
		},
		[]string{"scheduler"},
	)

	schedulerNodesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pgsched",
			Subsystem: "scheduler",
			Name:      "nodes_total",
			Help:      "Nodes completed, labeled by terminal state.",
		},
		[]string{"scheduler", "state"},
	)

	schedulerRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "pgsched",
			Subsystem: "scheduler",
			Name:      "request_duration_seconds",
			Help:      "Wall time from Schedule start to every root settling.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"scheduler"},
	)
)

func init() {
	prometheus.MustRegister(schedulerBatchesTotal, schedulerNodesTotal, schedulerRequestDuration)
}
