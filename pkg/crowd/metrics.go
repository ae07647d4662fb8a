package crowd

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"
)

var RecordsProcessedCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "crowd",
	Subsystem: "worker",
	Name:      "records_total",
	Help:      "Count of processed records by their status before processing",
}, []string{"status"})

var TransitionsCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "crowd",
	Subsystem: "worker",
	Name:      "transitions_total",
	Help:      "Count of persisted status transitions",
}, []string{"from", "to"})

var FailuresCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "crowd",
	Subsystem: "worker",
	Name:      "failures_total",
	Help:      "Count of failed external calls by operation",
}, []string{"operation"})

var WorkersBlockedCount = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "crowd",
	Subsystem: "worker",
	Name:      "workers_blocked_total",
	Help:      "Count of workers blocked for bad work quality",
})

var RunDuration = promauto.NewHistogram(prometheus.HistogramOpts{
	Namespace: "crowd",
	Subsystem: "worker",
	Name:      "run_duration_seconds",
	Help:      "Duration of a full pass over the dataset",
	Buckets:   []float64{5, 30, 60, 300, 600, 1800, 3600},
})

func newPusher(address string) *push.Pusher {
	return push.New(address, "crowd-worker").
		Collector(RecordsProcessedCount).
		Collector(TransitionsCount).
		Collector(FailuresCount).
		Collector(WorkersBlockedCount).
		Collector(RunDuration)
}
