package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(queueDepth, queueReclaimedTotal, queueDeadLetteredTotal)
}

var queueDepth = prometheus.NewGauge(
	prometheus.GaugeOpts{
		Name: "document_queue_depth",
		Help: "Messages currently waiting on the ready list.",
	},
)

var queueReclaimedTotal = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "document_queue_reclaimed_total",
		Help: "In-flight messages returned to the ready list after their visibility deadline passed.",
	},
)

var queueDeadLetteredTotal = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "document_queue_dead_lettered_total",
		Help: "Messages moved to the dead-letter list after exceeding the delivery limit.",
	},
)

func SetQueueDepth(n int)   { queueDepth.Set(float64(n)) }
func IncQueueReclaimed()    { queueReclaimedTotal.Inc() }
func IncQueueDeadLettered() { queueDeadLetteredTotal.Inc() }
