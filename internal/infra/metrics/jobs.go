package metrics

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(jobsSubmittedTotal, jobsProcessedTotal, duplicateDeliveriesTotal, envelopeLatencySeconds)
}

var jobsSubmittedTotal = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "document_jobs_submitted_total",
		Help: "Total number of document jobs accepted for processing.",
	},
)

var jobsProcessedTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "document_jobs_processed_total",
		Help: "Total number of document jobs processed, labeled by outcome.",
	},
	[]string{"status"}, // 'completed', 'failed', 'redelivery'
)

var duplicateDeliveriesTotal = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "document_jobs_duplicate_deliveries_total",
		Help: "Envelopes acknowledged without side effects because the job already reached a terminal state.",
	},
)

var envelopeLatencySeconds = prometheus.NewHistogram(
	prometheus.HistogramOpts{
		Name:    "document_envelope_processing_seconds",
		Help:    "Per-envelope processing latency distribution.",
		Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	},
)

func IncJobSubmitted() { jobsSubmittedTotal.Inc() }

func IncJobProcessed(status string) {
	jobsProcessedTotal.WithLabelValues(norm(status)).Inc()
}

func IncDuplicateDelivery() { duplicateDeliveriesTotal.Inc() }

func ObserveEnvelopeLatency(seconds float64) { envelopeLatencySeconds.Observe(seconds) }

func norm(s string) string { return strings.ToLower(strings.TrimSpace(s)) }
