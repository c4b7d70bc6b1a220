// Package prometheus exposes benchmark execution metrics over the standard
// Prometheus text format.
package prometheus

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "speechbench"

var (
	// vendorRequestDuration is a histogram of vendor API call duration.
	vendorRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "vendor_request_duration_seconds",
			Help:      "Duration of vendor synthesis and transcription calls in seconds",
			Buckets:   []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"vendor", "capability"},
	)

	// vendorRequestsTotal is a counter of vendor API calls.
	vendorRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "vendor_requests_total",
			Help:      "Total number of vendor API calls",
		},
		[]string{"vendor", "capability", "status"}, // status: success, error
	)

	// vendorRetriesTotal counts retried vendor calls.
	vendorRetriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "vendor_retries_total",
			Help:      "Total number of retried vendor API calls",
		},
		[]string{"vendor", "capability"},
	)

	// runsActive is a gauge of currently executing benchmark runs.
	runsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "runs_active",
			Help:      "Number of currently executing benchmark runs",
		},
	)

	// runDuration is a histogram of total run execution duration.
	runDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Histogram of total benchmark run duration in seconds",
			Buckets:   []float64{1, 2.5, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"status"}, // status: completed, failed, partial
	)

	// itemsTotal is a counter of run items by terminal status.
	itemsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "items_total",
			Help:      "Total number of run items by terminal status",
		},
		[]string{"status"}, // status: completed, failed
	)

	// allMetrics is a list of all metrics for registration.
	allMetrics = []prometheus.Collector{
		vendorRequestDuration,
		vendorRequestsTotal,
		vendorRetriesTotal,
		runsActive,
		runDuration,
		itemsTotal,
	}
)

// RecordVendorRequest records one vendor API call.
func RecordVendorRequest(vendor, capability, status string, durationSeconds float64) {
	vendorRequestDuration.WithLabelValues(vendor, capability).Observe(durationSeconds)
	vendorRequestsTotal.WithLabelValues(vendor, capability, status).Inc()
}

// RecordVendorRetry records a retried vendor call.
func RecordVendorRetry(vendor, capability string) {
	vendorRetriesTotal.WithLabelValues(vendor, capability).Inc()
}

// RecordRunStart records a run entering execution.
func RecordRunStart() {
	runsActive.Inc()
}

// RecordRunEnd records a run reaching a terminal status.
func RecordRunEnd(status string, durationSeconds float64) {
	runsActive.Dec()
	runDuration.WithLabelValues(status).Observe(durationSeconds)
}

// RecordItem records a run item reaching a terminal status.
func RecordItem(status string) {
	itemsTotal.WithLabelValues(status).Inc()
}
