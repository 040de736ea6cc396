// Package metrics exposes Prometheus instrumentation for the manager's
// remote calls and store state.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	remoteCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "billpilot",
			Subsystem: "remote",
			Name:      "calls_total",
			Help:      "Total number of remote service calls",
		},
		[]string{"service", "operation", "outcome"},
	)

	remoteCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "billpilot",
			Subsystem: "remote",
			Name:      "call_duration_seconds",
			Help:      "Remote service call duration in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 15), // 1ms to ~32s
		},
		[]string{"service", "operation"},
	)

	storeSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "billpilot",
			Subsystem: "store",
			Name:      "records_total",
			Help:      "Number of payment records currently held in the store",
		},
	)

	evidenceUploads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "billpilot",
			Subsystem: "evidence",
			Name:      "uploads_total",
			Help:      "Total number of evidence uploads",
		},
		[]string{"outcome"},
	)
)

// Handler returns the Prometheus metrics handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordRemoteCall records one remote service call outcome and its duration
func RecordRemoteCall(service, operation, outcome string, duration time.Duration) {
	remoteCallsTotal.WithLabelValues(service, operation, outcome).Inc()
	remoteCallDuration.WithLabelValues(service, operation).Observe(duration.Seconds())
}

// SetStoreSize updates the store size gauge
func SetStoreSize(n int) {
	storeSize.Set(float64(n))
}

// RecordEvidenceUpload records an evidence upload outcome
func RecordEvidenceUpload(outcome string) {
	evidenceUploads.WithLabelValues(outcome).Inc()
}
