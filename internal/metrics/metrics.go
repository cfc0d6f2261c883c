// Package metrics holds the Prometheus collectors exposed on /metrics.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "backoffice"

var (
	// RequestDuration tracks HTTP latency by method, route template and status.
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)

	// RequestTotal counts HTTP requests.
	RequestTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests.",
		},
		[]string{"method", "route", "status"},
	)

	// RequestInFlight tracks requests currently being served.
	RequestInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "requests_in_flight",
		Help:      "Number of HTTP requests currently being served.",
	})

	// ImageOperations counts product image mutations by operation and result.
	ImageOperations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "images",
			Name:      "operations_total",
			Help:      "Product image operations.",
		},
		[]string{"operation", "result"}, // upload|delete|replace|reorder|set_primary, ok|error
	)

	// ImageBytesStored sums bytes written to the file store.
	ImageBytesStored = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "images",
		Name:      "stored_bytes_total",
		Help:      "Bytes of product images written to storage.",
	})

	// FileCleanupFailures counts stored files that could not be removed.
	FileCleanupFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "images",
		Name:      "cleanup_failures_total",
		Help:      "Stored files that could not be deleted.",
	})

	// OrphansSwept counts files removed by the orphan sweeper.
	OrphansSwept = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "images",
		Name:      "orphans_swept_total",
		Help:      "Unreferenced image files removed by the sweeper.",
	})

	// AuthFailures counts rejected logins and bearer tokens.
	AuthFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "failures_total",
			Help:      "Rejected authentication attempts.",
		},
		[]string{"reason"}, // credentials|token|missing
	)

	// CacheLookups counts public listing cache hits and misses.
	CacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "lookups_total",
			Help:      "Public product listing cache lookups.",
		},
		[]string{"result"}, // hit|miss
	)
)

// Registry is the private registry served on /metrics.
var Registry = prometheus.NewRegistry()

func init() {
	Registry.MustRegister(collectors.NewGoCollector())
	Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	Registry.MustRegister(
		RequestDuration,
		RequestTotal,
		RequestInFlight,
		ImageOperations,
		ImageBytesStored,
		FileCleanupFailures,
		OrphansSwept,
		AuthFailures,
		CacheLookups,
	)
}

// Handler exposes the registry in Prometheus text and OpenMetrics formats.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

// ObserveRequest records one finished HTTP request.
func ObserveRequest(method, route, status string, start time.Time) {
	RequestDuration.WithLabelValues(method, route, status).Observe(time.Since(start).Seconds())
	RequestTotal.WithLabelValues(method, route, status).Inc()
}

// RecordImageOp records the outcome of an image operation.
func RecordImageOp(op string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	ImageOperations.WithLabelValues(op, result).Inc()
}
