package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Tracks the number of outbound API calls to the settlement provider.
	ProviderRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "paycrest_api_requests_total",
			Help: "Total number of settlement provider API requests made (by endpoint and method).",
		},
		[]string{"endpoint", "method", "status"},
	)

	// Measures duration of API requests to the settlement provider.
	ProviderRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "paycrest_api_request_duration_seconds",
			Help:    "Duration of settlement provider API requests in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 15), // 1ms → ~16s
		},
		[]string{"endpoint", "method"},
	)

	// Tracks NATS messages published by subject and result.
	NATSMessageCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nats_messages_total",
			Help: "Total number of NATS messages published.",
		},
		[]string{"subject", "result"}, // result = "ok" | "error"
	)

	NATSMessageLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "nats_message_latency_seconds",
			Help:    "Time taken to publish NATS messages",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"subject"},
	)

	// Tracks cache hits and misses for merchant credentials.
	CredentialCacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "credential_cache_access_total",
			Help: "Number of cache hits/misses in the merchant credential cache.",
		},
		[]string{"result"}, // hit | miss
	)

	// Tracks total errors (aggregated).
	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "adapter_errors_total",
			Help: "Count of adapter-level errors by component.",
		},
		[]string{"component", "reason"},
	)

	// Gauges the last successful poll time (seconds since epoch).
	LastPollTimestamp = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "adapter_last_poll_timestamp",
			Help: "Timestamp (unix seconds) of the last successful rate or order status poll.",
		},
		[]string{"component"},
	)

	// Gauges the number of orders currently being polled.
	ActiveOrderPolls = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "adapter_active_order_polls",
			Help: "Number of orders with an active status polling loop.",
		},
	)
)

// ObserveDuration records the time taken for a call and updates the given histogram.
func ObserveDuration(v interface{}, start time.Time, labels ...string) {
	duration := time.Since(start).Seconds()

	switch metric := v.(type) {
	case *prometheus.HistogramVec:
		metric.WithLabelValues(labels...).Observe(duration)
	case *prometheus.SummaryVec:
		metric.WithLabelValues(labels...).Observe(duration)
	default:
		// counters are not duration metrics; ignore
	}
}

func IncProviderRequest(endpoint, method, status string) {
	ProviderRequestsTotal.WithLabelValues(endpoint, method, status).Inc()
}

func IncNATSMessage(subject, result string) {
	NATSMessageCount.WithLabelValues(subject, result).Inc()
}

func IncCacheHit(result string) {
	CredentialCacheHits.WithLabelValues(result).Inc()
}

func IncError(component, reason string) {
	ErrorsTotal.WithLabelValues(component, reason).Inc()
}

func SetLastPoll(component string, t time.Time) {
	LastPollTimestamp.WithLabelValues(component).Set(float64(t.Unix()))
}
