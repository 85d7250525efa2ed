package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all application metrics.
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	// Checkout metrics
	CheckoutsTotal      *prometheus.CounterVec
	ProviderCallSeconds *prometheus.HistogramVec

	// Webhook metrics
	WebhooksTotal *prometheus.CounterVec

	// Expiry sweep metrics
	PaymentsExpiredTotal prometheus.Counter
	SweepLastRun         prometheus.Gauge
}

// New creates a new Metrics instance registered on the default registry.
func New(namespace string) *Metrics {
	return NewWith(namespace, prometheus.DefaultRegisterer)
}

// NewWith creates a new Metrics instance on the given registerer.
func NewWith(namespace string, reg prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "clivus"
	}
	factory := promauto.With(reg)

	return &Metrics{
		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
		HTTPRequestsInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_in_flight",
				Help:      "Current number of HTTP requests being processed",
			},
		),

		CheckoutsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "checkout",
				Name:      "payments_total",
				Help:      "Total number of checkout attempts",
			},
			[]string{"provider", "method", "outcome"},
		),
		ProviderCallSeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "checkout",
				Name:      "provider_call_seconds",
				Help:      "Outbound payment provider call duration in seconds",
				Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 15},
			},
			[]string{"provider", "operation"},
		),

		WebhooksTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "webhook",
				Name:      "events_total",
				Help:      "Total number of provider webhook deliveries",
			},
			[]string{"provider", "result"},
		),

		PaymentsExpiredTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "sweep",
				Name:      "payments_expired_total",
				Help:      "Total number of pending payments expired by the sweep",
			},
		),
		SweepLastRun: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "sweep",
				Name:      "last_run_timestamp_seconds",
				Help:      "Unix timestamp of the last expiry sweep run",
			},
		),
	}
}

// RecordHTTPRequest records an HTTP request.
func (m *Metrics) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordCheckout records a checkout attempt outcome.
func (m *Metrics) RecordCheckout(provider, method, outcome string) {
	m.CheckoutsTotal.WithLabelValues(provider, method, outcome).Inc()
}

// RecordProviderCall records an outbound provider call duration.
func (m *Metrics) RecordProviderCall(provider, operation string, duration time.Duration) {
	m.ProviderCallSeconds.WithLabelValues(provider, operation).Observe(duration.Seconds())
}

// RecordWebhook records a webhook delivery result.
func (m *Metrics) RecordWebhook(provider, result string) {
	m.WebhooksTotal.WithLabelValues(provider, result).Inc()
}
