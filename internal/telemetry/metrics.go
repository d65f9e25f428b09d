// Package telemetry exposes prometheus metrics for the reconciliation path.
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"net/http"
)

// BusinessMetrics tracks checkout and reconciliation outcomes.
type BusinessMetrics struct {
	WebhookReceived  *prometheus.CounterVec
	WebhookProcessed *prometheus.CounterVec
	WebhookFailed    *prometheus.CounterVec
	WebhookLatency   *prometheus.HistogramVec

	OrdersCreated           prometheus.Counter
	OrderValue              prometheus.Histogram
	ReconciliationAnomalies prometheus.Counter
	NotificationPublishErrs prometheus.Counter

	registry *prometheus.Registry
}

// Business is the process-wide metrics instance. Nil until InitBusiness is
// called, so library code guards each use.
var Business *BusinessMetrics

// InitBusiness registers and installs the business metrics.
func InitBusiness(namespace string) *BusinessMetrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	m := &BusinessMetrics{
		WebhookReceived: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "webhook_received_total",
			Help:      "Webhook events received, before verification.",
		}, []string{"event_type"}),
		WebhookProcessed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "webhook_processed_total",
			Help:      "Webhook events fully processed.",
		}, []string{"event_type"}),
		WebhookFailed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "webhook_failed_total",
			Help:      "Webhook events that failed processing, by reason.",
		}, []string{"event_type", "reason"}),
		WebhookLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "webhook_duration_seconds",
			Help:      "Webhook processing time.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"event_type"}),
		OrdersCreated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_created_total",
			Help:      "Orders materialized from payment events.",
		}),
		OrderValue: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "order_value_cents",
			Help:      "Total value of created orders in cents.",
			Buckets:   prometheus.ExponentialBuckets(500, 2.5, 10),
		}),
		ReconciliationAnomalies: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reconciliation_anomalies_total",
			Help:      "Charged amount vs recomputed total mismatches (non-fatal).",
		}),
		NotificationPublishErrs: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notification_publish_errors_total",
			Help:      "Best-effort notification publish failures.",
		}),
		registry: registry,
	}

	Business = m
	return m
}

// Handler serves the metrics endpoint.
func (m *BusinessMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
