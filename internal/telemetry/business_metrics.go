package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// BusinessMetrics tracks domain-level events: checkout sessions, webhook
// deliveries, orders, and receipt emails. HTTP-level metrics live in the
// middleware package.
type BusinessMetrics struct {
	// Checkout
	CheckoutSessionsStarted prometheus.Counter

	// Webhooks
	WebhookReceived  *prometheus.CounterVec // labels: event_type
	WebhookProcessed *prometheus.CounterVec // labels: event_type
	WebhookFailed    *prometheus.CounterVec // labels: event_type, reason
	WebhookLatency   prometheus.Histogram

	// Orders
	OrdersCreated   prometheus.Counter
	OrdersDuplicate prometheus.Counter
	OrdersFlagged   *prometheus.CounterVec // labels: reason
	OrderValueCents prometheus.Histogram

	// Receipts
	ReceiptsEnqueued     prometheus.Counter
	ReceiptEnqueueFailed prometheus.Counter
	EmailSent            prometheus.Counter
	EmailFailed          prometheus.Counter
}

// Business is the process-wide metrics handle. Call sites nil-check it so
// tests run without registering collectors.
var Business *BusinessMetrics

// InitBusinessMetrics registers the business metrics under namespace.
func InitBusinessMetrics(namespace string) {
	Business = NewBusinessMetrics(namespace)
}

// NewBusinessMetrics creates and registers the business metric collectors.
func NewBusinessMetrics(namespace string) *BusinessMetrics {
	if namespace == "" {
		namespace = "atelier"
	}
	const subsystem = "business"

	return &BusinessMetrics{
		CheckoutSessionsStarted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "checkout_sessions_started_total",
			Help:      "Hosted checkout sessions created",
		}),
		WebhookReceived: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "webhook_received_total",
			Help:      "Verified webhook events received",
		}, []string{"event_type"}),
		WebhookProcessed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "webhook_processed_total",
			Help:      "Webhook events processed successfully",
		}, []string{"event_type"}),
		WebhookFailed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "webhook_failed_total",
			Help:      "Webhook events that failed processing",
		}, []string{"event_type", "reason"}),
		WebhookLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "webhook_duration_seconds",
			Help:      "Webhook processing duration",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		}),
		OrdersCreated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "orders_created_total",
			Help:      "Orders created from completed checkout sessions",
		}),
		OrdersDuplicate: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "orders_duplicate_total",
			Help:      "Completed-session deliveries that matched an existing order",
		}),
		OrdersFlagged: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "orders_flagged_total",
			Help:      "Orders flagged for manual review",
		}, []string{"reason"}),
		OrderValueCents: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "order_value_cents",
			Help:      "Order totals in cents",
			Buckets:   prometheus.ExponentialBuckets(500, 4, 8),
		}),
		ReceiptsEnqueued: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "receipts_enqueued_total",
			Help:      "Receipt notifications enqueued",
		}),
		ReceiptEnqueueFailed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "receipt_enqueue_failed_total",
			Help:      "Receipt notifications that failed to enqueue",
		}),
		EmailSent: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "email_sent_total",
			Help:      "Receipt emails sent",
		}),
		EmailFailed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "email_failed_total",
			Help:      "Receipt emails that failed to send",
		}),
	}
}
