package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// Subscription metrics
	SubscriptionsCreatedTotal *prometheus.CounterVec
	SubscriptionChangesTotal  *prometheus.CounterVec
	SubscriptionCancelsTotal  *prometheus.CounterVec

	// Invoice metrics
	InvoicesIssuedTotal prometheus.Counter

	// Payment metrics
	PaymentsTotal         *prometheus.CounterVec
	PaymentAmountTotal    prometheus.Counter
	GatewayChargeDuration *prometheus.HistogramVec

	// Usage metrics
	UsageTrackedTotal      *prometheus.CounterVec
	DowngradeWarningsTotal prometheus.Counter
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		SubscriptionsCreatedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "subledger_subscriptions_created_total",
				Help: "Total number of subscriptions created",
			},
			[]string{"plan", "cycle"},
		),
		SubscriptionChangesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "subledger_subscription_changes_total",
				Help: "Total number of subscription plan changes",
			},
			[]string{"kind"},
		),
		SubscriptionCancelsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "subledger_subscription_cancellations_total",
				Help: "Total number of subscription cancellations",
			},
			[]string{"mode"},
		),

		InvoicesIssuedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "subledger_invoices_issued_total",
				Help: "Total number of invoices issued",
			},
		),

		PaymentsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "subledger_payments_total",
				Help: "Total number of payment attempts by outcome",
			},
			[]string{"status"},
		),
		PaymentAmountTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "subledger_payment_amount_total",
				Help: "Total amount successfully collected",
			},
		),
		GatewayChargeDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "subledger_gateway_charge_duration_seconds",
				Help:    "Payment gateway charge duration in seconds",
				Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"outcome"},
		),

		UsageTrackedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "subledger_usage_tracked_total",
				Help: "Total resource usage recorded by resource name",
			},
			[]string{"resource"},
		),
		DowngradeWarningsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "subledger_downgrade_warnings_total",
				Help: "Total number of downgrade advisor warnings emitted",
			},
		),
	}

	// Register all metrics
	registry.MustRegister(
		m.SubscriptionsCreatedTotal,
		m.SubscriptionChangesTotal,
		m.SubscriptionCancelsTotal,
		m.InvoicesIssuedTotal,
		m.PaymentsTotal,
		m.PaymentAmountTotal,
		m.GatewayChargeDuration,
		m.UsageTrackedTotal,
		m.DowngradeWarningsTotal,
	)

	return m
}

// MetricsHandler returns the HTTP handler serving the registry in the
// Prometheus exposition format.
func MetricsHandler(registry *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
