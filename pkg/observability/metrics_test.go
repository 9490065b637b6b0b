package observability

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNewMetrics(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := NewMetrics(registry)

	m.SubscriptionsCreatedTotal.WithLabelValues("basic", "monthly").Inc()
	m.PaymentsTotal.WithLabelValues("completed").Inc()
	m.PaymentsTotal.WithLabelValues("failed").Inc()
	m.PaymentAmountTotal.Add(10.99)
	m.InvoicesIssuedTotal.Inc()
	m.UsageTrackedTotal.WithLabelValues("projects").Add(3)

	if got := testutil.ToFloat64(m.SubscriptionsCreatedTotal.WithLabelValues("basic", "monthly")); got != 1 {
		t.Errorf("Expected 1 created subscription, got %v", got)
	}
	if got := testutil.ToFloat64(m.PaymentsTotal.WithLabelValues("failed")); got != 1 {
		t.Errorf("Expected 1 failed payment, got %v", got)
	}
	if got := testutil.ToFloat64(m.PaymentAmountTotal); got != 10.99 {
		t.Errorf("Expected amount 10.99, got %v", got)
	}
}

func TestNewMetrics_DuplicateRegistrationPanics(t *testing.T) {
	registry := prometheus.NewRegistry()
	NewMetrics(registry)

	defer func() {
		if r := recover(); r == nil {
			t.Error("Expected duplicate registration to panic")
		}
	}()
	NewMetrics(registry)
}

func TestMetricsHandler(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := NewMetrics(registry)
	m.InvoicesIssuedTotal.Inc()

	handler := MetricsHandler(registry)
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "subledger_invoices_issued_total 1") {
		t.Errorf("Expected exposition to contain invoice counter, got:\n%s", rec.Body.String())
	}
}
