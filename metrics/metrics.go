// Package metrics exposes the Prometheus instruments of the service.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "paydemo"

// Call results.
const (
	ResultSuccess = "success"
	ResultFailed  = "failed"
)

// Metrics holds the low-cardinality counters of the service. A nil *Metrics
// is valid and records nothing.
type Metrics struct {
	gatherer prometheus.Gatherer

	stripeCalls     *prometheus.CounterVec
	invoicesIssued  *prometheus.CounterVec
	invoiceFailures *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

// New creates the instruments and registers them on reg. When reg is nil a
// fresh registry is used, so several instances can coexist in tests.
func New(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	m := &Metrics{
		gatherer: reg,
		stripeCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "stripe_calls_total",
				Help:      "Stripe API calls by operation and result.",
			},
			[]string{"operation", "result"},
		),
		invoicesIssued: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "invoices_issued_total",
				Help:      "Invoices issued by delivery mode.",
			},
			[]string{"delivery"}, // sent | finalized
		),
		invoiceFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "invoice_failures_total",
				Help:      "Invoice issuance failures by the stage that failed.",
			},
			[]string{"stage"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request latency by route pattern and status code.",
				Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
			[]string{"route", "status"},
		),
	}
	reg.MustRegister(m.stripeCalls, m.invoicesIssued, m.invoiceFailures, m.requestDuration)
	return m
}

// StripeCall records the outcome of a single Stripe API call.
func (m *Metrics) StripeCall(operation string, err error) {
	if m == nil {
		return
	}
	result := ResultSuccess
	if err != nil {
		result = ResultFailed
	}
	m.stripeCalls.WithLabelValues(operation, result).Inc()
}

// InvoiceIssued records a completed invoice issuance.
func (m *Metrics) InvoiceIssued(delivery string) {
	if m == nil {
		return
	}
	m.invoicesIssued.WithLabelValues(delivery).Inc()
}

// InvoiceFailed records an aborted invoice issuance.
func (m *Metrics) InvoiceFailed(stage string) {
	if m == nil {
		return
	}
	m.invoiceFailures.WithLabelValues(stage).Inc()
}

// Middleware measures request latency labelled with the chi route pattern,
// never the raw path.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		route := "unknown"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.requestDuration.WithLabelValues(route, strconv.Itoa(status)).Observe(time.Since(start).Seconds())
	})
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
