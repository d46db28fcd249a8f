package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	qt "github.com/frankban/quicktest"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCounters(t *testing.T) {
	c := qt.New(t)
	m := New(prometheus.NewRegistry())

	m.StripeCall("create_invoice", nil)
	m.StripeCall("create_invoice", nil)
	m.StripeCall("create_invoice", errors.New("boom"))
	m.InvoiceIssued("sent")
	m.InvoiceFailed("resolved")

	c.Assert(testutil.ToFloat64(m.stripeCalls.WithLabelValues("create_invoice", ResultSuccess)), qt.Equals, float64(2))
	c.Assert(testutil.ToFloat64(m.stripeCalls.WithLabelValues("create_invoice", ResultFailed)), qt.Equals, float64(1))
	c.Assert(testutil.ToFloat64(m.invoicesIssued.WithLabelValues("sent")), qt.Equals, float64(1))
	c.Assert(testutil.ToFloat64(m.invoiceFailures.WithLabelValues("resolved")), qt.Equals, float64(1))
}

func TestNilMetrics(t *testing.T) {
	c := qt.New(t)
	var m *Metrics

	m.StripeCall("list_customers", nil)
	m.InvoiceIssued("finalized")
	m.InvoiceFailed("pending")

	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusTeapot) })
	rec := httptest.NewRecorder()
	m.Middleware(next).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	c.Assert(rec.Code, qt.Equals, http.StatusTeapot)
}

func TestMiddlewareUsesRoutePattern(t *testing.T) {
	c := qt.New(t)
	m := New(nil)

	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/checkout-sessions/{sessionID}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	r.Get("/metrics", m.Handler().ServeHTTP)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/checkout-sessions/cs_test_1", nil))
	c.Assert(rec.Code, qt.Equals, http.StatusNotFound)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	c.Assert(rec.Code, qt.Equals, http.StatusOK)
	body, err := io.ReadAll(rec.Body)
	c.Assert(err, qt.IsNil)
	c.Assert(strings.Contains(string(body),
		`paydemo_http_request_duration_seconds_count{route="/checkout-sessions/{sessionID}",status="404"} 1`),
		qt.IsTrue, qt.Commentf("metrics: %s", body))
	c.Assert(strings.Contains(string(body), "cs_test_1"), qt.IsFalse)
}
