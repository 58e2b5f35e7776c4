package observability

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	return rr.Body.String()
}

func TestMetricsHandlerExposesJobCollectors(t *testing.T) {
	metrics := NewMetrics()
	_ = metrics.Jobs().Track("invoicing:overdue_scan").End(nil)
	metrics.Jobs().AddAlerts("overdue_invoice", 2)

	body := scrape(t, metrics)
	assert.Contains(t, body, `coffee_jobs_total{job="invoicing:overdue_scan",status="success"} 1`)
	assert.Contains(t, body, `coffee_alerts_total{kind="overdue_invoice"} 2`)
	assert.Contains(t, body, "go_goroutines")
}

func TestMetricsMiddlewareRecordsRequest(t *testing.T) {
	metrics := NewMetrics()

	handler := metrics.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	routeCtx := chi.NewRouteContext()
	routeCtx.RoutePatterns = append(routeCtx.RoutePatterns, "/test")
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	require.Equal(t, http.StatusTeapot, rr.Code)

	body := scrape(t, metrics)
	assert.Contains(t, body, `coffee_http_requests_total{code="418",route="/test"} 1`)
	assert.Contains(t, body, `coffee_http_request_duration_seconds_bucket{route="/test"`)
}

func TestInvoiceGenerationCounter(t *testing.T) {
	metrics := NewMetrics()
	metrics.ObserveInvoiceGeneration("created")
	metrics.ObserveInvoiceGeneration("created")
	metrics.ObserveInvoiceGeneration("exists")

	body := scrape(t, metrics)
	assert.Contains(t, body, `coffee_invoice_generation_total{outcome="created"} 2`)
	assert.Contains(t, body, `coffee_invoice_generation_total{outcome="exists"} 1`)
}

func TestNilMetricsDegrade(t *testing.T) {
	var metrics *Metrics
	metrics.ObserveInvoiceGeneration("created")
	assert.Nil(t, metrics.Jobs())

	rr := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.False(t, strings.Contains(rr.Body.String(), "coffee_"))
}
