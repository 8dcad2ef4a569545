package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics collects Prometheus metrics for the application.
type Metrics struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec

	paymentsRecorded  prometheus.Counter
	chargesGenerated  prometheus.Counter
	statusRefreshes   prometheus.Counter
	importRowsTotal   *prometheus.CounterVec
}

// NewMetrics initialises the registry with HTTP and billing metrics.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "condoflow_http_requests_total",
		Help: "HTTP requests by route and status code.",
	}, []string{"route", "code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "condoflow_http_request_duration_seconds",
		Help:    "HTTP request duration per route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	payments := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "condoflow_payments_recorded_total",
		Help: "Payments recorded against unit charges.",
	})
	charges := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "condoflow_charges_generated_total",
		Help: "Unit charges created by bulk generation.",
	})
	refreshes := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "condoflow_status_refreshes_total",
		Help: "Charge status refresh runs.",
	})
	importRows := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "condoflow_import_rows_total",
		Help: "Bank file import rows by outcome.",
	}, []string{"outcome"})
	registry.MustRegister(requests, duration, payments, charges, refreshes, importRows)
	return &Metrics{
		registry:         registry,
		handler:          promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestsTotal:    requests,
		requestDuration:  duration,
		paymentsRecorded: payments,
		chargesGenerated: charges,
		statusRefreshes:  refreshes,
		importRowsTotal:  importRows,
	}
}

// Handler returns the http.Handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// PaymentRecorded counts one recorded payment.
func (m *Metrics) PaymentRecorded() {
	if m != nil {
		m.paymentsRecorded.Inc()
	}
}

// ChargesGenerated counts charges created by a generation batch.
func (m *Metrics) ChargesGenerated(n int) {
	if m != nil {
		m.chargesGenerated.Add(float64(n))
	}
}

// StatusRefreshed counts one status refresh run.
func (m *Metrics) StatusRefreshed() {
	if m != nil {
		m.statusRefreshes.Inc()
	}
}

// ImportRow counts one bank import row by outcome (accepted, duplicate, failed).
func (m *Metrics) ImportRow(outcome string) {
	if m != nil {
		m.importRowsTotal.WithLabelValues(outcome).Inc()
	}
}

// Middleware records metrics for each HTTP request.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(&recorder, r)

		route := routePattern(r)
		m.requestsTotal.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
		m.requestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return r.URL.Path
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}
