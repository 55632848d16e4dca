// Package metrics exposes Prometheus metrics for the API.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "jobtracker"

// Metrics holds the collectors registered on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	ApplicationsSubmitted prometheus.Counter
	RecruiterStatusTotal  *prometheus.CounterVec
	RecruiterDecisions    *prometheus.CounterVec
	AccountsDeleted       prometheus.Counter
	EmailsSent            *prometheus.CounterVec
}

// New creates the metrics on a fresh registry, together with the Go runtime
// and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		HTTPRequestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
		HTTPRequestsInFlight: f.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "http_requests_in_flight",
				Help:      "Current number of HTTP requests being processed",
			},
		),
		ApplicationsSubmitted: f.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "applications_submitted_total",
				Help:      "Applications submitted to job postings",
			},
		),
		RecruiterStatusTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "application_recruiter_status_total",
				Help:      "Recruiter status changes on applications by new status",
			},
			[]string{"status"},
		),
		RecruiterDecisions: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "recruiter_application_decisions_total",
				Help:      "Reviewed recruiter applications by outcome",
			},
			[]string{"outcome"},
		),
		AccountsDeleted: f.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "accounts_deleted_total",
				Help:      "Deleted user accounts",
			},
		),
		EmailsSent: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "notifier_emails_total",
				Help:      "E-mails processed by the notifier by result",
			},
			[]string{"result"},
		),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Middleware records request count and latency per route template.
func (m *Metrics) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			m.HTTPRequestsInFlight.Inc()
			defer m.HTTPRequestsInFlight.Dec()

			err := next(c)

			status := c.Response().Status
			if err != nil {
				if he, ok := err.(*echo.HTTPError); ok {
					status = he.Code
				} else if status < http.StatusBadRequest {
					status = http.StatusInternalServerError
				}
			}
			path := c.Path()
			if path == "" {
				path = "unmatched"
			}

			m.HTTPRequestsTotal.WithLabelValues(c.Request().Method, path, strconv.Itoa(status)).Inc()
			m.HTTPRequestDuration.WithLabelValues(c.Request().Method, path).Observe(time.Since(start).Seconds())
			return err
		}
	}
}

// The helpers below are nil-safe so services can run without metrics in tests.

// ApplicationSubmitted counts an application to a posting.
func (m *Metrics) ApplicationSubmitted() {
	if m != nil {
		m.ApplicationsSubmitted.Inc()
	}
}

// RecruiterStatusChanged counts a recruiter status change.
func (m *Metrics) RecruiterStatusChanged(status string) {
	if m != nil {
		m.RecruiterStatusTotal.WithLabelValues(status).Inc()
	}
}

// RecruiterDecision counts an approved or rejected recruiter application.
func (m *Metrics) RecruiterDecision(outcome string) {
	if m != nil {
		m.RecruiterDecisions.WithLabelValues(outcome).Inc()
	}
}

// AccountDeleted counts a deleted account.
func (m *Metrics) AccountDeleted() {
	if m != nil {
		m.AccountsDeleted.Inc()
	}
}

// EmailProcessed counts an e-mail handled by the notifier.
func (m *Metrics) EmailProcessed(ok bool) {
	if m == nil {
		return
	}
	result := "sent"
	if !ok {
		result = "failed"
	}
	m.EmailsSent.WithLabelValues(result).Inc()
}
