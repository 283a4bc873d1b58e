// Package metrics provides Prometheus metrics for suite runs.
package metrics

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/common/expfmt"
)

const namespace = "armsuite"

// Metrics holds the collectors for one registry.
type Metrics struct {
	registry *prometheus.Registry

	// CasesTotal counts executed cases by outcome.
	CasesTotal *prometheus.CounterVec

	// CaseDuration measures case wall time in seconds.
	CaseDuration *prometheus.HistogramVec

	// AssertionFailuresTotal counts failed assertions by comparison kind.
	AssertionFailuresTotal *prometheus.CounterVec

	// RunsTotal counts completed suite runs.
	RunsTotal prometheus.Counter

	// HistoryWrites counts report persistence attempts by backend and result.
	HistoryWrites *prometheus.CounterVec

	// HTTPRequestsTotal counts serve-mode requests by method, path, and status.
	HTTPRequestsTotal *prometheus.CounterVec

	// HTTPRequestDuration measures serve-mode request latency in seconds.
	HTTPRequestDuration *prometheus.HistogramVec

	// ActiveConnections tracks in-flight serve-mode requests.
	ActiveConnections prometheus.Gauge
}

// New creates collectors registered on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		CasesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cases_total",
				Help:      "Total number of executed test cases",
			},
			[]string{"outcome"},
		),
		CaseDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "case_duration_seconds",
				Help:      "Test case duration in seconds",
				Buckets:   []float64{.0001, .0005, .001, .005, .01, .05, .1, .5, 1, 5},
			},
			[]string{"outcome"},
		),
		AssertionFailuresTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "assertion_failures_total",
				Help:      "Total number of failed assertions",
			},
			[]string{"kind"},
		),
		RunsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "runs_total",
				Help:      "Total number of suite runs",
			},
		),
		HistoryWrites: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "history_writes_total",
				Help:      "Total number of report persistence attempts",
			},
			[]string{"backend", "result"},
		),
		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
		ActiveConnections: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "active_connections",
				Help:      "Number of in-flight HTTP requests",
			},
		),
	}
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns the Prometheus metrics HTTP handler.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveCase records one finished case.
func (m *Metrics) ObserveCase(outcome string, duration time.Duration) {
	m.CasesTotal.WithLabelValues(outcome).Inc()
	m.CaseDuration.WithLabelValues(outcome).Observe(duration.Seconds())
}

// ObserveAssertion records one failed assertion.
func (m *Metrics) ObserveAssertion(kind string) {
	m.AssertionFailuresTotal.WithLabelValues(kind).Inc()
}

// ObserveRun records a completed run.
func (m *Metrics) ObserveRun() {
	m.RunsTotal.Inc()
}

// ObserveHistoryWrite records a report persistence attempt.
func (m *Metrics) ObserveHistoryWrite(backend string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.HistoryWrites.WithLabelValues(backend, result).Inc()
}

// RecordRequest records HTTP request metrics.
func (m *Metrics) RecordRequest(method, path string, status int, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// WriteText writes all metrics in the Prometheus text exposition format.
func (m *Metrics) WriteText(w io.Writer) error {
	families, err := m.registry.Gather()
	if err != nil {
		return fmt.Errorf("failed to gather metrics: %w", err)
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return fmt.Errorf("failed to encode metric %s: %w", mf.GetName(), err)
		}
	}
	return nil
}
