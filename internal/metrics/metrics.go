// Package metrics provides Prometheus metrics for the rental assistant.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds every collector, registered on a private registry so tests
// and multiple instances do not collide.
type Metrics struct {
	registry *prometheus.Registry

	// HTTP request metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Upstream model metrics
	LLMCallsTotal   *prometheus.CounterVec
	LLMCallDuration prometheus.Histogram

	// Store metrics
	StoreOperationsTotal   *prometheus.CounterVec
	StoreOperationDuration *prometheus.HistogramVec

	// Prompt assembly
	ContextInjectionsTotal *prometheus.CounterVec
	PersonasTotal          *prometheus.CounterVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	m := &Metrics{registry: reg}

	m.HTTPRequestsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rental_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"route", "status"},
	)

	m.HTTPRequestDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "rental_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)

	m.LLMCallsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rental_llm_calls_total",
			Help: "Total number of chat model calls",
		},
		[]string{"status"},
	)

	m.LLMCallDuration = factory.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "rental_llm_call_duration_seconds",
			Help:    "Duration of chat model calls in seconds",
			Buckets: []float64{.1, .25, .5, 1, 2, 4, 8, 16, 32},
		},
	)

	m.StoreOperationsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rental_store_operations_total",
			Help: "Total number of conversation store operations",
		},
		[]string{"operation", "status"},
	)

	m.StoreOperationDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "rental_store_operation_duration_seconds",
			Help:    "Duration of conversation store operations in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		},
		[]string{"operation"},
	)

	m.ContextInjectionsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rental_context_injections_total",
			Help: "Product context decisions by mode",
		},
		[]string{"mode"},
	)

	m.PersonasTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rental_personas_total",
			Help: "Persona selections by name",
		},
		[]string{"persona"},
	)

	return m
}

// Registry exposes the private registry for gathering.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordRequest records one HTTP request by route template and status code.
func (m *Metrics) RecordRequest(route string, status int, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(route, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(route).Observe(duration.Seconds())
}

func (m *Metrics) RecordLLMCall(status string, duration time.Duration) {
	m.LLMCallsTotal.WithLabelValues(status).Inc()
	m.LLMCallDuration.Observe(duration.Seconds())
}

func (m *Metrics) RecordStoreOp(operation, status string, duration time.Duration) {
	m.StoreOperationsTotal.WithLabelValues(operation, status).Inc()
	m.StoreOperationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

func (m *Metrics) RecordContextMode(mode string) {
	m.ContextInjectionsTotal.WithLabelValues(mode).Inc()
}

func (m *Metrics) RecordPersona(persona string) {
	m.PersonasTotal.WithLabelValues(persona).Inc()
}
