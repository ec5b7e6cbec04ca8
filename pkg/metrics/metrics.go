// Package metrics exposes Prometheus collectors for turns, model calls and HTTP traffic.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "genai_slotfill"

// Metrics owns a private registry so tests and multiple instances never clash
// on the global default registerer. A nil *Metrics is a valid no-op.
type Metrics struct {
	registry *prometheus.Registry

	turnsTotal        *prometheus.CounterVec
	modelCallDuration *prometheus.HistogramVec
	modelCallErrors   *prometheus.CounterVec
	modelCostUSD      *prometheus.CounterVec
	httpDuration      *prometheus.HistogramVec
}

// New creates the collectors and registers them together with the Go and
// process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		turnsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "turns_total",
			Help:      "Processed turns by outcome",
		}, []string{"outcome"}),
		modelCallDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "model_call_duration_seconds",
			Help:      "Duration of chat model calls in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1.0, 2.0, 5.0, 10.0, 30.0, 60.0},
		}, []string{"stage", "status"}),
		modelCallErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "model_call_errors_total",
			Help:      "Failed chat model calls",
		}, []string{"stage"}),
		modelCostUSD: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "model_cost_usd_total",
			Help:      "Priced token usage of chat model calls in USD",
		}, []string{"stage", "model"}),
		httpDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveTurn counts a finished turn; rejected requests use outcome "rejected".
func (m *Metrics) ObserveTurn(outcome string) {
	if m == nil {
		return
	}
	m.turnsTotal.WithLabelValues(outcome).Inc()
}

// ObserveModelCall records one chat model call.
func (m *Metrics) ObserveModelCall(stage string, d time.Duration, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
		m.modelCallErrors.WithLabelValues(stage).Inc()
	}
	m.modelCallDuration.WithLabelValues(stage, status).Observe(d.Seconds())
}

// AddModelCost adds priced usage for a model call.
func (m *Metrics) AddModelCost(stage, modelName string, usd float64) {
	if m == nil || usd <= 0 {
		return
	}
	m.modelCostUSD.WithLabelValues(stage, modelName).Add(usd)
}

// ObserveHTTPRequest records one served HTTP request.
func (m *Metrics) ObserveHTTPRequest(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.httpDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(d.Seconds())
}
