// Package telemetry exposes run-level Prometheus metrics. The collector
// registers on a private registry so embedding applications keep control
// of the default one.
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics aggregates counters for a discovery run. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	apiCalls            *prometheus.CounterVec
	apiErrors           *prometheus.CounterVec
	retries             *prometheus.CounterVec
	discoveredResources *prometheus.CounterVec
	filteredResources   *prometheus.CounterVec
	breakerOpens        *prometheus.CounterVec
}

// New creates a metrics collector on its own registry
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		apiCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "inventag",
			Name:      "api_calls_total",
			Help:      "Provider listing calls issued, by service and operation.",
		}, []string{"service", "operation"}),
		apiErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "inventag",
			Name:      "api_errors_total",
			Help:      "Provider calls that failed after retries, by service and error kind.",
		}, []string{"service", "kind"}),
		retries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "inventag",
			Name:      "api_retries_total",
			Help:      "Retry attempts issued against the provider, by service.",
		}, []string{"service"}),
		discoveredResources: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "inventag",
			Name:      "resources_discovered_total",
			Help:      "Resources surviving normalization, by service.",
		}, []string{"service"}),
		filteredResources: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "inventag",
			Name:      "resources_filtered_total",
			Help:      "Resources dropped by the managed filter, by service.",
		}, []string{"service"}),
		breakerOpens: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "inventag",
			Name:      "breaker_opens_total",
			Help:      "Circuit breaker transitions to open, by service.",
		}, []string{"service"}),
	}
	m.registry.MustRegister(
		m.apiCalls, m.apiErrors, m.retries,
		m.discoveredResources, m.filteredResources, m.breakerOpens,
	)
	return m
}

// Registry returns the private registry for exposition
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// APICall records one provider call
func (m *Metrics) APICall(service, operation string) {
	if m == nil {
		return
	}
	m.apiCalls.WithLabelValues(service, operation).Inc()
}

// APIError records a call that failed after retries
func (m *Metrics) APIError(service, kind string) {
	if m == nil {
		return
	}
	m.apiErrors.WithLabelValues(service, kind).Inc()
}

// Retry records one retry attempt
func (m *Metrics) Retry(service string) {
	if m == nil {
		return
	}
	m.retries.WithLabelValues(service).Inc()
}

// Discovered records resources surviving normalization
func (m *Metrics) Discovered(service string, count int) {
	if m == nil || count == 0 {
		return
	}
	m.discoveredResources.WithLabelValues(service).Add(float64(count))
}

// Filtered records resources dropped by the managed filter
func (m *Metrics) Filtered(service string, count int) {
	if m == nil || count == 0 {
		return
	}
	m.filteredResources.WithLabelValues(service).Add(float64(count))
}

// BreakerOpen records a breaker opening for a service
func (m *Metrics) BreakerOpen(service string) {
	if m == nil {
		return
	}
	m.breakerOpens.WithLabelValues(service).Inc()
}
