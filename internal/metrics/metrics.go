// Package metrics provides Prometheus instrumentation for schoolcal.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Manager owns the collectors. A nil *Manager is valid and records nothing.
type Manager struct {
	namespace string
	registry  *prometheus.Registry
	process   bool

	importsTotal    *prometheus.CounterVec
	importedEvents  *prometheus.CounterVec
	skippedRows     *prometheus.CounterVec
	failedSaves     *prometheus.CounterVec
	feedFetches     *prometheus.CounterVec
	refreshDuration prometheus.Histogram
	storedEvents    prometheus.Gauge
	termGroups      prometheus.Gauge

	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

// Option configures a Manager.
type Option func(*Manager)

// WithNamespace overrides the "schoolcal" metric namespace.
func WithNamespace(ns string) Option {
	return func(m *Manager) {
		if ns != "" {
			m.namespace = ns
		}
	}
}

// WithRegistry registers collectors on reg instead of a fresh registry.
func WithRegistry(reg *prometheus.Registry) Option {
	return func(m *Manager) {
		if reg != nil {
			m.registry = reg
		}
	}
}

// WithProcessCollectors adds the Go runtime and process collectors.
func WithProcessCollectors() Option {
	return func(m *Manager) {
		m.process = true
	}
}

func NewManager(opts ...Option) *Manager {
	m := &Manager{namespace: "schoolcal", registry: prometheus.NewRegistry()}
	for _, opt := range opts {
		opt(m)
	}
	m.init()
	return m
}

func (m *Manager) init() {
	if m.process {
		m.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	auto := promauto.With(m.registry)

	m.importsTotal = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "imports_total",
		Help:      "Import runs by source and outcome.",
	}, []string{"source", "outcome"})
	m.importedEvents = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "imported_events_total",
		Help:      "Events saved by imports.",
	}, []string{"source"})
	m.skippedRows = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "skipped_rows_total",
		Help:      "Import rows dropped for lack of a readable date.",
	}, []string{"source"})
	m.failedSaves = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "failed_saves_total",
		Help:      "Events the record store rejected during import.",
	}, []string{"source"})
	m.feedFetches = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "feed_fetches_total",
		Help:      "Feed pulls by feed id and result.",
	}, []string{"feed", "result"})
	m.refreshDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Name:      "refresh_duration_seconds",
		Help:      "Time to reload events and rebuild the term structure.",
		Buckets:   prometheus.DefBuckets,
	})
	m.storedEvents = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Name:      "stored_events",
		Help:      "Events in the record store after the last refresh.",
	})
	m.termGroups = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Name:      "term_groups",
		Help:      "Terms derived on the last refresh.",
	})
	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "HTTP requests by route, method and status code.",
	}, []string{"route", "method", "code"})
	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency by route and method.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route", "method"})
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Manager) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the exposition format.
func (m *Manager) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordImport counts one import run.
func (m *Manager) RecordImport(source string, imported, skipped, failed int, err error) {
	if m == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	m.importsTotal.WithLabelValues(source, outcome).Inc()
	m.importedEvents.WithLabelValues(source).Add(float64(imported))
	m.skippedRows.WithLabelValues(source).Add(float64(skipped))
	m.failedSaves.WithLabelValues(source).Add(float64(failed))
}

func (m *Manager) RecordFeedFetch(feed string, fromCache bool, err error) {
	if m == nil {
		return
	}
	result := "fresh"
	switch {
	case err != nil:
		result = "error"
	case fromCache:
		result = "cached"
	}
	m.feedFetches.WithLabelValues(feed, result).Inc()
}

// ObserveRefresh records a refresh and the resulting sizes.
func (m *Manager) ObserveRefresh(seconds float64, events, groups int) {
	if m == nil {
		return
	}
	m.refreshDuration.Observe(seconds)
	m.storedEvents.Set(float64(events))
	m.termGroups.Set(float64(groups))
}

func (m *Manager) RecordHTTPRequest(route, method, code string, seconds float64) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(route, method, code).Inc()
	m.httpRequestDuration.WithLabelValues(route, method).Observe(seconds)
}
