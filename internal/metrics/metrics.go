// Package metrics counts what a run did and writes the counters in the
// Prometheus text format for node_exporter's textfile collector.
package metrics

import (
	"fmt"
	"net/url"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the counters of one run. A nil *Metrics records nothing.
type Metrics struct {
	registry *prometheus.Registry

	PagesTotal      *prometheus.CounterVec
	EditsTotal      *prometheus.CounterVec
	ResolutionTotal *prometheus.CounterVec
	RequestsTotal   *prometheus.CounterVec
	RetriesTotal    prometheus.Counter
	RunDuration     prometheus.Gauge
}

// New creates the counters on a private registry.
//
// Metrics:
//   - wikipub_pages_total{status} - pages processed by final status
//   - wikipub_edits_total{action,applied} - proposed edits by action
//   - wikipub_resolutions_total{kind,strategy} - resolver outcomes
//   - wikipub_api_requests_total{host,code} - API requests by host and HTTP status
//   - wikipub_api_retries_total - retried API requests
//   - wikipub_run_duration_seconds - wall time of the last run
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		PagesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wikipub_pages_total",
				Help: "Pages processed by final status",
			},
			[]string{"status"},
		),
		EditsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wikipub_edits_total",
				Help: "Proposed knowledge-base edits by action",
			},
			[]string{"action", "applied"},
		),
		ResolutionTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wikipub_resolutions_total",
				Help: "Resolver outcomes by kind and strategy",
			},
			[]string{"kind", "strategy"},
		),
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wikipub_api_requests_total",
				Help: "API requests by host and HTTP status",
			},
			[]string{"host", "code"},
		),
		RetriesTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "wikipub_api_retries_total",
			Help: "Retried API requests",
		}),
		RunDuration: factory.NewGauge(prometheus.GaugeOpts{
			Name: "wikipub_run_duration_seconds",
			Help: "Wall time of the last run in seconds",
		}),
	}
}

// Page counts a processed page
func (m *Metrics) Page(status string) {
	if m == nil {
		return
	}
	m.PagesTotal.WithLabelValues(status).Inc()
}

// Edit counts a proposed edit and whether it was written
func (m *Metrics) Edit(action string, applied bool) {
	if m == nil {
		return
	}
	m.EditsTotal.WithLabelValues(action, strconv.FormatBool(applied)).Inc()
}

// Resolution counts a resolver outcome
func (m *Metrics) Resolution(kind, strategy string) {
	if m == nil {
		return
	}
	if strategy == "" {
		strategy = "none"
	}
	m.ResolutionTotal.WithLabelValues(kind, strategy).Inc()
}

// Request counts an API request. code is 0 when no response arrived.
func (m *Metrics) Request(rawURL string, code int) {
	if m == nil {
		return
	}
	host := rawURL
	if u, err := url.Parse(rawURL); err == nil && u.Host != "" {
		host = u.Host
	}
	m.RequestsTotal.WithLabelValues(host, strconv.Itoa(code)).Inc()
}

// Retry counts a retried request
func (m *Metrics) Retry() {
	if m == nil {
		return
	}
	m.RetriesTotal.Inc()
}

// SetDuration records the run wall time
func (m *Metrics) SetDuration(seconds float64) {
	if m == nil {
		return
	}
	m.RunDuration.Set(seconds)
}

// Registry exposes the private registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// WriteFile writes all counters to path atomically
func (m *Metrics) WriteFile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("write metrics: %w", err)
	}
	return nil
}
