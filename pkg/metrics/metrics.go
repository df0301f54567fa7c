// Package metrics collects release metrics and exports them in the prometheus text format.
//
// The releaser is a short-lived CLI: instead of serving an endpoint, metrics are written to a file picked up by
// the node-exporter textfile collector.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "releaser"

// Release metrics
type Release struct {
	registry *prometheus.Registry
	releases *prometheus.CounterVec
	stages   *prometheus.HistogramVec
	last     *prometheus.GaugeVec
}

// New set of release metrics, with its own registry
func New() *Release {
	m := &Release{
		registry: prometheus.NewRegistry(),
		releases: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "releases_total",
			Help:      "Number of release flows, by flow and outcome",
		}, []string{"flow", "outcome"}),
		stages: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Duration of each release stage",
			Buckets:   []float64{.1, .5, 1, 5, 15, 30, 60, 120, 300, 600, 1800},
		}, []string{"stage"}),
		last: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_release_timestamp_seconds",
			Help:      "Unix time of the last release flow, by outcome",
		}, []string{"outcome"}),
	}
	m.registry.MustRegister(m.releases, m.stages, m.last)
	return m
}

// ObserveRelease records the outcome of a release flow
func (m *Release) ObserveRelease(flow, outcome string) {
	if m == nil {
		return
	}
	m.releases.WithLabelValues(flow, outcome).Inc()
	m.last.WithLabelValues(outcome).Set(float64(time.Now().Unix()))
}

// ObserveStage records the time spent in some stage
func (m *Release) ObserveStage(stage string, d time.Duration) {
	if m == nil {
		return
	}
	m.stages.WithLabelValues(stage).Observe(d.Seconds())
}

// Gatherer exposes the underlying registry
func (m *Release) Gatherer() prometheus.Gatherer {
	return m.registry
}

// WriteTextfile writes all metrics atomically to a file, in the prometheus text format
func (m *Release) WriteTextfile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, m.registry)
}
