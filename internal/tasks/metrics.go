package tasks

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/desertthunder/tapedeck/internal/models"
	"github.com/prometheus/client_golang/prometheus"
)

// MetricsFilename is the Prometheus text file written next to the report.
const MetricsFilename = "metrics.prom"

const (
	stageResolve  = "resolve"
	stageFetch    = "fetch"
	stageFinalize = "finalize"

	fetchPathLocator = "locator"
	fetchPathQuery   = "query"
)

// Metrics collects per-run counters on a private registry.
//
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry      *prometheus.Registry
	tracks        *prometheus.CounterVec
	stageDuration *prometheus.HistogramVec
	fetchAttempts *prometheus.CounterVec
}

// NewMetrics creates the run collectors and registers them on a fresh registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		tracks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tapedeck_tracks_total",
				Help: "Tracks processed, by terminal status",
			},
			[]string{"status"},
		),
		stageDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tapedeck_stage_duration_seconds",
				Help:    "Time spent in each pipeline stage",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"stage"},
		),
		fetchAttempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tapedeck_fetch_attempts_total",
				Help: "Download attempts, by target kind",
			},
			[]string{"path"},
		),
	}
	m.registry.MustRegister(m.tracks, m.stageDuration, m.fetchAttempts)
	return m
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveStage records the time elapsed since start for stage.
func (m *Metrics) ObserveStage(stage string, start time.Time) {
	if m == nil {
		return
	}
	m.stageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}

// CountAttempt increments the fetch attempt counter for path.
func (m *Metrics) CountAttempt(path string) {
	if m == nil {
		return
	}
	m.fetchAttempts.WithLabelValues(path).Inc()
}

// CountOutcome increments the track counter; skipped successes are counted separately.
func (m *Metrics) CountOutcome(o models.Outcome) {
	if m == nil {
		return
	}
	status := o.Status.String()
	if o.OK() && o.Skipped {
		status = "skipped"
	}
	m.tracks.WithLabelValues(status).Inc()
}

// WriteFile writes the registry in text exposition format to dir/metrics.prom.
func (m *Metrics) WriteFile(dir string) (string, error) {
	if m == nil {
		return "", nil
	}
	path := filepath.Join(dir, MetricsFilename)
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return "", fmt.Errorf("failed to write metrics: %w", err)
	}
	return path, nil
}
