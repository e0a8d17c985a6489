// Package metrics exposes planning run statistics as Prometheus collectors.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder counts rows, skips and issues per pipeline stage
type Recorder struct {
	registry *prometheus.Registry

	rowsTotal     *prometheus.CounterVec
	skipsTotal    *prometheus.CounterVec
	issuesTotal   *prometheus.CounterVec
	stageDuration *prometheus.HistogramVec
}

// NewRecorder registers the planning collectors on a fresh registry
func NewRecorder() *Recorder {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Recorder{
		registry: registry,
		rowsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "meio",
			Name:      "stage_rows_total",
			Help:      "Total number of rows produced by a planning stage.",
		}, []string{"stage"}),
		skipsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "meio",
			Name:      "stage_skips_total",
			Help:      "Total number of rows excluded by numeric guards.",
		}, []string{"stage", "reason"}),
		issuesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "meio",
			Name:      "stage_issues_total",
			Help:      "Total number of data integrity issues reported by a stage.",
		}, []string{"stage"}),
		stageDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "meio",
			Name:      "stage_duration_seconds",
			Help:      "Wall time spent in a planning stage.",
			Buckets: []float64{
				0.0005, 0.001, 0.005,
				0.01, 0.05,
				0.1, 0.5,
				1, 5, 30,
			},
		}, []string{"stage"}),
	}
}

// Registry returns the registry holding the planning collectors
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// ObserveStage records the outcome of one stage execution
func (r *Recorder) ObserveStage(stage string, rows, issues int, skips map[string]int, elapsed time.Duration) {
	r.rowsTotal.WithLabelValues(stage).Add(float64(rows))
	r.issuesTotal.WithLabelValues(stage).Add(float64(issues))
	for reason, n := range skips {
		r.skipsTotal.WithLabelValues(stage, reason).Add(float64(n))
	}
	r.stageDuration.WithLabelValues(stage).Observe(elapsed.Seconds())
}

// WriteTextfile dumps the registry in the Prometheus text exposition format
func (r *Recorder) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, r.registry)
}
