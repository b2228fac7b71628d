// Package metrics holds the Prometheus collectors for pipeline runs.
//
// All methods are safe on a nil *Metrics so callers that do not export
// metrics can pass nil.
package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "seomerge"

// Metrics contains the pipeline collectors.
type Metrics struct {
	Runs              *prometheus.CounterVec
	Files             *prometheus.CounterVec
	Rows              *prometheus.CounterVec
	DuplicatesRemoved prometheus.Counter
	RunDuration       *prometheus.HistogramVec
}

// New creates the collectors without registering them.
func New() *Metrics {
	return &Metrics{
		Runs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "pipeline",
				Name:      "runs_total",
				Help:      "Pipeline runs by outcome (ok, no_input, schema_invalid, error)",
			},
			[]string{"outcome"},
		),
		Files: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "ingest",
				Name:      "files_total",
				Help:      "Input files by parse status (parsed, failed)",
			},
			[]string{"status"},
		),
		Rows: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "pipeline",
				Name:      "rows_total",
				Help:      "Rows observed after each stage (merged, deduplicated, filtered)",
			},
			[]string{"stage"},
		),
		DuplicatesRemoved: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "pipeline",
				Name:      "duplicates_removed_total",
				Help:      "Rows dropped by composite-key deduplication",
			},
		),
		RunDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "pipeline",
				Name:      "run_duration_seconds",
				Help:      "Pipeline run duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"outcome"},
		),
	}
}

// Register registers every collector with reg.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	if m == nil {
		return nil
	}
	var errs []error
	for _, c := range []prometheus.Collector{m.Runs, m.Files, m.Rows, m.DuplicatesRemoved, m.RunDuration} {
		if err := reg.Register(c); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *Metrics) ObserveRun(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.Runs.WithLabelValues(outcome).Inc()
	m.RunDuration.WithLabelValues(outcome).Observe(d.Seconds())
}

func (m *Metrics) ObserveFiles(parsed, failed int) {
	if m == nil {
		return
	}
	m.Files.WithLabelValues("parsed").Add(float64(parsed))
	m.Files.WithLabelValues("failed").Add(float64(failed))
}

func (m *Metrics) ObserveRows(stage string, n int) {
	if m == nil {
		return
	}
	m.Rows.WithLabelValues(stage).Add(float64(n))
}

func (m *Metrics) ObserveDuplicates(n int) {
	if m == nil {
		return
	}
	m.DuplicatesRemoved.Add(float64(n))
}
