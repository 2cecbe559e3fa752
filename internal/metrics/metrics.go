// Package metrics exports labeling progress as Prometheus metrics.
package metrics

import (
	"net/http"

	labeler "github.com/FrenchMajesty/comment-labeler"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Row statuses
const (
	StatusLabeled = "labeled"
	StatusFailed  = "failed"
)

// Run results
const (
	ResultCompleted = "completed"
	ResultRejected  = "rejected"
)

// Recorder is a labeler.Reporter backed by its own Prometheus registry
type Recorder struct {
	registry *prometheus.Registry

	rowsTotal   *prometheus.CounterVec
	rowDuration *prometheus.HistogramVec
	runsTotal   *prometheus.CounterVec
	activeRuns  prometheus.Gauge
}

var _ labeler.Reporter = (*Recorder)(nil)

// NewRecorder creates a Recorder with all metrics registered
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		rowsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "labeler_rows_processed_total",
				Help: "Total number of rows sent for classification",
			},
			[]string{"status"},
		),
		rowDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "labeler_row_duration_seconds",
				Help:    "Time taken by one classification call",
				Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"status"},
		),
		runsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "labeler_runs_total",
				Help: "Total number of labeling runs by result",
			},
			[]string{"result"},
		),
		activeRuns: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "labeler_active_runs",
				Help: "Number of runs currently processing rows",
			},
		),
	}

	r.registry.MustRegister(
		r.rowsTotal,
		r.rowDuration,
		r.runsTotal,
		r.activeRuns,
	)

	return r
}

func (r *Recorder) PhaseChanged(from, to labeler.Phase) {
	switch {
	case to == labeler.PhaseProcessing:
		r.activeRuns.Inc()
	case from == labeler.PhaseProcessing && to == labeler.PhaseDone:
		r.activeRuns.Dec()
		r.runsTotal.WithLabelValues(ResultCompleted).Inc()
	case from == labeler.PhaseValidating && to == labeler.PhaseIdle:
		r.runsTotal.WithLabelValues(ResultRejected).Inc()
	}
}

func (r *Recorder) RowProcessed(ev labeler.RowEvent) {
	status := StatusLabeled
	if ev.Outcome.Failed() {
		status = StatusFailed
	}

	r.rowsTotal.WithLabelValues(status).Inc()
	r.rowDuration.WithLabelValues(status).Observe(ev.Duration.Seconds())
}

// Registry returns the registry holding the recorder's metrics
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler serves the recorder's metrics in the Prometheus exposition format
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// WriteTextfile writes the current metrics for the node exporter textfile collector
func (r *Recorder) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, r.registry)
}
