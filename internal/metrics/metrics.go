// Package metrics provides Prometheus metrics for layout operations
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/OpenTraceLab/OpenTraceLayout/pkg/kicad/pcb"
	"github.com/OpenTraceLab/OpenTraceLayout/pkg/layout"
	"github.com/OpenTraceLab/OpenTraceLayout/pkg/layout/errkind"
)

// Recorder collects save and restore metrics. It implements
// layout.Observer.
type Recorder struct {
	registry *prometheus.Registry

	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	elements   *prometheus.CounterVec
	skipped    *prometheus.CounterVec
	errors     *prometheus.CounterVec
}

var _ layout.Observer = (*Recorder)(nil)

// New registers the collectors on a fresh registry.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Recorder{
		registry: reg,
		operations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "otl_operations_total",
				Help: "Total number of save and restore operations",
			},
			[]string{"operation", "status"},
		),
		duration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "otl_operation_duration_seconds",
				Help:    "Time taken by successful operations",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30},
			},
			[]string{"operation"},
		),
		elements: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "otl_elements_replicated_total",
				Help: "Total number of placed footprints and cloned elements",
			},
			[]string{"kind"},
		),
		skipped: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "otl_elements_skipped_total",
				Help: "Total number of saved elements that could not be replicated",
			},
			[]string{"kind"},
		),
		errors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "otl_errors_total",
				Help: "Total number of failed operations by error kind",
			},
			[]string{"operation", "type"},
		),
	}
}

// Registry returns the registry holding the collectors.
func (r *Recorder) Registry() *prometheus.Registry { return r.registry }

func (r *Recorder) Replicated(kind pcb.Kind, n int) {
	r.elements.WithLabelValues(kind.String()).Add(float64(n))
}

func (r *Recorder) Skipped(kind pcb.Kind, _ string) {
	r.skipped.WithLabelValues(kind.String()).Inc()
}

func (r *Recorder) Failed(op string, err error) {
	kind, _ := errkind.Of(err)
	r.operations.WithLabelValues(op, "error").Inc()
	r.errors.WithLabelValues(op, kind.String()).Inc()
}

func (r *Recorder) Completed(op string, elapsed time.Duration) {
	r.operations.WithLabelValues(op, "ok").Inc()
	r.duration.WithLabelValues(op).Observe(elapsed.Seconds())
}

// WriteTextfile writes the current values in the node exporter textfile
// format.
func (r *Recorder) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, r.registry)
}
