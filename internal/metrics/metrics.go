// Package metrics provides Prometheus-based counters for the influence,
// visibility and learning components.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder collects metrics. A nil *Recorder is valid and records nothing, so
// components can be used without a registry.
type Recorder struct {
	diffusionPasses   *prometheus.CounterVec
	fieldCells        *prometheus.GaugeVec
	visibilitySamples prometheus.Counter
	visibilityCells   prometheus.Counter
	updatesTotal      *prometheus.CounterVec
	updatesRejected   *prometheus.CounterVec
	tdError           *prometheus.HistogramVec
	actionsTotal      *prometheus.CounterVec
}

// NewRecorder registers the collectors with reg.
func NewRecorder(reg prometheus.Registerer) *Recorder {
	factory := promauto.With(reg)
	return &Recorder{
		diffusionPasses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "influence_diffusion_passes_total",
				Help: "Number of diffusion passes applied to influence fields",
			},
			[]string{"field"},
		),
		fieldCells: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "influence_known_cells",
				Help: "Number of cells known to an influence field after its last diffusion",
			},
			[]string{"field"},
		),
		visibilitySamples: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "visibility_samples_total",
				Help: "Vantage points sampled while building visibility fields",
			},
		),
		visibilityCells: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "visibility_cells_credited_total",
				Help: "Cells credited by visibility samples",
			},
		),
		updatesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "learner_updates_total",
				Help: "Temporal-difference updates applied to learner weights",
			},
			[]string{"role"},
		),
		updatesRejected: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "learner_updates_rejected_total",
				Help: "Updates skipped because they would produce non-finite weights",
			},
			[]string{"role"},
		),
		tdError: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "learner_td_error",
				Help:    "Temporal-difference correction observed by updates",
				Buckets: []float64{-10, -1, -0.1, -0.01, 0, 0.01, 0.1, 1, 10},
			},
			[]string{"role"},
		),
		actionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "learner_actions_total",
				Help: "Actions selected by learners by selection mode",
			},
			[]string{"role", "mode"},
		),
	}
}

// ObserveDiffusion records passes applied to a field and its resulting size.
func (r *Recorder) ObserveDiffusion(field string, passes, cells int) {
	if r == nil {
		return
	}
	r.diffusionPasses.WithLabelValues(field).Add(float64(passes))
	r.fieldCells.WithLabelValues(field).Set(float64(cells))
}

// ObserveVisibility records one completed visibility build.
func (r *Recorder) ObserveVisibility(samples, credited int) {
	if r == nil {
		return
	}
	r.visibilitySamples.Add(float64(samples))
	r.visibilityCells.Add(float64(credited))
}

// ObserveUpdate records an applied update and its correction.
func (r *Recorder) ObserveUpdate(role string, delta float64) {
	if r == nil {
		return
	}
	r.updatesTotal.WithLabelValues(role).Inc()
	r.tdError.WithLabelValues(role).Observe(delta)
}

// RejectUpdate records a skipped update.
func (r *Recorder) RejectUpdate(role string) {
	if r == nil {
		return
	}
	r.updatesRejected.WithLabelValues(role).Inc()
}

// ObserveAction records an action selection; mode is "explore", "exploit" or "none".
func (r *Recorder) ObserveAction(role, mode string) {
	if r == nil {
		return
	}
	r.actionsTotal.WithLabelValues(role, mode).Inc()
}
