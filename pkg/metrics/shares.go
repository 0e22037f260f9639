package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ShareMetrics records gallery access attempts by outcome.
type ShareMetrics struct {
	validations *prometheus.CounterVec
	views       prometheus.Counter
}

// NewShareMetrics registers the share access metrics on the provided registerer.
func NewShareMetrics(reg prometheus.Registerer) *ShareMetrics {
	if reg == nil {
		return &ShareMetrics{}
	}
	validations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "share_validations_total",
		Help: "Share link validation attempts by outcome.",
	}, []string{"outcome"})
	views := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "share_views_total",
		Help: "Successful gallery views across all share links.",
	})
	reg.MustRegister(validations, views)
	return &ShareMetrics{
		validations: validations,
		views:       views,
	}
}

// IncValidation increments the validation counter for the given outcome label.
func (s *ShareMetrics) IncValidation(outcome string) {
	if s == nil || s.validations == nil {
		return
	}
	s.validations.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// IncView increments the successful-view counter.
func (s *ShareMetrics) IncView() {
	if s == nil || s.views == nil {
		return
	}
	s.views.Inc()
}

// WatermarkMetrics records metadata for preview-generation jobs.
type WatermarkMetrics struct {
	duration *prometheus.HistogramVec
	success  *prometheus.CounterVec
	failure  *prometheus.CounterVec
}

// NewWatermarkMetrics registers the watermark job metrics on the provided registerer.
func NewWatermarkMetrics(reg prometheus.Registerer) *WatermarkMetrics {
	if reg == nil {
		return &WatermarkMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "watermark_duration_seconds",
		Help:    "Duration of watermark preview jobs in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"job"})
	success := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "watermark_success",
		Help: "Successful watermark job executions.",
	}, []string{"job"})
	failure := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "watermark_failure",
		Help: "Failed watermark job executions.",
	}, []string{"job"})
	reg.MustRegister(duration, success, failure)
	return &WatermarkMetrics{
		duration: duration,
		success:  success,
		failure:  failure,
	}
}

// ObserveDuration records the duration for the named job.
func (w *WatermarkMetrics) ObserveDuration(job string, duration time.Duration) {
	if w == nil || w.duration == nil {
		return
	}
	w.duration.WithLabelValues(normalizeLabel(job)).Observe(duration.Seconds())
}

// IncSuccess increments the success counter for the named job.
func (w *WatermarkMetrics) IncSuccess(job string) {
	if w == nil || w.success == nil {
		return
	}
	w.success.WithLabelValues(normalizeLabel(job)).Inc()
}

// IncFailure increments the failure counter for the named job.
func (w *WatermarkMetrics) IncFailure(job string) {
	if w == nil || w.failure == nil {
		return
	}
	w.failure.WithLabelValues(normalizeLabel(job)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
