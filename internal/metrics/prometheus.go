// Package metrics records scan outcomes as Prometheus metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder collects scanner metrics on its own registry, so repeated
// recorders in one process never collide on the default registry.
type Recorder struct {
	registry   *prometheus.Registry
	detections *prometheus.CounterVec
	rejections *prometheus.CounterVec
	errorsTot  *prometheus.CounterVec
	duration   prometheus.Histogram
	lastScore  *prometheus.GaugeVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		detections: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "patternscan_detections_total",
				Help: "Total number of pattern matches by pattern and status",
			},
			[]string{"pattern", "status"},
		),
		rejections: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "patternscan_rejections_total",
				Help: "Total number of detector rejections by pattern and reason",
			},
			[]string{"pattern", "reason"},
		),
		errorsTot: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "patternscan_scan_errors_total",
				Help: "Total number of errors encountered by scan stage",
			},
			[]string{"stage"},
		),
		duration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "patternscan_analysis_duration_seconds",
				Help:    "Duration of one symbol analysis in seconds",
				Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14),
			},
		),
		lastScore: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "patternscan_last_score",
				Help: "Most recent score reported for a symbol and pattern",
			},
			[]string{"symbol", "pattern"},
		),
	}
}

// Registry returns the registry the recorder writes to.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// RecordDetection records a match and its score.
func (r *Recorder) RecordDetection(symbol, pattern, status string, score int) {
	r.detections.WithLabelValues(pattern, status).Inc()
	r.lastScore.WithLabelValues(symbol, pattern).Set(float64(score))
}

// RecordRejection records a detector that found no pattern.
func (r *Recorder) RecordRejection(pattern, reason string) {
	r.rejections.WithLabelValues(pattern, reason).Inc()
}

// RecordError records an error at a scan stage such as "load" or "store".
func (r *Recorder) RecordError(stage string) {
	r.errorsTot.WithLabelValues(stage).Inc()
}

// RecordDuration records how long one analysis took.
func (r *Recorder) RecordDuration(d time.Duration) {
	r.duration.Observe(d.Seconds())
}

// WriteTextfile writes all metrics in the node-exporter textfile format.
// The file is written to a temporary name and renamed into place.
func (r *Recorder) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, r.registry)
}
