package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains the Prometheus metrics for the recording pipeline.
type Metrics struct {
	// Capture metrics
	CapturesStarted prometheus.Counter
	CapturesFailed  prometheus.Counter
	ClipDuration    prometheus.Histogram

	// Effect metrics
	EffectRenders        *prometheus.CounterVec
	EffectRenderDuration prometheus.Histogram

	// Upload metrics
	Uploads        *prometheus.CounterVec
	UploadDuration prometheus.Histogram
}

var (
	defaultMetrics *Metrics
	once           sync.Once
)

// Default returns the process-wide metrics, registering them on first use.
// promauto registration panics on duplicates, so construction happens once.
func Default() *Metrics {
	once.Do(func() {
		defaultMetrics = newMetrics()
	})
	return defaultMetrics
}

func newMetrics() *Metrics {
	return &Metrics{
		CapturesStarted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "voxdrop_captures_started_total",
			Help: "Total number of capture sessions started",
		}),
		CapturesFailed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "voxdrop_captures_failed_total",
			Help: "Total number of capture sessions that failed to start",
		}),
		ClipDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "voxdrop_clip_duration_seconds",
			Help:    "Duration of finalized clips in seconds",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 9), // 0.5s to ~2 minutes
		}),

		EffectRenders: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "voxdrop_effect_renders_total",
			Help: "Total number of offline effect renders",
		}, []string{"effect"}),
		EffectRenderDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "voxdrop_effect_render_duration_seconds",
			Help:    "Time spent rendering effects offline",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 10), // 10ms to ~10s
		}),

		Uploads: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "voxdrop_uploads_total",
			Help: "Total number of upload attempts by outcome",
		}, []string{"outcome"}),
		UploadDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "voxdrop_upload_duration_seconds",
			Help:    "Duration of the full decode-render-encode-transmit pipeline",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10), // 100ms to ~2 minutes
		}),
	}
}

// RecordCaptureStarted increments the captures started counter.
func (m *Metrics) RecordCaptureStarted() {
	m.CapturesStarted.Inc()
}

// RecordCaptureFailed increments the captures failed counter.
func (m *Metrics) RecordCaptureFailed() {
	m.CapturesFailed.Inc()
}

// RecordClipFinalized records the duration of a finished clip.
func (m *Metrics) RecordClipFinalized(durationSeconds float64) {
	m.ClipDuration.Observe(durationSeconds)
}

// RecordEffectRender records one offline render of the named effect.
func (m *Metrics) RecordEffectRender(effect string, durationSeconds float64) {
	m.EffectRenders.WithLabelValues(effect).Inc()
	m.EffectRenderDuration.Observe(durationSeconds)
}

// RecordUpload records an upload attempt with its outcome label.
func (m *Metrics) RecordUpload(outcome string, durationSeconds float64) {
	m.Uploads.WithLabelValues(outcome).Inc()
	m.UploadDuration.Observe(durationSeconds)
}
