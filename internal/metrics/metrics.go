// Package metrics - счетчики Prometheus для рендера и воспроизведения.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "quotereel"

// Режимы цикла кадров.
const (
	ModeLive    = "live"
	ModeCapture = "capture"
)

// Исходы сессии.
const (
	OutcomeEnded   = "ended"
	OutcomeStopped = "stopped"
	OutcomeFailed  = "failed"
)

var (
	framesRendered = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_rendered_total",
			Help:      "Total number of composed frames",
		},
		[]string{"mode"},
	)

	sessionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_total",
			Help:      "Total number of finished playback sessions",
		},
		[]string{"outcome"},
	)

	sessionsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_active",
			Help:      "Number of sessions currently loading or playing",
		},
	)

	frameRenderSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "frame_render_seconds",
			Help:      "Time spent composing one frame",
			Buckets:   []float64{.001, .0025, .005, .01, .016, .025, .033, .05, .1, .25},
		},
	)

	captureBytes = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "capture_bytes_total",
			Help:      "Bytes written to finished capture files",
		},
	)
)

var allMetrics = []prometheus.Collector{
	framesRendered,
	sessionsTotal,
	sessionsActive,
	frameRenderSeconds,
	captureBytes,
}

// RecordFrame учитывает один собранный кадр и время его сборки.
func RecordFrame(mode string, seconds float64) {
	framesRendered.WithLabelValues(mode).Inc()
	frameRenderSeconds.Observe(seconds)
}

func SessionStarted() {
	sessionsActive.Inc()
}

// SessionFinished закрывает сессию с исходом outcome.
func SessionFinished(outcome string) {
	sessionsActive.Dec()
	sessionsTotal.WithLabelValues(outcome).Inc()
}

func RecordCaptureBytes(n int64) {
	if n > 0 {
		captureBytes.Add(float64(n))
	}
}
