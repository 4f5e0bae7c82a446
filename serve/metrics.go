package serve

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"effdet/video"
)

// Metrics exports stream progress on its own registry.
type Metrics struct {
	Registry *prometheus.Registry

	frames  prometheus.Counter
	written prometheus.Counter
	fps     prometheus.Gauge
	detect  prometheus.Histogram
}

func NewMetrics() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		frames: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "effdet_frames_processed_total",
			Help: "Frames run through the detector",
		}),
		written: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "effdet_frames_written_total",
			Help: "Frames handed to output sinks",
		}),
		fps: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "effdet_fps",
			Help: "Smoothed frames per second",
		}),
		detect: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "effdet_detect_seconds",
			Help:    "Time spent in the detector per frame",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 10),
		}),
	}
	m.Registry.MustRegister(m.frames, m.written, m.fps, m.detect)
	return m
}

func (m *Metrics) FrameDone(s video.FrameStats) {
	m.frames.Inc()
	m.written.Add(float64(s.Written))
	m.fps.Set(s.FPS)
	m.detect.Observe(s.Detect.Seconds())
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry})
}
