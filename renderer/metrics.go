package renderer

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	tracerLabel  = "tracer"
	outcomeLabel = "outcome"
)

var (
	framesRendered = promauto.NewCounter(prometheus.CounterOpts{
		Name: "industria_frames_rendered_total",
		Help: "The number of rendered frames.",
	})

	frameRenderTime = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "industria_frame_render_seconds",
		Help:    "The time to render a frame.",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 14),
	})

	blockRenderTime = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "industria_block_render_seconds",
		Help:    "The time for a tracer to render its assigned block.",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 14),
	}, []string{
		tracerLabel,
	})

	raysTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "industria_rays_total",
		Help: "The number of primary rays cast, by traversal outcome.",
	}, []string{
		outcomeLabel,
	})
)

func instrumentFrame(stats *FrameStats) {
	framesRendered.Inc()
	frameRenderTime.Observe(stats.RenderTime.Seconds())

	for _, stat := range stats.Tracers {
		blockRenderTime.With(prometheus.Labels{
			tracerLabel: stat.Id,
		}).Observe(stat.RenderTime.Seconds())
	}

	raysTotal.With(prometheus.Labels{outcomeLabel: "hit"}).Add(float64(stats.Counters.Hits))
	raysTotal.With(prometheus.Labels{outcomeLabel: "miss"}).Add(float64(stats.Counters.Misses))
	raysTotal.With(prometheus.Labels{outcomeLabel: "aborted"}).Add(float64(stats.Counters.Aborted))
}
