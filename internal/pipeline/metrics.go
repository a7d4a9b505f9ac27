package pipeline

import "github.com/prometheus/client_golang/prometheus"

var (
	stageDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "pagepoof",
		Name:      "pipeline_stage_duration_seconds",
		Help:      "Wall time per pipeline stage.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"stage"})

	parseTiers = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pagepoof",
		Name:      "generation_parse_tier_total",
		Help:      "How each content-generation response was parsed.",
	}, []string{"tier"})

	renderErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "pagepoof",
		Name:      "render_block_errors_total",
		Help:      "Blocks whose renderer failed and emitted a placeholder.",
	})

	activeSessions = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "pagepoof",
		Name:      "active_sessions",
		Help:      "Generation sessions currently live.",
	})
)

func init() {
	prometheus.MustRegister(stageDuration, parseTiers, renderErrors, activeSessions)
}
