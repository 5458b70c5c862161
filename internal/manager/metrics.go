package manager

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	resolutionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "modelyaml",
			Subsystem: "resolver",
			Name:      "resolutions_total",
			Help:      "Total resolutions computed, by outcome",
		},
		[]string{"outcome"},
	)

	resolutionDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "modelyaml",
			Subsystem: "resolver",
			Name:      "resolution_duration_seconds",
			Help:      "Duration of computed (non-cached) resolutions in seconds",
			Buckets:   []float64{.0001, .00025, .0005, .001, .0025, .005, .01, .025, .05, .1},
		},
	)

	cacheHitsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "modelyaml",
			Subsystem: "resolver",
			Name:      "cache_hits_total",
			Help:      "Resolutions served from the memo cache",
		},
	)

	cacheMissesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "modelyaml",
			Subsystem: "resolver",
			Name:      "cache_misses_total",
			Help:      "Resolutions not found (or stale) in the memo cache",
		},
	)

	cacheEvictionsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "modelyaml",
			Subsystem: "resolver",
			Name:      "cache_evictions_total",
			Help:      "Memo entries evicted to stay within capacity",
		},
	)

	cacheInvalidationsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "modelyaml",
			Subsystem: "resolver",
			Name:      "cache_invalidations_total",
			Help:      "Memo entries dropped because a definition on their path changed",
		},
	)

	diagnosticsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "modelyaml",
			Subsystem: "resolver",
			Name:      "diagnostics_total",
			Help:      "Diagnostics attached to computed resolutions, by kind",
		},
		[]string{"kind"},
	)

	definitionsGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "modelyaml",
			Subsystem: "resolver",
			Name:      "definitions",
			Help:      "Number of loaded model definitions",
		},
	)
)

func init() {
	prometheus.MustRegister(
		resolutionsTotal, resolutionDuration,
		cacheHitsTotal, cacheMissesTotal, cacheEvictionsTotal, cacheInvalidationsTotal,
		diagnosticsTotal, definitionsGauge,
	)
}
