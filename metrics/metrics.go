package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SearchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "logscope_searches_total",
			Help: "Total number of search requests by outcome",
		},
		[]string{"outcome"},
	)

	AutocompleteTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "logscope_autocomplete_total",
			Help: "Total number of autocomplete requests by outcome",
		},
		[]string{"outcome"},
	)

	SearchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "logscope_search_duration_seconds",
			Help:    "Time taken to execute searches against the engine",
			Buckets: prometheus.DefBuckets,
		},
	)

	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "logscope_cache_hits_total",
			Help: "Total number of cache hits",
		},
		[]string{"cache"},
	)

	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "logscope_cache_misses_total",
			Help: "Total number of cache misses",
		},
		[]string{"cache"},
	)

	CacheErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "logscope_cache_errors_total",
			Help: "Total number of cache errors",
		},
		[]string{"cache", "operation"},
	)

	HistoryWriteFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "logscope_history_write_failures_total",
			Help: "Total number of search history write failures",
		},
	)

	InputDegradations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "logscope_input_degradations_total",
			Help: "Total number of request fields dropped or replaced by sanitization",
		},
		[]string{"field"},
	)
)
