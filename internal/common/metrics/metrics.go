// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	WorkerJobsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_completed_total",
			Help: "Total number of jobs completed by worker",
		},
		[]string{"task_type"},
	)

	WorkerJobsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_failed_total",
			Help: "Total number of jobs failed by worker",
		},
		[]string{"task_type", "error_code"},
	)

	WorkerJobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "worker_job_duration_seconds",
			Help: "Duration of job processing in seconds",
		},
		[]string{"task_type"},
	)

	WorkerJobsActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "worker_jobs_active",
			Help: "Number of active jobs per worker",
		},
		[]string{"task_type"},
	)
)

var (
	// SearchTotal counts completed searches by response type
	// (exact, closest, error).
	SearchTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "listing_search_total",
			Help: "Total number of listing searches by result type",
		},
		[]string{"result_type"},
	)

	SearchFallbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "listing_search_fallback_total",
			Help: "Number of searches that fell back to relaxed filters",
		},
		[]string{"reason"},
	)

	SearchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "listing_search_duration_seconds",
			Help:    "Duration of listing search stages in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"stage"},
	)

	StoreRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "listing_store_requests_total",
			Help: "Listing store reads by backend and outcome",
		},
		[]string{"store", "outcome"},
	)

	CacheRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "listing_cache_requests_total",
			Help: "Listing cache lookups by outcome (hit, miss, error)",
		},
		[]string{"outcome"},
	)
)
