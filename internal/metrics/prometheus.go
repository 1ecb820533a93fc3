package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// JobsSubmitted counts accepted batch submissions.
	JobsSubmitted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pipeline_jobs_submitted_total",
			Help: "Total number of batch jobs accepted",
		},
	)

	// JobsFinished counts jobs reaching a terminal state, by status.
	JobsFinished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_jobs_finished_total",
			Help: "Total number of batch jobs that reached a terminal state",
		},
		[]string{"status"},
	)

	// JobDuration tracks running time from start to terminal state.
	JobDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "pipeline_job_duration_seconds",
			Help:    "Duration of batch jobs in seconds",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 14), // 100ms to ~27m
		},
	)

	// JobsRunning tracks executors currently doing work.
	JobsRunning = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "pipeline_jobs_running",
			Help: "Number of batch jobs currently running",
		},
	)

	// Images counts per-image outcomes across all jobs.
	Images = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_images_total",
			Help: "Total number of images attempted, by result",
		},
		[]string{"result"},
	)

	// HTTPRequests counts served requests by route pattern.
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_http_requests_total",
			Help: "Total number of HTTP requests served",
		},
		[]string{"method", "route", "status"},
	)
)
