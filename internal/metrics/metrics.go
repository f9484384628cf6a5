package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ikbir-singh-unisys/DRM-Worker/pkg/job"
)

const namespace = "drmworker"

var (
	jobsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "jobs_total",
		Help:      "Finished jobs by packaging mode and terminal status.",
	}, []string{"mode", "status"})

	jobErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "job_errors_total",
		Help:      "Failed jobs by error kind.",
	}, []string{"kind"})

	activeJobs = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "active_jobs",
		Help:      "Jobs currently running on a worker.",
	})

	queuedJobs = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "queued_jobs",
		Help:      "Jobs accepted and waiting for a worker.",
	})

	rejectedJobs = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "rejected_jobs_total",
		Help:      "Submissions refused because the queue was full or closed.",
	})

	stageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "stage_duration_seconds",
		Help:      "Time spent per pipeline stage.",
		Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
	}, []string{"stage"})
)

func Handler() http.Handler {
	return promhttp.Handler()
}

func JobQueued() {
	queuedJobs.Inc()
}

func JobRejected() {
	rejectedJobs.Inc()
}

// JobStarted moves a job from the queue to a worker.
func JobStarted() {
	queuedJobs.Dec()
	activeJobs.Inc()
}

// JobFinished records the terminal status of a job. A nil err counts as completed.
func JobFinished(mode string, err error) {
	activeJobs.Dec()

	if err != nil {
		jobsTotal.WithLabelValues(mode, string(job.StatusFailed)).Inc()
		jobErrors.WithLabelValues(job.KindName(err)).Inc()
		return
	}
	jobsTotal.WithLabelValues(mode, string(job.StatusCompleted)).Inc()
}

// ObserveStage records the time since start for one stage.
func ObserveStage(stage string, start time.Time) {
	stageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}
