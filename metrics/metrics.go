package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/goliatone/go-integration/verify"
)

const namespace = "integration"

// PrometheusRecorder exports verification and wizard activity as Prometheus metrics.
type PrometheusRecorder struct {
	stageDuration *prometheus.HistogramVec
	stageResults  *prometheus.CounterVec
	runDuration   *prometheus.HistogramVec
	runs          *prometheus.CounterVec
	canceled      *prometheus.CounterVec
	transitions   *prometheus.CounterVec
	completions   *prometheus.CounterVec
	jobRuns       *prometheus.CounterVec
	jobDuration   *prometheus.HistogramVec
}

// NewPrometheusRecorder registers the collectors on reg. A nil reg uses the default registerer.
func NewPrometheusRecorder(reg prometheus.Registerer) *PrometheusRecorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &PrometheusRecorder{
		stageDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "verification_stage_duration_seconds",
				Help:      "Duration of verification stages in seconds",
				Buckets:   []float64{0.1, 0.5, 1, 1.5, 2, 3, 5, 10},
			},
			[]string{"stage"},
		),
		stageResults: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "verification_stage_results_total",
				Help:      "Verification stage outcomes by stage and status",
			},
			[]string{"stage", "status"},
		),
		runDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "verification_run_duration_seconds",
				Help:      "Duration of whole verification runs in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.25, 2, 8),
			},
			[]string{"success"},
		),
		runs: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "verification_runs_total",
				Help:      "Completed verification runs by outcome",
			},
			[]string{"success"},
		),
		canceled: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "verification_canceled_total",
				Help:      "Verification runs canceled, by the stage that was running",
			},
			[]string{"stage"},
		),
		transitions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "wizard_transitions_total",
				Help:      "Wizard step transitions by event and outcome",
			},
			[]string{"event", "from", "to", "allowed"},
		),
		completions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "wizard_completions_total",
				Help:      "Integration commits by outcome",
			},
			[]string{"success"},
		),
		jobRuns: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "scheduled_job_runs_total",
				Help:      "Scheduled job runs by job name and outcome",
			},
			[]string{"job", "success"},
		),
		jobDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "scheduled_job_duration_seconds",
				Help:      "Duration of scheduled job runs in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
			},
			[]string{"job"},
		),
	}
}

func (r *PrometheusRecorder) RecordStage(stage string, status verify.Status, duration time.Duration) {
	r.stageDuration.WithLabelValues(stage).Observe(duration.Seconds())
	r.stageResults.WithLabelValues(stage, string(status)).Inc()
}

func (r *PrometheusRecorder) RecordRun(success bool, duration time.Duration) {
	label := strconv.FormatBool(success)
	r.runDuration.WithLabelValues(label).Observe(duration.Seconds())
	r.runs.WithLabelValues(label).Inc()
}

func (r *PrometheusRecorder) RecordCanceled(stage string) {
	r.canceled.WithLabelValues(stage).Inc()
}

func (r *PrometheusRecorder) RecordTransition(event, from, to string, allowed bool) {
	r.transitions.WithLabelValues(event, from, to, strconv.FormatBool(allowed)).Inc()
}

func (r *PrometheusRecorder) RecordCompletion(success bool) {
	r.completions.WithLabelValues(strconv.FormatBool(success)).Inc()
}

// RecordJob satisfies cron.JobRecorder.
func (r *PrometheusRecorder) RecordJob(name string, err error, duration time.Duration) {
	r.jobRuns.WithLabelValues(name, strconv.FormatBool(err == nil)).Inc()
	r.jobDuration.WithLabelValues(name).Observe(duration.Seconds())
}

var _ verify.MetricsRecorder = (*PrometheusRecorder)(nil)
